package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/careslot/careslot/internal/model"
)

// Kind selects which template set a job renders.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindReminder     Kind = "reminder"
	KindCancellation Kind = "cancellation"
)

// Job is one notification to deliver. Empty EmailTo/SMSTo skips that channel.
type Job struct {
	AppointmentID string
	Kind          Kind
	EmailTo       string
	SMSTo         string
	Data          TemplateData
}

// LogSink records each send outcome.
type LogSink interface {
	Append(ctx context.Context, e model.NotificationLogEntry) error
}

// SettingsSource provides the current channel toggles and template overrides.
type SettingsSource interface {
	Get(ctx context.Context) (model.NotificationSettings, error)
}

// Dispatcher decouples notification delivery from the request path: callers
// enqueue a job and return immediately, a single worker performs the sends.
// Send failures are logged with status "failed" and never retried; they
// never affect the operation that triggered them.
type Dispatcher struct {
	jobs     chan Job
	email    EmailSender
	sms      SMSSender
	settings SettingsSource
	log      LogSink
	logger   *slog.Logger
}

func NewDispatcher(email EmailSender, sms SMSSender, settings SettingsSource, log LogSink, logger *slog.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		jobs:     make(chan Job, queueSize),
		email:    email,
		sms:      sms,
		settings: settings,
		log:      log,
		logger:   logger,
	}
}

// Enqueue hands a job to the worker without blocking. When the queue is
// full the job is dropped and logged; the caller's request still succeeds.
func (d *Dispatcher) Enqueue(job Job) bool {
	select {
	case d.jobs <- job:
		return true
	default:
		d.logger.Warn("notification queue full, dropping job",
			"appointment_id", job.AppointmentID, "kind", string(job.Kind))
		return false
	}
}

// Run consumes jobs until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.jobs:
			d.deliver(ctx, job)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job Job) {
	cfg, err := d.settings.Get(ctx)
	if err != nil {
		d.logger.Error("notification settings load failed, using defaults", "err", err)
		cfg = model.NotificationSettings{EmailEnabled: true, LookaheadHours: 24}
	}

	if cfg.EmailEnabled && strings.TrimSpace(job.EmailTo) != "" {
		subject, body := d.renderEmail(job, cfg)
		d.record(ctx, job, "email", job.EmailTo, d.email.Send(job.EmailTo, subject, body))
	}
	if cfg.SMSEnabled && strings.TrimSpace(job.SMSTo) != "" {
		body := d.renderSMS(job, cfg)
		// The provider id is the channel name, so the log shows which
		// gateway handled the send.
		d.record(ctx, job, d.sms.ProviderID(), job.SMSTo, d.sms.Send(ctx, job.SMSTo, body))
	}
}

func (d *Dispatcher) renderEmail(job Job, cfg model.NotificationSettings) (string, string) {
	switch job.Kind {
	case KindReminder:
		return Render(cfg.EmailSubjectTmpl, cfg.EmailBodyTmpl, defaultReminderSubject, defaultReminderBody, job.Data)
	case KindCancellation:
		return Render("", "", defaultCancellationSubject, defaultCancellationBody, job.Data)
	default:
		return Render("", "", defaultConfirmationSubject, defaultConfirmationBody, job.Data)
	}
}

func (d *Dispatcher) renderSMS(job Job, cfg model.NotificationSettings) string {
	switch job.Kind {
	case KindReminder:
		_, body := Render("", cfg.SMSBodyTmpl, "", defaultReminderSMS, job.Data)
		return body
	case KindCancellation:
		_, body := Render("", "", "", defaultCancellationSMS, job.Data)
		return body
	default:
		_, body := Render("", "", "", defaultConfirmationSMS, job.Data)
		return body
	}
}

func (d *Dispatcher) record(ctx context.Context, job Job, channel, recipient string, sendErr error) {
	entry := model.NotificationLogEntry{
		AppointmentID: job.AppointmentID,
		Channel:       channel,
		Recipient:     recipient,
		Status:        "sent",
	}
	if sendErr != nil {
		entry.Status = "failed"
		entry.Error = sendErr.Error()
		d.logger.Error("notification send failed",
			"appointment_id", job.AppointmentID, "channel", channel, "err", sendErr)
	}
	if err := d.log.Append(ctx, entry); err != nil {
		d.logger.Error("notification log write failed", "err", err)
	}
}
