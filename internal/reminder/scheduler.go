package reminder

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/notify"
	"github.com/careslot/careslot/internal/store"
)

// Appointments is the slice of the store gateway the scheduler needs.
type Appointments interface {
	Get(ctx context.Context, id string) (model.Appointment, error)
	ListUnreminded(ctx context.Context, from, until time.Time) ([]model.Appointment, error)
	ClaimReminder(ctx context.Context, id string) (bool, error)
}

type SettingsSource interface {
	Get(ctx context.Context) (model.NotificationSettings, error)
}

type Dispatcher interface {
	Enqueue(job notify.Job) bool
}

// EventSink receives reminder lifecycle events for the outbox stream.
// May be nil when the event stream is disabled.
type EventSink interface {
	Append(ctx context.Context, evt store.OutboxEvent) error
}

type Config struct {
	SweepEvery      time.Duration // periodic sweep interval
	ReconcileWindow time.Duration // how far ahead startup reconciliation looks
	ReminderLead    time.Duration // how long before start an armed timer fires
}

// Scheduler owns the in-process reminder state: a volatile map of armed
// one-shot timers plus the periodic sweep. Timers do not survive a restart;
// recovery is the startup reconciliation plus the sweep, which keeps
// re-selecting an appointment until its reminder_sent flag is set.
//
// Both firing paths go through an atomic claim on the appointment row, so
// an armed timer and a sweep racing over the same appointment produce
// exactly one send.
type Scheduler struct {
	appts    Appointments
	settings SettingsSource
	dispatch Dispatcher
	events   EventSink
	logger   *slog.Logger
	cfg      Config

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewScheduler(appts Appointments, settings SettingsSource, dispatch Dispatcher, events EventSink, logger *slog.Logger, cfg Config) *Scheduler {
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = time.Minute
	}
	if cfg.ReconcileWindow <= 0 {
		cfg.ReconcileWindow = 30 * 24 * time.Hour
	}
	if cfg.ReminderLead <= 0 {
		cfg.ReminderLead = 24 * time.Hour
	}
	return &Scheduler{
		appts:    appts,
		settings: settings,
		dispatch: dispatch,
		events:   events,
		logger:   logger,
		cfg:      cfg,
		timers:   map[string]*time.Timer{},
	}
}

// Run reconciles once, then sweeps until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if err := s.reconcile(ctx); err != nil {
		s.logger.Error("reminder reconciliation failed", "err", err)
	}

	ticker := time.NewTicker(s.cfg.SweepEvery)
	defer ticker.Stop()
	defer s.stopAll()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logger.Error("reminder sweep failed", "err", err)
			}
		}
	}
}

// stopAll disarms every timer. Run calls it on shutdown so no callback
// fires after the loop has exited.
func (s *Scheduler) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Cancel clears any armed timer for the appointment. Called when an
// appointment is cancelled or deleted; the sweep stops selecting it on its
// own once the status leaves pending/confirmed.
func (s *Scheduler) Cancel(appointmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[appointmentID]; ok {
		t.Stop()
		delete(s.timers, appointmentID)
	}
}

// ArmedCount reports how many one-shot timers are currently armed.
func (s *Scheduler) ArmedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// reconcile scans upcoming unsent reminders and arms a one-shot timer for
// each whose reminder time is still in the future.
func (s *Scheduler) reconcile(ctx context.Context) error {
	now := time.Now().UTC()
	appts, err := s.appts.ListUnreminded(ctx, now, now.Add(s.cfg.ReconcileWindow))
	if err != nil {
		return err
	}
	armed := 0
	for _, appt := range appts {
		remindAt := appt.StartTime.Add(-s.cfg.ReminderLead)
		if !remindAt.After(now) {
			// Already inside the lead window; the next sweep picks it up.
			continue
		}
		s.arm(ctx, appt.ID, remindAt)
		armed++
	}
	s.logger.Info("reminder reconciliation complete", "scanned", len(appts), "armed", armed)
	return nil
}

func (s *Scheduler) arm(ctx context.Context, appointmentID string, remindAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[appointmentID]; ok {
		t.Stop()
	}
	s.timers[appointmentID] = time.AfterFunc(time.Until(remindAt), func() {
		s.mu.Lock()
		delete(s.timers, appointmentID)
		s.mu.Unlock()
		s.fire(ctx, appointmentID)
	})
}

// sweep selects unsent reminders inside the settings-driven look-ahead
// window and fires them immediately. It is the catch-all net: an
// appointment stays selectable until a claim marks it sent.
func (s *Scheduler) sweep(ctx context.Context) error {
	lookahead := s.cfg.ReminderLead
	if cfg, err := s.settings.Get(ctx); err == nil && cfg.LookaheadHours > 0 {
		lookahead = time.Duration(cfg.LookaheadHours) * time.Hour
	} else if err != nil {
		s.logger.Warn("settings load failed, using default look-ahead", "err", err)
	}

	now := time.Now().UTC()
	appts, err := s.appts.ListUnreminded(ctx, now, now.Add(lookahead))
	if err != nil {
		return err
	}
	for _, appt := range appts {
		s.Cancel(appt.ID)
		s.fireAppointment(ctx, appt)
	}
	return nil
}

func (s *Scheduler) fire(ctx context.Context, appointmentID string) {
	appt, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		if !store.IsNotFound(err) {
			s.logger.Error("reminder load failed", "appointment_id", appointmentID, "err", err)
		}
		return
	}
	s.fireAppointment(ctx, appt)
}

func (s *Scheduler) fireAppointment(ctx context.Context, appt model.Appointment) {
	if !appt.Status.Active() {
		return
	}
	won, err := s.appts.ClaimReminder(ctx, appt.ID)
	if err != nil {
		s.logger.Error("reminder claim failed", "appointment_id", appt.ID, "err", err)
		return
	}
	if !won {
		return
	}

	s.dispatch.Enqueue(notify.Job{
		AppointmentID: appt.ID,
		Kind:          notify.KindReminder,
		EmailTo:       appt.PatientEmail,
		SMSTo:         appt.PatientPhone,
		Data: notify.TemplateData{
			PatientName: appt.PatientName,
			StartTime:   appt.StartTime,
		},
	})

	if s.events != nil {
		payload, err := json.Marshal(map[string]any{
			"appointment_id": appt.ID,
			"provider_id":    appt.ProviderID,
			"start_time":     appt.StartTime.UTC().Format(time.RFC3339),
			"dispatched_at":  time.Now().UTC().Format(time.RFC3339),
		})
		if err == nil {
			err = s.events.Append(ctx, store.OutboxEvent{
				AggregateType: "appointment",
				AggregateID:   appt.ID,
				EventType:     "careslot.reminder.dispatched.v1",
				Payload:       payload,
			})
		}
		if err != nil {
			s.logger.Error("reminder event write failed", "appointment_id", appt.ID, "err", err)
		}
	}
}
