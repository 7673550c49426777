package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/notify"
	"github.com/careslot/careslot/internal/store"
)

// SlotSource computes available slots; satisfied by availability.Resolver.
type SlotSource interface {
	SlotsForDay(ctx context.Context, providerID string, date time.Time, durationMinutes int) ([]model.TimeSlot, error)
}

// ConflictChecker is the read-side overlap check; satisfied by booking.Guard.
type ConflictChecker interface {
	CheckAndReserve(ctx context.Context, providerID string, start, end time.Time, excludeID string) error
}

// Notifier enqueues a notification job; satisfied by notify.Dispatcher.
type Notifier interface {
	Enqueue(job notify.Job) bool
}

// ReminderCanceler clears an armed reminder timer; satisfied by
// reminder.Scheduler.
type ReminderCanceler interface {
	Cancel(appointmentID string)
}

type Handler struct {
	gw        *store.Gateway
	slots     SlotSource
	guard     ConflictChecker
	notifier  Notifier
	reminders ReminderCanceler
	logger    *slog.Logger
}

func New(gw *store.Gateway, slots SlotSource, guard ConflictChecker, notifier Notifier, reminders ReminderCanceler, logger *slog.Logger) *Handler {
	return &Handler{
		gw:        gw,
		slots:     slots,
		guard:     guard,
		notifier:  notifier,
		reminders: reminders,
		logger:    logger,
	}
}

// appendAppointmentEvent writes a domain event to the outbox in the caller's
// transaction so it commits together with the appointment change.
func (h *Handler) appendAppointmentEvent(ctx context.Context, tx pgx.Tx, eventType, id string, appt *model.Appointment) error {
	payload, err := json.Marshal(map[string]any{
		"appointmentId": id,
		"providerId":    appt.ProviderID,
		"serviceId":     appt.ServiceID,
		"patientName":   appt.PatientName,
		"startTime":     appt.StartTime.UTC().Format(time.RFC3339),
		"endTime":       appt.EndTime.UTC().Format(time.RFC3339),
		"status":        string(appt.Status),
	})
	if err != nil {
		return err
	}
	return h.gw.Outbox.Insert(ctx, tx, store.OutboxEvent{
		AggregateType: "appointment",
		AggregateID:   id,
		EventType:     eventType,
		Payload:       payload,
	})
}

// audit records an admin action; failures are logged and swallowed so the
// already-committed change is still acknowledged to the caller.
func (h *Handler) audit(ctx context.Context, r *http.Request, action, entityType, entityID string, detail map[string]any) {
	actor := r.Header.Get("X-Actor")
	if actor == "" {
		actor = "admin"
	}
	err := h.gw.Audit.Append(ctx, model.AuditEntry{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
	})
	if err != nil {
		h.logger.Error("audit append failed", "action", action, "err", err)
	}
}
