package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/careslot/careslot/internal/db"
	"github.com/careslot/careslot/internal/model"
)

type AppointmentStore struct {
	pool *db.Pool
}

var appointmentColumns = map[string]string{
	"providerId": "provider_id",
	"serviceId":  "service_id",
	"status":     "status",
	"startTime":  "start_time",
	"endTime":    "end_time",
}

const appointmentFields = `
	id::text, COALESCE(legacy_ref, ''), provider_id::text, COALESCE(service_id::text, ''),
	patient_name, patient_email, patient_phone, custom_fields,
	start_time, end_time, status, reschedule_reason,
	reminder_sent, reminder_sent_at, created_at, updated_at`

// Create inserts a new appointment. Overlap with an active appointment for
// the same provider is rejected atomically by the exclusion constraint and
// surfaces as IsConflict(err).
func (s *AppointmentStore) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	custom, err := json.Marshal(nonNilFields(appt.CustomFields))
	if err != nil {
		return "", err
	}
	var serviceID *string
	if appt.ServiceID != "" {
		serviceID = &appt.ServiceID
	}
	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(provider_id, service_id, patient_name, patient_email, patient_phone, custom_fields, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`, appt.ProviderID, serviceID, appt.PatientName, appt.PatientEmail, appt.PatientPhone,
		custom, appt.StartTime, appt.EndTime, appt.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Get resolves an appointment by primary id, falling back to legacy_ref when
// the id does not parse as a UUID (ids migrated from the previous system).
func (s *AppointmentStore) Get(ctx context.Context, id string) (model.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+appointmentFields+`
		FROM appointments
		WHERE `+idColumn(id)+` = $1
	`, id)
	return scanAppointment(row)
}

// GetForUpdate locks the appointment row inside tx.
func (s *AppointmentStore) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+appointmentFields+`
		FROM appointments
		WHERE `+idColumn(id)+` = $1
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

// ListOverlapping returns active (pending or confirmed) appointments for the
// provider whose [start_time, end_time) intersects [start, end).
func (s *AppointmentStore) ListOverlapping(ctx context.Context, providerID string, start, end time.Time, excludeID string) ([]model.Appointment, error) {
	q := `
		SELECT ` + appointmentFields + `
		FROM appointments
		WHERE provider_id = $1
			AND status IN ('pending', 'confirmed')
			AND start_time < $3
			AND end_time > $2`
	args := []any{providerID, start, end}
	if excludeID != "" {
		q += ` AND ` + idColumn(excludeID) + ` IS DISTINCT FROM $4`
		args = append(args, excludeID)
	}
	q += ` ORDER BY start_time ASC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// Reschedule moves an appointment to a new interval, leaving status intact.
// The exclusion constraint re-checks the new interval against every other
// active row, so conflicts surface as IsConflict(err); the row's own old
// interval never blocks the move.
func (s *AppointmentStore) Reschedule(ctx context.Context, tx pgx.Tx, id string, start, end time.Time, reason string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET start_time = $2,
			end_time = $3,
			reschedule_reason = CASE WHEN $4 <> '' THEN $4 ELSE reschedule_reason END,
			reminder_sent = FALSE,
			reminder_sent_at = NULL,
			updated_at = now()
		WHERE `+idColumn(id)+` = $1
	`, id, start, end, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *AppointmentStore) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status model.AppointmentStatus) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE `+idColumn(id)+` = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *AppointmentStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE `+idColumn(id)+` = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// List returns appointments matching the typed filter, newest first.
func (s *AppointmentStore) List(ctx context.Context, filter Filter, limit int) ([]model.Appointment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	where, args, err := filter.compile(appointmentColumns, 2)
	if err != nil {
		return nil, err
	}
	q := `
		SELECT ` + appointmentFields + `
		FROM appointments
		WHERE ` + where + `
		ORDER BY start_time DESC
		LIMIT $1`
	rows, err := s.pool.Query(ctx, q, append([]any{limit}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListUnreminded returns active appointments with no reminder sent yet whose
// start time falls in (from, until]. Used by both the startup reconciliation
// and the periodic reminder sweep.
func (s *AppointmentStore) ListUnreminded(ctx context.Context, from, until time.Time) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentFields+`
		FROM appointments
		WHERE status IN ('pending', 'confirmed')
			AND reminder_sent = FALSE
			AND start_time > $1
			AND start_time <= $2
		ORDER BY start_time ASC
	`, from, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ClaimReminder atomically marks the reminder as sent and reports whether
// this caller won the claim. The sweep and an armed timer can both reach an
// appointment; only the winner dispatches.
func (s *AppointmentStore) ClaimReminder(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = TRUE, reminder_sent_at = now(), updated_at = now()
		WHERE id = $1
			AND reminder_sent = FALSE
			AND status IN ('pending', 'confirmed')
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func idColumn(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return "id"
	}
	return "legacy_ref"
}

func nonNilFields(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var custom []byte
	var reminderSentAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.LegacyRef,
		&appt.ProviderID,
		&appt.ServiceID,
		&appt.PatientName,
		&appt.PatientEmail,
		&appt.PatientPhone,
		&custom,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Status,
		&appt.RescheduleReason,
		&appt.ReminderSent,
		&reminderSentAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.ReminderSentAt = reminderSentAt
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &appt.CustomFields); err != nil {
			return model.Appointment{}, err
		}
	}
	return appt, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}
