package store

import (
	"context"

	"github.com/careslot/careslot/internal/db"
	"github.com/careslot/careslot/internal/model"
)

type NotificationLogStore struct {
	pool *db.Pool
}

func (s *NotificationLogStore) Append(ctx context.Context, e model.NotificationLogEntry) error {
	var apptID *string
	if e.AppointmentID != "" {
		apptID = &e.AppointmentID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_log (appointment_id, channel, recipient, status, error)
		VALUES ($1, $2, $3, $4, $5)
	`, apptID, e.Channel, e.Recipient, e.Status, e.Error)
	return err
}

func (s *NotificationLogStore) ListRecent(ctx context.Context, limit int) ([]model.NotificationLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(appointment_id::text, ''), channel, recipient, status, error, created_at
		FROM notification_log
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.NotificationLogEntry
	for rows.Next() {
		var e model.NotificationLogEntry
		if err := rows.Scan(&e.ID, &e.AppointmentID, &e.Channel, &e.Recipient, &e.Status, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
