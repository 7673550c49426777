package store

import (
	"context"

	"github.com/careslot/careslot/internal/db"
	"github.com/careslot/careslot/internal/model"
)

type SettingsStore struct {
	pool *db.Pool
}

// Get returns the global notification settings, creating the default record
// on first access.
func (s *SettingsStore) Get(ctx context.Context) (model.NotificationSettings, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_settings (id)
		VALUES (1)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return model.NotificationSettings{}, err
	}

	var cfg model.NotificationSettings
	err = s.pool.QueryRow(ctx, `
		SELECT email_enabled, sms_enabled, reminder_lookahead_hrs,
			email_subject_tmpl, email_body_tmpl, sms_body_tmpl, updated_at
		FROM notification_settings
		WHERE id = 1
	`).Scan(
		&cfg.EmailEnabled,
		&cfg.SMSEnabled,
		&cfg.LookaheadHours,
		&cfg.EmailSubjectTmpl,
		&cfg.EmailBodyTmpl,
		&cfg.SMSBodyTmpl,
		&cfg.UpdatedAt,
	)
	return cfg, err
}

func (s *SettingsStore) Update(ctx context.Context, cfg model.NotificationSettings) error {
	if cfg.LookaheadHours <= 0 {
		cfg.LookaheadHours = 24
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_settings
			(id, email_enabled, sms_enabled, reminder_lookahead_hrs, email_subject_tmpl, email_body_tmpl, sms_body_tmpl)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET email_enabled = EXCLUDED.email_enabled,
			sms_enabled = EXCLUDED.sms_enabled,
			reminder_lookahead_hrs = EXCLUDED.reminder_lookahead_hrs,
			email_subject_tmpl = EXCLUDED.email_subject_tmpl,
			email_body_tmpl = EXCLUDED.email_body_tmpl,
			sms_body_tmpl = EXCLUDED.sms_body_tmpl,
			updated_at = now()
	`, cfg.EmailEnabled, cfg.SMSEnabled, cfg.LookaheadHours,
		cfg.EmailSubjectTmpl, cfg.EmailBodyTmpl, cfg.SMSBodyTmpl)
	return err
}
