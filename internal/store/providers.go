package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/careslot/careslot/internal/db"
	"github.com/careslot/careslot/internal/model"
)

type ProviderStore struct {
	pool *db.Pool
}

// Create inserts a provider with a default schedule: Mon-Fri 09:00-17:00
// open, Sat/Sun closed.
func (s *ProviderStore) Create(ctx context.Context, name, timezone, legacyRef string) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ref *string
	if legacyRef != "" {
		ref = &legacyRef
	}
	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO providers (name, timezone, legacy_ref)
		VALUES ($1, $2, $3)
		RETURNING id::text
	`, name, timezone, ref).Scan(&id)
	if err != nil {
		return "", err
	}

	for wd := 0; wd <= 6; wd++ {
		isOpen := wd >= 1 && wd <= 5
		startMin, endMin := 0, 0
		if isOpen {
			startMin, endMin = 9*60, 17*60
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO business_hours (provider_id, weekday, is_open, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5)
		`, id, wd, isOpen, startMin, endMin); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *ProviderStore) Get(ctx context.Context, id string) (model.Provider, error) {
	var p model.Provider
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, COALESCE(legacy_ref, ''), name, timezone, created_at
		FROM providers
		WHERE `+idColumn(id)+` = $1
	`, id).Scan(&p.ID, &p.LegacyRef, &p.Name, &p.Timezone, &p.CreatedAt)
	return p, err
}

func (s *ProviderStore) List(ctx context.Context, limit int) ([]model.Provider, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, COALESCE(legacy_ref, ''), name, timezone, created_at
		FROM providers
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Provider
	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.ID, &p.LegacyRef, &p.Name, &p.Timezone, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *ProviderStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM providers WHERE `+idColumn(id)+` = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Availability loads the full availability record: the provider, its seven
// weekday windows and its blocked dates.
func (s *ProviderStore) Availability(ctx context.Context, id string) (model.ProviderAvailability, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return model.ProviderAvailability{}, err
	}

	av := model.ProviderAvailability{
		Provider:     p,
		BlockedDates: map[string]struct{}{},
	}
	for wd := range av.Hours {
		av.Hours[wd] = model.BusinessHours{Weekday: wd}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT weekday, is_open, start_minute, end_minute
		FROM business_hours
		WHERE provider_id = $1
	`, p.ID)
	if err != nil {
		return model.ProviderAvailability{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var h model.BusinessHours
		if err := rows.Scan(&h.Weekday, &h.IsOpen, &h.StartMinute, &h.EndMinute); err != nil {
			return model.ProviderAvailability{}, err
		}
		if h.Weekday >= 0 && h.Weekday < 7 {
			av.Hours[h.Weekday] = h
		}
	}
	if rows.Err() != nil {
		return model.ProviderAvailability{}, rows.Err()
	}

	dates, err := s.pool.Query(ctx, `
		SELECT to_char(day, 'YYYY-MM-DD')
		FROM blocked_dates
		WHERE provider_id = $1
	`, p.ID)
	if err != nil {
		return model.ProviderAvailability{}, err
	}
	defer dates.Close()
	for dates.Next() {
		var d string
		if err := dates.Scan(&d); err != nil {
			return model.ProviderAvailability{}, err
		}
		av.BlockedDates[d] = struct{}{}
	}
	if dates.Err() != nil {
		return model.ProviderAvailability{}, dates.Err()
	}
	return av, nil
}

func (s *ProviderStore) UpsertBusinessHours(ctx context.Context, providerID string, h model.BusinessHours) error {
	p, err := s.Get(ctx, providerID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO business_hours (provider_id, weekday, is_open, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_id, weekday) DO UPDATE
		SET is_open = EXCLUDED.is_open,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute
	`, p.ID, h.Weekday, h.IsOpen, h.StartMinute, h.EndMinute)
	return err
}

func (s *ProviderStore) AddBlockedDate(ctx context.Context, providerID string, day time.Time, reason string) error {
	p, err := s.Get(ctx, providerID)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO blocked_dates (provider_id, day, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_id, day) DO UPDATE SET reason = EXCLUDED.reason
	`, p.ID, day, reason)
	return err
}

func (s *ProviderStore) RemoveBlockedDate(ctx context.Context, providerID string, day time.Time) error {
	p, err := s.Get(ctx, providerID)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM blocked_dates WHERE provider_id = $1 AND day = $2
	`, p.ID, day)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
