package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/careslot/careslot/internal/db"
	"github.com/careslot/careslot/internal/model"
)

type ServiceStore struct {
	pool *db.Pool
}

func (s *ServiceStore) Create(ctx context.Context, svc model.Service) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO services (name, duration_minutes, price, description, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text
	`, svc.Name, svc.DurationMins, svc.Price, svc.Description, svc.Active).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *ServiceStore) Get(ctx context.Context, id string) (model.Service, error) {
	var svc model.Service
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, name, duration_minutes, price::text, description, active, created_at
		FROM services
		WHERE id = $1
	`, id).Scan(&svc.ID, &svc.Name, &svc.DurationMins, &svc.Price, &svc.Description, &svc.Active, &svc.CreatedAt)
	return svc, err
}

func (s *ServiceStore) List(ctx context.Context, limit int) ([]model.Service, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, name, duration_minutes, price::text, description, active, created_at
		FROM services
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.DurationMins, &svc.Price, &svc.Description, &svc.Active, &svc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *ServiceStore) Update(ctx context.Context, svc model.Service) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE services
		SET name = $2,
			duration_minutes = $3,
			price = $4,
			description = $5,
			active = $6
		WHERE id = $1
	`, svc.ID, svc.Name, svc.DurationMins, svc.Price, svc.Description, svc.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *ServiceStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
