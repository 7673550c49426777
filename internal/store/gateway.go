package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/careslot/careslot/internal/db"
	"github.com/careslot/careslot/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Gateway is the single entry point to persistence. Every other component
// reads and writes through one of its per-entity repositories.
type Gateway struct {
	pool *db.Pool

	Appointments  *AppointmentStore
	Providers     *ProviderStore
	Services      *ServiceStore
	Settings      *SettingsStore
	Notifications *NotificationLogStore
	Audit         *AuditStore
	Outbox        *OutboxStore
}

func NewGateway(pool *db.Pool) *Gateway {
	g := &Gateway{pool: pool}
	g.Appointments = &AppointmentStore{pool: pool}
	g.Providers = &ProviderStore{pool: pool}
	g.Services = &ServiceStore{pool: pool}
	g.Settings = &SettingsStore{pool: pool}
	g.Notifications = &NotificationLogStore{pool: pool}
	g.Audit = &AuditStore{pool: pool}
	g.Outbox = &OutboxStore{pool: pool}
	return g
}

// Migrate applies the embedded schema. Statements are idempotent
// (CREATE ... IF NOT EXISTS), so reapplying on every start is safe.
func (g *Gateway) Migrate(ctx context.Context) error {
	_, err := g.pool.Exec(ctx, schemaSQL)
	return err
}

func (g *Gateway) Begin(ctx context.Context) (pgx.Tx, error) {
	return g.pool.Begin(ctx)
}

// Availability delegates to the provider store so the gateway satisfies
// read-side consumers that need both provider and appointment data.
func (g *Gateway) Availability(ctx context.Context, providerID string) (model.ProviderAvailability, error) {
	return g.Providers.Availability(ctx, providerID)
}

func (g *Gateway) ListOverlapping(ctx context.Context, providerID string, start, end time.Time, excludeID string) ([]model.Appointment, error) {
	return g.Appointments.ListOverlapping(ctx, providerID, start, end, excludeID)
}

// IsConflict reports whether err is the appointments_no_overlap exclusion
// constraint rejecting an overlapping active appointment.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
