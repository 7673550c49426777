package booking

import (
	"context"
	"errors"
	"time"

	"github.com/careslot/careslot/internal/availability"
	"github.com/careslot/careslot/internal/model"
)

// ErrConflict means the requested interval overlaps an active appointment
// for the same provider.
var ErrConflict = errors.New("requested slot overlaps an existing appointment")

// Appointments is the slice of the store gateway the guard reads from.
type Appointments interface {
	ListOverlapping(ctx context.Context, providerID string, start, end time.Time, excludeID string) ([]model.Appointment, error)
}

// Guard performs the read-side overlap check ahead of a booking or
// reschedule write. It exists for fast, specific feedback; the storage
// layer's exclusion constraint is the atomic backstop that decides races,
// so a request that slips past the guard still loses with the same
// conflict error at insert time.
type Guard struct {
	appts Appointments
}

func NewGuard(appts Appointments) *Guard {
	return &Guard{appts: appts}
}

// CheckAndReserve returns ErrConflict when [start, end) intersects any
// active appointment for the provider. On reschedule, excludeID names the
// appointment being moved so its own prior interval never blocks the move.
func (g *Guard) CheckAndReserve(ctx context.Context, providerID string, start, end time.Time, excludeID string) error {
	if !end.After(start) {
		return errors.New("end must be after start")
	}
	overlapping, err := g.appts.ListOverlapping(ctx, providerID, start, end, excludeID)
	if err != nil {
		return err
	}
	for _, a := range overlapping {
		if availability.Overlaps(start, end, a.StartTime, a.EndTime) {
			return ErrConflict
		}
	}
	return nil
}
