package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/careslot/careslot/internal/model"
)

// Store is the slice of the store gateway the resolver reads from.
type Store interface {
	Availability(ctx context.Context, providerID string) (model.ProviderAvailability, error)
	ListOverlapping(ctx context.Context, providerID string, start, end time.Time, excludeID string) ([]model.Appointment, error)
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// SlotsForDay computes the bookable slots for a provider on a calendar date.
//
// A closed weekday or a blocked date yields an empty result, not an error.
// Candidates are generated across the day's open window in steps of the
// requested duration, filtered against active appointments, and returned as
// a random sample of at most MaxSlotsReturned. Read-only.
func (r *Resolver) SlotsForDay(ctx context.Context, providerID string, date time.Time, durationMinutes int) ([]model.TimeSlot, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", durationMinutes)
	}

	av, err := r.store.Availability(ctx, providerID)
	if err != nil {
		return nil, err
	}

	// Business hours are local time-of-day in the provider's zone; an
	// unset or unknown zone falls back to the date's own location.
	loc := date.Location()
	if av.Provider.Timezone != "" {
		if l, err := time.LoadLocation(av.Provider.Timezone); err == nil {
			loc = l
		}
	}
	weekday := int(date.Weekday())
	hours := av.Hours[weekday]
	if !hours.IsOpen {
		return nil, nil
	}
	if av.IsBlocked(date.Format("2006-01-02")) {
		return nil, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc).
		Add(time.Duration(hours.StartMinute) * time.Minute)
	dayEnd := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc).
		Add(time.Duration(hours.EndMinute) * time.Minute)
	if !dayEnd.After(dayStart) {
		return nil, nil
	}

	appts, err := r.store.ListOverlapping(ctx, av.Provider.ID, dayStart, dayEnd, "")
	if err != nil {
		return nil, err
	}
	busy := make([]Interval, 0, len(appts))
	for _, a := range appts {
		if !a.Status.Active() {
			continue
		}
		busy = append(busy, Interval{Start: a.StartTime, End: a.EndTime})
	}

	candidates := CandidateSlots(dayStart, dayEnd, time.Duration(durationMinutes)*time.Minute, busy)
	return Sample(candidates, MaxSlotsReturned), nil
}
