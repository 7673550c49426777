package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/careslot/careslot/internal/model"
)

type fakeStore struct {
	avail      model.ProviderAvailability
	availErr   error
	overlaps   []model.Appointment
	overlapErr error

	gotProviderID string
	gotStart      time.Time
	gotEnd        time.Time
}

func (f *fakeStore) Availability(_ context.Context, _ string) (model.ProviderAvailability, error) {
	return f.avail, f.availErr
}

func (f *fakeStore) ListOverlapping(_ context.Context, providerID string, start, end time.Time, _ string) ([]model.Appointment, error) {
	f.gotProviderID = providerID
	f.gotStart = start
	f.gotEnd = end
	return f.overlaps, f.overlapErr
}

func weekdaySchedule(open map[int][2]int) [7]model.BusinessHours {
	var hours [7]model.BusinessHours
	for wd := range hours {
		hours[wd] = model.BusinessHours{Weekday: wd}
	}
	for wd, window := range open {
		hours[wd] = model.BusinessHours{Weekday: wd, IsOpen: true, StartMinute: window[0], EndMinute: window[1]}
	}
	return hours
}

func TestSlotsForDay_OpenDaySamplesAtMostEight(t *testing.T) {
	// Monday 2026-03-02, open 09:00-17:00 with one 30m booking: 15 candidates.
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		avail: model.ProviderAvailability{
			Provider: model.Provider{ID: "prov-1"},
			Hours:    weekdaySchedule(map[int][2]int{1: {9 * 60, 17 * 60}}),
		},
		overlaps: []model.Appointment{
			{
				ProviderID: "prov-1",
				StartTime:  monday.Add(10 * time.Hour),
				EndTime:    monday.Add(10*time.Hour + 30*time.Minute),
				Status:     model.StatusConfirmed,
			},
		},
	}

	slots, err := NewResolver(fs).SlotsForDay(context.Background(), "prov-1", monday, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != MaxSlotsReturned {
		t.Fatalf("expected %d slots from 15 candidates, got %d", MaxSlotsReturned, len(slots))
	}
	for _, s := range slots {
		if s.StartTime.Before(monday.Add(9*time.Hour)) || s.EndTime.After(monday.Add(17*time.Hour)) {
			t.Fatalf("slot %s outside business hours", s.StartTime.Format(time.RFC3339))
		}
		if Overlaps(s.StartTime, s.EndTime, fs.overlaps[0].StartTime, fs.overlaps[0].EndTime) {
			t.Fatalf("slot %s intersects an existing booking", s.StartTime.Format(time.RFC3339))
		}
		if !s.IsAvailable {
			t.Fatal("returned slots must be marked available")
		}
	}
	if !fs.gotStart.Equal(monday.Add(9*time.Hour)) || !fs.gotEnd.Equal(monday.Add(17*time.Hour)) {
		t.Fatalf("overlap query window %s..%s does not match business hours", fs.gotStart, fs.gotEnd)
	}
}

func TestSlotsForDay_CancelledBookingsDoNotBlock(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		avail: model.ProviderAvailability{
			Provider: model.Provider{ID: "prov-1"},
			Hours:    weekdaySchedule(map[int][2]int{1: {9 * 60, 11 * 60}}),
		},
		overlaps: []model.Appointment{
			{
				StartTime: monday.Add(9 * time.Hour),
				EndTime:   monday.Add(11 * time.Hour),
				Status:    model.StatusCancelled,
			},
		},
	}

	slots, err := NewResolver(fs).SlotsForDay(context.Background(), "prov-1", monday, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("cancelled booking must free the window, got %d slots", len(slots))
	}
}

func TestSlotsForDay_HoursApplyInProviderTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// Date arrives as midnight UTC of the calendar day; 09:00-10:00 hours
	// must resolve in the provider's zone, not in UTC.
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		avail: model.ProviderAvailability{
			Provider: model.Provider{ID: "prov-1", Timezone: "America/New_York"},
			Hours:    weekdaySchedule(map[int][2]int{1: {9 * 60, 10 * 60}}),
		},
	}

	slots, err := NewResolver(fs).SlotsForDay(context.Background(), "prov-1", monday, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	wantStart := time.Date(2026, 3, 2, 9, 0, 0, 0, ny)
	if !slots[0].StartTime.Equal(wantStart) {
		t.Fatalf("expected slot at 09:00 provider-local (%s), got %s",
			wantStart.UTC().Format(time.RFC3339), slots[0].StartTime.UTC().Format(time.RFC3339))
	}
	if !fs.gotStart.Equal(wantStart) {
		t.Fatalf("overlap query must use the provider-local window, got %s", fs.gotStart.UTC().Format(time.RFC3339))
	}
}

func TestSlotsForDay_UnknownTimezoneFallsBackToDateLocation(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		avail: model.ProviderAvailability{
			Provider: model.Provider{ID: "prov-1", Timezone: "Mars/Olympus"},
			Hours:    weekdaySchedule(map[int][2]int{1: {9 * 60, 10 * 60}}),
		},
	}

	slots, err := NewResolver(fs).SlotsForDay(context.Background(), "prov-1", monday, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 1 || !slots[0].StartTime.Equal(monday.Add(9*time.Hour)) {
		t.Fatalf("unknown zone must fall back to the date's location, got %+v", slots)
	}
}

func TestSlotsForDay_ClosedWeekdayIsEmpty(t *testing.T) {
	sunday := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		avail: model.ProviderAvailability{
			Provider: model.Provider{ID: "prov-1"},
			Hours:    weekdaySchedule(map[int][2]int{1: {9 * 60, 17 * 60}}),
		},
	}

	slots, err := NewResolver(fs).SlotsForDay(context.Background(), "prov-1", sunday, 30)
	if err != nil {
		t.Fatalf("closed day must not error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("closed day must yield no slots, got %d", len(slots))
	}
}

func TestSlotsForDay_BlockedDateIsEmpty(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		avail: model.ProviderAvailability{
			Provider:     model.Provider{ID: "prov-1"},
			Hours:        weekdaySchedule(map[int][2]int{1: {9 * 60, 17 * 60}}),
			BlockedDates: map[string]struct{}{"2026-03-02": {}},
		},
	}

	slots, err := NewResolver(fs).SlotsForDay(context.Background(), "prov-1", monday, 30)
	if err != nil {
		t.Fatalf("blocked date must not error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("blocked date must yield no slots, got %d", len(slots))
	}
}

func TestSlotsForDay_InvalidDuration(t *testing.T) {
	fs := &fakeStore{}
	if _, err := NewResolver(fs).SlotsForDay(context.Background(), "prov-1", time.Now(), 0); err == nil {
		t.Fatal("zero duration must be rejected")
	}
	if _, err := NewResolver(fs).SlotsForDay(context.Background(), "prov-1", time.Now(), -15); err == nil {
		t.Fatal("negative duration must be rejected")
	}
}

func TestSlotsForDay_StoreErrorPropagates(t *testing.T) {
	wantErr := errors.New("boom")
	fs := &fakeStore{availErr: wantErr}
	if _, err := NewResolver(fs).SlotsForDay(context.Background(), "prov-1", time.Now(), 30); !errors.Is(err, wantErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}
