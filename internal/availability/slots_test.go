package availability

import (
	"testing"
	"time"

	"github.com/careslot/careslot/internal/model"
)

func TestOverlaps_HalfOpen(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	a1, a2 := day.Add(9*time.Hour), day.Add(10*time.Hour)

	if !Overlaps(a1, a2, day.Add(9*time.Hour+30*time.Minute), day.Add(10*time.Hour+30*time.Minute)) {
		t.Fatal("partial overlap must intersect")
	}
	// Adjacent intervals share only an endpoint.
	if Overlaps(a1, a2, a2, day.Add(11*time.Hour)) {
		t.Fatal("back-to-back intervals must not intersect")
	}
	if Overlaps(a1, a2, day.Add(8*time.Hour), a1) {
		t.Fatal("interval ending at our start must not intersect")
	}
	if !Overlaps(a1, a2, day.Add(9*time.Hour+15*time.Minute), day.Add(9*time.Hour+45*time.Minute)) {
		t.Fatal("contained interval must intersect")
	}
}

func TestCandidateSlots_FullDay(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	dayStart := day.Add(9 * time.Hour)
	dayEnd := day.Add(17 * time.Hour)

	slots := CandidateSlots(dayStart, dayEnd, 30*time.Minute, nil)
	if len(slots) != 16 {
		t.Fatalf("expected 16 candidates for 8h/30m, got %d", len(slots))
	}
	if !slots[0].StartTime.Equal(dayStart) {
		t.Fatalf("expected first candidate 09:00, got %s", slots[0].StartTime.Format(time.RFC3339))
	}
	last := slots[len(slots)-1]
	if !last.EndTime.Equal(dayEnd) {
		t.Fatalf("expected last candidate to end 17:00, got %s", last.EndTime.Format(time.RFC3339))
	}
}

func TestCandidateSlots_BusyRemovesIntersecting(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	dayStart := day.Add(9 * time.Hour)
	dayEnd := day.Add(17 * time.Hour)

	busy := []Interval{
		{Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)},
	}
	slots := CandidateSlots(dayStart, dayEnd, 30*time.Minute, busy)
	if len(slots) != 15 {
		t.Fatalf("expected 15 candidates with one 30m booking, got %d", len(slots))
	}
	for _, s := range slots {
		if Overlaps(s.StartTime, s.EndTime, busy[0].Start, busy[0].End) {
			t.Fatalf("candidate %s intersects the booked interval", s.StartTime.Format(time.RFC3339))
		}
	}
}

func TestCandidateSlots_PartialTrailingWindowDropped(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	// 09:00-10:15 with 30m steps: 09:00 and 09:30 fit, 10:00 would spill over.
	slots := CandidateSlots(day.Add(9*time.Hour), day.Add(10*time.Hour+15*time.Minute), 30*time.Minute, nil)
	if len(slots) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(slots))
	}
}

func TestCandidateSlots_DegenerateInputs(t *testing.T) {
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if got := CandidateSlots(day, day, 30*time.Minute, nil); got != nil {
		t.Fatalf("empty window must yield nil, got %d", len(got))
	}
	if got := CandidateSlots(day, day.Add(time.Hour), 0, nil); got != nil {
		t.Fatalf("zero duration must yield nil, got %d", len(got))
	}
}

func TestSample_CapsAndPreservesMembership(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	all := CandidateSlots(day.Add(9*time.Hour), day.Add(17*time.Hour), 30*time.Minute, nil)
	byStart := make(map[time.Time]bool, len(all))
	for _, s := range all {
		byStart[s.StartTime] = true
	}

	got := Sample(all, MaxSlotsReturned)
	if len(got) != MaxSlotsReturned {
		t.Fatalf("expected %d sampled slots, got %d", MaxSlotsReturned, len(got))
	}
	seen := make(map[time.Time]bool, len(got))
	for _, s := range got {
		if !byStart[s.StartTime] {
			t.Fatalf("sampled slot %s was not a candidate", s.StartTime.Format(time.RFC3339))
		}
		if seen[s.StartTime] {
			t.Fatalf("sampled slot %s twice", s.StartTime.Format(time.RFC3339))
		}
		seen[s.StartTime] = true
	}
	if len(all) != 16 {
		t.Fatalf("sampling must not mutate the input, got %d candidates", len(all))
	}
}

func TestSample_FewerThanMaxComesBackWhole(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	few := []model.TimeSlot{
		{StartTime: day.Add(9 * time.Hour), EndTime: day.Add(9*time.Hour + 30*time.Minute), IsAvailable: true},
		{StartTime: day.Add(10 * time.Hour), EndTime: day.Add(10*time.Hour + 30*time.Minute), IsAvailable: true},
	}
	got := Sample(few, MaxSlotsReturned)
	if len(got) != 2 {
		t.Fatalf("expected both slots back, got %d", len(got))
	}
	if got := Sample(nil, MaxSlotsReturned); got != nil {
		t.Fatalf("nil input must yield nil, got %d", len(got))
	}
}
