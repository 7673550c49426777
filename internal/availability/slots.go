package availability

import (
	"math/rand/v2"
	"time"

	"github.com/careslot/careslot/internal/model"
)

// MaxSlotsReturned caps how many open slots one availability query surfaces.
// Returning a small random sample rather than the full day nudges patients
// toward booking promptly.
const MaxSlotsReturned = 8

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not count.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// CandidateSlots walks [dayStart, dayEnd) in steps of duration and returns
// every candidate [cursor, cursor+duration) slot that fits inside the window
// and intersects none of the busy intervals.
//
// All times are expected to be in the same location (timezone).
func CandidateSlots(dayStart, dayEnd time.Time, duration time.Duration, busy []Interval) []model.TimeSlot {
	if duration <= 0 || !dayEnd.After(dayStart) {
		return nil
	}

	var slots []model.TimeSlot
	for t := dayStart; !t.Add(duration).After(dayEnd); t = t.Add(duration) {
		end := t.Add(duration)
		if overlapsAny(t, end, busy) {
			continue
		}
		slots = append(slots, model.TimeSlot{StartTime: t, EndTime: end, IsAvailable: true})
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// Sample returns a uniformly shuffled random sample of at most max slots.
// Fewer than max slots come back whole, in random order. The shuffle is
// intentionally non-deterministic across identical calls.
func Sample(slots []model.TimeSlot, max int) []model.TimeSlot {
	if max <= 0 || len(slots) == 0 {
		return nil
	}
	shuffled := make([]model.TimeSlot, len(slots))
	copy(shuffled, slots)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if len(shuffled) > max {
		shuffled = shuffled[:max]
	}
	return shuffled
}
