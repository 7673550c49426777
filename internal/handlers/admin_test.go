package handlers

import "testing"

func TestClockConversionRoundTrip(t *testing.T) {
	for _, c := range []struct {
		clock   string
		minutes int
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"13:30", 810},
		{"23:59", 1439},
	} {
		got, err := clockToMinutes(c.clock)
		if err != nil {
			t.Fatalf("%s: %v", c.clock, err)
		}
		if got != c.minutes {
			t.Fatalf("%s: expected %d minutes, got %d", c.clock, c.minutes, got)
		}
		if back := minutesToClock(c.minutes); back != c.clock {
			t.Fatalf("%d: expected %q, got %q", c.minutes, c.clock, back)
		}
	}
}

func TestClockToMinutes_RejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "9am", "25:00", "12:60", "12-30"} {
		if _, err := clockToMinutes(bad); err == nil {
			t.Errorf("%q: expected parse error", bad)
		}
	}
}
