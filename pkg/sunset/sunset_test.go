package sunset

import (
	"testing"
	"time"
)

func TestGetSunEvents(t *testing.T) {
	start := time.Date(2024, time.March, 12, 0, 0, 0, 0, Auckland.Location)
	dur := 5 * 24 * time.Hour

	events := GetSunEvents(start, dur, Auckland)

	if want := 10; len(events) != want {
		t.Fatalf("got %d events, want %d", len(events), want)
	}
	for i, e := range events {
		wantRise := i%2 == 0
		if (e.Event == Sunrise) != wantRise {
			t.Errorf("event %d = %s, want sunrise=%t", i, e.String(), wantRise)
		}
	}
	for i := 1; i < len(events); i += 2 {
		if !events[i].Time.After(events[i-1].Time) {
			t.Errorf("sunset %d not after its sunrise: %s vs %s",
				i, events[i].String(), events[i-1].String())
		}
	}
}

func TestDaylight(t *testing.T) {
	rise := time.Date(2024, time.March, 12, 7, 0, 0, 0, time.UTC)
	set := rise.Add(12 * time.Hour)
	events := SunEvents{
		{rise, Sunrise},
		{set, Sunset},
		{rise.Add(24 * time.Hour), Sunrise},
		{set.Add(24 * time.Hour), Sunset},
	}

	table := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"before first sunrise", rise.Add(-time.Hour), false},
		{"midday", rise.Add(6 * time.Hour), true},
		{"after sunset", set.Add(time.Hour), false},
		{"next morning", rise.Add(25 * time.Hour), true},
	}

	for _, tc := range table {
		t.Run(tc.name, func(t *testing.T) {
			if got := events.Daylight(tc.t); got != tc.want {
				t.Errorf("Daylight(%v) = %t, want %t", tc.t, got, tc.want)
			}
		})
	}
}
