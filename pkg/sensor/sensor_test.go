package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/aotearoait/tidewatch/pkg/boat"
	"github.com/aotearoait/tidewatch/pkg/niwa"
	"github.com/aotearoait/tidewatch/pkg/sunset"
	"github.com/aotearoait/tidewatch/pkg/tide"
)

var t0 = time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	preds niwa.Predictions
	err   error
}

func (f *fakeSource) Predictions(q *niwa.PredictionQuery) (niwa.Predictions, error) {
	return f.preds, f.err
}

// tidal builds an alternating series of extrema spaced 6 hours apart.
func tidal(heights ...float64) niwa.Predictions {
	preds := make(niwa.Predictions, len(heights))
	for i, h := range heights {
		preds[i] = niwa.Prediction{
			Time:   niwa.Time(t0.Add(time.Duration(i) * 6 * time.Hour)),
			Height: niwa.Height(h),
		}
	}
	return preds
}

func newTide(src niwa.Source) *Tide {
	engine := tide.NewEngine(src, niwa.PredictionQuery{Days: 7})
	return New("NIWA Tides", engine, boat.Options{}, sunset.Auckland)
}

func TestAttributes(t *testing.T) {
	s := newTide(&fakeSource{preds: tidal(0.4, 2.8, 0.5, 2.7)})
	now := t0.Add(3 * time.Hour)
	if err := s.Update(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !s.Available() {
		t.Fatalf("sensor unavailable after successful update")
	}
	if state, ok := s.State(); !ok || state != 1.6 {
		t.Errorf("state = %v (%t), want 1.6 halfway up the cosine", state, ok)
	}

	attrs := s.Attributes()
	want := map[string]interface{}{
		AttrAttribution:       Attribution,
		AttrLastTideLevel:     0.4,
		AttrLastTideTime:      "2024-03-12T00:00:00Z",
		AttrLastTideHours:     3.0,
		AttrNextTideLevel:     2.8,
		AttrNextTideTime:      "2024-03-12T06:00:00Z",
		AttrNextTideHours:     3.0,
		AttrNextHighTideLevel: 2.8,
		AttrNextHighTideTime:  "2024-03-12T06:00:00Z",
		AttrNextHighTideHours: 3.0,
		AttrNextLowTideLevel:  0.5,
		AttrNextLowTideTime:   "2024-03-12T12:00:00Z",
		AttrNextLowTideHours:  9.0,
		AttrTidePercent:       50,
		AttrTidePhase:         "increasing",
		// Next low at 12h gives a 10h-14h window; at 3h we are ahead of it.
		AttrSafeWindowStart: "2024-03-12T10:00:00Z",
		AttrSafeWindowEnd:   "2024-03-12T14:00:00Z",
		AttrNextSafeWindow:  "2024-03-12T10:00:00Z",
	}
	for key, wantVal := range want {
		if diff := cmp.Diff(wantVal, attrs[key]); diff != "" {
			t.Errorf("attribute %s (-want,+got):\n%s", key, diff)
		}
	}
	if _, ok := attrs[AttrMustReturnBy]; ok {
		t.Errorf("must_return_by present outside a window")
	}
	if up, ok := attrs[AttrUpcomingTides].(niwa.Predictions); !ok || len(up) != 3 {
		t.Errorf("upcoming_tides = %v, want the 3 future extrema", attrs[AttrUpcomingTides])
	}
	if _, ok := attrs[AttrWindowDaylight]; !ok {
		t.Errorf("window daylight annotation missing")
	}
}

func TestUnavailable(t *testing.T) {
	src := &fakeSource{err: errors.New("offline")}
	s := newTide(src)

	if err := s.Update(t0); err == nil {
		t.Errorf("expected error from failing source")
	}
	if s.Available() {
		t.Errorf("sensor available after fetch failure")
	}
	if _, ok := s.State(); ok {
		t.Errorf("state readable after fetch failure")
	}

	// Attributes degrade to the attribution-only minimal set.
	attrs := s.Attributes()
	if len(attrs) != 1 || attrs[AttrAttribution] != Attribution {
		t.Errorf("attributes = %v, want attribution only", attrs)
	}
}

func TestLaunchAndReturnSensors(t *testing.T) {
	s := newTide(&fakeSource{preds: tidal(2.8, 0.5, 2.7)})
	launch, ret := NewLaunch(s), NewReturn(s)

	// The next low at 6h opens a 4h-8h window; 5h is inside it.
	now := t0.Add(5 * time.Hour)
	if err := s.Update(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !launch.On() {
		t.Errorf("launch sensor off inside the safe window")
	}
	attrs := launch.Attributes()
	if attrs["window_start"] != "2024-03-12T04:00:00Z" || attrs["window_end"] != "2024-03-12T08:00:00Z" {
		t.Errorf("launch window attributes = %v", attrs)
	}

	if ret.On(now) {
		t.Errorf("return sensor on with three hours remaining")
	}
	almostUp := t0.Add(7*time.Hour + 45*time.Minute)
	if !ret.On(almostUp) {
		t.Errorf("return sensor off with fifteen minutes remaining")
	}
	retAttrs := ret.Attributes(almostUp)
	if retAttrs["must_return_by"] != "2024-03-12T08:00:00Z" {
		t.Errorf("return attributes = %v", retAttrs)
	}
	if retAttrs["hours_remaining"] != 0.3 {
		t.Errorf("hours_remaining = %v, want 0.3", retAttrs["hours_remaining"])
	}
}
