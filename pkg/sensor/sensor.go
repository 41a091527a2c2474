// Package sensor adapts the tide engine and window calculator into the
// queryable state-and-attributes shape a host automation platform expects:
// one primary scalar, a bundle of named attributes, and two derived binary
// signals.
package sensor

import (
	"sync"
	"time"

	"github.com/aotearoait/tidewatch/pkg/boat"
	"github.com/aotearoait/tidewatch/pkg/metrics"
	"github.com/aotearoait/tidewatch/pkg/sunset"
	"github.com/aotearoait/tidewatch/pkg/tide"
	"github.com/aotearoait/tidewatch/pkg/timetricks"
)

const Attribution = "Data provided by NIWA"

// Attribute keys, matching what downstream automations already consume.
const (
	AttrAttribution       = "attribution"
	AttrLastTideLevel     = "last_tide_level"
	AttrLastTideTime      = "last_tide_time"
	AttrLastTideHours     = "last_tide_hours"
	AttrNextTideLevel     = "next_tide_level"
	AttrNextTideTime      = "next_tide_time"
	AttrNextTideHours     = "next_tide_hours"
	AttrNextHighTideLevel = "next_high_tide_level"
	AttrNextHighTideTime  = "next_high_tide_time"
	AttrNextHighTideHours = "next_high_tide_hours"
	AttrNextLowTideLevel  = "next_low_tide_level"
	AttrNextLowTideTime   = "next_low_tide_time"
	AttrNextLowTideHours  = "next_low_tide_hours"
	AttrTidePercent       = "tide_percent"
	AttrTidePhase         = "tide_phase"
	AttrUpcomingTides     = "upcoming_tides"
	AttrSafeWindowStart   = "safe_window_start"
	AttrSafeWindowEnd     = "safe_window_end"
	AttrNextSafeWindow    = "next_safe_window"
	AttrMustReturnBy      = "must_return_by"
	AttrWindowDaylight    = "window_in_daylight"
)

// Tide is the primary sensor. Its state is the interpolated tide height and
// its attributes carry the full derived bundle.
type Tide struct {
	name   string
	engine *tide.Engine
	opts   boat.Options
	place  sunset.Place

	mu     sync.Mutex
	window boat.Window
	sun    sunset.SunEvents
	at     time.Time // instant of the last evaluation
}

func New(name string, engine *tide.Engine, opts boat.Options, place sunset.Place) *Tide {
	return &Tide{name: name, engine: engine, opts: opts, place: place}
}

func (s *Tide) Name() string { return s.name }

// Update runs one evaluation cycle at instant now. Failures leave the sensor
// unavailable rather than propagating; the returned error is for logging.
func (s *Tide) Update(now time.Time) error {
	err := s.engine.Update(now)
	st, ok := s.engine.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.at = now
	if !ok {
		return err
	}

	// The window depends on state that may have just changed, so it is
	// rederived every cycle. An absent next low leaves the prior plan.
	s.window = boat.Compute(s.window, st.NextLow, st.Upcoming, now, s.opts)
	s.sun = sunset.GetSunEvents(now.In(s.place.Location), 8*24*time.Hour, s.place)
	metrics.ObserveTide(st.Height, st.Percent)
	return err
}

// Available reports whether a derived state is held.
func (s *Tide) Available() bool {
	_, ok := s.engine.Snapshot()
	return ok
}

// State returns the current tide height in meters. ok is false when the
// sensor is unavailable.
func (s *Tide) State() (float64, bool) {
	st, ok := s.engine.Snapshot()
	return st.Height, ok
}

// Window returns the current launch plan snapshot.
func (s *Tide) Window() boat.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

// Snapshot exposes the engine's derived state for callers that recompute
// windows with their own margins.
func (s *Tide) Snapshot() (tide.State, bool) {
	return s.engine.Snapshot()
}

// Attributes builds the attribute bundle. When the sensor is unavailable
// only the attribution remains, so consumers degrade instead of reading
// stale numbers.
func (s *Tide) Attributes() map[string]interface{} {
	attrs := map[string]interface{}{
		AttrAttribution: Attribution,
	}

	st, ok := s.engine.Snapshot()
	if !ok {
		return attrs
	}

	s.mu.Lock()
	now, window, sun := s.at, s.window, s.sun
	s.mu.Unlock()

	attrs[AttrLastTideLevel] = float64(st.Last.Height)
	attrs[AttrLastTideTime] = st.Last.T().Format(time.RFC3339)
	attrs[AttrLastTideHours] = timetricks.Hours(st.Last.T(), now)
	attrs[AttrNextTideLevel] = float64(st.Next.Height)
	attrs[AttrNextTideTime] = st.Next.T().Format(time.RFC3339)
	attrs[AttrNextTideHours] = timetricks.Hours(now, st.Next.T())
	if st.NextHigh != nil {
		attrs[AttrNextHighTideLevel] = float64(st.NextHigh.Height)
		attrs[AttrNextHighTideTime] = st.NextHigh.T().Format(time.RFC3339)
		attrs[AttrNextHighTideHours] = timetricks.Hours(now, st.NextHigh.T())
	}
	if st.NextLow != nil {
		attrs[AttrNextLowTideLevel] = float64(st.NextLow.Height)
		attrs[AttrNextLowTideTime] = st.NextLow.T().Format(time.RFC3339)
		attrs[AttrNextLowTideHours] = timetricks.Hours(now, st.NextLow.T())
	}
	attrs[AttrTidePercent] = st.Percent
	attrs[AttrTidePhase] = string(st.Phase)
	attrs[AttrUpcomingTides] = st.Upcoming

	if !window.Start.IsZero() {
		attrs[AttrSafeWindowStart] = window.Start.Format(time.RFC3339)
		attrs[AttrSafeWindowEnd] = window.End.Format(time.RFC3339)
		// The window is centered on the low tide whether or not the bracket
		// still points there.
		mid := window.Start.Add(window.End.Sub(window.Start) / 2)
		attrs[AttrWindowDaylight] = sun.Daylight(mid)
	}
	if !window.NextStart.IsZero() {
		attrs[AttrNextSafeWindow] = window.NextStart.Format(time.RFC3339)
	}
	if !window.MustReturnBy.IsZero() {
		attrs[AttrMustReturnBy] = window.MustReturnBy.Format(time.RFC3339)
	}

	return attrs
}

// Launch is the binary sensor that is on while launching is safe.
type Launch struct {
	tide *Tide
}

func NewLaunch(t *Tide) *Launch { return &Launch{tide: t} }

func (b *Launch) Name() string    { return b.tide.name + " Boat Launch" }
func (b *Launch) Available() bool { return b.tide.Available() }

func (b *Launch) On() bool {
	return b.tide.Window().SafeToLaunch
}

func (b *Launch) Attributes() map[string]interface{} {
	w := b.tide.Window()
	attrs := map[string]interface{}{}
	if !w.Start.IsZero() {
		attrs["window_start"] = w.Start.Format(time.RFC3339)
		attrs["window_end"] = w.End.Format(time.RFC3339)
	}
	if !w.NextStart.IsZero() {
		attrs["next_window"] = w.NextStart.Format(time.RFC3339)
	}
	return attrs
}

// Return is the binary sensor that trips when the boat should head back.
type Return struct {
	tide *Tide
}

func NewReturn(t *Tide) *Return { return &Return{tide: t} }

func (b *Return) Name() string    { return b.tide.name + " Boat Return" }
func (b *Return) Available() bool { return b.tide.Available() }

func (b *Return) On(now time.Time) bool {
	return b.tide.Window().MustReturnSoon(now)
}

func (b *Return) Attributes(now time.Time) map[string]interface{} {
	w := b.tide.Window()
	if w.MustReturnBy.IsZero() {
		return map[string]interface{}{}
	}
	return map[string]interface{}{
		"must_return_by":  w.MustReturnBy.Format(time.RFC3339),
		"hours_remaining": timetricks.Hours(now, w.MustReturnBy),
	}
}
