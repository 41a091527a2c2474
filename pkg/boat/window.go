// Package boat derives safe boat launch and return windows from tide
// predictions. Launching is considered safe within a fixed margin around low
// tide.
package boat

import (
	"fmt"
	"time"

	"github.com/aotearoait/tidewatch/pkg/niwa"
)

const (
	DefaultBefore = 2 * time.Hour
	DefaultAfter  = 2 * time.Hour

	// returnWarning is how close to the deadline the return signal trips.
	returnWarning = 30 * time.Minute
)

// Options sets the safe margin around low tide. Zero durations fall back to
// the two-hour defaults.
type Options struct {
	Before time.Duration
	After  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Before == 0 {
		o.Before = DefaultBefore
	}
	if o.After == 0 {
		o.After = DefaultAfter
	}
	return o
}

// Window is the launch/return plan derived from the next low tide. Zero
// times mean the field is absent.
type Window struct {
	SafeToLaunch bool
	Start        time.Time
	End          time.Time
	NextStart    time.Time
	MustReturnBy time.Time
}

// Compute derives the window at instant now. nextLow may be nil, in which
// case prev is returned untouched: callers keep whatever plan they had until
// a low tide is known again.
//
// While inside a window the start of the following window is not computed;
// it only becomes visible once the current window elapses.
func Compute(prev Window, nextLow *niwa.Prediction, upcoming niwa.Predictions, now time.Time, opts Options) Window {
	if nextLow == nil {
		return prev
	}
	opts = opts.withDefaults()

	start := nextLow.T().Add(-opts.Before)
	end := nextLow.T().Add(opts.After)

	if !now.Before(start) && !now.After(end) {
		return Window{
			SafeToLaunch: true,
			Start:        start,
			End:          end,
			MustReturnBy: end,
		}
	}
	if now.Before(start) {
		return Window{
			Start:     start,
			End:       end,
			NextStart: start,
		}
	}

	// The window has elapsed but the engine still points at the same low
	// tide. Find the next low in the upcoming list: the first entry lower
	// than its predecessor with its time still ahead. A run of equal
	// heights never matches; that quirk is kept for compatibility with the
	// published behavior.
	for i := 1; i < len(upcoming); i++ {
		if upcoming[i].Height < upcoming[i-1].Height && upcoming[i].T().After(now) {
			low := upcoming[i].T()
			next := low.Add(-opts.Before)
			return Window{
				Start:     next,
				End:       low.Add(opts.After),
				NextStart: next,
			}
		}
	}
	return Window{}
}

// MustReturnSoon reports whether the return deadline is less than half an
// hour away (or already behind us).
func (w Window) MustReturnSoon(now time.Time) bool {
	if w.MustReturnBy.IsZero() {
		return false
	}
	return w.MustReturnBy.Sub(now) < returnWarning
}

func (w Window) String() string {
	if w.Start.IsZero() {
		return "no window"
	}
	return fmt.Sprintf("%s to %s (safe: %t)",
		w.Start.Format(time.RFC822), w.End.Format(time.RFC822), w.SafeToLaunch)
}
