package tide

import (
	"errors"
	"math"
	"time"

	"github.com/aotearoait/tidewatch/pkg/niwa"
)

const (
	// MaxUpcoming caps the forward list of extrema exposed to callers.
	MaxUpcoming = 14

	lowPhaseThresh  = 5
	highPhaseThresh = 95
)

// ErrNoBracket reports that the reference instant is not inside the
// prediction span, so no current height can be interpolated.
var ErrNoBracket = errors.New("no bracketing extrema for reference instant")

// Phase describes the direction of the tide relative to high tide.
type Phase string

const (
	PhaseLow        Phase = "low"
	PhaseHigh       Phase = "high"
	PhaseIncreasing Phase = "increasing"
	PhaseDecreasing Phase = "decreasing"
)

// State is a snapshot of derived tide state at a reference instant. It is a
// pure function of (prediction set, instant) and is replaced wholesale each
// evaluation; nothing mutates it in place.
type State struct {
	// Height is the interpolated tide height in meters, two decimals.
	Height float64
	// Percent measures proximity to high tide on [0,100], regardless of
	// which way the tide is moving.
	Percent int
	Phase   Phase

	Last     niwa.Prediction
	Next     niwa.Prediction
	NextHigh *niwa.Prediction
	NextLow  *niwa.Prediction

	// Upcoming holds the extrema strictly after the reference instant, in
	// original order, truncated to MaxUpcoming.
	Upcoming niwa.Predictions
}

// Compute derives the tide state from preds at instant now. The tide height
// between two extrema follows a half-cosine ease rather than a straight
// line, matching the physical tide curve.
func Compute(preds niwa.Predictions, now time.Time) (State, error) {
	b, err := bracket(preds, now)
	if err != nil {
		return State{}, err
	}

	span := b.next.T().Sub(b.last.T())
	if span <= 0 {
		return State{}, ErrNoBracket
	}
	ratio := float64(now.Sub(b.last.T())) / float64(span)
	progress := (1 - math.Cos(math.Pi*ratio)) / 2

	low, high := float64(b.last.Height), float64(b.next.Height)
	height := low + (high-low)*progress

	toHigh := progress
	if b.last.Height > b.next.Height {
		toHigh = 1 - progress
	}

	st := State{
		Height:   round2(height),
		Percent:  int(math.Round(toHigh * 100)),
		Last:     *b.last,
		Next:     *b.next,
		NextHigh: b.nextHigh,
		NextLow:  b.nextLow,
		Upcoming: upcoming(preds, now),
	}
	switch {
	case st.Percent < lowPhaseThresh:
		st.Phase = PhaseLow
	case st.Percent > highPhaseThresh:
		st.Phase = PhaseHigh
	case b.last.Height < b.next.Height:
		st.Phase = PhaseIncreasing
	default:
		st.Phase = PhaseDecreasing
	}
	return st, nil
}

// brackets holds the accumulators of the forward scan: the extremum pair
// around the reference instant and the next high/low past it.
type brackets struct {
	last, next, nextHigh, nextLow *niwa.Prediction
}

// bracket folds over the ordered extrema once. Extrema at or before now
// overwrite last; the first one after now becomes next and is classified
// high or low against last; at most two further entries fill whichever of
// nextHigh/nextLow is still missing.
func bracket(preds niwa.Predictions, now time.Time) (brackets, error) {
	var b brackets
	past := 0 // entries consumed past next
	for i := range preds {
		p := &preds[i]
		if b.next == nil {
			if !p.T().After(now) {
				b.last = p
				continue
			}
			b.next = p
			if b.last != nil {
				if p.Height > b.last.Height {
					b.nextHigh = p
				} else {
					b.nextLow = p
				}
			}
			continue
		}
		if b.nextHigh == nil {
			b.nextHigh = p
		} else if b.nextLow == nil {
			b.nextLow = p
		}
		past++
		if past == 2 || (b.nextHigh != nil && b.nextLow != nil) {
			break
		}
	}
	if b.last == nil || b.next == nil {
		return b, ErrNoBracket
	}
	return b, nil
}

// upcoming lists extrema strictly after now, in order, at most MaxUpcoming,
// heights rounded the way they are published.
func upcoming(preds niwa.Predictions, now time.Time) niwa.Predictions {
	var future niwa.Predictions
	for _, p := range preds {
		if !p.T().After(now) {
			continue
		}
		p.Height = niwa.Height(round2(float64(p.Height)))
		future = append(future, p)
		if len(future) == MaxUpcoming {
			break
		}
	}
	return future
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
