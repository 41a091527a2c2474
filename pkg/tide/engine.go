package tide

import (
	"fmt"
	"sync"
	"time"

	"github.com/aotearoait/tidewatch/pkg/niwa"
)

// Engine owns a prediction set and recomputes tide state on demand. It
// fetches from its source only when no set is held or the held set's bracket
// has gone stale, so state can be recomputed between fetches without network
// I/O.
type Engine struct {
	mu     sync.Mutex
	source niwa.Source
	query  niwa.PredictionQuery

	preds niwa.Predictions
	state State
	ok    bool
}

// NewEngine builds an engine for the coordinate and span described by query.
// The query's Start is overwritten with the evaluation instant on each
// fetch.
func NewEngine(source niwa.Source, query niwa.PredictionQuery) *Engine {
	return &Engine{source: source, query: query}
}

// Update runs one evaluation cycle at instant now: refresh the prediction
// set if needed, then recompute the state snapshot. The whole cycle is one
// atomic unit. A returned error means the state is now unavailable; it is
// for logging, not for control flow.
func (e *Engine) Update(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stale(now) {
		q := e.query
		q.Start = now
		preds, err := e.source.Predictions(&q)
		if err != nil {
			e.preds = nil
			e.state, e.ok = State{}, false
			return fmt.Errorf("fetching predictions: %w", err)
		}
		e.preds = preds
	}

	state, err := Compute(e.preds, now)
	if err != nil {
		e.state, e.ok = State{}, false
		return fmt.Errorf("computing tide state: %w", err)
	}
	e.state, e.ok = state, true
	return nil
}

// stale reports whether a fetch is required: nothing held, the last
// computation failed, or the held bracket's next extremum is no longer in
// the future. Callers hold mu.
func (e *Engine) stale(now time.Time) bool {
	return e.preds == nil || !e.ok || !e.state.Next.T().After(now)
}

// Snapshot returns the last computed state. ok is false while the state is
// unavailable.
func (e *Engine) Snapshot() (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.ok
}
