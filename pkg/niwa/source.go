package niwa

import (
	"fmt"

	"golang.org/x/time/rate"
)

// Source is anything that can produce tide predictions for a query.
type Source interface {
	Predictions(q *PredictionQuery) (Predictions, error)
}

// Client is a Source backed by the live NIWA API.
type Client struct{}

func (Client) Predictions(q *PredictionQuery) (Predictions, error) {
	return GetPredictions(q)
}

// RateLimited wraps a Source with a client-side rate limit so that a
// misconfigured poll interval cannot hammer the API.
type RateLimited struct {
	source  Source
	limiter *rate.Limiter
}

// NewRateLimited allows rps requests per second (may be fractional) with the
// given burst size.
func NewRateLimited(source Source, rps float64, burst int) *RateLimited {
	return &RateLimited{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimited) Predictions(q *PredictionQuery) (Predictions, error) {
	if !r.limiter.Allow() {
		return nil, fmt.Errorf("niwa fetch rate limit exceeded")
	}
	return r.source.Predictions(q)
}
