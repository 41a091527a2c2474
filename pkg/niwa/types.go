package niwa

import (
	"encoding/json"
	"fmt"
	"time"
)

const predTimeFormat = "2006-01-02T15:04:05Z"

// Prediction holds a single tide extremum prediction.
type Prediction struct {
	// Time of the extremum, UTC
	Time Time `json:"time"`
	// Height in meters relative to the local datum
	Height Height `json:"value"`
}

// Verify the custom time type survives both directions of the wire.
var _ json.Unmarshaler = &Time{}
var _ json.Marshaler = Time{}

// Predictions is a time series of Prediction, strictly ascending by time.
type Predictions []Prediction

// Result is the document returned by the NIWA tides endpoint.
type Result struct {
	Values Predictions `json:"values"`
}

type Time time.Time

func (t *Time) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err != nil {
		return fmt.Errorf("prediction time %q not string: %w", buf, err)
	}
	parsed, err := time.Parse(predTimeFormat, s)
	if err != nil {
		return fmt.Errorf("prediction time %q not in fmt %q: %w", s, predTimeFormat, err)
	}
	*t = Time(parsed.UTC())
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(predTimeFormat))
}

type Height float64

// T is shorthand to cast away the wire type.
func (p Prediction) T() time.Time {
	return time.Time(p.Time)
}

func (p Prediction) String() string {
	return fmt.Sprintf("%.2fm at %s",
		float64(p.Height),
		time.Time(p.Time).Format(time.RFC822))
}
