package niwa

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	NIWA_URL = "https://api.niwa.co.nz/tides/data"
	DATE_FMT = "2006-01-02"

	apiKeyHeader = "x-apikey"
	fetchTimeout = 10 * time.Second
)

// PredictionQuery is used to query tide data at a coordinate for a forward
// window of days; see GetPredictions.
type PredictionQuery struct {
	Start  time.Time
	Days   int
	Lat    float64
	Long   float64
	APIKey string
}

var httpClient = &http.Client{Timeout: fetchTimeout}

// GetPredictions fetches the tide extrema described by q. Any non-200
// response or undecodable body is an error; callers treat errors as a fetch
// failure, never a crash.
func GetPredictions(q *PredictionQuery) (Predictions, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodGet, q.url().String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, q.APIKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("niwa responded %s", resp.Status)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding niwa response: %w", err)
	}

	return result.Values, nil
}

// Validate gates coordinates before any network I/O. NIWA serves tides only
// for the New Zealand region, so longitude must sit in [165,180] or
// [-180,-175] after rounding to the API's five decimal places.
func (q *PredictionQuery) Validate() error {
	lat, long := round5(q.Lat), round5(q.Long)
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	if !((long >= 165 && long <= 180) || (long >= -180 && long <= -175)) {
		return fmt.Errorf("longitude %v outside the NIWA tide region", long)
	}
	return nil
}

func (q *PredictionQuery) url() *url.URL {
	addr, err := url.Parse(NIWA_URL)
	if err != nil {
		panic(err) // NIWA_URL is a constant
	}
	addr.RawQuery = q.build().Encode()
	return addr
}

func (q *PredictionQuery) build() url.Values {
	vals := make(url.Values)
	vals.Add("lat", formatCoord(q.Lat))
	vals.Add("long", formatCoord(q.Long))
	vals.Add("numberOfDays", strconv.Itoa(q.Days))
	vals.Add("startDate", q.Start.Format(DATE_FMT))
	return vals
}

func formatCoord(x float64) string {
	return strconv.FormatFloat(round5(x), 'f', -1, 64)
}

func round5(x float64) float64 {
	return math.Round(x*1e5) / 1e5
}
