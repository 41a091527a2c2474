package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "request_latency",
			Subsystem: "tidewatch",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.2, 0.4, 0.8, 1.0, 2.0, 4.0, 8.0, 16.0, 32.0},
		},
		[]string{"verb", "path", "code"},
	)

	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "niwa_fetch_total",
			Subsystem: "tidewatch",
			Help:      "Prediction fetch attempts by result.",
		},
		[]string{"result"},
	)

	tideHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:      "tide_height_meters",
			Subsystem: "tidewatch",
			Help:      "Interpolated tide height at the last evaluation.",
		},
	)

	tidePercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:      "tide_percent",
			Subsystem: "tidewatch",
			Help:      "Proximity to high tide (0-100) at the last evaluation.",
		},
	)

	userRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "user_requests",
			Subsystem: "tidewatch",
			Help:      "Requests to session-aware endpoints.",
		},
		[]string{"known"},
	)
)

func init() {
	prometheus.MustRegister(
		requestLatency,
		fetchTotal,
		tideHeight,
		tidePercent,
		userRequests,
	)
}

func ObserveRequestLatency(verb, path, code string, latency float64) {
	requestLatency.With(prometheus.Labels{
		"code": code,
		"verb": verb,
		"path": path,
	}).Observe(latency)
}

// ObserveFetch records a prediction fetch outcome ("ok" or "error").
func ObserveFetch(result string) {
	fetchTotal.With(prometheus.Labels{"result": result}).Inc()
}

// ObserveTide records the derived tide state for scraping.
func ObserveTide(height float64, percent int) {
	tideHeight.Set(height)
	tidePercent.Set(float64(percent))
}

// ObserveUserRequest counts a session-aware request; id is the session's
// user ID value, possibly nil.
func ObserveUserRequest(id interface{}) {
	known := "false"
	if id != nil {
		known = "true"
	}
	userRequests.With(prometheus.Labels{"known": known}).Inc()
}

func LatencyHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.Now()
		verb := r.Method
		path := ""
		if r.URL != nil {
			path = r.URL.Path
		}

		// Defer metric observing. Any panics in next are reported as 500 errors
		// and then re-thrown.
		defer func() {
			if err := recover(); err != nil {
				ObserveRequestLatency(verb, path, "500", time.Now().Sub(t).Seconds())
				panic(err)
			}
			code := getStatusCode(w)
			ObserveRequestLatency(verb, path, code, time.Now().Sub(t).Seconds())
		}()

		next.ServeHTTP(w, r)
	})
}

func getStatusCode(w http.ResponseWriter) string {
	statusFields, ok := w.Header()["Status-Code"]
	if !ok {
		// Unset, will be set to 200 by stdlib.
		return "200"
	}
	if len(statusFields) < 1 {
		// Not normal behavior.
		return "0"
	}
	return statusFields[0]
}
