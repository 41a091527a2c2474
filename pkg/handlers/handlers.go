package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/aotearoait/tidewatch/pkg/boat"
	"github.com/aotearoait/tidewatch/pkg/cache"
	"github.com/aotearoait/tidewatch/pkg/niwa"
	"github.com/aotearoait/tidewatch/pkg/sensor"
	"github.com/aotearoait/tidewatch/pkg/visualize"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const (
	// Responses are cached for less than the scan interval so clients never
	// see a state older than one evaluation cycle.
	cacheTTL = time.Minute

	meters = "m"
)

// Register mounts the sensor API onto r. db may be nil, which disables the
// per-user margin configuration.
func Register(r *mux.Router, s *sensor.Tide, db *gorm.DB) {
	launch := sensor.NewLaunch(s)
	ret := sensor.NewReturn(s)

	r.Handle("/", makeIndex(s))
	r.Handle("/api/v1/tide", makeServeTide(s))
	r.Handle("/api/v1/launch", makeServeLaunch(s, launch, db))
	r.Handle("/api/v1/return", makeServeReturn(ret))
	r.Handle("/graph", makeGraph(s))
	r.HandleFunc("/healthz", makeHealth(s))
	r.Handle("/config", makeConfigMargins(db))
}

type tideResponse struct {
	Name       string                 `json:"name"`
	Available  bool                   `json:"available"`
	State      *float64               `json:"state"`
	Unit       string                 `json:"unit_of_measurement"`
	Attributes map[string]interface{} `json:"attributes"`
}

func makeServeTide(s *sensor.Tide) http.Handler {
	timeCache := cache.NewTimed(cacheTTL)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL)
		key := fmt.Sprintf("%s %s", r.Method, r.URL)

		// serve cached version from memory if possible
		if cached, ok := timeCache.Get(key); ok {
			w.Header().Add("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}

		resp := tideResponse{
			Name:       s.Name(),
			Available:  s.Available(),
			Unit:       meters,
			Attributes: s.Attributes(),
		}
		if state, ok := s.State(); ok {
			resp.State = &state
		} else {
			// Whatever is cached is as unavailable as we are.
			timeCache.Purge()
		}

		// duplicate the response onto a buffer for the cache
		var toCache bytes.Buffer
		mw := io.MultiWriter(w, &toCache)

		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(mw).Encode(resp); err != nil {
			log.Printf("Failed to encode tide response: %+v", err)
			return
		}

		if resp.Available {
			// save the result asynchronously as the cache may block
			go func() {
				timeCache.Set(key, toCache.Bytes())
			}()
		}
	})
}

type binaryResponse struct {
	Name       string                 `json:"name"`
	Available  bool                   `json:"available"`
	On         bool                   `json:"on"`
	Attributes map[string]interface{} `json:"attributes"`
}

func makeServeLaunch(s *sensor.Tide, launch *sensor.Launch, db *gorm.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL)
		resp := binaryResponse{
			Name:       launch.Name(),
			Available:  launch.Available(),
			On:         launch.On(),
			Attributes: launch.Attributes(),
		}

		// A session with stored margins gets its own window derived from
		// the same state snapshot.
		if opts, ok := optionsFromSession(r, db); ok {
			if st, held := s.Snapshot(); held {
				custom := boat.Compute(boat.Window{}, st.NextLow, st.Upcoming, time.Now(), opts)
				resp.On = custom.SafeToLaunch
				resp.Attributes = windowAttributes(custom)
			}
		}

		writeJSON(w, resp)
	})
}

func makeServeReturn(ret *sensor.Return) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL)
		now := time.Now()
		writeJSON(w, binaryResponse{
			Name:       ret.Name(),
			Available:  ret.Available(),
			On:         ret.On(now),
			Attributes: ret.Attributes(now),
		})
	})
}

func makeGraph(s *sensor.Tide) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL)
		st, ok := s.Snapshot()
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "no tide data")
			return
		}

		// The last extremum anchors the curve left of the current instant.
		preds := append(niwa.Predictions{st.Last}, st.Upcoming...)
		img := visualize.NewTidal(preds, s.Window())
		img.SetDate(time.Now())

		w.Header().Add("Content-Type", "image/svg+xml")
		if _, err := img.Encode(w); err != nil {
			log.Printf("Failed to render tide graph: %v", err)
		}
	})
}

func makeHealth(s *sensor.Tide) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Available() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "no tide data")
			return
		}
		fmt.Fprintln(w, "ok")
	}
}

func makeIndex(s *sensor.Tide) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL)
		w.Header().Add("Content-Type", "text/plain")
		state, ok := s.State()
		if !ok {
			fmt.Fprintf(w, "%s: unavailable\n", s.Name())
			return
		}
		fmt.Fprintf(w, "%s: %.2fm\n", s.Name(), state)
		fmt.Fprintf(w, "window: %s\n", s.Window())
	})
}

func windowAttributes(w boat.Window) map[string]interface{} {
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

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %+v", err)
	}
}
