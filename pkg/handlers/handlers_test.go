package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/aotearoait/tidewatch/pkg/boat"
	"github.com/aotearoait/tidewatch/pkg/niwa"
	"github.com/aotearoait/tidewatch/pkg/sensor"
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

// router builds a registered router over a sensor that evaluated at the given
// instant against the given source.
func router(t *testing.T, src niwa.Source, now time.Time, wantErr bool) *mux.Router {
	t.Helper()
	engine := tide.NewEngine(src, niwa.PredictionQuery{Days: 7})
	s := sensor.New("NIWA Tides", engine, boat.Options{}, sunset.Auckland)
	if err := s.Update(now); (err != nil) != wantErr {
		t.Fatalf("Update() = %v, wantErr %t", err, wantErr)
	}

	r := mux.NewRouter().StrictSlash(true)
	Register(r, s, nil)
	return r
}

func get(t *testing.T, r *mux.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServeTide(t *testing.T) {
	r := router(t, &fakeSource{preds: tidal(0.4, 2.8, 0.5)}, t0.Add(3*time.Hour), false)

	rec := get(t, r, "/api/v1/tide")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	var resp tideResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("undecodable body: %v", err)
	}
	if !resp.Available {
		t.Errorf("available = false, want true")
	}
	if resp.State == nil || *resp.State != 1.6 {
		t.Errorf("state = %v, want 1.6", resp.State)
	}
	if resp.Unit != meters {
		t.Errorf("unit = %q, want %q", resp.Unit, meters)
	}
	if resp.Attributes[sensor.AttrTidePhase] != "increasing" {
		t.Errorf("phase attribute = %v, want increasing", resp.Attributes[sensor.AttrTidePhase])
	}

	// Second request is served from cache with identical content.
	rec2 := get(t, r, "/api/v1/tide")
	if rec2.Body.String() != body {
		t.Errorf("cached response differs from the original")
	}
}

func TestServeTideUnavailable(t *testing.T) {
	r := router(t, &fakeSource{err: errors.New("offline")}, t0, true)

	rec := get(t, r, "/api/v1/tide")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp tideResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("undecodable body: %v", err)
	}
	if resp.Available || resp.State != nil {
		t.Errorf("got available=%t state=%v, want unavailable null state", resp.Available, resp.State)
	}
	if len(resp.Attributes) != 1 {
		t.Errorf("attributes = %v, want attribution only", resp.Attributes)
	}
}

func TestServeLaunchInsideWindow(t *testing.T) {
	// Next low at 6h opens a 4h-8h window; 5h is inside it.
	r := router(t, &fakeSource{preds: tidal(2.8, 0.5, 2.7)}, t0.Add(5*time.Hour), false)

	rec := get(t, r, "/api/v1/launch")
	var resp binaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("undecodable body: %v", err)
	}
	if !resp.On {
		t.Errorf("launch sensor off inside the safe window")
	}
	if resp.Attributes["window_start"] != "2024-03-12T04:00:00Z" {
		t.Errorf("window_start = %v", resp.Attributes["window_start"])
	}
}

func TestServeReturn(t *testing.T) {
	r := router(t, &fakeSource{preds: tidal(2.8, 0.5, 2.7)}, t0.Add(5*time.Hour), false)

	rec := get(t, r, "/api/v1/return")
	var resp binaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("undecodable body: %v", err)
	}
	if !resp.Available {
		t.Errorf("return sensor unavailable")
	}
	if resp.Attributes["must_return_by"] != "2024-03-12T08:00:00Z" {
		t.Errorf("must_return_by = %v", resp.Attributes["must_return_by"])
	}
}

func TestHealth(t *testing.T) {
	up := router(t, &fakeSource{preds: tidal(0.4, 2.8)}, t0.Add(time.Hour), false)
	if rec := get(t, up, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d, want 200", rec.Code)
	}

	down := router(t, &fakeSource{err: errors.New("offline")}, t0, true)
	if rec := get(t, down, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d, want 503", rec.Code)
	}
}

func TestConfigDisabledWithoutDB(t *testing.T) {
	r := router(t, &fakeSource{preds: tidal(0.4, 2.8)}, t0.Add(time.Hour), false)
	if rec := get(t, r, "/config"); rec.Code != http.StatusNotFound {
		t.Errorf("config status = %d, want 404 when persistence is off", rec.Code)
	}
}
