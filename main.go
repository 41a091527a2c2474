package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aotearoait/tidewatch/pkg/boat"
	"github.com/aotearoait/tidewatch/pkg/data"
	"github.com/aotearoait/tidewatch/pkg/events"
	"github.com/aotearoait/tidewatch/pkg/handlers"
	"github.com/aotearoait/tidewatch/pkg/metrics"
	"github.com/aotearoait/tidewatch/pkg/niwa"
	"github.com/aotearoait/tidewatch/pkg/sensor"
	"github.com/aotearoait/tidewatch/pkg/sunset"
	"github.com/aotearoait/tidewatch/pkg/tide"
)

type Config struct {
	Port   string `default:"8080"`
	Prefix string `default:"/"`

	APIKey    string  `envconfig:"NIWA_API_KEY" required:"true"`
	Latitude  float64 `required:"true"`
	Longitude float64 `required:"true"`
	Name      string  `default:"NIWA Tides"`

	ForecastDays int           `default:"7" split_words:"true"`
	ScanInterval time.Duration `default:"5m" split_words:"true"`

	LaunchLead time.Duration `default:"2h" split_words:"true"`
	LaunchLag  time.Duration `default:"2h" split_words:"true"`

	KafkaBrokers []string `split_words:"true"`
	KafkaTopic   string   `default:"tidewatch.events" split_words:"true"`
}

// observedSource counts fetch outcomes for scraping.
type observedSource struct {
	src niwa.Source
}

func (o observedSource) Predictions(q *niwa.PredictionQuery) (niwa.Predictions, error) {
	preds, err := o.src.Predictions(q)
	if err != nil {
		metrics.ObserveFetch("error")
		return nil, err
	}
	metrics.ObserveFetch("ok")
	return preds, nil
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	var env Config
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal(err.Error())
	}

	query := niwa.PredictionQuery{
		Lat:    env.Latitude,
		Long:   env.Longitude,
		Days:   env.ForecastDays,
		APIKey: env.APIKey,
	}
	if err := query.Validate(); err != nil {
		log.Fatalf("Refusing to start: %v", err)
	}

	db, err := data.PostgresFromEnv()
	if err != nil {
		log.Fatalf("Failed to set up postgres: %v", err)
	}

	// A couple of fetches per bracket is plenty; the limiter only guards
	// against a misconfigured scan interval.
	source := niwa.NewRateLimited(observedSource{niwa.Client{}}, 1.0/30, 3)
	engine := tide.NewEngine(source, query)
	tideSensor := sensor.New(env.Name, engine,
		boat.Options{Before: env.LaunchLead, After: env.LaunchLag},
		sunset.PlaceAt(env.Latitude, env.Longitude))

	var pub *events.Publisher
	if len(env.KafkaBrokers) > 0 {
		pub = events.New(env.KafkaBrokers, env.KafkaTopic)
		defer pub.Close()
	}

	if err := tideSensor.Update(time.Now()); err != nil {
		log.Printf("Unable to retrieve tide data: %v", err)
	} else {
		log.Printf("Tide sensor %q set up at %.5f,%.5f", env.Name, env.Latitude, env.Longitude)
	}
	go poll(tideSensor, pub, env.ScanInterval)

	r := mux.NewRouter().StrictSlash(true)
	s := r.PathPrefix(env.Prefix).Subrouter()
	handlers.Register(s, tideSensor, db)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Handler:      metrics.LatencyHandler(r),
		Addr:         "0.0.0.0:" + env.Port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	log.Printf("Listening and serving on %s%s", srv.Addr, env.Prefix)
	log.Fatal(srv.ListenAndServe())
}

// poll re-evaluates the sensor on the scan interval and publishes
// transitions.
func poll(s *sensor.Tide, pub *events.Publisher, interval time.Duration) {
	var lastPhase tide.Phase
	var lastSafe bool
	for {
		time.Sleep(interval)
		now := time.Now()
		if err := s.Update(now); err != nil {
			log.Printf("Evaluation failed: %v", err)
			continue
		}

		st, ok := s.Snapshot()
		if !ok {
			continue
		}
		if st.Phase != lastPhase {
			publish(pub, events.Event{Kind: "phase", Value: string(st.Phase), At: now})
			lastPhase = st.Phase
		}
		if safe := s.Window().SafeToLaunch; safe != lastSafe {
			value := "closed"
			if safe {
				value = "open"
			}
			publish(pub, events.Event{Kind: "window", Value: value, At: now})
			lastSafe = safe
		}
	}
}

func publish(pub *events.Publisher, e events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, e); err != nil {
		log.Printf("Failed to publish %s event: %v", e.Kind, err)
	}
}
