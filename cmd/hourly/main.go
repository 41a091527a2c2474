package main

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/aotearoait/tidewatch/pkg/niwa"
	"github.com/aotearoait/tidewatch/pkg/tide"
)

// Prints the interpolated tide height over the forecast window at a fixed
// step. Useful for eyeballing the curve against the published extrema.
func main() {
	var env struct {
		APIKey    string  `envconfig:"NIWA_API_KEY" required:"true"`
		Latitude  float64 `required:"true"`
		Longitude float64 `required:"true"`
	}
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal(err.Error())
	}

	step := 2 * time.Hour

	query := niwa.PredictionQuery{
		Start:  time.Now(),
		Days:   7,
		Lat:    env.Latitude,
		Long:   env.Longitude,
		APIKey: env.APIKey,
	}

	preds, err := niwa.GetPredictions(&query)
	if err != nil {
		fmt.Printf("failed to fetch from NIWA: %v\n", err)
		return
	}
	if len(preds) < 2 {
		fmt.Println("not enough predictions to interpolate")
		return
	}

	tstart := preds[0].T()
	tend := preds[len(preds)-1].T()
	for t := tstart; t.Before(tend); t = t.Add(step) {
		st, err := tide.Compute(preds, t)
		if err != nil {
			continue
		}
		fmt.Printf("%s %.2f %s\n", t.Format(time.RFC3339), st.Height, st.Phase)
	}
}
