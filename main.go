package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"trend-signals/analysis"
	"trend-signals/app"
	"trend-signals/config"
	"trend-signals/trends"
)

// exitInsufficientData is the exit status of a run that had nothing to analyze
const exitInsufficientData = 2

func main() {
	serve := flag.Bool("serve", false, "run the HTTP API and the daily schedule")
	demo := flag.Bool("demo", false, "use synthetic series instead of the live provider")
	flag.Bool("once", true, "run a single acquisition and analysis, then exit (default mode)")
	flag.Parse()

	// Load config from .env file
	cfg := config.LoadFromEnv()

	var provider trends.Provider = trends.NewClient(cfg.Trends.BaseURL, cfg.Trends.RequestTimeout)
	if *demo {
		window, err := trends.ParseWindow(cfg.Trends.WindowStart, cfg.Trends.WindowEnd)
		if err != nil {
			log.Fatal(err)
		}
		provider = demoProvider(cfg.Trends.Keywords, window)
		cfg.Trends.SuccessCooldown = 0
		cfg.Trends.FailureCooldown = 0
		fmt.Println("🧪 Demo mode: synthetic series, no cooldowns")
	}

	application, err := app.New(cfg, provider)
	if err != nil {
		log.Fatal(err)
	}
	if err := application.Connect(); err != nil {
		log.Fatal(err)
	}

	if *serve {
		if err := application.Serve(); err != nil {
			log.Fatal(err)
		}
		return
	}

	_, err = application.RunOnce(context.Background())
	application.Close()
	switch {
	case errors.Is(err, analysis.ErrInsufficientData):
		os.Exit(exitInsufficientData)
	case err != nil:
		log.Fatal(err)
	}
}

// demoProvider builds weekly seasonal series for keywords, with alternating trend
// directions so the demo report shows both sibling and replacement pairs.
func demoProvider(keywords []string, window trends.Window) *trends.StaticProvider {
	weeks := int(window.End.Sub(window.Start).Hours()/(24*7)) + 1
	series := make([]trends.Series, len(keywords))
	for k, kw := range keywords {
		direction := 1.0
		if k%2 == 1 {
			direction = -1.0
		}
		phase := float64(k) * 0.7
		values := make([]float64, weeks)
		for i := range values {
			t := float64(i) / float64(weeks)
			v := 50 + direction*35*(t-0.5) + 10*math.Sin(2*math.Pi*float64(i)/52+phase)
			values[i] = math.Round(math.Max(0, math.Min(100, v)))
		}
		series[k] = trends.WeeklySeries(kw, window.Start, values)
	}
	return trends.NewStaticProvider(series...)
}
