// Package metrics exposes Prometheus instrumentation for acquisition runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"trend-signals/acquisition"
)

// Recorder implements acquisition.Observer on top of Prometheus collectors.
type Recorder struct {
	attempts    *prometheus.CounterVec
	keywords    *prometheus.CounterVec
	cooldown    *prometheus.CounterVec
	runDuration prometheus.Gauge
	runs        *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trends_provider_attempts_total",
			Help: "Provider attempts by outcome.",
		}, []string{"outcome"}),
		keywords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trends_keywords_total",
			Help: "Keywords by final acquisition status.",
		}, []string{"status"}),
		cooldown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trends_cooldown_seconds_total",
			Help: "Seconds spent in cooldown pauses by kind.",
		}, []string{"kind"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trends_last_run_duration_seconds",
			Help: "Wall time of the most recent run.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trends_runs_total",
			Help: "Finished runs by status.",
		}, []string{"status"}),
	}

	reg.MustRegister(r.attempts, r.keywords, r.cooldown, r.runDuration, r.runs)
	return r
}

// OnAttempt implements acquisition.Observer
func (r *Recorder) OnAttempt(_ string, _ int, o acquisition.Outcome) {
	r.attempts.WithLabelValues(o.Kind.String()).Inc()
}

// OnCooldown implements acquisition.Observer
func (r *Recorder) OnCooldown(_ string, kind acquisition.CooldownKind, d time.Duration) {
	r.cooldown.WithLabelValues(string(kind)).Add(d.Seconds())
}

// OnKeywordDone implements acquisition.Observer
func (r *Recorder) OnKeywordDone(res acquisition.KeywordResult) {
	r.keywords.WithLabelValues(string(res.Status)).Inc()
}

// ObserveRun records a finished run
func (r *Recorder) ObserveRun(status string, d time.Duration) {
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.Set(d.Seconds())
}
