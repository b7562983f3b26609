package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"trend-signals/acquisition"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.OnAttempt("a", 1, acquisition.Failed(errors.New("429")))
	r.OnAttempt("a", 2, acquisition.Failed(errors.New("429")))
	r.OnCooldown("a", acquisition.CooldownBackoff, time.Minute)
	r.OnCooldown("a", acquisition.CooldownBackoff, time.Minute)
	r.OnKeywordDone(acquisition.KeywordResult{Keyword: "a", Status: acquisition.StatusExhausted})
	r.ObserveRun("insufficient_data", 3*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.attempts.WithLabelValues("failed")))
	assert.Equal(t, 120.0, testutil.ToFloat64(r.cooldown.WithLabelValues("backoff")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.keywords.WithLabelValues("exhausted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.runDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("insufficient_data")))
}
