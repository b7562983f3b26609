package acquisition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-signals/trends"
)

var testStart = time.Date(2019, 1, 6, 0, 0, 0, 0, time.UTC)

func rising(keyword string, n int) trends.Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i + 1)
	}
	return trends.WeeklySeries(keyword, testStart, values)
}

type cooldownEvent struct {
	Keyword string
	Kind    CooldownKind
	D       time.Duration
}

// recorder is an Observer that also drives the fake clock through every cooldown.
type recorder struct {
	mu        sync.Mutex
	attempts  map[string][]OutcomeKind
	cooldowns []cooldownEvent
	done      []KeywordResult
	sleeps    chan time.Duration
	onDone    func(KeywordResult)
}

func newRecorder() *recorder {
	return &recorder{attempts: make(map[string][]OutcomeKind), sleeps: make(chan time.Duration)}
}

func (r *recorder) OnAttempt(kw string, _ int, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[kw] = append(r.attempts[kw], o.Kind)
}

func (r *recorder) OnCooldown(kw string, kind CooldownKind, d time.Duration) {
	r.mu.Lock()
	r.cooldowns = append(r.cooldowns, cooldownEvent{kw, kind, d})
	r.mu.Unlock()
	r.sleeps <- d
}

func (r *recorder) OnKeywordDone(res KeywordResult) {
	r.mu.Lock()
	r.done = append(r.done, res)
	r.mu.Unlock()
	if r.onDone != nil {
		r.onDone(res)
	}
}

// run executes Fetch while advancing the fake clock by exactly each announced cooldown.
func run(t *testing.T, ctx context.Context, p trends.Provider, keywords []string) (*Collection, Report, *recorder, time.Duration) {
	t.Helper()
	return runWith(t, ctx, p, keywords, newRecorder())
}

func runWith(t *testing.T, ctx context.Context, p trends.Provider, keywords []string, rec *recorder) (*Collection, Report, *recorder, time.Duration) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	start := clock.Now()

	cfg := DefaultConfig(trends.Window{}, "US")
	engine, err := New(p, cfg, WithClock(clock), WithObserver(rec))
	require.NoError(t, err)

	type out struct {
		c *Collection
		r Report
	}
	done := make(chan out)
	go func() {
		c, r := engine.FetchWithReport(ctx, keywords)
		done <- out{c, r}
	}()

	for {
		select {
		case d := <-rec.sleeps:
			waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
			cancel()
			clock.Advance(d)
		case res := <-done:
			return res.c, res.r, rec, clock.Since(start)
		case <-time.After(10 * time.Second):
			t.Fatal("fetch did not finish")
		}
	}
}

func TestFetchSuccessFailureMix(t *testing.T) {
	p := trends.NewStaticProvider(rising("A", 30), rising("C", 30))
	p.FailFirst("B", 5)

	c, report, rec, elapsed := run(t, context.Background(), p, []string{"A", "B", "C"})

	assert.Equal(t, []string{"A", "C"}, c.Keywords())
	assert.Equal(t, 2, p.Calls("B"))
	assert.Equal(t, []cooldownEvent{
		{"A", CooldownPacing, 10 * time.Second},
		{"B", CooldownBackoff, 60 * time.Second},
		{"B", CooldownBackoff, 60 * time.Second},
	}, rec.cooldowns)
	assert.Equal(t, 130*time.Second, elapsed)

	require.Len(t, report.Keywords, 3)
	assert.Equal(t, StatusRecorded, report.Keywords[0].Status)
	assert.Equal(t, StatusExhausted, report.Keywords[1].Status)
	assert.Equal(t, 2, report.Keywords[1].Attempts)
	assert.NotEmpty(t, report.Keywords[1].LastError)
	assert.Equal(t, StatusRecorded, report.Keywords[2].Status)
}

func TestFetchSucceedingKeywordThenFailingKeyword(t *testing.T) {
	p := trends.NewStaticProvider(rising("A", 30))
	p.FailFirst("B", 2)

	c, _, rec, _ := run(t, context.Background(), p, []string{"A", "B"})

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("B")
	assert.False(t, ok)
	assert.Equal(t, []OutcomeKind{OutcomeFailed, OutcomeFailed}, rec.attempts["B"])
	assert.Len(t, rec.cooldowns, 3)
}

func TestFetchEmptyIsTerminal(t *testing.T) {
	p := trends.NewStaticProvider(rising("A", 30))

	c, report, rec, elapsed := run(t, context.Background(), p, []string{"nothing", "A"})

	assert.Equal(t, 1, p.Calls("nothing"))
	assert.Equal(t, []string{"A"}, c.Keywords())
	assert.Empty(t, rec.cooldowns)
	assert.Zero(t, elapsed)
	assert.Equal(t, StatusEmpty, report.Keywords[0].Status)
}

func TestFetchRetryThenSuccess(t *testing.T) {
	p := trends.NewStaticProvider(rising("A", 30), rising("B", 30))
	p.FailFirst("A", 1)

	c, report, rec, elapsed := run(t, context.Background(), p, []string{"A", "B"})

	assert.Equal(t, []string{"A", "B"}, c.Keywords())
	assert.Equal(t, 2, report.Keywords[0].Attempts)
	assert.Equal(t, []OutcomeKind{OutcomeFailed, OutcomeSuccess}, rec.attempts["A"])
	assert.Equal(t, 70*time.Second, elapsed)
}

func TestFetchNeverContainsEmptySeries(t *testing.T) {
	p := trends.NewStaticProvider(rising("A", 30), trends.Series{Keyword: "hollow"})
	p.FailFirst("gone", 2)

	c, _, _, _ := run(t, context.Background(), p, []string{"A", "hollow", "gone", "missing"})

	for _, s := range c.Series() {
		assert.NotEmpty(t, s.Points, "keyword %s", s.Keyword)
	}
	assert.Equal(t, []string{"A"}, c.Keywords())
}

func TestFetchTotalFailureReturnsEmptyCollection(t *testing.T) {
	p := trends.NewStaticProvider()
	p.FailFirst("A", 2)
	p.FailFirst("B", 2)

	c, report, _, elapsed := run(t, context.Background(), p, []string{"A", "B"})

	require.NotNil(t, c)
	assert.Zero(t, c.Len())
	assert.Equal(t, 2, report.Count(StatusExhausted))
	assert.Equal(t, DefaultConfig(trends.Window{}, "").WorstCaseDuration(2), elapsed)
}

func TestFetchCancellationBetweenKeywords(t *testing.T) {
	p := trends.NewStaticProvider(rising("A", 30), rising("B", 30), rising("C", 30))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := newRecorder()
	rec.onDone = func(res KeywordResult) {
		if res.Keyword == "A" {
			cancel()
		}
	}

	c, report, _, _ := runWith(t, ctx, p, []string{"A", "B", "C"}, rec)

	assert.Equal(t, []string{"A"}, c.Keywords())
	assert.Zero(t, p.Calls("B"))
	assert.Zero(t, p.Calls("C"))
	assert.Equal(t, 2, report.Count(StatusCancelled))
}

func TestFetchDuplicateKeywords(t *testing.T) {
	p := trends.NewStaticProvider(rising("A", 30))

	c, _, _, _ := run(t, context.Background(), p, []string{"A", "A"})

	assert.Equal(t, []string{"A"}, c.Keywords())
	assert.Equal(t, 2, p.Calls("A"))
}

func TestDecide(t *testing.T) {
	cfg := DefaultConfig(trends.Window{}, "US")
	failure := Failed(errors.New("boom"))

	tests := []struct {
		name     string
		outcome  Outcome
		attempt  int
		action   Action
		cooldown time.Duration
	}{
		{"success paces", Success(rising("A", 3)), 1, ActionRecord, 10 * time.Second},
		{"empty is terminal", Empty(), 1, ActionSkip, 0},
		{"first failure retries", failure, 1, ActionRetry, 60 * time.Second},
		{"last failure omits", failure, 2, ActionOmit, 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := cfg.Decide(tt.outcome, tt.attempt)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.cooldown, d.Cooldown)
		})
	}
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeFailed, outcomeOf("a", trends.Series{}, errors.New("x")).Kind)
	assert.Equal(t, OutcomeEmpty, outcomeOf("a", trends.Series{}, nil).Kind)

	o := outcomeOf("a", rising("other", 2), nil)
	assert.Equal(t, OutcomeSuccess, o.Kind)
	assert.Equal(t, "a", o.Series.Keyword)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig(trends.Window{}, "US")
	require.NoError(t, cfg.Validate())

	cfg.MaxAttempts = 0
	assert.Error(t, cfg.Validate())

	_, err := New(trends.NewStaticProvider(), cfg)
	assert.Error(t, err)

	_, err = New(nil, DefaultConfig(trends.Window{}, "US"))
	assert.Error(t, err)
}

func TestWorstCaseDuration(t *testing.T) {
	cfg := DefaultConfig(trends.Window{}, "US")
	assert.Equal(t, 7*2*time.Minute, cfg.WorstCaseDuration(7))
}

func TestCollectionAdd(t *testing.T) {
	c := NewCollection()
	assert.True(t, c.Add(rising("A", 2)))
	assert.False(t, c.Add(rising("A", 3)))
	assert.False(t, c.Add(trends.Series{Keyword: "B"}))
	assert.False(t, c.Add(trends.Series{Points: rising("x", 1).Points}))

	s, ok := c.Get("A")
	require.True(t, ok)
	assert.Len(t, s.Points, 2)
}
