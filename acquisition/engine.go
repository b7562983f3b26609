// Package acquisition fetches one interest-over-time series per keyword from an unreliable,
// rate-limited provider.
//
// Requests are strictly sequential and paced: a short cooldown follows every recorded
// series and a long backoff follows every failed attempt. The pacing is what keeps the
// provider from banning the caller, so keywords are never fetched concurrently.
//
// Worst case wall time is keywords × MaxAttempts × FailureCooldown plus request latency
// (see Config.WorstCaseDuration).
package acquisition

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"trend-signals/trends"
)

// Defaults taken from the pacing discipline the provider tolerates.
const (
	DefaultMaxAttempts     = 2
	DefaultSuccessCooldown = 10 * time.Second
	DefaultFailureCooldown = 60 * time.Second
)

// Config holds the request filters and the retry/cooldown constants.
type Config struct {
	Window   trends.Window
	Geo      string
	Language string
	TZOffset int

	MaxAttempts     int
	SuccessCooldown time.Duration
	FailureCooldown time.Duration
	RequestTimeout  time.Duration // per attempt, 0 disables
}

// DefaultConfig returns a config with the default retry and cooldown constants
func DefaultConfig(window trends.Window, geo string) Config {
	return Config{
		Window:          window,
		Geo:             geo,
		MaxAttempts:     DefaultMaxAttempts,
		SuccessCooldown: DefaultSuccessCooldown,
		FailureCooldown: DefaultFailureCooldown,
	}
}

// Validate checks the retry constants
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.SuccessCooldown < 0 || c.FailureCooldown < 0 {
		return fmt.Errorf("cooldowns must not be negative")
	}
	return nil
}

// WorstCaseDuration bounds the total cooldown time for n keywords that all fail.
func (c Config) WorstCaseDuration(n int) time.Duration {
	return time.Duration(n*c.MaxAttempts) * c.FailureCooldown
}

// KeywordStatus is the final state of a keyword after acquisition
type KeywordStatus string

const (
	StatusRecorded  KeywordStatus = "recorded"
	StatusEmpty     KeywordStatus = "empty"
	StatusExhausted KeywordStatus = "exhausted"
	StatusCancelled KeywordStatus = "cancelled"
)

// KeywordResult describes what happened to one keyword
type KeywordResult struct {
	Keyword   string        `json:"keyword"`
	Status    KeywordStatus `json:"status"`
	Attempts  int           `json:"attempts"`
	Points    int           `json:"points"`
	LastError string        `json:"last_error,omitempty"`
}

// Report is the per-keyword log of a Fetch call, in input order.
type Report struct {
	Keywords []KeywordResult `json:"keywords"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
}

// Count returns how many keywords ended with status
func (r Report) Count(status KeywordStatus) int {
	n := 0
	for _, k := range r.Keywords {
		if k.Status == status {
			n++
		}
	}
	return n
}

// Observer receives acquisition progress. Calls are made synchronously from Fetch.
type Observer interface {
	OnAttempt(keyword string, attempt int, outcome Outcome)
	OnCooldown(keyword string, kind CooldownKind, d time.Duration)
	OnKeywordDone(result KeywordResult)
}

// Engine is the acquisition engine
type Engine struct {
	provider  trends.Provider
	cfg       Config
	clock     clockwork.Clock
	observers []Observer
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the real clock, mainly for tests
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithObserver registers an observer
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// New creates a new acquisition engine
func New(provider trends.Provider, cfg Config, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		provider: provider,
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Fetch acquires a series for every keyword. It never fails: keywords without data or
// with exhausted retries are simply absent from the collection.
func (e *Engine) Fetch(ctx context.Context, keywords []string) *Collection {
	c, _ := e.FetchWithReport(ctx, keywords)
	return c
}

// FetchWithReport is Fetch plus a per-keyword report.
func (e *Engine) FetchWithReport(ctx context.Context, keywords []string) (*Collection, Report) {
	collection := NewCollection()
	report := Report{Started: e.clock.Now()}

	log.Printf("🚀 Fetching %d signals (cooldowns: %v pacing, %v backoff)",
		len(keywords), e.cfg.SuccessCooldown, e.cfg.FailureCooldown)

	for i, kw := range keywords {
		if ctx.Err() != nil {
			result := KeywordResult{Keyword: kw, Status: StatusCancelled}
			report.Keywords = append(report.Keywords, result)
			e.keywordDone(result)
			continue
		}

		last := i == len(keywords)-1
		result, series := e.fetchKeyword(ctx, kw, last)
		if result.Status == StatusRecorded && !collection.Add(series) {
			log.Printf("⚠️  Duplicate keyword %q ignored", kw)
		}
		report.Keywords = append(report.Keywords, result)
		e.keywordDone(result)
	}

	report.Finished = e.clock.Now()
	log.Printf("📦 Acquisition finished: %d recorded, %d empty, %d exhausted, %d cancelled",
		report.Count(StatusRecorded), report.Count(StatusEmpty),
		report.Count(StatusExhausted), report.Count(StatusCancelled))

	return collection, report
}

// fetchKeyword runs the retry loop for a single keyword. Every failed attempt is followed
// by the backoff; the pacing pause only separates a recorded keyword from the next one.
func (e *Engine) fetchKeyword(ctx context.Context, kw string, lastKeyword bool) (KeywordResult, trends.Series) {
	result := KeywordResult{Keyword: kw}

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt
		log.Printf("📥 Fetching data for %q (attempt %d/%d)...", kw, attempt, e.cfg.MaxAttempts)

		outcome := e.attempt(ctx, kw)
		for _, o := range e.observers {
			o.OnAttempt(kw, attempt, outcome)
		}

		decision := e.cfg.Decide(outcome, attempt)
		switch decision.Action {
		case ActionRecord:
			result.Status = StatusRecorded
			result.Points = len(outcome.Series.Points)
			log.Printf("✅ Got %d points for %q", result.Points, kw)
			if !lastKeyword {
				e.cooldown(kw, decision)
			}
			return result, outcome.Series

		case ActionSkip:
			result.Status = StatusEmpty
			log.Printf("⚠️  Not enough data for %q, skipping", kw)
			return result, trends.Series{}

		case ActionRetry, ActionOmit:
			result.LastError = outcome.Err.Error()
			log.Printf("❌ Error/block on %q: %v", kw, outcome.Err)

			if ctx.Err() != nil {
				result.Status = StatusCancelled
				return result, trends.Series{}
			}
			if decision.Action == ActionOmit {
				result.Status = StatusExhausted
				log.Printf("🚫 Giving up on %q after %d attempts", kw, attempt)
				e.cooldown(kw, decision)
				return result, trends.Series{}
			}
			e.cooldown(kw, decision)
		}
	}

	// MaxAttempts >= 1 is validated, so the loop always returns.
	result.Status = StatusExhausted
	return result, trends.Series{}
}

func (e *Engine) attempt(ctx context.Context, kw string) Outcome {
	reqCtx := ctx
	if e.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
	}

	series, err := e.provider.InterestOverTime(reqCtx, trends.Query{
		Keyword:  kw,
		Window:   e.cfg.Window,
		Geo:      e.cfg.Geo,
		Language: e.cfg.Language,
		TZOffset: e.cfg.TZOffset,
	})
	return outcomeOf(kw, series, err)
}

// cooldown blocks for the decided duration. Cancellation does not interrupt it.
func (e *Engine) cooldown(kw string, d Decision) {
	if d.Cooldown <= 0 {
		return
	}
	if d.Kind == CooldownBackoff {
		log.Printf("⏳ Waiting %v to let the rate limit cool down...", d.Cooldown)
	}
	for _, o := range e.observers {
		o.OnCooldown(kw, d.Kind, d.Cooldown)
	}
	e.clock.Sleep(d.Cooldown)
}

func (e *Engine) keywordDone(r KeywordResult) {
	for _, o := range e.observers {
		o.OnKeywordDone(r)
	}
}
