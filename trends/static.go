package trends

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StaticProvider serves pre-built series from memory. Keywords listed in Failures fail
// that many times before succeeding; unknown keywords return an empty series.
type StaticProvider struct {
	mu       sync.Mutex
	series   map[string]Series
	failures map[string]int
	calls    map[string]int
}

// NewStaticProvider creates a provider backed by the given series
func NewStaticProvider(series ...Series) *StaticProvider {
	p := &StaticProvider{
		series:   make(map[string]Series),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
	for _, s := range series {
		p.series[s.Keyword] = s
	}
	return p
}

// FailFirst makes the next n requests for keyword fail with a rate-limit error.
func (p *StaticProvider) FailFirst(keyword string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[keyword] = n
}

// Calls returns how many requests were made for keyword
func (p *StaticProvider) Calls(keyword string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[keyword]
}

// InterestOverTime implements Provider
func (p *StaticProvider) InterestOverTime(_ context.Context, q Query) (Series, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls[q.Keyword]++
	if p.failures[q.Keyword] > 0 {
		p.failures[q.Keyword]--
		return Series{}, &ProviderError{Keyword: q.Keyword, StatusCode: 429, RateLimited: true, Err: fmt.Errorf("too many requests")}
	}

	s, ok := p.series[q.Keyword]
	if !ok {
		return Series{Keyword: q.Keyword}, nil
	}
	points := make([]Point, 0, len(s.Points))
	for _, pt := range s.Points {
		if !q.Window.End.IsZero() && (pt.Date.Before(q.Window.Start) || pt.Date.After(q.Window.End)) {
			continue
		}
		points = append(points, pt)
	}
	return Series{Keyword: q.Keyword, Points: points}, nil
}

// WeeklySeries builds a series with one point per week starting at start.
func WeeklySeries(keyword string, start time.Time, values []float64) Series {
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Date: start.AddDate(0, 0, 7*i), Value: v}
	}
	return Series{Keyword: keyword, Points: points}
}
