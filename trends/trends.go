// Package trends defines the interest-over-time provider boundary and an HTTP client for a
// Google Trends compatible endpoint.
package trends

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Point is one observation of relative interest.
type Point struct {
	Date    time.Time `json:"date"`
	Value   float64   `json:"value"`
	Partial bool      `json:"partial,omitempty"`
}

// Series is the interest-over-time signal for a single keyword.
type Series struct {
	Keyword string  `json:"keyword"`
	Points  []Point `json:"points"`
}

// Empty reports whether the provider returned no observations.
func (s Series) Empty() bool {
	return len(s.Points) == 0
}

// Window is the fixed analysis date range, inclusive on both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseWindow parses two YYYY-MM-DD dates into a Window
func ParseWindow(start, end string) (Window, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window start %q: %w", start, err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return Window{}, fmt.Errorf("invalid window end %q: %w", end, err)
	}
	if e.Before(s) {
		return Window{}, fmt.Errorf("window end %s is before start %s", end, start)
	}
	return Window{Start: s, End: e}, nil
}

// String renders the window in the "start end" form the Trends timeframe parameter expects.
func (w Window) String() string {
	return w.Start.Format(dateLayout) + " " + w.End.Format(dateLayout)
}

// Query describes a single provider request.
type Query struct {
	Keyword  string
	Window   Window
	Geo      string
	Language string
	TZOffset int // minutes, Trends convention (360 = UTC-6)
}

// Provider returns the interest-over-time series for one keyword. An explicitly empty
// series means the provider answered but has no signal; failures are *ProviderError.
type Provider interface {
	InterestOverTime(ctx context.Context, q Query) (Series, error)
}

// ProviderError covers rate limiting, transport failures and malformed responses.
type ProviderError struct {
	Keyword     string
	StatusCode  int
	RateLimited bool
	Err         error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	switch {
	case e.RateLimited:
		return fmt.Sprintf("provider rate limited request for %q: %v", e.Keyword, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("provider error for %q (status %d): %v", e.Keyword, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("provider error for %q: %v", e.Keyword, e.Err)
	}
}

// Unwrap returns the underlying error
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a rate-limit rejection from the provider.
func IsRateLimited(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.RateLimited
}
