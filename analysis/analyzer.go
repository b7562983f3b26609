// Package analysis aligns acquired signals on a common date index, smooths and rescales
// them to 0-100, and classifies the Pearson correlation of keyword pairs.
package analysis

import (
	"errors"
	"fmt"
	"log"

	"trend-signals/acquisition"
)

// DefaultSmoothingWindow is the trailing moving-average length, in periods.
const DefaultSmoothingWindow = 12

// minColumns is the fewest surviving signals that still allow a correlation.
const minColumns = 2

// ErrInsufficientData means there is nothing to correlate: acquisition produced fewer
// than two signals, or their smoothed histories do not overlap.
var ErrInsufficientData = errors.New("insufficient data")

// Options tunes the pipeline
type Options struct {
	SmoothingWindow int
	DropPartial     bool // ignore points the provider marks as incomplete
}

// DefaultOptions returns the default pipeline options
func DefaultOptions() Options {
	return Options{SmoothingWindow: DefaultSmoothingWindow}
}

// Result is the output of one analysis
type Result struct {
	Matrix       AlignedMatrix     `json:"matrix"`
	Correlations CorrelationMatrix `json:"correlations"`
	Verdicts     []PairVerdict     `json:"verdicts"`
	Skipped      []Pair            `json:"skipped,omitempty"`
}

// Analyze runs align, smooth, normalize, correlate and classify. A nil pairs slice
// classifies every column pair. Pairs naming a missing keyword are skipped.
func Analyze(c *acquisition.Collection, pairs []Pair, opts Options) (*Result, error) {
	if c == nil || c.Len() < minColumns {
		n := 0
		if c != nil {
			n = c.Len()
		}
		return nil, fmt.Errorf("%w: %d signal(s) acquired, need at least %d", ErrInsufficientData, n, minColumns)
	}
	if opts.SmoothingWindow < 1 {
		return nil, fmt.Errorf("smoothing window must be >= 1, got %d", opts.SmoothingWindow)
	}

	raw := align(c.Series(), opts.DropPartial)
	smoothed := smooth(raw, opts.SmoothingWindow)
	if smoothed.rows() == 0 {
		return nil, fmt.Errorf("%w: no complete rows after %d-period smoothing (%d aligned rows)",
			ErrInsufficientData, opts.SmoothingWindow, raw.rows())
	}
	log.Printf("📐 Aligned %d rows, %d remain after %d-period smoothing", raw.rows(), smoothed.rows(), opts.SmoothingWindow)

	matrix := normalize(smoothed)
	for j, flat := range matrix.Flat {
		if flat {
			log.Printf("⚠️  Signal %q is flat after smoothing, normalized to %.0f", matrix.Columns[j], FlatValue)
		}
	}

	result := &Result{
		Matrix:       matrix,
		Correlations: correlate(matrix),
	}

	if pairs == nil {
		pairs = AllPairs(matrix.Columns)
	}
	for _, p := range pairs {
		r, ok := result.Correlations.Get(p.A, p.B)
		if !ok {
			result.Skipped = append(result.Skipped, p)
			continue
		}
		result.Verdicts = append(result.Verdicts, PairVerdict{Pair: p, Coefficient: r, Verdict: Classify(r)})
	}

	return result, nil
}
