// Package report renders analysis results for people and serializes run summaries.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"trend-signals/acquisition"
	"trend-signals/analysis"
)

// Summary is the serializable outcome of one run, published to Redis and the API.
type Summary struct {
	RunID      string                      `json:"run_id"`
	Status     string                      `json:"status"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt time.Time                   `json:"finished_at"`
	Window     string                      `json:"window"`
	Geo        string                      `json:"geo"`
	Keywords   []acquisition.KeywordResult `json:"keywords"`
	Rows       int                         `json:"rows"`
	Flat       []string                    `json:"flat,omitempty"`
	Verdicts   []analysis.PairVerdict      `json:"verdicts,omitempty"`
	Skipped    []analysis.Pair             `json:"skipped,omitempty"`
	Commentary string                      `json:"commentary,omitempty"`
	Message    string                      `json:"message,omitempty"`
}

// Apply copies the analysis output into the summary
func (s *Summary) Apply(result *analysis.Result) {
	if result == nil {
		return
	}
	s.Rows = len(result.Matrix.Dates)
	s.Verdicts = result.Verdicts
	s.Skipped = result.Skipped
	s.Flat = nil
	for j, flat := range result.Matrix.Flat {
		if flat {
			s.Flat = append(s.Flat, result.Matrix.Columns[j])
		}
	}
}

const rule = "============================================================"

// Print writes the pair verdict report
func Print(w io.Writer, result *analysis.Result) {
	fmt.Fprintf(w, "\n%s\n      SIGNAL REPORT: PAIR INTERPRETATION\n%s\n", rule, rule)

	if len(result.Verdicts) == 0 {
		fmt.Fprintln(w, "No requested pair had both signals available.")
	}
	for _, v := range result.Verdicts {
		fmt.Fprintf(w, "▶ %s:\n", v.Label())
		fmt.Fprintf(w, "   %s | r = %.2f\n\n", describe(v.Verdict), v.Coefficient)
	}

	if len(result.Skipped) > 0 {
		names := make([]string, len(result.Skipped))
		for i, p := range result.Skipped {
			names[i] = p.Label()
		}
		fmt.Fprintf(w, "Skipped (missing signal): %s\n", strings.Join(names, ", "))
	}
}

// PrintInsufficient writes the "nothing to analyze" outcome
func PrintInsufficient(w io.Writer, reason error) {
	fmt.Fprintf(w, "Could not build the report: %v. Check the connection or try fewer keywords.\n", reason)
}

func describe(v analysis.Verdict) string {
	label := strings.ToUpper(string(v))
	if hint := v.Hint(); hint != "" {
		return fmt.Sprintf("%s (%s)", label, hint)
	}
	return label
}
