package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trend-signals/analysis"
)

func sampleResult() *analysis.Result {
	return &analysis.Result{
		Matrix: analysis.AlignedMatrix{
			Dates:   []time.Time{time.Now(), time.Now()},
			Columns: []string{"ozempic", "body positivity", "flat"},
			Values:  [][]float64{{0, 100, 0}, {100, 0, 0}},
			Flat:    []bool{false, false, true},
		},
		Verdicts: []analysis.PairVerdict{
			{Pair: analysis.Pair{A: "ozempic", B: "body positivity", Title: "Ozempic vs. Body Positivity"}, Coefficient: -0.84, Verdict: analysis.StrongInverse},
			{Pair: analysis.Pair{A: "ozempic", B: "flat"}, Coefficient: 0, Verdict: analysis.NoCorrelation},
		},
		Skipped: []analysis.Pair{{A: "low rise jeans", B: "pilates aesthetic", Title: "Low Rise vs. Pilates Aesthetic"}},
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, sampleResult())
	out := buf.String()

	assert.Contains(t, out, "▶ Ozempic vs. Body Positivity:")
	assert.Contains(t, out, "STRONG INVERSE CORRELATION (replacement effect) | r = -0.84")
	assert.Contains(t, out, "▶ ozempic vs. flat:")
	assert.Contains(t, out, "NO CLEAR CORRELATION | r = 0.00")
	assert.Contains(t, out, "Skipped (missing signal): Low Rise vs. Pilates Aesthetic")
}

func TestPrintInsufficient(t *testing.T) {
	var buf bytes.Buffer
	PrintInsufficient(&buf, errors.New("insufficient data: 1 signal(s) acquired"))
	assert.True(t, strings.HasPrefix(buf.String(), "Could not build the report: insufficient data"))
}

func TestSummaryApply(t *testing.T) {
	var s Summary
	s.Apply(sampleResult())

	assert.Equal(t, 2, s.Rows)
	assert.Equal(t, []string{"flat"}, s.Flat)
	assert.Len(t, s.Verdicts, 2)
	assert.Len(t, s.Skipped, 1)

	s.Apply(nil)
	assert.Equal(t, 2, s.Rows)
}
