package analysis

import (
	"math"
)

// CorrelationMatrix holds Pearson coefficients between every pair of matrix columns.
// It is symmetric with an exact unit diagonal.
type CorrelationMatrix struct {
	Keywords []string    `json:"keywords"`
	Values   [][]float64 `json:"values"`
}

// Get returns the coefficient for a and b
func (c CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, kw := range c.Keywords {
		if kw == a {
			i = k
		}
		if kw == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return c.Values[i][j], true
}

// correlate computes the Pearson coefficient for every column pair of m.
func correlate(m AlignedMatrix) CorrelationMatrix {
	n := len(m.Columns)
	cols := make([][]float64, n)
	for j, name := range m.Columns {
		cols[j], _ = m.Column(name)
	}

	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1.0
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := pearson(cols[i], cols[j])
			values[i][j] = r
			values[j][i] = r
		}
	}

	return CorrelationMatrix{Keywords: m.Columns, Values: values}
}

// pearson calculates the Pearson correlation coefficient between two equally long
// datasets. A zero-variance input has no defined correlation and yields 0.
func pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0
	}

	meanX, meanY := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	sumXY, sumX2, sumY2 := 0.0, 0.0, 0.0
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sumXY += dx * dy
		sumX2 += dx * dx
		sumY2 += dy * dy
	}

	denominator := math.Sqrt(sumX2 * sumY2)
	if denominator == 0 {
		return 0
	}

	r := sumXY / denominator
	return math.Max(-1, math.Min(1, r))
}
