package analysis

import (
	"math"
	"time"
)

// FlatValue is what every cell of a constant column is normalized to.
const FlatValue = 0.0

// AlignedMatrix is the smoothed, normalized table: one row per retained date and one
// column per surviving keyword, every value in [0,100].
type AlignedMatrix struct {
	Dates   []time.Time `json:"dates"`
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // [row][column]
	Flat    []bool      `json:"flat"`   // column was constant after smoothing
}

// Row is one timestamp of the aligned matrix, in column order.
type Row struct {
	Date   time.Time `json:"date"`
	Values []float64 `json:"values"`
}

// Rows returns the matrix as one Row per retained timestamp
func (m AlignedMatrix) Rows() []Row {
	rows := make([]Row, len(m.Dates))
	for i, d := range m.Dates {
		rows[i] = Row{Date: d, Values: m.Values[i]}
	}
	return rows
}

// ColumnIndex returns the position of keyword, or -1
func (m AlignedMatrix) ColumnIndex(keyword string) int {
	for i, c := range m.Columns {
		if c == keyword {
			return i
		}
	}
	return -1
}

// Column returns the values of one keyword in date order
func (m AlignedMatrix) Column(keyword string) ([]float64, bool) {
	j := m.ColumnIndex(keyword)
	if j < 0 {
		return nil, false
	}
	col := make([]float64, len(m.Values))
	for i, row := range m.Values {
		col[i] = row[j]
	}
	return col, true
}

// normalize rescales every column linearly so its minimum is 0 and its maximum is 100.
// A constant column has no range; all its cells become FlatValue and it is flagged.
func normalize(f frame) AlignedMatrix {
	m := AlignedMatrix{
		Dates:   f.dates,
		Columns: f.columns,
		Values:  make([][]float64, len(f.cells)),
		Flat:    make([]bool, len(f.columns)),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, len(f.columns))
	}

	for j := range f.columns {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, row := range f.cells {
			lo = math.Min(lo, row[j])
			hi = math.Max(hi, row[j])
		}

		span := hi - lo
		if span == 0 || math.IsNaN(span) {
			m.Flat[j] = true
			for i := range m.Values {
				m.Values[i][j] = FlatValue
			}
			continue
		}
		for i, row := range f.cells {
			m.Values[i][j] = (row[j] - lo) / span * 100
		}
	}
	return m
}
