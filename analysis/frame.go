package analysis

import (
	"math"
	"sort"
	"time"

	"trend-signals/trends"
)

// frame is a date-indexed table where NaN marks a missing cell.
type frame struct {
	dates   []time.Time
	columns []string
	cells   [][]float64 // [row][column]
}

func (f frame) rows() int {
	return len(f.dates)
}

// align outer-joins the series on their dates. Columns keep the input order and rows are
// sorted ascending by date. A duplicated date within one series keeps the last value.
func align(series []trends.Series, dropPartial bool) frame {
	index := make(map[int64]int)
	var dates []time.Time
	for _, s := range series {
		for _, p := range s.Points {
			if dropPartial && p.Partial {
				continue
			}
			key := p.Date.Unix()
			if _, ok := index[key]; !ok {
				index[key] = len(dates)
				dates = append(dates, p.Date)
			}
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	for i, d := range dates {
		index[d.Unix()] = i
	}

	f := frame{
		dates:   dates,
		columns: make([]string, len(series)),
		cells:   make([][]float64, len(dates)),
	}
	for i := range f.cells {
		row := make([]float64, len(series))
		for j := range row {
			row[j] = math.NaN()
		}
		f.cells[i] = row
	}

	for j, s := range series {
		f.columns[j] = s.Keyword
		for _, p := range s.Points {
			if dropPartial && p.Partial {
				continue
			}
			f.cells[index[p.Date.Unix()]][j] = p.Value
		}
	}
	return f
}

// smooth applies a trailing moving average of the given window to every column and then
// drops every row that has a missing cell. A cell is only defined when all window cells
// ending at it are present, so the leading edge never leaks partial-window means.
func smooth(f frame, window int) frame {
	if window < 1 {
		window = 1
	}

	out := frame{columns: f.columns}
	for i := range f.dates {
		row := make([]float64, len(f.columns))
		complete := true
		for j := range f.columns {
			row[j] = trailingMean(f.cells, i, j, window)
			if math.IsNaN(row[j]) {
				complete = false
			}
		}
		if complete {
			out.dates = append(out.dates, f.dates[i])
			out.cells = append(out.cells, row)
		}
	}
	return out
}

func trailingMean(cells [][]float64, row, col, window int) float64 {
	if row+1 < window {
		return math.NaN()
	}
	sum := 0.0
	for k := row - window + 1; k <= row; k++ {
		v := cells[k][col]
		if math.IsNaN(v) {
			return math.NaN()
		}
		sum += v
	}
	return sum / float64(window)
}
