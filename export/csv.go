// Package export writes analysis results as CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"trend-signals/analysis"
)

const dateLayout = "2006-01-02"

// Default file names inside the export directory
const (
	MatrixFile   = "style_signals_final_report.csv"
	VerdictsFile = "style_signals_verdicts.csv"
)

// WriteMatrix writes one row per retained timestamp and one column per keyword
func WriteMatrix(w io.Writer, m analysis.AlignedMatrix) error {
	writer := csv.NewWriter(w)

	header := append([]string{"date"}, m.Columns...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range m.Rows() {
		record := make([]string, 0, len(row.Values)+1)
		record = append(record, row.Date.Format(dateLayout))
		for _, v := range row.Values {
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteVerdicts writes one row per classified pair
func WriteVerdicts(w io.Writer, verdicts []analysis.PairVerdict) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"title", "keyword_a", "keyword_b", "coefficient", "verdict"}); err != nil {
		return err
	}
	for _, v := range verdicts {
		if err := writer.Write([]string{
			v.Label(),
			v.A,
			v.B,
			fmt.Sprintf("%.4f", v.Coefficient),
			string(v.Verdict),
		}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFiles writes both CSV files into dir and returns their paths
func WriteFiles(dir string, result *analysis.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	matrixPath := filepath.Join(dir, MatrixFile)
	if err := writeFile(matrixPath, func(w io.Writer) error { return WriteMatrix(w, result.Matrix) }); err != nil {
		return nil, err
	}

	verdictsPath := filepath.Join(dir, VerdictsFile)
	if err := writeFile(verdictsPath, func(w io.Writer) error { return WriteVerdicts(w, result.Verdicts) }); err != nil {
		return nil, err
	}

	return []string{matrixPath, verdictsPath}, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
