package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/oho/kmedoids-daemon/internal/kmedoids"
)

// ReadTable reads a comma-delimited table. Blank lines are skipped and
// cells are trimmed; row widths are left for the matrix builder to check.
func ReadTable(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read table: %w", err)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// Load reads a labeled distance table and builds the matrix.
func Load(r io.Reader) (*kmedoids.Matrix, error) {
	rows, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	return kmedoids.FromTable(rows)
}

// LoadFile is Load for a file on disk.
func LoadFile(path string) (*kmedoids.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open distance matrix: %w", err)
	}
	defer f.Close()

	m, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}

// Columns is a numeric table read column-wise, as used for regression input.
type Columns struct {
	Names  []string
	Series [][]float64
}

// ReadColumns reads a table whose first row names the columns and whose
// remaining rows are numeric observations.
func ReadColumns(r io.Reader) (*Columns, error) {
	rows, err := ReadTable(r)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("read columns: need a header and at least one row, got %d rows", len(rows))
	}

	cols := &Columns{Names: rows[0], Series: make([][]float64, len(rows[0]))}
	for i, row := range rows[1:] {
		if len(row) != len(cols.Names) {
			return nil, fmt.Errorf("read columns: row %d has %d cells, expected %d", i+1, len(row), len(cols.Names))
		}
		for j, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("read columns: could not parse %q at row %d, column %d: %w", cell, i+1, j, err)
			}
			cols.Series[j] = append(cols.Series[j], v)
		}
	}
	return cols, nil
}

// ReadColumnsFile is ReadColumns for a file on disk.
func ReadColumnsFile(path string) (*Columns, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	return ReadColumns(f)
}
