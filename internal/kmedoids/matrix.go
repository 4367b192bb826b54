package kmedoids

import (
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Matrix is an immutable square matrix of pairwise distances together with
// the name index of the entities it covers. Symmetry and a zero diagonal are
// assumed, not checked.
type Matrix struct {
	names []string
	index map[string]int
	dist  *mat.Dense
}

// FromTable builds a Matrix from a labeled table: the first row holds the
// entity names (after the corner cell) and every following row holds a label
// cell followed by that entity's distances, in header order. Row labels are
// not cross-checked against the header.
func FromTable(rows [][]string) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) < 2 {
		return nil, ErrEmptyMatrix
	}
	names := make([]string, len(rows[0])-1)
	for i, col := range rows[0][1:] {
		names[i] = strings.TrimSpace(col)
	}
	n := len(names)

	body := rows[1:]
	if len(body) != n {
		return nil, &ShapeError{Row: -1, Want: n, Got: len(body)}
	}

	data := make([]float64, 0, n*n)
	for r, row := range body {
		if len(row) != n+1 {
			return nil, &ShapeError{Row: r + 1, Want: n, Got: max(len(row)-1, 0)}
		}
		for c, cell := range row[1:] {
			raw := strings.TrimSpace(cell)
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &ParseError{Row: r + 1, Col: c + 1, Cell: cell, cause: err}
			}
			data = append(data, v)
		}
	}
	return build(names, data)
}

// NewMatrix builds a Matrix from names and a row-major distance table.
func NewMatrix(names []string, dist [][]float64) (*Matrix, error) {
	n := len(names)
	if n == 0 {
		return nil, ErrEmptyMatrix
	}
	if len(dist) != n {
		return nil, &ShapeError{Row: -1, Want: n, Got: len(dist)}
	}
	data := make([]float64, 0, n*n)
	for r, row := range dist {
		if len(row) != n {
			return nil, &ShapeError{Row: r, Want: n, Got: len(row)}
		}
		data = append(data, row...)
	}
	return build(append([]string(nil), names...), data)
}

func build(names []string, data []float64) (*Matrix, error) {
	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, ok := index[name]; ok {
			return nil, &DuplicateEntityError{Name: name}
		}
		index[name] = i
	}
	n := len(names)
	return &Matrix{
		names: names,
		index: index,
		dist:  mat.NewDense(n, n, data),
	}, nil
}

// Len returns the number of entities.
func (m *Matrix) Len() int {
	return len(m.names)
}

// At returns the distance from entity i to entity j.
func (m *Matrix) At(i, j int) float64 {
	return m.dist.At(i, j)
}

// Name returns the name of entity i.
func (m *Matrix) Name(i int) string {
	return m.names[i]
}

// Names returns a copy of the entity names in index order.
func (m *Matrix) Names() []string {
	return append([]string(nil), m.names...)
}

// Index returns the row/column index of name.
func (m *Matrix) Index(name string) (int, error) {
	i, ok := m.index[name]
	if !ok {
		return 0, &UnknownEntityError{Name: name}
	}
	return i, nil
}

// Indices resolves several names at once, failing on the first miss.
func (m *Matrix) Indices(names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		idx, err := m.Index(name)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// Distance looks up the distance between two named entities.
func (m *Matrix) Distance(a, b string) (float64, error) {
	i, err := m.Index(a)
	if err != nil {
		return 0, err
	}
	j, err := m.Index(b)
	if err != nil {
		return 0, err
	}
	return m.At(i, j), nil
}
