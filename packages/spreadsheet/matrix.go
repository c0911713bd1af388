package spreadsheet

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// Matrix is a grid of optional values. a nil entry is an empty slot. the
// length of row 0 is the nominal column count of the whole matrix; other rows
// may be shorter and are treated as padded with empty slots.
//
// every method is copy-on-write. a Matrix handed out is never mutated, so
// unchanged rows are shared between versions.
type Matrix[T any] [][]*T

// CreateEmptyMatrix returns a rows x columns matrix of empty slots
func CreateEmptyMatrix[T any](rows, columns int) Matrix[T] {
	m := make(Matrix[T], rows)
	for i := range m {
		m[i] = make([]*T, columns)
	}
	return m
}

// Get returns the value at p, or nil when the slot is empty or out of bounds
func (m Matrix[T]) Get(p Point) *T {
	if p.Row < 0 || p.Column < 0 || p.Row >= len(m) {
		return nil
	}
	row := m[p.Row]
	if p.Column >= len(row) {
		return nil
	}
	return row[p.Column]
}

// Set returns a matrix with value stored at p, growing it as needed. row 0 is
// widened so it stays authoritative for the column count.
func (m Matrix[T]) Set(p Point, value T) Matrix[T] {
	return m.setSlot(p, &value)
}

// Unset returns a matrix with the slot at p emptied
func (m Matrix[T]) Unset(p Point) Matrix[T] {
	if m.Get(p) == nil {
		return m
	}
	return m.setSlot(p, nil)
}

func (m Matrix[T]) setSlot(p Point, value *T) Matrix[T] {
	if p.Row < 0 || p.Column < 0 {
		return m
	}

	next := make(Matrix[T], max(len(m), p.Row+1))
	copy(next, m)

	// keep the first row as wide as the widest write
	if len(next[0]) <= p.Column {
		first := make([]*T, p.Column+1)
		copy(first, next[0])
		next[0] = first
	}

	row := make([]*T, max(len(next[p.Row]), p.Column+1))
	copy(row, next[p.Row])
	row[p.Column] = value
	next[p.Row] = row
	return next
}

// Has reports whether p is inside the bounds of the matrix
func (m Matrix[T]) Has(p Point) bool {
	if len(m) == 0 {
		return false
	}
	return p.Row >= 0 && p.Column >= 0 && p.Row < len(m) && p.Column < len(m[0])
}

// Size returns the number of rows and the nominal number of columns
func (m Matrix[T]) Size() (rows, columns int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// MaxPoint returns the bottom-right point of the matrix
func (m Matrix[T]) MaxPoint() Point {
	rows, columns := m.Size()
	return Point{Row: rows - 1, Column: columns - 1}
}

// Slice returns the inclusive rectangle between start and end
func (m Matrix[T]) Slice(start, end Point) Matrix[T] {
	r := NewPointRange(start, end)
	sliced := CreateEmptyMatrix[T](r.End.Row-r.Start.Row+1, r.End.Column-r.Start.Column+1)
	for p := range r.Points() {
		sliced[p.Row-r.Start.Row][p.Column-r.Start.Column] = m.Get(p)
	}
	return sliced
}

// Pad grows the matrix to at least rows x columns. every row of the result
// is exactly as wide as the resulting column count
func (m Matrix[T]) Pad(rows, columns int) Matrix[T] {
	currentRows, currentColumns := m.Size()
	if currentRows >= rows && currentColumns >= columns {
		return m
	}
	rows = max(rows, currentRows)
	columns = max(columns, currentColumns)

	padded := make(Matrix[T], rows)
	for i := range padded {
		if i < len(m) && len(m[i]) >= columns {
			padded[i] = m[i]
			continue
		}
		row := make([]*T, columns)
		if i < len(m) {
			copy(row, m[i])
		}
		padded[i] = row
	}
	return padded
}

// Entries iterates every non-empty slot in reading order
func (m Matrix[T]) Entries() iter.Seq2[Point, *T] {
	return func(yield func(Point, *T) bool) {
		for r, row := range m {
			for c, value := range row {
				if value == nil {
					continue
				}
				if !yield(Point{Row: r, Column: c}, value) {
					return
				}
			}
		}
	}
}

// Join renders the matrix as tab separated columns and newline separated
// rows. empty slots render as empty fields
func (m Matrix[T]) Join(format func(*T) string) string {
	_, columns := m.Size()
	var b strings.Builder
	for r, row := range m {
		if r > 0 {
			b.WriteByte('\n')
		}
		width := max(columns, len(row))
		for c := 0; c < width; c++ {
			if c > 0 {
				b.WriteByte('\t')
			}
			if c < len(row) && row[c] != nil {
				b.WriteString(format(row[c]))
			}
		}
	}
	return b.String()
}

// matrixWriter applies a batch of copy-on-write updates. the row index and
// every touched row are copied at most once, so the source matrix is never
// modified and untouched rows stay shared
type matrixWriter[T any] struct {
	m     Matrix[T]
	owned map[int]struct{}
}

func newMatrixWriter[T any](m Matrix[T]) *matrixWriter[T] {
	next := make(Matrix[T], len(m))
	copy(next, m)
	return &matrixWriter[T]{m: next, owned: make(map[int]struct{})}
}

// Get reads through to the matrix being built
func (w *matrixWriter[T]) Get(p Point) *T {
	return w.m.Get(p)
}

// Set stores value at p, growing the matrix like Matrix.Set
func (w *matrixWriter[T]) Set(p Point, value T) {
	if p.Row < 0 || p.Column < 0 {
		return
	}
	for len(w.m) <= p.Row {
		w.m = append(w.m, nil)
	}
	w.own(p.Row, p.Column+1)
	if len(w.m[0]) <= p.Column {
		w.own(0, p.Column+1)
	}
	w.m[p.Row][p.Column] = &value
}

// own makes row r private to the writer and at least width wide
func (w *matrixWriter[T]) own(r, width int) {
	if _, ok := w.owned[r]; ok && len(w.m[r]) >= width {
		return
	}
	row := make([]*T, max(len(w.m[r]), width))
	copy(row, w.m[r])
	w.m[r] = row
	w.owned[r] = struct{}{}
}

// Matrix returns the result. the writer must not be used afterwards
func (w *matrixWriter[T]) Matrix() Matrix[T] {
	return w.m
}

// SplitMatrix parses tab/newline separated text. parse receives every field,
// including empty ones, and returns the slot value (nil for empty)
func SplitMatrix[T any](text string, parse func(string) *T) Matrix[T] {
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return Matrix[T]{}
	}
	lines := strings.Split(text, "\n")
	m := make(Matrix[T], len(lines))
	for r, line := range lines {
		fields := strings.Split(line, "\t")
		row := make([]*T, len(fields))
		for c, field := range fields {
			row[c] = parse(field)
		}
		m[r] = row
	}
	return m
}

// MapMatrix applies fn to every non-empty slot
func MapMatrix[T, U any](m Matrix[T], fn func(value *T, p Point) *U) Matrix[U] {
	mapped := make(Matrix[U], len(m))
	for r, row := range m {
		mappedRow := make([]*U, len(row))
		for c, value := range row {
			if value != nil {
				mappedRow[c] = fn(value, Point{Row: r, Column: c})
			}
		}
		mapped[r] = mappedRow
	}
	return mapped
}

// NewCellMatrix builds a cell matrix from raw values. nil values become empty
// slots
func NewCellMatrix(rows [][]Primitive) Matrix[Cell] {
	m := make(Matrix[Cell], len(rows))
	for r, values := range rows {
		row := make([]*Cell, len(values))
		for c, value := range values {
			if value != nil {
				row[c] = NewCell(value)
			}
		}
		m[r] = row
	}
	return m
}

// CellValues returns the values of a cell matrix, nil for empty slots.
// rows are padded to the nominal column count
func CellValues(m Matrix[Cell]) [][]Primitive {
	_, columns := m.Size()
	values := make([][]Primitive, len(m))
	for r, row := range m {
		values[r] = make([]Primitive, max(columns, len(row)))
		for c, cell := range row {
			if cell != nil {
				values[r][c] = cell.Value
			}
		}
	}
	return values
}

// FormatValue renders a primitive the way it is shown in a cell
func FormatValue(value Primitive) string {
	switch v := value.(type) {
	case nil:
		return ""
	case *SpreadsheetError:
		return v.Display()
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return formatNumber(v)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.DateTime)
	default:
		return fmt.Sprint(v)
	}
}
