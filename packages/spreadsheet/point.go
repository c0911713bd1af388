package spreadsheet

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Point is a zero-based (row, column) grid coordinate
type Point struct {
	Row    int
	Column int
}

// Hash returns the canonical "row,column" key of the point
func (p Point) Hash() string {
	return strconv.Itoa(p.Row) + "," + strconv.Itoa(p.Column)
}

// String returns the A1 name of the point, or the hash when the point is
// outside the addressable grid
func (p Point) String() string {
	name, err := excelize.CoordinatesToCellName(p.Column+1, p.Row+1)
	if err != nil {
		return p.Hash()
	}
	return name
}

// Less orders points in reading order (row-major)
func (p Point) Less(other Point) bool {
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Column < other.Column
}

// Add offsets the point by the given deltas
func (p Point) Add(rows, columns int) Point {
	return Point{Row: p.Row + rows, Column: p.Column + columns}
}

// ParsePoint parses an A1 address ("B3", "$B$3") into a zero-based point
func ParsePoint(address string) (Point, error) {
	col, row, err := excelize.CellNameToCoordinates(strings.TrimSpace(address))
	if err != nil {
		return Point{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, address, err)
	}
	return Point{Row: row - 1, Column: col - 1}, nil
}

// PointRange is an inclusive rectangle of points
type PointRange struct {
	Start Point
	End   Point
}

// NewPointRange creates a range, normalizing so Start is the top-left corner
func NewPointRange(a, b Point) PointRange {
	return PointRange{
		Start: Point{Row: min(a.Row, b.Row), Column: min(a.Column, b.Column)},
		End:   Point{Row: max(a.Row, b.Row), Column: max(a.Column, b.Column)},
	}
}

// ParsePointRange parses "A1:B2". a single address is a one-cell range
func ParsePointRange(address string) (PointRange, error) {
	parts := strings.Split(address, ":")
	if len(parts) > 2 {
		return PointRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, address)
	}
	start, err := ParsePoint(parts[0])
	if err != nil {
		return PointRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, address)
	}
	end := start
	if len(parts) == 2 {
		end, err = ParsePoint(parts[1])
		if err != nil {
			return PointRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, address)
		}
	}
	return NewPointRange(start, end), nil
}

// Size returns the number of points in the range
func (r PointRange) Size() int {
	return (r.End.Row - r.Start.Row + 1) * (r.End.Column - r.Start.Column + 1)
}

// Has reports whether the point lies inside the range
func (r PointRange) Has(p Point) bool {
	return p.Row >= r.Start.Row && p.Row <= r.End.Row &&
		p.Column >= r.Start.Column && p.Column <= r.End.Column
}

// Points iterates the range in reading order
func (r PointRange) Points() iter.Seq[Point] {
	return func(yield func(Point) bool) {
		for row := r.Start.Row; row <= r.End.Row; row++ {
			for col := r.Start.Column; col <= r.End.Column; col++ {
				if !yield(Point{Row: row, Column: col}) {
					return
				}
			}
		}
	}
}

func (r PointRange) String() string {
	if r.Start == r.End {
		return r.Start.String()
	}
	return r.Start.String() + ":" + r.End.String()
}
