package spreadsheet

import "iter"

// Range represents a lazy range type for memory-efficient formula evaluation
type Range interface {
	Bounds() PointRange
	Values() iter.Seq[Primitive]
}

// cellRange implements Range over the evaluated values of a grid
type cellRange struct {
	bounds PointRange
	read   CellAccessor
}

// Bounds returns the range boundaries
func (r *cellRange) Bounds() PointRange {
	return r.bounds
}

// Values returns an iterator over cell values in reading order. empty cells
// yield nil
func (r *cellRange) Values() iter.Seq[Primitive] {
	return func(yield func(Primitive) bool) {
		for p := range r.bounds.Points() {
			if !yield(readCell(r.read, p)) {
				return
			}
		}
	}
}

// readCell reads one evaluated value, turning displayed errors back into
// error values so they propagate through formulas
func readCell(read CellAccessor, p Point) Primitive {
	if read == nil {
		return nil
	}
	value := read(p.Row, p.Column)
	if err, ok := ParseErrorValue(value); ok {
		return err
	}
	return value
}
