package spreadsheet

import (
	"iter"
	"slices"
	"strings"
)

// PointSet is a persistent set of points. the zero value is an empty set
type PointSet struct {
	m PointMap[struct{}]
}

// NewPointSet creates a set holding points
func NewPointSet(points ...Point) PointSet {
	var s PointSet
	for _, p := range points {
		s = s.Add(p)
	}
	return s
}

// PointSetFrom collects a sequence of points into a set
func PointSetFrom(points iter.Seq[Point]) PointSet {
	var s PointSet
	for p := range points {
		s = s.Add(p)
	}
	return s
}

// Add returns a set with p added
func (s PointSet) Add(p Point) PointSet {
	if s.m.Has(p) {
		return s
	}
	return PointSet{m: s.m.Set(p, struct{}{})}
}

// Delete returns a set without p
func (s PointSet) Delete(p Point) PointSet {
	return PointSet{m: s.m.Delete(p)}
}

// Has reports membership of p
func (s PointSet) Has(p Point) bool {
	return s.m.Has(p)
}

// Size returns the number of points
func (s PointSet) Size() int {
	return s.m.Size()
}

// All iterates the points in hash order
func (s PointSet) All() iter.Seq[Point] {
	return func(yield func(Point) bool) {
		for p := range s.m.All() {
			if !yield(p) {
				return
			}
		}
	}
}

// Points returns the points in iteration order
func (s PointSet) Points() []Point {
	return s.m.Keys()
}

// Sorted returns the points in reading order
func (s PointSet) Sorted() []Point {
	points := s.m.Keys()
	slices.SortFunc(points, comparePoints)
	return points
}

// Union returns the points in either set
func (s PointSet) Union(other PointSet) PointSet {
	if s.Size() < other.Size() {
		s, other = other, s
	}
	for p := range other.All() {
		s = s.Add(p)
	}
	return s
}

// Difference returns the points in s that are not in other
func (s PointSet) Difference(other PointSet) PointSet {
	next := s
	for p := range s.All() {
		if other.Has(p) {
			next = next.Delete(p)
		}
	}
	return next
}

// Filter returns the points fn accepts
func (s PointSet) Filter(fn func(Point) bool) PointSet {
	return PointSet{m: s.m.Filter(func(p Point, _ struct{}) bool { return fn(p) })}
}

// Map returns the set of fn applied to every point
func (s PointSet) Map(fn func(Point) Point) PointSet {
	var next PointSet
	for p := range s.All() {
		next = next.Add(fn(p))
	}
	return next
}

// Equal reports whether both sets hold the same points
func (s PointSet) Equal(other PointSet) bool {
	return s.m.Equal(other.m, func(struct{}, struct{}) bool { return true })
}

func (s PointSet) String() string {
	names := make([]string, 0, s.Size())
	for _, p := range s.Sorted() {
		names = append(names, p.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// ReducePoints folds the set into a single value
func ReducePoints[A any](s PointSet, fn func(acc A, p Point) A, initial A) A {
	acc := initial
	for p := range s.All() {
		acc = fn(acc, p)
	}
	return acc
}

func comparePoints(a, b Point) int {
	if a.Row != b.Row {
		return a.Row - b.Row
	}
	return a.Column - b.Column
}
