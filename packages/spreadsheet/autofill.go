package spreadsheet

import "slices"

// FillContext describes the cell a matcher is producing a value for
type FillContext struct {
	// Point is the cell being written
	Point Point
	// StartPoint is the first filled cell of the range
	StartPoint Point
	// Index is the position of Point within the range, in reading order
	Index int
}

// AutoFillMatcher recognizes one kind of series and extrapolates it
type AutoFillMatcher interface {
	// Name identifies the matcher in logs and tests
	Name() string
	// Match inspects the series (nil slots are empty cells) and returns the
	// details NextValue needs when the series is recognized
	Match(series []*Cell) (details any, ok bool)
	// NextValue produces the value following previous
	NextValue(previous Primitive, details any, ctx FillContext) Primitive
}

// DefaultMatchers returns the built-in matchers in priority order
func DefaultMatchers() []AutoFillMatcher {
	return []AutoFillMatcher{
		formulaMatcher{},
		numericMatcher{},
		dateMatcher{},
		textNumberMatcher{},
		listMatcher{lists: builtinLists},
		repeatingMatcher{},
	}
}

// AutoFillRange fills r with the default matchers
func AutoFillRange(data Matrix[Cell], r PointRange) Matrix[Cell] {
	return AutoFillRangeWith(data, r, DefaultMatchers()...)
}

// AutoFillRangeWith extends the pattern of the filled cells of r, in reading
// order, into the empty cells after the last filled one. the first matcher
// recognizing the series wins. filled cells are never overwritten and
// read-only targets are skipped. when nothing is filled or no matcher
// applies, data is returned as is
func AutoFillRangeWith(data Matrix[Cell], r PointRange, matchers ...AutoFillMatcher) Matrix[Cell] {
	points := slices.Collect(r.Points())
	series := make([]*Cell, len(points))
	first, last := -1, -1
	for i, p := range points {
		c := data.Get(p)
		if isEmptyCell(c) {
			continue
		}
		series[i] = c
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 || last == len(points)-1 {
		return data
	}

	matcher, details, ok := MatchSeries(series, matchers...)
	if !ok {
		return data
	}

	w := newMatrixWriter(data)
	current := series[last].Value
	for i := last + 1; i < len(points); i++ {
		p := points[i]
		current = matcher.NextValue(current, details, FillContext{Point: p, StartPoint: points[first], Index: i})

		target := data.Get(p)
		if target != nil && target.ReadOnly {
			continue
		}
		var cell Cell
		if target != nil {
			cell = *target
		}
		w.Set(p, cell.WithValue(current))
	}
	return w.Matrix()
}

// MatchSeries returns the first matcher recognizing series
func MatchSeries(series []*Cell, matchers ...AutoFillMatcher) (AutoFillMatcher, any, bool) {
	for _, m := range matchers {
		if details, ok := m.Match(series); ok {
			return m, details, true
		}
	}
	return nil, nil, false
}

// filledValues returns the values of the non-empty slots of series
func filledValues(series []*Cell) []Primitive {
	values := make([]Primitive, 0, len(series))
	for _, c := range series {
		if !isEmptyCell(c) {
			values = append(values, c.Value)
		}
	}
	return values
}
