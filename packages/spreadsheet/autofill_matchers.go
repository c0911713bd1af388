package spreadsheet

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// formulaMatcher shifts the references of the first filled formula by the
// distance between it and the target cell
type formulaMatcher struct{}

type formulaDetails struct {
	formula string
}

func (formulaMatcher) Name() string { return "formula" }

func (formulaMatcher) Match(series []*Cell) (any, bool) {
	values := filledValues(series)
	if len(values) == 0 || !IsFormulaValue(values[0]) {
		return nil, false
	}
	return formulaDetails{formula: values[0].(string)}, true
}

func (formulaMatcher) NextValue(_ Primitive, details any, ctx FillContext) Primitive {
	d := details.(formulaDetails)
	return ShiftReferences(d.formula, ctx.Point.Row-ctx.StartPoint.Row, ctx.Point.Column-ctx.StartPoint.Column)
}

// numericMatcher continues an arithmetic progression. a single number is
// ambiguous and left to the repeating matcher
type numericMatcher struct{}

type numericDetails struct {
	step     float64
	integers bool
}

// stepTolerance absorbs float noise such as 0.3-0.2 != 0.1
const stepTolerance = 1e-9

func (numericMatcher) Name() string { return "numeric" }

func (numericMatcher) Match(series []*Cell) (any, bool) {
	values := filledValues(series)
	if len(values) < 2 {
		return nil, false
	}

	numbers := make([]float64, len(values))
	integers := true
	for i, v := range values {
		switch n := v.(type) {
		case float64:
			numbers[i] = n
			integers = false
		case int:
			numbers[i] = float64(n)
		case int64:
			numbers[i] = float64(n)
		default:
			return nil, false
		}
	}

	step := numbers[1] - numbers[0]
	if math.IsNaN(step) || math.IsInf(step, 0) {
		return nil, false
	}
	for i := 2; i < len(numbers); i++ {
		delta := numbers[i] - numbers[i-1]
		if math.Abs(delta-step) > stepTolerance*max(1, math.Abs(step)) {
			return nil, false
		}
	}
	return numericDetails{step: step, integers: integers}, true
}

func (numericMatcher) NextValue(previous Primitive, details any, _ FillContext) Primitive {
	d := details.(numericDetails)
	n, _ := toNumber(previous)
	next := n + d.step
	if d.integers {
		return int(math.Round(next))
	}
	return next
}

// dateMatcher continues dates by a constant number of days. a single date
// advances one day at a time
type dateMatcher struct{}

type dateDetails struct {
	days int
}

func (dateMatcher) Name() string { return "date" }

func (dateMatcher) Match(series []*Cell) (any, bool) {
	values := filledValues(series)
	if len(values) == 0 {
		return nil, false
	}
	dates := make([]time.Time, len(values))
	for i, v := range values {
		t, ok := v.(time.Time)
		if !ok {
			return nil, false
		}
		dates[i] = t
	}
	if len(dates) == 1 {
		return dateDetails{days: 1}, true
	}

	days := daysBetween(dates[0], dates[1])
	for i := 2; i < len(dates); i++ {
		if daysBetween(dates[i-1], dates[i]) != days {
			return nil, false
		}
	}
	// a zero step is a repeat, not a series
	if days == 0 {
		return nil, false
	}
	return dateDetails{days: days}, true
}

func (dateMatcher) NextValue(previous Primitive, details any, _ FillContext) Primitive {
	t, _ := previous.(time.Time)
	return t.AddDate(0, 0, details.(dateDetails).days)
}

// daysBetween counts calendar days from a to b, ignoring the time of day and
// daylight saving shifts
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// textNumberMatcher continues "Item 1", "Item 2" style counters
type textNumberMatcher struct{}

type textNumberDetails struct {
	prefix string
	width  int
}

var textNumberPattern = regexp.MustCompile(`^(.*?)(\d+)$`)

func (textNumberMatcher) Name() string { return "text-number" }

func (textNumberMatcher) Match(series []*Cell) (any, bool) {
	values := filledValues(series)
	if len(values) == 0 {
		return nil, false
	}

	var details textNumberDetails
	var previous int
	for i, v := range values {
		s, ok := v.(string)
		if !ok || IsFormulaValue(s) {
			return nil, false
		}
		m := textNumberPattern.FindStringSubmatch(s)
		if m == nil {
			return nil, false
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, false
		}
		if i == 0 {
			details = textNumberDetails{prefix: m[1], width: len(m[2])}
		} else if m[1] != details.prefix || n != previous+1 {
			return nil, false
		}
		previous = n
	}
	return details, true
}

func (textNumberMatcher) NextValue(previous Primitive, details any, _ FillContext) Primitive {
	d := details.(textNumberDetails)
	s, _ := previous.(string)
	n := 0
	if m := textNumberPattern.FindStringSubmatch(s); m != nil {
		n, _ = strconv.Atoi(m[2])
	}
	return fmt.Sprintf("%s%0*d", d.prefix, d.width, n+1)
}

// CaseStyle is the letter case list values are written in
type CaseStyle int

const (
	// CasePassthrough writes values as spelled in the list
	CasePassthrough CaseStyle = iota
	// CaseUpper writes values in upper case
	CaseUpper
	// CaseLower writes values in lower case
	CaseLower
)

func (c CaseStyle) apply(s string) string {
	switch c {
	case CaseUpper:
		return strings.ToUpper(s)
	case CaseLower:
		return strings.ToLower(s)
	default:
		return s
	}
}

// caseStyleOf derives the case style of a token
func caseStyleOf(s string) CaseStyle {
	switch {
	case s == strings.ToUpper(s) && s != strings.ToLower(s):
		return CaseUpper
	case s == strings.ToLower(s) && s != strings.ToUpper(s):
		return CaseLower
	default:
		return CasePassthrough
	}
}

var builtinLists = [][]string{
	{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
	{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
	{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
	{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

// listMatcher continues runs of consecutive entries of a fixed list, wrapping
// at the end
type listMatcher struct {
	lists [][]string
}

type listDetails struct {
	list  []string
	style CaseStyle
}

func (listMatcher) Name() string { return "list" }

func (m listMatcher) Match(series []*Cell) (any, bool) {
	values := filledValues(series)
	if len(values) == 0 {
		return nil, false
	}
	tokens := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		tokens[i] = s
	}

	for _, list := range m.lists {
		if isConsecutiveRun(list, tokens) {
			return listDetails{list: list, style: caseStyleOf(tokens[0])}, true
		}
	}
	return nil, false
}

func (listMatcher) NextValue(previous Primitive, details any, _ FillContext) Primitive {
	d := details.(listDetails)
	s, _ := previous.(string)
	i := indexFold(d.list, s)
	if i < 0 {
		return previous
	}
	return d.style.apply(d.list[(i+1)%len(d.list)])
}

// isConsecutiveRun reports whether every token is in list, each one
// following the previous, wrapping around
func isConsecutiveRun(list, tokens []string) bool {
	previous := -1
	for _, token := range tokens {
		i := indexFold(list, token)
		if i < 0 {
			return false
		}
		if previous >= 0 && i != (previous+1)%len(list) {
			return false
		}
		previous = i
	}
	return true
}

func indexFold(list []string, s string) int {
	for i, item := range list {
		if strings.EqualFold(item, s) {
			return i
		}
	}
	return -1
}

// repeatingMatcher copies a value repeated across the whole series
type repeatingMatcher struct{}

func (repeatingMatcher) Name() string { return "repeating" }

func (repeatingMatcher) Match(series []*Cell) (any, bool) {
	values := filledValues(series)
	if len(values) == 0 {
		return nil, false
	}
	for _, v := range values[1:] {
		if !sameValue(values[0], v) {
			return nil, false
		}
	}
	return values[0], true
}

func (repeatingMatcher) NextValue(_ Primitive, details any, _ FillContext) Primitive {
	return details
}

func sameValue(a, b Primitive) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	if a == nil || b == nil {
		return a == b
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}
