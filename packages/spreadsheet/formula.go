package spreadsheet

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/efp"
	"github.com/xuri/excelize/v2"
)

// formulaPrefix marks a cell value as a formula
const formulaPrefix = "="

// ranges larger than this are tracked by their corners only, so a formula
// like =SUM(A1:Z100000) cannot blow up the dependency graph
const maxTrackedRangeSize = 1 << 16

var (
	// referencePattern matches one A1 reference, with optional absolute markers
	referencePattern = regexp.MustCompile(`\$?[A-Z]+\$?[0-9]+`)

	// shiftPattern captures the parts of a reference that auto-fill shifts
	shiftPattern = regexp.MustCompile(`(\$?)([A-Za-z]+)(\$?)([0-9]+)`)
)

// IsFormulaValue reports whether v is a formula: a string starting with '='
func IsFormulaValue(v Primitive) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, formulaPrefix)
}

// ExtractFormula strips the leading '=' of a formula value
func ExtractFormula(s string) string {
	return strings.TrimPrefix(s, formulaPrefix)
}

// GetReferences returns every point formula reads. ranges count as every
// point they cover. text inside string literals is never a reference
func GetReferences(formula string) (refs PointSet) {
	defer func() {
		// a formula the tokenizer chokes on reads nothing
		if recover() != nil {
			refs = PointSet{}
		}
	}()

	ps := efp.ExcelParser()
	for _, token := range ps.Parse(formula) {
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}
		refs = refs.Union(operandReferences(strings.ToUpper(token.TValue)))
	}
	return refs
}

// operandReferences decodes a single range operand ("A1", "$B$2", "A1:C3")
func operandReferences(operand string) PointSet {
	matches := referencePattern.FindAllString(operand, -1)
	points := make([]Point, 0, len(matches))
	for _, match := range matches {
		p, err := ParsePoint(match)
		if err != nil {
			continue
		}
		points = append(points, p)
	}

	if len(points) == 2 && strings.Contains(operand, ":") {
		r := NewPointRange(points[0], points[1])
		if r.Size() <= maxTrackedRangeSize {
			return PointSetFrom(r.Points())
		}
	}
	return NewPointSet(points...)
}

// ShiftReferences moves every relative reference of formula by the given
// offsets. each axis marked absolute with '$' stays put. references pushed
// off the grid become #REF!. string literals are left untouched
func ShiftReferences(formula string, rows, columns int) string {
	if rows == 0 && columns == 0 {
		return formula
	}

	var b strings.Builder
	inString := false
	start := 0
	for i := 0; i < len(formula); i++ {
		if formula[i] != '"' {
			continue
		}
		if inString {
			// literal, closing quote included
			b.WriteString(formula[start : i+1])
			start = i + 1
		} else {
			b.WriteString(shiftSegment(formula[start:i], rows, columns))
			start = i
		}
		inString = !inString
	}
	if inString {
		b.WriteString(formula[start:])
	} else {
		b.WriteString(shiftSegment(formula[start:], rows, columns))
	}
	return b.String()
}

func shiftSegment(segment string, rows, columns int) string {
	matches := shiftPattern.FindAllStringSubmatchIndex(segment, -1)
	if len(matches) == 0 {
		return segment
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if !isReferenceBoundary(segment, start, end) {
			continue
		}
		b.WriteString(segment[last:start])
		b.WriteString(shiftReference(
			segment[m[2]:m[3]] != "", segment[m[4]:m[5]],
			segment[m[6]:m[7]] != "", segment[m[8]:m[9]],
			rows, columns,
			segment[start:end],
		))
		last = end
	}
	b.WriteString(segment[last:])
	return b.String()
}

// isReferenceBoundary rejects matches glued to identifiers or followed by
// '(' such as the LOG10 in LOG10(A1)
func isReferenceBoundary(s string, start, end int) bool {
	if start > 0 && isIdentifierChar(s[start-1]) {
		return false
	}
	if end < len(s) && (isIdentifierChar(s[end]) || s[end] == '(') {
		return false
	}
	return true
}

func isIdentifierChar(ch byte) bool {
	return ch == '_' || ch == '.' || ch == '$' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

func shiftReference(absColumn bool, letters string, absRow bool, digits string, rows, columns int, original string) string {
	col, err := excelize.ColumnNameToNumber(strings.ToUpper(letters))
	if err != nil {
		return original
	}
	row, err := strconv.Atoi(digits)
	if err != nil {
		return original
	}
	if !absColumn {
		col += columns
	}
	if !absRow {
		row += rows
	}
	if col < 1 || row < 1 {
		return FormulaErrorValue
	}
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return FormulaErrorValue
	}

	var b strings.Builder
	if absColumn {
		b.WriteByte('$')
	}
	b.WriteString(name)
	if absRow {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(row))
	return b.String()
}
