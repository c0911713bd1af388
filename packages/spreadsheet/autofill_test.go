package spreadsheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

// row builds a single-row matrix
func row(values ...Primitive) Matrix[Cell] {
	return NewCellMatrix([][]Primitive{values})
}

// column builds a single-column matrix
func column(values ...Primitive) Matrix[Cell] {
	rows := make([][]Primitive, len(values))
	for i, v := range values {
		rows[i] = []Primitive{v}
	}
	return NewCellMatrix(rows)
}

func rowRange(columns int) PointRange {
	return NewPointRange(Point{}, Point{Column: columns - 1})
}

func columnRange(rows int) PointRange {
	return NewPointRange(Point{}, Point{Row: rows - 1})
}

func rowValues(m Matrix[Cell], columns int) []Primitive {
	values := make([]Primitive, columns)
	for c := range values {
		if cell := m.Get(Point{Column: c}); cell != nil {
			values[c] = cell.Value
		}
	}
	return values
}

func columnValues(m Matrix[Cell], rows int) []Primitive {
	values := make([]Primitive, rows)
	for r := range values {
		if cell := m.Get(Point{Row: r}); cell != nil {
			values[r] = cell.Value
		}
	}
	return values
}

func TestAutoFillRange(t *testing.T) {
	t.Run("Numeric", func(t *testing.T) {
		tests := []struct {
			name     string
			input    []Primitive
			expected []Primitive
		}{
			{"increasing", []Primitive{1, 2, nil, nil, nil}, []Primitive{1, 2, 3, 4, 5}},
			{"decreasing", []Primitive{10, 8, nil, nil}, []Primitive{10, 8, 6, 4}},
			{"floats", []Primitive{0.5, 1.0, nil}, []Primitive{0.5, 1.0, 1.5}},
			{"float noise", []Primitive{0.1, 0.2, 0.3, nil}, []Primitive{0.1, 0.2, 0.3, 0.4}},
			{"no step", []Primitive{1, 3, 7, nil, nil}, []Primitive{1, 3, 7, nil, nil}},
			{"single number repeats", []Primitive{5, nil, nil}, []Primitive{5, 5, 5}},
			{"gap inside the filled prefix", []Primitive{1, nil, 3, nil}, []Primitive{1, nil, 3, 5}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				filled := AutoFillRange(row(tt.input...), rowRange(len(tt.input)))
				actual := rowValues(filled, len(tt.input))
				for i := range tt.expected {
					if f, ok := tt.expected[i].(float64); ok {
						assert.InDelta(t, f, actual[i], 1e-9, "slot %d", i)
						continue
					}
					assert.Equal(t, tt.expected[i], actual[i], "slot %d", i)
				}
			})
		}
	})

	t.Run("TextWithNumber", func(t *testing.T) {
		filled := AutoFillRange(row("Task 1", nil, nil, nil), rowRange(4))
		assert.Equal(t, []Primitive{"Task 1", "Task 2", "Task 3", "Task 4"}, rowValues(filled, 4))

		filled = AutoFillRange(column("item007", "item008", nil), columnRange(3))
		assert.Equal(t, []Primitive{"item007", "item008", "item009"}, columnValues(filled, 3))

		filled = AutoFillRange(row("v9", nil), rowRange(2))
		assert.Equal(t, []Primitive{"v9", "v10"}, rowValues(filled, 2))

		// mismatched prefixes are not a series
		filled = AutoFillRange(row("a1", "b2", nil), rowRange(3))
		assert.Nil(t, rowValues(filled, 3)[2])
	})

	t.Run("Formula", func(t *testing.T) {
		filled := AutoFillRange(column("=A1", nil, nil), columnRange(3))
		assert.Equal(t, []Primitive{"=A1", "=A2", "=A3"}, columnValues(filled, 3))

		filled = AutoFillRange(column("=$A$1", nil, nil), columnRange(3))
		assert.Equal(t, []Primitive{"=$A$1", "=$A$1", "=$A$1"}, columnValues(filled, 3))

		filled = AutoFillRange(row("=SUM(A2:A5)*$B$1", nil, nil), rowRange(3))
		assert.Equal(t, []Primitive{"=SUM(A2:A5)*$B$1", "=SUM(B2:B5)*$B$1", "=SUM(C2:C5)*$B$1"}, rowValues(filled, 3))
	})

	t.Run("Dates", func(t *testing.T) {
		filled := AutoFillRange(column(mustDate(t, "2024-01-30"), nil, nil), columnRange(3))
		assert.Equal(t, []Primitive{
			mustDate(t, "2024-01-30"), mustDate(t, "2024-01-31"), mustDate(t, "2024-02-01"),
		}, columnValues(filled, 3))

		filled = AutoFillRange(row(mustDate(t, "2024-02-26"), mustDate(t, "2024-03-04"), nil), rowRange(3))
		assert.Equal(t, mustDate(t, "2024-03-11"), rowValues(filled, 3)[2])

		// same date twice repeats
		same := mustDate(t, "2024-05-05")
		filled = AutoFillRange(row(same, same, nil), rowRange(3))
		assert.Equal(t, same, rowValues(filled, 3)[2])
	})

	t.Run("Lists", func(t *testing.T) {
		tests := []struct {
			name     string
			input    []Primitive
			expected []Primitive
		}{
			{"weekdays", []Primitive{"Monday", nil, nil}, []Primitive{"Monday", "Tuesday", "Wednesday"}},
			{"wraps", []Primitive{"Sat", "Sun", nil, nil}, []Primitive{"Sat", "Sun", "Mon", "Tue"}},
			{"upper case", []Primitive{"NOV", nil, nil}, []Primitive{"NOV", "DEC", "JAN"}},
			{"lower case", []Primitive{"october", nil}, []Primitive{"october", "november"}},
			{"mixed case passes through", []Primitive{"fRiDaY", nil}, []Primitive{"fRiDaY", "Saturday"}},
			{"not consecutive", []Primitive{"Mon", "Wed", nil}, []Primitive{"Mon", "Wed", nil}},
			{"repeating entry", []Primitive{"Mon", "Mon", nil}, []Primitive{"Mon", "Mon", "Mon"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				filled := AutoFillRange(row(tt.input...), rowRange(len(tt.input)))
				assert.Equal(t, tt.expected, rowValues(filled, len(tt.input)))
			})
		}
	})

	t.Run("Repeating", func(t *testing.T) {
		filled := AutoFillRange(row("x", "x", nil, nil), rowRange(4))
		assert.Equal(t, []Primitive{"x", "x", "x", "x"}, rowValues(filled, 4))

		filled = AutoFillRange(row(true, nil), rowRange(2))
		assert.Equal(t, []Primitive{true, true}, rowValues(filled, 2))
	})

	t.Run("Unchanged", func(t *testing.T) {
		empty := row(nil, nil, nil)
		assert.Equal(t, empty, AutoFillRange(empty, rowRange(3)))

		full := row(1, 2, 3)
		assert.Equal(t, full, AutoFillRange(full, rowRange(3)))

		mixed := row(1, "a", nil)
		assert.Equal(t, mixed, AutoFillRange(mixed, rowRange(3)))
	})

	t.Run("InputNeverMutated", func(t *testing.T) {
		data := row(1, 2, nil, nil)
		before := CellValues(data)
		_ = AutoFillRange(data, rowRange(4))
		assert.Equal(t, before, CellValues(data))
	})

	t.Run("GrowsTheMatrix", func(t *testing.T) {
		filled := AutoFillRange(row(1, 2), rowRange(4))
		_, columns := filled.Size()
		assert.Equal(t, 4, columns)
		assert.Equal(t, []Primitive{1, 2, 3, 4}, rowValues(filled, 4))
	})

	t.Run("KeepsCellFields", func(t *testing.T) {
		data := row("Mon", nil, nil, nil).
			Set(Point{Column: 2}, Cell{ReadOnly: true})
		filled := AutoFillRange(data, rowRange(4))
		assert.Equal(t, []Primitive{"Mon", "Tue", nil, "Thu"}, rowValues(filled, 4))
		assert.True(t, filled.Get(Point{Column: 2}).ReadOnly)
	})

	t.Run("TwoDimensionalRangeReadsInRowOrder", func(t *testing.T) {
		data := NewCellMatrix([][]Primitive{{1, 2}, {nil, nil}})
		filled := AutoFillRange(data, NewPointRange(Point{}, Point{Row: 1, Column: 1}))
		assert.Equal(t, [][]Primitive{{1, 2}, {3, 4}}, CellValues(filled))
	})
}

type constantMatcher struct{ value Primitive }

func (constantMatcher) Name() string { return "constant" }

func (constantMatcher) Match(series []*Cell) (any, bool) { return nil, true }

func (m constantMatcher) NextValue(Primitive, any, FillContext) Primitive { return m.value }

func TestAutoFillMatchers(t *testing.T) {
	t.Run("CustomRegistry", func(t *testing.T) {
		filled := AutoFillRangeWith(row(1, 2, nil), rowRange(3), constantMatcher{value: "z"})
		assert.Equal(t, []Primitive{1, 2, "z"}, rowValues(filled, 3))
	})

	t.Run("EmptyRegistry", func(t *testing.T) {
		data := row(1, 2, nil)
		assert.Equal(t, data, AutoFillRangeWith(data, rowRange(3)))
	})

	t.Run("Priority", func(t *testing.T) {
		tests := []struct {
			name     string
			series   []Primitive
			expected string
		}{
			{"formula first", []Primitive{"=A1", "=A1"}, "formula"},
			{"numbers", []Primitive{1.0, 2.0}, "numeric"},
			{"dates", []Primitive{time.Now()}, "date"},
			{"counter", []Primitive{"Q1"}, "text-number"},
			{"weekday", []Primitive{"Tue"}, "list"},
			{"fallback", []Primitive{"same", "same"}, "repeating"},
			{"lone number", []Primitive{3}, "repeating"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				series := make([]*Cell, len(tt.series))
				for i, v := range tt.series {
					series[i] = NewCell(v)
				}
				m, _, ok := MatchSeries(series, DefaultMatchers()...)
				require.True(t, ok)
				assert.Equal(t, tt.expected, m.Name())
			})
		}
	})

	t.Run("FillContext", func(t *testing.T) {
		var contexts []FillContext
		recorder := recordingMatcher{contexts: &contexts}
		AutoFillRangeWith(row(nil, 1, nil, nil), rowRange(4), recorder)
		assert.Equal(t, []FillContext{
			{Point: Point{Column: 2}, StartPoint: Point{Column: 1}, Index: 2},
			{Point: Point{Column: 3}, StartPoint: Point{Column: 1}, Index: 3},
		}, contexts)
	})

	t.Run("CaseStyle", func(t *testing.T) {
		assert.Equal(t, CaseUpper, caseStyleOf("JAN"))
		assert.Equal(t, CaseLower, caseStyleOf("jan"))
		assert.Equal(t, CasePassthrough, caseStyleOf("Jan"))
		assert.Equal(t, CasePassthrough, caseStyleOf("123"))
		assert.Equal(t, "MARCH", CaseUpper.apply("March"))
	})
}

type recordingMatcher struct {
	contexts *[]FillContext
}

func (recordingMatcher) Name() string { return "recording" }

func (recordingMatcher) Match([]*Cell) (any, bool) { return nil, true }

func (m recordingMatcher) NextValue(previous Primitive, _ any, ctx FillContext) Primitive {
	*m.contexts = append(*m.contexts, ctx)
	return previous
}
