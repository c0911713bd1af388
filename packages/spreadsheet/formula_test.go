package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFormulaValue(t *testing.T) {
	assert.True(t, IsFormulaValue("=A1"))
	assert.True(t, IsFormulaValue("="))
	assert.False(t, IsFormulaValue(" =A1"))
	assert.False(t, IsFormulaValue("A1"))
	assert.False(t, IsFormulaValue(1.0))
	assert.False(t, IsFormulaValue(nil))
	assert.Equal(t, "SUM(A1)", ExtractFormula("=SUM(A1)"))
	assert.Equal(t, "plain", ExtractFormula("plain"))
}

func TestGetReferences(t *testing.T) {
	tests := []struct {
		name     string
		formula  string
		expected string
	}{
		{"single", "=A1", "{A1}"},
		{"binary", "=A1+B2", "{A1, B2}"},
		{"duplicates", "=A1+A1*A1", "{A1}"},
		{"absolute", "=$C$3+C$4+$D5", "{C3, C4, D5}"},
		{"lowercase", "=sum(a1, b1)", "{A1, B1}"},
		{"range", "=SUM(A1:B2)", "{A1, B1, A2, B2}"},
		{"reversed range", "=SUM(B2:A1)", "{A1, B1, A2, B2}"},
		{"string literal", `="A1"&B1`, "{B1}"},
		{"no references", "=1+2", "{}"},
		{"function names", "=ROUND(A1, 2)", "{A1}"},
		{"booleans", "=IF(TRUE, A1, FALSE)", "{A1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetReferences(tt.formula).String())
		})
	}

	t.Run("huge range keeps its corners", func(t *testing.T) {
		refs := GetReferences("=SUM(A1:Z100000)")
		assert.Equal(t, "{A1, Z100000}", refs.String())
	})

	t.Run("malformed formulas", func(t *testing.T) {
		for _, formula := range []string{"=", "=SUM(", "=A1)", `="open`, "=((((", "=1+"} {
			assert.NotPanics(t, func() { GetReferences(formula) }, formula)
		}
	})
}

func TestShiftReferences(t *testing.T) {
	tests := []struct {
		name          string
		formula       string
		rows, columns int
		expected      string
	}{
		{"down", "=A1+B2", 1, 0, "=A2+B3"},
		{"right", "=A1", 0, 2, "=C1"},
		{"no offset", "=A1", 0, 0, "=A1"},
		{"fully absolute", "=$A$1+A1", 1, 1, "=$A$1+B2"},
		{"absolute row", "=A$1", 2, 1, "=B$1"},
		{"absolute column", "=$A1", 2, 1, "=$A3"},
		{"range", "=SUM(A1:A3)", 0, 1, "=SUM(B1:B3)"},
		{"off the grid", "=A1+B2", -1, 0, "=#REF!+B1"},
		{"string literal", `="A1"&A1`, 1, 0, `="A1"&A2`},
		{"function with digits", "=LOG10(A1)", 1, 0, "=LOG10(A2)"},
		{"column rollover", "=Z1", 0, 1, "=AA1"},
		{"lowercase", "=a1*2", 1, 0, "=A2*2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShiftReferences(tt.formula, tt.rows, tt.columns))
		})
	}
}
