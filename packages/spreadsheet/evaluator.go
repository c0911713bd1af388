package spreadsheet

import (
	"errors"
	"fmt"
)

// CellAccessor returns the current evaluated value of the cell at (row,
// column), nil when the cell is empty
type CellAccessor func(row, column int) Primitive

// FormulaParser evaluates a formula for the cell at point. formula is the
// full cell text, leading '=' included. formula errors such as #DIV/0! come
// back as *SpreadsheetError values; a returned error means the formula could
// not be evaluated at all.
type FormulaParser interface {
	Evaluate(formula string, point Point, cell CellAccessor) (Primitive, error)
}

// Evaluator is the default FormulaParser. it is safe for concurrent use
type Evaluator struct {
	functions *BuiltInFunctions
}

var _ FormulaParser = (*Evaluator)(nil)

// EvaluatorOption configures an Evaluator
type EvaluatorOption func(*Evaluator)

// WithClock replaces the clock behind NOW and TODAY
func WithClock(clock Clock) EvaluatorOption {
	return func(e *Evaluator) {
		e.functions.clock = clock
	}
}

// WithRandom replaces the generator behind RAND
func WithRandom(rng RandomGenerator) EvaluatorOption {
	return func(e *Evaluator) {
		e.functions.rng = rng
	}
}

// NewEvaluator creates the default formula evaluator
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{functions: NewDefaultBuiltInFunctions()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate implements FormulaParser
func (e *Evaluator) Evaluate(formula string, point Point, cell CellAccessor) (Primitive, error) {
	root, err := ParseFormula(formula)
	if err != nil {
		return nil, err
	}

	value, err := root.Eval(&evalScope{point: point, read: cell, functions: e.functions})
	if err != nil {
		var spreadsheetErr *SpreadsheetError
		if errors.As(err, &spreadsheetErr) {
			return spreadsheetErr, nil
		}
		return nil, fmt.Errorf("evaluate %s: %w", point, err)
	}

	switch value.(type) {
	case nil:
		// a reference to an empty cell reads as zero
		return 0.0, nil
	case Range:
		return NewSpreadsheetError(ErrorCodeValue, "Range used where a single value is expected"), nil
	}
	return value, nil
}
