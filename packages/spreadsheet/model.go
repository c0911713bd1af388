package spreadsheet

import (
	"log/slog"
	"slices"
)

// Engine evaluates grids. it only holds configuration, so one engine can
// serve any number of models from any number of goroutines
type Engine struct {
	parser   FormulaParser
	logger   *slog.Logger
	matchers []AutoFillMatcher
}

// NewEngine creates an engine from DefaultOptions and the given overrides
func NewEngine(opts ...Option) *Engine {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		parser:   o.Parser,
		logger:   o.Logger,
		matchers: o.Matchers,
	}
}

// Model is one immutable version of a grid: the raw cells, the dependency
// graph between them, and the evaluated cells. every update returns a new
// Model sharing untouched rows and graph nodes with the previous one
type Model struct {
	Data           Matrix[Cell]
	ReferenceGraph PointGraph
	EvaluatedData  Matrix[Cell]
}

// Cell returns the evaluated cell at p, nil when empty
func (m *Model) Cell(p Point) *Cell {
	return m.EvaluatedData.Get(p)
}

// Value returns the evaluated value at p, nil when empty
func (m *Model) Value(p Point) Primitive {
	if c := m.Cell(p); c != nil {
		return c.Value
	}
	return nil
}

// Create builds the dependency graph of data and evaluates every formula
// cell in dependency order
func (e *Engine) Create(data Matrix[Cell]) *Model {
	var pairs []PointSetPair
	var formulas []Point
	for p, cell := range data.Entries() {
		if !IsFormulaValue(cell.Value) {
			continue
		}
		formulas = append(formulas, p)
		pairs = append(pairs, PointSetPair{Point: p, References: GetReferences(cell.Value.(string))})
	}
	graph := PointGraphFrom(pairs)

	w := newMatrixWriter(data)
	read := accessor(w)
	evaluated := make(map[Point]struct{}, len(formulas))
	for _, p := range graph.TraverseBFS() {
		raw := data.Get(p)
		if raw == nil || !IsFormulaValue(raw.Value) {
			continue
		}
		w.Set(p, e.evaluate(p, *raw, read))
		evaluated[p] = struct{}{}
	}

	// formulas reading nothing never enter the graph. formulas never reached
	// sit on a cycle or behind one
	for _, p := range formulas {
		if _, ok := evaluated[p]; ok {
			continue
		}
		raw := data.Get(p)
		if graph.Forward(p).Size() == 0 {
			w.Set(p, e.evaluate(p, *raw, read))
			continue
		}
		e.logger.Debug("circular dependency", "point", p.String())
		w.Set(p, raw.WithValue(FormulaErrorValue))
	}

	e.logger.Debug("model created", "formulas", len(formulas), "edges", graph.Size())
	return &Model{Data: data, ReferenceGraph: graph, EvaluatedData: w.Matrix()}
}

// UpdateCellValue returns a new model with cell stored at p. only p and the
// cells transitively depending on it are evaluated again; every other
// evaluated cell is carried over as is
func (e *Engine) UpdateCellValue(model *Model, p Point, cell Cell) *Model {
	if p.Row < 0 || p.Column < 0 {
		return model
	}

	data := model.Data.Set(p, cell)

	var refs PointSet
	formula, isFormula := cell.Value.(string)
	isFormula = isFormula && IsFormulaValue(formula)
	if isFormula {
		refs = GetReferences(formula)
	}
	graph := model.ReferenceGraph.Set(p, refs)
	dependents := graph.BackwardsRecursive(p)

	w := newMatrixWriter(model.EvaluatedData)
	next := func() *Model {
		return &Model{Data: data, ReferenceGraph: graph, EvaluatedData: w.Matrix()}
	}

	if graph.HasCircularDependency(p) {
		e.logger.Debug("circular dependency", "point", p.String(), "dependents", len(dependents))
		w.Set(p, cell.WithValue(FormulaErrorValue))
		for _, dependent := range dependents {
			w.Set(dependent, errorCell(data, dependent))
		}
		return next()
	}

	read := accessor(w)
	if isFormula {
		w.Set(p, e.evaluate(p, cell, read))
	} else {
		w.Set(p, cell)
	}

	order := graph.TopologicalOrder(PointSetFrom(slices.Values(dependents)))
	done := make(map[Point]struct{}, len(order))
	for _, dependent := range order {
		done[dependent] = struct{}{}
		raw := data.Get(dependent)
		if raw == nil || !IsFormulaValue(raw.Value) {
			continue
		}
		w.Set(dependent, e.evaluate(dependent, *raw, read))
	}

	// dependents left out of the order are caught on a cycle downstream
	for _, dependent := range dependents {
		if _, ok := done[dependent]; !ok {
			w.Set(dependent, errorCell(data, dependent))
		}
	}

	e.logger.Debug("cell updated", "point", p.String(), "affected", len(dependents)+1)
	return next()
}

// AutoFill extends the pattern of the filled prefix of r into its empty
// suffix and evaluates every written cell
func (e *Engine) AutoFill(model *Model, r PointRange) *Model {
	filled := AutoFillRangeWith(model.Data, r, e.matchers...)

	next := model
	for p := range r.Points() {
		after := filled.Get(p)
		if after == nil || after == model.Data.Get(p) {
			continue
		}
		next = e.UpdateCellValue(next, p, *after)
	}
	return next
}

// evaluate computes the evaluated form of a formula cell. any failure of the
// parser, panics included, turns into the #REF! sentinel
func (e *Engine) evaluate(p Point, raw Cell, read CellAccessor) (result Cell) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("formula evaluation panicked", "point", p.String(), "panic", r)
			result = raw.WithValue(FormulaErrorValue)
		}
	}()

	value, err := e.parser.Evaluate(raw.Value.(string), p, read)
	if err != nil {
		e.logger.Debug("formula evaluation failed", "point", p.String(), "error", err)
		return raw.WithValue(FormulaErrorValue)
	}
	if spreadsheetErr, ok := value.(*SpreadsheetError); ok {
		return raw.WithValue(spreadsheetErr.Display())
	}
	return raw.WithValue(value)
}

// accessor reads evaluated values out of the matrix being built
func accessor(w *matrixWriter[Cell]) CellAccessor {
	return func(row, column int) Primitive {
		if c := w.Get(Point{Row: row, Column: column}); c != nil {
			return c.Value
		}
		return nil
	}
}

// errorCell marks the raw cell at p with the #REF! sentinel
func errorCell(data Matrix[Cell], p Point) Cell {
	if raw := data.Get(p); raw != nil {
		return raw.WithValue(FormulaErrorValue)
	}
	return Cell{Value: FormulaErrorValue}
}
