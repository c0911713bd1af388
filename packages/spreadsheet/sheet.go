package spreadsheet

import (
	"fmt"
	"maps"
	"slices"
)

// Sheet provides a chainable interface over an engine and the current
// model. every edit replaces the model; the first error is kept and turns
// the rest of the chain into no-ops
type Sheet struct {
	engine  *Engine
	model   *Model
	err     error
	printLn func(string)
}

// NewSheet creates an empty Sheet. printLn is required and will be used for
// all logging operations (Log, CheckError)
func NewSheet(engine *Engine, printLn func(string)) *Sheet {
	return &Sheet{
		engine:  engine,
		model:   engine.Create(Matrix[Cell]{}),
		printLn: printLn,
	}
}

// resolve parses an A1 address into a point, recording failures
func (s *Sheet) resolve(address string) (Point, bool) {
	p, err := ParsePoint(address)
	if err != nil {
		s.err = wrapApplicationError(InvalidArgument, err)
		return Point{}, false
	}
	return p, true
}

// Load replaces the whole grid, rebuilding and evaluating it (chainable)
func (s *Sheet) Load(data Matrix[Cell]) *Sheet {
	if s.err != nil {
		return s
	}
	s.model = s.engine.Create(data)
	return s
}

// Set sets a cell value, keeping the other fields of the cell (chainable)
func (s *Sheet) Set(address string, value Primitive) *Sheet {
	if s.err != nil {
		return s
	}
	p, ok := s.resolve(address)
	if !ok {
		return s
	}

	var cell Cell
	if existing := s.model.Data.Get(p); existing != nil {
		cell = *existing
	}
	s.model = s.engine.UpdateCellValue(s.model, p, cell.WithValue(value))
	return s
}

// Remove clears the value of a cell (chainable)
func (s *Sheet) Remove(address string) *Sheet {
	return s.Set(address, nil)
}

// SetBatch sets multiple cells in address order (chainable)
func (s *Sheet) SetBatch(cells map[string]Primitive) *Sheet {
	for _, address := range slices.Sorted(maps.Keys(cells)) {
		s.Set(address, cells[address])
	}
	return s
}

// Fill auto-fills a range such as "A1:A10" (chainable)
func (s *Sheet) Fill(rangeAddress string) *Sheet {
	if s.err != nil {
		return s
	}
	r, err := ParsePointRange(rangeAddress)
	if err != nil {
		s.err = wrapApplicationError(InvalidArgument, err)
		return s
	}
	s.model = s.engine.AutoFill(s.model, r)
	return s
}

// Error returns the current error state
func (s *Sheet) Error() error {
	return s.err
}

// CheckError logs the current error using the PrintLn function (chainable)
func (s *Sheet) CheckError() *Sheet {
	if s.err != nil {
		s.printLn(fmt.Sprintf("ERROR: %v", s.err))
	} else {
		s.printLn("No errors")
	}
	return s
}

// Reset clears the error state (chainable)
func (s *Sheet) Reset() *Sheet {
	s.err = nil
	return s
}

// Then allows conditional execution based on current error state
func (s *Sheet) Then(fn func(*Sheet) *Sheet) *Sheet {
	if s.err != nil {
		return s
	}
	return fn(s)
}

// OnError allows error handling in the chain
func (s *Sheet) OnError(fn func(error) error) *Sheet {
	if s.err != nil {
		s.err = fn(s.err)
	}
	return s
}

// Must panics if there's an error (chainable). useful for ensuring
// critical operations succeed
func (s *Sheet) Must() *Sheet {
	if s.err != nil {
		panic(s.err)
	}
	return s
}

// Model returns the current model
func (s *Sheet) Model() *Model {
	return s.model
}

// Snapshot forks the sheet. edits on either side never show on the other
func (s *Sheet) Snapshot() *Sheet {
	return &Sheet{engine: s.engine, model: s.model, err: s.err, printLn: s.printLn}
}

// Value returns the evaluated value of a cell.
// example: NewSheet(e, log).Set("A1", 10).Set("A2", "=A1*2").Value("A2")
func (s *Sheet) Value(address string) Primitive {
	if s.err != nil {
		return nil
	}
	p, ok := s.resolve(address)
	if !ok {
		return nil
	}
	return s.model.Value(p)
}

// Values is a helper to get multiple values from the chain
func (s *Sheet) Values(addresses ...string) []Primitive {
	if s.err != nil {
		return nil
	}
	values := make([]Primitive, len(addresses))
	for i, address := range addresses {
		values[i] = s.Value(address)
		if s.err != nil {
			return nil
		}
	}
	return values
}

// Raw returns the value as entered, formula text included
func (s *Sheet) Raw(address string) Primitive {
	if s.err != nil {
		return nil
	}
	p, ok := s.resolve(address)
	if !ok {
		return nil
	}
	if c := s.model.Data.Get(p); c != nil {
		return c.Value
	}
	return nil
}

// Log logs the value of a cell using the provided PrintLn function (chainable)
func (s *Sheet) Log(address string) *Sheet {
	val := s.Value(address)
	if s.err != nil {
		return s
	}
	if val == nil {
		s.printLn(fmt.Sprintf("%s: <empty>", address))
	} else {
		s.printLn(fmt.Sprintf("%s: %s", address, FormatValue(val)))
	}
	return s
}
