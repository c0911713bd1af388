package spreadsheet

// Primitive represents basic spreadsheet value types.
// types:
//   - float64, int: numeric values
//   - string: text values, or formulas when prefixed with '='
//   - bool: boolean values (TRUE/FALSE)
//   - time.Time: dates, used by auto-fill
//   - nil: empty cells
//   - *SpreadsheetError: error values produced during evaluation
type Primitive any

// ErrorCode represents standard spreadsheet error codes following
// Excel conventions
type ErrorCode uint8

const (
	ErrorCodeNull  ErrorCode = 1 // #NULL! - no cells in common between ranges
	ErrorCodeDiv0  ErrorCode = 2 // #DIV/0! - division by zero
	ErrorCodeValue ErrorCode = 3 // #VALUE! - wrong type of argument or operand
	ErrorCodeRef   ErrorCode = 4 // #REF! - invalid or circular cell reference
	ErrorCodeName  ErrorCode = 5 // #NAME? - unrecognized function name
	ErrorCodeNum   ErrorCode = 6 // #NUM! - number too large or small to be represented
	ErrorCodeNA    ErrorCode = 7 // #N/A - not enough arguments for function
	ErrorCodeOther ErrorCode = 8 // #ERROR! - all other errors
)

// ErrorMapper maps error code numbers to their string representations
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeNull:  "#NULL!",
	ErrorCodeDiv0:  "#DIV/0!",
	ErrorCodeValue: "#VALUE!",
	ErrorCodeRef:   "#REF!",
	ErrorCodeName:  "#NAME?",
	ErrorCodeNum:   "#NUM!",
	ErrorCodeNA:    "#N/A",
	ErrorCodeOther: "#ERROR!",
}

// FormulaErrorValue is the sentinel written into evaluated data for circular
// references and formulas the parser could not evaluate
const FormulaErrorValue = "#REF!"

// SpreadsheetError preserves error code for display in cells
type SpreadsheetError struct {
	ErrorCode ErrorCode
	Message   string
}

func (e *SpreadsheetError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrorMapper[e.ErrorCode]
}

// Display returns the cell text of the error, e.g. "#DIV/0!"
func (e *SpreadsheetError) Display() string {
	return ErrorMapper[e.ErrorCode]
}

func NewSpreadsheetError(code ErrorCode, message string) *SpreadsheetError {
	if message == "" {
		message = ErrorMapper[code]
	}
	return &SpreadsheetError{
		ErrorCode: code,
		Message:   message,
	}
}

// ParseErrorValue turns a displayed error ("#REF!") back into an error value
func ParseErrorValue(value Primitive) (*SpreadsheetError, bool) {
	s, ok := value.(string)
	if !ok || len(s) == 0 || s[0] != '#' {
		return nil, false
	}
	for code, display := range ErrorMapper {
		if display == s {
			return NewSpreadsheetError(code, ""), true
		}
	}
	return nil, false
}

// Cell is a single grid entry. any field besides Value is carried through
// evaluation and auto-fill untouched
type Cell struct {
	Value    Primitive
	ReadOnly bool
}

// NewCell creates a cell holding value
func NewCell(value Primitive) *Cell {
	return &Cell{Value: value}
}

// WithValue returns a copy of the cell with Value replaced
func (c Cell) WithValue(value Primitive) Cell {
	c.Value = value
	return c
}

// isEmptyCell reports whether the slot holds no value
func isEmptyCell(c *Cell) bool {
	return c == nil || c.Value == nil
}
