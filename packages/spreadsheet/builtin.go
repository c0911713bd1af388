package spreadsheet

import (
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Clock interface provides time functionality for testing
type Clock interface {
	Now() time.Time
}

// WallClock is the default implementation using system time
type WallClock struct{}

func (w *WallClock) Now() time.Time {
	return time.Now()
}

// RandomGenerator interface provides random number generation for testing
type RandomGenerator interface {
	Float64() float64
}

// DefaultRandomGenerator uses the standard library's rand package
type DefaultRandomGenerator struct{}

func (d *DefaultRandomGenerator) Float64() float64 {
	return rand.Float64()
}

// BuiltInFunctions contains all spreadsheet built-in functions
type BuiltInFunctions struct {
	clock Clock
	rng   RandomGenerator
}

type builtinFunc func(bf *BuiltInFunctions, args ...Primitive) (Primitive, error)

// builtinRegistry maps upper-case function names to their implementation
var builtinRegistry = map[string]builtinFunc{
	"SUM":         (*BuiltInFunctions).SUM,
	"AVERAGE":     (*BuiltInFunctions).AVERAGE,
	"COUNT":       (*BuiltInFunctions).COUNT,
	"COUNTA":      (*BuiltInFunctions).COUNTA,
	"MAX":         (*BuiltInFunctions).MAX,
	"MIN":         (*BuiltInFunctions).MIN,
	"MEDIAN":      (*BuiltInFunctions).MEDIAN,
	"IF":          (*BuiltInFunctions).IF,
	"AND":         (*BuiltInFunctions).AND,
	"OR":          (*BuiltInFunctions).OR,
	"NOT":         (*BuiltInFunctions).NOT,
	"CONCATENATE": (*BuiltInFunctions).CONCATENATE,
	"LEN":         (*BuiltInFunctions).LEN,
	"UPPER":       (*BuiltInFunctions).UPPER,
	"LOWER":       (*BuiltInFunctions).LOWER,
	"TRIM":        (*BuiltInFunctions).TRIM,
	"ABS":         (*BuiltInFunctions).ABS,
	"ROUND":       (*BuiltInFunctions).ROUND,
	"FLOOR":       (*BuiltInFunctions).FLOOR,
	"CEILING":     (*BuiltInFunctions).CEILING,
	"SQRT":        (*BuiltInFunctions).SQRT,
	"POWER":       (*BuiltInFunctions).POWER,
	"MOD":         (*BuiltInFunctions).MOD,
	"PI":          (*BuiltInFunctions).PI,
	"NOW":         (*BuiltInFunctions).NOW,
	"TODAY":       (*BuiltInFunctions).TODAY,
	"RAND":        (*BuiltInFunctions).RAND,
}

// maxSuggestionDistance bounds how far a misspelled name may be from a
// builtin before no suggestion is offered
const maxSuggestionDistance = 2

// NewDefaultBuiltInFunctions creates a BuiltInFunctions with default
// implementations
func NewDefaultBuiltInFunctions() *BuiltInFunctions {
	return &BuiltInFunctions{
		clock: &WallClock{},
		rng:   &DefaultRandomGenerator{},
	}
}

// Call invokes a built-in function by name with the given arguments
func (bf *BuiltInFunctions) Call(name string, args ...Primitive) (Primitive, error) {
	fn, ok := builtinRegistry[strings.ToUpper(name)]
	if !ok {
		return nil, unknownFunctionError(name)
	}
	return fn(bf, args...)
}

// FunctionNames returns every builtin name in sorted order
func FunctionNames() []string {
	return slices.Sorted(maps.Keys(builtinRegistry))
}

// unknownFunctionError builds a #NAME? error, suggesting the closest builtin
func unknownFunctionError(name string) *SpreadsheetError {
	upper := strings.ToUpper(name)
	best, bestDistance := "", maxSuggestionDistance+1
	for _, candidate := range FunctionNames() {
		if d := edlib.LevenshteinDistance(upper, candidate); d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	if best == "" {
		return NewSpreadsheetError(ErrorCodeName, fmt.Sprintf("Unknown function: %s", name))
	}
	return NewSpreadsheetError(ErrorCodeName, fmt.Sprintf("Unknown function: %s, did you mean %s?", name, best))
}

// checkForError returns the error if value is a *SpreadsheetError, nil otherwise
func checkForError(value Primitive) *SpreadsheetError {
	if err, ok := value.(*SpreadsheetError); ok {
		return err
	}
	return nil
}

// scalarArgs validates the argument count of a scalar function and rejects
// error and range arguments
func scalarArgs(name string, args []Primitive, minArgs, maxArgs int) error {
	if len(args) < minArgs || len(args) > maxArgs {
		if minArgs == maxArgs {
			return NewSpreadsheetError(ErrorCodeNA, fmt.Sprintf("%s requires exactly %d argument(s)", name, minArgs))
		}
		return NewSpreadsheetError(ErrorCodeNA, fmt.Sprintf("%s requires %d to %d arguments", name, minArgs, maxArgs))
	}
	for _, arg := range args {
		if err := checkForError(arg); err != nil {
			return err
		}
		if _, ok := arg.(Range); ok {
			return NewSpreadsheetError(ErrorCodeValue, fmt.Sprintf("%s does not accept a range", name))
		}
	}
	return nil
}

// numberArg reads one numeric scalar argument
func numberArg(name string, arg Primitive) (float64, error) {
	num, ok := toNumber(arg)
	if !ok {
		return 0, NewSpreadsheetError(ErrorCodeValue, fmt.Sprintf("%s requires a numeric argument", name))
	}
	return num, nil
}

// eachValue visits every argument in order, expanding ranges. direct
// arguments that are errors always stop the walk
func eachValue(args []Primitive, visit func(value Primitive, fromRange bool) error) error {
	for _, arg := range args {
		if err := checkForError(arg); err != nil {
			return err
		}
		r, ok := arg.(Range)
		if !ok {
			if err := visit(arg, false); err != nil {
				return err
			}
			continue
		}
		for value := range r.Values() {
			if err := visit(value, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectNumbers gathers the numeric values of every argument. errors in
// ranges propagate, values that are not numbers are skipped
func collectNumbers(args []Primitive) ([]float64, error) {
	var values []float64
	err := eachValue(args, func(value Primitive, fromRange bool) error {
		if err := checkForError(value); err != nil {
			return err
		}
		if fromRange && value == nil {
			return nil
		}
		if num, ok := toNumber(value); ok && !math.IsNaN(num) {
			values = append(values, num)
		}
		return nil
	})
	return values, err
}

func (bf *BuiltInFunctions) SUM(args ...Primitive) (Primitive, error) {
	values, err := collectNumbers(args)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(sum, 'f', 15, 64), 64)
	return rounded, nil
}

func (bf *BuiltInFunctions) AVERAGE(args ...Primitive) (Primitive, error) {
	values, err := collectNumbers(args)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, NewSpreadsheetError(ErrorCodeDiv0, "Division by zero")
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

func (bf *BuiltInFunctions) COUNT(args ...Primitive) (Primitive, error) {
	count := 0
	// COUNT only counts numbers. booleans, text and errors in ranges are
	// skipped rather than propagated
	err := eachValue(args, func(value Primitive, _ bool) error {
		switch value.(type) {
		case float64, int, int64, time.Time:
			count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return float64(count), nil
}

func (bf *BuiltInFunctions) COUNTA(args ...Primitive) (Primitive, error) {
	count := 0
	// errors inside ranges are counted, not propagated
	err := eachValue(args, func(value Primitive, _ bool) error {
		if value != nil {
			count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return float64(count), nil
}

func (bf *BuiltInFunctions) MAX(args ...Primitive) (Primitive, error) {
	values, err := collectNumbers(args)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return 0.0, nil
	}
	return slices.Max(values), nil
}

func (bf *BuiltInFunctions) MIN(args ...Primitive) (Primitive, error) {
	values, err := collectNumbers(args)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return 0.0, nil
	}
	return slices.Min(values), nil
}

func (bf *BuiltInFunctions) MEDIAN(args ...Primitive) (Primitive, error) {
	values, err := collectNumbers(args)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, NewSpreadsheetError(ErrorCodeNum, "MEDIAN has no numeric values")
	}
	slices.Sort(values)

	mid := len(values) / 2
	if len(values)%2 == 0 {
		return (values[mid-1] + values[mid]) / 2, nil
	}
	return values[mid], nil
}

func (bf *BuiltInFunctions) IF(args ...Primitive) (Primitive, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, NewSpreadsheetError(ErrorCodeNA, "IF requires 2 or 3 arguments")
	}
	if err := checkForError(args[0]); err != nil {
		return nil, err
	}

	if isTruthy(args[0]) {
		return args[1], nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return false, nil
}

func (bf *BuiltInFunctions) AND(args ...Primitive) (Primitive, error) {
	if len(args) == 0 {
		return nil, NewSpreadsheetError(ErrorCodeNA, "AND requires at least 1 argument")
	}
	result := true
	err := eachValue(args, func(value Primitive, fromRange bool) error {
		if err := checkForError(value); err != nil {
			return err
		}
		if !(fromRange && value == nil) && !isTruthy(value) {
			result = false
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (bf *BuiltInFunctions) OR(args ...Primitive) (Primitive, error) {
	if len(args) == 0 {
		return nil, NewSpreadsheetError(ErrorCodeNA, "OR requires at least 1 argument")
	}
	result := false
	err := eachValue(args, func(value Primitive, _ bool) error {
		if err := checkForError(value); err != nil {
			return err
		}
		if isTruthy(value) {
			result = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (bf *BuiltInFunctions) NOT(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("NOT", args, 1, 1); err != nil {
		return nil, err
	}
	return !isTruthy(args[0]), nil
}

func (bf *BuiltInFunctions) CONCATENATE(args ...Primitive) (Primitive, error) {
	var result strings.Builder
	err := eachValue(args, func(value Primitive, _ bool) error {
		if err := checkForError(value); err != nil {
			return err
		}
		result.WriteString(toString(value))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result.String(), nil
}

func (bf *BuiltInFunctions) LEN(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("LEN", args, 1, 1); err != nil {
		return nil, err
	}
	return float64(utf8.RuneCountInString(toString(args[0]))), nil
}

func (bf *BuiltInFunctions) UPPER(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("UPPER", args, 1, 1); err != nil {
		return nil, err
	}
	return strings.ToUpper(toString(args[0])), nil
}

func (bf *BuiltInFunctions) LOWER(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("LOWER", args, 1, 1); err != nil {
		return nil, err
	}
	return strings.ToLower(toString(args[0])), nil
}

func (bf *BuiltInFunctions) TRIM(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("TRIM", args, 1, 1); err != nil {
		return nil, err
	}
	// inner runs of spaces collapse to one, like Excel
	return strings.Join(strings.Fields(toString(args[0])), " "), nil
}

// unaryMath adapts a float function into a one-argument builtin
func unaryMath(name string, args []Primitive, fn func(float64) (float64, error)) (Primitive, error) {
	if err := scalarArgs(name, args, 1, 1); err != nil {
		return nil, err
	}
	num, err := numberArg(name, args[0])
	if err != nil {
		return nil, err
	}
	result, err := fn(num)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (bf *BuiltInFunctions) ABS(args ...Primitive) (Primitive, error) {
	return unaryMath("ABS", args, func(v float64) (float64, error) { return math.Abs(v), nil })
}

func (bf *BuiltInFunctions) FLOOR(args ...Primitive) (Primitive, error) {
	return unaryMath("FLOOR", args, func(v float64) (float64, error) { return math.Floor(v), nil })
}

func (bf *BuiltInFunctions) CEILING(args ...Primitive) (Primitive, error) {
	return unaryMath("CEILING", args, func(v float64) (float64, error) { return math.Ceil(v), nil })
}

func (bf *BuiltInFunctions) SQRT(args ...Primitive) (Primitive, error) {
	return unaryMath("SQRT", args, func(v float64) (float64, error) {
		if v < 0 {
			return 0, NewSpreadsheetError(ErrorCodeNum, "SQRT requires a non-negative argument")
		}
		return math.Sqrt(v), nil
	})
}

func (bf *BuiltInFunctions) ROUND(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("ROUND", args, 1, 2); err != nil {
		return nil, err
	}
	num, err := numberArg("ROUND", args[0])
	if err != nil {
		return nil, err
	}
	places := 0.0
	if len(args) == 2 {
		if places, err = numberArg("ROUND", args[1]); err != nil {
			return nil, err
		}
	}
	multiplier := math.Pow(10, math.Trunc(places))
	return math.Round(num*multiplier) / multiplier, nil
}

func (bf *BuiltInFunctions) POWER(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("POWER", args, 2, 2); err != nil {
		return nil, err
	}
	base, err := numberArg("POWER", args[0])
	if err != nil {
		return nil, err
	}
	exp, err := numberArg("POWER", args[1])
	if err != nil {
		return nil, err
	}
	result := math.Pow(base, exp)
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return nil, NewSpreadsheetError(ErrorCodeNum, "POWER result is not a finite number")
	}
	return result, nil
}

func (bf *BuiltInFunctions) MOD(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("MOD", args, 2, 2); err != nil {
		return nil, err
	}
	dividend, err := numberArg("MOD", args[0])
	if err != nil {
		return nil, err
	}
	divisor, err := numberArg("MOD", args[1])
	if err != nil {
		return nil, err
	}
	if divisor == 0 {
		return nil, NewSpreadsheetError(ErrorCodeDiv0, "Division by zero")
	}
	// the result takes the sign of the divisor
	result := math.Mod(dividend, divisor)
	if result != 0 && (result < 0) != (divisor < 0) {
		result += divisor
	}
	return result, nil
}

func (bf *BuiltInFunctions) PI(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("PI", args, 0, 0); err != nil {
		return nil, err
	}
	return math.Pi, nil
}

// Excel serial dates count days from December 30, 1899 00:00:00 UTC
const (
	excelEpochMillis = -2209161600000
	millisPerDay     = 86400000
)

// serialDate converts a time to an Excel serial number
func serialDate(t time.Time) float64 {
	return float64(t.UnixMilli()-excelEpochMillis) / millisPerDay
}

func (bf *BuiltInFunctions) NOW(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("NOW", args, 0, 0); err != nil {
		return nil, err
	}
	return serialDate(bf.clock.Now()), nil
}

func (bf *BuiltInFunctions) TODAY(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("TODAY", args, 0, 0); err != nil {
		return nil, err
	}
	now := bf.clock.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return math.Floor(serialDate(midnight)), nil
}

func (bf *BuiltInFunctions) RAND(args ...Primitive) (Primitive, error) {
	if err := scalarArgs("RAND", args, 0, 0); err != nil {
		return nil, err
	}
	return bf.rng.Float64(), nil
}

// toNumber converts value to number, returning ok=false if conversion fails
func toNumber(value Primitive) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case time.Time:
		return serialDate(v), true
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return num, true
	case nil:
		return 0, true
	default:
		return 0, false
	}
}

// toString converts value to the text shown in a cell
func toString(value Primitive) string {
	return FormatValue(value)
}

// formatNumber prints integral values without decimals
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// isTruthy checks if value is truthy
func isTruthy(value Primitive) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case string:
		return v != "" && !strings.EqualFold(v, "FALSE")
	case nil:
		return false
	default:
		return true
	}
}
