package spreadsheet

import "errors"

var (
	// ErrInvalidAddress is returned when an A1 address cannot be parsed
	ErrInvalidAddress = errors.New("invalid cell address")

	// ErrInvalidRange is returned when an A1 range cannot be parsed
	ErrInvalidRange = errors.New("invalid range")

	// ErrFormulaSyntax wraps every lexer and parser failure of the default
	// evaluator
	ErrFormulaSyntax = errors.New("formula syntax error")
)

// AppErrorCode represents gRPC-style error codes for application-level errors.
// note that we are skipping error codes that don't make sense for our use-case.
type AppErrorCode int

const (
	// OK indicates the operation completed successfully.
	OK AppErrorCode = 0

	// Unknown error.
	Unknown AppErrorCode = 2

	// InvalidArgument indicates client specified an invalid argument, such as
	// a malformed address.
	InvalidArgument AppErrorCode = 3

	// OutOfRange means operation was attempted past the valid grid.
	OutOfRange AppErrorCode = 11

	// Internal errors. Means some invariants expected by underlying
	// system has been broken.
	Internal AppErrorCode = 13
)

// AppError represents errors at the application level (not
// spreadsheet formula errors)
type AppError struct {
	Code    AppErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewApplicationError creates a new application error
func NewApplicationError(code AppErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// wrapApplicationError attaches a code to an underlying error
func wrapApplicationError(code AppErrorCode, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Err:     err,
	}
}
