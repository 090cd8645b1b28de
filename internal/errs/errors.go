// Package errs defines the error taxonomy shared by the data access layer.
//
// Every failure that crosses a package boundary is an *Error carrying a Code.
// Callers branch on the category with the IsXxx helpers, which use errors.As
// and therefore see through fmt.Errorf("...: %w") wrapping.
//
// Categories:
//   - CONFIGURATION: malformed or missing connection parameters
//   - CAPABILITY_MISMATCH: a construct the backend declares unsupported
//   - ROW_EXTRACTION: a single row value cannot be decoded
//   - PRECONDITION: absent transactor, existing dataset, missing key property
//   - UNIMPLEMENTED: a path that is explicitly not supported
//   - NOT_FOUND / ALREADY_EXISTS: catalog lookups and DDL conflicts
//   - CANCELLED: an operation interrupted through Cancel
package errs

import (
	"errors"
	"fmt"
)

// Code categorizes data access errors.
type Code string

const (
	// CodeConfiguration indicates malformed or missing connection parameters.
	CodeConfiguration Code = "CONFIGURATION"

	// CodeCapabilityMismatch indicates a construct the backend does not support.
	CodeCapabilityMismatch Code = "CAPABILITY_MISMATCH"

	// CodeRowExtraction indicates a row value could not be decoded.
	CodeRowExtraction Code = "ROW_EXTRACTION"

	// CodePrecondition indicates a violated precondition.
	CodePrecondition Code = "PRECONDITION"

	// CodeUnimplemented indicates an explicitly unsupported path.
	CodeUnimplemented Code = "UNIMPLEMENTED"

	// CodeNotFound indicates a missing dataset, property or constraint.
	CodeNotFound Code = "NOT_FOUND"

	// CodeAlreadyExists indicates a DDL conflict.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeCancelled indicates an operation interrupted by Cancel.
	CodeCancelled Code = "CANCELLED"
)

// Error is the structured error returned by the data access layer.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// DataSet names the affected dataset, if any.
	DataSet string

	// Property names the affected property, if any.
	Property string

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.DataSet != "" && e.Property != "":
		msg = fmt.Sprintf("%s (dataset=%s, property=%s)", msg, e.DataSet, e.Property)
	case e.DataSet != "":
		msg = fmt.Sprintf("%s (dataset=%s)", msg, e.DataSet)
	case e.Property != "":
		msg = fmt.Sprintf("%s (property=%s)", msg, e.Property)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDataSet returns a copy of e naming the affected dataset.
func (e *Error) WithDataSet(name string) *Error {
	c := *e
	c.DataSet = name
	return &c
}

// WithProperty returns a copy of e naming the affected property.
func (e *Error) WithProperty(name string) *Error {
	c := *e
	c.Property = name
	return &c
}

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Configuration creates a CONFIGURATION error.
func Configuration(format string, args ...any) *Error {
	return newf(CodeConfiguration, format, args...)
}

// CapabilityMismatch creates a CAPABILITY_MISMATCH error.
func CapabilityMismatch(format string, args ...any) *Error {
	return newf(CodeCapabilityMismatch, format, args...)
}

// RowExtraction creates a ROW_EXTRACTION error.
func RowExtraction(format string, args ...any) *Error {
	return newf(CodeRowExtraction, format, args...)
}

// Precondition creates a PRECONDITION error.
func Precondition(format string, args ...any) *Error {
	return newf(CodePrecondition, format, args...)
}

// Unimplemented creates an UNIMPLEMENTED error.
func Unimplemented(format string, args ...any) *Error {
	return newf(CodeUnimplemented, format, args...)
}

// NotFound creates a NOT_FOUND error.
func NotFound(format string, args ...any) *Error {
	return newf(CodeNotFound, format, args...)
}

// AlreadyExists creates an ALREADY_EXISTS error.
func AlreadyExists(format string, args ...any) *Error {
	return newf(CodeAlreadyExists, format, args...)
}

// Cancelled creates a CANCELLED error.
func Cancelled(format string, args ...any) *Error {
	return newf(CodeCancelled, format, args...)
}

// Wrap attaches a cause to a new error of the given code.
func Wrap(code Code, err error, format string, args ...any) *Error {
	e := newf(code, format, args...)
	e.Err = err
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsConfiguration reports whether err is a CONFIGURATION error.
func IsConfiguration(err error) bool { return Is(err, CodeConfiguration) }

// IsCapabilityMismatch reports whether err is a CAPABILITY_MISMATCH error.
func IsCapabilityMismatch(err error) bool { return Is(err, CodeCapabilityMismatch) }

// IsRowExtraction reports whether err is a ROW_EXTRACTION error.
func IsRowExtraction(err error) bool { return Is(err, CodeRowExtraction) }

// IsPrecondition reports whether err is a PRECONDITION error.
func IsPrecondition(err error) bool { return Is(err, CodePrecondition) }

// IsUnimplemented reports whether err is an UNIMPLEMENTED error.
func IsUnimplemented(err error) bool { return Is(err, CodeUnimplemented) }

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return Is(err, CodeNotFound) }

// IsAlreadyExists reports whether err is an ALREADY_EXISTS error.
func IsAlreadyExists(err error) bool { return Is(err, CodeAlreadyExists) }

// IsCancelled reports whether err is a CANCELLED error.
func IsCancelled(err error) bool { return Is(err, CodeCancelled) }
