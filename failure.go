package taskflow

import "fmt"

// Failure is a tagged wrapper distinguishing a captured exception from an
// ordinary task result. A task that cannot complete successfully saves a
// Failure instead of a plain result; Storage recognizes it and skips the
// result-mapping completeness check against it.
type Failure struct {
	// Err is the underlying error captured from the task.
	Err error

	// ExceptionType optionally records the concrete error type's name, for
	// cases where the caller wants to report it without type-asserting Err.
	ExceptionType string

	// Traceback optionally carries a stack trace or other diagnostic text
	// captured at the point of failure.
	Traceback string
}

// NewFailure wraps err as a Failure, recording its dynamic type name.
func NewFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{Err: err, ExceptionType: fmt.Sprintf("%T", err)}
}

// Error implements the error interface so a Failure can be used wherever an
// error is expected.
func (f *Failure) Error() string {
	if f == nil || f.Err == nil {
		return "unknown failure"
	}
	return f.Err.Error()
}

// Unwrap exposes the wrapped error for errors.Is/errors.As.
func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// IsFailure reports whether data is a captured Failure rather than an
// ordinary result payload.
func IsFailure(data any) bool {
	_, ok := data.(*Failure)
	return ok
}
