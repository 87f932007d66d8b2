package memory

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
//
// The taxonomy distinguishes three caller-facing classes: validation
// failures (malformed input), configuration failures (a configuration that
// must be rejected wholesale), and not-found (so callers can tell "bad id"
// from "nothing relevant"). Index inconsistency is an internal invariant
// violation and always surfaces loudly.
var (
	// ErrNotFound indicates that a requested memory was not found.
	ErrNotFound = errors.New("memory not found")

	// ErrValidation indicates malformed input: bad weights, out-of-range
	// scores, or an incomplete representation.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidConfig indicates that a configuration is invalid and was
	// rejected without being applied.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch indicates two embeddings of different dimensions
	// were compared, or a vector's length disagrees with its declared
	// dimensions. Never silently truncated.
	ErrDimensionMismatch = fmt.Errorf("embedding dimension mismatch: %w", ErrValidation)

	// ErrNegativeAge indicates a decay evaluation with a negative age.
	ErrNegativeAge = fmt.Errorf("age must be non-negative: %w", ErrValidation)

	// ErrIndexInconsistent indicates an id present in an index bucket but
	// absent from the store (or vice versa). This is an add/remove pairing
	// bug and is never masked.
	ErrIndexInconsistent = errors.New("index and store are inconsistent")
)

// Error wraps errors with operation context.
//
// The format is: "memlens: <Op>: <Err>"
type Error struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	return fmt.Sprintf("memlens: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error wrapping err with the operation name.
//
// If err is nil, returns nil, allowing unconditional wrapping at return
// sites.
func NewError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
