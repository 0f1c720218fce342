package utils

import "fmt"

// AllocError wraps a lower-level failure with the operation that was
// attempting it and, when known, the heap offset it was attempting it
// at — e.g. the break Sbrk tried to extend from when the provider
// refused to grow. Addr is 0 when the failure has no associated heap
// location.
type AllocError struct {
	Context string
	Addr    uint64
	Cause   error
}

// Error implements the error interface.
func (e *AllocError) Error() string {
	if e.Addr != 0 {
		return fmt.Sprintf("%s at heap offset %d: %v", e.Context, e.Addr, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// WrapError creates a contextual error with no associated heap offset.
func WrapError(context string, cause error) error {
	return WrapErrorAt(context, 0, cause)
}

// WrapErrorAt creates a contextual error anchored at the given heap
// offset, e.g. the break a failed Sbrk request was extending from.
func WrapErrorAt(context string, addr uint64, cause error) error {
	if cause == nil {
		return nil
	}
	return &AllocError{
		Context: context,
		Addr:    addr,
		Cause:   cause,
	}
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *AllocError) Unwrap() error {
	return e.Cause
}
