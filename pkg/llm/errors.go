package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrPortFailure marks any failure of the completion backend to produce output.
	ErrPortFailure = errors.New("completion port failure")

	// ErrContextTooLarge is returned when the prompt exceeds the model's context window.
	// It is never retried.
	ErrContextTooLarge = errors.New("context too large")
)

// PortError describes a failed call to a completion backend.
type PortError struct {
	// Provider names the adapter that failed, e.g. "openai"
	Provider string

	// Status is the HTTP status code when one is available
	Status int

	Err error
}

func (e *PortError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *PortError) Unwrap() error {
	return e.Err
}

// Is makes every PortError match ErrPortFailure.
func (e *PortError) Is(target error) bool {
	return target == ErrPortFailure
}

// retryableError indicates an error that should be retried
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func shouldRetry(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// IsTerminal reports whether retrying the same request cannot succeed.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrContextTooLarge)
}
