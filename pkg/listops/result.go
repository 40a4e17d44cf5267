package listops

import "errors"

// Result is the envelope every operation returns. Value is meaningful only
// when Completed is true; Error only when it is false.
type Result[T any] struct {
	Completed bool   `json:"completed"`
	Value     T      `json:"value"`
	Error     string `json:"error,omitempty"`

	err error
}

// Err returns the failure as an error suitable for errors.Is and errors.As,
// or nil when the operation completed.
func (r Result[T]) Err() error {
	if r.Completed {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	if r.Error != "" {
		return errors.New(r.Error)
	}
	return errors.New("operation did not complete")
}

func succeeded[T any](v T) Result[T] {
	return Result[T]{Completed: true, Value: v}
}

func failed[T any](err error) Result[T] {
	return Result[T]{Error: err.Error(), err: err}
}
