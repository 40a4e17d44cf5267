package extract

import (
	"errors"
	"fmt"
)

// ExtractionError reports model output that could not be coerced into the
// requested Shape.
type ExtractionError struct {
	Shape  Kind
	Reason string

	// Raw is the completion text as received
	Raw string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.Shape, e.Reason)
}

// IsExtractionError reports whether err is or wraps an *ExtractionError.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

func fail(kind Kind, raw, format string, args ...any) error {
	return &ExtractionError{Shape: kind, Reason: fmt.Sprintf(format, args...), Raw: raw}
}
