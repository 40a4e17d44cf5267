package listops

import (
	"context"
	"errors"

	"github.com/dan-solli/listops/pkg/extract"
	"github.com/dan-solli/listops/pkg/llm"
	"github.com/dan-solli/listops/pkg/scheduler"
)

var (
	// ErrInvalidArgument rejects a call before any completion is requested.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPartialBatch wraps the failure of one unit of a list operation. The
	// operation returns no value when any unit fails.
	ErrPartialBatch = errors.New("list operation failed")

	// ErrOrderingInconsistency reports comparisons that contradict the order
	// SortList produced. Only returned when VerifyOrder is set.
	ErrOrderingInconsistency = errors.New("ordering inconsistency")
)

// Error classes used in metrics, traces and logs.
const (
	ErrTypePort            = "port"
	ErrTypeContextTooLarge = "context_too_large"
	ErrTypeExtraction      = "extraction"
	ErrTypeOrdering        = "ordering"
	ErrTypeInvalidArgument = "invalid_argument"
	ErrTypePanic           = "panic"
	ErrTypeCancelled       = "cancelled"
	ErrTypeTimeout         = "timeout"
	ErrTypeUnknown         = "unknown"
)

// ClassifyError maps err to one of the ErrType classes, or "" for nil.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return ErrTypeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTypeTimeout
	case errors.Is(err, llm.ErrContextTooLarge):
		return ErrTypeContextTooLarge
	case errors.Is(err, ErrOrderingInconsistency):
		return ErrTypeOrdering
	case errors.Is(err, ErrInvalidArgument):
		return ErrTypeInvalidArgument
	case errors.Is(err, scheduler.ErrUnitPanic):
		return ErrTypePanic
	case extract.IsExtractionError(err):
		return ErrTypeExtraction
	case errors.Is(err, llm.ErrPortFailure):
		return ErrTypePort
	default:
		return ErrTypeUnknown
	}
}
