package listops

import (
	"fmt"
	"strings"
)

// Options are the per-call settings shared by every operator. Zero values
// fall back to the engine Config.
type Options struct {
	ParallelCompletions int
	MaxTokens           int

	// Temperature overrides Config.Temperature when set.
	Temperature *float64

	// Instructions are appended to the operator's system prompt.
	Instructions string

	// LogExplanations logs the model's explanation for every unit at info level.
	LogExplanations bool

	MaxAttempts int
}

// Temperature returns a pointer to t for use in Options.
func Temperature(t float64) *float64 {
	return &t
}

type settings struct {
	parallel        int
	maxAttempts     int
	maxTokens       int
	temperature     float64
	instructions    string
	logExplanations bool
}

func (e *Engine) resolve(o Options) (settings, error) {
	s := settings{
		parallel:        e.config.ParallelCompletions,
		maxAttempts:     e.config.MaxAttempts,
		maxTokens:       e.config.MaxTokens,
		temperature:     e.config.Temperature,
		instructions:    strings.TrimSpace(o.Instructions),
		logExplanations: o.LogExplanations,
	}
	if o.ParallelCompletions < 0 {
		return s, fmt.Errorf("%w: parallel completions must be positive, got %d", ErrInvalidArgument, o.ParallelCompletions)
	}
	if o.ParallelCompletions > 0 {
		s.parallel = o.ParallelCompletions
	}
	if o.MaxAttempts < 0 || o.MaxAttempts > 5 {
		return s, fmt.Errorf("%w: max attempts must be between 1 and 5, got %d", ErrInvalidArgument, o.MaxAttempts)
	}
	if o.MaxAttempts > 0 {
		s.maxAttempts = o.MaxAttempts
	}
	if o.MaxTokens < 0 {
		return s, fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidArgument, o.MaxTokens)
	}
	if o.MaxTokens > 0 {
		s.maxTokens = o.MaxTokens
	}
	if o.Temperature != nil {
		s.temperature = *o.Temperature
	}
	return s, nil
}
