package review

import (
	"errors"
	"fmt"
)

// Skip reasons short-circuit the pipeline to a tier-none result. They are not
// errors surfaced to the caller.
const (
	SkipEmptyInput         = "empty_input"
	SkipInputTooShort      = "input_too_short"
	SkipNoPolicyIndicators = "no_policy_indicators"
)

// ErrUpstreamUnavailable marks a failed or timed-out reasoning call. The
// orchestrator recovers by degrading to pattern-only scoring.
var ErrUpstreamUnavailable = errors.New("upstream reasoning call unavailable")

// ErrMissingDocument is the one truly unrecoverable request-level condition:
// the document field was absent entirely, so there is nothing to review.
var ErrMissingDocument = errors.New("document text field is missing")

// StageError tags an error with the pipeline stage it came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func StageNameFromError(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "pipeline"
}
