package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrGeneration wraps failures of the generation oracle (transport, quota, timeouts).
var ErrGeneration = errors.New("generation failed")

// ErrRetrieval wraps failures of the knowledge retriever.
var ErrRetrieval = errors.New("retrieval failed")

// ErrParseFailure is returned when the recovery cascade cannot produce exactly K items.
var ErrParseFailure = errors.New("no structured result")

// ErrEmptyInput is returned when a turn carries no text.
var ErrEmptyInput = errors.New("empty input")

// StageError reports a failed stage executor. The runtime recovers from it
// by substituting the stage fallback.
type StageError struct {
	Stage Stage
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}
