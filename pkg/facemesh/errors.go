package facemesh

import (
	"errors"
	"fmt"
)

// Sentinel errors for session lifecycle.
var (
	// ErrNotInitialized is returned when Run or RenderFrame is called before
	// a successful Initialize.
	ErrNotInitialized = errors.New("facemesh: session not initialized")

	// ErrStopped is returned when Run is called on a stopped session.
	ErrStopped = errors.New("facemesh: session stopped")

	// ErrInferenceFailure is wrapped by every InferenceError.
	ErrInferenceFailure = errors.New("facemesh: inference failed")

	// ErrInvalidRenderState is returned for rejected render state changes.
	ErrInvalidRenderState = errors.New("facemesh: invalid render state")
)

// InferenceError reports a failed model call. It ends the render loop.
type InferenceError struct {
	// Frame is the sequence number of the frame that failed.
	Frame uint64

	// Err is the underlying model error.
	Err error
}

// Error implements the error interface.
func (e *InferenceError) Error() string {
	return fmt.Sprintf("facemesh: inference failed on frame %d: %v", e.Frame, e.Err)
}

// Unwrap returns the model error.
func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Is reports ErrInferenceFailure as matching.
func (e *InferenceError) Is(target error) bool {
	return target == ErrInferenceFailure
}
