package eventloop

import (
	"errors"
	"fmt"
)

var (
	// ErrNilEvent is returned when enqueueing a nil event.
	ErrNilEvent = errors.New("event is nil")
	// ErrLoopStopped is returned when the loop has been stopped.
	ErrLoopStopped = errors.New("event loop is stopped")
	// ErrLoopAlreadyRunning is returned when Run is invoked while the loop is already running.
	ErrLoopAlreadyRunning = errors.New("event loop is already running")
)

// ActionError is returned when the action of an event fails.
type ActionError struct {
	// Label of the event whose action failed
	Label string
	// Error returned by the action, or a *PanicError
	Err error
}

// Error implements the error interface.
func (e *ActionError) Error() string {
	return fmt.Sprintf("action for event '%s' failed: %v", e.Label, e.Err)
}

// Unwrap returns the underlying error.
func (e *ActionError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking action.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("action panicked: %v", e.Value)
}

// Unwrap returns the panic value if it's an error, so it can be matched with errors.Is and errors.As.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
