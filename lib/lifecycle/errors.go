package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalState is returned synchronously when an operation is requested in a
	// state that does not allow it, e.g. StartAsync on a service that already started.
	ErrIllegalState = errors.New("illegal lifecycle state")
	// ErrNotRunning is returned by AwaitRunning when the service was stopped before it
	// reached Running.
	ErrNotRunning = errors.New("service stopped before reaching running")
)

// StartupError is the failure recorded when a service moves to Failed.
type StartupError struct {
	// name of the failed service
	Service string
	// startup step that failed, empty when unknown
	Step string
	// originating error
	Cause error
}

func (e *StartupError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("%s failed to start: %v", e.Service, e.Cause)
	}
	return fmt.Sprintf("%s failed to start (%s): %v", e.Service, e.Step, e.Cause)
}

func (e *StartupError) Unwrap() error {
	return e.Cause
}

// StepFailed annotates a startup error with the step that produced it.
func StepFailed(step string, err error) error {
	if err == nil {
		return nil
	}
	return &StartupError{Step: step, Cause: err}
}
