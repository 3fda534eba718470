package agent

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when an invocation runs past its timeout. The
// process has been killed by the time it is returned.
var ErrTimeout = errors.New("agent timed out")

// StopError is returned when the agent reports that its final turn failed.
type StopError struct {
	Reason  string
	Message string
}

func (e *StopError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("agent stopped: %s", e.Reason)
	}
	return fmt.Sprintf("agent stopped: %s: %s", e.Reason, e.Message)
}

// ExitError is returned when the agent process exits non-zero without having
// finished a turn normally.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("agent exited with code %d", e.Code)
	}
	return fmt.Sprintf("agent exited with code %d: %s", e.Code, e.Stderr)
}

func timeoutError(d time.Duration) error {
	return fmt.Errorf("%w after %s", ErrTimeout, d)
}
