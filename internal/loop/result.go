package loop

import (
	"errors"

	"github.com/zachwill/ralph/internal/models"
)

// ExitReason indicates why the loop stopped.
type ExitReason int

const (
	ExitReasonUnknown        ExitReason = iota
	ExitReasonDone                      // No open items left
	ExitReasonHalted                    // Decider asked to stop
	ExitReasonMaxIterations             // Hit iteration ceiling
	ExitReasonGenerateFailed            // Continuous-mode generate produced nothing
	ExitReasonAgentFailed               // Agent timed out or reported failure
	ExitReasonOnce                      // Single iteration requested
	ExitReasonDryRun                    // Printed the first action without running it
	ExitReasonInterrupted               // Context cancelled
	ExitReasonError                     // Setup, resolver or version control failure
)

// String returns a human-readable description of the exit reason.
func (r ExitReason) String() string {
	switch r {
	case ExitReasonDone:
		return "completed"
	case ExitReasonHalted:
		return "halted"
	case ExitReasonMaxIterations:
		return "max iterations"
	case ExitReasonGenerateFailed:
		return "generate produced no work"
	case ExitReasonAgentFailed:
		return "agent failed"
	case ExitReasonOnce:
		return "single iteration"
	case ExitReasonDryRun:
		return "dry run"
	case ExitReasonInterrupted:
		return "interrupted"
	case ExitReasonError:
		return "error"
	default:
		return "unknown"
	}
}

// Process exit codes.
const (
	ExitCodeOK             = 0
	ExitCodeError          = 1
	ExitCodeMaxIterations  = 2
	ExitCodeGenerateFailed = 3
	ExitCodeAgentFailed    = 4
	ExitCodeConfig         = 5
	ExitCodeInterrupted    = 6
)

// Result contains the outcome of a loop execution.
type Result struct {
	Reason     ExitReason
	Iterations int
	// Commits counts commits made since the loop started.
	Commits int
	// PushFailures counts cadence pushes that failed. They are retried at
	// the next boundary and never stop the loop.
	PushFailures int
	// Message carries the halt reason.
	Message string
	Error   error
}

// ExitCode maps the result to a process exit code.
func (r Result) ExitCode() int {
	switch r.Reason {
	case ExitReasonDone, ExitReasonHalted, ExitReasonOnce, ExitReasonDryRun:
		return ExitCodeOK
	case ExitReasonMaxIterations:
		return ExitCodeMaxIterations
	case ExitReasonGenerateFailed:
		return ExitCodeGenerateFailed
	case ExitReasonAgentFailed:
		return ExitCodeAgentFailed
	case ExitReasonInterrupted:
		return ExitCodeInterrupted
	}
	var resolveErr *models.ResolveError
	if errors.As(r.Error, &resolveErr) {
		return ExitCodeConfig
	}
	return ExitCodeError
}

// Success reports whether the loop ended without a failure.
func (r Result) Success() bool {
	return r.ExitCode() == ExitCodeOK
}
