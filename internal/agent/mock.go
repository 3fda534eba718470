package agent

import (
	"context"
	"sync"
	"time"

	"github.com/zachwill/ralph/internal/models"
)

// Call records one MockInvoker invocation.
type Call struct {
	Prompt   string
	Resolved models.Resolved
	Timeout  time.Duration
}

// MockInvoker is a test double for Invoker.
type MockInvoker struct {
	// InvokeFunc is called when Invoke is invoked.
	// If nil, Invoke returns an empty successful Result.
	InvokeFunc func(ctx context.Context, call Call) (Result, error)

	mu    sync.Mutex
	calls []Call
}

// Invoke records the call and delegates to InvokeFunc.
func (m *MockInvoker) Invoke(ctx context.Context, prompt string, sel models.Resolved, timeout time.Duration) (Result, error) {
	call := Call{Prompt: prompt, Resolved: sel, Timeout: timeout}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, call)
	}
	return Result{RunID: "mock", Stats: NewRunStats()}, nil
}

// Calls returns the recorded calls in order.
func (m *MockInvoker) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
