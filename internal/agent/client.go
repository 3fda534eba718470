// Package agent runs the coding agent as a child process and reports how the
// run went. It never looks at what the agent said, only at the event
// stream's bookkeeping: tool calls, token usage and stop reasons.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zachwill/ralph/internal/logging"
	"github.com/zachwill/ralph/internal/models"
	"github.com/zachwill/ralph/internal/stream"
)

// DefaultBinary is the agent runtime started when Client.Binary is empty.
const DefaultBinary = "pi"

const (
	stderrLimit      = 16 * 1024
	defaultWaitDelay = 2 * time.Second
)

// Invoker runs one agent invocation.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, sel models.Resolved, timeout time.Duration) (Result, error)
}

// Result describes a finished invocation, successful or not.
type Result struct {
	RunID    string
	Model    string
	Stats    *RunStats
	ExitCode int
	Stderr   string
	Duration time.Duration
}

// Client starts the agent runtime as a child process.
type Client struct {
	// Binary is the executable to run. Defaults to DefaultBinary.
	Binary string
	// Dir is the working directory of the agent.
	Dir string
	// Env is appended to the current environment.
	Env []string
	// ExtraArgs are passed before the prompt.
	ExtraArgs []string
	// WaitDelay bounds how long to wait for output pipes after the process
	// has been killed.
	WaitDelay time.Duration
	// OnEvent, if set, sees every event as it arrives.
	OnEvent func(stream.Event)
	Logger  *logging.Logger
}

// NewClient returns a Client running binary in dir.
func NewClient(binary, dir string) *Client {
	return &Client{Binary: binary, Dir: dir, Logger: logging.Default()}
}

// Args builds the command line for one run.
func (c *Client) Args(prompt string, sel models.Resolved) []string {
	args := []string{"--mode", "json", "-p"}
	switch {
	case sel.Model != nil:
		args = append(args, "--provider", sel.Model.Provider, "--model", sel.Model.ID)
	case sel.Provider != "":
		args = append(args, "--provider", sel.Provider)
	}
	if sel.Thinking != models.ThinkingDefault {
		args = append(args, "--thinking", string(sel.Thinking))
	}
	if len(sel.Tools) > 0 {
		args = append(args, "--tools", strings.Join(sel.Tools, ","))
	}
	args = append(args, c.ExtraArgs...)
	return append(args, prompt)
}

// Invoke runs the agent on prompt with the selected model. If the model's
// provider fails before the agent used any tool, each fallback model is tried
// in turn. All attempts share one timeout.
func (c *Client) Invoke(ctx context.Context, prompt string, sel models.Resolved, timeout time.Duration) (Result, error) {
	attempts := []models.Resolved{sel}
	for _, fb := range sel.Fallbacks {
		next := sel
		m := fb.Model
		next.Model = &m
		next.Provider = m.Provider
		if fb.Thinking != models.ThinkingDefault {
			next.Thinking = fb.Thinking
		}
		next.Fallbacks = nil
		attempts = append(attempts, next)
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	var (
		res Result
		err error
	)
	for i, attempt := range attempts {
		if i > 0 && !deadline.IsZero() && !time.Now().Before(deadline) {
			c.logger().Warn("No time left for fallback model", "model", attempt.Model.Ref())
			return res, timeoutError(timeout)
		}
		res, err = c.run(ctx, prompt, attempt, deadline, timeout)
		var stopErr *StopError
		if err == nil || !errors.As(err, &stopErr) || res.Stats.TotalToolCalls() > 0 || i == len(attempts)-1 {
			return res, err
		}
		c.logger().Warn("Agent failed before doing any work, trying fallback model",
			"run", res.RunID, "model", res.Model, "error", err)
	}
	return res, err
}

// run starts one agent process. A zero deadline means no limit; timeout is
// only used in the error message.
func (c *Client) run(ctx context.Context, prompt string, sel models.Resolved, deadline time.Time, timeout time.Duration) (Result, error) {
	res := Result{
		RunID: uuid.NewString(),
		Stats: NewRunStats(),
	}
	if sel.Model != nil {
		res.Model = sel.Model.Ref()
	}
	log := c.logger().WithFields(map[string]interface{}{"run": res.RunID, "model": res.Model})

	runCtx := ctx
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.binary(), c.Args(prompt, sel)...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.WaitDelay = c.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("failed to start agent %s: %w", c.binary(), err)
	}
	log.Debug("Agent started", "pid", cmd.Process.Pid)

	stderr := &tailBuffer{limit: stderrLimit}
	var g errgroup.Group
	g.Go(func() error {
		err := stream.Consume(stdoutR, func(ev stream.Event) error {
			res.Stats.Observe(ev)
			if ev.Type == EventToolExecutionStart {
				log.Debug("Tool call", "tools", res.Stats.TotalToolCalls())
			}
			if c.OnEvent != nil {
				c.OnEvent(ev)
			}
			return nil
		})
		// Keep draining so the process never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, stdoutR)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(stderr, stderrR)
		return err
	})

	waitErr := cmd.Wait()
	stdoutW.Close()
	stderrW.Close()
	readErr := g.Wait()

	res.Duration = time.Since(start)
	res.Stderr = strings.TrimSpace(stderr.String())
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("agent interrupted: %w", ctxErr)
	}
	if waitErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		log.Warn("Agent timed out", "timeout", timeout)
		return res, timeoutError(timeout)
	}
	if res.Stats.Failed() {
		return res, &StopError{Reason: res.Stats.StopReason, Message: res.Stats.ErrorMessage}
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			if res.Stats.StoppedNormally() {
				log.Warn("Agent exited non-zero after a normal stop", "code", exitErr.ExitCode())
				return res, nil
			}
			return res, &ExitError{Code: exitErr.ExitCode(), Stderr: res.Stderr}
		}
		return res, fmt.Errorf("agent failed: %w", waitErr)
	}
	if readErr != nil {
		return res, fmt.Errorf("failed to read agent output: %w", readErr)
	}

	log.Info("Agent finished",
		"duration", res.Duration.Round(time.Millisecond),
		"turns", res.Stats.Turns,
		"tools", res.Stats.TotalToolCalls(),
		"input_tokens", res.Stats.InputTokens,
		"output_tokens", res.Stats.OutputTokens)
	return res, nil
}

func (c *Client) binary() string {
	if c.Binary == "" {
		return DefaultBinary
	}
	return c.Binary
}

func (c *Client) logger() *logging.Logger {
	if c.Logger == nil {
		return logging.Default()
	}
	return c.Logger
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
