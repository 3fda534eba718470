//go:build e2e

// Package integration runs the ralph binary end to end against a fake agent.
//
// The CLIHarness builds the binary and runs commands in a throwaway git
// repository.
package integration

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zachwill/ralph/internal/testutil"
)

// CLIHarness manages a ralph binary for E2E testing.
type CLIHarness struct {
	// BinaryPath is the path to the built ralph binary.
	BinaryPath string

	// WorkDir is the git repository commands run in.
	WorkDir string

	// EnvVars contains environment variables to set for command execution.
	// These are merged with the test's default environment.
	EnvVars map[string]string

	t *testing.T
}

// CLIResult contains the output from a CLI command execution.
type CLIResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Success returns true if the command completed with exit code 0.
func (r *CLIResult) Success() bool {
	return r.ExitCode == 0 && r.Err == nil
}

// NewCLIHarness builds the ralph binary and creates a test workspace.
// The workspace is a git repository with a single commit.
func NewCLIHarness(t *testing.T) *CLIHarness {
	t.Helper()

	projectRoot := testutil.FindProjectRoot(t)
	require.NotEmpty(t, projectRoot, "could not find project root (directory containing go.mod)")

	tmpDir := t.TempDir()
	binaryPath := filepath.Join(tmpDir, "ralph")

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/ralph")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build ralph binary: %s", output)

	return &CLIHarness{
		BinaryPath: binaryPath,
		WorkDir:    testutil.SetupTestRepo(t),
		EnvVars:    make(map[string]string),
		t:          t,
	}
}

// SetEnv sets an environment variable for subsequent command executions.
func (h *CLIHarness) SetEnv(key, value string) {
	h.EnvVars[key] = value
}

// Run executes a ralph command with default timeout (30 seconds).
// Returns stdout, stderr, and error.
func (h *CLIHarness) Run(args ...string) *CLIResult {
	return h.RunWithTimeout(30*time.Second, args...)
}

// RunWithTimeout executes a ralph command with the specified timeout.
// The command is executed in the workspace directory with the configured
// environment variables.
func (h *CLIHarness) RunWithTimeout(timeout time.Duration, args ...string) *CLIResult {
	h.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return h.RunWithContext(ctx, args...)
}

// RunWithContext executes a ralph command with the given context.
// This provides full control over cancellation and deadlines.
func (h *CLIHarness) RunWithContext(ctx context.Context, args ...string) *CLIResult {
	h.t.Helper()

	cmd := exec.CommandContext(ctx, h.BinaryPath, args...)
	cmd.Dir = h.WorkDir

	// Set up environment
	cmd.Env = h.buildEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &CLIResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		result.Err = err
		// Try to get exit code
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
	}

	return result
}

// buildEnv returns the current environment plus EnvVars. RALPH_LOG is
// dropped so a developer's setting does not change command output.
func (h *CLIHarness) buildEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "RALPH_LOG=") {
			continue
		}
		env = append(env, e)
	}
	for k, v := range h.EnvVars {
		env = append(env, k+"="+v)
	}
	return env
}

// RequireSuccess fails the test if the command result indicates failure.
func (h *CLIHarness) RequireSuccess(result *CLIResult, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !result.Success() {
		msg := "command failed"
		if len(msgAndArgs) > 0 {
			if s, ok := msgAndArgs[0].(string); ok {
				msg = s
			}
		}
		h.t.Fatalf("%s: exit=%d err=%v\nstdout: %s\nstderr: %s",
			msg, result.ExitCode, result.Err, result.Stdout, result.Stderr)
	}
}

// RequireExitCode fails the test unless the command exited with code.
func (h *CLIHarness) RequireExitCode(result *CLIResult, code int) {
	h.t.Helper()
	if result.ExitCode != code {
		h.t.Fatalf("expected exit code %d, got %d (err=%v)\nstdout: %s\nstderr: %s",
			code, result.ExitCode, result.Err, result.Stdout, result.Stderr)
	}
}

// WriteAgent installs a fake agent script and commits a config that runs it
// followed by extraConfig.
func (h *CLIHarness) WriteAgent(script, extraConfig string) string {
	h.t.Helper()
	path := testutil.WriteFakeAgent(h.t, script)
	testutil.CommitFile(h.t, h.WorkDir, ".ralph/config.yaml", "agent:\n  binary: "+path+"\n"+extraConfig)
	return path
}
