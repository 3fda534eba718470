package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zachwill/ralph/internal/config"
	"github.com/zachwill/ralph/internal/logging"
	"github.com/zachwill/ralph/internal/loop"
	"github.com/zachwill/ralph/internal/models"
)

// Version is set at build time via ldflags.
var Version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "Run a coding agent in a loop until the work is done",
	Long: `Ralph drives a coding agent through repeated decide, execute, commit
cycles. Work comes from a markdown checklist (ralph run) or a directory of
numbered specs (ralph specs run). Every iteration's changes end up in git,
whether or not the agent remembered to commit them.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("ralph version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context the
// commands run under.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := logging.LevelWarn
	if name := os.Getenv("RALPH_LOG"); name != "" {
		parsed, err := logging.ParseLevel(name)
		if err != nil {
			return &ExitError{Code: loop.ExitCodeConfig, Err: fmt.Errorf("RALPH_LOG: %w", err)}
		}
		level = parsed
	}
	if verbose {
		level = logging.LevelDebug
	}
	logging.SetLevel(level)
	return nil
}

// ExitError carries a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return loop.ExitCodeOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var resolveErr *models.ResolveError
	if errors.As(err, &resolveErr) || config.IsValidationError(err) {
		return loop.ExitCodeConfig
	}
	return loop.ExitCodeError
}

// Category names the kind of failure behind an exit code.
func Category(code int) string {
	switch code {
	case loop.ExitCodeMaxIterations:
		return "iteration limit"
	case loop.ExitCodeGenerateFailed:
		return "no work generated"
	case loop.ExitCodeAgentFailed:
		return "agent failed"
	case loop.ExitCodeConfig:
		return "configuration error"
	case loop.ExitCodeInterrupted:
		return "interrupted"
	default:
		return "error"
	}
}

// configError tags err as a configuration problem.
func configError(err error) error {
	return &ExitError{Code: loop.ExitCodeConfig, Err: err}
}
