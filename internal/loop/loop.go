package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zachwill/ralph/internal/agent"
	"github.com/zachwill/ralph/internal/logging"
	"github.com/zachwill/ralph/internal/models"
	"github.com/zachwill/ralph/internal/progress"
	"github.com/zachwill/ralph/internal/specdir"
)

// DefaultMaxIterations is the iteration ceiling when Options.MaxIterations
// is zero.
const DefaultMaxIterations = 400

// Resolver turns run options into a concrete model selection.
type Resolver interface {
	Resolve(opts models.RunOptions) (models.Resolved, error)
}

// Supervisor is the periodic review run. It replaces the decision function
// every SuperviseEvery commits.
type Supervisor struct {
	Prompt  string
	Options models.RunOptions
}

// Options configures a Loop.
type Options struct {
	Tasks    TaskSource
	Decide   Decider
	Invoker  agent.Invoker
	Resolver Resolver
	Tracker  *progress.Tracker

	// Context is free text passed to every State.
	Context    string
	Continuous bool
	Once       bool
	DryRun     bool

	MaxIterations int
	// PushEvery pushes after every N commits. Zero disables pushing.
	PushEvery int
	// SuperviseEvery runs Supervisor after every N commits. Zero disables it.
	SuperviseEvery int
	Supervisor     Supervisor

	// Output receives dry run output. Defaults to os.Stdout.
	Output io.Writer
	Logger *logging.Logger
}

// Loop runs the decide, execute, commit cycle.
type Loop struct {
	opts   Options
	specs  *specdir.Dir
	logger *logging.Logger

	sessionID string
	iteration int
	// baseline is the commit count when Run started.
	baseline int
	// commits counts commits since baseline.
	commits        int
	lastSupervised int
	lastPushed     int
	pushFailures   int
}

// New validates opts and returns a Loop.
func New(opts Options) (*Loop, error) {
	switch {
	case opts.Tasks == nil:
		return nil, errors.New("loop: task source is required")
	case opts.Decide == nil:
		return nil, errors.New("loop: decision function is required")
	case opts.Invoker == nil:
		return nil, errors.New("loop: invoker is required")
	case opts.Resolver == nil:
		return nil, errors.New("loop: resolver is required")
	case opts.Tracker == nil:
		return nil, errors.New("loop: tracker is required")
	case opts.MaxIterations < 0, opts.PushEvery < 0, opts.SuperviseEvery < 0:
		return nil, errors.New("loop: counts must not be negative")
	}
	if opts.MaxIterations == 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	l := &Loop{opts: opts, sessionID: uuid.NewString()}
	l.logger = opts.Logger.With("session", l.sessionID[:8])
	if src, ok := opts.Tasks.(*SpecSource); ok {
		l.specs = src.Dir
	}
	return l, nil
}

// SessionID identifies this loop in logs.
func (l *Loop) SessionID() string {
	return l.sessionID
}

// Run executes iterations until a termination condition is reached.
func (l *Loop) Run(ctx context.Context) Result {
	if err := l.init(); err != nil {
		return l.result(ExitReasonError, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return l.result(ExitReasonInterrupted, err)
		}

		if l.iteration >= l.opts.MaxIterations {
			l.logger.Warn("Iteration ceiling reached", "max", l.opts.MaxIterations)
			return l.result(ExitReasonMaxIterations, nil)
		}
		l.iteration++

		state, err := l.snapshot()
		if err != nil {
			return l.result(ExitReasonError, err)
		}
		log := l.logger.With("iteration", l.iteration)
		log.Info("Iteration started", "commits", state.Commits, "todos", len(state.Todos), "dirty", state.HasUncommittedChanges)

		var action Action
		supervising := l.supervisorDue()
		if supervising {
			l.lastSupervised = l.commits
			action = Work(l.opts.Supervisor.Prompt, l.opts.Supervisor.Options).
				WithCommitMessage(fmt.Sprintf("ralph: supervisor review at %d commits", l.commits))
			log.Info("Supervisor due", "commits", l.commits)
		} else {
			action = l.opts.Decide(state)
			log.Info("Decided", "action", action.Kind, "next", state.NextTodo)
		}

		if action.Kind == ActionHalt {
			res := l.result(ExitReasonHalted, nil)
			res.Message = action.Reason
			return res
		}

		if l.opts.DryRun {
			if err := l.printDryRun(state, action); err != nil {
				return l.result(ExitReasonError, err)
			}
			return l.result(ExitReasonDryRun, nil)
		}

		if res, done := l.execute(ctx, state, action); done {
			return res
		}

		remaining, err := l.reconcile(ctx)
		if err != nil {
			return l.result(ExitReasonError, err)
		}

		if !supervising {
			switch {
			case action.Kind == ActionGenerate && l.opts.Continuous && remaining == 0:
				log.Error("Generate produced no work items")
				return l.result(ExitReasonGenerateFailed, nil)
			case action.Kind == ActionWork && !l.opts.Continuous && remaining == 0:
				return l.result(ExitReasonDone, nil)
			}
		}
		if l.opts.Once {
			return l.result(ExitReasonOnce, nil)
		}
	}
}

func (l *Loop) init() error {
	if err := l.opts.Tasks.Ensure(); err != nil {
		return fmt.Errorf("prepare tasks: %w", err)
	}
	count, err := l.opts.Tracker.CommitCount()
	if err != nil {
		return fmt.Errorf("count commits: %w", err)
	}
	l.baseline = count
	l.logger.Debug("Loop started", "baseline", count, "max_iterations", l.opts.MaxIterations)
	return nil
}

func (l *Loop) snapshot() (State, error) {
	dirty, err := l.opts.Tracker.HasUncommittedChanges()
	if err != nil {
		return State{}, fmt.Errorf("check working tree: %w", err)
	}
	tasks, err := l.opts.Tasks.Load()
	if err != nil {
		return State{}, fmt.Errorf("read tasks: %w", err)
	}
	return State{
		Iteration:             l.iteration,
		Commits:               l.commits,
		HasTodos:              len(tasks.Todos) > 0,
		NextTodo:              tasks.next(),
		Todos:                 tasks.Todos,
		Context:               l.opts.Context,
		HasUncommittedChanges: dirty,
		Specs:                 tasks.Specs,
	}, nil
}

// execute runs one Work or Generate action and commits what it left behind.
// done is set when the loop must stop.
func (l *Loop) execute(ctx context.Context, state State, action Action) (res Result, done bool) {
	log := l.logger.With("iteration", l.iteration)

	sel, err := l.opts.Resolver.Resolve(action.Options)
	if err != nil {
		return l.result(ExitReasonError, err), true
	}

	before, err := l.opts.Tracker.CommitCount()
	if err != nil {
		return l.result(ExitReasonError, fmt.Errorf("count commits: %w", err)), true
	}

	var claimed *specdir.Item
	if action.Spec != nil {
		if l.specs == nil {
			return l.result(ExitReasonError, errors.New("spec action without a spec directory")), true
		}
		item, err := l.specs.Claim(*action.Spec)
		if err != nil {
			return l.result(ExitReasonError, fmt.Errorf("claim %s: %w", action.Spec.Name, err)), true
		}
		claimed = &item
		log.Info("Claimed spec", "spec", item.Name)
	}

	prompt := WithResumeAddendum(action.Prompt, state.HasUncommittedChanges)
	log.Debug("Invoking agent", "selection", sel.Describe(), "timeout", sel.Timeout)
	run, invokeErr := l.opts.Invoker.Invoke(ctx, prompt, sel, sel.Timeout)
	l.logStats(log, run)

	message := action.CommitMessage
	if message == "" {
		message = fmt.Sprintf("ralph: iteration %d (%s)", l.iteration, action.Kind)
	}

	if invokeErr != nil {
		log.Error("Agent run failed", "error", invokeErr)
		if claimed != nil {
			if _, err := l.specs.Release(*claimed); err != nil {
				log.Warn("Failed to release spec", "spec", claimed.Name, "error", err)
			}
		}
		if _, err := l.opts.Tracker.EnsureCommitAfter(message, before); err != nil {
			return l.result(ExitReasonError, fmt.Errorf("commit after failed run: %w", err)), true
		}
		if ctx.Err() != nil {
			return l.result(ExitReasonInterrupted, invokeErr), true
		}
		return l.result(ExitReasonAgentFailed, invokeErr), true
	}

	if claimed != nil {
		if err := l.specs.Complete(*claimed); err != nil {
			return l.result(ExitReasonError, fmt.Errorf("complete %s: %w", claimed.Name, err)), true
		}
		log.Info("Completed spec", "spec", claimed.Name)
	}

	outcome, err := l.opts.Tracker.EnsureCommitAfter(message, before)
	if err != nil {
		return l.result(ExitReasonError, fmt.Errorf("commit: %w", err)), true
	}
	log.Info("Iteration committed", "outcome", outcome)

	// The agent may have committed its work without the spec deletion.
	if claimed != nil && outcome == progress.CommitOutcomeAgent {
		dirty, err := l.opts.Tracker.HasUncommittedChanges()
		if err != nil {
			return l.result(ExitReasonError, fmt.Errorf("check working tree: %w", err)), true
		}
		if dirty {
			if err := l.opts.Tracker.AutoCommit("ralph: complete spec " + claimed.Name); err != nil {
				return l.result(ExitReasonError, fmt.Errorf("commit: %w", err)), true
			}
		}
	}
	return Result{}, false
}

// reconcile refreshes the commit count, pushes on cadence and returns the
// number of open items left.
func (l *Loop) reconcile(ctx context.Context) (int, error) {
	count, err := l.opts.Tracker.CommitCount()
	if err != nil {
		return 0, fmt.Errorf("count commits: %w", err)
	}
	l.commits = count - l.baseline

	if crossed(l.lastPushed, l.commits, l.opts.PushEvery) {
		l.lastPushed = l.commits
		if err := l.opts.Tracker.Push(ctx); err != nil {
			l.pushFailures++
			l.logger.Debug("Push deferred to next boundary", "commits", l.commits, "failures", l.pushFailures)
		}
	}

	tasks, err := l.opts.Tasks.Load()
	if err != nil {
		return 0, fmt.Errorf("read tasks: %w", err)
	}
	return len(tasks.Todos), nil
}

func (l *Loop) supervisorDue() bool {
	if l.opts.Supervisor.Prompt == "" {
		return false
	}
	return crossed(l.lastSupervised, l.commits, l.opts.SuperviseEvery)
}

// crossed reports whether the commit count has reached a new multiple of
// every since last. A jump over several multiples fires once.
func crossed(last, now, every int) bool {
	if every <= 0 || now <= 0 {
		return false
	}
	return now/every > last/every
}

func (l *Loop) printDryRun(state State, action Action) error {
	sel, err := l.opts.Resolver.Resolve(action.Options)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Action: %s\n", action.Kind)
	if action.Spec != nil {
		fmt.Fprintf(&b, "Spec: %s\n", action.Spec.Name)
	}
	fmt.Fprintf(&b, "Options: %s\n", sel.Describe())
	if sel.Timeout > 0 {
		fmt.Fprintf(&b, "Timeout: %s\n", sel.Timeout)
	}
	b.WriteString("Prompt:\n")
	b.WriteString(WithResumeAddendum(action.Prompt, state.HasUncommittedChanges))
	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}

	_, err = io.WriteString(l.opts.Output, b.String())
	return err
}

func (l *Loop) logStats(log *logging.Logger, run agent.Result) {
	if run.Stats == nil {
		return
	}
	log.Info("Agent run finished",
		"run", run.RunID,
		"duration", run.Duration.Round(time.Millisecond),
		"tools", run.Stats.TotalToolCalls(),
		"input_tokens", run.Stats.InputTokens,
		"output_tokens", run.Stats.OutputTokens,
		"stop", run.Stats.StopReason,
	)
}

func (l *Loop) result(reason ExitReason, err error) Result {
	return Result{
		Reason:       reason,
		Iterations:   l.iteration,
		Commits:      l.commits,
		PushFailures: l.pushFailures,
		Error:        err,
	}
}
