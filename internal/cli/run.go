package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/zachwill/ralph/internal/agent"
	"github.com/zachwill/ralph/internal/config"
	"github.com/zachwill/ralph/internal/logging"
	"github.com/zachwill/ralph/internal/loop"
	"github.com/zachwill/ralph/internal/models"
	"github.com/zachwill/ralph/internal/progress"
	"github.com/zachwill/ralph/internal/strategy"
)

// loopFlags are the flags shared by "ralph run" and "ralph specs run".
type loopFlags struct {
	once       bool
	dryRun     bool
	continuous bool
	context    string

	model    string
	provider string
	models   string
	thinking string
	tools    string
	timeout  config.Duration

	maxIterations  int
	pushEvery      int
	superviseEvery int

	researchModel  string
	implementModel string

	// fs tells explicitly set flags apart from defaults.
	fs *pflag.FlagSet
}

func (f *loopFlags) register(fs *pflag.FlagSet) {
	f.fs = fs
	fs.BoolVar(&f.once, "once", false, "run a single iteration")
	fs.BoolVar(&f.dryRun, "dry-run", false, "print the first prompt and options without running the agent")
	fs.BoolVar(&f.continuous, "continuous", false, "keep generating work when the tasks run out (--continuous=false overrides the config)")
	fs.StringVarP(&f.context, "context", "c", "", "free-text context passed to every decision")
	fs.StringVar(&f.model, "model", "", "model to run, as [provider/]model[:thinking]")
	fs.StringVar(&f.provider, "provider", "", "provider to pick a model from")
	fs.StringVar(&f.models, "models", "", "comma-separated model list; the first with credentials is used")
	fs.StringVar(&f.thinking, "thinking", "", "thinking level: off, minimal, low, medium, high, xhigh")
	fs.StringVar(&f.tools, "tools", "", "comma-separated tool allowlist")
	fs.Var(&f.timeout, "timeout", "per-run timeout in seconds or as a duration (e.g. 5m); 0 disables it")
	fs.IntVar(&f.maxIterations, "max-iterations", 0, "iteration ceiling (default from config, 400)")
	fs.IntVar(&f.pushEvery, "push-every", 0, "push after every N commits; 0 disables pushing")
	fs.IntVar(&f.superviseEvery, "supervise-every", 0, "run the supervisor after every N commits; 0 disables it")
}

// registerPhases adds the per-phase model flags of "ralph specs run".
func (f *loopFlags) registerPhases(fs *pflag.FlagSet) {
	fs.StringVar(&f.researchModel, "research-model", "", "model for research runs, as [provider/]model[:thinking]")
	fs.StringVar(&f.implementModel, "implement-model", "", "model for implement runs, as [provider/]model[:thinking]")
}

func (f *loopFlags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// apply merges the flags over cfg. A model list or a bare provider on the
// command line replaces any model chosen in the config file, including the
// per-phase ones. Explicitly set zero values also win over the file.
func (f *loopFlags) apply(cfg *config.Config, tasksFile, specsDir string) error {
	if f.models != "" {
		cfg.Agent.Model = ""
	}
	if f.provider != "" && f.model == "" {
		cfg.Agent.Model = ""
		cfg.Agent.Models = ""
	}
	if f.model != "" || f.models != "" || f.provider != "" {
		cfg.Specs.Research.ClearModel()
		cfg.Specs.Implement.ClearModel()
	}
	if f.researchModel != "" {
		cfg.Specs.Research.ClearModel()
	}
	if f.implementModel != "" {
		cfg.Specs.Implement.ClearModel()
	}

	// mergo skips zero values, so flags set to zero are copied by hand.
	if f.changed("continuous") {
		cfg.Loop.Continuous = f.continuous
	}
	if f.changed("timeout") {
		cfg.Loop.Timeout = f.timeout
	}
	if f.changed("push-every") {
		cfg.Loop.PushEvery = f.pushEvery
	}
	if f.changed("supervise-every") {
		cfg.Loop.SuperviseEvery = f.superviseEvery
	}

	return config.ApplyOverrides(cfg, config.Config{
		Loop: config.LoopConfig{
			MaxIterations:  f.maxIterations,
			PushEvery:      f.pushEvery,
			SuperviseEvery: f.superviseEvery,
			Continuous:     f.continuous,
			Timeout:        f.timeout,
		},
		Agent: config.AgentConfig{
			Model:    f.model,
			Provider: f.provider,
			Models:   f.models,
			Thinking: f.thinking,
			Tools:    f.tools,
		},
		Specs: config.SpecsConfig{
			Research:  config.PhaseConfig{Model: f.researchModel},
			Implement: config.PhaseConfig{Model: f.implementModel},
		},
		Tasks: config.TasksConfig{File: tasksFile, Dir: specsDir},
	})
}

// newInvoker builds the agent invoker. Tests replace it.
var newInvoker = func(cfg *config.Config, dir string) agent.Invoker {
	client := agent.NewClient(cfg.Agent.Binary, dir)
	client.ExtraArgs = cfg.Agent.Args
	return client
}

var (
	runFlags loopFlags
	runFile  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Work through a markdown checklist",
	Long: `Runs the agent once per open "- [ ]" item in the checklist until none
are left. With --context and an empty checklist the agent first writes the
tasks. With --continuous it keeps writing new tasks whenever the list runs out.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoop(cmd, &runFlags, modeChecklist, runFile)
	},
}

func init() {
	runFlags.register(runCmd.Flags())
	runCmd.Flags().StringVar(&runFile, "file", "", "checklist file (default from config, TODO.md)")
	rootCmd.AddCommand(runCmd)
}

type mode int

const (
	modeChecklist mode = iota
	modeSpecs
)

// project is the repository ralph runs in.
type project struct {
	root string
	repo *progress.GitRepository
	cfg  *config.Config
}

func openProject() (*project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	repo, err := progress.Open(cwd)
	if err != nil {
		return nil, err
	}
	root, err := repo.Root()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, configError(err)
	}
	return &project{root: root, repo: repo, cfg: cfg}, nil
}

func (p *project) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.root, rel)
}

func runLoop(cmd *cobra.Command, f *loopFlags, m mode, location string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	proj, err := openProject()
	if err != nil {
		return err
	}
	cfg := proj.cfg

	tasksFile, specsDir := location, ""
	if m == modeSpecs {
		tasksFile, specsDir = "", location
	}
	if err := f.apply(cfg, tasksFile, specsDir); err != nil {
		return configError(err)
	}

	registry, err := config.LoadRegistry(proj.root)
	if err != nil {
		return configError(err)
	}
	prompts, err := strategy.Load(proj.root, cfg.Prompts, cfg.Supervisor.Prompt)
	if err != nil {
		return configError(err)
	}

	logger := logging.Default()
	resolver := models.NewResolver(registry)
	resolver.Logger = logger
	tracker := progress.NewTracker(proj.repo)
	tracker.Logger = logger

	opts := loop.Options{
		Invoker:        newInvoker(cfg, proj.root),
		Resolver:       resolver,
		Tracker:        tracker,
		Context:        f.context,
		Continuous:     cfg.Loop.Continuous,
		Once:           f.once,
		DryRun:         f.dryRun,
		MaxIterations:  cfg.Loop.MaxIterations,
		PushEvery:      cfg.Loop.PushEvery,
		SuperviseEvery: cfg.Loop.SuperviseEvery,
		Output:         cmd.OutOrStdout(),
		Logger:         logger,
	}

	runOpts := cfg.Agent.RunOptions(cfg.Loop.Timeout)
	supervisorTasks, supervisorSpecs := cfg.Tasks.File, ""
	switch m {
	case modeChecklist:
		opts.Tasks = loop.NewChecklistSource(proj.path(cfg.Tasks.File))
		opts.Decide = (&strategy.Checklist{
			Prompts:    prompts,
			TasksFile:  cfg.Tasks.File,
			Options:    runOpts,
			Continuous: cfg.Loop.Continuous,
		}).Decide
	case modeSpecs:
		supervisorSpecs = cfg.Tasks.Dir
		opts.Tasks = loop.NewSpecSource(proj.path(cfg.Tasks.Dir))
		opts.Decide = (&strategy.Specs{
			Prompts:    prompts,
			Dir:        cfg.Tasks.Dir,
			Research:   cfg.Specs.Research.RunOptions(cfg.Agent, cfg.Loop),
			Implement:  cfg.Specs.Implement.RunOptions(cfg.Agent, cfg.Loop),
			Continuous: cfg.Loop.Continuous,
		}).Decide
	}

	if cfg.Loop.SuperviseEvery > 0 {
		prompt, err := strategy.Supervisor(prompts, cfg.Loop.SuperviseEvery, supervisorTasks, supervisorSpecs, f.context)
		if err != nil {
			return configError(err)
		}
		opts.Supervisor = loop.Supervisor{
			Prompt:  prompt,
			Options: cfg.Supervisor.RunOptions(cfg.Agent, cfg.Loop),
		}
	}

	l, err := loop.New(opts)
	if err != nil {
		return err
	}
	logger.Debug("Starting loop", "session", l.SessionID(), "root", proj.root)

	return report(cmd, l.Run(ctx))
}

// report prints a one-line summary and turns failures into an ExitError.
func report(cmd *cobra.Command, res loop.Result) error {
	summary := fmt.Sprintf("ralph: %s after %d iteration(s), %d commit(s)", res.Reason, res.Iterations, res.Commits)
	if res.PushFailures > 0 {
		summary += fmt.Sprintf(", %d failed push(es)", res.PushFailures)
	}
	if res.Message != "" {
		summary += ": " + res.Message
	}
	if res.Reason != loop.ExitReasonDryRun {
		fmt.Fprintln(cmd.ErrOrStderr(), summary)
	}

	if res.Success() {
		return nil
	}
	err := res.Error
	if err == nil {
		err = errors.New(res.Reason.String())
	}
	return &ExitError{Code: res.ExitCode(), Err: err}
}
