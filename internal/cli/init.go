package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zachwill/ralph/internal/config"
	"github.com/zachwill/ralph/internal/strategy"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .ralph/ directory structure",
	Long: `Creates the .ralph/ directory with a default configuration and editable
copies of the built-in prompts.

This command sets up:
  - config.yaml with loop limits, agent settings and prompt paths
  - prompts/ with one markdown template per prompt`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	ralphDir := filepath.Join(cwd, config.Dir)
	if dirExists(ralphDir) && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", config.Dir)
	}

	promptDir := filepath.Join(ralphDir, "prompts")
	if err := os.MkdirAll(promptDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", promptDir, err)
	}

	if err := os.WriteFile(config.ConfigPath(cwd), []byte(configYAML), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := writePromptFiles(promptDir); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s/ directory\n", config.Dir)
	return nil
}

// dirExists checks if a directory exists
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func writePromptFiles(promptDir string) error {
	for _, name := range strategy.Names {
		src, err := strategy.BuiltinSource(name)
		if err != nil {
			return err
		}
		path := filepath.Join(promptDir, name+".md")
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			return fmt.Errorf("failed to write prompt %s: %w", name, err)
		}
	}
	return nil
}

const configYAML = `# ralph configuration

loop:
  # Stop after this many iterations
  max_iterations: 400

  # Push to origin after every N commits (0 disables pushing).
  # HTTPS remotes read a token from RALPH_GIT_TOKEN, GIT_TOKEN, GITHUB_TOKEN
  # or GH_TOKEN, then ask the git credential helper. SSH remotes use ssh-agent.
  push_every: 0

  # Run the supervisor prompt after every N commits (0 disables it)
  supervise_every: 0

  # Keep generating work when the task list runs out
  continuous: false

  # Per-run agent timeout: seconds or a duration such as 30m
  timeout: 30m

agent:
  binary: pi
  # model: anthropic/claude-sonnet-4-5
  # models: sonnet:high,gpt5:medium
  # thinking: medium
  # tools: read,bash,edit,write

supervisor:
  prompt: .ralph/prompts/supervisor.md
  # model: opus

# Models for "ralph specs run". Unset phases use the agent settings.
specs:
  research:
    # model: opus
    # thinking: high
  implement:
    # models: sonnet,gpt5

tasks:
  file: TODO.md
  dir: specs

prompts:
  work: .ralph/prompts/work.md
  generate: .ralph/prompts/generate.md
  research: .ralph/prompts/research.md
  implement: .ralph/prompts/implement.md
`
