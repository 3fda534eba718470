package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/zachwill/ralph/internal/models"
)

// Dir is the project directory holding ralph's files.
const Dir = ".ralph"

// Default values for Config.
const (
	DefaultMaxIterations = 400
	DefaultTimeout       = Duration(30 * time.Minute)
	DefaultTasksFile     = "TODO.md"
	DefaultSpecsDir      = "specs"
)

// DefaultLoop returns loop settings with sensible default values.
func DefaultLoop() LoopConfig {
	return LoopConfig{
		MaxIterations: DefaultMaxIterations,
		Timeout:       DefaultTimeout,
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Loop:  DefaultLoop(),
		Agent: AgentConfig{Binary: "pi"},
		Tasks: TasksConfig{
			File: DefaultTasksFile,
			Dir:  DefaultSpecsDir,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// ConfigPath returns the path of the config file under basePath.
func ConfigPath(basePath string) string {
	return filepath.Join(basePath, Dir, "config.yaml")
}

// LoadConfig reads and parses .ralph/config.yaml from the given base path.
// If the file doesn't exist, returns default config.
// Applies defaults for any missing fields.
func LoadConfig(basePath string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(basePath))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyOverrides copies every non-zero field of overrides onto cfg and
// validates the result. Zero values in overrides leave cfg untouched, so a
// boolean can only be switched on this way.
func ApplyOverrides(cfg *Config, overrides Config) error {
	if err := mergo.Merge(cfg, overrides, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to apply overrides: %w", err)
	}
	return ValidateConfig(cfg)
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	if cfg.Loop.MaxIterations <= 0 {
		return ValidationError{Field: "loop.max_iterations", Message: "must be positive"}
	}
	if cfg.Loop.PushEvery < 0 {
		return ValidationError{Field: "loop.push_every", Message: "must not be negative"}
	}
	if cfg.Loop.SuperviseEvery < 0 {
		return ValidationError{Field: "loop.supervise_every", Message: "must not be negative"}
	}
	if cfg.Loop.Timeout < 0 {
		return ValidationError{Field: "loop.timeout", Message: "must not be negative"}
	}
	if _, err := models.ParseThinking(cfg.Agent.Thinking); err != nil {
		return ValidationError{Field: "agent.thinking", Message: err.Error()}
	}
	if _, err := models.ParseThinking(cfg.Supervisor.Thinking); err != nil {
		return ValidationError{Field: "supervisor.thinking", Message: err.Error()}
	}
	if cfg.Supervisor.Timeout < 0 {
		return ValidationError{Field: "supervisor.timeout", Message: "must not be negative"}
	}
	phases := []struct {
		field string
		phase PhaseConfig
	}{
		{"specs.research", cfg.Specs.Research},
		{"specs.implement", cfg.Specs.Implement},
	}
	for _, p := range phases {
		if _, err := models.ParseThinking(p.phase.Thinking); err != nil {
			return ValidationError{Field: p.field + ".thinking", Message: err.Error()}
		}
		if p.phase.Timeout < 0 {
			return ValidationError{Field: p.field + ".timeout", Message: "must not be negative"}
		}
	}
	if cfg.Tasks.File == "" {
		return ValidationError{Field: "tasks.file", Message: "required field is empty"}
	}
	if cfg.Tasks.Dir == "" {
		return ValidationError{Field: "tasks.dir", Message: "required field is empty"}
	}
	return nil
}

// LoadPrompt reads a prompt file. Relative paths are resolved against
// basePath. An empty path returns fallback.
func LoadPrompt(basePath, path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(basePath, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	return string(data), nil
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
