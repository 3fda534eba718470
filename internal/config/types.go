package config

import (
	"github.com/zachwill/ralph/internal/models"
)

// LoopConfig controls iteration limits and cadences.
type LoopConfig struct {
	MaxIterations int `yaml:"max_iterations"`
	// PushEvery pushes after every N commits made by the loop. Zero disables
	// pushing.
	PushEvery int `yaml:"push_every"`
	// SuperviseEvery runs the supervisor after every N commits made by the
	// loop. Zero disables the supervisor.
	SuperviseEvery int      `yaml:"supervise_every"`
	Continuous     bool     `yaml:"continuous"`
	Timeout        Duration `yaml:"timeout"`
}

// AgentConfig selects the agent runtime and the model it runs.
type AgentConfig struct {
	Binary   string   `yaml:"binary"`
	Args     []string `yaml:"args,omitempty"`
	Model    string   `yaml:"model,omitempty"`
	Provider string   `yaml:"provider,omitempty"`
	Models   string   `yaml:"models,omitempty"`
	Thinking string   `yaml:"thinking,omitempty"`
	Tools    string   `yaml:"tools,omitempty"`
}

// RunOptions converts the agent settings into resolver input.
func (a AgentConfig) RunOptions(timeout Duration) models.RunOptions {
	return models.RunOptions{
		Model:    a.Model,
		Provider: a.Provider,
		Models:   a.Models,
		Thinking: a.Thinking,
		Tools:    a.Tools,
		Timeout:  timeout.Std(),
	}
}

// SupervisorConfig configures the periodic review run. Empty model fields
// fall back to the agent settings.
type SupervisorConfig struct {
	// Prompt is a path to a prompt file, relative to the project root.
	Prompt   string   `yaml:"prompt,omitempty"`
	Model    string   `yaml:"model,omitempty"`
	Provider string   `yaml:"provider,omitempty"`
	Thinking string   `yaml:"thinking,omitempty"`
	Tools    string   `yaml:"tools,omitempty"`
	Timeout  Duration `yaml:"timeout,omitempty"`
}

// RunOptions returns the supervisor's resolver input, filling unset fields
// from agent and loop.
func (s SupervisorConfig) RunOptions(agent AgentConfig, loop LoopConfig) models.RunOptions {
	return PhaseConfig{
		Model:    s.Model,
		Provider: s.Provider,
		Thinking: s.Thinking,
		Tools:    s.Tools,
		Timeout:  s.Timeout,
	}.RunOptions(agent, loop)
}

// PhaseConfig overrides the agent settings for one phase of the spec loop.
// Empty fields fall back to the agent settings.
type PhaseConfig struct {
	Model    string   `yaml:"model,omitempty"`
	Provider string   `yaml:"provider,omitempty"`
	Models   string   `yaml:"models,omitempty"`
	Thinking string   `yaml:"thinking,omitempty"`
	Tools    string   `yaml:"tools,omitempty"`
	Timeout  Duration `yaml:"timeout,omitempty"`
}

// RunOptions returns the phase's resolver input. Any model selection on the
// phase replaces the agent's whole selection.
func (p PhaseConfig) RunOptions(agent AgentConfig, loop LoopConfig) models.RunOptions {
	opts := agent.RunOptions(loop.Timeout)
	if p.hasModel() {
		opts.Model = p.Model
		opts.Provider = p.Provider
		opts.Models = p.Models
	}
	if p.Thinking != "" {
		opts.Thinking = p.Thinking
	}
	if p.Tools != "" {
		opts.Tools = p.Tools
	}
	if p.Timeout > 0 {
		opts.Timeout = p.Timeout.Std()
	}
	return opts
}

func (p PhaseConfig) hasModel() bool {
	return p.Model != "" || p.Provider != "" || p.Models != ""
}

// ClearModel drops the phase's model selection so the agent's applies.
func (p *PhaseConfig) ClearModel() {
	p.Model, p.Provider, p.Models = "", "", ""
}

// SpecsConfig lets the research and implement runs of "ralph specs run" use
// different models.
type SpecsConfig struct {
	Research  PhaseConfig `yaml:"research"`
	Implement PhaseConfig `yaml:"implement"`
}

// TasksConfig locates the work items.
type TasksConfig struct {
	// File is the checklist used by "ralph run".
	File string `yaml:"file"`
	// Dir is the spec directory used by "ralph specs".
	Dir string `yaml:"dir"`
}

// PromptsConfig holds paths to prompt files that replace the built-in
// prompts. Paths are relative to the project root.
type PromptsConfig struct {
	Work      string `yaml:"work,omitempty"`
	Generate  string `yaml:"generate,omitempty"`
	Research  string `yaml:"research,omitempty"`
	Implement string `yaml:"implement,omitempty"`
}

// Config represents the .ralph/config.yaml file.
type Config struct {
	Loop       LoopConfig       `yaml:"loop"`
	Agent      AgentConfig      `yaml:"agent"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Specs      SpecsConfig      `yaml:"specs"`
	Tasks      TasksConfig      `yaml:"tasks"`
	Prompts    PromptsConfig    `yaml:"prompts"`
}
