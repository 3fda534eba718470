// Package strategy holds the built-in decision functions and the prompts
// they send.
package strategy

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/zachwill/ralph/internal/config"
	"github.com/zachwill/ralph/internal/specdir"
)

//go:embed prompts/*.md
var builtin embed.FS

// Prompt names.
const (
	PromptWork       = "work"
	PromptGenerate   = "generate"
	PromptResearch   = "research"
	PromptImplement  = "implement"
	PromptSupervisor = "supervisor"
)

// Names lists every prompt in the order they are documented.
var Names = []string{PromptWork, PromptGenerate, PromptResearch, PromptImplement, PromptSupervisor}

// BuiltinSource returns the unparsed text of a built-in prompt.
func BuiltinSource(name string) (string, error) {
	data, err := builtin.ReadFile("prompts/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return string(data), nil
}

// Data is what prompt templates can refer to. Missing values render empty.
type Data struct {
	TasksFile string
	SpecsDir  string
	NextTodo  string
	Todos     []string
	Context   string
	Spec      *specdir.Item
	SpecPath  string
	// Every is the supervisor cadence in commits.
	Every int
}

// Prompts is a parsed set of prompt templates.
type Prompts struct {
	templates map[string]*template.Template
}

// Builtin returns the prompts compiled into the binary.
func Builtin() (*Prompts, error) {
	return Load("", config.PromptsConfig{}, "")
}

// Load parses the built-in prompts, replacing any that cfg or supervisor
// point at. Paths are relative to basePath.
func Load(basePath string, cfg config.PromptsConfig, supervisor string) (*Prompts, error) {
	overrides := map[string]string{
		PromptWork:       cfg.Work,
		PromptGenerate:   cfg.Generate,
		PromptResearch:   cfg.Research,
		PromptImplement:  cfg.Implement,
		PromptSupervisor: supervisor,
	}

	p := &Prompts{templates: make(map[string]*template.Template, len(overrides))}
	for name, path := range overrides {
		fallback, err := BuiltinSource(name)
		if err != nil {
			return nil, err
		}
		src, err := config.LoadPrompt(basePath, path, fallback)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
		tmpl, err := template.New(name).Option("missingkey=zero").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s prompt: %w", name, err)
		}
		p.templates[name] = tmpl
	}
	return p, nil
}

// Render executes the named prompt with data.
func (p *Prompts) Render(name string, data Data) (string, error) {
	tmpl, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}
