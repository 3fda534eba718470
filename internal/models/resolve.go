package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/zachwill/ralph/internal/logging"
)

// KnownTools are the tool names the agent runtime understands.
var KnownTools = []string{"read", "bash", "edit", "write", "grep", "find", "ls"}

// ResolveError reports run options that cannot be turned into a model
// selection. It is raised before any agent is started.
type ResolveError struct {
	Input  string
	Reason string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s (use provider/model, e.g. anthropic/claude-sonnet-4-5)", e.Input, e.Reason)
}

// Choice is a concrete model with the thinking level to run it at.
type Choice struct {
	Model    Model
	Thinking ThinkingLevel
}

// Resolved is the outcome of resolving RunOptions.
type Resolved struct {
	// Model is nil when the runtime should use its own default model.
	Model *Model
	// Provider is set when only a provider was requested with no usable model,
	// or mirrors Model.Provider.
	Provider string
	Thinking ThinkingLevel
	// Tools is empty for the runtime's default toolset.
	Tools []string
	// Fallbacks are the candidates of a model list after the selected one
	// that are worth trying, in order.
	Fallbacks []Choice
	Timeout   time.Duration
}

// Describe renders the selection for logs and dry runs.
func (r Resolved) Describe() string {
	var parts []string
	switch {
	case r.Model != nil:
		parts = append(parts, "model="+r.Model.Ref())
	case r.Provider != "":
		parts = append(parts, "provider="+r.Provider)
	default:
		parts = append(parts, "model=(runtime default)")
	}
	if r.Thinking != ThinkingDefault {
		parts = append(parts, "thinking="+string(r.Thinking))
	}
	if len(r.Tools) > 0 {
		parts = append(parts, "tools="+strings.Join(r.Tools, ","))
	}
	if len(r.Fallbacks) > 0 {
		refs := make([]string, len(r.Fallbacks))
		for i, f := range r.Fallbacks {
			refs[i] = f.Model.Ref()
			if f.Thinking != ThinkingDefault {
				refs[i] += ":" + string(f.Thinking)
			}
		}
		parts = append(parts, "fallbacks="+strings.Join(refs, ","))
	}
	if r.Timeout > 0 {
		parts = append(parts, "timeout="+r.Timeout.String())
	}
	return strings.Join(parts, " ")
}

// Resolver turns RunOptions into a Resolved selection.
type Resolver struct {
	Registry    *Registry
	Credentials CredentialSource
	Logger      *logging.Logger
}

// NewResolver returns a resolver over registry that checks credentials in the
// process environment.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{
		Registry:    registry,
		Credentials: NewEnvCredentials(registry),
		Logger:      logging.Default(),
	}
}

// Resolve picks a model. An explicit Model wins over the Models list, which
// wins over a bare Provider; with none of them the runtime default is used.
func (r *Resolver) Resolve(opts RunOptions) (Resolved, error) {
	thinking, err := ParseThinking(opts.Thinking)
	if err != nil {
		return Resolved{}, &ResolveError{Input: opts.Thinking, Reason: err.Error()}
	}

	res := Resolved{
		Thinking: thinking,
		Tools:    r.resolveTools(opts.Tools),
		Timeout:  opts.Timeout,
	}

	switch {
	case strings.TrimSpace(opts.Model) != "":
		c, err := ParseCandidate(opts.Model)
		if err != nil {
			return Resolved{}, &ResolveError{Input: opts.Model, Reason: err.Error()}
		}
		if c.Provider == "" {
			c.Provider = strings.ToLower(strings.TrimSpace(opts.Provider))
		}
		choice, err := r.lookup(c, opts.Model)
		if err != nil {
			return Resolved{}, err
		}
		res.apply(choice)

	case strings.TrimSpace(opts.Models) != "":
		candidates, err := ParseCandidates(opts.Models)
		if err != nil {
			return Resolved{}, err
		}
		if len(candidates) == 0 {
			return Resolved{}, &ResolveError{Input: opts.Models, Reason: "empty model list"}
		}
		choices := make([]Choice, 0, len(candidates))
		for _, c := range candidates {
			choice, err := r.lookup(c, c.String())
			if err != nil {
				return Resolved{}, err
			}
			choices = append(choices, choice)
		}
		selected := 0
		for i, choice := range choices {
			if r.hasCredentials(choice.Model.Provider) {
				selected = i
				break
			}
		}
		if selected == 0 && !r.hasCredentials(choices[0].Model.Provider) {
			r.logger().Warn("No credentials for any listed model, using the first", "model", choices[0].Model.Ref())
		}
		res.apply(choices[selected])
		// Candidates before the selection were skipped for lacking
		// credentials. After it, only credentialed ones are kept unless no
		// candidate has credentials at all.
		credentialed := r.hasCredentials(choices[selected].Model.Provider)
		for _, choice := range choices[selected+1:] {
			if !credentialed || r.hasCredentials(choice.Model.Provider) {
				res.Fallbacks = append(res.Fallbacks, choice)
			}
		}

	case strings.TrimSpace(opts.Provider) != "":
		provider := strings.ToLower(strings.TrimSpace(opts.Provider))
		if _, ok := r.Registry.Provider(provider); !ok {
			return Resolved{}, &ResolveError{Input: opts.Provider, Reason: "unknown provider"}
		}
		res.Provider = provider
		if available := r.Registry.Models(provider); len(available) > 0 {
			m := available[0]
			res.Model = &m
		}
		if !r.hasCredentials(provider) {
			r.logger().Warn("No credentials found for provider", "provider", provider)
		}
	}

	return res, nil
}

func (res *Resolved) apply(choice Choice) {
	m := choice.Model
	res.Model = &m
	res.Provider = m.Provider
	if choice.Thinking != ThinkingDefault {
		res.Thinking = choice.Thinking
	}
}

func (r *Resolver) lookup(c Candidate, input string) (Choice, error) {
	if c.Provider != "" {
		if _, ok := r.Registry.Provider(c.Provider); !ok {
			return Choice{}, &ResolveError{Input: input, Reason: fmt.Sprintf("unknown provider %q", c.Provider)}
		}
	}
	m, ok := r.Registry.Lookup(c.Provider, c.Model)
	if !ok {
		return Choice{}, &ResolveError{Input: input, Reason: "unknown model"}
	}
	return Choice{Model: m, Thinking: c.Thinking}, nil
}

func (r *Resolver) hasCredentials(provider string) bool {
	if r.Credentials == nil {
		return false
	}
	return r.Credentials.HasCredentials(provider)
}

// resolveTools keeps the known names from a comma-separated list, in order
// and without duplicates. Unknown names are logged and dropped.
func (r *Resolver) resolveTools(csv string) []string {
	var tools []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(csv, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		if !isKnownTool(name) {
			r.logger().Warn("Skipping unknown tool", "tool", name)
			continue
		}
		seen[name] = true
		tools = append(tools, name)
	}
	return tools
}

func isKnownTool(name string) bool {
	for _, known := range KnownTools {
		if known == name {
			return true
		}
	}
	return false
}

func (r *Resolver) logger() *logging.Logger {
	if r.Logger == nil {
		return logging.Default()
	}
	return r.Logger
}
