// Package models holds the registry of known models and providers and turns
// loosely specified run options into a concrete model selection.
package models

import (
	"sort"
	"strings"
)

// Model describes a model the agent runtime can be pointed at.
type Model struct {
	ID          string   `toml:"id"`
	Provider    string   `toml:"provider"`
	DisplayName string   `toml:"display_name"`
	Reasoning   bool     `toml:"reasoning"`
	Aliases     []string `toml:"aliases"`
}

// Ref returns the fully qualified "provider/id" form.
func (m Model) Ref() string {
	return m.Provider + "/" + m.ID
}

// Provider describes a model provider and where its credentials live.
type Provider struct {
	Name string `toml:"name"`
	// EnvVars are checked in order; any non-empty one counts as credentials.
	EnvVars []string `toml:"env"`
}

var builtinProviders = []Provider{
	{Name: "anthropic", EnvVars: []string{"ANTHROPIC_API_KEY", "ANTHROPIC_OAUTH_TOKEN"}},
	{Name: "openai", EnvVars: []string{"OPENAI_API_KEY"}},
	{Name: "google", EnvVars: []string{"GEMINI_API_KEY"}},
	{Name: "xai", EnvVars: []string{"XAI_API_KEY"}},
	{Name: "openrouter", EnvVars: []string{"OPENROUTER_API_KEY"}},
}

// Within a provider, models are listed best first.
var builtinModels = []Model{
	// Anthropic
	{ID: "claude-opus-4-5", Provider: "anthropic", DisplayName: "Claude Opus 4.5", Reasoning: true, Aliases: []string{"opus"}},
	{ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5", Reasoning: true, Aliases: []string{"sonnet"}},
	{ID: "claude-haiku-4-5", Provider: "anthropic", DisplayName: "Claude Haiku 4.5", Reasoning: true, Aliases: []string{"haiku"}},

	// OpenAI
	{ID: "gpt-5.2", Provider: "openai", DisplayName: "GPT-5.2", Reasoning: true, Aliases: []string{"gpt5"}},
	{ID: "gpt-5.2-codex", Provider: "openai", DisplayName: "GPT-5.2 Codex", Reasoning: true, Aliases: []string{"codex"}},
	{ID: "gpt-5-mini", Provider: "openai", DisplayName: "GPT-5 Mini", Reasoning: true, Aliases: []string{"gpt5-mini"}},

	// Google
	{ID: "gemini-3-pro-preview", Provider: "google", DisplayName: "Gemini 3 Pro (Preview)", Reasoning: true, Aliases: []string{"gemini-pro"}},
	{ID: "gemini-3-flash-preview", Provider: "google", DisplayName: "Gemini 3 Flash (Preview)", Reasoning: true, Aliases: []string{"gemini-flash"}},

	// xAI
	{ID: "grok-4", Provider: "xai", DisplayName: "Grok 4", Reasoning: true, Aliases: []string{"grok"}},
}

// Registry is a set of providers and their models. The zero value is empty;
// use NewRegistry for the built-in catalog.
type Registry struct {
	providers map[string]Provider
	order     []string
	models    []Model
}

// NewRegistry returns a registry holding the built-in catalog.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, p := range builtinProviders {
		r.AddProvider(p)
	}
	for _, m := range builtinModels {
		r.AddModel(m)
	}
	return r
}

// AddProvider registers p, replacing the credential variables of an existing
// provider with the same name.
func (r *Registry) AddProvider(p Provider) {
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if _, ok := r.providers[p.Name]; !ok {
		r.order = append(r.order, p.Name)
	}
	r.providers[p.Name] = p
}

// AddModel registers m. A model with the same provider and id is replaced in
// place; a new one is appended after the provider's existing models. An
// unknown provider is registered with no credential variables.
func (r *Registry) AddModel(m Model) {
	m.Provider = strings.ToLower(strings.TrimSpace(m.Provider))
	if _, ok := r.providers[m.Provider]; !ok {
		r.AddProvider(Provider{Name: m.Provider})
	}
	for i := range r.models {
		if r.models[i].Provider == m.Provider && r.models[i].ID == m.ID {
			r.models[i] = m
			return
		}
	}
	r.models = append(r.models, m)
}

// Provider returns the named provider.
func (r *Registry) Provider(name string) (Provider, bool) {
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Providers returns all providers in registration order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// Models returns all models, or only those of provider when it is non-empty.
func (r *Registry) Models(provider string) []Model {
	var out []Model
	for _, m := range r.models {
		if provider == "" || m.Provider == strings.ToLower(provider) {
			out = append(out, m)
		}
	}
	return out
}

// Lookup finds a model by id or alias, optionally restricted to provider.
// Without a provider the first match in registration order wins.
func (r *Registry) Lookup(provider, name string) (Model, bool) {
	provider = strings.ToLower(provider)
	for _, m := range r.models {
		if provider != "" && m.Provider != provider {
			continue
		}
		if m.ID == name {
			return m, true
		}
		for _, alias := range m.Aliases {
			if alias == name {
				return m, true
			}
		}
	}
	return Model{}, false
}

// Names returns every model reference and alias, sorted. Used for error hints.
func (r *Registry) Names() []string {
	var names []string
	for _, m := range r.models {
		names = append(names, m.Ref())
		names = append(names, m.Aliases...)
	}
	sort.Strings(names)
	return names
}
