package models

import "os"

// CredentialSource reports whether a provider can be used right now.
type CredentialSource interface {
	HasCredentials(provider string) bool
}

// CredentialFunc adapts a plain function to CredentialSource.
type CredentialFunc func(provider string) bool

// HasCredentials calls f.
func (f CredentialFunc) HasCredentials(provider string) bool {
	return f(provider)
}

// EnvCredentials looks for a provider's credential variables in the
// environment.
type EnvCredentials struct {
	registry  *Registry
	lookupEnv func(string) (string, bool)
}

// NewEnvCredentials returns a source backed by the process environment.
func NewEnvCredentials(registry *Registry) *EnvCredentials {
	return &EnvCredentials{registry: registry, lookupEnv: os.LookupEnv}
}

// WithLookup returns a copy that reads variables through lookup instead of
// the process environment.
func (c *EnvCredentials) WithLookup(lookup func(string) (string, bool)) *EnvCredentials {
	return &EnvCredentials{registry: c.registry, lookupEnv: lookup}
}

// HasCredentials reports whether any of the provider's variables is set and
// non-empty. Unknown providers have no credentials.
func (c *EnvCredentials) HasCredentials(provider string) bool {
	p, ok := c.registry.Provider(provider)
	if !ok {
		return false
	}
	for _, name := range p.EnvVars {
		if v, ok := c.lookupEnv(name); ok && v != "" {
			return true
		}
	}
	return false
}
