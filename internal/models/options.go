package models

import (
	"fmt"
	"strings"
	"time"
)

// ThinkingLevel is the reasoning intensity requested from the model.
type ThinkingLevel string

const (
	ThinkingDefault ThinkingLevel = ""
	ThinkingOff     ThinkingLevel = "off"
	ThinkingMinimal ThinkingLevel = "minimal"
	ThinkingLow     ThinkingLevel = "low"
	ThinkingMedium  ThinkingLevel = "medium"
	ThinkingHigh    ThinkingLevel = "high"
	ThinkingXHigh   ThinkingLevel = "xhigh"
)

// ThinkingLevels lists the accepted levels from weakest to strongest.
var ThinkingLevels = []ThinkingLevel{
	ThinkingOff, ThinkingMinimal, ThinkingLow, ThinkingMedium, ThinkingHigh, ThinkingXHigh,
}

// ParseThinking parses a level name. The empty string is ThinkingDefault.
func ParseThinking(s string) (ThinkingLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ThinkingDefault, nil
	}
	for _, level := range ThinkingLevels {
		if string(level) == s {
			return level, nil
		}
	}
	return ThinkingDefault, fmt.Errorf("invalid thinking level %q (valid: off, minimal, low, medium, high, xhigh)", s)
}

// RunOptions are the loosely specified knobs for one agent invocation. Every
// field is optional.
type RunOptions struct {
	// Model is a bare id, an alias or "provider/id", optionally with a
	// ":level" suffix. It wins over Models.
	Model    string
	Provider string
	// Models is a comma-separated list of "[provider/]model[:level]"
	// candidates tried in order of credential availability.
	Models   string
	Thinking string
	// Tools is a comma-separated allowlist of tool names.
	Tools   string
	Timeout time.Duration
}

// Candidate is one parsed entry of a model list.
type Candidate struct {
	Provider string
	Model    string
	Thinking ThinkingLevel
}

func (c Candidate) String() string {
	s := c.Model
	if c.Provider != "" {
		s = c.Provider + "/" + s
	}
	if c.Thinking != ThinkingDefault {
		s += ":" + string(c.Thinking)
	}
	return s
}

// ParseCandidate parses "[provider/]model[:level]". A ":suffix" that is not a
// thinking level is kept as part of the model name.
func ParseCandidate(token string) (Candidate, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Candidate{}, fmt.Errorf("empty model")
	}
	orig := token

	var c Candidate
	if i := strings.LastIndex(token, ":"); i >= 0 {
		if level, err := ParseThinking(token[i+1:]); err == nil && level != ThinkingDefault {
			c.Thinking = level
			token = token[:i]
		}
	}
	if i := strings.Index(token, "/"); i >= 0 {
		c.Provider = strings.ToLower(token[:i])
		token = token[i+1:]
		if c.Provider == "" {
			return Candidate{}, fmt.Errorf("empty provider in %q", orig)
		}
	}
	if token == "" {
		return Candidate{}, fmt.Errorf("empty model name in %q", orig)
	}
	c.Model = token
	return c, nil
}

// ParseCandidates parses a comma-separated model list, skipping empty entries.
func ParseCandidates(csv string) ([]Candidate, error) {
	var out []Candidate
	for _, token := range strings.Split(csv, ",") {
		if strings.TrimSpace(token) == "" {
			continue
		}
		c, err := ParseCandidate(token)
		if err != nil {
			return nil, &ResolveError{Input: token, Reason: err.Error()}
		}
		out = append(out, c)
	}
	return out, nil
}
