package loop

import (
	"github.com/zachwill/ralph/internal/models"
	"github.com/zachwill/ralph/internal/specdir"
)

// ActionKind identifies what an Action asks the loop to do.
type ActionKind int

const (
	// ActionWork runs the agent on existing work and keeps looping.
	ActionWork ActionKind = iota
	// ActionGenerate runs the agent to produce new work items.
	ActionGenerate
	// ActionHalt stops the loop.
	ActionHalt
)

func (k ActionKind) String() string {
	switch k {
	case ActionWork:
		return "work"
	case ActionGenerate:
		return "generate"
	case ActionHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// Action is a decision for one iteration.
type Action struct {
	Kind    ActionKind
	Prompt  string
	Options models.RunOptions
	// Reason explains a halt.
	Reason string
	// Spec is the spec a Work action implements. The loop claims it before
	// running the agent, deletes it on success and releases it on failure.
	Spec *specdir.Item
	// CommitMessage replaces the default message used when the loop has to
	// commit the agent's leftover changes.
	CommitMessage string
}

// Work returns an action that runs the agent on existing work.
func Work(prompt string, opts models.RunOptions) Action {
	return Action{Kind: ActionWork, Prompt: prompt, Options: opts}
}

// Generate returns an action that runs the agent to create new work items.
func Generate(prompt string, opts models.RunOptions) Action {
	return Action{Kind: ActionGenerate, Prompt: prompt, Options: opts}
}

// Halt returns an action that stops the loop.
func Halt(reason string) Action {
	return Action{Kind: ActionHalt, Reason: reason}
}

// ForSpec returns a copy of a that implements item.
func (a Action) ForSpec(item specdir.Item) Action {
	a.Spec = &item
	return a
}

// WithCommitMessage returns a copy of a with a fallback commit message.
func (a Action) WithCommitMessage(msg string) Action {
	a.CommitMessage = msg
	return a
}
