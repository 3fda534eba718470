package loop

import "github.com/zachwill/ralph/internal/specdir"

// State is what the Decider sees at the top of an iteration. It is rebuilt
// from disk every time.
type State struct {
	// Iteration starts at 1.
	Iteration int
	// Commits counts commits made since the loop started.
	Commits  int
	HasTodos bool
	// NextTodo is the highest priority open item, or empty.
	NextTodo string
	Todos    []string
	// Context is free text supplied by the operator.
	Context               string
	HasUncommittedChanges bool
	// Specs is set when the tasks live in a spec directory.
	Specs *specdir.Snapshot
}

// Decider picks the next action. It must not have side effects.
type Decider func(State) Action
