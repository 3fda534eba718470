package strategy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zachwill/ralph/internal/loop"
	"github.com/zachwill/ralph/internal/models"
)

// Checklist works through a markdown task list.
//
// Open items are worked one at a time. With the list empty it asks the agent
// to write new tasks when there is operator context (first iteration only,
// unless continuous) or when running continuously, and halts otherwise.
type Checklist struct {
	Prompts *Prompts
	// TasksFile is the checklist path as the agent should see it.
	TasksFile  string
	Options    models.RunOptions
	Continuous bool
}

// Decide implements loop.Decider.
func (c *Checklist) Decide(s loop.State) loop.Action {
	data := Data{
		TasksFile: c.TasksFile,
		NextTodo:  s.NextTodo,
		Todos:     s.Todos,
		Context:   s.Context,
	}

	switch {
	case s.HasTodos:
		return c.render(PromptWork, data, loop.Work)
	case c.Continuous || (s.Context != "" && s.Iteration == 1):
		return c.render(PromptGenerate, data, loop.Generate)
	case s.Iteration > 1 && s.Context != "":
		return loop.Halt("generate produced no tasks")
	default:
		return loop.Halt("all tasks complete")
	}
}

func (c *Checklist) render(name string, data Data, kind func(string, models.RunOptions) loop.Action) loop.Action {
	prompt, err := c.Prompts.Render(name, data)
	if err != nil {
		return loop.Halt(err.Error())
	}
	return kind(prompt, c.Options)
}

// Specs hands work between a research phase, which writes one numbered
// spec into an empty queue, and an implement phase, which claims the next
// spec, builds it and has the loop delete it.
type Specs struct {
	Prompts *Prompts
	// Dir is the spec directory as the agent should see it.
	Dir        string
	Research   models.RunOptions
	Implement  models.RunOptions
	Continuous bool
}

// Decide implements loop.Decider.
func (sp *Specs) Decide(s loop.State) loop.Action {
	snap := s.Specs
	if snap == nil {
		return loop.Halt("no spec directory")
	}

	data := Data{SpecsDir: sp.Dir, Context: s.Context, Todos: s.Todos, NextTodo: s.NextTodo}

	if next := snap.Next; next != nil {
		data.Spec = next
		data.SpecPath = filepath.Join(sp.Dir, next.Name)
		prompt, err := sp.Prompts.Render(PromptImplement, data)
		if err != nil {
			return loop.Halt(err.Error())
		}
		return loop.Work(prompt, sp.Implement).
			ForSpec(*next).
			WithCommitMessage("ralph: implement " + next.Name)
	}

	if len(snap.Claimed) > 0 {
		names := make([]string, len(snap.Claimed))
		for i, it := range snap.Claimed {
			names[i] = it.Name
		}
		return loop.Halt(fmt.Sprintf("only claimed specs remain: %s", strings.Join(names, ", ")))
	}

	switch {
	case sp.Continuous || (s.Context != "" && s.Iteration == 1):
		prompt, err := sp.Prompts.Render(PromptResearch, data)
		if err != nil {
			return loop.Halt(err.Error())
		}
		return loop.Generate(prompt, sp.Research).WithCommitMessage("ralph: research")
	case s.Iteration > 1 && s.Context != "":
		return loop.Halt("research produced no spec")
	default:
		return loop.Halt("spec queue is empty")
	}
}

// Supervisor renders the supervisor prompt for a review every N commits.
// Follow-up work goes to specsDir when it is set and to tasksFile otherwise.
func Supervisor(p *Prompts, every int, tasksFile, specsDir, context string) (string, error) {
	return p.Render(PromptSupervisor, Data{
		TasksFile: tasksFile,
		SpecsDir:  specsDir,
		Context:   context,
		Every:     every,
	})
}
