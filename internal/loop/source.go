package loop

import (
	"github.com/zachwill/ralph/internal/checklist"
	"github.com/zachwill/ralph/internal/specdir"
)

// Tasks is a snapshot of the open work items.
type Tasks struct {
	Todos []string
	Specs *specdir.Snapshot
}

// TaskSource is where work items live.
type TaskSource interface {
	// Ensure creates an empty task location if none exists.
	Ensure() error
	// Load reads the current open items.
	Load() (Tasks, error)
}

// ChecklistSource reads tasks from a markdown checklist.
type ChecklistSource struct {
	File *checklist.File
}

// NewChecklistSource returns a source for the checklist at path.
func NewChecklistSource(path string) *ChecklistSource {
	return &ChecklistSource{File: checklist.NewFile(path)}
}

// Ensure implements TaskSource.
func (s *ChecklistSource) Ensure() error {
	return s.File.Ensure()
}

// Load implements TaskSource.
func (s *ChecklistSource) Load() (Tasks, error) {
	snap, err := s.File.Read()
	if err != nil {
		return Tasks{}, err
	}
	return Tasks{Todos: snap.Labels()}, nil
}

// SpecSource reads tasks from a spec directory. Every spec file counts as an
// open item, claimed or not; the first unclaimed one is next.
type SpecSource struct {
	Dir *specdir.Dir
}

// NewSpecSource returns a source for the spec directory at path.
func NewSpecSource(path string) *SpecSource {
	return &SpecSource{Dir: specdir.New(path)}
}

// Ensure implements TaskSource.
func (s *SpecSource) Ensure() error {
	return s.Dir.Ensure()
}

// Load implements TaskSource.
func (s *SpecSource) Load() (Tasks, error) {
	snap, err := s.Dir.Snapshot()
	if err != nil {
		return Tasks{}, err
	}

	tasks := Tasks{Specs: &snap}
	if snap.Next != nil {
		tasks.Todos = append(tasks.Todos, snap.Next.Name)
	}
	for _, it := range snap.All() {
		if snap.Next != nil && it.Number == snap.Next.Number {
			continue
		}
		tasks.Todos = append(tasks.Todos, it.Name)
	}
	return tasks, nil
}

func (t Tasks) next() string {
	if t.Specs != nil {
		if t.Specs.Next != nil {
			return t.Specs.Next.Name
		}
		return ""
	}
	if len(t.Todos) > 0 {
		return t.Todos[0]
	}
	return ""
}
