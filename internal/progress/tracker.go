package progress

import (
	"context"
	"time"

	"github.com/zachwill/ralph/internal/logging"
)

// CommitOutcome says who recorded an iteration's work.
type CommitOutcome int

const (
	// CommitOutcomeNone means there was nothing to commit.
	CommitOutcomeNone CommitOutcome = iota
	// CommitOutcomeAgent means the agent committed on its own.
	CommitOutcomeAgent
	// CommitOutcomeAuto means the tracker committed leftover changes.
	CommitOutcomeAuto
)

func (o CommitOutcome) String() string {
	switch o {
	case CommitOutcomeNone:
		return "none"
	case CommitOutcomeAgent:
		return "agent"
	case CommitOutcomeAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// Tracker records and inspects progress in a Repository.
type Tracker struct {
	Repo   Repository
	Now    func() time.Time
	Logger *logging.Logger
}

// NewTracker returns a Tracker over repo using the wall clock.
func NewTracker(repo Repository) *Tracker {
	return &Tracker{Repo: repo, Now: time.Now, Logger: logging.Default()}
}

// HasUncommittedChanges reports whether the working tree is dirty.
func (t *Tracker) HasUncommittedChanges() (bool, error) {
	return t.Repo.IsDirty()
}

// CommitCount returns the number of commits reachable from HEAD.
func (t *Tracker) CommitCount() (int, error) {
	return t.Repo.CommitCount()
}

// WasCommittedRecently reports whether HEAD was committed within window of
// now.
func (t *Tracker) WasCommittedRecently(window time.Duration) (bool, error) {
	when, ok, err := t.Repo.HeadTime()
	if err != nil || !ok {
		return false, err
	}
	return t.now().Sub(when) <= window, nil
}

// AutoCommit stages everything, deletions included, and commits it.
func (t *Tracker) AutoCommit(message string) error {
	return t.Repo.CommitAll(message)
}

// EnsureCommit makes sure an iteration's work is in history. If the agent
// committed within window nothing is done; otherwise any dirty state is
// committed with message.
func (t *Tracker) EnsureCommit(message string, window time.Duration) (CommitOutcome, error) {
	recent, err := t.WasCommittedRecently(window)
	if err != nil {
		return CommitOutcomeNone, err
	}
	if recent {
		return CommitOutcomeAgent, nil
	}

	dirty, err := t.Repo.IsDirty()
	if err != nil {
		return CommitOutcomeNone, err
	}
	if !dirty {
		return CommitOutcomeNone, nil
	}
	if err := t.Repo.CommitAll(message); err != nil {
		return CommitOutcomeNone, err
	}
	return CommitOutcomeAuto, nil
}

// EnsureCommitAfter is EnsureCommit keyed on history instead of the clock:
// the agent is credited when HEAD has moved past baseline commits.
func (t *Tracker) EnsureCommitAfter(message string, baseline int) (CommitOutcome, error) {
	count, err := t.Repo.CommitCount()
	if err != nil {
		return CommitOutcomeNone, err
	}
	if count > baseline {
		return CommitOutcomeAgent, nil
	}

	dirty, err := t.Repo.IsDirty()
	if err != nil || !dirty {
		return CommitOutcomeNone, err
	}
	if err := t.Repo.CommitAll(message); err != nil {
		return CommitOutcomeNone, err
	}
	return CommitOutcomeAuto, nil
}

// Push sends commits to the remote. Failures are logged and returned for
// reporting only; callers carry on and retry at the next opportunity.
func (t *Tracker) Push(ctx context.Context) error {
	if err := t.Repo.Push(ctx); err != nil {
		t.logger().Warn("Push failed, will retry", "error", err)
		return err
	}
	t.logger().Debug("Pushed")
	return nil
}

func (t *Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func (t *Tracker) logger() *logging.Logger {
	if t.Logger == nil {
		return logging.Default()
	}
	return t.Logger
}
