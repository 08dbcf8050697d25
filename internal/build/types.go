// Package build defines the boundary between the orchestration loop and the
// external build engine: tasks, outcomes, images and the classified Result.
package build

import (
	"context"
	"fmt"
	"time"
)

// Task describes one plugin to (possibly) build for a given commit.
// Tasks are produced by manifest discovery and never mutated afterwards.
type Task struct {
	InternalName  string     `json:"internal_name" toml:"internal_name"`
	Channel       string     `json:"channel" toml:"channel"`
	Commit        string     `json:"commit" toml:"commit"`
	Owners        []string   `json:"owners" toml:"owners"`
	HaveCommit    *string    `json:"have_commit,omitempty" toml:"have_commit"`
	HaveVersion   *string    `json:"have_version,omitempty" toml:"have_version"`
	HaveTimeBuilt *time.Time `json:"have_time_built,omitempty" toml:"have_time_built"`
	Changelog     string     `json:"changelog,omitempty" toml:"changelog"`
}

// Label returns the display label used in report rows.
func (t Task) Label() string {
	return fmt.Sprintf("%s [%s]", t.InternalName, t.Channel)
}

// HaveCommitOr returns the previously built commit, or fallback if none.
func (t Task) HaveCommitOr(fallback string) string {
	if t.HaveCommit == nil {
		return fallback
	}
	return *t.HaveCommit
}

// OwnedBy reports whether actor is one of the declared owners.
func (t Task) OwnedBy(actor string) bool {
	for _, o := range t.Owners {
		if o == actor {
			return true
		}
	}
	return false
}

// Outcome is what the engine returns for a task that ran to completion.
type Outcome struct {
	Success bool   `json:"success"`
	Version string `json:"version,omitempty"`
	DiffURL string `json:"diff_url,omitempty"`
}

// Image describes a container image provisioned for the run.
type Image struct {
	Tags    []string  `json:"tags"`
	Created time.Time `json:"created"`
}

// Engine is the external build engine.
//
// Build returns an error matching ErrRepoConsistency when the plugin
// repository may have been left in a partially committed state.
type Engine interface {
	Tasks(ctx context.Context) ([]Task, error)
	Images(ctx context.Context) ([]Image, error)
	Build(ctx context.Context, task Task, commit bool, changelog string) (Outcome, error)
}
