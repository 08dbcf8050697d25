package build

import (
	"errors"
	"fmt"
)

// ErrRepoConsistency is matched by errors signalling that the plugin
// repository state can no longer be trusted.
var ErrRepoConsistency = errors.New("repo consistency can't be guaranteed")

// CommitError is returned by an engine when committing a built plugin failed
// part way through.
type CommitError struct {
	Task string // Internal name of the task being committed
	Err  error  // The underlying error
}

// Error implements the error interface
func (e *CommitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("could not commit %s", e.Task)
	}
	return fmt.Sprintf("could not commit %s: %s", e.Task, e.Err.Error())
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *CommitError) Unwrap() error {
	return e.Err
}

// Is makes every CommitError match ErrRepoConsistency.
func (e *CommitError) Is(target error) bool {
	return target == ErrRepoConsistency
}

// NewCommitError wraps err as a repository consistency failure for task.
func NewCommitError(task string, err error) *CommitError {
	return &CommitError{Task: task, Err: err}
}
