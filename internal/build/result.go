package build

import "errors"

// ResultKind categorizes the result of attempting a task.
type ResultKind string

const (
	// ResultSuccess is a successful build producing a new version
	ResultSuccess ResultKind = "success"

	// ResultSameVersion is a successful build whose version did not change
	ResultSameVersion ResultKind = "same_version"

	// ResultFailure is a build the engine reported as unsuccessful
	ResultFailure ResultKind = "failure"

	// ResultUnexpected is any error raised while building
	ResultUnexpected ResultKind = "unexpected"

	// ResultConsistency is a repository consistency failure; the run aborts
	ResultConsistency ResultKind = "consistency"
)

// Result is the classified result of one engine invocation.
type Result struct {
	Kind    ResultKind `json:"kind"`
	Version string     `json:"version,omitempty"`
	DiffURL string     `json:"diff_url,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Failed reports whether the result fails the run.
func (r Result) Failed() bool {
	switch r.Kind {
	case ResultFailure, ResultUnexpected, ResultConsistency:
		return true
	default:
		return false
	}
}

// Aborts reports whether the result aborts the remaining tasks.
func (r Result) Aborts() bool {
	return r.Kind == ResultConsistency
}

// Classify turns what the engine returned for task into a Result.
// Errors take precedence over the outcome.
func Classify(task Task, out Outcome, err error) Result {
	if err != nil {
		return Errored(err)
	}
	if !out.Success {
		return Result{Kind: ResultFailure, DiffURL: out.DiffURL}
	}
	if task.HaveVersion != nil && out.Version == *task.HaveVersion {
		return Result{Kind: ResultSameVersion, Version: out.Version, DiffURL: out.DiffURL}
	}
	return Result{Kind: ResultSuccess, Version: out.Version, DiffURL: out.DiffURL}
}

// Errored classifies an error raised for a task that never produced an outcome.
func Errored(err error) Result {
	if errors.Is(err, ErrRepoConsistency) {
		return Result{Kind: ResultConsistency, Message: err.Error()}
	}
	return Result{Kind: ResultUnexpected, Message: err.Error()}
}
