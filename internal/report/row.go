package report

import (
	"fmt"

	"github.com/fyrsmithlabs/pluginbuild/internal/build"
)

// Status is the disposition of a task in the report.
type Status string

const (
	// StatusNotOwned marks a task skipped because the actor does not own it
	StatusNotOwned Status = "not_owned"

	// StatusNotRan marks a task skipped after the run aborted
	StatusNotRan Status = "not_ran"

	// StatusCommitFailed marks a repository consistency failure
	StatusCommitFailed Status = "commit_failed"

	// StatusError marks an unexpected build system error
	StatusError Status = "error"

	// StatusFailed marks a build the engine reported as failed
	StatusFailed Status = "failed"

	// StatusSameVersion marks a successful build that did not bump the version
	StatusSameVersion Status = "same_version"

	// StatusOK marks a successful build with a new version
	StatusOK Status = "ok"
)

var glyphs = map[Status]string{
	StatusNotOwned:     "👽",
	StatusNotRan:       "❔",
	StatusCommitFailed: "⁉️",
	StatusError:        "😰",
	StatusFailed:       "❌",
	StatusSameVersion:  "⚠️",
	StatusOK:           "✔️",
}

// Glyph returns the emoji shown in the status column.
func (s Status) Glyph() string {
	return glyphs[s]
}

// Failure reports whether rows with this status fail the run.
func (s Status) Failure() bool {
	switch s {
	case StatusCommitFailed, StatusError, StatusFailed:
		return true
	default:
		return false
	}
}

// Row is one line of the build results table.
type Row struct {
	Status  Status `json:"status"`
	Label   string `json:"label"`
	Commit  string `json:"commit"`
	Message string `json:"message"`
}

// NotOwnedRow reports a task the actor does not own.
func NotOwnedRow(task build.Task) Row {
	return Row{Status: StatusNotOwned, Label: task.Label(), Commit: task.Commit, Message: "Not your plugin"}
}

// NotRanRow reports a task skipped because the run aborted.
func NotRanRow(task build.Task) Row {
	return Row{Status: StatusNotRan, Label: task.Label(), Commit: task.Commit, Message: "Not ran"}
}

// ResultRow reports the classified result of building task.
func ResultRow(task build.Task, res build.Result) Row {
	row := Row{Label: task.Label(), Commit: task.Commit}

	switch res.Kind {
	case build.ResultConsistency:
		row.Status = StatusCommitFailed
		row.Message = "Could not commit to repo"
	case build.ResultUnexpected:
		row.Status = StatusError
		row.Message = "Build system error: " + res.Message
	case build.ResultFailure:
		row.Status = StatusFailed
		row.Message = "Build failed"
		if res.DiffURL != "" {
			row.Message = fmt.Sprintf("Build failed ([Diff](%s))", res.DiffURL)
		}
	case build.ResultSameVersion:
		row.Status = StatusSameVersion
		row.Message = fmt.Sprintf("Same version!!! v%s - [Diff](%s)", res.Version, res.DiffURL)
	case build.ResultSuccess:
		row.Status = StatusOK
		row.Message = fmt.Sprintf("v%s - [Diff](%s)", res.Version, res.DiffURL)
	default:
		row.Status = StatusError
		row.Message = fmt.Sprintf("Build system error: unknown result kind %q", res.Kind)
	}

	return row
}
