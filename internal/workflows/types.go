// Package workflows runs a build as a Temporal workflow.
//
// The workflow owns the run state and the authorization decisions; every
// side effect (engine calls, GitHub, the step summary) happens in an
// activity. Secrets live in the worker and never appear in workflow or
// activity inputs.
package workflows

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/pluginbuild/internal/build"
	"github.com/fyrsmithlabs/pluginbuild/internal/orchestrator"
	"github.com/google/uuid"
)

// TaskQueue is the default task queue of the build worker.
const TaskQueue = "plugin-build-queue"

// BuildRunInput describes one build run.
type BuildRunInput struct {
	Actor    string // Identity that triggered the run
	BuildAll bool   // Ignore ownership checks
	Commit   bool   // Commit built plugins to the repository
	Repo     string // Source repository, "owner/name"
	PRNumber int    // Triggering pull request, 0 if unknown
	RunID    string // Identifier used in logs and comment links
}

// BuildRunResult is the outcome of BuildRunWorkflow.
type BuildRunResult struct {
	State    *orchestrator.State
	ExitCode int
	Errors   []string // Publishing errors; they never change ExitCode
}

// BuildTaskInput is the input of the BuildTask activity.
type BuildTaskInput struct {
	Run  BuildRunInput
	Task build.Task
}

// PublishReportInput is the input of the PublishReport activity.
type PublishReportInput struct {
	Run      BuildRunInput
	State    *orchestrator.State
	RunError string // Non-empty when the loop did not complete
}

// PublishReportResult is the output of the PublishReport activity.
type PublishReportResult struct {
	ExitCode int
	Errors   []string
}

// WorkflowID returns a unique workflow id for a run of in.
func WorkflowID(in BuildRunInput) string {
	parts := []string{"pluginbuild"}
	if in.Repo != "" {
		parts = append(parts, strings.ReplaceAll(in.Repo, "/", "-"))
	}
	if in.PRNumber > 0 {
		parts = append(parts, fmt.Sprintf("pr%d", in.PRNumber))
	}
	parts = append(parts, uuid.NewString())
	return strings.Join(parts, "-")
}

// FormatErrorForResult formats an error for BuildRunResult.Errors.
func FormatErrorForResult(operation string, err error) string {
	return fmt.Sprintf("%s: %v", operation, err)
}

// WrapActivityError wraps an activity error with operation context.
func WrapActivityError(operation string, err error) error {
	return fmt.Errorf("%s: %w", operation, err)
}
