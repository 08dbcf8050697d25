package workflows

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fyrsmithlabs/pluginbuild/internal/authz"
	"github.com/fyrsmithlabs/pluginbuild/internal/build"
	"github.com/fyrsmithlabs/pluginbuild/internal/notify"
	"github.com/fyrsmithlabs/pluginbuild/internal/orchestrator"
)

var (
	discoverOptions = workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}

	// Builds may commit, so they are never retried.
	buildOptions = workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}

	// Comments are not idempotent.
	publishOptions = workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
)

// BuildRunWorkflow discovers the tasks of a run, builds them one by one and
// publishes the report.
//
// Task failures are recorded in the state and never fail the workflow. The
// report is published on every path: after a discovery or provisioning
// failure, and when the workflow is cancelled mid-run.
func BuildRunWorkflow(ctx workflow.Context, input BuildRunInput) (*BuildRunResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting build run",
		"actor", input.Actor,
		"repo", input.Repo,
		"pr", input.PRNumber,
		"commit", input.Commit)

	var acts *Activities
	result := &BuildRunResult{ExitCode: 1}

	state := orchestrator.NewState()
	result.State = state

	tasks, runErr := discover(ctx, state)
	if runErr != nil {
		result.Errors = append(result.Errors, runErr.Error())
	} else if len(tasks) > 0 {
		runErr = runTasks(ctx, input, tasks, state)
	}

	// Cleanup must run even if ctx was cancelled.
	publishCtx, cancel := workflow.NewDisconnectedContext(ctx)
	defer cancel()
	publishCtx = workflow.WithActivityOptions(publishCtx, publishOptions)

	in := PublishReportInput{Run: input, State: state}
	if runErr != nil {
		in.RunError = runErr.Error()
	}

	result.ExitCode = notify.ExitCode(state, runErr)

	var published PublishReportResult
	if err := workflow.ExecuteActivity(publishCtx, acts.PublishReport, in).Get(publishCtx, &published); err != nil {
		logger.Error("Failed to publish report", "error", err)
		result.Errors = append(result.Errors, FormatErrorForResult("failed to publish report", err))
	} else {
		result.Errors = append(result.Errors, published.Errors...)
	}

	logger.Info("Build run finished",
		"aborted", state.Aborted,
		"any_failed", state.AnyFailed,
		"rows", len(state.Report.Rows),
		"exit_code", result.ExitCode)

	return result, runErr
}

// discover lists the tasks and, when there are any, provisions the images.
// state is begun as soon as the task list is known.
func discover(ctx workflow.Context, state *orchestrator.State) ([]build.Task, error) {
	var acts *Activities
	discoverCtx := workflow.WithActivityOptions(ctx, discoverOptions)

	var tasks []build.Task
	if err := workflow.ExecuteActivity(discoverCtx, acts.DiscoverTasks).Get(discoverCtx, &tasks); err != nil {
		return nil, WrapActivityError("failed to discover tasks", err)
	}
	state.Begin(len(tasks), nil)
	if len(tasks) == 0 {
		return tasks, nil
	}

	var images []build.Image
	if err := workflow.ExecuteActivity(discoverCtx, acts.ProvisionImages).Get(discoverCtx, &images); err != nil {
		return nil, WrapActivityError("failed to provision images", err)
	}
	state.Report.SetImages(images)
	return tasks, nil
}

// runTasks is the workflow rendition of orchestrator.Runner.Run: decisions
// are made here, builds run as activities.
func runTasks(ctx workflow.Context, input BuildRunInput, tasks []build.Task, state *orchestrator.State) error {
	logger := workflow.GetLogger(ctx)
	buildCtx := workflow.WithActivityOptions(ctx, buildOptions)
	now := workflow.Now(ctx)

	var acts *Activities
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted before %s: %w", task.InternalName, err)
		}

		decision := authz.Decide(task, input.Actor, input.BuildAll)
		switch state.Admit(task, decision, now) {
		case orchestrator.StepNotOwned:
			logger.Info("not owned", "task", task.Label(), "commit", task.Commit)
			continue
		case orchestrator.StepNotRan:
			logger.Info("aborted, won't run", "task", task.Label(), "commit", task.Commit)
			continue
		}

		logger.Info("need", "task", task.Label(), "commit", task.Commit, "have", task.HaveCommitOr("nothing"))

		var res build.Result
		err := workflow.ExecuteActivity(buildCtx, acts.BuildTask, BuildTaskInput{Run: input, Task: task}).Get(buildCtx, &res)
		if err != nil {
			if temporal.IsCanceledError(err) {
				return fmt.Errorf("run interrupted during %s: %w", task.InternalName, err)
			}
			res = build.Errored(activityCause(err))
		}

		state.Record(task, res)
		if res.Aborts() {
			logger.Error("repo consistency can't be guaranteed, aborting", "task", task.Label())
		}
	}
	return nil
}

// activityCause strips the ActivityError envelope so rows carry the
// activity's own message.
func activityCause(err error) error {
	var actErr *temporal.ActivityError
	if errors.As(err, &actErr) {
		if cause := errors.Unwrap(actErr); cause != nil {
			return cause
		}
	}
	return err
}
