package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pluginbuild/internal/build"
	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	"github.com/fyrsmithlabs/pluginbuild/internal/notify"
	"github.com/fyrsmithlabs/pluginbuild/internal/orchestrator"
)

// ActivityDeps are the worker-side collaborators of the activities.
type ActivityDeps struct {
	Engine    build.Engine
	Changelog orchestrator.ChangelogSource // nil disables changelog lookups
	Commenter notify.Commenter             // nil disables PR comments
	Pusher    notify.Pusher                // nil disables metrics push
	Notify    notify.Options               // Repo, PRNumber and RunID come from the run
	Logger    *logging.Logger
}

// Activities implements the activities of BuildRunWorkflow. Register a
// single instance with the worker.
type Activities struct {
	deps   ActivityDeps
	logger *logging.Logger
}

// NewActivities creates the activities. deps.Engine is required.
func NewActivities(deps ActivityDeps) (*Activities, error) {
	if deps.Engine == nil {
		return nil, errors.New("activities: engine is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Activities{deps: deps, logger: logger.Named("activities")}, nil
}

// DiscoverTasks asks the engine for the tasks of the run.
func (a *Activities) DiscoverTasks(ctx context.Context) ([]build.Task, error) {
	tasks, err := a.deps.Engine.Tasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover tasks: %w", err)
	}
	a.logger.Info(ctx, "discovered tasks", zap.Int("count", len(tasks)))
	return tasks, nil
}

// ProvisionImages provisions the build images and returns them.
func (a *Activities) ProvisionImages(ctx context.Context) ([]build.Image, error) {
	images, err := a.deps.Engine.Images(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to provision images: %w", err)
	}
	return images, nil
}

// BuildTask builds one admitted task. Build failures are part of the
// returned Result; the error is reserved for the activity itself.
func (a *Activities) BuildTask(ctx context.Context, in BuildTaskInput) (build.Result, error) {
	ctx = logging.WithRunID(ctx, in.Run.RunID)

	runner := orchestrator.NewRunner(a.deps.Engine, a.logger, orchestrator.Options{
		Actor:    in.Run.Actor,
		BuildAll: in.Run.BuildAll,
		Commit:   in.Run.Commit,
		Repo:     in.Run.Repo,
		PRNumber: in.Run.PRNumber,
	})
	if a.deps.Changelog != nil {
		runner.SetChangelogSource(a.deps.Changelog)
	}

	res := runner.Execute(logging.WithTask(ctx, in.Task.InternalName, in.Task.Channel), in.Task)
	a.logger.Info(ctx, "build task finished",
		zap.String("task", in.Task.Label()),
		zap.String("result", string(res.Kind)),
	)
	return res, nil
}

// PublishReport writes the summary, posts the comment and pushes metrics.
// Publishing errors are returned in the result, not as activity errors, so
// a failed comment is never posted twice.
func (a *Activities) PublishReport(ctx context.Context, in PublishReportInput) (*PublishReportResult, error) {
	ctx = logging.WithRunID(ctx, in.Run.RunID)

	opts := a.deps.Notify
	opts.Repo = in.Run.Repo
	opts.PRNumber = in.Run.PRNumber
	if in.Run.RunID != "" {
		opts.RunID = in.Run.RunID
	}

	d := notify.NewDispatcher(opts, a.deps.Commenter, a.logger)
	if a.deps.Pusher != nil {
		d.SetPusher(a.deps.Pusher)
	}

	var runErr error
	if in.RunError != "" {
		runErr = errors.New(in.RunError)
	}

	code, err := d.Finish(ctx, in.State, runErr)
	result := &PublishReportResult{ExitCode: code}
	if err != nil {
		result.Errors = append(result.Errors, FormatErrorForResult("failed to publish report", err))
	}
	return result, nil
}
