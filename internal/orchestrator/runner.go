package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/pluginbuild/internal/authz"
	"github.com/fyrsmithlabs/pluginbuild/internal/build"
	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	"github.com/fyrsmithlabs/pluginbuild/internal/report"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Builder builds a single task. build.Engine satisfies it.
type Builder interface {
	Build(ctx context.Context, task build.Task, commit bool, changelog string) (build.Outcome, error)
}

// ChangelogSource resolves the changelog of a task from its pull request.
type ChangelogSource interface {
	GetIssueBody(ctx context.Context, repo string, number int) (string, error)
}

// GroupWriter brackets the log output of one task.
type GroupWriter interface {
	StartGroup(name string)
	EndGroup()
}

// Options configures a run.
type Options struct {
	Actor    string // Identity that triggered the run
	BuildAll bool   // Ignore ownership checks
	Commit   bool   // Commit built plugins to the repository
	Repo     string // Source repository, "owner/name"
	PRNumber int    // Triggering pull request, 0 if unknown

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// TaskProgress is reported after every visited task.
type TaskProgress struct {
	Index int
	Total int
	Task  build.Task
	Step  Step
	Row   *report.Row // nil for silent skips
}

// ProgressCallback receives progress updates during a run
type ProgressCallback func(progress TaskProgress)

// Runner drives the build loop over a State.
type Runner struct {
	builder   Builder
	changelog ChangelogSource
	groups    GroupWriter
	logger    *logging.Logger
	opts      Options
	tracer    trace.Tracer
	progress  ProgressCallback
}

// NewRunner creates a runner that builds tasks with builder.
func NewRunner(builder Builder, logger *logging.Logger, opts Options) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		builder: builder,
		groups:  noGroups{},
		logger:  logger.Named("orchestrator"),
		opts:    opts,
		tracer:  otel.Tracer(instrumentationName),
	}
}

// SetChangelogSource sets where missing changelogs are resolved from.
func (r *Runner) SetChangelogSource(src ChangelogSource) {
	r.changelog = src
}

// SetGroups sets the writer used to group log output per task.
func (r *Runner) SetGroups(g GroupWriter) {
	if g == nil {
		g = noGroups{}
	}
	r.groups = g
}

// OnProgress sets the progress callback
func (r *Runner) OnProgress(callback ProgressCallback) {
	r.progress = callback
}

// Run visits every task in order, recording the outcome in state.
//
// Task failures never stop the loop. An error is returned only when ctx is
// cancelled, in which case the remaining tasks have no rows.
func (r *Runner) Run(ctx context.Context, tasks []build.Task, state *State) error {
	ctx, span := r.tracer.Start(ctx, "orchestrator.Run",
		trace.WithAttributes(
			attribute.Int("tasks", len(tasks)),
			attribute.String("actor", r.opts.Actor),
			attribute.Bool("commit", r.opts.Commit),
		),
	)
	defer span.End()

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "run interrupted")
			return fmt.Errorf("run interrupted before %s: %w", task.InternalName, err)
		}

		step, row := r.visit(ctx, task, state)
		if r.progress != nil {
			r.progress(TaskProgress{Index: i, Total: len(tasks), Task: task, Step: step, Row: row})
		}
	}

	span.SetAttributes(
		attribute.Bool("aborted", state.Aborted),
		attribute.Bool("any_failed", state.AnyFailed),
	)
	if state.Failed() {
		span.SetStatus(codes.Error, "builds failed")
	}
	return nil
}

func (r *Runner) visit(ctx context.Context, task build.Task, state *State) (Step, *report.Row) {
	ctx = logging.WithTask(ctx, task.InternalName, task.Channel)
	ctx, span := r.tracer.Start(ctx, "orchestrator.Task",
		trace.WithAttributes(
			attribute.String("task.name", task.InternalName),
			attribute.String("task.channel", task.Channel),
			attribute.String("task.commit", task.Commit),
		),
	)
	defer span.End()

	r.groups.StartGroup(fmt.Sprintf("Build %s (%s)", task.InternalName, task.Commit))
	defer r.groups.EndGroup()

	rowsBefore := len(state.Report.Rows)
	decision := authz.Decide(task, r.opts.Actor, r.opts.BuildAll)
	step := state.Admit(task, decision, r.opts.Now())
	span.SetAttributes(attribute.String("step", string(step)))

	commitFields := []zap.Field{
		zap.String("commit", task.Commit),
		zap.String("have", task.HaveCommitOr("nothing")),
	}

	switch step {
	case StepNotOwned:
		r.logger.Info(ctx, "not owned", commitFields...)
		if len(state.Report.Rows) == rowsBefore {
			taskCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "silent")))
			return step, nil
		}
		row := state.Report.Rows[len(state.Report.Rows)-1]
		taskCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(row.Status))))
		return step, &row
	case StepNotRan:
		r.logger.Info(ctx, "aborted, won't run", commitFields...)
		row := state.Report.Rows[len(state.Report.Rows)-1]
		taskCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(row.Status))))
		return step, &row
	}

	r.logger.Info(ctx, "need", commitFields...)

	start := time.Now()
	res := r.Execute(ctx, task)
	taskDuration.Record(ctx, time.Since(start).Seconds())

	wasAborted := state.Aborted
	row := state.Record(task, res)
	taskCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(row.Status))))
	if state.Aborted && !wasAborted {
		abortCounter.Add(ctx, 1)
	}

	r.logResult(ctx, task, res)
	if res.Failed() {
		span.SetStatus(codes.Error, string(res.Kind))
	}
	return step, &row
}

// Execute resolves the changelog and builds task, classifying whatever
// happens. It does not touch any State.
func (r *Runner) Execute(ctx context.Context, task build.Task) build.Result {
	changelog, err := r.resolveChangelog(ctx, task)
	if err != nil {
		return build.Errored(err)
	}

	out, err := r.builder.Build(ctx, task, r.opts.Commit, changelog)
	return build.Classify(task, out, err)
}

func (r *Runner) resolveChangelog(ctx context.Context, task build.Task) (string, error) {
	if task.Changelog != "" {
		return task.Changelog, nil
	}
	if !r.opts.Commit || r.opts.Repo == "" || r.opts.PRNumber <= 0 || r.changelog == nil {
		return "", nil
	}

	body, err := r.changelog.GetIssueBody(ctx, r.opts.Repo, r.opts.PRNumber)
	if err != nil {
		changelogCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", false)))
		return "", fmt.Errorf("resolve changelog from %s#%d: %w", r.opts.Repo, r.opts.PRNumber, err)
	}
	changelogCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", true)))
	return body, nil
}

func (r *Runner) logResult(ctx context.Context, task build.Task, res build.Result) {
	switch res.Kind {
	case build.ResultSuccess, build.ResultSameVersion:
		r.logger.Info(ctx, "built",
			zap.String("commit", task.Commit),
			zap.String("version", res.Version),
			zap.String("diff_url", res.DiffURL),
		)
	case build.ResultFailure:
		r.logger.Error(ctx, "could not build",
			zap.String("commit", task.Commit),
			zap.String("diff_url", res.DiffURL),
		)
	case build.ResultConsistency:
		r.logger.Error(ctx, "repo consistency can't be guaranteed, aborting",
			zap.String("commit", task.Commit),
			zap.String("error", res.Message),
		)
	case build.ResultUnexpected:
		r.logger.Error(ctx, "could not build",
			zap.String("commit", task.Commit),
			zap.String("error", res.Message),
		)
	}
}

type noGroups struct{}

func (noGroups) StartGroup(string) {}
func (noGroups) EndGroup()         {}
