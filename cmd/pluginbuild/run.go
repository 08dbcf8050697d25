package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pluginbuild/internal/build"
	"github.com/fyrsmithlabs/pluginbuild/internal/config"
	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	"github.com/fyrsmithlabs/pluginbuild/internal/notify"
	"github.com/fyrsmithlabs/pluginbuild/internal/orchestrator"
)

var runOpts runFlags

// runCmd is the CI entry point
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the tasks of this run and report the results",
	Long: `Build every task the engine reports, in order, and publish the results.

Tasks the actor does not own are skipped unless --build-all is set. A
repository consistency failure stops all later builds. The exit code is 0
only if every executed build succeeded.

Examples:
  # Local dry run
  pluginbuild run

  # CI run that commits successful builds
  GITHUB_TOKEN=ghp_xxx PR_ACTOR=alice pluginbuild run --ci --commit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, runOpts)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		tel, err := newTelemetry(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = tel.Shutdown(context.Background()) }()

		out := cmd.OutOrStdout()
		logger, err := newLogger(cfg, tel, out)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		code, err := runBuild(ctx, cfg, logger, out, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		exitCode = code
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOpts.ci, "ci", false, "running in CI: use the GitHub API, log groups and PR comments")
	runCmd.Flags().BoolVar(&runOpts.commit, "commit", false, "commit successful builds to the plugin repository")
	runCmd.Flags().BoolVar(&runOpts.buildAll, "build-all", false, "build every task regardless of owners")
}

// runBuild runs one build and always publishes its result. The returned
// error is reserved for failures that happen before the loop can start.
func runBuild(ctx context.Context, cfg *config.Config, logger *logging.Logger, stdout, stderr io.Writer) (code int, err error) {
	if cfg.GitHub.RunID == "" {
		cfg.GitHub.RunID = uuid.NewString()
	}
	ctx = logging.WithRunID(ctx, cfg.GitHub.RunID)
	ctx = logging.WithLogger(ctx, logger)

	var commenter notify.Commenter
	var changelog orchestrator.ChangelogSource
	if cfg.CI {
		gh, err := newGitHub(ctx, cfg, logger)
		if err != nil {
			return 1, fmt.Errorf("creating GitHub client: %w", err)
		}
		if gh == nil {
			return 1, config.ErrTokenRequired
		}
		commenter, changelog = gh, gh
		logger.Debug(ctx, fmt.Sprintf("GitHub API OK, running for %s", cfg.GitHub.Actor))
		if !cfg.GitHub.HasIssue() {
			logger.Info(ctx, "no pull request for this run, skipping changelog lookup and comment")
		}
	}

	eng, err := newEngine(cfg, stderr, logger)
	if err != nil {
		return 1, fmt.Errorf("creating build engine: %w", err)
	}

	dispatcher := notify.NewDispatcher(notifyOptions(cfg), commenter, logger)
	if p := newPusher(cfg, logger); p != nil {
		dispatcher.SetPusher(p)
	}

	groups := notify.NewGroups(stdout, cfg.CI)
	runner := orchestrator.NewRunner(eng, logger, orchestrator.Options{
		Actor:    cfg.GitHub.Actor,
		BuildAll: cfg.BuildAll,
		Commit:   cfg.Commit,
		Repo:     cfg.GitHub.Repository,
		PRNumber: cfg.GitHub.PRNumber,
	})
	runner.SetGroups(groups)
	if changelog != nil {
		runner.SetChangelogSource(changelog)
	}
	runner.OnProgress(func(p orchestrator.TaskProgress) {
		logger.Trace(ctx, "task visited",
			zap.Int("index", p.Index+1),
			zap.Int("total", p.Total),
			zap.String("task", p.Task.Label()),
			zap.String("step", string(p.Step)),
		)
	})

	state := orchestrator.NewState()
	var runErr error

	// Publishing runs on every path out of the loop, panics included, and
	// outlives a cancelled ctx.
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "build loop panicked", zap.Any("panic", r))
			runErr = fmt.Errorf("build loop panicked: %v", r)
		}
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
		defer cancel()
		code, _ = dispatcher.Finish(cleanupCtx, state, runErr)
		err = nil
	}()

	runErr = buildLoop(ctx, eng, runner, groups, state, logger)
	return code, nil
}

// buildLoop discovers tasks and images, then runs the loop over them.
// Images are only provisioned when there is something to build.
func buildLoop(ctx context.Context, eng build.Engine, runner *orchestrator.Runner, groups *notify.Groups, state *orchestrator.State, logger *logging.Logger) error {
	tasks, err := eng.Tasks(ctx)
	if err != nil {
		logger.Error(ctx, "could not discover tasks", zap.Error(err))
		return fmt.Errorf("discover tasks: %w", err)
	}
	state.Begin(len(tasks), nil)
	if len(tasks) == 0 {
		logger.Info(ctx, "no tasks detected")
		return nil
	}

	groups.StartGroup("Get images")
	images, err := eng.Images(ctx)
	groups.EndGroup()
	if err != nil {
		logger.Error(ctx, "could not provision images", zap.Error(err))
		return fmt.Errorf("provision images: %w", err)
	}
	state.Report.SetImages(images)

	logger.Info(ctx, "starting build loop", zap.Int("tasks", len(tasks)), zap.Int("images", len(images)))
	return runner.Run(ctx, tasks, state)
}
