package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pluginbuild/internal/notify"
	"github.com/fyrsmithlabs/pluginbuild/internal/orchestrator"
	"github.com/fyrsmithlabs/pluginbuild/internal/workflows"
)

// workerCmd hosts the build-run workflow
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a Temporal worker that executes build runs",
	Long: `Run a Temporal worker for the build-run workflow.

The worker holds the GitHub token and the build engine; workflows started
with "pluginbuild submit" carry only the run description.

Examples:
  TEMPORAL_HOST=localhost:7233 GITHUB_TOKEN=ghp_xxx pluginbuild worker`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(cmd, runFlags{})
	if err != nil {
		return err
	}

	tel, err := newTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	logger, err := newLogger(cfg, tel, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info(ctx, "build worker starting",
		zap.String("temporal_host", cfg.Temporal.Host),
		zap.String("namespace", cfg.Temporal.Namespace),
	)

	eng, err := newEngine(cfg, cmd.ErrOrStderr(), logger)
	if err != nil {
		return fmt.Errorf("creating build engine: %w", err)
	}

	deps := workflows.ActivityDeps{
		Engine: eng,
		Notify: notifyOptions(cfg),
		Pusher: newPusher(cfg, logger),
		Logger: logger,
	}
	gh, err := newGitHub(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating GitHub client: %w", err)
	}
	if gh != nil {
		deps.Commenter = notify.Commenter(gh)
		deps.Changelog = orchestrator.ChangelogSource(gh)
	} else {
		logger.Warn(ctx, "GITHUB_TOKEN not set, comments and changelog lookups are disabled")
	}

	acts, err := workflows.NewActivities(deps)
	if err != nil {
		return err
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("unable to create Temporal client: %w", err)
	}
	defer c.Close()

	logger.Info(ctx, "temporal client connected", zap.String("host", cfg.Temporal.Host))

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.BuildRunWorkflow)
	w.RegisterActivity(acts)

	logger.Info(ctx, "worker configured", zap.String("task_queue", cfg.Temporal.TaskQueue))

	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- w.Run(worker.InterruptCh())
	}()

	select {
	case err := <-workerErrors:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
	case <-ctx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	logger.Info(ctx, "worker stopped gracefully")
	return nil
}
