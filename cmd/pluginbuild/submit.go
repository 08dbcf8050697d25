package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/pluginbuild/internal/config"
	"github.com/fyrsmithlabs/pluginbuild/internal/workflows"
)

var (
	submitOpts runFlags
	submitWait bool
)

// submitCmd starts a build run on a worker
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Start a build run on a Temporal worker",
	Long: `Start a build-run workflow for this pull request on the worker task queue.

With --wait (the default) the command waits for the run, prints the build
summary and exits with the run's verdict.

Examples:
  PR_ACTOR=alice GITHUB_REPOSITORY=goatcorp/plugins GITHUB_PR_NUM=42 \
    pluginbuild submit --commit`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().BoolVar(&submitOpts.commit, "commit", false, "commit successful builds to the plugin repository")
	submitCmd.Flags().BoolVar(&submitOpts.buildAll, "build-all", false, "build every task regardless of owners")
	submitCmd.Flags().BoolVar(&submitWait, "wait", true, "wait for the run and exit with its verdict")
}

// buildRunInput describes the run from config. Secrets stay out.
func buildRunInput(cfg *config.Config) workflows.BuildRunInput {
	return workflows.BuildRunInput{
		Actor:    cfg.GitHub.Actor,
		BuildAll: cfg.BuildAll,
		Commit:   cfg.Commit,
		Repo:     cfg.GitHub.Repository,
		PRNumber: cfg.GitHub.PRNumber,
		RunID:    cfg.GitHub.RunID,
	}
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd, submitOpts)
	if err != nil {
		return err
	}

	tel, err := newTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()

	logger, err := newLogger(cfg, tel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("unable to create Temporal client: %w", err)
	}
	defer c.Close()

	input := buildRunInput(cfg)
	opts := client.StartWorkflowOptions{
		ID:        workflows.WorkflowID(input),
		TaskQueue: cfg.Temporal.TaskQueue,
	}

	run, err := c.ExecuteWorkflow(ctx, opts, workflows.BuildRunWorkflow, input)
	if err != nil {
		return fmt.Errorf("failed to start build run: %w", err)
	}
	logger.Info(ctx, "build run started",
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()),
	)

	if !submitWait {
		fmt.Fprintln(cmd.OutOrStdout(), run.GetID())
		return nil
	}

	var result workflows.BuildRunResult
	if err := run.Get(ctx, &result); err != nil {
		return fmt.Errorf("build run %s failed: %w", run.GetID(), err)
	}

	if result.State != nil {
		fmt.Fprint(cmd.OutOrStdout(), result.State.Report.Summary())
	}
	for _, e := range result.Errors {
		logger.Warn(ctx, "build run reported an error", zap.String("error", e))
	}
	exitCode = result.ExitCode
	return nil
}
