package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/pluginbuild/internal/build"
	"github.com/fyrsmithlabs/pluginbuild/internal/config"
	"github.com/fyrsmithlabs/pluginbuild/internal/engine"
	"github.com/fyrsmithlabs/pluginbuild/internal/github"
	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	"github.com/fyrsmithlabs/pluginbuild/internal/notify"
	"github.com/fyrsmithlabs/pluginbuild/internal/registry"
	"github.com/fyrsmithlabs/pluginbuild/internal/telemetry"
)

// runFlags are the switches of the run command. They win over config.
type runFlags struct {
	ci       bool
	commit   bool
	buildAll bool
}

// loadConfig loads the config file and environment, then applies the flags
// that were set explicitly on cmd.
func loadConfig(cmd *cobra.Command, flags runFlags) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cmd, cfg, flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) {
	if f := cmd.Flags().Lookup("ci"); f != nil && f.Changed {
		cfg.CI = flags.ci
	}
	if f := cmd.Flags().Lookup("commit"); f != nil && f.Changed {
		cfg.Commit = flags.commit
	}
	if f := cmd.Flags().Lookup("build-all"); f != nil && f.Changed {
		cfg.BuildAll = flags.buildAll
	}
}

// newTelemetry starts telemetry. Failures degrade to no-op providers.
func newTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Telemetry, error) {
	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	return tel, nil
}

// newLogger creates the process logger writing to w.
func newLogger(cfg *config.Config, tel *telemetry.Telemetry, w io.Writer) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()

	level, err := logging.RunnerLevel(cfg.Log.Level, cfg.Log.RunnerDebug)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	logCfg.Level = level
	logCfg.Format = cfg.Log.Format
	logCfg.Output.Writer = w
	logCfg.Output.Annotations = cfg.CI

	lp := tel.LoggerProvider()
	logCfg.Output.OTEL = lp != nil

	logger, err := logging.NewLogger(logCfg, lp)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, nil
}

// newEngine creates the build engine, reading tasks from the plan file
// when one is configured.
func newEngine(cfg *config.Config, stderr io.Writer, logger *logging.Logger) (build.Engine, error) {
	cmd, err := engine.NewCommand(engine.CommandOptions{
		Path:   cfg.Engine.Command,
		Args:   cfg.Engine.Args,
		Dir:    cfg.Engine.WorkDir,
		Stderr: stderr,
	}, logger)
	if err != nil {
		return nil, err
	}
	return engine.WithPlan(cmd, cfg.Engine.PlanFile), nil
}

// newGitHub creates a GitHub client, or nil when no token is configured.
func newGitHub(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*github.Client, error) {
	if !cfg.GitHub.Token.IsSet() {
		return nil, nil
	}
	return github.NewClient(ctx, github.Options{
		Token:     cfg.GitHub.Token,
		APIURL:    cfg.GitHub.APIURL,
		UserAgent: cfg.GitHub.UserAgent,
	}, logger)
}

// newRegistry creates the registry client.
func newRegistry(cfg *config.Config, logger *logging.Logger) *registry.Client {
	return registry.NewClient(registry.Options{
		BaseURL:           cfg.Registry.BaseURL,
		Key:               cfg.Registry.Key,
		RequestsPerSecond: cfg.Registry.RequestsPerSecond,
		Timeout:           cfg.Registry.Timeout.Duration(),
	}, logger)
}

// notifyOptions maps config to dispatcher options.
func notifyOptions(cfg *config.Config) notify.Options {
	return notify.Options{
		SummaryPath: cfg.GitHub.StepSummary,
		Repo:        cfg.GitHub.Repository,
		PRNumber:    cfg.GitHub.PRNumber,
		RunID:       cfg.GitHub.RunID,
		ServerURL:   cfg.GitHub.ServerURL,
		LinksRepo:   cfg.Links.Repository,
	}
}

// newPusher returns a Pushgateway pusher, or nil when none is configured.
func newPusher(cfg *config.Config, logger *logging.Logger) notify.Pusher {
	if cfg.Metrics.PushgatewayURL == "" {
		return nil
	}
	return telemetry.NewPusher(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, cfg.GitHub.RunID, logger)
}
