// Package config provides configuration loading for pluginbuild.
//
// Configuration is assembled from defaults, an optional YAML file and the
// environment a CI runner provides (GITHUB_*, PR_ACTOR, XLWEB_KEY). Command
// line flags are applied on top by cmd/pluginbuild.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete pluginbuild configuration.
type Config struct {
	// CI enables CI mode: GitHub API access, log groups and PR comments.
	CI bool `koanf:"ci"`
	// Commit asks the build engine to commit successful builds to the plugin repository.
	Commit bool `koanf:"commit"`
	// BuildAll ignores owner checks.
	BuildAll bool `koanf:"build_all"`

	GitHub    GitHubConfig    `koanf:"github"`
	Links     LinksConfig     `koanf:"links"`
	Registry  RegistryConfig  `koanf:"registry"`
	Engine    EngineConfig    `koanf:"engine"`
	Temporal  TemporalConfig  `koanf:"temporal"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// GitHubConfig holds the identity of the run as seen by GitHub Actions.
type GitHubConfig struct {
	Actor       string `koanf:"actor"`        // PR_ACTOR
	Repository  string `koanf:"repository"`   // GITHUB_REPOSITORY, "owner/name"
	PRNumber    int    `koanf:"pr_number"`    // GITHUB_PR_NUM
	RunID       string `koanf:"run_id"`       // GITHUB_RUN_ID
	Token       Secret `koanf:"token"`        // GITHUB_TOKEN
	StepSummary string `koanf:"step_summary"` // GITHUB_STEP_SUMMARY
	APIURL      string `koanf:"api_url"`      // GITHUB_API_URL
	ServerURL   string `koanf:"server_url"`   // GITHUB_SERVER_URL
	UserAgent   string `koanf:"user_agent"`
}

// HasIssue reports whether both the repository and the PR number are known.
func (g GitHubConfig) HasIssue() bool {
	return g.Repository != "" && g.PRNumber > 0
}

// LinksConfig controls the navigation links posted in PR comments.
type LinksConfig struct {
	// Repository the "Show log" and "Review" links point at. Defaults to GitHub.Repository.
	Repository string `koanf:"repository"`
}

// RegistryConfig holds settings for the companion registry service.
type RegistryConfig struct {
	BaseURL           string   `koanf:"base_url"`
	Key               Secret   `koanf:"key"` // XLWEB_KEY
	RequestsPerSecond float64  `koanf:"requests_per_second"`
	Timeout           Duration `koanf:"timeout"`
}

// EngineConfig describes the external build engine.
type EngineConfig struct {
	Command  string   `koanf:"command"`
	Args     []string `koanf:"args"`
	PlanFile string   `koanf:"plan_file"`
	WorkDir  string   `koanf:"work_dir"`
}

// TemporalConfig holds Temporal connection settings for worker/submit.
type TemporalConfig struct {
	Host      string `koanf:"host"`
	Namespace string `koanf:"namespace"`
	TaskQueue string `koanf:"task_queue"`
}

// LogConfig holds the subset of logging settings exposed to users.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// RunnerDebug is set when the workflow is re-run with debug logging
	// (RUNNER_DEBUG=1) and lowers the level to trace.
	RunnerDebug bool `koanf:"runner_debug"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
	Protocol string `koanf:"protocol"`
	Insecure bool   `koanf:"insecure"`
}

// MetricsConfig controls Prometheus Pushgateway export of run results.
type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url"`
	Job            string `koanf:"job"`
}

// ErrTokenRequired is returned by Validate when CI mode has no GitHub token.
var ErrTokenRequired = errors.New("GITHUB_TOKEN not set")

// Validate validates the configuration.
//
// Returns an error if:
//   - CI mode is enabled without a GitHub token
//   - the log format is not json or console
//   - the registry rate is not positive
func (c *Config) Validate() error {
	if c.CI && !c.GitHub.Token.IsSet() {
		return ErrTokenRequired
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Log.Format)
	}

	if c.Registry.RequestsPerSecond <= 0 {
		return fmt.Errorf("registry requests_per_second must be positive, got %v", c.Registry.RequestsPerSecond)
	}

	if c.GitHub.PRNumber < 0 {
		return fmt.Errorf("invalid PR number: %d", c.GitHub.PRNumber)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.GitHub.APIURL == "" {
		cfg.GitHub.APIURL = "https://api.github.com"
	}
	if cfg.GitHub.ServerURL == "" {
		cfg.GitHub.ServerURL = "https://github.com"
	}
	if cfg.GitHub.UserAgent == "" {
		cfg.GitHub.UserAgent = "PlogonBuild/1.0.0"
	}

	if cfg.Links.Repository == "" {
		cfg.Links.Repository = cfg.GitHub.Repository
	}

	if cfg.Registry.BaseURL == "" {
		cfg.Registry.BaseURL = "https://kamori.goats.dev"
	}
	if cfg.Registry.RequestsPerSecond == 0 {
		cfg.Registry.RequestsPerSecond = 5
	}
	if cfg.Registry.Timeout == 0 {
		cfg.Registry.Timeout = Duration(30 * time.Second)
	}

	if cfg.Temporal.Host == "" {
		cfg.Temporal.Host = "localhost:7233"
	}
	if cfg.Temporal.Namespace == "" {
		cfg.Temporal.Namespace = "default"
	}
	if cfg.Temporal.TaskQueue == "" {
		cfg.Temporal.TaskQueue = "plugin-build-queue"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}

	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "pluginbuild"
	}
}
