package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// envPrefix marks pluginbuild-specific environment variables.
	envPrefix = "PLUGINBUILD_"
)

// runnerEnv maps the variables set by the CI runner to config keys.
var runnerEnv = map[string]string{
	"PR_ACTOR":            "github.actor",
	"GITHUB_REPOSITORY":   "github.repository",
	"GITHUB_PR_NUM":       "github.pr_number",
	"GITHUB_RUN_ID":       "github.run_id",
	"GITHUB_TOKEN":        "github.token",
	"GITHUB_STEP_SUMMARY": "github.step_summary",
	"GITHUB_API_URL":      "github.api_url",
	"GITHUB_SERVER_URL":   "github.server_url",
	"XLWEB_KEY":           "registry.key",
	"TEMPORAL_HOST":       "temporal.host",
	"RUNNER_DEBUG":        "log.runner_debug",
}

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (GITHUB_TOKEN, PR_ACTOR, PLUGINBUILD_ENGINE_COMMAND, etc.)
//  2. YAML config file (configPath, skipped when empty)
//  3. Hardcoded defaults
//
// # Environment Variable Mapping
//
// CI runner variables are mapped explicitly (see runnerEnv). Variables with
// the PLUGINBUILD_ prefix are split on the first underscore after the prefix:
//
//	PLUGINBUILD_ENGINE_PLAN_FILE -> engine.plan_file
//	PLUGINBUILD_METRICS_PUSHGATEWAY_URL -> metrics.pushgateway_url
//	PLUGINBUILD_COMMIT -> commit
//
// Validation is left to the caller so that command line flags can be
// applied before Validate runs.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// envKey transforms an environment variable name into a config key.
// Returning "" makes koanf skip the variable.
func envKey(s string) string {
	if key, ok := runnerEnv[s]; ok {
		return key
	}

	if !strings.HasPrefix(s, envPrefix) {
		return ""
	}

	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}

	// Top-level flags contain underscores themselves.
	if lower == "build_all" {
		return lower
	}

	return parts[0] + "." + parts[1]
}

// readConfigFile opens the file once and validates it through the open
// descriptor to avoid a TOCTOU race.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties checks file type, permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if !info.Mode().IsRegular() {
		return fmt.Errorf("config path is not a regular file")
	}

	// The file may hold the registry key; refuse world-writable files.
	if info.Mode().Perm()&0o002 != 0 {
		return fmt.Errorf("insecure config file permissions: %v (world-writable)", info.Mode().Perm())
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}
