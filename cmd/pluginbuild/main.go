// Package main implements pluginbuild, the CI driver that builds plugin
// packages and reports the outcome to the pull request that triggered them.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is an optional YAML config file
	configPath string
	// version information
	version = "dev"
	// exitCode is set by commands whose verdict is not an error
	exitCode int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

var rootCmd = &cobra.Command{
	Use:   "pluginbuild",
	Short: "Build plugin packages in CI and report the results",
	Long: `pluginbuild drives the build of plugin packages for a pull request.

It decides which tasks the triggering user may build, runs them one by one
through the build engine, and publishes a summary, a pull request comment
and an exit code that reflects the outcome.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(registryCmd)
}
