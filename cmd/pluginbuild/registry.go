package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/pluginbuild/internal/config"
	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	"github.com/fyrsmithlabs/pluginbuild/internal/registry"
)

// errKeyRequired is returned by registry writes without XLWEB_KEY.
var errKeyRequired = errors.New("XLWEB_KEY not set")

// registryCmd groups the registry service operations
var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Query and update the plugin registry service",
}

var registryMessageIDsCmd = &cobra.Command{
	Use:   "message-ids <pr>",
	Short: "List the announcement message ids of a pull request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pr, err := parsePR(args[0])
		if err != nil {
			return err
		}
		return withRegistry(cmd, false, func(ctx context.Context, c *registry.Client, out io.Writer) error {
			ids, err := c.GetMessageIDs(ctx, pr)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		})
	},
}

var registryRegisterMessageCmd = &cobra.Command{
	Use:   "register-message <pr> <message-id>",
	Short: "Record an announcement message id for a pull request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pr, err := parsePR(args[0])
		if err != nil {
			return err
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid message id %q: %w", args[1], err)
		}
		return withRegistry(cmd, true, func(ctx context.Context, c *registry.Client, _ io.Writer) error {
			return c.RegisterMessageID(ctx, pr, id)
		})
	},
}

var registryPRNumberCmd = &cobra.Command{
	Use:   "pr-number <internal-name> <version>",
	Short: "Show the pull request that produced a plugin version",
	Long: `Show the pull request that produced a plugin version.

Exits with status 1 when the registry does not know the version.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd, false, func(ctx context.Context, c *registry.Client, out io.Writer) error {
			pr, ok, err := c.GetPRNumber(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				exitCode = 1
				return nil
			}
			fmt.Fprintln(out, pr)
			return nil
		})
	},
}

var registryRegisterPRCmd = &cobra.Command{
	Use:   "register-pr <internal-name> <version> <pr>",
	Short: "Record the pull request that produced a plugin version",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pr, err := parsePR(args[2])
		if err != nil {
			return err
		}
		return withRegistry(cmd, true, func(ctx context.Context, c *registry.Client, _ io.Writer) error {
			return c.RegisterPRNumber(ctx, args[0], args[1], pr)
		})
	},
}

func init() {
	registryCmd.AddCommand(registryMessageIDsCmd)
	registryCmd.AddCommand(registryRegisterMessageCmd)
	registryCmd.AddCommand(registryPRNumberCmd)
	registryCmd.AddCommand(registryRegisterPRCmd)
}

func parsePR(s string) (int, error) {
	pr, err := strconv.Atoi(s)
	if err != nil || pr <= 0 {
		return 0, fmt.Errorf("invalid PR number %q", s)
	}
	return pr, nil
}

// withRegistry loads config, builds a registry client and runs fn.
func withRegistry(cmd *cobra.Command, needKey bool, fn func(context.Context, *registry.Client, io.Writer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if needKey && !cfg.Registry.Key.IsSet() {
		return errKeyRequired
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Output.Writer = cmd.ErrOrStderr()
	logger, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	return fn(ctx, newRegistry(cfg, logger), cmd.OutOrStdout())
}
