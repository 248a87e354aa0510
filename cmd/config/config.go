package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/app"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
)

// Command creates the config command group.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(initCommand(), saveCommand(ctx))
	return cmd
}

// NeedsSettings reports whether a config subcommand runs against loaded
// settings. Only init works without them.
func NeedsSettings(sub *cobra.Command) bool {
	return sub.Name() != "init"
}

func defaultPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	paths, err := conf.GetDefaultConfigPaths()
	if err != nil {
		return "", err
	}
	return filepath.Join(paths[0], "config.yaml"), nil
}

func initCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := defaultPath(path)
			if err != nil {
				return err
			}
			if err := conf.WriteDefaultConfig(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Where to write config.yaml (default: first default config directory)")

	return cmd
}

func saveCommand(ctx *app.Context) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Write the effective configuration, environment overrides included",
		Long: "Load config.yaml, apply environment variables and flags, and write the result " +
			"to --path. Credentials taken from the environment end up in the file; it is created with mode 0600.",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := ctx.Settings
			if settings == nil {
				settings = conf.GetSettings()
			}
			if settings == nil {
				return errors.Newf("settings are not loaded").
					Component("cmd").
					Category(errors.CategoryConfiguration).
					Build()
			}
			target, err := defaultPath(path)
			if err != nil {
				return err
			}
			if err := conf.SaveYAMLConfig(target, settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote effective configuration to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Where to write config.yaml (default: first default config directory)")

	return cmd
}
