package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/vasu-ramanujam/teriyaki-chasers/cmd/config"
	"github.com/vasu-ramanujam/teriyaki-chasers/cmd/export"
	"github.com/vasu-ramanujam/teriyaki-chasers/cmd/identify"
	"github.com/vasu-ramanujam/teriyaki-chasers/cmd/resolve"
	"github.com/vasu-ramanujam/teriyaki-chasers/cmd/serve"
	"github.com/vasu-ramanujam/teriyaki-chasers/cmd/version"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/app"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/conf"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "wildlife",
		Short:         "Wildlife identification service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, &configPath)

	versionCmd := version.Command(ctx)
	configCmd := configcmd.Command(ctx)

	subcommands := []*cobra.Command{
		serve.Command(ctx),
		identify.Command(ctx),
		resolve.Command(ctx),
		export.Command(ctx),
		configCmd,
		versionCmd,
	}
	rootCmd.AddCommand(subcommands...)

	var centralLogger *logger.CentralLogger

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version and config init work without a loaded configuration
		if cmd == versionCmd || cmd == configCmd || (cmd.Parent() == configCmd && !configcmd.NeedsSettings(cmd)) {
			return nil
		}

		if configPath != "" {
			conf.SetConfigFile(configPath)
		}
		settings, err := conf.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		ctx.Settings = settings

		centralLogger, err = initLogging(settings)
		if err != nil {
			return err
		}

		opts := telemetry.Options{Release: ctx.BuildInfo.Release("wildlife")}
		if err := telemetry.InitSentry(&settings.Sentry, opts); err != nil {
			// Sentry failures never block startup
			logger.Global().Module("main").Warn("sentry initialization failed", logger.Error(err))
		}
		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if ctx.Settings == nil {
			return nil
		}
		telemetry.Flush()
		if centralLogger != nil {
			return centralLogger.Close()
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configPath *string) {
	rootCmd.PersistentFlags().StringVarP(configPath, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/wildlife, /etc/wildlife)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding debug flag: %v", err))
	}
}

// initLogging replaces the fallback console logger with one built from the
// logging settings.
func initLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
	}
	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)
	return cl, nil
}
