package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/api"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/app"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/observability"
)

// Command creates the command that runs the HTTP API.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Start the wildlife identification API and, when telemetry is enabled, the Prometheus metrics endpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(runCtx, ctx)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("listen", viper.GetString("webserver.listen"), "Listen address of the HTTP API")
	cmd.Flags().Bool("telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().String("telemetry-listen", viper.GetString("telemetry.listen"), "Listen address of the telemetry endpoint")

	bindings := map[string]string{
		"webserver.listen":  "listen",
		"telemetry.enabled": "telemetry",
		"telemetry.listen":  "telemetry-listen",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// Run serves the API until ctx is cancelled.
func Run(ctx context.Context, appCtx *app.Context) error {
	log := logger.Global().Module("main")

	services, err := app.NewServices(appCtx)
	if err != nil {
		return err
	}
	defer func() {
		if err := services.Close(); err != nil {
			log.Warn("failed to close services", logger.Error(err))
		}
	}()

	settings := appCtx.Settings
	opts := []api.ServerOption{api.WithHTTPMetrics(services.Metrics.HTTP)}
	if appCtx.BuildInfo != nil {
		opts = append(opts, api.WithBuildInfo(appCtx.BuildInfo))
	}
	server, err := api.New(settings, services.APIDependencies(), opts...)
	if err != nil {
		return err
	}

	var endpoint *observability.Endpoint
	if settings.Telemetry.Enabled {
		endpoint, err = observability.NewEndpoint(&settings.Telemetry, services.Metrics)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if endpoint != nil {
		g.Go(func() error {
			return endpoint.Run(gctx)
		})
	}
	g.Go(func() error {
		reopenLogsOnHangup(gctx, log)
		return nil
	})

	log.Info("wildlife API running",
		logger.String("listen", server.Config().Listen),
		logger.Bool("telemetry", settings.Telemetry.Enabled))

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("wildlife API stopped")
	return nil
}

// reopenLogsOnHangup reopens log files on SIGHUP so logrotate can move them.
func reopenLogsOnHangup(ctx context.Context, log logger.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := logger.Global().ReopenLogFiles(); err != nil {
				log.Warn("failed to reopen log files", logger.Error(err))
				continue
			}
			log.Info("log files reopened")
		}
	}
}
