package resolve

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/app"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/wikipedia"
)

type result struct {
	wikipedia.Enrichment
	// RegisteredID is the registry row for the name, if one exists
	RegisteredID *uint `json:"registered_species_id"`
}

// Command creates the command that looks a species name up in the
// encyclopedia. The registry is only read, never written.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Look up encyclopedia data for a species name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := app.NewServices(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := services.Close(); err != nil {
					logger.Global().Module("main").Warn("failed to close services", logger.Error(err))
				}
			}()

			name := strings.Join(args, " ")
			enrichment, err := services.Resolver.Resolve(cmd.Context(), name)
			if err != nil {
				return err
			}

			out := result{Enrichment: enrichment}
			species, err := services.Store.Species().FindByCommonName(cmd.Context(), name)
			switch {
			case err == nil:
				out.RegisteredID = &species.ID
			case !errors.IsNotFound(err):
				return err
			}
			return app.PrintJSON(cmd.OutOrStdout(), out)
		},
	}
}
