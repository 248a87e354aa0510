package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/app"
)

// Command creates the version command.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wildlife %s\n", ctx.BuildInfo.String())
		},
	}
}
