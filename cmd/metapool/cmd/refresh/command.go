// Package refresh provides the refresh command.
package refresh

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/metapool"
	"github.com/agentstation/metapool/internal/appcontext"
)

// NewCommand creates the refresh command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "refresh",
		GroupID: "management",
		Short:   "Rebuild the component cache",
		Long: `Refresh rebuilds the binary component cache from collection metadata
when the metadata changed since the cache was written. Use --force to
rebuild unconditionally.`,
		Example: `  metapool refresh
  metapool refresh --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.ClientWithOptions(metapool.WithLoadOnStart(false))
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			updated, err := client.RefreshCache(cmd.Context(), force)
			if err != nil {
				return err
			}

			path := client.Pool().CachePath()
			app.Logger().Debug().Bool("updated", updated).Str("path", path).Msg("Cache refresh finished")
			if updated {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cache updated: %s (%d components)\n", path, client.Pool().Len())
			} else {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cache is up to date: %s\n", path)
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "rebuild the cache even if it is current")

	return cmd
}
