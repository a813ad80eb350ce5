// Package search provides the search command.
package search

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/metapool/internal/appcontext"
	"github.com/agentstation/metapool/internal/cmd/output"
)

// NewCommand creates the search command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "search <term>...",
		GroupID: "core",
		Short:   "Search components by free text",
		Long: `Search matches the given terms against component ids, names,
summaries, keywords, package names and provided items. Results are
ordered by relevance.`,
		Example: `  metapool search text editor
  metapool search --limit 5 image`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}

			results := client.Pool().Search(strings.Join(args, " "))
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}

			app.Logger().Debug().Int("results", len(results)).Strs("terms", args).Msg("Search finished")
			return output.FormatComponents(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), results)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of results (0 for all)")

	return cmd
}
