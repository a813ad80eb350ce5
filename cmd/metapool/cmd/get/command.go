// Package get provides the get command.
package get

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/metapool/internal/appcontext"
	"github.com/agentstation/metapool/internal/cmd/output"
	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/pool"
)

// NewCommand creates the get command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var addons bool

	cmd := &cobra.Command{
		Use:     "get <component-id>",
		GroupID: "core",
		Short:   "Show components with the given id",
		Long: `Get shows every component carrying the given id. A single match is
shown in detail. With --addons, or when the pool resolves addons, the
addons extending the matches are listed as well.`,
		Example: `  metapool get org.gnome.gedit
  metapool get --addons org.gnome.gedit -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Client()
			if err != nil {
				return err
			}
			p := client.Pool()

			found := p.ByID(args[0])
			if len(found) == 0 {
				return errors.NewNotFoundError("component", args[0])
			}

			if addons || p.Flags().Has(pool.FlagResolveAddons) {
				found = withAddons(p, found)
			}

			format := output.DetectFormat(app.OutputFormat())
			if len(found) == 1 {
				return output.FormatComponent(cmd.OutOrStdout(), format, found[0])
			}
			return output.FormatComponents(cmd.OutOrStdout(), format, found)
		},
	}

	cmd.Flags().BoolVar(&addons, "addons", false, "also list addons of the matching components")

	return cmd
}

// withAddons appends the addons of cpts that are not already listed.
func withAddons(p *pool.Pool, cpts []*components.Component) []*components.Component {
	seen := make(map[string]bool, len(cpts))
	for _, c := range cpts {
		seen[c.DataID()] = true
	}
	out := cpts
	for _, c := range cpts {
		for _, addon := range p.Addons(c.DataID()) {
			if !seen[addon.DataID()] {
				seen[addon.DataID()] = true
				out = append(out, addon)
			}
		}
	}
	return out
}
