// Package list provides the list command.
package list

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/metapool/internal/appcontext"
	"github.com/agentstation/metapool/internal/cmd/output"
	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
)

// NewCommand creates the list command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		kindName   string
		categories []string
	)

	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "core",
		Short:   "List components in the pool",
		Long: `List shows the components in the pool, optionally restricted to one
component type and to components in all of the given categories.`,
		Example: `  metapool list
  metapool list --kind font
  metapool list --category Development --category IDE -o wide`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var kind components.Kind
			if kindName != "" {
				kind = components.ParseKind(kindName)
				if kind == components.KindUnknown {
					return errors.NewValidationError("kind", kindName, "unknown component type")
				}
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			p := client.Pool()

			var found []*components.Component
			switch {
			case len(categories) > 0:
				found = p.ByCategories(categories...)
				if kind != components.KindUnknown {
					found = filterKind(found, kind)
				}
			case kind != components.KindUnknown:
				found = p.ByKind(kind)
			default:
				found = p.Components()
			}

			return output.FormatComponents(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), found)
		},
	}

	cmd.Flags().StringVarP(&kindName, "kind", "k", "", "only list components of this type")
	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "only list components in this category (repeatable)")

	return cmd
}

func filterKind(cpts []*components.Component, kind components.Kind) []*components.Component {
	out := cpts[:0]
	for _, c := range cpts {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
