// Package whatprovides provides the whatprovides command.
package whatprovides

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/metapool/internal/appcontext"
	"github.com/agentstation/metapool/internal/cmd/output"
	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
)

// NewCommand creates the whatprovides command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "whatprovides <kind> <item>",
		GroupID: "core",
		Short:   "List components providing an item",
		Long: `Whatprovides lists the components that provide the given item, such
as a binary, a library, a media type or a modalias.

Kinds: library, binary, mediatype, font, modalias, firmware-runtime,
firmware-flashed, python2, python3, dbus-system, dbus-user, id`,
		Example: `  metapool whatprovides mediatype text/plain
  metapool whatprovides binary gedit`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := components.ParseProvidedKind(args[0])
			if kind == components.ProvidedKindUnknown {
				return errors.NewValidationError("kind", args[0], "unknown provided kind")
			}

			client, err := app.Client()
			if err != nil {
				return err
			}

			found := client.Pool().ByProvidedItem(kind, args[1])
			return output.FormatComponents(cmd.OutOrStdout(), output.DetectFormat(app.OutputFormat()), found)
		},
	}
}
