package completion

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{ShellBash, ShellZsh, ShellFish, ShellPowerShell} {
		t.Run(shell, func(t *testing.T) {
			root := &cobra.Command{Use: "metapool"}
			root.AddCommand(NewCommand())

			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})
			require.NoError(t, root.Execute())
			assert.Contains(t, out.String(), "metapool")
		})
	}

	t.Run("unknown shell", func(t *testing.T) {
		root := &cobra.Command{Use: "metapool"}
		root.AddCommand(NewCommand())
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"completion", "tcsh"})
		require.Error(t, root.Execute())
	})
}
