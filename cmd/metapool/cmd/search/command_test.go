package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metapool/internal/cmd/cmdtest"
)

func TestSearchCommand(t *testing.T) {
	app := cmdtest.App(t, cmdtest.Fs(t), "json")

	t.Run("matches", func(t *testing.T) {
		out, err := cmdtest.Run(t, NewCommand(app), "images")
		require.NoError(t, err)

		var got []struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "org.example.Viewer", got[0].ID)
	})

	t.Run("no match is an empty list", func(t *testing.T) {
		out, err := cmdtest.Run(t, NewCommand(app), "zzzzqqq")
		require.NoError(t, err)
		assert.JSONEq(t, "[]", out)
	})

	t.Run("requires a term", func(t *testing.T) {
		_, err := cmdtest.Run(t, NewCommand(app))
		require.Error(t, err)
	})
}
