// Package cmdtest provides helpers for testing CLI commands against an
// in-memory component pool.
package cmdtest

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metapool"
	"github.com/agentstation/metapool/internal/appcontext"
	"github.com/agentstation/metapool/pkg/logging"
	"github.com/agentstation/metapool/pkg/pool"
)

// CollectionXML is the collection every test pool is loaded from.
const CollectionXML = `<?xml version="1.0" encoding="UTF-8"?>
<components version="0.14" origin="main">
  <component type="desktop-application">
    <id>org.example.Editor</id>
    <name>Editor</name>
    <summary>Edit text files</summary>
    <pkgname>editor</pkgname>
    <categories>
      <category>Utility</category>
    </categories>
    <provides>
      <binary>editor</binary>
      <mediatype>text/plain</mediatype>
    </provides>
  </component>
  <component type="addon">
    <id>org.example.Editor.Spell</id>
    <name>Spell checker</name>
    <summary>Checks spelling</summary>
    <pkgname>editor-spell</pkgname>
    <extends>org.example.Editor</extends>
  </component>
  <component type="desktop-application">
    <id>org.example.Viewer</id>
    <name>Viewer</name>
    <summary>View images</summary>
    <pkgname>viewer</pkgname>
    <categories>
      <category>Graphics</category>
    </categories>
    <provides>
      <mediatype>image/png</mediatype>
    </provides>
  </component>
</components>
`

// Fs returns a filesystem holding CollectionXML below /data.
func Fs(t testing.TB) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/xml", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/data/xml/main.xml", []byte(CollectionXML), 0o644))
	return fs
}

// PoolOptions returns pool options reading collection data from /data on
// fs and caching below /cache.
func PoolOptions(fs afero.Fs, extra ...pool.Option) []pool.Option {
	return append([]pool.Option{
		pool.WithFs(fs),
		pool.WithLocale("C"),
		pool.WithMetadataLocations("/data"),
		pool.WithFlags(pool.FlagReadCollection),
		pool.WithCacheFlags(pool.CacheUseSystem),
		pool.WithSystemCacheDir("/cache"),
		pool.WithBundleDirs(),
	}, extra...)
}

// NewClient creates a loaded client over fs. It is closed on cleanup.
func NewClient(t testing.TB, fs afero.Fs, opts ...metapool.Option) metapool.Client {
	t.Helper()
	base := []metapool.Option{
		metapool.WithLogger(logging.NewTestLogger(t).Logger),
		metapool.WithPoolOptions(PoolOptions(fs)...),
	}
	c, err := metapool.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// App returns an application context whose clients are built over fs.
// ClientWithOptions creates a fresh client each call, like the real app.
func App(t testing.TB, fs afero.Fs, format string) *appcontext.Mock {
	t.Helper()
	c := NewClient(t, fs)
	return &appcontext.Mock{
		ClientFunc: func() (metapool.Client, error) { return c, nil },
		ClientWithOptionsFunc: func(opts ...metapool.Option) (metapool.Client, error) {
			base := []metapool.Option{
				metapool.WithLogger(logging.NewTestLogger(t).Logger),
				metapool.WithPoolOptions(PoolOptions(fs)...),
			}
			return metapool.New(append(base, opts...)...)
		},
		OutputFormatFunc: func() string { return format },
	}
}

// Run executes cmd with args and returns what it wrote to stdout.
func Run(t testing.TB, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
