package metapool

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/logging"
	"github.com/agentstation/metapool/pkg/pool"
)

const collectionXML = `<?xml version="1.0" encoding="UTF-8"?>
<components version="0.14" origin="main">
  <component type="desktop-application">
    <id>org.example.Editor</id>
    <name>Editor</name>
    <summary>Edit text files</summary>
    <pkgname>editor</pkgname>
  </component>
</components>
`

// newTestClient creates a client whose pool reads collection data from
// root on fs.
func newTestClient(t testing.TB, fs afero.Fs, root string, opts ...Option) Client {
	t.Helper()
	base := []Option{
		WithLogger(logging.NewTestLogger(t).Logger),
		WithPoolOptions(
			pool.WithFs(fs),
			pool.WithLocale("C"),
			pool.WithMetadataLocations(root),
			pool.WithFlags(pool.FlagReadCollection),
			pool.WithCacheFlags(pool.CacheUseSystem),
			pool.WithSystemCacheDir(filepath.Join(root, "cache")),
			pool.WithBundleDirs(),
		),
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func collectionFs(t testing.TB) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/xml", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/data/xml/main.xml", []byte(collectionXML), 0o644))
	return fs
}

func TestNew(t *testing.T) {
	t.Run("loads on start", func(t *testing.T) {
		c := newTestClient(t, collectionFs(t), "/data")
		assert.Equal(t, 1, c.Pool().Len())
	})

	t.Run("without load", func(t *testing.T) {
		c := newTestClient(t, collectionFs(t), "/data", WithLoadOnStart(false))
		assert.Equal(t, 0, c.Pool().Len())
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := New(WithAutoUpdateInterval(0))
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))

		_, err = New(WithLoadOnStart(false), WithPoolOptions(pool.WithParallelism(0)))
		require.Error(t, err)
	})
}

// scripted returns an update func that fills the pool with the next
// prepared set of components on every call.
func scripted(steps ...[]*components.Component) AutoUpdateFunc {
	var (
		mu   sync.Mutex
		call int
	)
	return func(_ context.Context, p *pool.Pool) error {
		mu.Lock()
		defer mu.Unlock()
		p.Clear()
		if call < len(steps) {
			if err := p.AddComponents(steps[call]); err != nil {
				return err
			}
		}
		call++
		return nil
	}
}

func TestHooks(t *testing.T) {
	a := components.TestComponent(t, "org.example.A")
	b := components.TestComponent(t, "org.example.B")
	changedA := components.TestComponent(t, "org.example.A")
	changedA.SetSummary("Changed", "C")
	c3 := components.TestComponent(t, "org.example.C")

	client := newTestClient(t, afero.NewMemMapFs(), "/data",
		WithLoadOnStart(false),
		WithAutoUpdateFunc(scripted(
			[]*components.Component{a, b},
			[]*components.Component{changedA, c3},
		)),
	)

	var added, updated, removed []string
	client.OnComponentAdded(func(c *components.Component) { added = append(added, c.ID) })
	client.OnComponentUpdated(func(old, new *components.Component) {
		assert.Equal(t, "A test component", old.Summary())
		assert.Equal(t, "Changed", new.Summary())
		updated = append(updated, new.ID)
	})
	client.OnComponentRemoved(func(c *components.Component) { removed = append(removed, c.ID) })

	ctx := context.Background()
	require.NoError(t, client.Update(ctx))
	assert.Equal(t, []string{"org.example.A", "org.example.B"}, added)
	assert.Empty(t, updated)
	assert.Empty(t, removed)

	added = nil
	require.NoError(t, client.Update(ctx))
	assert.Equal(t, []string{"org.example.C"}, added)
	assert.Equal(t, []string{"org.example.A"}, updated)
	assert.Equal(t, []string{"org.example.B"}, removed)
}

func TestHooksFollowStorageKey(t *testing.T) {
	const key = "system/package/one/org.example.A"

	stored := components.TestComponent(t, "org.example.A")
	stored.Origin = "one"
	// a merge changed the origin but the entry kept its key
	merged := stored.Clone()
	merged.Origin = "two"
	require.NotEqual(t, key, merged.DataID())

	h := newHooks()
	var added, updated, removed []string
	h.onComponentAdded = append(h.onComponentAdded, func(c *components.Component) { added = append(added, c.ID) })
	h.onComponentUpdated = append(h.onComponentUpdated, func(old, new *components.Component) {
		assert.Equal(t, "one", old.Origin)
		assert.Equal(t, "two", new.Origin)
		updated = append(updated, new.ID)
	})
	h.onComponentRemoved = append(h.onComponentRemoved, func(c *components.Component) { removed = append(removed, c.ID) })

	h.triggerPoolUpdate(
		map[string]*components.Component{key: stored},
		map[string]*components.Component{key: merged},
	)
	assert.Empty(t, added)
	assert.Empty(t, removed)
	assert.Equal(t, []string{"org.example.A"}, updated)
}

func TestUpdateIncomplete(t *testing.T) {
	fs := collectionFs(t)
	require.NoError(t, afero.WriteFile(fs, "/data/xml/broken.xml", []byte("<components><component>"), 0o644))

	c := newTestClient(t, fs, "/data")
	assert.Equal(t, 1, c.Pool().Len(), "start tolerates incomplete loads")

	err := c.Update(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsIncomplete(err))
}

func TestLoadAsync(t *testing.T) {
	c := newTestClient(t, collectionFs(t), "/data", WithLoadOnStart(false))

	var added atomic.Int32
	c.OnComponentAdded(func(*components.Component) { added.Add(1) })

	select {
	case err := <-c.LoadAsync(context.Background()):
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("load did not finish")
	}
	assert.Equal(t, 1, c.Pool().Len())
	assert.Equal(t, int32(1), added.Load())
}

func TestAutoUpdates(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, afero.NewMemMapFs(), "/data",
		WithLoadOnStart(false),
		WithAutoUpdateInterval(10*time.Millisecond),
		WithAutoUpdates(true),
		WithAutoUpdateFunc(func(context.Context, *pool.Pool) error {
			calls.Add(1)
			return nil
		}),
	)

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, c.AutoUpdatesOff())
	require.NoError(t, c.AutoUpdatesOff(), "stopping twice is harmless")
	time.Sleep(50 * time.Millisecond)
	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())

	require.NoError(t, c.AutoUpdatesOn())
	assert.Eventually(t, func() bool { return calls.Load() > stopped }, 5*time.Second, 10*time.Millisecond)
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	fs := collectionFs(t)
	c := newTestClient(t, fs, "/data", WithLoadOnStart(false))

	var added []string
	c.OnComponentAdded(func(c *components.Component) { added = append(added, c.ID) })

	updated, err := c.RefreshCache(ctx, false)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, []string{"org.example.Editor"}, added)

	require.NoError(t, c.SaveCache(ctx, "/export/C.gvz"))
	exists, err := afero.Exists(fs, "/export/C.gvz")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.True(t, errors.IsValidationError(c.SaveCache(ctx, "")))
}

func TestMonitor(t *testing.T) {
	if testing.Short() {
		t.Skip("uses the real filesystem")
	}
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "xml"), 0o755))

	c := newTestClient(t, afero.NewOsFs(), root,
		WithMonitorDebounce(10*time.Millisecond),
		WithPoolOptions(pool.WithFlags(pool.FlagReadCollection|pool.FlagMonitor)),
	)
	assert.Equal(t, 0, c.Pool().Len())

	require.NoError(t, os.WriteFile(filepath.Join(root, "xml", "main.xml"), []byte(collectionXML), 0o644))
	assert.Eventually(t, func() bool { return c.Pool().Len() == 1 }, 10*time.Second, 20*time.Millisecond)

	require.NoError(t, c.MonitorOff())
	require.NoError(t, c.MonitorOff())
}
