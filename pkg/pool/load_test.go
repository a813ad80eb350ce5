package pool

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
)

const mainXML = `<?xml version="1.0" encoding="UTF-8"?>
<components version="0.14" origin="main">
  <component type="desktop-application">
    <id>org.example.Editor</id>
    <name>Editor</name>
    <summary>Edit text files</summary>
    <pkgname>editor</pkgname>
    <categories>
      <category>Utility</category>
    </categories>
  </component>
  <component type="addon">
    <id>org.example.Editor.Spell</id>
    <name>Spell checker</name>
    <summary>Checks spelling</summary>
    <pkgname>editor-spell</pkgname>
    <extends>org.example.Editor</extends>
  </component>
  <component merge="append">
    <id>org.example.Editor</id>
    <categories>
      <category>Office</category>
    </categories>
  </component>
</components>
`

const mainYAML = `---
File: DEP-11
Version: '0.12'
Origin: extra
---
Type: desktop-application
ID: org.example.Viewer
Package: viewer
Name:
  C: Viewer
Summary:
  C: View images
`

const brokenXML = `<?xml version="1.0"?>
<components origin="broken">
  <component type="desktop-application">
    <id>org.example.Broken
`

const calcMetainfo = `<?xml version="1.0" encoding="UTF-8"?>
<component type="desktop-application">
  <id>org.example.Calc</id>
  <name>Calc</name>
  <summary>Calculate things</summary>
</component>
`

const calcDesktop = `[Desktop Entry]
Type=Application
Name=Calculator
Comment=Do maths
Icon=calc
Categories=Utility;Calculator;
`

const otherDesktop = `[Desktop Entry]
Type=Application
Name=Other
Comment=Some other program
Icon=other
`

const editorMetainfo = `<?xml version="1.0" encoding="UTF-8"?>
<component type="desktop-application">
  <id>org.example.Editor</id>
  <name>Local Editor</name>
  <summary>Edit text files locally</summary>
</component>
`

var (
	past   = time.Now().Add(-time.Hour)
	future = time.Now().Add(time.Hour)
)

func writeFile(t testing.TB, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func touch(t testing.TB, fs afero.Fs, path string, when time.Time) {
	t.Helper()
	require.NoError(t, fs.Chtimes(path, when, when))
}

// collectionFs holds one XML and one YAML collection below /data.
func collectionFs(t testing.TB) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/xml", 0o755))
	require.NoError(t, fs.MkdirAll("/data/yaml", 0o755))
	writeFile(t, fs, "/data/xml/main.xml", mainXML)
	writeFile(t, fs, "/data/yaml/extra.yml", mainYAML)
	touch(t, fs, "/data/xml", past)
	touch(t, fs, "/data/yaml", past)
	return fs
}

func collectionPool(t testing.TB, fs afero.Fs, opts ...Option) *Pool {
	t.Helper()
	base := []Option{
		WithMetadataLocations("/data"),
		WithFlags(FlagReadCollection),
		WithCacheFlags(CacheUseSystem),
	}
	return newTestPoolFs(t, fs, append(base, opts...)...)
}

func TestLoadCollection(t *testing.T) {
	ctx := context.Background()
	fs := collectionFs(t)
	p := collectionPool(t, fs)

	require.NoError(t, p.Load(ctx))
	assert.Equal(t, []string{"org.example.Editor", "org.example.Editor.Spell", "org.example.Viewer"}, ids(p.Components()))

	editor := onlyByID(t, p, "org.example.Editor")
	assert.Equal(t, components.ScopeSystem, editor.Scope)
	assert.Equal(t, []string{"Utility", "Office"}, editor.Categories, "merge fragments are applied after all data is read")
	assert.Equal(t, []string{"system/package/os/org.example.Editor.Spell"}, editor.Addons)

	t.Run("load replaces previous data", func(t *testing.T) {
		require.NoError(t, fs.Remove("/data/yaml/extra.yml"))
		require.NoError(t, p.Load(ctx))
		assert.Equal(t, 2, p.Len())
	})
}

func TestLoadAsync(t *testing.T) {
	p := collectionPool(t, collectionFs(t))
	select {
	case err := <-p.LoadAsync(context.Background()):
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("load did not finish")
	}
	assert.Equal(t, 3, p.Len())
}

func TestLoadIncomplete(t *testing.T) {
	ctx := context.Background()

	t.Run("broken file", func(t *testing.T) {
		fs := collectionFs(t)
		writeFile(t, fs, "/data/xml/broken.xml", brokenXML)
		p := collectionPool(t, fs)

		err := p.Load(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsIncomplete(err))
		assert.Contains(t, err.Error(), "broken.xml")
		assert.Equal(t, 3, p.Len(), "data from valid files is kept")
	})

	t.Run("too many invalid components", func(t *testing.T) {
		fs := collectionFs(t)
		writeFile(t, fs, "/data/xml/invalid.xml", `<components origin="bad">
  <component type="desktop-application"><id>org.example.NoName1</id></component>
  <component type="desktop-application"><id>org.example.NoName2</id></component>
</components>`)
		p := collectionPool(t, fs)

		err := p.Load(ctx)
		require.Error(t, err)
		var incomplete *errors.IncompleteError
		require.True(t, errors.As(err, &incomplete))
		assert.Equal(t, 2, incomplete.Invalid)
		assert.Equal(t, 5, incomplete.Total)
		assert.Equal(t, 3, p.Len())
	})

	t.Run("few invalid components", func(t *testing.T) {
		fs := collectionFs(t)
		var b []byte
		b = append(b, `<components origin="many">`...)
		for _, id := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"} {
			b = append(b, `<component type="desktop-application"><id>org.example.`+id+`</id><name>`+id+`</name><summary>Letter</summary></component>`...)
		}
		b = append(b, `<component type="desktop-application"><id>org.example.NoName</id></component></components>`...)
		writeFile(t, fs, "/data/xml/many.xml", string(b))
		p := collectionPool(t, fs)

		require.NoError(t, p.Load(ctx), "one invalid component of sixteen is tolerated")
		assert.Equal(t, 15, p.Len())
	})
}

func TestLoadCanceled(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("empty pool", func(t *testing.T) {
		p := collectionPool(t, collectionFs(t))
		err := p.Load(canceled)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("load keeps previous data", func(t *testing.T) {
		p := collectionPool(t, collectionFs(t))
		require.NoError(t, p.Load(context.Background()))
		before := ids(p.Components())
		require.Len(t, before, 3)

		err := p.Load(canceled)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, before, ids(p.Components()))
		assert.Equal(t, []string{"system/package/os/org.example.Editor.Spell"}, onlyByID(t, p, "org.example.Editor").Addons)
		assert.NotEmpty(t, p.Search("editor"), "search sees the restored data")
	})

	t.Run("refresh keeps previous data", func(t *testing.T) {
		p := collectionPool(t, collectionFs(t))
		require.NoError(t, p.Load(context.Background()))

		updated, err := p.RefreshCache(canceled, true)
		assert.False(t, updated)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 3, p.Len())
	})
}

func TestRefreshCache(t *testing.T) {
	ctx := context.Background()
	fs := collectionFs(t)
	p := collectionPool(t, fs)

	updated, err := p.RefreshCache(ctx, false)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "/cache/system/C.gvz", p.CachePath())
	exists, err := afero.Exists(fs, p.CachePath())
	require.NoError(t, err)
	assert.True(t, exists)
	_, ok := p.CacheAge()
	assert.True(t, ok)
	assert.Equal(t, 3, p.Len(), "the pool holds the refreshed data")

	t.Run("unchanged data is not refreshed", func(t *testing.T) {
		updated, err := p.RefreshCache(ctx, false)
		require.NoError(t, err)
		assert.False(t, updated)
	})

	t.Run("force", func(t *testing.T) {
		updated, err := p.RefreshCache(ctx, true)
		require.NoError(t, err)
		assert.True(t, updated)
	})

	t.Run("load uses the fresh cache", func(t *testing.T) {
		require.NoError(t, fs.Remove("/data/yaml/extra.yml"))
		touch(t, fs, "/data/yaml", past)

		reads := testutil.ToFloat64(p.Metrics().CacheReads.WithLabelValues("ok"))
		require.NoError(t, p.Load(ctx))
		assert.Equal(t, 3, p.Len(), "data comes from the cache")
		assert.Equal(t, reads+1, testutil.ToFloat64(p.Metrics().CacheReads.WithLabelValues("ok")))

		editor := onlyByID(t, p, "org.example.Editor")
		assert.Equal(t, []string{"system/package/os/org.example.Editor.Spell"}, editor.Addons)
	})

	t.Run("changed data bypasses the cache", func(t *testing.T) {
		touch(t, fs, "/data/yaml", future)
		require.NoError(t, p.Load(ctx))
		assert.Equal(t, 2, p.Len())
	})

	t.Run("ignore cache age", func(t *testing.T) {
		touch(t, fs, "/data/yaml", past)
		p.AddFlags(FlagIgnoreCacheAge)
		defer p.RemoveFlags(FlagIgnoreCacheAge)
		require.NoError(t, p.Load(ctx))
		assert.Equal(t, 2, p.Len())
	})
}

func TestRefreshCacheIncomplete(t *testing.T) {
	fs := collectionFs(t)
	writeFile(t, fs, "/data/xml/broken.xml", brokenXML)
	p := collectionPool(t, fs)

	updated, err := p.RefreshCache(context.Background(), false)
	assert.True(t, updated, "the cache is written anyway")
	require.Error(t, err)
	assert.True(t, errors.IsIncomplete(err))
}

func TestRefreshCacheNotWritable(t *testing.T) {
	fs := afero.NewReadOnlyFs(collectionFs(t))
	p := collectionPool(t, fs)

	updated, err := p.RefreshCache(context.Background(), true)
	assert.False(t, updated)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTargetNotWritable)
}

func TestRefreshCacheWithoutLocation(t *testing.T) {
	p := collectionPool(t, collectionFs(t), WithCacheFlags(CacheNone))
	assert.Empty(t, p.CachePath())
	_, err := p.RefreshCache(context.Background(), true)
	require.Error(t, err)
}

func TestLoadCorruptCache(t *testing.T) {
	fs := collectionFs(t)
	require.NoError(t, fs.MkdirAll("/cache/system", 0o755))
	writeFile(t, fs, "/cache/system/C.gvz", "not a cache")
	touch(t, fs, "/cache/system/C.gvz", future)

	p := collectionPool(t, fs)
	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, 3, p.Len(), "unreadable caches fall back to parsing")
}

func TestSaveAndLoadCache(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	p := newTestPoolFs(t, fs)
	mustAdd(t, p, components.TestComponent(t, "org.example.A"), components.TestComponent(t, "org.example.B"))
	require.NoError(t, p.SaveCache(ctx, "/tmp/export.gvz"))

	other := newTestPoolFs(t, fs)
	require.NoError(t, other.LoadCache(ctx, "/tmp/export.gvz"))
	assert.Equal(t, []string{"org.example.A", "org.example.B"}, ids(other.Components()))

	err := other.LoadCache(ctx, "/tmp/missing.gvz")
	require.Error(t, err)
	assert.True(t, errors.IsCacheUnusable(err))

	t.Run("empty pool removes stale cache", func(t *testing.T) {
		empty := newTestPoolFs(t, fs)
		require.NoError(t, empty.SaveCache(ctx, "/tmp/export.gvz"))
		exists, err := afero.Exists(fs, "/tmp/export.gvz")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func metainfoFs(t testing.TB) afero.Fs {
	t.Helper()
	fs := collectionFs(t)
	require.NoError(t, fs.MkdirAll("/usr/share/metainfo", 0o755))
	require.NoError(t, fs.MkdirAll("/usr/share/applications", 0o755))
	writeFile(t, fs, "/usr/share/metainfo/org.example.Calc.metainfo.xml", calcMetainfo)
	writeFile(t, fs, "/usr/share/metainfo/org.example.Editor.appdata.xml", editorMetainfo)
	writeFile(t, fs, "/usr/share/applications/org.example.Calc.desktop", calcDesktop)
	writeFile(t, fs, "/usr/share/applications/other.desktop", otherDesktop)
	return fs
}

func TestLoadMetainfoAndDesktop(t *testing.T) {
	ctx := context.Background()

	t.Run("metainfo absorbs desktop entries", func(t *testing.T) {
		p := collectionPool(t, metainfoFs(t), WithFlags(FlagReadCollection|FlagReadMetainfo))
		require.NoError(t, p.Load(ctx))
		assert.Equal(t, []string{"org.example.Calc", "org.example.Editor", "org.example.Editor.Spell", "org.example.Viewer"}, ids(p.Components()))

		calc := onlyByID(t, p, "org.example.Calc")
		assert.Equal(t, components.OriginKindMetainfo, calc.OriginKind)
		assert.Equal(t, "Calc", calc.Name())
		assert.Equal(t, []string{"Utility", "Calculator"}, calc.Categories)
		require.NotEmpty(t, calc.Icons)
		assert.Equal(t, "calc", calc.Icons[0].Name)

		editor := onlyByID(t, p, "org.example.Editor")
		assert.Equal(t, "Editor", editor.Name(), "known components skip metainfo files")
	})

	t.Run("desktop files", func(t *testing.T) {
		p := collectionPool(t, metainfoFs(t), WithFlags(FlagReadCollection|FlagReadMetainfo|FlagReadDesktopFiles))
		require.NoError(t, p.Load(ctx))

		other := onlyByID(t, p, "other.desktop")
		assert.Equal(t, components.OriginKindDesktopEntry, other.OriginKind)
		assert.Len(t, p.ByID("org.example.Calc"), 1, "consumed desktop entries are not added again")
	})

	t.Run("prefer local metainfo", func(t *testing.T) {
		p := collectionPool(t, metainfoFs(t), WithFlags(FlagReadCollection|FlagReadMetainfo|FlagPreferLocalMetainfo))
		require.NoError(t, p.Load(ctx))

		editor := onlyByID(t, p, "org.example.Editor")
		assert.Equal(t, "Local Editor", editor.Name())
		assert.Equal(t, []string{"editor"}, editor.PackageNames)
		assert.Equal(t, components.OriginKindMetainfo, editor.OriginKind)
	})
}
