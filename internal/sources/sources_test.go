package sources

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/sources"
)

const collectionXML = `<?xml version="1.0" encoding="UTF-8"?>
<components version="0.14" origin="test-main" media_baseurl="https://media.example.org">
  <component type="desktop-application">
    <id>org.example.Editor</id>
    <name>Editor</name>
    <name xml:lang="de">Bearbeiter</name>
    <summary>Edit text files</summary>
    <description>
      <p>A simple editor.</p>
      <p xml:lang="de">Ein einfacher Editor.</p>
      <ul>
        <li>Fast</li>
        <li xml:lang="de">Schnell</li>
      </ul>
    </description>
    <pkgname>editor</pkgname>
    <categories>
      <category>Utility</category>
      <category>TextEditor</category>
    </categories>
    <url type="homepage">https://example.org</url>
    <icon type="cached" width="64" height="64">editor.png</icon>
    <icon type="remote" width="128" height="128">icons/editor.png</icon>
    <keywords>
      <keyword>text</keyword>
      <keyword xml:lang="de">Text</keyword>
    </keywords>
    <provides>
      <mediatype>text/plain</mediatype>
      <binary>editor</binary>
      <dbus type="user">org.example.Editor</dbus>
    </provides>
    <screenshots>
      <screenshot type="default">
        <caption>Main window</caption>
        <image type="source" width="800" height="600">shots/main.png</image>
      </screenshot>
    </screenshots>
    <releases>
      <release version="1.2.0" timestamp="1700000000">
        <description><p>Bugfixes</p></description>
      </release>
      <release version="1.10.0" date="2024-01-02"/>
    </releases>
    <launchable type="desktop-id">org.example.Editor.desktop</launchable>
    <languages>
      <lang percentage="90">de</lang>
    </languages>
    <content_rating type="oars-1.1">
      <content_attribute id="violence-cartoon">mild</content_attribute>
    </content_rating>
    <custom>
      <value key="x-color">blue</value>
    </custom>
  </component>
  <component type="addon" merge="append" priority="5">
    <id>org.example.Editor</id>
    <categories>
      <category>Office</category>
    </categories>
  </component>
</components>
`

const collectionYAML = `---
File: DEP-11
Version: '0.12'
Origin: test-yaml
MediaBaseUrl: https://media.example.org
Priority: 10
---
Type: desktop-application
ID: org.example.Viewer
Package: viewer
Name:
  C: Viewer
  de: Betrachter
Summary:
  C: View images
Categories:
  - Graphics
Keywords:
  C:
    - image
    - photo
Icon:
  stock: viewer
  cached:
    - name: viewer_viewer.png
      width: 64
      height: 64
Provides:
  mediatypes:
    - image/png
  fonts:
    - name: Viewer Sans
Screenshots:
  - default: true
    caption:
      C: Main
    source-image:
      url: shots/viewer.png
      width: 800
      height: 600
    thumbnails:
      - url: shots/viewer-small.png
        width: 160
        height: 120
Releases:
  - version: '2.0'
    unix-timestamp: 1700000000
Launchable:
  desktop-id:
    - org.example.Viewer.desktop
ContentRating:
  oars-1.1:
    violence-cartoon: none
---
Type: addon
ID: org.example.Viewer.Plugin
Priority: 20
Extends:
  - org.example.Viewer
Name:
  C: Plugin
Summary:
  C: Adds things
`

const metainfoXML = `<?xml version="1.0" encoding="UTF-8"?>
<component type="desktop-application">
  <id>org.example.Notes</id>
  <name>Notes</name>
  <summary>Take notes</summary>
  <developer><name>Example Team</name></developer>
  <launchable type="desktop-id">org.example.Notes.desktop</launchable>
</component>
`

const desktopEntry = `# A calculator
[Desktop Entry]
Type=Application
Name=Calculator
Name[de]=Rechner
Comment=Perform calculations
Categories=GTK;Utility;Calculator;X-GNOME-Utilities;
Keywords=math;numbers;
MimeType=application/x-calc;
Icon=calc.png

[Desktop Action new]
Name=New Window
`

func writeFile(t testing.TB, fs afero.Fs, path string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func gzipBytes(t testing.TB, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFind(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/data/xml/b.xml.gz", []byte("x"))
	writeFile(t, fs, "/data/xml/a.xml", []byte("x"))
	writeFile(t, fs, "/data/xml/notes.txt", []byte("x"))
	writeFile(t, fs, "/data/xml/sub/c.xml", []byte("x"))

	t.Run("top level pattern", func(t *testing.T) {
		files, err := Find(fs, "/data/xml", "*.xml*")
		require.NoError(t, err)
		assert.Equal(t, []string{"/data/xml/a.xml", "/data/xml/b.xml.gz"}, files)
	})

	t.Run("recursive pattern", func(t *testing.T) {
		files, err := Find(fs, "/data", "**/*.xml")
		require.NoError(t, err)
		assert.Equal(t, []string{"/data/xml/a.xml", "/data/xml/sub/c.xml"}, files)
	})

	t.Run("overlapping patterns are deduplicated", func(t *testing.T) {
		files, err := Find(fs, "/data/xml", "*.xml", "a.*")
		require.NoError(t, err)
		assert.Equal(t, []string{"/data/xml/a.xml"}, files)
	})

	t.Run("missing directory", func(t *testing.T) {
		files, err := Find(fs, "/nowhere", "*.xml")
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestReadFileDecompresses(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := []byte(collectionXML)

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zstdData := enc.EncodeAll(payload, nil)
	require.NoError(t, enc.Close())

	writeFile(t, fs, "/plain.xml", payload)
	writeFile(t, fs, "/gzip.xml.gz", gzipBytes(t, payload))
	writeFile(t, fs, "/zstd.xml.zst", zstdData)

	for _, path := range []string{"/plain.xml", "/gzip.xml.gz", "/zstd.xml.zst"} {
		t.Run(path, func(t *testing.T) {
			got, err := ReadFile(fs, path)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}

	_, err = ReadFile(fs, "/missing.xml")
	require.Error(t, err)
	var ioErr *errors.IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestReadCollectionXML(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/xml/main.xml.gz", gzipBytes(t, []byte(collectionXML)))

	cpts, err := NewReader(fs).ReadCollection(context.Background(), "/xml/main.xml.gz", sources.FormatUnknown)
	require.NoError(t, err)
	require.Len(t, cpts, 2)

	c := cpts[0]
	assert.Equal(t, "org.example.Editor", c.ID)
	assert.Equal(t, components.KindDesktopApp, c.Kind)
	assert.Equal(t, "test-main", c.Origin)
	assert.Equal(t, components.OriginKindCollection, c.OriginKind)
	assert.Equal(t, components.MergeKindNone, c.MergeKind)
	assert.Equal(t, "Editor", c.Names["C"])
	assert.Equal(t, "Bearbeiter", c.Names["de"])
	assert.Equal(t, "Edit text files", c.Summary())
	assert.Equal(t, "<p>A simple editor.</p><ul><li>Fast</li></ul>", c.Descriptions["C"])
	assert.Equal(t, "<p>Ein einfacher Editor.</p><ul><li>Schnell</li></ul>", c.Descriptions["de"])
	assert.Equal(t, []string{"editor"}, c.PackageNames)
	assert.Equal(t, []string{"Utility", "TextEditor"}, c.Categories)
	assert.Equal(t, "https://example.org", c.URLs[components.URLKindHomepage])

	require.Len(t, c.Icons, 2)
	assert.Equal(t, components.Icon{Kind: components.IconKindCached, Name: "editor.png", Width: 64, Height: 64}, c.Icons[0])
	assert.Equal(t, "https://media.example.org/icons/editor.png", c.Icons[1].URL)

	assert.Equal(t, []string{"text"}, c.Keywords["C"])
	assert.Equal(t, []string{"Text"}, c.Keywords["de"])

	require.NotNil(t, c.ProvidedFor(components.ProvidedKindMediatype))
	assert.Equal(t, []string{"text/plain"}, c.ProvidedFor(components.ProvidedKindMediatype).Items)
	require.NotNil(t, c.ProvidedFor(components.ProvidedKindDBusUser))
	assert.True(t, c.ProvidedFor(components.ProvidedKindDBusUser).Has("org.example.Editor"))

	require.Len(t, c.Screenshots, 1)
	assert.Equal(t, components.ScreenshotKindDefault, c.Screenshots[0].Kind)
	assert.Equal(t, "Main window", c.Screenshots[0].Caption["C"])
	assert.Equal(t, "https://media.example.org/shots/main.png", c.Screenshots[0].Images[0].URL)

	require.Len(t, c.Releases, 2)
	assert.Equal(t, "1.10.0", c.Releases[0].Version, "releases are sorted newest first")
	assert.Equal(t, uint64(1700000000), c.Releases[1].Timestamp)
	assert.Equal(t, "<p>Bugfixes</p>", c.Releases[1].Description["C"])

	require.NotNil(t, c.LaunchableFor(components.LaunchableKindDesktopID))
	assert.Equal(t, []string{"org.example.Editor.desktop"}, c.LaunchableFor(components.LaunchableKindDesktopID).Entries)
	assert.Equal(t, 90, c.Languages["de"])
	require.Len(t, c.ContentRatings, 1)
	assert.Equal(t, components.RatingValueMild, c.ContentRatings[0].Values["violence-cartoon"])
	assert.Equal(t, "blue", c.Custom["x-color"])
	assert.True(t, c.IsValid())

	fragment := cpts[1]
	assert.Equal(t, components.MergeKindAppend, fragment.MergeKind)
	assert.Equal(t, 5, fragment.Priority)
	assert.Equal(t, []string{"Office"}, fragment.Categories)
	assert.True(t, fragment.IsValid(), "merge fragments only need an id")
}

func TestReadCollectionYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/yaml/main.yml", []byte(collectionYAML))

	cpts, err := NewReader(fs).ReadCollection(context.Background(), "/yaml/main.yml", sources.FormatYAML)
	require.NoError(t, err)
	require.Len(t, cpts, 2)

	c := cpts[0]
	assert.Equal(t, "org.example.Viewer", c.ID)
	assert.Equal(t, "test-yaml", c.Origin)
	assert.Equal(t, 10, c.Priority)
	assert.Equal(t, []string{"viewer"}, c.PackageNames)
	assert.Equal(t, "Betrachter", c.Names["de"])
	assert.Equal(t, "View images", c.Summary())
	assert.Equal(t, []string{"image", "photo"}, c.Keywords["C"])
	assert.Equal(t, []string{"Graphics"}, c.Categories)

	require.Len(t, c.Icons, 2)
	assert.Equal(t, components.IconKindStock, c.Icons[0].Kind)
	assert.Equal(t, components.Icon{Kind: components.IconKindCached, Name: "viewer_viewer.png", Width: 64, Height: 64}, c.Icons[1])

	assert.Equal(t, []string{"image/png"}, c.ProvidedFor(components.ProvidedKindMediatype).Items)
	assert.Equal(t, []string{"Viewer Sans"}, c.ProvidedFor(components.ProvidedKindFont).Items)

	require.Len(t, c.Screenshots, 1)
	shot := c.Screenshots[0]
	assert.Equal(t, components.ScreenshotKindDefault, shot.Kind)
	require.Len(t, shot.Images, 2)
	assert.Equal(t, components.ImageKindSource, shot.Images[0].Kind)
	assert.Equal(t, "https://media.example.org/shots/viewer.png", shot.Images[0].URL)
	assert.Equal(t, components.ImageKindThumbnail, shot.Images[1].Kind)

	require.Len(t, c.Releases, 1)
	assert.Equal(t, "2.0", c.Releases[0].Version)
	assert.Equal(t, components.ReleaseKindStable, c.Releases[0].Kind)
	assert.Equal(t, []string{"org.example.Viewer.desktop"}, c.LaunchableFor(components.LaunchableKindDesktopID).Entries)
	assert.Equal(t, components.RatingValueNone, c.ContentRatings[0].Values["violence-cartoon"])

	addon := cpts[1]
	assert.Equal(t, components.KindAddon, addon.Kind)
	assert.Equal(t, 20, addon.Priority)
	assert.Equal(t, []string{"org.example.Viewer"}, addon.Extends)
}

func TestReadCollectionErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/broken.xml", []byte("<components><component>"))
	writeFile(t, fs, "/headless.yml", []byte("Type: generic\nID: x\n"))
	reader := NewReader(fs)

	tests := []struct {
		name   string
		path   string
		format sources.Format
	}{
		{"truncated xml", "/broken.xml", sources.FormatXML},
		{"yaml without header", "/headless.yml", sources.FormatYAML},
		{"missing file", "/missing.xml", sources.FormatXML},
		{"desktop is not a collection", "/broken.xml", sources.FormatDesktop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reader.ReadCollection(context.Background(), tt.path, tt.format)
			assert.Error(t, err)
		})
	}

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := reader.ReadCollection(ctx, "/broken.xml", sources.FormatXML)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReadMetainfo(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/metainfo/org.example.Notes.metainfo.xml", []byte(metainfoXML))

	c, err := NewReader(fs).ReadMetainfo(context.Background(), "/metainfo/org.example.Notes.metainfo.xml")
	require.NoError(t, err)
	assert.Equal(t, "org.example.Notes", c.ID)
	assert.Equal(t, components.OriginKindMetainfo, c.OriginKind)
	assert.Equal(t, "Example Team", c.DeveloperName())
	assert.Equal(t, []string{"org.example.Notes.desktop"}, c.LaunchableFor(components.LaunchableKindDesktopID).Entries)
	assert.True(t, c.IsValid())
}

func TestReadDesktopEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/apps/org.example.Calc.desktop", []byte(desktopEntry))
	writeFile(t, fs, "/apps/calc.desktop", []byte(desktopEntry))
	writeFile(t, fs, "/apps/hidden.desktop", []byte("[Desktop Entry]\nType=Application\nName=Hidden\nComment=x\nNoDisplay=true\n"))
	writeFile(t, fs, "/apps/link.desktop", []byte("[Desktop Entry]\nType=Link\nName=Link\n"))
	writeFile(t, fs, "/apps/ignore.desktop", []byte("[Desktop Entry]\nType=Application\nName=I\nX-AppStream-Ignore=true\n"))
	writeFile(t, fs, "/apps/garbage.desktop", []byte("Name=No group\n"))
	reader := NewReader(fs)
	ctx := context.Background()

	t.Run("application", func(t *testing.T) {
		c, err := reader.ReadDesktopEntry(ctx, "/apps/org.example.Calc.desktop")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "org.example.Calc", c.ID)
		assert.Equal(t, components.KindDesktopApp, c.Kind)
		assert.Equal(t, components.OriginKindDesktopEntry, c.OriginKind)
		assert.Equal(t, "Calculator", c.Name())
		assert.Equal(t, "Rechner", c.Names["de"])
		assert.Equal(t, "Perform calculations", c.Summary())
		assert.Equal(t, []string{"Utility", "Calculator"}, c.Categories)
		assert.Equal(t, []string{"math", "numbers"}, c.Keywords["C"])
		assert.Equal(t, []string{"application/x-calc"}, c.ProvidedFor(components.ProvidedKindMediatype).Items)
		assert.Equal(t, []components.Icon{{Kind: components.IconKindStock, Name: "calc"}}, c.Icons)
		assert.Equal(t, []string{"org.example.Calc.desktop"}, c.LaunchableFor(components.LaunchableKindDesktopID).Entries)
		assert.Equal(t, math.MinInt, c.Priority)
		assert.False(t, c.Ignored)
	})

	t.Run("plain file name keeps suffix", func(t *testing.T) {
		c, err := reader.ReadDesktopEntry(ctx, "/apps/calc.desktop")
		require.NoError(t, err)
		assert.Equal(t, "calc.desktop", c.ID)
	})

	t.Run("nodisplay is ignored", func(t *testing.T) {
		c, err := reader.ReadDesktopEntry(ctx, "/apps/hidden.desktop")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.True(t, c.Ignored)
	})

	t.Run("non applications yield nothing", func(t *testing.T) {
		for _, path := range []string{"/apps/link.desktop", "/apps/ignore.desktop"} {
			c, err := reader.ReadDesktopEntry(ctx, path)
			require.NoError(t, err)
			assert.Nil(t, c, path)
		}
	})

	t.Run("missing group", func(t *testing.T) {
		_, err := reader.ReadDesktopEntry(ctx, "/apps/garbage.desktop")
		require.Error(t, err)
		var pe *errors.ParseError
		assert.True(t, errors.As(err, &pe))
	})
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want sources.Format
	}{
		{"/usr/share/app-info/xml/debian.xml.gz", sources.FormatXML},
		{"/usr/share/app-info/yaml/main.yml.zst", sources.FormatYAML},
		{"/usr/share/metainfo/org.example.App.metainfo.xml", sources.FormatMetainfo},
		{"/usr/share/metainfo/org.example.App.appdata.xml", sources.FormatMetainfo},
		{"/usr/share/applications/app.desktop", sources.FormatDesktop},
		{"/tmp/readme.txt", sources.FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, sources.FormatFromPath(tt.path))
		})
	}
}
