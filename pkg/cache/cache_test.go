package cache

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/search"
)

var componentOpts = []cmp.Option{
	cmpopts.IgnoreUnexported(components.Component{}),
	cmpopts.EquateEmpty(),
}

// richComponent fills every serialized field.
func richComponent(t testing.TB) *components.Component {
	t.Helper()
	c := components.TestComponent(t, "org.example.Editor")
	c.Names = components.Localized{"C": "Editor", "de": "Bearbeiter"}
	c.Summaries = components.Localized{"C": "Edit text files"}
	c.Descriptions = components.Localized{"C": "<p>A powerful editor.</p>"}
	c.DeveloperNames = components.Localized{"C": "Example Developers"}
	c.Keywords = components.LocalizedList{"C": {"text", "editor"}}
	c.ProjectLicense = "GPL-3.0+"
	c.ProjectGroup = "GNOME"
	c.SourcePackageName = "editor-src"
	c.PackageNames = []string{"editor", "editor-data"}
	c.Categories = []string{"Utility", "TextEditor"}
	c.CompulsoryForDesktops = []string{"GNOME"}
	c.Extends = []string{"org.example.Base"}
	c.Addons = []string{"system/package/os/org.example.Editor.Plugin"}
	c.Languages = map[string]int{"de": 95, "fr": 40}
	c.URLs = map[components.URLKind]string{components.URLKindHomepage: "https://example.org"}
	c.Custom = map[string]string{"X-Flavor": "vanilla"}
	c.Architecture = "x86_64"
	c.Priority = -5
	c.Provided = []components.Provided{
		{Kind: components.ProvidedKindMediatype, Items: []string{"text/plain"}},
		{Kind: components.ProvidedKindBinary, Items: []string{"editor"}},
	}
	c.Bundles = []components.Bundle{{Kind: components.BundleKindFlatpak, ID: "app/org.example.Editor/x86_64/stable"}}
	c.Icons = []components.Icon{
		{Kind: components.IconKindCached, Name: "editor.png", Width: 64, Height: 64},
		{Kind: components.IconKindRemote, URL: "https://example.org/editor.png", Width: 128, Height: 128, Scale: 2},
		{Kind: components.IconKindStock, Name: "accessories-text-editor"},
	}
	c.Screenshots = []components.Screenshot{{
		Kind:    components.ScreenshotKindDefault,
		Caption: components.Localized{"C": "Main window", "de": "Hauptfenster"},
		Images: []components.Image{
			{Kind: components.ImageKindSource, URL: "https://example.org/s.png", Width: 1600, Height: 900},
			{Kind: components.ImageKindThumbnail, URL: "https://example.org/t.png", Width: 224, Height: 126, Locale: "de"},
		},
		Videos: []components.Video{
			{Codec: "av1", Container: "webm", URL: "https://example.org/v.webm", Width: 1920, Height: 1080},
		},
	}}
	c.Releases = []components.Release{{
		Version:     "2.0.1",
		Timestamp:   1700000000,
		Kind:        components.ReleaseKindStable,
		Urgency:     components.UrgencyKindHigh,
		Description: components.Localized{"C": "<p>Bug fixes</p>"},
		Locations:   []string{"https://example.org/editor-2.0.1.tar.xz"},
		Checksums:   map[components.ChecksumKind]string{components.ChecksumKindSHA256: "abc123"},
		Sizes:       map[components.SizeKind]uint64{components.SizeKindDownload: 1 << 20, components.SizeKindInstalled: 4 << 20},
	}}
	c.Suggested = []components.Suggested{{Kind: components.SuggestedKindUpstream, IDs: []string{"org.example.Spell"}}}
	c.ContentRatings = []components.ContentRating{{
		Kind:   "oars-1.1",
		Values: map[string]components.RatingValue{"violence-cartoon": components.RatingValueMild},
	}}
	c.Launchables = []components.Launchable{{Kind: components.LaunchableKindDesktopID, Entries: []string{"org.example.Editor.desktop"}}}
	c.Translations = []components.Translation{{Kind: components.TranslationKindGettext, ID: "editor"}}
	return c
}

func gzipBytes(t testing.TB, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	rich := richComponent(t)
	rich.BuildTokenCache(search.NewConfig())
	plain := components.TestComponent(t, "org.example.Plain")
	plain.Scope = components.ScopeUser

	want := []*components.Component{rich, plain}
	data, diags, err := Encode("C", want)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Empty(t, diags)

	locale, got, diags, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, "C", locale)

	if diff := cmp.Diff(want, got, componentOpts...); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	wantTokens, _ := rich.TokenCache()
	gotTokens, valid := got[0].TokenCache()
	assert.True(t, valid, "restored tokens mark the cache valid")
	assert.Equal(t, wantTokens, gotTokens)

	_, valid = got[1].TokenCache()
	assert.False(t, valid)
}

func TestRoundTripLocale(t *testing.T) {
	c := components.TestComponent(t, "org.example.App")
	c.Names = components.Localized{"de_DE": "Anwendung"}
	c.Summaries = components.Localized{"de_DE": "Eine Anwendung"}
	c.SetActiveLocale("de_DE")

	data, _, err := Encode("de_DE", []*components.Component{c})
	require.NoError(t, err)

	locale, got, _, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "de_DE", locale)
	require.Len(t, got, 1)
	assert.Equal(t, "de_DE", got[0].ActiveLocale())
	assert.Equal(t, "Anwendung", got[0].Name())
	assert.Equal(t, components.Localized{"de_DE": "Anwendung"}, got[0].Names)
}

func TestEncodeDocumentUsesOptionalStrings(t *testing.T) {
	c := components.TestComponent(t, "org.example.App")
	doc, _ := EncodeDocument("", []*components.Component{c})
	require.NotNil(t, doc)

	loc, ok := doc.Get(keyLocale)
	require.True(t, ok)
	assert.Equal(t, None(), loc, "no locale is an absent optional string")

	arr, ok := doc.Get(keyComponents)
	require.True(t, ok)
	cm := arr.(Array)[0].(Map)

	origin, ok := cm.Get("origin")
	require.True(t, ok)
	assert.Equal(t, Some("test-origin"), origin)

	_, ok = cm.Get("screenshots")
	assert.False(t, ok, "empty collections are omitted")
	_, ok = cm.Get("project_license")
	assert.False(t, ok, "empty optional strings are omitted")
}

func TestEncodeEmpty(t *testing.T) {
	data, diags, err := Encode("C", nil)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Empty(t, diags)

	invalid := components.TestComponent(t, "org.example.Invalid")
	invalid.Names = nil
	fragment := components.New(components.KindGeneric, "org.example.App")
	fragment.MergeKind = components.MergeKindAppend

	data, diags, err = Encode("C", []*components.Component{invalid, fragment})
	require.NoError(t, err)
	assert.Nil(t, data)
	require.Len(t, diags, 1, "merge fragments are skipped silently")
	assert.Contains(t, diags[0].Message, "invalid")
}

func TestDecodeVersionGate(t *testing.T) {
	component := Map{{Key: "type", Value: Str("desktop-application")}, {Key: "id", Value: Str("org.example.App")}}
	tests := []struct {
		name string
		doc  Value
	}{
		{"future version", Map{
			{Key: keyFormatVersion, Value: Uint(2)},
			{Key: keyComponents, Value: Array{component}},
		}},
		{"missing version", Map{
			{Key: keyComponents, Value: Array{component}},
		}},
		{"version with wrong variant", Map{
			{Key: keyFormatVersion, Value: Str("1")},
			{Key: keyComponents, Value: Array{component}},
		}},
		{"not a map", Array{component}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locale, cpts, _, err := Decode(gzipBytes(t, Marshal(tt.doc)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCacheFormat))
			assert.True(t, errors.IsCacheUnusable(err))
			assert.Empty(t, locale)
			assert.Nil(t, cpts)
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, _, _, err := Decode([]byte("definitely not gzip"))
	assert.True(t, errors.Is(err, errors.ErrCacheFormat))

	raw := Marshal(Map{{Key: keyFormatVersion, Value: Uint(1)}})
	_, _, _, err = Decode(gzipBytes(t, raw[:len(raw)-1]))
	assert.True(t, errors.Is(err, errors.ErrCacheFormat))
}

func TestDecodeToleratesMismatchedFields(t *testing.T) {
	doc := Map{
		{Key: keyFormatVersion, Value: Uint(1)},
		{Key: keyLocale, Value: Some("C")},
		{Key: keyComponents, Value: Array{
			Map{
				{Key: "type", Value: Str("desktop-application")},
				{Key: "id", Value: Str("org.example.App")},
				{Key: "name", Value: Some("App")},
				{Key: "summary", Value: Str("Summary")},
				{Key: "categories", Value: Uint(3)},
				{Key: "pkgnames", Value: Array{Str("app"), Uint(1)}},
				{Key: "icons", Value: Str("oops")},
				{Key: "priority", Value: Str("high")},
				{Key: "tokens", Value: Map{{Key: "app", Value: Str("bad")}}},
			},
			Str("not a component"),
		}},
	}

	var (
		cpts  []*components.Component
		diags []string
	)
	require.NotPanics(t, func() {
		_, got, ds, err := Decode(gzipBytes(t, Marshal(doc)))
		require.NoError(t, err)
		cpts = got
		for _, d := range ds {
			diags = append(diags, d.String())
		}
	})

	require.Len(t, cpts, 1)
	c := cpts[0]
	assert.Equal(t, "App", c.Name())
	assert.Equal(t, "Summary", c.Summary())
	assert.Empty(t, c.Categories)
	assert.Equal(t, []string{"app"}, c.PackageNames)
	assert.Empty(t, c.Icons)
	assert.Zero(t, c.Priority)
	assert.GreaterOrEqual(t, len(diags), 6)
}

func TestDecodeDropsInvalidComponents(t *testing.T) {
	doc := Map{
		{Key: keyFormatVersion, Value: Uint(1)},
		{Key: keyComponents, Value: Array{
			Map{
				{Key: "type", Value: Str("desktop-application")},
				{Key: "id", Value: Str("")},
				{Key: "name", Value: Some("No Id")},
				{Key: "summary", Value: Some("Summary")},
			},
		}},
	}
	_, cpts, diags, err := Decode(gzipBytes(t, Marshal(doc)))
	require.NoError(t, err)
	assert.Empty(t, cpts)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "invalid")
}

func TestWireRoundTrip(t *testing.T) {
	values := []Value{
		Null{},
		Bool(true),
		Bool(false),
		Uint(1 << 40),
		Int(-42),
		Str(""),
		Str("hello"),
		Some(""),
		None(),
		Array{Str("a"), Uint(1), Array{Null{}}},
		Map{{Key: "b", Value: Int(2)}, {Key: "a", Value: Map{{Key: "nested", Value: Some("x")}}}},
	}
	for _, v := range values {
		t.Run(v.Kind(), func(t *testing.T) {
			got, err := Unmarshal(Marshal(v))
			require.NoError(t, err)
			assert.Equal(t, v, got)
		})
	}

	assert.NotEqual(t, Marshal(Some("")), Marshal(None()), "empty and absent strings differ")

	_, err := Unmarshal([]byte{0x78, 0x00}) // field 15, varint
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/var/cache/app-info/cache/C.gvz"

	written, _, err := WriteFile(fs, path, "C", []*components.Component{richComponent(t)})
	require.NoError(t, err)
	assert.True(t, written)

	entries, err := afero.ReadDir(fs, "/var/cache/app-info/cache")
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
	assert.Equal(t, "C.gvz", entries[0].Name())

	locale, cpts, _, err := ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "C", locale)
	require.Len(t, cpts, 1)
	assert.Equal(t, "org.example.Editor", cpts[0].ID)

	// an empty encode leaves the existing file alone
	written, _, err = WriteFile(fs, path, "C", nil)
	require.NoError(t, err)
	assert.False(t, written)
	_, _, _, err = ReadFile(fs, path)
	require.NoError(t, err)
}

func TestWriteFileNothingToWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	written, diags, err := WriteFile(fs, "/cache/C.gvz", "C", nil)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Len(t, diags, 1)

	exists, err := afero.Exists(fs, "/cache/C.gvz")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReadFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, _, _, err := ReadFile(fs, "/missing.gvz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCacheIO))
	assert.False(t, errors.Is(err, errors.ErrCacheFormat))

	require.NoError(t, afero.WriteFile(fs, "/broken.gvz", []byte("junk"), 0o644))
	_, _, _, err = ReadFile(fs, "/broken.gvz")
	require.Error(t, err)
	var fe *errors.CacheFormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "/broken.gvz", fe.Path)
}
