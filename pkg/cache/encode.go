package cache

import (
	"bytes"
	"sort"

	"github.com/klauspost/compress/gzip"

	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/diagnostics"
	"github.com/agentstation/metapool/pkg/errors"
)

// Document keys.
const (
	keyFormatVersion = "format_version"
	keyLocale        = "locale"
	keyComponents    = "components"
)

// Encode serializes components for locale into a gzip-compressed cache
// document. Invalid components are skipped with a diagnostic and merge
// fragments are skipped silently. When nothing is left to write Encode
// returns nil bytes and no error.
func Encode(locale string, cpts []*components.Component) ([]byte, diagnostics.Diagnostics, error) {
	doc, diags := EncodeDocument(locale, cpts)
	if doc == nil {
		return nil, diags, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(Marshal(doc)); err != nil {
		return nil, diags, errors.WrapCacheIO("compress", "", err)
	}
	if err := zw.Close(); err != nil {
		return nil, diags, errors.WrapCacheIO("compress", "", err)
	}
	return buf.Bytes(), diags, nil
}

// EncodeDocument builds the uncompressed document, or nil when no component
// is serializable.
func EncodeDocument(locale string, cpts []*components.Component) (Map, diagnostics.Diagnostics) {
	var diags diagnostics.Diagnostics
	arr := make(Array, 0, len(cpts))
	for _, c := range cpts {
		if c == nil {
			continue
		}
		if c.MergeKind != components.MergeKindNone {
			continue
		}
		if !c.IsValid() {
			diags.Warnf(c.DataID(), "not serializing invalid component")
			continue
		}
		arr = append(arr, encodeComponent(locale, c))
	}
	if len(arr) == 0 {
		return nil, diags
	}

	loc := None()
	if locale != "" {
		loc = Some(locale)
	}
	return Map{
		{Key: keyFormatVersion, Value: Uint(constants.CacheFormatVersion)},
		{Key: keyLocale, Value: loc},
		{Key: keyComponents, Value: arr},
	}, diags
}

func encodeComponent(locale string, c *components.Component) Map {
	var b mapBuilder
	b.put("type", Str(c.Kind))
	b.put("id", Str(c.ID))
	if v := encodeLocalized(locale, c.Names); v != nil {
		b.put("name", v)
	}
	if v := encodeLocalized(locale, c.Summaries); v != nil {
		b.put("summary", v)
	}
	b.maybe("source_pkgname", c.SourcePackageName)
	b.strs("pkgnames", c.PackageNames)
	b.maybe("origin", c.Origin)
	b.array("bundles", encodeBundles(c.Bundles))
	b.array("launchables", encodeLaunchables(c.Launchables))
	b.strs("extends", c.Extends)
	b.strs("addons", c.Addons)
	b.sub("urls", encodeURLs(c.URLs))
	b.array("icons", encodeIcons(c.Icons))
	if v := encodeLocalized(locale, c.Descriptions); v != nil {
		b.put("description", v)
	}
	b.strs("categories", c.Categories)
	b.strs("compulsory_for", c.CompulsoryForDesktops)
	b.maybe("project_license", c.ProjectLicense)
	b.maybe("project_group", c.ProjectGroup)
	if v := encodeLocalized(locale, c.DeveloperNames); v != nil {
		b.put("developer_name", v)
	}
	b.array("provided", encodeProvided(c.Provided))
	b.array("screenshots", encodeScreenshots(locale, c.Screenshots))
	b.array("releases", encodeReleases(locale, c.Releases))
	b.sub("languages", encodeLanguages(c.Languages))
	b.array("suggestions", encodeSuggested(c.Suggested))
	b.array("content_ratings", encodeContentRatings(c.ContentRatings))
	b.sub("custom", encodeStringMap(c.Custom))
	if tokens, ok := c.TokenCache(); ok {
		tm := make(Map, 0, len(tokens))
		for _, k := range sortedKeys(tokens) {
			tm = append(tm, Entry{Key: k, Value: Uint(tokens[k])})
		}
		// an empty map still marks the cache as computed
		b.put("tokens", tm)
	}
	if v := encodeKeywords(locale, c.Keywords); v != nil {
		b.put("keywords", v)
	}
	b.maybe("architecture", c.Architecture)
	if c.Priority != 0 {
		b.put("priority", Int(c.Priority))
	}
	b.str("scope", string(c.Scope))
	b.str("origin_kind", string(c.OriginKind))
	b.array("translations", encodeTranslations(c.Translations))
	return b.m
}

// encodeLocalized writes a value that only exists for the document locale
// as a plain optional string, anything else as a locale map.
func encodeLocalized(locale string, l components.Localized) Value {
	if len(l) == 0 {
		return nil
	}
	if len(l) == 1 {
		if v, ok := l[components.NormalizeLocale(locale)]; ok {
			return Some(v)
		}
	}
	return encodeStringMap(l)
}

func encodeKeywords(locale string, l components.LocalizedList) Value {
	if len(l) == 0 {
		return nil
	}
	toArray := func(ss []string) Array {
		arr := make(Array, len(ss))
		for i, s := range ss {
			arr[i] = Str(s)
		}
		return arr
	}
	if len(l) == 1 {
		if v, ok := l[components.NormalizeLocale(locale)]; ok {
			return toArray(v)
		}
	}
	m := make(Map, 0, len(l))
	for _, k := range sortedKeys(l) {
		m = append(m, Entry{Key: k, Value: toArray(l[k])})
	}
	return m
}

func encodeStringMap[K ~string](in map[K]string) Map {
	m := make(Map, 0, len(in))
	for _, k := range sortedKeys(in) {
		m = append(m, Entry{Key: string(k), Value: Str(in[k])})
	}
	return m
}

func encodeURLs(urls map[components.URLKind]string) Map {
	return encodeStringMap(urls)
}

func encodeLanguages(langs map[string]int) Map {
	m := make(Map, 0, len(langs))
	for _, k := range sortedKeys(langs) {
		pct := langs[k]
		if pct < 0 {
			m = append(m, Entry{Key: k, Value: Int(pct)})
			continue
		}
		m = append(m, Entry{Key: k, Value: Uint(pct)})
	}
	return m
}

func encodeBundles(bundles []components.Bundle) Array {
	arr := make(Array, 0, len(bundles))
	for _, bd := range bundles {
		var b mapBuilder
		b.put("type", Str(bd.Kind))
		b.put("id", Str(bd.ID))
		arr = append(arr, b.m)
	}
	return arr
}

func encodeLaunchables(launchables []components.Launchable) Array {
	arr := make(Array, 0, len(launchables))
	for _, l := range launchables {
		var b mapBuilder
		b.put("kind", Str(l.Kind))
		b.strs("entries", l.Entries)
		arr = append(arr, b.m)
	}
	return arr
}

func encodeIcons(icons []components.Icon) Array {
	arr := make(Array, 0, len(icons))
	for _, icon := range icons {
		var b mapBuilder
		b.put("type", Str(icon.Kind))
		b.uint("width", uint64(icon.Width))
		b.uint("height", uint64(icon.Height))
		b.uint("scale", uint64(icon.Scale))
		b.maybe("name", icon.Name)
		b.maybe("url", icon.URL)
		b.maybe("filename", icon.Filename)
		arr = append(arr, b.m)
	}
	return arr
}

func encodeProvided(provided []components.Provided) Array {
	arr := make(Array, 0, len(provided))
	for _, p := range provided {
		if len(p.Items) == 0 {
			continue
		}
		var b mapBuilder
		b.put("kind", Str(p.Kind))
		b.strs("items", p.Items)
		arr = append(arr, b.m)
	}
	return arr
}

func encodeScreenshots(locale string, shots []components.Screenshot) Array {
	arr := make(Array, 0, len(shots))
	for _, s := range shots {
		var b mapBuilder
		b.put("type", Str(s.Kind))
		if v := encodeLocalized(locale, s.Caption); v != nil {
			b.put("caption", v)
		}
		images := make(Array, 0, len(s.Images))
		for _, img := range s.Images {
			var ib mapBuilder
			ib.put("type", Str(img.Kind))
			ib.put("url", Str(img.URL))
			ib.uint("width", uint64(img.Width))
			ib.uint("height", uint64(img.Height))
			ib.maybe("locale", img.Locale)
			images = append(images, ib.m)
		}
		b.array("images", images)
		videos := make(Array, 0, len(s.Videos))
		for _, vid := range s.Videos {
			var vb mapBuilder
			vb.maybe("codec", vid.Codec)
			vb.maybe("container", vid.Container)
			vb.put("url", Str(vid.URL))
			vb.uint("width", uint64(vid.Width))
			vb.uint("height", uint64(vid.Height))
			vb.maybe("locale", vid.Locale)
			videos = append(videos, vb.m)
		}
		b.array("videos", videos)
		arr = append(arr, b.m)
	}
	return arr
}

func encodeReleases(locale string, releases []components.Release) Array {
	arr := make(Array, 0, len(releases))
	for _, r := range releases {
		var b mapBuilder
		b.put("version", Str(r.Version))
		b.uint("timestamp", r.Timestamp)
		b.str("type", string(r.Kind))
		b.str("urgency", string(r.Urgency))
		if v := encodeLocalized(locale, r.Description); v != nil {
			b.put("description", v)
		}
		b.strs("locations", r.Locations)
		b.sub("checksums", encodeStringMap(r.Checksums))
		sizes := make(Map, 0, len(r.Sizes))
		for _, k := range sortedKeys(r.Sizes) {
			sizes = append(sizes, Entry{Key: string(k), Value: Uint(r.Sizes[k])})
		}
		b.sub("sizes", sizes)
		arr = append(arr, b.m)
	}
	return arr
}

func encodeSuggested(suggested []components.Suggested) Array {
	arr := make(Array, 0, len(suggested))
	for _, s := range suggested {
		var b mapBuilder
		b.put("kind", Str(s.Kind))
		b.strs("ids", s.IDs)
		arr = append(arr, b.m)
	}
	return arr
}

func encodeContentRatings(ratings []components.ContentRating) Array {
	arr := make(Array, 0, len(ratings))
	for _, r := range ratings {
		var b mapBuilder
		b.put("type", Str(r.Kind))
		values := make(Map, 0, len(r.Values))
		for _, k := range sortedKeys(r.Values) {
			values = append(values, Entry{Key: k, Value: Str(r.Values[k])})
		}
		b.sub("values", values)
		arr = append(arr, b.m)
	}
	return arr
}

func encodeTranslations(translations []components.Translation) Array {
	arr := make(Array, 0, len(translations))
	for _, t := range translations {
		var b mapBuilder
		b.put("kind", Str(t.Kind))
		b.put("id", Str(t.ID))
		arr = append(arr, b.m)
	}
	return arr
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
