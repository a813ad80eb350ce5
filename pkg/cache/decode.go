package cache

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/gzip"

	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/diagnostics"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/search"
)

// Decode decompresses and parses a cache document. It returns the stored
// locale and every valid component. A missing or different format version
// is a *errors.CacheFormatError and no components are returned.
func Decode(data []byte) (string, []*components.Component, diagnostics.Diagnostics, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, nil, errors.NewCacheFormatError("", "not a compressed cache document", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return "", nil, nil, errors.NewCacheFormatError("", "corrupt compressed stream", err)
	}
	if err := zr.Close(); err != nil {
		return "", nil, nil, errors.NewCacheFormatError("", "corrupt compressed stream", err)
	}

	v, err := Unmarshal(raw)
	if err != nil {
		return "", nil, nil, errors.NewCacheFormatError("", "malformed document", err)
	}
	return DecodeDocument(v)
}

// DecodeDocument rebuilds components from an uncompressed document value.
func DecodeDocument(v Value) (string, []*components.Component, diagnostics.Diagnostics, error) {
	doc, ok := v.(Map)
	if !ok {
		return "", nil, nil, errors.NewCacheFormatError("", fmt.Sprintf("document is a %s, not a map", describe(v)), nil)
	}
	version, ok := doc.Get(keyFormatVersion)
	if !ok {
		return "", nil, nil, errors.NewCacheFormatError("", "format version is missing", nil)
	}
	if u, ok := version.(Uint); !ok || uint64(u) != uint64(constants.CacheFormatVersion) {
		return "", nil, nil, errors.NewCacheFormatError("", fmt.Sprintf(
			"format version %v is not supported, expected %d", version, constants.CacheFormatVersion), nil)
	}

	var diags diagnostics.Diagnostics
	d := &decoder{diags: &diags, subject: "document"}
	locale := d.maybe(doc, keyLocale)

	var out []*components.Component
	for i, item := range d.array(doc, keyComponents) {
		m, ok := item.(Map)
		if !ok {
			diags.Warnf(fmt.Sprintf("component %d", i), "skipping %s", describe(item))
			continue
		}
		c := decodeComponent(locale, m, &diags)
		if !c.IsValid() {
			diags.Warnf(c.DataID(), "dropping invalid component")
			continue
		}
		out = append(out, c)
	}
	return locale, out, diags, nil
}

// decoder reads typed fields from maps. Mismatched variants are recorded as
// diagnostics and read as the zero value.
type decoder struct {
	diags   *diagnostics.Diagnostics
	subject string
}

func (d *decoder) mismatch(key, want string, got Value) {
	d.diags.Warnf(d.subject, "ignoring %q: expected %s, found %s", key, want, describe(got))
}

func (d *decoder) str(m Map, key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	switch v := v.(type) {
	case Str:
		return string(v)
	case MaybeStr:
		if v.Value != nil {
			return *v.Value
		}
		return ""
	default:
		d.mismatch(key, "string", v)
		return ""
	}
}

func (d *decoder) maybe(m Map, key string) string {
	return d.str(m, key)
}

func (d *decoder) uint(m Map, key string) uint64 {
	v, ok := m.Get(key)
	if !ok {
		return 0
	}
	switch v := v.(type) {
	case Uint:
		return uint64(v)
	case Int:
		if v >= 0 {
			return uint64(v)
		}
	}
	d.mismatch(key, "unsigned integer", v)
	return 0
}

func (d *decoder) uint32(m Map, key string) uint32 {
	u := d.uint(m, key)
	if u > math.MaxUint32 {
		d.diags.Warnf(d.subject, "ignoring %q: %d overflows 32 bits", key, u)
		return 0
	}
	return uint32(u)
}

func (d *decoder) int(m Map, key string) int {
	v, ok := m.Get(key)
	if !ok {
		return 0
	}
	switch v := v.(type) {
	case Int:
		return int(v)
	case Uint:
		if uint64(v) <= math.MaxInt64 {
			return int(v)
		}
	}
	d.mismatch(key, "integer", v)
	return 0
}

func (d *decoder) array(m Map, key string) Array {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	arr, ok := v.(Array)
	if !ok {
		d.mismatch(key, "array", v)
		return nil
	}
	return arr
}

func (d *decoder) submap(m Map, key string) Map {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	sub, ok := v.(Map)
	if !ok {
		d.mismatch(key, "map", v)
		return nil
	}
	return sub
}

func (d *decoder) strs(m Map, key string) []string {
	arr := d.array(m, key)
	if len(arr) == 0 {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(Str)
		if !ok {
			d.mismatch(key, "string item", item)
			continue
		}
		out = append(out, string(s))
	}
	return out
}

// maps returns the map items of an array field.
func (d *decoder) maps(m Map, key string) []Map {
	arr := d.array(m, key)
	out := make([]Map, 0, len(arr))
	for _, item := range arr {
		sub, ok := item.(Map)
		if !ok {
			d.mismatch(key, "map item", item)
			continue
		}
		out = append(out, sub)
	}
	return out
}

func (d *decoder) stringMap(m Map, key string) map[string]string {
	sub := d.submap(m, key)
	if len(sub) == 0 {
		return nil
	}
	out := make(map[string]string, len(sub))
	for _, e := range sub {
		s, ok := e.Value.(Str)
		if !ok {
			d.mismatch(key+"."+e.Key, "string", e.Value)
			continue
		}
		out[e.Key] = string(s)
	}
	return out
}

// localized reads a field that is either an unqualified string for locale
// or a locale map.
func (d *decoder) localized(locale string, m Map, key string) components.Localized {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	switch v := v.(type) {
	case Str:
		return components.Localized{components.NormalizeLocale(locale): string(v)}
	case MaybeStr:
		if v.Value == nil {
			return nil
		}
		return components.Localized{components.NormalizeLocale(locale): *v.Value}
	case Map:
		return components.Localized(d.stringMap(m, key))
	default:
		d.mismatch(key, "localized string", v)
		return nil
	}
}

func (d *decoder) keywords(locale string, m Map, key string) components.LocalizedList {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	toStrings := func(k string, arr Array) []string {
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(Str); ok {
				out = append(out, string(s))
			} else {
				d.mismatch(k, "string item", item)
			}
		}
		return out
	}
	switch v := v.(type) {
	case Array:
		return components.LocalizedList{components.NormalizeLocale(locale): toStrings(key, v)}
	case Map:
		out := make(components.LocalizedList, len(v))
		for _, e := range v {
			arr, ok := e.Value.(Array)
			if !ok {
				d.mismatch(key+"."+e.Key, "array", e.Value)
				continue
			}
			out[e.Key] = toStrings(key+"."+e.Key, arr)
		}
		return out
	default:
		d.mismatch(key, "keyword list", v)
		return nil
	}
}

func decodeComponent(locale string, m Map, diags *diagnostics.Diagnostics) *components.Component {
	d := &decoder{diags: diags, subject: "component"}
	c := components.New(components.ParseKind(d.str(m, "type")), d.str(m, "id"))
	c.SetActiveLocale(locale)
	d.subject = c.ID

	c.Names = d.localized(locale, m, "name")
	c.Summaries = d.localized(locale, m, "summary")
	c.Descriptions = d.localized(locale, m, "description")
	c.DeveloperNames = d.localized(locale, m, "developer_name")
	c.Keywords = d.keywords(locale, m, "keywords")
	c.SourcePackageName = d.maybe(m, "source_pkgname")
	c.PackageNames = d.strs(m, "pkgnames")
	c.Origin = d.maybe(m, "origin")
	c.Extends = d.strs(m, "extends")
	c.Addons = d.strs(m, "addons")
	c.Categories = d.strs(m, "categories")
	c.CompulsoryForDesktops = d.strs(m, "compulsory_for")
	c.ProjectLicense = d.maybe(m, "project_license")
	c.ProjectGroup = d.maybe(m, "project_group")
	c.Architecture = d.maybe(m, "architecture")
	c.Priority = d.int(m, "priority")
	c.Scope = components.ParseScope(d.str(m, "scope"))
	c.OriginKind = components.ParseOriginKind(d.str(m, "origin_kind"))
	c.Custom = d.stringMap(m, "custom")

	if urls := d.stringMap(m, "urls"); len(urls) > 0 {
		c.URLs = make(map[components.URLKind]string, len(urls))
		for k, v := range urls {
			c.URLs[components.ParseURLKind(k)] = v
		}
	}
	if langs := d.submap(m, "languages"); len(langs) > 0 {
		c.Languages = make(map[string]int, len(langs))
		for _, e := range langs {
			c.Languages[e.Key] = d.int(Map{e}, e.Key)
		}
	}

	for _, bm := range d.maps(m, "bundles") {
		c.Bundles = append(c.Bundles, components.Bundle{
			Kind: components.ParseBundleKind(d.str(bm, "type")),
			ID:   d.str(bm, "id"),
		})
	}
	for _, lm := range d.maps(m, "launchables") {
		c.Launchables = append(c.Launchables, components.Launchable{
			Kind:    components.ParseLaunchableKind(d.str(lm, "kind")),
			Entries: d.strs(lm, "entries"),
		})
	}
	for _, im := range d.maps(m, "icons") {
		c.Icons = append(c.Icons, components.Icon{
			Kind:     components.ParseIconKind(d.str(im, "type")),
			Name:     d.maybe(im, "name"),
			URL:      d.maybe(im, "url"),
			Filename: d.maybe(im, "filename"),
			Width:    d.uint32(im, "width"),
			Height:   d.uint32(im, "height"),
			Scale:    d.uint32(im, "scale"),
		})
	}
	for _, pm := range d.maps(m, "provided") {
		c.Provided = append(c.Provided, components.Provided{
			Kind:  components.ParseProvidedKind(d.str(pm, "kind")),
			Items: d.strs(pm, "items"),
		})
	}
	for _, sm := range d.maps(m, "screenshots") {
		c.Screenshots = append(c.Screenshots, decodeScreenshot(d, locale, sm))
	}
	for _, rm := range d.maps(m, "releases") {
		c.Releases = append(c.Releases, decodeRelease(d, locale, rm))
	}
	for _, sm := range d.maps(m, "suggestions") {
		c.Suggested = append(c.Suggested, components.Suggested{
			Kind: components.ParseSuggestedKind(d.str(sm, "kind")),
			IDs:  d.strs(sm, "ids"),
		})
	}
	for _, rm := range d.maps(m, "content_ratings") {
		rating := components.ContentRating{Kind: d.str(rm, "type")}
		if values := d.stringMap(rm, "values"); len(values) > 0 {
			rating.Values = make(map[string]components.RatingValue, len(values))
			for k, v := range values {
				rating.Values[k] = components.ParseRatingValue(v)
			}
		}
		c.ContentRatings = append(c.ContentRatings, rating)
	}
	for _, tm := range d.maps(m, "translations") {
		c.Translations = append(c.Translations, components.Translation{
			Kind: components.ParseTranslationKind(d.str(tm, "kind")),
			ID:   d.str(tm, "id"),
		})
	}

	// restore the token cache last, setters above invalidate it
	if tv, ok := m.Get("tokens"); ok {
		if tm, ok := tv.(Map); ok {
			tokens := make(map[string]search.Match, len(tm))
			for _, e := range tm {
				u, ok := e.Value.(Uint)
				if !ok || uint64(u) > math.MaxUint16 {
					d.mismatch("tokens."+e.Key, "match flags", e.Value)
					continue
				}
				tokens[e.Key] = search.Match(u)
			}
			c.SetTokenCache(tokens)
		} else {
			d.mismatch("tokens", "map", tv)
		}
	}
	return c
}

func decodeScreenshot(d *decoder, locale string, m Map) components.Screenshot {
	s := components.Screenshot{
		Kind:    components.ParseScreenshotKind(d.str(m, "type")),
		Caption: d.localized(locale, m, "caption"),
	}
	for _, im := range d.maps(m, "images") {
		s.Images = append(s.Images, components.Image{
			Kind:   components.ParseImageKind(d.str(im, "type")),
			URL:    d.str(im, "url"),
			Width:  d.uint32(im, "width"),
			Height: d.uint32(im, "height"),
			Locale: d.maybe(im, "locale"),
		})
	}
	for _, vm := range d.maps(m, "videos") {
		s.Videos = append(s.Videos, components.Video{
			Codec:     d.maybe(vm, "codec"),
			Container: d.maybe(vm, "container"),
			URL:       d.str(vm, "url"),
			Width:     d.uint32(vm, "width"),
			Height:    d.uint32(vm, "height"),
			Locale:    d.maybe(vm, "locale"),
		})
	}
	return s
}

func decodeRelease(d *decoder, locale string, m Map) components.Release {
	r := components.Release{
		Version:     d.str(m, "version"),
		Timestamp:   d.uint(m, "timestamp"),
		Kind:        components.ParseReleaseKind(d.str(m, "type")),
		Urgency:     components.ParseUrgencyKind(d.str(m, "urgency")),
		Description: d.localized(locale, m, "description"),
		Locations:   d.strs(m, "locations"),
	}
	if sums := d.stringMap(m, "checksums"); len(sums) > 0 {
		r.Checksums = make(map[components.ChecksumKind]string, len(sums))
		for k, v := range sums {
			r.Checksums[components.ParseChecksumKind(k)] = v
		}
	}
	if sizes := d.submap(m, "sizes"); len(sizes) > 0 {
		r.Sizes = make(map[components.SizeKind]uint64, len(sizes))
		for _, e := range sizes {
			r.Sizes[components.ParseSizeKind(e.Key)] = d.uint(Map{e}, e.Key)
		}
	}
	return r
}
