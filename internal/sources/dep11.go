package sources

import (
	"bytes"
	"io"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
)

// dep11Document is one YAML document of a DEP-11 file. The first document
// is a header (File: DEP-11), every other document describes a component.
type dep11Document struct {
	// Header
	File         string `yaml:"File"`
	Version      string `yaml:"Version"`
	Origin       string `yaml:"Origin"`
	MediaBaseURL string `yaml:"MediaBaseUrl"`
	Architecture string `yaml:"Architecture"`

	// Component
	Type                  string                       `yaml:"Type"`
	ID                    string                       `yaml:"ID"`
	Priority              *int                         `yaml:"Priority"`
	Merge                 string                       `yaml:"Merge"`
	Package               string                       `yaml:"Package"`
	SourcePackage         string                       `yaml:"SourcePackage"`
	Name                  map[string]string            `yaml:"Name"`
	Summary               map[string]string            `yaml:"Summary"`
	Description           map[string]string            `yaml:"Description"`
	DeveloperName         map[string]string            `yaml:"DeveloperName"`
	Keywords              map[string][]string          `yaml:"Keywords"`
	ProjectLicense        string                       `yaml:"ProjectLicense"`
	ProjectGroup          string                       `yaml:"ProjectGroup"`
	Categories            []string                     `yaml:"Categories"`
	CompulsoryForDesktops []string                     `yaml:"CompulsoryForDesktops"`
	Extends               []string                     `yaml:"Extends"`
	URL                   map[string]string            `yaml:"Url"`
	Icon                  dep11Icons                   `yaml:"Icon"`
	Provides              dep11Provides                `yaml:"Provides"`
	Screenshots           []dep11Screenshot            `yaml:"Screenshots"`
	Releases              []dep11Release               `yaml:"Releases"`
	Launchable            map[string][]string          `yaml:"Launchable"`
	Bundles               []dep11Bundle                `yaml:"Bundles"`
	Languages             []dep11Language              `yaml:"Languages"`
	Suggests              []dep11Suggests              `yaml:"Suggests"`
	ContentRating         map[string]map[string]string `yaml:"ContentRating"`
	Translation           []dep11Bundle                `yaml:"Translation"`
	Custom                map[string]string            `yaml:"Custom"`
}

type dep11Icon struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
	Scale  uint32 `yaml:"scale"`
}

type dep11Icons struct {
	Stock  string      `yaml:"stock"`
	Cached []dep11Icon `yaml:"cached"`
	Local  []dep11Icon `yaml:"local"`
	Remote []dep11Icon `yaml:"remote"`
}

type dep11Provides struct {
	Mediatypes []string `yaml:"mediatypes"`
	Binaries   []string `yaml:"binaries"`
	Libraries  []string `yaml:"libraries"`
	Modaliases []string `yaml:"modaliases"`
	Python2    []string `yaml:"python2"`
	Python3    []string `yaml:"python3"`
	IDs        []string `yaml:"ids"`
	Fonts      []struct {
		Name string `yaml:"name"`
	} `yaml:"fonts"`
	Firmware []struct {
		Type string `yaml:"type"`
		File string `yaml:"file"`
		GUID string `yaml:"guid"`
	} `yaml:"firmware"`
	DBus []struct {
		Type    string `yaml:"type"`
		Service string `yaml:"service"`
	} `yaml:"dbus"`
}

type dep11Image struct {
	URL    string `yaml:"url"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
	Lang   string `yaml:"lang"`
}

type dep11Video struct {
	Codec     string `yaml:"codec"`
	Container string `yaml:"container"`
	URL       string `yaml:"url"`
	Width     uint32 `yaml:"width"`
	Height    uint32 `yaml:"height"`
	Lang      string `yaml:"lang"`
}

type dep11Screenshot struct {
	Default     bool              `yaml:"default"`
	Caption     map[string]string `yaml:"caption"`
	SourceImage *dep11Image       `yaml:"source-image"`
	Thumbnails  []dep11Image      `yaml:"thumbnails"`
	Videos      []dep11Video      `yaml:"videos"`
}

type dep11Release struct {
	Version       string            `yaml:"version"`
	UnixTimestamp uint64            `yaml:"unix-timestamp"`
	Date          string            `yaml:"date"`
	Type          string            `yaml:"type"`
	Urgency       string            `yaml:"urgency"`
	Description   map[string]string `yaml:"description"`
	Locations     []string          `yaml:"locations"`
	Checksum      map[string]string `yaml:"checksum"`
	Size          map[string]uint64 `yaml:"size"`
}

type dep11Bundle struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
}

type dep11Language struct {
	Locale     string `yaml:"locale"`
	Percentage int    `yaml:"percentage"`
}

type dep11Suggests struct {
	Type string   `yaml:"type"`
	IDs  []string `yaml:"ids"`
}

// parseCollectionYAML decodes a multi-document DEP-11 file.
func parseCollectionYAML(data []byte) ([]*components.Component, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var (
		ctx    = collectionContext{originKind: components.OriginKindCollection}
		cpts   []*components.Component
		header bool
	)
	for {
		var doc dep11Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return cpts, err
		}
		if doc.File != "" {
			if doc.File != "DEP-11" {
				return nil, errors.NewValidationError("File", doc.File, "not a DEP-11 document")
			}
			header = true
			ctx.origin = doc.Origin
			ctx.architecture = doc.Architecture
			ctx.mediaBaseURL = doc.MediaBaseURL
			if doc.Priority != nil {
				ctx.priority = *doc.Priority
			}
			continue
		}
		if !header {
			return nil, errors.NewValidationError("File", "", "DEP-11 header missing")
		}
		cpts = append(cpts, doc.component(ctx))
	}
	return cpts, nil
}

func (d *dep11Document) component(ctx collectionContext) *components.Component {
	c := components.New(components.ParseKind(d.Type), clean(d.ID))
	c.Origin = ctx.origin
	c.OriginKind = ctx.originKind
	c.Architecture = ctx.architecture
	c.Priority = ctx.priority
	if d.Priority != nil {
		c.Priority = *d.Priority
	}
	c.MergeKind = components.ParseMergeKind(d.Merge)

	for locale, v := range d.Name {
		c.SetName(clean(v), langOf(locale))
	}
	for locale, v := range d.Summary {
		c.SetSummary(clean(v), langOf(locale))
	}
	for locale, v := range d.Description {
		c.SetDescription(clean(v), langOf(locale))
	}
	for locale, v := range d.DeveloperName {
		c.SetDeveloperName(clean(v), langOf(locale))
	}
	for locale, kws := range d.Keywords {
		c.SetKeywords(cleanAll(kws), langOf(locale))
	}

	c.AddPackageName(clean(d.Package))
	c.SourcePackageName = clean(d.SourcePackage)
	c.ProjectLicense = clean(d.ProjectLicense)
	c.ProjectGroup = clean(d.ProjectGroup)
	for _, cat := range d.Categories {
		c.AddCategory(clean(cat))
	}
	c.CompulsoryForDesktops = cleanAll(d.CompulsoryForDesktops)
	for _, e := range d.Extends {
		c.AddExtends(clean(e))
	}
	for kind, u := range d.URL {
		if k := components.ParseURLKind(kind); k != components.URLKindUnknown {
			c.SetURL(k, clean(u))
		}
	}

	d.Icon.addTo(c, ctx.mediaBaseURL)
	d.Provides.addTo(c)

	for _, s := range d.Screenshots {
		c.Screenshots = append(c.Screenshots, s.screenshot(ctx.mediaBaseURL))
	}
	for _, r := range d.Releases {
		c.Releases = append(c.Releases, r.release())
	}
	components.SortReleases(c.Releases)

	for _, kind := range sortedMapKeys(d.Launchable) {
		c.AddLaunchable(components.ParseLaunchableKind(kind), cleanAll(d.Launchable[kind])...)
	}
	for _, b := range d.Bundles {
		c.AddBundle(components.ParseBundleKind(b.Type), clean(b.ID))
	}
	for _, l := range d.Languages {
		if c.Languages == nil {
			c.Languages = make(map[string]int)
		}
		c.Languages[clean(l.Locale)] = l.Percentage
	}
	for _, s := range d.Suggests {
		kind := components.ParseSuggestedKind(s.Type)
		if kind == components.SuggestedKindUnknown {
			kind = components.SuggestedKindUpstream
		}
		c.Suggested = append(c.Suggested, components.Suggested{Kind: kind, IDs: cleanAll(s.IDs)})
	}
	for _, kind := range sortedMapKeys(d.ContentRating) {
		rating := components.ContentRating{Kind: kind, Values: make(map[string]components.RatingValue)}
		for attr, level := range d.ContentRating[kind] {
			rating.Values[attr] = components.ParseRatingValue(level)
		}
		c.ContentRatings = append(c.ContentRatings, rating)
	}
	for _, t := range d.Translation {
		c.Translations = append(c.Translations, components.Translation{
			Kind: components.ParseTranslationKind(t.Type),
			ID:   clean(t.ID),
		})
	}
	if len(d.Custom) > 0 {
		c.Custom = make(map[string]string, len(d.Custom))
		for k, v := range d.Custom {
			c.Custom[k] = v
		}
	}
	return c
}

func (i dep11Icons) addTo(c *components.Component, mediaBaseURL string) {
	if i.Stock != "" {
		c.Icons = append(c.Icons, components.Icon{Kind: components.IconKindStock, Name: clean(i.Stock)})
	}
	for _, ic := range i.Cached {
		c.Icons = append(c.Icons, components.Icon{
			Kind: components.IconKindCached, Name: clean(ic.Name),
			Width: ic.Width, Height: ic.Height, Scale: ic.Scale,
		})
	}
	for _, ic := range i.Local {
		c.Icons = append(c.Icons, components.Icon{
			Kind: components.IconKindLocal, Filename: clean(ic.Name),
			Width: ic.Width, Height: ic.Height, Scale: ic.Scale,
		})
	}
	for _, ic := range i.Remote {
		c.Icons = append(c.Icons, components.Icon{
			Kind: components.IconKindRemote, URL: mediaURL(mediaBaseURL, clean(ic.URL)),
			Width: ic.Width, Height: ic.Height, Scale: ic.Scale,
		})
	}
}

func (p dep11Provides) addTo(c *components.Component) {
	add := func(kind components.ProvidedKind, items []string) {
		if items = cleanAll(items); len(items) > 0 {
			c.AddProvided(kind, items...)
		}
	}
	add(components.ProvidedKindMediatype, p.Mediatypes)
	add(components.ProvidedKindBinary, p.Binaries)
	add(components.ProvidedKindLibrary, p.Libraries)
	add(components.ProvidedKindModalias, p.Modaliases)
	add(components.ProvidedKindPython2, p.Python2)
	add(components.ProvidedKindPython3, p.Python3)
	add(components.ProvidedKindID, p.IDs)
	for _, f := range p.Fonts {
		add(components.ProvidedKindFont, []string{f.Name})
	}
	for _, fw := range p.Firmware {
		item := fw.File
		if item == "" {
			item = fw.GUID
		}
		switch fw.Type {
		case "runtime":
			add(components.ProvidedKindFirmwareRuntime, []string{item})
		case "flashed":
			add(components.ProvidedKindFirmwareFlashed, []string{item})
		}
	}
	for _, d := range p.DBus {
		switch d.Type {
		case "system":
			add(components.ProvidedKindDBusSystem, []string{d.Service})
		case "user", "session":
			add(components.ProvidedKindDBusUser, []string{d.Service})
		}
	}
}

func (s dep11Screenshot) screenshot(mediaBaseURL string) components.Screenshot {
	shot := components.Screenshot{Kind: components.ScreenshotKindExtra}
	if s.Default {
		shot.Kind = components.ScreenshotKindDefault
	}
	for locale, caption := range s.Caption {
		if shot.Caption == nil {
			shot.Caption = make(components.Localized)
		}
		shot.Caption[langOf(locale)] = clean(caption)
	}
	image := func(kind components.ImageKind, img dep11Image) components.Image {
		return components.Image{
			Kind:   kind,
			URL:    mediaURL(mediaBaseURL, clean(img.URL)),
			Width:  img.Width,
			Height: img.Height,
			Locale: img.Lang,
		}
	}
	if s.SourceImage != nil {
		shot.Images = append(shot.Images, image(components.ImageKindSource, *s.SourceImage))
	}
	for _, t := range s.Thumbnails {
		shot.Images = append(shot.Images, image(components.ImageKindThumbnail, t))
	}
	for _, v := range s.Videos {
		shot.Videos = append(shot.Videos, components.Video{
			Codec:     v.Codec,
			Container: v.Container,
			URL:       mediaURL(mediaBaseURL, clean(v.URL)),
			Width:     v.Width,
			Height:    v.Height,
			Locale:    v.Lang,
		})
	}
	return shot
}

func (r dep11Release) release() components.Release {
	rel := components.Release{
		Version:   r.Version,
		Timestamp: r.UnixTimestamp,
		Kind:      components.ParseReleaseKind(r.Type),
		Urgency:   components.ParseUrgencyKind(r.Urgency),
		Locations: cleanAll(r.Locations),
	}
	if rel.Timestamp == 0 {
		rel.Timestamp = releaseTimestamp("", r.Date)
	}
	if rel.Kind == components.ReleaseKindUnknown {
		rel.Kind = components.ReleaseKindStable
	}
	for locale, desc := range r.Description {
		if rel.Description == nil {
			rel.Description = make(components.Localized)
		}
		rel.Description[langOf(locale)] = clean(desc)
	}
	for kind, sum := range r.Checksum {
		if rel.Checksums == nil {
			rel.Checksums = make(map[components.ChecksumKind]string)
		}
		rel.Checksums[components.ParseChecksumKind(kind)] = sum
	}
	for kind, n := range r.Size {
		if rel.Sizes == nil {
			rel.Sizes = make(map[components.SizeKind]uint64)
		}
		rel.Sizes[components.ParseSizeKind(kind)] = n
	}
	return rel
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
