package sources

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/metapool/pkg/components"
)

type xmlCollection struct {
	XMLName      xml.Name       `xml:"components"`
	Version      string         `xml:"version,attr"`
	Origin       string         `xml:"origin,attr"`
	Architecture string         `xml:"architecture,attr"`
	Priority     string         `xml:"priority,attr"`
	MediaBaseURL string         `xml:"media_baseurl,attr"`
	Components   []xmlComponent `xml:"component"`
}

type xmlText struct {
	Lang  string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Value string `xml:",chardata"`
}

type xmlTyped struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// xmlMarkup captures a description block. Paragraphs and list items may
// carry their own language.
type xmlMarkup struct {
	Lang  string          `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Nodes []xmlMarkupNode `xml:",any"`
}

type xmlMarkupNode struct {
	XMLName xml.Name
	Lang    string          `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Inner   string          `xml:",innerxml"`
	Items   []xmlMarkupNode `xml:"li"`
}

type xmlIcon struct {
	Type   string `xml:"type,attr"`
	Width  uint32 `xml:"width,attr"`
	Height uint32 `xml:"height,attr"`
	Scale  uint32 `xml:"scale,attr"`
	Value  string `xml:",chardata"`
}

type xmlProvides struct {
	Mediatypes []string   `xml:"mediatype"`
	Libraries  []string   `xml:"library"`
	Binaries   []string   `xml:"binary"`
	Fonts      []string   `xml:"font"`
	Modaliases []string   `xml:"modalias"`
	Firmware   []xmlTyped `xml:"firmware"`
	Python2    []string   `xml:"python2"`
	Python3    []string   `xml:"python3"`
	DBus       []xmlTyped `xml:"dbus"`
	IDs        []string   `xml:"id"`
}

type xmlImage struct {
	Type   string `xml:"type,attr"`
	Width  uint32 `xml:"width,attr"`
	Height uint32 `xml:"height,attr"`
	Lang   string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Value  string `xml:",chardata"`
}

type xmlVideo struct {
	Codec     string `xml:"codec,attr"`
	Container string `xml:"container,attr"`
	Width     uint32 `xml:"width,attr"`
	Height    uint32 `xml:"height,attr"`
	Lang      string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Value     string `xml:",chardata"`
}

type xmlScreenshot struct {
	Type     string     `xml:"type,attr"`
	Captions []xmlText  `xml:"caption"`
	Images   []xmlImage `xml:"image"`
	Videos   []xmlVideo `xml:"video"`
}

type xmlRelease struct {
	Version      string      `xml:"version,attr"`
	Timestamp    string      `xml:"timestamp,attr"`
	Date         string      `xml:"date,attr"`
	Type         string      `xml:"type,attr"`
	Urgency      string      `xml:"urgency,attr"`
	Descriptions []xmlMarkup `xml:"description"`
	Locations    []string    `xml:"location"`
	Checksums    []xmlTyped  `xml:"checksum"`
	Sizes        []xmlTyped  `xml:"size"`
}

type xmlLang struct {
	Percentage int    `xml:"percentage,attr"`
	Value      string `xml:",chardata"`
}

type xmlSuggests struct {
	Type string   `xml:"type,attr"`
	IDs  []string `xml:"id"`
}

type xmlContentRating struct {
	Type       string `xml:"type,attr"`
	Attributes []struct {
		ID    string `xml:"id,attr"`
		Value string `xml:",chardata"`
	} `xml:"content_attribute"`
}

type xmlCustomValue struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type xmlComponent struct {
	Type     string `xml:"type,attr"`
	Merge    string `xml:"merge,attr"`
	Priority string `xml:"priority,attr"`

	ID             string             `xml:"id"`
	Names          []xmlText          `xml:"name"`
	Summaries      []xmlText          `xml:"summary"`
	Descriptions   []xmlMarkup        `xml:"description"`
	DeveloperNames []xmlText          `xml:"developer_name"`
	Developer      []xmlText          `xml:"developer>name"`
	ProjectLicense string             `xml:"project_license"`
	ProjectGroup   string             `xml:"project_group"`
	PackageNames   []string           `xml:"pkgname"`
	SourcePackage  string             `xml:"source_pkgname"`
	Bundles        []xmlTyped         `xml:"bundle"`
	Categories     []string           `xml:"categories>category"`
	CompulsoryFor  []string           `xml:"compulsory_for_desktop"`
	Extends        []string           `xml:"extends"`
	URLs           []xmlTyped         `xml:"url"`
	Icons          []xmlIcon          `xml:"icon"`
	Keywords       []xmlText          `xml:"keywords>keyword"`
	Provides       xmlProvides        `xml:"provides"`
	Mimetypes      []string           `xml:"mimetypes>mimetype"`
	Screenshots    []xmlScreenshot    `xml:"screenshots>screenshot"`
	Releases       []xmlRelease       `xml:"releases>release"`
	Languages      []xmlLang          `xml:"languages>lang"`
	Suggests       []xmlSuggests      `xml:"suggests"`
	ContentRatings []xmlContentRating `xml:"content_rating"`
	Launchables    []xmlTyped         `xml:"launchable"`
	Translations   []xmlTyped         `xml:"translation"`
	Custom         []xmlCustomValue   `xml:"custom>value"`
}

// collectionContext carries the attributes of the document root that apply
// to every component in it.
type collectionContext struct {
	origin       string
	architecture string
	priority     int
	mediaBaseURL string
	originKind   components.OriginKind
}

func parseCollectionXML(data []byte) ([]*components.Component, error) {
	var doc xmlCollection
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	ctx := collectionContext{
		origin:       doc.Origin,
		architecture: doc.Architecture,
		priority:     atoi(doc.Priority),
		mediaBaseURL: doc.MediaBaseURL,
		originKind:   components.OriginKindCollection,
	}
	cpts := make([]*components.Component, 0, len(doc.Components))
	for i := range doc.Components {
		cpts = append(cpts, doc.Components[i].component(ctx))
	}
	return cpts, nil
}

func parseMetainfoXML(data []byte) (*components.Component, error) {
	var doc xmlComponent
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.component(collectionContext{originKind: components.OriginKindMetainfo}), nil
}

func (x *xmlComponent) component(ctx collectionContext) *components.Component {
	c := components.New(components.ParseKind(x.Type), strings.TrimSpace(x.ID))
	if x.Type == "" {
		c.Kind = components.KindGeneric
	}
	c.Origin = ctx.origin
	c.OriginKind = ctx.originKind
	c.Architecture = ctx.architecture
	c.Priority = ctx.priority
	if x.Priority != "" {
		c.Priority = atoi(x.Priority)
	}
	c.MergeKind = components.ParseMergeKind(x.Merge)

	for _, t := range x.Names {
		c.SetName(clean(t.Value), langOf(t.Lang))
	}
	for _, t := range x.Summaries {
		c.SetSummary(clean(t.Value), langOf(t.Lang))
	}
	for locale, markup := range renderMarkup(x.Descriptions) {
		c.SetDescription(markup, locale)
	}
	for _, t := range append(x.DeveloperNames, x.Developer...) {
		c.SetDeveloperName(clean(t.Value), langOf(t.Lang))
	}
	keywords := make(map[string][]string)
	for _, t := range x.Keywords {
		locale := langOf(t.Lang)
		keywords[locale] = append(keywords[locale], clean(t.Value))
	}
	for locale, kws := range keywords {
		c.SetKeywords(kws, locale)
	}

	c.ProjectLicense = clean(x.ProjectLicense)
	c.ProjectGroup = clean(x.ProjectGroup)
	for _, p := range x.PackageNames {
		c.AddPackageName(clean(p))
	}
	c.SourcePackageName = clean(x.SourcePackage)
	for _, b := range x.Bundles {
		c.AddBundle(components.ParseBundleKind(b.Type), clean(b.Value))
	}
	for _, cat := range x.Categories {
		c.AddCategory(clean(cat))
	}
	c.CompulsoryForDesktops = cleanAll(x.CompulsoryFor)
	for _, e := range x.Extends {
		c.AddExtends(clean(e))
	}
	for _, u := range x.URLs {
		if kind := components.ParseURLKind(u.Type); kind != components.URLKindUnknown {
			c.SetURL(kind, clean(u.Value))
		}
	}
	for _, i := range x.Icons {
		c.Icons = append(c.Icons, xmlToIcon(i, ctx.mediaBaseURL))
	}

	x.Provides.addTo(c)
	if mts := cleanAll(x.Mimetypes); len(mts) > 0 {
		c.AddProvided(components.ProvidedKindMediatype, mts...)
	}

	for _, s := range x.Screenshots {
		c.Screenshots = append(c.Screenshots, xmlToScreenshot(s, ctx.mediaBaseURL))
	}
	for _, r := range x.Releases {
		c.Releases = append(c.Releases, xmlToRelease(r))
	}
	components.SortReleases(c.Releases)

	for _, l := range x.Languages {
		if c.Languages == nil {
			c.Languages = make(map[string]int)
		}
		c.Languages[clean(l.Value)] = l.Percentage
	}
	for _, s := range x.Suggests {
		kind := components.ParseSuggestedKind(s.Type)
		if kind == components.SuggestedKindUnknown {
			kind = components.SuggestedKindUpstream
		}
		c.Suggested = append(c.Suggested, components.Suggested{Kind: kind, IDs: cleanAll(s.IDs)})
	}
	for _, r := range x.ContentRatings {
		rating := components.ContentRating{Kind: r.Type, Values: make(map[string]components.RatingValue)}
		for _, a := range r.Attributes {
			rating.Values[a.ID] = components.ParseRatingValue(clean(a.Value))
		}
		c.ContentRatings = append(c.ContentRatings, rating)
	}
	for _, l := range x.Launchables {
		c.AddLaunchable(components.ParseLaunchableKind(l.Type), clean(l.Value))
	}
	for _, t := range x.Translations {
		c.Translations = append(c.Translations, components.Translation{
			Kind: components.ParseTranslationKind(t.Type),
			ID:   clean(t.Value),
		})
	}
	for _, v := range x.Custom {
		if c.Custom == nil {
			c.Custom = make(map[string]string)
		}
		c.Custom[v.Key] = clean(v.Value)
	}
	return c
}

func (p *xmlProvides) addTo(c *components.Component) {
	add := func(kind components.ProvidedKind, items []string) {
		if items = cleanAll(items); len(items) > 0 {
			c.AddProvided(kind, items...)
		}
	}
	add(components.ProvidedKindMediatype, p.Mediatypes)
	add(components.ProvidedKindLibrary, p.Libraries)
	add(components.ProvidedKindBinary, p.Binaries)
	add(components.ProvidedKindFont, p.Fonts)
	add(components.ProvidedKindModalias, p.Modaliases)
	add(components.ProvidedKindPython2, p.Python2)
	add(components.ProvidedKindPython3, p.Python3)
	add(components.ProvidedKindID, p.IDs)
	for _, fw := range p.Firmware {
		switch fw.Type {
		case "runtime":
			add(components.ProvidedKindFirmwareRuntime, []string{fw.Value})
		case "flashed":
			add(components.ProvidedKindFirmwareFlashed, []string{fw.Value})
		}
	}
	for _, d := range p.DBus {
		switch d.Type {
		case "system":
			add(components.ProvidedKindDBusSystem, []string{d.Value})
		case "user", "session":
			add(components.ProvidedKindDBusUser, []string{d.Value})
		}
	}
}

func xmlToIcon(i xmlIcon, mediaBaseURL string) components.Icon {
	icon := components.Icon{
		Kind:   components.ParseIconKind(i.Type),
		Width:  i.Width,
		Height: i.Height,
		Scale:  i.Scale,
	}
	value := clean(i.Value)
	switch icon.Kind {
	case components.IconKindRemote:
		icon.URL = mediaURL(mediaBaseURL, value)
	case components.IconKindLocal:
		icon.Filename = value
	default:
		icon.Name = value
	}
	return icon
}

func xmlToScreenshot(s xmlScreenshot, mediaBaseURL string) components.Screenshot {
	shot := components.Screenshot{Kind: components.ParseScreenshotKind(s.Type)}
	if shot.Kind == components.ScreenshotKindUnknown {
		shot.Kind = components.ScreenshotKindExtra
	}
	for _, t := range s.Captions {
		if shot.Caption == nil {
			shot.Caption = make(components.Localized)
		}
		shot.Caption[langOf(t.Lang)] = clean(t.Value)
	}
	for _, img := range s.Images {
		kind := components.ParseImageKind(img.Type)
		if kind == components.ImageKindUnknown {
			kind = components.ImageKindSource
		}
		shot.Images = append(shot.Images, components.Image{
			Kind:   kind,
			URL:    mediaURL(mediaBaseURL, clean(img.Value)),
			Width:  img.Width,
			Height: img.Height,
			Locale: img.Lang,
		})
	}
	for _, v := range s.Videos {
		shot.Videos = append(shot.Videos, components.Video{
			Codec:     v.Codec,
			Container: v.Container,
			URL:       mediaURL(mediaBaseURL, clean(v.Value)),
			Width:     v.Width,
			Height:    v.Height,
			Locale:    v.Lang,
		})
	}
	return shot
}

func xmlToRelease(r xmlRelease) components.Release {
	rel := components.Release{
		Version:   r.Version,
		Timestamp: releaseTimestamp(r.Timestamp, r.Date),
		Kind:      components.ParseReleaseKind(r.Type),
		Urgency:   components.ParseUrgencyKind(r.Urgency),
		Locations: cleanAll(r.Locations),
	}
	if rel.Kind == components.ReleaseKindUnknown {
		rel.Kind = components.ReleaseKindStable
	}
	if desc := renderMarkup(r.Descriptions); len(desc) > 0 {
		rel.Description = desc
	}
	for _, cs := range r.Checksums {
		if rel.Checksums == nil {
			rel.Checksums = make(map[components.ChecksumKind]string)
		}
		rel.Checksums[components.ParseChecksumKind(cs.Type)] = clean(cs.Value)
	}
	for _, sz := range r.Sizes {
		n, err := strconv.ParseUint(clean(sz.Value), 10, 64)
		if err != nil {
			continue
		}
		if rel.Sizes == nil {
			rel.Sizes = make(map[components.SizeKind]uint64)
		}
		rel.Sizes[components.ParseSizeKind(sz.Type)] = n
	}
	return rel
}

// renderMarkup turns description blocks into one markup string per locale.
// Lists are split per locale as well, so a translated list item ends up in
// a list of its own language.
func renderMarkup(blocks []xmlMarkup) components.Localized {
	out := make(map[string]*strings.Builder)
	write := func(locale, s string) {
		b, ok := out[locale]
		if !ok {
			b = &strings.Builder{}
			out[locale] = b
		}
		b.WriteString(s)
	}

	for _, block := range blocks {
		blockLang := langOf(block.Lang)
		for _, node := range block.Nodes {
			lang := blockLang
			if node.Lang != "" {
				lang = langOf(node.Lang)
			}
			switch node.XMLName.Local {
			case "p":
				write(lang, "<p>"+strings.TrimSpace(node.Inner)+"</p>")
			case "ul", "ol":
				var order []string
				items := make(map[string][]string)
				for _, li := range node.Items {
					itemLang := lang
					if li.Lang != "" {
						itemLang = langOf(li.Lang)
					}
					if _, ok := items[itemLang]; !ok {
						order = append(order, itemLang)
					}
					items[itemLang] = append(items[itemLang], "<li>"+strings.TrimSpace(li.Inner)+"</li>")
				}
				tag := node.XMLName.Local
				for _, l := range order {
					write(l, "<"+tag+">"+strings.Join(items[l], "")+"</"+tag+">")
				}
			}
		}
	}

	if len(out) == 0 {
		return nil
	}
	res := make(components.Localized, len(out))
	for locale, b := range out {
		res[locale] = b.String()
	}
	return res
}

func langOf(lang string) string {
	return components.NormalizeLocale(lang)
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

func cleanAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = clean(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func mediaURL(base, u string) string {
	if base == "" || u == "" || strings.Contains(u, "://") {
		return u
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(u, "/")
}

// releaseTimestamp reads a unix timestamp, falling back to an ISO 8601 date.
func releaseTimestamp(timestamp, date string) uint64 {
	if n, err := strconv.ParseUint(strings.TrimSpace(timestamp), 10, 64); err == nil {
		return n
	}
	date = strings.TrimSpace(date)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, date); err == nil && t.Unix() > 0 {
			return uint64(t.Unix())
		}
	}
	return 0
}

// looksLikeXML reports whether data starts with an XML declaration or element.
func looksLikeXML(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	return bytes.HasPrefix(trimmed, []byte("<"))
}
