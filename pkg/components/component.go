// Package components defines the software component data model: identity,
// localized descriptive text, nested substructures, validity rules, merge
// semantics and the per-component search token cache.
package components

import (
	"maps"
	"slices"

	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/search"
)

// Component is a described piece of software such as an application, font,
// driver or firmware.
//
// Exported fields may be set directly while building a component. Code that
// changes searchable text (id, names, summaries, descriptions, keywords,
// media types, package names) on a component that was already searched must
// call InvalidateTokenCache.
type Component struct {
	// Identity
	ID           string     `json:"id" yaml:"id"`                                         // Reverse-DNS component id
	Kind         Kind       `json:"type" yaml:"type"`                                     // Component type
	Origin       string     `json:"origin,omitempty" yaml:"origin,omitempty"`             // Data source, e.g. a repository name
	Scope        Scope      `json:"scope,omitempty" yaml:"scope,omitempty"`               // Installation scope
	OriginKind   OriginKind `json:"origin_kind,omitempty" yaml:"origin_kind,omitempty"`   // Kind of document the data came from
	Architecture string     `json:"architecture,omitempty" yaml:"architecture,omitempty"` // Machine architecture, empty when independent

	// Descriptive text
	Names          Localized     `json:"name,omitempty" yaml:"name,omitempty"`
	Summaries      Localized     `json:"summary,omitempty" yaml:"summary,omitempty"`
	Descriptions   Localized     `json:"description,omitempty" yaml:"description,omitempty"` // Markup per locale
	DeveloperNames Localized     `json:"developer_name,omitempty" yaml:"developer_name,omitempty"`
	Keywords       LocalizedList `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Metadata
	ProjectLicense        string             `json:"project_license,omitempty" yaml:"project_license,omitempty"`
	ProjectGroup          string             `json:"project_group,omitempty" yaml:"project_group,omitempty"`
	PackageNames          []string           `json:"pkgnames,omitempty" yaml:"pkgnames,omitempty"`
	SourcePackageName     string             `json:"source_pkgname,omitempty" yaml:"source_pkgname,omitempty"`
	Categories            []string           `json:"categories,omitempty" yaml:"categories,omitempty"`
	CompulsoryForDesktops []string           `json:"compulsory_for,omitempty" yaml:"compulsory_for,omitempty"`
	Extends               []string           `json:"extends,omitempty" yaml:"extends,omitempty"` // Ids of the components this addon extends
	Addons                []string           `json:"addons,omitempty" yaml:"addons,omitempty"`   // Data ids of addons, set by the pool
	Languages             map[string]int     `json:"languages,omitempty" yaml:"languages,omitempty"`
	URLs                  map[URLKind]string `json:"urls,omitempty" yaml:"urls,omitempty"`
	Custom                map[string]string  `json:"custom,omitempty" yaml:"custom,omitempty"`

	// Collections
	Provided       []Provided      `json:"provided,omitempty" yaml:"provided,omitempty"`
	Bundles        []Bundle        `json:"bundles,omitempty" yaml:"bundles,omitempty"`
	Icons          []Icon          `json:"icons,omitempty" yaml:"icons,omitempty"`
	Screenshots    []Screenshot    `json:"screenshots,omitempty" yaml:"screenshots,omitempty"`
	Releases       []Release       `json:"releases,omitempty" yaml:"releases,omitempty"`
	Suggested      []Suggested     `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	ContentRatings []ContentRating `json:"content_ratings,omitempty" yaml:"content_ratings,omitempty"`
	Launchables    []Launchable    `json:"launchables,omitempty" yaml:"launchables,omitempty"`
	Translations   []Translation   `json:"translations,omitempty" yaml:"translations,omitempty"`

	// Pool bookkeeping
	Priority  int       `json:"priority,omitempty" yaml:"priority,omitempty"` // Higher wins identity collisions
	MergeKind MergeKind `json:"merge,omitempty" yaml:"merge,omitempty"`       // Non-none marks a merge fragment
	Ignored   bool      `json:"-" yaml:"-"`                                   // Never admitted to a pool

	locale      string
	noFallback  bool
	sortScore   uint
	tokens      map[string]search.Match
	tokensValid bool
}

// New creates a component of the given kind and id.
func New(kind Kind, id string) *Component {
	return &Component{Kind: kind, ID: id}
}

// ActiveLocale returns the locale used by localized getters and setters.
func (c *Component) ActiveLocale() string {
	if c.locale == "" {
		return constants.DefaultLocale
	}
	return c.locale
}

// SetActiveLocale changes the active locale.
func (c *Component) SetActiveLocale(locale string) {
	locale = NormalizeLocale(locale)
	if locale == c.ActiveLocale() {
		return
	}
	c.locale = locale
	c.InvalidateTokenCache()
}

// LocalizedFallback reports whether localized lookups fall back to the
// base language and the "C" default.
func (c *Component) LocalizedFallback() bool {
	return !c.noFallback
}

// SetLocalizedFallback enables or disables localized lookup fallback.
func (c *Component) SetLocalizedFallback(enabled bool) {
	c.noFallback = !enabled
}

func (c *Component) lookup(l Localized) string {
	return l.Lookup(c.ActiveLocale(), !c.noFallback)
}

func (c *Component) set(l *Localized, value, locale string) {
	if locale == "" {
		locale = c.ActiveLocale()
	}
	if *l == nil {
		*l = make(Localized)
	}
	(*l)[NormalizeLocale(locale)] = value
	c.InvalidateTokenCache()
}

// Name returns the name in the active locale.
func (c *Component) Name() string { return c.lookup(c.Names) }

// SetName sets the name for locale, or for the active locale when empty.
func (c *Component) SetName(value, locale string) { c.set(&c.Names, value, locale) }

// Summary returns the summary in the active locale.
func (c *Component) Summary() string { return c.lookup(c.Summaries) }

// SetSummary sets the summary for locale, or for the active locale when empty.
func (c *Component) SetSummary(value, locale string) { c.set(&c.Summaries, value, locale) }

// Description returns the description markup in the active locale.
func (c *Component) Description() string { return c.lookup(c.Descriptions) }

// SetDescription sets the description for locale, or for the active locale when empty.
func (c *Component) SetDescription(value, locale string) { c.set(&c.Descriptions, value, locale) }

// DeveloperName returns the developer name in the active locale.
func (c *Component) DeveloperName() string { return c.lookup(c.DeveloperNames) }

// SetDeveloperName sets the developer name for locale, or for the active locale when empty.
func (c *Component) SetDeveloperName(value, locale string) {
	c.set(&c.DeveloperNames, value, locale)
}

// ActiveKeywords returns the keywords of the active locale.
func (c *Component) ActiveKeywords() []string {
	return c.Keywords.Lookup(c.ActiveLocale(), !c.noFallback)
}

// SetKeywords sets the keywords for locale, or for the active locale when empty.
func (c *Component) SetKeywords(keywords []string, locale string) {
	if locale == "" {
		locale = c.ActiveLocale()
	}
	if c.Keywords == nil {
		c.Keywords = make(LocalizedList)
	}
	c.Keywords[NormalizeLocale(locale)] = slices.Clone(keywords)
	c.InvalidateTokenCache()
}

// IsValid reports whether the component carries enough data to be used.
// Merge fragments only need an id, every other component also needs a
// name and a summary.
func (c *Component) IsValid() bool {
	if c.Kind == KindUnknown || c.ID == "" {
		return false
	}
	if c.MergeKind != MergeKindNone {
		return true
	}
	return c.Name() != "" && c.Summary() != ""
}

// HasCategory reports whether the component is in category.
func (c *Component) HasCategory(category string) bool {
	return slices.Contains(c.Categories, category)
}

// AddCategory adds category unless already present.
func (c *Component) AddCategory(category string) {
	if category != "" && !c.HasCategory(category) {
		c.Categories = append(c.Categories, category)
	}
}

// AddPackageName appends a package name unless already present.
func (c *Component) AddPackageName(name string) {
	if name != "" && !slices.Contains(c.PackageNames, name) {
		c.PackageNames = append(c.PackageNames, name)
		c.InvalidateTokenCache()
	}
}

// ProvidedFor returns the provided items of kind, or nil.
func (c *Component) ProvidedFor(kind ProvidedKind) *Provided {
	for i := range c.Provided {
		if c.Provided[i].Kind == kind {
			return &c.Provided[i]
		}
	}
	return nil
}

// AddProvided adds items of the given kind, grouping them with existing
// items of that kind.
func (c *Component) AddProvided(kind ProvidedKind, items ...string) {
	p := c.ProvidedFor(kind)
	if p == nil {
		c.Provided = append(c.Provided, Provided{Kind: kind})
		p = &c.Provided[len(c.Provided)-1]
	}
	for _, item := range items {
		if item != "" && !p.Has(item) {
			p.Items = append(p.Items, item)
		}
	}
	if kind == ProvidedKindMediatype {
		c.InvalidateTokenCache()
	}
}

// LaunchableFor returns the launchable of kind, or nil.
func (c *Component) LaunchableFor(kind LaunchableKind) *Launchable {
	for i := range c.Launchables {
		if c.Launchables[i].Kind == kind {
			return &c.Launchables[i]
		}
	}
	return nil
}

// AddLaunchable adds entries of the given kind.
func (c *Component) AddLaunchable(kind LaunchableKind, entries ...string) {
	l := c.LaunchableFor(kind)
	if l == nil {
		c.Launchables = append(c.Launchables, Launchable{Kind: kind})
		l = &c.Launchables[len(c.Launchables)-1]
	}
	for _, e := range entries {
		if e != "" && !slices.Contains(l.Entries, e) {
			l.Entries = append(l.Entries, e)
		}
	}
}

// BundleFor returns the first bundle of kind, or nil.
func (c *Component) BundleFor(kind BundleKind) *Bundle {
	for i := range c.Bundles {
		if c.Bundles[i].Kind == kind {
			return &c.Bundles[i]
		}
	}
	return nil
}

// AddBundle adds a bundle.
func (c *Component) AddBundle(kind BundleKind, id string) {
	c.Bundles = append(c.Bundles, Bundle{Kind: kind, ID: id})
}

// AddAddon attaches an addon data id unless already attached.
func (c *Component) AddAddon(dataID string) bool {
	if slices.Contains(c.Addons, dataID) {
		return false
	}
	c.Addons = append(c.Addons, dataID)
	return true
}

// AddExtends records the id of a component this one extends.
func (c *Component) AddExtends(id string) {
	if id != "" && !slices.Contains(c.Extends, id) {
		c.Extends = append(c.Extends, id)
	}
}

// SetURL sets the URL of kind.
func (c *Component) SetURL(kind URLKind, url string) {
	if c.URLs == nil {
		c.URLs = make(map[URLKind]string)
	}
	c.URLs[kind] = url
}

// SortScore returns the score of the last SearchMatchesAll call.
func (c *Component) SortScore() uint { return c.sortScore }

// SetSortScore overrides the sort score.
func (c *Component) SetSortScore(score uint) { c.sortScore = score }

// Clone returns a deep copy of the component, including its token cache.
func (c *Component) Clone() *Component {
	if c == nil {
		return nil
	}
	out := *c
	out.Names = c.Names.Clone()
	out.Summaries = c.Summaries.Clone()
	out.Descriptions = c.Descriptions.Clone()
	out.DeveloperNames = c.DeveloperNames.Clone()
	out.Keywords = c.Keywords.Clone()
	out.PackageNames = slices.Clone(c.PackageNames)
	out.Categories = slices.Clone(c.Categories)
	out.CompulsoryForDesktops = slices.Clone(c.CompulsoryForDesktops)
	out.Extends = slices.Clone(c.Extends)
	out.Addons = slices.Clone(c.Addons)
	out.Languages = maps.Clone(c.Languages)
	out.URLs = maps.Clone(c.URLs)
	out.Custom = maps.Clone(c.Custom)

	if c.Provided != nil {
		out.Provided = make([]Provided, len(c.Provided))
		for i, p := range c.Provided {
			out.Provided[i] = Provided{Kind: p.Kind, Items: slices.Clone(p.Items)}
		}
	}
	out.Bundles = slices.Clone(c.Bundles)
	out.Icons = slices.Clone(c.Icons)
	if c.Screenshots != nil {
		out.Screenshots = make([]Screenshot, len(c.Screenshots))
		for i, s := range c.Screenshots {
			out.Screenshots[i] = s.Clone()
		}
	}
	if c.Releases != nil {
		out.Releases = make([]Release, len(c.Releases))
		for i, r := range c.Releases {
			out.Releases[i] = r.Clone()
		}
	}
	if c.Suggested != nil {
		out.Suggested = make([]Suggested, len(c.Suggested))
		for i, s := range c.Suggested {
			out.Suggested[i] = Suggested{Kind: s.Kind, IDs: slices.Clone(s.IDs)}
		}
	}
	if c.ContentRatings != nil {
		out.ContentRatings = make([]ContentRating, len(c.ContentRatings))
		for i, r := range c.ContentRatings {
			out.ContentRatings[i] = ContentRating{Kind: r.Kind, Values: maps.Clone(r.Values)}
		}
	}
	if c.Launchables != nil {
		out.Launchables = make([]Launchable, len(c.Launchables))
		for i, l := range c.Launchables {
			out.Launchables[i] = Launchable{Kind: l.Kind, Entries: slices.Clone(l.Entries)}
		}
	}
	out.Translations = slices.Clone(c.Translations)
	out.tokens = maps.Clone(c.tokens)
	return &out
}
