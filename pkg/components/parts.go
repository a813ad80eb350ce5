package components

import (
	"maps"
	"slices"
)

// Provided lists items of one kind that a component provides.
type Provided struct {
	Kind  ProvidedKind `json:"kind" yaml:"kind"`   // Item type
	Items []string     `json:"items" yaml:"items"` // Provided item names, in declaration order
}

// Has reports whether item is provided.
func (p Provided) Has(item string) bool {
	return slices.Contains(p.Items, item)
}

// Bundle is a non-package distribution of a component.
type Bundle struct {
	Kind BundleKind `json:"type" yaml:"type"` // Bundle format
	ID   string     `json:"id" yaml:"id"`     // Bundle reference, e.g. a flatpak ref
}

// Icon is one icon variant of a component.
type Icon struct {
	Kind     IconKind `json:"type" yaml:"type"`                             // How the icon is available
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`         // Stock or cached icon name
	URL      string   `json:"url,omitempty" yaml:"url,omitempty"`           // Remote icon location
	Filename string   `json:"filename,omitempty" yaml:"filename,omitempty"` // Absolute path of a local icon
	Width    uint32   `json:"width,omitempty" yaml:"width,omitempty"`
	Height   uint32   `json:"height,omitempty" yaml:"height,omitempty"`
	Scale    uint32   `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// Image is one rendition of a screenshot.
type Image struct {
	Kind   ImageKind `json:"type" yaml:"type"`
	URL    string    `json:"url" yaml:"url"`
	Width  uint32    `json:"width,omitempty" yaml:"width,omitempty"`
	Height uint32    `json:"height,omitempty" yaml:"height,omitempty"`
	Locale string    `json:"locale,omitempty" yaml:"locale,omitempty"` // Locale the image was taken in, empty for all
}

// Video is a screencast attached to a screenshot.
type Video struct {
	Codec     string `json:"codec,omitempty" yaml:"codec,omitempty"`
	Container string `json:"container,omitempty" yaml:"container,omitempty"`
	URL       string `json:"url" yaml:"url"`
	Width     uint32 `json:"width,omitempty" yaml:"width,omitempty"`
	Height    uint32 `json:"height,omitempty" yaml:"height,omitempty"`
	Locale    string `json:"locale,omitempty" yaml:"locale,omitempty"`
}

// Screenshot groups the images and videos of one screenshot.
type Screenshot struct {
	Kind    ScreenshotKind `json:"type" yaml:"type"`
	Caption Localized      `json:"caption,omitempty" yaml:"caption,omitempty"`
	Images  []Image        `json:"images,omitempty" yaml:"images,omitempty"`
	Videos  []Video        `json:"videos,omitempty" yaml:"videos,omitempty"`
}

// Clone returns a deep copy of s.
func (s Screenshot) Clone() Screenshot {
	s.Caption = s.Caption.Clone()
	s.Images = slices.Clone(s.Images)
	s.Videos = slices.Clone(s.Videos)
	return s
}

// Release describes one published version of a component.
type Release struct {
	Version     string                  `json:"version" yaml:"version"`
	Timestamp   uint64                  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"` // Unix time of the release
	Kind        ReleaseKind             `json:"type,omitempty" yaml:"type,omitempty"`
	Urgency     UrgencyKind             `json:"urgency,omitempty" yaml:"urgency,omitempty"`
	Description Localized               `json:"description,omitempty" yaml:"description,omitempty"`
	Locations   []string                `json:"locations,omitempty" yaml:"locations,omitempty"` // Download URLs
	Checksums   map[ChecksumKind]string `json:"checksums,omitempty" yaml:"checksums,omitempty"`
	Sizes       map[SizeKind]uint64     `json:"sizes,omitempty" yaml:"sizes,omitempty"` // Byte counts by size kind
}

// Clone returns a deep copy of r.
func (r Release) Clone() Release {
	r.Description = r.Description.Clone()
	r.Locations = slices.Clone(r.Locations)
	r.Checksums = maps.Clone(r.Checksums)
	r.Sizes = maps.Clone(r.Sizes)
	return r
}

// Suggested lists components suggested alongside this one.
type Suggested struct {
	Kind SuggestedKind `json:"kind" yaml:"kind"`
	IDs  []string      `json:"ids" yaml:"ids"`
}

// ContentRating holds the attribute levels of one rating system, e.g. "oars-1.1".
type ContentRating struct {
	Kind   string                 `json:"type" yaml:"type"`
	Values map[string]RatingValue `json:"values,omitempty" yaml:"values,omitempty"` // Attribute id to intensity
}

// Launchable lists the entry points of one launch mechanism.
type Launchable struct {
	Kind    LaunchableKind `json:"kind" yaml:"kind"`
	Entries []string       `json:"entries" yaml:"entries"`
}

// Translation names the translation domain of a component.
type Translation struct {
	Kind TranslationKind `json:"kind" yaml:"kind"`
	ID   string          `json:"id" yaml:"id"`
}
