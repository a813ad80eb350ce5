package components

import "strings"

// parseEnum maps s onto one of known, case-insensitively, or returns the zero
// value which every enum in this package uses for "unknown".
func parseEnum[T ~string](s string, known []T, aliases map[string]T) T {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range known {
		if string(k) == s {
			return k
		}
	}
	if v, ok := aliases[s]; ok {
		return v
	}
	var unknown T
	return unknown
}

func enumString[T ~string](v T, zero string) string {
	if v == "" {
		return zero
	}
	return string(v)
}

// Kind is the type of a component.
type Kind string

// Component kinds.
const (
	KindUnknown         Kind = ""
	KindGeneric         Kind = "generic"
	KindDesktopApp      Kind = "desktop-application"
	KindConsoleApp      Kind = "console-application"
	KindWebApp          Kind = "web-application"
	KindAddon           Kind = "addon"
	KindFont            Kind = "font"
	KindCodec           Kind = "codec"
	KindInputMethod     Kind = "inputmethod"
	KindFirmware        Kind = "firmware"
	KindDriver          Kind = "driver"
	KindLocalization    Kind = "localization"
	KindService         Kind = "service"
	KindRepository      Kind = "repository"
	KindOperatingSystem Kind = "operating-system"
	KindIconTheme       Kind = "icon-theme"
	KindRuntime         Kind = "runtime"
)

var knownKinds = []Kind{
	KindGeneric, KindDesktopApp, KindConsoleApp, KindWebApp, KindAddon,
	KindFont, KindCodec, KindInputMethod, KindFirmware, KindDriver,
	KindLocalization, KindService, KindRepository, KindOperatingSystem,
	KindIconTheme, KindRuntime,
}

// ParseKind parses a component type, accepting the legacy short forms.
func ParseKind(s string) Kind {
	return parseEnum(s, knownKinds, map[string]Kind{
		"desktop":     KindDesktopApp,
		"desktop-app": KindDesktopApp,
		"console-app": KindConsoleApp,
		"web-app":     KindWebApp,
	})
}

// String returns the string representation of a component kind.
func (k Kind) String() string { return enumString(k, "unknown") }

// Scope is the installation scope of a component.
type Scope string

// Component scopes.
const (
	ScopeUnknown Scope = ""
	ScopeSystem  Scope = "system"
	ScopeUser    Scope = "user"
)

// ParseScope parses a scope.
func ParseScope(s string) Scope {
	return parseEnum(s, []Scope{ScopeSystem, ScopeUser}, nil)
}

// String returns the string representation of a scope.
func (s Scope) String() string { return enumString(s, "unknown") }

// OriginKind describes which kind of document a component was read from.
type OriginKind string

// Origin kinds.
const (
	OriginKindUnknown      OriginKind = ""
	OriginKindMetainfo     OriginKind = "metainfo"
	OriginKindCollection   OriginKind = "collection"
	OriginKindDesktopEntry OriginKind = "desktop-entry"
)

// ParseOriginKind parses an origin kind.
func ParseOriginKind(s string) OriginKind {
	return parseEnum(s, []OriginKind{OriginKindMetainfo, OriginKindCollection, OriginKindDesktopEntry}, nil)
}

// String returns the string representation of an origin kind.
func (o OriginKind) String() string { return enumString(o, "unknown") }

// MergeKind marks a component as a patch for components with the same id.
type MergeKind string

// Merge kinds.
const (
	MergeKindNone            MergeKind = ""
	MergeKindReplace         MergeKind = "replace"
	MergeKindAppend          MergeKind = "append"
	MergeKindRemoveComponent MergeKind = "remove-component"
)

// ParseMergeKind parses a merge kind.
func ParseMergeKind(s string) MergeKind {
	return parseEnum(s, []MergeKind{MergeKindReplace, MergeKindAppend, MergeKindRemoveComponent}, nil)
}

// String returns the string representation of a merge kind.
func (m MergeKind) String() string { return enumString(m, "none") }

// ProvidedKind is the type of items a component provides.
type ProvidedKind string

// Provided item kinds.
const (
	ProvidedKindUnknown         ProvidedKind = ""
	ProvidedKindLibrary         ProvidedKind = "library"
	ProvidedKindBinary          ProvidedKind = "binary"
	ProvidedKindMediatype       ProvidedKind = "mediatype"
	ProvidedKindFont            ProvidedKind = "font"
	ProvidedKindModalias        ProvidedKind = "modalias"
	ProvidedKindFirmwareRuntime ProvidedKind = "firmware-runtime"
	ProvidedKindFirmwareFlashed ProvidedKind = "firmware-flashed"
	ProvidedKindPython2         ProvidedKind = "python2"
	ProvidedKindPython3         ProvidedKind = "python3"
	ProvidedKindDBusSystem      ProvidedKind = "dbus-system"
	ProvidedKindDBusUser        ProvidedKind = "dbus-user"
	ProvidedKindID              ProvidedKind = "id"
)

// ParseProvidedKind parses a provided kind, accepting collection YAML names.
func ParseProvidedKind(s string) ProvidedKind {
	return parseEnum(s, []ProvidedKind{
		ProvidedKindLibrary, ProvidedKindBinary, ProvidedKindMediatype, ProvidedKindFont,
		ProvidedKindModalias, ProvidedKindFirmwareRuntime, ProvidedKindFirmwareFlashed,
		ProvidedKindPython2, ProvidedKindPython3, ProvidedKindDBusSystem,
		ProvidedKindDBusUser, ProvidedKindID,
	}, map[string]ProvidedKind{
		"mimetype":   ProvidedKindMediatype,
		"mimetypes":  ProvidedKindMediatype,
		"mediatypes": ProvidedKindMediatype,
		"libraries":  ProvidedKindLibrary,
		"binaries":   ProvidedKindBinary,
		"fonts":      ProvidedKindFont,
		"modaliases": ProvidedKindModalias,
		"python2s":   ProvidedKindPython2,
		"python3s":   ProvidedKindPython3,
		"ids":        ProvidedKindID,
	})
}

// String returns the string representation of a provided kind.
func (p ProvidedKind) String() string { return enumString(p, "unknown") }

// BundleKind is a packaging format.
type BundleKind string

// Bundle kinds.
const (
	BundleKindUnknown  BundleKind = ""
	BundleKindPackage  BundleKind = "package"
	BundleKindLimba    BundleKind = "limba"
	BundleKindFlatpak  BundleKind = "flatpak"
	BundleKindAppImage BundleKind = "appimage"
	BundleKindSnap     BundleKind = "snap"
	BundleKindTarball  BundleKind = "tarball"
	BundleKindCabinet  BundleKind = "cabinet"
)

// ParseBundleKind parses a bundle kind.
func ParseBundleKind(s string) BundleKind {
	return parseEnum(s, []BundleKind{
		BundleKindPackage, BundleKindLimba, BundleKindFlatpak, BundleKindAppImage,
		BundleKindSnap, BundleKindTarball, BundleKindCabinet,
	}, nil)
}

// String returns the string representation of a bundle kind.
func (b BundleKind) String() string { return enumString(b, "unknown") }

// IconKind is how an icon is made available.
type IconKind string

// Icon kinds.
const (
	IconKindUnknown IconKind = ""
	IconKindStock   IconKind = "stock"
	IconKindCached  IconKind = "cached"
	IconKindLocal   IconKind = "local"
	IconKindRemote  IconKind = "remote"
)

// ParseIconKind parses an icon kind.
func ParseIconKind(s string) IconKind {
	return parseEnum(s, []IconKind{IconKindStock, IconKindCached, IconKindLocal, IconKindRemote}, nil)
}

// String returns the string representation of an icon kind.
func (i IconKind) String() string { return enumString(i, "unknown") }

// URLKind is the purpose of a web link.
type URLKind string

// URL kinds.
const (
	URLKindUnknown    URLKind = ""
	URLKindHomepage   URLKind = "homepage"
	URLKindBugtracker URLKind = "bugtracker"
	URLKindFAQ        URLKind = "faq"
	URLKindHelp       URLKind = "help"
	URLKindDonation   URLKind = "donation"
	URLKindTranslate  URLKind = "translate"
	URLKindContact    URLKind = "contact"
)

// ParseURLKind parses a URL kind.
func ParseURLKind(s string) URLKind {
	return parseEnum(s, []URLKind{
		URLKindHomepage, URLKindBugtracker, URLKindFAQ, URLKindHelp,
		URLKindDonation, URLKindTranslate, URLKindContact,
	}, nil)
}

// String returns the string representation of a URL kind.
func (u URLKind) String() string { return enumString(u, "unknown") }

// LaunchableKind is the mechanism used to launch a component.
type LaunchableKind string

// Launchable kinds.
const (
	LaunchableKindUnknown         LaunchableKind = ""
	LaunchableKindDesktopID       LaunchableKind = "desktop-id"
	LaunchableKindService         LaunchableKind = "service"
	LaunchableKindCockpitManifest LaunchableKind = "cockpit-manifest"
	LaunchableKindURL             LaunchableKind = "url"
)

// ParseLaunchableKind parses a launchable kind.
func ParseLaunchableKind(s string) LaunchableKind {
	return parseEnum(s, []LaunchableKind{
		LaunchableKindDesktopID, LaunchableKindService, LaunchableKindCockpitManifest, LaunchableKindURL,
	}, nil)
}

// String returns the string representation of a launchable kind.
func (l LaunchableKind) String() string { return enumString(l, "unknown") }

// ImageKind distinguishes full-size images from thumbnails.
type ImageKind string

// Image kinds.
const (
	ImageKindUnknown   ImageKind = ""
	ImageKindSource    ImageKind = "source"
	ImageKindThumbnail ImageKind = "thumbnail"
)

// ParseImageKind parses an image kind.
func ParseImageKind(s string) ImageKind {
	return parseEnum(s, []ImageKind{ImageKindSource, ImageKindThumbnail}, nil)
}

// String returns the string representation of an image kind.
func (i ImageKind) String() string { return enumString(i, "unknown") }

// ScreenshotKind marks the default screenshot.
type ScreenshotKind string

// Screenshot kinds.
const (
	ScreenshotKindUnknown ScreenshotKind = ""
	ScreenshotKindDefault ScreenshotKind = "default"
	ScreenshotKindExtra   ScreenshotKind = "extra"
)

// ParseScreenshotKind parses a screenshot kind.
func ParseScreenshotKind(s string) ScreenshotKind {
	return parseEnum(s, []ScreenshotKind{ScreenshotKindDefault, ScreenshotKindExtra}, nil)
}

// String returns the string representation of a screenshot kind.
func (s ScreenshotKind) String() string { return enumString(s, "unknown") }

// UrgencyKind is the urgency of a release.
type UrgencyKind string

// Urgency kinds.
const (
	UrgencyKindUnknown  UrgencyKind = ""
	UrgencyKindLow      UrgencyKind = "low"
	UrgencyKindMedium   UrgencyKind = "medium"
	UrgencyKindHigh     UrgencyKind = "high"
	UrgencyKindCritical UrgencyKind = "critical"
)

// ParseUrgencyKind parses an urgency.
func ParseUrgencyKind(s string) UrgencyKind {
	return parseEnum(s, []UrgencyKind{UrgencyKindLow, UrgencyKindMedium, UrgencyKindHigh, UrgencyKindCritical}, nil)
}

// String returns the string representation of an urgency.
func (u UrgencyKind) String() string { return enumString(u, "unknown") }

// ChecksumKind is a release artifact checksum algorithm.
type ChecksumKind string

// Checksum kinds.
const (
	ChecksumKindNone    ChecksumKind = ""
	ChecksumKindSHA1    ChecksumKind = "sha1"
	ChecksumKindSHA256  ChecksumKind = "sha256"
	ChecksumKindBLAKE2b ChecksumKind = "blake2b"
)

// ParseChecksumKind parses a checksum kind.
func ParseChecksumKind(s string) ChecksumKind {
	return parseEnum(s, []ChecksumKind{ChecksumKindSHA1, ChecksumKindSHA256, ChecksumKindBLAKE2b}, nil)
}

// String returns the string representation of a checksum kind.
func (c ChecksumKind) String() string { return enumString(c, "none") }

// SizeKind is the meaning of a release size.
type SizeKind string

// Size kinds.
const (
	SizeKindUnknown   SizeKind = ""
	SizeKindDownload  SizeKind = "download"
	SizeKindInstalled SizeKind = "installed"
)

// ParseSizeKind parses a size kind.
func ParseSizeKind(s string) SizeKind {
	return parseEnum(s, []SizeKind{SizeKindDownload, SizeKindInstalled}, nil)
}

// String returns the string representation of a size kind.
func (s SizeKind) String() string { return enumString(s, "unknown") }

// SuggestedKind is the source of a suggestion.
type SuggestedKind string

// Suggested kinds.
const (
	SuggestedKindUnknown   SuggestedKind = ""
	SuggestedKindUpstream  SuggestedKind = "upstream"
	SuggestedKindHeuristic SuggestedKind = "heuristic"
)

// ParseSuggestedKind parses a suggested kind.
func ParseSuggestedKind(s string) SuggestedKind {
	return parseEnum(s, []SuggestedKind{SuggestedKindUpstream, SuggestedKindHeuristic}, nil)
}

// String returns the string representation of a suggested kind.
func (s SuggestedKind) String() string { return enumString(s, "unknown") }

// TranslationKind is a translation system.
type TranslationKind string

// Translation kinds.
const (
	TranslationKindUnknown TranslationKind = ""
	TranslationKindGettext TranslationKind = "gettext"
	TranslationKindQt      TranslationKind = "qt"
)

// ParseTranslationKind parses a translation kind.
func ParseTranslationKind(s string) TranslationKind {
	return parseEnum(s, []TranslationKind{TranslationKindGettext, TranslationKindQt}, nil)
}

// String returns the string representation of a translation kind.
func (t TranslationKind) String() string { return enumString(t, "unknown") }

// ReleaseKind is the maturity of a release.
type ReleaseKind string

// Release kinds.
const (
	ReleaseKindUnknown     ReleaseKind = ""
	ReleaseKindStable      ReleaseKind = "stable"
	ReleaseKindDevelopment ReleaseKind = "development"
)

// ParseReleaseKind parses a release kind.
func ParseReleaseKind(s string) ReleaseKind {
	return parseEnum(s, []ReleaseKind{ReleaseKindStable, ReleaseKindDevelopment}, nil)
}

// String returns the string representation of a release kind.
func (r ReleaseKind) String() string { return enumString(r, "unknown") }

// RatingValue is the intensity of a content rating attribute.
type RatingValue string

// Rating values.
const (
	RatingValueUnknown  RatingValue = ""
	RatingValueNone     RatingValue = "none"
	RatingValueMild     RatingValue = "mild"
	RatingValueModerate RatingValue = "moderate"
	RatingValueIntense  RatingValue = "intense"
)

// ParseRatingValue parses a content rating value.
func ParseRatingValue(s string) RatingValue {
	return parseEnum(s, []RatingValue{RatingValueNone, RatingValueMild, RatingValueModerate, RatingValueIntense}, nil)
}

// String returns the string representation of a rating value.
func (r RatingValue) String() string { return enumString(r, "unknown") }
