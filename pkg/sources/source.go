// Package sources defines the interface between the component pool and the
// readers that turn metadata documents into components.
//
// A document is one of four formats: collection XML, collection YAML
// (DEP-11), metainfo XML or a desktop-entry file. Collection documents may
// be compressed.
//
// Example usage:
//
//	format := sources.FormatFromPath("/usr/share/app-info/yaml/main.yml.gz")
//	cpts, err := reader.ReadCollection(ctx, path, format)
//	if err != nil {
//	    log.Fatal(err)
//	}
package sources

import (
	"context"
	"path"
	"slices"
	"strings"

	"github.com/agentstation/metapool/pkg/components"
)

// Format identifies the format of a metadata document.
type Format string

// String returns the string representation of a format.
func (f Format) String() string {
	if f == "" {
		return "unknown"
	}
	return string(f)
}

// Document formats.
const (
	FormatUnknown  Format = ""
	FormatXML      Format = "xml"
	FormatYAML     Format = "yaml"
	FormatMetainfo Format = "metainfo"
	FormatDesktop  Format = "desktop-entry"
)

// Formats returns all known formats.
func Formats() []Format {
	return []Format{
		FormatXML,
		FormatYAML,
		FormatMetainfo,
		FormatDesktop,
	}
}

// IsValid returns true if the format is one of the defined constants.
func (f Format) IsValid() bool {
	return slices.Contains(Formats(), f)
}

// compressionSuffixes are stripped before looking at a file extension.
var compressionSuffixes = []string{".gz", ".zst", ".xz"}

// FormatFromPath guesses the format of a file from its name.
// Collection files may carry a compression suffix.
func FormatFromPath(p string) Format {
	name := strings.ToLower(path.Base(p))
	for _, suffix := range compressionSuffixes {
		name = strings.TrimSuffix(name, suffix)
	}
	switch {
	case strings.HasSuffix(name, ".metainfo.xml"), strings.HasSuffix(name, ".appdata.xml"):
		return FormatMetainfo
	case strings.HasSuffix(name, ".xml"):
		return FormatXML
	case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"):
		return FormatYAML
	case strings.HasSuffix(name, ".desktop"):
		return FormatDesktop
	}
	return FormatUnknown
}

// Reader parses metadata documents into components.
//
// Implementations fill in everything the document declares, including
// Origin, OriginKind and Priority, but leave Scope to the caller.
type Reader interface {
	// ReadCollection parses a collection document holding any number of components.
	ReadCollection(ctx context.Context, path string, format Format) ([]*components.Component, error)

	// ReadMetainfo parses a metainfo document describing a single component.
	ReadMetainfo(ctx context.Context, path string) (*components.Component, error)

	// ReadDesktopEntry synthesizes a component from a desktop-entry file.
	// It returns nil and no error for files that do not describe an
	// application.
	ReadDesktopEntry(ctx context.Context, path string) (*components.Component, error)
}
