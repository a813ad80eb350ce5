package pool

import (
	"strings"

	"github.com/agentstation/metapool/pkg/errors"
)

// Flags control which data a pool loads and how it resolves it.
type Flags uint32

// Pool flags.
const (
	FlagNone                Flags = 0
	FlagReadCollection      Flags = 1 << 0 // Read AppStream collection metadata
	FlagReadMetainfo        Flags = 1 << 1 // Read installed metainfo files
	FlagReadDesktopFiles    Flags = 1 << 2 // Synthesize components from desktop-entry files
	FlagReadBundledRuntimes Flags = 1 << 3 // Read collection data shipped by bundle runtimes
	FlagIgnoreCacheAge      Flags = 1 << 4 // Always parse, even when the cache is fresh
	FlagResolveAddons       Flags = 1 << 5 // Return resolved addons alongside components
	FlagPreferLocalMetainfo Flags = 1 << 6 // Installed metainfo wins over collection data
	FlagMonitor             Flags = 1 << 7 // Reload when metadata locations change
)

// DefaultFlags is the flag set of a new pool.
const DefaultFlags = FlagReadCollection | FlagReadMetainfo

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagReadCollection, "read-collection"},
	{FlagReadMetainfo, "read-metainfo"},
	{FlagReadDesktopFiles, "read-desktop-files"},
	{FlagReadBundledRuntimes, "read-bundled-runtime"},
	{FlagIgnoreCacheAge, "ignore-cache-age"},
	{FlagResolveAddons, "resolve-addons"},
	{FlagPreferLocalMetainfo, "prefer-local-metainfo"},
	{FlagMonitor, "monitor"},
}

// Has reports whether all bits of flag are set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// String returns the flag names joined by "|", or "none".
func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseFlags parses flag names separated by "|" or ",".
func ParseFlags(s string) (Flags, error) {
	var out Flags
	for _, name := range splitFlagNames(s) {
		if name == "none" {
			continue
		}
		found := false
		for _, fn := range flagNames {
			if fn.name == name {
				out |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return FlagNone, errors.NewValidationError("flags", name, "unknown pool flag")
		}
	}
	return out, nil
}

// CacheFlags select the cache locations a pool may use.
type CacheFlags uint32

// Cache flags.
const (
	CacheNone      CacheFlags = 0
	CacheUseUser   CacheFlags = 1 << 0 // Read and write the per-user cache
	CacheUseSystem CacheFlags = 1 << 1 // Read the system cache
)

// DefaultCacheFlags is the cache flag set of a new pool.
const DefaultCacheFlags = CacheUseUser | CacheUseSystem

// Has reports whether all bits of flag are set.
func (f CacheFlags) Has(flag CacheFlags) bool {
	return f&flag == flag
}

// String returns the flag names joined by "|", or "none".
func (f CacheFlags) String() string {
	var names []string
	if f.Has(CacheUseUser) {
		names = append(names, "use-user")
	}
	if f.Has(CacheUseSystem) {
		names = append(names, "use-system")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseCacheFlags parses cache flag names separated by "|" or ",".
func ParseCacheFlags(s string) (CacheFlags, error) {
	var out CacheFlags
	for _, name := range splitFlagNames(s) {
		switch name {
		case "none":
		case "use-user":
			out |= CacheUseUser
		case "use-system":
			out |= CacheUseSystem
		default:
			return CacheNone, errors.NewValidationError("cache_flags", name, "unknown cache flag")
		}
	}
	return out, nil
}

func splitFlagNames(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ','
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}
