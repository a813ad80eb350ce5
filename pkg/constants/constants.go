// Package constants provides shared constants used throughout the metapool codebase.
// This includes default locations, cache parameters, file permissions and timeouts
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// LoadContextTimeout is the timeout for each pool load triggered by auto reloads
	LoadContextTimeout = 5 * time.Minute

	// DefaultReloadInterval is the default interval between automatic pool reloads
	DefaultReloadInterval = 1 * time.Hour

	// MonitorDebounce is how long the change monitor waits for file events to
	// settle before reloading
	MonitorDebounce = 2 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Default metadata locations
var (
	// MetadataPaths are the system roots searched for collection metadata
	MetadataPaths = []string{
		"/usr/share/app-info",
		"/var/lib/app-info",
		"/var/cache/app-info",
	}
)

// Path constants
const (
	// ApplicationsDir is where packages install desktop-entry files
	ApplicationsDir = "/usr/share/applications"

	// MetainfoDir is where packages install metainfo files
	MetainfoDir = "/usr/share/metainfo"

	// SystemCacheDir is the system-wide cache location
	SystemCacheDir = "/var/cache/app-info/cache"

	// UserCacheSubdir is appended to the user's cache directory
	UserCacheSubdir = "metapool"

	// CacheFileExtension is the extension of cache files, one per locale
	CacheFileExtension = ".gvz"

	// BundleMetadataDir is where bundle runtimes keep their collection data
	BundleMetadataDir = "/var/lib/flatpak/appstream"
)

// Cache constants
const (
	// CacheFormatVersion is the only cache document version readers accept
	CacheFormatVersion uint32 = 1

	// SearchCacheTTL is how long memoized search results stay valid
	SearchCacheTTL = 10 * time.Minute

	// SearchCacheCleanupInterval is how often expired search results are purged
	SearchCacheCleanupInterval = 15 * time.Minute
)

// Pool constants
const (
	// SearchGreylist holds words stripped from search queries, separated by ';'
	SearchGreylist = "app;application;package;program;programme;suite;tool"

	// ValidComponentThreshold is the percentage of valid components at or
	// below which a load is reported as incomplete
	ValidComponentThreshold = 90.0

	// DefaultLocale is the locale used when none can be detected
	DefaultLocale = "C"

	// MinSearchTokenLength is the minimum number of runes in a search token
	MinSearchTokenLength = 3

	// DefaultParseParallelism is how many metadata files are parsed at once
	DefaultParseParallelism = 4
)

// Screenshot service constants
const (
	// ScreenshotSourceWidth and ScreenshotSourceHeight size injected source images
	ScreenshotSourceWidth  = 800
	ScreenshotSourceHeight = 600

	// ThumbnailWidth and ThumbnailHeight size injected thumbnails
	ThumbnailWidth  = 160
	ThumbnailHeight = 120
)
