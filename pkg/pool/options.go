package pool

import (
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/metapool/internal/metrics"
	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/search"
	"github.com/agentstation/metapool/pkg/sources"
)

// Option configures a Pool.
type Option func(*options) error

// options holds the pool configuration collected from Option values.
type options struct {
	fs      afero.Fs
	reader  sources.Reader
	logger  *zerolog.Logger
	metrics *metrics.Metrics
	search  *search.Config

	locale string
	arch   string

	flags      Flags
	cacheFlags CacheFlags

	systemCacheDir string
	userCacheDir   string

	screenshotService string

	metadataLocations []string // nil means constants.MetadataPaths
	applicationsDir   string
	metainfoDir       string
	bundleDirs        []string

	parallelism int
}

func defaultOptions() *options {
	return &options{
		flags:           DefaultFlags,
		cacheFlags:      DefaultCacheFlags,
		systemCacheDir:  constants.SystemCacheDir,
		applicationsDir: constants.ApplicationsDir,
		metainfoDir:     constants.MetainfoDir,
		bundleDirs:      []string{constants.BundleMetadataDir},
		parallelism:     constants.DefaultParseParallelism,
	}
}

// WithFs sets the filesystem all metadata and cache access goes through.
func WithFs(fs afero.Fs) Option {
	return func(o *options) error {
		if fs == nil {
			return errors.NewValidationError("fs", nil, "filesystem must not be nil")
		}
		o.fs = fs
		return nil
	}
}

// WithReader replaces the metadata reader.
func WithReader(r sources.Reader) Option {
	return func(o *options) error {
		o.reader = r
		return nil
	}
}

// WithLogger sets the logger used when no logger travels in the context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithMetrics shares a metrics set between pools.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithSearchConfig sets the greylist and stemmer configuration.
func WithSearchConfig(cfg *search.Config) Option {
	return func(o *options) error {
		o.search = cfg
		return nil
	}
}

// WithLocale sets the active locale instead of the one from the environment.
func WithLocale(locale string) Option {
	return func(o *options) error {
		o.locale = locale
		return nil
	}
}

// WithArchitecture sets the architecture used for multi-arch tie-breaks.
func WithArchitecture(arch string) Option {
	return func(o *options) error {
		o.arch = arch
		return nil
	}
}

// WithFlags replaces the pool flags.
func WithFlags(flags Flags) Option {
	return func(o *options) error {
		o.flags = flags
		return nil
	}
}

// WithCacheFlags replaces the cache flags.
func WithCacheFlags(flags CacheFlags) Option {
	return func(o *options) error {
		o.cacheFlags = flags
		return nil
	}
}

// WithSystemCacheDir sets the system cache directory.
func WithSystemCacheDir(dir string) Option {
	return func(o *options) error {
		o.systemCacheDir = dir
		return nil
	}
}

// WithUserCacheDir sets the per-user cache directory.
func WithUserCacheDir(dir string) Option {
	return func(o *options) error {
		o.userCacheDir = dir
		return nil
	}
}

// WithScreenshotService sets the base URL of a screenshot service.
func WithScreenshotService(url string) Option {
	return func(o *options) error {
		o.screenshotService = url
		return nil
	}
}

// WithMetadataLocations replaces the default metadata roots.
func WithMetadataLocations(dirs ...string) Option {
	return func(o *options) error {
		o.metadataLocations = append([]string{}, dirs...)
		return nil
	}
}

// WithApplicationsDir sets the directory searched for desktop-entry files.
func WithApplicationsDir(dir string) Option {
	return func(o *options) error {
		o.applicationsDir = dir
		return nil
	}
}

// WithMetainfoDir sets the directory searched for metainfo files.
func WithMetainfoDir(dir string) Option {
	return func(o *options) error {
		o.metainfoDir = dir
		return nil
	}
}

// WithBundleDirs sets the directories searched for bundle runtime metadata.
func WithBundleDirs(dirs ...string) Option {
	return func(o *options) error {
		o.bundleDirs = append([]string{}, dirs...)
		return nil
	}
}

// WithParallelism limits how many collection files are parsed at once.
func WithParallelism(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return errors.NewValidationError("parallelism", n, "must be at least 1")
		}
		o.parallelism = n
		return nil
	}
}
