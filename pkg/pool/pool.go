// Package pool implements the component pool: an in-memory index of software
// components collected from collection metadata, metainfo files and
// desktop-entry files.
//
// Components are keyed by data id. Adding a component whose data id is
// already taken resolves the collision by origin, priority and architecture,
// or folds the data of merge fragments into the components they patch.
//
// Example:
//
//	p, err := pool.New()
//	if err != nil {
//		return err
//	}
//	if err := p.Load(ctx); err != nil && !errors.IsIncomplete(err) {
//		return err
//	}
//	for _, c := range p.Search("text editor") {
//		fmt.Println(c.ID, c.Name())
//	}
package pool

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/metapool/internal/metrics"
	isources "github.com/agentstation/metapool/internal/sources"
	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/logging"
	"github.com/agentstation/metapool/pkg/search"
	"github.com/agentstation/metapool/pkg/sources"
)

// Pool is a thread-safe index of components keyed by data id.
type Pool struct {
	mu sync.RWMutex

	cpts     map[string]*components.Component
	knownIDs map[string]struct{}

	xmlDirs  []string
	yamlDirs []string
	iconDirs []string

	fs       afero.Fs
	reader   sources.Reader
	logger   *zerolog.Logger
	metrics  *metrics.Metrics
	search   *search.Config
	searches *gocache.Cache

	locale string
	arch   string

	flags      Flags
	cacheFlags CacheFlags

	systemCacheDir string
	userCacheDir   string

	screenshotService string
	applicationsDir   string
	metainfoDir       string
	bundleDirs        []string
	parallelism       int

	generation uint64
}

// New creates an empty pool. Metadata locations default to the system
// AppStream roots; call Load to fill the pool.
func New(opts ...Option) (*Pool, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if o.reader == nil {
		o.reader = isources.NewReader(o.fs)
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}
	if o.search == nil {
		o.search = search.NewConfig()
	}
	if o.locale == "" {
		o.locale = detectLocale()
	}
	if o.arch == "" {
		o.arch = CurrentArchitecture()
	}
	if o.userCacheDir == "" {
		o.userCacheDir = defaultUserCacheDir()
	}

	p := &Pool{
		cpts:              make(map[string]*components.Component),
		knownIDs:          make(map[string]struct{}),
		fs:                o.fs,
		reader:            o.reader,
		logger:            o.logger,
		metrics:           o.metrics,
		search:            o.search,
		searches:          gocache.New(constants.SearchCacheTTL, constants.SearchCacheCleanupInterval),
		locale:            components.NormalizeLocale(o.locale),
		arch:              o.arch,
		flags:             o.flags,
		cacheFlags:        o.cacheFlags,
		systemCacheDir:    o.systemCacheDir,
		userCacheDir:      o.userCacheDir,
		screenshotService: o.screenshotService,
		applicationsDir:   o.applicationsDir,
		metainfoDir:       o.metainfoDir,
		bundleDirs:        o.bundleDirs,
		parallelism:       o.parallelism,
	}

	if o.metadataLocations == nil {
		for _, dir := range constants.MetadataPaths {
			p.addMetadataLocation(dir, false)
		}
	}
	for _, dir := range o.metadataLocations {
		p.addMetadataLocation(dir, true)
	}
	return p, nil
}

// Len returns the number of components in the pool.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cpts)
}

// Clear removes all components.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearLocked()
}

func (p *Pool) clearLocked() {
	p.cpts = make(map[string]*components.Component)
	p.knownIDs = make(map[string]struct{})
	p.changed()
}

// contents is the component data a reload replaces.
type contents struct {
	cpts     map[string]*components.Component
	knownIDs map[string]struct{}
}

// resetLocked empties the pool and returns what it held so an aborted
// reload can put it back with restoreLocked.
func (p *Pool) resetLocked() contents {
	prev := contents{cpts: p.cpts, knownIDs: p.knownIDs}
	p.clearLocked()
	return prev
}

func (p *Pool) restoreLocked(prev contents) {
	p.cpts = prev.cpts
	p.knownIDs = prev.knownIDs
	p.changed()
}

// changed invalidates memoized search results. Callers hold the write lock.
func (p *Pool) changed() {
	p.generation++
	p.searches.Flush()
	p.metrics.PoolSize.Set(float64(len(p.cpts)))
}

// Locale returns the active locale.
func (p *Pool) Locale() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.locale
}

// SetLocale changes the active locale of the pool and its components.
func (p *Pool) SetLocale(locale string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locale = components.NormalizeLocale(locale)
	for _, c := range p.cpts {
		c.SetActiveLocale(p.locale)
	}
	p.changed()
}

// Architecture returns the architecture used for multi-arch tie-breaks.
func (p *Pool) Architecture() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.arch
}

// Flags returns the pool flags.
func (p *Pool) Flags() Flags {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.flags
}

// SetFlags replaces the pool flags.
func (p *Pool) SetFlags(flags Flags) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags = flags
}

// AddFlags sets additional pool flags.
func (p *Pool) AddFlags(flags Flags) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags |= flags
}

// RemoveFlags clears pool flags.
func (p *Pool) RemoveFlags(flags Flags) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags &^= flags
}

// CacheFlags returns the cache flags.
func (p *Pool) CacheFlags() CacheFlags {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cacheFlags
}

// SetCacheFlags replaces the cache flags.
func (p *Pool) SetCacheFlags(flags CacheFlags) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cacheFlags = flags
}

// Metrics returns the metrics of the pool.
func (p *Pool) Metrics() *metrics.Metrics {
	return p.metrics
}

// Fs returns the filesystem of the pool.
func (p *Pool) Fs() afero.Fs {
	return p.fs
}

// detectLocale reads the message locale from the environment the way
// gettext does.
func detectLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return components.NormalizeLocale(v)
		}
	}
	return constants.DefaultLocale
}

var archNames = map[string]string{
	"amd64":   "x86_64",
	"386":     "i386",
	"arm64":   "aarch64",
	"arm":     "arm",
	"ppc64le": "ppc64el",
	"riscv64": "riscv64",
	"s390x":   "s390x",
}

// CurrentArchitecture returns the AppStream name of the running architecture.
func CurrentArchitecture() string {
	if name, ok := archNames[runtime.GOARCH]; ok {
		return name
	}
	return runtime.GOARCH
}

func defaultUserCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), constants.UserCacheSubdir)
	}
	return filepath.Join(dir, constants.UserCacheSubdir)
}
