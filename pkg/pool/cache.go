package pool

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/afero"

	"github.com/agentstation/metapool/pkg/cache"
	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/logging"
)

// CachePath returns the cache file of the active locale, or the empty
// string when the cache flags disable every cache location. The system
// cache is preferred over the per-user one.
func (p *Pool) CachePath() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cachePath()
}

func (p *Pool) cachePath() string {
	var dir string
	switch {
	case p.cacheFlags.Has(CacheUseSystem) && p.systemCacheDir != "":
		dir = p.systemCacheDir
	case p.cacheFlags.Has(CacheUseUser) && p.userCacheDir != "":
		dir = p.userCacheDir
	default:
		return ""
	}
	return filepath.Join(dir, p.locale+constants.CacheFileExtension)
}

// CacheAge returns the modification time of the cache file. ok is false
// when there is no cache.
func (p *Pool) CacheAge() (age time.Time, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cacheTime()
}

func (p *Pool) cacheTime() (time.Time, bool) {
	path := p.cachePath()
	if path == "" {
		return time.Time{}, false
	}
	info, err := p.fs.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// cacheUsable reports whether Load may take collection data from the cache.
func (p *Pool) cacheUsable() bool {
	if p.flags.Has(FlagIgnoreCacheAge) {
		return false
	}
	if _, ok := p.cacheTime(); !ok {
		return false
	}
	return !p.metadataChanged()
}

// metadataChanged reports whether any data directory was modified after the
// cache was written. Without a cache, data always counts as changed.
func (p *Pool) metadataChanged() bool {
	cached, ok := p.cacheTime()
	if !ok {
		return true
	}
	for _, dir := range p.watchedDirs() {
		info, err := p.fs.Stat(dir)
		if err != nil {
			continue
		}
		if info.ModTime().After(cached) {
			return true
		}
	}
	return false
}

// LoadCache adds the components of a cache file to the pool and refines
// the result.
func (p *Pool) LoadCache(ctx context.Context, path string) error {
	ctx = logging.WithOperation(p.withLogger(ctx), "load-cache")

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loadCacheLocked(ctx, path); err != nil {
		return err
	}
	p.refineLocked(logging.FromContext(ctx))
	return nil
}

func (p *Pool) loadCacheLocked(ctx context.Context, path string) error {
	log := logging.FromContext(ctx)

	_, cpts, diags, err := cache.ReadFile(p.fs, path)
	p.metrics.ObserveCache(false, err)
	diags.Log(log)
	if err != nil {
		return err
	}
	for _, c := range cpts {
		// caches only hold system data
		c.Scope = components.ScopeSystem
		if err := p.addLocked(c, log); err != nil {
			log.Warn().Err(err).Msg("Cached data ignored")
		}
	}
	return nil
}

// SaveCache writes the pool contents to a cache file at path.
func (p *Pool) SaveCache(ctx context.Context, path string) error {
	ctx = logging.WithOperation(p.withLogger(ctx), "save-cache")

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveCacheLocked(ctx, path)
}

func (p *Pool) saveCacheLocked(ctx context.Context, path string) error {
	log := logging.FromContext(ctx)

	keys := make([]string, 0, len(p.cpts))
	for cdid := range p.cpts {
		keys = append(keys, cdid)
	}
	slices.Sort(keys)
	cpts := make([]*components.Component, 0, len(keys))
	for _, cdid := range keys {
		c := p.cpts[cdid]
		c.EnsureTokenCache(p.search)
		cpts = append(cpts, c)
	}

	written, diags, err := cache.WriteFile(p.fs, path, p.locale, cpts)
	p.metrics.ObserveCache(true, err)
	diags.Log(log)
	if err != nil {
		return err
	}
	if !written {
		// an old cache would otherwise resurrect removed data
		if err := p.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.WrapCacheIO("remove", path, err)
		}
	}
	return nil
}

// RefreshCache rebuilds the cache from collection data. Unless force is
// set, nothing happens when no data directory changed since the cache was
// written. It reports whether the cache was rebuilt.
//
// The pool holds the freshly parsed collection data afterwards. An
// IncompleteError means the cache was written but some data was dropped.
func (p *Pool) RefreshCache(ctx context.Context, force bool) (bool, error) {
	start := time.Now()
	ctx = logging.WithOperation(p.withLogger(ctx), "refresh")
	log := logging.FromContext(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.metrics.ObserveDuration("refresh", start)

	path := p.cachePath()
	if path == "" {
		return false, errors.NewConfigError("cache", "no cache location enabled", nil)
	}
	dir := filepath.Dir(path)
	if err := p.fs.MkdirAll(dir, constants.DirPermissions); err != nil {
		return false, &errors.NotWritableError{Path: dir, Err: err}
	}
	if err := checkWritable(p.fs, dir); err != nil {
		return false, &errors.NotWritableError{Path: dir, Err: err}
	}

	if !p.metadataChanged() {
		if !force {
			log.Debug().Msg("Data did not change, no cache refresh needed")
			return false, nil
		}
		log.Debug().Msg("Forcing cache refresh")
	}

	prev := p.resetLocked()
	loadErr := p.loadCollection(ctx, true)
	if err := ctx.Err(); err != nil {
		p.restoreLocked(prev)
		return false, err
	}
	total := len(p.cpts)
	invalid := p.refineLocked(log)
	if loadErr != nil {
		log.Debug().Err(loadErr).Msg("Error while updating the in-memory data pool")
	}

	if err := p.saveCacheLocked(ctx, path); err != nil {
		return false, errors.WrapResource("refresh", "cache", path, err)
	}

	now := time.Now()
	if err := p.fs.Chtimes(path, now, now); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Str("file", path).Msg("Unable to touch cache file")
	}

	if invalid > 0 || loadErr != nil {
		return true, &errors.IncompleteError{
			Operation: "cache refresh",
			Invalid:   invalid,
			Total:     total,
			Err:       loadErr,
		}
	}
	return true, nil
}

// checkWritable probes dir by creating and removing a file in it.
func checkWritable(fs afero.Fs, dir string) error {
	f, err := afero.TempFile(fs, dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return fs.Remove(name)
}
