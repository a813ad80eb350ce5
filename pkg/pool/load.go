package pool

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	conc "github.com/sourcegraph/conc/pool"

	isources "github.com/agentstation/metapool/internal/sources"
	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/logging"
	"github.com/agentstation/metapool/pkg/sources"
)

// metadataFile is a collection file and the format it is read as.
type metadataFile struct {
	path   string
	format sources.Format
}

// parsedFile holds the outcome of reading one metadata file.
type parsedFile struct {
	cpts []*components.Component
	err  error
}

// Load replaces the pool contents with all data found in the metadata
// locations. A load aborted by ctx leaves the previous contents in place. Collection data comes from the cache when no data directory
// changed since the cache was written.
//
// Load keeps everything it could read. It returns an IncompleteError when
// files failed to parse or more than a tenth of the components were
// invalid; callers may treat that as a warning.
func (p *Pool) Load(ctx context.Context) error {
	start := time.Now()
	ctx = logging.WithOperation(p.withLogger(ctx), "load")
	log := logging.FromContext(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.metrics.ObserveDuration("load", start)

	prev := p.resetLocked()

	var loadErr error
	if p.flags.Has(FlagReadCollection) {
		loadErr = p.loadCollection(ctx, false)
	}
	if err := ctx.Err(); err != nil {
		p.restoreLocked(prev)
		return err
	}
	if p.flags.Has(FlagReadBundledRuntimes) {
		loadErr = errors.Join(loadErr, p.loadBundled(ctx))
	}
	p.loadMetainfoDesktop(ctx)
	if err := ctx.Err(); err != nil {
		log.Debug().Err(err).Msg("Load aborted, keeping previous data")
		p.restoreLocked(prev)
		return err
	}

	total := len(p.cpts)
	invalid := p.refineLocked(log)
	log.Debug().Int(logging.FieldCount, len(p.cpts)).Int("invalid", invalid).Msg("Pool loaded")

	if tooManyInvalid(invalid, total) || loadErr != nil {
		return &errors.IncompleteError{
			Operation: "load",
			Invalid:   invalid,
			Total:     total,
			Err:       loadErr,
		}
	}
	return nil
}

// LoadAsync runs Load on a separate goroutine. The channel receives the
// result of Load and is closed afterwards.
func (p *Pool) LoadAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- p.Load(ctx)
	}()
	return done
}

// tooManyInvalid reports whether the share of valid components is at or
// below constants.ValidComponentThreshold.
func tooManyInvalid(invalid, total int) bool {
	if invalid == 0 || total == 0 {
		return false
	}
	valid := 100 / float64(total) * float64(total-invalid)
	return valid <= constants.ValidComponentThreshold
}

func (p *Pool) withLogger(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithLogger(ctx, logging.FromContextOr(ctx, p.logger))
}

// loadCollection adds collection data to the pool, from the cache when it is
// fresh unless refresh is set. Callers hold the write lock.
func (p *Pool) loadCollection(ctx context.Context, refresh bool) error {
	log := logging.FromContext(ctx)

	if !refresh && p.cacheUsable() {
		path := p.cachePath()
		err := p.loadCacheLocked(ctx, path)
		if err == nil {
			log.Debug().Str(logging.FieldFile, path).Msg("Using cached data")
			return nil
		}
		log.Warn().Err(err).Str(logging.FieldFile, path).Msg("Cache unusable, loading fresh data")
		p.clearLocked()
	}

	files, err := p.collectionFiles(log)
	if err != nil {
		return err
	}
	return p.addCollectionFiles(ctx, files)
}

// collectionFiles lists every collection file below the xml and yaml
// directories.
func (p *Pool) collectionFiles(log *zerolog.Logger) ([]metadataFile, error) {
	var files []metadataFile
	for _, dir := range p.xmlDirs {
		log.Debug().Str(logging.FieldDir, dir).Msg("Searching for XML data")
		found, err := isources.Find(p.fs, dir, "*.xml*")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			files = append(files, metadataFile{path: f, format: sources.FormatXML})
		}
	}
	for _, dir := range p.yamlDirs {
		log.Debug().Str(logging.FieldDir, dir).Msg("Searching for YAML data")
		found, err := isources.Find(p.fs, dir, "*.yml*", "*.yaml*")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			files = append(files, metadataFile{path: f, format: sources.FormatYAML})
		}
	}
	return files, nil
}

// loadBundled adds collection data shipped by bundle runtimes.
func (p *Pool) loadBundled(ctx context.Context) error {
	var files []metadataFile
	for _, dir := range p.bundleDirs {
		found, err := isources.Find(p.fs, dir, "**/appstream.xml*")
		if err != nil {
			return err
		}
		for _, f := range found {
			files = append(files, metadataFile{path: f, format: sources.FormatXML})
		}
	}
	return p.addCollectionFiles(ctx, files)
}

// parseFiles reads files concurrently. Results keep the order of files.
func (p *Pool) parseFiles(ctx context.Context, files []metadataFile) ([]parsedFile, error) {
	results := make([]parsedFile, len(files))
	workers := conc.New().
		WithContext(ctx).
		WithMaxGoroutines(p.parallelism).
		WithCancelOnError().
		WithFirstError()
	for i, f := range files {
		workers.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cpts, err := p.reader.ReadCollection(ctx, f.path, f.format)
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return err
			}
			results[i] = parsedFile{cpts: cpts, err: err}
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// addCollectionFiles parses files and adds their components. Merge
// fragments are added after all regular components so they find every
// component they patch. Parse failures are collected, not fatal.
func (p *Pool) addCollectionFiles(ctx context.Context, files []metadataFile) error {
	log := logging.FromContext(ctx)

	results, err := p.parseFiles(ctx, files)
	if err != nil {
		return err
	}

	var (
		failed []string
		errs   []error
		merges []*components.Component
	)
	for i, res := range results {
		path := files[i].path
		p.metrics.ObserveFile(files[i].format.String(), res.err)
		if res.err != nil {
			log.Debug().Err(res.err).Str(logging.FieldFile, path).Msg("Metadata file has errors")
			failed = append(failed, path)
			errs = append(errs, res.err)
		} else {
			log.Debug().Str(logging.FieldFile, path).Int(logging.FieldCount, len(res.cpts)).Msg("Read metadata file")
		}

		for _, c := range res.cpts {
			c.Scope = components.ScopeSystem
			if c.MergeKind != components.MergeKindNone {
				merges = append(merges, c)
				continue
			}
			if err := p.addLocked(c, log); err != nil {
				log.Debug().Err(err).Msg("Metadata ignored")
			}
		}
	}
	for _, c := range merges {
		if err := p.addLocked(c, log); err != nil {
			log.Debug().Err(err).Msg("Merge component ignored")
		}
	}

	if len(failed) == 0 {
		return nil
	}
	return errors.NewResourceError("parse", "metadata files", strings.Join(failed, ", "), errors.Join(errs...))
}

// loadMetainfoDesktop adds installed metainfo files and desktop entries.
// Desktop entries matching a metainfo file are folded into it.
func (p *Pool) loadMetainfoDesktop(ctx context.Context) {
	if !p.flags.Has(FlagReadMetainfo) && !p.flags.Has(FlagReadDesktopFiles) {
		return
	}
	log := logging.FromContext(ctx)

	desktop := p.desktopEntries(ctx)
	if p.flags.Has(FlagReadMetainfo) {
		p.loadMetainfo(ctx, desktop)
	}
	if !p.flags.Has(FlagReadDesktopFiles) {
		return
	}

	log.Debug().Int(logging.FieldCount, len(desktop)).Msg("Including components from desktop-entry files")
	names := make([]string, 0, len(desktop))
	for name := range desktop {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := p.addLocked(desktop[name], log); err != nil {
			log.Debug().Err(err).Str(logging.FieldFile, name).Msg("Component ignored")
		}
	}
}

// desktopEntries reads every desktop-entry file of the applications
// directory, keyed by file name.
func (p *Pool) desktopEntries(ctx context.Context) map[string]*components.Component {
	log := logging.FromContext(ctx)
	table := make(map[string]*components.Component)

	files, err := isources.Find(p.fs, p.applicationsDir, "*.desktop")
	if err != nil {
		log.Debug().Err(err).Str(logging.FieldDir, p.applicationsDir).Msg("Unable to find desktop-entry files")
		return table
	}
	for _, path := range files {
		c, err := p.reader.ReadDesktopEntry(ctx, path)
		p.metrics.ObserveFile(sources.FormatDesktop.String(), err)
		if err != nil {
			log.Debug().Err(err).Str(logging.FieldFile, path).Msg("Error reading desktop-entry file")
			continue
		}
		if c == nil {
			continue
		}
		c.Scope = components.ScopeSystem
		table[filepath.Base(path)] = c
	}
	return table
}

// loadMetainfo adds installed metainfo files, absorbing matching desktop
// entries from desktop.
func (p *Pool) loadMetainfo(ctx context.Context, desktop map[string]*components.Component) {
	log := logging.FromContext(ctx)

	files, err := isources.Find(p.fs, p.metainfoDir, "*.xml")
	if err != nil {
		log.Debug().Err(err).Str(logging.FieldDir, p.metainfoDir).Msg("Unable to find metainfo files")
		return
	}
	for _, path := range files {
		if !p.flags.Has(FlagPreferLocalMetainfo) && p.metainfoKnown(path) {
			log.Debug().Str(logging.FieldFile, path).Msg("Skipped metainfo file, component already known")
			continue
		}

		c, err := p.reader.ReadMetainfo(ctx, path)
		p.metrics.ObserveFile(sources.FormatMetainfo.String(), err)
		if err != nil {
			log.Debug().Err(err).Str(logging.FieldFile, path).Msg("Errors in metainfo file")
			continue
		}
		c.Scope = components.ScopeSystem

		desktopID := metainfoDesktopID(c)
		if de, ok := desktop[desktopID]; ok {
			c.MergeWithMode(de, components.MergeKindAppend)
			delete(desktop, desktopID)
		}
		if err := p.addLocked(c, log); err != nil {
			log.Debug().Err(err).Str(logging.FieldFile, path).Msg("Component ignored")
		}
	}
}

// metainfoKnown reports whether the component a metainfo file describes is
// already in the pool, judging by the file name alone.
func (p *Pool) metainfoKnown(path string) bool {
	id := filepath.Base(path)
	if trimmed, ok := strings.CutSuffix(id, ".metainfo.xml"); ok {
		id = trimmed
	} else if trimmed, ok := strings.CutSuffix(id, ".appdata.xml"); ok {
		id = trimmed
		if _, known := p.knownIDs[id+".desktop"]; known {
			return true
		}
	}
	_, known := p.knownIDs[id]
	return known
}

// metainfoDesktopID returns the desktop-entry file name a metainfo
// component belongs to.
func metainfoDesktopID(c *components.Component) string {
	if l := c.LaunchableFor(components.LaunchableKindDesktopID); l != nil && len(l.Entries) > 0 {
		return l.Entries[0]
	}
	if strings.HasSuffix(c.ID, ".desktop") {
		return c.ID
	}
	return c.ID + ".desktop"
}
