package pool

import (
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
)

// Locations lists the directories a pool reads collection data and icons
// from.
type Locations struct {
	XML   []string `json:"xml,omitempty" yaml:"xml,omitempty"`
	YAML  []string `json:"yaml,omitempty" yaml:"yaml,omitempty"`
	Icons []string `json:"icons,omitempty" yaml:"icons,omitempty"`
}

// AddMetadataLocation registers a metadata root. Its xml, xmls and yaml
// subdirectories are searched for collection data and its icons
// subdirectory for cached icons. A root without any data subdirectory is
// searched for both formats itself. Missing directories are skipped.
func (p *Pool) AddMetadataLocation(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addMetadataLocation(dir, true)
}

func (p *Pool) addMetadataLocation(dir string, addRoot bool) {
	if ok, _ := afero.DirExists(p.fs, dir); !ok {
		p.logger.Debug().Str("dir", dir).Msg("Not adding metadata location: not a directory")
		return
	}

	added := false
	for _, sub := range []string{"xml", "xmls"} {
		if path := filepath.Join(dir, sub); isDir(p.fs, path) {
			p.xmlDirs = appendUnique(p.xmlDirs, path)
			added = true
		}
	}
	if path := filepath.Join(dir, "yaml"); isDir(p.fs, path) {
		p.yamlDirs = appendUnique(p.yamlDirs, path)
		added = true
	}
	if addRoot && !added {
		p.xmlDirs = appendUnique(p.xmlDirs, dir)
		p.yamlDirs = appendUnique(p.yamlDirs, dir)
	}
	if path := filepath.Join(dir, "icons"); isDir(p.fs, path) {
		p.iconDirs = appendUnique(p.iconDirs, path)
	}
}

// ClearMetadataLocations forgets all metadata roots.
func (p *Pool) ClearMetadataLocations() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.xmlDirs = nil
	p.yamlDirs = nil
	p.iconDirs = nil
}

// MetadataLocations returns the registered data and icon directories.
func (p *Pool) MetadataLocations() Locations {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Locations{
		XML:   slices.Clone(p.xmlDirs),
		YAML:  slices.Clone(p.yamlDirs),
		Icons: slices.Clone(p.iconDirs),
	}
}

// watchedDirs returns every directory whose changes invalidate the cache.
func (p *Pool) watchedDirs() []string {
	var dirs []string
	dirs = append(dirs, p.xmlDirs...)
	for _, d := range p.yamlDirs {
		dirs = appendUnique(dirs, d)
	}
	return dirs
}

// MonitoredDirs returns every existing directory Load reads from with the
// current flags: collection, bundle, metainfo and applications directories.
func (p *Pool) MonitoredDirs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var dirs []string
	if p.flags.Has(FlagReadCollection) {
		dirs = p.watchedDirs()
	}
	if p.flags.Has(FlagReadBundledRuntimes) {
		for _, d := range p.bundleDirs {
			dirs = appendUnique(dirs, d)
		}
	}
	if p.flags.Has(FlagReadMetainfo) {
		dirs = appendUnique(dirs, p.metainfoDir)
	}
	if p.flags.Has(FlagReadMetainfo) || p.flags.Has(FlagReadDesktopFiles) {
		dirs = appendUnique(dirs, p.applicationsDir)
	}

	existing := dirs[:0]
	for _, d := range dirs {
		if d != "" && isDir(p.fs, d) {
			existing = append(existing, d)
		}
	}
	return existing
}

func isDir(fs afero.Fs, path string) bool {
	ok, _ := afero.DirExists(fs, path)
	return ok
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}
