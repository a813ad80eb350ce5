// Package sources reads metadata documents from a filesystem and turns them
// into components: AppStream collection XML, DEP-11 collection YAML,
// metainfo XML and desktop-entry files. Compressed collection files are
// decompressed transparently.
package sources

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/errors"
	"github.com/agentstation/metapool/pkg/sources"
)

var _ sources.Reader = (*Reader)(nil)

// Reader implements sources.Reader on top of an afero filesystem.
type Reader struct {
	fs afero.Fs
}

// NewReader creates a reader for fs. A nil fs reads the host filesystem.
func NewReader(fs afero.Fs) *Reader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Reader{fs: fs}
}

// Fs returns the filesystem the reader works on.
func (r *Reader) Fs() afero.Fs {
	return r.fs
}

// ReadCollection parses a collection document. An unknown format is
// guessed from the file name and, failing that, from the content.
func (r *Reader) ReadCollection(ctx context.Context, path string, format sources.Format) ([]*components.Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := ReadFile(r.fs, path)
	if err != nil {
		return nil, err
	}

	if format == sources.FormatUnknown {
		format = sources.FormatFromPath(path)
	}
	if format == sources.FormatUnknown {
		format = sources.FormatYAML
		if looksLikeXML(data) {
			format = sources.FormatXML
		}
	}

	var cpts []*components.Component
	switch format {
	case sources.FormatXML:
		cpts, err = parseCollectionXML(data)
	case sources.FormatYAML:
		cpts, err = parseCollectionYAML(data)
	default:
		return nil, errors.NewValidationError("format", format, "not a collection format")
	}
	if err != nil {
		return nil, errors.WrapParse(format.String(), path, err)
	}
	return cpts, nil
}

// ReadMetainfo parses a metainfo document.
func (r *Reader) ReadMetainfo(ctx context.Context, path string) (*components.Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := ReadFile(r.fs, path)
	if err != nil {
		return nil, err
	}
	c, err := parseMetainfoXML(data)
	if err != nil {
		return nil, errors.WrapParse(sources.FormatMetainfo.String(), path, err)
	}
	return c, nil
}

// ReadDesktopEntry parses a desktop-entry file. The file name becomes the
// desktop-id launchable of the component.
func (r *Reader) ReadDesktopEntry(ctx context.Context, path string) (*components.Component, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	c, err := parseDesktopEntry(data, filepath.Base(path))
	if err != nil {
		return nil, errors.WrapParse(sources.FormatDesktop.String(), path, err)
	}
	return c, nil
}
