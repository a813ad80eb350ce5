package sources

import (
	"bytes"
	"io"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"

	"github.com/agentstation/metapool/pkg/errors"
)

// Find returns the files below dir matching any of the doublestar patterns,
// sorted by path. A missing dir yields no files and no error.
func Find(fs afero.Fs, dir string, patterns ...string) ([]string, error) {
	ok, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, errors.WrapIO("stat", dir, err)
	}
	if !ok {
		return nil, nil
	}

	fsys := afero.NewIOFS(afero.NewBasePathFs(fs, dir))
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.WrapIO("glob", filepath.Join(dir, pattern), err)
		}
		for _, m := range matches {
			full := filepath.Join(dir, filepath.FromSlash(m))
			if _, dup := seen[full]; dup {
				continue
			}
			seen[full] = struct{}{}
			files = append(files, full)
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReadFile reads a file and transparently decompresses gzip and zstd
// payloads. The compression is detected from the content, not the name.
func ReadFile(fs afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	out, err := decompress(data)
	if err != nil {
		return nil, errors.WrapIO("decompress", path, err)
	}
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("application/gzip"):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case mtype.Is("application/zstd"):
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	}
	return data, nil
}
