// Package cache implements the binary cache of a component pool: a gzip
// compressed, versioned document that stores every component of one locale.
//
// The document is built from the Value sum type and framed with the
// protobuf wire format. Readers reject any document whose format version
// differs from constants.CacheFormatVersion.
package cache

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/agentstation/metapool/pkg/components"
	"github.com/agentstation/metapool/pkg/constants"
	"github.com/agentstation/metapool/pkg/diagnostics"
	"github.com/agentstation/metapool/pkg/errors"
)

// WriteFile encodes components and atomically replaces the file at path.
// It reports false and writes nothing when no component is serializable.
func WriteFile(fs afero.Fs, path, locale string, cpts []*components.Component) (bool, diagnostics.Diagnostics, error) {
	data, diags, err := Encode(locale, cpts)
	if err != nil {
		return false, diags, err
	}
	if data == nil {
		diags.Infof(path, "no components to cache, nothing written")
		return false, diags, nil
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, constants.DirPermissions); err != nil {
		return false, diags, errors.WrapCacheIO("create", dir, err)
	}
	if err := writeAtomic(fs, path, data); err != nil {
		return false, diags, err
	}
	return true, diags, nil
}

// writeAtomic writes into a temporary file next to path and renames it into
// place, so readers never see a partial document.
func writeAtomic(fs afero.Fs, path string, data []byte) error {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WrapCacheIO("create", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.WrapCacheIO("write", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.WrapCacheIO("sync", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.WrapCacheIO("close", tmpName, err)
	}
	if err := fs.Chmod(tmpName, constants.FilePermissions); err != nil {
		cleanup()
		return errors.WrapCacheIO("chmod", tmpName, err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.WrapCacheIO("rename", path, err)
	}
	return nil
}

// ReadFile reads and decodes the cache file at path.
func ReadFile(fs afero.Fs, path string) (string, []*components.Component, diagnostics.Diagnostics, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", nil, nil, errors.WrapCacheIO("read", path, err)
	}
	locale, cpts, diags, err := Decode(data)
	if err != nil {
		var fe *errors.CacheFormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return "", nil, diags, err
	}
	return locale, cpts, diags, nil
}
