// Package config provides atomic JSON file persistence shared by every
// on-disk structure the system writes: hooks.json, platform.json,
// PackageConfig, and BinConfig files.
package config

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/afero"
	"github.com/toolpin/toolpin/internal/fs"
	"github.com/toolpin/toolpin/internal/fsutil"
	"github.com/toolpin/toolpin/internal/turbopath"
)

// DefaultFs is the real filesystem. Tests substitute afero.NewMemMapFs()
// to exercise the read/write paths without touching disk.
var DefaultFs afero.Fs = afero.NewOsFs()

// ReadJSONOptional reads the raw bytes of a JSON file. A missing file is
// reported via the returned bool, not an error.
func ReadJSONOptional(path turbopath.AbsoluteSystemPath) ([]byte, bool, error) {
	b, err := afero.ReadFile(DefaultFs, path.ToString())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// ReadJSON unmarshals the JSON file at path into v. Returns false if the
// file does not exist.
func ReadJSON(path turbopath.AbsoluteSystemPath, v interface{}) (bool, error) {
	b, ok, err := ReadJSONOptional(path)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return true, err
	}
	return true, nil
}

// WriteJSONAtomic marshals v and writes it to path by staging into a
// sibling temp file and renaming over the destination, so readers never
// observe a partial write.
func WriteJSONAtomic(path turbopath.AbsoluteSystemPath, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := DefaultFs.MkdirAll(path.Dir().ToString(), fs.DirPermissions); err != nil {
		return err
	}
	tmp := path.Dir().Join(turbopath.RelativeSystemPathFromUpstream(".tmp-" + path.Base()))
	if err := afero.WriteFile(DefaultFs, tmp.ToString(), data, 0644); err != nil {
		return err
	}
	if err := DefaultFs.Rename(tmp.ToString(), path.ToString()); err != nil {
		fsutil.Discard(tmp)
		return err
	}
	return nil
}

// Remove deletes the JSON file at path; a missing file is not an error.
func Remove(path turbopath.AbsoluteSystemPath) error {
	err := DefaultFs.Remove(path.ToString())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
