// Package shim creates and removes the per-binary entry points in the
// shim directory: one file per tool or installed bin name, which, when
// executed, classifies its own behavior from its own argv[0].
package shim

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/toolpin/toolpin/internal/binconfig"
	"github.com/toolpin/toolpin/internal/fs"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/toolerr"
	"github.com/toolpin/toolpin/internal/turbopath"
	"github.com/toolpin/toolpin/internal/util"
)

// DefaultTools is the fixed set of shims always present, regardless of
// any package install.
var DefaultTools = []string{"node", "npm", "npx", "pnpm", "pnpx", "yarn"}

// Ensure creates the shim file for name if it doesn't already exist,
// idempotently.
func Ensure(lo *layout.Layout, name string) error {
	path := shimPath(lo, name)
	if fs.FileExists(path.ToString()) {
		return nil
	}
	if err := os.MkdirAll(lo.BinDir().ToString(), fs.DirPermissions); err != nil {
		return toolerr.Withf(toolerr.Filesystem, err, "creating bin directory")
	}
	self, err := os.Executable()
	if err != nil {
		return toolerr.Withf(toolerr.Environment, err, "locating running executable")
	}
	if resolved, err := filepath.EvalSymlinks(self); err == nil {
		self = resolved
	}
	if runtime.GOOS == "windows" {
		return writeWindowsShim(self, path)
	}
	return writeUnixShim(self, path)
}

// EnsureMany creates shims for every name in names, idempotently,
// continuing past individual failures and returning the first error
// encountered (if any) after attempting them all.
func EnsureMany(lo *layout.Layout, names []string) error {
	var firstErr error
	for _, name := range names {
		if err := Ensure(lo, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Remove deletes a binary's shim file. A missing shim is not an error.
func Remove(lo *layout.Layout, name string) error {
	path := shimPath(lo, name)
	if err := os.Remove(path.ToString()); err != nil && !os.IsNotExist(err) {
		return toolerr.Withf(toolerr.Filesystem, err, "removing shim %s", name)
	}
	return nil
}

// shimPath is name.exe on Windows (PATHEXT needs the suffix to run a
// hardlinked binary directly) and bare name elsewhere.
func shimPath(lo *layout.Layout, name string) turbopath.AbsoluteSystemPath {
	if runtime.GOOS == "windows" {
		return lo.BinDir().Join(turbopath.RelativeSystemPathFromUpstream(name + ".exe"))
	}
	return lo.BinDir().Join(turbopath.RelativeSystemPathFromUpstream(name))
}

// writeUnixShim hardlinks self at path, falling back to a byte copy if
// bin/ lives on a different filesystem than the running executable
// (os.Link returns a cross-device-link error in that case).
func writeUnixShim(self string, path turbopath.AbsoluteSystemPath) error {
	if err := os.Link(self, path.ToString()); err == nil {
		return nil
	}
	if err := fs.CopyFile(self, path.ToString(), 0o755); err != nil {
		return toolerr.Withf(toolerr.Filesystem, err, "writing shim %s", path.ToString())
	}
	return os.Chmod(path.ToString(), 0o755)
}

// writeWindowsShim hardlinks self at path (name.exe), the same way
// writeUnixShim does; Windows resolves bare commands by PATHEXT so the
// shim still needs the .exe suffix.
func writeWindowsShim(self string, path turbopath.AbsoluteSystemPath) error {
	if err := os.Link(self, path.ToString()); err == nil {
		return nil
	}
	return fs.CopyFile(self, path.ToString(), 0o755)
}

// RegenerateAll rebuilds every shim from the union of the fixed default
// tool list and every bin with a persisted BinConfig, used by
// `toolpin setup` and by the migration engine.
func RegenerateAll(lo *layout.Layout) error {
	names := append([]string{}, DefaultTools...)
	bins, err := binconfig.ListBins(lo)
	if err != nil {
		return err
	}
	names = append(names, bins...)
	return EnsureMany(lo, names)
}

// RemoveOrphans deletes any shim file in bin/ that names neither a
// default tool nor a bin with a persisted BinConfig.
func RemoveOrphans(lo *layout.Layout) error {
	bins, err := binconfig.ListBins(lo)
	if err != nil {
		return err
	}
	keep := util.SetFromStrings(append(bins, DefaultTools...))
	entries, err := os.ReadDir(lo.BinDir().ToString())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := shimBaseName(e.Name())
		if !keep.Includes(name) {
			if err := Remove(lo, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func shimBaseName(filename string) string {
	const exeSuffix = ".exe"
	if len(filename) > len(exeSuffix) && filename[len(filename)-len(exeSuffix):] == exeSuffix {
		return filename[:len(filename)-len(exeSuffix)]
	}
	return filename
}
