package turbopath

import "path/filepath"

// Dir returns the parent directory of p, mirroring filepath.Dir for the
// typed absolute-path system.
func (p AbsoluteSystemPath) Dir() AbsoluteSystemPath {
	return AbsoluteSystemPathFromUpstream(filepath.Dir(p.ToString()))
}

// Base returns the final path element of p, mirroring filepath.Base.
func (p AbsoluteSystemPath) Base() string {
	return filepath.Base(p.ToString())
}
