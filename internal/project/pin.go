package project

import (
	"fmt"
	"os"

	"github.com/toolpin/toolpin/internal/turbopath"
)

// PinnableTools names the manifest fields Pin can set.
var PinnableTools = []string{"node", "npm", "pnpm", "yarn"}

// Pin persists an exact tool version into the manifest's toolpin
// section, creating the section if absent, and rewrites the file with
// its original indentation. Every field outside the toolpin key is
// preserved.
func Pin(manifestPath turbopath.AbsoluteSystemPath, tool, exact string) error {
	m, err := ReadManifest(manifestPath)
	if err != nil {
		return err
	}
	if m.Toolpin == nil {
		m.Toolpin = &ToolpinSection{}
	}
	switch tool {
	case "node":
		m.Toolpin.Node = exact
	case "npm":
		m.Toolpin.Npm = exact
	case "pnpm":
		m.Toolpin.Pnpm = exact
	case "yarn":
		m.Toolpin.Yarn = exact
	default:
		return fmt.Errorf("cannot pin %q: only node, npm, pnpm, and yarn can be pinned", tool)
	}
	return WriteManifest(m)
}

// WriteManifest re-serializes m and atomically replaces the file it was
// read from, staging into a sibling temp file first.
func WriteManifest(m *Manifest) error {
	data, err := MarshalManifest(m)
	if err != nil {
		return err
	}
	tmp := m.Path.Dir().Join(turbopath.RelativeSystemPathFromUpstream(".tmp-" + m.Path.Base()))
	if err := os.WriteFile(tmp.ToString(), data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.ToString(), m.Path.ToString()); err != nil {
		_ = os.Remove(tmp.ToString())
		return err
	}
	return nil
}
