package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/toolpin/toolpin/internal/platform"
	"github.com/toolpin/toolpin/internal/turbopath"
)

// Project is the fully resolved project model for the directory a shim
// or CLI invocation runs in.
type Project struct {
	// ManifestFile is the nearest package.json.
	ManifestFile turbopath.AbsoluteSystemPath
	// ExtendsChain is every additional workspace manifest path this
	// project's toolpin.extends chain pulled in, each canonicalized, in
	// innermost-first order.
	ExtendsChain []turbopath.AbsoluteSystemPath
	// Dependencies is the layered dependency map: the nearest manifest's
	// entries win on name collision over any extended manifest's.
	Dependencies map[string]string
	// Platform is the merged PlatformSpec, or nil if no manifest in the
	// chain pinned one.
	Platform *platform.PlatformSpec
}

// CycleError reports every path in an extends cycle.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("toolpin.extends cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// FindNearestManifest walks upward from dir until it finds a package.json
// that is not inside a node_modules directory.
func FindNearestManifest(dir turbopath.AbsoluteSystemPath) (turbopath.AbsoluteSystemPath, error) {
	cursor := dir.ToString()
	for {
		candidate := filepath.Join(cursor, "package.json")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && !insideNodeModules(candidate) {
			return turbopath.AbsoluteSystemPathFromUpstream(candidate), nil
		}
		parent := filepath.Dir(cursor)
		if parent == cursor {
			return "", fmt.Errorf("no package.json found above %s", dir.ToString())
		}
		cursor = parent
	}
}

func insideNodeModules(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "node_modules" {
			return true
		}
	}
	return false
}

// Load builds the full Project model for dir: finds the nearest manifest,
// follows its extends chain (if any) with cycle detection, and merges
// dependency maps and platform specs across the chain.
func Load(dir turbopath.AbsoluteSystemPath) (*Project, error) {
	manifestPath, err := FindNearestManifest(dir)
	if err != nil {
		return nil, err
	}
	manifest, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	proj := &Project{
		ManifestFile: manifestPath,
		Dependencies: map[string]string{},
	}
	for k, v := range manifest.Dependencies {
		proj.Dependencies[k] = v
	}
	proj.Platform, err = manifest.PlatformSpec()
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{canonical(manifestPath): true}
	cycle := []string{canonical(manifestPath)}
	current := manifest
	for current.Toolpin != nil && current.Toolpin.Extends != "" {
		next, err := resolveExtends(current, manifestPath)
		if err != nil {
			return nil, err
		}
		key := canonical(next)
		if visited[key] {
			return nil, &CycleError{Cycle: append(cycle, key)}
		}
		visited[key] = true
		cycle = append(cycle, key)

		extManifest, err := ReadManifest(next)
		if err != nil {
			return nil, err
		}
		proj.ExtendsChain = append(proj.ExtendsChain, next)
		for k, v := range extManifest.Dependencies {
			if _, exists := proj.Dependencies[k]; !exists {
				proj.Dependencies[k] = v
			}
		}
		extPlatform, err := extManifest.PlatformSpec()
		if err != nil {
			return nil, err
		}
		proj.Platform = platform.MergeExtends(proj.Platform, extPlatform)

		current = extManifest
		manifestPath = next
	}

	return proj, nil
}

func resolveExtends(m *Manifest, from turbopath.AbsoluteSystemPath) (turbopath.AbsoluteSystemPath, error) {
	raw := m.Toolpin.Extends
	var resolved string
	if filepath.IsAbs(raw) {
		resolved = raw
	} else {
		resolved = filepath.Join(from.Dir().ToString(), raw)
	}
	// The upstream implementation canonicalizes then opens; a target that
	// is neither a file nor inside the repo surfaces as a plain
	// file-not-found error here too (see DESIGN.md Open Question #2).
	real, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		return "", fmt.Errorf("resolving toolpin.extends %q: %w", raw, err)
	}
	return turbopath.AbsoluteSystemPathFromUpstream(real), nil
}

func canonical(p turbopath.AbsoluteSystemPath) string {
	return p.ToString()
}

// NeedsYarnRun reports whether plain binary invocation will fail for this
// project because of a PnP/pnpm linker: the project
// pins yarn and the workspace root contains one of the PnP marker files.
func NeedsYarnRun(proj *Project) bool {
	if proj == nil || proj.Platform == nil || proj.Platform.Yarn == nil {
		return false
	}
	root := proj.ManifestFile.Dir()
	for _, marker := range []string{".yarnrc.yml", ".pnp.cjs", ".pnp.js"} {
		if _, err := os.Stat(root.Join(turbopath.RelativeSystemPathFromUpstream(marker)).ToString()); err == nil {
			return true
		}
	}
	return false
}
