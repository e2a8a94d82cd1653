package executor

import (
	"github.com/toolpin/toolpin/internal/fs"
	"github.com/toolpin/toolpin/internal/project"
	"github.com/toolpin/toolpin/internal/turbopath"
)

// findLocalBin checks for node_modules/.bin/<name> under a single
// project root.
func findLocalBin(projectRoot turbopath.AbsoluteSystemPath, name string) (string, bool) {
	candidate := binInDir(projectRoot, name)
	if fs.FileExists(candidate.ToString()) {
		return candidate.ToString(), true
	}
	return "", false
}

// findLocalBinInProject extends findLocalBin across the full extends
// chain, innermost-first, covering every workspace root the chain
// pulled in.
func findLocalBinInProject(proj *project.Project, name string) (string, bool) {
	if path, ok := findLocalBin(proj.ManifestFile.Dir(), name); ok {
		return path, true
	}
	for _, manifest := range proj.ExtendsChain {
		if path, ok := findLocalBin(manifest.Dir(), name); ok {
			return path, true
		}
	}
	return "", false
}

func binInDir(root turbopath.AbsoluteSystemPath, name string) turbopath.AbsoluteSystemPath {
	return root.Join(
		turbopath.RelativeSystemPathFromUpstream("node_modules"),
		turbopath.RelativeSystemPathFromUpstream(".bin"),
		turbopath.RelativeSystemPathFromUpstream(name),
	)
}
