package executor

import (
	"os"
	"strings"

	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/platform"
	"github.com/toolpin/toolpin/internal/turbopath"
	"github.com/toolpin/toolpin/internal/version"
)

// BuildPath composes the child PATH for a runtime-tool invocation:
// prefixed with the image bin directories of node, npm (or its
// default-bundled location), pnpm, yarn, in that order, with the shim
// directory removed.
func BuildPath(lo *layout.Layout, spec *platform.PlatformSpec, currentPath string) string {
	var dirs []string
	if spec.Node != nil {
		dirs = append(dirs, nodeBinDir(lo, spec.Node.Value).ToString())
	}
	dirs = append(dirs, npmBinDir(lo, spec).ToString())
	if spec.Pnpm != nil {
		dirs = append(dirs, lo.ImageVersionDir("pnpm", spec.Pnpm.Value.String()).
			Join(turbopath.RelativeSystemPathFromUpstream("bin")).ToString())
	}
	if spec.Yarn != nil {
		dirs = append(dirs, lo.ImageVersionDir("yarn", spec.Yarn.Value.String()).
			Join(turbopath.RelativeSystemPathFromUpstream("bin")).ToString())
	}
	return strings.Join(dirs, string(os.PathListSeparator)) +
		string(os.PathListSeparator) + stripShimDir(lo, currentPath)
}

func nodeBinDir(lo *layout.Layout, v version.Version) turbopath.AbsoluteSystemPath {
	return lo.ImageVersionDir("node", v.String()).Join(turbopath.RelativeSystemPathFromUpstream("bin"))
}

// npmBinDir resolves npm's effective bin directory: its own pinned
// image if npm is independently pinned, otherwise the bundled location
// inside the node image.
func npmBinDir(lo *layout.Layout, spec *platform.PlatformSpec) turbopath.AbsoluteSystemPath {
	if spec.Npm != nil {
		return lo.ImageVersionDir("npm", spec.Npm.Value.String()).Join(turbopath.RelativeSystemPathFromUpstream("bin"))
	}
	if spec.Node != nil {
		return lo.ImageVersionDir("node", spec.Node.Value.String()).
			Join(turbopath.RelativeSystemPathFromUpstream("lib"), turbopath.RelativeSystemPathFromUpstream("node_modules"),
				turbopath.RelativeSystemPathFromUpstream("npm"), turbopath.RelativeSystemPathFromUpstream("bin"))
	}
	return ""
}

// stripShimDir removes the shim bin directory from an inherited PATH so
// a spawned child can never recursively re-enter a shim.
func stripShimDir(lo *layout.Layout, currentPath string) string {
	shimDir := lo.BinDir().ToString()
	parts := strings.Split(currentPath, string(os.PathListSeparator))
	var kept []string
	for _, p := range parts {
		if p != shimDir {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, string(os.PathListSeparator))
}
