// Package layout derives every on-disk path the system ever reads or
// writes from a single home directory, and owns the schema-version marker
// file that identifies which generation of that layout is in effect.
package layout

import (
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/turbopath"
)

// CurrentSchemaVersion is the layout schema this build writes and expects.
// Bumping it requires a new migration in internal/migrate.
const CurrentSchemaVersion = 4

// HomeEnvVar is the environment variable used to override the default home.
const HomeEnvVar = "TOOLPIN_HOME"

// Layout derives every path under a single home directory. All derivation
// is a pure function of home + name + version; no path outside home is
// ever produced.
type Layout struct {
	home turbopath.AbsoluteSystemPath
}

// New constructs a Layout rooted at home.
func New(home turbopath.AbsoluteSystemPath) *Layout {
	return &Layout{home: home}
}

// DefaultHome resolves the home directory from TOOLPIN_HOME, falling
// back to the OS-appropriate data directory.
func DefaultHome() turbopath.AbsoluteSystemPath {
	if env, err := config.Env(); err == nil && env.Home != "" {
		return turbopath.AbsoluteSystemPathFromUpstream(env.Home)
	}
	return turbopath.AbsoluteSystemPathFromUpstream(xdg.DataHome).
		Join(turbopath.RelativeSystemPathFromUpstream("toolpin"))
}

// Home returns the layout's root directory.
func (l *Layout) Home() turbopath.AbsoluteSystemPath { return l.home }

func (l *Layout) rel(parts ...string) turbopath.AbsoluteSystemPath {
	p := l.home
	for _, part := range parts {
		p = p.Join(turbopath.RelativeSystemPathFromUpstream(part))
	}
	return p
}

// BinDir is the shim directory.
func (l *Layout) BinDir() turbopath.AbsoluteSystemPath { return l.rel("bin") }

// NodeCacheDir holds the Node distribution index cache and its expiry stamp.
func (l *Layout) NodeCacheDir() turbopath.AbsoluteSystemPath { return l.rel("cache", "node") }

// NodeIndexFile is the cached Node distribution index JSON.
func (l *Layout) NodeIndexFile() turbopath.AbsoluteSystemPath {
	return l.rel("cache", "node", "index.json")
}

// NodeIndexExpiryFile is the cache-expiry stamp for the Node index.
func (l *Layout) NodeIndexExpiryFile() turbopath.AbsoluteSystemPath {
	return l.rel("cache", "node", "index.json.expires")
}

// LogDir holds rotated error logs.
func (l *Layout) LogDir() turbopath.AbsoluteSystemPath { return l.rel("log") }

// TmpDir holds staging directories, scrubbed between runs.
func (l *Layout) TmpDir() turbopath.AbsoluteSystemPath { return l.rel("tmp") }

// HooksFile is the user hook configuration file.
func (l *Layout) HooksFile() turbopath.AbsoluteSystemPath { return l.rel("hooks.json") }

// HooksYamlFile is the YAML alternate of HooksFile, consulted only when
// hooks.json is absent.
func (l *Layout) HooksYamlFile() turbopath.AbsoluteSystemPath { return l.rel("hooks.yaml") }

// LockFile is the cross-process advisory lock.
func (l *Layout) LockFile() turbopath.AbsoluteSystemPath { return l.rel("toolpin.lock") }

// scopedSegments splits a possibly-scoped package name ("@scope/name" or
// "name") into the one-or-two directory segments it occupies on disk.
func scopedSegments(name string) []string {
	if strings.HasPrefix(name, "@") {
		if idx := strings.Index(name, "/"); idx >= 0 {
			return []string{name[:idx], name[idx+1:]}
		}
	}
	return []string{name}
}

// InventoryDir is the root of the cached-archive tree for a tool kind.
func (l *Layout) InventoryDir(tool string) turbopath.AbsoluteSystemPath {
	return l.rel("tools", "inventory", tool)
}

// InventoryArchive returns the cached-archive path for a non-package tool
// at an exact version, with the given file extension (".tar.gz", ".zip", …).
func (l *Layout) InventoryArchive(tool, version, ext string) turbopath.AbsoluteSystemPath {
	return l.InventoryDir(tool).Join(turbopath.RelativeSystemPathFromUpstream(
		tool + "-v" + version + ext))
}

// NodeNpmVersionFile stores the npm version bundled with a given Node
// release.
func (l *Layout) NodeNpmVersionFile(nodeVersion string) turbopath.AbsoluteSystemPath {
	return l.InventoryDir("node").Join(turbopath.RelativeSystemPathFromUpstream(
		"node-v" + nodeVersion + "-npm"))
}

// PackageInventoryArchive returns the cached-archive path for a 3rd-party
// global package, honoring @scope/name two-level storage.
func (l *Layout) PackageInventoryArchive(name, version, ext string) turbopath.AbsoluteSystemPath {
	segs := scopedSegments(name)
	parts := append([]string{"tools", "inventory", "packages"}, segs...)
	parts = append(parts, segs[len(segs)-1]+"-"+version+ext)
	return l.rel(parts...)
}

// ImageDir is the root of the unpacked-installation tree for a tool kind.
func (l *Layout) ImageDir(tool string) turbopath.AbsoluteSystemPath {
	return l.rel("tools", "image", tool)
}

// ImageVersionDir is the unpacked installation directory for one exact
// version of a non-package tool (node/npm/pnpm/yarn).
func (l *Layout) ImageVersionDir(tool, version string) turbopath.AbsoluteSystemPath {
	return l.ImageDir(tool).Join(turbopath.RelativeSystemPathFromUpstream(version))
}

// PackageImageDir is the unpacked installation directory for one exact
// version of a 3rd-party global package, honoring scoped names.
func (l *Layout) PackageImageDir(name, version string) turbopath.AbsoluteSystemPath {
	parts := append([]string{"tools", "image", "packages"}, scopedSegments(name)...)
	parts = append(parts, version)
	return l.rel(parts...)
}

// UserBinConfigFile is the per-binary BinConfig path.
func (l *Layout) UserBinConfigFile(name string) turbopath.AbsoluteSystemPath {
	return l.rel("tools", "user", "bins", name+".json")
}

// UserBinsDir lists every persisted BinConfig.
func (l *Layout) UserBinsDir() turbopath.AbsoluteSystemPath {
	return l.rel("tools", "user", "bins")
}

// UserPackageConfigFile is the per-package PackageConfig path.
func (l *Layout) UserPackageConfigFile(name string) turbopath.AbsoluteSystemPath {
	return l.rel("tools", "user", "packages", name+".json")
}

// UserPackagesDir lists every persisted PackageConfig.
func (l *Layout) UserPackagesDir() turbopath.AbsoluteSystemPath {
	return l.rel("tools", "user", "packages")
}

// UserPlatformFile is the default PlatformSpec file.
func (l *Layout) UserPlatformFile() turbopath.AbsoluteSystemPath {
	return l.rel("tools", "user", "platform.json")
}

// SchemaMarker returns the marker path for a given schema version.
func (l *Layout) SchemaMarker(schemaVersion int) turbopath.AbsoluteSystemPath {
	return l.rel("layout.v" + strconv.Itoa(schemaVersion))
}

// RequiredDirs enumerates every directory that must exist for a freshly
// created or migrated home at the current schema version.
func (l *Layout) RequiredDirs() []turbopath.AbsoluteSystemPath {
	return []turbopath.AbsoluteSystemPath{
		l.BinDir(),
		l.NodeCacheDir(),
		l.LogDir(),
		l.TmpDir(),
		l.InventoryDir("node"),
		l.InventoryDir("npm"),
		l.InventoryDir("pnpm"),
		l.InventoryDir("yarn"),
		l.InventoryDir("packages"),
		l.ImageDir("node"),
		l.ImageDir("npm"),
		l.ImageDir("pnpm"),
		l.ImageDir("yarn"),
		l.ImageDir("packages"),
		l.UserBinsDir(),
		l.UserPackagesDir(),
	}
}
