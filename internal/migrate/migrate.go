// Package migrate detects the on-disk schema version of a toolpin home
// directory and walks it forward, one schema version at a time, to the
// version this build expects.
package migrate

import (
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/toolpin/toolpin/internal/binconfig"
	"github.com/toolpin/toolpin/internal/fs"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/packagemanager"
	"github.com/toolpin/toolpin/internal/shim"
	"github.com/toolpin/toolpin/internal/toolerr"
)

// State is the detected on-disk schema state, before migration runs.
type State int

const (
	// Empty means the home directory does not exist yet.
	Empty State = iota
	// Legacy means the home directory exists but carries no layout.vN
	// marker at all — a pre-schema installation.
	Legacy
	// Versioned means a layout.vN marker was found; SchemaVersion names N.
	Versioned
)

// Detection is the result of probing a home directory's schema state.
type Detection struct {
	State State
	// SchemaVersion is meaningful only when State == Versioned.
	SchemaVersion int
}

// Detect probes, newest-first, for each known schema marker file; its
// presence is the only authoritative signal of schema version.
func Detect(lo *layout.Layout) Detection {
	if !fs.PathExists(lo.Home().ToString()) {
		return Detection{State: Empty}
	}
	for v := layout.CurrentSchemaVersion; v >= 1; v-- {
		if fs.FileExists(lo.SchemaMarker(v).ToString()) {
			return Detection{State: Versioned, SchemaVersion: v}
		}
	}
	return Detection{State: Legacy}
}

// NeedsMigration reports whether Run has work to do for the given
// detection.
func NeedsMigration(d Detection) bool {
	if d.State == Empty || d.State == Legacy {
		return true
	}
	return d.SchemaVersion < layout.CurrentSchemaVersion
}

// step migrates a home directory from one schema version to the next.
// from is 0 for Legacy and Empty (both only ever migrate into V1).
type step struct {
	from int
	to   int
	run  func(logger hclog.Logger, lo *layout.Layout) error
}

var steps = []step{
	{from: 0, to: 1, run: bootstrapOrLegacyToV1},
	{from: 1, to: 2, run: v1ToV2},
	{from: 2, to: 3, run: v2ToV3},
	{from: 3, to: 4, run: v3ToV4},
}

// Run detects the current schema state and applies every migration
// step needed to reach layout.CurrentSchemaVersion, one version at a
// time.
func Run(logger hclog.Logger, lo *layout.Layout) error {
	d := Detect(lo)
	from := d.SchemaVersion
	if d.State == Empty || d.State == Legacy {
		from = 0
	}
	if !NeedsMigration(d) {
		logger.Debug("migrate: already at current schema", "version", from)
		return nil
	}
	logger.Info("migrate: starting", "from", from, "to", layout.CurrentSchemaVersion)
	for _, s := range steps {
		if s.from < from {
			continue
		}
		if s.to > layout.CurrentSchemaVersion {
			break
		}
		logger.Info("migrate: applying step", "from", s.from, "to", s.to)
		if err := s.run(logger, lo); err != nil {
			return toolerr.Withf(toolerr.Filesystem, err, "migrating layout v%d to v%d", s.from, s.to)
		}
		if err := finishStep(logger, lo, s.from, s.to); err != nil {
			return err
		}
	}
	return nil
}

// finishStep atomically creates the new schema marker, then deletes the
// old one, in that order.
func finishStep(logger hclog.Logger, lo *layout.Layout, from, to int) error {
	if err := os.WriteFile(lo.SchemaMarker(to).ToString(), []byte{}, 0o644); err != nil {
		return toolerr.Withf(toolerr.Filesystem, err, "writing layout.v%d marker", to)
	}
	if from == 0 {
		return nil
	}
	if err := os.Remove(lo.SchemaMarker(from).ToString()); err != nil && !os.IsNotExist(err) {
		logger.Warn("migrate: failed to remove old marker, ignoring", "version", from, "error", err)
	}
	return nil
}

// bootstrapOrLegacyToV1 creates every required directory for a fresh or
// pre-schema home. A Legacy home's existing bin/tools/cache content, if
// any, is left in place; only the directories V1 requires are ensured.
func bootstrapOrLegacyToV1(logger hclog.Logger, lo *layout.Layout) error {
	for _, dir := range lo.RequiredDirs() {
		if err := os.MkdirAll(dir.ToString(), fs.DirPermissions); err != nil {
			return err
		}
	}
	return nil
}

// v1ToV2 removes the bundled-npm directory level the V1 layout nested
// directly under each Node image (image/node/<version>/npm/): the
// fetcher now captures the bundled npm version into a sibling marker
// file (inventory/node/node-v<version>-npm) instead of leaving a whole
// copy of npm sitting inside the Node image tree.
func v1ToV2(logger hclog.Logger, lo *layout.Layout) error {
	nodeImages := lo.ImageDir("node")
	entries, err := os.ReadDir(nodeImages.ToString())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		legacy := nodeImages.ToString() + string(os.PathSeparator) + e.Name() + string(os.PathSeparator) + "npm"
		if fs.IsDirectory(legacy) {
			logger.Debug("migrate: removing bundled npm directory", "path", legacy)
			if err := os.RemoveAll(legacy); err != nil {
				return err
			}
		}
	}
	return nil
}

// v2ToV3 backfills the Manager field on every persisted PackageConfig:
// V2 installs predate the delegated-manager pipeline and always used
// npm directly, so any config with an empty Manager is stamped npm.
func v2ToV3(logger hclog.Logger, lo *layout.Layout) error {
	entries, err := os.ReadDir(lo.UserPackagesDir().ToString())
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
		name := trimJSONSuffix(e.Name())
		if name == "" {
			continue
		}
		cfg, ok, err := binconfig.LoadPackage(lo, name)
		if err != nil {
			return err
		}
		if !ok || cfg.Manager != "" {
			continue
		}
		cfg.Manager = packagemanager.Npm
		logger.Debug("migrate: stamping default manager", "package", name)
		if err := binconfig.SavePackage(lo, cfg); err != nil {
			return err
		}
	}
	return nil
}

// v3ToV4 regenerates every shim as a hardlink to the running
// executable, replacing any V3 shims that were plain symlinks (which
// silently break on a Windows host without Developer Mode / symlink
// privilege), and drops any shim file whose name no longer corresponds
// to a default tool or persisted BinConfig.
func v3ToV4(logger hclog.Logger, lo *layout.Layout) error {
	entries, err := os.ReadDir(lo.BinDir().ToString())
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !fs.IsSymlink(lo.BinDir().ToString()+string(os.PathSeparator)+e.Name()) {
			continue
		}
		if err := os.Remove(lo.BinDir().ToString() + string(os.PathSeparator) + e.Name()); err != nil {
			return err
		}
	}
	if err := shim.RegenerateAll(lo); err != nil {
		return err
	}
	return shim.RemoveOrphans(lo)
}

func trimJSONSuffix(name string) string {
	const suffix = ".json"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return ""
}
