// Package packageinstall drives a sandboxed global install of an
// arbitrary npm package under a delegated package manager: run the
// manager into a staging prefix, scan the result for the installed
// name/version/bins, promote into the image tree, and persist
// PackageConfig/BinConfig records.
package packageinstall

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/toolpin/toolpin/internal/binconfig"
	"github.com/toolpin/toolpin/internal/fs"
	"github.com/toolpin/toolpin/internal/fsutil"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/packagemanager"
	"github.com/toolpin/toolpin/internal/platform"
	"github.com/toolpin/toolpin/internal/process"
	"github.com/toolpin/toolpin/internal/shim"
	"github.com/toolpin/toolpin/internal/toolerr"
	"github.com/toolpin/toolpin/internal/turbopath"
	"github.com/toolpin/toolpin/internal/version"
)

// Request describes one package to install globally.
type Request struct {
	// Spec is the raw "<name>" or "<name>@<range>" the user requested.
	Spec string
	// Manager picks which delegated manager performs the install.
	Manager packagemanager.Slug
	// Platform is the resolved platform this package is installed at,
	// already checked out by the caller.
	Platform *platform.PlatformSpec
	// BinPath is the absolute path of the resolved manager's own
	// executable (e.g. the npm binary inside the checked-out image),
	// the command Install spawns.
	BinPath string
}

// Installer runs the install pipeline end to end.
type Installer struct {
	Logger hclog.Logger
	Layout *layout.Layout
}

// New constructs an Installer.
func New(logger hclog.Logger, lo *layout.Layout) *Installer {
	return &Installer{Logger: logger, Layout: lo}
}

// Result is what Install produced, used by callers reporting to the user.
type Result struct {
	Name    string
	Version string
	Bins    []string
}

// Install runs the full pipeline for one package.
func (inst *Installer) Install(ctx context.Context, req Request) (*Result, error) {
	mgr, ok := packagemanager.Get(req.Manager)
	if !ok {
		return nil, toolerr.Withf(toolerr.InvalidArgs, nil, "unknown package manager %q", req.Manager)
	}

	stagingDir, err := fsutil.NewStagingDir(inst.Layout.TmpDir())
	if err != nil {
		return nil, toolerr.Withf(toolerr.Filesystem, err, "creating staging prefix")
	}
	defer fsutil.Discard(stagingDir)
	stagingBinDir := stagingDir.Join(turbopath.RelativeSystemPathFromUpstream("bin"))
	if err := os.MkdirAll(stagingBinDir.ToString(), fs.DirPermissions); err != nil {
		return nil, toolerr.Withf(toolerr.Filesystem, err, "creating staging bin dir")
	}

	if err := inst.runManager(ctx, mgr, req, stagingDir, stagingBinDir); err != nil {
		return nil, err
	}

	name, pkgDir, err := scanInstalledPackage(stagingDir, req.Spec)
	if err != nil {
		return nil, err
	}

	pkgJSON, err := readPackageJSON(pkgDir)
	if err != nil {
		return nil, err
	}
	bins := extractBinNames(pkgJSON, name)

	if err := checkBinConflicts(inst.Layout, name, bins); err != nil {
		return nil, err
	}

	exact, err := version.ParseExact(pkgJSON.Version)
	if err != nil {
		return nil, toolerr.Withf(toolerr.Configuration, err, "parsing installed version of %s", name)
	}

	image := inst.Layout.PackageImageDir(name, pkgJSON.Version)
	if err := fsutil.Promote(inst.Logger, stagingDir, image); err != nil {
		return nil, toolerr.Withf(toolerr.Filesystem, err, "promoting %s into image tree", name)
	}

	pkgCfg := binconfig.NewPackageConfig(name, exact, req.Platform, bins, req.Manager)
	if err := binconfig.SavePackage(inst.Layout, pkgCfg); err != nil {
		return nil, toolerr.Withf(toolerr.Filesystem, err, "writing package config for %s", name)
	}
	for _, bin := range bins {
		binCfg := binconfig.NewBinConfig(bin, name, exact, req.Platform, req.Manager)
		if err := binconfig.SaveBin(inst.Layout, binCfg); err != nil {
			return nil, toolerr.Withf(toolerr.Filesystem, err, "writing bin config for %s", bin)
		}
	}

	if err := shim.EnsureMany(inst.Layout, bins); err != nil {
		return nil, toolerr.Withf(toolerr.Filesystem, err, "generating shims for %s", name)
	}

	inst.Logger.Info("package installed", "name", name, "version", pkgJSON.Version, "bins", bins)
	return &Result{Name: name, Version: pkgJSON.Version, Bins: bins}, nil
}

// Uninstall removes a package's config, bin configs, shims, and image
// directory.
func (inst *Installer) Uninstall(name string) error {
	cfg, ok, err := binconfig.LoadPackage(inst.Layout, name)
	if err != nil {
		return err
	}
	if !ok {
		return toolerr.Withf(toolerr.InvalidArgs, nil, "package %q is not installed", name)
	}
	for _, bin := range cfg.Bins {
		if err := shim.Remove(inst.Layout, bin); err != nil {
			inst.Logger.Warn("failed removing shim", "bin", bin, "error", err)
		}
		if err := binconfig.DeleteBin(inst.Layout, bin); err != nil {
			inst.Logger.Warn("failed removing bin config", "bin", bin, "error", err)
		}
	}
	if err := binconfig.DeletePackage(inst.Layout, name); err != nil {
		return err
	}
	image := inst.Layout.PackageImageDir(name, cfg.Version.String())
	return os.RemoveAll(image.ToString())
}

// runManager spawns the package manager with the env/argv/PATH shape
// for a sandboxed global install, waiting on it via internal/process
// rather than exec'ing into it.
func (inst *Installer) runManager(ctx context.Context, mgr *packagemanager.Manager, req Request, stagingDir, stagingBinDir turbopath.AbsoluteSystemPath) error {
	argv := mgr.GlobalInstallArgs([]string{req.Spec})
	if mgr.GlobalDirFlags != nil {
		argv = append(argv, mgr.GlobalDirFlags(stagingDir.ToString(), stagingBinDir.ToString())...)
	}
	cmd := exec.CommandContext(ctx, req.BinPath, argv...)
	cmd.Env = os.Environ()
	if mgr.GlobalInstallEnv != nil {
		cmd.Env = append(cmd.Env, mgr.GlobalInstallEnv(stagingDir.ToString(), stagingBinDir.ToString())...)
	}
	if mgr.ExtraPath != nil {
		extra := mgr.ExtraPath(stagingBinDir.ToString())
		cmd.Env = append(cmd.Env, "PATH="+strings.Join(extra, string(os.PathListSeparator))+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	manager := process.NewManager(inst.Logger)
	defer manager.Close()
	if err := manager.Exec(cmd); err != nil {
		return toolerr.Withf(toolerr.Environment, err, "%s install of %s failed", mgr.Command, req.Spec)
	}
	return nil
}

// scanInstalledPackage finds the installed package's root directory
// under the staging tree: each manager lays out its staging prefix
// differently, so this enumerates subdirectories, descending one extra
// level when the first entry starts with "@".
func scanInstalledPackage(stagingDir turbopath.AbsoluteSystemPath, spec string) (string, turbopath.AbsoluteSystemPath, error) {
	name := packageNameFromSpec(spec)
	if !strings.ContainsAny(name, "/\\") || strings.HasPrefix(name, "@") {
		for _, candidate := range packageSearchRoots(stagingDir) {
			pkgDir := candidate.Join(turbopath.RelativeSystemPathFromUpstream(name))
			if fs.IsDirectory(pkgDir.ToString()) {
				return name, pkgDir, nil
			}
		}
		return "", "", toolerr.Withf(toolerr.Environment, nil, "could not locate installed package %q under staging prefix", name)
	}
	// The spec was a directory (npm link of the current project), so the
	// installed name isn't derivable from it; take the one package the
	// install produced.
	for _, candidate := range packageSearchRoots(stagingDir) {
		entries, err := os.ReadDir(candidate.ToString())
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || e.Name() == ".bin" {
				continue
			}
			if strings.HasPrefix(e.Name(), "@") {
				scoped := candidate.Join(turbopath.RelativeSystemPathFromUpstream(e.Name()))
				subEntries, err := os.ReadDir(scoped.ToString())
				if err != nil {
					continue
				}
				for _, sub := range subEntries {
					if sub.IsDir() {
						full := e.Name() + "/" + sub.Name()
						return full, scoped.Join(turbopath.RelativeSystemPathFromUpstream(sub.Name())), nil
					}
				}
				continue
			}
			return e.Name(), candidate.Join(turbopath.RelativeSystemPathFromUpstream(e.Name())), nil
		}
	}
	return "", "", toolerr.Withf(toolerr.Environment, nil, "could not locate installed package for %q under staging prefix", spec)
}

// packageSearchRoots enumerates the node_modules-shaped directories a
// global install might have populated across npm/yarn/pnpm/bun's
// differing staging layouts.
func packageSearchRoots(stagingDir turbopath.AbsoluteSystemPath) []turbopath.AbsoluteSystemPath {
	var roots []turbopath.AbsoluteSystemPath
	for _, rel := range []string{
		"lib/node_modules",
		"node_modules",
		"lib",
		"install/global/node_modules",
		"5/node_modules",
	} {
		roots = append(roots, stagingDir.Join(turbopath.RelativeSystemPathFromUpstream(rel)))
	}
	return roots
}

func packageNameFromSpec(spec string) string {
	if strings.HasPrefix(spec, "@") {
		idx := strings.Index(spec[1:], "@")
		if idx < 0 {
			return spec
		}
		return spec[:idx+1]
	}
	if idx := strings.Index(spec, "@"); idx > 0 {
		return spec[:idx]
	}
	return spec
}

// packageJSON is the subset of an installed package's manifest this
// pipeline needs.
type packageJSON struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Bin     interface{} `json:"bin"`
}

func readPackageJSON(pkgDir turbopath.AbsoluteSystemPath) (*packageJSON, error) {
	path := pkgDir.Join(turbopath.RelativeSystemPathFromUpstream("package.json"))
	data, err := os.ReadFile(path.ToString())
	if err != nil {
		return nil, toolerr.Withf(toolerr.Filesystem, err, "reading installed package.json")
	}
	pkg := &packageJSON{}
	if err := json.Unmarshal(data, pkg); err != nil {
		return nil, toolerr.Withf(toolerr.Configuration, err, "parsing installed package.json")
	}
	return pkg, nil
}

// extractBinNames handles both shapes the `bin` field can take: a map
// of name to path, or a single string defaulting to the package name
// with any @scope/ prefix stripped. Names containing a path separator
// are silently dropped.
func extractBinNames(pkg *packageJSON, fallbackName string) []string {
	var names []string
	switch bin := pkg.Bin.(type) {
	case map[string]interface{}:
		for name := range bin {
			names = append(names, name)
		}
	case string:
		names = append(names, unscopedName(fallbackName))
	}
	var filtered []string
	for _, n := range names {
		// Bin names come from JSON, so both separators are checked
		// regardless of host OS.
		if strings.ContainsAny(n, "/\\") {
			continue
		}
		filtered = append(filtered, n)
	}
	return filtered
}

func unscopedName(name string) string {
	if idx := strings.Index(name, "/"); idx >= 0 && strings.HasPrefix(name, "@") {
		return name[idx+1:]
	}
	return name
}

// checkBinConflicts aborts the install if any of the new bins already
// has a BinConfig naming a different package.
func checkBinConflicts(lo *layout.Layout, name string, bins []string) error {
	for _, bin := range bins {
		existing, ok, err := binconfig.LoadBin(lo, bin)
		if err != nil {
			return err
		}
		if ok && existing.Package != name {
			return toolerr.Withf(toolerr.InvalidArgs, nil,
				"bin %q is already owned by package %q, refusing to overwrite with %q", bin, existing.Package, name)
		}
	}
	return nil
}
