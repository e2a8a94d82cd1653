package executor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/toolpin/toolpin/internal/binconfig"
	"github.com/toolpin/toolpin/internal/fetcher"
	"github.com/toolpin/toolpin/internal/fsutil"
	"github.com/toolpin/toolpin/internal/inventory"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/packageinstall"
	"github.com/toolpin/toolpin/internal/packagemanager"
	"github.com/toolpin/toolpin/internal/platform"
	"github.com/toolpin/toolpin/internal/project"
	"github.com/toolpin/toolpin/internal/resolve"
	"github.com/toolpin/toolpin/internal/session"
	"github.com/toolpin/toolpin/internal/toolerr"
	"github.com/toolpin/toolpin/internal/turbopath"
	"github.com/toolpin/toolpin/internal/version"
)

// Run is the full shim hot path: classify argv[0], resolve the active
// platform, ensure the needed distributions are present, and hand off
// to the real binary. On Unix a successful hand-off never returns (the
// process image is replaced); on Windows it calls os.Exit with the
// child's exit code. An intercepted global install/uninstall/link
// returns nil once the package pipeline finishes. A failed exec comes
// back as a *process.ChildExit; every other error is a dispatch failure.
func Run(ctx context.Context, s *session.Session, argv []string) error {
	if len(argv) == 0 {
		return toolerr.New(toolerr.InvalidArgs, "no arguments given to shim dispatcher", nil)
	}
	argv0Base := filepath.Base(argv[0])
	class, err := Classify(s, argv0Base)
	if err != nil {
		return err
	}

	if class.Kind != KindBypass && os.Getenv(session.RecursionEnvVar) == argv0Base {
		return toolerr.Withf(toolerr.Environment, nil, "recursive shim invocation detected for %q", argv0Base)
	}

	switch class.Kind {
	case KindBypass:
		return runBypass(s, argv0Base, argv[1:])
	case KindProjectLocalBinary:
		return runProjectLocal(ctx, s, class.Name, argv0Base, argv[1:])
	case KindNode:
		return runRuntimeTool(ctx, s, "node", argv0Base, argv[1:])
	case KindNpm:
		return runRuntimeTool(ctx, s, "npm", argv0Base, argv[1:])
	case KindNpx:
		return runRuntimeTool(ctx, s, "npx", argv0Base, argv[1:])
	case KindPnpm:
		return runRuntimeTool(ctx, s, "pnpm", argv0Base, argv[1:])
	case KindPnpx:
		return runRuntimeTool(ctx, s, "pnpx", argv0Base, argv[1:])
	case KindYarn:
		return runRuntimeTool(ctx, s, "yarn", argv0Base, argv[1:])
	case KindDefaultBinary:
		return runDefaultBinary(ctx, s, class.Name, argv[1:])
	default:
		return toolerr.Withf(toolerr.Unknown, nil, "unclassifiable invocation %q", argv0Base)
	}
}

// runBypass hands off to the first non-shim binary named name on PATH,
// ignoring every pinned platform.
func runBypass(s *session.Session, name string, args []string) error {
	path := stripShimDir(s.Layout, os.Getenv("PATH"))
	target, err := lookPathIn(name, path)
	if err != nil {
		return toolerr.Withf(toolerr.Environment, err, "no %q found on PATH outside the shim directory", name)
	}
	return execChild(s.Logger, target, append([]string{name}, args...), os.Environ())
}

// runDirect execs an already-resolved absolute path (a project-local
// node_modules/.bin binary) with the recursion guard set.
func runDirect(s *session.Session, path, name string, args []string) error {
	env := append(os.Environ(), session.RecursionEnvVar+"="+name)
	return execChild(s.Logger, path, append([]string{name}, args...), env)
}

// runProjectLocal executes a project-local binary, routing through
// `yarn <tool>` when the project's PnP/pnpm linker makes direct
// invocation of node_modules/.bin entries impossible.
func runProjectLocal(ctx context.Context, s *session.Session, path, name string, args []string) error {
	proj, err := s.Project()
	if err != nil {
		return err
	}
	if !project.NeedsYarnRun(proj) {
		return runDirect(s, path, name, args)
	}
	def, err := s.DefaultPlatform()
	if err != nil {
		return err
	}
	spec := platform.Resolve(proj.Platform, def, platform.CliPlatform{})
	if spec.Node == nil || spec.Yarn == nil {
		return runDirect(s, path, name, args)
	}
	if err := ensurePlatform(ctx, s, spec); err != nil {
		return err
	}
	yarnPath := runtimeBinDir(s.Layout, "yarn", spec).Join(turbopath.RelativeSystemPathFromUpstream("yarn"))
	env := append(os.Environ(),
		"PATH="+BuildPath(s.Layout, spec, os.Getenv("PATH")),
		session.RecursionEnvVar+"="+name,
	)
	return execChild(s.Logger, yarnPath.ToString(), append([]string{"yarn", name}, args...), env)
}

// runDefaultBinary dispatches a shim for an installed package's bin:
// its BinConfig names the exact version and platform it was installed
// under.
func runDefaultBinary(ctx context.Context, s *session.Session, name string, args []string) error {
	bin, ok, err := binconfig.LoadBin(s.Layout, name)
	if err != nil {
		return err
	}
	if !ok {
		return toolerr.Withf(toolerr.InvalidArgs, nil, "%q is not a recognized binary", name)
	}
	def, err := s.DefaultPlatform()
	if err != nil {
		return err
	}
	spec := bin.ResolvedPlatform(def)
	if err := ensurePlatform(ctx, s, spec); err != nil {
		return err
	}
	path := s.Layout.PackageImageDir(bin.Package, bin.Version.String()).
		Join(turbopath.RelativeSystemPathFromUpstream("bin"), turbopath.RelativeSystemPathFromUpstream(name))
	env := append(os.Environ(),
		"PATH="+BuildPath(s.Layout, spec, os.Getenv("PATH")),
		session.RecursionEnvVar+"="+name,
	)
	return execChild(s.Logger, path.ToString(), append([]string{name}, args...), env)
}

// runRuntimeTool handles node/npm/npx/pnpm/yarn invocations: resolve
// the active platform, ensure every pinned distribution is fetched,
// intercept global install/uninstall verbs, and otherwise exec the
// real binary.
func runRuntimeTool(ctx context.Context, s *session.Session, tool, name string, args []string) error {
	proj, err := s.Project()
	if err != nil {
		return err
	}
	def, err := s.DefaultPlatform()
	if err != nil {
		return err
	}
	var projPlatform *platform.PlatformSpec
	if proj != nil {
		projPlatform = proj.Platform
	}
	spec := platform.Resolve(projPlatform, def, platform.CliPlatform{})
	if spec.Node == nil {
		return toolerr.New(toolerr.Configuration, "no node version is pinned for this invocation", nil)
	}
	if err := ensurePlatform(ctx, s, spec); err != nil {
		return err
	}

	if slug, ok := managerSlugFor(tool); ok {
		if kind, names := Intercept(slug, args); kind != InterceptNone {
			return dispatchInstall(ctx, s, tool, slug, spec, kind, names)
		}
	}

	path := runtimeBinDir(s.Layout, tool, spec).Join(turbopath.RelativeSystemPathFromUpstream(tool))
	env := append(os.Environ(),
		"PATH="+BuildPath(s.Layout, spec, os.Getenv("PATH")),
		session.RecursionEnvVar+"="+name,
	)
	return execChild(s.Logger, path.ToString(), append([]string{name}, args...), env)
}

func managerSlugFor(tool string) (packagemanager.Slug, bool) {
	switch tool {
	case "npm":
		return packagemanager.Npm, true
	case "pnpm":
		return packagemanager.Pnpm, true
	case "yarn":
		return packagemanager.Yarn, true
	default:
		return "", false
	}
}

// dispatchInstall runs an intercepted global install/uninstall against
// the package-install pipeline rather than forwarding argv to the real
// manager binary. The advisory lock is acquired once for the whole
// batch; correctness never depends on holding it.
func dispatchInstall(ctx context.Context, s *session.Session, tool string, slug packagemanager.Slug, spec *platform.PlatformSpec, kind InterceptKind, names []string) error {
	lock, _ := fsutil.AcquireLock(s.Logger, s.Layout.LockFile())
	defer lock.Release(s.Logger)

	inst := packageinstall.New(s.Logger, s.Layout)
	binPath := runtimeBinDir(s.Layout, tool, spec).Join(turbopath.RelativeSystemPathFromUpstream(tool)).ToString()

	if kind == InterceptUninstall {
		for _, name := range names {
			if err := inst.Uninstall(name); err != nil {
				return err
			}
			s.Logger.Info("package uninstalled", "name", name)
		}
		return nil
	}

	if kind == InterceptLink && len(names) == 0 {
		// `npm link` with no names installs the current project's own
		// package globally, making its bins available everywhere.
		proj, err := s.Project()
		if err != nil {
			return err
		}
		if proj == nil {
			return toolerr.New(toolerr.Configuration, "npm link requires a project with a package.json", nil)
		}
		names = []string{proj.ManifestFile.Dir().ToString()}
	}

	for _, spec0 := range names {
		if _, err := inst.Install(ctx, packageinstall.Request{
			Spec:     spec0,
			Manager:  slug,
			Platform: spec,
			BinPath:  binPath,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ensurePlatform fetches every distribution spec pins that isn't
// already unpacked.
func ensurePlatform(ctx context.Context, s *session.Session, spec *platform.PlatformSpec) error {
	hooks, err := s.Hooks()
	if err != nil {
		return err
	}
	r := resolve.New(s.Logger, s.Layout, hooks)
	f := fetcher.New(s.Logger, s.Layout)

	if spec.Node != nil {
		if err := ensureNode(ctx, s, r, f, spec.Node.Value); err != nil {
			return err
		}
	}
	if spec.Npm != nil {
		if err := ensureNpmLike(ctx, s, r, f, spec, "npm", spec.Npm.Value); err != nil {
			return err
		}
	}
	if spec.Pnpm != nil {
		if err := ensureNpmLike(ctx, s, r, f, spec, "pnpm", spec.Pnpm.Value); err != nil {
			return err
		}
	}
	if spec.Yarn != nil {
		if err := ensureYarn(ctx, s, r, f, spec, spec.Yarn.Value); err != nil {
			return err
		}
	}
	return nil
}

func ensureNode(ctx context.Context, s *session.Session, r *resolve.Resolver, f *fetcher.Fetcher, v version.Version) error {
	exact, req, err := r.Node(ctx, v)
	if err != nil {
		return err
	}
	if inventory.Has(s.Layout, "node", exact) {
		return nil
	}
	return f.Fetch(ctx, req)
}

// npmCliPath resolves the npm binary to shell `npm view` out to while
// resolving npm/pnpm/yarn's own versions: Node's bundled npm, since a
// separately-pinned npm or pnpm/yarn can't yet exist at this point.
func npmCliPath(lo *layout.Layout, spec *platform.PlatformSpec) string {
	bundled := &platform.PlatformSpec{Node: spec.Node}
	return npmBinDir(lo, bundled).Join(turbopath.RelativeSystemPathFromUpstream("npm")).ToString()
}

func ensureNpmLike(ctx context.Context, s *session.Session, r *resolve.Resolver, f *fetcher.Fetcher, spec *platform.PlatformSpec, tool string, v version.Version) error {
	exact, req, err := r.NpmLike(ctx, tool, npmCliPath(s.Layout, spec), v)
	if err != nil {
		return err
	}
	if inventory.Has(s.Layout, tool, exact) {
		return nil
	}
	return f.Fetch(ctx, req)
}

func ensureYarn(ctx context.Context, s *session.Session, r *resolve.Resolver, f *fetcher.Fetcher, spec *platform.PlatformSpec, v version.Version) error {
	exact, req, err := r.Yarn(ctx, npmCliPath(s.Layout, spec), v)
	if err != nil {
		return err
	}
	if inventory.Has(s.Layout, "yarn", exact) {
		return nil
	}
	return f.Fetch(ctx, req)
}

// runtimeBinDir resolves a runtime tool's own bin directory from the
// resolved platform, matching executor.npmBinDir's node-bundled-npm
// fallback (path.go).
func runtimeBinDir(lo *layout.Layout, tool string, spec *platform.PlatformSpec) turbopath.AbsoluteSystemPath {
	if spec == nil {
		return ""
	}
	switch tool {
	case "node":
		if spec.Node != nil {
			return lo.ImageVersionDir("node", spec.Node.Value.String()).Join(turbopath.RelativeSystemPathFromUpstream("bin"))
		}
	case "npm", "npx":
		return npmBinDir(lo, spec)
	case "pnpm", "pnpx":
		if spec.Pnpm != nil {
			return lo.ImageVersionDir("pnpm", spec.Pnpm.Value.String()).Join(turbopath.RelativeSystemPathFromUpstream("bin"))
		}
	case "yarn":
		if spec.Yarn != nil {
			return lo.ImageVersionDir("yarn", spec.Yarn.Value.String()).Join(turbopath.RelativeSystemPathFromUpstream("bin"))
		}
	}
	return ""
}
