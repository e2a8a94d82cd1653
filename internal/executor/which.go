package executor

import (
	"context"
	"os"

	"github.com/toolpin/toolpin/internal/binconfig"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/platform"
	"github.com/toolpin/toolpin/internal/session"
	"github.com/toolpin/toolpin/internal/toolerr"
	"github.com/toolpin/toolpin/internal/turbopath"
)

// Which resolves the absolute path a shim invocation of name would
// exec, without executing it, following the same classification and
// platform-resolution path as Run. Missing distributions are fetched,
// so the returned path always exists on success.
func Which(ctx context.Context, s *session.Session, name string) (string, error) {
	class, err := Classify(s, name)
	if err != nil {
		return "", err
	}
	switch class.Kind {
	case KindBypass:
		path := stripShimDir(s.Layout, os.Getenv("PATH"))
		return lookPathIn(name, path)
	case KindProjectLocalBinary:
		return class.Name, nil
	case KindNode, KindNpm, KindNpx, KindPnpm, KindPnpx, KindYarn:
		return whichRuntimeTool(ctx, s, name)
	case KindDefaultBinary:
		return whichDefaultBinary(ctx, s, class.Name)
	default:
		return "", toolerr.Withf(toolerr.Unknown, nil, "unclassifiable invocation %q", name)
	}
}

func whichRuntimeTool(ctx context.Context, s *session.Session, tool string) (string, error) {
	proj, err := s.Project()
	if err != nil {
		return "", err
	}
	def, err := s.DefaultPlatform()
	if err != nil {
		return "", err
	}
	var projPlatform *platform.PlatformSpec
	if proj != nil {
		projPlatform = proj.Platform
	}
	spec := platform.Resolve(projPlatform, def, platform.CliPlatform{})
	if spec.Node == nil {
		return "", toolerr.New(toolerr.Configuration, "no node version is pinned for this invocation", nil)
	}
	if err := ensurePlatform(ctx, s, spec); err != nil {
		return "", err
	}
	return runtimeBinDir(s.Layout, tool, spec).Join(turbopath.RelativeSystemPathFromUpstream(tool)).ToString(), nil
}

func whichDefaultBinary(ctx context.Context, s *session.Session, name string) (string, error) {
	bin, ok, err := binconfig.LoadBin(s.Layout, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", toolerr.Withf(toolerr.InvalidArgs, nil, "%q is not a recognized binary", name)
	}
	def, err := s.DefaultPlatform()
	if err != nil {
		return "", err
	}
	spec := bin.ResolvedPlatform(def)
	if err := ensurePlatform(ctx, s, spec); err != nil {
		return "", err
	}
	return s.Layout.PackageImageDir(bin.Package, bin.Version.String()).
		Join(turbopath.RelativeSystemPathFromUpstream("bin"), turbopath.RelativeSystemPathFromUpstream(name)).ToString(), nil
}

// EnsurePlatform fetches every distribution spec pins that isn't
// already unpacked, the same check-out step Run performs before exec.
func EnsurePlatform(ctx context.Context, s *session.Session, spec *platform.PlatformSpec) error {
	return ensurePlatform(ctx, s, spec)
}

// RuntimeBinDir resolves a runtime tool's bin directory from a resolved
// platform, for callers outside the exec path (install, which).
func RuntimeBinDir(lo *layout.Layout, tool string, spec *platform.PlatformSpec) turbopath.AbsoluteSystemPath {
	return runtimeBinDir(lo, tool, spec)
}
