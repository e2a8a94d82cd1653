// Package resolve turns a requested version.Version for a tool or
// arbitrary package into an exact version string plus a fetcher.Request
// ready to hand to internal/fetcher, consulting hook overrides first and
// falling back to each tool's default public endpoint.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/hashicorp/go-hclog"
	hversion "github.com/hashicorp/go-version"
	"github.com/toolpin/toolpin/internal/fetcher"
	"github.com/toolpin/toolpin/internal/hook"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/registry"
	"github.com/toolpin/toolpin/internal/toolerr"
	"github.com/toolpin/toolpin/internal/version"
)

// Resolver bridges version requests against the registry clients and
// hook overrides to produce fetcher.Requests.
type Resolver struct {
	Logger hclog.Logger
	Layout *layout.Layout
	Hooks  *hook.Config
}

// New constructs a Resolver. hooks may be nil, equivalent to an
// all-absent hook configuration.
func New(logger hclog.Logger, lo *layout.Layout, hooks *hook.Config) *Resolver {
	if hooks == nil {
		hooks = &hook.Config{}
	}
	return &Resolver{Logger: logger, Layout: lo, Hooks: hooks}
}

// osArchExt returns the platform tokens used to build default Node/Yarn
// archive URLs and the extension of the format that platform ships.
func osArchExt() (osName, arch, ext string, err error) {
	switch runtime.GOOS {
	case "darwin":
		osName = "darwin"
	case "linux":
		osName = "linux"
	case "windows":
		osName = "win"
	default:
		return "", "", "", toolerr.Withf(toolerr.Environment, nil, "unsupported OS %q", runtime.GOOS)
	}
	switch runtime.GOARCH {
	case "amd64":
		arch = "x64"
	case "arm64":
		arch = "arm64"
	case "386":
		arch = "x86"
	default:
		return "", "", "", toolerr.Withf(toolerr.Environment, nil, "unsupported architecture %q", runtime.GOARCH)
	}
	if runtime.GOOS == "windows" {
		ext = "zip"
	} else {
		ext = "tar.gz"
	}
	return osName, arch, ext, nil
}

// Node resolves a Node version request into an exact version and a
// fetcher.Request for the Node distribution archive.
func (r *Resolver) Node(ctx context.Context, v version.Version) (string, fetcher.Request, error) {
	osName, arch, ext, err := osArchExt()
	if err != nil {
		return "", fetcher.Request{}, err
	}

	exact, err := r.resolveNodeVersion(ctx, v)
	if err != nil {
		return "", fetcher.Request{}, err
	}

	defaultFilename := fmt.Sprintf("node-v%s-%s-%s.%s", exact, osName, arch, ext)
	url := "https://nodejs.org/dist/v" + exact + "/" + defaultFilename
	if th := r.Hooks.Node; th != nil && th.Distro != nil {
		url, err = th.Distro.Resolve(defaultFilename, osName, arch, exact)
		if err != nil {
			return "", fetcher.Request{}, toolerr.Withf(toolerr.Configuration, err, "resolving node.distro hook")
		}
	}
	return exact, fetcher.Request{Tool: "node", Version: exact, URL: url, Ext: ext}, nil
}

// resolveNodeVersion resolves v against the Node distribution index
// (or a node.latest hook for symbolic requests), returning a bare
// exact version string.
func (r *Resolver) resolveNodeVersion(ctx context.Context, v version.Version) (string, error) {
	if v.Kind == version.KindExact {
		return v.Exact.String(), nil
	}
	if th := r.Hooks.Node; th != nil && th.Latest != nil && v.EquivalentToLatest() {
		return th.Latest.Resolve("", "", "", "")
	}

	indexURL := registry.DefaultNodeIndexURL
	if th := r.Hooks.Node; th != nil && th.Index != nil {
		resolved, err := th.Index.Resolve("index.json", "", "", "")
		if err != nil {
			return "", toolerr.Withf(toolerr.Configuration, err, "resolving node.index hook")
		}
		indexURL = resolved
	}
	client := registry.NewNodeClient(r.Logger, indexURL)
	releases, err := client.Index(ctx, r.Layout)
	if err != nil {
		return "", err
	}

	lts := v.Kind == version.KindTag && v.Tag == version.Lts
	var constraint *semver.Constraints
	if v.Kind == version.KindRange {
		constraint = v.Range
	}
	release, err := registry.ResolveExact(releases, constraint, lts)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(release.Version, "v"), nil
}

// NpmLike resolves an npm or pnpm version request via the npm
// registry, running under the npm binary at npmPath.
func (r *Resolver) NpmLike(ctx context.Context, tool, npmPath string, v version.Version) (string, fetcher.Request, error) {
	packageName := tool
	th := r.toolHooks(tool)

	exact, tarball, err := r.resolveNpmPackage(ctx, packageName, npmPath, v, th)
	if err != nil {
		return "", fetcher.Request{}, err
	}

	url := tarball
	osName, arch, _, archErr := osArchExt()
	if archErr == nil && th != nil && th.Distro != nil {
		defaultFilename := fmt.Sprintf("%s-%s.tgz", tool, exact)
		resolved, err := th.Distro.Resolve(defaultFilename, osName, arch, exact)
		if err != nil {
			return "", fetcher.Request{}, toolerr.Withf(toolerr.Configuration, err, "resolving %s.distro hook", tool)
		}
		url = resolved
	}
	return exact, fetcher.Request{Tool: tool, Version: exact, URL: url, Ext: "tar.gz"}, nil
}

// Yarn resolves a Yarn version request. Yarn classic is published as an
// npm package, resolved the same way as npm/pnpm, unless a yarn.index
// hook configures the legacy GitHub Releases format.
func (r *Resolver) Yarn(ctx context.Context, npmPath string, v version.Version) (string, fetcher.Request, error) {
	th := r.Hooks.Yarn
	if th != nil && th.Index != nil && th.Format == "github" {
		return r.resolveYarnClassicGitHub(ctx, v, th)
	}
	return r.NpmLike(ctx, "yarn", npmPath, v)
}

func (r *Resolver) resolveYarnClassicGitHub(ctx context.Context, v version.Version, th *hook.ToolHooks) (string, fetcher.Request, error) {
	var exact string
	switch {
	case v.Kind == version.KindExact:
		exact = v.Exact.String()
	default:
		indexURL := registry.DefaultYarnReleasesURL
		resolved, err := th.Index.Resolve("", "", "", "")
		if err == nil && resolved != "" {
			indexURL = resolved
		}
		client := registry.NewYarnReleasesClient(r.Logger, indexURL)
		releases, err := client.Releases(ctx)
		if err != nil {
			return "", fetcher.Request{}, err
		}
		picked, err := pickYarnRelease(releases, v)
		if err != nil {
			return "", fetcher.Request{}, err
		}
		exact = picked.String()
	}
	url := fmt.Sprintf("https://github.com/yarnpkg/yarn/releases/download/v%s/yarn-v%s.tar.gz", exact, exact)
	return exact, fetcher.Request{Tool: "yarn", Version: exact, URL: url, Ext: "tar.gz"}, nil
}

// pickYarnRelease selects the newest release (Releases is already
// sorted newest-first) matching v's range constraint, or simply the
// newest for a tag/none request.
func pickYarnRelease(releases []*hversion.Version, v version.Version) (*hversion.Version, error) {
	if v.Kind != version.KindRange {
		return releases[0], nil
	}
	for _, r := range releases {
		sv, err := semver.NewVersion(r.String())
		if err != nil {
			continue
		}
		if v.Range.Check(sv) {
			return r, nil
		}
	}
	return nil, toolerr.New(toolerr.NoVersionMatch, fmt.Sprintf("no yarn release satisfies %q", v.RangeRaw), nil)
}

// Package resolves an arbitrary third-party global package version
// request the same way npm/pnpm metadata is resolved.
func (r *Resolver) Package(ctx context.Context, name, npmPath string, v version.Version) (string, fetcher.Request, error) {
	exact, tarball, err := r.resolveNpmPackage(ctx, name, npmPath, v, nil)
	if err != nil {
		return "", fetcher.Request{}, err
	}
	return exact, fetcher.Request{Tool: "packages", Name: name, Version: exact, URL: tarball, Ext: "tar.gz"}, nil
}

// resolveNpmPackage shells out to `npm view` for name@spec (or name's
// dist-tags for a symbolic request), returning the exact version and
// its dist.tarball URL.
func (r *Resolver) resolveNpmPackage(ctx context.Context, name, npmPath string, v version.Version, th *hook.ToolHooks) (string, string, error) {
	if th != nil && th.Latest != nil && v.EquivalentToLatest() {
		exact, err := th.Latest.Resolve("", "", "", "")
		if err != nil {
			return "", "", err
		}
		return r.lookupExactTarball(ctx, name, npmPath, exact)
	}

	client := registry.NewNpmClient(r.Logger, npmPath)
	if v.Kind == version.KindTag {
		tags, err := client.DistTags(ctx, name)
		if err != nil {
			return "", "", err
		}
		tagName := v.String()
		exact, ok := tags[tagName]
		if !ok {
			return "", "", toolerr.New(toolerr.NoVersionMatch, fmt.Sprintf("no dist-tag %q for %s", tagName, name), nil)
		}
		return r.lookupExactTarball(ctx, name, npmPath, exact)
	}

	entries, err := client.View(ctx, name, v.String())
	if err != nil {
		return "", "", err
	}
	best := entries[0]
	tarball, err := tarballOf(best)
	if err != nil {
		return "", "", err
	}
	return best.Version, tarball, nil
}

func (r *Resolver) lookupExactTarball(ctx context.Context, name, npmPath, exact string) (string, string, error) {
	client := registry.NewNpmClient(r.Logger, npmPath)
	entries, err := client.View(ctx, name, exact)
	if err != nil {
		return "", "", err
	}
	tarball, err := tarballOf(entries[0])
	if err != nil {
		return "", "", err
	}
	return entries[0].Version, tarball, nil
}

// distShape is the minimal subset of npm view's "dist" object this
// system consumes: the tarball URL.
type distShape struct {
	Tarball string `json:"tarball"`
}

// tarballOf extracts dist.tarball from a registry.PackageEntry's raw
// dist object.
func tarballOf(e registry.PackageEntry) (string, error) {
	var dist distShape
	if err := json.Unmarshal(e.Dist, &dist); err != nil {
		return "", toolerr.Withf(toolerr.Configuration, err, "parsing dist metadata for %s@%s", e.Name, e.Version)
	}
	if dist.Tarball == "" {
		return "", toolerr.New(toolerr.Configuration, fmt.Sprintf("no dist.tarball for %s@%s", e.Name, e.Version), nil)
	}
	return dist.Tarball, nil
}

func (r *Resolver) toolHooks(tool string) *hook.ToolHooks {
	switch tool {
	case "npm":
		return r.Hooks.Npm
	case "pnpm":
		return r.Hooks.Pnpm
	case "yarn":
		return r.Hooks.Yarn
	default:
		return nil
	}
}
