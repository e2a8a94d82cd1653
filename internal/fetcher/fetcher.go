// Package fetcher downloads, caches, and atomically unpacks tool
// distributions. After a successful Fetch, the tool's image directory
// contains a usable installation at the canonical path.
package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/toolpin/toolpin/internal/fetcher/archive"
	"github.com/toolpin/toolpin/internal/fs"
	"github.com/toolpin/toolpin/internal/fsutil"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/toolerr"
	"github.com/toolpin/toolpin/internal/turbopath"
)

// Request describes one tool distribution to ensure-fetched.
type Request struct {
	// Tool is "node", "npm", "pnpm", "yarn", or "packages".
	Tool    string
	Version string
	// Name is set only when Tool == "packages" (the package name).
	Name string
	// URL is the resolved remote URL (hook override or default public
	// endpoint), already decided by the caller step 3.
	URL string
	// Ext is the archive's file extension, used to pick the inventory
	// cache filename ("tar.gz", "tar.zst", "zip").
	Ext string
}

// Fetcher downloads, verifies, and unpacks tool distributions.
type Fetcher struct {
	Logger hclog.Logger
	HTTP   *retryablehttp.Client
	Layout *layout.Layout
}

// New constructs a Fetcher.
func New(logger hclog.Logger, lo *layout.Layout) *Fetcher {
	client := retryablehttp.NewClient()
	client.Logger = logger
	client.RetryMax = 3
	return &Fetcher{Logger: logger, HTTP: client, Layout: lo}
}

// inventoryPath returns the canonical cached-archive path for req.
func (f *Fetcher) inventoryPath(req Request) turbopath.AbsoluteSystemPath {
	if req.Tool == "packages" {
		return f.Layout.PackageInventoryArchive(req.Name, req.Version, "."+req.Ext)
	}
	return f.Layout.InventoryArchive(req.Tool, req.Version, "."+req.Ext)
}

// imagePath returns the canonical unpacked-installation path for req.
func (f *Fetcher) imagePath(req Request) turbopath.AbsoluteSystemPath {
	if req.Tool == "packages" {
		return f.Layout.PackageImageDir(req.Name, req.Version)
	}
	return f.Layout.ImageVersionDir(req.Tool, req.Version)
}

// Fetch reuses a valid cached archive if one exists, otherwise
// downloads one, then unpacks and promotes the result into the image
// tree.
func (f *Fetcher) Fetch(ctx context.Context, req Request) error {
	image := f.imagePath(req)
	if fs.IsDirectory(image.ToString()) {
		f.Logger.Debug("fetch: already installed", "tool", req.Tool, "version", req.Version)
		return nil
	}

	cached := f.inventoryPath(req)
	if loadable(cached) {
		f.Logger.Debug("fetch: using cached archive", "path", cached.ToString())
		if err := f.unpackAndPromote(req, cached); err == nil {
			return nil
		}
		f.Logger.Warn("fetch: cached archive failed to unpack, re-downloading", "path", cached.ToString())
		_ = os.Remove(cached.ToString())
	}

	staged, err := f.download(ctx, req)
	if err != nil {
		return err
	}
	defer fsutil.Discard(staged.Dir())

	if err := f.unpackAndPromote(req, staged); err != nil {
		fsutil.Discard(staged)
		return err
	}

	if err := fsutil.Promote(f.Logger, staged, cached); err != nil {
		f.Logger.Warn("fetch: failed to persist archive to inventory cache", "error", err)
	}
	return nil
}

// loadable is format-level validation only: the cached file exists and
// is non-empty. Checksum validation is the documented gap (see
// verifyChecksum).
func loadable(path turbopath.AbsoluteSystemPath) bool {
	info, err := os.Stat(path.ToString())
	return err == nil && info.Size() > 0
}

// download fetches req.URL into a staging file under tmp/ and verifies
// it (a no-op stub today, see verifyChecksum).
func (f *Fetcher) download(ctx context.Context, req Request) (turbopath.AbsoluteSystemPath, error) {
	stagingDir, err := fsutil.NewStagingDir(f.Layout.TmpDir())
	if err != nil {
		return "", toolerr.Withf(toolerr.Filesystem, err, "creating staging directory")
	}
	dest := stagingDir.Join(turbopath.RelativeSystemPathFromUpstream("archive." + req.Ext))

	f.Logger.Debug("fetch: downloading", "url", req.URL, "tool", req.Tool, "version", req.Version)
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", toolerr.Withf(toolerr.Network, err, "building download request for %s", req.URL)
	}
	resp, err := f.HTTP.Do(httpReq)
	if err != nil {
		return "", toolerr.Withf(toolerr.Network, err, "downloading %s", req.URL)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", toolerr.Withf(toolerr.Network, nil, "download of %s returned %s", req.URL, resp.Status)
	}

	out, err := os.Create(dest.ToString())
	if err != nil {
		return "", toolerr.Withf(toolerr.Filesystem, err, "creating staging file")
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return "", toolerr.Withf(toolerr.Network, err, "writing downloaded archive")
	}
	out.Close()

	if err := verifyChecksum(dest); err != nil {
		return "", err
	}
	return dest, nil
}

// verifyChecksum is a named hook point that always returns nil today.
// Checksum verification of downloaded archives is not implemented yet;
// the gap is left visible here rather than silently skipped. A real
// implementation would compare a SHA-1 or SHA-512
// digest supplied by the registry response against the downloaded
// bytes before unpack.
func verifyChecksum(path turbopath.AbsoluteSystemPath) error {
	return nil
}

// unpackAndPromote unpacks the archive at archivePath into a fresh
// staging directory, runs the per-tool post-unpack fixups, and promotes
// the result to the image tree.
func (f *Fetcher) unpackAndPromote(req Request, archivePath turbopath.AbsoluteSystemPath) error {
	unpackDir, err := fsutil.NewStagingDir(f.Layout.TmpDir())
	if err != nil {
		return toolerr.Withf(toolerr.Filesystem, err, "creating unpack staging directory")
	}
	defer fsutil.Discard(unpackDir)

	if err := archive.ExtractAuto(archivePath, unpackDir); err != nil {
		return toolerr.Withf(toolerr.Filesystem, err, "unpacking %s", archivePath.ToString())
	}

	root, err := singleSubdirOrSelf(unpackDir)
	if err != nil {
		return err
	}

	switch req.Tool {
	case "npm", "pnpm":
		if err := overwriteLaunchers(f.Logger, root, req.Tool); err != nil {
			return err
		}
	case "node":
		if err := captureBundledNpmVersion(f.Layout, root, req.Version); err != nil {
			f.Logger.Warn("fetch: could not capture bundled npm version", "error", err)
		}
	}

	image := f.imagePath(req)
	if err := fsutil.Promote(f.Logger, root, image); err != nil {
		return toolerr.Withf(toolerr.Filesystem, err, "promoting %s to %s", root.ToString(), image.ToString())
	}
	return nil
}

// singleSubdirOrSelf returns the archive's lone top-level directory
// (the common "name-vX.Y.Z/" wrapper most distributions use) if there
// is exactly one, otherwise the unpack root itself.
func singleSubdirOrSelf(dir turbopath.AbsoluteSystemPath) (turbopath.AbsoluteSystemPath, error) {
	entries, err := os.ReadDir(dir.ToString())
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return dir.Join(turbopath.RelativeSystemPathFromUpstream(entries[0].Name())), nil
	}
	return dir, nil
}

// overwriteLaunchers replaces npm/pnpm's shipped bin/npm, bin/npx,
// bin/pnpm, bin/pnpx launchers with scripts that always invoke
// `node <basedir>/<tool>-cli.[cjs|js]`, bypassing shebang-line
// assumptions so they work under Git Bash / Cygwin.
func overwriteLaunchers(logger hclog.Logger, root turbopath.AbsoluteSystemPath, tool string) error {
	names := map[string][]string{
		"npm":  {"npm", "npx"},
		"pnpm": {"pnpm", "pnpx"},
	}[tool]
	binDir := root.Join(turbopath.RelativeSystemPathFromUpstream("bin"))
	if !fs.IsDirectory(binDir.ToString()) {
		logger.Debug("fetch: no bin/ directory to patch launchers in", "tool", tool)
		return nil
	}
	for _, name := range names {
		cliEntry := findCliEntry(root, name)
		if cliEntry == "" {
			continue
		}
		script := "#!/bin/sh\nbasedir=$(dirname \"$(echo \"$0\" | sed -e 's,\\\\,/,g')\")\nexec node \"$basedir/../" + cliEntry + "\" \"$@\"\n"
		launcher := binDir.Join(turbopath.RelativeSystemPathFromUpstream(name))
		if err := os.WriteFile(launcher.ToString(), []byte(script), 0o755); err != nil {
			return toolerr.Withf(toolerr.Filesystem, err, "writing %s launcher", name)
		}
		cmdScript := "@SETLOCAL\r\n@node \"%~dp0\\..\\" + strings.ReplaceAll(cliEntry, "/", "\\") + "\" %*\r\n"
		cmdLauncher := binDir.Join(turbopath.RelativeSystemPathFromUpstream(name + ".cmd"))
		if err := os.WriteFile(cmdLauncher.ToString(), []byte(cmdScript), 0o644); err != nil {
			return toolerr.Withf(toolerr.Filesystem, err, "writing %s.cmd launcher", name)
		}
	}
	return nil
}

// findCliEntry locates <name>-cli.cjs or <name>-cli.js relative to root,
// the entry points npm/pnpm ship under bin/ or lib/.
func findCliEntry(root turbopath.AbsoluteSystemPath, name string) string {
	for _, candidate := range []string{
		"bin/" + name + "-cli.js",
		"bin/" + name + "-cli.cjs",
		"lib/" + name + "-cli.js",
	} {
		full := root.Join(turbopath.RelativeSystemPathFromUpstream(candidate))
		if fs.FileExists(full.ToString()) {
			return candidate
		}
	}
	return ""
}

// npmPackageJSON is the minimal shape read from node_modules/npm/package.json.
type npmPackageJSON struct {
	Version string `json:"version"`
}

// captureBundledNpmVersion reads the npm version bundled inside a
// freshly-unpacked Node distribution and persists it to
// inventory/node/node-v<version>-npm, so the resolver can later learn
// which npm "came with" a given Node.
func captureBundledNpmVersion(lo *layout.Layout, root turbopath.AbsoluteSystemPath, nodeVersion string) error {
	pkgPath := root.Join(turbopath.RelativeSystemPathFromUpstream("lib/node_modules/npm/package.json"))
	if !fs.FileExists(pkgPath.ToString()) {
		pkgPath = root.Join(turbopath.RelativeSystemPathFromUpstream("node_modules/npm/package.json"))
	}
	data, err := os.ReadFile(pkgPath.ToString())
	if err != nil {
		return err
	}
	var pkg npmPackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return err
	}
	marker := lo.NodeNpmVersionFile(nodeVersion)
	if err := os.MkdirAll(marker.Dir().ToString(), fs.DirPermissions); err != nil {
		return err
	}
	return os.WriteFile(marker.ToString(), []byte(pkg.Version), 0o644)
}
