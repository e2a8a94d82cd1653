package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toolpin/toolpin/internal/cmdutil"
	"github.com/toolpin/toolpin/internal/executor"
	"github.com/toolpin/toolpin/internal/fetcher"
	"github.com/toolpin/toolpin/internal/fsutil"
	"github.com/toolpin/toolpin/internal/inventory"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/migrate"
	"github.com/toolpin/toolpin/internal/packageinstall"
	"github.com/toolpin/toolpin/internal/packagemanager"
	"github.com/toolpin/toolpin/internal/platform"
	"github.com/toolpin/toolpin/internal/registry"
	"github.com/toolpin/toolpin/internal/resolve"
	"github.com/toolpin/toolpin/internal/toolerr"
	"github.com/toolpin/toolpin/internal/turbopath"
	"github.com/toolpin/toolpin/internal/ui"
	"github.com/toolpin/toolpin/internal/util"
	"github.com/toolpin/toolpin/internal/version"
)

// runtimeToolNames are the tools installed into the default platform
// rather than through the package pipeline.
var runtimeToolNames = map[string]bool{"node": true, "npm": true, "pnpm": true, "yarn": true}

// splitSpec separates "<name>" / "<name>@<request>" into its parts,
// keeping a leading @scope/ attached to the name.
func splitSpec(spec string) (string, string) {
	rest := spec
	scope := ""
	if strings.HasPrefix(spec, "@") {
		idx := strings.Index(spec, "/")
		if idx < 0 {
			return spec, ""
		}
		scope, rest = spec[:idx+1], spec[idx+1:]
	}
	if idx := strings.Index(rest, "@"); idx >= 0 {
		return scope + rest[:idx], rest[idx+1:]
	}
	return spec, ""
}

// prepareHome migrates the home to the current schema under the
// advisory lock and scrubs abandoned staging directories, returning the
// lock so the caller can hold it across its own mutation.
func prepareHome(base *cmdutil.CmdBase) (*fsutil.Lock, error) {
	lock, _ := fsutil.AcquireLock(base.Logger, base.Layout.LockFile())
	if err := migrate.Run(base.Logger, base.Layout); err != nil {
		lock.Release(base.Logger)
		return nil, err
	}
	if err := fsutil.ScrubTmp(base.Layout.TmpDir()); err != nil {
		base.Logger.Warn("failed scrubbing tmp", "error", err)
	}
	return lock, nil
}

// InstallCmd returns the `toolpin install` subcommand: fetch a runtime
// tool and make it the default, or install a third-party package's bins
// globally.
func InstallCmd(helper *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "install <tool[@version]>...",
		Short: "Install a tool as the default, or a package's binaries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := helper.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}
			defer util.CloseAndIgnoreError(base.Session)
			lock, err := prepareHome(base)
			if err != nil {
				base.LogError("%v", err)
				return err
			}
			defer lock.Release(base.Logger)

			for _, spec := range args {
				name, request := splitSpec(spec)
				v, err := version.ParseRequest(request)
				if err != nil {
					base.LogError("%v", err)
					return err
				}
				if runtimeToolNames[name] {
					err = installRuntimeTool(cmd.Context(), base, name, v)
				} else {
					err = installPackage(cmd.Context(), base, spec)
				}
				if err != nil {
					base.LogError("%v", err)
					return err
				}
			}
			return nil
		},
	}
}

// installRuntimeTool resolves and fetches one of node/npm/pnpm/yarn and
// records it in the user default platform.
func installRuntimeTool(ctx context.Context, base *cmdutil.CmdBase, tool string, v version.Version) error {
	hooks, err := base.Session.Hooks()
	if err != nil {
		return err
	}
	r := resolve.New(base.Logger, base.Layout, hooks)
	f := fetcher.New(base.Logger, base.Layout)
	def, err := base.Session.DefaultPlatform()
	if err != nil {
		return err
	}

	var exact string
	var req fetcher.Request
	if tool == "node" {
		err = registry.WithSpinner(base.UI, fmt.Sprintf("resolving node@%s", displayRequest(v)), func() error {
			exact, req, err = r.Node(ctx, v)
			return err
		})
	} else {
		if def == nil || def.Node == nil {
			return toolerr.New(toolerr.Configuration,
				fmt.Sprintf("cannot install %s without a default node; run `toolpin install node` first", tool), nil)
		}
		nodeOnly := &platform.PlatformSpec{Node: def.Node}
		if err := executor.EnsurePlatform(ctx, base.Session, nodeOnly); err != nil {
			return err
		}
		npmPath := npmCliPathFor(base.Layout, def)
		err = registry.WithSpinner(base.UI, fmt.Sprintf("resolving %s@%s", tool, displayRequest(v)), func() error {
			if tool == "yarn" {
				exact, req, err = r.Yarn(ctx, npmPath, v)
			} else {
				exact, req, err = r.NpmLike(ctx, tool, npmPath, v)
			}
			return err
		})
	}
	if err != nil {
		return err
	}

	if !inventory.Has(base.Layout, tool, exact) {
		sp := ui.NewSpinner(os.Stderr)
		sp.Start(fmt.Sprintf("downloading %s@%s", tool, exact))
		err := f.Fetch(ctx, req)
		sp.Stop("")
		if err != nil {
			return err
		}
	}

	updated := setDefaultVersion(def, tool, exact)
	if err := platform.SaveDefault(base.Layout, updated); err != nil {
		return err
	}
	base.LogInfo(fmt.Sprintf("installed %s@%s as the default", tool, exact))
	return nil
}

// setDefaultVersion returns def with one tool's pin replaced; a nil def
// starts an empty platform.
func setDefaultVersion(def *platform.PlatformSpec, tool, exact string) *platform.PlatformSpec {
	updated := &platform.PlatformSpec{}
	if def != nil {
		*updated = *def
	}
	parsed, _ := version.ParseExact(exact)
	field := &platform.Sourced[version.Version]{Value: parsed, Source: platform.OriginDefault}
	switch tool {
	case "node":
		updated.Node = field
	case "npm":
		updated.Npm = field
	case "pnpm":
		updated.Pnpm = field
	case "yarn":
		updated.Yarn = field
	}
	return updated
}

// npmCliPathFor resolves the npm binary bundled with the platform's
// node, the binary registry metadata lookups shell out to.
func npmCliPathFor(lo *layout.Layout, spec *platform.PlatformSpec) string {
	bundled := &platform.PlatformSpec{Node: spec.Node}
	return executor.RuntimeBinDir(lo, "npm", bundled).
		Join(turbopath.RelativeSystemPathFromUpstream("npm")).ToString()
}

// installPackage drives the sandboxed global-install pipeline for a
// third-party package under the default platform.
func installPackage(ctx context.Context, base *cmdutil.CmdBase, spec string) error {
	def, err := base.Session.DefaultPlatform()
	if err != nil {
		return err
	}
	if def == nil || def.Node == nil {
		return toolerr.New(toolerr.Configuration,
			"cannot install a package without a default node; run `toolpin install node` first", nil)
	}
	if err := executor.EnsurePlatform(ctx, base.Session, def); err != nil {
		return err
	}
	inst := packageinstall.New(base.Logger, base.Layout)
	binPath := executor.RuntimeBinDir(base.Layout, "npm", def).
		Join(turbopath.RelativeSystemPathFromUpstream("npm")).ToString()
	result, err := inst.Install(ctx, packageinstall.Request{
		Spec:     spec,
		Manager:  packagemanager.Npm,
		Platform: def,
		BinPath:  binPath,
	})
	if err != nil {
		return err
	}
	base.LogInfo(fmt.Sprintf("installed %s@%s with binaries: %s",
		result.Name, result.Version, strings.Join(result.Bins, ", ")))
	return nil
}

// displayRequest renders a version request for progress messages, with
// an empty request shown as latest.
func displayRequest(v version.Version) string {
	if v.IsNone() {
		return "latest"
	}
	return v.String()
}
