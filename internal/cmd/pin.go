package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/toolpin/toolpin/internal/cmdutil"
	"github.com/toolpin/toolpin/internal/executor"
	"github.com/toolpin/toolpin/internal/fetcher"
	"github.com/toolpin/toolpin/internal/inventory"
	"github.com/toolpin/toolpin/internal/platform"
	"github.com/toolpin/toolpin/internal/project"
	"github.com/toolpin/toolpin/internal/registry"
	"github.com/toolpin/toolpin/internal/resolve"
	"github.com/toolpin/toolpin/internal/toolerr"
	"github.com/toolpin/toolpin/internal/ui"
	"github.com/toolpin/toolpin/internal/util"
	"github.com/toolpin/toolpin/internal/version"
)

// PinCmd returns the `toolpin pin` subcommand: resolve a tool request
// to an exact version, fetch it, and persist it into the project
// manifest's toolpin section.
func PinCmd(helper *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <tool[@version]>...",
		Short: "Pin tool versions into the current project's manifest",
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

			proj, err := base.Session.Project()
			if err != nil {
				base.LogError("%v", err)
				return err
			}
			if proj == nil {
				err := toolerr.New(toolerr.Configuration, "not in a project: no package.json found", nil)
				base.LogError("%v", err)
				return err
			}

			for _, spec := range args {
				name, request := splitSpec(spec)
				if !runtimeToolNames[name] {
					err := toolerr.Withf(toolerr.InvalidArgs, nil,
						"cannot pin %q: only node, npm, pnpm, and yarn can be pinned", name)
					base.LogError("%v", err)
					return err
				}
				v, err := version.ParseRequest(request)
				if err != nil {
					base.LogError("%v", err)
					return err
				}
				exact, err := resolveAndFetch(cmd.Context(), base, name, v)
				if err != nil {
					base.LogError("%v", err)
					return err
				}
				if err := project.Pin(proj.ManifestFile, name, exact); err != nil {
					base.LogError("%v", err)
					return err
				}
				base.LogInfo(fmt.Sprintf("pinned %s@%s in %s", name, exact, proj.ManifestFile.ToString()))
			}
			return nil
		},
	}
}

// resolveAndFetch resolves a runtime-tool request to an exact version
// and ensures the distribution is unpacked, so a fresh pin is
// immediately runnable.
func resolveAndFetch(ctx context.Context, base *cmdutil.CmdBase, tool string, v version.Version) (string, error) {
	hooks, err := base.Session.Hooks()
	if err != nil {
		return "", err
	}
	r := resolve.New(base.Logger, base.Layout, hooks)
	f := fetcher.New(base.Logger, base.Layout)

	var exact string
	var req fetcher.Request
	if tool == "node" {
		err = registry.WithSpinner(base.UI, fmt.Sprintf("resolving node@%s", displayRequest(v)), func() error {
			exact, req, err = r.Node(ctx, v)
			return err
		})
	} else {
		npmPlatform, platErr := nodeBearingPlatform(base)
		if platErr != nil {
			return "", platErr
		}
		nodeOnly := &platform.PlatformSpec{Node: npmPlatform.Node}
		if err := executor.EnsurePlatform(ctx, base.Session, nodeOnly); err != nil {
			return "", err
		}
		npmPath := npmCliPathFor(base.Layout, npmPlatform)
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
		return "", err
	}
	if !inventory.Has(base.Layout, tool, exact) {
		sp := ui.NewSpinner(os.Stderr)
		sp.Start(fmt.Sprintf("downloading %s@%s", tool, exact))
		err := f.Fetch(ctx, req)
		sp.Stop("")
		if err != nil {
			return "", err
		}
	}
	return exact, nil
}

// nodeBearingPlatform picks the platform whose node runs registry
// metadata lookups: the project's pinned node when present, otherwise
// the user default.
func nodeBearingPlatform(base *cmdutil.CmdBase) (*platform.PlatformSpec, error) {
	proj, err := base.Session.Project()
	if err != nil {
		return nil, err
	}
	if proj != nil && proj.Platform != nil && proj.Platform.Node != nil {
		return proj.Platform, nil
	}
	def, err := base.Session.DefaultPlatform()
	if err != nil {
		return nil, err
	}
	if def == nil || def.Node == nil {
		return nil, toolerr.New(toolerr.Configuration,
			"no node version available to resolve against; pin node first or run `toolpin install node`", nil)
	}
	return def, nil
}
