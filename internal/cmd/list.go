package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toolpin/toolpin/internal/cmdutil"
	"github.com/toolpin/toolpin/internal/inventory"
	"github.com/toolpin/toolpin/internal/ui"
	"github.com/toolpin/toolpin/internal/util"
)

// ListCmd returns the `toolpin list` subcommand: enumerate every
// installed tool version and global package, marking the defaults.
func ListCmd(helper *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed tool versions and global packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := helper.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}
			defer util.CloseAndIgnoreError(base.Session)

			def, err := base.Session.DefaultPlatform()
			if err != nil {
				base.LogError("%v", err)
				return err
			}
			defaults := map[string]string{}
			if def != nil {
				if def.Node != nil {
					defaults["node"] = def.Node.Value.String()
				}
				if def.Npm != nil {
					defaults["npm"] = def.Npm.Value.String()
				}
				if def.Pnpm != nil {
					defaults["pnpm"] = def.Pnpm.Value.String()
				}
				if def.Yarn != nil {
					defaults["yarn"] = def.Yarn.Value.String()
				}
			}

			for _, tool := range inventory.Tools {
				entries, err := inventory.List(base.Layout, tool)
				if err != nil {
					base.LogError("%v", err)
					return err
				}
				if len(entries) == 0 {
					continue
				}
				base.UI.Output(ui.Bold(tool))
				for _, e := range entries {
					line := "  " + e.Version
					if defaults[tool] == e.Version {
						line += ui.Dim(" (default)")
					}
					base.UI.Output(line)
				}
			}

			packages, err := inventory.ListPackages(base.Layout)
			if err != nil {
				base.LogError("%v", err)
				return err
			}
			if len(packages) > 0 {
				base.UI.Output(ui.Bold("packages"))
				for _, e := range packages {
					base.UI.Output(fmt.Sprintf("  %s@%s", e.Name, e.Version))
				}
			}
			return nil
		},
	}
}
