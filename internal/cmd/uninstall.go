package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toolpin/toolpin/internal/cmdutil"
	"github.com/toolpin/toolpin/internal/packageinstall"
	"github.com/toolpin/toolpin/internal/util"
)

// UninstallCmd returns the `toolpin uninstall` subcommand: remove a
// globally installed package, its bin configs, shims, and image.
func UninstallCmd(helper *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <package>...",
		Short: "Remove a globally installed package and its binaries",
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

			inst := packageinstall.New(base.Logger, base.Layout)
			for _, spec := range args {
				name, _ := splitSpec(spec)
				if err := inst.Uninstall(name); err != nil {
					base.LogError("%v", err)
					return err
				}
				base.LogInfo(fmt.Sprintf("uninstalled %s", name))
			}
			return nil
		},
	}
}
