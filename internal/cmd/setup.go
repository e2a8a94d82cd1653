package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toolpin/toolpin/internal/cmdutil"
	"github.com/toolpin/toolpin/internal/shim"
	"github.com/toolpin/toolpin/internal/util"
)

// SetupCmd returns the `toolpin setup` subcommand: create or migrate
// the home directory, regenerate every shim, and print the PATH entry
// the user's shell profile needs.
func SetupCmd(helper *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the toolpin home and regenerate shims",
		Args:  cobra.NoArgs,
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

			if err := shim.RegenerateAll(base.Layout); err != nil {
				base.LogError("%v", err)
				return err
			}
			if err := shim.RemoveOrphans(base.Layout); err != nil {
				base.LogError("%v", err)
				return err
			}

			base.LogInfo(fmt.Sprintf("home ready at %s", base.Layout.Home().ToString()))
			base.UI.Output("")
			base.UI.Output("Add the shim directory to your PATH, before any other node installation:")
			base.UI.Output(fmt.Sprintf("  export PATH=%q:$PATH", base.Layout.BinDir().ToString()))
			return nil
		},
	}
}
