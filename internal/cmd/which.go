package cmd

import (
	"github.com/spf13/cobra"
	"github.com/toolpin/toolpin/internal/cmdutil"
	"github.com/toolpin/toolpin/internal/executor"
	"github.com/toolpin/toolpin/internal/util"
)

// WhichCmd returns the `toolpin which` subcommand: print the path a
// shim invocation would exec, without running it.
func WhichCmd(helper *cmdutil.Helper) *cobra.Command {
	return &cobra.Command{
		Use:   "which <binary>",
		Short: "Print the path a binary invocation would execute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := helper.GetCmdBase(cmd.Flags())
			if err != nil {
				return err
			}
			defer util.CloseAndIgnoreError(base.Session)

			path, err := executor.Which(cmd.Context(), base.Session, args[0])
			if err != nil {
				base.LogError("%v", err)
				return err
			}
			base.UI.Output(path)
			return nil
		},
	}
}
