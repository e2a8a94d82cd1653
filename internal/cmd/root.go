// Package cmd holds the root cobra command for the toolpin management
// CLI, plus the shim entry path dispatched on argv[0].
package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/toolpin/toolpin/internal/cmdutil"
	"github.com/toolpin/toolpin/internal/process"
	"github.com/toolpin/toolpin/internal/signals"
	"github.com/toolpin/toolpin/internal/toolerr"
	"github.com/toolpin/toolpin/internal/util"
)

// RunWithArgs runs the management CLI with the specified arguments. The
// arguments should not include the binary being invoked.
func RunWithArgs(args []string, toolpinVersion string) int {
	util.InitPrintf()
	signalWatcher := signals.NewWatcher()
	helper := cmdutil.NewHelper(toolpinVersion)
	root := getCmd(helper, signalWatcher)
	defer helper.Cleanup(root.Flags())
	root.SetArgs(args)

	doneCh := make(chan struct{})
	var execErr error
	go func() {
		execErr = root.Execute()
		close(doneCh)
	}()

	// Wait for either our command to finish, in which case we need to
	// clean up, or to receive a signal, in which case the signal handler
	// above does the cleanup
	select {
	case <-doneCh:
		signalWatcher.Close()
		exitErr := &process.ChildExit{}
		if errors.As(execErr, &exitErr) {
			return exitErr.ExitCode
		}
		return toolerr.ExitCodeOf(execErr)
	case <-signalWatcher.Done():
		// We caught a signal, which already called the close handlers
		return 1
	}
}

// getCmd returns the root cobra command
func getCmd(helper *cmdutil.Helper, signalWatcher *signals.Watcher) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "toolpin",
		Short:            "The hassle-free JavaScript toolchain manager",
		Long:             "The hassle-free JavaScript toolchain manager.\n\nReport issues at " + util.SourceCodeIssues,
		TraverseChildren: true,
		SilenceUsage:     true,
		Version:          helper.Version,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	flags := cmd.PersistentFlags()
	helper.AddFlags(flags)
	cmd.AddCommand(InstallCmd(helper))
	cmd.AddCommand(UninstallCmd(helper))
	cmd.AddCommand(PinCmd(helper))
	cmd.AddCommand(ListCmd(helper))
	cmd.AddCommand(WhichCmd(helper))
	cmd.AddCommand(SetupCmd(helper))
	return cmd
}
