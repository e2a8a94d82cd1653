//go:build windows

package executor

import (
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/toolpin/toolpin/internal/fs"
	"github.com/toolpin/toolpin/internal/process"
	"github.com/toolpin/toolpin/internal/toolerr"
)

// execChild runs path to completion and exits the current process with
// its exit code: Windows has no equivalent of syscall.Exec's in-place
// process-image replacement, so the child is waited on instead.
func execChild(logger hclog.Logger, path string, argv, env []string) error {
	cmd := exec.Command(path, argv[1:]...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	manager := process.NewManager(logger)
	defer manager.Close()
	err := manager.Exec(cmd)
	if err == nil {
		os.Exit(0)
	}
	if ce, ok := err.(*process.ChildExit); ok {
		os.Exit(ce.ExitCode)
	}
	code := toolerr.ExitChildFailedToExecute
	if os.IsNotExist(err) {
		code = toolerr.ExitExecutableNotFound
	}
	return &process.ChildExit{ExitCode: code}
}

// lookPathIn searches path (a PATH-shaped, os.PathListSeparator-joined
// string) for the first executable named name.
func lookPathIn(name, path string) (string, error) {
	for _, dir := range strings.Split(path, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		candidate := dir + string(os.PathSeparator) + name + ".exe"
		if fs.FileExists(candidate) {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}
