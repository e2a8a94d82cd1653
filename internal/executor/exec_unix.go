//go:build !windows

package executor

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/toolpin/toolpin/internal/fs"
	"github.com/toolpin/toolpin/internal/process"
	"github.com/toolpin/toolpin/internal/toolerr"
)

// execChild replaces the current process image with path: no wrapper
// process survives to hold a terminal, signal, or memory footprint
// open. It only returns when the exec itself failed, mapped to the
// 126/127 exit-code convention via process.ChildExit.
func execChild(logger hclog.Logger, path string, argv, env []string) error {
	logger.Debug("exec", "path", path, "argv", argv)
	err := syscall.Exec(path, argv, env)
	logger.Error("exec failed", "path", path, "error", err)
	fmt.Fprintf(os.Stderr, "could not execute %s: %v\n", path, err)
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
		candidate := dir + string(os.PathSeparator) + name
		if fs.FileExists(candidate) {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}
