package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/toolpin/toolpin/internal/cmd"
)

// toolpinVersion is stamped at build time via
// -ldflags "-X main.toolpinVersion=x.y.z".
var toolpinVersion = "0.0.0-dev"

// main dispatches on argv[0]: invoked under its own name it is the
// management CLI; invoked through a shim (node, npm, a package bin) it
// is the shim execution core.
func main() {
	name := strings.TrimSuffix(filepath.Base(os.Args[0]), ".exe")
	if name == "toolpin" {
		os.Exit(cmd.RunWithArgs(os.Args[1:], toolpinVersion))
	}
	os.Exit(cmd.RunShim(os.Args, toolpinVersion))
}
