package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/event"
	"github.com/toolpin/toolpin/internal/executor"
	"github.com/toolpin/toolpin/internal/fsutil"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/migrate"
	"github.com/toolpin/toolpin/internal/process"
	"github.com/toolpin/toolpin/internal/session"
	"github.com/toolpin/toolpin/internal/toolerr"
	"github.com/toolpin/toolpin/internal/ui"
)

// RunShim is the entry path for an invocation through a shim: argv is
// the full os.Args, with argv[0] naming the tool. On Unix a successful
// dispatch never returns from executor.Run; the return value here is
// the exit code for every path that does come back.
func RunShim(argv []string, toolpinVersion string) int {
	logger := shimLogger()
	lo := layout.New(layout.DefaultHome())

	if d := migrate.Detect(lo); migrate.NeedsMigration(d) {
		lock, _ := fsutil.AcquireLock(logger, lo.LockFile())
		err := migrate.Run(logger, lo)
		lock.Release(logger)
		if err != nil {
			return reportShimError(logger, lo, argv, err)
		}
	}

	s := session.New(lo, logger)
	name := filepath.Base(argv[0])
	s.Events.Record(name, event.Body{Kind: event.KindStart, Tool: name, Version: toolpinVersion})
	s.Events.Record(name, event.Body{Kind: event.KindArgs, Tool: name, Args: argv[1:]})

	err := executor.Run(context.Background(), s, argv)
	if err == nil {
		// Every hand-off to a child either replaced this process (Unix)
		// or exited via os.Exit (Windows), so reaching here with no
		// error means dispatch-only work (an intercepted install)
		// finished cleanly.
		s.Events.Record(name, event.Body{Kind: event.KindEnd, Tool: name, ExitCode: 0})
		if closeErr := s.Close(); closeErr != nil {
			logger.Debug("event publish failed", "error", closeErr)
		}
		return 0
	}

	exitErr := &process.ChildExit{}
	if errors.As(err, &exitErr) {
		s.Events.Record(name, event.Body{Kind: event.KindToolEnd, Tool: name, ExitCode: exitErr.ExitCode})
		if closeErr := s.Close(); closeErr != nil {
			logger.Debug("event publish failed", "error", closeErr)
		}
		return exitErr.ExitCode
	}
	s.Events.Record(name, event.Body{Kind: event.KindError, Tool: name, Message: err.Error()})
	code := reportShimError(logger, lo, argv, err)
	if closeErr := s.Close(); closeErr != nil {
		logger.Debug("event publish failed", "error", closeErr)
	}
	return code
}

// reportShimError prints the short styled message to stderr, appends
// the full cause chain to a new file under log/, and returns the exit
// code the error maps to.
func reportShimError(logger hclog.Logger, lo *layout.Layout, argv []string, err error) int {
	logger.Error("shim dispatch failed", "argv", argv, "error", err)
	fmt.Fprintf(os.Stderr, "%s%s\n", ui.ERROR_PREFIX, color.RedString(" %v", err))
	invocation := ""
	for i, a := range argv {
		if i > 0 {
			invocation += " "
		}
		invocation += a
	}
	if path, ok := toolerr.WriteReport(lo.LogDir().ToString(), invocation, err); ok {
		fmt.Fprintf(os.Stderr, "%s\n", ui.Dim("error details written to "+path))
	}
	return toolerr.ExitCodeOf(err)
}

// shimLogger builds the minimal stderr logger the shim hot path needs:
// errors only, unless TOOLPIN_LOGLEVEL names another level.
func shimLogger() hclog.Logger {
	level := hclog.Error
	if env, err := config.Env(); err == nil && env.LogLevel != "" {
		if parsed := hclog.LevelFromString(env.LogLevel); parsed != hclog.NoLevel {
			level = parsed
		}
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "toolpin",
		Level:  level,
		Color:  hclog.AutoColor,
		Output: os.Stderr,
	})
}
