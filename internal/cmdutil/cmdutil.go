// Package cmdutil holds functionality shared by every toolpin management
// subcommand: flag parsing and the construction of the components each
// command needs (UI, logger, layout, session).
package cmdutil

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/pflag"
	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/session"
	"github.com/toolpin/toolpin/internal/turbopath"
	"github.com/toolpin/toolpin/internal/ui"
)

// envLogLevel is the environment variable selecting log verbosity.
const envLogLevel = "TOOLPIN_LOGLEVEL"

// Helper holds configuration values passed via flag or env var and drives
// the construction of CmdBase; it is not used directly by commands.
type Helper struct {
	// Version is the version of toolpin that is currently executing.
	Version string

	forceColor bool
	noColor    bool
	verbosity  int
	rawHome    string

	cleanupsMu sync.Mutex
	cleanups   []io.Closer
}

// RegisterCleanup saves a function to run after command execution, even
// if the command returns an error.
func (h *Helper) RegisterCleanup(cleanup io.Closer) {
	h.cleanupsMu.Lock()
	defer h.cleanupsMu.Unlock()
	h.cleanups = append(h.cleanups, cleanup)
}

// Cleanup runs every registered cleanup handler.
func (h *Helper) Cleanup(flags *pflag.FlagSet) {
	h.cleanupsMu.Lock()
	defer h.cleanupsMu.Unlock()
	var u cli.Ui
	for _, cleanup := range h.cleanups {
		if err := cleanup.Close(); err != nil {
			if u == nil {
				u = h.getUI(flags)
			}
			u.Warn(fmt.Sprintf("failed cleanup: %v", err))
		}
	}
}

func (h *Helper) getUI(flags *pflag.FlagSet) cli.Ui {
	colorMode := ui.GetColorModeFromEnv()
	if flags != nil {
		if flags.Changed("no-color") && h.noColor {
			colorMode = ui.ColorModeSuppressed
		}
		if flags.Changed("color") && h.forceColor {
			colorMode = ui.ColorModeForced
		}
	}
	return ui.BuildColoredUi(colorMode)
}

func (h *Helper) getLogger() (hclog.Logger, error) {
	env, err := config.Env()
	if err != nil {
		return nil, err
	}
	var level hclog.Level
	switch h.verbosity {
	case 0:
		if v := env.LogLevel; v != "" {
			level = hclog.LevelFromString(v)
			if level == hclog.NoLevel {
				return nil, fmt.Errorf("%s value %q is not a valid log level", envLogLevel, v)
			}
		} else {
			level = hclog.NoLevel
		}
	case 1:
		level = hclog.Info
	case 2:
		level = hclog.Debug
	default:
		level = hclog.Trace
	}
	output := ioutil.Discard
	lcolor := hclog.ColorOff
	if level != hclog.NoLevel {
		output = os.Stderr
		lcolor = hclog.AutoColor
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "toolpin",
		Level:  level,
		Color:  lcolor,
		Output: output,
	}), nil
}

// AddFlags adds the common flags every toolpin command accepts.
func (h *Helper) AddFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&h.forceColor, "color", false, "Force color usage in the terminal")
	flags.BoolVar(&h.noColor, "no-color", false, "Suppress color usage in the terminal")
	flags.CountVarP(&h.verbosity, "verbosity", "v", "verbosity")
	flags.StringVar(&h.rawHome, "home", "", "Override the toolpin home directory")
}

// NewHelper constructs a Helper for the given build version.
func NewHelper(version string) *Helper {
	return &Helper{Version: version}
}

// GetCmdBase resolves UI, logger, layout, and a fresh Session for one
// command invocation.
func (h *Helper) GetCmdBase(flags *pflag.FlagSet) (*CmdBase, error) {
	terminal := h.getUI(flags)
	logger, err := h.getLogger()
	if err != nil {
		return nil, err
	}
	home := layout.DefaultHome()
	if h.rawHome != "" {
		home = turbopath.AbsoluteSystemPathFromUpstream(h.rawHome)
	}
	lo := layout.New(home)
	sess := session.New(lo, logger)
	return &CmdBase{
		UI:      terminal,
		Logger:  logger,
		Layout:  lo,
		Session: sess,
		Version: h.Version,
	}, nil
}

// CmdBase encompasses the components common to every toolpin command.
type CmdBase struct {
	UI      cli.Ui
	Logger  hclog.Logger
	Layout  *layout.Layout
	Session *session.Session
	Version string
}

// LogError prints an error to the UI and the structured log.
func (b *CmdBase) LogError(format string, args ...interface{}) {
	err := fmt.Errorf(format, args...)
	b.Logger.Error("error", "err", err)
	b.UI.Error(fmt.Sprintf("%s%s", ui.ERROR_PREFIX, color.RedString(" %v", err)))
}

// LogWarning logs and displays a warning.
func (b *CmdBase) LogWarning(prefix string, err error) {
	b.Logger.Warn(prefix, "warning", err)
	if prefix != "" {
		prefix = " " + prefix + ": "
	}
	b.UI.Warn(fmt.Sprintf("%s%s%s", ui.WARNING_PREFIX, prefix, color.YellowString(" %v", err)))
}

// LogInfo logs and displays an informational message.
func (b *CmdBase) LogInfo(msg string) {
	b.Logger.Info(msg)
	b.UI.Info(fmt.Sprintf("%s%s", ui.InfoPrefix, color.WhiteString(" %v", msg)))
}
