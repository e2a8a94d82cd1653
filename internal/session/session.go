// Package session holds the process-scoped, lazily-loaded state every
// shim invocation and management command shares: the current project
// (if any), the user default platform, the hook configuration, and the
// event log that gets published on exit.
package session

import (
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/event"
	"github.com/toolpin/toolpin/internal/hook"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/platform"
	"github.com/toolpin/toolpin/internal/project"
	"github.com/toolpin/toolpin/internal/turbopath"
)

// BypassEnvVar forces every shim to pass through to the first non-shim
// binary on PATH, regardless of platform resolution.
const BypassEnvVar = "TOOLPIN_BYPASS"

// RecursionEnvVar guards against a shim re-entering itself through a
// misconfigured PATH.
const RecursionEnvVar = "_TOOLPIN_TOOL_RECURSION"

// PnpmFeatureEnvVar gates pnpm dispatch; while unset, a pnpm shim
// passes through to whatever pnpm the rest of PATH provides.
const PnpmFeatureEnvVar = "TOOLPIN_FEATURE_PNPM"

// Session is process-scoped and single-threaded: exactly one goroutine
// ever calls into it over its lifetime, so the once-guards below are
// about idempotence, not races.
type Session struct {
	Layout *layout.Layout
	Logger hclog.Logger
	Events *event.Log

	cwd turbopath.AbsoluteSystemPath

	projectOnce sync.Once
	project     *project.Project
	projectErr  error

	defaultOnce     sync.Once
	defaultPlatform *platform.PlatformSpec
	defaultErr      error

	hooksOnce sync.Once
	hooks     *hook.Config
	hooksErr  error
}

// New constructs a Session rooted at the current working directory.
func New(lo *layout.Layout, logger hclog.Logger) *Session {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Session{
		Layout: lo,
		Logger: logger,
		Events: event.New(),
		cwd:    turbopath.AbsoluteSystemPathFromUpstream(cwd),
	}
}

// Bypass reports whether TOOLPIN_BYPASS is set, short-circuiting all
// dispatch.
func Bypass() bool {
	env, err := config.Env()
	return err == nil && env.Bypass != ""
}

// PnpmEnabled reports whether pnpm dispatch is switched on.
func PnpmEnabled() bool {
	env, err := config.Env()
	return err == nil && env.FeaturePnpm != ""
}

// Project lazily loads the nearest project, caching both success and
// failure: a directory with no package.json above it is not a project,
// not an error callers need to keep re-deriving.
func (s *Session) Project() (*project.Project, error) {
	s.projectOnce.Do(func() {
		s.project, s.projectErr = project.Load(s.cwd)
		if s.projectErr != nil {
			s.Logger.Debug("no project found", "cwd", s.cwd.ToString(), "error", s.projectErr)
			s.projectErr = nil
		}
	})
	return s.project, s.projectErr
}

// DefaultPlatform lazily loads the user's global default platform file.
// A missing file is absent, not an error.
func (s *Session) DefaultPlatform() (*platform.PlatformSpec, error) {
	s.defaultOnce.Do(func() {
		s.defaultPlatform, s.defaultErr = platform.LoadDefault(s.Layout)
	})
	return s.defaultPlatform, s.defaultErr
}

// Hooks lazily loads and merges the home-level and project-local hook
// configuration.
func (s *Session) Hooks() (*hook.Config, error) {
	s.hooksOnce.Do(func() {
		base, err := hook.Load(s.Layout)
		if err != nil {
			s.hooksErr = err
			return
		}
		proj, _ := s.Project()
		if proj == nil {
			s.hooks = base
			return
		}
		local, err := hook.LoadProjectLocal(proj.ManifestFile.Dir())
		if err != nil {
			s.hooksErr = err
			return
		}
		s.hooks = hook.MergeProjectLocal(base, local)
	})
	return s.hooks, s.hooksErr
}

// Close publishes the accumulated event log, if a hook is configured,
// and is safe to call unconditionally at process exit.
func (s *Session) Close() error {
	hooks, err := s.Hooks()
	if err != nil || hooks == nil {
		return nil
	}
	return s.Events.Publish(s.Logger, hooks.Events)
}
