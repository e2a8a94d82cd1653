// Package packagemanager classifies the delegated package manager
// (npm, yarn classic, yarn berry, pnpm, bun) and describes the argv/env
// shape each one needs for a sandboxed global install or uninstall.
package packagemanager

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
)

// Slug names one of the five delegated package managers.
type Slug string

const (
	Npm        Slug = "npm"
	Yarn       Slug = "yarn"
	YarnBerry  Slug = "yarn-berry"
	Pnpm       Slug = "pnpm"
	Bun        Slug = "bun"
)

// Manager describes one delegated package manager's command shape.
type Manager struct {
	Slug    Slug
	Command string

	// GlobalInstallArgs returns the argv (after Command) that performs a
	// global install of the given package specs.
	GlobalInstallArgs func(specs []string) []string
	// GlobalUninstallArgs returns the argv for a global uninstall.
	GlobalUninstallArgs func(names []string) []string
	// GlobalInstallEnv returns the extra environment variables (as
	// "KEY=VALUE" strings) needed to redirect a global install into a
	// staging prefix.
	GlobalInstallEnv func(stagingDir, stagingBinDir string) []string
	// GlobalDirFlags returns extra argv flags pointing the manager's
	// global store into the staging prefix, for managers that take the
	// redirect as flags rather than environment variables.
	GlobalDirFlags func(stagingDir, stagingBinDir string) []string
	// ExtraPath returns directories that must be prepended to PATH for
	// the global install subprocess (pnpm needs its own staged bin dir
	// first on PATH or it refuses to run).
	ExtraPath func(stagingBinDir string) []string
}

var managers = map[Slug]*Manager{
	Npm: {
		Slug:    Npm,
		Command: "npm",
		GlobalInstallArgs: func(specs []string) []string {
			return append([]string{"install", "--global"}, specs...)
		},
		GlobalUninstallArgs: func(names []string) []string {
			return append([]string{"uninstall", "--global"}, names...)
		},
		GlobalInstallEnv: func(stagingDir, _ string) []string {
			return []string{"npm_config_prefix=" + stagingDir}
		},
	},
	Yarn: {
		Slug:    Yarn,
		Command: "yarn",
		GlobalInstallArgs: func(specs []string) []string {
			return append([]string{"global", "add"}, specs...)
		},
		GlobalUninstallArgs: func(names []string) []string {
			return append([]string{"global", "remove"}, names...)
		},
		GlobalInstallEnv: func(stagingDir, _ string) []string {
			return []string{
				"npm_config_prefix=" + stagingDir,
				"npm_config_global_folder=" + stagingDir + "/lib",
			}
		},
	},
	YarnBerry: {
		Slug:    YarnBerry,
		Command: "yarn",
		GlobalInstallArgs: func(specs []string) []string {
			return append([]string{"global", "add"}, specs...)
		},
		GlobalUninstallArgs: func(names []string) []string {
			return append([]string{"global", "remove"}, names...)
		},
		GlobalInstallEnv: func(stagingDir, _ string) []string {
			return []string{
				"npm_config_prefix=" + stagingDir,
				"npm_config_global_folder=" + stagingDir + "/lib",
			}
		},
	},
	Pnpm: {
		Slug:    Pnpm,
		Command: "pnpm",
		GlobalInstallArgs: func(specs []string) []string {
			return append([]string{"add", "--global"}, specs...)
		},
		GlobalUninstallArgs: func(names []string) []string {
			return append([]string{"remove", "--global"}, names...)
		},
		GlobalInstallEnv: func(stagingDir, stagingBinDir string) []string {
			return []string{
				"PNPM_HOME=" + stagingBinDir,
				// pnpm's global-dir subdirectory is hard-coded as "5" (its
				// v5-era on-disk layout) in packageinstall's staging search
				// roots; pnpm does not expose the real value to detect.
				// TODO: detect this once pnpm exposes its global store layout version.
			}
		},
		GlobalDirFlags: func(stagingDir, stagingBinDir string) []string {
			return []string{"--global-dir", stagingDir, "--global-bin-dir", stagingBinDir}
		},
		ExtraPath: func(stagingBinDir string) []string {
			return []string{stagingBinDir}
		},
	},
	Bun: {
		Slug:    Bun,
		Command: "bun",
		GlobalInstallArgs: func(specs []string) []string {
			return append([]string{"add", "--global"}, specs...)
		},
		GlobalUninstallArgs: func(names []string) []string {
			return append([]string{"remove", "--global"}, names...)
		},
		GlobalInstallEnv: func(stagingDir, _ string) []string {
			return []string{"BUN_INSTALL=" + stagingDir}
		},
	},
}

// Get looks up a manager by slug.
func Get(slug Slug) (*Manager, bool) {
	m, ok := managers[slug]
	return m, ok
}

// ClassifyYarn distinguishes yarn classic (<2.0.0-0) from yarn berry
// (>=2.0.0-0) given an installed `yarn --version` string.
func ClassifyYarn(version string) (Slug, error) {
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return "", fmt.Errorf("could not parse yarn version %q: %w", version, err)
	}
	berry, err := semver.NewConstraint(">=2.0.0-0")
	if err != nil {
		return "", err
	}
	if berry.Check(v) {
		return YarnBerry, nil
	}
	return Yarn, nil
}

// ArgvPattern describes one alias set the executor matches a shim
// invocation's argument vector against: a leading verb from Verbs,
// optionally followed by a global flag, then the package names.
type ArgvPattern struct {
	Verbs       []string
	GlobalFlags []string
	// RequiresGlobalFlag is false for yarn, whose "global add"/"global
	// remove" verbs are unambiguous without a separate -g/--global flag.
	RequiresGlobalFlag bool
}

// InstallPatterns and UninstallPatterns are the per-manager argv shapes
// that global install interception recognizes.
var InstallPatterns = map[Slug]ArgvPattern{
	Npm:       {Verbs: []string{"install", "i", "add", "isntall"}, GlobalFlags: []string{"-g", "--global"}, RequiresGlobalFlag: true},
	Yarn:      {Verbs: []string{"global add"}},
	YarnBerry: {Verbs: []string{"global add"}},
	Pnpm:      {Verbs: []string{"add", "install", "i"}, GlobalFlags: []string{"-g", "--global"}, RequiresGlobalFlag: true},
	Bun:       {Verbs: []string{"add"}, GlobalFlags: []string{"-g", "--global"}, RequiresGlobalFlag: true},
}

var UninstallPatterns = map[Slug]ArgvPattern{
	Npm:       {Verbs: []string{"uninstall", "unlink", "remove", "rm", "r"}, GlobalFlags: []string{"-g", "--global"}, RequiresGlobalFlag: true},
	Yarn:      {Verbs: []string{"global remove"}},
	YarnBerry: {Verbs: []string{"global remove"}},
	Pnpm:      {Verbs: []string{"remove", "uninstall", "un", "rm", "r"}, GlobalFlags: []string{"-g", "--global"}, RequiresGlobalFlag: true},
	Bun:       {Verbs: []string{"remove"}, GlobalFlags: []string{"-g", "--global"}, RequiresGlobalFlag: true},
}
