package executor

import (
	"strings"

	"github.com/toolpin/toolpin/internal/packagemanager"
	"github.com/toolpin/toolpin/internal/util"
)

// InterceptKind discriminates which global-install-interception shape
// matched an argument vector.
type InterceptKind int

const (
	InterceptNone InterceptKind = iota
	InterceptInstall
	InterceptUninstall
	InterceptLink
)

// Intercept matches args (everything after argv[0]) against the
// install/uninstall shapes for the given package manager slug. Names
// is the list of package specs/names with the verb and global flag
// stripped out.
func Intercept(slug packagemanager.Slug, args []string) (InterceptKind, []string) {
	if names, ok := matchPattern(packagemanager.InstallPatterns[slug], args); ok {
		return InterceptInstall, names
	}
	if names, ok := matchPattern(packagemanager.UninstallPatterns[slug], args); ok {
		return InterceptUninstall, names
	}
	if slug == packagemanager.Npm && len(args) > 0 && args[0] == "link" {
		return InterceptLink, filterFlags(args[1:])
	}
	return InterceptNone, nil
}

// matchPattern checks whether args begins with one of pattern's verbs
// (which may be multi-word, like yarn's "global add"), optionally
// followed by a global flag when the pattern requires one, returning
// the remaining arguments as package names/specs.
func matchPattern(pattern packagemanager.ArgvPattern, args []string) ([]string, bool) {
	for _, verb := range pattern.Verbs {
		verbTokens := strings.Fields(verb)
		if len(args) < len(verbTokens) {
			continue
		}
		matched := true
		for i, tok := range verbTokens {
			if args[i] != tok {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		rest := args[len(verbTokens):]
		if pattern.RequiresGlobalFlag {
			var ok bool
			rest, ok = stripGlobalFlag(rest, pattern.GlobalFlags)
			if !ok {
				continue
			}
		}
		names := filterFlags(rest)
		if len(names) == 0 {
			continue
		}
		return names, true
	}
	return nil, false
}

func stripGlobalFlag(args []string, flags []string) ([]string, bool) {
	flagSet := util.SetFromStrings(flags)
	found := false
	var rest []string
	for _, a := range args {
		if flagSet.Includes(a) {
			found = true
			continue
		}
		rest = append(rest, a)
	}
	return rest, found
}

// filterFlags drops any remaining dash-prefixed flags, leaving only
// package names/specs.
func filterFlags(args []string) []string {
	var names []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			continue
		}
		names = append(names, a)
	}
	return names
}
