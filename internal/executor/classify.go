// Package executor is the hot path every shim invocation traverses:
// classify argv[0], resolve the active platform, ensure the needed
// distributions are fetched, compose PATH, and hand off to the real
// binary.
//
// Final hand-off uses syscall.Exec on Unix (process-image replacement;
// no wrapper process survives) and a wait-then-os.Exit fallback on
// Windows, where internal/process is used for subprocesses that must
// be waited on rather than exec'd into: package-manager installs and
// `npm view`.
package executor

import (
	"strings"

	"github.com/toolpin/toolpin/internal/binconfig"
	"github.com/toolpin/toolpin/internal/session"
)

// Kind discriminates what a shim invocation's argv[0] names.
type Kind int

const (
	KindNode Kind = iota
	KindNpm
	KindNpx
	KindPnpm
	KindPnpx
	KindYarn
	KindBypass
	KindProjectLocalBinary
	KindDefaultBinary
)

// Classification is the result of classifying one invocation.
type Classification struct {
	Kind Kind
	// Name holds the binary name for KindProjectLocalBinary/KindDefaultBinary.
	Name string
}

var runtimeTools = map[string]Kind{
	"node": KindNode,
	"npm":  KindNpm,
	"npx":  KindNpx,
	"pnpm": KindPnpm,
	"pnpx": KindPnpx,
	"yarn": KindYarn,
}

// Classify determines the Kind of a shim invocation from its argv[0]
// basename and the current session.
func Classify(s *session.Session, argv0Base string) (Classification, error) {
	if session.Bypass() {
		return Classification{Kind: KindBypass}, nil
	}
	name := strings.TrimSuffix(strings.TrimSuffix(argv0Base, ".exe"), ".cmd")
	if kind, ok := runtimeTools[name]; ok {
		if (kind == KindPnpm || kind == KindPnpx) && !session.PnpmEnabled() {
			return Classification{Kind: KindBypass}, nil
		}
		return Classification{Kind: kind}, nil
	}

	proj, err := s.Project()
	if err != nil {
		return Classification{}, err
	}
	if proj != nil {
		if _, isDep := proj.Dependencies[name]; isDep {
			if path, ok := findLocalBinInProject(proj, name); ok {
				return Classification{Kind: KindProjectLocalBinary, Name: path}, nil
			}
		}
	}

	if _, ok, err := binconfig.LoadBin(s.Layout, name); err == nil && ok {
		return Classification{Kind: KindDefaultBinary, Name: name}, nil
	} else if err != nil {
		return Classification{}, err
	}

	return Classification{Kind: KindDefaultBinary, Name: name}, nil
}
