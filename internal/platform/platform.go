// Package platform implements the PlatformSpec data model and its
// layered precedence resolver: CLI overrides beat the project's pinned
// platform, which beats the user default, which beats a binary's own
// recorded platform.
package platform

import (
	"fmt"

	"github.com/toolpin/toolpin/internal/version"
)

// Origin is where a Sourced value came from; used for logging and for
// the strict CLI > Project > Default > Binary precedence tie-break.
type Origin int

const (
	// OriginDefault means the value came from the user-global default
	// platform.
	OriginDefault Origin = iota
	// OriginProject means the value came from a project manifest.
	OriginProject
	// OriginBinary means the value came from a BinConfig.
	OriginBinary
	// OriginCommandLine means the value was given on the command line.
	OriginCommandLine
)

func (o Origin) String() string {
	switch o {
	case OriginDefault:
		return "default"
	case OriginProject:
		return "project"
	case OriginBinary:
		return "binary"
	case OriginCommandLine:
		return "command-line"
	default:
		return "unknown"
	}
}

// Sourced pairs a value with the layer it was resolved from.
type Sourced[V any] struct {
	Value  V
	Source Origin
}

// PlatformSpec is the pinned versions of node (required) and the
// optional package managers. A PlatformSpec without Node cannot exist as
// a *resolved, active* platform, but a partial spec (e.g. one extends
// layer) may have a nil Node pending a merge from its parent.
type PlatformSpec struct {
	Node *Sourced[version.Version]
	Npm  *Sourced[version.Version]
	Pnpm *Sourced[version.Version]
	Yarn *Sourced[version.Version]
}

// ParseSpec builds a PlatformSpec from the raw strings found in a project
// manifest's toolpin section; missing fields are nil, not zero values.
func ParseSpec(node, npm, pnpm, yarn string) (*PlatformSpec, error) {
	spec := &PlatformSpec{}
	var err error
	if spec.Node, err = sourcedField(node, OriginProject); err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}
	if spec.Npm, err = sourcedField(npm, OriginProject); err != nil {
		return nil, fmt.Errorf("npm: %w", err)
	}
	if spec.Pnpm, err = sourcedField(pnpm, OriginProject); err != nil {
		return nil, fmt.Errorf("pnpm: %w", err)
	}
	if spec.Yarn, err = sourcedField(yarn, OriginProject); err != nil {
		return nil, fmt.Errorf("yarn: %w", err)
	}
	return spec, nil
}

func sourcedField(raw string, origin Origin) (*Sourced[version.Version], error) {
	if raw == "" {
		return nil, nil
	}
	v, err := version.ParseExact(raw)
	if err != nil {
		return nil, err
	}
	return &Sourced[version.Version]{Value: v, Source: origin}, nil
}

// MergeExtends layers an outer (parent) PlatformSpec under an inner
// (child) one, "first non-None wins" with the inner winning ties:
// every field present on inner is kept; any field absent on inner is
// filled from outer.
func MergeExtends(inner, outer *PlatformSpec) *PlatformSpec {
	if inner == nil {
		return outer
	}
	if outer == nil {
		return inner
	}
	merged := *inner
	if merged.Node == nil {
		merged.Node = outer.Node
	}
	if merged.Npm == nil {
		merged.Npm = outer.Npm
	}
	if merged.Pnpm == nil {
		merged.Pnpm = outer.Pnpm
	}
	if merged.Yarn == nil {
		merged.Yarn = outer.Yarn
	}
	return &merged
}
