package platform

import "github.com/toolpin/toolpin/internal/version"

// FieldState is the three-state value a CLI override needs for one tool
// field: explicitly set, explicitly cleared, or left alone. This is
// distinct from a plain nil/non-nil Option and must not be collapsed to
// one.
type FieldState int

const (
	// Inherit leaves the resolved base value untouched.
	Inherit FieldState = iota
	// Clear removes a field even if the base had it set.
	Clear
	// Set supplies an explicit command-line value.
	Set
)

// CliField is one command-line-overridable platform field.
type CliField struct {
	State FieldState
	Value version.Version
}

// CliPlatform is the command-line override layer: each field
// independently Inherit/Clear/Set, never a bare Option.
type CliPlatform struct {
	Node CliField
	Npm  CliField
	Pnpm CliField
	Yarn CliField
}

func (f CliField) apply(base *Sourced[version.Version]) *Sourced[version.Version] {
	switch f.State {
	case Set:
		return &Sourced[version.Version]{Value: f.Value, Source: OriginCommandLine}
	case Clear:
		return nil
	default:
		return base
	}
}

// Resolve computes the active platform.
//
//  1. If a project platform exists, start from it (fields sourced Project).
//  2. If that platform lacks npm or yarn, and a default platform is
//     present, fill those specific holes from the default (sourced
//     Default). node is never filled from default when the project pins
//     node.
//  3. Otherwise, if there is no project or the project has no platform,
//     use the default platform (fields sourced Default).
//  4. Overlay the CliPlatform: Set wins, Clear removes, Inherit leaves
//     the resolved value.
func Resolve(project *PlatformSpec, def *PlatformSpec, cli CliPlatform) *PlatformSpec {
	var base PlatformSpec
	switch {
	case project != nil:
		base = *project
		if def != nil {
			if base.Npm == nil {
				base.Npm = def.Npm
			}
			if base.Yarn == nil {
				base.Yarn = def.Yarn
			}
		}
	case def != nil:
		base = *def
	}

	base.Node = cli.Node.apply(base.Node)
	base.Npm = cli.Npm.apply(base.Npm)
	base.Pnpm = cli.Pnpm.apply(base.Pnpm)
	base.Yarn = cli.Yarn.apply(base.Yarn)
	return &base
}

// ResolveForBinary resolves the platform for a DefaultBinary shim
// invocation: the PlatformSpec recorded in the binary's BinConfig
// (sourced Binary), with any missing yarn filled from the default
// platform — legacy support for tools that internally invoke yarn.
func ResolveForBinary(binConfig *PlatformSpec, def *PlatformSpec) *PlatformSpec {
	if binConfig == nil {
		return def
	}
	merged := *binConfig
	if merged.Yarn == nil && def != nil {
		merged.Yarn = def.Yarn
	}
	return &merged
}
