// Package version models the four shapes a tool version request can take:
// an exact semver, a range constraint, a symbolic tag, or the absence of a
// request at all.
package version

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver"
)

// spaceAnd matches the whitespace between two space-separated AND
// comparators (">=16 <19"), which the constraint library only accepts
// comma-separated.
var spaceAnd = regexp.MustCompile(`([0-9A-Za-z*])\s+([<>=~^!])`)

// Tag is a symbolic, non-exact version request.
type Tag int

const (
	// Latest resolves to the newest available version.
	Latest Tag = iota
	// Lts resolves to the newest long-term-support version.
	Lts
	// Custom carries a user-defined tag name (e.g. a dist-tag like "next").
	Custom
)

// Kind discriminates which shape a Version value holds.
type Kind int

const (
	// KindNone means no version was requested.
	KindNone Kind = iota
	// KindExact holds a single resolved semver.
	KindExact
	// KindRange holds a semver constraint to be matched against an index.
	KindRange
	// KindTag holds a symbolic tag.
	KindTag
)

// Version is the sum type described above. Exactly one of the fields
// matching Kind is meaningful; callers should switch on Kind rather than
// checking fields directly.
type Version struct {
	Kind       Kind
	Exact      *semver.Version
	Range      *semver.Constraints
	RangeRaw   string
	Tag        Tag
	CustomName string
}

// None is the absence of a version request.
var None = Version{Kind: KindNone}

// IsNone reports whether v represents no request.
func (v Version) IsNone() bool {
	return v.Kind == KindNone
}

// EquivalentToLatest reports whether v should be treated the same way the
// Latest tag is: KindNone and Tag(Latest) are distinct inputs but resolve
// identically for most tools (spec data model note).
func (v Version) EquivalentToLatest() bool {
	if v.Kind == KindNone {
		return true
	}
	return v.Kind == KindTag && v.Tag == Latest
}

// ParseExact parses a string like "18.17.1" or "v18.17.1" into an exact
// version. Both forms parse identically.
func ParseExact(s string) (Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "v")
	sv, err := semver.NewVersion(trimmed)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return Version{Kind: KindExact, Exact: sv}, nil
}

// ParseRange parses a semver constraint string ("^18", ">=16 <19").
func ParseRange(s string) (Version, error) {
	c, err := semver.NewConstraint(spaceAnd.ReplaceAllString(s, "${1}, ${2}"))
	if err != nil {
		return Version{}, fmt.Errorf("invalid version range %q: %w", s, err)
	}
	return Version{Kind: KindRange, Range: c, RangeRaw: s}, nil
}

// ParseRequest parses a user-facing version request string, choosing
// between exact, range, and tag forms the way the CLI and project manifest
// parsers both need to.
func ParseRequest(s string) (Version, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return None, nil
	case "latest":
		return Version{Kind: KindTag, Tag: Latest}, nil
	case "lts":
		return Version{Kind: KindTag, Tag: Lts}, nil
	}
	if v, err := ParseExact(s); err == nil {
		return v, nil
	}
	if c, err := ParseRange(s); err == nil {
		return c, nil
	}
	return Version{Kind: KindTag, Tag: Custom, CustomName: s}, nil
}

// String renders the version the way it would appear in a manifest or log
// line.
func (v Version) String() string {
	switch v.Kind {
	case KindNone:
		return ""
	case KindExact:
		return v.Exact.String()
	case KindRange:
		return v.RangeRaw
	case KindTag:
		switch v.Tag {
		case Latest:
			return "latest"
		case Lts:
			return "lts"
		default:
			return v.CustomName
		}
	}
	return ""
}

// Matches reports whether an exact candidate version satisfies this
// version's constraint (ranges only; exact versions match by equality).
func (v Version) Matches(candidate *semver.Version) bool {
	switch v.Kind {
	case KindExact:
		return v.Exact.Equal(candidate)
	case KindRange:
		return v.Range.Check(candidate)
	default:
		return false
	}
}

// MarshalJSON renders an exact version as a bare semver string, matching
// the on-disk PlatformSpec/PackageConfig formats; non-exact versions
// never appear in persisted structures so they marshal as null.
func (v Version) MarshalJSON() ([]byte, error) {
	if v.Kind != KindExact || v.Exact == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v.Exact.String())
}

// UnmarshalJSON parses a bare semver string (or null) from a persisted
// PlatformSpec/PackageConfig/BinConfig file.
func (v *Version) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*v = None
		return nil
	}
	parsed, err := ParseExact(*s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
