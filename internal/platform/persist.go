package platform

import (
	"encoding/json"

	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/version"
)

// onDiskNode is the "node" sub-object of platform.json:
// the runtime version plus the npm version it was paired with when
// pinned, which may differ from npm's own independently-pinned version.
type onDiskNode struct {
	Runtime version.Version  `json:"runtime"`
	Npm     *version.Version `json:"npm"`
}

// onDiskPlatform mirrors platform.json's exact shape: a node object
// plus optional bare pnpm/yarn version strings.
type onDiskPlatform struct {
	Node *onDiskNode      `json:"node,omitempty"`
	Pnpm *version.Version `json:"pnpm,omitempty"`
	Yarn *version.Version `json:"yarn,omitempty"`
}

// LoadDefault reads the user default platform file, returning nil if it
// doesn't exist.
func LoadDefault(lo *layout.Layout) (*PlatformSpec, error) {
	data, ok, err := config.ReadJSONOptional(lo.UserPlatformFile())
	if err != nil || !ok {
		return nil, err
	}
	var onDisk onDiskPlatform
	if err := json.Unmarshal(data, &onDisk); err != nil {
		return nil, err
	}
	return fromOnDisk(&onDisk), nil
}

// SaveDefault atomically persists spec as the user's default platform.
func SaveDefault(lo *layout.Layout, spec *PlatformSpec) error {
	return config.WriteJSONAtomic(lo.UserPlatformFile(), toOnDisk(spec))
}

func fromOnDisk(d *onDiskPlatform) *PlatformSpec {
	spec := &PlatformSpec{}
	if d.Node != nil {
		spec.Node = &Sourced[version.Version]{Value: d.Node.Runtime, Source: OriginDefault}
		if d.Node.Npm != nil {
			spec.Npm = &Sourced[version.Version]{Value: *d.Node.Npm, Source: OriginDefault}
		}
	}
	if d.Pnpm != nil {
		spec.Pnpm = &Sourced[version.Version]{Value: *d.Pnpm, Source: OriginDefault}
	}
	if d.Yarn != nil {
		spec.Yarn = &Sourced[version.Version]{Value: *d.Yarn, Source: OriginDefault}
	}
	return spec
}

func toOnDisk(spec *PlatformSpec) *onDiskPlatform {
	if spec == nil || spec.Node == nil {
		return &onDiskPlatform{}
	}
	d := &onDiskPlatform{Node: &onDiskNode{Runtime: spec.Node.Value}}
	if spec.Npm != nil {
		v := spec.Npm.Value
		d.Node.Npm = &v
	}
	if spec.Pnpm != nil {
		v := spec.Pnpm.Value
		d.Pnpm = &v
	}
	if spec.Yarn != nil {
		v := spec.Yarn.Value
		d.Yarn = &v
	}
	return d
}
