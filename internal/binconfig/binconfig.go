// Package binconfig persists the per-package and per-binary install
// records, PackageConfig and BinConfig: what was installed,
// at which exact version, under which platform, by which package
// manager, and (for PackageConfig) which bin names it produced.
package binconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/packagemanager"
	"github.com/toolpin/toolpin/internal/platform"
	"github.com/toolpin/toolpin/internal/version"
)

// onDiskPlatform mirrors platform.json's node/npm/pnpm/yarn shape for
// embedding inside a BinConfig/PackageConfig file.
type onDiskPlatform struct {
	Node version.Version  `json:"node"`
	Npm  *version.Version `json:"npm,omitempty"`
	Pnpm *version.Version `json:"pnpm,omitempty"`
	Yarn *version.Version `json:"yarn,omitempty"`
}

func platformToDisk(spec *platform.PlatformSpec) onDiskPlatform {
	if spec == nil || spec.Node == nil {
		return onDiskPlatform{}
	}
	d := onDiskPlatform{Node: spec.Node.Value}
	if spec.Npm != nil {
		v := spec.Npm.Value
		d.Npm = &v
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

func platformFromDisk(d onDiskPlatform) *platform.PlatformSpec {
	spec := &platform.PlatformSpec{
		Node: &platform.Sourced[version.Version]{Value: d.Node, Source: platform.OriginBinary},
	}
	if d.Npm != nil {
		spec.Npm = &platform.Sourced[version.Version]{Value: *d.Npm, Source: platform.OriginBinary}
	}
	if d.Pnpm != nil {
		spec.Pnpm = &platform.Sourced[version.Version]{Value: *d.Pnpm, Source: platform.OriginBinary}
	}
	if d.Yarn != nil {
		spec.Yarn = &platform.Sourced[version.Version]{Value: *d.Yarn, Source: platform.OriginBinary}
	}
	return spec
}

// PackageConfig is one installed global package.
type PackageConfig struct {
	Name     string              `json:"name"`
	Version  version.Version     `json:"version"`
	Platform onDiskPlatform      `json:"platform"`
	Bins     []string            `json:"bins"`
	Manager  packagemanager.Slug `json:"manager"`
}

// ResolvedPlatform returns the package's installed platform as a
// *platform.PlatformSpec sourced from Binary.
func (p *PackageConfig) ResolvedPlatform() *platform.PlatformSpec {
	return platformFromDisk(p.Platform)
}

// BinConfig is one generated shim's provenance.
type BinConfig struct {
	Name     string              `json:"name"`
	Package  string              `json:"package"`
	Version  version.Version     `json:"version"`
	Platform onDiskPlatform      `json:"platform"`
	Manager  packagemanager.Slug `json:"manager"`
}

// ResolvedPlatform returns the bin's platform as a *platform.PlatformSpec
// sourced from Binary, with any missing yarn filled from def.
func (b *BinConfig) ResolvedPlatform(def *platform.PlatformSpec) *platform.PlatformSpec {
	spec := platformFromDisk(b.Platform)
	if spec.Yarn == nil && def != nil && def.Yarn != nil {
		spec.Yarn = def.Yarn
	}
	return spec
}

// NewPackageConfig constructs a PackageConfig from a resolved install.
func NewPackageConfig(name string, v version.Version, installPlatform *platform.PlatformSpec, bins []string, manager packagemanager.Slug) *PackageConfig {
	return &PackageConfig{
		Name:     name,
		Version:  v,
		Platform: platformToDisk(installPlatform),
		Bins:     bins,
		Manager:  manager,
	}
}

// NewBinConfig constructs a BinConfig for one of a package's bins.
func NewBinConfig(name, pkg string, v version.Version, installPlatform *platform.PlatformSpec, manager packagemanager.Slug) *BinConfig {
	return &BinConfig{
		Name:     name,
		Package:  pkg,
		Version:  v,
		Platform: platformToDisk(installPlatform),
		Manager:  manager,
	}
}

// LoadPackage reads a package's config, returning ok=false if absent.
func LoadPackage(lo *layout.Layout, name string) (*PackageConfig, bool, error) {
	data, ok, err := config.ReadJSONOptional(lo.UserPackageConfigFile(name))
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg := &PackageConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, false, fmt.Errorf("parsing package config for %s: %w", name, err)
	}
	return cfg, true, nil
}

// SavePackage atomically persists a package's config.
func SavePackage(lo *layout.Layout, cfg *PackageConfig) error {
	return config.WriteJSONAtomic(lo.UserPackageConfigFile(cfg.Name), cfg)
}

// DeletePackage removes a package's config file.
func DeletePackage(lo *layout.Layout, name string) error {
	return config.Remove(lo.UserPackageConfigFile(name))
}

// LoadBin reads a bin's config, returning ok=false if absent.
func LoadBin(lo *layout.Layout, name string) (*BinConfig, bool, error) {
	data, ok, err := config.ReadJSONOptional(lo.UserBinConfigFile(name))
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg := &BinConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, false, fmt.Errorf("parsing bin config for %s: %w", name, err)
	}
	return cfg, true, nil
}

// SaveBin atomically persists a bin's config.
func SaveBin(lo *layout.Layout, cfg *BinConfig) error {
	return config.WriteJSONAtomic(lo.UserBinConfigFile(cfg.Name), cfg)
}

// DeleteBin removes a bin's config file.
func DeleteBin(lo *layout.Layout, name string) error {
	return config.Remove(lo.UserBinConfigFile(name))
}

// ListBins enumerates every bin name with a persisted BinConfig, used by
// the shim generator to regenerate the union of default tools and
// package-installed bins.
func ListBins(lo *layout.Layout) ([]string, error) {
	entries, err := os.ReadDir(lo.UserBinsDir().ToString())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		const suffix = ".json"
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			names = append(names, name[:len(name)-len(suffix)])
		}
	}
	return names, nil
}
