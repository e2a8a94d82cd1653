// Package hook implements user-configurable overrides for how tool
// archive URLs, index URLs, and event publication are resolved.
package hook

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/toolpin/toolpin/internal/config"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/turbopath"
	"gopkg.in/yaml.v3"
)

// ProjectLocalFilename is the project-root hooks override file, layered
// over the home-level hooks.json with project-local slots winning.
const ProjectLocalFilename = ".toolpin-hooks.json"

// LoadProjectLocal reads a project-local hooks override file from the
// given workspace root, returning nil if none exists.
func LoadProjectLocal(root turbopath.AbsoluteSystemPath) (*Config, error) {
	path := root.Join(turbopath.RelativeSystemPathFromUpstream(ProjectLocalFilename))
	data, ok, err := config.ReadJSONOptional(path)
	if err != nil || !ok {
		return nil, err
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ProjectLocalFilename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolver is one of the three hook shapes. Exactly one field must be set.
type Resolver struct {
	Prefix   string `json:"prefix,omitempty"`
	Template string `json:"template,omitempty"`
	Bin      string `json:"bin,omitempty"`
}

// Validate enforces "exactly one of prefix/template/bin".
func (r *Resolver) Validate() error {
	set := 0
	if r.Prefix != "" {
		set++
	}
	if r.Template != "" {
		set++
	}
	if r.Bin != "" {
		set++
	}
	switch set {
	case 0:
		return fmt.Errorf("hook resolver: no fields specified")
	case 1:
		return nil
	default:
		return fmt.Errorf("hook resolver: multiple fields specified")
	}
}

// Resolve computes the URL this resolver yields for the given tool/os/
// arch/version, or runs the configured command for the Bin shape.
func (r *Resolver) Resolve(defaultFilename, osName, arch, version string) (string, error) {
	switch {
	case r.Prefix != "":
		return r.Prefix + defaultFilename, nil
	case r.Template != "":
		out := r.Template
		out = strings.ReplaceAll(out, "{{os}}", osName)
		out = strings.ReplaceAll(out, "{{arch}}", arch)
		out = strings.ReplaceAll(out, "{{version}}", version)
		return out, nil
	case r.Bin != "":
		cmd := exec.Command("sh", "-c", r.Bin+" "+version)
		out, err := cmd.Output()
		if err != nil {
			return "", fmt.Errorf("hook command %q: %w", r.Bin, err)
		}
		return strings.TrimSpace(string(out)), nil
	default:
		return "", fmt.Errorf("hook resolver: no fields specified")
	}
}

// ToolHooks holds the distro/latest/index slots for one tool.
type ToolHooks struct {
	Distro *Resolver `json:"distro,omitempty"`
	Latest *Resolver `json:"latest,omitempty"`
	Index  *Resolver `json:"index,omitempty"`
	// Format distinguishes yarn's index hook between the default npm
	// registry shape and a legacy GitHub Releases shape.
	Format string `json:"format,omitempty"`
}

// EventsHooks configures event publication. It is not a Resolver: it
// takes a bare url or bin, never prefix/template.
type EventsHooks struct {
	Publish *PublishHook `json:"publish,omitempty"`
}

// PublishHook carries either a URL to POST to or a command to pipe into.
type PublishHook struct {
	URL string `json:"url,omitempty"`
	Bin string `json:"bin,omitempty"`
}

// Validate enforces "url or bin, not both" for the publish hook.
func (p *PublishHook) Validate() error {
	if p.URL != "" && p.Bin != "" {
		return fmt.Errorf("events.publish hook: both url and bin specified")
	}
	if p.URL == "" && p.Bin == "" {
		return fmt.Errorf("events.publish hook: no fields specified")
	}
	return nil
}

// Config is the full hooks.json document.
type Config struct {
	Node   *ToolHooks   `json:"node,omitempty"`
	Npm    *ToolHooks   `json:"npm,omitempty"`
	Pnpm   *ToolHooks   `json:"pnpm,omitempty"`
	Yarn   *ToolHooks   `json:"yarn,omitempty"`
	Events *EventsHooks `json:"events,omitempty"`
}

// Validate walks every configured resolver and fails fast on the first
// invalid one ("all fatal at load time").
func (c *Config) Validate() error {
	for name, th := range map[string]*ToolHooks{"node": c.Node, "npm": c.Npm, "pnpm": c.Pnpm, "yarn": c.Yarn} {
		if th == nil {
			continue
		}
		for slot, r := range map[string]*Resolver{"distro": th.Distro, "latest": th.Latest, "index": th.Index} {
			if r == nil {
				continue
			}
			if err := r.Validate(); err != nil {
				return fmt.Errorf("%s.%s: %w", name, slot, err)
			}
		}
	}
	if c.Events != nil && c.Events.Publish != nil {
		if err := c.Events.Publish.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Load reads hooks.json from the home, falling back to hooks.yaml, and
// returning an empty (all-nil) Config if neither exists — absence is
// never an error.
func Load(lo *layout.Layout) (*Config, error) {
	cfg := &Config{}
	data, ok, err := config.ReadJSONOptional(lo.HooksFile())
	if err != nil {
		return nil, err
	}
	switch {
	case ok:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing hooks.json: %w", err)
		}
	default:
		data, ok, err = config.ReadJSONOptional(lo.HooksYamlFile())
		if err != nil {
			return nil, err
		}
		if !ok {
			return cfg, nil
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing hooks.yaml: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save atomically writes the hooks configuration back to the home.
func Save(lo *layout.Layout, cfg *Config) error {
	return config.WriteJSONAtomic(lo.HooksFile(), cfg)
}

// MergeProjectLocal layers a project-local hooks file (if any) over the
// home-level one: project-local slots win, following the same
// first-non-None-wins precedence used for platform merging.
func MergeProjectLocal(base *Config, local *Config) *Config {
	if local == nil {
		return base
	}
	merged := *base
	if local.Node != nil {
		merged.Node = local.Node
	}
	if local.Npm != nil {
		merged.Npm = local.Npm
	}
	if local.Pnpm != nil {
		merged.Pnpm = local.Pnpm
	}
	if local.Yarn != nil {
		merged.Yarn = local.Yarn
	}
	if local.Events != nil {
		merged.Events = local.Events
	}
	return &merged
}
