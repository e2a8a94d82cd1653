package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/hashicorp/go-hclog"
	"github.com/toolpin/toolpin/internal/toolerr"
)

// PackageEntry is one resolved npm package metadata record: version plus
// the dist-tags the registry publishes alongside it.
type PackageEntry struct {
	Name     string            `json:"name"`
	Version  string            `json:"version"`
	Dist     json.RawMessage   `json:"dist,omitempty"`
	DistTags map[string]string `json:"-"`
}

func (e PackageEntry) semver() *semver.Version {
	v, err := semver.NewVersion(strings.TrimPrefix(e.Version, "v"))
	if err != nil {
		return nil
	}
	return v
}

// NpmClient resolves npm (and Yarn-classic, and 3rd-party package)
// metadata by spawning `npm view --json`, delegating all of .npmrc's
// registry/auth/proxy behavior to the active npm binary.
type NpmClient struct {
	Logger hclog.Logger
	// NpmPath is the absolute path to the npm binary to run under;
	// callers resolve this from the active platform before calling.
	NpmPath string
}

// NewNpmClient constructs a client that shells out to the given npm
// binary.
func NewNpmClient(logger hclog.Logger, npmPath string) *NpmClient {
	return &NpmClient{Logger: logger, NpmPath: npmPath}
}

// View runs `npm view --json <name>@<spec>` and parses either shape the
// response can take: a single object for an exact version, or an array
// for a range — both are normalized into a newest-first slice.
func (c *NpmClient) View(ctx context.Context, name, spec string) ([]PackageEntry, error) {
	target := name
	if spec != "" {
		target = name + "@" + spec
	}
	c.Logger.Debug("npm view", "target", target, "npm", c.NpmPath)
	cmd := exec.CommandContext(ctx, c.NpmPath, "view", "--json", target)
	out, err := cmd.Output()
	if err != nil {
		return nil, toolerr.Withf(toolerr.Network, err, "npm view %s failed", target)
	}
	entries, err := parseNpmViewOutput(out)
	if err != nil {
		return nil, toolerr.Withf(toolerr.Configuration, err, "parsing npm view output for %s", target)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		vi, vj := entries[i].semver(), entries[j].semver()
		if vi == nil || vj == nil {
			return false
		}
		return vi.GreaterThan(vj)
	})
	if len(entries) == 0 {
		return nil, toolerr.New(toolerr.NoVersionMatch, fmt.Sprintf("no versions of %s matched %q", name, spec), nil)
	}
	return entries, nil
}

// parseNpmViewOutput handles both the single-object (exact version) and
// array (range match) response shapes npm view --json can return.
func parseNpmViewOutput(out []byte) ([]PackageEntry, error) {
	trimmed := bytes.TrimLeft(out, " \n\t\r")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []PackageEntry
		if err := json.Unmarshal(out, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	var single PackageEntry
	if err := json.Unmarshal(out, &single); err != nil {
		return nil, err
	}
	if single.Version == "" {
		return nil, nil
	}
	return []PackageEntry{single}, nil
}

// DistTags runs `npm view --json <name> dist-tags` to resolve a
// symbolic tag to a concrete version string.
func (c *NpmClient) DistTags(ctx context.Context, name string) (map[string]string, error) {
	cmd := exec.CommandContext(ctx, c.NpmPath, "view", "--json", name, "dist-tags")
	out, err := cmd.Output()
	if err != nil {
		return nil, toolerr.Withf(toolerr.Network, err, "npm view %s dist-tags failed", name)
	}
	tags := map[string]string{}
	if err := json.Unmarshal(out, &tags); err != nil {
		return nil, toolerr.Withf(toolerr.Configuration, err, "parsing dist-tags for %s", name)
	}
	return tags, nil
}
