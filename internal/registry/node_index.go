// Package registry resolves version requests against the upstream
// distributors: the Node distribution index, the npm registry (via
// `npm view`), and GitHub Releases for classic Yarn.
package registry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/toolpin/toolpin/internal/layout"
	"github.com/toolpin/toolpin/internal/toolerr"
)

// DefaultNodeIndexURL is the public Node distribution index, overridable
// via a node.index hook.
const DefaultNodeIndexURL = "https://nodejs.org/dist/index.json"

// defaultIndexTTL is the fallback cache lifetime when the response
// carries no Cache-Control: max-age.
const defaultIndexTTL = 4 * time.Hour

// NodeRelease is one entry of the Node distribution index: version,
// npm, lts flag, files.
type NodeRelease struct {
	Version string   `json:"version"`
	Npm     string   `json:"npm,omitempty"`
	LTS     LTSField `json:"lts"`
	Files   []string `json:"files"`
}

// LTSField is either false or the LTS codename string; the upstream
// index mixes both shapes in the same field.
type LTSField struct {
	Name string
	Set  bool
}

func (l *LTSField) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		l.Set = b
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	l.Name = s
	l.Set = s != ""
	return nil
}

func (l LTSField) MarshalJSON() ([]byte, error) {
	if l.Name != "" {
		return json.Marshal(l.Name)
	}
	return json.Marshal(l.Set)
}

// semver returns the release's parsed version, or nil if unparsable
// (the index sometimes carries pre-1.0 io.js-era entries).
func (r NodeRelease) semver() *semver.Version {
	v, err := semver.NewVersion(strings.TrimPrefix(r.Version, "v"))
	if err != nil {
		return nil
	}
	return v
}

// NodeClient fetches and caches the Node distribution index.
type NodeClient struct {
	Logger hclog.Logger
	HTTP   *retryablehttp.Client
	// IndexURL overrides DefaultNodeIndexURL, set from a node.index hook.
	IndexURL string
}

// NewNodeClient constructs a client using the default index URL unless
// overridden.
func NewNodeClient(logger hclog.Logger, indexURL string) *NodeClient {
	client := retryablehttp.NewClient()
	client.Logger = logger
	client.RetryMax = 3
	if indexURL == "" {
		indexURL = DefaultNodeIndexURL
	}
	return &NodeClient{Logger: logger, HTTP: client, IndexURL: indexURL}
}

// Index returns the full Node release list, newest first, using the
// on-disk cache when its expiry stamp is still in the future and its
// recorded source URL still matches.
func (c *NodeClient) Index(ctx context.Context, lo *layout.Layout) ([]NodeRelease, error) {
	if cached, ok := c.readCache(lo); ok {
		c.Logger.Debug("node index: using cache", "url", c.IndexURL)
		return cached, nil
	}
	c.Logger.Debug("node index: fetching", "url", c.IndexURL)
	releases, ttl, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.writeCache(lo, releases, ttl); err != nil {
		c.Logger.Warn("node index: failed to persist cache", "error", err)
	}
	return releases, nil
}

func (c *NodeClient) fetch(ctx context.Context) ([]NodeRelease, time.Duration, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.IndexURL, nil)
	if err != nil {
		return nil, 0, toolerr.Withf(toolerr.Network, err, "building node index request")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, toolerr.Withf(toolerr.Network, err, "fetching node index")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, 0, toolerr.Withf(toolerr.Network, nil, "node index returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, toolerr.Withf(toolerr.Network, err, "reading node index body")
	}
	var releases []NodeRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, 0, toolerr.Withf(toolerr.Configuration, err, "parsing node index")
	}
	sortReleasesNewestFirst(releases)
	return releases, maxAgeOf(resp.Header.Get("Cache-Control")), nil
}

func maxAgeOf(cacheControl string) time.Duration {
	if cacheControl == "" {
		return defaultIndexTTL
	}
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, "max-age=") {
			continue
		}
		var seconds int
		if _, err := fmt.Sscanf(directive, "max-age=%d", &seconds); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultIndexTTL
}

func sortReleasesNewestFirst(releases []NodeRelease) {
	sort.SliceStable(releases, func(i, j int) bool {
		vi, vj := releases[i].semver(), releases[j].semver()
		if vi == nil || vj == nil {
			return false
		}
		return vi.GreaterThan(vj)
	})
}

// readCache loads the cached index iff its expiry stamp is in the
// future and the first-line URL prefix still matches the configured
// index URL.
func (c *NodeClient) readCache(lo *layout.Layout) ([]NodeRelease, bool) {
	expiresRaw, err := os.ReadFile(lo.NodeIndexExpiryFile().ToString())
	if err != nil {
		return nil, false
	}
	var expiresUnix int64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(expiresRaw)), "%d", &expiresUnix); err != nil {
		return nil, false
	}
	if time.Now().Unix() >= expiresUnix {
		return nil, false
	}
	f, err := os.Open(lo.NodeIndexFile().ToString())
	if err != nil {
		return nil, false
	}
	defer f.Close()
	reader := bufio.NewReader(f)
	firstLine, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, false
	}
	if strings.TrimSpace(firstLine) != c.IndexURL {
		return nil, false
	}
	rest, err := io.ReadAll(reader)
	if err != nil {
		return nil, false
	}
	var releases []NodeRelease
	if err := json.Unmarshal(rest, &releases); err != nil {
		return nil, false
	}
	return releases, true
}

// writeCache persists the index prefixed with its source URL on the
// first line, plus a sibling expiry stamp.
func (c *NodeClient) writeCache(lo *layout.Layout, releases []NodeRelease, ttl time.Duration) error {
	data, err := json.Marshal(releases)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString(c.IndexURL)
	buf.WriteByte('\n')
	buf.Write(data)
	if err := os.MkdirAll(lo.NodeCacheDir().ToString(), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(lo.NodeIndexFile().ToString(), buf.Bytes(), 0o644); err != nil {
		return err
	}
	expiry := fmt.Sprintf("%d", time.Now().Add(ttl).Unix())
	return os.WriteFile(lo.NodeIndexExpiryFile().ToString(), []byte(expiry), 0o644)
}

// ResolveExact finds the newest release matching the given semver
// constraint, or the newest LTS release if lts is true and c is nil.
func ResolveExact(releases []NodeRelease, c *semver.Constraints, lts bool) (*NodeRelease, error) {
	for i := range releases {
		r := &releases[i]
		v := r.semver()
		if v == nil {
			continue
		}
		if lts && !r.LTS.Set {
			continue
		}
		if c != nil && !c.Check(v) {
			continue
		}
		return r, nil
	}
	return nil, toolerr.New(toolerr.NoVersionMatch, "no node release satisfies the requested version", nil)
}
