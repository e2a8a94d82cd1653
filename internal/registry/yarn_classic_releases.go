package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
	version "github.com/hashicorp/go-version"
	"github.com/toolpin/toolpin/internal/toolerr"
)

// DefaultYarnReleasesURL is classic Yarn's legacy GitHub Releases feed,
// used only when a yarn.index hook is configured with format: github.
// The default, hook-less path resolves Yarn through the npm registry
// instead, since Yarn is itself published as an npm package.
const DefaultYarnReleasesURL = "https://api.github.com/repos/yarnpkg/yarn/releases"

// githubRelease is the subset of a GitHub Releases API entry this
// client needs.
type githubRelease struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// YarnReleasesClient resolves classic Yarn versions against the GitHub
// Releases API, for projects whose hooks.json still points there.
type YarnReleasesClient struct {
	Logger hclog.Logger
	HTTP   *retryablehttp.Client
	URL    string
}

// NewYarnReleasesClient constructs a client against the given releases
// feed URL (from a yarn.index hook), defaulting to DefaultYarnReleasesURL.
func NewYarnReleasesClient(logger hclog.Logger, url string) *YarnReleasesClient {
	client := retryablehttp.NewClient()
	client.Logger = logger
	client.RetryMax = 3
	if url == "" {
		url = DefaultYarnReleasesURL
	}
	return &YarnReleasesClient{Logger: logger, HTTP: client, URL: url}
}

// Releases fetches every non-draft, non-prerelease tag, newest first.
func (c *YarnReleasesClient) Releases(ctx context.Context) ([]*version.Version, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, toolerr.Withf(toolerr.Network, err, "building yarn releases request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, toolerr.Withf(toolerr.Network, err, "fetching yarn releases")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, toolerr.Withf(toolerr.Network, nil, "yarn releases feed returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, toolerr.Withf(toolerr.Network, err, "reading yarn releases body")
	}
	var raw []githubRelease
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, toolerr.Withf(toolerr.Configuration, err, "parsing yarn releases")
	}
	var releases []*version.Version
	for _, r := range raw {
		if r.Draft || r.Prerelease {
			continue
		}
		v, err := version.NewVersion(strings.TrimPrefix(r.TagName, "v"))
		if err != nil {
			c.Logger.Debug("yarn releases: skipping unparsable tag", "tag", r.TagName)
			continue
		}
		releases = append(releases, v)
	}
	sort.Sort(sort.Reverse(version.Collection(releases)))
	if len(releases) == 0 {
		return nil, toolerr.New(toolerr.NoVersionMatch, "no yarn releases found", nil)
	}
	return releases, nil
}

// Latest returns the newest non-prerelease tag.
func (c *YarnReleasesClient) Latest(ctx context.Context) (*version.Version, error) {
	releases, err := c.Releases(ctx)
	if err != nil {
		return nil, err
	}
	return releases[0], nil
}
