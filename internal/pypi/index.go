package pypi

import (
	"regexp"
	"strings"
	"sync"

	"github.com/deploykit/resource-mirror/internal/utils/logger"
	"github.com/deploykit/resource-mirror/internal/utils/network"
)

// anchorTextRe pulls the link text out of the anchors on an index root
// listing page. The page format is the minimal simple-index convention,
// not arbitrary HTML.
var anchorTextRe = regexp.MustCompile(`<a href=(?:"[^"]*"|'[^']*')>([^<]+)`)

// IndexCache lazily scrapes and remembers the set of package names a
// mirror's root listing page advertises. Entries are populated once per
// mirror and never invalidated within a run; staleness over one run is
// an accepted trade-off. The cache is safe for concurrent use.
type IndexCache struct {
	client *network.Client

	mu    sync.Mutex
	known map[string]map[string]bool
}

func NewIndexCache(client *network.Client) *IndexCache {
	return &IndexCache{
		client: client,
		known:  make(map[string]map[string]bool),
	}
}

// Known returns the package-name set for indexURL, scraping it on first
// use. A scrape failure caches an empty set so a dead mirror is not
// hammered once per file.
func (c *IndexCache) Known(indexURL string) map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if names, ok := c.known[indexURL]; ok {
		return names
	}
	names := make(map[string]bool)
	c.known[indexURL] = names

	page, err := c.client.FetchPage(indexURL)
	if err != nil {
		logger.Logger().Debugf("error fetching index %s: %v", indexURL, err)
		return names
	}
	for _, match := range anchorTextRe.FindAllSubmatch(page, -1) {
		// Static file servers render directory anchors with a trailing
		// slash; the package name is the text without it.
		name := strings.TrimSuffix(strings.TrimSpace(string(match[1])), "/")
		if name != "" {
			names[name] = true
		}
	}
	return names
}

// PackageNameFromFilename maps an artifact filename back to its owning
// package. Package filenames append hyphen-separated version, platform,
// and ABI segments that are not reliably delimited, so trailing
// segments are stripped one at a time until a candidate appears in the
// mirror's known-name set. No match yields the empty string.
func (c *IndexCache) PackageNameFromFilename(filename string, indexURL string) string {
	known := c.Known(indexURL)
	parts := strings.Split(filename, "-")
	for len(parts) > 0 {
		candidate := strings.Join(parts, "-")
		if known[candidate] {
			return candidate
		}
		parts = parts[:len(parts)-1]
	}
	return ""
}

// Reset drops all cached mirror listings, mainly for tests.
func (c *IndexCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known = make(map[string]map[string]bool)
}
