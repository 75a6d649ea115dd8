// Package pypi resolves package-index resources: it drives the
// ecosystem installer's download-only mode, discovers artifact digests
// from a mirror's listing pages, relocates incidental dependency
// downloads into per-package directories, and regenerates the static
// index pages that make a directory tree servable as a mirror.
package pypi

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/deploykit/resource-mirror/internal/utils/hashutil"
	"github.com/deploykit/resource-mirror/internal/utils/logger"
	"github.com/deploykit/resource-mirror/internal/utils/network"
)

// DefaultIndexURL is the public package index used when no mirror is
// given.
const DefaultIndexURL = "https://pypi.org/simple"

// Resolver performs the network and installer legs of package-index
// resolution. The installer invocation is indirected through a runner
// so tests can substitute it.
type Resolver struct {
	client *network.Client
	cache  *IndexCache
	runner Runner
}

func NewResolver(client *network.Client, cache *IndexCache) *Resolver {
	return &Resolver{client: client, cache: cache, runner: runPip}
}

// SetRunner replaces the installer invocation, for tests.
func (r *Resolver) SetRunner(run Runner) { r.runner = run }

// Cache exposes the resolver's known-package-name cache.
func (r *Resolver) Cache() *IndexCache { return r.cache }

// NormalizeIndexURL applies the default index and guarantees a trailing
// slash so URL joins treat the index as a directory.
func NormalizeIndexURL(indexURL string) string {
	if indexURL == "" {
		indexURL = DefaultIndexURL
	}
	return strings.TrimSuffix(indexURL, "/") + "/"
}

// PackageName strips the version constraint from a package spec,
// e.g. "widget>=1.2" yields "widget".
func PackageName(spec string) string {
	if i := strings.IndexAny(spec, "<>="); i >= 0 {
		return spec[:i]
	}
	return spec
}

// Download recreates destDir and runs the installer's download-only
// mode for spec against indexURL. The installer refuses a non-empty
// target, hence the recreate. A non-zero exit surfaces as an error for
// the caller to absorb.
func (r *Resolver) Download(spec string, destDir string, indexURL string) error {
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("clearing %s: %w", destDir, err)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", destDir, err)
	}
	args := []string{"download", spec, "--dest", destDir}
	if indexURL != "" {
		args = append(args, "-i", indexURL)
	}
	return r.runner(args...)
}

// InstallTargets runs the installer over targets, which may be local
// artifact paths or raw package specs.
func (r *Resolver) InstallTargets(targets []string, indexURL string) error {
	args := append([]string{"install"}, targets...)
	if indexURL != "" {
		args = append(args, "-i", indexURL)
	}
	return r.runner(args...)
}

// RemoteHash discovers the digest of an artifact from its package's
// detail page on the mirror: the page's anchor for the exact filename
// carries a "#algorithm=digest" fragment. A miss yields empty strings;
// verification then fails until a hash arrives out of band.
func (r *Resolver) RemoteHash(filename string, indexURL string) (algo string, digest string) {
	log := logger.Logger()
	packageName := r.cache.PackageNameFromFilename(filename, indexURL)
	if packageName == "" {
		log.Debugf("no package on %s owns %s", indexURL, filename)
		return "", ""
	}
	pageURL := NormalizeIndexURL(indexURL) + packageName
	page, err := r.client.FetchPage(pageURL)
	if err != nil {
		log.Debugf("error fetching hash page %s: %v", pageURL, err)
		return "", ""
	}
	linkRe := regexp.MustCompile(
		`href=(?:"(?:[^"]*/)?|'(?:[^']*/)?)` + regexp.QuoteMeta(filename) + `#([^=]+)=(\w+)["']`)
	match := linkRe.FindSubmatch(page)
	if match == nil {
		log.Debugf("hash not found for %s on %s", filename, pageURL)
		return "", ""
	}
	return string(match[1]), string(match[2])
}

// RelocateDependency moves an incidental dependency download out of a
// shared directory into its owning package's sibling directory and
// persists its hash sidecar. The installer drops dependencies next to
// the requested artifact; a mirror needs them separated per package. An
// unresolvable owner or a failed move is reported so the caller can log
// and skip the file.
func (r *Resolver) RelocateDependency(outputRoot string, fromDir string, filename string, indexURL string) error {
	packageName := r.cache.PackageNameFromFilename(filename, indexURL)
	if packageName == "" {
		return fmt.Errorf("no package on %s owns %s", indexURL, filename)
	}
	newDir := filepath.Join(outputRoot, packageName)
	if err := os.MkdirAll(newDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", newDir, err)
	}
	oldDest := filepath.Join(fromDir, filename)
	newDest := filepath.Join(newDir, filename)
	if err := os.Rename(oldDest, newDest); err != nil {
		return fmt.Errorf("relocating %s: %w", filename, err)
	}
	if algo, digest := r.RemoteHash(filename, indexURL); algo != "" {
		if err := hashutil.WriteSidecar(newDest, algo, digest); err != nil {
			return fmt.Errorf("writing sidecar for %s: %w", filename, err)
		}
	}
	return nil
}
