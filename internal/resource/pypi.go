package resource

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/deploykit/resource-mirror/internal/pypi"
	"github.com/deploykit/resource-mirror/internal/utils/hashutil"
	"github.com/deploykit/resource-mirror/internal/utils/logger"
	"github.com/deploykit/resource-mirror/internal/utils/network"
)

// PyPIResource is resolved through a package index. Its spec is either
// a direct download URL with an "#egg=name" fragment, which behaves
// like a URL resource, or a bare package spec handed to the installer's
// download-only mode.
type PyPIResource struct {
	base
	url            string // set only for the direct-URL form
	packageName    string
	destinationDir string
	client         *network.Client
	resolver       *pypi.Resolver
}

func newPyPI(name string, d Descriptor, outputDir string, client *network.Client, resolver *pypi.Resolver) *PyPIResource {
	r := &PyPIResource{client: client, resolver: resolver}
	r.name = name
	r.outputDir = outputDir
	r.spec = d.PyPI
	r.hash = d.Hash
	r.hashType = d.HashType

	if u, err := url.Parse(d.PyPI); err == nil && u.Scheme != "" {
		r.url = d.PyPI
		r.packageName = eggName(u.Fragment)
		r.destinationDir = outputDir
		r.filename = path.Base(u.Path)
		r.destination = filepath.Join(outputDir, r.filename)
	} else {
		r.packageName = pypi.PackageName(d.PyPI)
		r.destinationDir = filepath.Join(outputDir, r.packageName)
	}
	return r
}

// eggName extracts the package name from an "#egg=name" URL fragment.
func eggName(fragment string) string {
	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return ""
	}
	return values.Get("egg")
}

// PackageName is the resolved owning package of this resource.
func (r *PyPIResource) PackageName() string { return r.packageName }

// Fetch resolves the package spec to a concrete artifact. The direct-
// URL form downloads like a URL resource. The bare form drives the
// installer's download-only mode into a clean per-package directory,
// then separates what it produced: the requested package's artifact is
// recorded (with a discovered hash sidecar when none was declared), and
// every incidental dependency is relocated into its own per-package
// directory with its own sidecar.
func (r *PyPIResource) Fetch(mirrorURL string) error {
	log := logger.Logger()

	if r.url != "" {
		effective := r.url
		if mirrorURL != "" {
			effective = joinMirror(mirrorURL, r.filename)
		}
		return r.fetchFromURL(r.client, effective)
	}

	if err := r.resolver.Download(r.spec, r.destinationDir, mirrorURL); err != nil {
		return err
	}

	indexURL := pypi.NormalizeIndexURL(mirrorURL)
	entries, err := os.ReadDir(r.destinationDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		filename := entry.Name()
		if strings.HasPrefix(filename, r.packageName) {
			r.filename = filename
			r.destination = filepath.Join(r.destinationDir, filename)
			if r.hash == "" || r.hashType == "" {
				algo, digest := r.resolver.RemoteHash(filename, indexURL)
				r.hashType = algo
				r.hash = digest
				if algo != "" {
					if err := hashutil.WriteSidecar(r.destination, algo, digest); err != nil {
						return err
					}
				}
			}
		} else {
			// Dependency artifacts are moved aside; a file whose owner
			// cannot be resolved is left behind and reported by a later
			// verify of whatever declared it.
			if err := r.resolver.RelocateDependency(r.outputDir, r.destinationDir, filename, indexURL); err != nil {
				log.Warnf("skipping dependency %s: %v", filename, err)
			}
		}
	}
	return nil
}

// Verify re-derives the destination from on-disk sidecar state before
// applying the digest check, so a resolution done by an earlier process
// survives restarts without re-fetching.
func (r *PyPIResource) Verify() bool {
	r.recoverLocalHash()
	return r.base.Verify()
}

func (r *PyPIResource) recoverLocalHash() {
	if r.url != "" {
		return
	}
	info, err := os.Stat(r.destinationDir)
	if err != nil || !info.IsDir() {
		return
	}
	sidecar, err := hashutil.FindSidecar(r.destinationDir)
	if err != nil || sidecar == nil {
		return
	}
	r.filename = sidecar.Filename
	r.destination = sidecar.Path
	r.hashType = sidecar.Algo
	r.hash = sidecar.Digest
}

func (r *PyPIResource) Install(destDir string, skipTopLevel bool) error {
	if !r.Verify() {
		return &NotVerifiedError{Name: r.name}
	}
	return r.installVerified(destDir, skipTopLevel)
}

// PipInstall installs the fetched artifact with the ecosystem
// installer, or the raw spec against the index when nothing valid has
// been fetched.
func (r *PyPIResource) PipInstall(indexURL string) error {
	target := r.spec
	if r.Verify() {
		target = r.destination
	}
	return r.resolver.InstallTargets([]string{target}, indexURL)
}
