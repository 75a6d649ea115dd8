// Package resource models the declared external artifacts of a
// deployable unit and their fetch, verify, and install contracts.
package resource

import (
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/deploykit/resource-mirror/internal/utils/archive"
	"github.com/deploykit/resource-mirror/internal/utils/hashutil"
	"github.com/deploykit/resource-mirror/internal/utils/logger"
	"github.com/deploykit/resource-mirror/internal/utils/network"
)

// Resource is one declared artifact. Fetch is side-effecting and
// returns transport failures as ordinary errors; callers driving a
// fetch pass log and absorb them, leaving the condition for Verify to
// report. Verify fails closed and never returns an error. Install is a
// usage-level operation and fails loudly.
type Resource interface {
	Name() string
	// Spec is the human-facing identifier: path, URL, or package spec.
	Spec() string
	// Path is the artifact's destination on disk. It may be empty for
	// package-index resources that have not been resolved yet.
	Path() string
	Filename() string
	Fetch(mirrorURL string) error
	Verify() bool
	Install(destDir string, skipTopLevel bool) error
}

// base carries the state and contract shared by every variant.
type base struct {
	name        string
	spec        string
	filename    string
	destination string
	hash        string
	hashType    string
	outputDir   string
}

func (b *base) Name() string     { return b.name }
func (b *base) Spec() string     { return b.spec }
func (b *base) Path() string     { return b.destination }
func (b *base) Filename() string { return b.filename }

// Verify fails closed: a missing destination, an unsupported hash
// algorithm, or a digest mismatch all report false.
func (b *base) Verify() bool {
	if !hashutil.Supported(b.hashType) {
		return false
	}
	info, err := os.Stat(b.destination)
	if err != nil || info.IsDir() {
		return false
	}
	digest, err := hashutil.FileDigest(b.destination, b.hashType)
	if err != nil {
		return false
	}
	return digest == b.hash
}

// installVerified places the already-verified artifact under destDir:
// recognized archive containers are extracted, anything else is copied
// byte-for-byte.
func (b *base) installVerified(destDir string, skipTopLevel bool) error {
	if destDir == "" {
		return &DestinationRequiredError{Name: b.name}
	}
	switch archive.Detect(b.destination) {
	case archive.KindTar, archive.KindZip:
		return archive.Extract(b.destination, destDir, skipTopLevel)
	default:
		return copyInto(b.destination, destDir)
	}
}

// fetchFromURL downloads effectiveURL to the destination and resolves
// a hash-URL indirection: when the declared hash is itself a URL, the
// first kilobyte of that endpoint, trimmed, becomes the literal digest.
func (b *base) fetchFromURL(client *network.Client, effectiveURL string) error {
	if err := client.DownloadFile(effectiveURL, b.destination); err != nil {
		return err
	}
	if u, err := url.Parse(b.hash); err == nil && u.Scheme != "" {
		text, err := client.FetchText(b.hash, 1024)
		if err != nil {
			return err
		}
		b.hash = strings.TrimSpace(text)
	}
	return nil
}

func copyInto(src string, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(filepath.Join(destDir, filepath.Base(src)))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// joinMirror resolves a filename against a mirror base URL.
func joinMirror(mirrorURL string, filename string) string {
	return strings.TrimSuffix(mirrorURL, "/") + "/" + filename
}

// LocalResource is an artifact expected to already exist on disk; it
// has nothing to fetch.
type LocalResource struct {
	base
	source string
}

func newLocal(name string, d Descriptor, outputDir string) *LocalResource {
	r := &LocalResource{source: d.File}
	r.name = name
	r.outputDir = outputDir
	r.filename = d.Filename
	if r.filename == "" {
		r.filename = filepath.Base(d.File)
	}
	r.destination = d.Destination
	if r.destination == "" {
		r.destination = filepath.Join(outputDir, r.filename)
	}
	r.spec = r.destination
	r.hash = d.Hash
	r.hashType = d.HashType
	return r
}

func (r *LocalResource) Fetch(mirrorURL string) error {
	logger.Logger().Debugf("resource %s is local, nothing to fetch", r.name)
	return nil
}

func (r *LocalResource) Install(destDir string, skipTopLevel bool) error {
	if !r.Verify() {
		return &NotVerifiedError{Name: r.name}
	}
	return r.installVerified(destDir, skipTopLevel)
}

// URLResource is an artifact fetched from a direct download URL.
type URLResource struct {
	base
	url    string
	client *network.Client
}

func newURL(name string, d Descriptor, outputDir string, client *network.Client) *URLResource {
	r := &URLResource{url: d.URL, client: client}
	r.name = name
	r.outputDir = outputDir
	r.spec = d.URL
	r.filename = d.Filename
	if r.filename == "" {
		if u, err := url.Parse(d.URL); err == nil {
			r.filename = path.Base(u.Path)
		}
	}
	r.destination = d.Destination
	if r.destination == "" {
		r.destination = filepath.Join(outputDir, r.filename)
	}
	r.hash = d.Hash
	r.hashType = d.HashType
	return r
}

// Fetch downloads from the mirror when one is given, using only the
// filename portion of the declared URL, and from the declared URL
// otherwise.
func (r *URLResource) Fetch(mirrorURL string) error {
	effective := r.url
	if mirrorURL != "" {
		effective = joinMirror(mirrorURL, r.filename)
	}
	return r.fetchFromURL(r.client, effective)
}

func (r *URLResource) Install(destDir string, skipTopLevel bool) error {
	if !r.Verify() {
		return &NotVerifiedError{Name: r.name}
	}
	return r.installVerified(destDir, skipTopLevel)
}
