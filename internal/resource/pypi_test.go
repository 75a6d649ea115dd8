package resource_test

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deploykit/resource-mirror/internal/pypi"
	"github.com/deploykit/resource-mirror/internal/resource"
	"github.com/deploykit/resource-mirror/internal/utils/network"
)

// fakeMirror serves a minimal simple-index tree: a root listing of
// package names and one detail page per package with hash fragments.
func fakeMirror(t *testing.T, packages map[string][]string, digests map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		for name := range packages {
			fmt.Fprintf(w, "<a href=%q>%s</a>\n", "/"+name, name)
		}
	})
	for name, files := range packages {
		files := files
		mux.HandleFunc("/"+name, func(w http.ResponseWriter, r *http.Request) {
			for _, f := range files {
				fmt.Fprintf(w, `<a href="%s#sha256=%s" rel="internal">%s</a>`+"\n", f, digests[f], f)
			}
		})
	}
	return httptest.NewServer(mux)
}

func digestOf(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// newPyPIUnderTest wires a container whose installer invocation drops
// the given files into the download directory instead of calling pip.
func newPyPIUnderTest(t *testing.T, outputDir string, produced map[string]string) (*resource.Container, *pypi.Resolver) {
	t.Helper()
	client := network.NewClient()
	resolver := pypi.NewResolver(client, pypi.NewIndexCache(client))
	resolver.SetRunner(func(args ...string) error {
		if args[0] != "download" {
			return nil
		}
		var dest string
		for i, a := range args {
			if a == "--dest" {
				dest = args[i+1]
			}
		}
		for name, content := range produced {
			if err := os.WriteFile(filepath.Join(dest, name), []byte(content), 0644); err != nil {
				return err
			}
		}
		return nil
	})
	return resource.NewContainer(outputDir, client, resolver), resolver
}

func TestPyPIFetchResolvesPrimaryArtifact(t *testing.T) {
	outputDir := t.TempDir()
	wheel := "widget-1.2.3-py3-none-any.whl"
	content := "wheel bytes"

	mirror := fakeMirror(t,
		map[string][]string{"widget": {wheel}},
		map[string]string{wheel: digestOf(content)})
	defer mirror.Close()

	c, _ := newPyPIUnderTest(t, outputDir, map[string]string{wheel: content})
	if err := c.AddRequired("widget", resource.Descriptor{PyPI: "widget>=1.2"}); err != nil {
		t.Fatal(err)
	}
	r, _ := c.Get("widget")

	if err := r.Fetch(mirror.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	wantPath := filepath.Join(outputDir, "widget", wheel)
	if r.Path() != wantPath {
		t.Errorf("Path() = %q, want %q", r.Path(), wantPath)
	}
	digest, err := os.ReadFile(wantPath + ".sha256")
	if err != nil {
		t.Fatalf("expected hash sidecar: %v", err)
	}
	if strings.TrimSpace(string(digest)) != digestOf(content) {
		t.Errorf("sidecar digest %q, want %q", digest, digestOf(content))
	}
	if !r.Verify() {
		t.Error("verify should pass after resolution")
	}
}

func TestPyPIFetchRelocatesDependencies(t *testing.T) {
	outputDir := t.TempDir()
	wheel := "widget-1.2.3-py3-none-any.whl"
	dep := "helperlib-0.4-py3-none-any.whl"

	mirror := fakeMirror(t,
		map[string][]string{
			"widget":    {wheel},
			"helperlib": {dep},
		},
		map[string]string{
			wheel: digestOf("wheel"),
			dep:   digestOf("dep"),
		})
	defer mirror.Close()

	c, _ := newPyPIUnderTest(t, outputDir, map[string]string{wheel: "wheel", dep: "dep"})
	if err := c.AddRequired("widget", resource.Descriptor{PyPI: "widget"}); err != nil {
		t.Fatal(err)
	}
	r, _ := c.Get("widget")
	if err := r.Fetch(mirror.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// The dependency moved to its own per-package directory with its
	// own sidecar; it no longer pollutes widget's directory.
	depPath := filepath.Join(outputDir, "helperlib", dep)
	if _, err := os.Stat(depPath); err != nil {
		t.Errorf("expected relocated dependency at %s: %v", depPath, err)
	}
	if _, err := os.Stat(depPath + ".sha256"); err != nil {
		t.Errorf("expected dependency sidecar: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "widget", dep)); !os.IsNotExist(err) {
		t.Error("dependency should have left the primary package directory")
	}
}

func TestPyPIFetchUnresolvableDependencyIsSkipped(t *testing.T) {
	outputDir := t.TempDir()
	wheel := "widget-1.0.tar.gz"
	stray := "mystery-9.9.tar.gz"

	mirror := fakeMirror(t,
		map[string][]string{"widget": {wheel}},
		map[string]string{wheel: digestOf("wheel")})
	defer mirror.Close()

	c, _ := newPyPIUnderTest(t, outputDir, map[string]string{wheel: "wheel", stray: "stray"})
	if err := c.AddRequired("widget", resource.Descriptor{PyPI: "widget"}); err != nil {
		t.Fatal(err)
	}
	r, _ := c.Get("widget")
	if err := r.Fetch(mirror.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// The stray file's owner is unknown to the mirror: it stays put.
	if _, err := os.Stat(filepath.Join(outputDir, "widget", stray)); err != nil {
		t.Errorf("unresolvable file should remain in place: %v", err)
	}
}

func TestPyPIVerifyRecoversFromSidecar(t *testing.T) {
	// Simulate a prior process run: artifact and sidecar exist on disk
	// but this resource object has never fetched.
	outputDir := t.TempDir()
	wheel := "widget-1.0.tar.gz"
	content := "persisted wheel"
	pkgDir := filepath.Join(outputDir, "widget")
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, wheel), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, wheel+".sha256"), []byte(digestOf(content)+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	c, _ := newPyPIUnderTest(t, outputDir, nil)
	if err := c.AddRequired("widget", resource.Descriptor{PyPI: "widget"}); err != nil {
		t.Fatal(err)
	}
	r, _ := c.Get("widget")

	if !r.Verify() {
		t.Fatal("verify should recover destination and hash from the sidecar")
	}
	if got, want := r.Path(), filepath.Join(pkgDir, wheel); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestPyPIDeclaredHashIsNotOverwritten(t *testing.T) {
	outputDir := t.TempDir()
	wheel := "widget-1.0.tar.gz"
	content := "wheel"

	mirror := fakeMirror(t,
		map[string][]string{"widget": {wheel}},
		map[string]string{wheel: "ffff"}) // mirror advertises a wrong digest
	defer mirror.Close()

	c, _ := newPyPIUnderTest(t, outputDir, map[string]string{wheel: content})
	if err := c.AddRequired("widget", resource.Descriptor{
		PyPI: "widget", Hash: digestOf(content), HashType: "sha256",
	}); err != nil {
		t.Fatal(err)
	}
	r, _ := c.Get("widget")
	if err := r.Fetch(mirror.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !r.Verify() {
		t.Error("pre-declared hash should win over mirror discovery")
	}
}

func TestPyPIURLFormBehavesLikeURLResource(t *testing.T) {
	content := []byte("tarball")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	outputDir := t.TempDir()
	sum := sha256.Sum256(content)
	c, _ := newPyPIUnderTest(t, outputDir, nil)
	if err := c.AddRequired("widget", resource.Descriptor{
		PyPI:     srv.URL + "/widget-1.0.tar.gz#egg=widget",
		Hash:     hex.EncodeToString(sum[:]),
		HashType: "sha256",
	}); err != nil {
		t.Fatal(err)
	}
	r, _ := c.Get("widget")

	p, ok := r.(*resource.PyPIResource)
	if !ok {
		t.Fatalf("expected PyPIResource, got %T", r)
	}
	if p.PackageName() != "widget" {
		t.Errorf("PackageName() = %q, want widget (from egg fragment)", p.PackageName())
	}
	if err := r.Fetch(""); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !r.Verify() {
		t.Error("verify should pass for the direct-URL form")
	}
	if got, want := r.Path(), filepath.Join(outputDir, "widget-1.0.tar.gz"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestPyPIFetchInstallerFailure(t *testing.T) {
	outputDir := t.TempDir()
	client := network.NewClient()
	resolver := pypi.NewResolver(client, pypi.NewIndexCache(client))
	resolver.SetRunner(func(args ...string) error {
		return fmt.Errorf("exit status 1")
	})
	c := resource.NewContainer(outputDir, client, resolver)
	if err := c.AddRequired("widget", resource.Descriptor{PyPI: "widget"}); err != nil {
		t.Fatal(err)
	}
	r, _ := c.Get("widget")

	if err := r.Fetch(""); err == nil {
		t.Fatal("expected installer failure to surface as an error")
	}
	if r.Verify() {
		t.Error("resource must stay invalid after an installer failure")
	}
}
