package pypi_test

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deploykit/resource-mirror/internal/mirrorserver"
	"github.com/deploykit/resource-mirror/internal/pypi"
)

func TestBuildMirrorIndexes(t *testing.T) {
	root := t.TempDir()
	pkgDir := filepath.Join(root, "widget")
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		t.Fatal(err)
	}
	wheel := "widget-1.0.tar.gz"
	if err := os.WriteFile(filepath.Join(pkgDir, wheel), []byte("bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, wheel+".sha256"), []byte("cafe01\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// A package directory with no sidecar gets no index.
	bareDir := filepath.Join(root, "bare")
	if err := os.MkdirAll(bareDir, 0755); err != nil {
		t.Fatal(err)
	}

	if err := pypi.BuildMirrorIndexes(root); err != nil {
		t.Fatalf("BuildMirrorIndexes: %v", err)
	}

	page, err := os.ReadFile(filepath.Join(pkgDir, "index.html"))
	if err != nil {
		t.Fatalf("expected index page: %v", err)
	}
	if !strings.Contains(string(page), `href="widget-1.0.tar.gz#sha256=cafe01"`) {
		t.Errorf("index anchor missing hash fragment:\n%s", page)
	}
	if !strings.Contains(string(page), "Links for widget") {
		t.Errorf("index page missing title:\n%s", page)
	}
	if _, err := os.Stat(filepath.Join(bareDir, "index.html")); !os.IsNotExist(err) {
		t.Error("unresolved package directory should get no index page")
	}
}

// TestMirrorRoundTrip serves a generated mirror tree and feeds its
// pages back through hash discovery: the discovered pair must equal the
// stored one.
func TestMirrorRoundTrip(t *testing.T) {
	root := t.TempDir()
	pkgDir := filepath.Join(root, "widget")
	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		t.Fatal(err)
	}
	wheel := "widget-1.2.3-py3-none-any.whl"
	if err := os.WriteFile(filepath.Join(pkgDir, wheel), []byte("bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkgDir, wheel+".sha256"), []byte("feedface\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := pypi.BuildMirrorIndexes(root); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(mirrorserver.Handler(root))
	defer srv.Close()

	r := newResolver(t)
	algo, digest := r.RemoteHash(wheel, srv.URL+"/")
	if algo != "sha256" || digest != "feedface" {
		t.Errorf("round trip = (%q, %q), want (sha256, feedface)", algo, digest)
	}
}
