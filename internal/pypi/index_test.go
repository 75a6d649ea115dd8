package pypi_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deploykit/resource-mirror/internal/pypi"
	"github.com/deploykit/resource-mirror/internal/utils/network"
)

func listingServer(t testing.TB, names []string) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprintln(w, "<html><body>")
		for _, name := range names {
			fmt.Fprintf(w, "<a href='/%s'>%s</a>\n", name, name)
		}
		fmt.Fprintln(w, "</body></html>")
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestKnownScrapesOncePerMirror(t *testing.T) {
	srv, hits := listingServer(t, []string{"widget", "helperlib"})
	cache := pypi.NewIndexCache(network.NewClient())

	for i := 0; i < 3; i++ {
		known := cache.Known(srv.URL + "/")
		if !known["widget"] || !known["helperlib"] {
			t.Fatalf("scrape %d missing names: %v", i, known)
		}
	}
	if *hits != 1 {
		t.Errorf("listing page fetched %d times, want 1", *hits)
	}
}

func TestKnownCachesFailure(t *testing.T) {
	cache := pypi.NewIndexCache(network.NewClient())
	// Nothing listens here; the failed scrape caches an empty set.
	known := cache.Known("http://127.0.0.1:1/")
	if len(known) != 0 {
		t.Errorf("expected empty set for unreachable mirror, got %v", known)
	}
}

func TestPackageNameFromFilename(t *testing.T) {
	srv, _ := listingServer(t, []string{"widget", "two-part-name"})
	cache := pypi.NewIndexCache(network.NewClient())
	indexURL := srv.URL + "/"

	cases := []struct {
		filename string
		want     string
	}{
		// Progressively strips any, none, py3, 1.2.3 before matching.
		{"widget-1.2.3-py3-none-any.whl", "widget"},
		{"widget-0.1.tar.gz", "widget"},
		// Hyphenated package names match before stripping continues.
		{"two-part-name-2.0-py3-none-any.whl", "two-part-name"},
		// No match in the known-name set yields empty.
		{"stranger-1.0.tar.gz", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := cache.PackageNameFromFilename(tc.filename, indexURL); got != tc.want {
			t.Errorf("PackageNameFromFilename(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func FuzzPackageNameFromFilename(f *testing.F) {
	f.Add("widget-1.2.3-py3-none-any.whl")
	f.Add("widget")
	f.Add("")
	f.Add("---")
	f.Add("a-b-c-d-e-f-g")
	f.Add(strings.Repeat("x-", 200))

	srv, _ := listingServer(f, []string{"widget", "a-b"})
	cache := pypi.NewIndexCache(network.NewClient())
	indexURL := srv.URL + "/"

	f.Fuzz(func(t *testing.T, filename string) {
		got := cache.PackageNameFromFilename(filename, indexURL)
		// Resolution never invents names: any non-empty result must be
		// a prefix of the filename and a known package.
		if got != "" {
			if !strings.HasPrefix(filename, got) {
				t.Errorf("resolved %q is not a prefix of %q", got, filename)
			}
			if got != "widget" && got != "a-b" {
				t.Errorf("resolved %q is not in the known-name set", got)
			}
		}
	})
}
