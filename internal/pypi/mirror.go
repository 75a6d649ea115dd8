package pypi

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deploykit/resource-mirror/internal/utils/hashutil"
	"github.com/deploykit/resource-mirror/internal/utils/logger"
)

// BuildMirrorIndexes walks a root directory of per-package
// subdirectories and emits a minimal static listing page in each one
// that holds a resolvable artifact. The anchor carries the same
// "#algorithm=digest" fragment convention that RemoteHash discovers, so
// the output is directly consumable as a private mirror by this same
// resolver.
func BuildMirrorIndexes(rootDir string) error {
	log := logger.Logger()
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", rootDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		packageDir := filepath.Join(rootDir, entry.Name())
		sidecar, err := hashutil.FindSidecar(packageDir)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", packageDir, err)
		}
		if sidecar == nil {
			log.Debugf("no resolved artifact under %s, skipping index", packageDir)
			continue
		}
		page := indexPage(entry.Name(), sidecar)
		indexPath := filepath.Join(packageDir, "index.html")
		if err := os.WriteFile(indexPath, []byte(page), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", indexPath, err)
		}
		log.Debugf("wrote mirror index %s", indexPath)
	}
	return nil
}

func indexPage(packageName string, sc *hashutil.Sidecar) string {
	return strings.Join([]string{
		"<html>",
		"  <head>",
		fmt.Sprintf("    <title>Links for %s</title>", packageName),
		`    <meta name="api-version" value="2" />`,
		"  </head>",
		"  <body>",
		fmt.Sprintf("    <h1>Links for %s</h1>", packageName),
		fmt.Sprintf(`    <a href="%s#%s=%s" rel="internal">%s</a>`,
			sc.Filename, sc.Algo, sc.Digest, sc.Filename),
		"  </body>",
		"</html>",
		"",
	}, "\n")
}
