// Package fetcher drives a declaration's resources through
// fetch-if-invalid and verify-all passes, caching built containers per
// (declaration source, output dir) so repeated calls within one run
// reuse resolved state.
package fetcher

import (
	"fmt"
	"sort"
	"sync"

	"github.com/deploykit/resource-mirror/internal/declaration"
	"github.com/deploykit/resource-mirror/internal/pypi"
	"github.com/deploykit/resource-mirror/internal/resource"
	"github.com/deploykit/resource-mirror/internal/utils/logger"
	"github.com/deploykit/resource-mirror/internal/utils/network"
)

type containerKey struct {
	source    string
	outputDir string
}

// Fetcher is the orchestration entry point. One Fetcher spans one run;
// its caches live and die with it.
type Fetcher struct {
	client   *network.Client
	resolver *pypi.Resolver

	mu         sync.Mutex
	containers map[containerKey]*resource.Container
}

// New builds a Fetcher with fresh caches and a shared HTTP client.
func New() *Fetcher {
	client := network.NewClient()
	return &Fetcher{
		client:     client,
		resolver:   pypi.NewResolver(client, pypi.NewIndexCache(client)),
		containers: make(map[containerKey]*resource.Container),
	}
}

// Resolver exposes the package-index resolver, mainly so tests can
// substitute the installer invocation.
func (f *Fetcher) Resolver() *pypi.Resolver { return f.resolver }

// Resources loads the declaration at source and returns its container,
// built once per (source, outputDir) pair. outputDir overrides the
// declaration's own option when non-empty.
func (f *Fetcher) Resources(source string, outputDir string) (*resource.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := containerKey{source: source, outputDir: outputDir}
	if c, ok := f.containers[key]; ok {
		return c, nil
	}

	decl, err := declaration.Load(source, f.client)
	if err != nil {
		return nil, err
	}
	dir := outputDir
	if dir == "" {
		dir = decl.OutputDir()
	}
	container := resource.NewContainer(dir, f.client, f.resolver)
	for name, entry := range decl.Resources {
		if err := container.AddRequired(name, toDescriptor(name, entry)); err != nil {
			return nil, err
		}
	}
	for name, entry := range decl.OptionalResources {
		if err := container.AddOptional(name, toDescriptor(name, entry)); err != nil {
			return nil, err
		}
	}
	f.containers[key] = container
	return container, nil
}

func toDescriptor(name string, e declaration.Entry) resource.Descriptor {
	return resource.Descriptor{
		Name:        name,
		File:        e.File,
		URL:         e.URL,
		PyPI:        e.PyPI,
		Filename:    e.Filename,
		Destination: e.Destination,
		Hash:        e.Hash,
		HashType:    e.HashType,
	}
}

// Invalid returns the sorted names of selected resources that fail
// verification.
func (f *Fetcher) Invalid(source string, outputDir string, sel resource.Selector) ([]string, error) {
	container, err := f.Resources(source, outputDir)
	if err != nil {
		return nil, err
	}
	return invalid(container, sel)
}

func invalid(container *resource.Container, sel resource.Selector) ([]string, error) {
	selected, err := container.Subset(sel)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, r := range selected {
		if !r.Verify() {
			names = append(names, r.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Verify reports whether every selected resource is present and valid.
func (f *Fetcher) Verify(source string, outputDir string, sel resource.Selector) (bool, error) {
	bad, err := f.Invalid(source, outputDir, sel)
	if err != nil {
		return false, err
	}
	return len(bad) == 0, nil
}

// Fetch attempts to fetch every selected resource that is currently
// invalid (or all of them when force is set). progress, if given, is
// called with each resource's name immediately before its fetch.
// Transport failures are logged and absorbed; the returned slice names
// the resources still invalid after the pass.
func (f *Fetcher) Fetch(source string, outputDir string, sel resource.Selector, mirrorURL string, force bool, progress func(name string)) ([]string, error) {
	log := logger.Logger()
	container, err := f.Resources(source, outputDir)
	if err != nil {
		return nil, err
	}
	bad, err := invalid(container, sel)
	if err != nil {
		return nil, err
	}
	badSet := make(map[string]bool, len(bad))
	for _, name := range bad {
		badSet[name] = true
	}

	selected, err := container.Subset(sel)
	if err != nil {
		return nil, err
	}
	for _, r := range selected {
		if !badSet[r.Name()] && !force {
			continue
		}
		if progress != nil {
			progress(r.Name())
		}
		if err := r.Fetch(mirrorURL); err != nil {
			// Recoverable by design: the failure resurfaces as a
			// verify miss below.
			log.Debugf("error fetching %s: %v", r.Name(), err)
		}
	}
	return invalid(container, sel)
}

// ResourcePath returns the local destination of a named resource. The
// path is not guaranteed to exist or be valid; callers should gate on
// Verify or Fetch first.
func (f *Fetcher) ResourcePath(source string, outputDir string, name string) (string, error) {
	container, err := f.Resources(source, outputDir)
	if err != nil {
		return "", err
	}
	r, err := container.Get(name)
	if err != nil {
		return "", err
	}
	return r.Path(), nil
}

// ResourceSpec returns the human-facing identifier of a named resource:
// its URL, package spec, or local path.
func (f *Fetcher) ResourceSpec(source string, outputDir string, name string) (string, error) {
	container, err := f.Resources(source, outputDir)
	if err != nil {
		return "", err
	}
	r, err := container.Get(name)
	if err != nil {
		return "", err
	}
	return r.Spec(), nil
}

// Install verifies and installs the named resources into destDir.
func (f *Fetcher) Install(source string, outputDir string, sel resource.Selector, destDir string, skipTopLevel bool) error {
	container, err := f.Resources(source, outputDir)
	if err != nil {
		return err
	}
	selected, err := container.Subset(sel)
	if err != nil {
		return err
	}
	for _, r := range selected {
		if err := r.Install(destDir, skipTopLevel); err != nil {
			return err
		}
	}
	return nil
}

// PipInstall installs the selected package-index resources with the
// ecosystem installer, preferring previously fetched local copies and
// falling back to the raw spec against the index. Selecting a resource
// of any other kind is an error.
func (f *Fetcher) PipInstall(source string, outputDir string, sel resource.Selector, indexURL string) error {
	container, err := f.Resources(source, outputDir)
	if err != nil {
		return err
	}
	selected, err := container.Subset(sel)
	if err != nil {
		return err
	}
	var targets []string
	for _, r := range selected {
		p, ok := r.(*resource.PyPIResource)
		if !ok {
			return fmt.Errorf("not a package-index resource: %s", r.Name())
		}
		if p.Verify() {
			targets = append(targets, p.Path())
		} else {
			targets = append(targets, p.Spec())
		}
	}
	if len(targets) == 0 {
		return nil
	}
	return f.resolver.InstallTargets(targets, indexURL)
}
