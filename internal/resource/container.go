package resource

import (
	"sort"

	"github.com/deploykit/resource-mirror/internal/pypi"
	"github.com/deploykit/resource-mirror/internal/utils/network"
)

// Selector picks a subset of a container's resources. The zero value
// selects the required set; All selects every resource, optional
// included; Names selects exactly the listed resources in order.
type Selector struct {
	all   bool
	names []string
}

// All selects every resource, required and optional.
var All = Selector{all: true}

// Names selects the given resources in the given order.
func Names(names ...string) Selector {
	return Selector{names: names}
}

// Container owns the full resource set of one declaration source and
// tracks which names are required.
type Container struct {
	outputDir string
	resources map[string]Resource
	required  map[string]bool

	client   *network.Client
	resolver *pypi.Resolver
}

// NewContainer returns an empty container whose resources materialize
// under outputDir.
func NewContainer(outputDir string, client *network.Client, resolver *pypi.Resolver) *Container {
	return &Container{
		outputDir: outputDir,
		resources: make(map[string]Resource),
		required:  make(map[string]bool),
		client:    client,
		resolver:  resolver,
	}
}

func (c *Container) OutputDir() string { return c.outputDir }

// newResource applies the dispatch decision table: a URL field wins,
// then a package field, and anything else is a local resource.
func (c *Container) newResource(name string, d Descriptor) Resource {
	switch d.Kind() {
	case KindURL:
		return newURL(name, d, c.outputDir, c.client)
	case KindPyPI:
		return newPyPI(name, d, c.outputDir, c.client, c.resolver)
	default:
		return newLocal(name, d, c.outputDir)
	}
}

// AddRequired registers a resource the consuming unit cannot function
// without. Redeclaring a name is a configuration error.
func (c *Container) AddRequired(name string, d Descriptor) error {
	if err := c.add(name, d); err != nil {
		return err
	}
	c.required[name] = true
	return nil
}

// AddOptional registers a resource the consuming unit can function
// without.
func (c *Container) AddOptional(name string, d Descriptor) error {
	return c.add(name, d)
}

func (c *Container) add(name string, d Descriptor) error {
	if _, exists := c.resources[name]; exists {
		return &DuplicateNameError{Name: name}
	}
	c.resources[name] = c.newResource(name, d)
	return nil
}

// Get returns the named resource.
func (c *Container) Get(name string) (Resource, error) {
	r, ok := c.resources[name]
	if !ok {
		return nil, &UnknownResourceError{Name: name}
	}
	return r, nil
}

// Subset resolves a selector to concrete resources. Name order is
// deterministic: sorted for the required/all cases, listed order for an
// explicit selection.
func (c *Container) Subset(sel Selector) ([]Resource, error) {
	if sel.all {
		return c.sorted(func(string) bool { return true }), nil
	}
	if sel.names == nil {
		return c.sorted(func(name string) bool { return c.required[name] }), nil
	}
	out := make([]Resource, 0, len(sel.names))
	for _, name := range sel.names {
		r, err := c.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Container) sorted(include func(string) bool) []Resource {
	names := make([]string, 0, len(c.resources))
	for name := range c.resources {
		if include(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]Resource, 0, len(names))
	for _, name := range names {
		out = append(out, c.resources[name])
	}
	return out
}
