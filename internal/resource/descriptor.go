package resource

// Kind identifies which behavioral variant a descriptor produces.
type Kind string

const (
	KindLocal Kind = "local"
	KindURL   Kind = "url"
	KindPyPI  Kind = "pypi"
)

// Descriptor is the normalized, immutable record of one declared
// resource. Exactly one of File, URL, or PyPI is expected to be set;
// dispatch inspects them in order (URL, PyPI, File) and the first
// populated field wins.
type Descriptor struct {
	Name        string
	File        string // local file path
	URL         string // direct download URL
	PyPI        string // package spec (name with optional version constraint) or download URL
	Filename    string // overrides the filename derived from the source
	Destination string // overrides outputDir/filename
	Hash        string // hex digest, or a URL serving the digest
	HashType    string // digest algorithm, e.g. sha256
}

// Kind applies the dispatch decision table.
func (d Descriptor) Kind() Kind {
	switch {
	case d.URL != "":
		return KindURL
	case d.PyPI != "":
		return KindPyPI
	default:
		return KindLocal
	}
}
