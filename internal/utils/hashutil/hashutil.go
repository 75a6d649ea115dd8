// Package hashutil provides streaming digest computation and the hash
// sidecar convention used by the mirror layout: an artifact's digest is
// stored next to it in a file named <artifact>.<algorithm>.
package hashutil

import (
	"bufio"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Algorithms lists the supported digest algorithms in preference order.
// The order matters for sidecar discovery: the first algorithm with a
// sidecar file present wins.
var Algorithms = []string{"sha256", "sha512", "sha1", "md5"}

var constructors = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// Supported reports whether the named algorithm can be computed.
func Supported(algo string) bool {
	_, ok := constructors[algo]
	return ok
}

// New returns a fresh hash for the named algorithm.
func New(algo string) (hash.Hash, error) {
	ctor, ok := constructors[algo]
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
	return ctor(), nil
}

const chunkSize = 32 * 1024

// FileDigest computes the hex digest of the file at path, reading in
// bounded chunks so large artifacts never sit in memory whole.
func FileDigest(path string, algo string) (string, error) {
	h, err := New(algo)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, bufio.NewReaderSize(f, chunkSize), buf); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SidecarPath returns the conventional sidecar filename for an artifact.
func SidecarPath(artifact string, algo string) string {
	return artifact + "." + algo
}

// WriteSidecar persists the digest of artifact under the sidecar
// convention.
func WriteSidecar(artifact string, algo string, digest string) error {
	return os.WriteFile(SidecarPath(artifact, algo), []byte(digest+"\n"), 0644)
}

// ReadSidecar returns the digest stored in a sidecar file: the first
// line, trimmed.
func ReadSidecar(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line := strings.SplitN(string(data), "\n", 2)[0]
	return strings.TrimSpace(line), nil
}

// Sidecar holds the state recovered from an on-disk sidecar file.
type Sidecar struct {
	Filename string // artifact filename, without directory
	Path     string // full artifact path
	Algo     string
	Digest   string
}

// FindSidecar scans dir for an artifact accompanied by a sidecar file
// for a supported algorithm and returns the recovered state, or nil if
// no such pair exists. Sidecar files themselves are never treated as
// artifacts.
func FindSidecar(dir string) (*Sidecar, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || isSidecarName(entry.Name()) {
			continue
		}
		artifact := filepath.Join(dir, entry.Name())
		for _, algo := range Algorithms {
			digest, err := ReadSidecar(SidecarPath(artifact, algo))
			if err != nil {
				continue
			}
			return &Sidecar{
				Filename: entry.Name(),
				Path:     artifact,
				Algo:     algo,
				Digest:   digest,
			}, nil
		}
	}
	return nil, nil
}

func isSidecarName(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return Supported(ext)
}
