// Package archive extracts tar- and zip-style artifacts into a
// destination directory, optionally flattening away a single top-level
// wrapper directory.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Kind identifies the container format of an artifact.
type Kind int

const (
	KindNone Kind = iota
	KindTar
	KindZip
)

var (
	magicZip   = []byte{'P', 'K', 0x03, 0x04}
	magicGzip  = []byte{0x1f, 0x8b}
	magicXz    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicBzip2 = []byte{'B', 'Z', 'h'}
)

// Detect sniffs the container format of the file at path. Compressed
// tar variants (gzip, xz, zstd, bzip2) and plain tar all report KindTar.
// Anything unrecognized is KindNone and should be treated as an opaque
// blob.
func Detect(path string) Kind {
	f, err := os.Open(path)
	if err != nil {
		return KindNone
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, magicZip):
		return KindZip
	case bytes.HasPrefix(head, magicGzip),
		bytes.HasPrefix(head, magicXz),
		bytes.HasPrefix(head, magicZstd),
		bytes.HasPrefix(head, magicBzip2):
		return KindTar
	}
	// Plain tar: "ustar" magic at offset 257.
	if len(head) >= 262 && bytes.Equal(head[257:262], []byte("ustar")) {
		return KindTar
	}
	return KindNone
}

// Extract unpacks the artifact at src into destDir. With skipTopLevel,
// members consisting solely of one leading path segment are dropped and
// every other member has that leading segment removed, flattening a
// single wrapper directory out of the archive.
func Extract(src string, destDir string, skipTopLevel bool) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", destDir, err)
	}
	switch Detect(src) {
	case KindTar:
		return extractTar(src, destDir, skipTopLevel)
	case KindZip:
		return extractZip(src, destDir, skipTopLevel)
	default:
		return fmt.Errorf("%s is not a recognized archive", src)
	}
}

// memberPath applies the skip-top-level rule and rejects unsafe names.
// An empty result means the member should be skipped.
func memberPath(name string, skipTopLevel bool) (string, error) {
	name = strings.TrimPrefix(name, "./")
	clean := filepath.Clean(name)
	if clean == "." {
		return "", nil
	}
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("archive member %q escapes the destination", name)
	}
	if !skipTopLevel {
		return clean, nil
	}
	parts := strings.SplitN(clean, string(filepath.Separator), 2)
	if len(parts) == 1 {
		return "", nil // pure top-level member, dropped
	}
	return parts[1], nil
}

func tarReader(f *os.File) (io.Reader, error) {
	head := make([]byte, 6)
	n, _ := io.ReadFull(f, head)
	head = head[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch {
	case bytes.HasPrefix(head, magicGzip):
		return gzip.NewReader(f)
	case bytes.HasPrefix(head, magicXz):
		return xz.NewReader(f)
	case bytes.HasPrefix(head, magicZstd):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case bytes.HasPrefix(head, magicBzip2):
		return bzip2.NewReader(f), nil
	default:
		return f, nil
	}
}

func extractTar(src string, destDir string, skipTopLevel bool) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer f.Close()

	r, err := tarReader(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", src, err)
		}

		rel, err := memberPath(hdr.Name, skipTopLevel)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		target := filepath.Join(destDir, rel)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)|0700); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeMember(target, tr, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("linking %s: %w", target, err)
			}
		}
	}
}

func extractZip(src string, destDir string, skipTopLevel bool) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer zr.Close()

	for _, member := range zr.File {
		rel, err := memberPath(member.Name, skipTopLevel)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		target := filepath.Join(destDir, rel)

		if member.FileInfo().IsDir() {
			if err := os.MkdirAll(target, member.Mode()|0700); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			continue
		}
		rc, err := member.Open()
		if err != nil {
			return fmt.Errorf("reading %s: %w", member.Name, err)
		}
		err = writeMember(target, rc, member.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeMember(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}
	perm := mode.Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", target, err)
	}
	return out.Close()
}
