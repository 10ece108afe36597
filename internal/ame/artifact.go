package ame

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// Artifact describes a built package file by its embedded .PKGINFO.
type Artifact struct {
	Path    string
	Name    string
	Version string
	Arch    string
	Size    int64
}

var artifactSuffixes = []string{".pkg.tar.zst", ".pkg.tar.xz", ".pkg.tar.gz"}

// InspectArtifacts reads the metadata of every package file in dir written
// at or after since.
func InspectArtifacts(dir string, since time.Time) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Artifact
	for _, e := range entries {
		if e.IsDir() || !isArtifact(e.Name()) {
			continue
		}
		if info, err := e.Info(); err != nil || info.ModTime().Before(since) {
			continue
		}
		a, err := readArtifact(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func isArtifact(name string) bool {
	for _, s := range artifactSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// openTar picks the decompressor from the file extension.
func openTar(path string, f io.Reader) (*tar.Reader, func(), error) {
	switch {
	case strings.HasSuffix(path, ".zst"):
		zst, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader for %s: %w", path, err)
		}
		return tar.NewReader(zst), zst.Close, nil
	case strings.HasSuffix(path, ".xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader for %s: %w", path, err)
		}
		return tar.NewReader(xzr), func() {}, nil
	case strings.HasSuffix(path, ".gz"):
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader for %s: %w", path, err)
		}
		return tar.NewReader(gz), func() { gz.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported archive format: %s", path)
}

func readArtifact(path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, err
	}
	defer f.Close()

	tr, closeFn, err := openTar(path, f)
	if err != nil {
		return Artifact{}, err
	}
	defer closeFn()

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return Artifact{}, fmt.Errorf("%s has no .PKGINFO", filepath.Base(path))
		}
		if err != nil {
			return Artifact{}, fmt.Errorf("reading %s: %w", path, err)
		}
		if hdr.Name != ".PKGINFO" {
			continue
		}
		a := parsePkgInfo(tr)
		a.Path = path
		return a, nil
	}
}

// parsePkgInfo reads "key = value" lines.
func parsePkgInfo(r io.Reader) Artifact {
	var a Artifact
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), " = ")
		if !ok || strings.HasPrefix(key, "#") {
			continue
		}
		switch key {
		case "pkgname":
			a.Name = val
		case "pkgver":
			a.Version = val
		case "arch":
			a.Arch = val
		case "size":
			fmt.Sscan(val, &a.Size)
		}
	}
	return a
}
