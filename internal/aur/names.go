package aur

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/sahilm/fuzzy"
)

const namesTTL = 24 * time.Hour

// NameIndex is the list of every package name in the registry, taken from
// packages.gz and cached on disk as zstd.
type NameIndex struct {
	l         hclog.Logger
	baseURL   string
	hClient   *http.Client
	cacheFile string
	names     []string
}

// NameIndex returns an index cached under cacheDir.
func (c *Client) NameIndex(cacheDir string) *NameIndex {
	return &NameIndex{
		l:         c.l.Named("names"),
		baseURL:   c.baseURL,
		hClient:   c.hClient,
		cacheFile: filepath.Join(cacheDir, "packages.zst"),
	}
}

// Load reads the cached list, refreshing it when older than a day.
func (idx *NameIndex) Load(ctx context.Context) error {
	if idx.isCacheValid() {
		err := idx.readCache()
		if err == nil {
			return nil
		}
		idx.l.Debug("Discarding unreadable name cache", "error", err)
	}
	if err := idx.download(ctx); err != nil {
		return err
	}
	return idx.readCache()
}

// Len returns the number of known names.
func (idx *NameIndex) Len() int {
	return len(idx.names)
}

// Suggest returns up to n names close to name, best match first.
func (idx *NameIndex) Suggest(name string, n int) []string {
	matches := fuzzy.Find(name, idx.names)
	var out []string
	for _, m := range matches {
		if m.Str == name {
			continue
		}
		out = append(out, m.Str)
		if len(out) == n {
			break
		}
	}
	return out
}

func (idx *NameIndex) isCacheValid() bool {
	info, err := os.Stat(idx.cacheFile)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < namesTTL
}

func (idx *NameIndex) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, idx.baseURL+"/packages.gz", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := idx.hClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading name list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading name list: HTTP %d", resp.StatusCode)
	}

	gz, err := pgzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("decompressing name list: %w", err)
	}
	defer gz.Close()

	if err := os.MkdirAll(filepath.Dir(idx.cacheFile), 0o755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(idx.cacheFile), ".packages-*")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return err
	}
	if _, err := io.Copy(enc, gz); err != nil {
		enc.Close()
		tmp.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	idx.l.Debug("Refreshed name list", "path", idx.cacheFile)
	return os.Rename(tmp.Name(), idx.cacheFile)
}

func (idx *NameIndex) readCache() error {
	f, err := os.Open(idx.cacheFile)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	var names []string
	scanner := bufio.NewScanner(dec)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading name cache: %w", err)
	}
	idx.names = names
	return nil
}
