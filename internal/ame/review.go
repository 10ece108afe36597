package ame

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"
)

// recipeFile is the canonical build recipe inside a checkout.
const recipeFile = "PKGBUILD"

// reviewStore remembers the digest of every recipe the user has approved.
type reviewStore struct {
	dir string
}

func newReviewStore(cacheDir string) *reviewStore {
	return &reviewStore{dir: filepath.Join(cacheDir, ".reviews")}
}

func recipeDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Unchanged reports whether the recipe in dir matches the last approved one.
func (s *reviewStore) Unchanged(pkg, dir string) bool {
	stored, err := os.ReadFile(filepath.Join(s.dir, pkg))
	if err != nil {
		return false
	}
	current, err := recipeDigest(filepath.Join(dir, recipeFile))
	if err != nil {
		return false
	}
	return string(bytes.TrimSpace(stored)) == current
}

// Approve records the current digest of the recipe in dir.
func (s *reviewStore) Approve(pkg, dir string) error {
	digest, err := recipeDigest(filepath.Join(dir, recipeFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, pkg), []byte(digest+"\n"), 0o644)
}

// review lets the user page selected recipes and confirm the install.
// Declining leaves the fetched recipes in the cache.
func (p *Pipeline) review(ctx context.Context, builds []*BuildContext) error {
	if p.opts.NoConfirm || p.opts.SkipReview || len(builds) == 0 {
		return nil
	}

	var items []string
	var checkouts []*BuildContext
	seen := make(map[string]bool)
	for _, b := range builds {
		if seen[b.Dir] {
			continue
		}
		seen[b.Dir] = true
		base := b.Info.Package.Base()
		label := base + " " + b.Info.Package.Version
		switch {
		case p.reviews.Unchanged(base, b.Dir):
			label += " (unchanged since last review)"
		case b.Fresh:
			label += " (new or updated)"
		}
		items = append(items, label)
		checkouts = append(checkouts, b)
	}

	selected, err := p.prompt.Select("Select recipes to review", items)
	if err != nil {
		return err
	}
	for _, i := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := checkouts[i]
		path := filepath.Join(b.Dir, recipeFile)
		if err := p.h.Suspend(func() error { return p.pager.Page(path) }); err != nil {
			p.h.Warnf("Could not show %s: %v", path, err)
			continue
		}
		for _, other := range builds {
			if other.Dir == b.Dir {
				other.Reviewed = true
			}
		}
	}

	ok, err := p.prompt.Confirm("Do you still want to install these packages?", true)
	if err != nil {
		return err
	}
	if !ok {
		return errUserCancellation()
	}

	for _, b := range checkouts {
		if !b.Reviewed {
			continue
		}
		if err := p.reviews.Approve(b.Info.Package.Base(), b.Dir); err != nil {
			p.l.Warn("Could not record review", "package", b.Name(), "error", err)
		}
	}
	return nil
}
