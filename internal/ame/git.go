package ame

import (
	"context"
	"errors"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
	gitPlumbing "github.com/go-git/go-git/v5/plumbing"
	"github.com/hashicorp/go-hclog"
)

// RecipeSource keeps a local checkout of a recipe repository in sync.
type RecipeSource interface {
	// Sync clones url into dir, or brings an existing checkout up to date.
	// changed is true when the working tree now differs from before.
	Sync(ctx context.Context, url, dir string) (changed bool, err error)
}

// GitSource implements RecipeSource with go-git.
type GitSource struct {
	l hclog.Logger
}

func NewGitSource(l hclog.Logger) *GitSource {
	return &GitSource{l: l.Named("git")}
}

func (g *GitSource) Sync(ctx context.Context, url, dir string) (bool, error) {
	repo, err := git.PlainOpen(dir)
	switch {
	case err == nil:
		if reason := invalidCheckout(repo); reason != "" {
			g.l.Debug("Replacing broken checkout", "path", dir, "reason", reason)
			if err := os.RemoveAll(dir); err != nil {
				return false, err
			}
			return true, g.clone(ctx, url, dir)
		}
		return g.update(ctx, repo, dir)
	case errors.Is(err, git.ErrRepositoryNotExists):
		if _, statErr := os.Stat(dir); statErr == nil {
			g.l.Debug("Replacing directory that is not a checkout", "path", dir)
			if err := os.RemoveAll(dir); err != nil {
				return false, err
			}
		}
		return true, g.clone(ctx, url, dir)
	default:
		return false, fmt.Errorf("opening %s: %w", dir, err)
	}
}

// invalidCheckout reports why repo cannot be updated in place, or "" when it
// can. An interrupted clone leaves a repository without HEAD or remote refs.
func invalidCheckout(repo *git.Repository) string {
	head, err := repo.Head()
	if err != nil {
		return "no HEAD: " + err.Error()
	}
	if _, err := repo.Remote("origin"); err != nil {
		return "no origin remote: " + err.Error()
	}
	branch := head.Name().Short()
	if _, err := repo.Reference(gitPlumbing.NewRemoteReferenceName("origin", branch), true); err != nil {
		return "no origin/" + branch + ": " + err.Error()
	}
	return ""
}

func (g *GitSource) clone(ctx context.Context, url, dir string) error {
	g.l.Debug("Cloning repository", "path", dir, "url", url)
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: url})
	if err != nil {
		// never leave a half-written checkout behind
		os.RemoveAll(dir)
		return err
	}
	return nil
}

// update fetches origin and hard-resets the current branch to its remote head.
func (g *GitSource) update(ctx context.Context, repo *git.Repository, dir string) (bool, error) {
	oldHead, err := repo.Head()
	if err != nil {
		g.l.Trace("Error getting old HEAD")
		return false, err
	}

	g.l.Debug("Fetching origin for git repository", "path", dir)
	err = repo.FetchContext(ctx, &git.FetchOptions{RemoteName: "origin", Force: true})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false, err
	}

	remote, err := repo.Reference(gitPlumbing.NewRemoteReferenceName("origin", oldHead.Name().Short()), true)
	if err != nil {
		return false, fmt.Errorf("resolving origin/%s: %w", oldHead.Name().Short(), err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		g.l.Trace("Error getting worktree")
		return false, err
	}
	if err := worktree.Reset(&git.ResetOptions{Commit: remote.Hash(), Mode: git.HardReset}); err != nil {
		return false, err
	}

	changed := oldHead.Hash() != remote.Hash()
	g.l.Trace("Checkout updated", "path", dir, "old", oldHead.Hash().String(), "new", remote.Hash().String())
	return changed, nil
}
