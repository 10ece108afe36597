package ame

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

const fetchRetryBackoff = 500 * time.Millisecond

// fetch brings the recipe of every package into the cache. Split packages
// share one checkout named after their package base.
func (p *Pipeline) fetch(ctx context.Context, order []*DependencyInformation) ([]*BuildContext, error) {
	if len(order) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(p.cacheDir, 0o755); err != nil {
		return nil, errFetchFailed(order[0].Package.Name, err)
	}

	bases := make(map[string]bool)
	for _, info := range order {
		bases[info.Package.Base()] = true
	}
	group := p.h.NewMultiProgress("Fetching recipes", len(bases))
	defer group.Finish("")

	fresh := make(map[string]bool, len(bases))
	builds := make([]*BuildContext, 0, len(order))
	for i, info := range order {
		base := info.Package.Base()
		dir := filepath.Join(p.cacheDir, base)
		changed, done := fresh[base]
		if !done {
			group.Start(base)
			var err error
			changed, err = p.syncRecipe(ctx, base, dir)
			if err != nil {
				return nil, errFetchFailed(info.Package.Name, err)
			}
			group.Done(base)
			fresh[base] = changed
		}
		builds = append(builds, &BuildContext{Info: info, Dir: dir, Fresh: changed, Ordinal: i})
	}
	group.Finish(fmt.Sprintf("Fetched %d recipes", len(fresh)))
	return builds, nil
}

// syncRecipe retries once on a transient transport failure.
func (p *Pipeline) syncRecipe(ctx context.Context, base, dir string) (bool, error) {
	url := p.aurURL + "/" + base + ".git"
	changed, err := p.source.Sync(ctx, url, dir)
	if err == nil || ctx.Err() != nil || !isTransientGit(err) {
		return changed, err
	}
	p.l.Warn("Transient git failure, retrying once", "package", base, "error", err)
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(fetchRetryBackoff):
	}
	return p.source.Sync(ctx, url, dir)
}

func isTransientGit(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *githttp.Err
	return errors.As(err, &httpErr) && httpErr.Response != nil && httpErr.Response.StatusCode >= 500
}
