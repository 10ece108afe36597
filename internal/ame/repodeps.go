package ame

import (
	"context"
	"strings"
)

// installRepo installs the requested repository packages and the repository
// dependencies of the AUR packages in one transaction, then marks the
// dependencies (or everything, with asdeps) as installed as dependencies.
func (p *Pipeline) installRepo(ctx context.Context, explicit, deps []PackageName) error {
	var targets, asDeps []string
	seen := make(map[string]bool)
	for _, t := range explicit {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		targets = append(targets, t.String())
		if p.opts.AsDeps {
			asDeps = append(asDeps, t.Name)
		}
	}
	for _, d := range deps {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		targets = append(targets, d.String())
		asDeps = append(asDeps, d.Name)
	}
	if len(targets) == 0 {
		return nil
	}

	p.h.Infof("Installing repository packages: %s", strings.Join(targets, ", "))
	err := p.h.Suspend(func() error {
		return p.pm.Install(ctx, targets, p.opts.NoConfirm)
	})
	if err != nil {
		return errRepoInstallFailed(err)
	}
	p.report.RepoInstalled = targets

	if len(asDeps) > 0 {
		p.l.Debug("Marking as dependencies", "packages", asDeps)
		if err := p.h.Suspend(func() error { return p.pm.MarkAsDeps(ctx, asDeps) }); err != nil {
			return errRepoInstallFailed(err)
		}
	}
	return nil
}
