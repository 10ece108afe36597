package ame

import (
	"context"
	"fmt"
)

// suggestionCount is how many close names an UnknownPackage error offers.
const suggestionCount = 3

type sortResult struct {
	Repo []PackageName // constraint kept, passed to the native manager as is
	Aur  []PackageName // bare names
}

// sort classifies every target as a repository or AUR package, keeping
// input order within each class. The repositories win when both carry a name.
func (p *Pipeline) sort(ctx context.Context, targets []PackageName) (*sortResult, error) {
	spinner := p.h.NewSpinner("Sorting packages")
	defer spinner.Finish("")

	res := &sortResult{}
	for _, t := range targets {
		spinner.Describe(fmt.Sprintf("Sorting packages: %s", t.Name))

		inRepo, err := p.pm.Exists(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		if inRepo {
			p.l.Debug("Repository package", "name", t.String())
			res.Repo = append(res.Repo, t)
			continue
		}

		pkgs, err := p.registry.Info(ctx, []string{t.Name})
		if err != nil {
			return nil, fmt.Errorf("querying the AUR for %s: %w", t.Name, err)
		}
		if pkg, ok := findPackage(pkgs, t.Name); ok {
			p.l.Debug("AUR package", "name", t.Name, "version", pkg.Version)
			p.checkConstraint(t, pkg.Version)
			res.Aur = append(res.Aur, PackageName{Name: t.Name})
			continue
		}

		return nil, p.unknown(ctx, t.Name)
	}
	return res, nil
}

// unknown builds an UnknownPackage error with suggestions when the name
// index is available.
func (p *Pipeline) unknown(ctx context.Context, name string) error {
	err := errUnknownPackage(name)
	if p.names == nil || ctx.Err() != nil {
		return err
	}
	if loadErr := p.names.Load(ctx); loadErr != nil {
		p.l.Debug("Name index unavailable", "error", loadErr)
		return err
	}
	err.Suggestions = p.names.Suggest(name, suggestionCount)
	return err
}

// checkConstraint warns when an AUR version does not satisfy a requested
// constraint. The build goes ahead either way.
func (p *Pipeline) checkConstraint(want PackageName, have string) {
	if !want.HasConstraint() {
		return
	}
	ok, known := want.Satisfies(have)
	switch {
	case !known:
		p.h.Warnf("Cannot verify %s against AUR version %s", want.String(), have)
	case !ok:
		p.h.Warnf("AUR version %s of %s does not satisfy %s", have, want.Name, want.String())
	}
}
