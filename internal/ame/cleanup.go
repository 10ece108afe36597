package ame

import (
	"context"
	"strings"
)

// makeOnly returns the make dependencies this run installed that nothing
// needs at runtime and the user did not ask for.
func makeOnly(res *resolution, targets []PackageName) []string {
	keep := make(map[string]bool)
	for _, t := range targets {
		keep[t.Name] = true
	}
	for _, info := range res.Order {
		for _, dep := range info.Package.Depends {
			keep[bareName(dep)] = true
		}
		for _, dep := range info.Depends.Repo {
			keep[dep.Name] = true
		}
		for _, dep := range info.Depends.Aur {
			keep[dep.Name] = true
		}
	}

	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if keep[name] || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, info := range res.Order {
		for _, dep := range info.MakeDepends.Repo {
			add(dep.Name)
		}
		for _, dep := range info.MakeDepends.Aur {
			add(dep.Name)
		}
	}
	return out
}

// cleanup offers to remove make-only dependencies. Failures are reported
// and otherwise ignored since the requested packages are installed by now.
func (p *Pipeline) cleanup(ctx context.Context, res *resolution, targets []PackageName) {
	if p.opts.NoConfirm {
		return
	}
	names := makeOnly(res, targets)
	if len(names) == 0 {
		return
	}

	p.h.Infof("Make dependencies installed by this run:")
	p.h.PrintList(names, "  - ")
	ok, err := p.prompt.Confirm("Remove installed make-dependencies?", true)
	if err != nil || !ok {
		return
	}

	err = p.h.Suspend(func() error {
		return p.pm.Uninstall(ctx, names, RemoveFlags{Recursive: true, NoSave: true, NoConfirm: true})
	})
	if err != nil {
		p.h.Warnf("%v", errCleanupFailed(err))
		return
	}
	p.report.Removed = names
	p.h.Infof("Removed %s", strings.Join(names, ", "))
}
