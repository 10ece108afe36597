package ame

import (
	"context"
	"fmt"

	"ame/internal/aur"
)

type resolution struct {
	// Order lists AUR packages so that every package follows its AUR
	// dependencies.
	Order []*DependencyInformation
	// RepoDeps are the repository dependencies of every AUR package,
	// deduplicated by bare name.
	RepoDeps []PackageName
}

type depKind int

const (
	depInstalled depKind = iota
	depRepo
	depAur
)

type depClass struct {
	kind depKind
	repo PackageName
	pkg  aur.Package
	name string // installed name
}

type resolver struct {
	p         *Pipeline
	installed map[string]bool
	classes   map[string]depClass // keyed by the dependency's bare name
	nodes     map[string]*DependencyInformation
	order     []string // discovery order
}

// resolve walks the dependency graph of the AUR targets level by level,
// batching registry lookups, then orders it for building.
func (p *Pipeline) resolve(ctx context.Context, aurNames []PackageName) (*resolution, error) {
	if len(aurNames) == 0 {
		return &resolution{}, nil
	}
	spinner := p.h.NewSpinner("Resolving dependencies")
	defer spinner.Finish("")

	installed, err := p.pm.Installed(ctx)
	if err != nil {
		return nil, err
	}
	r := &resolver{
		p:         p,
		installed: installed,
		classes:   make(map[string]depClass),
		nodes:     make(map[string]*DependencyInformation),
	}

	names := make([]string, 0, len(aurNames))
	explicit := make(map[string]bool, len(aurNames))
	for _, n := range aurNames {
		names = append(names, n.Name)
		explicit[n.Name] = true
	}
	pkgs, err := p.registry.Info(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("querying the AUR: %w", err)
	}
	var level []aur.Package
	for _, name := range names {
		pkg, ok := findPackage(pkgs, name)
		if !ok {
			return nil, p.unknown(ctx, name)
		}
		level = append(level, pkg)
	}

	for len(level) > 0 {
		spinner.Describe(fmt.Sprintf("Resolving dependencies (%d packages)", len(r.nodes)+len(level)))
		var infos []*DependencyInformation
		for _, pkg := range level {
			if _, seen := r.nodes[pkg.Name]; seen {
				continue
			}
			info := &DependencyInformation{Package: pkg, Explicit: explicit[pkg.Name]}
			r.nodes[pkg.Name] = info
			r.order = append(r.order, pkg.Name)
			infos = append(infos, info)
		}
		if err := r.classify(ctx, infos); err != nil {
			return nil, err
		}
		level = r.split(infos)
	}

	order, err := r.topoSort()
	if err != nil {
		return nil, err
	}
	return &resolution{Order: order, RepoDeps: r.repoDeps()}, nil
}

// classify makes sure every dependency of infos has a class. Installed and
// repository names are checked one by one; the rest go to the AUR in one
// batch.
func (r *resolver) classify(ctx context.Context, infos []*DependencyInformation) error {
	var pending []string
	queued := make(map[string]bool)
	for _, info := range infos {
		for _, dep := range allDepends(info.Package) {
			name := bareName(dep)
			if _, ok := r.classes[name]; ok || queued[name] || providesName(info.Package, name) {
				continue
			}
			class, ok, err := r.classifyLocal(ctx, dep)
			if err != nil {
				return err
			}
			if ok {
				r.classes[name] = class
				continue
			}
			queued[name] = true
			pending = append(pending, name)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	found, err := r.p.registry.Info(ctx, pending)
	if err != nil {
		return fmt.Errorf("querying the AUR: %w", err)
	}
	for _, name := range pending {
		pkg, ok := findPackage(found, name)
		if !ok {
			if pkg, err = r.searchProvider(ctx, name); err != nil {
				return err
			}
		}
		r.classes[name] = depClass{kind: depAur, pkg: pkg}
	}
	return nil
}

// classifyLocal answers from the installed set and the sync repositories. A
// name only reachable through a repository package's provides counts as a
// repository dependency under that package's name.
func (r *resolver) classifyLocal(ctx context.Context, dep string) (depClass, bool, error) {
	pn, err := ParsePackageName(dep)
	if err != nil {
		return depClass{}, false, fmt.Errorf("malformed dependency %q: %w", dep, err)
	}
	if r.installed[pn.Name] {
		return depClass{kind: depInstalled, name: pn.Name}, true, nil
	}

	inRepo, err := r.p.pm.Exists(ctx, pn.Name)
	if err != nil {
		return depClass{}, false, err
	}
	if inRepo {
		return depClass{kind: depRepo, repo: pn}, true, nil
	}

	provider, ok, err := r.p.pm.Provider(ctx, pn.Name)
	if err != nil {
		return depClass{}, false, err
	}
	if !ok {
		return depClass{}, false, nil
	}
	r.p.l.Debug("Dependency provided by repository package", "dependency", pn.Name, "provider", provider)
	if r.installed[provider] {
		return depClass{kind: depInstalled, name: provider}, true, nil
	}
	return depClass{kind: depRepo, repo: PackageName{Name: provider}}, true, nil
}

// searchProvider looks for an AUR package providing name. Several candidates
// are only acceptable when one of them is named exactly name.
func (r *resolver) searchProvider(ctx context.Context, name string) (aur.Package, error) {
	candidates, err := r.p.registry.Search(ctx, name, aur.ByProvides)
	if err != nil {
		return aur.Package{}, fmt.Errorf("searching the AUR for %s: %w", name, err)
	}
	var pick aur.Package
	switch len(candidates) {
	case 0:
		return aur.Package{}, r.p.unknown(ctx, name)
	case 1:
		pick = candidates[0]
	default:
		exact, ok := findPackage(candidates, name)
		if !ok {
			return aur.Package{}, errAmbiguous(name)
		}
		pick = exact
	}

	// search results carry no dependency lists
	full, err := r.p.registry.Info(ctx, []string{pick.Name})
	if err != nil {
		return aur.Package{}, fmt.Errorf("querying the AUR for %s: %w", pick.Name, err)
	}
	pkg, ok := findPackage(full, pick.Name)
	if !ok {
		return aur.Package{}, errUnknownPackage(pick.Name)
	}
	r.p.l.Debug("Dependency provided by AUR package", "dependency", name, "provider", pkg.Name)
	return pkg, nil
}

// split fills the dependency splits of infos and returns the AUR packages
// not seen yet.
func (r *resolver) split(infos []*DependencyInformation) []aur.Package {
	var next []aur.Package
	queued := make(map[string]bool)
	for _, info := range infos {
		lists := [][]string{info.Package.Depends, info.Package.MakeDepends, info.Package.CheckDepends}
		for i, split := range info.splits() {
			for _, dep := range lists[i] {
				name := bareName(dep)
				class, ok := r.classes[name]
				if !ok || providesName(info.Package, name) || (class.kind == depAur && class.pkg.Name == info.Package.Name) {
					// the package satisfies this dependency itself
					r.p.l.Trace("Skipping self-provided dependency", "package", info.Package.Name, "dependency", name)
					continue
				}
				pn, err := ParsePackageName(dep)
				if err != nil {
					pn = PackageName{Name: name}
				}
				switch class.kind {
				case depInstalled:
					split.Installed = append(split.Installed, class.name)
				case depRepo:
					if class.repo.Name == name {
						split.Repo = append(split.Repo, pn)
					} else {
						split.Repo = append(split.Repo, class.repo)
					}
				case depAur:
					r.p.checkConstraint(pn, class.pkg.Version)
					split.Aur = append(split.Aur, class.pkg)
					if _, seen := r.nodes[class.pkg.Name]; !seen && !queued[class.pkg.Name] {
						queued[class.pkg.Name] = true
						next = append(next, class.pkg)
					}
				}
			}
		}
	}
	return next
}

const (
	white = iota
	gray
	black
)

// topoSort orders the graph by depth-first post-order so dependencies come
// first. Roots are visited in discovery order, which starts with the user's
// targets in input order.
func (r *resolver) topoSort() ([]*DependencyInformation, error) {
	color := make(map[string]int, len(r.nodes))
	var out []*DependencyInformation
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			path := []string{name}
			for i := len(stack) - 1; i >= 0; i-- {
				path = append([]string{stack[i]}, path...)
				if stack[i] == name {
					break
				}
			}
			return errCyclicDependency(path)
		}
		color[name] = gray
		stack = append(stack, name)
		info := r.nodes[name]
		for _, split := range info.splits() {
			for _, dep := range split.Aur {
				if err := visit(dep.Name); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		out = append(out, info)
		return nil
	}

	for _, name := range r.order {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *resolver) repoDeps() []PackageName {
	var out []PackageName
	seen := make(map[string]bool)
	for _, name := range r.order {
		for _, split := range r.nodes[name].splits() {
			for _, dep := range split.Repo {
				if !seen[dep.Name] {
					seen[dep.Name] = true
					out = append(out, dep)
				}
			}
		}
	}
	return out
}

func allDepends(pkg aur.Package) []string {
	out := make([]string, 0, len(pkg.Depends)+len(pkg.MakeDepends)+len(pkg.CheckDepends))
	out = append(out, pkg.Depends...)
	out = append(out, pkg.MakeDepends...)
	return append(out, pkg.CheckDepends...)
}

func providesName(pkg aur.Package, name string) bool {
	for _, p := range pkg.Provides {
		if bareName(p) == name {
			return true
		}
	}
	return false
}

func findPackage(pkgs []aur.Package, name string) (aur.Package, bool) {
	for _, pkg := range pkgs {
		if pkg.Name == name {
			return pkg, true
		}
	}
	return aur.Package{}, false
}
