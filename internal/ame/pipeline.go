package ame

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"ame/internal/aur"
	"ame/internal/logging"
)

// Registry is the AUR metadata service.
type Registry interface {
	Info(ctx context.Context, names []string) ([]aur.Package, error)
	Search(ctx context.Context, query string, by aur.SearchBy) ([]aur.Package, error)
}

// Suggester proposes registry names close to a misspelt one.
type Suggester interface {
	Load(ctx context.Context) error
	Suggest(name string, n int) []string
}

// State is the stage the pipeline is in.
type State int

const (
	StateSort State = iota
	StateResolve
	StateFetch
	StateReview
	StateRepoDeps
	StateBuild
	StateCleanup
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateSort:
		return "sort"
	case StateResolve:
		return "resolve"
	case StateFetch:
		return "fetch"
	case StateReview:
		return "review"
	case StateRepoDeps:
		return "repo-deps"
	case StateBuild:
		return "build"
	case StateCleanup:
		return "cleanup"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// DependencySplit is one dependency list of an AUR package after
// classification. Every name of the list lands in exactly one field, except
// names the package provides itself.
type DependencySplit struct {
	Repo      []PackageName
	Aur       []aur.Package
	Installed []string
}

// DependencyInformation is a resolved AUR package with its classified
// dependencies.
type DependencyInformation struct {
	Package      aur.Package
	Depends      DependencySplit
	MakeDepends  DependencySplit
	CheckDepends DependencySplit
	Explicit     bool // requested by the user rather than pulled in
}

func (d *DependencyInformation) splits() []*DependencySplit {
	return []*DependencySplit{&d.Depends, &d.MakeDepends, &d.CheckDepends}
}

// BuildContext is the per-package state carried from fetch to build.
type BuildContext struct {
	Info     *DependencyInformation
	Dir      string
	Fresh    bool // cloned or changed by this run
	Ordinal  int
	Reviewed bool
}

func (b *BuildContext) Name() string { return b.Info.Package.Name }

// Report summarises a finished run.
type Report struct {
	RepoInstalled []string
	Built         []string
	Artifacts     []Artifact
	Removed       []string
}

// Pipeline installs a set of packages from the repositories and the AUR.
type Pipeline struct {
	h *logging.Handler
	l hclog.Logger

	registry Registry
	names    Suggester
	pm       PackageManager
	builder  Builder
	source   RecipeSource
	pager    Pager
	prompt   Prompter

	cacheDir string
	aurURL   string
	opts     Options
	reviews  *reviewStore

	state  State
	report Report
}

// Collaborators are the external tools a Pipeline drives.
type Collaborators struct {
	Registry Registry
	Names    Suggester // optional
	Manager  PackageManager
	Builder  Builder
	Source   RecipeSource
	Pager    Pager
	Prompter Prompter
}

func NewPipeline(h *logging.Handler, c Collaborators, cacheDir, aurURL string, opts Options) *Pipeline {
	return &Pipeline{
		h:        h,
		l:        h.Logger().Named("pipeline"),
		registry: c.Registry,
		names:    c.Names,
		pm:       c.Manager,
		builder:  c.Builder,
		source:   c.Source,
		pager:    c.Pager,
		prompt:   c.Prompter,
		cacheDir: cacheDir,
		aurURL:   aurURL,
		opts:     opts,
		reviews:  newReviewStore(cacheDir),
	}
}

func (p *Pipeline) State() State { return p.state }

// Report returns what the last Run did, including partial progress of a
// failed run.
func (p *Pipeline) Report() Report { return p.report }

func (p *Pipeline) enter(s State) {
	p.l.Trace("Entering stage", "stage", s.String())
	p.state = s
}

// Run drives targets through every stage. Context cancellation surfaces as
// UserCancellation.
func (p *Pipeline) Run(ctx context.Context, targets []PackageName) (err error) {
	p.report = Report{}
	defer func() {
		if err != nil {
			p.state = StateAborted
			err = cancelled(ctx, err)
		}
	}()

	p.enter(StateSort)
	sorted, err := p.sort(ctx, targets)
	if err != nil {
		return err
	}

	p.enter(StateResolve)
	res, err := p.resolve(ctx, sorted.Aur)
	if err != nil {
		return err
	}

	if len(res.Order) > 0 {
		lock, busy, lockErr := tryLockCache(p.cacheDir)
		switch {
		case busy:
			p.h.Warnf("Another process is using %s", p.cacheDir)
		case lockErr != nil:
			p.l.Debug("Cache lock unavailable", "error", lockErr)
		}
		defer lock.Release()
	}

	p.enter(StateFetch)
	builds, err := p.fetch(ctx, res.Order)
	if err != nil {
		return err
	}

	p.enter(StateReview)
	if err := p.review(ctx, builds); err != nil {
		return err
	}

	p.enter(StateRepoDeps)
	if err := p.installRepo(ctx, sorted.Repo, res.RepoDeps); err != nil {
		return err
	}

	p.enter(StateBuild)
	if err := p.build(ctx, builds); err != nil {
		return err
	}

	p.enter(StateCleanup)
	p.cleanup(ctx, res, targets)

	p.enter(StateDone)
	return nil
}
