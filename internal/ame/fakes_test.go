package ame

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"ame/internal/aur"
	"ame/internal/logging"
)

type fakeRegistry struct {
	pkgs      map[string]aur.Package
	provides  map[string][]aur.Package
	infoErr   map[string]error // Info fails when asked for one of these names
	infoCalls [][]string
}

func newFakeRegistry(pkgs ...aur.Package) *fakeRegistry {
	r := &fakeRegistry{
		pkgs:     make(map[string]aur.Package),
		provides: make(map[string][]aur.Package),
		infoErr:  make(map[string]error),
	}
	for _, p := range pkgs {
		r.pkgs[p.Name] = p
	}
	return r
}

func (r *fakeRegistry) Info(_ context.Context, names []string) ([]aur.Package, error) {
	r.infoCalls = append(r.infoCalls, append([]string(nil), names...))
	for _, n := range names {
		if err := r.infoErr[n]; err != nil {
			return nil, err
		}
	}
	var out []aur.Package
	for _, n := range names {
		if p, ok := r.pkgs[n]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRegistry) Search(_ context.Context, query string, by aur.SearchBy) ([]aur.Package, error) {
	if by != aur.ByProvides {
		return nil, fmt.Errorf("unexpected search by %s", by)
	}
	return r.provides[query], nil
}

type fakeManager struct {
	repo      map[string]bool
	providers map[string]string
	installed map[string]bool

	installErr error
	removeErr  error

	exists   []string
	installs [][]string
	marked   [][]string
	removed  [][]string
	removeBy []RemoveFlags
}

func newFakeManager(repo ...string) *fakeManager {
	m := &fakeManager{
		repo:      make(map[string]bool),
		providers: make(map[string]string),
		installed: make(map[string]bool),
	}
	for _, r := range repo {
		m.repo[r] = true
	}
	return m
}

func (m *fakeManager) Exists(_ context.Context, name string) (bool, error) {
	m.exists = append(m.exists, name)
	return m.repo[name], nil
}

func (m *fakeManager) Provider(_ context.Context, dep string) (string, bool, error) {
	p, ok := m.providers[dep]
	return p, ok, nil
}

func (m *fakeManager) Installed(context.Context) (map[string]bool, error) {
	out := make(map[string]bool, len(m.installed))
	for k, v := range m.installed {
		out[k] = v
	}
	return out, nil
}

func (m *fakeManager) Install(_ context.Context, targets []string, _ bool) error {
	m.installs = append(m.installs, append([]string(nil), targets...))
	if m.installErr != nil {
		return m.installErr
	}
	for _, t := range targets {
		m.installed[bareName(t)] = true
	}
	return nil
}

func (m *fakeManager) MarkAsDeps(_ context.Context, names []string) error {
	m.marked = append(m.marked, append([]string(nil), names...))
	return nil
}

func (m *fakeManager) Uninstall(_ context.Context, names []string, flags RemoveFlags) error {
	m.removed = append(m.removed, append([]string(nil), names...))
	m.removeBy = append(m.removeBy, flags)
	return m.removeErr
}

// fakeExit mimics *exec.ExitError.
type fakeExit struct{ code int }

func (e fakeExit) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e fakeExit) ExitCode() int { return e.code }

type fakeBuilder struct {
	fail  map[string]int
	built []string
	dirs  []string
	flags map[string]BuildFlags
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{fail: make(map[string]int), flags: make(map[string]BuildFlags)}
}

func (b *fakeBuilder) Build(_ context.Context, pkg, dir string, flags BuildFlags) error {
	b.dirs = append(b.dirs, dir)
	b.flags[pkg] = flags
	if code, ok := b.fail[pkg]; ok {
		return fakeExit{code: code}
	}
	b.built = append(b.built, pkg)
	return nil
}

type fakeSource struct {
	urls []string
	fail map[string]error
}

func (s *fakeSource) Sync(_ context.Context, url, dir string) (bool, error) {
	s.urls = append(s.urls, url)
	if err, ok := s.fail[url]; ok {
		return false, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	recipe := fmt.Sprintf("pkgname=%s\n", filepath.Base(dir))
	return true, os.WriteFile(filepath.Join(dir, recipeFile), []byte(recipe), 0o644)
}

type fakePager struct {
	paged []string
}

func (p *fakePager) Page(path string) error {
	p.paged = append(p.paged, path)
	return nil
}

type fakePrompter struct {
	confirms  []bool
	selection []int
	asked     []string
	items     [][]string
}

func (p *fakePrompter) Confirm(question string, def bool) (bool, error) {
	p.asked = append(p.asked, question)
	if len(p.confirms) == 0 {
		return def, nil
	}
	answer := p.confirms[0]
	p.confirms = p.confirms[1:]
	return answer, nil
}

func (p *fakePrompter) Select(title string, items []string) ([]int, error) {
	p.asked = append(p.asked, title)
	p.items = append(p.items, items)
	return p.selection, nil
}

type testEnv struct {
	registry *fakeRegistry
	manager  *fakeManager
	builder  *fakeBuilder
	source   *fakeSource
	pager    *fakePager
	prompter *fakePrompter
	cacheDir string
	out      *bytes.Buffer
}

func newTestEnv(t *testing.T, registry *fakeRegistry, manager *fakeManager) *testEnv {
	t.Helper()
	return &testEnv{
		registry: registry,
		manager:  manager,
		builder:  newFakeBuilder(),
		source:   &fakeSource{fail: make(map[string]error)},
		pager:    &fakePager{},
		prompter: &fakePrompter{},
		cacheDir: t.TempDir(),
		out:      &bytes.Buffer{},
	}
}

func (e *testEnv) pipeline(opts Options) *Pipeline {
	h := logging.New(logging.Options{Stdout: e.out, Stderr: e.out, Level: logging.Debug, Width: -1})
	return NewPipeline(h, Collaborators{
		Registry: e.registry,
		Manager:  e.manager,
		Builder:  e.builder,
		Source:   e.source,
		Pager:    e.pager,
		Prompter: e.prompter,
	}, e.cacheDir, "https://aur.example.org", opts)
}

func mustNames(t *testing.T, names ...string) []PackageName {
	t.Helper()
	out, err := ParsePackageNames(names)
	if err != nil {
		t.Fatalf("ParsePackageNames(%v) error = %v", names, err)
	}
	return out
}
