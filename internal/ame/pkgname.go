package ame

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var pkgNameRe = regexp.MustCompile(`^[a-zA-Z0-9@_+][a-zA-Z0-9@._+-]*$`)

// constraint operators, longest first so ">=" wins over ">"
var constraintOps = []string{">=", "<=", ">", "<", "="}

// PackageName is a package name with an optional version constraint such as
// "foo>=1.2".
type PackageName struct {
	Name    string
	Op      string
	Version string
}

// ParsePackageName splits s into its bare name and constraint.
func ParsePackageName(s string) (PackageName, error) {
	s = strings.TrimSpace(s)
	p := PackageName{Name: s}
	if idx := strings.IndexAny(s, "<>="); idx >= 0 {
		rest := s[idx:]
		for _, op := range constraintOps {
			if strings.HasPrefix(rest, op) {
				p = PackageName{Name: s[:idx], Op: op, Version: rest[len(op):]}
				break
			}
		}
		if p.Version == "" {
			return PackageName{}, fmt.Errorf("invalid version constraint in %q", s)
		}
	}
	if !pkgNameRe.MatchString(p.Name) {
		return PackageName{}, fmt.Errorf("invalid package name %q", s)
	}
	return p, nil
}

// ParsePackageNames parses a list, stopping at the first invalid entry.
func ParsePackageNames(in []string) ([]PackageName, error) {
	out := make([]PackageName, 0, len(in))
	for _, s := range in {
		p, err := ParsePackageName(s)
		if err != nil {
			return nil, &usageError{msg: err.Error()}
		}
		out = append(out, p)
	}
	return out, nil
}

// String returns the name with its constraint, as the native manager expects it.
func (p PackageName) String() string {
	return p.Name + p.Op + p.Version
}

func (p PackageName) HasConstraint() bool {
	return p.Op != ""
}

// bareName strips any version constraint from a dependency string.
func bareName(dep string) string {
	if idx := strings.IndexAny(dep, "<>="); idx >= 0 {
		return dep[:idx]
	}
	return dep
}

// Satisfies checks the constraint against an Arch version string
// ([epoch:]pkgver[-pkgrel]). known is false when either side cannot be
// compared.
func (p PackageName) Satisfies(have string) (ok, known bool) {
	if !p.HasConstraint() {
		return true, true
	}
	hv, err := semver.NewVersion(comparableVersion(have))
	if err != nil {
		return false, false
	}
	wv, err := semver.NewVersion(comparableVersion(p.Version))
	if err != nil {
		return false, false
	}
	c := hv.Compare(wv)
	switch p.Op {
	case ">=":
		return c >= 0, true
	case "<=":
		return c <= 0, true
	case ">":
		return c > 0, true
	case "<":
		return c < 0, true
	case "=":
		return c == 0, true
	}
	return false, false
}

// comparableVersion drops the epoch and pkgrel parts.
func comparableVersion(v string) string {
	if _, after, ok := strings.Cut(v, ":"); ok {
		v = after
	}
	if idx := strings.LastIndex(v, "-"); idx > 0 {
		v = v[:idx]
	}
	return v
}
