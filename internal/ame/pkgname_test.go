package ame

import (
	"reflect"
	"testing"
)

func TestParsePackageName(t *testing.T) {
	tests := []struct {
		in      string
		want    PackageName
		wantErr bool
	}{
		{in: "foo", want: PackageName{Name: "foo"}},
		{in: " lib32-glibc ", want: PackageName{Name: "lib32-glibc"}},
		{in: "foo>=1.2", want: PackageName{Name: "foo", Op: ">=", Version: "1.2"}},
		{in: "foo<2", want: PackageName{Name: "foo", Op: "<", Version: "2"}},
		{in: "python=3.12-1", want: PackageName{Name: "python", Op: "=", Version: "3.12-1"}},
		{in: "gtk+", want: PackageName{Name: "gtk+"}},
		{in: "foo>=", wantErr: true},
		{in: ">=1.0", wantErr: true},
		{in: "-foo", wantErr: true},
		{in: "foo bar", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePackageName(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePackageName(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParsePackageName(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePackageNamesUsageError(t *testing.T) {
	_, err := ParsePackageNames([]string{"ok", "bad name"})
	if ExitCode(err) != ExitUsage {
		t.Errorf("ExitCode() = %d, want %d", ExitCode(err), ExitUsage)
	}

	got, err := ParsePackageNames([]string{"a", "b>1"})
	if err != nil {
		t.Fatal(err)
	}
	want := []PackageName{{Name: "a"}, {Name: "b", Op: ">", Version: "1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParsePackageNames() = %v, want %v", got, want)
	}
}

func TestPackageNameString(t *testing.T) {
	for _, s := range []string{"foo", "foo>=1.2", "bar=2:1.0-3"} {
		p, err := ParsePackageName(s)
		if err != nil {
			t.Fatal(err)
		}
		if p.String() != s {
			t.Errorf("String() = %q, want %q", p.String(), s)
		}
	}
}

func TestBareName(t *testing.T) {
	tests := map[string]string{
		"foo":       "foo",
		"foo>=1":    "foo",
		"foo=2.0-1": "foo",
		"libfoo.so": "libfoo.so",
	}
	for in, want := range tests {
		if got := bareName(in); got != want {
			t.Errorf("bareName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		dep       string
		have      string
		ok, known bool
	}{
		{dep: "foo", have: "anything", ok: true, known: true},
		{dep: "foo>=1.2", have: "1.2.0-1", ok: true, known: true},
		{dep: "foo>=1.2", have: "1.1-3", ok: false, known: true},
		{dep: "foo<2", have: "1.9.9-1", ok: true, known: true},
		{dep: "foo>1.0", have: "1.0-2", ok: false, known: true},
		{dep: "foo=1.0", have: "1:1.0-5", ok: true, known: true},
		{dep: "foo<=3", have: "3.0.0-1", ok: true, known: true},
		{dep: "foo>=1.0", have: "r123.abcdef-1", ok: false, known: false},
	}
	for _, tt := range tests {
		p, err := ParsePackageName(tt.dep)
		if err != nil {
			t.Fatal(err)
		}
		ok, known := p.Satisfies(tt.have)
		if ok != tt.ok || known != tt.known {
			t.Errorf("%s.Satisfies(%q) = %v, %v; want %v, %v", tt.dep, tt.have, ok, known, tt.ok, tt.known)
		}
	}
}

func TestComparableVersion(t *testing.T) {
	tests := map[string]string{
		"1.2.3":      "1.2.3",
		"1.2.3-1":    "1.2.3",
		"2:1.0-4":    "1.0",
		"0.9.1-beta": "0.9.1",
	}
	for in, want := range tests {
		if got := comparableVersion(in); got != want {
			t.Errorf("comparableVersion(%q) = %q, want %q", in, got, want)
		}
	}
}
