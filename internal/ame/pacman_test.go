package ame

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
)

// fakePacmanScript answers queries the way pacman does and records every
// invocation in $dir/calls.
const fakePacmanScript = `#!/bin/sh
echo "$*" >> "$(dirname "$0")/calls"
case "$1" in
-Ss)
	[ "$2" = '^foo$' ] && { echo "extra/foo 1.0-1"; exit 0; }
	[ "$2" = '^broken$' ] && exit 2
	exit 1 ;;
-Sp)
	[ "$6" = "sh" ] && { echo "bash"; exit 0; }
	echo "error: target not found: $6" >&2
	exit 1 ;;
-Qq)
	printf 'glibc\nbash\n\n'
	exit 0 ;;
esac
exit 0
`

func newFakePacman(t *testing.T) (*Pacman, string) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "pacman")
	if err := os.WriteFile(bin, []byte(fakePacmanScript), 0o755); err != nil {
		t.Fatal(err)
	}
	e := testExecutor(context.Background(), "sudo", 0)
	return NewPacman(hclog.NewNullLogger(), bin, e), filepath.Join(dir, "calls")
}

func readCalls(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestPacmanQueries(t *testing.T) {
	pm, _ := newFakePacman(t)
	ctx := context.Background()

	if ok, err := pm.Exists(ctx, "foo"); err != nil || !ok {
		t.Errorf("Exists(foo) = %v, %v", ok, err)
	}
	if ok, err := pm.Exists(ctx, "bar"); err != nil || ok {
		t.Errorf("Exists(bar) = %v, %v", ok, err)
	}
	if _, err := pm.Exists(ctx, "broken"); err == nil {
		t.Error("Exists(broken) succeeded on exit status 2")
	}

	if name, ok, err := pm.Provider(ctx, "sh"); err != nil || !ok || name != "bash" {
		t.Errorf("Provider(sh) = %q, %v, %v", name, ok, err)
	}
	if _, ok, err := pm.Provider(ctx, "nothing"); err != nil || ok {
		t.Errorf("Provider(nothing) = %v, %v", ok, err)
	}

	installed, err := pm.Installed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := map[string]bool{"glibc": true, "bash": true}; !reflect.DeepEqual(installed, want) {
		t.Errorf("Installed() = %v, want %v", installed, want)
	}
}

func TestPacmanTransactions(t *testing.T) {
	pm, calls := newFakePacman(t)
	ctx := context.Background()

	if err := pm.Install(ctx, []string{"foo", "bar>=2"}, true); err != nil {
		t.Fatal(err)
	}
	if err := pm.MarkAsDeps(ctx, []string{"bar"}); err != nil {
		t.Fatal(err)
	}
	if err := pm.Uninstall(ctx, []string{"cmake"}, RemoveFlags{Recursive: true, NoSave: true, NoConfirm: true}); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"-S --needed --noconfirm foo bar>=2",
		"-D --asdeps bar",
		"-Rns --noconfirm cmake",
	}
	if got := readCalls(t, calls); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %q, want %q", got, want)
	}
	if isCriticalAtomic.Load() != 0 {
		t.Error("critical flag left set after the transaction")
	}
}

func TestRemoveFlagsArgs(t *testing.T) {
	tests := []struct {
		flags RemoveFlags
		want  []string
	}{
		{flags: RemoveFlags{}, want: []string{"-R"}},
		{flags: RemoveFlags{Recursive: true}, want: []string{"-Rs"}},
		{flags: RemoveFlags{NoSave: true, NoConfirm: true}, want: []string{"-Rn", "--noconfirm"}},
	}
	for _, tt := range tests {
		if got := tt.flags.args(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%+v.args() = %v, want %v", tt.flags, got, tt.want)
		}
	}
}
