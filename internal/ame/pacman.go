package ame

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// PackageManager is the native binary package manager.
type PackageManager interface {
	// Exists reports whether a sync repository carries a package named name.
	Exists(ctx context.Context, name string) (bool, error)
	// Provider returns the repository package that satisfies dep, which may
	// be a virtual name.
	Provider(ctx context.Context, dep string) (string, bool, error)
	// Installed lists the names of every installed package.
	Installed(ctx context.Context) (map[string]bool, error)
	Install(ctx context.Context, targets []string, noconfirm bool) error
	MarkAsDeps(ctx context.Context, names []string) error
	Uninstall(ctx context.Context, names []string, flags RemoveFlags) error
}

// RemoveFlags select the removal mode.
type RemoveFlags struct {
	Recursive bool // -s
	NoSave    bool // -n
	NoConfirm bool
}

func (f RemoveFlags) args() []string {
	op := "-R"
	if f.NoSave {
		op += "n"
	}
	if f.Recursive {
		op += "s"
	}
	args := []string{op}
	if f.NoConfirm {
		args = append(args, "--noconfirm")
	}
	return args
}

// Pacman drives pacman through the Executor.
type Pacman struct {
	l    hclog.Logger
	bin  string
	exec *Executor
}

func NewPacman(l hclog.Logger, bin string, e *Executor) *Pacman {
	if bin == "" {
		bin = "pacman"
	}
	return &Pacman{l: l.Named("pacman"), bin: bin, exec: e}
}

func (p *Pacman) query(ctx context.Context, args ...string) ([]byte, error) {
	e := p.exec.With(false, false, false)
	e.Context = ctx
	p.l.Trace("Running", "args", args)
	return e.Output(exec.Command(p.bin, args...))
}

// transaction runs an elevated, interactive pacman invocation. SIGINT only
// warns while it runs.
func (p *Pacman) transaction(ctx context.Context, args ...string) error {
	isCriticalAtomic.Store(1)
	defer isCriticalAtomic.Store(0)

	e := p.exec.With(true, true, false)
	e.Context = ctx
	p.l.Debug("Running transaction", "args", args)
	return e.Run(exec.Command(p.bin, args...))
}

func (p *Pacman) Exists(ctx context.Context, name string) (bool, error) {
	_, err := p.query(ctx, "-Ss", "^"+regexp.QuoteMeta(name)+"$")
	switch {
	case err == nil:
		return true, nil
	case exitStatus(err) == 1:
		return false, nil
	}
	return false, fmt.Errorf("pacman -Ss %s: %w", name, err)
}

func (p *Pacman) Provider(ctx context.Context, dep string) (string, bool, error) {
	out, err := p.query(ctx, "-Sp", "--nodeps", "--nodeps", "--print-format", "%n", dep)
	if err != nil {
		if exitStatus(err) > 0 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("pacman -Sp %s: %w", dep, err)
	}
	names := strings.Fields(string(out))
	if len(names) == 0 {
		return "", false, nil
	}
	return names[0], true, nil
}

func (p *Pacman) Installed(ctx context.Context) (map[string]bool, error) {
	out, err := p.query(ctx, "-Qq")
	if err != nil && exitStatus(err) != 1 {
		return nil, fmt.Errorf("pacman -Qq: %w", err)
	}
	installed := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			installed[name] = true
		}
	}
	return installed, sc.Err()
}

func (p *Pacman) Install(ctx context.Context, targets []string, noconfirm bool) error {
	args := []string{"-S", "--needed"}
	if noconfirm {
		args = append(args, "--noconfirm")
	}
	return p.transaction(ctx, append(args, targets...)...)
}

func (p *Pacman) MarkAsDeps(ctx context.Context, names []string) error {
	return p.transaction(ctx, append([]string{"-D", "--asdeps"}, names...)...)
}

func (p *Pacman) Uninstall(ctx context.Context, names []string, flags RemoveFlags) error {
	return p.transaction(ctx, append(flags.args(), names...)...)
}
