package ame

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// BuildFlags are the per-package build options.
type BuildFlags struct {
	NoConfirm bool
	AsDeps    bool
}

func (f BuildFlags) args() []string {
	args := []string{"--syncdeps", "--install"}
	if f.NoConfirm {
		args = append(args, "--noconfirm")
	}
	if f.AsDeps {
		args = append(args, "--asdeps")
	}
	return args
}

// Builder compiles and installs the recipe in dir. A failed build returns an
// error carrying the tool's exit status.
type Builder interface {
	Build(ctx context.Context, pkg, dir string, flags BuildFlags) error
}

// Makepkg runs makepkg in a recipe directory.
type Makepkg struct {
	l      hclog.Logger
	bin    string
	exec   *Executor
	idle   bool
	logDir string // empty disables build logs
}

// NewMakepkg creates a builder. With logRoot set, each build's output is also
// written under logRoot/<run id>/.
func NewMakepkg(l hclog.Logger, bin string, e *Executor, idle bool, logRoot string) *Makepkg {
	if bin == "" {
		bin = "makepkg"
	}
	m := &Makepkg{l: l.Named("makepkg"), bin: bin, exec: e, idle: idle}
	if logRoot != "" {
		m.logDir = filepath.Join(logRoot, uuid.NewString())
	}
	return m
}

func (m *Makepkg) Build(ctx context.Context, pkg, dir string, flags BuildFlags) error {
	cmd := exec.Command(m.bin, flags.args()...)
	cmd.Dir = dir

	if m.logDir != "" {
		f, err := m.openLog(pkg)
		if err != nil {
			m.l.Warn("Build log disabled", "package", pkg, "error", err)
		} else {
			defer f.Close()
			cmd.Stdout = io.MultiWriter(os.Stdout, f)
			cmd.Stderr = io.MultiWriter(os.Stderr, f)
			m.l.Debug("Writing build log", "path", f.Name())
		}
	}

	// makepkg refuses to run as root and asks for the password itself
	e := m.exec.With(false, true, m.idle)
	e.Context = ctx
	return e.Run(cmd)
}

func (m *Makepkg) openLog(pkg string) (*os.File, error) {
	if err := os.MkdirAll(m.logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	return os.Create(filepath.Join(m.logDir, pkg+".log"))
}
