package ame

import (
	"context"
	"fmt"
	"time"
)

// build runs the build tool for every checkout in order. Packages built
// before a failure stay installed.
func (p *Pipeline) build(ctx context.Context, builds []*BuildContext) error {
	// one makepkg run installs every package of a base, so the base is
	// explicit when any of its packages is
	explicit := make(map[string]bool)
	for _, b := range builds {
		if b.Info.Explicit {
			explicit[b.Dir] = true
		}
	}

	done := make(map[string]bool)
	for _, b := range builds {
		if done[b.Dir] {
			p.l.Debug("Already built with its package base", "package", b.Name())
			p.report.Built = append(p.report.Built, b.Name())
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		flags := BuildFlags{
			NoConfirm: p.opts.NoConfirm,
			AsDeps:    p.opts.AsDeps || !explicit[b.Dir],
		}
		p.h.Infof("Building %s %s (%d/%d)", b.Name(), b.Info.Package.Version, b.Ordinal+1, len(builds))

		started := time.Now()
		err := p.h.Suspend(func() error {
			return p.builder.Build(ctx, b.Name(), b.Dir, flags)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errBuildFailed(b.Name(), exitStatus(err), err)
		}
		done[b.Dir] = true
		p.report.Built = append(p.report.Built, b.Name())

		artifacts, err := InspectArtifacts(b.Dir, started)
		if err != nil {
			p.l.Debug("Could not inspect build artifacts", "package", b.Name(), "error", err)
			continue
		}
		for _, a := range artifacts {
			p.h.Infof("Installed %s %s (%s)", a.Name, a.Version, humanSize(a.Size))
		}
		p.report.Artifacts = append(p.report.Artifacts, artifacts...)
	}
	return nil
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
