package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

const spinnerTick = 120 * time.Millisecond

// Bar is a spinner or a determinate progress bar registered on the handler.
// On a non-interactive sink it is headless and only reports through Debugf.
type Bar struct {
	h      *Handler
	pb     *progressbar.ProgressBar
	paused atomic.Bool
	stop   chan struct{}
	once   sync.Once
}

// NewSpinner registers an indeterminate spinner and switches the sink to
// Progress mode. Call Finish to retire it.
func (h *Handler) NewSpinner(description string) *Bar {
	return h.newBar(description, -1, Progress)
}

// NewProgress registers a bar counting up to total.
func (h *Handler) NewProgress(description string, total int) *Bar {
	return h.newBar(description, total, Progress)
}

func (h *Handler) newBar(description string, total int, mode OutputMode) *Bar {
	b := &Bar{h: h, stop: make(chan struct{})}
	if !h.interactive {
		h.Debugf("%s", description)
		return b
	}

	opts := []progressbar.Option{
		progressbar.OptionSetWriter(h.stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWidth(24),
		progressbar.OptionThrottle(60 * time.Millisecond),
	}
	if total < 0 {
		opts = append(opts, progressbar.OptionSpinnerType(14))
	} else {
		opts = append(opts, progressbar.OptionShowCount())
	}
	b.pb = progressbar.NewOptions(total, opts...)

	h.mu.Lock()
	if h.bar != nil {
		h.bar.stopLocked()
	}
	h.bar = b
	h.mode = mode
	h.mu.Unlock()

	_ = b.pb.RenderBlank()
	if total < 0 {
		go b.spin()
	}
	return b
}

func (b *Bar) spin() {
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			if !b.paused.Load() {
				_ = b.pb.Add(1)
			}
		}
	}
}

// Describe replaces the text shown next to the bar.
func (b *Bar) Describe(description string) {
	if b.pb == nil {
		b.h.Tracef("%s", description)
		return
	}
	b.pb.Describe(description)
}

// Inc advances a determinate bar by one step.
func (b *Bar) Inc() {
	if b.pb != nil && !b.paused.Load() {
		_ = b.pb.Add(1)
	}
}

// Finish retires the bar, returns the sink to Stdout and, when msg is not
// empty, prints it as an info line.
func (b *Bar) Finish(msg string) {
	b.h.mu.Lock()
	if b.h.bar == b {
		b.stopLocked()
		b.h.bar = nil
		b.h.mode = Stdout
	} else {
		b.stopLocked()
	}
	b.h.mu.Unlock()

	if msg != "" {
		b.h.Infof("%s", msg)
	}
}

// stopLocked must be called with the handler's write lock held.
func (b *Bar) stopLocked() {
	b.once.Do(func() {
		b.paused.Store(true)
		close(b.stop)
		if b.pb != nil {
			_ = b.pb.Clear()
			_ = b.pb.Finish()
		}
	})
}

func (b *Bar) pause() {
	b.paused.Store(true)
	if b.pb != nil {
		_ = b.pb.Clear()
	}
}

func (b *Bar) resume() {
	b.paused.Store(false)
	if b.pb != nil {
		_ = b.pb.RenderBlank()
	}
}

// println prints msg above the bar; the caller holds the handler locks.
func (b *Bar) println(w io.Writer, msg string) {
	if b.pb == nil || b.paused.Load() {
		fmt.Fprintln(w, msg)
		return
	}
	_ = b.pb.Clear()
	fmt.Fprintln(w, msg)
	_ = b.pb.RenderBlank()
}

// Group tracks several named tasks behind one determinate overlay.
type Group struct {
	bar   *Bar
	title string

	mu     sync.Mutex
	active []string
	done   int
	total  int
}

// NewMultiProgress registers a task group and switches the sink to
// MultiProgress mode.
func (h *Handler) NewMultiProgress(title string, total int) *Group {
	return &Group{
		bar:   h.newBar(title, total, MultiProgress),
		title: title,
		total: total,
	}
}

func (g *Group) Start(task string) {
	g.mu.Lock()
	g.active = append(g.active, task)
	desc := g.describeLocked()
	g.mu.Unlock()
	g.bar.Describe(desc)
}

func (g *Group) Done(task string) {
	g.mu.Lock()
	for i, t := range g.active {
		if t == task {
			g.active = append(g.active[:i], g.active[i+1:]...)
			break
		}
	}
	g.done++
	desc := g.describeLocked()
	g.mu.Unlock()
	g.bar.Describe(desc)
	g.bar.Inc()
}

// Completed returns how many tasks have been marked done.
func (g *Group) Completed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

func (g *Group) Finish(msg string) {
	g.bar.Finish(msg)
}

func (g *Group) describeLocked() string {
	if len(g.active) == 0 {
		return g.title
	}
	return fmt.Sprintf("%s (%d/%d) %s", g.title, g.done, g.total, strings.Join(g.active, ", "))
}
