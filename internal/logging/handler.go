package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gookit/color"
	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Verbosity orders log levels from least to most chatty.
type Verbosity int

const (
	Error Verbosity = iota
	Warning
	Info
	Debug
	Trace
)

func (v Verbosity) String() string {
	switch v {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Debug:
		return "debug"
	case Trace:
		return "trace"
	}
	return fmt.Sprintf("verbosity(%d)", int(v))
}

// ParseVerbosity accepts the level names used in the config file and env.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return Error, nil
	case "warning", "warn":
		return Warning, nil
	case "", "info":
		return Info, nil
	case "debug":
		return Debug, nil
	case "trace":
		return Trace, nil
	}
	return Info, fmt.Errorf("unknown verbosity %q", s)
}

func (v Verbosity) hclogLevel() hclog.Level {
	switch v {
	case Error:
		return hclog.Error
	case Warning:
		return hclog.Warn
	case Debug:
		return hclog.Debug
	case Trace:
		return hclog.Trace
	}
	return hclog.Info
}

// OutputMode selects where log lines end up.
type OutputMode int

const (
	Stdout OutputMode = iota
	Stderr
	Progress
	MultiProgress
)

const (
	okSymbol     = "❖"
	errSymbol    = "X"
	warnSymbol   = "!"
	debugSymbol  = "⌘"
	traceSymbol  = "🗲"
	promptSymbol = "?"
)

var (
	colOK     = color.Magenta
	colErr    = color.Style{color.FgRed, color.OpBold}
	colWarn   = color.Style{color.FgYellow, color.OpBold}
	colDebug  = color.Blue
	colTrace  = color.Cyan
	colDimmed = color.Gray
	colBold   = color.Style{color.OpBold}
)

// Options configures a Handler. Zero values mean the process streams.
type Options struct {
	Stdout      io.Writer
	Stderr      io.Writer
	Level       Verbosity
	Interactive bool // overlays are only drawn on a terminal
	Width       int  // wrap width; 0 probes the terminal, -1 disables wrapping
}

// Handler is the process-wide log sink. Emitting takes the mode read lock,
// switching modes takes the write lock.
type Handler struct {
	levelMu sync.RWMutex
	level   Verbosity

	mu   sync.RWMutex
	mode OutputMode
	bar  *Bar

	outMu       sync.Mutex
	stdout      io.Writer
	stderr      io.Writer
	interactive bool
	width       int

	hc hclog.Logger
}

// New builds a handler writing to the given streams.
func New(opts Options) *Handler {
	h := &Handler{
		level:       opts.Level,
		mode:        Stderr,
		stdout:      opts.Stdout,
		stderr:      opts.Stderr,
		interactive: opts.Interactive,
		width:       opts.Width,
	}
	if h.stdout == nil {
		h.stdout = os.Stdout
	}
	if h.stderr == nil {
		h.stderr = os.Stderr
	}
	h.hc = hclog.New(&hclog.LoggerOptions{
		Name:        "ame",
		Level:       opts.Level.hclogLevel(),
		Output:      sinkWriter{h},
		DisableTime: true,
		Color:       hclog.ColorOff,
	})
	return h
}

// NewTerminal returns a handler bound to os.Stdout/os.Stderr that draws
// overlays only when stderr is a TTY.
func NewTerminal(level Verbosity) *Handler {
	return New(Options{
		Level:       level,
		Interactive: term.IsTerminal(int(os.Stderr.Fd())),
	})
}

// Logger exposes the structured logger whose output is routed through the sink.
func (h *Handler) Logger() hclog.Logger {
	return h.hc
}

func (h *Handler) SetVerbosity(level Verbosity) {
	h.levelMu.Lock()
	h.level = level
	h.levelMu.Unlock()
	h.hc.SetLevel(level.hclogLevel())
}

func (h *Handler) Verbosity() Verbosity {
	h.levelMu.RLock()
	defer h.levelMu.RUnlock()
	return h.level
}

// IsLoggable reports whether messages at level are currently emitted.
func (h *Handler) IsLoggable(level Verbosity) bool {
	return h.Verbosity() >= level
}

// Interactive reports whether the sink is attached to a terminal.
func (h *Handler) Interactive() bool {
	return h.interactive
}

func (h *Handler) Errorf(format string, a ...any) {
	if h.IsLoggable(Error) {
		msg := h.preformat(fmt.Sprintf(format, a...))
		h.log(colErr.Sprint(errSymbol) + " " + colErr.Sprint(msg))
	}
}

func (h *Handler) Warnf(format string, a ...any) {
	if h.IsLoggable(Warning) {
		msg := h.preformat(fmt.Sprintf(format, a...))
		h.log(color.Yellow.Sprint(warnSymbol) + " " + colWarn.Sprint(msg))
	}
}

func (h *Handler) Infof(format string, a ...any) {
	if h.IsLoggable(Info) {
		msg := h.preformat(fmt.Sprintf(format, a...))
		h.log(colOK.Sprint(okSymbol) + " " + colBold.Sprint(msg))
	}
}

func (h *Handler) Debugf(format string, a ...any) {
	if h.IsLoggable(Debug) {
		msg := h.preformat(fmt.Sprintf(format, a...))
		h.log(colDebug.Sprint(debugSymbol) + " " + msg)
	}
}

func (h *Handler) Tracef(format string, a ...any) {
	if h.IsLoggable(Trace) {
		msg := h.preformat(fmt.Sprintf(format, a...))
		h.log(colTrace.Sprint(traceSymbol) + " " + colDimmed.Sprint(msg))
	}
}

// PromptText formats a question the way prompts are rendered.
func (h *Handler) PromptText(question string) string {
	return colOK.Sprint(promptSymbol) + " " + colBold.Sprint(h.preformat(question))
}

// PrintList prints each item on its own line, prefixed by sep.
func (h *Handler) PrintList(items []string, sep string) {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sep)
		b.WriteString(item)
	}
	h.log(h.preformat(b.String()))
}

func (h *Handler) PrintNewline() {
	h.log("")
}

// SetMode switches between the plain stdout and stderr modes. Progress modes
// are entered through NewSpinner, NewProgress and NewMultiProgress.
func (h *Handler) SetMode(mode OutputMode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bar != nil {
		h.bar.stopLocked()
		h.bar = nil
	}
	h.mode = mode
}

func (h *Handler) Mode() OutputMode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mode
}

// Suspend clears any overlay, runs fn with plain stdout output and restores
// the previous mode afterwards.
func (h *Handler) Suspend(fn func() error) error {
	h.mu.Lock()
	prevMode, bar := h.mode, h.bar
	if bar != nil {
		bar.pause()
	}
	h.mode = Stdout
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		// a nested SetMode may have retired the bar in the meantime
		if h.bar == bar {
			h.mode = prevMode
			if bar != nil {
				bar.resume()
			}
		}
		h.mu.Unlock()
	}()
	return fn()
}

func (h *Handler) preformat(msg string) string {
	width := h.width
	if width == 0 && h.interactive {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}
	if width <= 2 {
		return msg
	}
	// leave room for the symbol prefix
	return runewidth.Wrap(msg, width-2)
}

func (h *Handler) log(msg string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.outMu.Lock()
	defer h.outMu.Unlock()

	switch h.mode {
	case Stdout:
		fmt.Fprintln(h.stdout, msg)
	case Stderr:
		fmt.Fprintln(h.stderr, msg)
	case Progress, MultiProgress:
		if h.bar != nil {
			h.bar.println(h.stdout, msg)
			return
		}
		fmt.Fprintln(h.stdout, msg)
	}
}

// sinkWriter adapts the handler to hclog's Output.
type sinkWriter struct{ h *Handler }

func (w sinkWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		w.h.log(colDimmed.Sprint(line))
	}
	return len(p), nil
}
