package ame

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/term"
)

// Pager shows a file to the user and returns once they are done with it.
type Pager interface {
	Page(path string) error
}

// TermPager shows files in a scrollable view when out is a terminal and
// prints them otherwise.
type TermPager struct {
	out io.Writer
	fd  int // -1 when out is not a file
}

func NewTermPager(out *os.File) *TermPager {
	return &TermPager{out: out, fd: int(out.Fd())}
}

func (p *TermPager) Page(path string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	title := filepath.Base(filepath.Dir(path)) + "/" + filepath.Base(path)
	return p.run(title, lines)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func (p *TermPager) printAll(lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(p.out, line); err != nil {
			return err
		}
	}
	return nil
}

func (p *TermPager) run(title string, lines []string) error {
	if p.fd < 0 || !term.IsTerminal(p.fd) {
		return p.printAll(lines)
	}
	// 2 lines for the border
	if _, height, err := term.GetSize(p.fd); err == nil && len(lines) <= height-2 {
		return p.printAll(lines)
	}

	app := tview.NewApplication()

	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	textView.SetBorder(true).SetTitle(" " + title + " ")
	fmt.Fprint(tview.ANSIWriter(textView), strings.Join(lines, "\n"))

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]Use ↑/↓, PgUp/PgDn, Home/End to scroll. Press 'q' or 'Esc' to quit.[white]")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(textView, 0, 1, true).
		AddItem(footer, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc, tcell.KeyCtrlQ:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' {
				app.Stop()
				return nil
			}
		}
		return event
	})

	if err := app.SetRoot(flex, true).SetFocus(textView).Run(); err != nil {
		return fmt.Errorf("pager execution failed: %w", err)
	}
	return nil
}
