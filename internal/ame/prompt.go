package ame

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"ame/internal/logging"
)

// Prompter asks the user questions.
type Prompter interface {
	// Confirm asks a yes/no question; an empty answer picks def.
	Confirm(question string, def bool) (bool, error)
	// Select shows a numbered list and returns the chosen 0-based indices.
	// An empty answer selects nothing.
	Select(title string, items []string) ([]int, error)
}

// interactiveMu ensures only one interactive prompt reads stdin at a time.
var interactiveMu sync.Mutex

// TermPrompter reads answers from in and renders questions through the log sink.
type TermPrompter struct {
	h   *logging.Handler
	in  *bufio.Reader
	out io.Writer
}

func NewTermPrompter(h *logging.Handler, in io.Reader, out io.Writer) *TermPrompter {
	return &TermPrompter{h: h, in: bufio.NewReader(in), out: out}
}

func (p *TermPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *TermPrompter) Confirm(question string, def bool) (bool, error) {
	interactiveMu.Lock()
	defer interactiveMu.Unlock()

	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	var answer bool
	err := p.h.Suspend(func() error {
		for {
			fmt.Fprintf(p.out, "%s %s: ", p.h.PromptText(question), hint)
			response, err := p.readLine()
			if errors.Is(err, io.EOF) {
				// Ctrl+D means no
				fmt.Fprintln(p.out)
				return nil
			}
			if err != nil {
				return err
			}
			switch strings.ToLower(response) {
			case "":
				answer = def
				return nil
			case "y", "yes":
				answer = true
				return nil
			case "n", "no":
				return nil
			}
			fmt.Fprintln(p.out, cSprint(colWarn, "Invalid input."))
		}
	})
	return answer, err
}

func (p *TermPrompter) Select(title string, items []string) ([]int, error) {
	interactiveMu.Lock()
	defer interactiveMu.Unlock()

	var selected []int
	err := p.h.Suspend(func() error {
		for i, item := range items {
			fmt.Fprintf(p.out, "%3d) %s\n", i+1, item)
		}
		for {
			fmt.Fprint(p.out, cSprint(colArrow, "-> "), cSprint(colNote, title), " [1,2,3 | 2-4 | -1 | a | N]: ")
			input, err := p.readLine()
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(p.out)
				return nil
			}
			if err != nil {
				return err
			}
			indices, err := selectionAnswer(input, len(items))
			if err != nil {
				fmt.Fprintln(p.out, cSprint(colError, "Error: ", err))
				continue
			}
			selected = indices
			return nil
		}
	})
	return selected, err
}
