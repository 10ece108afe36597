package ame

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"ame/internal/logging"
)

func newTestPrompter(input string) (*TermPrompter, *bytes.Buffer) {
	var out bytes.Buffer
	h := logging.New(logging.Options{Stdout: &out, Stderr: &out, Level: logging.Info, Width: -1})
	return NewTermPrompter(h, strings.NewReader(input), &out), &out
}

func TestTermPrompterConfirm(t *testing.T) {
	tests := []struct {
		input string
		def   bool
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", def: true, want: false},
		{input: "\n", def: true, want: true},
		{input: "\n", def: false, want: false},
		{input: "maybe\ny\n", want: true},
		{input: "", def: true, want: false},
		{input: "y", want: true},
	}
	for _, tt := range tests {
		p, out := newTestPrompter(tt.input)
		got, err := p.Confirm("Proceed?", tt.def)
		if err != nil {
			t.Fatalf("Confirm(%q) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q, %v) = %v, want %v", tt.input, tt.def, got, tt.want)
		}
		if !strings.Contains(out.String(), "Proceed?") {
			t.Errorf("question not printed: %q", out.String())
		}
	}
}

func TestTermPrompterConfirmRetriesInvalidInput(t *testing.T) {
	p, out := newTestPrompter("what\nno\n")
	got, err := p.Confirm("Proceed?", true)
	if err != nil || got {
		t.Fatalf("Confirm() = %v, %v; want false, nil", got, err)
	}
	if !strings.Contains(out.String(), "Invalid input.") {
		t.Errorf("no retry hint in %q", out.String())
	}
}

func TestTermPrompterSelect(t *testing.T) {
	items := []string{"foo 1.0-1", "bar 2.0-1", "baz 3.0-1"}

	p, out := newTestPrompter("9\n1,3\n")
	got, err := p.Select("Select recipes to review", items)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if want := []int{0, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Select() = %v, want %v", got, want)
	}
	for _, item := range items {
		if !strings.Contains(out.String(), item) {
			t.Errorf("item %q not listed", item)
		}
	}
	if !strings.Contains(out.String(), "out of range") {
		t.Errorf("no error shown for 9: %q", out.String())
	}

	p, _ = newTestPrompter("")
	got, err = p.Select("Select", items)
	if err != nil || got != nil {
		t.Errorf("Select() on EOF = %v, %v; want nil, nil", got, err)
	}
}
