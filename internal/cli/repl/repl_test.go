package repl

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func echo(calls *[]string) Executor {
	return func(line string) (string, error) {
		*calls = append(*calls, line)
		return "0", nil
	}
}

func TestREPL_Exit(t *testing.T) {
	for _, input := range []string{"exit\n", "quit\n", ""} {
		var calls []string
		r := New(strings.NewReader(input), &bytes.Buffer{}, echo(&calls), nil)
		if err := r.Run(); err != nil {
			t.Errorf("Run(%q) = %v", input, err)
		}
		if len(calls) != 0 {
			t.Errorf("Run(%q) executed %v", input, calls)
		}
	}
}

func TestREPL_Executes(t *testing.T) {
	var calls []string
	out := &bytes.Buffer{}
	r := New(strings.NewReader("POST A B\n\n  GET A  \nhistory\nexit\nGET B\n"), out, echo(&calls), nil)

	if err := r.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(calls, "|") != "POST A B|GET A" {
		t.Errorf("calls = %q", calls)
	}
	if !strings.Contains(out.String(), "   2  GET A\n") {
		t.Errorf("history not printed:\n%s", out.String())
	}
	if !strings.HasPrefix(out.String(), Prompt) {
		t.Errorf("output should start with the prompt: %q", out.String())
	}
}

func TestREPL_ExecutorError(t *testing.T) {
	boom := errors.New("connection reset")
	out := &bytes.Buffer{}
	r := New(strings.NewReader("GET A\nGET B\n"), out, func(string) (string, error) {
		return "", boom
	}, nil)

	if err := r.Run(); !errors.Is(err, boom) {
		t.Fatalf("Run = %v, want %v", err, boom)
	}
	if !strings.Contains(out.String(), "error: connection reset") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sub", "history")
	h := NewHistory(file)
	h.Add("POST A B")
	h.Add("GET A")
	if err := h.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := NewHistory(file)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := strings.Join(loaded.Entries(), "|"); got != "POST A B|GET A" {
		t.Errorf("entries = %q", got)
	}
}

func TestHistory_Limit(t *testing.T) {
	h := NewHistory("")
	for i := 0; i < maxHistory+5; i++ {
		h.Add("GET A")
	}
	if len(h.Entries()) != maxHistory {
		t.Errorf("len = %d, want %d", len(h.Entries()), maxHistory)
	}
}

func TestHistory_LoadMissing(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "nope"))
	if err := h.Load(); err != nil {
		t.Errorf("Load missing = %v, want nil", err)
	}
}
