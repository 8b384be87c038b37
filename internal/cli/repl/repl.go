package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompt is printed before each input line.
const Prompt = "minidb> "

// Executor sends one command line and returns the printable reply.
type Executor func(line string) (string, error)

// REPL is the read-eval-print loop.
type REPL struct {
	input   io.Reader
	output  io.Writer
	exec    Executor
	history *History
}

// New creates a REPL reading from in and writing to out.
// history may be nil.
func New(in io.Reader, out io.Writer, exec Executor, history *History) *REPL {
	if history == nil {
		history = NewHistory("")
	}
	return &REPL{input: in, output: out, exec: exec, history: history}
}

// Run loops until EOF, "exit" or "quit". An executor error is printed and
// ends the session, since the connection is no longer usable.
func (r *REPL) Run() error {
	scanner := bufio.NewScanner(r.input)
	for {
		fmt.Fprint(r.output, Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.output)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "history":
			for i, e := range r.history.Entries() {
				fmt.Fprintf(r.output, "%4d  %s\n", i+1, e)
			}
			continue
		}

		r.history.Add(line)
		reply, err := r.exec(line)
		if err != nil {
			fmt.Fprintf(r.output, "error: %v\n", err)
			return err
		}
		fmt.Fprintln(r.output, reply)
	}
}
