package lineserver

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/yndnr/minidb-go/internal/core/domain"
)

// Verbs. Matching is case-sensitive.
const (
	VerbPost   = "POST"
	VerbGet    = "GET"
	VerbDelete = "DELETE"

	// verbUnknown labels unrecognized commands in metrics.
	verbUnknown = "UNKNOWN"
)

// DefaultMaxLineLength bounds a request line, excluding the newline.
const DefaultMaxLineLength = 4096

// Command is one decoded request: Post, Get, Delete or Unknown.
type Command interface {
	Verb() string
}

// Post stores Value under Key.
type Post struct{ Key, Value string }

// Get fetches the value of Key.
type Get struct{ Key string }

// Delete removes Key.
type Delete struct{ Key string }

// Unknown is any line that is not a well-formed command.
type Unknown struct{ Raw string }

func (Post) Verb() string    { return VerbPost }
func (Get) Verb() string     { return VerbGet }
func (Delete) Verb() string  { return VerbDelete }
func (Unknown) Verb() string { return verbUnknown }

// Decode parses a request line. It never fails: anything that is not a
// well-formed command decodes to Unknown.
func Decode(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Unknown{Raw: line}
	}

	switch verb, args := fields[0], fields[1:]; {
	case verb == VerbPost && len(args) == 2:
		return Post{Key: args[0], Value: args[1]}
	case verb == VerbGet && len(args) == 1:
		return Get{Key: args[0]}
	case verb == VerbDelete && len(args) == 1:
		return Delete{Key: args[0]}
	default:
		return Unknown{Raw: line}
	}
}

// Response is the reply to one command. Value is only sent for a
// successful Get.
type Response struct {
	Status domain.Status
	Value  string
}

// AppendTo appends the wire form of r, including the newline, to b.
func (r Response) AppendTo(b []byte) []byte {
	b = append(b, r.Status.String()...)
	if r.Status == domain.StatusOK && r.Value != "" {
		b = append(b, ' ')
		b = append(b, r.Value...)
	}
	return append(b, '\n')
}

// String returns the wire form of r without the newline.
func (r Response) String() string {
	b := r.AppendTo(nil)
	return string(b[:len(b)-1])
}

// WriteResponse buffers r on w. The caller flushes.
func WriteResponse(w *bufio.Writer, r Response) error {
	var buf [64]byte
	_, err := w.Write(r.AppendTo(buf[:0]))
	return err
}

// ReadLine reads one request line, without its "\n" or "\r\n".
//
// A line longer than maxLen is consumed through its newline and reported
// as domain.ErrLineTooLong, leaving r at the start of the next line. A
// final line without a newline is returned normally; the following call
// returns io.EOF.
func ReadLine(r *bufio.Reader, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxLineLength
	}

	var (
		buf     []byte
		n       int
		tooLong bool
	)
	for {
		frag, err := r.ReadSlice('\n')
		n += len(frag)
		if !tooLong {
			buf = append(buf, frag...)
			// One byte of slack for a '\r' whose '\n' is still unread.
			if len(trimEOL(buf)) > maxLen+1 {
				tooLong = true
				buf = nil
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && n > 0:
		default:
			return "", err
		}
		break
	}

	line := trimEOL(buf)
	if tooLong || len(line) > maxLen {
		return "", domain.ErrLineTooLong
	}
	return string(line), nil
}

func trimEOL(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\n' {
		b = b[:len(b)-1]
		if len(b) > 0 && b[len(b)-1] == '\r' {
			b = b[:len(b)-1]
		}
	}
	return b
}
