package domain

import (
	"errors"
	"strconv"
	"strings"
)

// Record is a single key/value pair.
type Record struct {
	Key   string
	Value string
}

// Status is the outcome code sent as the first token of every response.
type Status uint8

const (
	// StatusOK reports success.
	StatusOK Status = 0
	// StatusNotFound reports a GET or DELETE on an absent key.
	StatusNotFound Status = 1
	// StatusUnknown reports an unrecognized or malformed command.
	StatusUnknown Status = 2
)

// String returns the wire form of the status.
func (s Status) String() string {
	return strconv.Itoa(int(s))
}

// Label returns a metric-friendly name for the status.
func (s Status) Label() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// ParseStatus parses the wire form of a status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "0":
		return StatusOK, nil
	case "1":
		return StatusNotFound, nil
	case "2":
		return StatusUnknown, nil
	}
	return 0, ErrUnknownCommand.WithDetails("invalid status " + strconv.Quote(s))
}

// StatusOf maps an error to the status reported on the wire.
// A nil error is StatusOK; anything that is not a lookup miss is reported
// as StatusUnknown.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrKeyNotFound):
		return StatusNotFound
	default:
		return StatusUnknown
	}
}

// ValidToken reports whether s can be carried as a single protocol token:
// non-empty and free of whitespace.
func ValidToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, " \t\r\n\v\f")
}
