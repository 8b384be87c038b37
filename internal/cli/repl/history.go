package repl

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const maxHistory = 1000

// History keeps the most recent commands, optionally backed by a file.
type History struct {
	entries []string
	file    string
}

// NewHistory creates a History stored in file. An empty file keeps
// history in memory only.
func NewHistory(file string) *History {
	return &History{file: file}
}

// DefaultHistoryFile returns ~/.minidb_history, or "" without a home
// directory.
func DefaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".minidb_history")
}

// Add appends a command, dropping the oldest past the limit.
func (h *History) Add(cmd string) {
	h.entries = append(h.entries, cmd)
	if over := len(h.entries) - maxHistory; over > 0 {
		h.entries = h.entries[over:]
	}
}

// Entries returns the commands, oldest first.
func (h *History) Entries() []string {
	return h.entries
}

// Load reads the history file. A missing file is not an error.
func (h *History) Load() error {
	if h.file == "" {
		return nil
	}
	f, err := os.Open(h.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			h.Add(line)
		}
	}
	return scanner.Err()
}

// Save writes the history file.
func (h *History) Save() error {
	if h.file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.file), 0o700); err != nil {
		return err
	}
	data := strings.Join(h.entries, "\n")
	if data != "" {
		data += "\n"
	}
	return os.WriteFile(h.file, []byte(data), 0o600)
}
