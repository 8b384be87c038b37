package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusOK},
		{"not found", ErrKeyNotFound, StatusNotFound},
		{"wrapped not found", fmt.Errorf("store: %w", ErrKeyNotFound), StatusNotFound},
		{"unknown command", ErrUnknownCommand, StatusUnknown},
		{"line too long", ErrLineTooLong, StatusUnknown},
		{"other", errors.New("boom"), StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatus_StringAndParse(t *testing.T) {
	for _, s := range []Status{StatusOK, StatusNotFound, StatusUnknown} {
		got, err := ParseStatus(s.String())
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", s.String(), err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %v, want %v", s.String(), got, s)
		}
	}

	if _, err := ParseStatus("7"); err == nil {
		t.Error("ParseStatus(\"7\") should fail")
	}
	if _, err := ParseStatus(""); err == nil {
		t.Error("ParseStatus(\"\") should fail")
	}
}

func TestStatus_Label(t *testing.T) {
	if got := StatusNotFound.Label(); got != "not_found" {
		t.Errorf("Label() = %q, want %q", got, "not_found")
	}
	if got := Status(9).Label(); got != "invalid" {
		t.Errorf("Label() = %q, want %q", got, "invalid")
	}
}

func TestValidToken(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"A", true},
		{"PERSIST_VALUE", true},
		{"", false},
		{"a b", false},
		{"a\tb", false},
		{"a\n", false},
	}
	for _, tt := range tests {
		if got := ValidToken(tt.in); got != tt.want {
			t.Errorf("ValidToken(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
