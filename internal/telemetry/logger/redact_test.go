package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"security.encryption_key", true},
		{"Client_Secret", true},
		{"key", false},
		{"value", false},
		{"path", false},
	}
	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestRedaction(t *testing.T) {
	for _, backend := range []string{BackendSlog, BackendZap} {
		t.Run(backend, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(Config{Level: "info", Format: "json", Backend: backend, Output: &buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			l.Info("config loaded", "encryption_key", "hunter2", "key", "A")
			out := buf.String()
			if strings.Contains(out, "hunter2") {
				t.Errorf("secret leaked into log output: %s", out)
			}
			if !strings.Contains(out, redactedValue) {
				t.Errorf("expected redacted placeholder in %s", out)
			}
			if !strings.Contains(out, `"key":"A"`) {
				t.Errorf("data key should not be redacted: %s", out)
			}
		})
	}
}

func TestRedactArgs_DoesNotMutateInput(t *testing.T) {
	args := []any{"password", "p", "n", 1}
	out := redactArgs(args)
	if args[1] != "p" {
		t.Error("redactArgs modified its input")
	}
	if out[1] != redactedValue {
		t.Errorf("out[1] = %v, want %q", out[1], redactedValue)
	}
}

func TestMask(t *testing.T) {
	if Mask("") != "" {
		t.Error("Mask(\"\") should be empty")
	}
	if Mask("abc") != redactedValue {
		t.Errorf("Mask(abc) = %q", Mask("abc"))
	}
}
