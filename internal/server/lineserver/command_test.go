package lineserver

import (
	"testing"

	"github.com/yndnr/minidb-go/internal/core/domain"
	"github.com/yndnr/minidb-go/internal/storage/memory"
	"github.com/yndnr/minidb-go/internal/telemetry/metric"
)

func TestCommandHandler_Apply(t *testing.T) {
	h := NewCommandHandler(memory.New(), metric.NewRegistry(), nil)

	steps := []struct {
		cmd  Command
		want string
	}{
		{Get{Key: "A"}, "1"},
		{Post{Key: "A", Value: "B"}, "0"},
		{Get{Key: "A"}, "0 B"},
		{Post{Key: "A", Value: "C"}, "0"},
		{Get{Key: "A"}, "0 C"},
		{Delete{Key: "A"}, "0"},
		{Delete{Key: "A"}, "1"},
		{Get{Key: "A"}, "1"},
		{Unknown{Raw: "FOO"}, "2"},
	}

	for i, st := range steps {
		if got := h.Apply(st.cmd).String(); got != st.want {
			t.Fatalf("step %d: Apply(%#v) = %q, want %q", i, st.cmd, got, st.want)
		}
	}
}

func TestCommandHandler_Reject(t *testing.T) {
	h := NewCommandHandler(memory.New(), nil, nil)
	if got := h.Reject(); got.Status != domain.StatusUnknown {
		t.Errorf("Reject().Status = %v, want %v", got.Status, domain.StatusUnknown)
	}
}
