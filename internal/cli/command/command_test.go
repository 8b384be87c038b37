package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/minidb-go/internal/core/domain"
	"github.com/yndnr/minidb-go/internal/server/adminserver"
	"github.com/yndnr/minidb-go/internal/server/lineserver"
	"github.com/yndnr/minidb-go/internal/storage/memory"
)

type testEnv struct {
	addr  string
	store *memory.Store
	lines *lineserver.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	cfg := lineserver.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	s := lineserver.New(cfg, store)
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go s.Serve()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return &testEnv{addr: s.Addr().String(), store: store, lines: s}
}

// run executes the CLI and returns its stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"minidb-cli", "--addr", e.addr}, args...))
	return out.String(), err
}

func TestKeyCommands(t *testing.T) {
	env := newTestEnv(t)

	if out, err := env.run(t, "post", "A", "B"); err != nil || out != "0\n" {
		t.Fatalf("post = %q, %v", out, err)
	}
	if out, err := env.run(t, "get", "A"); err != nil || out != "0 B\n" {
		t.Fatalf("get = %q, %v", out, err)
	}
	if out, err := env.run(t, "delete", "A"); err != nil || out != "0\n" {
		t.Fatalf("delete = %q, %v", out, err)
	}

	out, err := env.run(t, "get", "A")
	if !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("get missing error = %v, want ErrKeyNotFound", err)
	}
	if out != "1\n" {
		t.Errorf("get missing output = %q, want %q", out, "1\n")
	}
}

func TestKeyCommands_Usage(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.run(t, "post", "A"); err == nil {
		t.Error("post with one argument should fail")
	}
	if _, err := env.run(t, "get", "A B"); err == nil {
		t.Error("get with whitespace key should fail")
	}
	if env.store.Len() != 0 {
		t.Errorf("store changed by rejected commands: %d keys", env.store.Len())
	}
}

func TestRawCommand(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "raw", "FROB", "X")
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if out != "2\n" {
		t.Errorf("raw output = %q, want %q", out, "2\n")
	}
}

func TestOutputFormats(t *testing.T) {
	env := newTestEnv(t)
	env.store.Insert("A", "B")

	out, err := env.run(t, "-o", "json", "get", "A")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var v replyView
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if v.Status != 0 || v.Value != "B" || v.Command != "GET A" {
		t.Errorf("reply = %+v", v)
	}

	out, err = env.run(t, "-o", "yaml", "get", "A")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(out, "value: B") {
		t.Errorf("yaml output = %q", out)
	}

	if _, err := env.run(t, "-o", "xml", "get", "A"); err == nil {
		t.Error("unknown output format should fail")
	}
}

func TestCheckCommand(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if strings.Contains(out, "FAIL") {
		t.Errorf("check reported failures:\n%s", out)
	}
	if !strings.Contains(out, "persistent connection") || !strings.Contains(out, "separate connections") {
		t.Errorf("check output missing scenarios:\n%s", out)
	}
}

func TestCheckCommand_Unreachable(t *testing.T) {
	env := newTestEnv(t)
	env.addr = "127.0.0.1:1"
	if _, err := env.run(t, "--timeout", "200ms", "check"); err == nil {
		t.Error("check against a closed port should fail")
	}
}

func TestReplCommand(t *testing.T) {
	env := newTestEnv(t)
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.Reader = strings.NewReader("POST A B\nGET A\nexit\n")

	err := app.Run([]string{"minidb-cli", "--addr", env.addr, "repl", "--history", ""})
	if err != nil {
		t.Fatalf("repl: %v", err)
	}
	if !strings.Contains(out.String(), "0 B") {
		t.Errorf("repl output = %q", out.String())
	}
}

func TestStatsCommand(t *testing.T) {
	env := newTestEnv(t)
	env.store.Insert("A", "B")
	admin := adminserver.New(adminserver.Config{Store: env.store, Conns: env.lines})
	srv := httptest.NewServer(admin.Router())
	defer srv.Close()

	out, err := env.run(t, "--admin", srv.URL, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "keys") || !strings.Contains(out, "1") {
		t.Errorf("stats output = %q", out)
	}
}
