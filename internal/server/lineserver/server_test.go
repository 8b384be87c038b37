package lineserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/minidb-go/internal/storage/memory"
	"github.com/yndnr/minidb-go/internal/telemetry/metric"
)

type testServer struct {
	*Server
	store  *memory.Store
	served chan error
}

func startServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	if mutate != nil {
		mutate(&cfg)
	}

	store := memory.New()
	reg := metric.NewRegistry()
	srv := New(cfg, store, WithMetrics(reg))
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ts := &testServer{Server: srv, store: store, served: make(chan error, 1)}
	go func() { ts.served <- srv.Serve() }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return ts
}

type client struct {
	t    *testing.T
	conn net.Conn
	br   *bufio.Reader
}

func dial(t *testing.T, addr net.Addr) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn, br: bufio.NewReader(conn)}
}

func (c *client) send(line string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := fmt.Fprint(c.conn, line); err != nil {
		c.t.Fatalf("write %q: %v", line, err)
	}
}

func (c *client) recv() (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.br.ReadString('\n')
	return strings.TrimSuffix(line, "\n"), err
}

func (c *client) do(line string) string {
	c.t.Helper()
	c.send(line + "\n")
	resp, err := c.recv()
	if err != nil {
		c.t.Fatalf("response to %q: %v", line, err)
	}
	return resp
}

var scenario = []struct {
	req  string
	want string
}{
	{"POST A B", "0"},
	{"GET A", "0 B"},
	{"POST A C", "0"},
	{"GET A", "0 C"},
	{"DELETE A", "0"},
	{"GET A", "1"},
	{"DELETE A", "1"},
	{"FOO", "2"},
	{"", "2"},
	{"POST A", "2"},
	{"GET A B", "2"},
	{"get A", "2"},
}

func TestServer_PersistentConnection(t *testing.T) {
	ts := startServer(t, nil)
	c := dial(t, ts.Addr())

	for _, st := range scenario {
		if got := c.do(st.req); got != st.want {
			t.Errorf("%q -> %q, want %q", st.req, got, st.want)
		}
	}
}

func TestServer_SeparateConnections(t *testing.T) {
	ts := startServer(t, nil)

	for _, st := range scenario {
		c := dial(t, ts.Addr())
		if got := c.do(st.req); got != st.want {
			t.Errorf("%q -> %q, want %q", st.req, got, st.want)
		}
		c.conn.Close()
	}
}

func TestServer_SharedStoreAcrossConnections(t *testing.T) {
	ts := startServer(t, nil)

	a := dial(t, ts.Addr())
	b := dial(t, ts.Addr())

	if got := a.do("POST K V"); got != "0" {
		t.Fatalf("POST -> %q", got)
	}
	if got := b.do("GET K"); got != "0 V" {
		t.Fatalf("GET from second connection -> %q, want %q", got, "0 V")
	}
}

func TestServer_CRLFAndPipelining(t *testing.T) {
	ts := startServer(t, nil)
	c := dial(t, ts.Addr())

	c.send("POST A B\r\nGET A\r\nDELETE A\nGET A\n")
	for _, want := range []string{"0", "0 B", "0", "1"} {
		got, err := c.recv()
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestServer_UnterminatedFinalLine(t *testing.T) {
	ts := startServer(t, nil)
	c := dial(t, ts.Addr())

	c.send("POST X Y")
	if err := c.conn.(*net.TCPConn).CloseWrite(); err != nil {
		t.Fatalf("CloseWrite: %v", err)
	}

	got, err := c.recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if got != "0" {
		t.Fatalf("got %q, want %q", got, "0")
	}
	if v, _ := ts.store.Lookup("X"); v != "Y" {
		t.Fatalf("store X = %q, want %q", v, "Y")
	}
}

func TestServer_LineTooLong(t *testing.T) {
	ts := startServer(t, func(c *Config) { c.MaxLineLength = 32 })
	c := dial(t, ts.Addr())

	if got := c.do("POST K " + strings.Repeat("v", 100)); got != "2" {
		t.Fatalf("long line -> %q, want %q", got, "2")
	}
	// Connection stays usable.
	if got := c.do("POST K v"); got != "0" {
		t.Fatalf("POST after long line -> %q, want %q", got, "0")
	}
	if _, err := ts.store.Lookup("K"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
}

func TestServer_IdleTimeout(t *testing.T) {
	ts := startServer(t, func(c *Config) { c.IdleTimeout = 50 * time.Millisecond })
	c := dial(t, ts.Addr())

	if got := c.do("POST A B"); got != "0" {
		t.Fatalf("POST -> %q", got)
	}
	if _, err := c.recv(); err == nil {
		t.Fatal("expected connection to be closed after idle timeout")
	}
}

func TestServer_ConcurrentClients(t *testing.T) {
	ts := startServer(t, nil)

	const clients = 20
	const perClient = 50

	var wg sync.WaitGroup
	errCh := make(chan error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := net.Dial("tcp", ts.Addr().String())
			if err != nil {
				errCh <- err
				return
			}
			defer conn.Close()
			br := bufio.NewReader(conn)

			for j := 0; j < perClient; j++ {
				key := fmt.Sprintf("k%d-%d", i, j)
				for _, step := range [][2]string{
					{"POST " + key + " v", "0"},
					{"GET " + key, "0 v"},
				} {
					if _, err := fmt.Fprintf(conn, "%s\n", step[0]); err != nil {
						errCh <- err
						return
					}
					got, err := br.ReadString('\n')
					if err != nil {
						errCh <- err
						return
					}
					if got = strings.TrimSuffix(got, "\n"); got != step[1] {
						errCh <- fmt.Errorf("%q -> %q, want %q", step[0], got, step[1])
						return
					}
				}
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Error(err)
	}
	if got := ts.store.Len(); got != clients*perClient {
		t.Fatalf("store.Len = %d, want %d", got, clients*perClient)
	}
}

func TestServer_ShutdownDrainsIdleConnections(t *testing.T) {
	ts := startServer(t, nil)
	c := dial(t, ts.Addr())
	if got := c.do("POST A B"); got != "0" {
		t.Fatalf("POST -> %q", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := ts.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown took %v with only idle connections", elapsed)
	}

	if _, err := c.recv(); err == nil {
		t.Error("idle connection should be closed by Shutdown")
	}
	select {
	case err := <-ts.served:
		if !errors.Is(err, ErrServerClosed) {
			t.Errorf("Serve() = %v, want ErrServerClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
	if n := ts.ActiveConnections(); n != 0 {
		t.Errorf("ActiveConnections = %d, want 0", n)
	}

	// New connections are refused.
	if conn, err := net.DialTimeout("tcp", ts.Addr().String(), 200*time.Millisecond); err == nil {
		conn.Close()
		t.Error("dial after Shutdown should fail")
	}
}

func TestServer_ShutdownGracePeriodExpires(t *testing.T) {
	// One token, refilled far in the future: the second command blocks in
	// the rate limiter until shutdown gives up.
	ts := startServer(t, func(c *Config) { c.RateLimit = 0.001 })
	c := dial(t, ts.Addr())

	if got := c.do("POST first 1"); got != "0" {
		t.Fatalf("POST -> %q", got)
	}
	c.send("POST second 2\n")
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := ts.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown = %v, want DeadlineExceeded", err)
	}

	if _, err := ts.store.Lookup("second"); err == nil {
		t.Error("command blocked at shutdown must not be applied")
	}
	if _, err := ts.store.Lookup("first"); err != nil {
		t.Error("command completed before shutdown must be applied")
	}
}

func TestServer_ShutdownIdempotent(t *testing.T) {
	ts := startServer(t, nil)
	ctx := context.Background()
	if err := ts.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := ts.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestServer_TrackCountsHandler(t *testing.T) {
	srv := New(DefaultConfig(), memory.New())

	local, remote := net.Pipe()
	defer remote.Close()
	c := srv.newConn(local)
	if !srv.track(c) {
		t.Fatal("track before shutdown = false, want true")
	}

	done := make(chan error, 1)
	go func() { done <- srv.Shutdown(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("Shutdown returned %v while a tracked handler was running", err)
	case <-time.After(100 * time.Millisecond):
	}

	// The handler finishing is what releases Shutdown.
	srv.untrack(c)
	srv.wg.Done()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return after the handler finished")
	}

	late, lateRemote := net.Pipe()
	defer lateRemote.Close()
	if srv.track(srv.newConn(late)) {
		t.Error("track after shutdown = true, want false")
	}
}

func TestServer_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := DefaultConfig()
	cfg.Addr = ln.Addr().String()
	if err := New(cfg, memory.New()).Listen(); err == nil {
		t.Fatal("Listen on a bound port should fail")
	}
}

func TestServer_ServeBeforeListen(t *testing.T) {
	if err := New(DefaultConfig(), memory.New()).Serve(); err == nil {
		t.Fatal("Serve before Listen should fail")
	}
}
