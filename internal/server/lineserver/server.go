package lineserver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/minidb-go/internal/core/domain"
	"github.com/yndnr/minidb-go/internal/telemetry/logger"
	"github.com/yndnr/minidb-go/internal/telemetry/metric"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("lineserver: server closed")

// Config holds the line server configuration.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// ReadTimeout bounds reading the rest of a line once its first byte
	// has arrived. 0 disables it.
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one response. 0 disables it.
	WriteTimeout time.Duration
	// IdleTimeout closes connections with no request for this long.
	// 0 disables it.
	IdleTimeout time.Duration
	// MaxLineLength is the longest accepted request line in bytes.
	MaxLineLength int
	// RateLimit caps commands per second on each connection. Excess
	// commands wait. 0 disables it.
	RateLimit float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:          "127.0.0.1:1111",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   5 * time.Minute,
		MaxLineLength: DefaultMaxLineLength,
	}
}

// Server accepts connections and serves the line protocol.
type Server struct {
	cfg     Config
	handler *CommandHandler
	log     logger.Logger
	metrics *metric.Registry

	ln       net.Listener
	draining atomic.Bool

	mu    sync.Mutex
	conns map[*Conn]struct{}
	wg    sync.WaitGroup

	// Cancelled when shutdown gives up waiting.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a server operating on store.
func New(cfg Config, store Store, opts ...Option) *Server {
	if cfg.MaxLineLength <= 0 {
		cfg.MaxLineLength = DefaultMaxLineLength
	}

	s := &Server{
		cfg:   cfg,
		log:   logger.Default(),
		conns: make(map[*Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "lineserver")
	s.handler = NewCommandHandler(store, s.metrics, s.log)
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())
	return s
}

// Conn is one client connection.
type Conn struct {
	id      string
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer
	limiter *rate.Limiter
	closed  atomic.Bool
}

func (s *Server) newConn(c net.Conn) *Conn {
	conn := &Conn{
		id:      ulid.Make().String(),
		netConn: c,
		br:      bufio.NewReader(c),
		bw:      bufio.NewWriter(c),
	}
	if s.cfg.RateLimit > 0 {
		burst := int(math.Max(1, math.Ceil(s.cfg.RateLimit)))
		conn.limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
	}
	return conn
}

// ID returns the connection id.
func (c *Conn) ID() string {
	return c.id
}

// Close closes the connection once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}

// hasBufferedLine reports whether a complete request is already buffered.
func (c *Conn) hasBufferedLine() bool {
	n := c.br.Buffered()
	if n == 0 {
		return false
	}
	b, _ := c.br.Peek(n)
	return bytes.IndexByte(b, '\n') >= 0
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.netConn.RemoteAddr()
}

// Listen binds the listen address. Serve must be called afterwards.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("lineserver: listen %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	s.log.Info("listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ActiveConnections returns the number of open connections.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Serve accepts connections until Shutdown, then returns ErrServerClosed.
func (s *Server) Serve() error {
	if s.ln == nil {
		return errors.New("lineserver: Serve called before Listen")
	}

	var backoff time.Duration
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if s.draining.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.log.Warn("accept error, retrying", "error", err, "backoff", backoff.String())
				time.Sleep(backoff)
				continue
			}
			return fmt.Errorf("lineserver: accept: %w", err)
		}
		backoff = 0

		c := s.newConn(nc)
		if !s.track(c) {
			_ = c.Close()
			continue
		}

		go func() {
			defer s.wg.Done()
			defer s.untrack(c)
			s.serveConn(c)
		}()
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

// track registers c and counts its handler unless the server is
// draining. Shutdown sets draining under mu, so it never waits on a
// counter that is about to grow.
func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining.Load() {
		return false
	}
	s.wg.Add(1)
	s.conns[c] = struct{}{}
	s.metrics.ConnOpened()
	return true
}

func (s *Server) untrack(c *Conn) {
	_ = c.Close()
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.metrics.ConnClosed()
}

func (s *Server) serveConn(c *Conn) {
	ctx := logger.WithConnID(s.baseCtx, c.id)
	log := s.log.With("conn_id", c.id, "remote", c.RemoteAddr().String())
	log.Debug("connection opened")
	defer log.Debug("connection closed")

	for {
		// Idle wait for the first byte of the next request.
		if err := c.netConn.SetReadDeadline(deadline(s.cfg.IdleTimeout)); err != nil {
			return
		}
		if s.draining.Load() {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			logReadError(log, err)
			return
		}

		// The request has started: tighten to the per-line read timeout.
		if err := c.netConn.SetReadDeadline(deadline(s.cfg.ReadTimeout)); err != nil {
			return
		}
		if s.draining.Load() {
			return
		}

		line, err := ReadLine(c.br, s.cfg.MaxLineLength)
		tooLong := errors.Is(err, domain.ErrLineTooLong)
		if err != nil && !tooLong {
			logReadError(log, err)
			return
		}

		// A command not yet applied when draining starts is dropped.
		if s.draining.Load() {
			return
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
		}

		var resp Response
		if tooLong {
			log.Warn("request line too long", "limit", s.cfg.MaxLineLength)
			resp = s.handler.Reject()
		} else {
			resp = s.handler.Apply(Decode(line))
		}

		if err := c.netConn.SetWriteDeadline(deadline(s.cfg.WriteTimeout)); err != nil {
			return
		}
		if err := WriteResponse(c.bw, resp); err != nil {
			log.Debug("write failed", "error", err)
			return
		}
		// Pipelined requests share one flush.
		if !c.hasBufferedLine() {
			if err := c.bw.Flush(); err != nil {
				log.Debug("flush failed", "error", err)
				return
			}
		}
	}
}

func deadline(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

func logReadError(log logger.Logger, err error) {
	var ne net.Error
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
	case errors.As(err, &ne) && ne.Timeout():
		log.Debug("connection timed out")
	default:
		log.Debug("connection read error", "error", err)
	}
}

// Shutdown stops accepting, interrupts idle connections and waits for
// in-flight commands. If ctx ends first, remaining connections are closed
// and ctx's error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	first := s.draining.CompareAndSwap(false, true)
	s.mu.Unlock()
	if !first {
		return nil
	}

	var lnErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			lnErr = err
		}
	}

	s.mu.Lock()
	active := len(s.conns)
	for c := range s.conns {
		// Wake handlers blocked waiting for a request.
		_ = c.netConn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()
	s.log.Info("draining connections", "active", active)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancelBase()
		return lnErr
	case <-ctx.Done():
	}

	s.mu.Lock()
	remaining := len(s.conns)
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.cancelBase()
	s.log.Warn("grace period expired, closed connections", "remaining", remaining)

	// Every blocking point in a handler is now interrupted.
	<-done
	return ctx.Err()
}
