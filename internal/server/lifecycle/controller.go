package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/yndnr/minidb-go/internal/core/domain"
	"github.com/yndnr/minidb-go/internal/infra/shutdown"
	"github.com/yndnr/minidb-go/internal/server/adminserver"
	"github.com/yndnr/minidb-go/internal/server/lineserver"
	"github.com/yndnr/minidb-go/internal/storage/memory"
	"github.com/yndnr/minidb-go/internal/storage/snapshot"
	"github.com/yndnr/minidb-go/internal/telemetry/logger"
	"github.com/yndnr/minidb-go/internal/telemetry/metric"
)

// ReadyLine is written to the ready writer once the server accepts clients.
const ReadyLine = "ready"

// Persister loads and saves the full store image.
type Persister interface {
	Load() ([]domain.Record, *snapshot.Info, error)
	Save(records []domain.Record) (*snapshot.Info, error)
}

// Config configures a Controller.
type Config struct {
	Server lineserver.Config

	// GracePeriod bounds the drain and the admin shutdown. 0 waits
	// without bound.
	GracePeriod time.Duration

	// AdminAddr enables the admin HTTP server when non-empty.
	AdminAddr string

	Persister Persister

	// ReadyOut receives the ready line. Defaults to os.Stdout.
	ReadyOut io.Writer

	Logger  logger.Logger
	Metrics *metric.Registry
}

// Controller owns the store, the listeners and the shutdown sequence.
type Controller struct {
	cfg     Config
	log     logger.Logger
	metrics *metric.Registry

	store    *memory.Store
	lines    *lineserver.Server
	admin    *adminserver.Server
	shutdown *shutdown.Handler

	state   atomic.Int32
	ready   chan struct{}
	started atomic.Bool

	serveWG  sync.WaitGroup
	serveErr error
	errMu    sync.Mutex
	fail     context.CancelCauseFunc
}

// New creates a Controller. Nothing is loaded or bound until Run.
func New(cfg Config) (*Controller, error) {
	if cfg.Persister == nil {
		return nil, errors.New("lifecycle: persister is required")
	}
	if cfg.ReadyOut == nil {
		cfg.ReadyOut = os.Stdout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.NewRegistry()
	}

	log := logger.Or(cfg.Logger)
	c := &Controller{
		cfg:      cfg,
		log:      log.With("component", "lifecycle"),
		metrics:  cfg.Metrics,
		store:    memory.New(),
		ready:    make(chan struct{}),
		shutdown: shutdown.NewHandler(0, log),
	}
	c.metrics.RegisterStoreSize(c.store.Len)

	c.lines = lineserver.New(cfg.Server, c.store,
		lineserver.WithLogger(log),
		lineserver.WithMetrics(c.metrics),
	)
	if cfg.AdminAddr != "" {
		c.admin = adminserver.New(adminserver.Config{
			Addr:      cfg.AdminAddr,
			Store:     c.store,
			Conns:     c.lines,
			Lifecycle: c,
			Metrics:   c.metrics,
			Logger:    log,
		})
	}
	return c, nil
}

// State returns the current phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// StateName returns the current phase name.
func (c *Controller) StateName() string {
	return c.State().String()
}

// Serving reports whether the controller is accepting clients.
func (c *Controller) Serving() bool {
	return c.State().Serving()
}

// Ready returns a channel closed once the ready line has been written.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// Addr returns the line-protocol address, or nil before Ready.
func (c *Controller) Addr() net.Addr {
	return c.lines.Addr()
}

// AdminAddr returns the admin address, or nil when disabled or before Ready.
func (c *Controller) AdminAddr() net.Addr {
	if c.admin == nil {
		return nil
	}
	return c.admin.Addr()
}

// Store returns the live store.
func (c *Controller) Store() *memory.Store {
	return c.store
}

func (c *Controller) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s {
		c.log.Debug("state changed", "from", old.String(), "to", s.String())
	}
}

// Run loads the image, serves until SIGINT, SIGTERM or ctx cancellation,
// then drains and saves. A load or bind failure returns before the ready
// line and leaves the image untouched. Run may be called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("lifecycle: already started")
	}

	if err := c.start(); err != nil {
		c.setState(StateTerminated)
		return err
	}

	runCtx, fail := context.WithCancelCause(ctx)
	defer fail(nil)
	c.fail = fail
	c.registerHooks()
	c.serve()

	c.setState(StateRunning)
	c.log.Info("running", "addr", c.Addr().String())

	_, err := c.shutdown.Wait(runCtx)
	c.serveWG.Wait()

	c.errMu.Lock()
	defer c.errMu.Unlock()
	return multierr.Append(c.serveErr, err)
}

func (c *Controller) start() error {
	c.setState(StateInitializing)

	records, _, err := c.cfg.Persister.Load()
	if err != nil {
		return fmt.Errorf("lifecycle: load image: %w", err)
	}
	c.store.Restore(records)

	if err := c.lines.Listen(); err != nil {
		return err
	}
	if c.admin != nil {
		if err := c.admin.Listen(); err != nil {
			_ = c.lines.Shutdown(context.Background())
			return err
		}
	}

	// Signals must be captured before anyone is told we are ready.
	c.shutdown.Notify()
	c.setState(StateReady)
	if _, err := fmt.Fprintln(c.cfg.ReadyOut, ReadyLine); err != nil {
		c.log.Warn("ready line not written", "error", err)
	}
	close(c.ready)
	return nil
}

func (c *Controller) serve() {
	c.goServe("lineserver", func() error {
		if err := c.lines.Serve(); !errors.Is(err, lineserver.ErrServerClosed) {
			return err
		}
		return nil
	})
	if c.admin != nil {
		c.goServe("adminserver", c.admin.Serve)
	}
}

// goServe runs fn and turns an unexpected exit into a shutdown.
func (c *Controller) goServe(name string, fn func() error) {
	c.serveWG.Add(1)
	go func() {
		defer c.serveWG.Done()
		if err := fn(); err != nil {
			c.log.Error("server stopped unexpectedly", "server", name, "error", err)
			c.errMu.Lock()
			c.serveErr = multierr.Append(c.serveErr, err)
			c.errMu.Unlock()
			c.fail(err)
		}
	}()
}

// registerHooks installs the shutdown sequence. Hooks run in reverse, so
// the drain runs first and the save last.
func (c *Controller) registerHooks() {
	c.shutdown.OnShutdown("save", c.save)
	if c.admin != nil {
		c.shutdown.OnShutdown("adminserver", c.shutdownAdmin)
	}
	c.shutdown.OnShutdown("drain", c.drain)
}

// graceContext bounds ctx by the grace period.
func (c *Controller) graceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.GracePeriod > 0 {
		return context.WithTimeout(ctx, c.cfg.GracePeriod)
	}
	return context.WithCancel(ctx)
}

func (c *Controller) drain(ctx context.Context) error {
	c.setState(StateDraining)
	ctx, cancel := c.graceContext(ctx)
	defer cancel()

	err := c.lines.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		c.log.Warn("grace period expired, saving anyway", "grace_period", c.cfg.GracePeriod.String())
		return nil
	}
	return err
}

func (c *Controller) shutdownAdmin(ctx context.Context) error {
	ctx, cancel := c.graceContext(ctx)
	defer cancel()

	err := c.admin.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		c.log.Warn("admin requests outlived the grace period, closing", "grace_period", c.cfg.GracePeriod.String())
		return c.admin.Close()
	}
	return err
}

func (c *Controller) save(context.Context) error {
	defer c.setState(StateTerminated)

	info, err := c.cfg.Persister.Save(c.store.Snapshot())
	if err != nil {
		return err
	}
	c.log.Info("image saved", "path", info.Path, "keys", info.Records, "bytes", info.Size)
	return nil
}
