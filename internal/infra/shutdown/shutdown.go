package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/yndnr/minidb-go/internal/telemetry/logger"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	signals []os.Signal
	log     logger.Logger
	hooks   []hook
	mu      sync.Mutex
	once    sync.Once

	notifyOnce sync.Once
	sigCh      chan os.Signal
	err     error
	done    chan struct{}
}

// NewHandler creates a shutdown handler. Each hook gets its own context
// bounded by timeout; 0 means no bound.
func NewHandler(timeout time.Duration, log logger.Logger) *Handler {
	return &Handler{
		timeout: timeout,
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		log:     logger.Or(log).With("component", "shutdown"),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(name string, fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook{name: name, fn: fn})
}

// Notify starts capturing SIGINT and SIGTERM. From then on the signals no
// longer kill the process; the first one is held for Wait. Calling Notify
// more than once has no further effect.
func (h *Handler) Notify() {
	h.notifyOnce.Do(func() {
		h.sigCh = make(chan os.Signal, 1)
		signal.Notify(h.sigCh, h.signals...)
	})
}

// Wait blocks until SIGINT, SIGTERM or ctx cancellation, then runs the
// hooks. It returns the signal received (nil on cancellation) and the
// combined hook errors. Wait calls Notify if it has not been called.
func (h *Handler) Wait(ctx context.Context) (os.Signal, error) {
	h.Notify()
	defer signal.Stop(h.sigCh)

	var sig os.Signal
	select {
	case sig = <-h.sigCh:
		h.log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		h.log.Info("shutdown requested", "reason", context.Cause(ctx).Error())
	}

	return sig, h.Shutdown()
}

// Shutdown runs the hooks once. Later calls return the first result.
func (h *Handler) Shutdown() error {
	h.once.Do(func() {
		h.mu.Lock()
		hooks := make([]hook, len(h.hooks))
		copy(hooks, h.hooks)
		h.mu.Unlock()

		for i := len(hooks) - 1; i >= 0; i-- {
			if err := h.run(hooks[i]); err != nil {
				h.err = multierr.Append(h.err, fmt.Errorf("%s: %w", hooks[i].name, err))
			}
		}
		close(h.done)
	})
	return h.err
}

func (h *Handler) run(k hook) error {
	ctx := context.Background()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	err := k.fn(ctx)
	if err != nil {
		h.log.Error("shutdown hook failed", "hook", k.name, "error", err)
	} else {
		h.log.Debug("shutdown hook done", "hook", k.name, "duration", time.Since(start).String())
	}
	return err
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
