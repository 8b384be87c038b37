package lineserver

import (
	"time"

	"github.com/yndnr/minidb-go/internal/core/domain"
	"github.com/yndnr/minidb-go/internal/telemetry/logger"
	"github.com/yndnr/minidb-go/internal/telemetry/metric"
)

// Store is the key-value state commands operate on.
type Store interface {
	Insert(key, value string) bool
	Lookup(key string) (string, error)
	Remove(key string) error
}

// CommandHandler applies decoded commands to a Store.
type CommandHandler struct {
	store   Store
	metrics *metric.Registry
	log     logger.Logger
}

// NewCommandHandler creates a handler. metrics may be nil.
func NewCommandHandler(store Store, metrics *metric.Registry, log logger.Logger) *CommandHandler {
	return &CommandHandler{
		store:   store,
		metrics: metrics,
		log:     logger.Or(log),
	}
}

// Apply executes cmd and returns its response.
func (h *CommandHandler) Apply(cmd Command) Response {
	start := time.Now()
	resp := h.apply(cmd)
	h.metrics.ObserveCommand(cmd.Verb(), resp.Status.Label(), time.Since(start))
	return resp
}

func (h *CommandHandler) apply(cmd Command) Response {
	switch c := cmd.(type) {
	case Post:
		h.store.Insert(c.Key, c.Value)
		return Response{Status: domain.StatusOK}

	case Get:
		v, err := h.store.Lookup(c.Key)
		if err != nil {
			return Response{Status: domain.StatusOf(err)}
		}
		return Response{Status: domain.StatusOK, Value: v}

	case Delete:
		return Response{Status: domain.StatusOf(h.store.Remove(c.Key))}

	default:
		h.log.Debug("unrecognized command", "line", truncate(rawOf(cmd), 64))
		return Response{Status: domain.StatusUnknown}
	}
}

// Reject answers a line that could not be read as a command.
func (h *CommandHandler) Reject() Response {
	h.metrics.ObserveCommand(verbUnknown, domain.StatusUnknown.Label(), 0)
	return Response{Status: domain.StatusUnknown}
}

func rawOf(cmd Command) string {
	if u, ok := cmd.(Unknown); ok {
		return u.Raw
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
