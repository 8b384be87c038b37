package adminserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/yndnr/minidb-go/internal/infra/buildinfo"
	"github.com/yndnr/minidb-go/internal/telemetry/logger"
	"github.com/yndnr/minidb-go/internal/telemetry/metric"
)

// KeyCounter reports the number of stored keys.
type KeyCounter interface {
	Len() int
}

// ConnCounter reports the number of open client connections.
type ConnCounter interface {
	ActiveConnections() int
}

// Lifecycle reports the server lifecycle state.
type Lifecycle interface {
	StateName() string
	Serving() bool
}

// Config wires the admin server to the rest of the process.
type Config struct {
	Addr      string
	Store     KeyCounter
	Conns     ConnCounter
	Lifecycle Lifecycle
	Metrics   *metric.Registry
	Logger    logger.Logger
}

// Server is the admin HTTP server.
type Server struct {
	cfg        Config
	log        logger.Logger
	httpServer *http.Server
	ln         net.Listener
}

// New creates the admin server.
func New(cfg Config) *Server {
	s := &Server{
		cfg: cfg,
		log: logger.Or(cfg.Logger).With("component", "adminserver"),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(Recover(s.log)), mux.MiddlewareFunc(RequestID()), mux.MiddlewareFunc(AccessLog(s.log)))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/v1/stats", s.handleStats).Methods(http.MethodGet)
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "MD-HTTP-4040", "message": "not found"})
	})
	return r
}

// Listen binds the admin address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("adminserver: listen %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	s.log.Info("admin listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve serves HTTP until Shutdown; it then returns nil.
func (s *Server) Serve() error {
	if s.ln == nil {
		return errors.New("adminserver: Serve called before Listen")
	}
	if err := s.httpServer.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("adminserver: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close closes the listener and every connection immediately.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	state := "unknown"
	ready := false
	if s.cfg.Lifecycle != nil {
		state = s.cfg.Lifecycle.StateName()
		ready = s.cfg.Lifecycle.Serving()
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": ready, "state": state})
}

// Stats is the /v1/stats response body.
type Stats struct {
	Keys        int            `json:"keys"`
	Connections int            `json:"connections"`
	State       string         `json:"state"`
	Build       buildinfo.Info `json:"build"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := Stats{State: "unknown", Build: buildinfo.Get()}
	if s.cfg.Store != nil {
		st.Keys = s.cfg.Store.Len()
	}
	if s.cfg.Conns != nil {
		st.Connections = s.cfg.Conns.ActiveConnections()
	}
	if s.cfg.Lifecycle != nil {
		st.State = s.cfg.Lifecycle.StateName()
	}
	writeJSON(w, http.StatusOK, st)
}
