// Package statusserver exposes a running driver over HTTP:
//
//	GET /healthz  liveness probe, always "ok" while the server is up
//	GET /status   lifecycle state, tick count and tree size as JSON
//	GET /metrics  prometheus metrics
package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/sakamoto/pkg/driver"
	"github.com/bft-labs/sakamoto/pkg/log"
)

// DefaultAddr is used when Config.Addr is empty.
const DefaultAddr = "127.0.0.1:9464"

// Config holds configuration options for the status server plugin.
type Config struct {
	// Addr is the listen address. Use ":0" for an ephemeral port.
	Addr string

	// ReadHeaderTimeout bounds how long a client may take to send headers.
	// Default: 5 seconds
	ReadHeaderTimeout time.Duration
}

// Status is the body of GET /status.
type Status struct {
	State string `json:"state"`
	Ticks uint64 `json:"ticks"`
	Nodes int    `json:"nodes"`
}

// Plugin serves status endpoints for the lifetime of a driver run.
type Plugin struct {
	addr              string
	readHeaderTimeout time.Duration

	mu     sync.Mutex
	srv    *http.Server
	ln     net.Listener
	logger log.Logger
	wg     sync.WaitGroup
}

// New creates a status server plugin.
func New(cfg Config) *Plugin {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	return &Plugin{
		addr:              cfg.Addr,
		readHeaderTimeout: cfg.ReadHeaderTimeout,
		logger:            log.NewNoopLogger(),
	}
}

// WithStatusServer returns a driver Option that serves status endpoints
// while the driver runs.
func WithStatusServer(cfg Config) driver.Option {
	return driver.WithPlugin(New(cfg))
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "statusserver"
}

// Addr returns the bound address once Initialize has succeeded, otherwise
// the configured one.
func (p *Plugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ln != nil {
		return p.ln.Addr().String()
	}
	return p.addr
}

// Initialize binds the listen address and starts serving.
func (p *Plugin) Initialize(ctx context.Context, cfg driver.PluginConfig) error {
	if cfg.Controller == nil {
		return fmt.Errorf("statusserver: nil controller")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("statusserver: listen %s: %w", p.addr, err)
	}
	srv := &http.Server{
		Handler:           NewRouter(cfg.Controller, logger),
		ReadHeaderTimeout: p.readHeaderTimeout,
	}

	p.mu.Lock()
	p.ln = ln
	p.srv = srv
	p.logger = logger
	p.mu.Unlock()

	logger.Info("status server listening", log.String("addr", ln.Addr().String()))

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server stopped", log.Err(err))
		}
	}()
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	srv := p.srv
	p.srv = nil
	p.ln = nil
	p.mu.Unlock()
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	p.wg.Wait()
	return err
}

// NewRouter builds the status routes for ctrl.
func NewRouter(ctrl driver.Controller, logger log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		st := Status{
			State: ctrl.Status().String(),
			Ticks: ctrl.Ticks(),
			Nodes: ctrl.Nodes(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

func requestLogger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("status request",
				log.String("method", r.Method),
				log.String("path", r.URL.Path),
				log.Int("status", ww.Status()),
				log.Duration("took", time.Since(start)),
				log.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
