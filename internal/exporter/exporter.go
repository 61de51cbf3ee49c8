// Package exporter serves the last good battery insights over HTTP and refreshes them periodically.
package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ubuntu/battery-insights/internal/constants"
	"github.com/ubuntu/battery-insights/internal/pipeline"
	"github.com/ubuntu/battery-insights/internal/publish"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	generateRatePerSecond = 0.1
	generateBurst         = 3
)

// Generator generates results.
type Generator interface {
	Generate(ctx context.Context) (pipeline.Result, error)
}

// Config holds the static configuration of the server.
type Config struct {
	ListenHost string
	ListenPort int

	// Interval is the delay between two generations. 0 disables the refresh loop.
	Interval time.Duration

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

// Server serves the last good result of a generator.
type Server struct {
	gen       Generator
	latest    *pipeline.Latest
	publisher publish.Publisher
	metrics   *metrics
	interval  time.Duration
	log       *slog.Logger

	httpServer *http.Server
	listener   net.Listener

	// Serializes generations, so that the platform tool never runs twice at once.
	refreshMu sync.Mutex

	// This context is used to interrupt any action.
	// It must be the parent of gracefulCtx.
	ctx    context.Context
	cancel context.CancelFunc

	// This context stops the refresh loop and lets in-flight requests finish.
	gracefulCtx    context.Context
	gracefulCancel context.CancelFunc
}

type options struct {
	publisher publish.Publisher
	registry  *prometheus.Registry
	rate      rate.Limit
	burst     int
	log       *slog.Logger
}

// Options are the variadic options available to the Server.
type Options func(*options)

// WithPublisher publishes every new result with p.
func WithPublisher(p publish.Publisher) Options {
	return func(o *options) {
		o.publisher = p
	}
}

// WithRegistry registers the metrics in reg instead of a new registry.
func WithRegistry(reg *prometheus.Registry) Options {
	return func(o *options) {
		o.registry = reg
	}
}

// WithGenerateRate limits on-demand generations of each client to r per second, with bursts of b.
func WithGenerateRate(r rate.Limit, b int) Options {
	return func(o *options) {
		o.rate, o.burst = r, b
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns a server listening on the configured address.
// Call Run to start serving and Quit to stop it.
func New(ctx context.Context, gen Generator, cfg Config, args ...Options) (*Server, error) {
	if gen == nil {
		return nil, errors.New("no generator provided")
	}

	opts := options{
		rate:  generateRatePerSecond,
		burst: generateBurst,
		log:   slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}
	if opts.registry == nil {
		opts.registry = prometheus.NewRegistry()
		opts.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	addr := net.JoinHostPort(cfg.ListenHost, strconv.Itoa(cfg.ListenPort))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not listen on %s: %v", addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	gCtx, gCancel := context.WithCancel(ctx)

	s := &Server{
		gen:       gen,
		latest:    &pipeline.Latest{},
		publisher: opts.publisher,
		metrics:   newMetrics(opts.registry),
		interval:  cfg.Interval,
		log:       opts.log,
		listener:  l,

		ctx:    ctx,
		cancel: cancel,

		gracefulCtx:    gCtx,
		gracefulCancel: gCancel,
	}

	var h http.Handler = s.router(opts.registry, newIPLimiter(opts.rate, opts.burst))
	if cfg.RequestTimeout > 0 {
		h = http.TimeoutHandler(h, cfg.RequestTimeout, "")
	}
	s.httpServer = &http.Server{
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	return s, nil
}

func (s *Server) router(reg *prometheus.Registry, limiter *ipLimiter) http.Handler {
	r := mux.NewRouter()
	r.Use(s.metrics.monitor)

	r.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/generate", limiter.middleware(http.HandlerFunc(s.handleGenerate))).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, p handlers.LogFormatterParams) {
		s.log.Debug("HTTP request", "method", p.Request.Method, "path", p.URL.Path, "status", p.StatusCode, "size", p.Size, "remote", p.Request.RemoteAddr)
	})
}

// Addr returns the address the server listens on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Latest returns the holder of the last good result.
func (s *Server) Latest() *pipeline.Latest {
	return s.latest
}

// Refresh generates a new result. On failure, the previous result is kept and the error returned.
// New results are published when a publisher is set; failing to publish is only logged.
func (s *Server) Refresh(ctx context.Context) (pipeline.Result, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	r, err := s.latest.Update(ctx, s.gen.Generate)
	if err != nil {
		s.metrics.failure()
		s.log.Warn("Failed to generate battery insights, keeping the previous result", "error", err)
		return pipeline.Result{}, err
	}
	s.metrics.success(r, s.latest.LastAttempt())
	s.log.Info("Generated battery insights", "id", r.ID, "batteries", len(r.Report.Batteries))

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, r); err != nil {
			s.log.Warn("Failed to publish battery insights", "error", err)
		}
	}
	return r, nil
}

// Run serves requests and refreshes the result every interval until Quit is called.
func (s *Server) Run() error {
	// already asked to quit?
	select {
	case <-s.gracefulCtx.Done():
		s.listener.Close()
		return errors.New("server is already shutting down")
	default:
	}

	s.log.Info("Starting server", "addr", s.Addr().String(), "interval", s.interval)

	g, ctx := errgroup.WithContext(s.gracefulCtx)
	g.Go(func() error {
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server encountered an error: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		s.refreshLoop(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		// use parent ctx so that a forced quit unblocks Shutdown immediately
		if err := s.httpServer.Shutdown(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("graceful shutdown failed: %v", err)
		}
		return nil
	})

	err := g.Wait()
	s.cancel()
	if s.publisher != nil {
		if errC := s.publisher.Close(); errC != nil {
			s.log.Warn("Failed to close publisher", "error", errC)
		}
	}
	if err != nil {
		return err
	}
	s.log.Info("Server shut down gracefully")
	return nil
}

func (s *Server) refreshLoop(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Debug("Refresh loop disabled")
		return
	}

	// Failures are logged and counted by Refresh.
	_, _ = s.Refresh(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = s.Refresh(ctx)
		}
	}
}

// Quit stops the server. Without force, in-flight requests are given time to finish.
func (s *Server) Quit(force bool) {
	if force {
		s.cancel()
		s.httpServer.Close()
	}
	s.gracefulCancel()
	s.log.Info("Server quit", "force", force)
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	r, ok := s.latest.Get()
	if !ok {
		msg := "no battery report generated yet"
		if err := s.latest.LastError(); err != nil {
			msg = fmt.Sprintf("%s: %v", msg, err)
		}
		writeError(w, http.StatusServiceUnavailable, msg)
		return
	}
	writeJSON(w, http.StatusOK, r)
}

// Health describes the state of the generations.
type Health struct {
	Status      string     `json:"status"`
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	ResultID    string     `json:"resultId,omitempty"`
}

// Health statuses.
const (
	StatusStarting = "starting"
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFailing  = "failing"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	r, ok := s.latest.Get()
	lastErr := s.latest.LastError()

	h := Health{Status: StatusOK}
	if at := s.latest.LastAttempt(); !at.IsZero() {
		h.LastAttempt = &at
	}
	if lastErr != nil {
		h.LastError = lastErr.Error()
	}
	if ok {
		h.ResultID = r.ID.String()
	}

	code := http.StatusOK
	switch {
	case !ok && lastErr == nil:
		h.Status, code = StatusStarting, http.StatusServiceUnavailable
	case !ok:
		h.Status, code = StatusFailing, http.StatusServiceUnavailable
	case lastErr != nil:
		h.Status = StatusDegraded
	}
	writeJSON(w, code, h)
}

func (s *Server) handleGenerate(w http.ResponseWriter, req *http.Request) {
	r, err := s.Refresh(req.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, r)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Server", constants.CmdName+"/"+constants.Version)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
