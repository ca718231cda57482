// Package api is the local HTTP control surface: start and stop the
// pipeline and preview, read and update configuration, capture a hotkey and
// list model classes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultAddress is the loopback listen address.
const DefaultAddress = "127.0.0.1:8000"

// ServerOptions configures the HTTP server. WriteTimeout must exceed the
// hotkey capture window.
type ServerOptions struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            *slog.Logger
}

// Server hosts the control API.
type Server struct {
	http   *http.Server
	deps   Deps
	logger *slog.Logger
	opts   ServerOptions
}

// NewServer builds the server. It does not listen until Start.
func NewServer(deps Deps, opts ServerOptions) *Server {
	if deps.Pipeline == nil || deps.Config == nil {
		panic("api.NewServer: pipeline and config are required")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{deps: deps, logger: opts.Logger, opts: opts}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(opts.Logger.Handler(), slog.LevelError),
		BaseContext: func(net.Listener) context.Context {
			return context.Background()
		},
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /start_detect", s.handleStartDetect)
	mux.HandleFunc("POST /stop_detect", s.handleStopDetect)
	mux.HandleFunc("POST /preview", s.handleStartPreview)
	mux.HandleFunc("POST /stop_preview", s.handleStopPreview)
	mux.HandleFunc("POST /config/get", s.handleConfigGet)
	mux.HandleFunc("POST /config/set", s.handleConfigSet)
	mux.HandleFunc("POST /hotkey/change", s.handleHotkeyChange)
	mux.HandleFunc("POST /model/classes", s.handleModelClasses)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /preview.jpg", s.handlePreviewJPEG)
	return withMiddleware(mux, s.logger)
}

// Start serves in a background goroutine and returns immediately.
func (s *Server) Start() {
	go func() {
		s.logger.Info("api.listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api.listen", "error", err)
		}
	}()
}

// Stop gracefully shuts down, waiting up to ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.opts.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ShutdownTimeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

// withMiddleware adds permissive CORS and request logging. There is no
// auth: the server binds to loopback by default.
func withMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
		logger.Debug("api.request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start))
	})
}

func ok(w http.ResponseWriter, msg string, data any) {
	writeJSON(w, http.StatusOK, Envelope{Error: 0, Msg: msg, Data: data})
}

func fail(w http.ResponseWriter, msg string, data any) {
	writeJSON(w, http.StatusOK, Envelope{Error: 1, Msg: msg, Data: data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
