package docs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/zishang520/socket.io/v2/socket"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/watcher"
)

// Events pushed to connected clients besides UpdateEvent.
const (
	// CurrentEvent carries the latest Summary to a client that just
	// connected.
	CurrentEvent = "spec:current"
	// ErrorEvent carries the message of a failed rebuild. The previous page
	// stays in place.
	ErrorEvent = "spec:error"
)

// Build is one rendering of the spec.
type Build struct {
	HTML    []byte
	Spec    []byte
	Summary Summary
}

// Builder loads, checks and renders the spec.
type Builder func(ctx context.Context) (*Build, error)

type ServerConfig struct {
	Addr string
	// Watch lists the files and directories whose changes trigger a
	// rebuild.
	Watch    []string
	Debounce time.Duration
}

// Server serves the rendered page, the spec as JSON, a health check and
// the socket.io endpoint used for live reload.
type Server struct {
	cfg     ServerConfig
	build   Builder
	io      *socket.Server
	handler http.Handler
	logger  *slog.Logger

	mu      sync.RWMutex
	current *Build
	addr    string
	ready   chan struct{}
}

func NewServer(ctx context.Context, cfg ServerConfig, build Builder) *Server {
	s := &Server{
		cfg:    cfg,
		build:  build,
		io:     socket.NewServer(nil, nil),
		logger: ctxlog.Component(ctx, "docs"),
		ready:  make(chan struct{}),
	}
	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.logger.Debug("Live reload client connected.", "sid", client.Id())
		if b := s.Current(); b != nil {
			client.Emit(CurrentEvent, b.Summary)
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.pageHandler)
	mux.HandleFunc("GET /spec.json", s.specHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("/socket.io/", s.io.ServeHandler(nil))
	s.handler = mux
	return s
}

// Current returns the latest successful build, or nil before the first.
func (s *Server) Current() *Build {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Addr is the address the server listens on once Ready is closed.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Ready is closed when the server accepts connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Rebuild runs the builder and announces the outcome to connected clients.
func (s *Server) Rebuild(ctx context.Context) error {
	b, err := s.build(ctx)
	if err != nil {
		s.io.Emit(ErrorEvent, err.Error())
		return err
	}
	s.mu.Lock()
	s.current = b
	s.mu.Unlock()

	s.logger.Info("Docs rebuilt.", "summary", b.Summary.String())
	s.io.Emit(UpdateEvent, b.Summary)
	return nil
}

// Handler routes the server's endpoints.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	b := s.Current()
	if b == nil {
		http.Error(w, "docs are not built yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b.HTML)
}

func (s *Server) specHandler(w http.ResponseWriter, r *http.Request) {
	b := s.Current()
	if b == nil {
		http.Error(w, "docs are not built yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b.Spec)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// Run builds the page, starts watching and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	logger := ctxlog.Component(ctx, "docs")

	if err := s.Rebuild(ctx); err != nil {
		return fmt.Errorf("initial docs build: %w", err)
	}

	wcfg := watcher.DefaultConfig()
	if s.cfg.Debounce > 0 {
		wcfg.Debounce = s.cfg.Debounce
	}
	w, err := watcher.New(wcfg, func(events []watcher.Event) {
		for _, e := range events {
			if e.Gone() {
				logger.Warn("Watched file is gone, the page will update when it returns.", "path", e.Path)
			}
		}
		logger.Info("Spec changed, rebuilding.", "events", len(events), "first", events[0].Path)
		if err := s.Rebuild(ctx); err != nil {
			logger.Warn("Docs rebuild failed, keeping the previous page.", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	watchCtx, stopWatching := context.WithCancel(ctx)
	defer stopWatching()
	for _, p := range s.cfg.Watch {
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}
	go func() { _ = w.Run(watchCtx) }()

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()
	logger.Info("📖 Docs server starting", "address", "http://"+ln.Addr().String())
	close(s.ready)

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("📖 Shutting down docs server...")
	s.io.Close(nil)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Docs server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Docs server shut down gracefully.")
	return nil
}
