package devserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/liveroute/pkg/router"
)

// Options configures a Server.
type Options struct {
	// Logger receives connection and run events. Default: slog.Default().
	Logger *slog.Logger

	// Gatherer serves the metrics endpoint. Nil disables it.
	Gatherer prometheus.Gatherer

	// MetricsPath is the metrics endpoint path. Default: "/metrics".
	MetricsPath string
}

// Server bridges WebSocket clients to router runs.
type Server struct {
	router   *router.Router
	logger   *slog.Logger
	upgrader websocket.Upgrader
	mux      chi.Router

	mu       sync.Mutex
	sessions map[*session]struct{}
}

// New creates a Server for r.
func New(r *router.Router, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	s := &Server{
		router: r,
		logger: opts.Logger.With("component", "devserver"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
		sessions: make(map[*session]struct{}),
	}

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Get("/ws", s.handleWebSocket)
	mux.Get("/routes", s.handleRoutes)
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if opts.Gatherer != nil {
		mux.Handle(opts.MetricsPath, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	s.mux = mux
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// RouteInfo describes one compiled entry.
type RouteInfo struct {
	Index   int      `json:"index"`
	Name    string   `json:"name"`
	Pattern string   `json:"pattern"`
	Guarded bool     `json:"guarded"`
	Layers  []string `json:"layers,omitempty"`
	Layouts []string `json:"layouts,omitempty"`
	Catches []string `json:"catches,omitempty"`
}

// Routes describes the compiled route table.
func Routes(t *router.Table) []RouteInfo {
	entries := t.Entries()
	out := make([]RouteInfo, len(entries))
	for i, e := range entries {
		info := RouteInfo{
			Index:   e.Index,
			Name:    e.Name,
			Pattern: e.Pattern.String(),
			Guarded: e.Guard != nil,
		}
		for _, l := range e.Layers {
			info.Layers = append(info.Layers, l.Name())
		}
		for _, d := range e.Layouts {
			h, _ := t.LayoutHandle(d)
			info.Layouts = append(info.Layouts, displayName(d.Name(), "layout", h))
		}
		for _, d := range e.Catches {
			h, _ := t.CatchHandle(d)
			info.Catches = append(info.Catches, displayName(d.Name(), "catch", h))
		}
		out[i] = info
	}
	return out
}

// displayName matches the names the router reports to observers.
func displayName(name, kind string, handle int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s-%d", kind, handle)
}

func (s *Server) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(Routes(s.router.Table())); err != nil {
		s.logger.Warn("encoding routes failed", "error", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	start := req.URL.Query().Get("path")
	if start == "" {
		start = "/"
	}
	sess := newSession(s, conn, start)

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	sess.serve(req.Context())

	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}

// SessionCount returns the number of connected clients.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close closes all client connections.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sess := range s.sessions {
		sess.close()
	}
}
