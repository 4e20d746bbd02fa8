package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fernwey/atlas-travel-agent/internal/config"
	"github.com/fernwey/atlas-travel-agent/internal/connwatch"
	"github.com/fernwey/atlas-travel-agent/internal/mailer"
	"github.com/fernwey/atlas-travel-agent/internal/templates"
	"github.com/fernwey/atlas-travel-agent/internal/usage"
)

//go:embed page.html
var chatPage []byte

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

func errorResponse(w http.ResponseWriter, status int, message, code string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]any{
		"error": map[string]string{
			"message": message,
			"code":    code,
		},
	}, logger)
}

// Server is the HTTP face of the assistant: the embedded chat page,
// the websocket endpoint, and the REST API under /api.
type Server struct {
	address   string
	port      int
	publicURL string
	pipeline  *Pipeline
	mailer    *mailer.Mailer
	templates *templates.Store
	usage     *usage.Store
	watch     *connwatch.Manager
	logger    *slog.Logger
	server    *http.Server
	upgrader  websocket.Upgrader
	started   time.Time

	conns      atomic.Int64
	messages   atomic.Int64
	plansBuilt atomic.Int64
	failures   atomic.Int64
}

// New creates the chat server.
func New(cfg config.Config, pipe *Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:   cfg.Listen.Address,
		port:      cfg.Listen.Port,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		pipeline:  pipe,
		logger:    logger,
		started:   time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Non-browser clients send no Origin header; pages served
			// through a reverse proxy may send a foreign one.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetMailer configures outbound mail for the plan email endpoint.
func (s *Server) SetMailer(m *mailer.Mailer) {
	s.mailer = m
}

// SetTemplates configures the template store for the reload endpoints.
func (s *Server) SetTemplates(store *templates.Store) {
	s.templates = store
}

// SetUsage configures the usage store for advisor spend reporting.
func (s *Server) SetUsage(store *usage.Store) {
	s.usage = store
}

// SetWatch configures the dependency watcher for health reporting.
func (s *Server) SetWatch(m *connwatch.Manager) {
	s.watch = m
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Chat surface
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /plan/{id}", s.handlePlanPage)

	// Operational endpoints
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	// Plan endpoints
	mux.HandleFunc("POST /api/plan", s.handlePlanCreate)
	mux.HandleFunc("GET /api/plan/{id}", s.handlePlanGet)
	mux.HandleFunc("GET /api/plan/{id}/ics", s.handlePlanICS)
	mux.HandleFunc("GET /api/plan/{id}/qr", s.handlePlanQR)
	mux.HandleFunc("POST /api/plan/{id}/email", s.handlePlanEmail)

	// Template endpoints
	mux.HandleFunc("GET /api/templates", s.handleTemplateList)
	mux.HandleFunc("POST /api/templates/reload", s.handleTemplateReload)

	// Conversation history endpoints
	mux.HandleFunc("GET /api/conversations", s.handleConversationList)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleConversationGet)

	return mux
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	s.started = time.Now()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.withLogging(s.routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // upgraded websocket conns are exempt
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting chat server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(chatPage); err != nil {
		s.logger.Debug("failed to write chat page", "error", err)
	}
}

// planURL is the shareable address of a plan page.
func (s *Server) planURL(r *http.Request, id string) string {
	if s.publicURL != "" {
		return s.publicURL + "/plan/" + id
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/plan/" + id
}
