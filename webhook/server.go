package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/chatforge/chatforge/core/buildinfo"
	coreconfig "github.com/chatforge/chatforge/core/config"
	"github.com/chatforge/chatforge/core/logger"
	"github.com/chatforge/chatforge/tenant"
)

const maxUpdateBody = 1 << 20

// Server exposes the shared inbound surface: one webhook route for all
// tenant bots plus liveness and per-tenant introspection endpoints.
type Server struct {
	cfg        coreconfig.ServerConfig
	dispatcher *Dispatcher
	tenants    *tenant.Store
	httpSrv    *http.Server
	started    time.Time
}

// NewServer wires the HTTP surface over the dispatcher.
func NewServer(cfg coreconfig.ServerConfig, d *Dispatcher, tenants *tenant.Store) *Server {
	s := &Server{
		cfg:        cfg,
		dispatcher: d,
		tenants:    tenants,
		started:    time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/{username}", s.handleUpdate)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /webhook-info/{username}", s.handleWebhookInfo)

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Listen, cfg.Port),
		Handler:           withRecover(withAccessLog(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	logger.Info(context.Background(), "webhook", "server.start",
		slog.String("listen", s.httpSrv.Addr),
		slog.String("public_url", s.cfg.PublicBaseURL),
	)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// WebhookURL returns the externally registered endpoint for one tenant.
func (s *Server) WebhookURL(username string) string {
	return fmt.Sprintf("%s/webhook/%s", s.cfg.PublicBaseURL, username)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	var upd tele.Update
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBody))
	if err := dec.Decode(&upd); err != nil {
		// Undecodable bodies are acknowledged, not retried.
		logger.Warn(r.Context(), "webhook", "update.undecodable",
			slog.String("tenant", username),
			slog.String("err", err.Error()),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	outcome := s.dispatcher.Handle(r.Context(), username, upd)
	w.WriteHeader(outcome.Status)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        buildinfo.Version,
		"commit":         buildinfo.Commit,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleWebhookInfo(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	t, err := s.tenants.ByUsername(r.Context(), username)
	if errors.Is(err, tenant.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "tenant not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "lookup failed"})
		return
	}
	info := map[string]any{
		"tenant":    t.Username,
		"active":    t.IsActive,
		"tier":      string(t.Tier),
		"expected":  s.WebhookURL(t.Username),
		"registered": t.WebhookURL.String,
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// withRecover converts handler panics into 500s instead of crashing the
// process; one broken tenant must not take the shared surface down.
func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(r.Context(), "webhook", "panic",
					slog.Any("err", rec),
					slog.String("cause", string(debug.Stack())),
				)
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug(r.Context(), "webhook", "http.request",
			slog.String("op", r.Method+" "+r.URL.Path),
			slog.Int("http_code", rec.status),
			slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
		)
	})
}
