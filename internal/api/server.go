// Package api is the admin surface: catalog and knowledge management,
// conversation inspection, health checks.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"salesbot/internal/catalog"
	"salesbot/internal/config"
	"salesbot/internal/domain"
	"salesbot/internal/kb"
)

const maxBodySize = 10 << 20 // 10MB, CSV imports included

// HealthCheck verifies one external dependency.
type HealthCheck func(ctx context.Context) error

// Server is the admin HTTP server. All /api routes require the bearer token
// when one is configured; health and metrics do not.
type Server struct {
	cfg           config.APIConfig
	conversations domain.ConversationStore
	catalogStore  domain.CatalogStore
	knowledge     domain.KnowledgeStore
	importer      *catalog.Importer
	processor     *kb.Processor
	checks        map[string]HealthCheck
	logger        *slog.Logger

	mux    *http.ServeMux
	server *http.Server
}

type ServerConfig struct {
	Config        config.APIConfig
	Conversations domain.ConversationStore
	Catalog       domain.CatalogStore
	Knowledge     domain.KnowledgeStore
	Importer      *catalog.Importer
	Processor     *kb.Processor
	Checks        map[string]HealthCheck
	Logger        *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		cfg:           cfg.Config,
		conversations: cfg.Conversations,
		catalogStore:  cfg.Catalog,
		knowledge:     cfg.Knowledge,
		importer:      cfg.Importer,
		processor:     cfg.Processor,
		checks:        cfg.Checks,
		logger:        cfg.Logger,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.Handle("GET /api/vehicles", s.auth(s.handleListVehicles))
	s.mux.Handle("POST /api/vehicles", s.auth(s.handleCreateVehicle))
	s.mux.Handle("POST /api/vehicles/import", s.auth(s.handleImportVehicles))
	s.mux.Handle("GET /api/vehicles/{id}", s.auth(s.handleGetVehicle))
	s.mux.Handle("PUT /api/vehicles/{id}", s.auth(s.handleUpdateVehicle))
	s.mux.Handle("DELETE /api/vehicles/{id}", s.auth(s.handleDeleteVehicle))

	s.mux.Handle("GET /api/articles", s.auth(s.handleListArticles))
	s.mux.Handle("POST /api/articles", s.auth(s.handleCreateArticle))
	s.mux.Handle("GET /api/articles/{id}", s.auth(s.handleGetArticle))
	s.mux.Handle("PUT /api/articles/{id}", s.auth(s.handleUpdateArticle))
	s.mux.Handle("DELETE /api/articles/{id}", s.auth(s.handleDeleteArticle))

	s.mux.Handle("GET /api/channels", s.auth(s.handleListChannels))
	s.mux.Handle("GET /api/channels/{id}/messages", s.auth(s.handleChannelMessages))

	s.mux.Handle("GET /api/credentials_check", s.auth(s.handleCredentialsCheck))
}

// Mount attaches an extra handler (webhooks, metrics) to the server mux.
// Must be called before Start.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("admin API started", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// --- middleware and helpers ---

func (s *Server) auth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.cfg.Token {
				writeError(rw, http.StatusUnauthorized, "invalid token")
				return
			}
		}
		r.Body = http.MaxBytesReader(rw, r.Body, maxBodySize)
		next(rw, r)
	})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCredentialsCheck runs every registered dependency check and reports
// per-dependency status. 200 when all pass, 503 otherwise.
func (s *Server) handleCredentialsCheck(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(rw, status, results)
}
