// Package web provides the HTTP API behind the import and export dialogs.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/exchange/internal/config"
	"github.com/JonMunkholm/exchange/internal/exchange"
	"github.com/JonMunkholm/exchange/internal/store"
	"github.com/JonMunkholm/exchange/internal/web/middleware"
)

// Server is the HTTP server for the exchange dialogs.
type Server struct {
	cfg      *config.Config
	records  store.Records
	sessions *Sessions
	limiter  *JobLimiter
	router   *chi.Mux
	server   *http.Server
}

// NewServer wires the routes over records. Import sessions build their
// workflows from the registered entities.
func NewServer(cfg *config.Config, records store.Records) *Server {
	s := &Server{
		cfg:     cfg,
		records: records,
		limiter: NewJobLimiter(cfg.Exchange.MaxConcurrent, cfg.Exchange.MaxWaitTime),
		router:  chi.NewRouter(),
	}
	s.sessions = NewSessions(cfg.Exchange.SessionTTL, s.newWorkflow)
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// newWorkflow builds the import workflow for one session of entity.
func (s *Server) newWorkflow(e exchange.Entity) *exchange.Workflow {
	importer := exchange.Importer{
		Parser: exchange.Parser{Delimiter: s.cfg.Exchange.DelimiterRune()},
		Logger: slog.Default().With("entity", e.Key),
	}
	return exchange.NewWorkflow(e.Import, store.Handler(s.records, e.Key),
		exchange.WithPreviewRows(s.cfg.Exchange.PreviewRows),
		exchange.WithMaxErrors(s.cfg.Exchange.MaxErrors),
		exchange.WithImporter(importer),
		exchange.WithLogger(importer.Logger),
	)
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/entities", s.handleListEntities)
		r.Get("/export/{entity}", s.handleExport)
		r.Get("/template/{entity}", s.handleTemplate)
		r.Get("/status", s.handleStatus)

		r.Post("/import/{entity}", s.handleOpenSession)
		r.Route("/import/session/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionStatus)
			r.Delete("/", s.handleCloseSession)
			r.Post("/file", s.handleSelectFile)
			r.Post("/preview", s.handlePreview)
			r.Post("/commit", s.handleCommit)
			r.Post("/discard", s.handleDiscard)
		})
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunJanitor expires idle import sessions until ctx is cancelled.
func (s *Server) RunJanitor(ctx context.Context) {
	interval := s.cfg.Exchange.SessionTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	s.sessions.Run(ctx, interval)
}

// Shutdown stops accepting requests, then waits for running previews and
// commits to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
