// Package server provides the HTTP API for Acervo.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/farol/acervo/internal/answer"
	"github.com/farol/acervo/internal/config"
	"github.com/farol/acervo/internal/ingest"
	"github.com/farol/acervo/internal/retrieval"
	"github.com/farol/acervo/internal/storage"
	"github.com/farol/acervo/internal/vector"
)

// Server is the HTTP server for the Acervo API.
type Server struct {
	retriever *retrieval.Retriever
	composer  *answer.Composer
	ingestor  *ingest.Ingestor
	storage   storage.Storage
	vectors   *vector.Store
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	retriever *retrieval.Retriever,
	composer *answer.Composer,
	ingestor *ingest.Ingestor,
	store storage.Storage,
	vectors *vector.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		retriever: retriever,
		composer:  composer,
		ingestor:  ingestor,
		storage:   store,
		vectors:   vectors,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/documents", s.handleIngestDocument)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
