// Package api provides the HTTP API server and handlers for the ReadAlong
// application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/readalongapp/readalong-server/internal/library"
	"github.com/readalongapp/readalong-server/internal/session"
	"github.com/readalongapp/readalong-server/internal/sse"
	"github.com/readalongapp/readalong-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	library    *library.Service
	sessions   *session.Service
	sseManager *sse.Manager
	sseHandler *sse.Handler
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, lib *library.Service, sessions *session.Service, sseManager *sse.Manager, sseHandler *sse.Handler, logger *slog.Logger) *Server {
	s := &Server{
		store:      st,
		library:    lib,
		sessions:   sessions,
		sseManager: sseManager,
		sseHandler: sseHandler,
		router:     chi.NewRouter(),
		logger:     logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("ReadAlong API", "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack. The server runs on a
// local network and browser clients connect from arbitrary origins, so CORS
// is permissive.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes. JSON endpoints go through huma;
// the SSE stream and audio bytes are plain chi handlers.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerDocumentRoutes()
	s.registerSessionRoutes()
	s.registerSettingsRoutes()

	s.router.Get("/api/v1/stream", s.sseHandler.ServeHTTP)
	s.router.Get("/api/v1/sessions/{id}/paragraphs/{index}/audio", s.handleParagraphAudio)
}
