package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/practicehub/sheet-engine/internal/config"
	"github.com/practicehub/sheet-engine/internal/hierarchy"
	"github.com/practicehub/sheet-engine/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config    config.ServerConfig
	router    *chi.Mux
	store     *hierarchy.Store
	snapshots storage.SnapshotStore
	events    *EventHub
	auth      *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	authCfg config.AuthConfig,
	store *hierarchy.Store,
	snapshots storage.SnapshotStore,
	events *EventHub,
) *Server {
	s := &Server{
		config:    cfg,
		store:     store,
		snapshots: snapshots,
		events:    events,
		auth:      NewAuthMiddleware(authCfg.APIKeys),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Authenticate)

		r.Get("/sheet", s.handleGetSheet)
		r.Post("/drag", s.handleDrag)
		r.Post("/refetch", s.handleRefetch)
		r.Get("/events", s.handleEvents)

		// Categories
		r.Route("/categories", func(r chi.Router) {
			r.Post("/", s.handleAddCategory)
			r.Put("/order", s.handleReorderCategories)

			r.Route("/{name}", func(r chi.Router) {
				r.Put("/", s.handleRenameCategory)
				r.Delete("/", s.handleDeleteCategory)
				r.Get("/items", s.handleItemsByCategory)

				r.Route("/subcategories", func(r chi.Router) {
					r.Post("/", s.handleAddSubCategory)
					r.Put("/order", s.handleReorderSubCategories)

					r.Route("/{sub}", func(r chi.Router) {
						r.Put("/", s.handleRenameSubCategory)
						r.Delete("/", s.handleDeleteSubCategory)
						r.Post("/move", s.handleMoveSubCategory)
						r.Get("/items", s.handleItemsBySubCategory)
					})
				})
			})
		})

		// Items
		r.Route("/items", func(r chi.Router) {
			r.Post("/", s.handleAddItem)
			r.Put("/order", s.handleReorderItems)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", s.handleUpdateItem)
				r.Delete("/", s.handleDeleteItem)
				r.Post("/move", s.handleMoveItem)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
