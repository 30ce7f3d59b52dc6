package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/waynecorp/project-registry/internal/auth"
	"github.com/waynecorp/project-registry/internal/project"
	"github.com/waynecorp/project-registry/internal/storage"
	"github.com/waynecorp/project-registry/internal/transport/middleware"
	"github.com/waynecorp/project-registry/internal/transport/swagger"
)

// endpoints is the contract surface advertised by the banner and by the
// catch-all 404 response.
var endpoints = map[string]string{
	"GET /health":              "service health and row counts",
	"POST /login":              "verify credentials",
	"GET /projects":            "list projects, optional ?tier= filter",
	"GET /projects/search":     "search projects by ?term=",
	"PUT /projects/{id}":       "edit a project (security admin only)",
	"GET /swagger/index.html":  "interactive API documentation",
}

func RegisterAllRoutes(
	router *chi.Mux,
	store *storage.Store,
	healthHandler *HealthHandler,
	authHandler *auth.Handler,
	projectHandler *project.Handler,
	allowedOrigins string,
	logger *slog.Logger,
) {
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(ensureInitialized(store, logger))

	// API contract served at root, UI under /swagger
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Get("/openapi.json", swagger.SpecJSON(logger))
	router.Handle("/swagger/*", swagger.Handler())

	router.Get("/", bannerHandler)
	router.Get("/health", healthHandler.healthCheckHandler)
	router.Get("/ping", healthHandler.pingHandler)

	router.Post("/login", authHandler.Login)

	router.Route("/projects", func(r chi.Router) {
		r.Get("/", projectHandler.ListProjects)
		r.Get("/search", projectHandler.SearchProjects)
		r.Put("/{id}", projectHandler.UpdateProject)
	})

	router.NotFound(notFoundHandler)
	router.MethodNotAllowed(notFoundHandler)
}

// ensureInitialized runs the lazy one-time bootstrap before the first
// request is served. Normally the server command initializes at startup
// and this is a no-op.
func ensureInitialized(store *storage.Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := store.Initialize(r.Context()); err != nil {
				logger.Error("storage initialization failed", "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error":   "storage failure",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bannerHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "project registry online",
		"endpoints": endpoints,
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   false,
		"error":     "route not found",
		"endpoints": endpoints,
	})
}
