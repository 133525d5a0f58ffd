// Package router wires handlers, guards and server-wide middleware into
// the chi route tree.
package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/atelier-studio/atelier-api/app/logger"
	"github.com/atelier-studio/atelier-api/config"
	"github.com/atelier-studio/atelier-api/internal/api"
	"github.com/atelier-studio/atelier-api/internal/api/auth"
	"github.com/atelier-studio/atelier-api/internal/api/design"
	"github.com/atelier-studio/atelier-api/internal/api/wishlist"
)

// Version reported by the health endpoint; overridable at link time.
var Version = "1.0.0"

// Deps contains everything the route tree needs.
type Deps struct {
	Config          *config.Config
	Logger          *slog.Logger
	AuthService     auth.AuthService
	AuthHandler     *auth.Handler
	DesignHandler   *design.Handler
	WishlistHandler *wishlist.Handler
	MetricsHandler  http.Handler
	RequestMetrics  func(next http.Handler) http.Handler
}

// Setup builds the full route tree.
func Setup(deps *Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.StructuredLogger(deps.Logger))
	r.Use(recoverer(deps.Logger, deps.Config.IsProduction()))
	r.Use(securityHeaders)
	r.Use(middleware.Timeout(deps.Config.Server.Timeout))
	if deps.RequestMetrics != nil {
		r.Use(deps.RequestMetrics)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httprate.Limit(
		deps.Config.RateLimit.MaxRequests,
		deps.Config.RateLimitWindow(),
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			api.ErrorResponse(w, r, http.StatusTooManyRequests, "Too many requests, please try again later")
		}),
	))

	r.Get("/health", healthHandler)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authenticate := auth.Authenticate(deps.AuthService, deps.Logger)
	requireAdmin := auth.RequireAdmin(deps.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.AuthHandler.Register)
			r.Post("/login", deps.AuthHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Get("/profile", deps.AuthHandler.Profile)
			})
		})

		r.Route("/designs", func(r chi.Router) {
			r.Get("/", deps.DesignHandler.List)
			r.Get("/{id}", deps.DesignHandler.Get)
		})

		r.Route("/admin/designs", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(requireAdmin)
			r.Get("/", deps.DesignHandler.List)
			r.Post("/", deps.DesignHandler.Create)
			r.Put("/{id}", deps.DesignHandler.Update)
			r.Delete("/{id}", deps.DesignHandler.Delete)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/", deps.WishlistHandler.List)
			r.Post("/{designId}", deps.WishlistHandler.Add)
			r.Delete("/{designId}", deps.WishlistHandler.Remove)
			r.Get("/{designId}/status", deps.WishlistHandler.Check)
		})
	})

	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(notFoundHandler)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// notFoundHandler echoes method and path so misrouted clients can see
// what they actually sent.
func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusNotFound, map[string]string{
		"error":  "Route not found",
		"method": r.Method,
		"path":   r.URL.Path,
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// recoverer turns panics into structured 500s; the stack is only echoed
// outside production.
func recoverer(log *slog.Logger, production bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					stack := string(debug.Stack())
					log.ErrorContext(r.Context(), "Panic recovered",
						slog.Any("panic", rec),
						slog.String("path", r.URL.Path),
						slog.String("stack", stack))
					if production {
						api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
						return
					}
					api.ErrorResponseWithStack(w, r, http.StatusInternalServerError,
						fmt.Sprintf("Internal server error: %v", rec), stack)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
