package router

import (
	"net/http"

	"orderscan-api/internal/handler"
	"orderscan-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	SessionHandler *handler.SessionHandler
	OrderHandler   *handler.OrderHandler
	CatalogHandler *handler.CatalogHandler
	EventsHandler  *handler.EventsHandler
	AdminHandler   *handler.AdminHandler
	AuthHandler    *handler.AuthHandler
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *zap.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	if cfg.Logger != nil {
		r.Use(middleware.NewRequestLogger(cfg.Logger))
		r.Use(middleware.NewRecovery(cfg.Logger))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Token", "X-Login-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		// Apply auth middleware only to this group
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		// API v1 routes
		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			// Auth endpoints
			if cfg.AuthHandler != nil {
				r.Route("/auth", func(r chi.Router) {
					r.Post("/token", cfg.AuthHandler.GenerateToken)
					r.Post("/revoke", cfg.AuthHandler.RevokeToken)
					r.Post("/refresh", cfg.AuthHandler.RefreshToken)
				})
			}

			// Scan session endpoints
			if cfg.SessionHandler != nil {
				r.Route("/sessions", func(r chi.Router) {
					r.Post("/", cfg.SessionHandler.CreateSession)
					r.Route("/{session_id}", func(r chi.Router) {
						r.Get("/", cfg.SessionHandler.GetSession)
						r.Delete("/", cfg.SessionHandler.CloseSession)
						r.Post("/keys", cfg.SessionHandler.FeedKeys)
						r.Post("/scan", cfg.SessionHandler.Scan)
						r.Put("/search", cfg.SessionHandler.SetSearch)
						r.Put("/mode", cfg.SessionHandler.SetMode)
					})
				})
			}

			// Order endpoints
			if cfg.OrderHandler != nil {
				r.Route("/orders/{customer_id}", func(r chi.Router) {
					r.Get("/", cfg.OrderHandler.GetOrder)
					r.Post("/clear", cfg.OrderHandler.Clear)
					r.Route("/items/{product_id}", func(r chi.Router) {
						r.Post("/toggle", cfg.OrderHandler.Toggle)
						r.Put("/quantity", cfg.OrderHandler.SetQuantity)
						r.Post("/increment", cfg.OrderHandler.Increment)
						r.Post("/decrement", cfg.OrderHandler.Decrement)
					})
				})
			}

			// Catalog endpoints
			if cfg.CatalogHandler != nil {
				r.Route("/catalog", func(r chi.Router) {
					r.Get("/lookup", cfg.CatalogHandler.Lookup)
					r.Get("/{brand_id}/products", cfg.CatalogHandler.ListProducts)
				})
			}

			// Scan event log
			if cfg.EventsHandler != nil {
				r.Get("/events", cfg.EventsHandler.ListEvents)
			}

			// Admin endpoints
			if cfg.AdminHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", cfg.AdminHandler.GetStats)
					r.Get("/health", cfg.AdminHandler.GetHealth)
					r.Post("/login", cfg.AdminHandler.Login)
					r.Post("/events/flush", cfg.AdminHandler.FlushEvents)
					if cfg.CatalogHandler != nil {
						r.Post("/catalog/import", cfg.CatalogHandler.Import)
					}
				})
			}
		})
	})

	return r
}
