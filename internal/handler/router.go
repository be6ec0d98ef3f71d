package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Log            *slog.Logger
	Events         EventQueries
	Booking        Booker
	Requests       RequestObserver
	Metrics        http.Handler
	JWTSecret      []byte
	AllowedOrigins []string
}

// NewRouter builds the HTTP API: public health and metrics endpoints plus the
// authenticated event routes.
func NewRouter(cfg RouterConfig) http.Handler {
	h := NewEventHandler(cfg.Log, cfg.Events, cfg.Booking)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(cfg.Log, cfg.Requests))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	r.Get("/health", HealthCheck)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(Authenticator(cfg.Log, cfg.JWTSecret))
		h.Routes(r)
	})

	return r
}
