package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"github.com/healthfirst/provider-scheduling/internal/availability"
	"github.com/healthfirst/provider-scheduling/internal/config"
)

type RouterConfig struct {
	Service *availability.Service
	Search  *availability.SearchEngine
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Cfg     config.Config
	Version string
}

func NewRouter(rc RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RateLimitMiddleware(rc.Cfg.RateLimitRPS, rc.Cfg.RateLimitBurst))

	// Health endpoints
	health := NewHealthHandler(rc.PgPool, rc.Redis, rc.Cfg.Env, rc.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability endpoints
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/provider/availability", createAvailabilityHandler(rc.Service))
		r.Get("/provider/{provider_id}/availability", getProviderAvailabilityHandler(rc.Service))
		r.Put("/provider/availability/{slot_id}", updateSlotHandler(rc.Service))
		r.Delete("/provider/availability/{slot_id}", deleteSlotHandler(rc.Service))
		r.Get("/availability/search", searchAvailabilityHandler(rc.Search))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: rc.Cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	})

	return c.Handler(r)
}
