package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/camvanclinic/booking/internal/admin"
	"github.com/camvanclinic/booking/internal/booking"
)

type RouterConfig struct {
	Service  *booking.Service
	Verifier admin.Verifier
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Log      zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Public booking surface
	r.Get("/availability", availabilityHandler(cfg.Service))
	r.Post("/appointments", submitAppointmentHandler(cfg.Service))

	// Admin surface
	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminAuthMiddleware(cfg.Verifier))

		r.Get("/appointments", listAppointmentsHandler(cfg.Service))
		r.Get("/appointments/today", dayAppointmentsHandler(cfg.Service, 0))
		r.Get("/appointments/tomorrow", dayAppointmentsHandler(cfg.Service, 1))
		r.Get("/appointments/by-date", appointmentsByDateHandler(cfg.Service))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
		r.Patch("/appointments/{id}/status", updateStatusHandler(cfg.Service))
		r.Patch("/appointments/{id}/note", updateNoteHandler(cfg.Service))
		r.Patch("/appointments/{id}/info", updateInfoHandler(cfg.Service))
		r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Service))

		r.Get("/stats", statsHandler(cfg.Service))

		r.Get("/blocked-slots", listBlockedSlotsHandler(cfg.Service))
		r.Post("/blocked-slots", addBlockedSlotHandler(cfg.Service))
		r.Patch("/blocked-slots/{id}", updateBlockedSlotHandler(cfg.Service))
		r.Delete("/blocked-slots/{id}", deleteBlockedSlotHandler(cfg.Service))
	})

	return r
}
