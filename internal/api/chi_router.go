// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tgrant/auditlog/internal/auth"
	"github.com/tgrant/auditlog/internal/config"
	"github.com/tgrant/auditlog/internal/middleware"
)

// Router assembles the Chi route tree from the handler and middleware.
type Router struct {
	handler *Handler
	authMW  *auth.Middleware
	cfg     *config.ServerConfig
}

// NewRouter creates a router for the given handler and auth middleware.
func NewRouter(handler *Handler, authMW *auth.Middleware, cfg *config.ServerConfig) *Router {
	return &Router{
		handler: handler,
		authMW:  authMW,
		cfg:     cfg,
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler, so middleware stays testable as plain
// functions.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// rateLimit returns a per-IP limiter, or a no-op when requests <= 0.
func rateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.LimitByIP(requests, window)
}

// Setup builds the full route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	r.NotFound(router.handler.NotFound)
	r.MethodNotAllowed(router.handler.MethodNotAllowed)

	window := router.cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	// Public endpoints.
	r.Group(func(r chi.Router) {
		r.Use(rateLimit(router.cfg.RateLimitReqs, window))
		r.Get("/ping", router.handler.Ping)
		r.Get("/healthz", router.handler.Health)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})

	// Login gets its own tighter limit since each attempt costs a bcrypt
	// comparison.
	r.Group(func(r chi.Router) {
		r.Use(rateLimit(router.cfg.LoginRateLimitReqs, window))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Post("/login", router.handler.Login)
	})

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(rateLimit(router.cfg.RateLimitReqs, window))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(middleware.Compression))
		r.Use(router.authMW.Authenticate)

		r.Get("/auth", router.handler.AuthCheck)
		r.Post("/event", router.handler.SubmitEvent)
		r.Get("/event", router.handler.QueryEvents)
	})

	return r
}
