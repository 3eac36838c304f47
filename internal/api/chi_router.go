// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/gathermap/internal/auth"
	"github.com/tomtom215/gathermap/internal/config"
	"github.com/tomtom215/gathermap/internal/middleware"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. Rate limits and CORS come from cfg.Security.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, cfg *config.Config) *Router {
	return &Router{
		handler:       handler,
		auth:          authMiddleware,
		chiMiddleware: NewChiMiddleware(ChiMiddlewareConfigFrom(&cfg.Security)),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order. PrometheusMetrics
	// reads the matched route pattern after the handler has run.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	// ========================
	// Health
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// ========================
	// Authentication
	// ========================
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.With(router.chiMiddleware.RateLimitCustom(RateLimitLogin)).Post("/login", router.handler.Login)
		r.With(router.auth.Optional).Post("/logout", router.handler.Logout)
		r.With(router.auth.Authenticate).Get("/me", router.handler.Me)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitAuth))
			r.Post("/join", router.handler.Join)
			r.Post("/verify/confirm", router.handler.VerifyConfirm)
		})
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitSMS)).Post("/verify/send", router.handler.VerifySend)
	})

	// ========================
	// Authenticated API
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(router.auth.Authenticate)

		r.Route("/members", func(r chi.Router) {
			r.Get("/me", router.handler.GetMe)
			r.Put("/me", router.handler.UpdateMe)
			r.Put("/me/push-token", router.handler.UpdatePushToken)
			r.Get("/{mt_idx}/locations", router.handler.LocationHistory)
		})

		r.With(router.chiMiddleware.RateLimitCustom(RateLimitLocation)).Post("/locations", router.handler.PostLocation)

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", router.handler.ListGroups)
			r.Post("/", router.handler.CreateGroup)
			r.Post("/join", router.handler.JoinGroup)

			r.Route("/{sgt_idx}", func(r chi.Router) {
				r.Get("/", router.handler.GetGroup)
				r.Put("/", router.handler.UpdateGroup)
				r.Delete("/", router.handler.DeleteGroup)

				r.Get("/members", router.handler.ListGroupMembers)
				r.Delete("/members/me", router.handler.LeaveGroup)
				r.Delete("/members/{sgdt_idx}", router.handler.KickMember)
				r.Put("/members/{sgdt_idx}/role", router.handler.SetMemberRole)

				r.Get("/locations/latest", router.handler.LatestLocations)

				r.Get("/schedules", router.handler.ListSchedules)
				r.Post("/schedules", router.handler.CreateSchedule)
				r.Put("/schedules/{sst_idx}", router.handler.UpdateSchedule)
				r.Delete("/schedules/{sst_idx}", router.handler.DeleteSchedule)

				r.Post("/notifications", router.handler.SendGroupNotification)
			})
		})

		r.Get("/notifications", router.handler.ListNotifications)
		r.Put("/notifications/{plt_idx}/read", router.handler.MarkNotificationRead)

		r.Get("/geocode/reverse", router.handler.ReverseGeocode)
	})

	// ========================
	// WebSocket
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket))
		r.Use(router.auth.Authenticate)
		r.Get("/ws", router.handler.WebSocket)
	})

	return r
}
