// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"context"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/gathermap/internal/audit"
	"github.com/tomtom215/gathermap/internal/auth"
	"github.com/tomtom215/gathermap/internal/authz"
	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/config"
	"github.com/tomtom215/gathermap/internal/geocode"
	"github.com/tomtom215/gathermap/internal/models"
	"github.com/tomtom215/gathermap/internal/notify"
	ws "github.com/tomtom215/gathermap/internal/websocket"
)

// ReadinessChecker reports whether the backend can take traffic.
// backend.CircuitBreakerClient implements it.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
	State() string
}

// Geocoder resolves coordinates to an address. geocode.Service implements it.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (*geocode.Result, error)
}

// Publisher fans messages out to group rooms. websocket.Hub implements it.
type Publisher interface {
	Publish(sgtIdx models.Idx, messageType string, data interface{}) bool
	Leave(sgtIdx, mtIdx models.Idx)
}

// Dependencies are the collaborators a Handler forwards to. Geocoder,
// Readiness, Hub, Publisher and Audit are optional. Publisher defaults to Hub.
type Dependencies struct {
	Backend     backend.Doer
	Readiness   ReadinessChecker
	Memberships *backend.Memberships
	Enforcer    *authz.Enforcer
	JWT         *auth.JWTManager
	Verifier    *auth.Verifier
	Geocoder    Geocoder
	Pusher      notify.Pusher
	Hub         *ws.Hub
	Publisher   Publisher
	Audit       *audit.Logger
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files by resource:
//   - handlers_health.go: liveness and readiness
//   - handlers_auth.go: login, logout, signup and phone verification
//   - handlers_members.go: the caller's profile and push token
//   - handlers_groups.go: groups and their members
//   - handlers_locations.go: location posts and history
//   - handlers_schedules.go: group schedules
//   - handlers_notifications.go: inbox and group notifications
//   - handlers_geocode.go: reverse geocoding
//   - handlers_websocket.go: live updates
type Handler struct {
	config      *config.Config
	backend     backend.Doer
	readiness   ReadinessChecker
	memberships *backend.Memberships
	enforcer    *authz.Enforcer
	jwtManager  *auth.JWTManager
	cookie      auth.CookieOptions
	verifier    *auth.Verifier
	geocoder    Geocoder
	pusher      notify.Pusher
	publisher   Publisher
	hub         *ws.Hub
	upgrader    *gorillaws.Upgrader
	audit       *audit.Logger
	startTime   time.Time
}

// NewHandler creates the API handler.
//
// Example:
//
//	handler := api.NewHandler(cfg, api.Dependencies{Backend: breaker, ...})
//	router := api.NewRouter(handler, authMiddleware, cfg)
//	srv := &http.Server{Handler: router.SetupChi()}
func NewHandler(cfg *config.Config, deps Dependencies) *Handler {
	h := &Handler{
		config:      cfg,
		backend:     deps.Backend,
		readiness:   deps.Readiness,
		memberships: deps.Memberships,
		enforcer:    deps.Enforcer,
		jwtManager:  deps.JWT,
		cookie: auth.CookieOptions{
			Name:   cfg.Security.CookieName,
			Secure: cfg.Security.CookieSecure,
		},
		verifier:  deps.Verifier,
		geocoder:  deps.Geocoder,
		pusher:    deps.Pusher,
		audit:     deps.Audit,
		startTime: time.Now(),
	}

	// A typed nil *ws.Hub must not become a non-nil Publisher.
	if deps.Hub != nil {
		h.hub = deps.Hub
		h.publisher = deps.Hub
		h.upgrader = ws.NewUpgrader(cfg.Security.CORSOrigins)
		h.upgrader.HandshakeTimeout = 10 * time.Second
	}
	if deps.Publisher != nil {
		h.publisher = deps.Publisher
	}
	return h
}

// publish sends a room message when live updates are enabled.
func (h *Handler) publish(sgtIdx models.Idx, messageType string, data interface{}) {
	if h.publisher != nil {
		h.publisher.Publish(sgtIdx, messageType, data)
	}
}

// leaveRoom unsubscribes a departed member from a group room.
func (h *Handler) leaveRoom(sgtIdx, mtIdx models.Idx) {
	if h.publisher != nil {
		h.publisher.Leave(sgtIdx, mtIdx)
	}
}
