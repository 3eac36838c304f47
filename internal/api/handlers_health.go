// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"context"
	"net/http"
	"time"
)

// readinessTimeout bounds the backend ping of a readiness probe.
const readinessTimeout = 3 * time.Second

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 OK only if the backend answers and its circuit breaker is not
// open, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ready":         true,
		"backend":       "unknown",
		"circuit_state": "unknown",
		"mock_fallback": h.config.Backend.MockFallback,
		"websocket":     h.hub != nil,
	}

	if h.hub != nil {
		status["websocket_clients"] = h.hub.GetClientCount()
	}

	if h.readiness == nil {
		respondJSON(w, r, http.StatusOK, status)
		return
	}

	state := h.readiness.State()
	status["circuit_state"] = state

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.readiness.Ping(ctx); err != nil {
		status["ready"] = false
		status["backend"] = "unreachable"
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Backend not ready", status)
		return
	}

	status["backend"] = "ok"
	if state == "open" {
		status["ready"] = false
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Backend circuit breaker open", status)
		return
	}
	respondJSON(w, r, http.StatusOK, status)
}
