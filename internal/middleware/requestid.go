// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/tomtom215/gathermap/internal/logging"
)

// RequestIDHeader is read from the client (or a proxy) and echoed back.
const RequestIDHeader = "X-Request-ID"

// validRequestID limits caller-supplied ids to something safe to log and
// forward to the backend.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID puts a request id on the context and the response. A well-formed
// incoming X-Request-ID is reused, anything else is replaced with a UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(requestID) {
			requestID = logging.GenerateRequestID()
		}

		w.Header().Set(RequestIDHeader, requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessLog writes one line per request at info level (debug for health
// checks and metrics scrapes).
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger := logging.Ctx(r.Context())
		event := logger.Info()
		if isProbe(r.URL.Path) {
			event = logger.Debug()
		}
		event.
			Str("method", r.Method).
			Str("route", routePattern(r)).
			Int("status", rec.statusCode).
			Int("bytes", rec.bytes).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("HTTP request")
	})
}

func isProbe(path string) bool {
	switch path {
	case "/metrics", "/api/v1/health/live", "/api/v1/health/ready":
		return true
	}
	return false
}
