// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/models"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

// Error codes written by Authenticate. They match the api package codes.
const (
	codeUnauthorized = "UNAUTHORIZED"
	codeTokenExpired = "TOKEN_EXPIRED"
)

var errMissingToken = errors.New("missing token")

// Middleware authenticates requests with gateway JWTs.
type Middleware struct {
	jwtManager *JWTManager
	cookie     CookieOptions
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(jwtManager *JWTManager, cookie CookieOptions) *Middleware {
	return &Middleware{
		jwtManager: jwtManager,
		cookie:     cookie,
	}
}

// Authenticate is middleware that enforces authentication
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.claimsFromRequest(r)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Authentication failed")
			writeUnauthorized(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// Optional attaches claims when a valid token is present and never rejects.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, err := m.claimsFromRequest(r); err == nil {
			r = r.WithContext(withClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) claimsFromRequest(r *http.Request) (*Claims, error) {
	token, err := m.extractToken(r)
	if err != nil {
		return nil, err
	}
	return m.jwtManager.ValidateToken(token)
}

// extractToken reads the Authorization header, falling back to the cookie.
func (m *Middleware) extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(m.cookie.name())
		if err != nil || cookie.Value == "" {
			return "", errMissingToken
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("invalid authorization header")
	}

	return parts[1], nil
}

func withClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsContextKey, claims)
	return logging.ContextWithMember(ctx, int64(claims.MtIdx))
}

// ClaimsFromContext returns the authenticated caller, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// ContextWithClaims attaches claims to ctx. Used by tests and by services
// acting on behalf of a member.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return withClaims(ctx, claims)
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := codeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, errMissingToken):
	case isExpired(err):
		code, msg = codeTokenExpired, "Session expired, please log in again"
	default:
		msg = "Invalid or revoked token"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Success: false,
		Error: &models.APIError{
			Code:      code,
			Message:   msg,
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
		Meta: &models.Meta{
			RequestID: logging.RequestIDFromContext(r.Context()),
			Timestamp: time.Now().UTC(),
		},
	})
}
