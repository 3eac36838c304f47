// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

/*
Package auth authenticates gateway callers and verifies phone numbers.

Credentials are owned by the backend: the gateway forwards a login, and on
success issues its own short-lived JWT carrying the member's mt_idx. The token
is accepted from an Authorization: Bearer header (mobile clients) or from the
session cookie (web and websocket clients).

# Components

  - JWTManager: HS256 token issue/validate with a revocation list for logout
  - Middleware: Authenticate and Optional HTTP middleware storing Claims in
    the request context
  - Verifier: SMS phone verification codes, bcrypt hashed, with expiry,
    attempt limits and resend throttling

# Usage

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	mw := auth.NewMiddleware(jwtManager, auth.CookieOptions{Name: cfg.Security.CookieName})

	r.Group(func(r chi.Router) {
	    r.Use(mw.Authenticate)
	    r.Get("/api/v1/auth/me", h.Me)
	})

Handlers read the caller with ClaimsFromContext.
*/
package auth
