// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package auth

import (
	"net/http"
	"time"
)

// DefaultCookieName is used when the configuration leaves it empty.
const DefaultCookieName = "token"

// CookieOptions controls the session cookie attributes.
type CookieOptions struct {
	Name   string
	Secure bool
}

func (o CookieOptions) name() string {
	if o.Name == "" {
		return DefaultCookieName
	}
	return o.Name
}

// SetSessionCookie sets the session cookie carrying token until expiresAt.
func SetSessionCookie(w http.ResponseWriter, opts CookieOptions, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.name(),
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie clears the session cookie.
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
