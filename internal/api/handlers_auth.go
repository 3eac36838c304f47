// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/gathermap/internal/auth"
	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/models"
	"github.com/tomtom215/gathermap/internal/validation"
)

// LoginResponse is returned by a successful login. Token is also set as the
// session cookie; native clients send it back as a bearer token.
type LoginResponse struct {
	Member    models.Member `json:"member"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// SessionInfo describes the authenticated caller.
type SessionInfo struct {
	MtIdx     models.Idx `json:"mt_idx"`
	MtID      string     `json:"mt_id"`
	Name      string     `json:"name"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Login checks credentials with the backend and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBody[models.LoginRequest](w, r)
	if !ok {
		return
	}

	var member models.Member
	resp, err := h.callInto(r.Context(), backend.Request{
		Operation: backend.OpLogin,
		Method:    http.MethodPost,
		Path:      backend.LoginPath,
		Body:      req,
	}, &member)
	if err != nil {
		if be, ok := backend.AsError(err); ok && be.IsClientError() {
			h.audit.LoginFailed(r, req.MtID, be.Status)
		}
		h.respondBackendError(w, r, err)
		return
	}
	if member.MtIdx <= 0 {
		respondError(w, r, http.StatusBadGateway, ErrCodeBackend, "Backend returned no member", nil)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(&member)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to create session", err)
		return
	}
	auth.SetSessionCookie(w, h.cookie, token, expiresAt)

	logging.Ctx(r.Context()).Info().Int64("mt_idx", int64(member.MtIdx)).Msg("Member logged in")
	h.audit.LoginSucceeded(r, member.MtIdx)
	respondData(w, r, http.StatusOK, LoginResponse{Member: member, Token: token, ExpiresAt: expiresAt}, resp)
}

// Logout revokes the current token, if any, and clears the cookie. It
// succeeds for anonymous callers too.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		h.jwtManager.Revoke(claims)
		h.audit.LoggedOut(r, claims.MtIdx)
	}
	auth.ClearSessionCookie(w, h.cookie)
	respondJSON(w, r, http.StatusOK, map[string]bool{"logged_out": true})
}

// Me returns the session of the caller.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	info := SessionInfo{MtIdx: claims.MtIdx, MtID: claims.MtID, Name: claims.Name}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	respondJSON(w, r, http.StatusOK, info)
}

// Join registers a new member. When phone verification is required the
// number must have passed VerifyConfirm first.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBody[models.JoinRequest](w, r)
	if !ok {
		return
	}
	req.MtHp = validation.NormalizePhone(req.MtHp)

	if h.config.Security.RequirePhoneVerification && !h.verifier.IsVerified(req.MtHp) {
		respondError(w, r, http.StatusForbidden, ErrCodeVerification, auth.ErrPhoneNotVerified.Error(), nil)
		return
	}

	if _, ok := h.forward(w, r, http.StatusCreated, backend.Request{
		Operation: backend.OpJoin,
		Method:    http.MethodPost,
		Path:      backend.JoinPath,
		Body:      req,
	}); !ok {
		return
	}
	h.verifier.Consume(req.MtHp)
	h.audit.SignedUp(r, req.MtHp)
}

// VerifySend texts a verification code to a phone number.
func (h *Handler) VerifySend(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBody[models.VerifySendRequest](w, r)
	if !ok {
		return
	}

	expiresAt, err := h.verifier.Send(r.Context(), validation.NormalizePhone(req.Phone))
	if err != nil {
		if errors.Is(err, auth.ErrResendTooSoon) {
			respondError(w, r, http.StatusTooManyRequests, ErrCodeRateLimited, "A code was sent recently, please wait before requesting another", nil)
			return
		}
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Failed to send verification code", err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]interface{}{"sent": true, "expires_at": expiresAt})
}

// VerifyConfirm checks a verification code.
func (h *Handler) VerifyConfirm(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBody[models.VerifyConfirmRequest](w, r)
	if !ok {
		return
	}

	phone := validation.NormalizePhone(req.Phone)
	err := h.verifier.Confirm(r.Context(), phone, req.Code)
	switch {
	case err == nil:
		respondJSON(w, r, http.StatusOK, map[string]bool{"verified": true})
	case errors.Is(err, auth.ErrTooManyAttempts):
		h.audit.VerificationFailed(r, phone, "too_many_attempts")
		respondError(w, r, http.StatusTooManyRequests, ErrCodeVerification, "Too many attempts, request a new code", nil)
	case errors.Is(err, auth.ErrCodeExpired), errors.Is(err, auth.ErrCodeMismatch):
		h.audit.VerificationFailed(r, phone, err.Error())
		respondError(w, r, http.StatusBadRequest, ErrCodeVerification, err.Error(), nil)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Verification failed", err)
	}
}
