// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/tomtom215/gathermap/internal/auth"
	"github.com/tomtom215/gathermap/internal/authz"
	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/models"
	"github.com/tomtom215/gathermap/internal/validation"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body into a T and validates it. On failure the
// error response has been written and ok is false.
func decodeBody[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "Request body exceeds 1MB", nil)
			return nil, false
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read request body", err)
		return nil, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Request body is required", nil)
		return nil, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body", err)
		return nil, false
	}

	if !validateRequest(w, r, &v) {
		return nil, false
	}
	return &v, true
}

// validateRequest runs struct validation and writes the VALIDATION_ERROR
// response when it fails.
func validateRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return true
	}
	apiErr := verr.ToAPIError()
	NewResponseWriter(w, r).ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
	return false
}

// pathIdx parses a positive identifier from the chi URL parameter name.
func pathIdx(w http.ResponseWriter, r *http.Request, name string) (models.Idx, bool) {
	idx, err := models.ParseIdx(chi.URLParam(r, name))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid "+name, nil)
		return 0, false
	}
	return idx, true
}

// requireClaims returns the authenticated caller. Routes using it sit behind
// auth.Middleware.Authenticate, so a miss is a wiring bug.
func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required", nil)
		return nil, false
	}
	return claims, true
}

// call runs req against the backend. When the backend is unavailable and
// mock fallback is on, the canned payload for the operation is returned
// instead, marked Mock.
func (h *Handler) call(ctx context.Context, req backend.Request) (*backend.Response, error) {
	resp, err := h.backend.Do(ctx, req)
	if err == nil || !h.config.Backend.MockFallback || !backend.IsUnavailable(err) {
		return resp, err
	}

	mock, ok := backend.Mock(req)
	if !ok {
		return nil, err
	}
	logging.Ctx(ctx).Warn().Err(err).Str("operation", req.Operation).Msg("Backend unavailable, serving mock response")
	return mock, nil
}

// forward calls the backend and writes its payload with status. It returns
// the backend response so handlers can act on the result.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request, status int, req backend.Request) (*backend.Response, bool) {
	resp, err := h.call(r.Context(), req)
	if err != nil {
		h.respondBackendError(w, r, err)
		return nil, false
	}
	h.respondPayload(w, r, status, resp)
	return resp, true
}

// respondPayload writes the raw backend payload inside the envelope.
func (h *Handler) respondPayload(w http.ResponseWriter, r *http.Request, status int, resp *backend.Response) {
	meta := &models.Meta{Mock: resp.Mock}

	var data interface{}
	if len(resp.Data) > 0 {
		data = json.RawMessage(resp.Data)
		if parsed := gjson.ParseBytes(resp.Data); parsed.IsArray() {
			n := len(parsed.Array())
			meta.Count = &n
		}
	}
	NewResponseWriter(w, r).SuccessWithMeta(status, data, meta)
}

// respondBackendError maps a failed backend call to the client response:
// backend 4xx keep their status, missing resources are 404 and anything that
// means the backend could not answer is 503.
func (h *Handler) respondBackendError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, backend.ErrNotMember) {
		respondError(w, r, http.StatusForbidden, ErrCodeForbidden, "Not a member of this group", nil)
		return
	}

	if be, ok := backend.AsError(err); ok && be.IsClientError() {
		if be.Status == http.StatusNotFound {
			respondError(w, r, http.StatusNotFound, ErrCodeNotFound, backendMessage(be, "Resource not found"), nil)
			return
		}
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Backend rejected request")
		respondError(w, r, be.Status, ErrCodeBackend, backendMessage(be, http.StatusText(be.Status)), nil)
		return
	}

	switch {
	case errors.Is(err, backend.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Resource not found", nil)
	case backend.IsUnavailable(err), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Backend service unavailable", err)
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", err)
	}
}

func backendMessage(be *backend.Error, fallback string) string {
	if msg := strings.TrimSpace(be.Message); msg != "" {
		return msg
	}
	return fallback
}

// groupAccess is the caller's standing in the group named by {sgt_idx}.
type groupAccess struct {
	claims *auth.Claims
	sgtIdx models.Idx
	member *models.GroupMember
	role   string
}

// authorizeGroup resolves the caller's membership in {sgt_idx} and checks
// that their role may act on object. On failure the response has been
// written and ok is false.
func (h *Handler) authorizeGroup(w http.ResponseWriter, r *http.Request, object, action string) (*groupAccess, bool) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return nil, false
	}
	sgtIdx, ok := pathIdx(w, r, "sgt_idx")
	if !ok {
		return nil, false
	}
	return h.authorizeIn(w, r, claims, sgtIdx, object, action)
}

// authorizeIn is authorizeGroup for a group id that does not come from the path.
func (h *Handler) authorizeIn(w http.ResponseWriter, r *http.Request, claims *auth.Claims, sgtIdx models.Idx, object, action string) (*groupAccess, bool) {
	gm, err := h.memberships.Membership(r.Context(), claims.MtIdx, sgtIdx)
	if err != nil {
		h.respondBackendError(w, r, err)
		return nil, false
	}

	if err := h.enforcer.Authorize(gm, object, action); err != nil {
		if errors.Is(err, authz.ErrForbidden) {
			logging.Ctx(r.Context()).Info().
				Int64("sgt_idx", int64(sgtIdx)).
				Str("role", authz.RoleOf(gm)).
				Str("object", object).
				Str("action", action).
				Msg("Group action denied")
			h.audit.AccessDenied(r, claims.MtIdx, sgtIdx, authz.RoleOf(gm), object, action)
			respondError(w, r, http.StatusForbidden, ErrCodeForbidden, "Your role in this group does not allow this action", nil)
			return nil, false
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Authorization failed", err)
		return nil, false
	}

	return &groupAccess{claims: claims, sgtIdx: sgtIdx, member: gm, role: authz.RoleOf(gm)}, true
}

// callInto calls the backend and decodes the payload into out.
func (h *Handler) callInto(ctx context.Context, req backend.Request, out interface{}) (*backend.Response, error) {
	resp, err := h.call(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Decode(out); err != nil {
		return nil, err
	}
	return resp, nil
}

// respondData writes data, carrying the mock marker of the backend response
// it was built from.
func respondData(w http.ResponseWriter, r *http.Request, status int, data interface{}, from *backend.Response) {
	meta := &models.Meta{}
	if from != nil {
		meta.Mock = from.Mock
	}
	NewResponseWriter(w, r).SuccessWithMeta(status, data, meta)
}
