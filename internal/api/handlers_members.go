// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"net/http"

	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/models"
)

// GetMe returns the caller's member profile.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpMemberGet,
		Method:    http.MethodGet,
		Path:      backend.MemberPath(claims.MtIdx),
		MemberIdx: claims.MtIdx,
	})
}

// UpdateMe updates the caller's profile. Group member lists carry names and
// avatars, so the caller's cached groups are refreshed.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	req, ok := decodeBody[models.UpdateMemberRequest](w, r)
	if !ok {
		return
	}

	if _, ok := h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpMemberUpdate,
		Method:    http.MethodPut,
		Path:      backend.MemberPath(claims.MtIdx),
		Body:      req,
		MemberIdx: claims.MtIdx,
	}); ok {
		h.invalidateGroupsOf(r, claims.MtIdx)
	}
}

// UpdatePushToken stores the caller's device push token.
func (h *Handler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	req, ok := decodeBody[models.PushTokenRequest](w, r)
	if !ok {
		return
	}

	if _, ok := h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpPushToken,
		Method:    http.MethodPut,
		Path:      backend.MemberPushTokenPath(claims.MtIdx),
		Body:      req,
		MemberIdx: claims.MtIdx,
	}); ok {
		h.invalidateGroupsOf(r, claims.MtIdx)
	}
}

// invalidateGroupsOf drops the cached member lists of every group mtIdx is in.
func (h *Handler) invalidateGroupsOf(r *http.Request, mtIdx models.Idx) {
	groups, err := h.memberships.GroupsOf(r.Context(), mtIdx)
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Could not list groups to refresh member cache")
		return
	}
	for _, sgtIdx := range groups {
		h.memberships.InvalidateGroup(sgtIdx)
	}
}
