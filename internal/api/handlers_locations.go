// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/tomtom215/gathermap/internal/authz"
	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/models"
	ws "github.com/tomtom215/gathermap/internal/websocket"
)

// LocationEvent is the websocket payload of a location message.
type LocationEvent struct {
	models.LocationLog
	Name string `json:"name,omitempty"`
}

// historyQuery is the query string of the location history endpoint.
type historyQuery struct {
	Date   string `json:"date" validate:"required,ymd"`
	SgtIdx string `json:"sgt_idx" validate:"omitempty,numeric"`
}

// PostLocation records the caller's position and pushes it to every group
// room the caller belongs to.
func (h *Handler) PostLocation(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	req, ok := decodeBody[models.LocationRequest](w, r)
	if !ok {
		return
	}
	if req.IsNullIsland() {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "lat/lng 0,0 is not a valid fix", nil)
		return
	}

	entry := req.ToLog(claims.MtIdx)
	if entry.GPSTime.IsZero() {
		entry.GPSTime = models.DateTime{Time: time.Now().Truncate(time.Second)}
	}

	if _, ok := h.forward(w, r, http.StatusCreated, backend.Request{
		Operation: backend.OpLocationCreate,
		Method:    http.MethodPost,
		Path:      backend.LocationsPath,
		Body:      entry,
		MemberIdx: claims.MtIdx,
	}); !ok {
		return
	}

	if h.publisher == nil {
		return
	}
	groups, err := h.memberships.GroupsOf(r.Context(), claims.MtIdx)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Location saved but group rooms could not be resolved")
		return
	}
	event := LocationEvent{LocationLog: entry, Name: claims.Name}
	for _, sgtIdx := range groups {
		h.publish(sgtIdx, ws.MessageTypeLocation, event)
	}
}

// LatestLocations returns the last known position of every group member.
func (h *Handler) LatestLocations(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjLocation, authz.ActRead)
	if !ok {
		return
	}
	h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpLocationsLatest,
		Method:    http.MethodGet,
		Path:      backend.GroupLatestLocationsPath(access.sgtIdx),
		MemberIdx: access.claims.MtIdx,
	})
}

// LocationHistory returns one member's track for a day. Callers may always
// read their own history; anyone else's needs sgt_idx naming a group both
// belong to.
func (h *Handler) LocationHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	target, ok := pathIdx(w, r, "mt_idx")
	if !ok {
		return
	}

	q := historyQuery{Date: r.URL.Query().Get("date"), SgtIdx: r.URL.Query().Get("sgt_idx")}
	if !validateRequest(w, r, &q) {
		return
	}

	if target != claims.MtIdx {
		sgtIdx, err := models.ParseIdx(q.SgtIdx)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "sgt_idx is required to read another member's locations", nil)
			return
		}
		if _, ok := h.authorizeIn(w, r, claims, sgtIdx, authz.ObjLocation, authz.ActRead); !ok {
			return
		}
		if _, err := h.memberships.Membership(r.Context(), target, sgtIdx); err != nil {
			h.respondBackendError(w, r, err)
			return
		}
	}

	h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpLocationsHistory,
		Method:    http.MethodGet,
		Path:      backend.MemberLocationsPath(target),
		Query:     url.Values{"date": {q.Date}},
		MemberIdx: claims.MtIdx,
	})
}
