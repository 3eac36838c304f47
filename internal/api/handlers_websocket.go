// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"net/http"

	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/models"
	ws "github.com/tomtom215/gathermap/internal/websocket"
)

// maxRoomsPerConnection caps how many group rooms one socket may join.
const maxRoomsPerConnection = 50

// WebSocket upgrades the connection and subscribes it to group rooms. Rooms
// come from repeated ?sgt_idx= parameters; without any the socket joins
// every group of the caller.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Live updates are disabled", nil)
		return
	}
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var rooms []models.Idx
	if raw := r.URL.Query()["sgt_idx"]; len(raw) > 0 {
		if len(raw) > maxRoomsPerConnection {
			respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Too many rooms requested", nil)
			return
		}
		seen := make(map[models.Idx]bool, len(raw))
		for _, v := range raw {
			sgtIdx, err := models.ParseIdx(v)
			if err != nil {
				respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid sgt_idx: "+sanitizeLogValue(v), nil)
				return
			}
			if seen[sgtIdx] {
				continue
			}
			seen[sgtIdx] = true
			if _, err := h.memberships.Membership(r.Context(), claims.MtIdx, sgtIdx); err != nil {
				h.respondBackendError(w, r, err)
				return
			}
			rooms = append(rooms, sgtIdx)
		}
	} else {
		groups, err := h.memberships.GroupsOf(r.Context(), claims.MtIdx)
		if err != nil {
			h.respondBackendError(w, r, err)
			return
		}
		if len(groups) > maxRoomsPerConnection {
			groups = groups[:maxRoomsPerConnection]
		}
		rooms = groups
	}

	if err := ws.Serve(h.hub, h.upgrader, w, r, claims.MtIdx, rooms); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	logging.Ctx(r.Context()).Debug().Int("rooms", len(rooms)).Msg("WebSocket client connected")
}
