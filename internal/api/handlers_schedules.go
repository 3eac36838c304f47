// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gathermap/internal/authz"
	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/models"
	ws "github.com/tomtom215/gathermap/internal/websocket"
)

// ScheduleEvent is the websocket payload of schedule changes.
type ScheduleEvent struct {
	Event    string          `json:"event"` // created, updated, deleted
	SstIdx   models.Idx      `json:"sst_idx,omitempty"`
	Schedule json.RawMessage `json:"schedule,omitempty"`
}

// scheduleRange is the optional from/to filter of the schedule list.
type scheduleRange struct {
	From string `json:"from" validate:"omitempty,ymd"`
	To   string `json:"to" validate:"omitempty,ymd"`
}

// ListSchedules lists a group's schedules, optionally between two dates.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjSchedule, authz.ActRead)
	if !ok {
		return
	}

	q := scheduleRange{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	if !validateRequest(w, r, &q) {
		return
	}
	if q.From != "" && q.To != "" && q.To < q.From {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "to must not be before from", nil)
		return
	}

	query := url.Values{}
	if q.From != "" {
		query.Set("from", q.From)
	}
	if q.To != "" {
		query.Set("to", q.To)
	}

	h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpSchedulesList,
		Method:    http.MethodGet,
		Path:      backend.GroupSchedulesPath(access.sgtIdx),
		Query:     query,
		MemberIdx: access.claims.MtIdx,
	})
}

// CreateSchedule adds a schedule to a group.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjSchedule, authz.ActWrite)
	if !ok {
		return
	}
	req, ok := decodeSchedule(w, r)
	if !ok {
		return
	}

	resp, ok := h.forward(w, r, http.StatusCreated, backend.Request{
		Operation: backend.OpScheduleCreate,
		Method:    http.MethodPost,
		Path:      backend.GroupSchedulesPath(access.sgtIdx),
		Body:      req,
		MemberIdx: access.claims.MtIdx,
	})
	if ok {
		h.publish(access.sgtIdx, ws.MessageTypeSchedule, ScheduleEvent{Event: "created", Schedule: resp.Data})
	}
}

// UpdateSchedule replaces a schedule. The group id is passed along so the
// backend can refuse schedules of other groups.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjSchedule, authz.ActWrite)
	if !ok {
		return
	}
	sstIdx, ok := pathIdx(w, r, "sst_idx")
	if !ok {
		return
	}
	req, ok := decodeSchedule(w, r)
	if !ok {
		return
	}

	resp, ok := h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpScheduleUpdate,
		Method:    http.MethodPut,
		Path:      backend.SchedulePath(sstIdx),
		Query:     url.Values{"sgt_idx": {access.sgtIdx.String()}},
		Body:      req,
		MemberIdx: access.claims.MtIdx,
	})
	if ok {
		h.publish(access.sgtIdx, ws.MessageTypeSchedule, ScheduleEvent{Event: "updated", SstIdx: sstIdx, Schedule: resp.Data})
	}
}

// DeleteSchedule removes a schedule.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjSchedule, authz.ActDelete)
	if !ok {
		return
	}
	sstIdx, ok := pathIdx(w, r, "sst_idx")
	if !ok {
		return
	}

	if _, ok := h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpScheduleDelete,
		Method:    http.MethodDelete,
		Path:      backend.SchedulePath(sstIdx),
		Query:     url.Values{"sgt_idx": {access.sgtIdx.String()}},
		MemberIdx: access.claims.MtIdx,
	}); ok {
		h.publish(access.sgtIdx, ws.MessageTypeSchedule, ScheduleEvent{Event: "deleted", SstIdx: sstIdx})
	}
}

// decodeSchedule is decodeBody plus the time range checks validator tags
// cannot express.
func decodeSchedule(w http.ResponseWriter, r *http.Request) (*models.ScheduleRequest, bool) {
	req, ok := decodeBody[models.ScheduleRequest](w, r)
	if !ok {
		return nil, false
	}
	if msg := req.RangeError(); msg != "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, msg, nil)
		return nil, false
	}
	return req, true
}
