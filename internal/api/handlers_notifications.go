// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package api

import (
	"net/http"
	"net/url"

	"github.com/tomtom215/gathermap/internal/authz"
	"github.com/tomtom215/gathermap/internal/backend"
	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/models"
	"github.com/tomtom215/gathermap/internal/notify"
	ws "github.com/tomtom215/gathermap/internal/websocket"
)

// SendNotificationResponse summarises a group notification.
type SendNotificationResponse struct {
	Recipients int  `json:"recipients"`
	Sent       int  `json:"sent"`
	Failed     int  `json:"failed"`
	Skipped    int  `json:"skipped"`
	Logged     bool `json:"logged"`
}

// NotificationEvent is the websocket payload of a group notification.
type NotificationEvent struct {
	SenderIdx models.Idx        `json:"sender_mt_idx"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
}

// ListNotifications returns the caller's inbox.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpNotificationsList,
		Method:    http.MethodGet,
		Path:      backend.NotificationsPath,
		Query:     url.Values{"mt_idx": {claims.MtIdx.String()}},
		MemberIdx: claims.MtIdx,
	})
}

// MarkNotificationRead marks one inbox entry as read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	pltIdx, ok := pathIdx(w, r, "plt_idx")
	if !ok {
		return
	}
	h.forward(w, r, http.StatusOK, backend.Request{
		Operation: backend.OpNotificationRead,
		Method:    http.MethodPut,
		Path:      backend.NotificationReadPath(pltIdx),
		MemberIdx: claims.MtIdx,
	})
}

// SendGroupNotification pushes a message to every other member of a group,
// publishes it to the group room and records it in the members' inboxes.
func (h *Handler) SendGroupNotification(w http.ResponseWriter, r *http.Request) {
	access, ok := h.authorizeGroup(w, r, authz.ObjNotification, authz.ActWrite)
	if !ok {
		return
	}
	req, ok := decodeBody[models.SendNotificationRequest](w, r)
	if !ok {
		return
	}
	log := logging.Ctx(r.Context()).With().Int64("sgt_idx", int64(access.sgtIdx)).Logger()

	members, err := h.memberships.Members(r.Context(), access.claims.MtIdx, access.sgtIdx)
	if err != nil {
		h.respondBackendError(w, r, err)
		return
	}

	var tokens []string
	recipients := make([]models.Idx, 0, len(members))
	for i := range members {
		gm := &members[i]
		if gm.MtIdx == access.claims.MtIdx || !gm.Active() {
			continue
		}
		recipients = append(recipients, gm.MtIdx)
		if gm.WantsPush() {
			tokens = append(tokens, gm.MtPushToken)
		}
	}

	data := map[string]string{
		"type":    models.NotificationGroup,
		"sgt_idx": access.sgtIdx.String(),
	}
	for k, v := range req.Data {
		if _, reserved := data[k]; !reserved {
			data[k] = v
		}
	}

	res := notify.PushResult{Skipped: len(tokens)}
	if h.pusher != nil {
		var pushErr error
		res, pushErr = h.pusher.Push(r.Context(), tokens, notify.PushMessage{Title: req.Title, Body: req.Body, Data: data})
		if pushErr != nil {
			log.Warn().Err(pushErr).Int("success", res.Success).Int("failure", res.Failure).Msg("Group notification push failed")
		}
	}

	h.publish(access.sgtIdx, ws.MessageTypeNotification, NotificationEvent{
		SenderIdx: access.claims.MtIdx,
		Title:     req.Title,
		Body:      req.Body,
		Data:      req.Data,
	})

	out := SendNotificationResponse{
		Recipients: len(recipients),
		Sent:       res.Success,
		Failed:     res.Failure,
		Skipped:    res.Skipped,
	}

	if len(recipients) > 0 {
		_, err = h.call(r.Context(), backend.Request{
			Operation: backend.OpNotificationLog,
			Method:    http.MethodPost,
			Path:      backend.NotificationsPath,
			Body: models.NotificationLog{
				Type:       models.NotificationGroup,
				SenderIdx:  access.claims.MtIdx,
				SgtIdx:     access.sgtIdx,
				Title:      req.Title,
				Content:    req.Body,
				Recipients: recipients,
				Delivered:  res.Success,
			},
			MemberIdx: access.claims.MtIdx,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to log group notification")
		} else {
			out.Logged = true
		}
	}

	respondJSON(w, r, http.StatusOK, out)
}
