// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package models

// Notification types recorded in the push log.
const (
	NotificationGroup    = "group"
	NotificationSchedule = "schedule"
	NotificationSystem   = "system"
)

// Notification is a row of the backend push log (push_log_t).
type Notification struct {
	PltIdx    Idx      `json:"plt_idx"`
	MtIdx     Idx      `json:"mt_idx"`
	SgtIdx    Idx      `json:"sgt_idx,omitempty"`
	SstIdx    Idx      `json:"sst_idx,omitempty"`
	Type      string   `json:"plt_type"`
	Title     string   `json:"plt_title"`
	Content   string   `json:"plt_content"`
	ReadCheck YN       `json:"plt_read_chk"`
	Wdate     DateTime `json:"plt_wdate"`
}

// NotificationLog is what the gateway records in the backend after a push.
type NotificationLog struct {
	Type       string `json:"plt_type"`
	SenderIdx  Idx    `json:"sender_mt_idx,omitempty"`
	SgtIdx     Idx    `json:"sgt_idx,omitempty"`
	SstIdx     Idx    `json:"sst_idx,omitempty"`
	Title      string `json:"plt_title"`
	Content    string `json:"plt_content"`
	Recipients []Idx  `json:"mt_idx_list"`
	Delivered  int    `json:"delivered"`
}

// SendNotificationRequest is POST /groups/{sgt_idx}/notifications.
type SendNotificationRequest struct {
	Title string            `json:"title" validate:"required,max=100"`
	Body  string            `json:"body" validate:"required,max=500"`
	Data  map[string]string `json:"data,omitempty" validate:"omitempty,max=20"`
}
