// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package models

import "time"

// APIResponse wraps every gateway response.
//
//	{
//	  "success": true,
//	  "data": {"sgt_idx": 12, "sgt_title": "Family"},
//	  "meta": {"request_id": "…", "timestamp": "2026-01-02T03:04:05Z"}
//	}
//
// On failure Success is false, Data is omitted and Error is set.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError is the error body. Code is machine readable, see the api package
// for the full list.
type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Meta carries response metadata.
//
// Mock is set when the payload was produced locally because the backend was
// unreachable. Cached names the geocode tier that answered (memory, store).
type Meta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Mock       bool      `json:"mock,omitempty"`
	Cached     string    `json:"cached,omitempty"`
	Count      *int      `json:"count,omitempty"`
}
