// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package audit

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gathermap/internal/models"
)

// EventType categorizes audit events.
type EventType string

const (
	// Session events
	EventTypeLogin       EventType = "auth.login"
	EventTypeLoginFailed EventType = "auth.login_failed"
	EventTypeLogout      EventType = "auth.logout"
	EventTypeSignup      EventType = "auth.signup"

	// Phone verification
	EventTypeVerifyFailed EventType = "phone.verify_failed"

	// Group administration
	EventTypeGroupDeleted EventType = "group.deleted"
	EventTypeMemberKicked EventType = "member.kicked"
	EventTypeRoleChanged  EventType = "member.role_changed"

	EventTypeAuthzDenied EventType = "authz.denied"
)

// Severity indicates the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var severityOrder = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityCritical: 2,
}

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one security-relevant action.
type Event struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        EventType       `json:"type"`
	Severity    Severity        `json:"severity"`
	Outcome     Outcome         `json:"outcome"`
	Actor       Actor           `json:"actor"`
	Target      *Target         `json:"target,omitempty"`
	Source      Source          `json:"source"`
	Description string          `json:"description,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
}

// Actor is who performed the action. MtIdx is zero for anonymous callers,
// in which case Login carries the masked login id they tried.
type Actor struct {
	MtIdx models.Idx `json:"mt_idx,omitempty"`
	Login string     `json:"login,omitempty"`
}

// Target is the object of an action.
type Target struct {
	SgtIdx  models.Idx `json:"sgt_idx,omitempty"`
	SgdtIdx models.Idx `json:"sgdt_idx,omitempty"`
	MtIdx   models.Idx `json:"mt_idx,omitempty"`
}

// Source is where the request came from.
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent,omitempty"`
}
