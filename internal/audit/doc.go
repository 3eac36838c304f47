// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

// Package audit records security-relevant gateway actions: logins, failed
// logins, logouts, signups, failed phone verification, group deletion,
// kicks, role changes and authorization denials.
//
// Events are queued on a buffered channel and written by one goroutine as a
// single zerolog line with the full event as raw JSON under "event":
//
//	{"component":"audit","audit_type":"member.kicked","outcome":"success",
//	 "event":{"id":"…","type":"member.kicked","actor":{"mt_idx":2},
//	 "target":{"sgt_idx":10,"sgdt_idx":300,"mt_idx":3},"source":{"ip_address":"203.0.113.7"}},
//	 "message":"Audit event"}
//
// The lines carry no level so they survive LOG_LEVEL=warn. Counts are
// exported as audit_events_total{type,outcome}; a full queue drops the event
// and increments audit_events_dropped_total rather than blocking a request.
//
// Login ids and phone numbers are masked with MaskLogin before they are
// recorded.
package audit
