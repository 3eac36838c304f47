// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

/*
Package api provides the HTTP REST API layer for Gathermap.

The gateway sits between the mobile app and the legacy backend. Most
handlers validate the request, authorize the caller against their role in
the group, forward the call to the backend and wrap the answer in the
standard envelope. A few do work of their own: login issues the session
JWT, phone verification runs locally, location posts and group changes are
fanned out to websocket rooms, and group notifications are pushed before
being logged in the backend.

Key Components:

  - Router: chi routes and the middleware stack
  - Handler: request handlers grouped by resource in handlers_*.go
  - ResponseWriter: the {success, data, error, meta} envelope
  - ChiMiddleware: go-chi/cors and go-chi/httprate factories

API Categories:

1. Health (/api/v1/health/live, /api/v1/health/ready) and /metrics

2. Authentication (/api/v1/auth/):
  - login, logout, me
  - join, verify/send, verify/confirm

3. Members (/api/v1/members/):
  - me (GET, PUT), me/push-token
  - {mt_idx}/locations?date=&sgt_idx=

4. Groups (/api/v1/groups/):
  - list, create, join by invite code
  - {sgt_idx}: get, update, delete
  - {sgt_idx}/members: list, leave (members/me), kick, role
  - {sgt_idx}/locations/latest
  - {sgt_idx}/schedules
  - {sgt_idx}/notifications

5. Locations, notifications and geocoding:
  - POST /api/v1/locations
  - GET /api/v1/notifications, PUT /api/v1/notifications/{plt_idx}/read
  - GET /api/v1/geocode/reverse?lat=&lng=

6. WebSocket (/ws): group room subscriptions

Response Format:

All endpoints return the envelope:

	{
	    "success": true,
	    "data": {...},
	    "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 12}
	}

Errors carry a machine readable code:

	{
	    "success": false,
	    "error": {"code": "FORBIDDEN", "message": "..."}
	}

When the backend is down and mock fallback is enabled, canned payloads are
served with meta.mock set and the X-Gathermap-Mock response header.

Usage Example:

	handler := api.NewHandler(cfg, api.Dependencies{
	    Backend:     breaker,
	    Readiness:   breaker,
	    Memberships: memberships,
	    Enforcer:    enforcer,
	    JWT:         jwtManager,
	    Verifier:    verifier,
	    Geocoder:    geocoder,
	    Pusher:      pusher,
	    Hub:         hub,
	})
	router := api.NewRouter(handler, auth.NewMiddleware(jwtManager, cookie), cfg)
	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: router.SetupChi()}
*/
package api
