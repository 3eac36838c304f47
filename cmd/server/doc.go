// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

/*
Package main is the entry point for the Gathermap gateway.

Gathermap sits between a mobile app and the backend that owns members,
groups, locations and schedules. It authenticates sessions, checks group
roles, forwards requests, fans location updates out over websockets, resolves
addresses and sends schedule reminders.

# Application Architecture

	gathermap
	├── messaging-layer
	│   └── websocket-hub (if WEBSOCKET_ENABLED)
	├── jobs-layer
	│   ├── reminder (if REMINDER_ENABLED)
	│   └── resource-closer
	└── api-layer
	    └── http-server

Initialization order:

 1. Configuration: koanf with defaults, optional YAML file, environment
 2. Logging: zerolog, JSON or console
 3. Backend: HTTP client with retries behind a gobreaker circuit breaker
 4. Auth: JWT sessions, casbin group roles, SMS phone verification
 5. Integrations: push sender, reverse geocoder with a badger cache
 6. HTTP: chi router with request id, access log, CORS and rate limits
 7. Supervisor tree: suture v4, events logged through sutureslog

# Configuration

	Priority: environment variables > config file (CONFIG_PATH) > defaults

	HTTP_PORT=8080
	BACKEND_URL=https://api.example.com   # required
	JWT_SECRET=<32+ chars>                # required
	LOG_LEVEL=info
	LOG_FORMAT=json
	WEBSOCKET_ENABLED=true
	REMINDER_ENABLED=true
	REMINDER_CRON="@every 1m"
	KAKAO_REST_API_KEY=<key>

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for up to
SHUTDOWN_TIMEOUT, websocket clients receive a close frame, and the closer
service releases caches and the geocode store. Services that miss the
deadline are listed in the log.
*/
package main
