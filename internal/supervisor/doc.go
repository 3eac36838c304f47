// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

/*
Package supervisor runs the gateway's long-lived services under suture v4.

# Tree

	gathermap
	├── messaging-layer
	│   └── websocket-hub
	├── jobs-layer
	│   ├── reminder (if REMINDER_ENABLED)
	│   └── resource-closer
	└── api-layer
	    └── http-server

Each layer counts failures on its own. A reminder job stuck in a crash loop
backs off inside jobs-layer while the HTTP server keeps serving.

Supervisor events (service start, panic, backoff) are written through
sutureslog to the slog logger returned by logging.NewSlogLogger, so they land
in the same zerolog stream as request logs.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddJobService(reminder)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

Services wrappers live in the services subpackage.
*/
package supervisor
