// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

/*
Package services adapts gateway components to suture.Service.

  - HTTPServerService: ListenAndServe with a bounded graceful Shutdown
  - WebSocketHubService: the group room hub loop
  - CloserService: releases caches and the geocode store when the tree stops

Every wrapper returns ctx.Err() on a clean stop and a non-nil error when the
component fails, which is what suture uses to decide on a restart.
*/
package services
