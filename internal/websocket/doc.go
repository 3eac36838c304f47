// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

/*
Package websocket pushes live group updates to connected members.

Each connection belongs to one member and subscribes to one or more group
rooms at connect time (/ws?sgt_idx=1&sgt_idx=2). Messages published to a
room reach only that room's clients.

Key Components:

  - Hub: owns the client set and the room index, runs under suture via
    RunWithContext
  - Client: one connection with a read pump and a write pump
  - Message: {type, sgt_idx, data}

Architecture:

	          ┌──────────┐
	Publish → │   Hub    │
	          └────┬─────┘
	     ┌─────────┴─────────┐
	  room 12             room 40
	 ┌───┴───┐               │
	 A       B               B

Client B above is one connection subscribed to two rooms.

Message Types:

  - location: a member posted a position
  - member_joined / member_left: group membership changed
  - schedule: schedule created, updated, deleted or about to start
  - notification: a group notification was sent
  - ping / pong: application keepalive

Slow clients whose 256-message buffer fills are disconnected instead of
blocking the hub. Protocol pings are sent every 54s and a connection with no
pong for 60s is closed. Client frames are limited to 512 bytes.

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	upgrader := websocket.NewUpgrader(cfg.Security.CORSOrigins)
	err := websocket.Serve(hub, upgrader, w, r, claims.MtIdx, rooms)

	hub.Publish(sgtIdx, websocket.MessageTypeLocation, loc)
*/
package websocket
