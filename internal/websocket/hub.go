// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
	"github.com/tomtom215/gathermap/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeLocation     = "location"
	MessageTypeMemberJoined = "member_joined"
	MessageTypeMemberLeft   = "member_left"
	MessageTypeSchedule     = "schedule"
	MessageTypeNotification = "notification"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

// Message represents a WebSocket message. SgtIdx names the group room the
// message was published to.
type Message struct {
	Type   string      `json:"type"`
	SgtIdx models.Idx  `json:"sgt_idx,omitempty"`
	Data   interface{} `json:"data"`
}

// roomLeave removes one member's connections from one room.
type roomLeave struct {
	sgtIdx models.Idx
	mtIdx  models.Idx
}

// Hub maintains the set of active clients, grouped into one room per group,
// and delivers published messages to the members of that room.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[models.Idx]map[*Client]struct{}
	broadcast  chan Message
	leave      chan roomLeave
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		leave:      make(chan roomLeave, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rooms:      make(map[models.Idx]map[*Client]struct{}),
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// This method is designed for use with suture supervision.
//
// When the context is canceled all connected clients are closed and
// ctx.Err() is returned, so a supervisor can restart the hub without
// orphaned connections.
//
// DETERMINISM: Uses priority-based selection to ensure predictable behavior:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Client lifecycle events (Register/Unregister/leave)
// - Priority 3: Published messages
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		case l := <-h.leave:
			h.leaveRoom(l)
			continue
		default:
		}

		// Priority 3: Handle messages or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case l := <-h.leave:
			h.leaveRoom(l)
		case message := <-h.broadcast:
			h.broadcastToRoom(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	for _, sgtIdx := range client.rooms {
		room, ok := h.rooms[sgtIdx]
		if !ok {
			room = make(map[*Client]struct{})
			h.rooms[sgtIdx] = room
		}
		room[client] = struct{}{}
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().
		Int64("mt_idx", int64(client.mtIdx)).
		Int("rooms", len(client.rooms)).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	removed := h.dropLocked(client)
	total := len(h.clients)
	h.mu.Unlock()

	if removed {
		logging.Info().Int64("mt_idx", int64(client.mtIdx)).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// dropLocked removes client from every room and closes its done and send
// channels.
// Callers hold h.mu.
func (h *Hub) dropLocked(client *Client) bool {
	if _, ok := h.clients[client]; !ok {
		return false
	}
	for _, sgtIdx := range client.rooms {
		if room, ok := h.rooms[sgtIdx]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, sgtIdx)
			}
		}
	}
	delete(h.clients, client)
	close(client.done)
	close(client.send)
	metrics.WSConnections.Dec()
	return true
}

// leaveRoom unsubscribes a member who left or was removed from a group. The
// connection stays open for the member's other rooms.
func (h *Hub) leaveRoom(l roomLeave) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[l.sgtIdx]
	if !ok {
		return
	}
	for client := range room {
		if client.mtIdx == l.mtIdx {
			delete(room, client)
		}
	}
	if len(room) == 0 {
		delete(h.rooms, l.sgtIdx)
	}
}

// logGracefulShutdown closes all clients and logs the shutdown.
// ctx.Err() is NOT logged as an error because cancellation is the expected
// shutdown path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// broadcastToRoom sends a message to the clients of its room in a
// deterministic order. Clients whose buffer is full are disconnected.
func (h *Hub) broadcastToRoom(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[message.SgtIdx]
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}

	// DETERMINISM: Sort by client ID for deterministic ordering
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Int64("mt_idx", int64(client.mtIdx)).Msg("websocket client too slow, disconnecting")
		h.dropLocked(client)
	}
}

// closeAllClients closes every connected client in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		h.dropLocked(client)
	}
}

// Publish queues a message for the sgtIdx room. It never blocks; a full
// queue drops the message and returns false.
func (h *Hub) Publish(sgtIdx models.Idx, messageType string, data interface{}) bool {
	message := Message{
		Type:   messageType,
		SgtIdx: sgtIdx,
		Data:   data,
	}

	select {
	case h.broadcast <- message:
		return true
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("message_type", messageType).Int64("sgt_idx", int64(sgtIdx)).Msg("broadcast channel full, dropping message")
		return false
	}
}

// Leave removes mtIdx's connections from the sgtIdx room.
func (h *Hub) Leave(sgtIdx, mtIdx models.Idx) {
	select {
	case h.leave <- roomLeave{sgtIdx: sgtIdx, mtIdx: mtIdx}:
	default:
		logging.Warn().Int64("sgt_idx", int64(sgtIdx)).Int64("mt_idx", int64(mtIdx)).Msg("leave channel full, dropping room leave")
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients subscribed to sgtIdx.
func (h *Hub) RoomSize(sgtIdx models.Idx) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sgtIdx])
}
