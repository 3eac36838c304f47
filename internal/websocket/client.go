// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package websocket

import (
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/gathermap/internal/logging"
	"github.com/tomtom215/gathermap/internal/metrics"
	"github.com/tomtom215/gathermap/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// clientIDCounter generates unique, monotonically increasing IDs for clients.
// DETERMINISM: clients are sorted by this ID for broadcast operations.
var clientIDCounter atomic.Uint64

// Client is a middleman between the websocket connection and the hub
type Client struct {
	id      uint64
	connID  string
	mtIdx   models.Idx
	rooms   []models.Idx
	hub     *Hub
	conn    *websocket.Conn
	send    chan Message
	pong    chan struct{}
	// done is closed by the hub when it drops the client, before send is
	// closed. Only the hub sends on or closes send.
	done    chan struct{}
	started atomic.Bool
}

// NewClient creates a client for member mtIdx subscribed to rooms.
func NewClient(hub *Hub, conn *websocket.Conn, mtIdx models.Idx, rooms []models.Idx) *Client {
	rooms = slices.Clone(rooms)
	slices.Sort(rooms)
	return &Client{
		id:     clientIDCounter.Add(1),
		connID: uuid.NewString(),
		mtIdx:  mtIdx,
		rooms:  slices.Compact(rooms),
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, sendBuffer),
		pong:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// ID returns the client's unique identifier for deterministic ordering
func (c *Client) ID() uint64 {
	return c.id
}

// Rooms returns the group rooms the client subscribed to.
func (c *Client) Rooms() []models.Idx {
	return c.rooms
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		// A dropped client may outlive the hub loop.
		select {
		case c.hub.Unregister <- c:
		case <-c.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("conn_id", c.connID).Msg("unexpected websocket close error")
			}
			break
		}

		// Clients only speak application-level ping. The pong is written by
		// writePump; a pending one absorbs repeats.
		if msg.Type == MessageTypePing {
			select {
			case c.pong <- struct{}{}:
			default:
			}
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Debug().Err(err).Str("conn_id", c.connID).Msg("failed to write JSON message")
				return
			}
			metrics.WSMessagesSent.WithLabelValues(message.Type).Inc()

		case <-c.pong:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for pong")
				return
			}
			if err := c.conn.WriteJSON(Message{Type: MessageTypePong}); err != nil {
				logging.Debug().Err(err).Str("conn_id", c.connID).Msg("failed to write pong")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client. Later calls are no-ops.
func (c *Client) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.writePump()
	go c.readPump()
}

// NewUpgrader returns an upgrader accepting the given browser origins. An
// empty list or "*" accepts any origin; requests without an Origin header
// (native apps) are always accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if allowAll || origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Serve upgrades the request, registers the client with the hub and starts
// its pumps. The caller has already authenticated mtIdx and checked that it
// belongs to every room.
func Serve(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request, mtIdx models.Idx, rooms []models.Idx) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return err
	}

	client := NewClient(hub, conn, mtIdx, rooms)
	select {
	case hub.Register <- client:
	case <-r.Context().Done():
		_ = conn.Close()
		return r.Context().Err()
	}
	client.Start()
	return nil
}
