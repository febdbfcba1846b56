// SPDX-License-Identifier: MIT

package broadcast

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stagecast/rundownd/internal/log"
	"github.com/stagecast/rundownd/internal/metrics"
	"github.com/stagecast/rundownd/internal/playback"
)

// sendBuffer is the per-client queue depth. A client that cannot drain this
// many frames is dropped rather than allowed to stall the publisher.
const sendBuffer = 64

type subscriber struct {
	id   string
	send chan []byte
}

// Hub fans serialized frames out to all connected view clients. Publish never
// blocks on a subscriber: slow clients are disconnected and must resync via
// Latest on reconnect.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	latest Frame
	logger zerolog.Logger

	upgrader websocket.Upgrader
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]*subscriber),
		logger: log.WithComponent("broadcast"),
		upgrader: websocket.Upgrader{
			// Viewers are distributed across venue networks; the snapshot
			// stream is read-only so cross-origin upgrades are allowed.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Publish serializes the snapshot at the given revision and fans it out.
func (h *Hub) Publish(revision uint64, snap playback.Snapshot) {
	frame := NewFrame(revision, snap)
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error().Err(err).
			Str(log.FieldEvent, "broadcast.marshal_failed").
			Msg("failed to serialize frame")
		return
	}

	h.mu.Lock()
	h.latest = frame
	var dropped []*subscriber
	for _, sub := range h.subs {
		select {
		case sub.send <- payload:
		default:
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		delete(h.subs, sub.id)
		close(sub.send)
	}
	h.mu.Unlock()

	for _, sub := range dropped {
		metrics.IncBroadcastDropped("slow_client")
		h.logger.Warn().
			Str(log.FieldEvent, "broadcast.client_dropped").
			Str(log.FieldClientID, sub.id).
			Msg("dropped slow view client")
	}
	metrics.SetBroadcastClients(h.ClientCount())
}

// Latest returns the most recently published frame, the pull path for
// reconnecting clients.
func (h *Hub) Latest() Frame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// ClientCount reports the number of attached subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.send)
	}
	h.mu.Unlock()
	metrics.SetBroadcastClients(0)
}

func (h *Hub) attach() *subscriber {
	sub := &subscriber{id: uuid.NewString(), send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.subs[sub.id] = sub
	// Seed the newcomer with the latest frame so it renders immediately.
	if h.latest.Revision > 0 {
		if payload, err := json.Marshal(h.latest); err == nil {
			sub.send <- payload
		}
	}
	h.mu.Unlock()

	metrics.SetBroadcastClients(h.ClientCount())
	return sub
}

func (h *Hub) detach(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		close(sub.send)
	}
	h.mu.Unlock()
	metrics.SetBroadcastClients(h.ClientCount())
}

// ServeHTTP upgrades the request and streams frames until the client goes
// away. View clients are read-only: inbound messages are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).
			Str(log.FieldEvent, "broadcast.upgrade_failed").
			Msg("websocket upgrade failed")
		return
	}

	sub := h.attach()
	h.logger.Debug().
		Str(log.FieldEvent, "broadcast.client_attached").
		Str(log.FieldClientID, sub.id).
		Msg("view client attached")

	// Read pump: drain and discard until error, then detach.
	go func() {
		defer h.detach(sub)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Write pump.
	for payload := range sub.send {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}
	_ = conn.Close()
}
