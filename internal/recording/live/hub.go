// Package live streams newly created recordings to websocket subscribers.
package live

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/AlibekovAA/recordkeeper/internal/common/constants"
	"github.com/AlibekovAA/recordkeeper/internal/common/logger"
	"github.com/AlibekovAA/recordkeeper/internal/observability/metrics"
	"github.com/AlibekovAA/recordkeeper/internal/recording/domain"
)

const TypeRecordingCreated = "recording_created"

type Message struct {
	Type    string           `json:"type"`
	Payload domain.Recording `json:"payload"`
}

// Hub fans recordings out to connected clients. All client bookkeeping
// happens on the Run goroutine.
type Hub struct {
	clients     map[*Client]struct{}
	register    chan *Client
	unregister  chan *Client
	broadcast   chan []byte
	done        chan struct{}
	clientCount atomic.Int64
	log         *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, constants.LiveSendBufferSize),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int64 {
	return h.clientCount.Load()
}

// Publish queues rec for every subscriber. It never blocks the caller; when
// the hub is saturated the message is dropped.
func (h *Hub) Publish(rec domain.Recording) {
	data, err := json.Marshal(Message{Type: TypeRecordingCreated, Payload: rec})
	if err != nil {
		h.log.WithFields(context.Background(), logger.Fields{
			"recording_id": rec.ID,
			"action":       "live_marshal_failed",
		}).Errorf("live feed marshal error: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		metrics.LiveMessagesDropped.Inc()
		h.log.WithFields(context.Background(), logger.Fields{
			"recording_id": rec.ID,
			"action":       "live_broadcast_full",
		}).Warn("live feed broadcast queue full, message dropped")
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			total := h.clientCount.Add(1)
			metrics.LiveSubscribersActive.Inc()
			h.log.WithFields(client.ctx, logger.Fields{
				"user_id": client.userID,
				"total":   total,
				"action":  "live_register",
			}).Info("live feed client registered")

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					metrics.LiveMessagesDropped.Inc()
					h.log.WithFields(client.ctx, logger.Fields{
						"user_id": client.userID,
						"action":  "live_slow_client",
					}).Warn("live feed client too slow, disconnecting")
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.clientCount.Add(-1)
	metrics.LiveSubscribersActive.Dec()
	h.log.WithFields(client.ctx, logger.Fields{
		"user_id": client.userID,
		"action":  "live_unregister",
	}).Info("live feed client unregistered")
}

func (h *Hub) shutdown() {
	n := len(h.clients)
	for client := range h.clients {
		h.remove(client)
	}
	h.log.WithFields(context.Background(), logger.Fields{
		"clients": n,
		"action":  "live_hub_shutdown",
	}).Info("live feed hub shutdown completed")
}
