// Package ws streams the audit ledger to connected guard consoles.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/localhood/gatekeeper/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
)

// FeedEvent is the wire shape pushed to consoles
type FeedEvent struct {
	ComplexID     string    `json:"complexId"`
	BarrierID     string    `json:"barrierId,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	CredentialID  string    `json:"credentialId,omitempty"`
	Action        string    `json:"action"`
	VehicleNumber string    `json:"vehicleNumber,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type feedClient struct {
	complexID string
	conn      *websocket.Conn
	send      chan []byte
}

// FeedHub fans audit events out to websocket clients, one goroutine owning
// all registration state. Implements service.EventSink.
type FeedHub struct {
	register   chan *feedClient
	unregister chan *feedClient
	events     chan *domain.AccessLogEntry
	clients    map[*feedClient]struct{}
	logger     *slog.Logger
}

// NewFeedHub creates a feed hub
func NewFeedHub(logger *slog.Logger) *FeedHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHub{
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		events:     make(chan *domain.AccessLogEntry, sendBufferSize),
		clients:    make(map[*feedClient]struct{}),
		logger:     logger,
	}
}

// Publish enqueues an audit entry for broadcast. Non-blocking: if the hub
// is saturated the event is dropped, the durable ledger is elsewhere.
func (h *FeedHub) Publish(entry *domain.AccessLogEntry) {
	select {
	case h.events <- entry:
	default:
		h.logger.Warn("feed hub saturated, event dropped")
	}
}

// Run owns the client set until ctx is cancelled
func (h *FeedHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				close(c.send)
				delete(h.clients, c)
			}
		case entry := <-h.events:
			h.broadcast(entry)
		}
	}
}

func (h *FeedHub) broadcast(entry *domain.AccessLogEntry) {
	payload, err := json.Marshal(FeedEvent{
		ComplexID:     entry.ComplexID,
		BarrierID:     entry.BarrierID,
		UserID:        entry.UserID,
		CredentialID:  entry.CredentialID,
		Action:        string(entry.Action),
		VehicleNumber: entry.VehicleNumber,
		CreatedAt:     entry.CreatedAt,
	})
	if err != nil {
		return
	}

	for c := range h.clients {
		if c.complexID != entry.ComplexID {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Slow console: drop it rather than stall the hub.
			close(c.send)
			delete(h.clients, c)
		}
	}
}
