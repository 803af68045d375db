// Package ws pushes queue updates to browser sessions over WebSockets. The
// hub is the synchronizer's observer and its alert player: order, connection
// and SLA changes and the audio commands all become events on every client.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pharmaqueue/internal/core/application/feed"
	"pharmaqueue/internal/core/application/reconciler"
	"pharmaqueue/internal/core/application/synchronizer"
	"pharmaqueue/internal/core/domain/model/sla"

	"github.com/rs/zerolog"
)

// Event types.
const (
	EventOrdersChanged     = "orders.changed"
	EventConnectionChanged = "connection.changed"
	EventSLATick           = "sla.tick"
	EventAudioPlay         = "audio.play"
	EventAudioPause        = "audio.pause"
)

const sendBuffer = 256

// Event is one message to a client.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage lets a client narrow the event types it receives. A client
// with no subscriptions receives everything.
type ClientMessage struct {
	Action string   `json:"action"`
	Types  []string `json:"types"`
}

// Client is one connected session.
type Client struct {
	ID   string
	Send chan []byte

	types map[string]struct{}
}

func NewClient(id string) *Client {
	return &Client{ID: id, Send: make(chan []byte, sendBuffer), types: make(map[string]struct{})}
}

func (c *Client) wants(eventType string) bool {
	if len(c.types) == 0 {
		return true
	}
	_, ok := c.types[eventType]
	return ok
}

// Hub tracks clients. Broadcasts never block: a client whose buffer is full
// misses the event.
type Hub struct {
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger.With().Str("component", "ws-hub").Logger(),
		now:     time.Now,
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
}

// Unregister removes the client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
}

// ProcessMessage applies a subscribe or unsubscribe request.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch msg.Action {
	case "subscribe":
		for _, t := range msg.Types {
			client.types[t] = struct{}{}
		}
	case "unsubscribe":
		for _, t := range msg.Types {
			delete(client.types, t)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewEvent encodes data into an event stamped now.
func (h *Hub) NewEvent(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Timestamp: h.now().UTC(), Data: raw}, nil
}

// Broadcast sends the event to every interested client.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event.Type).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.wants(event.Type) {
			continue
		}
		select {
		case client.Send <- data:
		default:
			h.logger.Debug().Str("client", client.ID).Str("type", event.Type).Msg("client buffer full, event dropped")
		}
	}
}

func (h *Hub) publish(eventType string, data any) {
	event, err := h.NewEvent(eventType, data)
	if err != nil {
		h.logger.Error().Err(err).Str("type", eventType).Msg("failed to encode event")
		return
	}
	h.Broadcast(event)
}

// OrdersPayload is the data of orders.changed.
type OrdersPayload struct {
	Orders []synchronizer.OrderView `json:"orders"`
	Stats  reconciler.Stats         `json:"stats"`
}

type connectionPayload struct {
	Health feed.Health `json:"health"`
}

type audioPayload struct {
	Muted bool `json:"muted"`
}

func (h *Hub) OrdersChanged(orders []synchronizer.OrderView, stats reconciler.Stats) {
	h.publish(EventOrdersChanged, OrdersPayload{Orders: orders, Stats: stats})
}

func (h *Hub) ConnectionChanged(health feed.Health) {
	h.publish(EventConnectionChanged, connectionPayload{Health: health})
}

func (h *Hub) SLATick(statuses map[int64]sla.Status) {
	h.publish(EventSLATick, statuses)
}

// Play asks every client to play the alert sound. Clients that have not been
// primed by a user gesture will fail to play; that is their concern.
func (h *Hub) Play(_ context.Context, muted bool) error {
	h.publish(EventAudioPlay, audioPayload{Muted: muted})
	return nil
}

func (h *Hub) Pause(context.Context) error {
	h.publish(EventAudioPause, struct{}{})
	return nil
}

// ConnectionEvent builds the connection.changed event for a new client.
func (h *Hub) ConnectionEvent(health feed.Health) (Event, error) {
	return h.NewEvent(EventConnectionChanged, connectionPayload{Health: health})
}

// OrdersEvent builds the orders.changed event for a new client.
func (h *Hub) OrdersEvent(orders []synchronizer.OrderView, stats reconciler.Stats) (Event, error) {
	return h.NewEvent(EventOrdersChanged, OrdersPayload{Orders: orders, Stats: stats})
}
