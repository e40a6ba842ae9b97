package socket

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
	"github.com/slotter-org/cs-ai-agent/internal/metrics"
)

// ChannelEvents is the channel every client joins on connect.
const ChannelEvents = "events"

type Message struct {
	Channel string      `json:"channel"`
	Event   string      `json:"event"`
	Data    interface{} `json:"data"`
}

type Hub struct {
	log      *logger.Logger
	mu       sync.RWMutex
	channels map[string]map[uuid.UUID]*Client
	clients  map[uuid.UUID]*Client

	redisPubSub *RedisPubSub
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:      log.With("component", "Hub"),
		channels: make(map[string]map[uuid.UUID]*Client),
		clients:  make(map[uuid.UUID]*Client),
	}
}

// SetRedisPubSub makes broadcasts reach clients connected to other nodes.
func (h *Hub) SetRedisPubSub(rp *RedisPubSub) {
	h.redisPubSub = rp
}

func (h *Hub) Subscribe(client *Client, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, known := h.clients[client.ID]; !known {
		h.clients[client.ID] = client
		metrics.WebsocketClients.Set(float64(len(h.clients)))
	}
	for _, ch := range channels {
		if h.channels[ch] == nil {
			h.channels[ch] = make(map[uuid.UUID]*Client)
		}
		h.channels[ch][client.ID] = client
	}
	h.log.Debug("Client subscribed", "client", client.ID, "channels", channels)
}

// Unsubscribe drops the client from every channel. Once it returns the hub
// never sends to the client's outbound channel again.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch, clientsMap := range h.channels {
		if _, ok := clientsMap[client.ID]; ok {
			delete(clientsMap, client.ID)
			if len(clientsMap) == 0 {
				delete(h.channels, ch)
			}
		}
	}
	delete(h.clients, client.ID)
	metrics.WebsocketClients.Set(float64(len(h.clients)))
	h.log.Debug("Client unsubscribed from all channels", "client", client.ID)
}

func (h *Hub) UnsubscribeFromChannel(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clientsMap, ok := h.channels[channel]; ok {
		delete(clientsMap, client.ID)
		if len(clientsMap) == 0 {
			delete(h.channels, channel)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) localBroadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.channels[msg.Channel] {
		select {
		case client.Outbound <- msg:
		default:
			h.log.Warn("Dropping message to client; outbound buffer full", "client", client.ID, "channel", msg.Channel)
		}
	}
}

// BroadcastGlobal delivers msg locally and, with Redis configured, to the
// other nodes.
func (h *Hub) BroadcastGlobal(ctx context.Context, msg Message) {
	h.localBroadcast(msg)
	if h.redisPubSub != nil {
		if err := h.redisPubSub.Publish(ctx, msg); err != nil {
			h.log.Warn("Failed to publish to Redis", "error", err)
		}
	}
}

// Publish sends a domain event on the shared events channel.
func (h *Hub) Publish(ctx context.Context, eventType string, data interface{}) {
	h.BroadcastGlobal(ctx, Message{Channel: ChannelEvents, Event: eventType, Data: data})
}
