package serve

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/marketpulse/pipeline/observability"
	"github.com/marketpulse/pipeline/store"
)

// Message is the wire format for every PUSH subscribe frame, in both
// directions (§4.5). Channel addresses one of §4.5's fixed section
// names or the aggregate "all".
type Message struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Channels []string   `json:"channels,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Hub maintains the set of connected dashboard clients and fans out
// section updates, adapted from tomtom215-cartographus's
// internal/websocket.Hub onto channel-scoped (rather than global)
// broadcast.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Message
	Register   chan *client
	Unregister chan *client
	mu         sync.RWMutex
	analytics  *store.Store
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// NewHub creates a new Hub bound to the analytics-DB store every
// client's request_data messages are served from.
func NewHub(analytics *store.Store, metrics *observability.Metrics, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Message, 256),
		Register:   make(chan *client),
		Unregister: make(chan *client),
		analytics:  analytics,
		metrics:    metrics,
		logger:     logger.With().Str("component", "ws-hub").Logger(),
	}
}

// BroadcastSection enqueues a section update for every client
// subscribed to channel (or to "all").
func (h *Hub) BroadcastSection(channel string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: "section_update", Channel: channel, Data: data}:
	default:
		h.logger.Warn().Str("channel", channel).Msg("broadcast buffer full, dropping update")
	}
}

// Run drives client (de)registration and broadcast fan-out until ctx
// is cancelled (§5 "cancellation ... every blocking primitive checks
// the flag").
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.Register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.WSClients.Set(float64(total))
			h.logger.Info().Int("total_clients", total).Msg("client connected")
		case c := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.WSClients.Set(float64(total))
			h.logger.Info().Int("total_clients", total).Msg("client disconnected")
		case msg := <-h.broadcast:
			h.dispatch(msg)
		}
	}
}

// dispatch delivers msg to every client subscribed to msg.Channel or
// to "all", in deterministic (client-ID) order.
func (h *Hub) dispatch(msg Message) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, c := range clients {
		if !c.wants(msg.Channel) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn().Uint64("client_id", c.id).Msg("client send buffer full, dropping update")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
