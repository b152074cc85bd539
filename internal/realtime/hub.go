package realtime

import (
	"context"
	"time"

	"github.com/anonto42/nano-community/backend/internal/observability"
	"github.com/rs/zerolog"
)

type direct struct {
	accountID uint
	payload   []byte
}

// Hub tracks live connections per account and fans payloads out to them.
// All map access happens on the Run goroutine.
type Hub struct {
	clients    map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	send       chan direct
	done       chan struct{}
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		send:       make(chan direct, 256),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "realtime").Logger(),
	}
}

// Run processes registrations and deliveries until ctx is done, then closes
// every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info().Msg("hub started")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
					observability.RealtimeConnections.Dec()
				}
			}
			h.clients = make(map[uint]map[*Client]bool)
			h.log.Info().Msg("hub stopped")
			return

		case c := <-h.register:
			set, ok := h.clients[c.accountID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[c.accountID] = set
			}
			set[c] = true
			observability.RealtimeConnections.Inc()
			h.log.Debug().Uint("account_id", c.accountID).Int("connections", len(set)).Msg("client registered")

		case c := <-h.unregister:
			set, ok := h.clients[c.accountID]
			if !ok || !set[c] {
				continue
			}
			delete(set, c)
			close(c.send)
			observability.RealtimeConnections.Dec()
			if len(set) == 0 {
				delete(h.clients, c.accountID)
			}
			h.log.Debug().Uint("account_id", c.accountID).Msg("client unregistered")

		case msg := <-h.send:
			for c := range h.clients[msg.accountID] {
				select {
				case c.send <- msg.payload:
				default:
					h.log.Warn().Uint("account_id", msg.accountID).Msg("send buffer full, message dropped")
				}
			}
		}
	}
}

// Publish queues payload for every live connection of accountID. It never
// blocks the caller for more than a second.
func (h *Hub) Publish(accountID uint, payload []byte) {
	select {
	case h.send <- direct{accountID: accountID, payload: payload}:
	case <-h.done:
	case <-time.After(time.Second):
		h.log.Warn().Uint("account_id", accountID).Msg("hub busy, message dropped")
	}
}
