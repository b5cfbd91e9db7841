// Package realtime pushes show changes to every connected browser over
// WebSocket. Delivery is fire-and-forget: there is no acknowledgement, no
// replay for late joiners and a client whose queue is full misses the
// event. Clients resync by calling GET /api/shows.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showdesk/internal/model"
)

// Message is the JSON frame written to clients.
type Message struct {
	Event model.EventName `json:"event"`
	Data  map[string]any  `json:"data,omitempty"`
}

// Hub keeps the registry of connected clients and fans messages out to
// them. With a Redis client, broadcasts go through a pub/sub channel so
// every instance of the service reaches its own clients.
type Hub struct {
	log     *logrus.Logger
	rdb     *redis.Client
	channel string
	// relaying is true while Run holds a live subscription; only then can
	// a published message be expected back on this instance.
	relaying atomic.Bool

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a hub. rdb may be nil, in which case delivery is local.
func NewHub(log *logrus.Logger, rdb *redis.Client, channel string) *Hub {
	return &Hub{
		log:     log,
		rdb:     rdb,
		channel: channel,
		clients: make(map[string]*Client),
	}
}

// Run relays messages received on the Redis channel to local clients until
// ctx is cancelled. Without Redis it returns immediately.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}
	backoff := time.Second
	for ctx.Err() == nil {
		sub := h.rdb.Subscribe(ctx, h.channel)
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			if ctx.Err() != nil {
				return
			}
			h.log.WithError(err).WithField("channel", h.channel).Warnf("realtime: subscribe failed; retrying in %s", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		h.relaying.Store(true)
		h.relay(ctx, sub.Channel())
		h.relaying.Store(false)
		_ = sub.Close()
	}
}

// relay delivers subscription messages until ctx ends or ch closes.
func (h *Hub) relay(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				h.log.WithField("channel", h.channel).Warn("realtime: subscription closed; resubscribing")
				return
			}
			h.deliver([]byte(m.Payload))
		}
	}
}

// Notify implements service.Notifier.
func (h *Hub) Notify(ctx context.Context, ev model.ShowEvent) {
	h.Broadcast(ctx, Message{Event: ev.Name, Data: ev.Payload()})
}

// Broadcast sends msg to every connected client of every instance. Local
// clients are served directly unless this hub's own subscription is live
// and Redis reports at least one receiver, so an event is never lost while
// the relay is starting or reconnecting.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).WithField("event", msg.Event).Error("realtime: encode message")
		return
	}
	if h.rdb != nil {
		receivers, err := h.rdb.Publish(ctx, h.channel, frame).Result()
		switch {
		case err != nil:
			h.log.WithError(err).WithField("event", msg.Event).Warn("realtime: publish failed; delivering locally")
		case receivers > 0 && h.relaying.Load():
			return
		}
	}
	h.deliver(frame)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.log.WithFields(logrus.Fields{"client": c.id, "clients": n}).Debug("realtime: client connected")
}

// unregister removes c and closes its queue. Calling it twice is safe.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	if ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.log.WithFields(logrus.Fields{"client": c.id, "clients": n}).Debug("realtime: client disconnected")
	}
}

// deliver queues frame on every local client without blocking.
func (h *Hub) deliver(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		select {
		case c.send <- frame:
		default:
			h.log.WithField("client", id).Warn("realtime: client queue full; event dropped")
		}
	}
}
