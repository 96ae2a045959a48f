package bridge

import (
	"context"
	"encoding/json"

	"github.com/Poltergeis/api-local-websockets/internal/domain"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// Hub is the serving goroutine. It owns the registry and is the only
// goroutine that drains the relay queue or touches client membership;
// other goroutines reach it through the register/unregister channels.
type Hub struct {
	relay    ports.RelayQueue
	registry *Registry
	taps     []ports.BroadcastTap
	obs      ports.Observability

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(relay ports.RelayQueue, obs ports.Observability, taps ...ports.BroadcastTap) *Hub {
	return &Hub{
		relay:      relay,
		registry:   NewRegistry(),
		taps:       taps,
		obs:        obs,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Register hands a new connection to the hub goroutine.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.close()
	}
}

// Unregister is safe to call multiple times for the same client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Run serves until ctx is cancelled. Wake-ups from the relay queue are
// coalesced: one drain covers every envelope pushed since the last.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, c := range h.registry.Snapshot() {
				h.registry.Remove(c)
				c.close()
			}
			h.obs.SetGauge(ports.MetricClientsConnected, 0)
			return

		case c := <-h.register:
			h.registry.Add(c)
			h.obs.SetGauge(ports.MetricClientsConnected, float64(h.registry.Len()))

		case c := <-h.unregister:
			h.registry.Remove(c)
			c.close()
			h.obs.SetGauge(ports.MetricClientsConnected, float64(h.registry.Len()))

		case <-h.relay.Wake():
			h.broadcastPending()
		}
	}
}

// broadcastPending drains the queue and fans each envelope out to the
// current registry snapshot. Failed clients are collected and removed
// only after the full pass, so one slow client never affects delivery
// to the rest. An empty registry still consumes the queue.
func (h *Hub) broadcastPending() {
	envelopes := h.relay.DrainAll()

	for _, env := range envelopes {
		frame, err := json.Marshal(env)
		if err != nil {
			h.obs.LogError("envelope marshal failed", err,
				ports.Field{Key: "topic", Value: env.Topic})
			continue
		}
		h.obs.IncCounter(ports.MetricEnvelopesRelayed, 1)

		var failed []*Client
		for _, c := range h.registry.Snapshot() {
			if c.trySend(frame) {
				h.obs.IncCounter(ports.MetricBroadcastSends, 1)
			} else {
				failed = append(failed, c)
			}
		}
		for _, c := range failed {
			h.registry.Remove(c)
			c.close()
			h.obs.IncCounter(ports.MetricBroadcastFailures, 1)
		}
		if len(failed) > 0 {
			h.obs.SetGauge(ports.MetricClientsConnected, float64(h.registry.Len()))
		}

		h.deliverToTaps(env)
	}

	h.obs.SetGauge(ports.MetricQueueLength, float64(h.relay.Len()))
}

func (h *Hub) deliverToTaps(env domain.Envelope) {
	for _, tap := range h.taps {
		if err := tap.Deliver(env); err != nil {
			h.obs.LogWarn("tap delivery failed",
				ports.Field{Key: "tap", Value: tap.Name()},
				ports.Field{Key: "error", Value: err.Error()})
		}
	}
}
