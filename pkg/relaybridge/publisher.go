package relaybridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Poltergeis/api-local-websockets/internal/domain"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// ErrPublisherStopped is returned when publishing after Stop, or before
// the runtime has started the publisher.
var ErrPublisherStopped = errors.New("relaybridge: publisher stopped")

// InProcessPublisher is a Subscriber whose envelopes come from the host
// process instead of a broker. Register it with WithSubscriber and call
// Publish to fan out application events to every connected client.
type InProcessPublisher struct {
	mu   sync.RWMutex
	sink ports.EnvelopeSink
}

func NewInProcessPublisher() *InProcessPublisher {
	return &InProcessPublisher{}
}

// Start is called by the runtime; callers never invoke it directly.
func (p *InProcessPublisher) Start(out ports.EnvelopeSink) error {
	if out == nil {
		return fmt.Errorf("envelope sink is required")
	}
	p.mu.Lock()
	p.sink = out
	p.mu.Unlock()
	return nil
}

func (p *InProcessPublisher) Stop() error {
	p.mu.Lock()
	p.sink = nil
	p.mu.Unlock()
	return nil
}

// Publish marshals payload and queues it for broadcast under topic.
// Safe to call from any goroutine; never blocks on slow clients.
func (p *InProcessPublisher) Publish(topic string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.PublishRaw(topic, raw)
}

// PublishRaw queues an already-encoded JSON payload.
func (p *InProcessPublisher) PublishRaw(topic string, payload json.RawMessage) error {
	p.mu.RLock()
	sink := p.sink
	p.mu.RUnlock()

	if sink == nil {
		return ErrPublisherStopped
	}
	sink.Push(domain.Envelope{Topic: topic, Payload: payload})
	return nil
}

var _ ports.Subscriber = (*InProcessPublisher)(nil)
