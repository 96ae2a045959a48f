package relaybridge

import (
	"errors"
	"fmt"
	"sync"
)

// ErrChannelTapClosed is returned when a channel tap receives an
// envelope after being closed.
var ErrChannelTapClosed = errors.New("relaybridge: channel tap closed")

// EnvelopeFunc handles one broadcast envelope.
type EnvelopeFunc func(Envelope) error

// NewCallbackTap adapts a function into a BroadcastTap so callers can
// observe broadcasts without defining structs.
func NewCallbackTap(name string, fn EnvelopeFunc) BroadcastTap {
	if name == "" {
		name = "callback"
	}
	return &callbackTap{name: name, fn: fn}
}

// NewChannelTap exposes broadcasts via a channel; it returns the tap,
// the read-only channel, and a close function the caller should invoke
// during shutdown. A full channel drops the envelope rather than stall
// the broadcast pass.
func NewChannelTap(name string, buffer int) (BroadcastTap, <-chan Envelope, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Envelope, buffer)
	t := &channelTap{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return t, ch, func() { t.close() }
}

type callbackTap struct {
	name string
	fn   EnvelopeFunc
}

func (t *callbackTap) Deliver(e Envelope) error {
	if t.fn == nil {
		return fmt.Errorf("callback tap %q: nil handler", t.name)
	}
	return t.fn(e)
}

func (t *callbackTap) Name() string { return t.name }

type channelTap struct {
	name   string
	ch     chan Envelope
	closed chan struct{}
	once   sync.Once
}

func (t *channelTap) Deliver(e Envelope) error {
	select {
	case <-t.closed:
		return ErrChannelTapClosed
	default:
	}

	select {
	case <-t.closed:
		return ErrChannelTapClosed
	case t.ch <- e:
		return nil
	default:
		return fmt.Errorf("channel tap %q: buffer full", t.name)
	}
}

func (t *channelTap) Name() string { return t.name }

func (t *channelTap) close() {
	t.once.Do(func() {
		close(t.closed)
		close(t.ch)
	})
}
