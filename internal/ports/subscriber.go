package ports

import "github.com/Poltergeis/api-local-websockets/internal/domain"

// EnvelopeSink receives normalized broker messages. Push must be safe
// to call from any goroutine, including broker callback threads, and
// must never block.
type EnvelopeSink interface {
	Push(e domain.Envelope)
}

// Subscriber streams envelopes from a device-facing source (MQTT,
// OPC UA, in-process publishers) into the relay.
type Subscriber interface {
	Start(out EnvelopeSink) error
	Stop() error
}
