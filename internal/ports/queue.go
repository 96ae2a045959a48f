package ports

import "github.com/Poltergeis/api-local-websockets/internal/domain"

// RelayQueue bridges broker callback threads and the serving
// goroutine. Push appends and signals the wake channel; DrainAll is
// called only from the serving goroutine and empties the queue in
// arrival order.
type RelayQueue interface {
	EnvelopeSink

	// DrainAll removes and returns every queued envelope. A second
	// call before any further Push returns nil.
	DrainAll() []domain.Envelope

	// Wake is signalled after one or more pushes. Multiple pushes may
	// coalesce into a single signal.
	Wake() <-chan struct{}

	Len() int
}
