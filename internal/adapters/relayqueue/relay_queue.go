package relayqueue

import (
	"sync"

	"github.com/Poltergeis/api-local-websockets/internal/domain"
	"github.com/Poltergeis/api-local-websockets/internal/ports"
)

// Queue is an unbounded FIFO that hands envelopes from broker callback
// threads to the serving goroutine. Push never blocks; the wake channel
// carries at most one pending signal, so a burst of pushes coalesces
// into a single drain.
type Queue struct {
	mu   sync.Mutex
	data []domain.Envelope
	wake chan struct{}
}

func New() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
	}
}

func (q *Queue) Push(e domain.Envelope) {
	q.mu.Lock()
	q.data = append(q.data, e)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// DrainAll swaps the backing slice out under the lock so producers are
// never delayed by the consumer iterating.
func (q *Queue) DrainAll() []domain.Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	out := q.data
	q.data = nil
	return out
}

func (q *Queue) Wake() <-chan struct{} { return q.wake }

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.RelayQueue = (*Queue)(nil)
