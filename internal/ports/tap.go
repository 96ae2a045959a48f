package ports

import "github.com/Poltergeis/api-local-websockets/internal/domain"

// BroadcastTap receives every envelope fanned out by the dispatcher,
// in addition to the WebSocket clients. Deliver errors are isolated
// per tap and never abort a broadcast pass.
type BroadcastTap interface {
	Deliver(e domain.Envelope) error
	Name() string
}
