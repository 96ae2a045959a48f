package bridge

// Registry is the set of live client connections. It has no internal
// locking: every call happens on the hub goroutine, which owns all
// registry mutation. Snapshot exists so the dispatcher can iterate a
// stable member list while failures queue removals for after the pass.
type Registry struct {
	members map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[*Client]struct{})}
}

func (r *Registry) Add(c *Client) {
	r.members[c] = struct{}{}
}

// Remove is idempotent; removing an absent client is a no-op.
func (r *Registry) Remove(c *Client) {
	delete(r.members, c)
}

func (r *Registry) Snapshot() []*Client {
	out := make([]*Client, 0, len(r.members))
	for c := range r.members {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.members)
}
