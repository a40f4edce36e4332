package notify

import "sync"

// Registry maps channel names to senders. Available lists names in
// registration order.
type Registry struct {
	mu      sync.RWMutex
	senders map[string]Sender
	order   []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[string]Sender)}
}

// Register adds or replaces the sender for name.
func (r *Registry) Register(name string, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.senders[name]; !exists {
		r.order = append(r.order, name)
	}
	r.senders[name] = s
}

// Lookup returns the sender registered under name.
func (r *Registry) Lookup(name string) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.senders[name]
	return s, ok
}

// Available returns the registered channel names in registration order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Resolve returns the effective channel set for a request. An empty request,
// or one naming any channel that is not registered, resolves to every
// available channel: an invalid entry invalidates the whole list rather than
// being filtered out. Duplicates collapse, first occurrence wins.
func (r *Registry) Resolve(requested []string) []string {
	if len(requested) == 0 {
		return r.Available()
	}
	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		if _, ok := r.Lookup(name); !ok {
			return r.Available()
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
