package conn

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Registry is the table of connected players.
type Registry struct {
	mu      sync.Mutex
	handles map[uint64]*Handle
	nextID  atomic.Uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[uint64]*Handle)}
}

// NextID returns a fresh connection ID, starting at 1.
func (r *Registry) NextID() uint64 { return r.nextID.Add(1) }

// Add registers h.
func (r *Registry) Add(h *Handle) {
	r.mu.Lock()
	r.handles[h.ID()] = h
	r.mu.Unlock()
}

// Remove unregisters h and reports whether it was present.
func (r *Registry) Remove(h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handles[h.ID()] != h {
		return false
	}
	delete(r.handles, h.ID())
	return true
}

// Get looks up a handle by ID.
func (r *Registry) Get(id uint64) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	return h, ok
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Snapshot returns every registered handle ordered by ID.
func (r *Registry) Snapshot() []*Handle {
	r.mu.Lock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
