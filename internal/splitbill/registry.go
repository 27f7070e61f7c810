package splitbill

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tillfront/checkout/internal/catalog"
	"github.com/tillfront/checkout/internal/pricing"
)

// Registry holds the live split sessions by order id. Each register session
// owns exactly one split session per order; closing the screen removes it.
type Registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Open returns the existing session for the order, or creates one over the
// given snapshot and lines.
func (r *Registry) Open(orderID uuid.UUID, snap *catalog.Snapshot, lines []pricing.Line) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[orderID]; ok {
		return s
	}
	s := NewSession(snap, lines)
	r.sessions[orderID] = s
	return s
}

// Get returns the session for the order, if one is open.
func (r *Registry) Get(orderID uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[orderID]
	return s, ok
}

// Close drops the order's session. Split state is register-session-scoped
// and never persisted.
func (r *Registry) Close(orderID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, orderID)
}
