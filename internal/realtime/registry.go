package realtime

import (
	"sort"
	"sync"
	"time"

	"github.com/hqv2016/salonpulse/pkg/metrics"
)

// Identity captures who a connection authenticated as. It is set once at
// connect time and never mutated for the lifetime of the connection.
type Identity struct {
	UserID  string `json:"user_id,omitempty"`
	Role    string `json:"role,omitempty"`
	StaffID string `json:"staff_id,omitempty"`
}

type connRecord struct {
	identity        Identity
	connectedAt     time.Time
	lastHeartbeatAt time.Time
}

// Registry tracks every live realtime session and derives staff presence from
// it. A staff member is online exactly while at least one of their connections
// is registered.
//
// All operations are O(1) map updates under the lock; no I/O happens while the
// lock is held, so register/unregister from unboundedly many connections do
// not serialize any delivery work.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]*connRecord
	presence map[string]map[string]struct{} // staffID -> set of connection ids
	now      func() time.Time
}

// NewRegistry constructs an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[string]*connRecord),
		presence: make(map[string]map[string]struct{}),
		now:      time.Now,
	}
}

// Register records a new connection. It reports whether this connection took
// the staff member from offline to online (0 -> 1 transition). The transition
// is decided under the same lock as the map update, so two simultaneous
// connects for one staff member yield exactly one true result.
func (r *Registry) Register(connID string, identity Identity) (cameOnline bool) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[connID]; exists {
		return false
	}

	r.conns[connID] = &connRecord{
		identity:        identity,
		connectedAt:     now,
		lastHeartbeatAt: now,
	}
	metrics.ActiveConnections.Set(float64(len(r.conns)))

	if identity.StaffID == "" {
		return false
	}

	set := r.presence[identity.StaffID]
	if set == nil {
		set = make(map[string]struct{})
		r.presence[identity.StaffID] = set
	}
	set[connID] = struct{}{}
	metrics.OnlineStaff.Set(float64(len(r.presence)))

	return len(set) == 1
}

// Unregister removes a connection. It returns the identity the connection held
// and whether its removal took the staff member offline (1 -> 0 transition).
func (r *Registry) Unregister(connID string) (identity Identity, wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.conns[connID]
	if !ok {
		return Identity{}, false
	}

	delete(r.conns, connID)
	metrics.ActiveConnections.Set(float64(len(r.conns)))

	identity = record.identity
	if identity.StaffID == "" {
		return identity, false
	}

	set := r.presence[identity.StaffID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.presence, identity.StaffID)
		wentOffline = true
	}
	metrics.OnlineStaff.Set(float64(len(r.presence)))

	return identity, wentOffline
}

// Touch records a heartbeat for the connection.
func (r *Registry) Touch(connID string) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if record, ok := r.conns[connID]; ok {
		record.lastHeartbeatAt = now
	}
}

// Identity returns the identity a connection registered with.
func (r *Registry) Identity(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.conns[connID]
	if !ok {
		return Identity{}, false
	}
	return record.identity, true
}

// IsOnline reports whether the staff member has at least one live connection.
func (r *Registry) IsOnline(staffID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.presence[staffID]) > 0
}

// OnlineStaff returns the sorted ids of all staff members currently online.
func (r *Registry) OnlineStaff() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.presence))
	for staffID := range r.presence {
		ids = append(ids, staffID)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// StaleConnections returns connections whose last heartbeat is older than the
// supplied maximum age. Used by the maintenance sweep to reap sessions whose
// transport never noticed the peer going away.
func (r *Registry) StaleConnections(maxAge time.Duration) []string {
	cutoff := r.now().Add(-maxAge)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []string
	for connID, record := range r.conns {
		if record.lastHeartbeatAt.Before(cutoff) {
			stale = append(stale, connID)
		}
	}
	return stale
}
