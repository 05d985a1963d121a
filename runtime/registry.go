// Package runtime hosts the live parts of the system: the connection
// registry, the conversation resolver, and the message fan-out pipeline.
package runtime

import (
	"sync"

	"pairchat/contract"
)

// Registry is the process-wide presence map: user ID -> open connections.
// A user owns zero, one, or many connections (multiple devices or tabs).
//
// All methods are safe to call from independent connection lifecycles.
// ConnectionsOf returns a snapshot, never the internal bucket, so callers
// can iterate while other sessions register or deregister.
type Registry struct {
	mu      sync.RWMutex
	byUser  map[string]map[string]contract.LiveConnection // userID -> connID -> conn
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]map[string]contract.LiveConnection)}
}

// Register adds conn to the user's bucket. Registering the same connection
// twice is a no-op, keyed by its connection ID.
func (r *Registry) Register(userID string, conn contract.LiveConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.byUser[userID]
	if !ok {
		bucket = make(map[string]contract.LiveConnection)
		r.byUser[userID] = bucket
	}
	bucket[conn.ID()] = conn
}

// Deregister removes conn from the user's bucket. Removing an absent
// connection is a no-op, which covers the close-then-cleanup race.
// Empty buckets are deleted so the map doesn't grow with user churn.
func (r *Registry) Deregister(userID string, conn contract.LiveConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.byUser[userID]
	if !ok {
		return
	}
	delete(bucket, conn.ID())
	if len(bucket) == 0 {
		delete(r.byUser, userID)
	}
}

// ConnectionsOf returns a copy of the user's current connections.
// Nil when the user has no open session.
func (r *Registry) ConnectionsOf(userID string) []contract.LiveConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	snapshot := make([]contract.LiveConnection, 0, len(bucket))
	for _, conn := range bucket {
		snapshot = append(snapshot, conn)
	}
	return snapshot
}

// Online reports whether the user currently owns at least one connection.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}
