package picnic

import (
	"context"
	"fmt"
	"sync"

	"github.com/pricelens/backend/internal/domain"
)

// Registry holds the authenticated session of each household.
// The owner of the sessions registers and removes them; the connector only reads.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]domain.SessionClient
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]domain.SessionClient)}
}

// Register stores or replaces the session for a household
func (r *Registry) Register(householdID string, client domain.SessionClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[householdID] = client
}

// Remove forgets the session of a household
func (r *Registry) Remove(householdID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, householdID)
}

// Session implements domain.SessionProvider
func (r *Registry) Session(ctx context.Context, householdID string) (domain.SessionClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.sessions[householdID]
	if !ok || client == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrNoSession, householdID)
	}
	return client, nil
}

// Len returns the number of registered households
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
