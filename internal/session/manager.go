package session

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supp-dex/instance-api/internal/adapter"
	"github.com/supp-dex/instance-api/internal/logger"
)

// Manager creates and resolves visitor sessions by opaque token
type Manager struct {
	store Store
	clock adapter.Clock
}

// NewManager creates a new session manager
func NewManager(store Store, clock adapter.Clock) *Manager {
	return &Manager{store: store, clock: clock}
}

// Resolve returns the live session for token, or mints a new token and empty
// session when the token is absent or unknown. created reports whether a new
// session was minted, in which case the caller must hand the token back to the
// visitor.
func (m *Manager) Resolve(token string) (string, *State, bool) {
	if token != "" {
		if s, ok := m.store.Get(token); ok {
			return token, s, false
		}
	}

	token = uuid.NewString()
	s := &State{createdAt: m.clock.Now()}
	m.store.Put(token, s)

	logger.Debug("Session created", zap.Int("live_sessions", m.store.Len()))
	return token, s, true
}
