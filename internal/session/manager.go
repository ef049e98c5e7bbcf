package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KyousabaMC/VeinMiner/internal/persistence/playerdb"
)

// Manager tracks the sessions of connected players. Add and Remove are
// called from the game loop; Get, All and Len may be called from anywhere.
type Manager struct {
	env   *Env
	store playerdb.Store

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	order    []uuid.UUID
}

// NewManager wires a manager to env. store may be nil for an ephemeral server.
func NewManager(env *Env, store playerdb.Store) *Manager {
	return &Manager{
		env:      env,
		store:    store,
		sessions: map[uuid.UUID]*Session{},
	}
}

// Add creates the session for a joining player from its stored record.
func (m *Manager) Add(ctx context.Context, p Player) (*Session, error) {
	id := p.UniqueID()
	m.mu.RLock()
	_, exists := m.sessions[id]
	m.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("session: player %s already connected", id)
	}

	var rec *playerdb.Record
	if m.store != nil {
		r, ok, err := m.store.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("session: load %s: %w", id, err)
		}
		if ok {
			rec = &r
		}
	}
	s := New(m.env, p, rec)

	m.mu.Lock()
	m.sessions[id] = s
	m.order = append(m.order, id)
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove disconnects and forgets the session. The caller flushes it.
func (m *Manager) Remove(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		for i, oid := range m.order {
			if oid == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()
	if ok {
		s.Disconnect()
	}
	return s, ok
}

// All returns sessions in join order.
func (m *Manager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sessions[id])
	}
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Flush saves s when it has unsaved changes. A failed save leaves s dirty.
func (m *Manager) Flush(ctx context.Context, s *Session) error {
	if m.store == nil || !s.IsDirty() {
		return nil
	}
	if err := m.store.Save(ctx, s.Snapshot()); err != nil {
		return err
	}
	s.SetDirty(false)
	return nil
}

// FlushAll saves every dirty session and returns how many were written.
func (m *Manager) FlushAll(ctx context.Context) (int, error) {
	n := 0
	for _, s := range m.All() {
		if !s.IsDirty() {
			continue
		}
		if err := m.Flush(ctx, s); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Reconfigure pushes a freshly swapped registry generation to every
// session: stale disabled categories are pruned and ready clients resynced.
func (m *Manager) Reconfigure() {
	regs := m.env.Registries()
	for _, s := range m.All() {
		s.PruneDisabledCategories()
		if regs != nil {
			s.SetClientConfig(regs.ClientConfig)
		}
		s.ResyncPatterns()
	}
	m.env.logger().Info("sessions reconfigured", zap.Int("sessions", m.Len()))
}
