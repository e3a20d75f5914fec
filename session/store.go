package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by a Store when no session exists for an ID.
var ErrNotFound = errors.New("session not found")

// Store persists sessions between requests. Implementations must treat
// sessions past their TTL as absent.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore is the default single-process Store; sessions die with the
// process.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	session *Session
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	if time.Now().After(entry.expires) {
		delete(m.sessions, id)

		return nil, ErrNotFound
	}

	return entry.session, nil
}

func (m *MemoryStore) Put(_ context.Context, sess *Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	for id, entry := range m.sessions {
		if now.After(entry.expires) {
			delete(m.sessions, id)
		}
	}

	m.sessions[sess.ID()] = memoryEntry{
		session: sess,
		expires: now.Add(ttl),
	}

	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)

	return nil
}
