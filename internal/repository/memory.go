package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"go-trade-journal/internal/model"
)

// MemoryDocumentStore is an in-memory document backend with the same
// last-write-wins semantics as the Postgres one. It backs tests and hosts
// that run without a database.
type MemoryDocumentStore struct {
	mu        sync.Mutex
	documents map[string][]byte
	origin    string
	available bool
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		documents: make(map[string][]byte),
		origin:    uuid.NewString(),
		available: true,
	}
}

func (s *MemoryDocumentStore) Origin() string {
	return s.origin
}

// SetAvailable toggles simulated backend outage.
func (s *MemoryDocumentStore) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = available
}

func (s *MemoryDocumentStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return nil, model.ErrStorageUnavailable
	}

	body, ok := s.documents[key]
	if !ok {
		return nil, nil
	}

	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

func (s *MemoryDocumentStore) Save(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return model.ErrStorageUnavailable
	}

	stored := make([]byte, len(body))
	copy(stored, body)
	s.documents[key] = stored
	return nil
}

func (s *MemoryDocumentStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return model.ErrStorageUnavailable
	}
	return nil
}

// MemorySessionRepository is the archived-session counterpart, used when the
// host runs without a reachable database.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]model.TradingSession
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]model.TradingSession)}
}

func (r *MemorySessionRepository) GetByID(_ context.Context, id string) (*model.TradingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrSessionNotFound, id)
	}
	session.Operations = append([]model.Operation(nil), session.Operations...)
	return &session, nil
}

func (r *MemorySessionRepository) Upsert(_ context.Context, session *model.TradingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *session
	stored.Operations = append([]model.Operation(nil), session.Operations...)
	r.sessions[session.ID] = stored
	return nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *MemorySessionRepository) List(_ context.Context) ([]model.TradingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.TradingSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}
