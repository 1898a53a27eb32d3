package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go-trade-journal/internal/model"
)

// ActiveSessionState is the in-memory holder of the single active trading
// session. Get hands out a copy; callers publish edits through Set.
type ActiveSessionState struct {
	mu      sync.RWMutex
	session *model.TradingSession
}

func NewActiveSessionState() *ActiveSessionState {
	return &ActiveSessionState{}
}

func (s *ActiveSessionState) Get() *model.TradingSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSession(s.session)
}

func (s *ActiveSessionState) Set(session *model.TradingSession) {
	s.mu.Lock()
	s.session = cloneSession(session)
	s.mu.Unlock()
}

func (s *ActiveSessionState) Clear() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

func cloneSession(src *model.TradingSession) *model.TradingSession {
	if src == nil {
		return nil
	}
	out := *src
	out.Operations = append([]model.Operation(nil), src.Operations...)
	out.Plan = append([]string(nil), src.Plan...)
	if src.EndedAt != nil {
		t := *src.EndedAt
		out.EndedAt = &t
	}
	return &out
}

// CollectionEntry is one record inside an in-memory host collection.
type CollectionEntry struct {
	OriginalID string          `json:"original_id"`
	Payload    json.RawMessage `json:"payload"`
}

// MemoryCollectionStore keeps simple journal collections (tags, notes,
// configs, analyses) in memory, keyed by category. Reinsertion replaces an
// entry that shares the original id, so restoring twice cannot duplicate.
type MemoryCollectionStore struct {
	mu          sync.RWMutex
	collections map[model.Category][]CollectionEntry
}

func NewMemoryCollectionStore() *MemoryCollectionStore {
	return &MemoryCollectionStore{
		collections: make(map[model.Category][]CollectionEntry),
	}
}

func (m *MemoryCollectionStore) Reinsert(_ context.Context, category model.Category, originalID string, payload json.RawMessage) error {
	if !category.Valid() {
		return fmt.Errorf("%w: unknown category %q", model.ErrInvalidInput, category)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.collections[category]
	for i, e := range entries {
		if originalID != "" && e.OriginalID == originalID {
			entries[i].Payload = payload
			return nil
		}
	}
	m.collections[category] = append(entries, CollectionEntry{OriginalID: originalID, Payload: payload})
	return nil
}

// List returns the entries of one collection.
func (m *MemoryCollectionStore) List(category model.Category) []CollectionEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CollectionEntry(nil), m.collections[category]...)
}
