package session

import (
	"context"
	"sync"
	"time"

	"github.com/groupcar/groupcar-server/internal/domain"
)

// MemoryStore keeps session records in process memory. Suitable for
// development and tests; production deployments point at Redis so
// sessions survive restarts and are shared across replicas.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.Session
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]domain.Session), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, rec *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = *rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if expired(&rec, s.now()) {
		s.mu.Lock()
		delete(s.records, id)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Save(_ context.Context, rec *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return ErrSessionNotFound
	}
	s.records[rec.ID] = *rec
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}
