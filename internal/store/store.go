package store

import (
	"context"
	"errors"
	"sync"

	"stopdesk/internal/domain"
)

// FieldDeskURLCode is the secondary display code field searched by the
// fallback lookup.
const FieldDeskURLCode = "desk_url_code"

var ErrNotFound = errors.New("document not found")

// DocumentStore is the read side of the stop collection: get by key and
// find the first document whose field equals a value. A field the store
// does not index matches nothing and yields ErrNotFound.
type DocumentStore interface {
	Get(ctx context.Context, key string) (*domain.RawStop, error)
	FindOne(ctx context.Context, field, value string) (*domain.RawStop, error)
	Ping(ctx context.Context) error
	Close() error
}

// MemoryStore keeps stop documents in a map keyed by document id.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]*domain.RawStop
	byDesk map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string]*domain.RawStop),
		byDesk: make(map[string]string),
	}
}

func (s *MemoryStore) Put(key string, doc *domain.RawStop) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.docs[key]; ok && old.DeskURLCode != "" {
		if s.byDesk[old.DeskURLCode] == key {
			delete(s.byDesk, old.DeskURLCode)
		}
	}

	copy := *doc
	s.docs[key] = &copy
	if doc.DeskURLCode != "" {
		if _, taken := s.byDesk[doc.DeskURLCode]; !taken {
			s.byDesk[doc.DeskURLCode] = key
		}
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*domain.RawStop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *doc
	return &copy, nil
}

func (s *MemoryStore) FindOne(ctx context.Context, field, value string) (*domain.RawStop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if field != FieldDeskURLCode {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.byDesk[value]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *s.docs[key]
	return &copy, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}
