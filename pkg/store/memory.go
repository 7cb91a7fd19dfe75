package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

type memEntry struct {
	doc     []byte
	version int64
	retired bool
}

// MemoryStore keeps encoded documents in a map. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.Mutex
	instances map[string]*memEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{instances: make(map[string]*memEntry)}
}

func (s *MemoryStore) Create(_ context.Context, id string, rec *contracts.Record) error {
	doc, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[id]; ok {
		return fmt.Errorf("%w: %s", ErrExists, id)
	}
	s.instances[id] = &memEntry{doc: doc, version: 1}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (Versioned, error) {
	s.mu.Lock()
	e, ok := s.instances[id]
	var (
		doc     []byte
		version int64
		retired bool
	)
	if ok {
		doc, version, retired = e.doc, e.version, e.retired
	}
	s.mu.Unlock()

	if !ok {
		return Versioned{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if retired {
		return Versioned{}, fmt.Errorf("%w: %s", ErrRetired, id)
	}
	rec, err := decodeRecord(doc)
	if err != nil {
		return Versioned{}, err
	}
	return Versioned{ID: id, Record: rec, Version: version}, nil
}

func (s *MemoryStore) Replace(_ context.Context, id string, expected int64, next *contracts.Record) (int64, error) {
	doc, err := encodeRecord(next)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.live(id, expected)
	if err != nil {
		return 0, err
	}
	e.doc = doc
	e.version++
	return e.version, nil
}

func (s *MemoryStore) Retire(_ context.Context, id string, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.live(id, expected)
	if err != nil {
		return err
	}
	e.retired = true
	e.version++
	return nil
}

// live must be called with mu held.
func (s *MemoryStore) live(id string, expected int64) (*memEntry, error) {
	e, ok := s.instances[id]
	switch {
	case !ok:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case e.retired:
		return nil, fmt.Errorf("%w: %s", ErrRetired, id)
	case e.version != expected:
		return nil, fmt.Errorf("%w: %s at %d, expected %d", ErrStaleVersion, id, e.version, expected)
	}
	return e, nil
}
