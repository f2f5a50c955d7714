package drafts

import (
	"context"
	"sync"
	"time"
)

// Store persists drafts. Update applies fn atomically and persists the
// result only when fn returns nil.
type Store interface {
	Create(ctx context.Context, d Draft) error
	Get(ctx context.Context, id string) (Draft, error)
	Update(ctx context.Context, id string, fn func(*Draft) error) (Draft, error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	draft   Draft
	expires time.Time
}

// MemoryStore keeps drafts in process. Entries expire ttl after their last
// write.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(d.ID); ok {
		return ErrExists
	}
	s.entries[d.ID] = memoryEntry{draft: clone(d), expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(id)
	if !ok {
		return Draft{}, ErrNotFound
	}
	return clone(e.draft), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Draft) error) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(id)
	if !ok {
		return Draft{}, ErrNotFound
	}
	d := clone(e.draft)
	if err := fn(&d); err != nil {
		return Draft{}, err
	}
	s.entries[id] = memoryEntry{draft: clone(d), expires: s.now().Add(s.ttl)}
	return d, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(id); !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) live(id string) (memoryEntry, bool) {
	e, ok := s.entries[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, id)
		return memoryEntry{}, false
	}
	return e, true
}

// clone detaches the slices a caller could mutate.
func clone(d Draft) Draft {
	c := d
	r := &c.Recurrence
	r.Base = append(r.Base[:0:0], r.Base...)
	r.Result.Valid = append(r.Result.Valid[:0:0], r.Result.Valid...)
	r.Result.Conflicting = append(r.Result.Conflicting[:0:0], r.Result.Conflicting...)
	if r.Rule.Until != nil {
		until := *r.Rule.Until
		r.Rule.Until = &until
	}
	return c
}
