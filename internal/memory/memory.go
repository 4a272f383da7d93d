package memory

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Get for keys that are missing or expired.
var ErrNotFound = errors.New("memory: key not found")

type item struct {
	value    []byte
	expireAt time.Time
}

func (it item) expired(now time.Time) bool {
	return !it.expireAt.IsZero() && now.After(it.expireAt)
}

// Storage is a thread-safe in-memory key/value store with optional TTLs.
// Expired items are never returned and are swept by a cleanup goroutine
// when one is configured.
type Storage struct {
	mu    sync.RWMutex
	items map[string]item

	stop chan struct{}
	once sync.Once
}

// New creates a new memory storage instance.
// The cleanupInterval parameter specifies how often to check for and remove expired items.
// If cleanupInterval is zero or negative, automatic cleanup is disabled.
func New(cleanupInterval time.Duration) *Storage {
	s := &Storage{items: make(map[string]item)}
	if cleanupInterval > 0 {
		s.stop = make(chan struct{})
		go s.run(cleanupInterval)
	}
	return s
}

func (s *Storage) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

// Get returns a copy of the value stored for key.
func (s *Storage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if it.expired(time.Now()) {
		s.mu.Lock()
		// the key may have been set again meanwhile
		if cur, ok := s.items[key]; ok && cur.expired(time.Now()) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return append([]byte(nil), it.value...), nil
}

// Set stores a copy of value for key. A positive ttl makes the item expire
// after that duration.
func (s *Storage) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	it := item{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expireAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored items, expired ones included until they
// are swept.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (s *Storage) Close() error {
	if s.stop != nil {
		s.once.Do(func() { close(s.stop) })
	}
	return nil
}

func (s *Storage) cleanup() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, it := range s.items {
		if it.expired(now) {
			delete(s.items, key)
		}
	}
}
