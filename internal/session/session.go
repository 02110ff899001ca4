// Package session is an in-memory TTL store for per-user conversational
// state. Entries expire so an abandoned dialog cannot leak memory forever.
package session

import (
	"sync"
	"time"
)

type entry[V any] struct {
	v   V
	exp time.Time
}

// Store maps a user id to a session value with TTL eviction.
// The zero TTL defaults to one hour.
type Store[V any] struct {
	mu sync.Mutex

	ttl time.Duration

	// cleanupInterval controls how often we run an O(n) sweep to drop
	// expired entries, instead of scanning the whole map on every access.
	cleanupInterval time.Duration
	nextCleanup     time.Time

	m map[int64]entry[V]
}

func NewStore[V any](ttl time.Duration) *Store[V] {
	if ttl <= 0 {
		ttl = time.Hour
	}
	ci := time.Minute
	if ttl < 10*time.Minute {
		ci = ttl / 10
	}
	return &Store[V]{
		ttl:             ttl,
		cleanupInterval: ci,
		m:               map[int64]entry[V]{},
	}
}

// Get returns the live session for id, if any. Expired entries read as absent.
func (s *Store[V]) Get(id int64) (V, bool) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeSweep(now)

	e, ok := s.m[id]
	if !ok || now.After(e.exp) {
		var zero V
		delete(s.m, id)
		return zero, false
	}
	return e.v, true
}

// Put stores v for id, resetting its TTL.
func (s *Store[V]) Put(id int64, v V) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeSweep(now)
	s.m[id] = entry[V]{v: v, exp: now.Add(s.ttl)}
}

// Delete drops the session for id.
func (s *Store[V]) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}

// Len returns the number of stored entries, expired ones included until
// the next sweep.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *Store[V]) maybeSweep(now time.Time) {
	if now.Before(s.nextCleanup) {
		return
	}
	s.nextCleanup = now.Add(s.cleanupInterval)
	for id, e := range s.m {
		if now.After(e.exp) {
			delete(s.m, id)
		}
	}
}
