// Package store implements the typed key space: strings, lists and hashes
// under one namespace, with lazily enforced per-key expiry. A single
// exclusive lock covers the whole key space, so every exported operation is
// atomic and all operations across all connections are totally ordered.
package store

import (
	"errors"
	"sync"
	"time"
)

// ErrWrongType is returned when an operation's required value variant does
// not match the variant already stored under the key. It never mutates state.
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

// Kind tags the value variant held under a key.
type Kind byte

const (
	KindString Kind = iota + 1
	KindList
	KindHash
)

// entry is the tagged union for a single key. Exactly one payload field is
// populated, according to kind.
type entry struct {
	kind Kind
	str  []byte
	list [][]byte
	hash map[string][]byte
}

// ExpiryStatus reports the TTL state of a key.
type ExpiryStatus int

const (
	// ExpNotFound means that the key does not exist
	ExpNotFound ExpiryStatus = -2
	// ExpNoTimeout means that the key exists, but it does not have a TTL
	ExpNoTimeout ExpiryStatus = -1
	// ExpActive means that the key has an active lifetime
	ExpActive ExpiryStatus = 1
)

// Store owns the key space. It is an explicitly constructed, shared handle:
// every connection handler and the persistence task hold the same *Store.
type Store struct {
	mu      sync.Mutex
	data    map[string]*entry
	expires map[string]int64 // key -> absolute expiry, unix nanoseconds
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		data:    make(map[string]*entry),
		expires: make(map[string]int64),
	}
}

// expireIfDue is the expiry gate: the first step of every keyed operation.
// A key whose timestamp is at or before now is removed, value and expiry
// entry together, and treated as absent by the caller. mu must be held.
func (s *Store) expireIfDue(key string, now int64) {
	if exp, ok := s.expires[key]; ok && exp <= now {
		delete(s.data, key)
		delete(s.expires, key)
	}
}

// lookup returns the live entry under key, or nil if absent. Returns
// ErrWrongType if the key holds a different variant. mu must be held and
// the expiry gate must already have run.
func (s *Store) lookup(key string, kind Kind) (*entry, error) {
	e, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	if e.kind != kind {
		return nil, ErrWrongType
	}
	return e, nil
}

// removeKey drops a key and its expiry entry together. mu must be held.
func (s *Store) removeKey(key string) {
	delete(s.data, key)
	delete(s.expires, key)
}

// Del deletes the given keys. Returns how many of them existed.
func (s *Store) Del(keys ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	var deleted int64
	for _, key := range keys {
		s.expireIfDue(key, now)
		if _, ok := s.data[key]; ok {
			s.removeKey(key)
			deleted++
		}
	}
	return deleted
}

// Exists returns how many of the given keys exist, counting duplicates.
func (s *Store) Exists(keys ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	var found int64
	for _, key := range keys {
		s.expireIfDue(key, now)
		if _, ok := s.data[key]; ok {
			found++
		}
	}
	return found
}

// Expire attaches an absolute expiry of now+ttl to an existing key.
// Returns false if the key does not exist. A non-positive ttl deletes the
// key immediately.
func (s *Store) Expire(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	s.expireIfDue(key, now)

	if _, ok := s.data[key]; !ok {
		return false
	}

	if ttl <= 0 {
		s.removeKey(key)
		return true
	}

	s.expires[key] = now + int64(ttl)
	return true
}

// TTL returns the remaining lifetime and its status.
func (s *Store) TTL(key string) (time.Duration, ExpiryStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	s.expireIfDue(key, now)

	if _, ok := s.data[key]; !ok {
		return 0, ExpNotFound
	}
	exp, ok := s.expires[key]
	if !ok {
		return 0, ExpNoTimeout
	}
	return time.Duration(exp - now), ExpActive
}

// Persist removes the expiry of the key, making it eternal. Returns true
// only if the key exists and had a TTL to clear.
func (s *Store) Persist(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	s.expireIfDue(key, now)

	if _, ok := s.data[key]; !ok {
		return false
	}
	if _, ok := s.expires[key]; !ok {
		return false
	}
	delete(s.expires, key)
	return true
}

// Keys returns all live keys matching the glob pattern. Expired keys are
// reaped as a side effect of being touched by the scan.
func (s *Store) Keys(pattern string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		if exp, ok := s.expires[key]; ok && exp <= now {
			s.removeKey(key)
			continue
		}
		if matchGlob(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// FlushAll clears the entire key space, expiry entries included.
func (s *Store) FlushAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*entry)
	s.expires = make(map[string]int64)
}

// Len reports the number of keys currently stored, expired ones included
// until their next touch.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
