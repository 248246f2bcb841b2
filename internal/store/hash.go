package store

import "time"

// HSet sets fields in the hash under key, creating the hash when absent.
// Pairs are alternating field, value. Returns the number of fields that
// were newly added (overwrites do not count).
func (s *Store) HSet(key string, pairs ...[]byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key, time.Now().UnixNano())

	e, err := s.lookup(key, KindHash)
	if err != nil {
		return 0, err
	}
	if e == nil {
		e = &entry{kind: KindHash, hash: make(map[string][]byte)}
		s.data[key] = e
	}

	var added int64
	for i := 0; i+1 < len(pairs); i += 2 {
		field := string(pairs[i])
		if _, ok := e.hash[field]; !ok {
			added++
		}
		e.hash[field] = pairs[i+1]
	}
	return added, nil
}

// HGet returns the value of a single hash field. The boolean reports
// whether the key and field both exist.
func (s *Store) HGet(key, field string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key, time.Now().UnixNano())

	e, err := s.lookup(key, KindHash)
	if err != nil {
		return nil, false, err
	}
	if e == nil {
		return nil, false, nil
	}
	v, ok := e.hash[field]
	return v, ok, nil
}

// HDel removes fields from the hash under key and returns how many existed.
// A hash drained to empty is removed from the key space entirely.
func (s *Store) HDel(key string, fields ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key, time.Now().UnixNano())

	e, err := s.lookup(key, KindHash)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return 0, nil
	}

	var deleted int64
	for _, field := range fields {
		if _, ok := e.hash[field]; ok {
			delete(e.hash, field)
			deleted++
		}
	}

	if len(e.hash) == 0 {
		s.removeKey(key)
	}
	return deleted, nil
}

// HGetAll returns a copy of all fields and values of the hash under key.
// An absent key yields an empty map.
func (s *Store) HGetAll(key string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key, time.Now().UnixNano())

	e, err := s.lookup(key, KindHash)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return map[string][]byte{}, nil
	}

	out := make(map[string][]byte, len(e.hash))
	for f, v := range e.hash {
		out[f] = v
	}
	return out, nil
}

// HExists reports whether the field exists in the hash under key.
func (s *Store) HExists(key, field string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key, time.Now().UnixNano())

	e, err := s.lookup(key, KindHash)
	if err != nil {
		return false, err
	}
	if e == nil {
		return false, nil
	}
	_, ok := e.hash[field]
	return ok, nil
}
