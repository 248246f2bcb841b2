package store

import "time"

// SetOptions mirror the SET command modifiers.
type SetOptions struct {
	TTL     time.Duration // key lifetime, 0 means no TTL
	KeepTTL bool          // retain the existing TTL (ignore TTL field)
	NX      bool          // only set if the key does not exist
	XX      bool          // only set if the key already exists
}

// Get returns the string value under key. The second return reports whether
// the key exists; ErrWrongType if the key holds a list or hash.
func (s *Store) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key, time.Now().UnixNano())

	e, err := s.lookup(key, KindString)
	if err != nil {
		return nil, false, err
	}
	if e == nil {
		return nil, false, nil
	}
	return e.str, true, nil
}

// Set writes a string value under key, replacing any existing variant.
// Returns false when an NX/XX condition was not met and nothing was written.
func (s *Store) Set(key string, value []byte, options SetOptions) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	s.expireIfDue(key, now)

	_, exists := s.data[key]
	if options.NX && exists {
		return false
	}
	if options.XX && !exists {
		return false
	}

	s.data[key] = &entry{kind: KindString, str: value}

	switch {
	case options.KeepTTL:
		// retain whatever expiry the key had; a fresh key simply has none
		if !exists {
			delete(s.expires, key)
		}
	case options.TTL > 0:
		s.expires[key] = now + int64(options.TTL)
	default:
		// a plain SET removes any previous expiry
		delete(s.expires, key)
	}

	return true
}
