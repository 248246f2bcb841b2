package store

import "time"

// Record is one key's worth of snapshot state: the payload matching Kind
// plus the optional absolute expiry. Records are deep copies, safe to hold
// after the store lock is released.
type Record struct {
	Key      string
	Kind     Kind
	Str      []byte
	List     [][]byte
	Hash     map[string][]byte
	ExpireAt int64 // unix nanoseconds, 0 means no TTL
}

// Snapshot copies the entire live key space under the lock. Keys already
// past their expiry are excluded. The caller performs any disk I/O after
// the lock is released, so a save never observes a torn mid-command state
// and never blocks clients for the duration of the write.
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()

	records := make([]Record, 0, len(s.data))
	for key, e := range s.data {
		exp := s.expires[key]
		if exp != 0 && exp <= now {
			continue
		}

		rec := Record{
			Key:      key,
			Kind:     e.kind,
			ExpireAt: exp,
		}
		switch e.kind {
		case KindString:
			rec.Str = append([]byte(nil), e.str...)
		case KindList:
			rec.List = make([][]byte, len(e.list))
			for i, v := range e.list {
				rec.List[i] = append([]byte(nil), v...)
			}
		case KindHash:
			rec.Hash = make(map[string][]byte, len(e.hash))
			for f, v := range e.hash {
				rec.Hash[f] = append([]byte(nil), v...)
			}
		}
		records = append(records, rec)
	}
	return records
}

// Restore replaces the key space with the given records in one step: the
// store is either fully populated or untouched, never partially loaded.
// Records whose expiry has already elapsed are dropped, as are empty lists
// and hashes, so the no-empty-aggregate invariant holds after a load.
func (s *Store) Restore(records []Record) {
	data := make(map[string]*entry, len(records))
	expires := make(map[string]int64)

	now := time.Now().UnixNano()
	for _, rec := range records {
		if rec.ExpireAt != 0 && rec.ExpireAt <= now {
			continue
		}

		e := &entry{kind: rec.Kind}
		switch rec.Kind {
		case KindString:
			e.str = rec.Str
		case KindList:
			if len(rec.List) == 0 {
				continue
			}
			e.list = rec.List
		case KindHash:
			if len(rec.Hash) == 0 {
				continue
			}
			e.hash = rec.Hash
		default:
			continue
		}

		data[rec.Key] = e
		if rec.ExpireAt != 0 {
			expires[rec.Key] = rec.ExpireAt
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.expires = expires
}
