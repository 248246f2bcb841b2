package store

import "time"

// LPush prepends values to the list under key, creating it when absent.
// Values are inserted one by one, so LPush(k, a, b) leaves b at the head.
// Returns the resulting list length.
func (s *Store) LPush(key string, values ...[]byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key, time.Now().UnixNano())

	e, err := s.lookup(key, KindList)
	if err != nil {
		return 0, err
	}
	if e == nil {
		e = &entry{kind: KindList}
		s.data[key] = e
	}

	for _, v := range values {
		e.list = append([][]byte{v}, e.list...)
	}
	return int64(len(e.list)), nil
}

// RPush appends values to the list under key, creating it when absent.
// Returns the resulting list length.
func (s *Store) RPush(key string, values ...[]byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key, time.Now().UnixNano())

	e, err := s.lookup(key, KindList)
	if err != nil {
		return 0, err
	}
	if e == nil {
		e = &entry{kind: KindList}
		s.data[key] = e
	}

	e.list = append(e.list, values...)
	return int64(len(e.list)), nil
}

// LPop removes and returns the head of the list. The boolean reports
// whether an element was popped. A list drained to empty is removed from
// the key space entirely.
func (s *Store) LPop(key string) ([]byte, bool, error) {
	return s.pop(key, true)
}

// RPop removes and returns the tail of the list.
func (s *Store) RPop(key string) ([]byte, bool, error) {
	return s.pop(key, false)
}

func (s *Store) pop(key string, fromHead bool) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key, time.Now().UnixNano())

	e, err := s.lookup(key, KindList)
	if err != nil {
		return nil, false, err
	}
	if e == nil {
		return nil, false, nil
	}

	var v []byte
	if fromHead {
		v = e.list[0]
		e.list = e.list[1:]
	} else {
		v = e.list[len(e.list)-1]
		e.list = e.list[:len(e.list)-1]
	}

	if len(e.list) == 0 {
		s.removeKey(key)
	}
	return v, true, nil
}

// LLen returns the length of the list under key, 0 when the key is absent.
func (s *Store) LLen(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key, time.Now().UnixNano())

	e, err := s.lookup(key, KindList)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return 0, nil
	}
	return int64(len(e.list)), nil
}

// LRange returns the elements between start and stop inclusive. Negative
// indexes count from the tail, out-of-range indexes are clamped, and an
// inverted range yields an empty result.
func (s *Store) LRange(key string, start, stop int64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key, time.Now().UnixNano())

	e, err := s.lookup(key, KindList)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}

	n := int64(len(e.list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return nil, nil
	}

	out := make([][]byte, 0, stop-start+1)
	for _, v := range e.list[start : stop+1] {
		out = append(out, v)
	}
	return out, nil
}
