package storage

import (
	"container/list"
)

// PushNotifier is invoked after a successful list push, letting the
// command layer's blocking registry (spec §4.3) wake a waiter without
// the storage engine importing that package.
type PushNotifier func(dbIndex int, key string)

// LPush prepends values (in argument order, so the last argument ends
// up at the head) and returns the resulting length.
func (db *Database) LPush(key string, values [][]byte) (int, error) {
	var length int
	err := db.mutate(key, KindList, func() Value {
		return Value{Kind: KindList, List: list.New()}
	}, func(sv *StoredValue) error {
		for _, v := range values {
			sv.List.PushFront(append([]byte(nil), v...))
		}
		length = sv.List.Len()
		return nil
	})
	if err == errKeyAbsent {
		err = nil
	}
	return length, err
}

// RPush appends values and returns the resulting length.
func (db *Database) RPush(key string, values [][]byte) (int, error) {
	var length int
	err := db.mutate(key, KindList, func() Value {
		return Value{Kind: KindList, List: list.New()}
	}, func(sv *StoredValue) error {
		for _, v := range values {
			sv.List.PushBack(append([]byte(nil), v...))
		}
		length = sv.List.Len()
		return nil
	})
	if err == errKeyAbsent {
		err = nil
	}
	return length, err
}

// LPop removes and returns up to count elements from the head. Returns
// (nil, nil) if the key does not exist.
func (db *Database) LPop(key string, count int) ([][]byte, error) {
	return db.listPop(key, count, true)
}

// RPop removes and returns up to count elements from the tail.
func (db *Database) RPop(key string, count int) ([][]byte, error) {
	return db.listPop(key, count, false)
}

func (db *Database) listPop(key string, count int, fromHead bool) ([][]byte, error) {
	var out [][]byte
	err := db.mutate(key, KindList, nil, func(sv *StoredValue) error {
		for i := 0; i < count && sv.List.Len() > 0; i++ {
			var e *list.Element
			if fromHead {
				e = sv.List.Front()
			} else {
				e = sv.List.Back()
			}
			out = append(out, e.Value.([]byte))
			sv.List.Remove(e)
		}
		return nil
	})
	if err == errKeyAbsent {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Clean up an emptied list so Exists()/TYPE reflect deletion,
	// matching Redis semantics (a list emptied by LPOP ceases to exist).
	db.mu.Lock()
	if sv, ok := db.data[key]; ok && sv.Kind == KindList && sv.List.Len() == 0 {
		delete(db.data, key)
	}
	db.mu.Unlock()

	return out, nil
}

// LLen returns the list length, 0 if absent.
func (db *Database) LLen(key string) (int, error) {
	sv, err := db.view(key, KindList)
	if err != nil || sv == nil {
		return 0, err
	}
	return sv.List.Len(), nil
}

// LRange returns elements [start,stop] inclusive with Redis-style
// negative-index normalisation, matching zset.RangeByRank semantics.
func (db *Database) LRange(key string, start, stop int) ([][]byte, error) {
	sv, err := db.view(key, KindList)
	if err != nil || sv == nil {
		return nil, err
	}

	n := sv.List.Len()
	start, stop, ok := normalizeIntRange(start, stop, n)
	if !ok {
		return nil, nil
	}

	out := make([][]byte, 0, stop-start+1)
	i := 0
	for e := sv.List.Front(); e != nil; e = e.Next() {
		if i > stop {
			break
		}
		if i >= start {
			out = append(out, e.Value.([]byte))
		}
		i++
	}
	return out, nil
}

// LIndex returns the element at index (negative counts from the end),
// or (nil, nil) if out of range.
func (db *Database) LIndex(key string, index int) ([]byte, error) {
	sv, err := db.view(key, KindList)
	if err != nil || sv == nil {
		return nil, err
	}
	n := sv.List.Len()
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n {
		return nil, nil
	}
	i := 0
	for e := sv.List.Front(); e != nil; e = e.Next() {
		if i == index {
			return e.Value.([]byte), nil
		}
		i++
	}
	return nil, nil
}

func normalizeIntRange(start, stop, n int) (int, int, bool) {
	if n == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += n
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n || stop < 0 {
		return 0, 0, false
	}
	return start, stop, true
}
