package storage

import (
	"math"
	"strconv"

	"github.com/edirooss/vermilion/internal/cmderr"
)

// HSet sets field/value pairs on the hash at key, returning the number
// of fields newly created (not merely updated).
func (db *Database) HSet(key string, pairs map[string]string) (int, error) {
	var created int
	err := db.mutate(key, KindHash, func() Value {
		return Value{Kind: KindHash, Hash: make(map[string]string)}
	}, func(sv *StoredValue) error {
		for f, v := range pairs {
			if _, exists := sv.Hash[f]; !exists {
				created++
			}
			sv.Hash[f] = v
		}
		return nil
	})
	if err == errKeyAbsent {
		err = nil
	}
	return created, err
}

// HGet returns a single field's value, or (nil, false) if the field
// or key is absent.
func (db *Database) HGet(key, field string) ([]byte, bool, error) {
	sv, err := db.view(key, KindHash)
	if err != nil || sv == nil {
		return nil, false, err
	}
	v, ok := sv.Hash[field]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

// HMGet returns values for each requested field, nil entries for
// fields or keys that don't exist.
func (db *Database) HMGet(key string, fields []string) ([][]byte, error) {
	sv, err := db.view(key, KindHash)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(fields))
	if sv == nil {
		return out, nil
	}
	for i, f := range fields {
		if v, ok := sv.Hash[f]; ok {
			out[i] = []byte(v)
		}
	}
	return out, nil
}

// HGetAll returns the full field/value map, nil if absent.
func (db *Database) HGetAll(key string) (map[string]string, error) {
	sv, err := db.view(key, KindHash)
	if err != nil || sv == nil {
		return nil, err
	}
	out := make(map[string]string, len(sv.Hash))
	for k, v := range sv.Hash {
		out[k] = v
	}
	return out, nil
}

// HDel removes fields, returning the number actually removed.
func (db *Database) HDel(key string, fields []string) (int, error) {
	var removed int
	err := db.mutate(key, KindHash, nil, func(sv *StoredValue) error {
		for _, f := range fields {
			if _, exists := sv.Hash[f]; exists {
				delete(sv.Hash, f)
				removed++
			}
		}
		return nil
	})
	if err == errKeyAbsent {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	db.mu.Lock()
	if sv, ok := db.data[key]; ok && sv.Kind == KindHash && len(sv.Hash) == 0 {
		delete(db.data, key)
	}
	db.mu.Unlock()

	return removed, nil
}

// HLen returns the number of fields, 0 if absent.
func (db *Database) HLen(key string) (int, error) {
	sv, err := db.view(key, KindHash)
	if err != nil || sv == nil {
		return 0, err
	}
	return len(sv.Hash), nil
}

// HExists reports whether field is present in the hash at key.
func (db *Database) HExists(key, field string) (bool, error) {
	sv, err := db.view(key, KindHash)
	if err != nil || sv == nil {
		return false, err
	}
	_, ok := sv.Hash[field]
	return ok, nil
}

// HKeys returns every field name.
func (db *Database) HKeys(key string) ([]string, error) {
	sv, err := db.view(key, KindHash)
	if err != nil || sv == nil {
		return nil, err
	}
	out := make([]string, 0, len(sv.Hash))
	for f := range sv.Hash {
		out = append(out, f)
	}
	return out, nil
}

// HVals returns every field value.
func (db *Database) HVals(key string) ([]string, error) {
	sv, err := db.view(key, KindHash)
	if err != nil || sv == nil {
		return nil, err
	}
	out := make([]string, 0, len(sv.Hash))
	for _, v := range sv.Hash {
		out = append(out, v)
	}
	return out, nil
}

// HIncrBy parses field's value as an int64 and adds delta, creating
// the hash and/or field at 0 first if absent.
func (db *Database) HIncrBy(key, field string, delta int64) (int64, error) {
	var result int64
	err := db.mutate(key, KindHash, func() Value {
		return Value{Kind: KindHash, Hash: make(map[string]string)}
	}, func(sv *StoredValue) error {
		cur := int64(0)
		if s, ok := sv.Hash[field]; ok {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return cmderr.ErrNotInteger
			}
			cur = v
		}
		if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
			return cmderr.ErrOverflow
		}
		result = cur + delta
		sv.Hash[field] = strconv.FormatInt(result, 10)
		return nil
	})
	if err == errKeyAbsent {
		err = nil
	}
	return result, err
}
