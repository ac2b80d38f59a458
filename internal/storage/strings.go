package storage

import (
	"math"
	"strconv"
	"time"

	"github.com/edirooss/vermilion/internal/cmderr"
)

// SetOptions mirrors the SET command's option set from spec §4.1.
type SetOptions struct {
	NX  bool
	XX  bool
	TTL time.Duration // zero means no expiration change
}

// Get returns the string value for key, or (nil, nil) if absent.
func (db *Database) Get(key string) ([]byte, error) {
	sv, err := db.view(key, KindString)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, nil
	}
	return sv.Str, nil
}

// Set stores value under key per opts. Returns false if NX/XX
// preconditions were not met (and nothing was mutated).
func (db *Database) Set(key string, value []byte, opts SetOptions) (bool, error) {
	if opts.NX && opts.XX {
		return false, cmderr.ErrSyntax
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	sv, exists := db.data[key]
	if exists && sv.ExpiresAt != nil && !sv.ExpiresAt.After(now()) {
		exists = false
		delete(db.data, key)
	}

	if opts.NX && exists {
		return false, nil
	}
	if opts.XX && !exists {
		return false, nil
	}

	nsv := newStoredValue(Value{Kind: KindString, Str: append([]byte(nil), value...)})
	if opts.TTL > 0 {
		t := now().Add(opts.TTL)
		nsv.ExpiresAt = &t
	}
	if exists {
		nsv.ModCounter = sv.ModCounter + 1
	} else {
		nsv.ModCounter = 1
	}
	db.data[key] = nsv
	return true, nil
}

// Incr is shorthand for IncrBy(key, 1).
func (db *Database) Incr(key string) (int64, error) { return db.IncrBy(key, 1) }

// Decr is shorthand for IncrBy(key, -1).
func (db *Database) Decr(key string) (int64, error) { return db.IncrBy(key, -1) }

// IncrBy parses the string value as a base-10 int64 and adds delta,
// creating the key at 0 first if absent. Detects overflow per spec
// §4.1.
func (db *Database) IncrBy(key string, delta int64) (int64, error) {
	var result int64
	err := db.mutate(key, KindString, func() Value {
		return Value{Kind: KindString, Str: []byte("0")}
	}, func(sv *StoredValue) error {
		cur, err := strconv.ParseInt(string(sv.Str), 10, 64)
		if err != nil {
			return cmderr.ErrNotInteger
		}
		if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
			return cmderr.ErrOverflow
		}
		result = cur + delta
		sv.Str = []byte(strconv.FormatInt(result, 10))
		return nil
	})
	if err == errKeyAbsent {
		err = nil
	}
	return result, err
}

// IncrByFloat parses the string value as a float64 and adds delta.
func (db *Database) IncrByFloat(key string, delta float64) (float64, error) {
	var result float64
	err := db.mutate(key, KindString, func() Value {
		return Value{Kind: KindString, Str: []byte("0")}
	}, func(sv *StoredValue) error {
		cur, err := strconv.ParseFloat(string(sv.Str), 64)
		if err != nil {
			return cmderr.ErrNotFloat
		}
		result = cur + delta
		if math.IsNaN(result) || math.IsInf(result, 0) {
			return cmderr.New("increment would produce NaN or Infinity")
		}
		sv.Str = []byte(strconv.FormatFloat(result, 'f', -1, 64))
		return nil
	})
	if err == errKeyAbsent {
		err = nil
	}
	return result, err
}

// Append appends value to key's string (creating it empty first if
// absent), returning the resulting length.
func (db *Database) Append(key string, value []byte) (int, error) {
	var length int
	err := db.mutate(key, KindString, func() Value {
		return Value{Kind: KindString, Str: nil}
	}, func(sv *StoredValue) error {
		sv.Str = append(sv.Str, value...)
		length = len(sv.Str)
		return nil
	})
	return length, err
}

// StrLen returns the length of key's string value, 0 if absent.
func (db *Database) StrLen(key string) (int, error) {
	sv, err := db.view(key, KindString)
	if err != nil || sv == nil {
		return 0, err
	}
	return len(sv.Str), nil
}

// MGet fetches multiple string keys at once, nil entries for missing
// or wrong-typed keys (MGET never errors on type mismatch; it just
// treats the key as missing, matching stock Redis behavior).
func (db *Database) MGet(keys []string) [][]byte {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		sv := db.lookup(k)
		if sv != nil && sv.Kind == KindString {
			out[i] = sv.Str
		}
	}
	return out
}
