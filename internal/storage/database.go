package storage

import (
	"sync"
	"time"

	"github.com/edirooss/vermilion/internal/cmderr"
)

// Database is one logical keyspace among the Engine's N databases.
// All mutation goes through the single reactor goroutine (spec §5);
// the mutex exists to let background tasks (bgsave) take a consistent
// read-only snapshot without observing torn mutations.
type Database struct {
	mu   sync.RWMutex
	data map[string]*StoredValue
}

func newDatabase() *Database {
	return &Database{data: make(map[string]*StoredValue)}
}

// now is overridable in tests that need deterministic expiry checks.
var now = time.Now

// lookup returns the live value for key, applying lazy expiration
// (spec §3 invariant: exists(k) iff value present and not expired).
// It takes db.mu itself (a read lock for the probe; expired keys are
// deleted under a short-lived write lock), so callers must not hold it.
func (db *Database) lookup(key string) *StoredValue {
	db.mu.RLock()
	sv, ok := db.data[key]
	db.mu.RUnlock()
	if !ok {
		return nil
	}
	if sv.ExpiresAt != nil && !sv.ExpiresAt.After(now()) {
		db.mu.Lock()
		if cur, ok := db.data[key]; ok && cur == sv {
			delete(db.data, key)
		}
		db.mu.Unlock()
		return nil
	}
	return sv
}

// Exists reports whether key is present and unexpired.
func (db *Database) Exists(key string) bool { return db.lookup(key) != nil }

// Delete removes key unconditionally. Returns true if it existed.
func (db *Database) Delete(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.data[key]; ok {
		delete(db.data, key)
		return true
	}
	return false
}

// Type returns the key's Kind and whether it exists.
func (db *Database) Type(key string) (Kind, bool) {
	sv := db.lookup(key)
	if sv == nil {
		return 0, false
	}
	return sv.Kind, true
}

// Expire sets an absolute expiration time on an existing key. Returns
// false if the key does not exist.
func (db *Database) Expire(key string, at time.Time) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	sv, ok := db.data[key]
	if !ok {
		return false
	}
	sv.ExpiresAt = &at
	return true
}

// Persist removes any TTL on key. Returns true if a TTL was removed.
func (db *Database) Persist(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	sv, ok := db.data[key]
	if !ok || sv.ExpiresAt == nil {
		return false
	}
	sv.ExpiresAt = nil
	return true
}

// TTL returns remaining time-to-live: nil if no TTL, otherwise the
// duration until expiry. Caller maps this to the wire's -1/-2/seconds
// encoding.
func (db *Database) TTL(key string) (ttl *time.Duration, exists bool) {
	sv := db.lookup(key)
	if sv == nil {
		return nil, false
	}
	if sv.ExpiresAt == nil {
		return nil, true
	}
	d := sv.ExpiresAt.Sub(now())
	if d < 0 {
		d = 0
	}
	return &d, true
}

// Keys returns every live key. Lazy-expires as it scans.
func (db *Database) Keys() []string {
	db.mu.RLock()
	candidates := make([]string, 0, len(db.data))
	for k := range db.data {
		candidates = append(candidates, k)
	}
	db.mu.RUnlock()

	out := make([]string, 0, len(candidates))
	for _, k := range candidates {
		if db.lookup(k) != nil {
			out = append(out, k)
		}
	}
	return out
}

// Flush empties the database.
func (db *Database) Flush() {
	db.mu.Lock()
	db.data = make(map[string]*StoredValue)
	db.mu.Unlock()
}

// ModCounter returns the key's modification counter, or 0 with
// exists=false if absent.
func (db *Database) ModCounter(key string) (counter uint64, exists bool) {
	sv := db.lookup(key)
	if sv == nil {
		return 0, false
	}
	return sv.ModCounter, true
}

// WasModifiedSince reports whether key's mod counter is greater than
// baseline, OR the key no longer exists (spec's WATCH semantics treat
// deletion as a conflict too).
func (db *Database) WasModifiedSince(key string, baseline uint64) bool {
	cur, exists := db.ModCounter(key)
	if !exists {
		return true
	}
	return cur > baseline
}

// MemoryUsage returns the cached byte estimate for key, or -1 if
// absent.
func (db *Database) MemoryUsage(key string) int64 {
	sv := db.lookup(key)
	if sv == nil {
		return -1
	}
	return sv.SizeBytes
}

// TotalMemory sums every live key's cached size estimate.
func (db *Database) TotalMemory() int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var total int64
	for _, sv := range db.data {
		total += sv.SizeBytes
	}
	return total
}

// Len returns the number of (possibly expired-but-not-yet-reaped) keys.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.data)
}

// snapshotView returns a stable copy of (key -> *StoredValue) for the
// background save path. Values themselves are not deep-copied: the
// single-writer discipline (spec §5) means no other goroutine mutates
// them while a save is in flight, and the reactor does not start a
// second save concurrently.
func (db *Database) snapshotView() map[string]*StoredValue {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[string]*StoredValue, len(db.data))
	for k, v := range db.data {
		if v.ExpiresAt != nil && !v.ExpiresAt.After(now()) {
			continue
		}
		out[k] = v
	}
	return out
}

// mutate fetches-or-creates the StoredValue for key, verifying its
// kind matches wantKind when it already exists (WRONGTYPE per spec
// §4.1), then invokes fn to apply the change, then bumps mod_counter
// and recomputes size. fn must not itself change sv.Kind.
func (db *Database) mutate(key string, wantKind Kind, createIfAbsent func() Value, fn func(sv *StoredValue) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	sv, ok := db.data[key]
	if ok && sv.ExpiresAt != nil && !sv.ExpiresAt.After(now()) {
		ok = false
		delete(db.data, key)
	}
	if !ok {
		if createIfAbsent == nil {
			return errKeyAbsent
		}
		sv = newStoredValue(createIfAbsent())
		db.data[key] = sv
	} else if sv.Kind != wantKind {
		return cmderr.ErrWrongType
	}

	if err := fn(sv); err != nil {
		return err
	}
	sv.ModCounter++
	sv.recomputeSize()
	return nil
}

// errKeyAbsent is an internal sentinel distinguishing "no such key"
// from WRONGTYPE inside mutate; handlers translate it to whatever
// reply (nil, :0, etc.) the specific command wants for a missing key.
var errKeyAbsent = cmderr.New("no such key")

// view fetches the StoredValue for key if present and of wantKind,
// without mutating. Returns (nil, nil) if absent, or WRONGTYPE if the
// kind mismatches.
func (db *Database) view(key string, wantKind Kind) (*StoredValue, error) {
	sv := db.lookup(key)
	if sv == nil {
		return nil, nil
	}
	if sv.Kind != wantKind {
		return nil, cmderr.ErrWrongType
	}
	return sv, nil
}
