package storage

import (
	"testing"
	"time"

	"github.com/edirooss/vermilion/internal/cmderr"
)

func newTestDB() *Database {
	return newDatabase()
}

func TestModCounterStrictlyIncreases(t *testing.T) {
	db := newTestDB()
	if _, err := db.Set("k", []byte("1"), SetOptions{}); err != nil {
		t.Fatal(err)
	}
	var last uint64
	for i := 0; i < 5; i++ {
		if _, err := db.Incr("k"); err != nil {
			t.Fatal(err)
		}
		cur, _ := db.ModCounter("k")
		if cur <= last {
			t.Fatalf("mod counter did not strictly increase: %d -> %d", last, cur)
		}
		last = cur
	}
}

func TestWrongTypeLeavesValueUnchanged(t *testing.T) {
	db := newTestDB()
	db.Set("k", []byte("hello"), SetOptions{})
	before, _ := db.ModCounter("k")

	if _, _, err := db.HGet("k", "f"); err != cmderr.ErrWrongType {
		t.Fatalf("expected WRONGTYPE, got %v", err)
	}
	if _, err := db.LPush("k", [][]byte{[]byte("x")}); err != cmderr.ErrWrongType {
		t.Fatalf("expected WRONGTYPE, got %v", err)
	}

	after, _ := db.ModCounter("k")
	if before != after {
		t.Fatalf("mod counter changed on failed WRONGTYPE op: %d -> %d", before, after)
	}
	v, _ := db.Get("k")
	if string(v) != "hello" {
		t.Fatalf("value mutated by failed WRONGTYPE op: %q", v)
	}
}

func TestSetNXXXConflict(t *testing.T) {
	db := newTestDB()
	if _, err := db.Set("k", []byte("v"), SetOptions{NX: true, XX: true}); err != cmderr.ErrSyntax {
		t.Fatalf("expected syntax error, got %v", err)
	}
}

func TestExpirationLazyAccess(t *testing.T) {
	db := newTestDB()
	db.Set("k", []byte("v"), SetOptions{})

	realNow := now
	defer func() { now = realNow }()

	base := time.Unix(1000, 0)
	now = func() time.Time { return base }
	db.Expire("k", base.Add(1*time.Second))

	now = func() time.Time { return base.Add(500 * time.Millisecond) }
	if !db.Exists("k") {
		t.Fatal("key should still be reachable before TTL elapses")
	}

	now = func() time.Time { return base.Add(1500 * time.Millisecond) }
	if db.Exists("k") {
		t.Fatal("key should be expired after TTL elapses")
	}
	if ttl, exists := db.TTL("k"); exists || ttl != nil {
		t.Fatalf("expired key should report not-found, got ttl=%v exists=%v", ttl, exists)
	}
}

func TestDeleteFreesKey(t *testing.T) {
	db := newTestDB()
	db.Set("k", []byte("v"), SetOptions{})
	if !db.Delete("k") {
		t.Fatal("expected Delete to report existed")
	}
	if db.Exists("k") {
		t.Fatal("key should not exist after delete")
	}
}

func TestIncrOverflow(t *testing.T) {
	db := newTestDB()
	db.Set("k", []byte("9223372036854775807"), SetOptions{})
	if _, err := db.Incr("k"); err != cmderr.ErrOverflow {
		t.Fatalf("expected overflow error, got %v", err)
	}
}

func TestListEmptiedKeyIsDeleted(t *testing.T) {
	db := newTestDB()
	db.RPush("k", [][]byte{[]byte("a")})
	db.LPop("k", 1)
	if db.Exists("k") {
		t.Fatal("emptied list should be deleted")
	}
}

func TestWatchBaselineSemantics(t *testing.T) {
	db := newTestDB()
	db.Set("k", []byte("1"), SetOptions{})
	baseline, _ := db.ModCounter("k")
	if db.WasModifiedSince("k", baseline) {
		t.Fatal("unmodified key should not report modified")
	}
	db.Incr("k")
	if !db.WasModifiedSince("k", baseline) {
		t.Fatal("modified key should report modified")
	}
}

func TestWatchBaselineOnDeletedKeyConflicts(t *testing.T) {
	db := newTestDB()
	db.Set("k", []byte("1"), SetOptions{})
	baseline, _ := db.ModCounter("k")
	db.Delete("k")
	if !db.WasModifiedSince("k", baseline) {
		t.Fatal("deleted watched key should report modified/conflict")
	}
}
