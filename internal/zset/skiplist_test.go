package zset

import (
	"math"
	"testing"
)

func TestInsertAndRank(t *testing.T) {
	z := New()
	z.Insert("c", 3)
	z.Insert("a", 1)
	z.Insert("b", 2)

	if z.Len() != 3 {
		t.Fatalf("len = %d, want 3", z.Len())
	}
	for i, m := range []string{"a", "b", "c"} {
		if r := z.Rank(m); r != int64(i) {
			t.Errorf("Rank(%q) = %d, want %d", m, r, i)
		}
	}
}

func TestRescoreIsDeleteThenInsert(t *testing.T) {
	z := New()
	z.Insert("a", 1)
	z.Insert("b", 2)
	z.Insert("c", 3)

	isNew := z.Insert("a", 2.5)
	if isNew {
		t.Fatal("rescoring an existing member should not report new")
	}
	if z.Len() != 3 {
		t.Fatalf("len = %d, want 3 (no duplicate)", z.Len())
	}
	// order should now be b(2), a(2.5), c(3)
	entries := z.RangeByRank(0, -1, false)
	want := []string{"b", "a", "c"}
	for i, e := range entries {
		if e.Member != want[i] {
			t.Errorf("entries[%d] = %s, want %s", i, e.Member, want[i])
		}
	}
}

func TestTieBreakByMemberLex(t *testing.T) {
	z := New()
	z.Insert("zebra", 1)
	z.Insert("apple", 1)
	entries := z.RangeByRank(0, -1, false)
	if entries[0].Member != "apple" || entries[1].Member != "zebra" {
		t.Fatalf("expected lex tie-break, got %v", entries)
	}
}

func TestReverseRank(t *testing.T) {
	z := New()
	for i, m := range []string{"a", "b", "c", "d"} {
		z.Insert(m, float64(i))
	}
	if got := z.ReverseRank("a"); got != 3 {
		t.Errorf("ReverseRank(a) = %d, want 3", got)
	}
	if got := z.ReverseRank("d"); got != 0 {
		t.Errorf("ReverseRank(d) = %d, want 0", got)
	}
}

func TestRangeByRankNegativeIndices(t *testing.T) {
	z := New()
	for i, m := range []string{"a", "b", "c", "d", "e"} {
		z.Insert(m, float64(i))
	}
	entries := z.RangeByRank(0, -1, false)
	if len(entries) != 5 {
		t.Fatalf("RangeByRank(0,-1) len = %d, want 5", len(entries))
	}
	entries = z.RangeByRank(-2, -1, false)
	if len(entries) != 2 || entries[0].Member != "d" || entries[1].Member != "e" {
		t.Fatalf("RangeByRank(-2,-1) = %v", entries)
	}
}

func TestRangeByRankEmptyWhenStartPastStop(t *testing.T) {
	z := New()
	z.Insert("a", 1)
	if entries := z.RangeByRank(2, 1, false); entries != nil {
		t.Fatalf("expected empty range, got %v", entries)
	}
}

func TestRangeByScore(t *testing.T) {
	z := New()
	z.Insert("a", 1)
	z.Insert("b", 2)
	z.Insert("c", 3)
	entries := z.RangeByScore(2, 3, false)
	if len(entries) != 2 || entries[0].Member != "b" || entries[1].Member != "c" {
		t.Fatalf("RangeByScore(2,3) = %v", entries)
	}
}

func TestInfiniteScoresSortAtExtremes(t *testing.T) {
	z := New()
	z.Insert("mid", 0)
	z.Insert("hi", math.Inf(1))
	z.Insert("lo", math.Inf(-1))
	entries := z.RangeByRank(0, -1, false)
	if entries[0].Member != "lo" || entries[2].Member != "hi" {
		t.Fatalf("expected lo,mid,hi order, got %v", entries)
	}
}

// Property: for all r in [0,n), the r-th element of RangeByRank(0,n-1)
// has rank r (spec §8 invariant 2), and the whole range is sorted by
// (score, member) (invariant 3).
func TestRankRangeConsistencyProperty(t *testing.T) {
	z := New()
	members := []string{"m0", "m1", "m2", "m3", "m4", "m5", "m6", "m7"}
	for i, m := range members {
		z.Insert(m, float64((i*37)%11))
	}
	n := z.Len()
	entries := z.RangeByRank(0, n-1, false)
	if int64(len(entries)) != n {
		t.Fatalf("range length = %d, want %d", len(entries), n)
	}
	for r, e := range entries {
		if z.Rank(e.Member) != int64(r) {
			t.Errorf("element at position %d (%s) has rank %d, want %d", r, e.Member, z.Rank(e.Member), r)
		}
		if r > 0 {
			prev := entries[r-1]
			if e.Score < prev.Score || (e.Score == prev.Score && e.Member < prev.Member) {
				t.Errorf("ordering violated at %d: %v after %v", r, e, prev)
			}
		}
	}
}

func TestRemove(t *testing.T) {
	z := New()
	z.Insert("a", 1)
	z.Insert("b", 2)
	if !z.Remove("a") {
		t.Fatal("expected Remove(a) to report existed")
	}
	if z.Remove("a") {
		t.Fatal("expected second Remove(a) to report absent")
	}
	if z.Len() != 1 {
		t.Fatalf("len = %d, want 1", z.Len())
	}
	if _, ok := z.Score("a"); ok {
		t.Fatal("a should no longer have a score")
	}
}
