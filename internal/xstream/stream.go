// Package xstream implements Redis-style stream entries keyed by a
// 128-bit StreamId, per spec §3/§4.1.
package xstream

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ID is the (ms, seq) pair identifying a stream entry. IDs strictly
// increase within a stream.
type ID struct {
	Ms  uint64
	Seq uint64
}

func (id ID) String() string { return fmt.Sprintf("%d-%d", id.Ms, id.Seq) }

// Less reports whether id sorts before other.
func (id ID) Less(other ID) bool {
	if id.Ms != other.Ms {
		return id.Ms < other.Ms
	}
	return id.Seq < other.Seq
}

// ParseID parses "ms-seq", "ms", "-", or "+" forms used by XRANGE
// bounds; seqDefault supplies the sequence when omitted.
func ParseID(s string, seqDefault uint64) (ID, error) {
	if s == "-" {
		return ID{0, 0}, nil
	}
	if s == "+" {
		return ID{^uint64(0), ^uint64(0)}, nil
	}
	parts := strings.SplitN(s, "-", 2)
	ms, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("invalid stream ID %q", s)
	}
	seq := seqDefault
	if len(parts) == 2 {
		seq, err = strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return ID{}, fmt.Errorf("invalid stream ID %q", s)
		}
	}
	return ID{Ms: ms, Seq: seq}, nil
}

// Field is one (name, value) pair carried by an entry.
type Field struct {
	Name, Value string
}

// Entry is one stream record.
type Entry struct {
	ID     ID
	Fields []Field
}

// Stream is an append-mostly ordered sequence of entries.
type Stream struct {
	entries  []Entry // kept sorted by ID
	lastID   ID
	maxSeqAtMs map[uint64]uint64
}

func New() *Stream {
	return &Stream{maxSeqAtMs: make(map[uint64]uint64)}
}

// NextID generates an ID from wall-clock milliseconds, with a
// monotonic sequence bump on clock collision, per spec §3.
func (s *Stream) NextID(nowMs uint64) ID {
	if nowMs <= s.lastID.Ms {
		return ID{Ms: s.lastID.Ms, Seq: s.lastID.Seq + 1}
	}
	return ID{Ms: nowMs, Seq: 0}
}

// Add appends an entry. id must be strictly greater than the last
// entry's ID; the caller (XADD handler) is responsible for generating
// or validating it first.
func (s *Stream) Add(id ID, fields []Field) error {
	if len(s.entries) > 0 && !s.lastID.Less(id) {
		return fmt.Errorf("The ID specified in XADD is equal or smaller than the target stream top item")
	}
	s.entries = append(s.entries, Entry{ID: id, Fields: fields})
	s.lastID = id
	return nil
}

// Len returns the number of entries.
func (s *Stream) Len() int { return len(s.entries) }

// LastID returns the most recently added ID.
func (s *Stream) LastID() ID { return s.lastID }

// Range returns entries with start <= ID <= end, inclusive, in
// ascending order.
func (s *Stream) Range(start, end ID) []Entry {
	lo := sort.Search(len(s.entries), func(i int) bool { return !s.entries[i].ID.Less(start) })
	var out []Entry
	for i := lo; i < len(s.entries) && !end.Less(s.entries[i].ID); i++ {
		out = append(out, s.entries[i])
	}
	return out
}

// RevRange returns the same entries as Range but in descending order.
func (s *Stream) RevRange(start, end ID) []Entry {
	entries := s.Range(start, end)
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

// Trim keeps only the most recent maxLen entries, returning the
// number removed.
func (s *Stream) Trim(maxLen int) int {
	if len(s.entries) <= maxLen {
		return 0
	}
	removed := len(s.entries) - maxLen
	s.entries = append([]Entry(nil), s.entries[removed:]...)
	return removed
}

// Delete removes entries matching any of ids, returning the count
// removed.
func (s *Stream) Delete(ids []ID) int {
	want := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if _, drop := want[e.ID]; drop {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed
}

// SizeEstimate returns a rough byte count for memory accounting.
func (s *Stream) SizeEstimate() int64 {
	var n int64
	for _, e := range s.entries {
		n += 24
		for _, f := range e.Fields {
			n += int64(len(f.Name) + len(f.Value) + 8)
		}
	}
	return n
}
