// Package storage implements the multi-database keyspace from spec
// §3/§4.1: typed values, per-key TTL, atomic per-key modification
// counters, type-safe mutation, and memory accounting.
package storage

import (
	"container/list"
	"time"

	"github.com/edirooss/vermilion/internal/xstream"
	"github.com/edirooss/vermilion/internal/zset"
)

// Kind tags which union member of Value is populated.
type Kind int

const (
	KindString Kind = iota
	KindList
	KindSet
	KindHash
	KindZSet
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindHash:
		return "hash"
	case KindZSet:
		return "zset"
	case KindStream:
		return "stream"
	default:
		return "none"
	}
}

// Value is the tagged union of every storable representation, per
// spec §3.
type Value struct {
	Kind   Kind
	Str    []byte
	List   *list.List // element type: []byte
	Set    map[string]struct{}
	Hash   map[string]string
	ZSet   *zset.ZSet
	Stream *xstream.Stream
}

// StoredValue is the record associated with a key: its typed value,
// optional absolute expiration, and monotone modification counter.
type StoredValue struct {
	Value
	ExpiresAt  *time.Time
	ModCounter uint64
	SizeBytes  int64
}

func newStoredValue(v Value) *StoredValue {
	sv := &StoredValue{Value: v}
	sv.recomputeSize()
	return sv
}

// recomputeSize updates the cached byte estimate used for memory
// reporting (spec §4.1 "Memory accounting").
func (sv *StoredValue) recomputeSize() {
	const overhead = 64 // per-entry bookkeeping estimate
	var n int64 = overhead
	switch sv.Kind {
	case KindString:
		n += int64(len(sv.Str))
	case KindList:
		for e := sv.List.Front(); e != nil; e = e.Next() {
			n += int64(len(e.Value.([]byte))) + 16
		}
	case KindSet:
		for m := range sv.Set {
			n += int64(len(m)) + 16
		}
	case KindHash:
		for k, v := range sv.Hash {
			n += int64(len(k)) + int64(len(v)) + 24
		}
	case KindZSet:
		for _, e := range sv.ZSet.All() {
			n += int64(len(e.Member)) + 24
		}
	case KindStream:
		n += sv.Stream.SizeEstimate()
	}
	sv.SizeBytes = n
}
