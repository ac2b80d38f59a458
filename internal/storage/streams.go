package storage

import (
	"github.com/edirooss/vermilion/internal/xstream"
)

// XAdd appends an entry under id, or under an ID generated from nowMs
// when auto is set (callers pass the "*" auto-ID form this way).
func (db *Database) XAdd(key string, id xstream.ID, auto bool, nowMs uint64, fields []xstream.Field) (xstream.ID, error) {
	var result xstream.ID
	err := db.mutate(key, KindStream, func() Value {
		return Value{Kind: KindStream, Stream: xstream.New()}
	}, func(sv *StoredValue) error {
		if auto {
			id = sv.Stream.NextID(nowMs)
		}
		if err := sv.Stream.Add(id, fields); err != nil {
			return err
		}
		result = id
		return nil
	})
	return result, err
}

// XRange returns entries with start <= ID <= end, ascending.
func (db *Database) XRange(key string, start, end xstream.ID) ([]xstream.Entry, error) {
	sv, err := db.view(key, KindStream)
	if err != nil || sv == nil {
		return nil, err
	}
	return sv.Stream.Range(start, end), nil
}

// XRevRange is XRange in descending order.
func (db *Database) XRevRange(key string, start, end xstream.ID) ([]xstream.Entry, error) {
	sv, err := db.view(key, KindStream)
	if err != nil || sv == nil {
		return nil, err
	}
	return sv.Stream.RevRange(start, end), nil
}

// XLen returns the number of entries, 0 if absent.
func (db *Database) XLen(key string) (int, error) {
	sv, err := db.view(key, KindStream)
	if err != nil || sv == nil {
		return 0, err
	}
	return sv.Stream.Len(), nil
}

// XTrim keeps only the most recent maxLen entries, returning the
// number removed.
func (db *Database) XTrim(key string, maxLen int) (int, error) {
	var removed int
	err := db.mutate(key, KindStream, nil, func(sv *StoredValue) error {
		removed = sv.Stream.Trim(maxLen)
		return nil
	})
	if err == errKeyAbsent {
		return 0, nil
	}
	return removed, err
}

// XDel removes specific entry IDs, returning the number removed.
func (db *Database) XDel(key string, ids []xstream.ID) (int, error) {
	var removed int
	err := db.mutate(key, KindStream, nil, func(sv *StoredValue) error {
		removed = sv.Stream.Delete(ids)
		return nil
	})
	if err == errKeyAbsent {
		return 0, nil
	}
	return removed, err
}

// XLast returns the stream's last ID, or the zero ID if absent.
func (db *Database) XLast(key string) (xstream.ID, error) {
	sv, err := db.view(key, KindStream)
	if err != nil || sv == nil {
		return xstream.ID{}, err
	}
	return sv.Stream.LastID(), nil
}
