package storage

import (
	"math"

	"github.com/edirooss/vermilion/internal/cmderr"
	"github.com/edirooss/vermilion/internal/zset"
)

// ZAdd inserts or rescoring members, returning the number newly added
// (matching ZADD's default return value, not counting rescored
// members). NaN scores are rejected per spec §3/§4.2.
func (db *Database) ZAdd(key string, members []zset.Entry) (int, error) {
	for _, m := range members {
		if math.IsNaN(m.Score) {
			return 0, cmderr.New("value is not a valid float")
		}
	}
	var added int
	err := db.mutate(key, KindZSet, func() Value {
		return Value{Kind: KindZSet, ZSet: zset.New()}
	}, func(sv *StoredValue) error {
		for _, m := range members {
			if sv.ZSet.Insert(m.Member, m.Score) {
				added++
			}
		}
		return nil
	})
	if err == errKeyAbsent {
		err = nil
	}
	return added, err
}

// ZRem removes members, returning the number removed.
func (db *Database) ZRem(key string, members []string) (int, error) {
	var removed int
	err := db.mutate(key, KindZSet, nil, func(sv *StoredValue) error {
		for _, m := range members {
			if sv.ZSet.Remove(m) {
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
	if sv, ok := db.data[key]; ok && sv.Kind == KindZSet && sv.ZSet.Len() == 0 {
		delete(db.data, key)
	}
	db.mu.Unlock()

	return removed, nil
}

// ZScore returns member's score, or (0, false) if absent.
func (db *Database) ZScore(key, member string) (float64, bool, error) {
	sv, err := db.view(key, KindZSet)
	if err != nil || sv == nil {
		return 0, false, err
	}
	s, ok := sv.ZSet.Score(member)
	return s, ok, nil
}

// ZRank returns member's rank (ascending by default, or descending if
// reverse), or (0, false) if absent.
func (db *Database) ZRank(key, member string, reverse bool) (int64, bool, error) {
	sv, err := db.view(key, KindZSet)
	if err != nil || sv == nil {
		return 0, false, err
	}
	var r int64
	if reverse {
		r = sv.ZSet.ReverseRank(member)
	} else {
		r = sv.ZSet.Rank(member)
	}
	if r < 0 {
		return 0, false, nil
	}
	return r, true, nil
}

// ZRange returns entries for ranks [start,stop].
func (db *Database) ZRange(key string, start, stop int64, reverse bool) ([]zset.Entry, error) {
	sv, err := db.view(key, KindZSet)
	if err != nil || sv == nil {
		return nil, err
	}
	return sv.ZSet.RangeByRank(start, stop, reverse), nil
}

// ZRangeByScore returns entries with score in [min,max].
func (db *Database) ZRangeByScore(key string, min, max float64, reverse bool) ([]zset.Entry, error) {
	sv, err := db.view(key, KindZSet)
	if err != nil || sv == nil {
		return nil, err
	}
	return sv.ZSet.RangeByScore(min, max, reverse), nil
}

// ZCount returns the number of members with score in [min,max].
func (db *Database) ZCount(key string, min, max float64) (int64, error) {
	sv, err := db.view(key, KindZSet)
	if err != nil || sv == nil {
		return 0, err
	}
	return sv.ZSet.Count(min, max), nil
}

// ZIncrBy adds delta to member's score (creating the set and/or
// member at 0 first if absent), returning the new score.
func (db *Database) ZIncrBy(key, member string, delta float64) (float64, error) {
	var result float64
	err := db.mutate(key, KindZSet, func() Value {
		return Value{Kind: KindZSet, ZSet: zset.New()}
	}, func(sv *StoredValue) error {
		cur, _ := sv.ZSet.Score(member)
		result = cur + delta
		if math.IsNaN(result) {
			return cmderr.New("resulting score is not a number (NaN)")
		}
		sv.ZSet.Insert(member, result)
		return nil
	})
	if err == errKeyAbsent {
		err = nil
	}
	return result, err
}

// ZCard returns the number of members, 0 if absent.
func (db *Database) ZCard(key string) (int64, error) {
	sv, err := db.view(key, KindZSet)
	if err != nil || sv == nil {
		return 0, err
	}
	return sv.ZSet.Len(), nil
}
