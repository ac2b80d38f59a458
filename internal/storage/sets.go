package storage

// SAdd adds members to the set at key, returning the number newly added.
func (db *Database) SAdd(key string, members []string) (int, error) {
	var added int
	err := db.mutate(key, KindSet, func() Value {
		return Value{Kind: KindSet, Set: make(map[string]struct{})}
	}, func(sv *StoredValue) error {
		for _, m := range members {
			if _, exists := sv.Set[m]; !exists {
				sv.Set[m] = struct{}{}
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

// SRem removes members from the set, returning the number removed.
func (db *Database) SRem(key string, members []string) (int, error) {
	var removed int
	err := db.mutate(key, KindSet, nil, func(sv *StoredValue) error {
		for _, m := range members {
			if _, exists := sv.Set[m]; exists {
				delete(sv.Set, m)
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
	if sv, ok := db.data[key]; ok && sv.Kind == KindSet && len(sv.Set) == 0 {
		delete(db.data, key)
	}
	db.mu.Unlock()

	return removed, nil
}

// SMembers returns every member of the set, or nil if absent.
func (db *Database) SMembers(key string) ([]string, error) {
	sv, err := db.view(key, KindSet)
	if err != nil || sv == nil {
		return nil, err
	}
	out := make([]string, 0, len(sv.Set))
	for m := range sv.Set {
		out = append(out, m)
	}
	return out, nil
}

// SCard returns the set's cardinality, 0 if absent.
func (db *Database) SCard(key string) (int, error) {
	sv, err := db.view(key, KindSet)
	if err != nil || sv == nil {
		return 0, err
	}
	return len(sv.Set), nil
}

// SIsMember reports whether member is in the set at key.
func (db *Database) SIsMember(key, member string) (bool, error) {
	sv, err := db.view(key, KindSet)
	if err != nil || sv == nil {
		return false, err
	}
	_, ok := sv.Set[member]
	return ok, nil
}
