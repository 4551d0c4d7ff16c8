// Package kv is an embeddable key-value store kept in memory and persisted to
// a single JSON file (or, optionally, a SQLite database).
//
// Keys may be dotted paths: the first segment names a root entry and the
// rest addresses a field inside its value, so Set("user.name", "ada")
// creates or updates the "user" entry. Expiry applies to root entries only.
//
// Every mutation schedules a debounced write and emits an Event to
// subscribers after the store lock is released. Expired entries are evicted
// lazily by single-key reads and periodically by a background reaper.
//
//	s, err := kv.Open(kv.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer s.Close(ctx)
//
//	_ = s.Set("session", token, kv.WithTTL(time.Hour))
//	users, _ := s.Collection("users")
//	_ = users.Set("u1", map[string]any{"role": "admin"})
package kv
