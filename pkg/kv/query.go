package kv

import (
	"fmt"
	"strings"

	"github.com/dotcommander/dotkv/pkg/dotpath"
)

// Predicate decides whether a live entry belongs in a Scan result. It
// receives a copy of the value.
type Predicate func(value any, key string) bool

// Scan returns the live entries accepted by pred, in insertion order. A
// predicate that panics counts as a non-match for that entry.
func (s *Store) Scan(pred Predicate) []Item { return s.scan("", pred) }

// Find returns entries whose value matches query. When both are maps every
// attribute in query must be present with an equal value; nested maps are
// compared whole. Any other value must equal query exactly.
func (s *Store) Find(query any) ([]Item, error) { return s.find("", query, 0) }

// FindOne returns the first Find match.
func (s *Store) FindOne(query any) (Item, bool, error) {
	items, err := s.find("", query, 1)
	if err != nil || len(items) == 0 {
		return Item{}, false, err
	}
	return items[0], true, nil
}

func (s *Store) scan(prefix string, pred Predicate) []Item {
	// Predicates run outside the lock so they may call back into the store.
	candidates := s.entries(prefix)
	out := make([]Item, 0, len(candidates))
	for _, it := range candidates {
		if s.accept(pred, it) {
			out = append(out, it)
		}
	}
	return out
}

func (s *Store) accept(pred Predicate, it Item) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("scan predicate panicked", "key", it.Key, "panic", fmt.Sprint(r))
			ok = false
		}
	}()
	return pred(dotpath.Clone(it.Value), it.Key)
}

func (s *Store) find(prefix string, query any, limit int) ([]Item, error) {
	q, err := normalize(query)
	if err != nil {
		return nil, opErr("find", "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Item
	for _, e := range s.ordered(s.now(), prefix) {
		if !matches(e.value, q) {
			continue
		}
		out = append(out, Item{
			Key:       strings.TrimPrefix(e.key, prefix),
			Value:     dotpath.Clone(e.value),
			ExpiresAt: e.expiry(),
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
