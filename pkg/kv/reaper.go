package kv

import (
	"context"
	"sort"
	"time"
)

func (s *Store) startReaper(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopReaper = cancel
	s.reaperDone = make(chan struct{})

	go func() {
		defer close(s.reaperDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := s.CleanExpired(); len(evicted) > 0 {
					s.logger.Debug("reaped expired keys", "count", len(evicted))
				}
			}
		}
	}()
}

// CleanExpired evicts every expired root entry now and returns the evicted
// keys in insertion order. One ExpiredEvent fires per key, and a flush is
// scheduled only when something was evicted.
func (s *Store) CleanExpired() []string {
	var evicted []string
	_ = s.do(func(t *txn) error {
		var dead []keyed
		for k, e := range s.data {
			if e.expired(t.now) {
				dead = append(dead, keyed{key: k, entry: e})
			}
		}
		sort.Slice(dead, func(i, j int) bool { return dead[i].seq < dead[j].seq })

		for _, d := range dead {
			delete(s.data, d.key)
			evicted = append(evicted, d.key)
			t.emit(ExpiredEvent{Key: d.key})
		}
		return nil
	})
	return evicted
}
