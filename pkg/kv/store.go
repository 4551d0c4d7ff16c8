package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dotcommander/dotkv/internal/persist"
	"github.com/dotcommander/dotkv/pkg/dotpath"
)

type entry struct {
	value     any
	expiresAt time.Time // zero => no TTL
	seq       uint64
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (e *entry) expiry() *time.Time {
	if e.expiresAt.IsZero() {
		return nil
	}
	t := e.expiresAt
	return &t
}

// Item is one live entry as returned by bulk reads and queries.
type Item struct {
	Key       string     `json:"key"`
	Value     any        `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Store is an in-memory map of root keys to values, persisted to a single
// file. All methods are safe for concurrent use; each operation runs to
// completion under one lock.
type Store struct {
	mu   sync.Mutex
	data map[string]*entry
	seq  uint64

	cfg       Config
	now       func() time.Time
	logger    *slog.Logger
	started   time.Time
	backend   persist.Backend
	flusher   *persist.Flusher
	snapshots *persist.Snapshots
	bus       *bus

	stopReaper context.CancelFunc
	reaperDone chan struct{}
	closeOnce  sync.Once
	closed     atomic.Bool
}

// Open loads the store described by cfg and starts its background tasks.
// A corrupt persistence file is recovered from its backup copy or replaced
// by an empty store; it is never an error.
func Open(cfg Config, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	cfg = cfg.withDefaults()

	var backend persist.Backend
	switch cfg.Driver {
	case DriverJSON:
		backend = persist.NewFileBackend(cfg.FilePath, o.logger)
	case DriverSQLite:
		b, err := persist.OpenSQLite(cfg.FilePath, o.logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		backend = b
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}

	records, err := backend.Load(context.Background())
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("load %s: %w", cfg.FilePath, err)
	}

	s := &Store{
		data:      make(map[string]*entry, len(records)),
		cfg:       cfg,
		now:       o.now,
		logger:    o.logger,
		backend:   backend,
		snapshots: persist.NewSnapshots(cfg.BackupPath),
		bus:       newBus(o.logger),
	}
	s.started = s.now()
	s.replace(records)

	s.flusher = persist.NewFlusher(backend, s.records, persist.FlusherConfig{
		Delay:    cfg.WriteDelay,
		Disabled: !cfg.AutoSave,
		Logger:   o.logger,
	})
	if cfg.AutoCleanInterval > 0 {
		s.startReaper(cfg.AutoCleanInterval)
	}
	return s, nil
}

// Config returns the effective configuration.
func (s *Store) Config() Config { return s.cfg }

// Sync writes the store to disk now, bypassing the debounce window.
func (s *Store) Sync(ctx context.Context) error {
	if err := s.flusher.Sync(ctx); err != nil {
		return opErr("sync", "", fromPersist(err))
	}
	return nil
}

// Close stops the reaper, writes any pending changes, and releases the
// backend. Further mutations fail with ErrClosed.
func (s *Store) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.stopReaper != nil {
			s.stopReaper()
			<-s.reaperDone
		}
		err = errors.Join(s.flusher.Close(ctx), s.backend.Close())
	})
	return err
}

// txn collects the side effects of one locked operation.
type txn struct {
	now    time.Time
	events []Event
	dirty  bool
}

func (t *txn) emit(ev Event) {
	t.events = append(t.events, ev)
	t.dirty = true
}

// do runs fn under the lock. Afterwards, outside the lock, a flush is
// scheduled if anything changed and collected events are dispatched.
func (s *Store) do(fn func(t *txn) error) error {
	s.mu.Lock()
	t := &txn{now: s.now()}
	err := fn(t)
	s.mu.Unlock()

	if t.dirty {
		s.flusher.Schedule()
	}
	if len(t.events) > 0 {
		s.bus.dispatch(t.events)
	}
	return err
}

// write is do for mutating operations.
func (s *Store) write(op, key string, fn func(t *txn) error) error {
	if s.closed.Load() {
		return opErr(op, key, ErrClosed)
	}
	return s.do(fn)
}

// lookup returns the live root entry, evicting it if it has expired.
func (s *Store) lookup(t *txn, root string) (*entry, bool) {
	e, ok := s.data[root]
	if !ok {
		return nil, false
	}
	if e.expired(t.now) {
		delete(s.data, root)
		t.emit(ExpiredEvent{Key: root})
		return nil, false
	}
	return e, true
}

func (s *Store) insert(root string, value any, expiresAt time.Time) *entry {
	s.seq++
	e := &entry{value: value, expiresAt: expiresAt, seq: s.seq}
	s.data[root] = e
	return e
}

// current returns the stored value at key without copying it.
func (s *Store) current(t *txn, key string) (any, bool) {
	if !validKey(key) {
		return nil, false
	}
	root, rest := dotpath.Split(key)
	e, ok := s.lookup(t, root)
	if !ok {
		return nil, false
	}
	if rest == "" {
		return e.value, true
	}
	return dotpath.Get(e.value, rest)
}

// put stores value at key and returns the root entry.
//
// A positive ttl sets a new root expiry. Otherwise a root-level write clears
// the expiry unless keepTTL is set; nested writes never touch it.
func (s *Store) put(t *txn, key string, value any, ttl time.Duration, keepTTL bool) *entry {
	root, rest := dotpath.Split(key)
	var exp time.Time
	if ttl > 0 {
		exp = t.now.Add(ttl)
	}

	e, ok := s.lookup(t, root)
	switch {
	case rest == "" && ok:
		e.value = value
		if ttl > 0 || !keepTTL {
			e.expiresAt = exp
		}
	case rest == "":
		e = s.insert(root, value, exp)
	default:
		if !ok {
			e = s.insert(root, map[string]any{}, exp)
		} else if ttl > 0 {
			e.expiresAt = exp
		}
		m := dotpath.CoerceMap(e.value)
		e.value = m
		dotpath.Set(m, rest, value)
	}
	t.dirty = true
	return e
}

type keyed struct {
	key string
	*entry
}

// ordered returns live entries under prefix in insertion order. Expired
// entries are skipped, not evicted.
func (s *Store) ordered(now time.Time, prefix string) []keyed {
	out := make([]keyed, 0, len(s.data))
	for k, e := range s.data {
		if e.expired(now) || !strings.HasPrefix(k, prefix) {
			continue
		}
		out = append(out, keyed{key: k, entry: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// records snapshots the whole store, expired entries included, for the
// persistence layer.
func (s *Store) records() []persist.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]keyed, 0, len(s.data))
	for k, e := range s.data {
		all = append(all, keyed{key: k, entry: e})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	out := make([]persist.Record, len(all))
	for i, k := range all {
		out[i] = persist.Record{
			Key:       k.key,
			Value:     dotpath.Clone(k.value),
			ExpiresAt: persist.ExpiryMillis(k.expiresAt),
		}
	}
	return out
}

// replace swaps in a new data set. Caller holds the lock or owns s.
func (s *Store) replace(records []persist.Record) {
	s.data = make(map[string]*entry, len(records))
	for _, r := range records {
		s.insert(r.Key, r.Value, r.Expiry())
	}
}

// validKey rejects empty keys and malformed paths such as "a." or "a..b".
func validKey(key string) bool { return dotpath.Valid(key) }
