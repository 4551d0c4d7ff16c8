package kv

import (
	"math"
	"math/rand/v2"
	"reflect"
	"strings"
	"time"

	"github.com/dotcommander/dotkv/pkg/dotpath"
)

// Get returns a copy of the value at key. Dotted keys address inside the
// root entry's value. The second result is false for missing and expired
// keys; an expired root is evicted and reported as an ExpiredEvent.
func (s *Store) Get(key string) (any, bool) {
	var (
		out   any
		found bool
	)
	_ = s.do(func(t *txn) error {
		v, ok := s.current(t, key)
		if ok {
			out, found = dotpath.Clone(v), true
		}
		return nil
	})
	return out, found
}

// Has reports whether Get would find key.
func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores value at key. A root-level write replaces the entry and its
// expiry: without WithTTL the key no longer expires. A nested write keeps the
// root expiry unless WithTTL is given, and coerces a non-map root value to an
// empty map first.
func (s *Store) Set(key string, value any, opts ...SetOption) error {
	if !validKey(key) {
		return opErr("set", key, ErrInvalidKey)
	}
	o := setOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	v, err := normalize(value)
	if err != nil {
		return opErr("set", key, err)
	}

	return s.write("set", key, func(t *txn) error {
		e := s.put(t, key, v, o.ttl, false)
		t.emit(SetEvent{Key: key, Value: dotpath.Clone(v), ExpiresAt: e.expiry()})
		return nil
	})
}

// Delete removes key. With a dotted key only the addressed field is removed.
// It returns false, without changing anything, when key does not resolve.
func (s *Store) Delete(key string) (bool, error) {
	if !validKey(key) {
		return false, opErr("delete", key, ErrInvalidKey)
	}
	var removed bool
	err := s.write("delete", key, func(t *txn) error {
		root, rest := dotpath.Split(key)
		e, ok := s.lookup(t, root)
		if !ok {
			return nil
		}
		if rest == "" {
			delete(s.data, root)
			t.emit(DeleteEvent{Key: key, Old: e.value})
			removed = true
			return nil
		}
		old, _ := dotpath.Get(e.value, rest)
		if dotpath.Delete(e.value, rest) {
			t.emit(DeleteEvent{Key: key, Old: old})
			removed = true
		}
		return nil
	})
	return removed, err
}

// Push appends value to the list at key and returns the resulting list. A
// missing or null value starts an empty list; any other non-list value
// becomes the first element. The root expiry is kept.
func (s *Store) Push(key string, value any) ([]any, error) {
	if !validKey(key) {
		return nil, opErr("push", key, ErrInvalidKey)
	}
	v, err := normalize(value)
	if err != nil {
		return nil, opErr("push", key, err)
	}

	var out []any
	err = s.write("push", key, func(t *txn) error {
		list := append(asList(s.current(t, key)), v)
		s.put(t, key, list, 0, true)
		t.emit(PushEvent{Key: key, Value: dotpath.Clone(v)})
		out = dotpath.Clone(list).([]any)
		return nil
	})
	return out, err
}

// Pull removes every element deeply equal to value from the list at key.
// It returns false when key is not a list or nothing matched.
func (s *Store) Pull(key string, value any) (bool, error) {
	if !validKey(key) {
		return false, opErr("pull", key, ErrInvalidKey)
	}
	v, err := normalize(value)
	if err != nil {
		return false, opErr("pull", key, err)
	}

	var pulled bool
	err = s.write("pull", key, func(t *txn) error {
		cur, ok := s.current(t, key)
		list, isList := cur.([]any)
		if !ok || !isList {
			return nil
		}
		kept := make([]any, 0, len(list))
		for _, item := range list {
			if !reflect.DeepEqual(item, v) {
				kept = append(kept, item)
			}
		}
		if len(kept) == len(list) {
			return nil
		}
		s.put(t, key, kept, 0, true)
		t.emit(PullEvent{Key: key, Value: dotpath.Clone(v)})
		pulled = true
		return nil
	})
	return pulled, err
}

type arithOp int

const (
	opAdd arithOp = iota
	opSubtract
	opMultiply
	opDivide
)

func (op arithOp) String() string {
	return [...]string{"add", "subtract", "multiply", "divide"}[op]
}

// Add adds amount to the number at key. Missing and non-numeric values count
// as 0. The root expiry is kept.
func (s *Store) Add(key string, amount float64) (float64, error) {
	return s.arith(opAdd, key, amount)
}

// Subtract subtracts amount from the number at key.
func (s *Store) Subtract(key string, amount float64) (float64, error) {
	return s.arith(opSubtract, key, amount)
}

// Multiply multiplies the number at key by amount.
func (s *Store) Multiply(key string, amount float64) (float64, error) {
	return s.arith(opMultiply, key, amount)
}

// Divide divides the number at key by amount. Zero fails with
// ErrInvalidOperand.
func (s *Store) Divide(key string, amount float64) (float64, error) {
	return s.arith(opDivide, key, amount)
}

func (s *Store) arith(op arithOp, key string, amount float64) (float64, error) {
	name := op.String()
	if !validKey(key) {
		return 0, opErr(name, key, ErrInvalidKey)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || (op == opDivide && amount == 0) {
		return 0, opErr(name, key, ErrInvalidOperand)
	}

	var result float64
	err := s.write(name, key, func(t *txn) error {
		cur, _ := s.current(t, key)
		n := number(cur)
		switch op {
		case opAdd:
			result = n + amount
		case opSubtract:
			result = n - amount
		case opMultiply:
			result = n * amount
		case opDivide:
			result = n / amount
		}
		if math.IsInf(result, 0) || math.IsNaN(result) {
			return opErr(name, key, ErrInvalidOperand)
		}
		e := s.put(t, key, result, 0, true)
		t.emit(SetEvent{Key: key, Value: result, ExpiresAt: e.expiry()})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// Toggle stores the negation of the truthiness of the value at key and
// returns it. A missing key becomes true. The root expiry is kept.
func (s *Store) Toggle(key string) (bool, error) {
	if !validKey(key) {
		return false, opErr("toggle", key, ErrInvalidKey)
	}
	var result bool
	err := s.write("toggle", key, func(t *txn) error {
		cur, _ := s.current(t, key)
		result = !truthy(cur)
		e := s.put(t, key, result, 0, true)
		t.emit(SetEvent{Key: key, Value: result, ExpiresAt: e.expiry()})
		return nil
	})
	return result, err
}

// Rename moves a root entry, value and expiry, to newKey. Dotted keys are
// rejected. It fails with ErrNotFound when oldKey is absent and ErrConflict
// when newKey holds a live entry; neither key changes on failure.
func (s *Store) Rename(oldKey, newKey string) error {
	if oldKey == "" || strings.Contains(oldKey, dotpath.Separator) {
		return opErr("rename", oldKey, ErrInvalidKey)
	}
	if newKey == "" || strings.Contains(newKey, dotpath.Separator) {
		return opErr("rename", newKey, ErrInvalidKey)
	}
	return s.write("rename", oldKey, func(t *txn) error {
		e, ok := s.lookup(t, oldKey)
		if !ok {
			return opErr("rename", oldKey, ErrNotFound)
		}
		if _, taken := s.lookup(t, newKey); taken {
			return opErr("rename", newKey, ErrConflict)
		}
		delete(s.data, oldKey)
		s.seq++
		e.seq = s.seq
		s.data[newKey] = e
		t.emit(RenameEvent{OldKey: oldKey, NewKey: newKey})
		return nil
	})
}

// TTL returns the remaining lifetime of key's root entry, or -1 when it has
// no expiry.
func (s *Store) TTL(key string) (time.Duration, error) {
	if !validKey(key) {
		return 0, opErr("ttl", key, ErrInvalidKey)
	}
	var ttl time.Duration
	err := s.do(func(t *txn) error {
		root, _ := dotpath.Split(key)
		e, ok := s.lookup(t, root)
		if !ok {
			return opErr("ttl", key, ErrNotFound)
		}
		if e.expiresAt.IsZero() {
			ttl = -1
			return nil
		}
		ttl = e.expiresAt.Sub(t.now)
		return nil
	})
	return ttl, err
}

// Expire sets a new expiry on key's root entry.
func (s *Store) Expire(key string, ttl time.Duration) error {
	if !validKey(key) {
		return opErr("expire", key, ErrInvalidKey)
	}
	if ttl <= 0 {
		return opErr("expire", key, ErrInvalidOperand)
	}
	return s.write("expire", key, func(t *txn) error {
		root, _ := dotpath.Split(key)
		e, ok := s.lookup(t, root)
		if !ok {
			return opErr("expire", key, ErrNotFound)
		}
		e.expiresAt = t.now.Add(ttl)
		t.dirty = true
		return nil
	})
}

// Persist removes the expiry from key's root entry.
func (s *Store) Persist(key string) error {
	if !validKey(key) {
		return opErr("persist", key, ErrInvalidKey)
	}
	return s.write("persist", key, func(t *txn) error {
		root, _ := dotpath.Split(key)
		e, ok := s.lookup(t, root)
		if !ok {
			return opErr("persist", key, ErrNotFound)
		}
		e.expiresAt = time.Time{}
		t.dirty = true
		return nil
	})
}

// Keys returns the live root keys in insertion order.
func (s *Store) Keys() []string { return s.keys("") }

// All returns copies of all live values keyed by root key.
func (s *Store) All() map[string]any { return s.all("") }

// Entries returns all live entries with their expiry, in insertion order.
func (s *Store) Entries() []Item { return s.entries("") }

// Sample returns up to n distinct live values chosen uniformly at random,
// in no particular order.
func (s *Store) Sample(n int) []any { return s.sample("", n) }

// Random returns one live value chosen uniformly at random.
func (s *Store) Random() (any, bool) {
	out := s.sample("", 1)
	if len(out) == 0 {
		return nil, false
	}
	return out[0], true
}

// Clear removes every entry.
func (s *Store) Clear() error {
	return s.write("clear", "", func(t *txn) error {
		s.data = make(map[string]*entry)
		t.emit(ClearEvent{})
		return nil
	})
}

func (s *Store) keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.ordered(s.now(), prefix)
	out := make([]string, len(live))
	for i, e := range live {
		out[i] = strings.TrimPrefix(e.key, prefix)
	}
	return out
}

func (s *Store) all(prefix string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.ordered(s.now(), prefix)
	out := make(map[string]any, len(live))
	for _, e := range live {
		out[strings.TrimPrefix(e.key, prefix)] = dotpath.Clone(e.value)
	}
	return out
}

func (s *Store) entries(prefix string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.ordered(s.now(), prefix)
	out := make([]Item, len(live))
	for i, e := range live {
		out[i] = Item{
			Key:       strings.TrimPrefix(e.key, prefix),
			Value:     dotpath.Clone(e.value),
			ExpiresAt: e.expiry(),
		}
	}
	return out
}

func (s *Store) sample(prefix string, n int) []any {
	if n <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.ordered(s.now(), prefix)
	if n > len(live) {
		n = len(live)
	}
	// Partial Fisher-Yates: the first n slots end up a uniform sample.
	for i := 0; i < n; i++ {
		j := i + rand.IntN(len(live)-i)
		live[i], live[j] = live[j], live[i]
	}
	out := make([]any, n)
	for i := range out {
		out[i] = dotpath.Clone(live[i].value)
	}
	return out
}
