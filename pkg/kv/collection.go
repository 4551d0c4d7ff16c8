package kv

import (
	"strings"
	"time"

	"github.com/dotcommander/dotkv/pkg/dotpath"
)

// NamespaceSep joins a collection name and its keys.
const NamespaceSep = ":"

// Collection is a view of the store restricted to keys prefixed with
// "<name>:". Keys passed in and returned are unprefixed.
type Collection struct {
	s      *Store
	name   string
	prefix string
}

// Collection returns the namespace view called name. Names must be non-empty
// and may not contain ':' or '.'.
func (s *Store) Collection(name string) (*Collection, error) {
	if name == "" || strings.ContainsAny(name, NamespaceSep+".") {
		return nil, opErr("collection", name, ErrInvalidName)
	}
	return &Collection{s: s, name: name, prefix: name + NamespaceSep}, nil
}

// Name returns the namespace name.
func (c *Collection) Name() string { return c.name }

// key prefixes k with the namespace. k must itself be a valid key: "" or
// ".x" would otherwise address the bare "<name>:" root.
func (c *Collection) key(op, k string) (string, error) {
	if !dotpath.Valid(k) {
		return "", opErr(op, k, ErrInvalidKey)
	}
	return c.prefix + k, nil
}

func (c *Collection) Get(key string) (any, bool) {
	k, err := c.key("get", key)
	if err != nil {
		return nil, false
	}
	return c.s.Get(k)
}

func (c *Collection) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

func (c *Collection) Set(key string, value any, opts ...SetOption) error {
	k, err := c.key("set", key)
	if err != nil {
		return err
	}
	return c.s.Set(k, value, opts...)
}

func (c *Collection) Delete(key string) (bool, error) {
	k, err := c.key("delete", key)
	if err != nil {
		return false, err
	}
	return c.s.Delete(k)
}

func (c *Collection) Push(key string, value any) ([]any, error) {
	k, err := c.key("push", key)
	if err != nil {
		return nil, err
	}
	return c.s.Push(k, value)
}

func (c *Collection) Pull(key string, value any) (bool, error) {
	k, err := c.key("pull", key)
	if err != nil {
		return false, err
	}
	return c.s.Pull(k, value)
}

func (c *Collection) Add(key string, amount float64) (float64, error) {
	return c.arith(opAdd, key, amount)
}

func (c *Collection) Subtract(key string, amount float64) (float64, error) {
	return c.arith(opSubtract, key, amount)
}

func (c *Collection) Multiply(key string, amount float64) (float64, error) {
	return c.arith(opMultiply, key, amount)
}

func (c *Collection) Divide(key string, amount float64) (float64, error) {
	return c.arith(opDivide, key, amount)
}

func (c *Collection) arith(op arithOp, key string, amount float64) (float64, error) {
	k, err := c.key(op.String(), key)
	if err != nil {
		return 0, err
	}
	return c.s.arith(op, k, amount)
}

func (c *Collection) Toggle(key string) (bool, error) {
	k, err := c.key("toggle", key)
	if err != nil {
		return false, err
	}
	return c.s.Toggle(k)
}

func (c *Collection) Rename(oldKey, newKey string) error {
	from, err := c.key("rename", oldKey)
	if err != nil {
		return err
	}
	to, err := c.key("rename", newKey)
	if err != nil {
		return err
	}
	return c.s.Rename(from, to)
}

func (c *Collection) TTL(key string) (time.Duration, error) {
	k, err := c.key("ttl", key)
	if err != nil {
		return 0, err
	}
	return c.s.TTL(k)
}

func (c *Collection) Expire(key string, ttl time.Duration) error {
	k, err := c.key("expire", key)
	if err != nil {
		return err
	}
	return c.s.Expire(k, ttl)
}

func (c *Collection) Persist(key string) error {
	k, err := c.key("persist", key)
	if err != nil {
		return err
	}
	return c.s.Persist(k)
}

func (c *Collection) Keys() []string      { return c.s.keys(c.prefix) }
func (c *Collection) All() map[string]any { return c.s.all(c.prefix) }
func (c *Collection) Entries() []Item     { return c.s.entries(c.prefix) }
func (c *Collection) Sample(n int) []any  { return c.s.sample(c.prefix, n) }

func (c *Collection) Scan(pred Predicate) []Item { return c.s.scan(c.prefix, pred) }

func (c *Collection) Random() (any, bool) {
	out := c.s.sample(c.prefix, 1)
	if len(out) == 0 {
		return nil, false
	}
	return out[0], true
}

func (c *Collection) Find(query any) ([]Item, error) { return c.s.find(c.prefix, query, 0) }

func (c *Collection) FindOne(query any) (Item, bool, error) {
	items, err := c.s.find(c.prefix, query, 1)
	if err != nil || len(items) == 0 {
		return Item{}, false, err
	}
	return items[0], true, nil
}

// Clear removes every key in the namespace and emits one ClearEvent naming
// it. Keys outside the namespace are untouched.
func (c *Collection) Clear() error {
	return c.s.write("clear", c.name, func(t *txn) error {
		for k := range c.s.data {
			if strings.HasPrefix(k, c.prefix) {
				delete(c.s.data, k)
			}
		}
		t.emit(ClearEvent{Namespace: c.name})
		return nil
	})
}
