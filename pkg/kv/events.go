package kv

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// EventType names a notification.
type EventType string

const (
	EventSet     EventType = "set"
	EventDelete  EventType = "delete"
	EventPush    EventType = "push"
	EventPull    EventType = "pull"
	EventExpired EventType = "expired"
	EventClear   EventType = "clear"
	EventRename  EventType = "rename"
)

// Event is one of the payload types below.
type Event interface {
	Type() EventType
}

// SetEvent fires after Set and the arithmetic/toggle updates. ExpiresAt is
// the root entry's expiry.
type SetEvent struct {
	Key       string
	Value     any
	ExpiresAt *time.Time
}

// DeleteEvent carries the removed value.
type DeleteEvent struct {
	Key string
	Old any
}

// PushEvent carries the appended value.
type PushEvent struct {
	Key   string
	Value any
}

// PullEvent carries the value removed from the list.
type PullEvent struct {
	Key   string
	Value any
}

// ExpiredEvent fires once per evicted root key.
type ExpiredEvent struct {
	Key string
}

// ClearEvent fires on Clear and Restore. Namespace is set when a collection
// was cleared.
type ClearEvent struct {
	Namespace string
}

// RenameEvent fires after a successful Rename.
type RenameEvent struct {
	OldKey string
	NewKey string
}

func (SetEvent) Type() EventType     { return EventSet }
func (DeleteEvent) Type() EventType  { return EventDelete }
func (PushEvent) Type() EventType    { return EventPush }
func (PullEvent) Type() EventType    { return EventPull }
func (ExpiredEvent) Type() EventType { return EventExpired }
func (ClearEvent) Type() EventType   { return EventClear }
func (RenameEvent) Type() EventType  { return EventRename }

// Handler receives events synchronously on the goroutine that caused them.
type Handler func(Event)

type bus struct {
	mu     sync.RWMutex
	next   uint64
	subs   map[EventType]map[uint64]Handler
	logger *slog.Logger
}

func newBus(logger *slog.Logger) *bus {
	return &bus{subs: make(map[EventType]map[uint64]Handler), logger: logger}
}

func (b *bus) subscribe(t EventType, h Handler) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	if b.subs[t] == nil {
		b.subs[t] = make(map[uint64]Handler)
	}
	b.subs[t][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[t], id)
			b.mu.Unlock()
		})
	}
}

func (b *bus) dispatch(events []Event) {
	for _, ev := range events {
		b.mu.RLock()
		handlers := make([]Handler, 0, len(b.subs[ev.Type()]))
		for _, h := range b.subs[ev.Type()] {
			handlers = append(handlers, h)
		}
		b.mu.RUnlock()

		for _, h := range handlers {
			b.call(h, ev)
		}
	}
}

func (b *bus) call(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", string(ev.Type()), "panic", fmt.Sprint(r))
		}
	}()
	h(ev)
}

// Subscribe registers h for events of type t. The returned function
// unsubscribes; calling it more than once is a no-op. Every call registers a
// separate subscription, even for the same handler.
func (s *Store) Subscribe(t EventType, h Handler) func() {
	return s.bus.subscribe(t, h)
}

// On subscribes a handler typed by its payload:
//
//	stop := kv.On(store, func(e kv.ExpiredEvent) { log.Println(e.Key) })
//	defer stop()
func On[E Event](s *Store, fn func(E)) func() {
	var zero E
	return s.Subscribe(zero.Type(), func(ev Event) {
		if e, ok := ev.(E); ok {
			fn(e)
		}
	})
}
