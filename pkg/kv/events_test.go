package kv

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndUnsubscribe(t *testing.T) {
	s, _ := newTestStore(t)

	var got []Event
	stop := s.Subscribe(EventSet, func(ev Event) { got = append(got, ev) })

	require.NoError(t, s.Set("a", 1))
	stop()
	stop()
	require.NoError(t, s.Set("b", 2))

	require.Len(t, got, 1)
	assert.Equal(t, SetEvent{Key: "a", Value: float64(1)}, got[0])
}

func TestSameHandlerTwiceIsTwoSubscriptions(t *testing.T) {
	s, _ := newTestStore(t)

	var n int
	h := func(Event) { n++ }
	stop1 := s.Subscribe(EventPush, h)
	stop2 := s.Subscribe(EventPush, h)

	_, err := s.Push("l", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stop1()
	_, err = s.Push("l", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	stop2()
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	s, _ := newTestStore(t)

	var calls int
	defer s.Subscribe(EventSet, func(Event) { panic("boom") })()
	defer s.Subscribe(EventSet, func(Event) { calls++ })()

	require.NoError(t, s.Set("a", 1))
	assert.Equal(t, 1, calls)
	v, _ := s.Get("a")
	assert.Equal(t, float64(1), v)
}

func TestHandlerMayCallStore(t *testing.T) {
	s, _ := newTestStore(t)

	defer On(s, func(e SetEvent) {
		if e.Key == "a" {
			_ = s.Set("mirror", e.Value)
		}
	})()

	require.NoError(t, s.Set("a", "x"))
	v, ok := s.Get("mirror")
	require.True(t, ok)
	assert.Equal(t, "x", v)
}

func TestEventPayloads(t *testing.T) {
	s, clock := newTestStore(t)

	var got []Event
	for _, et := range []EventType{EventSet, EventDelete, EventPush, EventPull, EventRename} {
		defer s.Subscribe(et, func(ev Event) { got = append(got, ev) })()
	}

	require.NoError(t, s.Set("k", "v", WithTTL(time.Minute)))
	_, err := s.Push("l", "x")
	require.NoError(t, err)
	_, err = s.Pull("l", "x")
	require.NoError(t, err)
	require.NoError(t, s.Rename("k", "k2"))
	_, err = s.Delete("k2")
	require.NoError(t, err)

	exp := clock.Now().Add(time.Minute)
	assert.Equal(t, []Event{
		SetEvent{Key: "k", Value: "v", ExpiresAt: &exp},
		PushEvent{Key: "l", Value: "x"},
		PullEvent{Key: "l", Value: "x"},
		RenameEvent{OldKey: "k", NewKey: "k2"},
		DeleteEvent{Key: "k2", Old: "v"},
	}, got)
}

func TestCleanExpired(t *testing.T) {
	s, clock := newTestStore(t)

	var expired []string
	defer On(s, func(e ExpiredEvent) { expired = append(expired, e.Key) })()

	require.NoError(t, s.Set("c", 1, WithTTL(time.Second)))
	require.NoError(t, s.Set("keep", 1))
	require.NoError(t, s.Set("a", 1, WithTTL(2*time.Second)))

	assert.Empty(t, s.CleanExpired())

	clock.Advance(2 * time.Second)
	assert.Equal(t, []string{"c", "a"}, s.CleanExpired())
	assert.Equal(t, []string{"c", "a"}, expired)
	assert.Empty(t, s.CleanExpired())
	assert.Equal(t, []string{"keep"}, s.Keys())
}

func TestReaperEvictsInBackground(t *testing.T) {
	cfg := testConfig(t)
	cfg.AutoCleanInterval = 5 * time.Millisecond
	clock := newFakeClock()
	s := openTestStore(t, cfg, clock)

	var expired atomic.Int32
	defer On(s, func(ExpiredEvent) { expired.Add(1) })()

	require.NoError(t, s.Set("k", 1, WithTTL(time.Second)))
	clock.Advance(time.Second)

	require.Eventually(t, func() bool { return expired.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalKeys)
}
