package persist

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// FlusherConfig configures a Flusher.
type FlusherConfig struct {
	// Delay is the debounce window. Writes fire Delay after the last request.
	// Zero writes on every request.
	Delay time.Duration
	// Disabled turns every operation into a no-op.
	Disabled bool
	Logger   *slog.Logger
}

// Flusher owns the single writer goroutine. Schedule requests are coalesced
// on the trailing edge: a burst of requests produces one write that fires
// Delay after the last request of the burst.
type Flusher struct {
	backend  Backend
	snapshot func() []Record
	delay    time.Duration
	disabled bool
	logger   *slog.Logger

	kick  chan struct{}
	syncs chan chan error
	stop  chan struct{}
	done  chan struct{}

	closeOnce sync.Once
	writes    atomic.Int64
	failures  atomic.Int64
}

// NewFlusher starts the writer goroutine. snapshot is called from that
// goroutine each time a write fires and must return the full record set.
func NewFlusher(backend Backend, snapshot func() []Record, cfg FlusherConfig) *Flusher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	f := &Flusher{
		backend:  backend,
		snapshot: snapshot,
		delay:    cfg.Delay,
		disabled: cfg.Disabled,
		logger:   logger,
		kick:     make(chan struct{}, 1),
		syncs:    make(chan chan error),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if f.disabled {
		close(f.done)
		return f
	}
	go f.run()
	return f
}

// Schedule requests a write. It never blocks.
func (f *Flusher) Schedule() {
	if f.disabled {
		return
	}
	select {
	case f.kick <- struct{}{}:
	default:
		// A request is already queued; the writer will restart the window.
	}
}

// Sync cancels any pending debounce and writes now, returning the write
// error.
func (f *Flusher) Sync(ctx context.Context) error {
	if f.disabled {
		return nil
	}
	reply := make(chan error, 1)
	select {
	case f.syncs <- reply:
	case <-f.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the writer. A pending debounced write is performed first.
func (f *Flusher) Close(ctx context.Context) error {
	f.closeOnce.Do(func() { close(f.stop) })
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Writes returns the number of completed writes.
func (f *Flusher) Writes() int64 { return f.writes.Load() }

// Failures returns the number of writes that failed after retries.
func (f *Flusher) Failures() int64 { return f.failures.Load() }

func (f *Flusher) run() {
	defer close(f.done)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending bool
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		fire = nil
		pending = false
	}

	for {
		select {
		case <-f.kick:
			if f.delay <= 0 {
				_ = f.write()
				continue
			}
			pending = true
			if timer == nil {
				timer = time.NewTimer(f.delay)
			} else {
				timer.Reset(f.delay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			pending = false
			_ = f.write()
		case reply := <-f.syncs:
			stopTimer()
			reply <- f.write()
		case <-f.stop:
			wasPending := pending
			stopTimer()
			// Drain a request that raced with Close.
			select {
			case <-f.kick:
				wasPending = true
			default:
			}
			if wasPending {
				_ = f.write()
			}
			return
		}
	}
}

func (f *Flusher) write() error {
	records := f.snapshot()
	save := func() error { return f.backend.Save(context.Background(), records) }
	var err error
	if _, ok := f.backend.(selfRetrying); ok {
		err = save()
	} else {
		err = RetryWithBackoff(context.Background(), save)
	}
	if err != nil {
		f.failures.Add(1)
		f.logger.Error("flush failed", "keys", len(records), "error", err.Error())
		return err
	}
	f.writes.Add(1)
	return nil
}
