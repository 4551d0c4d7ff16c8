// Package persist writes the key-value store to disk and reads it back.
//
// The store hands the pipeline an ordered slice of Records; a Backend turns
// them into bytes on disk. A Flusher coalesces bursts of write requests into
// a single trailing write, and Snapshots keeps named backup copies.
package persist

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for persistence operations.
var (
	ErrNotFound    = errors.New("snapshot not found")
	ErrCorrupt     = errors.New("corrupt data")
	ErrInvalidName = errors.New("invalid snapshot name")
	ErrLoadFailed  = errors.New("load failed")
	ErrSaveFailed  = errors.New("save failed")
	ErrClosed      = errors.New("flusher closed")
)

// Record is one root entry in persisted form. ExpiresAt is epoch
// milliseconds, nil for entries that never expire.
type Record struct {
	Key       string
	Value     any
	ExpiresAt *int64
}

// Expiry converts ExpiresAt to a time. The zero time means no expiry.
func (r Record) Expiry() time.Time {
	if r.ExpiresAt == nil {
		return time.Time{}
	}
	return time.UnixMilli(*r.ExpiresAt)
}

// ExpiryMillis converts t to the persisted form. The zero time maps to nil.
func ExpiryMillis(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// Backend stores the full set of records.
// Implementations are used from a single writer goroutine plus the loader.
type Backend interface {
	// Load returns the persisted records in insertion order. A missing store
	// is not an error. Corrupt content is recovered where possible.
	Load(ctx context.Context) ([]Record, error)
	// Save replaces everything persisted with records.
	Save(ctx context.Context, records []Record) error
	// Size returns the on-disk size in bytes.
	Size() (int64, error)
	Close() error
}

// selfRetrying is implemented by backends whose Save already retries
// transient failures. The flusher calls them once.
type selfRetrying interface {
	retriesSave()
}
