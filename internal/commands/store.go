package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/dotkv/internal/app"
	"github.com/dotcommander/dotkv/internal/output"
	"github.com/dotcommander/dotkv/pkg/kv"
)

// closeTimeout bounds the final flush when a command finishes.
const closeTimeout = 10 * time.Second

// keyspace is the operation surface shared by *kv.Store and *kv.Collection.
type keyspace interface {
	Get(key string) (any, bool)
	Has(key string) bool
	Set(key string, value any, opts ...kv.SetOption) error
	Delete(key string) (bool, error)
	Push(key string, value any) ([]any, error)
	Pull(key string, value any) (bool, error)
	Add(key string, amount float64) (float64, error)
	Subtract(key string, amount float64) (float64, error)
	Multiply(key string, amount float64) (float64, error)
	Divide(key string, amount float64) (float64, error)
	Toggle(key string) (bool, error)
	Rename(oldKey, newKey string) error
	TTL(key string) (time.Duration, error)
	Expire(key string, ttl time.Duration) error
	Persist(key string) error
	Keys() []string
	All() map[string]any
	Entries() []kv.Item
	Sample(n int) []any
	Find(query any) ([]kv.Item, error)
	FindOne(query any) (kv.Item, bool, error)
	Clear() error
}

var (
	_ keyspace = (*kv.Store)(nil)
	_ keyspace = (*kv.Collection)(nil)
)

type printedError struct {
	err error
}

func (e printedError) Error() string {
	// Intentionally hide the original error: the JSON error response is the output.
	return "error already printed"
}

func (e printedError) Unwrap() error { return e.err }

func openStore() (*kv.Store, error) {
	cfg, err := app.ResolveConfig()
	if err != nil {
		return nil, err
	}
	// Commands are short-lived; expired keys are evicted on access instead.
	cfg.AutoCleanInterval = 0
	return kv.Open(cfg, kv.WithLogger(slog.Default()))
}

// withStore opens the store, runs fn against the keyspace selected by --ns,
// and flushes on the way out.
func withStore(cmd *cobra.Command, fn func(s *kv.Store, ks keyspace) error) error {
	s, err := openStore()
	if err != nil {
		return cmdErr(err)
	}

	ks, err := selectKeyspace(cmd, s)
	if err == nil {
		err = fn(s, ks)
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if closeErr := s.Close(ctx); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return cmdErr(err)
	}
	return nil
}

func selectKeyspace(cmd *cobra.Command, s *kv.Store) (keyspace, error) {
	ns, _ := cmd.Flags().GetString("ns")
	if ns == "" {
		return s, nil
	}
	c, err := s.Collection(ns)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	var pe printedError
	if errors.As(err, &pe) {
		return err
	}
	attrs := []any{"error", err.Error()}
	type slogAttrError interface {
		SlogAttrs() []any
	}
	var detailed slogAttrError
	if errors.As(err, &detailed) {
		attrs = append(attrs, detailed.SlogAttrs()...)
	}
	slog.Error("command error", attrs...)
	_ = output.PrintError(err)
	return printedError{err: err}
}

// parseValue reads a command-line value as JSON, falling back to the raw
// string when it is not valid JSON.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// ttlMillis renders a TTL for output: nil when the key does not expire.
func ttlMillis(d time.Duration) *int64 {
	if d < 0 {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}
