package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// defaultBusyTimeoutMS is the SQLite busy_timeout in milliseconds.
const defaultBusyTimeoutMS = 5000

// SQLiteBackend keeps records as rows of an entries table. Values are stored
// as JSON text; seq preserves insertion order.
type SQLiteBackend struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and runs
// migrations.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !strings.Contains(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", normalizeSQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer goroutine; a single connection keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeoutMS),
		"PRAGMA synchronous=NORMAL",
		"PRAGMA journal_mode=WAL",
	}
	for _, pragma := range pragmas {
		if err := RetryWithBackoff(context.Background(), func() error {
			_, err := db.ExecContext(context.Background(), pragma)
			return err
		}); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := RetryWithBackoff(context.Background(), func() error { return MigrateDB(db, path) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteBackend{db: db, path: path, logger: logger}, nil
}

func normalizeSQLiteDSN(dbPath string) string {
	if strings.HasPrefix(dbPath, "file:") {
		return dbPath
	}
	if dbPath == ":memory:" {
		return "file::memory:?cache=shared"
	}
	// mode=rwc => read/write/create.
	return "file:" + dbPath + "?mode=rwc"
}

// SchemaVersion reports the applied and the latest embedded migration.
func (b *SQLiteBackend) SchemaVersion() (current, latest int64, err error) {
	return schemaVersion(b.db)
}

// retriesSave marks Save as retrying on its own through Transact.
func (b *SQLiteBackend) retriesSave() {}

// Load returns all rows ordered by seq. Rows whose value is not valid JSON
// are skipped and logged.
func (b *SQLiteBackend) Load(ctx context.Context) ([]Record, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key, value, expires_at FROM entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			key     string
			raw     string
			expires sql.NullInt64
		)
		if err := rows.Scan(&key, &raw, &expires); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %v", ErrLoadFailed, err)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			b.logger.Warn("skipping corrupt row", "key", key, "error", err.Error())
			continue
		}
		rec := Record{Key: key, Value: v}
		if expires.Valid {
			ms := expires.Int64
			rec.ExpiresAt = &ms
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate entries: %v", ErrLoadFailed, err)
	}
	return records, nil
}

// Save replaces the table contents inside one transaction.
func (b *SQLiteBackend) Save(ctx context.Context, records []Record) error {
	return Transact(ctx, b.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
			return fmt.Errorf("%w: clear entries: %w", ErrSaveFailed, err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (key, value, expires_at, seq) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("%w: prepare insert: %w", ErrSaveFailed, err)
		}
		defer func() { _ = stmt.Close() }()

		for i, r := range records {
			raw, err := json.Marshal(r.Value)
			if err != nil {
				return fmt.Errorf("%w: encode %q: %v", ErrSaveFailed, r.Key, err)
			}
			var expires sql.NullInt64
			if r.ExpiresAt != nil {
				expires = sql.NullInt64{Int64: *r.ExpiresAt, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, r.Key, string(raw), expires, i); err != nil {
				return fmt.Errorf("%w: insert %q: %w", ErrSaveFailed, r.Key, err)
			}
		}
		return nil
	})
}

// Size returns the size of the main database file.
func (b *SQLiteBackend) Size() (int64, error) {
	if strings.Contains(b.path, ":memory:") {
		return 0, nil
	}
	fi, err := os.Stat(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return fi.Size(), nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Transact runs fn in a transaction wrapped with RetryWithBackoff.
func Transact(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	return RetryWithBackoff(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}
