package kv

import (
	"github.com/dotcommander/dotkv/internal/persist"
)

// Stats is a point-in-time summary of the store. DBSchemaVersion is the
// applied migration when the SQLite driver is in use.
type Stats struct {
	TotalKeys       int   `json:"total_keys"`
	KeysWithTTL     int   `json:"keys_with_ttl"`
	ExpiredCount    int   `json:"expired_count"`
	FileSize        int64 `json:"file_size"`
	MemSize         int64 `json:"mem_size"`
	AutoSave        bool  `json:"auto_save"`
	UptimeMs        int64 `json:"uptime_ms"`
	Writes          int64 `json:"writes"`
	WriteErrors     int64 `json:"write_errors"`
	DBSchemaVersion int64 `json:"db_schema_version,omitempty"`
}

type schemaVersioner interface {
	SchemaVersion() (current, latest int64, err error)
}

// Stats counts root entries, expired ones included until they are evicted.
// FileSize is the size of the persistence file (0 when missing) and MemSize
// the length of the store in the file encoding.
func (s *Store) Stats() (Stats, error) {
	s.mu.Lock()
	now := s.now()
	st := Stats{
		TotalKeys: len(s.data),
		AutoSave:  s.cfg.AutoSave,
		UptimeMs:  now.Sub(s.started).Milliseconds(),
	}
	for _, e := range s.data {
		if !e.expiresAt.IsZero() {
			st.KeysWithTTL++
		}
		if e.expired(now) {
			st.ExpiredCount++
		}
	}
	s.mu.Unlock()

	data, err := persist.Encode(s.records())
	if err != nil {
		return Stats{}, opErr("stats", "", err)
	}
	st.MemSize = int64(len(data))

	size, err := s.backend.Size()
	if err != nil {
		return Stats{}, opErr("stats", "", err)
	}
	st.FileSize = size
	st.Writes = s.flusher.Writes()
	st.WriteErrors = s.flusher.Failures()
	if sv, ok := s.backend.(schemaVersioner); ok {
		current, _, err := sv.SchemaVersion()
		if err != nil {
			return Stats{}, opErr("stats", "", err)
		}
		st.DBSchemaVersion = current
	}
	return st, nil
}
