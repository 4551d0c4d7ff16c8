package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// wireEntry is the on-disk shape of one record: {"v": value, "e": millis|null}.
type wireEntry struct {
	V any    `json:"v"`
	E *int64 `json:"e"`
}

// Encode renders records as an indented JSON object. Properties are written
// in slice order so insertion order survives a reload.
func Encode(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Key)
		if err != nil {
			return nil, fmt.Errorf("encode key %q: %w", r.Key, err)
		}
		val, err := json.MarshalIndent(wireEntry{V: r.Value, E: r.ExpiresAt}, "  ", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode value for %q: %w", r.Key, err)
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
	}
	if len(records) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// Decode parses the persisted object. Properties already in the {v, e} shape
// are taken as-is; anything else is a legacy bare value and is wrapped with no
// expiry. A duplicated key keeps its first position and its last value.
func Decode(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: top level is not an object", ErrCorrupt)
	}

	var records []Record
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected token %v", ErrCorrupt, tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: value for %q: %v", ErrCorrupt, key, err)
		}
		rec, err := decodeRecord(key, raw)
		if err != nil {
			return nil, err
		}
		if i, dup := index[key]; dup {
			records[i] = rec
			continue
		}
		index[key] = len(records)
		records = append(records, rec)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", ErrCorrupt)
	}
	return records, nil
}

func decodeRecord(key string, raw json.RawMessage) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		rawV, hasV := fields["v"]
		rawE, hasE := fields["e"]
		if hasV && hasE {
			if exp, ok := decodeExpiry(rawE); ok {
				var v any
				if err := json.Unmarshal(rawV, &v); err != nil {
					return Record{}, fmt.Errorf("%w: value for %q: %v", ErrCorrupt, key, err)
				}
				return Record{Key: key, Value: v, ExpiresAt: exp}, nil
			}
		}
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Record{}, fmt.Errorf("%w: value for %q: %v", ErrCorrupt, key, err)
	}
	return Record{Key: key, Value: v}, nil
}

// decodeExpiry accepts null or a number of milliseconds.
func decodeExpiry(raw json.RawMessage) (*int64, bool) {
	s := string(bytes.TrimSpace(raw))
	if s == "null" {
		return nil, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	ms := int64(f)
	return &ms, true
}
