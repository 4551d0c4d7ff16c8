package persist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(v int64) *int64 { return &v }

func TestEncodeDecode_PreservesOrderAndExpiry(t *testing.T) {
	records := []Record{
		{Key: "zeta", Value: "last-alpha-first-written"},
		{Key: "alpha", Value: map[string]any{"n": 1.0}, ExpiresAt: ms(1700000000000)},
		{Key: "list", Value: []any{"a", true, nil}},
	}

	data, err := Encode(records)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"zeta\": {"))
	assert.Contains(t, string(data), `"e": 1700000000000`)
	assert.Contains(t, string(data), `"e": null`)

	got, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"zeta", "alpha", "list"}, []string{got[0].Key, got[1].Key, got[2].Key})
	assert.Nil(t, got[0].ExpiresAt)
	require.NotNil(t, got[1].ExpiresAt)
	assert.Equal(t, int64(1700000000000), *got[1].ExpiresAt)
	assert.Equal(t, map[string]any{"n": 1.0}, got[1].Value)
}

func TestEncode_Empty(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecode_WrapsLegacyValues(t *testing.T) {
	data := []byte(`{
		"plain": 42,
		"obj": {"name": "x"},
		"onlyV": {"v": 1},
		"badE": {"v": 1, "e": "soon"},
		"wrapped": {"v": "ok", "e": null}
	}`)

	got, err := Decode(data)
	require.NoError(t, err)
	byKey := map[string]Record{}
	for _, r := range got {
		byKey[r.Key] = r
	}

	assert.Equal(t, 42.0, byKey["plain"].Value)
	assert.Equal(t, map[string]any{"name": "x"}, byKey["obj"].Value)
	assert.Equal(t, map[string]any{"v": 1.0}, byKey["onlyV"].Value)
	assert.Equal(t, map[string]any{"v": 1.0, "e": "soon"}, byKey["badE"].Value)
	assert.Equal(t, "ok", byKey["wrapped"].Value)
	for _, r := range got {
		assert.Nil(t, r.ExpiresAt, r.Key)
	}
}

func TestDecode_Corrupt(t *testing.T) {
	for _, input := range []string{
		"",
		"not json",
		"[1,2,3]",
		`{"a": {"v": 1, "e": null}`,
		`{"a": 1} trailing`,
	} {
		_, err := Decode([]byte(input))
		assert.ErrorIs(t, err, ErrCorrupt, "input %q", input)
	}
}

func TestDecode_DuplicateKeyKeepsLastValue(t *testing.T) {
	got, err := Decode([]byte(`{"a": 1, "b": 2, "a": 3}`))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Key)
	assert.Equal(t, 3.0, got[0].Value)
}

func TestRecordExpiry(t *testing.T) {
	assert.True(t, Record{}.Expiry().IsZero())
	assert.Equal(t, int64(1234), Record{ExpiresAt: ms(1234)}.Expiry().UnixMilli())

	assert.Nil(t, ExpiryMillis(Record{}.Expiry()))
	assert.Equal(t, int64(1234), *ExpiryMillis(Record{ExpiresAt: ms(1234)}.Expiry()))
}
