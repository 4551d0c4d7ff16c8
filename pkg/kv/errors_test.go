package kv

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpErrorCodes(t *testing.T) {
	cases := map[error]string{
		ErrNotFound:       "NOT_FOUND",
		ErrConflict:       "CONFLICT",
		ErrInvalidOperand: "INVALID_OPERAND",
		ErrInvalidKey:     "INVALID_KEY",
		ErrInvalidName:    "INVALID_NAME",
		ErrInvalidValue:   "INVALID_VALUE",
		ErrCorrupt:        "CORRUPT",
		ErrClosed:         "CLOSED",
		errors.New("x"):   "INTERNAL",
	}
	for sentinel, code := range cases {
		err := &OpError{Op: "op", Key: "k", Err: fmt.Errorf("%w: detail", sentinel)}
		assert.Equal(t, code, err.ErrorCode(), sentinel.Error())
		assert.ErrorIs(t, err, sentinel)
	}
}

func TestOpErrorFormatting(t *testing.T) {
	err := opErr("rename", "a", ErrConflict)
	require.EqualError(t, err, `rename "a": dotkv: key already exists`)

	err = opErr("sync", "", ErrClosed)
	require.EqualError(t, err, "sync: dotkv: store closed")

	var oe *OpError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, map[string]string{"op": "sync"}, oe.Context())
	assert.Equal(t, []any{"op", "sync", "code", "CLOSED"}, oe.SlogAttrs())
}
