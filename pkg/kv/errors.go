package kv

import (
	"errors"
	"fmt"
)

// Sentinel errors. Operations wrap them in *OpError; test with errors.Is.
var (
	ErrNotFound       = errors.New("dotkv: not found")
	ErrConflict       = errors.New("dotkv: key already exists")
	ErrInvalidOperand = errors.New("dotkv: invalid operand")
	ErrInvalidKey     = errors.New("dotkv: invalid key")
	ErrInvalidName    = errors.New("dotkv: invalid name")
	ErrInvalidValue   = errors.New("dotkv: invalid value")
	ErrCorrupt        = errors.New("dotkv: corrupt snapshot")
	ErrClosed         = errors.New("dotkv: store closed")
)

// OpError records the operation and key that failed.
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// ErrorCode returns a stable machine-readable code for the failure.
func (e *OpError) ErrorCode() string {
	switch {
	case errors.Is(e.Err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(e.Err, ErrConflict):
		return "CONFLICT"
	case errors.Is(e.Err, ErrInvalidOperand):
		return "INVALID_OPERAND"
	case errors.Is(e.Err, ErrInvalidKey):
		return "INVALID_KEY"
	case errors.Is(e.Err, ErrInvalidName):
		return "INVALID_NAME"
	case errors.Is(e.Err, ErrInvalidValue):
		return "INVALID_VALUE"
	case errors.Is(e.Err, ErrCorrupt):
		return "CORRUPT"
	case errors.Is(e.Err, ErrClosed):
		return "CLOSED"
	default:
		return "INTERNAL"
	}
}

// Context returns the operation and key for error envelopes.
func (e *OpError) Context() map[string]string {
	ctx := map[string]string{"op": e.Op}
	if e.Key != "" {
		ctx["key"] = e.Key
	}
	return ctx
}

// SlogAttrs returns key/value pairs for structured logging.
func (e *OpError) SlogAttrs() []any {
	attrs := []any{"op", e.Op, "code", e.ErrorCode()}
	if e.Key != "" {
		attrs = append(attrs, "key", e.Key)
	}
	return attrs
}

func opErr(op, key string, err error) error {
	return &OpError{Op: op, Key: key, Err: err}
}
