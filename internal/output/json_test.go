package output

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/dotkv/pkg/kv"
)

// Compile-time check: kv.OpError must satisfy the local recoverableError interface.
var _ recoverableError = (*kv.OpError)(nil)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	original := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = original }()

	fn()

	require.NoError(t, w.Close())

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	return string(b)
}

func withTerminal(t *testing.T, term bool) {
	t.Helper()
	orig := isTerminal
	isTerminal = func(*os.File) bool { return term }
	t.Cleanup(func() { isTerminal = orig })
}

func TestSuccessAndError(t *testing.T) {
	s := Success(map[string]string{"k": "v"})
	require.Equal(t, "v1", s.SchemaVersion)
	require.True(t, s.Success)
	require.NotNil(t, s.Data)
	require.Empty(t, s.Error)

	e := Error(errors.New("boom"))
	require.Equal(t, "v1", e.SchemaVersion)
	require.False(t, e.Success)
	require.Nil(t, e.Data)
	require.Equal(t, "boom", e.Error)
}

func TestPrintWith_CompactJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Writer: &buf, Pretty: false}

	err := PrintWith(cfg, map[string]string{"hello": "world"})
	require.NoError(t, err)
	require.Equal(t, "{\"hello\":\"world\"}\n", buf.String())
}

func TestPrintWith_PrettyJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Writer: &buf, Pretty: true}

	err := PrintWith(cfg, map[string]string{"hello": "world"})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "\n  \"hello\": \"world\"\n")
	require.True(t, strings.HasPrefix(out, "{\n"))
}

func TestPrint_DefaultCompactJSON(t *testing.T) {
	withTerminal(t, false)
	t.Setenv(EnvPrettyJSON, "")

	out := captureStdout(t, func() {
		err := Print(map[string]string{"hello": "world"})
		require.NoError(t, err)
	})

	require.Equal(t, "{\"hello\":\"world\"}\n", out)
}

func TestPrint_PrettyJSONEnabled(t *testing.T) {
	for _, value := range []string{"1", "true"} {
		t.Run(value, func(t *testing.T) {
			t.Setenv(EnvPrettyJSON, value)

			out := captureStdout(t, func() {
				err := Print(map[string]string{"hello": "world"})
				require.NoError(t, err)
			})

			require.Contains(t, out, "\n  \"hello\": \"world\"\n")
			require.True(t, strings.HasPrefix(out, "{\n"))
		})
	}
}

func TestPrintSuccessAndPrintError(t *testing.T) {
	withTerminal(t, false)
	t.Setenv(EnvPrettyJSON, "")

	successOut := captureStdout(t, func() {
		err := PrintSuccess(map[string]int{"count": 2})
		require.NoError(t, err)
	})
	require.Contains(t, successOut, "\"schema_version\":\"v1\"")
	require.Contains(t, successOut, "\"success\":true")
	require.Contains(t, successOut, "\"count\":2")

	errorOut := captureStdout(t, func() {
		err := PrintError(errors.New("bad things"))
		require.NoError(t, err)
	})
	require.Contains(t, errorOut, "\"schema_version\":\"v1\"")
	require.Contains(t, errorOut, "\"success\":false")
	require.Contains(t, errorOut, "\"error\":\"bad things\"")
}

func TestError_EnrichedOpError(t *testing.T) {
	t.Run("plain error has no enriched fields", func(t *testing.T) {
		resp := Error(errors.New("something broke"))
		require.Empty(t, resp.ErrorCode)
		require.Nil(t, resp.ErrorContext)
	})

	t.Run("op error populates code and context", func(t *testing.T) {
		err := &kv.OpError{Op: "rename", Key: "b", Err: kv.ErrConflict}
		resp := Error(err)
		require.Equal(t, `rename "b": dotkv: key already exists`, resp.Error)
		require.Equal(t, "CONFLICT", resp.ErrorCode)
		require.Equal(t, map[string]string{"op": "rename", "key": "b"}, resp.ErrorContext)
	})

	t.Run("wrapped op error is found", func(t *testing.T) {
		err := fmt.Errorf("cli: %w", &kv.OpError{Op: "restore", Key: "x", Err: kv.ErrNotFound})
		resp := Error(err)
		require.Equal(t, "NOT_FOUND", resp.ErrorCode)
	})

	t.Run("enriched fields marshal to JSON", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := Config{Writer: &buf, Pretty: false}
		err := PrintWith(cfg, Error(&kv.OpError{Op: "divide", Key: "n", Err: kv.ErrInvalidOperand}))
		require.NoError(t, err)
		out := buf.String()
		require.Contains(t, out, `"error_code":"INVALID_OPERAND"`)
		require.Contains(t, out, `"key":"n"`)
	})

	t.Run("plain error omits enriched fields from JSON", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := Config{Writer: &buf, Pretty: false}
		err := PrintWith(cfg, Error(errors.New("plain")))
		require.NoError(t, err)
		out := buf.String()
		require.NotContains(t, out, "error_code")
		require.NotContains(t, out, `"error_context"`)
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Run("unset follows terminal", func(t *testing.T) {
		t.Setenv(EnvPrettyJSON, "")
		withTerminal(t, false)
		require.False(t, DefaultConfig().Pretty)

		withTerminal(t, true)
		require.True(t, DefaultConfig().Pretty)
	})

	t.Run("explicit off wins over terminal", func(t *testing.T) {
		t.Setenv(EnvPrettyJSON, "0")
		withTerminal(t, true)
		cfg := DefaultConfig()
		require.Equal(t, os.Stdout, cfg.Writer)
		require.False(t, cfg.Pretty)
	})

	t.Run("pretty enabled with true", func(t *testing.T) {
		t.Setenv(EnvPrettyJSON, "true")
		withTerminal(t, false)
		cfg := DefaultConfig()
		require.Equal(t, os.Stdout, cfg.Writer)
		require.True(t, cfg.Pretty)
	})
}
