package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// EnvPrettyJSON selects indented output: "1"/"true" on, "0"/"false" off.
// When unset, output is indented only if stdout is a terminal.
const EnvPrettyJSON = "DOTKV_PRETTY_JSON"

// Response represents a standard JSON response
type Response struct {
	SchemaVersion string            `json:"schema_version"`
	Success       bool              `json:"success"`
	Data          interface{}       `json:"data,omitempty"`
	Error         string            `json:"error,omitempty"`
	ErrorCode     string            `json:"error_code,omitempty"`
	ErrorContext  map[string]string `json:"error_context,omitempty"`
}

// recoverableError is satisfied by errors that carry a stable code and
// context, such as *kv.OpError.
type recoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
}

// Success wraps a successful response with data
func Success(data interface{}) Response {
	return Response{
		SchemaVersion: "v1",
		Success:       true,
		Data:          data,
	}
}

// Error wraps an error in a response
func Error(err error) Response {
	resp := Response{
		SchemaVersion: "v1",
		Success:       false,
		Error:         err.Error(),
	}
	if re, ok := asRecoverable(err); ok {
		resp.ErrorCode = re.ErrorCode()
		resp.ErrorContext = re.Context()
	}
	return resp
}

func asRecoverable(err error) (recoverableError, bool) {
	for err != nil {
		if re, ok := err.(recoverableError); ok {
			return re, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// Config controls where and how responses are written.
type Config struct {
	Writer io.Writer
	Pretty bool
}

//nolint:gochecknoglobals // swapped in tests
var isTerminal = func(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// DefaultConfig writes to stdout, pretty-printing per DOTKV_PRETTY_JSON.
func DefaultConfig() Config {
	cfg := Config{Writer: os.Stdout}
	switch os.Getenv(EnvPrettyJSON) {
	case "1", "true":
		cfg.Pretty = true
	case "0", "false":
		cfg.Pretty = false
	case "":
		cfg.Pretty = isTerminal(os.Stdout)
	}
	return cfg
}

// PrintWith writes v as JSON using cfg.
func PrintWith(cfg Config, v interface{}) error {
	enc := json.NewEncoder(cfg.Writer)
	if cfg.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// Print prints a value as JSON to stdout
func Print(v interface{}) error {
	return PrintWith(DefaultConfig(), v)
}

// PrintSuccess prints a success response
func PrintSuccess(data interface{}) error {
	return Print(Success(data))
}

// PrintError prints an error response
func PrintError(err error) error {
	return Print(Error(err))
}

// Keep output package focused: commands should handle human-readable formatting.
