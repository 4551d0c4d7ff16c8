package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/dotkv/internal/output"
	"github.com/dotcommander/dotkv/pkg/kv"
)

// mutating marks commands that change the store; the schema command reports it.
var mutating = map[string]string{"mutates": "true"}

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "set <key> <value>",
		Short:       "Store a value (parsed as JSON when valid, else a string)",
		Args:        cobra.ExactArgs(2),
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			value := parseValue(args[1])

			type resp struct {
				Key   string `json:"key"`
				Value any    `json:"value"`
				TTLMs *int64 `json:"ttl_ms,omitempty"`
			}
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				return ks.Set(args[0], value, kv.WithTTL(ttl))
			}); err != nil {
				return err
			}

			r := resp{Key: args[0], Value: value}
			if ttl > 0 {
				r.TTLMs = ttlMillis(ttl)
			}
			return output.PrintSuccess(r)
		},
	}
	cmd.Flags().Duration("ttl", 0, "Expire the root key after this duration (e.g. 30s, 10m)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "delete <key>",
		Short:       "Delete a key or a field at a dotted path",
		Args:        cobra.ExactArgs(1),
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Key     string `json:"key"`
				Deleted bool   `json:"deleted"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				ok, err := ks.Delete(args[0])
				r = resp{Key: args[0], Deleted: ok}
				return err
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "push <key> <value>",
		Short:       "Append a value to the list at key",
		Args:        cobra.ExactArgs(2),
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Key  string `json:"key"`
				List []any  `json:"list"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				list, err := ks.Push(args[0], parseValue(args[1]))
				r = resp{Key: args[0], List: list}
				return err
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "pull <key> <value>",
		Short:       "Remove every equal element from the list at key",
		Args:        cobra.ExactArgs(2),
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Key    string `json:"key"`
				Pulled bool   `json:"pulled"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				ok, err := ks.Pull(args[0], parseValue(args[1]))
				r = resp{Key: args[0], Pulled: ok}
				return err
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newArithCmd(op, short string) *cobra.Command {
	return &cobra.Command{
		Use:         op + " <key> <amount>",
		Short:       short,
		Args:        cobra.ExactArgs(2),
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return cmdErr(&kv.OpError{Op: op, Key: args[0], Err: fmt.Errorf("%w: %q", kv.ErrInvalidOperand, args[1])})
			}

			type resp struct {
				Key   string  `json:"key"`
				Value float64 `json:"value"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				var (
					v   float64
					err error
				)
				switch op {
				case "add":
					v, err = ks.Add(args[0], amount)
				case "subtract":
					v, err = ks.Subtract(args[0], amount)
				case "multiply":
					v, err = ks.Multiply(args[0], amount)
				case "divide":
					v, err = ks.Divide(args[0], amount)
				default:
					return fmt.Errorf("unknown operation %q", op)
				}
				r = resp{Key: args[0], Value: v}
				return err
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "toggle <key>",
		Short:       "Negate the truthiness of the value at key",
		Args:        cobra.ExactArgs(1),
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Key   string `json:"key"`
				Value bool   `json:"value"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				v, err := ks.Toggle(args[0])
				r = resp{Key: args[0], Value: v}
				return err
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "rename <old-key> <new-key>",
		Short:       "Move a root key, keeping its value and expiry",
		Args:        cobra.ExactArgs(2),
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				return ks.Rename(args[0], args[1])
			}); err != nil {
				return err
			}
			type resp struct {
				OldKey string `json:"old_key"`
				NewKey string `json:"new_key"`
			}
			return output.PrintSuccess(resp{OldKey: args[0], NewKey: args[1]})
		},
	}
}

func newExpireCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "expire <key> <duration>",
		Short:       "Set a new expiry on a root key (e.g. 30s, 10m)",
		Args:        cobra.ExactArgs(2),
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.ParseDuration(args[1])
			if err != nil {
				return cmdErr(&kv.OpError{Op: "expire", Key: args[0], Err: fmt.Errorf("%w: %v", kv.ErrInvalidOperand, err)})
			}

			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				return ks.Expire(args[0], d)
			}); err != nil {
				return err
			}
			type resp struct {
				Key   string `json:"key"`
				TTLMs *int64 `json:"ttl_ms"`
			}
			return output.PrintSuccess(resp{Key: args[0], TTLMs: ttlMillis(d)})
		},
	}
}

func newPersistCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "persist <key>",
		Short:       "Remove the expiry from a root key",
		Args:        cobra.ExactArgs(1),
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				return ks.Persist(args[0])
			}); err != nil {
				return err
			}
			type resp struct {
				Key string `json:"key"`
			}
			return output.PrintSuccess(resp{Key: args[0]})
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "clear",
		Short:       "Remove every key (only the namespace's keys with --ns)",
		Args:        cobra.NoArgs,
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Removed int `json:"removed"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				r.Removed = len(ks.Keys())
				return ks.Clear()
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "clean",
		Short:       "Evict every expired key now",
		Args:        cobra.NoArgs,
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Count   int      `json:"count"`
				Evicted []string `json:"evicted"`
			}
			var r resp
			if err := withStore(cmd, func(s *kv.Store, _ keyspace) error {
				evicted := s.CleanExpired()
				if evicted == nil {
					evicted = []string{}
				}
				r = resp{Count: len(evicted), Evicted: evicted}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}
