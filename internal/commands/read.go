package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/dotkv/internal/output"
	"github.com/dotcommander/dotkv/pkg/kv"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Read the value at a key or dotted path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Key   string `json:"key"`
				Found bool   `json:"found"`
				Value any    `json:"value"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				v, ok := ks.Get(args[0])
				r = resp{Key: args[0], Found: ok, Value: v}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newHasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "has <key>",
		Short: "Report whether a key or dotted path exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Key    string `json:"key"`
				Exists bool   `json:"exists"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				r = resp{Key: args[0], Exists: ks.Has(args[0])}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List live keys in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Count int      `json:"count"`
				Keys  []string `json:"keys"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				keys := ks.Keys()
				r = resp{Count: len(keys), Keys: keys}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Dump every live entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, _ := cmd.Flags().GetBool("meta")

			var data any
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				if meta {
					data = ks.Entries()
				} else {
					data = ks.All()
				}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(data)
		},
	}
	cmd.Flags().Bool("meta", false, "Include expiry and keep insertion order")
	return cmd
}

func newTTLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ttl <key>",
		Short: "Show remaining lifetime of a key in milliseconds (null when it never expires)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Key   string `json:"key"`
				TTLMs *int64 `json:"ttl_ms"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				d, err := ks.TTL(args[0])
				if err != nil {
					return err
				}
				r = resp{Key: args[0], TTLMs: ttlMillis(d)}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newRandomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "random",
		Short: "Pick live values uniformly at random",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("count")

			type resp struct {
				Count  int   `json:"count"`
				Values []any `json:"values"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				values := ks.Sample(n)
				if values == nil {
					values = []any{}
				}
				r = resp{Count: len(values), Values: values}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
	cmd.Flags().IntP("count", "c", 1, "Number of distinct values to return")
	return cmd
}

func newFindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <json-query>",
		Short: "Find entries whose value matches a value or attribute query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Count int       `json:"count"`
				Items []kv.Item `json:"items"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				items, err := ks.Find(parseValue(args[0]))
				if err != nil {
					return err
				}
				if items == nil {
					items = []kv.Item{}
				}
				r = resp{Count: len(items), Items: items}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newFindOneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find-one <json-query>",
		Short: "Return the first entry matching a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Found bool     `json:"found"`
				Item  *kv.Item `json:"item,omitempty"`
			}
			var r resp
			if err := withStore(cmd, func(_ *kv.Store, ks keyspace) error {
				it, ok, err := ks.FindOne(parseValue(args[0]))
				if err != nil {
					return err
				}
				r.Found = ok
				if ok {
					r.Item = &it
				}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}
