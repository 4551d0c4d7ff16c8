package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/dotkv/internal/app"
	"github.com/dotcommander/dotkv/internal/output"
	"github.com/dotcommander/dotkv/pkg/kv"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show key counts and storage sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				kv.Stats
				FilePath string `json:"file_path"`
				Driver   string `json:"driver"`
			}
			var r resp
			if err := withStore(cmd, func(s *kv.Store, _ keyspace) error {
				st, err := s.Stats()
				if err != nil {
					return err
				}
				r = resp{Stats: st, FilePath: s.Config().FilePath, Driver: s.Config().Driver}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the resolved store file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, source, err := app.ResolveFilePathDetailed()
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Path   string `json:"path"`
				Source string `json:"source"`
			}
			return output.PrintSuccess(resp{Path: path, Source: source})
		},
	}
}
