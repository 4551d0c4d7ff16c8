package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dotcommander/dotkv/internal/output"
	"github.com/dotcommander/dotkv/pkg/kv"
)

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <name>",
		Short: "Write the live store to a named snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Name string `json:"name"`
				Path string `json:"path"`
			}
			var r resp
			if err := withStore(cmd, func(s *kv.Store, _ keyspace) error {
				path, err := s.Backup(context.Background(), args[0])
				r = resp{Name: args[0], Path: path}
				return err
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "restore <name>",
		Short:       "Replace the whole store with a named snapshot",
		Args:        cobra.ExactArgs(1),
		Annotations: mutating,
		RunE: func(cmd *cobra.Command, args []string) error {
			remove, _ := cmd.Flags().GetBool("remove")

			type resp struct {
				Name    string `json:"name"`
				Keys    int    `json:"keys"`
				Removed bool   `json:"removed,omitempty"`
			}
			var r resp
			if err := withStore(cmd, func(s *kv.Store, _ keyspace) error {
				if err := s.Restore(context.Background(), args[0]); err != nil {
					return err
				}
				r = resp{Name: args[0], Keys: len(s.Keys())}
				if remove {
					if err := s.RemoveBackup(args[0]); err != nil {
						return err
					}
					r.Removed = true
				}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
	cmd.Flags().Bool("remove", false, "Delete the snapshot after restoring it")
	return cmd
}

func newBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List named snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Dir     string          `json:"dir"`
				Count   int             `json:"count"`
				Backups []kv.BackupInfo `json:"backups"`
			}
			var r resp
			if err := withStore(cmd, func(s *kv.Store, _ keyspace) error {
				infos, err := s.ListBackups()
				if err != nil {
					return err
				}
				if infos == nil {
					infos = []kv.BackupInfo{}
				}
				r = resp{Dir: s.Config().BackupPath, Count: len(infos), Backups: infos}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(r)
		},
	}
}
