package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/dotkv/internal/app"
	"github.com/dotcommander/dotkv/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	err := NewRootCmd(version).Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Error("command failed", "error", err.Error())
		}
	}
	return err
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "dotkv",
		Short:         "JSON-file key-value store with TTLs, dotted paths, and namespaces",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EnsureConfigDir(); err != nil {
				return err
			}

			// Wire path flags into the app-level resolver.
			var o app.Overrides
			o.ConfigPath, _ = cmd.Flags().GetString("config")
			o.FilePath, _ = cmd.Flags().GetString("file")
			o.BackupPath, _ = cmd.Flags().GetString("backup-dir")
			o.Driver, _ = cmd.Flags().GetString("driver")
			app.SetOverrides(o)

			return nil
		},
	}

	root.PersistentFlags().String("config", "", "Read settings from this config.yaml only")
	root.PersistentFlags().StringP("file", "f", "", "Override store file path (default: $DOTKV_FILE)")
	root.PersistentFlags().String("backup-dir", "", "Override snapshot directory (default: $DOTKV_BACKUP_DIR)")
	root.PersistentFlags().String("driver", "", "Storage driver: json|sqlite")
	root.PersistentFlags().StringP("ns", "n", "", "Namespace to operate in")
	root.Flags().BoolP("version", "v", false, "version for dotkv")

	for _, c := range []*cobra.Command{
		newGetCmd(),
		newHasCmd(),
		newKeysCmd(),
		newAllCmd(),
		newTTLCmd(),
		newRandomCmd(),
		newFindCmd(),
		newFindOneCmd(),
		newSetCmd(),
		newDeleteCmd(),
		newPushCmd(),
		newPullCmd(),
		newArithCmd("add", "Add a number to the value at key"),
		newArithCmd("subtract", "Subtract a number from the value at key"),
		newArithCmd("multiply", "Multiply the value at key"),
		newArithCmd("divide", "Divide the value at key"),
		newToggleCmd(),
		newRenameCmd(),
		newExpireCmd(),
		newPersistCmd(),
		newClearCmd(),
		newCleanCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newBackupsCmd(),
		newStatsCmd(),
		newPathCmd(),
	} {
		root.AddCommand(c)
	}
	root.AddCommand(NewSchemaCmd(root))

	return root
}
