// butterctl runs the catalog pipeline from a terminal: import a sheet,
// export a snapshot, list snapshots, restore one.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danou294/butter-gestion-sub000/internal/config"
	"github.com/danou294/butter-gestion-sub000/internal/geocode"
	"github.com/danou294/butter-gestion-sub000/internal/importer"
	"github.com/danou294/butter-gestion-sub000/internal/storage"
	"github.com/danou294/butter-gestion-sub000/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "butterctl",
		Short:         "Restaurant catalog synchronization pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newImportCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newSnapshotsCmd())
	root.AddCommand(newRestoreCmd())
	return root
}

// buildService wires the pipeline the same way cmd/api does.
func buildService(ctx context.Context) (*importer.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	baseLog := logger.WithField("app", "butterctl")

	conn, err := store.Connect(ctx, cfg, baseLog)
	if err != nil {
		return nil, nil, err
	}

	geocoder := geocode.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, baseLog)

	var offsite importer.Offsite
	if cfg.R2Enabled() {
		r2, err := storage.NewR2Client(ctx, cfg, baseLog)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		offsite = r2
	}

	service := importer.NewService(cfg, conn, geocoder, offsite, baseLog)
	return service, func() { conn.Close() }, nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <sheet.xlsx|sheet.csv>",
		Short: "Replace the catalog collection with the sheet's rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			service, cleanup, err := buildService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := service.RunImport(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("imported %d documents (%d rows read, %d skipped, %d duplicate ids)\n",
				summary.Imported, summary.RowsRead, summary.SkippedRows, summary.DuplicateIDs)
			fmt.Printf("backup: %s (%d documents)\n", summary.BackupDir, summary.BackupCount)
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Snapshot the live collection without touching it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			service, cleanup, err := buildService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			meta, err := service.RunExport(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("snapshot written to %s (%d documents)\n", meta.Dir, meta.DocumentCount)
			return nil
		},
	}
}

func newSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List snapshots available for restore, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			service, cleanup, err := buildService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			snapshots, err := service.ListSnapshots()
			if err != nil {
				return err
			}
			if len(snapshots) == 0 {
				fmt.Println("no snapshots found")
				return nil
			}
			for _, s := range snapshots {
				marker := ""
				if !s.HasMeta {
					marker = " (no metadata, counts are best effort)"
				}
				fmt.Printf("%s  %4d documents  %s%s\n",
					s.CreatedAt.Format("2006-01-02 15:04:05"), s.DocumentCount, s.Dir, marker)
			}
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	var noSafetyBackup bool

	cmd := &cobra.Command{
		Use:   "restore <snapshot-dir>",
		Short: "Replace the live collection with a snapshot's records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			service, cleanup, err := buildService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := service.RunRestore(ctx, args[0], !noSafetyBackup)
			if err != nil {
				return err
			}
			fmt.Printf("restored %d documents (%d deleted, %d skipped)\n",
				summary.Restored, summary.Deleted, summary.Skipped)
			if summary.SafetyDir != "" {
				fmt.Printf("safety snapshot: %s\n", summary.SafetyDir)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noSafetyBackup, "no-safety-backup", false,
		"skip the safety snapshot of the current state before restoring")
	return cmd
}
