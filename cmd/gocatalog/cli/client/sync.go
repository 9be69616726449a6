package client

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mwantia/gocatalog/cmd/gocatalog/cli/output"
	"github.com/mwantia/gocatalog/pkg/reconcile"
	"github.com/spf13/cobra"
)

func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the catalog with the library on disk",
	}

	cmd.AddCommand(newSyncScanCommand())
	cmd.AddCommand(newSyncCleanCommand())
	cmd.AddCommand(newSyncLastCommand())

	return cmd
}

func newSyncScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Find missing, changed and orphaned files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.catalog.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.render(cmd.OutOrStdout(), missingTable(result), result); err != nil {
				return err
			}
			if s.format == output.FormatTable {
				fmt.Fprintf(cmd.OutOrStdout(), "%d files checked in %s: %d missing, %d orphaned, %d updated\n",
					result.TotalFiles, result.Duration.Round(time.Millisecond), len(result.MissingFiles),
					result.OrphanedFilesCount, result.UpdatedFilesCount)
			}
			return nil
		},
	}
}

func newSyncCleanCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove records whose files are missing",
		Long: `Scan the library and remove every record whose file no longer exists.
Tags left without files are deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.catalog.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			if dryRun || len(result.MissingFiles) == 0 {
				return s.render(cmd.OutOrStdout(), missingTable(result), result)
			}

			ids := make([]uint, 0, len(result.MissingFiles))
			for _, missing := range result.MissingFiles {
				ids = append(ids, missing.ID)
			}
			removed, err := s.catalog.RemoveMissing(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d of %d missing files\n", removed, len(ids))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only list the records that would be removed")

	return cmd
}

func newSyncLastCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Show the most recent scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.catalog.LastSync(cmd.Context())
			if err != nil {
				return err
			}

			status := "ok"
			if run.LastError != "" {
				status = run.LastError
			}
			return s.render(cmd.OutOrStdout(), output.Table{
				Headers: []string{"Run", "Started", "Duration", "Files", "Missing", "Orphaned", "Updated", "Status"},
				Rows: [][]string{{
					strconv.FormatUint(uint64(run.ID), 10),
					formatTime(run.StartedAt),
					run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
					strconv.FormatInt(run.TotalFiles, 10),
					strconv.FormatInt(run.MissingFiles, 10),
					strconv.FormatInt(run.OrphanedFiles, 10),
					strconv.FormatInt(run.UpdatedFiles, 10),
					status,
				}},
				Right: []int{0, 3, 4, 5, 6},
			}, run)
		},
	}
}

func missingTable(result *reconcile.SyncResult) output.Table {
	table := output.Table{
		Headers: []string{"ID", "Name", "Shop", "Product", "Path"},
		Right:   []int{0},
	}
	for _, missing := range result.MissingFiles {
		table.Rows = append(table.Rows, []string{
			strconv.FormatUint(uint64(missing.ID), 10),
			missing.Name,
			orDash(missing.ShopName),
			orDash(missing.ProductName),
			missing.Path,
		})
	}
	return table
}
