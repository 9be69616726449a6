package client

import (
	"fmt"
	"strconv"

	"github.com/mwantia/gocatalog/cmd/gocatalog/cli/output"
	"github.com/spf13/cobra"
)

func NewDbCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Catalog database maintenance",
	}

	cmd.AddCommand(newDbStatusCommand())
	cmd.AddCommand(newDbMigrateCommand())
	cmd.AddCommand(newDbRollbackCommand())
	cmd.AddCommand(newTagsRecountCommand())

	return cmd
}

func newDbStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openRawSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			statuses, err := s.store.Migrator().Status(cmd.Context())
			if err != nil {
				return err
			}

			table := output.Table{
				Headers: []string{"Version", "Description", "Applied"},
				Right:   []int{0},
			}
			for _, status := range statuses {
				table.Rows = append(table.Rows, []string{
					strconv.Itoa(status.Version),
					status.Description,
					strconv.FormatBool(status.Applied),
				})
			}
			if err := s.render(cmd.OutOrStdout(), table, statuses); err != nil {
				return err
			}
			if s.format == output.FormatTable {
				fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n", s.store.Path())
			}
			return nil
		},
	}
}

func newDbMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openRawSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			pending, err := s.store.Migrator().Pending(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations\n", len(pending))
			return nil
		},
	}
}

func newDbRollbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recent schema migration",
		Long: `Revert the most recent schema migration. Any command that opens the
catalog applies pending migrations again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openRawSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			status, err := s.store.Migrator().Rollback(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back migration %d (%s)\n", status.Version, status.Description)
			return nil
		},
	}
}
