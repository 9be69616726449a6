package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mwantia/gocatalog/cmd/gocatalog/cli/output"
	"github.com/mwantia/gocatalog/pkg/db/models"
	"github.com/mwantia/gocatalog/pkg/db/store"
	"github.com/spf13/cobra"
)

func NewFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Inspect and manage cataloged files",
	}

	cmd.AddCommand(newFilesListCommand())
	cmd.AddCommand(newFilesShowCommand())
	cmd.AddCommand(newFilesSearchCommand())
	cmd.AddCommand(newFilesRemoveCommand())
	cmd.AddCommand(newFilesSetURLCommand())
	cmd.AddCommand(newFilesDupesCommand())

	return cmd
}

func newFilesListCommand() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List all files, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			files, err := s.catalog.ListFiles(cmd.Context())
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), fileTable(files, long), files)
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "display the full path and hash")

	return cmd
}

func newFilesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file-id>",
		Short: "Show a single file with its tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			file, err := s.catalog.GetFile(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), fileTable([]models.FileWithTags{*file}, true), file)
		},
	}
}

func newFilesSearchCommand() *cobra.Command {
	var tags []string
	var long bool

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search files by text and tags",
		Long: `Search files whose name, shop or product contains the text. Every
--tag narrows the result to files carrying all of the given tags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := store.Query{Tags: tags}
			if len(args) > 0 {
				query.Text = args[0]
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			files, err := s.catalog.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), fileTable(files, long), files)
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "required tag (repeatable)")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "display the full path and hash")

	return cmd
}

func newFilesRemoveCommand() *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "rm <file-id>...",
		Short: "Remove files from the catalog",
		Long: `Remove files with all of their tag links from the catalog. Tags left
without files are deleted. With --purge the files are also deleted from disk.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if len(ids) > 1 && !purge {
				deleted, err := s.catalog.BatchDeleteFiles(cmd.Context(), ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d files\n", deleted)
				return nil
			}

			removed := 0
			for _, id := range ids {
				deleted, err := s.catalog.DeleteFile(cmd.Context(), id, purge)
				if err != nil {
					return err
				}
				if !deleted {
					fmt.Fprintf(cmd.ErrOrStderr(), "File %d does not exist\n", id)
					continue
				}
				removed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d files\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "also delete the files from disk")

	return cmd
}

func newFilesSetURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <file-id> [url]",
		Short: "Set or clear the marketplace URL of a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}

			var url *string
			if len(args) > 1 {
				url = &args[1]
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.catalog.UpdateMarketplaceURL(cmd.Context(), ids[0], url); err != nil {
				return err
			}
			if url == nil || strings.TrimSpace(*url) == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared marketplace URL of file %d\n", ids[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated marketplace URL of file %d\n", ids[0])
			}
			return nil
		},
	}
}

func newFilesDupesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dupes",
		Short: "List files sharing identical content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			groups, err := s.catalog.Duplicates(cmd.Context())
			if err != nil {
				return err
			}

			table := output.Table{
				Headers: []string{"Group", "ID", "Size", "Path"},
				Right:   []int{0, 1, 2},
			}
			for i, group := range groups {
				for _, file := range group {
					table.Rows = append(table.Rows, []string{
						strconv.Itoa(i + 1),
						strconv.FormatUint(uint64(file.ID), 10),
						formatSize(file.Size),
						file.Path,
					})
				}
			}
			return s.render(cmd.OutOrStdout(), table, groups)
		},
	}
}

func fileTable(files []models.FileWithTags, long bool) output.Table {
	table := output.Table{
		Headers: []string{"ID", "Name", "Size", "Shop", "Product", "Tags", "Added"},
		Right:   []int{0, 2},
	}
	if long {
		table.Headers = append(table.Headers, "Path", "Hash")
	}

	for _, entry := range files {
		file := entry.File
		names := make([]string, 0, len(entry.Tags))
		for _, tag := range entry.Tags {
			names = append(names, tag.Name)
		}

		row := []string{
			strconv.FormatUint(uint64(file.ID), 10),
			file.Name,
			formatSize(file.Size),
			orDash(file.ShopName),
			orDash(file.ProductName),
			orDash(strings.Join(names, ", ")),
			formatTime(file.CreatedAt),
		}
		if long {
			row = append(row, file.Path, orDash(file.Hash))
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
