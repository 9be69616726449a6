package client

import (
	"fmt"
	"strconv"

	"github.com/mwantia/gocatalog/cmd/gocatalog/cli/output"
	"github.com/mwantia/gocatalog/pkg/db/models"
	"github.com/spf13/cobra"
)

func NewTagsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage tags",
		Long:  "List tags and attach or detach them from cataloged files.",
	}

	cmd.AddCommand(newTagsListCommand())
	cmd.AddCommand(newTagsCreateCommand())
	cmd.AddCommand(newTagsAddCommand())
	cmd.AddCommand(newTagsRemoveCommand())
	cmd.AddCommand(newTagsBatchAddCommand())
	cmd.AddCommand(newTagsBatchRemoveCommand())
	cmd.AddCommand(newTagsRecountCommand())

	return cmd
}

func newTagsListCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List tags by usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			tags, err := s.catalog.ListTags(cmd.Context(), all)
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), tagTable(tags), tags)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include tags without files")

	return cmd
}

func newTagsCreateCommand() *cobra.Command {
	var color string
	var category string
	var parent uint

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a tag without attaching it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var cat *string
			if category != "" {
				cat = &category
			}
			var parentID *uint
			if cmd.Flags().Changed("parent") {
				parentID = &parent
			}
			tag, err := s.catalog.CreateTag(cmd.Context(), args[0], color, cat, parentID)
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), tagTable([]models.Tag{*tag}), tag)
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "tag color (default from catalog.default_tag_color)")
	cmd.Flags().StringVar(&category, "category", "", "tag category")
	cmd.Flags().UintVar(&parent, "parent", 0, "id of the parent tag")

	return cmd
}

func newTagsAddCommand() *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "add <file-id> <tag>",
		Short: "Attach a tag to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			linked, err := s.catalog.LinkTag(cmd.Context(), ids[0], args[1], color)
			if err != nil {
				return err
			}
			if linked {
				fmt.Fprintf(cmd.OutOrStdout(), "Tagged file %d with '%s'\n", ids[0], args[1])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "File %d already has tag '%s'\n", ids[0], args[1])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "color used when the tag is created")

	return cmd
}

func newTagsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file-id> <tag>",
		Short: "Detach a tag from a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			unlinked, err := s.catalog.UnlinkTag(cmd.Context(), ids[0], args[1])
			if err != nil {
				return err
			}
			if unlinked {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed tag '%s' from file %d\n", args[1], ids[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "File %d has no tag '%s'\n", ids[0], args[1])
			}
			return nil
		},
	}
}

func newTagsBatchAddCommand() *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "batch-add <tag> <file-id>...",
		Short: "Attach a tag to several files",
		Long:  "Attach a tag to several files at once. Nothing changes if any file id is unknown.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.catalog.BatchLinkTag(cmd.Context(), ids, args[0], color)
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), output.Table{
				Headers: []string{"Tag", "Linked", "Skipped"},
				Rows:    [][]string{{args[0], strconv.Itoa(result.Linked), strconv.Itoa(result.Skipped)}},
				Right:   []int{1, 2},
			}, result)
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "color used when the tag is created")

	return cmd
}

func newTagsBatchRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "batch-rm <tag> <file-id>...",
		Short: "Detach a tag from several files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.catalog.BatchUnlinkTag(cmd.Context(), ids, args[0])
			if err != nil {
				return err
			}
			return s.render(cmd.OutOrStdout(), output.Table{
				Headers: []string{"Tag", "Unlinked", "Skipped"},
				Rows:    [][]string{{args[0], strconv.Itoa(result.Unlinked), strconv.Itoa(result.Skipped)}},
				Right:   []int{1, 2},
			}, result)
		},
	}
}

func newTagsRecountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recount",
		Short: "Repair tag usage counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			corrected, err := s.catalog.RecountTags(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Corrected %d tag counters\n", corrected)
			return nil
		},
	}
}

func tagTable(tags []models.Tag) output.Table {
	table := output.Table{
		Headers: []string{"ID", "Name", "Color", "Category", "Files"},
		Right:   []int{0, 4},
	}
	for _, tag := range tags {
		category := "-"
		if tag.Category != nil {
			category = *tag.Category
		}
		table.Rows = append(table.Rows, []string{
			strconv.FormatUint(uint64(tag.ID), 10),
			tag.Name,
			tag.Color,
			category,
			strconv.FormatInt(tag.UsageCount, 10),
		})
	}
	return table
}
