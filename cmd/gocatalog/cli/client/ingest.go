package client

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mwantia/gocatalog/cmd/gocatalog/cli/output"
	"github.com/mwantia/gocatalog/pkg/ingest"
	"github.com/spf13/cobra"
)

func NewIngestCommand() *cobra.Command {
	var url string
	var dest string
	var tags []string
	var entries bool

	cmd := &cobra.Command{
		Use:   "ingest <archive>...",
		Short: "Extract archives into the library",
		Long: `Extract one or more archives into the library and register every
extracted file in the catalog.

With --url the archive is placed below <shop>/<product> and tagged with
the marketplace tags. Without it the files land in the unsorted bucket.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if url != "" && len(args) > 1 {
				return errors.New("--url can only be used with a single archive")
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			requests := make([]ingest.Request, 0, len(args))
			for _, arg := range args {
				requests = append(requests, ingest.Request{
					ArchivePath:    arg,
					MarketplaceURL: url,
					OutputDir:      dest,
					Tags:           tags,
				})
			}
			results := s.catalog.IngestBatch(cmd.Context(), requests)

			table := output.Table{
				Headers: []string{"Archive", "Status", "Destination", "Files", "Failed", "Message"},
				Right:   []int{3, 4},
			}
			if entries {
				table.Headers = []string{"Archive", "Entry", "File ID", "Size", "Duplicates", "Error"}
				table.Right = []int{2, 3}
			}

			failed := 0
			for _, result := range results {
				if !result.Success {
					failed++
				}
				if entries {
					table.Rows = append(table.Rows, entryRows(result)...)
					continue
				}

				status := "ok"
				switch {
				case !result.Success:
					status = "failed"
				case result.HasDuplicates:
					status = "duplicates"
				}
				table.Rows = append(table.Rows, []string{
					result.ArchivePath,
					status,
					orDash(result.Destination),
					strconv.Itoa(result.Registered),
					strconv.Itoa(result.Failed),
					result.Message,
				})
			}

			if err := s.render(cmd.OutOrStdout(), table, results); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d archives failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "marketplace product URL of the archive")
	cmd.Flags().StringVar(&dest, "dest", "", "library root for these archives")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag to attach to every extracted file (repeatable)")
	cmd.Flags().BoolVar(&entries, "entries", false, "list every extracted entry")

	return cmd
}

func entryRows(result ingest.Result) [][]string {
	rows := make([][]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		id := "-"
		if entry.Registered() {
			id = strconv.FormatUint(uint64(entry.FileID), 10)
		}

		duplicates := "-"
		if len(entry.Duplicates) > 0 {
			duplicates = fmt.Sprint(entry.Duplicates)
		}

		size := "-"
		if entry.Registered() {
			size = formatSize(entry.Size)
		}

		rows = append(rows, []string{
			result.ArchivePath,
			entry.EntryPath,
			id,
			size,
			duplicates,
			orDash(entry.Error),
		})
	}
	return rows
}
