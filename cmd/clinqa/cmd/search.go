package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// searchOptions holds CLI flags for document search.
type searchOptions struct {
	entityID string
	sources  string
	limit    int
	format   string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Keyword search over whole documents",
		Long: `Search an entity's source documents with field-weighted keyword
matching. Title, author, and type matches rank above incidental body
matches; quoted phrases match literally.

Examples:
  clinqa search "chest pain" --entity P1 --sources notes.json
  clinqa search '"atrial fibrillation"' --entity P1 --sources notes.json -n 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.entityID, "entity", "e", "", "Entity id (required)")
	cmd.Flags().StringVarP(&opts.sources, "sources", "s", "", "Path to JSON file with source records (required)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("sources")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	store, _, err := newStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Shutdown() }()

	records, err := loadRecords(opts.sources)
	if err != nil {
		return err
	}
	if _, err := store.Ensure(ctx, opts.entityID, records, false); err != nil {
		return err
	}

	hits := store.SearchDocuments(opts.entityID, query, opts.limit)

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	for i, hit := range hits {
		fmt.Fprintf(out, "%2d. %-24s score=%.4f\n", i+1, hit.ID, hit.Score)
		if hit.Snippet != "" {
			fmt.Fprintf(out, "    %s\n", hit.Snippet)
		}
	}
	return nil
}
