package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinqa/retriever/internal/source"
)

// retrieveOptions holds CLI flags for retrieve.
type retrieveOptions struct {
	entityID string
	sources  string
	topK     int
	variants []string
	embedAll bool
	format   string
}

func newRetrieveCmd() *cobra.Command {
	var opts retrieveOptions

	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Rank an entity's note passages against a question",
		Long: `Build (or reuse) the entity's index from a JSON source file, then
rank its passages against the query with hybrid fusion.

Examples:
  clinqa retrieve "cardiac rehab progress" --entity P1 --sources notes.json
  clinqa retrieve "discharge medications" --entity P1 --sources notes.json \
      --variant "medications on discharge" --variant "what was prescribed"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runRetrieve(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.entityID, "entity", "e", "", "Entity id (required)")
	cmd.Flags().StringVarP(&opts.sources, "sources", "s", "", "Path to JSON file with source records (required)")
	cmd.Flags().IntVarP(&opts.topK, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringArrayVar(&opts.variants, "variant", nil, "Additional query rewrites fused with RRF (repeatable)")
	cmd.Flags().BoolVar(&opts.embedAll, "embed", false, "Embed all chunks before retrieving (requires embedding config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("sources")

	return cmd
}

func runRetrieve(ctx context.Context, cmd *cobra.Command, query string, opts retrieveOptions) error {
	store, cfg, err := newStore()
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
	if opts.embedAll {
		if _, err := store.EmbedAll(ctx, opts.entityID); err != nil {
			return err
		}
	}

	topK := opts.topK
	if topK <= 0 {
		topK = cfg.Search.TopK
	}
	queries := append([]string{query}, opts.variants...)
	results, err := store.Retrieve(ctx, opts.entityID, queries, topK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	for i, res := range results {
		fmt.Fprintf(out, "%2d. %-24s score=%.4f", i+1, res.Passage.ID, res.Score)
		if res.Passage.Section != "" {
			fmt.Fprintf(out, "  [%s]", res.Passage.Section)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "    %s\n", excerpt(res.Passage.Text, 160))
	}
	return nil
}

// loadRecords reads a JSON array of raw source maps and normalizes each
// through the boundary adapter. Malformed records are dropped here; the
// store would skip them anyway.
func loadRecords(path string) ([]source.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}

	records := make([]source.Record, 0, len(raw))
	for _, m := range raw {
		rec, err := source.FromMap(m)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > max {
		text = text[:max] + "..."
	}
	return text
}
