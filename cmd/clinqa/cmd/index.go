package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/clinqa/retriever/internal/index"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	entityID string
	sources  string
	force    bool
	embed    string
	format   string
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or extend an entity's index from a source file",
		Long: `Build the entity's index from a JSON source file. Sources already
indexed are skipped unless --force requests a full rebuild.

With --embed, chunks are embedded after the build: "all" embeds every
chunk, "policy" embeds always-embed categories plus the most recent
chunks up to the configured budget.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.entityID, "entity", "e", "", "Entity id (required)")
	cmd.Flags().StringVarP(&opts.sources, "sources", "s", "", "Path to JSON file with source records (required)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Full rebuild, discarding the existing index and vectors")
	cmd.Flags().StringVar(&opts.embed, "embed", "", "Embed chunks after building: all, policy")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("sources")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	store, _, err := newStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Shutdown() }()

	records, err := loadRecords(opts.sources)
	if err != nil {
		return err
	}

	manifest, err := store.Ensure(ctx, opts.entityID, records, opts.force)
	if err != nil {
		return err
	}

	switch opts.embed {
	case "":
	case "all":
		manifest, err = store.EmbedAll(ctx, opts.entityID)
	case "policy":
		manifest, err = store.EmbedByPolicy(ctx, opts.entityID)
	default:
		return fmt.Errorf("unknown embed mode %q (want all or policy)", opts.embed)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(manifest)
	}

	printManifest(out, manifest)
	return nil
}

func printManifest(out io.Writer, manifest index.Manifest) {
	fmt.Fprintf(out, "Entity:       %s\n", manifest.EntityID)
	fmt.Fprintf(out, "Indexed:      %t\n", manifest.Indexed)
	if !manifest.Indexed {
		return
	}
	fmt.Fprintf(out, "Building:     %t\n", manifest.Building)
	fmt.Fprintf(out, "Chunks:       %d\n", manifest.Chunks)
	fmt.Fprintf(out, "Sources:      %d\n", manifest.Sources)
	fmt.Fprintf(out, "Vectors:      %t\n", manifest.HasVectors)
	fmt.Fprintf(out, "Lexical-only: %t\n", manifest.LexicalOnly)
	fmt.Fprintf(out, "Generation:   %d\n", manifest.Generation)
	fmt.Fprintf(out, "Updated:      %s\n", manifest.UpdatedAt.Format("2006-01-02 15:04:05"))
}
