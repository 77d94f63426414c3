package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

// statusOptions holds CLI flags for status.
type statusOptions struct {
	entityID string
	sources  string
	format   string
}

func newStatusCmd() *cobra.Command {
	var opts statusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show an entity's index manifest",
		Long: `Build (or reuse) the entity's index from a JSON source file and
print its manifest: chunk and source counts, vector presence, and
generation.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.entityID, "entity", "e", "", "Entity id (required)")
	cmd.Flags().StringVarP(&opts.sources, "sources", "s", "", "Path to JSON file with source records")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, opts statusOptions) error {
	store, _, err := newStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Shutdown() }()

	if opts.sources != "" {
		records, err := loadRecords(opts.sources)
		if err != nil {
			return err
		}
		if _, err := store.Ensure(ctx, opts.entityID, records, false); err != nil {
			return err
		}
	}

	manifest := store.Status(opts.entityID)

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(manifest)
	}

	printManifest(out, manifest)
	return nil
}
