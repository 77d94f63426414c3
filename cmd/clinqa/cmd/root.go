// Package cmd provides the CLI commands for clinqa.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/clinqa/retriever/internal/config"
	"github.com/clinqa/retriever/internal/embed"
	"github.com/clinqa/retriever/internal/index"
	"github.com/clinqa/retriever/internal/logging"
	"github.com/clinqa/retriever/pkg/version"
)

var (
	configPath string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the clinqa CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinqa",
		Short: "Hybrid retrieval over clinical note collections",
		Long: `clinqa indexes per-entity clinical note collections and serves
hybrid (BM25 + semantic) retrieval with snippet extraction.

Sources are read from a JSON file; embeddings are optional and the
engine degrades to keyword-only retrieval without them.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("clinqa version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newRetrieveCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg.Level = "debug"
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	loggingCleanup = cleanup
	return nil
}

// newStore loads configuration and assembles the index store with its
// embedder. The caller owns Shutdown.
func newStore() (*index.Store, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if debugMode {
		cfg.LogLevel = "debug"
	}

	embedder, err := embed.NewEmbedder(cfg.EmbedConfig(), slog.Default())
	if err != nil {
		return nil, nil, err
	}

	return index.NewStore(cfg.IndexConfig(), embedder, slog.Default()), cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
