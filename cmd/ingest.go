package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/everlasthealth/assistant/internal/app"
	"github.com/everlasthealth/assistant/internal/config"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Index a directory of documents into the knowledge base",
	Long: `Walks the given directory, splits every .txt and .md file into
overlapping chunks, embeds each chunk and stores it in the knowledge base.
Re-ingesting a file replaces its previous chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(ctx context.Context, dir string) error {
	if err := requireAPIKey(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(ctx, cfg, newLogger())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	indexer, err := a.NewIndexer()
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}

	result, err := indexer.IndexDirectory(ctx, dir)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", dir, err)
	}

	fmt.Printf("Indexed %d files (%d chunks) in %v\n",
		result.FilesIndexed, result.ChunksAdded, result.Duration.Round(time.Millisecond))
	if result.FilesSkipped > 0 {
		fmt.Printf("Skipped %d unsupported files\n", result.FilesSkipped)
	}
	if result.FilesFailed > 0 {
		fmt.Printf("Failed to index %d files, see logs\n", result.FilesFailed)
	}
	return nil
}
