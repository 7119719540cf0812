package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/everlasthealth/assistant/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(w io.Writer) error {
	fmt.Fprintf(w, "assistant %s\n", AppVersion)
	fmt.Fprintf(w, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)

	cfg, err := config.Load()
	if err != nil {
		// Version output must work on an unconfigured machine.
		fmt.Fprintf(w, "\nConfiguration: unavailable (%v)\n", err)
		return nil
	}

	fmt.Fprintln(w, "\nConfiguration:")
	fmt.Fprintf(w, "  Answer model: %s (temperature %.2f)\n", cfg.ModelName, cfg.Temperature)
	fmt.Fprintf(w, "  Classifier model: %s (temperature %.2f)\n", cfg.ClassifierModel, cfg.ClassifierTemperature)
	fmt.Fprintf(w, "  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Fprintf(w, "  Search: %d candidates, %d results\n", cfg.SearchCandidates, cfg.SearchResults)
	fmt.Fprintf(w, "  Listen address: %s\n", cfg.ListenAddr)
	return nil
}
