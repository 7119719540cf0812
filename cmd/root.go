// Package cmd implements the assistant command line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/everlasthealth/assistant/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Everlast Health conversational assistant",
	Long: `A retrieval-augmented conversational assistant for stress and anxiety
support. Answers are grounded in a knowledge base of functional medicine
content, and the response style adapts when the user asks for it.

Run "assistant serve" to start the HTTP API, or "assistant ask" for a
one-shot question.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds the process logger from the verbose flag.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: true})
}

// requireAPIKey fails early with setup instructions when no Gemini
// credential is present, instead of erroring on the first model call.
func requireAPIKey() error {
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		return nil
	}
	fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Please run:")
	fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
	return fmt.Errorf("GEMINI_API_KEY not set")
}
