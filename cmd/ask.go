package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/everlasthealth/assistant/internal/app"
	"github.com/everlasthealth/assistant/internal/config"
	"github.com/everlasthealth/assistant/internal/conversation"
)

var askStyle string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), args)
	},
}

func init() {
	askCmd.Flags().StringVar(&askStyle, "style", "", "conversation style: default, analytical or practical")
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, args []string) error {
	if err := requireAPIKey(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	style, err := conversation.ParseStyle(askStyle)
	if err != nil {
		return err
	}

	a, err := app.Setup(ctx, cfg, newLogger())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	question := strings.Join(args, " ")
	result, err := a.Orchestrator.HandleTurn(ctx, question, nil, style)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(result.Answer)
	if result.EffectiveStyle != style {
		fmt.Printf("\n(answered in %s style)\n", result.EffectiveStyle)
	}
	return nil
}
