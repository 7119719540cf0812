// Package chat orchestrates one conversational turn: style detection and
// knowledge retrieval run concurrently, their outputs feed the composed
// prompt, and the answer model produces the reply. The orchestrator holds
// no conversation state; callers pass the full history on every turn.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/everlasthealth/assistant/internal/conversation"
	"github.com/everlasthealth/assistant/internal/prompt"
	"github.com/everlasthealth/assistant/internal/rag"
)

// styleSwitchThreshold is the classifier confidence a style-change request
// must strictly exceed before the turn switches styles.
const styleSwitchThreshold = 0.7

// Classifier detects style-change requests in a user message.
type Classifier interface {
	Detect(ctx context.Context, message string) (conversation.StyleDetection, error)
}

// Retriever fetches knowledge base context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (rag.Context, error)
}

// Completer issues the answer model call. Satisfied by llm.Client.
type Completer interface {
	Complete(ctx context.Context, instructions string, turns []prompt.Turn) (string, error)
}

// Result is the outcome of one turn.
type Result struct {
	// Answer is the assistant's reply.
	Answer string
	// EffectiveStyle is the style the answer was generated with. It differs
	// from the caller's current style only when a style switch fired.
	EffectiveStyle conversation.Style
	// SearchResults are the deduplicated knowledge hits used as context.
	SearchResults []conversation.SearchResult
	// StyleDetection is the classifier verdict for this turn.
	StyleDetection conversation.StyleDetection
}

// Orchestrator coordinates a single turn end to end.
type Orchestrator struct {
	classifier Classifier
	retriever  Retriever
	completer  Completer
	logger     *slog.Logger
}

func New(classifier Classifier, retriever Retriever, completer Completer, logger *slog.Logger) (*Orchestrator, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		classifier: classifier,
		retriever:  retriever,
		completer:  completer,
		logger:     logger,
	}, nil
}

// HandleTurn answers one user message.
//
// Retrieval failure fails the whole turn: an answer not grounded in the
// knowledge base is worse than no answer. A failed classifier or answer
// call surfaces as ErrCompletionFailed; malformed classifier output does
// not (the detector already degraded it to the fallback verdict).
func (o *Orchestrator) HandleTurn(
	ctx context.Context,
	message string,
	history []conversation.Message,
	currentStyle conversation.Style,
) (Result, error) {
	if strings.TrimSpace(message) == "" {
		return Result{}, fmt.Errorf("%w: empty message", ErrInvalidInput)
	}
	if currentStyle == "" {
		currentStyle = conversation.StyleDefault
	}
	if !currentStyle.Valid() {
		return Result{}, fmt.Errorf("%w: unknown style %q", ErrInvalidInput, currentStyle)
	}

	var (
		detection conversation.StyleDetection
		ragCtx    rag.Context
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detection, err = o.classifier.Detect(gctx, message)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCompletionFailed, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ragCtx, err = o.retriever.Retrieve(gctx, message)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	effective := currentStyle
	if detection.RequestingStyle &&
		detection.Confidence > styleSwitchThreshold &&
		detection.SuggestedStyle != nil {
		effective = *detection.SuggestedStyle
		o.logger.Info("switching conversation style",
			"from", currentStyle,
			"to", effective,
			"confidence", detection.Confidence,
		)
	}

	p := prompt.Compose(effective, ragCtx.CombinedText, history)
	turns := append(p.Turns, prompt.Turn{Role: prompt.RoleUser, Text: message})

	answer, err := o.completer.Complete(ctx, p.Instructions, turns)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	return Result{
		Answer:         answer,
		EffectiveStyle: effective,
		SearchResults:  ragCtx.Results,
		StyleDetection: detection,
	}, nil
}
