// Package style detects whether the user is asking to change the
// conversational style of the assistant.
package style

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/everlasthealth/assistant/internal/conversation"
	"github.com/everlasthealth/assistant/internal/prompt"
)

// Completer issues one model call. Satisfied by llm.Client.
type Completer interface {
	Complete(ctx context.Context, instructions string, turns []prompt.Turn) (string, error)
}

// detectionInstruction is the fixed classifier prompt. The model is told
// to emit nothing but a single JSON object; Detect still tolerates fenced
// output since models do not always comply.
const detectionInstruction = `You are a style classifier that determines if a user is requesting a change in conversational style.
The available styles are:
- default: friendly and concise
- analytical: evidence-based and scientific
- practical: action-oriented and implementable

You must respond with a JSON object containing these exact fields:
- requestingStyle: a boolean indicating if the user is requesting a style change
- confidence: a number between 0.0 and 1.0 indicating detection confidence
- suggestedStyle: one of ["default", "analytical", "practical"], use "default" if the user is not requesting a style change
- explanation: a brief text explaining your decision

Important: Your response must be a single, valid JSON object. Do not include any other text, comments, or explanations outside the JSON structure.`

// fallbackExplanation is reported when the classifier output cannot be
// parsed into a valid detection.
const fallbackExplanation = "Failed to parse style detection response"

// Detector classifies user messages for style-change requests.
type Detector struct {
	completer Completer
	logger    *slog.Logger
}

func New(completer Completer, logger *slog.Logger) (*Detector, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{completer: completer, logger: logger}, nil
}

// Detect classifies a single user message. Malformed or schema-invalid
// model output is not an error: it yields the conservative fallback
// detection, so a flaky classifier can never block an answer. A failed
// model call, however, is returned to the caller.
func (d *Detector) Detect(ctx context.Context, message string) (conversation.StyleDetection, error) {
	raw, err := d.completer.Complete(ctx, detectionInstruction, []prompt.Turn{
		{Role: prompt.RoleUser, Text: message},
	})
	if err != nil {
		return conversation.StyleDetection{}, fmt.Errorf("style detection call: %w", err)
	}

	detection, err := parseDetection(raw)
	if err != nil {
		d.logger.Warn("unparseable style detection response", "error", err, "raw", raw)
		return fallbackDetection(), nil
	}

	return detection, nil
}

func fallbackDetection() conversation.StyleDetection {
	return conversation.StyleDetection{
		RequestingStyle: false,
		Confidence:      1.0,
		Explanation:     fallbackExplanation,
	}
}

// parseDetection decodes and validates the classifier output. Every field
// except suggestedStyle is required, confidence must be within [0, 1],
// and a present suggestedStyle must name a known style.
func parseDetection(raw string) (conversation.StyleDetection, error) {
	var payload struct {
		RequestingStyle *bool    `json:"requestingStyle"`
		Confidence      *float64 `json:"confidence"`
		SuggestedStyle  *string  `json:"suggestedStyle"`
		Explanation     *string  `json:"explanation"`
	}

	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return conversation.StyleDetection{}, fmt.Errorf("decoding detection: %w", err)
	}

	switch {
	case payload.RequestingStyle == nil:
		return conversation.StyleDetection{}, fmt.Errorf("missing requestingStyle")
	case payload.Confidence == nil:
		return conversation.StyleDetection{}, fmt.Errorf("missing confidence")
	case *payload.Confidence < 0 || *payload.Confidence > 1:
		return conversation.StyleDetection{}, fmt.Errorf("confidence %v out of range", *payload.Confidence)
	case payload.Explanation == nil:
		return conversation.StyleDetection{}, fmt.Errorf("missing explanation")
	}

	detection := conversation.StyleDetection{
		RequestingStyle: *payload.RequestingStyle,
		Confidence:      *payload.Confidence,
		Explanation:     *payload.Explanation,
	}

	if payload.SuggestedStyle != nil && *payload.SuggestedStyle != "" {
		suggested, err := conversation.ParseStyle(*payload.SuggestedStyle)
		if err != nil {
			return conversation.StyleDetection{}, fmt.Errorf("invalid suggestedStyle: %w", err)
		}
		detection.SuggestedStyle = &suggested
	}

	return detection, nil
}

// stripFences removes a surrounding markdown code fence, with or without
// a language tag, if one is present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
