// Package llm wraps Genkit model calls with retry, rate limiting and a
// circuit breaker. One Client is bound to one model and temperature; the
// answer model and the style classifier each get their own instance.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/everlasthealth/assistant/internal/prompt"
)

// Client issues completions against a single configured model.
type Client struct {
	g           *genkit.Genkit
	model       string
	temperature float32

	retryConfig RetryConfig
	breaker     *CircuitBreaker
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRetryConfig overrides the default retry behavior.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retryConfig = cfg }
}

// WithCircuitBreaker replaces the default circuit breaker, for sharing one
// breaker across clients or tuning its thresholds. A nil breaker disables
// circuit breaking.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithRateLimiter rate-limits each call attempt, retries included.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New creates a Client for the given fully qualified model name
// (e.g. "googleai/gemini-2.5-flash").
func New(g *genkit.Genkit, model string, temperature float32, logger *slog.Logger, opts ...Option) (*Client, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		g:           g,
		model:       model,
		temperature: temperature,
		retryConfig: DefaultRetryConfig(),
		breaker:     NewCircuitBreaker(0, 0, 0),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete sends the instructions and conversation turns to the model and
// returns the response text.
func (c *Client) Complete(ctx context.Context, instructions string, turns []prompt.Turn) (string, error) {
	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			return "", err
		}
	}

	messages := make([]*ai.Message, 0, len(turns))
	for _, turn := range turns {
		part := ai.NewTextPart(turn.Text)
		if turn.Role == prompt.RoleModel {
			messages = append(messages, ai.NewModelMessage(part))
		} else {
			messages = append(messages, ai.NewUserMessage(part))
		}
	}

	text, err := executeWithRetry(ctx, c.retryConfig, c.limiter, c.logger, func(ctx context.Context) (string, error) {
		resp, err := genkit.Generate(ctx, c.g,
			ai.WithModelName(c.model),
			ai.WithSystem(instructions),
			ai.WithMessages(messages...),
			ai.WithConfig(&genai.GenerateContentConfig{
				Temperature: genai.Ptr(c.temperature),
			}),
		)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	})

	if c.breaker != nil {
		if err != nil {
			c.breaker.Failure()
		} else {
			c.breaker.Success()
		}
	}
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", c.model, err)
	}

	return text, nil
}
