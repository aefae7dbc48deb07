// Package gemini wraps the Google Gemini API for category prediction and
// spending summaries.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"spendly/internal/log"
)

const (
	DefaultModel = "gemini-2.5-flash"

	categoryTemperature = 0.2
	categoryMaxTokens   = 12
	summaryTemperature  = 0.7
	summaryMaxTokens    = 220
)

var ErrNoContent = errors.New("no content generated")

// Client implements categorize.Predictor and services.Summarizer.
type Client struct {
	client *genai.Client
	model  string
	logger *log.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.WithComponent(log.ComponentAI)
		}
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PredictCategory asks the model for a two to four word service type.
func (c *Client) PredictCategory(ctx context.Context, name, description string) (string, error) {
	return c.generate(ctx, CategoryPrompt(name, description), categoryTemperature, categoryMaxTokens)
}

// Summarize returns a short narrative for a spending prompt.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, summaryTemperature, summaryMaxTokens)
}

func (c *Client) generate(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	c.logger.DebugContext(ctx, "generating content", "model", c.model)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: maxTokens,
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractText(result)
}

// CategoryPrompt builds the service-type prompt for a subscription.
func CategoryPrompt(name, description string) string {
	if strings.TrimSpace(description) == "" {
		description = "N/A"
	}
	return fmt.Sprintf(`You are a precise service categorizer.
Given a subscription name and description, describe what type of service it provides in 2-4 words (e.g., "Credit Card Provider", "Streaming Platform", "Payment Gateway").

Name: %s
Description: %s

Respond with only the service type.`, name, description)
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", ErrNoContent
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}
