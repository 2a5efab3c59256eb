package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"whatsbot/internal/interfaces"
)

// GeminiClient calls Google Gemini through the genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, model string, log *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model, log: log.Named("gemini")}, nil
}

func (c *GeminiClient) Name() string { return "gemini:" + c.model }

func (c *GeminiClient) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	start := time.Now()
	temperature := req.Temperature
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(req.UserMessage, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}},
			Temperature:       &temperature,
			MaxOutputTokens:   int32(req.MaxTokens),
		})
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}

	c.log.Debug("completion generated", zap.Duration("duration", time.Since(start)))
	return resp.Text(), nil
}
