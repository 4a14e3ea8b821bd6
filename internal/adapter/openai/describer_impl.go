// Package openai describes images with an OpenAI-compatible vision chat model.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/user/alttext-service/internal/repository"
)

const (
	systemPrompt = "You generate high-quality accessibility alt-text for images. " +
		"Be concrete and neutral, avoid guessing unknown details."
	maxTokens   = 120
	temperature = 0.2
)

var errNoChoices = errors.New("openai returned no choices")

// DescriberImpl implements repository.Describer with a chat completion call.
type DescriberImpl struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

var _ repository.Describer = (*DescriberImpl)(nil)

// NewDescriber creates a describer for model. An empty baseURL targets api.openai.com.
func NewDescriber(apiKey, baseURL, model string, logger *zap.Logger) *DescriberImpl {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	logger.Info("Initializing OpenAI describer", zap.String("model", model))
	return &DescriberImpl{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Describe sends the image URL together with prompt and returns the model's answer.
func (d *DescriberImpl) Describe(ctx context.Context, imageURL, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL}},
				},
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	resp, err := d.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	d.logger.Debug("Received description", zap.String("image_url", imageURL),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return resp.Choices[0].Message.Content, nil
}
