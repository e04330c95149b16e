package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Generator produces the final answer text from the rendered evidence
// context. It may fail or exceed its deadline; the pipeline degrades then.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewGenerator creates the answer generator adapter.
func NewGenerator(cfg Config, logger *zap.Logger) *Generator {
	return &Generator{
		client: newClient(cfg),
		model:  cfg.GeneratorModel,
		logger: logger,
	}
}

// Generate answers the question from the context text only.
func (g *Generator) Generate(ctx context.Context, contextText, query string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: contextText},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("generate: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
