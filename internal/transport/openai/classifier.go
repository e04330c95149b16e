package openai

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/concierge/internal/domain"
)

const classifierSystemPrompt = `You classify questions about a single business.
Reply with exactly one line: LABEL CONFIDENCE
LABEL is one of: OPERATIONAL, AMENITY, QUALITY, PHOTO, UNKNOWN.
CONFIDENCE is a number between 0 and 1.
OPERATIONAL: hours, open now, location, phone.
AMENITY: does it have a feature (wifi, parking, patio, delivery).
QUALITY: is it good, reviews, food quality, service.
PHOTO: what does it look like, show me, interior, dishes.
UNKNOWN: anything else.`

// fallback confidence when the model's reply cannot be parsed.
const unparsedConfidence = 0.3

// Classifier maps a question to an intent via a chat completion.
type Classifier struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewClassifier creates the intent classifier adapter.
func NewClassifier(cfg Config, logger *zap.Logger) *Classifier {
	return &Classifier{
		client: newClient(cfg),
		model:  cfg.ClassifierModel,
		logger: logger,
	}
}

// Classify returns the intent, a confidence in [0,1], and elapsed ms.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   10,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Classification{}, fmt.Errorf("classify: empty response")
	}

	intent, confidence := parseLabel(resp.Choices[0].Message.Content)
	if intent == domain.IntentUnknown && confidence == unparsedConfidence {
		c.logger.Debug("unparsed classifier reply",
			zap.String("reply", resp.Choices[0].Message.Content))
	}

	return domain.Classification{
		Intent:     intent,
		Confidence: confidence,
		ElapsedMs:  elapsed,
	}, nil
}

// parseLabel reads "LABEL CONFIDENCE"; anything malformed degrades to
// UNKNOWN with a low confidence rather than an error.
func parseLabel(reply string) (domain.Intent, float64) {
	fields := strings.Fields(strings.TrimSpace(reply))
	if len(fields) == 0 {
		return domain.IntentUnknown, unparsedConfidence
	}

	intent := domain.ParseIntent(fields[0])

	confidence := unparsedConfidence
	if len(fields) > 1 {
		if v, err := strconv.ParseFloat(fields[1], 64); err == nil && v >= 0 && v <= 1 {
			confidence = v
		}
	}
	return intent, confidence
}
