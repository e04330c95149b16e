// Package openai adapts the OpenAI-compatible API to the pipeline's
// classifier, generator, and embedder contracts.
package openai

import (
	openai "github.com/sashabaranov/go-openai"
)

// Config holds the provider settings shared by all three adapters.
type Config struct {
	APIKey          string
	BaseURL         string
	ClassifierModel string
	GeneratorModel  string
	EmbeddingModel  string
	EmbeddingDims   int
}

func newClient(cfg Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}
