// Package embcache caches query embeddings in the two-tier query cache.
package embcache

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kailas-cloud/concierge/internal/cache"
)

// Embedder vectorizes text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CachedEmbedder is a caching decorator over an Embedder, using the shared
// query cache's emb: namespace (30 minute TTL at both tiers).
type CachedEmbedder struct {
	inner  Embedder
	cache  *cache.QueryCache
	logger *zap.Logger
}

// New creates the caching decorator.
func New(inner Embedder, c *cache.QueryCache, logger *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c, logger: logger}
}

// Embed returns a cached vector or calls the inner embedder and caches.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.EmbeddingKey(text)

	if data, ok := c.cache.Get(ctx, key, cache.EmbeddingTTL); ok {
		vec, err := bytesToVector(data)
		if err == nil {
			return vec, nil
		}
		c.logger.Warn("failed to parse cached embedding", zap.String("key", key), zap.Error(err))
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	c.cache.Set(ctx, key, vectorToBytes(vec), cache.EmbeddingTTL)
	return vec, nil
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
