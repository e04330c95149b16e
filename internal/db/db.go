// Package db defines the shared key-value / vector-search store contract.
package db

import (
	"context"
	"time"
)

// Store is the main store facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces (ISP); the facade exists
// for the composition root.
type Store interface {
	Pinger
	KVStore
	VectorSearcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks store availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore is plain TTL-capable key-value access.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// Scan returns all keys matching a glob pattern (cursor-driven, no KEYS).
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// VectorHit is one FT.SEARCH result row.
type VectorHit struct {
	Key      string
	Score    float64
	Distance float64
	Fields   map[string]string
}

// VectorSearcher runs KNN and hybrid queries against an FT index.
type VectorSearcher interface {
	// SearchKNN runs pure vector KNN over the named index.
	SearchKNN(ctx context.Context, index string, vector []float32, filter string, topK int) ([]VectorHit, error)
	// SearchHybrid runs a text query combined with vector KNN; text-matching
	// documents rank by vector distance, via the same KNN clause with a
	// full-text prefilter.
	SearchHybrid(ctx context.Context, index, text string, vector []float32, filter string, topK int) ([]VectorHit, error)
}
