// Package review is the review-vector backend: KNN over review embeddings.
package review

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/concierge/internal/db"
	"github.com/kailas-cloud/concierge/internal/domain"
)

const defaultTopK = 5

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Repo searches review embeddings for one business.
type Repo struct {
	store db.VectorSearcher
	embed Embedder
	index string
}

// New creates a review search repository.
func New(store db.VectorSearcher, embed Embedder, index string) *Repo {
	return &Repo{store: store, embed: embed, index: index}
}

// Search embeds the query and runs KNN scoped to the business, best-first.
func (r *Repo) Search(ctx context.Context, query, businessID string) ([]domain.ReviewResult, error) {
	vec, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := r.store.SearchKNN(ctx, r.index, vec, businessFilter(businessID), defaultTopK)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	results := make([]domain.ReviewResult, 0, len(hits))
	for _, hit := range hits {
		rating, _ := strconv.ParseFloat(hit.Fields["rating"], 64)
		results = append(results, domain.ReviewResult{
			Review: domain.Review{
				ID:         hit.Fields["id"],
				BusinessID: businessID,
				Rating:     rating,
				Text:       hit.Fields["text"],
			},
			Similarity: hit.Score,
		})
	}
	return results, nil
}

// businessFilter builds the TAG prefilter, escaping RediSearch tag syntax.
func businessFilter(businessID string) string {
	escaped := strings.NewReplacer("-", "\\-", ".", "\\.", ":", "\\:").Replace(businessID)
	return fmt.Sprintf("@business_id:{%s}", escaped)
}
