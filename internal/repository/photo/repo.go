// Package photo is the photo-hybrid backend: caption text plus image-vector
// similarity.
package photo

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/concierge/internal/db"
	"github.com/kailas-cloud/concierge/internal/domain"
)

const defaultTopK = 5

// Combined-score weights: caption relevance dominates because captions are
// human-written and image similarity is noisier.
const (
	captionWeight = 0.6
	imageWeight   = 0.4
)

// Embedder vectorizes the query text into the image-embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Repo searches photo embeddings and captions for one business.
type Repo struct {
	store db.VectorSearcher
	embed Embedder
	index string
}

// New creates a photo search repository.
func New(store db.VectorSearcher, embed Embedder, index string) *Repo {
	return &Repo{store: store, embed: embed, index: index}
}

// Search runs the hybrid query: caption text prefilter with image-vector
// KNN ranking, falling back to pure KNN when the text matches nothing.
func (r *Repo) Search(ctx context.Context, query, businessID string) ([]domain.PhotoResult, error) {
	vec, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	filter := businessFilter(businessID)
	hits, err := r.store.SearchHybrid(ctx, r.index, query, vec, filter, defaultTopK)
	if err != nil {
		return nil, fmt.Errorf("search hybrid: %w", err)
	}
	if len(hits) == 0 {
		if hits, err = r.store.SearchKNN(ctx, r.index, vec, filter, defaultTopK); err != nil {
			return nil, fmt.Errorf("search knn: %w", err)
		}
	}

	results := make([]domain.PhotoResult, 0, len(hits))
	for _, hit := range hits {
		caption := hit.Fields["caption"]
		captionScore := captionOverlap(query, caption)
		results = append(results, domain.PhotoResult{
			Photo: domain.Photo{
				ID:         hit.Fields["id"],
				BusinessID: businessID,
				URL:        hit.Fields["url"],
				Caption:    caption,
			},
			CaptionScore:    captionScore,
			ImageSimilarity: hit.Score,
			CombinedScore:   captionWeight*captionScore + imageWeight*hit.Score,
		})
	}
	return results, nil
}

// captionOverlap grades how many query terms the caption contains, in [0,1].
func captionOverlap(query, caption string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || caption == "" {
		return 0
	}
	captionText := strings.ToLower(caption)
	matched := 0
	for _, t := range terms {
		if strings.Contains(captionText, strings.Trim(t, "?!.,'\"")) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func businessFilter(businessID string) string {
	escaped := strings.NewReplacer("-", "\\-", ".", "\\.", ":", "\\:").Replace(businessID)
	return fmt.Sprintf("@business_id:{%s}", escaped)
}
