package assistant

import (
	"context"

	"github.com/kailas-cloud/concierge/internal/domain"
)

// Classifier produces an intent for a question. External collaborator.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}

// StructuredSearcher is the structured backend boundary.
type StructuredSearcher interface {
	Search(ctx context.Context, query, businessID string) (domain.StructuredResult, error)
}

// ReviewSearcher is the review-vector backend boundary.
type ReviewSearcher interface {
	Search(ctx context.Context, query, businessID string) ([]domain.ReviewResult, error)
}

// PhotoSearcher is the photo-hybrid backend boundary.
type PhotoSearcher interface {
	Search(ctx context.Context, query, businessID string) ([]domain.PhotoResult, error)
}

// Generator renders the final answer text from the evidence context.
type Generator interface {
	Generate(ctx context.Context, contextText, query string) (string, error)
}
