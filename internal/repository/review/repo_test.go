package review

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/concierge/internal/db"
)

type mockSearcher struct {
	knnFunc    func(ctx context.Context, index string, vector []float32, filter string, topK int) ([]db.VectorHit, error)
	hybridFunc func(ctx context.Context, index, text string, vector []float32, filter string, topK int) ([]db.VectorHit, error)
}

func (m *mockSearcher) SearchKNN(ctx context.Context, index string, vector []float32, filter string, topK int) ([]db.VectorHit, error) {
	return m.knnFunc(ctx, index, vector, filter, topK)
}

func (m *mockSearcher) SearchHybrid(ctx context.Context, index, text string, vector []float32, filter string, topK int) ([]db.VectorHit, error) {
	return m.hybridFunc(ctx, index, text, vector, filter, topK)
}

type mockEmbedder struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return m.embedFunc(ctx, text)
}

func staticEmbedder(vec []float32) *mockEmbedder {
	return &mockEmbedder{embedFunc: func(context.Context, string) ([]float32, error) {
		return vec, nil
	}}
}

func TestSearch_MapsHitsToResults(t *testing.T) {
	var gotIndex, gotFilter string
	var gotTopK int
	store := &mockSearcher{
		knnFunc: func(_ context.Context, index string, _ []float32, filter string, topK int) ([]db.VectorHit, error) {
			gotIndex, gotFilter, gotTopK = index, filter, topK
			return []db.VectorHit{
				{Key: "review:r1", Score: 0.92, Fields: map[string]string{
					"id": "r1", "rating": "4.5", "text": "great coffee",
				}},
				{Key: "review:r2", Score: 0.81, Fields: map[string]string{
					"id": "r2", "rating": "3", "text": "slow service",
				}},
			}, nil
		},
	}

	repo := New(store, staticEmbedder([]float32{0.1, 0.2}), "idx:reviews")
	results, err := repo.Search(context.Background(), "how is the coffee", "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotIndex != "idx:reviews" || gotTopK != 5 {
		t.Fatalf("index=%q topK=%d", gotIndex, gotTopK)
	}
	if gotFilter != "@business_id:{b1}" {
		t.Fatalf("filter = %q", gotFilter)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	first := results[0]
	if first.Review.ID != "r1" || first.Review.Rating != 4.5 || first.Review.Text != "great coffee" {
		t.Fatalf("first result = %+v", first)
	}
	if first.Similarity != 0.92 {
		t.Fatalf("similarity = %v", first.Similarity)
	}
	if first.Review.BusinessID != "b1" {
		t.Fatalf("business id = %q", first.Review.BusinessID)
	}
}

func TestSearch_EmbedderFailure(t *testing.T) {
	embedErr := errors.New("provider down")
	repo := New(&mockSearcher{}, &mockEmbedder{
		embedFunc: func(context.Context, string) ([]float32, error) { return nil, embedErr },
	}, "idx:reviews")

	if _, err := repo.Search(context.Background(), "how is it", "b1"); !errors.Is(err, embedErr) {
		t.Fatalf("expected embed error, got %v", err)
	}
}

func TestSearch_StoreFailure(t *testing.T) {
	storeErr := errors.New("index missing")
	store := &mockSearcher{
		knnFunc: func(context.Context, string, []float32, string, int) ([]db.VectorHit, error) {
			return nil, storeErr
		},
	}
	repo := New(store, staticEmbedder([]float32{0.1}), "idx:reviews")

	if _, err := repo.Search(context.Background(), "how is it", "b1"); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestBusinessFilter_EscapesTagSyntax(t *testing.T) {
	if got := businessFilter("biz-42.a:x"); got != `@business_id:{biz\-42\.a\:x}` {
		t.Fatalf("filter = %q", got)
	}
}
