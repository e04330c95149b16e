package assistant

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/concierge/internal/cache"
	"github.com/kailas-cloud/concierge/internal/domain"
	"github.com/kailas-cloud/concierge/internal/resilience"
)

type mockClassifier struct {
	classifyFunc func(ctx context.Context, text string) (domain.Classification, error)
	calls        int
}

func (m *mockClassifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	m.calls++
	return m.classifyFunc(ctx, text)
}

type mockStructured struct {
	searchFunc func(ctx context.Context, query, businessID string) (domain.StructuredResult, error)
	calls      int
}

func (m *mockStructured) Search(ctx context.Context, query, businessID string) (domain.StructuredResult, error) {
	m.calls++
	return m.searchFunc(ctx, query, businessID)
}

type mockReviews struct {
	searchFunc func(ctx context.Context, query, businessID string) ([]domain.ReviewResult, error)
	calls      int
}

func (m *mockReviews) Search(ctx context.Context, query, businessID string) ([]domain.ReviewResult, error) {
	m.calls++
	return m.searchFunc(ctx, query, businessID)
}

type mockPhotos struct {
	searchFunc func(ctx context.Context, query, businessID string) ([]domain.PhotoResult, error)
	calls      int
}

func (m *mockPhotos) Search(ctx context.Context, query, businessID string) ([]domain.PhotoResult, error) {
	m.calls++
	return m.searchFunc(ctx, query, businessID)
}

type mockGenerator struct {
	generateFunc func(ctx context.Context, contextText, query string) (string, error)
	calls        int
	lastContext  string
}

func (m *mockGenerator) Generate(ctx context.Context, contextText, query string) (string, error) {
	m.calls++
	m.lastContext = contextText
	return m.generateFunc(ctx, contextText, query)
}

// fixture is a fully wired pipeline over mocks, L1-only cache, and an
// isolated guard registry.
type fixture struct {
	classifier *mockClassifier
	structured *mockStructured
	reviews    *mockReviews
	photos     *mockPhotos
	generator  *mockGenerator
	cache      *cache.QueryCache
	guards     *resilience.Registry
	service    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		classifier: &mockClassifier{
			classifyFunc: func(context.Context, string) (domain.Classification, error) {
				return domain.Classification{Intent: domain.IntentOperational, Confidence: 0.9}, nil
			},
		},
		structured: &mockStructured{
			searchFunc: func(context.Context, string, string) (domain.StructuredResult, error) {
				return domain.StructuredResult{Business: fixtureBusiness(), Score: 1.0}, nil
			},
		},
		reviews: &mockReviews{
			searchFunc: func(context.Context, string, string) ([]domain.ReviewResult, error) {
				return nil, nil
			},
		},
		photos: &mockPhotos{
			searchFunc: func(context.Context, string, string) ([]domain.PhotoResult, error) {
				return nil, nil
			},
		},
		generator: &mockGenerator{
			generateFunc: func(context.Context, string, string) (string, error) {
				return "Yes, it is open now. Hours: Monday 09:00-22:00.", nil
			},
		},
		cache: cache.New(cache.NewLocalCache(64), nil, nil, zap.NewNop()),
		guards: resilience.NewRegistry(resilience.RegistryConfig{
			Breakers: map[string]resilience.BreakerConfig{
				resilience.DepStructured: {FailureThreshold: 3},
				resilience.DepReview:     {FailureThreshold: 3},
				resilience.DepPhoto:      {FailureThreshold: 3},
				resilience.DepGenerator:  {FailureThreshold: 1},
			},
			Limiters: map[string]int{
				resilience.LimiterVector:   4,
				resilience.LimiterGenerate: 2,
			},
		}, nil, zap.NewNop()),
	}

	f.service = New(
		f.classifier, f.structured, f.reviews, f.photos, f.generator,
		f.cache, f.guards, DefaultBudgets(), Metrics{}, zap.NewNop(),
	)
	return f
}

func fixtureBusiness() *domain.Business {
	b := &domain.Business{
		ID:      "b1",
		Name:    "Blue Door Cafe",
		Address: "12 Canal St",
		Phone:   "555-0100",
		Amenities: map[string]bool{
			"wifi_free": true,
		},
	}
	for i := range b.Hours {
		b.Hours[i] = domain.DayHours{Open: 9 * 60, Close: 22 * 60}
	}
	return b
}
