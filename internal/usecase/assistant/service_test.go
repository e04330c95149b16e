package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/concierge/internal/cache"
	"github.com/kailas-cloud/concierge/internal/domain"
	"github.com/kailas-cloud/concierge/internal/resilience"
)

func TestAnswer_OperationalQuestionStructuredOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ans, err := f.service.Answer(ctx, "Is it open right now?", "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ans.Text == "" {
		t.Fatal("expected non-empty answer")
	}
	if ans.Intent != domain.IntentOperational {
		t.Fatalf("intent = %s", ans.Intent)
	}
	if !ans.Evidence.Structured {
		t.Fatal("expected structured evidence")
	}
	if ans.Degraded {
		t.Fatal("answer must not be degraded")
	}
	if ans.FromCache {
		t.Fatal("first answer cannot come from cache")
	}

	// Operational routing touches only the structured backend.
	if f.structured.calls != 1 {
		t.Fatalf("structured calls = %d", f.structured.calls)
	}
	if f.reviews.calls != 0 || f.photos.calls != 0 {
		t.Fatalf("vector backends called: reviews=%d photos=%d", f.reviews.calls, f.photos.calls)
	}

	// The generation context carries the canonical hours.
	if !strings.Contains(f.generator.lastContext, "Monday 09:00-22:00") {
		t.Fatalf("hours missing from generation context:\n%s", f.generator.lastContext)
	}

	// The hours snapshot is cached for future degraded answers.
	if hours, ok := f.cache.Get(ctx, cache.HoursKey("b1"), cache.HoursTTL); !ok || !strings.Contains(string(hours), "Monday 09:00-22:00") {
		t.Fatalf("hours snapshot not cached: %q ok=%v", hours, ok)
	}
}

func TestAnswer_SecondIdenticalQueryServedFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Answer(ctx, "Is it open right now?", "b1")
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}
	second, err := f.service.Answer(ctx, "is it open   RIGHT now?", "b1")
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}

	if !second.FromCache {
		t.Fatal("expected cache hit for normalized-identical query")
	}
	if second.Text != first.Text {
		t.Fatalf("cached answer differs: %q vs %q", second.Text, first.Text)
	}
	if f.structured.calls != 1 || f.generator.calls != 1 || f.classifier.calls != 1 {
		t.Fatalf("backends re-invoked on cache hit: structured=%d generator=%d classifier=%d",
			f.structured.calls, f.generator.calls, f.classifier.calls)
	}
}

func TestAnswer_GeneratorFailureDegrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	normal, err := f.service.Answer(ctx, "Is it open right now?", "b1")
	if err != nil {
		t.Fatalf("normal answer: %v", err)
	}

	f.generator.generateFunc = func(context.Context, string, string) (string, error) {
		return "", errors.New("model unavailable")
	}

	ans, err := f.service.Answer(ctx, "What are the hours on weekends?", "b1")
	if err != nil {
		t.Fatalf("degraded request must not error: %v", err)
	}
	if !ans.Degraded {
		t.Fatal("expected degraded answer")
	}
	if ans.Text == "" {
		t.Fatal("degraded answer must still carry text")
	}
	if !strings.Contains(ans.Text, "Blue Door Cafe") || !strings.Contains(ans.Text, "Monday 09:00-22:00") {
		t.Fatalf("degraded answer missing canonical facts: %q", ans.Text)
	}
	if !ans.Evidence.Structured {
		t.Fatal("degraded answer should still report structured evidence")
	}
	if ans.Confidence >= normal.Confidence {
		t.Fatalf("degraded confidence %v not below normal %v", ans.Confidence, normal.Confidence)
	}
}

func TestAnswer_OpenGeneratorCircuitSkipsCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.generator.generateFunc = func(context.Context, string, string) (string, error) {
		return "", errors.New("model unavailable")
	}

	// Threshold is 1: the first failure trips the generator breaker.
	if _, err := f.service.Answer(ctx, "Is it open right now?", "b1"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if got := f.guards.Breaker(resilience.DepGenerator).State(); got != resilience.StateOpen {
		t.Fatalf("expected open generator breaker, got %s", got)
	}

	ans, err := f.service.Answer(ctx, "Do they have wifi?", "b1")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if !ans.Degraded {
		t.Fatal("expected degraded answer while circuit is open")
	}
	if f.generator.calls != 1 {
		t.Fatalf("generator invoked through an open circuit, calls=%d", f.generator.calls)
	}
}

func TestAnswer_StructuredFailureStillAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.structured.searchFunc = func(context.Context, string, string) (domain.StructuredResult, error) {
		return domain.StructuredResult{}, errors.New("db down")
	}
	f.generator.generateFunc = func(_ context.Context, contextText, _ string) (string, error) {
		if !strings.Contains(contextText, "(no canonical record available)") {
			t.Errorf("expected placeholder canonical section:\n%s", contextText)
		}
		return "I do not have that information.", nil
	}

	ans, err := f.service.Answer(ctx, "Is it open right now?", "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Evidence.Structured {
		t.Fatal("structured evidence reported despite backend failure")
	}
	if ans.Degraded {
		t.Fatal("a working generator means the answer is not degraded")
	}
}

func TestAnswer_ClassifierFailureRoutesAsUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.classifier.classifyFunc = func(context.Context, string) (domain.Classification, error) {
		return domain.Classification{}, errors.New("classifier down")
	}

	ans, err := f.service.Answer(ctx, "Is it open right now?", "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Intent != domain.IntentUnknown {
		t.Fatalf("intent = %s, want UNKNOWN", ans.Intent)
	}
	// UNKNOWN fans out to every backend.
	if f.structured.calls != 1 || f.reviews.calls != 1 || f.photos.calls != 1 {
		t.Fatalf("expected full fan-out: structured=%d reviews=%d photos=%d",
			f.structured.calls, f.reviews.calls, f.photos.calls)
	}
}

func TestAnswer_RejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		query      string
		businessID string
	}{
		{"empty query", "", "b1"},
		{"blank query", "   ", "b1"},
		{"oversized query", strings.Repeat("x", 513), "b1"},
		{"missing business", "is it open", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Answer(ctx, tt.query, tt.businessID)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
	if f.classifier.calls != 0 {
		t.Fatalf("pipeline ran on invalid input, classifier calls=%d", f.classifier.calls)
	}
}

func TestInvalidate_DropsCachedAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.service.Answer(ctx, "Is it open right now?", "b1"); err != nil {
		t.Fatalf("seed answer: %v", err)
	}

	removed := f.service.Invalidate(ctx, "b1")
	// One cached answer plus the hours snapshot.
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	ans, err := f.service.Answer(ctx, "Is it open right now?", "b1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if ans.FromCache {
		t.Fatal("invalidated answer served from cache")
	}
	if f.structured.calls != 2 {
		t.Fatalf("expected recompute to hit the backend, calls=%d", f.structured.calls)
	}
}

func TestInvalidate_ScopedToOneBusiness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.structured.searchFunc = func(_ context.Context, _ string, businessID string) (domain.StructuredResult, error) {
		b := fixtureBusiness()
		b.ID = businessID
		return domain.StructuredResult{Business: b, Score: 1.0}, nil
	}

	// Seed cached state for two businesses whose IDs share a prefix.
	if _, err := f.service.Answer(ctx, "Is it open right now?", "b1"); err != nil {
		t.Fatalf("seed b1: %v", err)
	}
	if _, err := f.service.Answer(ctx, "Is it open right now?", "b10"); err != nil {
		t.Fatalf("seed b10: %v", err)
	}

	f.service.Invalidate(ctx, "b1")

	if _, ok := f.cache.Get(ctx, cache.HoursKey("b10"), cache.HoursTTL); !ok {
		t.Fatal("invalidating b1 dropped the hours snapshot for b10")
	}
	if _, ok := f.cache.Get(ctx, cache.AnswerKey("b10", "Is it open right now?"), cache.AnswerTTL); !ok {
		t.Fatal("invalidating b1 dropped a cached answer for b10")
	}
	if _, ok := f.cache.Get(ctx, cache.HoursKey("b1"), cache.HoursTTL); ok {
		t.Fatal("hours snapshot for b1 survived its own invalidation")
	}
	if _, ok := f.cache.Get(ctx, cache.AnswerKey("b1", "Is it open right now?"), cache.AnswerTTL); ok {
		t.Fatal("cached answer for b1 survived its own invalidation")
	}
}

func TestAnswer_ConfidenceBlend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Structured score 1.0, no anecdotal evidence: FinalScore = 0.4.
	// Confidence = 0.3*0.9 + 0.7*0.4 = 0.55.
	ans, err := f.service.Answer(ctx, "Is it open right now?", "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Confidence < 0.549 || ans.Confidence > 0.551 {
		t.Fatalf("confidence = %v, want 0.55", ans.Confidence)
	}
}
