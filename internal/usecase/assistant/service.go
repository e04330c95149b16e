// Package assistant composes the query-serving pipeline: cache, classify,
// route, parallel guarded search fan-out, orchestrate, generate, cache store.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/concierge/internal/cache"
	"github.com/kailas-cloud/concierge/internal/domain"
	"github.com/kailas-cloud/concierge/internal/resilience"
	"github.com/kailas-cloud/concierge/internal/usecase/evidence"
)

const maxQueryLen = 512

// Budgets holds the per-call deadlines. The generator budget dominates the
// latency envelope; the search budgets keep the fan-out inside it.
type Budgets struct {
	Structured time.Duration
	Vector     time.Duration
	Generator  time.Duration
}

// DefaultBudgets returns the standard call deadlines.
func DefaultBudgets() Budgets {
	return Budgets{
		Structured: 40 * time.Millisecond,
		Vector:     80 * time.Millisecond,
		Generator:  1000 * time.Millisecond,
	}
}

// Metrics holds the pipeline's instrumentation, passed explicitly. Any
// field may be nil (tests).
type Metrics struct {
	BackendDuration   *prometheus.HistogramVec // labels: dependency, outcome
	GeneratorFallback prometheus.Counter
}

// Service is the request pipeline. Stateless per request except for the
// shared cache and the breaker/limiter registry.
type Service struct {
	classifier Classifier
	structured StructuredSearcher
	reviews    ReviewSearcher
	photos     PhotoSearcher
	generator  Generator
	cache      *cache.QueryCache
	guards     *resilience.Registry
	budgets    Budgets
	metrics    Metrics
	logger     *zap.Logger
}

// New wires the pipeline.
func New(
	classifier Classifier,
	structured StructuredSearcher,
	reviews ReviewSearcher,
	photos PhotoSearcher,
	generator Generator,
	qc *cache.QueryCache,
	guards *resilience.Registry,
	budgets Budgets,
	m Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		classifier: classifier,
		structured: structured,
		reviews:    reviews,
		photos:     photos,
		generator:  generator,
		cache:      qc,
		guards:     guards,
		budgets:    budgets,
		metrics:    m,
		logger:     logger,
	}
}

// Answer serves one question about one business. Every downstream failure
// is absorbed into a best-effort answer; only malformed input returns an
// error.
func (s *Service) Answer(ctx context.Context, query, businessID string) (domain.Answer, error) {
	if err := validate(query, businessID); err != nil {
		return domain.Answer{}, err
	}

	start := time.Now()
	key := cache.AnswerKey(businessID, query)

	if ans, ok := s.cachedAnswer(ctx, key); ok {
		ans.FromCache = true
		ans.LatencyMs = time.Since(start).Milliseconds()
		return ans, nil
	}

	// Stampede protection: the first caller for this key recomputes while
	// concurrent callers wait here, then serve the freshly stored answer.
	unlock := s.cache.LockKey(key)
	defer unlock()
	if ans, ok := s.cachedAnswer(ctx, key); ok {
		ans.FromCache = true
		ans.LatencyMs = time.Since(start).Milliseconds()
		return ans, nil
	}

	cls := s.classify(ctx, query)
	decision := Route(cls.Intent)

	structuredRes, reviewRes, photoRes := s.fanOut(ctx, query, businessID, decision)

	bundle := evidence.Merge(structuredRes, reviewRes, photoRes)
	contextText := evidence.RenderContext(bundle)

	text, degraded := s.generate(ctx, contextText, query, businessID, bundle)

	ans := domain.Answer{
		Text:       text,
		Confidence: confidence(cls, bundle, degraded),
		Intent:     cls.Intent,
		Evidence: domain.EvidenceCounts{
			Structured:  bundle.Business != nil,
			ReviewsUsed: len(bundle.Reviews),
			PhotosUsed:  len(bundle.Photos),
		},
		LatencyMs: time.Since(start).Milliseconds(),
		Degraded:  degraded,
	}

	s.storeAnswer(ctx, key, ans)
	return ans, nil
}

// Invalidate drops all cached answers and the hours snapshot for one
// business at both tiers. Called when ingestion signals a data change.
// The hours key is deleted exactly, never by prefix: "hours:b1" as a
// prefix would also match "hours:b10".
func (s *Service) Invalidate(ctx context.Context, businessID string) int {
	n := s.cache.InvalidatePrefix(ctx, cache.AnswerPrefix(businessID))
	n += s.cache.Delete(ctx, cache.HoursKey(businessID))
	return n
}

func validate(query, businessID string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(query) > maxQueryLen {
		return fmt.Errorf("%w: query exceeds %d characters", domain.ErrInvalidRequest, maxQueryLen)
	}
	if strings.TrimSpace(businessID) == "" {
		return fmt.Errorf("%w: business_id is required", domain.ErrInvalidRequest)
	}
	return nil
}

// classify never fails the request: a classifier error degrades to UNKNOWN
// so routing falls back to the widest fan-out.
func (s *Service) classify(ctx context.Context, query string) domain.Classification {
	cls, err := s.classifier.Classify(ctx, query)
	if err != nil {
		s.logger.Warn("classifier failed, routing as UNKNOWN", zap.Error(err))
		return domain.Classification{Intent: domain.IntentUnknown}
	}
	return cls
}

// fanOut starts the routed backend calls together and awaits them together.
// Results combine in fixed (structured, review, photo) order regardless of
// arrival order. Disabled backends contribute an empty result uncalled.
func (s *Service) fanOut(
	ctx context.Context, query, businessID string, decision domain.RoutingDecision,
) (*domain.StructuredResult, []domain.ReviewResult, []domain.PhotoResult) {
	var (
		wg            sync.WaitGroup
		structuredRes *domain.StructuredResult
		reviewRes     []domain.ReviewResult
		photoRes      []domain.PhotoResult
	)

	if decision.UseStructured {
		wg.Add(1)
		go func() {
			defer wg.Done()
			structuredRes = s.searchStructured(ctx, query, businessID)
		}()
	}
	if decision.UseReviewVector {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reviewRes = s.searchReviews(ctx, query, businessID)
		}()
	}
	if decision.UsePhotoHybrid {
		wg.Add(1)
		go func() {
			defer wg.Done()
			photoRes = s.searchPhotos(ctx, query, businessID)
		}()
	}
	wg.Wait()

	return structuredRes, reviewRes, photoRes
}

func (s *Service) searchStructured(ctx context.Context, query, businessID string) *domain.StructuredResult {
	start := time.Now()
	breaker := s.guards.Breaker(resilience.DepStructured)

	res, err := resilience.Execute(ctx, breaker, domain.StructuredResult{},
		func(ctx context.Context) (domain.StructuredResult, error) {
			return resilience.WithTimeout(ctx, s.budgets.Structured, domain.StructuredResult{},
				func(ctx context.Context) (domain.StructuredResult, error) {
					return s.structured.Search(ctx, query, businessID)
				})
		})
	if err != nil {
		s.observe(resilience.DepStructured, start, false)
		s.logger.Debug("structured search degraded", zap.Error(err))
		return nil
	}

	s.observe(resilience.DepStructured, start, true)
	s.storeHours(ctx, res.Business)
	return &res
}

func (s *Service) searchReviews(ctx context.Context, query, businessID string) []domain.ReviewResult {
	start := time.Now()
	breaker := s.guards.Breaker(resilience.DepReview)
	limiter := s.guards.Limiter(resilience.LimiterVector)

	var results []domain.ReviewResult
	err := limiter.Do(ctx, func(ctx context.Context) error {
		var err error
		results, err = resilience.Execute(ctx, breaker, nil,
			func(ctx context.Context) ([]domain.ReviewResult, error) {
				return resilience.WithTimeout(ctx, s.budgets.Vector, nil,
					func(ctx context.Context) ([]domain.ReviewResult, error) {
						return s.reviews.Search(ctx, query, businessID)
					})
			})
		return err
	})
	if err != nil {
		s.observe(resilience.DepReview, start, false)
		s.logger.Debug("review search degraded", zap.Error(err))
		return nil
	}

	s.observe(resilience.DepReview, start, true)
	return results
}

func (s *Service) searchPhotos(ctx context.Context, query, businessID string) []domain.PhotoResult {
	start := time.Now()
	breaker := s.guards.Breaker(resilience.DepPhoto)
	limiter := s.guards.Limiter(resilience.LimiterVector)

	var results []domain.PhotoResult
	err := limiter.Do(ctx, func(ctx context.Context) error {
		var err error
		results, err = resilience.Execute(ctx, breaker, nil,
			func(ctx context.Context) ([]domain.PhotoResult, error) {
				return resilience.WithTimeout(ctx, s.budgets.Vector, nil,
					func(ctx context.Context) ([]domain.PhotoResult, error) {
						return s.photos.Search(ctx, query, businessID)
					})
			})
		return err
	})
	if err != nil {
		s.observe(resilience.DepPhoto, start, false)
		s.logger.Debug("photo search degraded", zap.Error(err))
		return nil
	}

	s.observe(resilience.DepPhoto, start, true)
	return results
}

// generate runs the answer generator under its own guard chain. Failure or
// an open circuit produces the degraded structured-only answer instead of
// failing the request.
func (s *Service) generate(
	ctx context.Context, contextText, query, businessID string, bundle domain.EvidenceBundle,
) (text string, degraded bool) {
	start := time.Now()
	breaker := s.guards.Breaker(resilience.DepGenerator)
	limiter := s.guards.Limiter(resilience.LimiterGenerate)

	err := limiter.Do(ctx, func(ctx context.Context) error {
		var err error
		text, err = resilience.Execute(ctx, breaker, "",
			func(ctx context.Context) (string, error) {
				return resilience.WithTimeout(ctx, s.budgets.Generator, "",
					func(ctx context.Context) (string, error) {
						return s.generator.Generate(ctx, contextText, query)
					})
			})
		return err
	})
	if err != nil || text == "" {
		s.observe(resilience.DepGenerator, start, false)
		if s.metrics.GeneratorFallback != nil {
			s.metrics.GeneratorFallback.Inc()
		}
		s.logger.Warn("generator degraded, synthesizing structured-only answer", zap.Error(err))
		return s.degradedAnswer(ctx, businessID, bundle), true
	}

	s.observe(resilience.DepGenerator, start, true)
	return text, false
}

// degradedAnswer synthesizes an answer from canonical facts only.
func (s *Service) degradedAnswer(ctx context.Context, businessID string, bundle domain.EvidenceBundle) string {
	if b := bundle.Business; b != nil {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s", b.Name)
		if b.Address != "" {
			fmt.Fprintf(&sb, ", %s", b.Address)
		}
		fmt.Fprintf(&sb, ". Hours: %s.", b.HoursString())
		if b.Phone != "" {
			fmt.Fprintf(&sb, " Phone: %s.", b.Phone)
		}
		return sb.String()
	}

	// No structured result this request; the hours snapshot may still be
	// cached from an earlier one.
	if hours, ok := s.cache.Get(ctx, cache.HoursKey(businessID), cache.HoursTTL); ok {
		return fmt.Sprintf("Hours: %s.", string(hours))
	}
	return "We could not produce a full answer right now. Please try again shortly."
}

// confidence blends classifier certainty with evidence strength. Degraded
// answers are strictly less confident than normal ones for the same inputs.
func confidence(cls domain.Classification, bundle domain.EvidenceBundle, degraded bool) float64 {
	c := 0.3*cls.Confidence + 0.7*bundle.FinalScore
	if degraded {
		c *= 0.5
	}
	if c > 1 {
		c = 1
	}
	return c
}

func (s *Service) cachedAnswer(ctx context.Context, key string) (domain.Answer, bool) {
	data, ok := s.cache.Get(ctx, key, cache.AnswerTTL)
	if !ok {
		return domain.Answer{}, false
	}
	var ans domain.Answer
	if err := json.Unmarshal(data, &ans); err != nil {
		s.logger.Warn("failed to decode cached answer", zap.String("key", key), zap.Error(err))
		return domain.Answer{}, false
	}
	return ans, true
}

func (s *Service) storeAnswer(ctx context.Context, key string, ans domain.Answer) {
	data, err := json.Marshal(ans)
	if err != nil {
		s.logger.Warn("failed to encode answer for cache", zap.Error(err))
		return
	}
	s.cache.Set(ctx, key, data, cache.AnswerTTL)
}

func (s *Service) storeHours(ctx context.Context, b *domain.Business) {
	if b == nil {
		return
	}
	s.cache.Set(ctx, cache.HoursKey(b.ID), []byte(b.HoursString()), cache.HoursTTL)
}

func (s *Service) observe(dependency string, start time.Time, ok bool) {
	if s.metrics.BackendDuration == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "fallback"
	}
	s.metrics.BackendDuration.WithLabelValues(dependency, outcome).Observe(time.Since(start).Seconds())
}
