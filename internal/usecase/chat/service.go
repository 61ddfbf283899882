// Package chat implements the query orchestration policy: per request it
// picks one of three answering strategies (direct, cached, grounded) or
// falls back when the corpus holds nothing relevant.
package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Config holds the tunable orchestration thresholds. Both thresholds
// encode precision tradeoffs: a cache hit substitutes for generation and
// must be a near-duplicate, while passages only need to be topically useful.
type Config struct {
	CacheThreshold      float64
	RelevanceThreshold  float64
	TopK                int
	CacheTopK           int
	CandidateMultiplier int
	DefaultLanguage     string
}

// Service runs the chat orchestration state machine.
type Service struct {
	embedder  Embedder
	cache     Cache
	retriever Retriever
	generator Generator
	cfg       Config
}

// New creates the chat orchestrator.
func New(embedder Embedder, cache Cache, retriever Retriever, generator Generator, cfg Config) *Service {
	return &Service{
		embedder:  embedder,
		cache:     cache,
		retriever: retriever,
		generator: generator,
		cfg:       cfg,
	}
}

// Answer runs one request through the state machine. Any failure aborts
// the whole request; nothing is written to the cache on failure.
func (s *Service) Answer(ctx context.Context, req domain.ChatRequest) (domain.ChatAnswer, error) {
	answer, err := s.answer(ctx, req)
	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues("error").Inc()
		return domain.ChatAnswer{}, err
	}
	return answer, nil
}

func (s *Service) answer(ctx context.Context, req domain.ChatRequest) (domain.ChatAnswer, error) {
	log := logger.FromContext(ctx)

	// No knowledge domain: answer from the model alone, skip the
	// embedder, the cache, and the retriever entirely.
	if req.ContextKey == "" {
		text, err := s.generator.GenerateDirect(ctx, req)
		if err != nil {
			return domain.ChatAnswer{}, classify(err, domain.KindGeneration, "direct generation failed")
		}
		metrics.ChatRequestsTotal.WithLabelValues("direct").Inc()
		return domain.ChatAnswer{Response: text, ContextCount: domain.ContextCountDirect}, nil
	}

	vec, err := s.embedQuery(ctx, req.Message)
	if err != nil {
		return domain.ChatAnswer{}, err
	}

	cached, err := s.lookupCache(ctx, vec, req.ContextKey)
	if err != nil {
		return domain.ChatAnswer{}, err
	}
	if cached != nil {
		hits, err := s.cache.RecordHit(ctx, cached.ID)
		if err != nil {
			return domain.ChatAnswer{}, classify(err, domain.KindRetrieval, "record cache hit failed")
		}
		log.Debug("Serving cached answer",
			zap.String("entry_id", cached.ID),
			zap.Float64("score", cached.Score),
			zap.Int64("hits", hits))
		metrics.ChatRequestsTotal.WithLabelValues("cache_hit").Inc()
		return domain.ChatAnswer{Response: cached.Answer, ContextCount: domain.ContextCountCached}, nil
	}

	results, err := s.retriever.Search(ctx, vec, req.ContextKey,
		s.cfg.TopK, s.cfg.TopK*s.cfg.CandidateMultiplier)
	if err != nil {
		return domain.ChatAnswer{}, classify(err, domain.KindRetrieval, "content retrieval failed")
	}

	if !isRelevant(results, s.cfg.RelevanceThreshold) {
		log.Debug("No relevant passages",
			zap.String("context", req.ContextKey),
			zap.Int("results", len(results)))
		metrics.ChatRequestsTotal.WithLabelValues("fallback").Inc()
		return domain.ChatAnswer{
			Response: fallbackMessage(req.Language, s.cfg.DefaultLanguage),
			Fallback: true,
		}, nil
	}

	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Text
	}

	text, err := s.generator.GenerateGrounded(ctx, req, passages)
	if err != nil {
		return domain.ChatAnswer{}, classify(err, domain.KindGeneration, "grounded generation failed")
	}

	if _, err := s.cache.Write(ctx, domain.CachedQueryEntry{
		ContextKey: req.ContextKey,
		QueryText:  req.Message,
		Embedding:  vec,
		Answer:     text,
	}); err != nil {
		return domain.ChatAnswer{}, classify(err, domain.KindRetrieval, "cache write failed")
	}

	metrics.ChatRequestsTotal.WithLabelValues("grounded").Inc()
	return domain.ChatAnswer{Response: text, ContextCount: len(passages)}, nil
}

func (s *Service) embedQuery(ctx context.Context, text string) ([]float32, error) {
	result, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, classify(err, domain.KindEmbedding, "query embedding failed")
	}
	if len(result.Embedding) == 0 {
		return nil, domain.NewError(domain.KindEmbedding, "embedder returned an empty vector", nil)
	}
	return result.Embedding, nil
}

// lookupCache returns the best usable cache entry or nil on a miss.
func (s *Service) lookupCache(ctx context.Context, vec []float32, contextKey string) (*domain.CachedResult, error) {
	results, err := s.cache.Lookup(ctx, vec, contextKey,
		s.cfg.CacheTopK, s.cfg.CacheTopK*s.cfg.CandidateMultiplier, s.cfg.CacheThreshold)
	if err != nil {
		return nil, classify(err, domain.KindRetrieval, "cache lookup failed")
	}
	for i := range results {
		if results[i].Answer != "" {
			metrics.QueryCacheTotal.WithLabelValues("chat", "hit").Inc()
			return &results[i], nil
		}
	}
	metrics.QueryCacheTotal.WithLabelValues("chat", "miss").Inc()
	return nil, nil
}

// isRelevant decides whether retrieved passages are worth grounding on:
// non-empty and at least one score at or above the threshold.
func isRelevant(results []domain.SearchResult, threshold float64) bool {
	for _, r := range results {
		if r.Score >= threshold {
			return true
		}
	}
	return false
}

// classify wraps err with a failure kind unless it already carries one.
func classify(err error, kind domain.Kind, reason string) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.NewError(kind, reason, err)
}
