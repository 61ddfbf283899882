// Package search implements the search-only orchestration: the cache and
// retrieval steps of the chat flow, surfacing raw results instead of
// invoking generation.
package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// Config holds the search orchestration parameters.
type Config struct {
	CacheThreshold      float64
	TopK                int
	CacheTopK           int
	CandidateMultiplier int
}

// Service runs semantic search over the content corpus with a cache front.
type Service struct {
	embedder  Embedder
	cache     Cache
	retriever Retriever
	cfg       Config
}

// New creates the search orchestrator.
func New(embedder Embedder, cache Cache, retriever Retriever, cfg Config) *Service {
	return &Service{
		embedder:  embedder,
		cache:     cache,
		retriever: retriever,
		cfg:       cfg,
	}
}

// Search embeds the query and returns either cached answers (as results)
// or the most similar content passages. On a cache miss that still finds
// content, the top passage is written back as a provisional answer so a
// repeat of the same query hits the cache. Hit counters are not touched
// by this flow.
func (s *Service) Search(ctx context.Context, query, contextKey string, topK int) ([]domain.SearchResult, error) {
	log := logger.FromContext(ctx)

	if topK <= 0 {
		topK = s.cfg.TopK
	}

	result, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, classify(err, domain.KindEmbedding, "query embedding failed")
	}
	vec := result.Embedding
	if len(vec) == 0 {
		return nil, domain.NewError(domain.KindEmbedding, "embedder returned an empty vector", nil)
	}

	cached, err := s.cache.Lookup(ctx, vec, contextKey,
		s.cfg.CacheTopK, s.cfg.CacheTopK*s.cfg.CandidateMultiplier, s.cfg.CacheThreshold)
	if err != nil {
		return nil, classify(err, domain.KindRetrieval, "cache lookup failed")
	}

	if len(cached) > 0 {
		metrics.QueryCacheTotal.WithLabelValues("search", "hit").Inc()
		results := make([]domain.SearchResult, len(cached))
		for i, c := range cached {
			results[i] = domain.SearchResult{
				Text:       c.Answer,
				ContextKey: c.ContextKey,
				Score:      c.Score,
			}
		}
		return results, nil
	}

	metrics.QueryCacheTotal.WithLabelValues("search", "miss").Inc()

	results, err := s.retriever.Search(ctx, vec, contextKey, topK, topK*s.cfg.CandidateMultiplier)
	if err != nil {
		return nil, classify(err, domain.KindRetrieval, "content retrieval failed")
	}

	if len(results) > 0 {
		// Provisional write-back: the top passage stands in as the answer
		// for future identical queries, keyed by its own stored vector.
		top := results[0]
		if _, err := s.cache.Write(ctx, domain.CachedQueryEntry{
			ContextKey: contextKey,
			QueryText:  query,
			Embedding:  top.Embedding,
			Answer:     top.Text,
		}); err != nil {
			return nil, classify(err, domain.KindRetrieval, "cache write failed")
		}
		log.Debug("Cached top search result",
			zap.String("context", contextKey),
			zap.Float64("score", top.Score))
	}

	return results, nil
}

// classify wraps err with a failure kind unless it already carries one.
func classify(err error, kind domain.Kind, reason string) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.NewError(kind, reason, err)
}
