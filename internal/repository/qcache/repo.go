// Package qcache stores answered queries for semantic reuse.
//
// Each entry pairs a query embedding with the answer it produced so that
// near-duplicate queries can be served without retrieval or generation.
package qcache

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain"
)

const (
	keyPrefix = domain.KeyPrefix + "qcache:"
	indexName = keyPrefix + "idx"
)

// store is the consumer interface for the cache (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// HNSWConfig holds index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements the semantic query cache.
type Repo struct {
	store store
	dims  int
	hnsw  HNSWConfig
}

// New creates a query cache repository.
func New(s store, dims int) *Repo {
	return &Repo{store: s, dims: dims}
}

// WithHNSW overrides index build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureIndex creates the query cache vector index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	err := r.store.CreateIndex(ctx, &db.IndexDefinition{
		Name:   indexName,
		Prefix: keyPrefix,
		Fields: []db.IndexField{
			{Name: "context", Type: "TAG"},
		},
		VectorField:     "vector",
		Dimensions:      r.dims,
		HNSWM:           r.hnsw.M,
		HNSWEFConstruct: r.hnsw.EFConstruct,
	})
	if err != nil && err != db.ErrIndexExists {
		return fmt.Errorf("create qcache index: %w", err)
	}
	return nil
}

// Lookup finds cached queries within the context whose similarity to the
// vector strictly exceeds threshold, most-similar first. A miss is an empty
// slice, not an error.
func (r *Repo) Lookup(
	ctx context.Context, vector []float32, contextKey string,
	topK, candidates int, threshold float64,
) ([]domain.CachedResult, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Tag:          &db.TagFilter{Field: "context", Value: contextKey},
		Vector:       vector,
		K:            topK,
		Candidates:   candidates,
		ReturnFields: []string{"text", "context", "answer", "hits"},
	})
	if err != nil {
		return nil, fmt.Errorf("lookup cached queries %s: %w", contextKey, err)
	}

	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	results := make([]domain.CachedResult, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		if entry.Score <= threshold {
			continue
		}
		results = append(results, parseCachedEntry(entry))
	}
	return results, nil
}

// RecordHit atomically increments the reuse counter of a cached entry and
// returns the new count.
func (r *Repo) RecordHit(ctx context.Context, id string) (int64, error) {
	hits, err := r.store.HIncrBy(ctx, keyPrefix+id, "hits", 1)
	if err != nil {
		return 0, fmt.Errorf("record cache hit %s: %w", id, err)
	}
	return hits, nil
}

// Write stores a new cache entry and returns its generated ID.
func (r *Repo) Write(ctx context.Context, entry domain.CachedQueryEntry) (string, error) {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	fields := map[string]string{
		"context": entry.ContextKey,
		"text":    entry.QueryText,
		"vector":  vectorToBytes(entry.Embedding),
		"answer":  entry.Answer,
		"hits":    fmt.Sprintf("%d", entry.Hits),
	}
	if err := r.store.HSet(ctx, keyPrefix+id, fields); err != nil {
		return "", fmt.Errorf("write cache entry: %w", err)
	}
	return id, nil
}

// idFromKey strips the storage prefix from a hash key.
func idFromKey(key string) string {
	return strings.TrimPrefix(key, keyPrefix)
}
