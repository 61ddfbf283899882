// Package chunk persists and retrieves content passages in the vector corpus.
package chunk

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain"
)

const (
	keyPrefix = domain.KeyPrefix + "chunks:"
	indexName = keyPrefix + "idx"
)

// store is the consumer interface for the content corpus (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// HNSWConfig holds index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements content chunk storage and KNN retrieval.
type Repo struct {
	store store
	dims  int
	hnsw  HNSWConfig
}

// New creates a content chunk repository.
func New(s store, dims int) *Repo {
	return &Repo{store: s, dims: dims}
}

// WithHNSW overrides index build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureIndex creates the chunks vector index if it does not exist yet.
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
		return fmt.Errorf("create chunks index: %w", err)
	}
	return nil
}

// Insert stores a single chunk. Assigns a surrogate ID when missing.
func (r *Repo) Insert(ctx context.Context, chunk domain.ContentChunk) error {
	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}
	if err := r.store.HSet(ctx, chunkKey(chunk.ContextKey, chunk.ID), buildHashFields(chunk)); err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

// InsertMulti stores chunks in a single pipelined round-trip.
func (r *Repo) InsertMulti(ctx context.Context, chunks []domain.ContentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(chunks))
	for i, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		items[i] = db.HashSetItem{
			Key:    chunkKey(c.ContextKey, c.ID),
			Fields: buildHashFields(c),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}
	return nil
}

// DeleteByContext removes all chunks stored under a context key.
// Returns the number of deleted chunks.
func (r *Repo) DeleteByContext(ctx context.Context, contextKey string) (int, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+contextKey+":*")
	if err != nil {
		return 0, fmt.Errorf("scan chunks %s: %w", contextKey, err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return 0, fmt.Errorf("delete chunk %s: %w", key, err)
		}
	}
	return len(keys), nil
}

// Search runs a KNN retrieval scoped to a context key, most-similar first.
// Returns an empty slice, not an error, when the context holds no chunks.
func (r *Repo) Search(
	ctx context.Context, vector []float32, contextKey string, topK, candidates int,
) ([]domain.SearchResult, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Tag:          &db.TagFilter{Field: "context", Value: contextKey},
		Vector:       vector,
		K:            topK,
		Candidates:   candidates,
		ReturnFields: []string{"text", "context", "vector"},
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks %s: %w", contextKey, err)
	}

	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	results := make([]domain.SearchResult, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		results = append(results, parseSearchEntry(entry))
	}
	return results, nil
}

func chunkKey(contextKey, id string) string {
	return keyPrefix + contextKey + ":" + id
}
