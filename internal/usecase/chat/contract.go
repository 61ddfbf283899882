package chat

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Embedder vectorizes query text (ISP).
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Cache is the consumer interface for the semantic query cache (ISP).
type Cache interface {
	Lookup(ctx context.Context, vector []float32, contextKey string,
		topK, candidates int, threshold float64) ([]domain.CachedResult, error)
	RecordHit(ctx context.Context, id string) (int64, error)
	Write(ctx context.Context, entry domain.CachedQueryEntry) (string, error)
}

// Retriever is the consumer interface for the content corpus (ISP).
type Retriever interface {
	Search(ctx context.Context, vector []float32, contextKey string,
		topK, candidates int) ([]domain.SearchResult, error)
}

// Generator produces answers with or without retrieved context (ISP).
type Generator interface {
	GenerateDirect(ctx context.Context, req domain.ChatRequest) (string, error)
	GenerateGrounded(ctx context.Context, req domain.ChatRequest, passages []string) (string, error)
}
