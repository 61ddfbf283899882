package domain

// SearchResult is one retrieved content passage, transient per request.
type SearchResult struct {
	Text       string
	ContextKey string
	Score      float64
	Embedding  []float32 // stored vector of the source chunk
}

// CachedResult is a semantic-cache hit: a prior query with its stored answer.
type CachedResult struct {
	ID         string
	ContextKey string
	QueryText  string
	Answer     string
	Score      float64
	Hits       int64
}

// ContentChunk is a unit of the ingested corpus, read-only to the core.
type ContentChunk struct {
	ID         string
	ContextKey string
	Text       string
	Embedding  []float32
}

// CachedQueryEntry is a semantic-cache row keyed by a prior query's embedding.
// Answer is never empty; Hits only grows, via the atomic increment path.
type CachedQueryEntry struct {
	ID         string
	ContextKey string
	QueryText  string
	Embedding  []float32
	Answer     string
	Hits       int64
}
