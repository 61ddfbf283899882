package db

// TagFilter restricts a search to hashes whose tag field equals Value.
type TagFilter struct {
	Field string
	Value string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	Tag       *TagFilter // optional pre-filter
	Vector    []float32
	K         int
	// Candidates sets HNSW EF_RUNTIME: the size of the candidate pool
	// the index examines, typically a multiple of K. 0 leaves the
	// index default.
	Candidates   int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Score is cosine similarity in [0, 1], most-similar = 1.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// IndexField describes one schema field of an FT index.
type IndexField struct {
	Name string
	Type string // "TAG" or "TEXT"
}

// IndexDefinition describes an FT index over hash keys with an HNSW
// vector field plus plain schema fields.
type IndexDefinition struct {
	Name            string
	Prefix          string
	Fields          []IndexField
	VectorField     string
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}
