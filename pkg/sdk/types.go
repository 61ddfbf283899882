package ragchat

// HistoryTurn is one prior conversation turn. Role is "user" or "ai".
type HistoryTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// ChatRequest is the payload for Chat.
type ChatRequest struct {
	// Prompt overrides the assistant persona (optional).
	Prompt string `json:"prompt,omitempty"`
	// Message is the user query (required).
	Message string `json:"message"`
	// Language is the response language code, e.g. "en" (required).
	Language string `json:"language"`
	// RagContextKey selects the document corpus; empty means a direct
	// answer without retrieval.
	RagContextKey string        `json:"ragContextKey,omitempty"`
	History       []HistoryTurn `json:"history,omitempty"`
}

// ChatAnswer is the response from Chat.
// ContextCount is nil when the service answered with a fallback message.
type ChatAnswer struct {
	Response     string `json:"response"`
	ContextCount *int   `json:"contextCount,omitempty"`
}

// SearchRequest is the payload for SemanticSearch.
type SearchRequest struct {
	Query   string `json:"query"`
	Context string `json:"context"`
	// TopK limits the number of results; zero uses the server default.
	TopK int `json:"topK,omitempty"`
}

// SearchResult is one semantic search match.
type SearchResult struct {
	Text    string  `json:"text"`
	Context string  `json:"context"`
	Score   float64 `json:"score"`
}

// VectorizeRequest is the payload for Vectorize.
type VectorizeRequest struct {
	URL     string `json:"url"`
	Context string `json:"context"`
	// Replace removes existing chunks for the context before ingesting.
	Replace bool `json:"replace,omitempty"`
}

// VectorizeReport summarizes one ingestion run.
type VectorizeReport struct {
	URL         string `json:"url"`
	Context     string `json:"context"`
	TotalChunks int    `json:"totalChunks"`
	Succeeded   int    `json:"successfulEmbeddings"`
	Failed      int    `json:"failedEmbeddings"`
	Replaced    int    `json:"replacedChunks,omitempty"`
}

// HealthReport is the service health snapshot.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
