package domain

// Chat message roles accepted in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "ai"
)

// ChatMessage is one turn of conversation history.
type ChatMessage struct {
	Role    string
	Message string
}

// ChatRequest is an incoming chat query. Immutable once received.
type ChatRequest struct {
	Message    string
	Language   string
	Prompt     string // optional extra system instruction
	ContextKey string // knowledge-domain key; empty means direct generation
	History    []ChatMessage
}

// Context-count markers reported alongside an answer.
const (
	// ContextCountDirect means no retrieval was attempted (no context key).
	ContextCountDirect = -1
	// ContextCountCached means the answer was served from the semantic cache.
	ContextCountCached = 2
)

// ChatAnswer is the orchestrator's result for a chat request.
// When Fallback is true the answer is the localized no-results message
// and ContextCount carries no meaning.
type ChatAnswer struct {
	Response     string
	ContextCount int
	Fallback     bool
}
