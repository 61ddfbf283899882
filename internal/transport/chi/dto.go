package chi

import (
	"fmt"
	"net/url"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Request size limits, mirrored in the public API docs.
const (
	maxMessageLen = 1000
	maxQueryLen   = 1500
	maxPromptLen  = 2000
)

type historyTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type chatRequest struct {
	Prompt        string        `json:"prompt,omitempty"`
	Message       string        `json:"message"`
	Language      string        `json:"language"`
	RagContextKey string        `json:"ragContextKey,omitempty"`
	History       []historyTurn `json:"history,omitempty"`
}

func (r *chatRequest) validate() error {
	if r.Message == "" {
		return validationErr("message is required")
	}
	if len(r.Message) > maxMessageLen {
		return validationErr(fmt.Sprintf("message must be less than %d characters", maxMessageLen))
	}
	if r.Language == "" {
		return validationErr("language is required")
	}
	if len(r.Prompt) > maxPromptLen {
		return validationErr(fmt.Sprintf("prompt must be less than %d characters", maxPromptLen))
	}
	for i, turn := range r.History {
		if turn.Role != domain.RoleUser && turn.Role != domain.RoleAssistant {
			return validationErr(fmt.Sprintf("history[%d].role must be %q or %q",
				i, domain.RoleUser, domain.RoleAssistant))
		}
		if turn.Message == "" {
			return validationErr(fmt.Sprintf("history[%d].message is required", i))
		}
	}
	return nil
}

func (r *chatRequest) toDomain() domain.ChatRequest {
	history := make([]domain.ChatMessage, len(r.History))
	for i, turn := range r.History {
		history[i] = domain.ChatMessage{Role: turn.Role, Message: turn.Message}
	}
	return domain.ChatRequest{
		Message:    r.Message,
		Language:   r.Language,
		Prompt:     r.Prompt,
		ContextKey: r.RagContextKey,
		History:    history,
	}
}

// chatResponse omits contextCount entirely on the fallback path.
type chatResponse struct {
	Response     string `json:"response"`
	ContextCount *int   `json:"contextCount,omitempty"`
}

type searchRequest struct {
	Query   string `json:"query"`
	Context string `json:"context"`
	TopK    int    `json:"topK,omitempty"`
}

func (r *searchRequest) validate() error {
	if r.Query == "" {
		return validationErr("query is required")
	}
	if len(r.Query) > maxQueryLen {
		return validationErr(fmt.Sprintf("query must be less than %d characters", maxQueryLen))
	}
	if r.Context == "" {
		return validationErr("context is required")
	}
	if r.TopK < 0 {
		return validationErr("topK must be positive")
	}
	return nil
}

type searchResultItem struct {
	Text    string  `json:"text"`
	Context string  `json:"context"`
	Score   float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
}

type vectorizeRequest struct {
	URL     string `json:"url"`
	Context string `json:"context"`
	Replace bool   `json:"replace"`
}

func (r *vectorizeRequest) validate() error {
	if r.URL == "" {
		return validationErr("url is required")
	}
	u, err := url.Parse(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validationErr("invalid URL format")
	}
	if r.Context == "" {
		return validationErr("context is required")
	}
	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func validationErr(msg string) error {
	return domain.NewError(domain.KindValidation, msg, nil)
}
