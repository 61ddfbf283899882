package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// completionRequest captures the fields we assert on.
type completionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionServer(t *testing.T, answer string, captured *completionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if captured != nil {
			if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": answer,
					},
				},
			},
		})
	}))
}

func newTestGenerator(url string) *Generator {
	return NewGenerator(&GeneratorConfig{
		APIKey:   "test-key",
		BaseURL:  url,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestGenerator_Direct(t *testing.T) {
	var captured completionRequest
	server := completionServer(t, "direct answer", &captured)
	defer server.Close()

	gen := newTestGenerator(server.URL)
	answer, err := gen.GenerateDirect(context.Background(), domain.ChatRequest{
		Message:  "hello there",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("GenerateDirect failed: %v", err)
	}
	if answer != "direct answer" {
		t.Errorf("unexpected answer: %q", answer)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(captured.Messages))
	}
	system := captured.Messages[0]
	if system.Role != "system" {
		t.Errorf("first message role = %s, expected system", system.Role)
	}
	if !strings.Contains(system.Content, `"en"`) {
		t.Errorf("system prompt missing language: %q", system.Content)
	}
	if strings.Contains(system.Content, "Context:") {
		t.Error("direct prompt must not carry a context block")
	}
	if captured.Messages[1].Content != "hello there" {
		t.Errorf("unexpected user message: %q", captured.Messages[1].Content)
	}
}

func TestGenerator_Grounded(t *testing.T) {
	var captured completionRequest
	server := completionServer(t, "grounded answer", &captured)
	defer server.Close()

	gen := newTestGenerator(server.URL)
	answer, err := gen.GenerateGrounded(context.Background(), domain.ChatRequest{
		Message:  "what is the refund window",
		Language: "en",
	}, []string{"refunds within 30 days", "receipts required"})
	if err != nil {
		t.Fatalf("GenerateGrounded failed: %v", err)
	}
	if answer != "grounded answer" {
		t.Errorf("unexpected answer: %q", answer)
	}

	system := captured.Messages[0].Content
	if !strings.Contains(system, "Context:") {
		t.Errorf("system prompt missing context block: %q", system)
	}
	if !strings.Contains(system, "refunds within 30 days") || !strings.Contains(system, "receipts required") {
		t.Errorf("system prompt missing passages: %q", system)
	}
}

func TestGenerator_PromptOverride(t *testing.T) {
	var captured completionRequest
	server := completionServer(t, "ok", &captured)
	defer server.Close()

	gen := newTestGenerator(server.URL)
	_, err := gen.GenerateDirect(context.Background(), domain.ChatRequest{
		Message:  "hi",
		Language: "en",
		Prompt:   "You are a pirate.",
	})
	if err != nil {
		t.Fatalf("GenerateDirect failed: %v", err)
	}

	system := captured.Messages[0].Content
	if !strings.HasPrefix(system, "You are a pirate.") {
		t.Errorf("expected persona override, got: %q", system)
	}
	if strings.Contains(system, defaultPersona) {
		t.Error("default persona should be replaced by the override")
	}
}

func TestGenerator_HistoryRoleMapping(t *testing.T) {
	var captured completionRequest
	server := completionServer(t, "ok", &captured)
	defer server.Close()

	gen := newTestGenerator(server.URL)
	_, err := gen.GenerateDirect(context.Background(), domain.ChatRequest{
		Message:  "and then?",
		Language: "en",
		History: []domain.ChatMessage{
			{Role: domain.RoleUser, Message: "first question"},
			{Role: domain.RoleAssistant, Message: "first answer"},
		},
	})
	if err != nil {
		t.Fatalf("GenerateDirect failed: %v", err)
	}

	if len(captured.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[1].Role != "user" {
		t.Errorf("history user turn mapped to %s", captured.Messages[1].Role)
	}
	// Stored history uses "ai"; the API wants "assistant".
	if captured.Messages[2].Role != "assistant" {
		t.Errorf("history assistant turn mapped to %s", captured.Messages[2].Role)
	}
	if captured.Messages[3].Content != "and then?" {
		t.Errorf("unexpected trailing user message: %q", captured.Messages[3].Content)
	}
}

func TestGenerator_EmptyAnswer(t *testing.T) {
	server := completionServer(t, "   ", nil)
	defer server.Close()

	gen := newTestGenerator(server.URL)
	_, err := gen.GenerateDirect(context.Background(), domain.ChatRequest{Message: "hi", Language: "en"})
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration for blank answer, got %v", err)
	}
}

func TestGenerator_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "upstream overloaded",
				"type":    "server_error",
			},
		})
	}))
	defer server.Close()

	gen := newTestGenerator(server.URL)
	_, err := gen.GenerateDirect(context.Background(), domain.ChatRequest{Message: "hi", Language: "en"})
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration classification, got %v", err)
	}
}
