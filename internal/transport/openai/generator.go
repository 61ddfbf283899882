package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

const defaultPersona = "You are a helpful assistant. Answer clearly and concisely."

// Generator is a chat completion provider using the OpenAI-compatible API.
type Generator struct {
	client   *openai.Client
	model    string
	user     string
	provider string
	logger   *zap.Logger
}

// GeneratorConfig holds the completion provider settings.
type GeneratorConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	User     string
	Provider string
	Logger   *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Generator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		user:     cfg.User,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// GenerateDirect produces an answer from the message and history alone,
// without retrieved context.
func (g *Generator) GenerateDirect(ctx context.Context, req domain.ChatRequest) (string, error) {
	return g.generate(ctx, "direct", buildSystemPrompt(req, nil), req)
}

// GenerateGrounded produces an answer constrained to the retrieved passages.
func (g *Generator) GenerateGrounded(
	ctx context.Context, req domain.ChatRequest, passages []string,
) (string, error) {
	return g.generate(ctx, "grounded", buildSystemPrompt(req, passages), req)
}

func (g *Generator) generate(
	ctx context.Context, mode, systemPrompt string, req domain.ChatRequest,
) (string, error) {
	completionReq := openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: buildMessages(systemPrompt, req),
		User:     g.user,
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, completionReq)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, mode, "error").Inc()
		return "", parseGenerationAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, mode, "error").Inc()
		return "", domain.NewError(domain.KindGeneration, "empty completion response", nil)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, mode, "error").Inc()
		return "", domain.NewError(domain.KindGeneration, "provider returned an empty answer", nil)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, mode, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model, mode).Observe(duration.Seconds())

	return answer, nil
}

// buildSystemPrompt assembles the system instruction: persona (overridable
// per request), target language, and optionally the retrieved context block.
func buildSystemPrompt(req domain.ChatRequest, passages []string) string {
	var b strings.Builder

	persona := strings.TrimSpace(req.Prompt)
	if persona == "" {
		persona = defaultPersona
	}
	b.WriteString(persona)

	if req.Language != "" {
		fmt.Fprintf(&b, "\nRespond in the %q language.", req.Language)
	}

	if len(passages) > 0 {
		b.WriteString("\nAnswer using only the information in the context below. " +
			"If the context does not contain the answer, say you do not know.")
		b.WriteString("\n\nContext:")
		for _, p := range passages {
			b.WriteString("\n- ")
			b.WriteString(p)
		}
	}

	return b.String()
}

// buildMessages converts stored history into API messages. Stored assistant
// turns use the "ai" role and must be translated to the API's "assistant".
func buildMessages(systemPrompt string, req domain.ChatRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})

	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == domain.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Message,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})
	return messages
}

// parseGenerationAPIError classifies completion failures for 502 mapping.
func parseGenerationAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return domain.NewError(domain.KindGeneration,
			fmt.Sprintf("completion API error %d: %s", reqErr.HTTPStatusCode, detail), err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewError(domain.KindGeneration,
			fmt.Sprintf("completion API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message), err)
	}

	return domain.NewError(domain.KindGeneration, "completion request failed", err)
}
