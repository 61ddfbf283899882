package ragchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 120 * time.Second

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey     string
	httpClient *http.Client
	userAgent  string
}

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithHTTPClient replaces the underlying HTTP client.
// The default has a 120s timeout to cover generation latency.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}

// Client is the ragchat API client.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

// New creates a ragchat API client for the given base URL,
// e.g. "https://ragchat.example.com".
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("ragchat: base URL required")
	}

	cfg := &clientConfig{
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  "ragchat-go",
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.apiKey,
		userAgent:  cfg.userAgent,
		httpClient: cfg.httpClient,
	}, nil
}

// Chat sends a chat query and returns the generated answer.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatAnswer, error) {
	var answer ChatAnswer
	if err := c.post(ctx, "/api/v1/chat", req, &answer); err != nil {
		return ChatAnswer{}, err
	}
	return answer, nil
}

// SemanticSearch retrieves corpus passages relevant to the query.
func (c *Client) SemanticSearch(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	var resp searchResponse
	if err := c.post(ctx, "/api/v1/semantic-search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Vectorize ingests a PDF document into the corpus.
func (c *Client) Vectorize(ctx context.Context, req VectorizeRequest) (VectorizeReport, error) {
	var report VectorizeReport
	if err := c.post(ctx, "/api/v1/vectorize", req, &report); err != nil {
		return VectorizeReport{}, err
	}
	return report, nil
}

// Health fetches the service health snapshot. A degraded or unavailable
// service returns the report together with ErrUnavailable.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return HealthReport{}, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return HealthReport{}, fmt.Errorf("ragchat: health request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var report HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return HealthReport{}, fmt.Errorf("ragchat: decode health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return report, &APIError{StatusCode: resp.StatusCode, Code: report.Status}
	}
	return report, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ragchat: encode request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ragchat: request %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ragchat: decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("ragchat: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Code = payload.Error
		apiErr.Detail = payload.Message
	}
	if apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
