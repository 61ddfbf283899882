// Package chi implements the HTTP API on top of the chi router.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/usecase/health"
	"github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

// ChatService answers chat queries (ISP).
type ChatService interface {
	Answer(ctx context.Context, req domain.ChatRequest) (domain.ChatAnswer, error)
}

// SearchService runs semantic search (ISP).
type SearchService interface {
	Search(ctx context.Context, query, contextKey string, topK int) ([]domain.SearchResult, error)
}

// IngestService ingests PDF documents into the corpus (ISP).
type IngestService interface {
	IngestPDF(ctx context.Context, url, contextKey string, replace bool) (ingest.Report, error)
}

// HealthService aggregates component health (ISP).
type HealthService interface {
	Check(ctx context.Context) health.Report
}

// Server holds the HTTP handlers.
type Server struct {
	chat    ChatService
	search  SearchService
	ingest  IngestService
	health  HealthService
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	chat ChatService,
	search SearchService,
	ingestSvc IngestService,
	healthSvc HealthService,
	logger *zap.Logger,
) *Server {
	return &Server{
		chat:   chat,
		search: search,
		ingest: ingestSvc,
		health: healthSvc,
		logger: logger,
	}
}

// Register mounts the API routes.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/v1/chat", s.handleChat)
	r.Post("/api/v1/semantic-search", s.handleSemanticSearch)
	r.Post("/api/v1/vectorize", s.handleVectorize)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// handleChat handles POST /api/v1/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.validate(); err != nil {
		s.handleDomainError(w, err)
		return
	}

	answer, err := s.chat.Answer(r.Context(), req.toDomain())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := chatResponse{Response: answer.Response}
	if !answer.Fallback {
		count := answer.ContextCount
		resp.ContextCount = &count
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSemanticSearch handles POST /api/v1/semantic-search.
func (s *Server) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.validate(); err != nil {
		s.handleDomainError(w, err)
		return
	}

	results, err := s.search.Search(r.Context(), req.Query, req.Context, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i, res := range results {
		items[i] = searchResultItem{
			Text:    res.Text,
			Context: res.ContextKey,
			Score:   res.Score,
		}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: items})
}

// handleVectorize handles POST /api/v1/vectorize.
func (s *Server) handleVectorize(w http.ResponseWriter, r *http.Request) {
	var req vectorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.validate(); err != nil {
		s.handleDomainError(w, err)
		return
	}

	report, err := s.ingest.IngestPDF(r.Context(), req.URL, req.Context, req.Replace)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != health.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// handleDomainError maps classified failures to HTTP statuses: validation
// to 400, provider and store failures to 502, everything else to 500.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	var domErr *domain.Error
	detail := ""
	if errors.As(err, &domErr) {
		detail = domErr.Reason
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		writeError(w, http.StatusBadRequest, "validation failed", detail)
	case domain.KindEmbedding:
		s.logger.Warn("Embedding failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "embedding failed", detail)
	case domain.KindGeneration:
		s.logger.Warn("Generation failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "generation failed", detail)
	case domain.KindRetrieval:
		s.logger.Warn("Retrieval failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "retrieval failed", detail)
	default:
		s.logger.Error("Internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errMsg, detail string) {
	writeJSON(w, status, errorResponse{
		Error:   errMsg,
		Message: detail,
	})
}
