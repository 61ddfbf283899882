package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

func TestAnswer_DirectWithoutContextKey(t *testing.T) {
	f := newFixture(t)
	f.generator.directFn = func(_ context.Context, req domain.ChatRequest) (string, error) {
		if req.Message != "Hello" {
			t.Errorf("unexpected message: %q", req.Message)
		}
		return "Hi there!", nil
	}

	answer, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:  "Hello",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer.Response != "Hi there!" {
		t.Errorf("unexpected response: %q", answer.Response)
	}
	if answer.ContextCount != -1 {
		t.Errorf("expected context count -1, got %d", answer.ContextCount)
	}
	if f.embedder.calls != 0 || f.cache.lookupCalls != 0 || f.retriever.searchCalls != 0 {
		t.Error("direct path must not touch embedder, cache, or retriever")
	}
	if f.generator.directCalls != 1 {
		t.Errorf("expected exactly one direct generation, got %d", f.generator.directCalls)
	}
}

func TestAnswer_CacheHit(t *testing.T) {
	f := newFixture(t)
	f.cache.lookupFn = func(_ context.Context, _ []float32, contextKey string,
		topK, candidates int, threshold float64) ([]domain.CachedResult, error) {
		if contextKey != "docs" {
			t.Errorf("unexpected context key: %q", contextKey)
		}
		if topK != 1 || candidates != 20 {
			t.Errorf("unexpected topK/candidates: %d/%d", topK, candidates)
		}
		if threshold != 0.96 {
			t.Errorf("unexpected threshold: %f", threshold)
		}
		return []domain.CachedResult{
			{ID: "q1", Answer: "X is Y", Score: 0.97, Hits: 3},
		}, nil
	}

	var hitID string
	f.cache.recordHitFn = func(_ context.Context, id string) (int64, error) {
		hitID = id
		return 4, nil
	}

	answer, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "What is X?",
		Language:   "en",
		ContextKey: "docs",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer.Response != "X is Y" {
		t.Errorf("unexpected response: %q", answer.Response)
	}
	if answer.ContextCount != 2 {
		t.Errorf("expected context count 2, got %d", answer.ContextCount)
	}
	if hitID != "q1" || f.cache.recordHitCalls != 1 {
		t.Errorf("expected exactly one hit recorded for q1, got %d calls for %q",
			f.cache.recordHitCalls, hitID)
	}
	if f.retriever.searchCalls != 0 || f.generator.groundedCalls != 0 || f.generator.directCalls != 0 {
		t.Error("cache hit must skip retrieval and generation")
	}
}

func TestAnswer_CacheHitWithEmptyAnswerIsMiss(t *testing.T) {
	f := newFixture(t)
	f.cache.lookupFn = func(_ context.Context, _ []float32, _ string,
		_, _ int, _ float64) ([]domain.CachedResult, error) {
		return []domain.CachedResult{{ID: "q1", Answer: "", Score: 0.99}}, nil
	}
	f.retriever.searchFn = func(_ context.Context, _ []float32, _ string,
		_, _ int) ([]domain.SearchResult, error) {
		return []domain.SearchResult{{Text: "passage", Score: 0.9}}, nil
	}

	answer, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "What is X?",
		Language:   "en",
		ContextKey: "docs",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.cache.recordHitCalls != 0 {
		t.Error("an empty cached answer must not count as a hit")
	}
	if f.generator.groundedCalls != 1 {
		t.Errorf("expected grounded generation, got %d calls", f.generator.groundedCalls)
	}
	if answer.Response != "grounded answer" {
		t.Errorf("unexpected response: %q", answer.Response)
	}
}

func TestAnswer_FallbackOnLowScores(t *testing.T) {
	f := newFixture(t)
	f.retriever.searchFn = func(_ context.Context, _ []float32, _ string,
		_, _ int) ([]domain.SearchResult, error) {
		return []domain.SearchResult{
			{Text: "unrelated", Score: 0.5},
			{Text: "also unrelated", Score: 0.3},
		}, nil
	}

	answer, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "obscure topic",
		Language:   "es",
		ContextKey: "docs",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !answer.Fallback {
		t.Error("expected fallback answer")
	}
	if answer.Response != fallbackMessages["es"] {
		t.Errorf("expected Spanish fallback, got %q", answer.Response)
	}
	if f.generator.groundedCalls != 0 || f.generator.directCalls != 0 {
		t.Error("fallback must not invoke generation")
	}
	if f.cache.writeCalls != 0 {
		t.Error("fallback must not write to the cache")
	}
}

func TestAnswer_FallbackOnEmptyRetrieval(t *testing.T) {
	f := newFixture(t)
	f.retriever.searchFn = func(_ context.Context, _ []float32, _ string,
		_, _ int) ([]domain.SearchResult, error) {
		return nil, nil
	}

	answer, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "anything",
		Language:   "en",
		ContextKey: "empty-domain",
	})
	if err != nil {
		t.Fatalf("an empty corpus is not an error: %v", err)
	}
	if !answer.Fallback {
		t.Error("expected fallback answer")
	}
}

func TestAnswer_FallbackUnknownLanguage(t *testing.T) {
	f := newFixture(t)
	f.retriever.searchFn = func(_ context.Context, _ []float32, _ string,
		_, _ int) ([]domain.SearchResult, error) {
		return nil, nil
	}

	answer, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "anything",
		Language:   "xx",
		ContextKey: "docs",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Response != fallbackMessages["en"] {
		t.Errorf("unknown language must fall back to the default, got %q", answer.Response)
	}
}

func TestAnswer_GroundedGenerationWritesCache(t *testing.T) {
	f := newFixture(t)
	f.retriever.searchFn = func(_ context.Context, vec []float32, contextKey string,
		topK, candidates int) ([]domain.SearchResult, error) {
		if topK != 4 || candidates != 80 {
			t.Errorf("unexpected topK/candidates: %d/%d", topK, candidates)
		}
		return []domain.SearchResult{
			{Text: "passage one", Score: 0.9},
			{Text: "passage two", Score: 0.85},
			{Text: "passage three", Score: 0.6},
		}, nil
	}

	var gotPassages []string
	f.generator.groundedFn = func(_ context.Context, _ domain.ChatRequest, passages []string) (string, error) {
		gotPassages = passages
		return "X is explained as...", nil
	}

	var written domain.CachedQueryEntry
	f.cache.writeFn = func(_ context.Context, entry domain.CachedQueryEntry) (string, error) {
		written = entry
		return "new-id", nil
	}

	answer, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "explain X",
		Language:   "en",
		ContextKey: "docs",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer.Response != "X is explained as..." {
		t.Errorf("unexpected response: %q", answer.Response)
	}
	// All retrieved passages go to generation, sub-threshold ones included;
	// the gate only needs one score above the bar.
	if len(gotPassages) != 3 || gotPassages[0] != "passage one" {
		t.Errorf("unexpected passages: %v", gotPassages)
	}
	if answer.ContextCount != 3 {
		t.Errorf("expected context count 3, got %d", answer.ContextCount)
	}

	if f.cache.writeCalls != 1 {
		t.Fatalf("expected exactly one cache write, got %d", f.cache.writeCalls)
	}
	if written.ContextKey != "docs" || written.QueryText != "explain X" {
		t.Errorf("unexpected cache entry: %+v", written)
	}
	if written.Answer != "X is explained as..." {
		t.Errorf("cache entry must carry the generated answer, got %q", written.Answer)
	}
	if len(written.Embedding) != 3 {
		t.Errorf("cache entry must carry the query embedding, got %v", written.Embedding)
	}
}

func TestAnswer_EmbeddingFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.embedder.err = errors.New("quota exceeded")

	_, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "hello",
		Language:   "en",
		ContextKey: "docs",
	})
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
	if f.cache.lookupCalls != 0 || f.retriever.searchCalls != 0 {
		t.Error("embedding failure must abort before cache and retrieval")
	}
}

func TestAnswer_EmptyEmbeddingAborts(t *testing.T) {
	f := newFixture(t)
	f.embedder.result = domain.EmbeddingResult{Embedding: nil}

	_, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "hello",
		Language:   "en",
		ContextKey: "docs",
	})
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding for empty vector, got %v", err)
	}
}

func TestAnswer_RetrievalFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.retriever.searchFn = func(_ context.Context, _ []float32, _ string,
		_, _ int) ([]domain.SearchResult, error) {
		return nil, errors.New("store unreachable")
	}

	_, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "hello",
		Language:   "en",
		ContextKey: "docs",
	})
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
	if f.cache.writeCalls != 0 {
		t.Error("no cache write on failure")
	}
}

func TestAnswer_GenerationFailureLeavesNoCacheWrite(t *testing.T) {
	f := newFixture(t)
	f.retriever.searchFn = func(_ context.Context, _ []float32, _ string,
		_, _ int) ([]domain.SearchResult, error) {
		return []domain.SearchResult{{Text: "passage", Score: 0.9}}, nil
	}
	f.generator.groundedFn = func(_ context.Context, _ domain.ChatRequest, _ []string) (string, error) {
		return "", domain.NewError(domain.KindGeneration, "provider returned an empty answer", nil)
	}

	_, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "hello",
		Language:   "en",
		ContextKey: "docs",
	})
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if f.cache.writeCalls != 0 {
		t.Error("no cache write when generation fails")
	}
}

func TestAnswer_CacheWriteFailureFailsRequest(t *testing.T) {
	f := newFixture(t)
	f.retriever.searchFn = func(_ context.Context, _ []float32, _ string,
		_, _ int) ([]domain.SearchResult, error) {
		return []domain.SearchResult{{Text: "passage", Score: 0.9}}, nil
	}
	f.cache.writeFn = func(_ context.Context, _ domain.CachedQueryEntry) (string, error) {
		return "", errors.New("store unreachable")
	}

	_, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "hello",
		Language:   "en",
		ContextKey: "docs",
	})
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestAnswer_RecordHitFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.cache.lookupFn = func(_ context.Context, _ []float32, _ string,
		_, _ int, _ float64) ([]domain.CachedResult, error) {
		return []domain.CachedResult{{ID: "q1", Answer: "cached", Score: 0.99}}, nil
	}
	f.cache.recordHitFn = func(_ context.Context, _ string) (int64, error) {
		return 0, errors.New("store unreachable")
	}

	_, err := f.service.Answer(context.Background(), domain.ChatRequest{
		Message:    "hello",
		Language:   "en",
		ContextKey: "docs",
	})
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestIsRelevant(t *testing.T) {
	tests := []struct {
		name    string
		results []domain.SearchResult
		want    bool
	}{
		{"empty", nil, false},
		{"all below", []domain.SearchResult{{Score: 0.5}, {Score: 0.79}}, false},
		{"one at threshold", []domain.SearchResult{{Score: 0.5}, {Score: 0.8}}, true},
		{"one above", []domain.SearchResult{{Score: 0.95}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRelevant(tc.results, 0.8); got != tc.want {
				t.Errorf("isRelevant = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFallbackMessage(t *testing.T) {
	if got := fallbackMessage("fr", "en"); got != fallbackMessages["fr"] {
		t.Errorf("unexpected French fallback: %q", got)
	}
	if got := fallbackMessage("de", "es"); got != fallbackMessages["es"] {
		t.Errorf("unknown code must use the default language, got %q", got)
	}
	if got := fallbackMessage("zz", "zz"); got != fallbackMessages["en"] {
		t.Errorf("unknown default must still produce a message, got %q", got)
	}
}
