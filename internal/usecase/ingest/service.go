// Package ingest implements the PDF ingestion pipeline: download, text
// extraction, chunking, and concurrent embedding into the content corpus.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/logger"
)

// Embedder vectorizes chunk text (ISP).
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ChunkStore is the consumer interface for the content corpus (ISP).
type ChunkStore interface {
	Insert(ctx context.Context, chunk domain.ContentChunk) error
	DeleteByContext(ctx context.Context, contextKey string) (int, error)
}

// Config holds the ingestion pipeline parameters.
type Config struct {
	ChunkSize       int
	ChunkOverlap    int
	DownloadTimeout time.Duration
	Concurrency     int
}

// Report summarizes one ingestion run. Chunk-level failures are counted,
// not fatal: a partially ingested document is still usable.
type Report struct {
	URL         string `json:"url"`
	ContextKey  string `json:"context"`
	TotalChunks int    `json:"totalChunks"`
	Succeeded   int    `json:"successfulEmbeddings"`
	Failed      int    `json:"failedEmbeddings"`
	Replaced    int    `json:"replacedChunks,omitempty"`
}

// Service runs the ingestion pipeline.
type Service struct {
	embedder Embedder
	chunks   ChunkStore
	client   *http.Client
	splitter *Splitter
	cfg      Config

	// extract is swappable for tests.
	extract func(data []byte) (string, error)
}

// New creates the ingestion service.
func New(embedder Embedder, chunks ChunkStore, cfg Config) *Service {
	return &Service{
		embedder: embedder,
		chunks:   chunks,
		client:   &http.Client{Timeout: cfg.DownloadTimeout},
		splitter: NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:      cfg,
		extract:  extractPDFText,
	}
}

// IngestPDF downloads a PDF, splits its text, and embeds every chunk into
// the content corpus under contextKey. With replace set, existing chunks
// for the context are removed first.
func (s *Service) IngestPDF(ctx context.Context, url, contextKey string, replace bool) (Report, error) {
	log := logger.FromContext(ctx)
	report := Report{URL: url, ContextKey: contextKey}

	data, err := s.download(ctx, url)
	if err != nil {
		return report, err
	}

	text, err := s.extract(data)
	if err != nil {
		return report, domain.NewError(domain.KindValidation, "failed to parse PDF", err)
	}
	if len(bytes.TrimSpace([]byte(text))) == 0 {
		return report, domain.NewError(domain.KindValidation, "no text content found in the PDF", nil)
	}

	chunks := s.splitter.Split(text)
	report.TotalChunks = len(chunks)
	log.Info("Extracted PDF text",
		zap.String("url", url),
		zap.Int("bytes", len(data)),
		zap.Int("chunks", len(chunks)))

	if replace {
		removed, err := s.chunks.DeleteByContext(ctx, contextKey)
		if err != nil {
			return report, domain.NewError(domain.KindRetrieval, "failed to replace existing chunks", err)
		}
		report.Replaced = removed
		log.Info("Removed existing chunks",
			zap.String("context", contextKey),
			zap.Int("removed", removed))
	}

	report.Succeeded, report.Failed = s.embedAndStore(ctx, chunks, contextKey)
	return report, nil
}

// embedAndStore embeds chunks concurrently. Individual failures are
// logged and counted; they never abort the batch.
func (s *Service) embedAndStore(ctx context.Context, chunks []string, contextKey string) (succeeded, failed int) {
	log := logger.FromContext(ctx)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, text := range chunks {
		i, text := i, text
		g.Go(func() error {
			err := s.ingestChunk(gctx, text, contextKey)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				log.Warn("Chunk ingestion failed",
					zap.Int("chunk", i),
					zap.Error(err))
				return nil
			}
			succeeded++
			return nil
		})
	}

	// Per-chunk errors are swallowed above; Wait only orders completion.
	_ = g.Wait()
	return succeeded, failed
}

func (s *Service) ingestChunk(ctx context.Context, text, contextKey string) error {
	result, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed chunk: %w", err)
	}
	return s.chunks.Insert(ctx, domain.ContentChunk{
		ContextKey: contextKey,
		Text:       text,
		Embedding:  result.Embedding,
	})
}

func (s *Service) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "invalid document URL", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "could not download PDF from the provided URL", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewError(domain.KindValidation,
			fmt.Sprintf("document URL returned status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "could not read the PDF response", err)
	}
	return data, nil
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
