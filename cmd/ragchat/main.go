package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/config"
	"github.com/kailas-cloud/ragchat/internal/db"
	dbRedis "github.com/kailas-cloud/ragchat/internal/db/redis"
	"github.com/kailas-cloud/ragchat/internal/domain"
	logpkg "github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
	chunkrepo "github.com/kailas-cloud/ragchat/internal/repository/chunk"
	"github.com/kailas-cloud/ragchat/internal/repository/embcache"
	qcacherepo "github.com/kailas-cloud/ragchat/internal/repository/qcache"
	chiTransport "github.com/kailas-cloud/ragchat/internal/transport/chi"
	openaiProvider "github.com/kailas-cloud/ragchat/internal/transport/openai"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/ragchat/internal/usecase/search"
	"github.com/kailas-cloud/ragchat/internal/version"
)

func main() {
	// .env feeds the ${VAR} placeholders in the YAML config; absence is fine.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragchat API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// One rueidis-backed store speaks both drivers; the switch only
	// rejects drivers config.Validate would have caught anyway.
	var store db.Store
	switch cfg.Database.Driver {
	case "valkey", "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register AI metrics explicitly (no init())
	metrics.RegisterAIMetrics()

	// Build embedder chains — composition root.
	// Queries and documents get different instruction prefixes, so each
	// flow carries its own decorator chain over the same base provider.
	baseEmbedder := openaiProvider.NewEmbedder(&openaiProvider.EmbedderConfig{
		APIKey:     cfg.AI.APIKey,
		BaseURL:    cfg.AI.BaseURL,
		Model:      cfg.AI.EmbeddingModel,
		Dimensions: cfg.AI.Dimensions,
		Provider:   cfg.AI.Provider,
		Logger:     logger,
	})
	queryEmbedder := buildEmbedder(baseEmbedder, cfg.AI.QueryInstruction, store, logger)
	docEmbedder := buildEmbedder(baseEmbedder, cfg.AI.DocumentInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", cfg.AI.EmbeddingModel),
		zap.Int("dimensions", cfg.AI.Dimensions),
	)

	generator := openaiProvider.NewGenerator(&openaiProvider.GeneratorConfig{
		APIKey:   cfg.AI.APIKey,
		BaseURL:  cfg.AI.BaseURL,
		Model:    cfg.AI.ChatModel,
		Provider: cfg.AI.Provider,
		Logger:   logger,
	})

	// Create repositories (domain-native, no adapters)
	hnsw := chunkrepo.HNSWConfig{
		M:           cfg.Retrieval.HNSWM,
		EFConstruct: cfg.Retrieval.HNSWEFConstruct,
	}
	chunkRepo := chunkrepo.New(store, cfg.AI.Dimensions).WithHNSW(hnsw)
	qcacheRepo := qcacherepo.New(store, cfg.AI.Dimensions).WithHNSW(qcacherepo.HNSWConfig{
		M:           hnsw.M,
		EFConstruct: hnsw.EFConstruct,
	})

	if err := chunkRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create chunks index", zap.Error(err))
	}
	if err := qcacheRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create query cache index", zap.Error(err))
	}
	logger.Info("Vector indexes ready")

	// Create use case services
	chatSvc := chatuc.New(queryEmbedder, qcacheRepo, chunkRepo, generator, chatuc.Config{
		CacheThreshold:      cfg.Retrieval.CacheThreshold,
		RelevanceThreshold:  cfg.Retrieval.RelevanceThreshold,
		TopK:                cfg.Retrieval.TopK,
		CacheTopK:           cfg.Retrieval.CacheTopK,
		CandidateMultiplier: cfg.Retrieval.CandidateMultiplier,
		DefaultLanguage:     cfg.Chat.DefaultLanguage,
	})
	searchSvc := searchuc.New(queryEmbedder, qcacheRepo, chunkRepo, searchuc.Config{
		CacheThreshold:      cfg.Retrieval.CacheThreshold,
		TopK:                cfg.Retrieval.TopK,
		CacheTopK:           cfg.Retrieval.CacheTopK,
		CandidateMultiplier: cfg.Retrieval.CandidateMultiplier,
	})
	ingestSvc := ingestuc.New(docEmbedder, chunkRepo, ingestuc.Config{
		ChunkSize:       cfg.Ingest.ChunkSize,
		ChunkOverlap:    cfg.Ingest.ChunkOverlap,
		DownloadTimeout: time.Duration(cfg.Ingest.DownloadTimeoutSec) * time.Second,
		Concurrency:     cfg.Ingest.Concurrency,
	})

	// The base provider (not the decorated chain) answers health probes:
	// a cache or instruction wrapper has nothing of its own to check.
	healthSvc := healthuc.New(store, baseEmbedder)

	// Create chi server
	server := chiTransport.NewServer(chatSvc, searchSvc, ingestSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
func buildEmbedder(
	base domain.Embedder,
	instruction string,
	store db.Store,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}

	return embedder
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error":   "internal error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
