package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/replyflow/replyflow/internal/api/router"
	"github.com/replyflow/replyflow/internal/channels/facebook"
	"github.com/replyflow/replyflow/internal/channels/instagram"
	appconfig "github.com/replyflow/replyflow/internal/config"
	"github.com/replyflow/replyflow/internal/conversation"
	"github.com/replyflow/replyflow/internal/media"
	"github.com/replyflow/replyflow/internal/observability/metrics"
	"github.com/replyflow/replyflow/internal/store"
	"github.com/replyflow/replyflow/internal/vectorsearch"
	"github.com/replyflow/replyflow/internal/websearch"
	"github.com/replyflow/replyflow/pkg/logging"
	"github.com/replyflow/replyflow/pkg/retry"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting replyflow API server", "env", cfg.Env, "port", cfg.Port)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	memoryDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open memory db", "error", err)
		os.Exit(1)
	}
	defer memoryDB.Close()

	dataStore := store.New(pool)
	memoryStore := conversation.NewMemoryStore(memoryDB)

	var historyCache *conversation.HistoryCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		historyCache = conversation.NewHistoryCache(redisClient)
	}

	outboundPolicy := retry.Policy{
		MaxAttempts: cfg.OutboundMaxAttempts,
		BaseDelay:   cfg.OutboundBaseDelay,
		MaxDelay:    2 * time.Second,
	}

	fbClient := facebook.NewClient(cfg.FacebookPageToken)
	igClient := instagram.NewClient(cfg.InstagramAccessToken)
	if cfg.GraphAPIBase != "" {
		fbClient.SetGraphAPIBase(cfg.GraphAPIBase)
		igClient.SetGraphAPIBase(cfg.GraphAPIBase)
	}
	fbClient.SetRetryPolicy(outboundPolicy)
	igClient.SetRetryPolicy(outboundPolicy)

	clients := map[string]conversation.PlatformClient{
		conversation.PlatformFacebook:  conversation.NewFacebookAdapter(fbClient),
		conversation.PlatformInstagram: conversation.NewInstagramAdapter(igClient),
	}

	llm := buildLLMClient(ctx, cfg, logger)

	var indexer conversation.VectorIndexer
	if cfg.VectorSearchURL != "" {
		vs := vectorsearch.New(cfg.VectorSearchURL, cfg.VectorSearchAPIKey)
		vs.SetTimeout(cfg.SearchTimeout)
		registerFileReferences(ctx, dataStore, vs, logger)
		indexer = vs
	}
	var searcher conversation.WebSearcher
	if cfg.WebSearchURL != "" {
		ws := websearch.New(cfg.WebSearchURL, cfg.WebSearchAPIKey)
		ws.SetTimeout(cfg.SearchTimeout)
		searcher = ws
	}
	var analyzer conversation.MediaAnalyzer
	if cfg.MediaAnalysisURL != "" {
		analyzer = media.New(cfg.MediaAnalysisURL, cfg.MediaAnalysisKey)
	}

	resolver := conversation.NewResolver(dataStore, analyzer, indexer, logger, conversation.ResolverOptions{
		SelfIDs: map[string]string{
			conversation.PlatformFacebook:  cfg.FacebookPageID,
			conversation.PlatformInstagram: cfg.InstagramAccountID,
		},
		SiblingFetchLimit: cfg.SiblingFetchLimit,
		SiblingFetchDelay: cfg.SiblingFetchDelay,
	})
	classifier := conversation.NewIntentClassifier(llm, cfg.ClassifierTimeout, logger)
	gate := conversation.NewSearchGate(llm, cfg.ClassifierTimeout, logger)
	generator := conversation.NewGenerator(llm, gate, memoryStore, historyCache, searcher, indexer, logger, conversation.GeneratorOptions{
		MemoryLimit: cfg.MemoryMessageLimit,
	})
	webhookMetrics := metrics.NewWebhookMetrics(nil)
	pipeline := conversation.NewPipeline(dataStore, resolver, classifier, generator, clients, webhookMetrics, logger)
	ingestor := conversation.NewIngestor(pipeline, webhookMetrics, logger)

	r := router.New(&router.Config{
		FacebookWebhook: facebook.NewWebhookHandler(
			cfg.FacebookVerifyToken, cfg.FacebookAppSecret,
			ingestor.FacebookComment, ingestor.FacebookMessage),
		InstagramWebhook: instagram.NewWebhookHandler(
			cfg.InstagramVerifyToken, cfg.InstagramAppSecret,
			ingestor.InstagramComment, ingestor.InstagramMessage),
		Sessions:       dataStore,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// registerFileReferences pushes the active configuration's file references to
// the vector-search service so file search is warm before the first webhook.
func registerFileReferences(ctx context.Context, dataStore *store.Store, vs *vectorsearch.Client, logger *logging.Logger) {
	pc, err := dataStore.GetActiveConfiguration(ctx)
	if err != nil {
		logger.Warn("configuration lookup failed, skipping file indexing", "error", err)
		return
	}
	if pc == nil || len(pc.FileReferences) == 0 {
		return
	}
	if err := vs.IndexFiles(ctx, pc.FileReferences); err != nil {
		logger.Warn("file reference indexing failed", "error", err)
	}
}

// buildLLMClient wires the primary completion client with an optional
// fallback. OpenAI is primary when configured; Gemini serves as fallback or as
// the sole client.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) conversation.LLMClient {
	var primary, fallback conversation.LLMClient

	if cfg.OpenAIAPIKey != "" {
		primary = conversation.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
		} else if primary == nil {
			primary = gemini
		} else {
			fallback = gemini
		}
	}
	if primary == nil {
		logger.Error("no completion provider configured; set OPENAI_API_KEY or GEMINI_API_KEY")
		os.Exit(1)
	}
	if fallback == nil {
		return primary
	}
	return conversation.NewFallbackLLMClient(primary, fallback, logger)
}
