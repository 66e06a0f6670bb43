package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pdfchat/api"
	"pdfchat/config"
	"pdfchat/database"
	"pdfchat/embeddings"
	"pdfchat/llm"
	"pdfchat/pdftext"
	"pdfchat/qa"
	"pdfchat/ratelimit"
	"pdfchat/retrieval"
	"pdfchat/store"
	"pdfchat/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("invalid log level %q: %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		log.Fatalf("embedder setup: %v", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		log.Fatalf("llm setup: %v", err)
	}

	var builder retrieval.Builder
	switch cfg.IndexProvider {
	case config.IndexMemory:
		builder = retrieval.NewMemoryBuilder()
	case config.IndexPgvector:
		builder = retrieval.NewPostgresBuilder(pool)
	default:
		log.Fatalf("unknown index provider: %s", cfg.IndexProvider)
	}
	indexes := retrieval.NewCache(embedder, builder, cfg.IndexCacheSize)

	answers := qa.NewService(indexes, embedder, llmClient, cfg.TopK, logger)

	limiter := ratelimit.New(cfg.RateMaxRequests, cfg.RateWindow())
	go sweepLoop(ctx, limiter, cfg.RateWindow(), logger)

	texts := store.NewPostgresTextStore(pool)
	blobs := store.NewFileBlobStore(cfg.BlobDir)

	manager := ws.NewManager(logger)
	questions := ws.NewHandler(manager, limiter, texts, answers, cfg.QuestionTimeout(), logger)
	server := api.New(logger, texts, blobs, limiter, pdftext.ExtractText, questions)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
	}()

	logger.Info().
		Str("addr", httpServer.Addr).
		Str("embeddings", cfg.Embeddings.Provider).
		Str("llm", cfg.LLM.Provider).
		Str("index", cfg.IndexProvider).
		Msg("pdfchat api listening")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server: %v", err)
	}
	logger.Info().Msg("pdfchat api stopped")
}

// sweepLoop periodically evicts rate-limiter entries whose windows have
// expired so memory does not grow with every client ever seen.
func sweepLoop(ctx context.Context, limiter *ratelimit.Limiter, window time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := limiter.Sweep(now); removed > 0 {
				logger.Debug().Int("removed", removed).Msg("swept idle rate-limit entries")
			}
		}
	}
}
