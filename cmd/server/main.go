package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paper-app/backend/internal/cache"
	"github.com/paper-app/backend/internal/config"
	delivery "github.com/paper-app/backend/internal/delivery/http"
	"github.com/paper-app/backend/internal/middleware"
	"github.com/paper-app/backend/internal/orchestrator"
	"github.com/paper-app/backend/internal/repository/postgres"
	"github.com/paper-app/backend/internal/usecase"
	"github.com/paper-app/backend/internal/usecase/enrichment"
	"github.com/paper-app/backend/pkg/arxiv"
	"github.com/paper-app/backend/pkg/conference"
	"github.com/paper-app/backend/pkg/embedding"
	"github.com/paper-app/backend/pkg/provider"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Paper App Backend Starting...")

	cfg := config.Load()
	log.Printf("Server configured on port %s", cfg.Server.Port)

	// Connect to PostgreSQL with retry (non-fatal: server starts even if DB is unavailable)
	var pool *pgxpool.Pool
	dbConnected := false
	for attempt := 1; attempt <= 5; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		var err error
		pool, err = pgxpool.New(ctx, cfg.Database.URL)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				cancel()
				log.Println("Connected to PostgreSQL")
				dbConnected = true
				break
			} else {
				pool.Close()
				pool = nil
				log.Printf("Attempt %d: Failed to ping database: %v", attempt, pingErr)
			}
		} else {
			log.Printf("Attempt %d: Failed to connect to database: %v", attempt, err)
		}
		cancel()
		if attempt == 5 {
			log.Println("WARNING: Could not connect to database after 5 attempts — starting server anyway")
			pool, _ = pgxpool.New(context.Background(), cfg.Database.URL)
		} else {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}
	if pool != nil {
		defer pool.Close()
	}
	_ = dbConnected

	// Repositories
	userRepo := postgres.NewUserRepository(pool)
	paperRepo := postgres.NewPaperRepository(pool)
	userPaperRepo := postgres.NewUserPaperRepository(pool)
	tokenRepo := postgres.NewRefreshTokenRepository(pool)
	embeddingRepo := postgres.NewEmbeddingRepository(pool)
	batchRepo := postgres.NewIngestionBatchRepository(pool)
	candidatePoolRepo := postgres.NewCandidatePoolRepository(pool)
	rankingRepo := postgres.NewRankingRepository(pool)
	feedbackRepo := postgres.NewFeedbackRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	poolSettingsRepo := postgres.NewPoolSettingsRepository(pool)
	translationRepo := postgres.NewTranslationRepository(pool)
	interpretationRepo := postgres.NewInterpretationRepository(pool)
	ttsRepo := postgres.NewTTSRepository(pool)
	artifactRepo := postgres.NewArtifactRepository(pool)

	// Provider Pool: one chat client per configured API key, round-robin
	var chatClients []provider.ChatClient
	for i, key := range cfg.LLM.APIKeys {
		chatClients = append(chatClients, provider.NewOpenAIClient(provider.Config{
			Name:       fmt.Sprintf("llm-%d", i),
			BaseURL:    cfg.LLM.BaseURL,
			APIKey:     key,
			Model:      cfg.LLM.Model,
			Timeout:    cfg.LLM.Timeout,
			MaxRetries: cfg.LLM.MaxRetries,
		}))
	}
	ttsEngine := provider.NewEdgeTTSEngine(cfg.TTS.BaseURL, 60*time.Second)
	providerPool := provider.NewPool(chatClients, ttsEngine)

	embeddingClient := embedding.NewClient(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimension)
	arxivClient := arxiv.NewClient(cfg.ArXiv.ProxyURL)
	conferenceClient := conference.NewClient(cfg.Conference.APIKey)

	// Usecases
	authUsecase := usecase.NewAuthUsecase(userRepo, tokenRepo, &cfg.JWT, &cfg.Google)
	paperUsecase := usecase.NewPaperUsecase(paperRepo)
	libraryUsecase := usecase.NewLibraryUsecase(userPaperRepo, paperRepo)

	scorer := usecase.NewScorer()
	rankingUsecase := usecase.NewRankingUsecase(rankingRepo, paperRepo, embeddingRepo, feedbackRepo, profileRepo, scorer, cfg.Embedding.Model)
	poolUsecase := usecase.NewCandidatePoolUsecase(paperRepo, candidatePoolRepo)

	ingestionUsecase := usecase.NewIngestionUsecase(
		arxivClient, paperRepo, batchRepo, embeddingRepo, embeddingClient,
		usecase.WithArXivQuery(cfg.ArXiv.Query),
		usecase.WithMaxResults(cfg.ArXiv.MaxResults),
		usecase.WithPageSize(cfg.ArXiv.PageSize),
		usecase.WithFallback(cfg.ArXiv.FallbackPageSize, cfg.ArXiv.FallbackMaxStreak, cfg.ArXiv.FallbackMaxOffset),
	)

	// Best-effort Redis cache for the feed assembler
	feedCache := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)

	feedAssembler := usecase.NewFeedAssembler(
		rankingUsecase, poolUsecase, paperRepo, feedbackRepo, poolSettingsRepo,
		translationRepo, interpretationRepo, cfg.Edition == config.EditionCloud,
	)
	feedAssembler.WithCache(feedCache.GetTodayPool, feedCache.SetTodayPool, feedCache.GetWeekPool, feedCache.SetWeekPool)

	feedbackUsecase := usecase.NewFeedbackUsecase(feedbackRepo, feedCache)

	translationPipeline := enrichment.NewTranslationPipeline(providerPool, translationRepo, cfg.LLM.Model)
	interpretationPipeline := enrichment.NewInterpretationPipeline(providerPool, interpretationRepo, cfg.LLM.Model)
	ttsPipeline := enrichment.NewTTSPipeline(providerPool, ttsRepo, translationRepo, interpretationRepo, cfg.TTS.Directory, cfg.TTS.VoiceModel, cfg.TTS.Concurrency)

	jobOrchestrator := orchestrator.New()

	handler := delivery.NewHandler(
		authUsecase, paperUsecase, libraryUsecase,
		feedAssembler, feedbackUsecase, feedbackRepo, rankingUsecase, poolUsecase, ingestionUsecase,
		profileRepo, poolSettingsRepo, paperRepo, translationRepo, interpretationRepo, artifactRepo, ttsRepo,
		translationPipeline, interpretationPipeline, ttsPipeline,
		conferenceClient, jobOrchestrator, cfg.TTS.Directory,
	)
	authMiddleware := middleware.NewAuthMiddleware(authUsecase)

	router := delivery.NewRouter(handler, authMiddleware, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println()
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}
