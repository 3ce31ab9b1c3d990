// Package main provides a CLI that imports one static conference
// proceedings source: fetch, upsert, rank the source's papers (listed by
// source, without a candidate pool row) against every active user, and run
// content enrichment.
//
// Usage:
//
//	go run cmd/conference/main.go --conf neurips2024 --phase import
//	go run cmd/conference/main.go --conf neurips2024 --phase pool
//	go run cmd/conference/main.go --conf neurips2024 --phase content
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paper-app/backend/internal/config"
	"github.com/paper-app/backend/internal/domain"
	"github.com/paper-app/backend/internal/repository/postgres"
	"github.com/paper-app/backend/internal/usecase"
	"github.com/paper-app/backend/internal/usecase/enrichment"
	"github.com/paper-app/backend/pkg/conference"
	"github.com/paper-app/backend/pkg/provider"
)

func main() {
	confFlag := flag.String("conf", "", "conference id from the known-conference catalog (e.g. neurips2024)")
	phaseFlag := flag.String("phase", "import", "phase to run: import, pool, content")
	flag.Parse()

	if *confFlag == "" {
		fmt.Fprintln(os.Stderr, "--conf is required")
		os.Exit(2)
	}
	info, ok := domain.ConferenceByID(*confFlag)
	if !ok {
		fmt.Fprintf(os.Stderr, "--conf: unknown conference %q\n", *confFlag)
		os.Exit(2)
	}
	switch *phaseFlag {
	case "import", "pool", "content":
	default:
		fmt.Fprintf(os.Stderr, "--phase: unknown value %q\n", *phaseFlag)
		os.Exit(2)
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Printf("connect to database: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	paperRepo := postgres.NewPaperRepository(pool)
	sourceKey := domain.NormalizeConferenceKey(info.ID)

	switch *phaseFlag {
	case "import":
		conferenceClient := conference.NewClient(cfg.Conference.APIKey)
		papers, err := conferenceClient.ImportProceedings(ctx, info.ID, info.Name, info.Year)
		if err != nil {
			log.Printf("import proceedings: %v", err)
			os.Exit(1)
		}
		n, err := paperRepo.BulkUpsert(papers)
		if err != nil {
			log.Printf("bulk upsert: %v", err)
			os.Exit(1)
		}
		log.Printf("%s: imported %d papers (%d upserted)", sourceKey, len(papers), n)

	case "pool":
		// Static sources are not date-partitioned, so this phase ranks
		// directly off ListBySource rather than building a CandidatePool row.
		rankingRepo := postgres.NewRankingRepository(pool)
		embeddingRepo := postgres.NewEmbeddingRepository(pool)
		feedbackRepo := postgres.NewFeedbackRepository(pool)
		profileRepo := postgres.NewProfileRepository(pool)

		scorer := usecase.NewScorer()
		rankingUsecase := usecase.NewRankingUsecase(rankingRepo, paperRepo, embeddingRepo, feedbackRepo, profileRepo, scorer, cfg.Embedding.Model)

		papers, err := paperRepo.ListBySource(sourceKey)
		if err != nil {
			log.Printf("list papers by source: %v", err)
			os.Exit(1)
		}
		candidateIDs := make([]uuid.UUID, 0, len(papers))
		for _, p := range papers {
			candidateIDs = append(candidateIDs, p.ID)
		}

		userIDs, err := profileRepo.ActiveUserIDs()
		if err != nil {
			log.Printf("list active users: %v", err)
			os.Exit(1)
		}

		failed := 0
		for _, userID := range userIDs {
			if _, err := rankingUsecase.UpsertRanking(userID, sourceKey, time.Now(), candidateIDs, true, 0); err != nil {
				log.Printf("rank user %s: %v", userID, err)
				failed++
			}
		}
		log.Printf("%s: ranked %d/%d users", sourceKey, len(userIDs)-failed, len(userIDs))
		if failed > 0 {
			os.Exit(1)
		}

	case "content":
		translationRepo := postgres.NewTranslationRepository(pool)
		interpretationRepo := postgres.NewInterpretationRepository(pool)
		ttsRepo := postgres.NewTTSRepository(pool)

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

		papers, err := paperRepo.ListBySource(sourceKey)
		if err != nil {
			log.Printf("list papers by source: %v", err)
			os.Exit(1)
		}

		translationOK, translationFailed, _ := enrichment.NewTranslationPipeline(providerPool, translationRepo, cfg.LLM.Model).Run(ctx, papers)
		interpretationOK, interpretationFailed, _ := enrichment.NewInterpretationPipeline(providerPool, interpretationRepo, cfg.LLM.Model).Run(ctx, papers)
		ttsOK, ttsFailed, _ := enrichment.NewTTSPipeline(providerPool, ttsRepo, translationRepo, interpretationRepo, cfg.TTS.Directory, cfg.TTS.VoiceModel, cfg.TTS.Concurrency).Run(ctx, papers)

		log.Printf("%s: translation ok=%d failed=%d, interpretation ok=%d failed=%d, tts ok=%d failed=%d",
			sourceKey, translationOK, translationFailed, interpretationOK, interpretationFailed, ttsOK, ttsFailed)
	}
}
