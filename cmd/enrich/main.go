// Package main provides a CLI that runs the three enrichment sub-pipelines
// (translation, interpretation, text-to-speech) over a backlog of recently
// ingested papers.
//
// Usage:
//
//	go run cmd/enrich/main.go --since 72h --limit 500 --pipeline all
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paper-app/backend/internal/config"
	"github.com/paper-app/backend/internal/repository/postgres"
	"github.com/paper-app/backend/internal/usecase/enrichment"
	"github.com/paper-app/backend/pkg/provider"
)

func main() {
	since := flag.Duration("since", 72*time.Hour, "how far back to look for unenriched papers")
	limit := flag.Int("limit", 500, "max papers to process per pipeline")
	pipelineFlag := flag.String("pipeline", "all", "which sub-pipeline to run (all, translation, interpretation, tts)")
	flag.Parse()

	switch *pipelineFlag {
	case "all", "translation", "interpretation", "tts":
	default:
		fmt.Fprintf(os.Stderr, "--pipeline: unknown value %q\n", *pipelineFlag)
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

	papers, err := paperRepo.RecentSince(ctx, time.Now().Add(-*since), *limit)
	if err != nil {
		log.Printf("list recent papers: %v", err)
		os.Exit(1)
	}
	log.Printf("backlog: %d papers since %s", len(papers), since)

	failed := false
	if *pipelineFlag == "all" || *pipelineFlag == "translation" {
		p := enrichment.NewTranslationPipeline(providerPool, translationRepo, cfg.LLM.Model)
		ok, badCount, err := p.Run(ctx, papers)
		if err != nil {
			log.Printf("translation pipeline: %v", err)
			failed = true
		}
		log.Printf("translation: ok=%d failed=%d", ok, badCount)
	}
	if *pipelineFlag == "all" || *pipelineFlag == "interpretation" {
		p := enrichment.NewInterpretationPipeline(providerPool, interpretationRepo, cfg.LLM.Model)
		ok, badCount, err := p.Run(ctx, papers)
		if err != nil {
			log.Printf("interpretation pipeline: %v", err)
			failed = true
		}
		log.Printf("interpretation: ok=%d failed=%d", ok, badCount)
	}
	if *pipelineFlag == "all" || *pipelineFlag == "tts" {
		p := enrichment.NewTTSPipeline(providerPool, ttsRepo, translationRepo, interpretationRepo, cfg.TTS.Directory, cfg.TTS.VoiceModel, cfg.TTS.Concurrency)
		ok, badCount, err := p.Run(ctx, papers)
		if err != nil {
			log.Printf("tts pipeline: %v", err)
			failed = true
		}
		log.Printf("tts: ok=%d failed=%d", ok, badCount)
	}

	if failed {
		os.Exit(1)
	}
}
