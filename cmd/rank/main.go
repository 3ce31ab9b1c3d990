// Package main provides a CLI that ranks a day's candidate pool against
// every active user, persisting one UserPaperRanking row per user.
//
// Usage:
//
//	go run cmd/rank/main.go --date 2026-07-30 --filter all
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
	"github.com/paper-app/backend/internal/domain"
	"github.com/paper-app/backend/internal/repository/postgres"
	"github.com/paper-app/backend/internal/usecase"
)

const dateLayout = "2006-01-02"

func main() {
	dateFlag := flag.String("date", "", "target pool date (YYYY-MM-DD), defaults to yesterday")
	filterFlag := flag.String("filter", "all", "candidate pool filter type (all, cs, ai-ml-cv, math, physics)")
	flag.Parse()

	targetDate := time.Now().AddDate(0, 0, -1)
	if *dateFlag != "" {
		d, err := time.Parse(dateLayout, *dateFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "--date: %v\n", err)
			os.Exit(2)
		}
		targetDate = d
	}

	filterType := domain.FilterType(*filterFlag)
	switch filterType {
	case domain.FilterAll, domain.FilterCS, domain.FilterAIMLCV, domain.FilterMath, domain.FilterPhysics:
	default:
		fmt.Fprintf(os.Stderr, "--filter: unknown filter type %q\n", *filterFlag)
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
	candidatePoolRepo := postgres.NewCandidatePoolRepository(pool)
	embeddingRepo := postgres.NewEmbeddingRepository(pool)
	rankingRepo := postgres.NewRankingRepository(pool)
	feedbackRepo := postgres.NewFeedbackRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)

	poolUsecase := usecase.NewCandidatePoolUsecase(paperRepo, candidatePoolRepo)
	scorer := usecase.NewScorer()
	rankingUsecase := usecase.NewRankingUsecase(rankingRepo, paperRepo, embeddingRepo, feedbackRepo, profileRepo, scorer, cfg.Embedding.Model)

	candidateIDs, err := poolUsecase.Read(targetDate, filterType)
	if err != nil {
		log.Printf("read candidate pool: %v", err)
		os.Exit(1)
	}
	if len(candidateIDs) == 0 {
		log.Printf("no candidates for %s/%s, nothing to rank", targetDate.Format(dateLayout), filterType)
		return
	}

	userIDs, err := profileRepo.ActiveUserIDs()
	if err != nil {
		log.Printf("list active users: %v", err)
		os.Exit(1)
	}

	sourceKey := domain.ArxivDaySourceKey(targetDate)
	failed := 0
	for _, userID := range userIDs {
		if _, err := rankingUsecase.UpsertRanking(userID, sourceKey, targetDate, candidateIDs, true, 0); err != nil {
			log.Printf("rank user %s: %v", userID, err)
			failed++
		}
	}

	log.Printf("ranked %d/%d users for %s", len(userIDs)-failed, len(userIDs), targetDate.Format(dateLayout))
	if failed > 0 {
		os.Exit(1)
	}
}
