// Package main provides a CLI that builds the candidate pools (one per
// filter type) for a single day's arXiv ingestion batch.
//
// Usage:
//
//	go run cmd/pool/main.go --date 2026-07-30
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
	"github.com/paper-app/backend/internal/usecase"
)

const dateLayout = "2006-01-02"

func main() {
	dateFlag := flag.String("date", "", "target date (YYYY-MM-DD), defaults to yesterday")
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
	poolUsecase := usecase.NewCandidatePoolUsecase(paperRepo, candidatePoolRepo)

	counts, err := poolUsecase.BuildAllPools(targetDate)
	if err != nil {
		log.Printf("build pools for %s: %v", targetDate.Format(dateLayout), err)
		os.Exit(1)
	}

	for filterType, n := range counts {
		log.Printf("%s %s: %d papers", targetDate.Format(dateLayout), filterType, n)
	}
}
