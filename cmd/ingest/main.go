// Package main provides a one-shot/cron-friendly CLI that pulls one or more
// days of arXiv submissions, validates and upserts them, and backfills
// embeddings.
//
// Usage:
//
//	go run cmd/ingest/main.go --date 2026-07-30
//	go run cmd/ingest/main.go --from 2026-07-28 --to 2026-07-30
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
	"github.com/paper-app/backend/pkg/arxiv"
	"github.com/paper-app/backend/pkg/embedding"
)

const dateLayout = "2006-01-02"

func main() {
	dateFlag := flag.String("date", "", "single target date (YYYY-MM-DD)")
	fromFlag := flag.String("from", "", "start of an inclusive date range (YYYY-MM-DD)")
	toFlag := flag.String("to", "", "end of an inclusive date range (YYYY-MM-DD)")
	flag.Parse()

	dates, err := resolveDates(*dateFlag, *fromFlag, *toFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
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
	batchRepo := postgres.NewIngestionBatchRepository(pool)
	embeddingRepo := postgres.NewEmbeddingRepository(pool)
	arxivClient := arxiv.NewClient(cfg.ArXiv.ProxyURL)
	embeddingClient := embedding.NewClient(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimension)

	ingestionUsecase := usecase.NewIngestionUsecase(
		arxivClient, paperRepo, batchRepo, embeddingRepo, embeddingClient,
		usecase.WithArXivQuery(cfg.ArXiv.Query),
		usecase.WithMaxResults(cfg.ArXiv.MaxResults),
		usecase.WithPageSize(cfg.ArXiv.PageSize),
		usecase.WithFallback(cfg.ArXiv.FallbackPageSize, cfg.ArXiv.FallbackMaxStreak, cfg.ArXiv.FallbackMaxOffset),
	)

	failed := false
	for _, d := range dates {
		log.Printf("ingesting %s", d.Format(dateLayout))
		result, err := ingestionUsecase.IngestForDate(ctx, d)
		if err != nil {
			log.Printf("ingest %s: %v", d.Format(dateLayout), err)
			failed = true
			continue
		}
		log.Printf("%s: fetched=%d upserted=%d embeddings_failed=%d fallback=%v",
			d.Format(dateLayout), result.Fetched, result.Upserted, result.EmbeddingsFailed, result.UsedFallback)
	}

	if failed {
		os.Exit(1)
	}
}

func resolveDates(dateFlag, fromFlag, toFlag string) ([]time.Time, error) {
	if dateFlag != "" {
		d, err := time.Parse(dateLayout, dateFlag)
		if err != nil {
			return nil, fmt.Errorf("--date: %w", err)
		}
		return []time.Time{d}, nil
	}

	if fromFlag == "" || toFlag == "" {
		from := time.Now().AddDate(0, 0, -1)
		return []time.Time{from}, nil
	}

	from, err := time.Parse(dateLayout, fromFlag)
	if err != nil {
		return nil, fmt.Errorf("--from: %w", err)
	}
	to, err := time.Parse(dateLayout, toFlag)
	if err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("--to must not precede --from")
	}

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}
