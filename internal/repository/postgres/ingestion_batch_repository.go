package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paper-app/backend/internal/domain"
)

type IngestionBatchRepository struct {
	db *pgxpool.Pool
}

func NewIngestionBatchRepository(db *pgxpool.Pool) *IngestionBatchRepository {
	return &IngestionBatchRepository{db: db}
}

func (r *IngestionBatchRepository) Create(b *domain.IngestionBatch) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.FetchedAt = time.Now()
	query := `
		INSERT INTO ingestion_batches (id, source, source_date, query, item_count, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, b.ID, b.Source, b.SourceDate, b.Query, b.ItemCount, b.FetchedAt)
	return err
}

func (r *IngestionBatchRepository) GetBySourceDate(source string, date time.Time) (*domain.IngestionBatch, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b := &domain.IngestionBatch{}
	query := `SELECT id, source, source_date, query, item_count, fetched_at FROM ingestion_batches WHERE source = $1 AND source_date::date = $2::date ORDER BY fetched_at DESC LIMIT 1`
	err := r.db.QueryRow(ctx, query, source, date).Scan(&b.ID, &b.Source, &b.SourceDate, &b.Query, &b.ItemCount, &b.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
