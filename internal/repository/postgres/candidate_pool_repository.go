package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paper-app/backend/internal/domain"
)

type CandidatePoolRepository struct {
	db *pgxpool.Pool
}

func NewCandidatePoolRepository(db *pgxpool.Pool) *CandidatePoolRepository {
	return &CandidatePoolRepository{db: db}
}

// ReplaceAll deletes existing rows for (batchID, filterType) and inserts
// paperIDs in order, in one transaction so BuildPool is idempotent.
func (r *CandidatePoolRepository) ReplaceAll(batchID uuid.UUID, poolDate time.Time, filterType domain.FilterType, paperIDs []uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM candidate_pools WHERE batch_id = $1 AND filter_type = $2`, batchID, filterType); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, paperID := range paperIDs {
		batch.Queue(`INSERT INTO candidate_pools (batch_id, pool_date, filter_type, paper_id, position) VALUES ($1,$2,$3,$4,$5)`,
			batchID, poolDate, filterType, paperID, i)
	}
	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for range paperIDs {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *CandidatePoolRepository) Read(batchID uuid.UUID, filterType domain.FilterType) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT paper_id FROM candidate_pools WHERE batch_id = $1 AND filter_type = $2 ORDER BY position ASC`, batchID, filterType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
