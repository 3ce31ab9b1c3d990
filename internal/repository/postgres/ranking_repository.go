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

type RankingRepository struct {
	db *pgxpool.Pool
}

func NewRankingRepository(db *pgxpool.Pool) *RankingRepository {
	return &RankingRepository{db: db}
}

// Upsert deletes the existing row for (userID, sourceKey) and inserts the new
// one in a single transaction so readers never observe a torn state.
func (r *RankingRepository) Upsert(rk *domain.UserPaperRanking) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM user_paper_rankings WHERE user_id = $1 AND source_key = $2`, rk.UserID, rk.SourceKey); err != nil {
		return err
	}

	rk.UpdatedAt = time.Now()
	query := `
		INSERT INTO user_paper_rankings (user_id, source_key, pool_date, paper_ids, scores, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, query, rk.UserID, rk.SourceKey, rk.PoolDate, rk.PaperIDs, rk.Scores, rk.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *RankingRepository) Read(userID uuid.UUID, sourceKey string) (*domain.UserPaperRanking, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rk := &domain.UserPaperRanking{}
	query := `SELECT user_id, source_key, pool_date, paper_ids, scores, updated_at FROM user_paper_rankings WHERE user_id = $1 AND source_key = $2`
	err := r.db.QueryRow(ctx, query, userID, sourceKey).Scan(&rk.UserID, &rk.SourceKey, &rk.PoolDate, &rk.PaperIDs, &rk.Scores, &rk.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rk, nil
}

// CleanupDynamic deletes dynamic-source rows (arxiv_day_*) whose pool_date
// predates cutoff. Static (conference) rankings live until recomputed.
func (r *RankingRepository) CleanupDynamic(cutoff time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	tag, err := r.db.Exec(ctx, `DELETE FROM user_paper_rankings WHERE source_key LIKE 'arxiv_day_%' AND pool_date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
