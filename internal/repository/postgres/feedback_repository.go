package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paper-app/backend/internal/domain"
)

type FeedbackRepository struct {
	db *pgxpool.Pool
}

func NewFeedbackRepository(db *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Set(userID, paperID uuid.UUID, kind domain.FeedbackKind) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	query := `
		INSERT INTO user_feedback (user_id, paper_id, kind, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, paper_id, kind) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, userID, paperID, kind, time.Now())
	return err
}

func (r *FeedbackRepository) Unset(userID, paperID uuid.UUID, kind domain.FeedbackKind) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.db.Exec(ctx, `DELETE FROM user_feedback WHERE user_id = $1 AND paper_id = $2 AND kind = $3`, userID, paperID, kind)
	return err
}

func (r *FeedbackRepository) DeleteOthers(userID, paperID uuid.UUID, keep domain.FeedbackKind) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.db.Exec(ctx, `DELETE FROM user_feedback WHERE user_id = $1 AND paper_id = $2 AND kind != $3`, userID, paperID, keep)
	return err
}

func (r *FeedbackRepository) Get(userID, paperID uuid.UUID) (map[domain.FeedbackKind]bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT kind FROM user_feedback WHERE user_id = $1 AND paper_id = $2`, userID, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[domain.FeedbackKind]bool{}
	for rows.Next() {
		var k domain.FeedbackKind
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out[k] = true
	}
	return out, rows.Err()
}

func (r *FeedbackRepository) GetBulk(userID uuid.UUID, paperIDs []uuid.UUID) (map[uuid.UUID]map[domain.FeedbackKind]bool, error) {
	out := make(map[uuid.UUID]map[domain.FeedbackKind]bool)
	if len(paperIDs) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT paper_id, kind FROM user_feedback WHERE user_id = $1 AND paper_id = ANY($2)`, userID, paperIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pid uuid.UUID
		var k domain.FeedbackKind
		if err := rows.Scan(&pid, &k); err != nil {
			return nil, err
		}
		if out[pid] == nil {
			out[pid] = map[domain.FeedbackKind]bool{}
		}
		out[pid][k] = true
	}
	return out, rows.Err()
}

func (r *FeedbackRepository) HasAnyFeedback(userID uuid.UUID, paperIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	if len(paperIDs) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT DISTINCT paper_id FROM user_feedback WHERE user_id = $1 AND paper_id = ANY($2)`, userID, paperIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pid uuid.UUID
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		out[pid] = true
	}
	return out, rows.Err()
}

func (r *FeedbackRepository) LikedOrBookmarkedPaperIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT DISTINCT paper_id FROM user_feedback WHERE user_id = $1 AND kind IN ('like','bookmark')`, userID)
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

func (r *FeedbackRepository) DislikedToday(userID uuid.UUID, since time.Time) (map[uuid.UUID]bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT paper_id FROM user_feedback WHERE user_id = $1 AND kind = 'dislike' AND created_at >= $2`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uuid.UUID]bool{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *FeedbackRepository) DislikedEver(userID uuid.UUID) (map[uuid.UUID]bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT paper_id FROM user_feedback WHERE user_id = $1 AND kind = 'dislike'`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uuid.UUID]bool{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *FeedbackRepository) TopWeighted(since time.Time, limit int) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	query := `
		SELECT paper_id, SUM(CASE WHEN kind = 'like' THEN 1 WHEN kind = 'bookmark' THEN 2 ELSE 0 END) AS weight
		FROM user_feedback
		WHERE created_at >= $1 AND kind IN ('like','bookmark')
		GROUP BY paper_id
		ORDER BY weight DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		var weight int
		if err := rows.Scan(&id, &weight); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
