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

type EmbeddingRepository struct {
	db *pgxpool.Pool
}

func NewEmbeddingRepository(db *pgxpool.Pool) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

func (r *EmbeddingRepository) Upsert(e *domain.PaperEmbedding) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.CreatedAt = time.Now()
	query := `
		INSERT INTO paper_embeddings (paper_id, model_name, vector, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (paper_id, model_name) DO UPDATE SET vector = EXCLUDED.vector, created_at = EXCLUDED.created_at
	`
	_, err := r.db.Exec(ctx, query, e.PaperID, e.ModelName, vectorToPG(e.Vector), e.CreatedAt)
	return err
}

func (r *EmbeddingRepository) GetByPaperID(paperID uuid.UUID, modelName string) (*domain.PaperEmbedding, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e := &domain.PaperEmbedding{}
	var vec []float32
	err := r.db.QueryRow(ctx, `SELECT paper_id, model_name, vector, created_at FROM paper_embeddings WHERE paper_id = $1 AND model_name = $2`, paperID, modelName).
		Scan(&e.PaperID, &e.ModelName, &vec, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Vector = vec
	return e, nil
}

func (r *EmbeddingRepository) GetByPaperIDs(paperIDs []uuid.UUID, modelName string) (map[uuid.UUID]*domain.PaperEmbedding, error) {
	out := make(map[uuid.UUID]*domain.PaperEmbedding)
	if len(paperIDs) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT paper_id, model_name, vector, created_at FROM paper_embeddings WHERE paper_id = ANY($1) AND model_name = $2`, paperIDs, modelName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		e := &domain.PaperEmbedding{}
		if err := rows.Scan(&e.PaperID, &e.ModelName, &e.Vector, &e.CreatedAt); err != nil {
			return nil, err
		}
		out[e.PaperID] = e
	}
	return out, rows.Err()
}

func (r *EmbeddingRepository) MissingEmbeddings(paperIDs []uuid.UUID, modelName string) ([]uuid.UUID, error) {
	existing, err := r.GetByPaperIDs(paperIDs, modelName)
	if err != nil {
		return nil, err
	}
	var missing []uuid.UUID
	for _, id := range paperIDs {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// vectorToPG passes a []float32 through unchanged; pgx scans/encodes Go
// slices directly against a float4[] column.
func vectorToPG(v []float32) []float32 { return v }
