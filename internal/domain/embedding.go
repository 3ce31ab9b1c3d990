package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaperEmbedding is a dense vector for a paper under a named embedding model.
// Unique on (paper_id, model_name). A Paper may have zero embeddings if the
// embedding provider failed during ingestion.
type PaperEmbedding struct {
	PaperID   uuid.UUID `json:"paper_id"`
	ModelName string    `json:"model_name"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

type PaperEmbeddingRepository interface {
	Upsert(e *PaperEmbedding) error
	GetByPaperID(paperID uuid.UUID, modelName string) (*PaperEmbedding, error)
	GetByPaperIDs(paperIDs []uuid.UUID, modelName string) (map[uuid.UUID]*PaperEmbedding, error)
	MissingEmbeddings(paperIDs []uuid.UUID, modelName string) ([]uuid.UUID, error)
}
