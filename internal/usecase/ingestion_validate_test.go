package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paper-app/backend/internal/domain"
)

func validPaperFixture() *domain.Paper {
	authors, _ := json.Marshal([]domain.Author{{Name: "A. Researcher"}})
	return &domain.Paper{
		ID:         uuid.New(),
		ExternalID: "2607.12345",
		Title:      "A Sufficiently Long and Descriptive Title",
		Abstract:   "This abstract is intentionally long enough to clear the minimum-quality gate for ingestion.",
		Categories: []string{"cs.LG"},
		Authors:    authors,
	}
}

func TestValidatePaper(t *testing.T) {
	t.Run("accepts a well-formed record", func(t *testing.T) {
		assert.True(t, validatePaper(validPaperFixture()))
	})

	t.Run("rejects malformed external id", func(t *testing.T) {
		p := validPaperFixture()
		p.ExternalID = "not-an-arxiv-id"
		assert.False(t, validatePaper(p))
	})

	t.Run("rejects too-short title", func(t *testing.T) {
		p := validPaperFixture()
		p.Title = "short"
		assert.False(t, validatePaper(p))
	})

	t.Run("rejects too-short abstract", func(t *testing.T) {
		p := validPaperFixture()
		p.Abstract = "too short"
		assert.False(t, validatePaper(p))
	})

	t.Run("rejects empty categories", func(t *testing.T) {
		p := validPaperFixture()
		p.Categories = nil
		assert.False(t, validatePaper(p))
	})

	t.Run("rejects missing authors", func(t *testing.T) {
		p := validPaperFixture()
		p.Authors = nil
		assert.False(t, validatePaper(p))
	})

	t.Run("accepts a versioned arxiv id", func(t *testing.T) {
		p := validPaperFixture()
		p.ExternalID = "2607.12345v2"
		assert.True(t, validatePaper(p))
	})
}

// fakeEmbeddingRepository records every upserted embedding in memory.
type fakeEmbeddingRepository struct {
	upserted []*domain.PaperEmbedding
}

func (f *fakeEmbeddingRepository) Upsert(e *domain.PaperEmbedding) error {
	f.upserted = append(f.upserted, e)
	return nil
}
func (f *fakeEmbeddingRepository) GetByPaperID(paperID uuid.UUID, modelName string) (*domain.PaperEmbedding, error) {
	return nil, nil
}
func (f *fakeEmbeddingRepository) GetByPaperIDs(paperIDs []uuid.UUID, modelName string) (map[uuid.UUID]*domain.PaperEmbedding, error) {
	return nil, nil
}
func (f *fakeEmbeddingRepository) MissingEmbeddings(paperIDs []uuid.UUID, modelName string) ([]uuid.UUID, error) {
	return nil, nil
}

// flakyEmbedder fails every batch that contains a text equal to "boom".
type flakyEmbedder struct{ dim int }

func (e *flakyEmbedder) Model() string { return "fake-embed" }
func (e *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, txt := range texts {
		if txt == "boom" {
			return nil, errors.New("upstream embedding failure")
		}
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, e.dim)
	}
	return vectors, nil
}

func TestComputeEmbeddings_BatchFailureIsolatesOnlyThatBatch(t *testing.T) {
	embeddings := &fakeEmbeddingRepository{}
	u := &IngestionUsecase{embeddings: embeddings, embedder: &flakyEmbedder{dim: 4}, embedBatchSize: 1}

	good1 := &domain.Paper{ID: uuid.New(), Title: "ok-paper-one", Abstract: ""}
	bad := &domain.Paper{ID: uuid.New(), Title: "boom", Abstract: ""}
	good2 := &domain.Paper{ID: uuid.New(), Title: "ok-paper-two", Abstract: ""}

	failed := u.computeEmbeddings(context.Background(), []*domain.Paper{good1, bad, good2})

	require.Equal(t, 1, failed)
	require.Len(t, embeddings.upserted, 2)
	assert.Equal(t, good1.ID, embeddings.upserted[0].PaperID)
	assert.Equal(t, good2.ID, embeddings.upserted[1].PaperID)
}
