package domain

import (
	"time"

	"github.com/google/uuid"
)

// IngestionBatch records one ingestion run. Immutable after commit.
type IngestionBatch struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	SourceDate time.Time `json:"source_date"`
	Query     string    `json:"query"`
	ItemCount int       `json:"item_count"`
	FetchedAt time.Time `json:"fetched_at"`
}

type IngestionBatchRepository interface {
	Create(b *IngestionBatch) error
	GetBySourceDate(source string, date time.Time) (*IngestionBatch, error)
}
