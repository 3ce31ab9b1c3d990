package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Paper is an arXiv preprint or a conference-proceedings record. Created by
// the Ingestion Engine or the conference importer; never deleted by the core.
type Paper struct {
	ID                uuid.UUID       `json:"id"`
	ExternalID        string          `json:"external_id"` // arxiv_id, unique
	Source            string          `json:"source"`       // "arxiv" or "conf/<conf-id>"
	Title             string          `json:"title"`
	Abstract          string          `json:"abstract,omitempty"`
	Authors           json.RawMessage `json:"authors,omitempty"` // []Author
	SubmittedAt       *time.Time      `json:"submitted_at,omitempty"`
	UpdatedAt         *time.Time      `json:"updated_at,omitempty"`
	PDFURL            string          `json:"pdf_url,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	CitationCount     int             `json:"citation_count"`
	PrimaryCategory   string          `json:"primary_category,omitempty"`
	Categories        []string        `json:"categories,omitempty"`
	DOI               string          `json:"doi,omitempty"`
	JournalRef        string          `json:"journal_ref,omitempty"`
	Comments          string          `json:"comments,omitempty"`
	License           string          `json:"license,omitempty"`
	IngestionBatchID  *uuid.UUID      `json:"ingestion_batch_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// PaperRepository handles paper CRUD in PostgreSQL, the single source of truth.
type PaperRepository interface {
	Create(paper *Paper) error
	BulkUpsert(papers []*Paper) (int, error)
	GetByID(id uuid.UUID) (*Paper, error)
	GetByExternalID(externalID string) (*Paper, error)
	GetByIDs(ids []uuid.UUID) ([]*Paper, error)
	ListByDate(source string, date time.Time) ([]*Paper, error)
	ListBySource(source string) ([]*Paper, error)
	Delete(id uuid.UUID) error
	CountByCategory() ([]CategoryCount, error)
	StreamAll(ctx context.Context, batchSize int, fn func(papers []*Paper) error) error
	RecentSince(ctx context.Context, since time.Time, limit int) ([]*Paper, error)
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// CategoryInfo provides human-readable category information.
type CategoryInfo struct {
	ID    string `json:"id"`    // e.g., "cs.AI"
	Name  string `json:"name"`  // e.g., "Artificial Intelligence"
	Group string `json:"group"` // e.g., "Computer Science"
	Count int64  `json:"count"`
}
