package domain

import (
	"time"

	"github.com/google/uuid"
)

// FilterType is the predicate name a candidate pool was built with.
type FilterType string

const (
	FilterCS      FilterType = "cs"
	FilterAIMLCV  FilterType = "ai-ml-cv"
	FilterMath    FilterType = "math"
	FilterPhysics FilterType = "physics"
	FilterAll     FilterType = "all"
)

// CandidatePool is a per-(pool_date, filter_type) bucket of paper ids.
// Rebuilt idempotently: BuildPool first deletes all rows with that key.
type CandidatePool struct {
	BatchID    uuid.UUID  `json:"batch_id"`
	PoolDate   time.Time  `json:"pool_date"`
	FilterType FilterType `json:"filter_type"`
	PaperID    uuid.UUID  `json:"paper_id"`
	Position   int        `json:"position"`
}

type CandidatePoolRepository interface {
	// ReplaceAll deletes existing rows for (batchID, filterType) and inserts
	// paperIDs in order, in a single transaction.
	ReplaceAll(batchID uuid.UUID, poolDate time.Time, filterType FilterType, paperIDs []uuid.UUID) error
	Read(batchID uuid.UUID, filterType FilterType) ([]uuid.UUID, error)
}

// PoolDateBatchID returns the deterministic UUID for a pool date, so the
// bucket identity is reproducible across machines.
func PoolDateBatchID(date time.Time) uuid.UUID {
	name := "candidate_pool_date_" + date.Format("2006-01-02")
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name))
}
