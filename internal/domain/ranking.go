package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserPaperRanking is a unique-per-(user_id, source_key) ordered list of
// paper ids with aligned scores. Order is significant.
type UserPaperRanking struct {
	UserID    uuid.UUID   `json:"user_id"`
	SourceKey string      `json:"source_key"`
	PoolDate  time.Time   `json:"pool_date"`
	PaperIDs  []uuid.UUID `json:"paper_ids"`
	Scores    []float64   `json:"scores"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type RankingRepository interface {
	// Upsert deletes the existing row for (userID, sourceKey) and inserts the
	// new one in a single transaction, so readers never observe a torn state.
	Upsert(r *UserPaperRanking) error
	Read(userID uuid.UUID, sourceKey string) (*UserPaperRanking, error)
	// CleanupDynamic deletes dynamic-source rows whose pool_date predates the cutoff.
	CleanupDynamic(cutoff time.Time) (int, error)
}

// ArxivDaySourceKey formats the canonical streaming source key. Per Open
// Question #1, unified on YYYYMMDD (no dashes).
func ArxivDaySourceKey(date time.Time) string {
	return fmt.Sprintf("arxiv_day_%s", date.Format("20060102"))
}

// IsStaticSourceKey reports whether a source key names a static (conference)
// source rather than the dynamic arxiv_day_ stream.
func IsStaticSourceKey(sourceKey string) bool {
	return len(sourceKey) < 10 || sourceKey[:10] != "arxiv_day_"
}

// NormalizeConferenceKey ensures a conference source key carries the "conf/" prefix.
func NormalizeConferenceKey(id string) string {
	if len(id) >= 5 && id[:5] == "conf/" {
		return id
	}
	return "conf/" + id
}
