package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackKind is a tagged variant; exhaustive matching, rejected at the HTTP
// boundary if unknown.
type FeedbackKind string

const (
	FeedbackLike     FeedbackKind = "like"
	FeedbackBookmark FeedbackKind = "bookmark"
	FeedbackDislike  FeedbackKind = "dislike"
)

func (k FeedbackKind) Valid() bool {
	switch k {
	case FeedbackLike, FeedbackBookmark, FeedbackDislike:
		return true
	}
	return false
}

// UserFeedback is unique on (user_id, paper_id, kind).
type UserFeedback struct {
	UserID    uuid.UUID    `json:"user_id"`
	PaperID   uuid.UUID    `json:"paper_id"`
	Kind      FeedbackKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

type FeedbackRepository interface {
	// Set inserts a feedback row for the pair, idempotently (ON CONFLICT DO NOTHING).
	Set(userID, paperID uuid.UUID, kind FeedbackKind) error
	// Unset deletes a feedback row for the pair if present.
	Unset(userID, paperID uuid.UUID, kind FeedbackKind) error
	// DeleteOthers removes any row of a different kind than keep for the pair.
	DeleteOthers(userID, paperID uuid.UUID, keep FeedbackKind) error
	Get(userID, paperID uuid.UUID) (map[FeedbackKind]bool, error)
	GetBulk(userID uuid.UUID, paperIDs []uuid.UUID) (map[uuid.UUID]map[FeedbackKind]bool, error)
	// HasAnyFeedback returns the set of paper ids the user has any feedback on.
	HasAnyFeedback(userID uuid.UUID, paperIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	// LikedOrBookmarkedPaperIDs returns paper ids the user liked or bookmarked,
	// used by the embedding-profile scorer path.
	LikedOrBookmarkedPaperIDs(userID uuid.UUID) ([]uuid.UUID, error)
	// DislikedToday returns paper ids disliked by the user since the given instant.
	DislikedToday(userID uuid.UUID, since time.Time) (map[uuid.UUID]bool, error)
	// DislikedEver returns all paper ids ever disliked by the user.
	DislikedEver(userID uuid.UUID) (map[uuid.UUID]bool, error)
	TopWeighted(since time.Time, limit int) ([]uuid.UUID, error)
}
