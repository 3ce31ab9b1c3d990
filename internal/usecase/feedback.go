package usecase

import (
	"errors"

	"github.com/google/uuid"
	"github.com/paper-app/backend/internal/domain"
)

var (
	// ErrConfirmationRequired signals an unconfirmed dislike; no row was mutated.
	ErrConfirmationRequired = errors.New("dislike requires confirmation")
	// ErrFeedbackRejected signals an action the state machine refuses outright.
	ErrFeedbackRejected = errors.New("feedback action rejected")
	ErrUnknownFeedbackKind = errors.New("unknown feedback kind")
)

// FeedbackCache is the subset of the cache layer the feedback handler
// invalidates on a successful mutation.
type FeedbackCache interface {
	InvalidateUser(userID uuid.UUID)
}

// FeedbackUsecase implements the Feedback Handler (C8) as an exhaustive
// match over the tagged FeedbackKind variant and the requested value.
type FeedbackUsecase struct {
	feedback domain.FeedbackRepository
	cache    FeedbackCache
}

func NewFeedbackUsecase(feedback domain.FeedbackRepository, cache FeedbackCache) *FeedbackUsecase {
	return &FeedbackUsecase{feedback: feedback, cache: cache}
}

// Feedback applies one feedback mutation.
//
//   - dislike, value=true, confirmed=false -> ErrConfirmationRequired, no mutation
//   - dislike, value=true, confirmed=true  -> remove like/bookmark, insert dislike
//   - dislike, value=false                 -> rejected; dislikes are cleared by
//     liking/bookmarking instead, never by un-disliking directly
//   - like/bookmark, value=true            -> rejected if a dislike exists,
//     else idempotent insert
//   - like/bookmark, value=false           -> idempotent delete
func (u *FeedbackUsecase) Feedback(userID, paperID uuid.UUID, kind domain.FeedbackKind, value, confirmed bool) error {
	if !kind.Valid() {
		return ErrUnknownFeedbackKind
	}

	switch kind {
	case domain.FeedbackDislike:
		if !value {
			return ErrFeedbackRejected
		}
		if !confirmed {
			return ErrConfirmationRequired
		}
		if err := u.feedback.DeleteOthers(userID, paperID, domain.FeedbackDislike); err != nil {
			return err
		}
		if err := u.feedback.Set(userID, paperID, domain.FeedbackDislike); err != nil {
			return err
		}

	case domain.FeedbackLike, domain.FeedbackBookmark:
		if !value {
			if err := u.feedback.Unset(userID, paperID, kind); err != nil {
				return err
			}
			break
		}
		existing, err := u.feedback.Get(userID, paperID)
		if err != nil {
			return err
		}
		if existing[domain.FeedbackDislike] {
			return ErrFeedbackRejected
		}
		if err := u.feedback.Set(userID, paperID, kind); err != nil {
			return err
		}

	default:
		return ErrUnknownFeedbackKind
	}

	if u.cache != nil {
		u.cache.InvalidateUser(userID)
	}
	return nil
}
