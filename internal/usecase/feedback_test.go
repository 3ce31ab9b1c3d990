package usecase

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paper-app/backend/internal/domain"
)

// fakeFeedbackRepository is an in-memory domain.FeedbackRepository for
// exercising the Feedback Handler's state-machine branches without a
// database.
type fakeFeedbackRepository struct {
	rows map[uuid.UUID]map[uuid.UUID]map[domain.FeedbackKind]bool
	// topWeighted, when set, is returned verbatim by TopWeighted. Feed
	// assembler tests use this to script the weighted-feedback pool without
	// reimplementing the like/bookmark weighting here.
	topWeighted []uuid.UUID
}

func newFakeFeedbackRepository() *fakeFeedbackRepository {
	return &fakeFeedbackRepository{rows: map[uuid.UUID]map[uuid.UUID]map[domain.FeedbackKind]bool{}}
}

func (f *fakeFeedbackRepository) row(userID, paperID uuid.UUID) map[domain.FeedbackKind]bool {
	byPaper, ok := f.rows[userID]
	if !ok {
		byPaper = map[uuid.UUID]map[domain.FeedbackKind]bool{}
		f.rows[userID] = byPaper
	}
	kinds, ok := byPaper[paperID]
	if !ok {
		kinds = map[domain.FeedbackKind]bool{}
		byPaper[paperID] = kinds
	}
	return kinds
}

func (f *fakeFeedbackRepository) Set(userID, paperID uuid.UUID, kind domain.FeedbackKind) error {
	f.row(userID, paperID)[kind] = true
	return nil
}

func (f *fakeFeedbackRepository) Unset(userID, paperID uuid.UUID, kind domain.FeedbackKind) error {
	delete(f.row(userID, paperID), kind)
	return nil
}

func (f *fakeFeedbackRepository) DeleteOthers(userID, paperID uuid.UUID, keep domain.FeedbackKind) error {
	row := f.row(userID, paperID)
	for k := range row {
		if k != keep {
			delete(row, k)
		}
	}
	return nil
}

func (f *fakeFeedbackRepository) Get(userID, paperID uuid.UUID) (map[domain.FeedbackKind]bool, error) {
	out := map[domain.FeedbackKind]bool{}
	for k, v := range f.row(userID, paperID) {
		out[k] = v
	}
	return out, nil
}

func (f *fakeFeedbackRepository) GetBulk(userID uuid.UUID, paperIDs []uuid.UUID) (map[uuid.UUID]map[domain.FeedbackKind]bool, error) {
	out := map[uuid.UUID]map[domain.FeedbackKind]bool{}
	for _, id := range paperIDs {
		out[id], _ = f.Get(userID, id)
	}
	return out, nil
}

func (f *fakeFeedbackRepository) HasAnyFeedback(userID uuid.UUID, paperIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := map[uuid.UUID]bool{}
	for _, id := range paperIDs {
		out[id] = len(f.row(userID, id)) > 0
	}
	return out, nil
}

func (f *fakeFeedbackRepository) LikedOrBookmarkedPaperIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for paperID, kinds := range f.rows[userID] {
		if kinds[domain.FeedbackLike] || kinds[domain.FeedbackBookmark] {
			out = append(out, paperID)
		}
	}
	return out, nil
}

func (f *fakeFeedbackRepository) DislikedToday(userID uuid.UUID, since time.Time) (map[uuid.UUID]bool, error) {
	return map[uuid.UUID]bool{}, nil
}

func (f *fakeFeedbackRepository) DislikedEver(userID uuid.UUID) (map[uuid.UUID]bool, error) {
	return map[uuid.UUID]bool{}, nil
}

func (f *fakeFeedbackRepository) TopWeighted(since time.Time, limit int) ([]uuid.UUID, error) {
	if len(f.topWeighted) > limit {
		return f.topWeighted[:limit], nil
	}
	return f.topWeighted, nil
}

type fakeFeedbackCache struct {
	invalidated []uuid.UUID
}

func (c *fakeFeedbackCache) InvalidateUser(userID uuid.UUID) {
	c.invalidated = append(c.invalidated, userID)
}

func TestFeedback_UnknownKindRejected(t *testing.T) {
	repo := newFakeFeedbackRepository()
	u := NewFeedbackUsecase(repo, &fakeFeedbackCache{})

	err := u.Feedback(uuid.New(), uuid.New(), domain.FeedbackKind("shrug"), true, true)
	assert.ErrorIs(t, err, ErrUnknownFeedbackKind)
}

func TestFeedback_DislikeRequiresConfirmation(t *testing.T) {
	repo := newFakeFeedbackRepository()
	cache := &fakeFeedbackCache{}
	u := NewFeedbackUsecase(repo, cache)
	userID, paperID := uuid.New(), uuid.New()

	err := u.Feedback(userID, paperID, domain.FeedbackDislike, true, false)
	require.ErrorIs(t, err, ErrConfirmationRequired)

	state, _ := repo.Get(userID, paperID)
	assert.False(t, state[domain.FeedbackDislike], "unconfirmed dislike must not mutate state")
	assert.Empty(t, cache.invalidated, "unconfirmed dislike must not invalidate the cache")
}

func TestFeedback_ConfirmedDislikeClearsLikeAndBookmark(t *testing.T) {
	repo := newFakeFeedbackRepository()
	cache := &fakeFeedbackCache{}
	u := NewFeedbackUsecase(repo, cache)
	userID, paperID := uuid.New(), uuid.New()

	require.NoError(t, u.Feedback(userID, paperID, domain.FeedbackLike, true, false))
	require.NoError(t, u.Feedback(userID, paperID, domain.FeedbackBookmark, true, false))

	require.NoError(t, u.Feedback(userID, paperID, domain.FeedbackDislike, true, true))

	state, _ := repo.Get(userID, paperID)
	assert.True(t, state[domain.FeedbackDislike])
	assert.False(t, state[domain.FeedbackLike])
	assert.False(t, state[domain.FeedbackBookmark])
	assert.Len(t, cache.invalidated, 3)
}

func TestFeedback_UndislikeDirectlyIsRejected(t *testing.T) {
	repo := newFakeFeedbackRepository()
	u := NewFeedbackUsecase(repo, &fakeFeedbackCache{})
	userID, paperID := uuid.New(), uuid.New()

	err := u.Feedback(userID, paperID, domain.FeedbackDislike, false, true)
	assert.ErrorIs(t, err, ErrFeedbackRejected)
}

func TestFeedback_LikeRejectedWhileDisliked(t *testing.T) {
	repo := newFakeFeedbackRepository()
	u := NewFeedbackUsecase(repo, &fakeFeedbackCache{})
	userID, paperID := uuid.New(), uuid.New()

	require.NoError(t, u.Feedback(userID, paperID, domain.FeedbackDislike, true, true))

	err := u.Feedback(userID, paperID, domain.FeedbackLike, true, false)
	assert.ErrorIs(t, err, ErrFeedbackRejected)
}

func TestFeedback_LikeAndUnlikeAreIdempotent(t *testing.T) {
	repo := newFakeFeedbackRepository()
	u := NewFeedbackUsecase(repo, &fakeFeedbackCache{})
	userID, paperID := uuid.New(), uuid.New()

	require.NoError(t, u.Feedback(userID, paperID, domain.FeedbackLike, true, false))
	require.NoError(t, u.Feedback(userID, paperID, domain.FeedbackLike, true, false))
	state, _ := repo.Get(userID, paperID)
	assert.True(t, state[domain.FeedbackLike])

	require.NoError(t, u.Feedback(userID, paperID, domain.FeedbackLike, false, false))
	require.NoError(t, u.Feedback(userID, paperID, domain.FeedbackLike, false, false))
	state, _ = repo.Get(userID, paperID)
	assert.False(t, state[domain.FeedbackLike])
}
