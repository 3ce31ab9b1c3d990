package usecase

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paper-app/backend/internal/domain"
)

// fakeProfileRepository is an in-memory domain.UserProfileRepository.
type fakeProfileRepository struct {
	rows map[uuid.UUID]*domain.UserProfile
}

func newFakeProfileRepository() *fakeProfileRepository {
	return &fakeProfileRepository{rows: map[uuid.UUID]*domain.UserProfile{}}
}

func (f *fakeProfileRepository) Get(userID uuid.UUID) (*domain.UserProfile, error) {
	return f.rows[userID], nil
}
func (f *fakeProfileRepository) Upsert(p *domain.UserProfile) error {
	f.rows[p.UserID] = p
	return nil
}
func (f *fakeProfileRepository) ActiveUserIDs() ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id := range f.rows {
		out = append(out, id)
	}
	return out, nil
}

func newTestRankingUsecase(rankings *fakeRankingRepository, papers *fakePaperRepository, feedback domain.FeedbackRepository) *RankingUsecase {
	return NewRankingUsecase(rankings, papers, &fakeEmbeddingRepository{}, feedback, newFakeProfileRepository(), NewScorer(), "fake-embed")
}

func TestUpsertRanking_SkipsRescoreWhenFreshAndNotForced(t *testing.T) {
	userID := uuid.New()
	sourceKey := domain.ArxivDaySourceKey(mustParseDate(t, "2026-07-30"))
	rankings := newFakeRankingRepository()
	papers := newFakePaperRepository()
	feedback := newFakeFeedbackRepository()

	u := newTestRankingUsecase(rankings, papers, feedback)

	poolDate := mustParseDate(t, "2026-07-30")
	first, err := u.UpsertRanking(userID, sourceKey, poolDate, nil, true, 0)
	require.NoError(t, err)

	second, err := u.UpsertRanking(userID, sourceKey, poolDate, []uuid.UUID{uuid.New()}, false, 0)
	require.NoError(t, err)
	assert.Same(t, first, second, "a fresh-enough ranking with force=false must be returned untouched")
}

func TestUpsertRanking_ForceTrueAlwaysRescores(t *testing.T) {
	userID := uuid.New()
	sourceKey := domain.ArxivDaySourceKey(mustParseDate(t, "2026-07-30"))
	rankings := newFakeRankingRepository()
	papers := newFakePaperRepository()
	feedback := newFakeFeedbackRepository()

	u := newTestRankingUsecase(rankings, papers, feedback)
	poolDate := mustParseDate(t, "2026-07-30")

	first, err := u.UpsertRanking(userID, sourceKey, poolDate, nil, true, 0)
	require.NoError(t, err)

	second, err := u.UpsertRanking(userID, sourceKey, poolDate, nil, true, 0)
	require.NoError(t, err)
	assert.NotSame(t, first, second, "force=true must always produce a fresh ranking row")
}

func TestUpsertRanking_StaticSourceDropsPapersWithAnyFeedback(t *testing.T) {
	userID := uuid.New()
	keptID, dislikedID := uuid.New(), uuid.New()
	sourceKey := domain.NormalizeConferenceKey("neurips2024")
	require.True(t, domain.IsStaticSourceKey(sourceKey))

	rankings := newFakeRankingRepository()
	feedback := newFakeFeedbackRepository()
	require.NoError(t, feedback.Set(userID, dislikedID, domain.FeedbackDislike))

	papers := newFakePaperRepository()
	papers.byID[keptID] = &domain.Paper{ID: keptID, Title: "Kept Paper", Categories: []string{"cs.LG"}}
	papers.byID[dislikedID] = &domain.Paper{ID: dislikedID, Title: "Disliked Paper", Categories: []string{"cs.LG"}}

	u := newTestRankingUsecase(rankings, papers, feedback)

	ranking, err := u.UpsertRanking(userID, sourceKey, time.Now(), []uuid.UUID{keptID, dislikedID}, true, 0)
	require.NoError(t, err)
	assert.Contains(t, ranking.PaperIDs, keptID)
	assert.NotContains(t, ranking.PaperIDs, dislikedID, "a paper with any prior feedback must be pre-filtered from a static-source ranking")
}

func TestUpsertRanking_DynamicSourceKeepsAllCandidatesBeforeScoring(t *testing.T) {
	userID := uuid.New()
	disliked := uuid.New()
	sourceKey := domain.ArxivDaySourceKey(mustParseDate(t, "2026-07-30"))
	require.False(t, domain.IsStaticSourceKey(sourceKey))

	rankings := newFakeRankingRepository()
	feedback := newFakeFeedbackRepository()
	require.NoError(t, feedback.Set(userID, disliked, domain.FeedbackDislike))

	papers := newFakePaperRepository()
	papers.byID[disliked] = &domain.Paper{ID: disliked, Title: "Disliked Paper", Categories: []string{"cs.LG"}}

	u := newTestRankingUsecase(rankings, papers, feedback)
	ranking, err := u.UpsertRanking(userID, sourceKey, mustParseDate(t, "2026-07-30"), []uuid.UUID{disliked}, true, 0)
	require.NoError(t, err)
	assert.Contains(t, ranking.PaperIDs, disliked, "dynamic sources keep the full candidate set; dislike filtering happens at feed-assembly time instead")
}
