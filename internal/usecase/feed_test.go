package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paper-app/backend/internal/domain"
)

// fakeRankingRepository is an in-memory domain.RankingRepository keyed by
// (userID, sourceKey).
type fakeRankingRepository struct {
	rows map[string]*domain.UserPaperRanking
}

func newFakeRankingRepository() *fakeRankingRepository {
	return &fakeRankingRepository{rows: map[string]*domain.UserPaperRanking{}}
}

func rankingKey(userID uuid.UUID, sourceKey string) string { return userID.String() + "|" + sourceKey }

func (f *fakeRankingRepository) Upsert(r *domain.UserPaperRanking) error {
	f.rows[rankingKey(r.UserID, r.SourceKey)] = r
	return nil
}
func (f *fakeRankingRepository) Read(userID uuid.UUID, sourceKey string) (*domain.UserPaperRanking, error) {
	return f.rows[rankingKey(userID, sourceKey)], nil
}
func (f *fakeRankingRepository) CleanupDynamic(cutoff time.Time) (int, error) { return 0, nil }

// fakeCandidatePoolRepository is an in-memory domain.CandidatePoolRepository;
// unused by tests where every ranking is pre-populated.
type fakeCandidatePoolRepository struct{}

func (f *fakeCandidatePoolRepository) ReplaceAll(batchID uuid.UUID, poolDate time.Time, filterType domain.FilterType, paperIDs []uuid.UUID) error {
	return nil
}
func (f *fakeCandidatePoolRepository) Read(batchID uuid.UUID, filterType domain.FilterType) ([]uuid.UUID, error) {
	return nil, nil
}

// fakePaperRepository backs only the paths the feed assembler tests exercise.
type fakePaperRepository struct {
	byID   map[uuid.UUID]*domain.Paper
	recent []*domain.Paper
}

func newFakePaperRepository() *fakePaperRepository {
	return &fakePaperRepository{byID: map[uuid.UUID]*domain.Paper{}}
}

func (f *fakePaperRepository) Create(paper *domain.Paper) error          { return nil }
func (f *fakePaperRepository) BulkUpsert(papers []*domain.Paper) (int, error) { return 0, nil }
func (f *fakePaperRepository) GetByID(id uuid.UUID) (*domain.Paper, error) { return f.byID[id], nil }
func (f *fakePaperRepository) GetByExternalID(externalID string) (*domain.Paper, error) {
	return nil, nil
}
func (f *fakePaperRepository) GetByIDs(ids []uuid.UUID) ([]*domain.Paper, error) {
	var out []*domain.Paper
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakePaperRepository) ListByDate(source string, date time.Time) ([]*domain.Paper, error) {
	return nil, nil
}
func (f *fakePaperRepository) ListBySource(source string) ([]*domain.Paper, error) { return nil, nil }
func (f *fakePaperRepository) Delete(id uuid.UUID) error                           { return nil }
func (f *fakePaperRepository) CountByCategory() ([]domain.CategoryCount, error)    { return nil, nil }
func (f *fakePaperRepository) StreamAll(ctx context.Context, batchSize int, fn func([]*domain.Paper) error) error {
	return nil
}
func (f *fakePaperRepository) RecentSince(ctx context.Context, since time.Time, limit int) ([]*domain.Paper, error) {
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func newTestFeedAssembler(rankings *fakeRankingRepository, feedback domain.FeedbackRepository, papers *fakePaperRepository) *FeedAssembler {
	poolUsecase := NewCandidatePoolUsecase(papers, &fakeCandidatePoolRepository{})
	rankingUsecase := NewRankingUsecase(rankings, papers, &fakeEmbeddingRepository{}, feedback, nil, NewScorer(), "fake-embed")
	return NewFeedAssembler(rankingUsecase, poolUsecase, papers, feedback, nil, nil, nil, true)
}

func TestWeekArxivFeed_DedupsAcrossDays(t *testing.T) {
	userID := uuid.New()
	shared, onlyDay0, onlyDay1 := uuid.New(), uuid.New(), uuid.New()

	base := todayNY().AddDate(0, 0, -arxivLagDays)
	rankings := newFakeRankingRepository()
	for i := 0; i < 6; i++ {
		day := base.AddDate(0, 0, -i)
		key := domain.ArxivDaySourceKey(day)
		var ids []uuid.UUID
		switch i {
		case 0:
			ids = []uuid.UUID{onlyDay0, shared}
		case 1:
			ids = []uuid.UUID{shared, onlyDay1}
		default:
			ids = []uuid.UUID{shared}
		}
		scores := make([]float64, len(ids))
		require.NoError(t, rankings.Upsert(&domain.UserPaperRanking{UserID: userID, SourceKey: key, PoolDate: day, PaperIDs: ids, Scores: scores}))
	}

	feedback := newFakeFeedbackRepository()
	assembler := newTestFeedAssembler(rankings, feedback, newFakePaperRepository())

	ordered, _, err := assembler.weekArxivFeed(userID)
	require.NoError(t, err)

	seen := map[uuid.UUID]int{}
	for _, id := range ordered {
		seen[id]++
	}
	assert.Equal(t, 1, seen[shared], "a paper appearing in multiple days must surface only once")
	assert.Equal(t, 1, seen[onlyDay0])
	assert.Equal(t, 1, seen[onlyDay1])
	assert.Equal(t, onlyDay0, ordered[0], "day-0's paper should lead since it is inserted first and not yet seen")
}

func TestColdStartFallback_FillsRemainderFromRecentAfterWeighted(t *testing.T) {
	userID := uuid.New()
	weightedID := uuid.New()
	recentID1, recentID2 := uuid.New(), uuid.New()

	feedback := newFakeFeedbackRepository()
	feedback.topWeighted = []uuid.UUID{weightedID}

	papers := newFakePaperRepository()
	papers.recent = []*domain.Paper{{ID: weightedID}, {ID: recentID1}, {ID: recentID2}}

	assembler := newTestFeedAssembler(newFakeRankingRepository(), feedback, papers)

	ids, scores, err := assembler.coldStartFallback(userID, 3)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, weightedID, ids[0], "weighted feedback results come first")
	assert.Contains(t, ids, recentID1)
	assert.Contains(t, ids, recentID2)
	assert.NotContains(t, ids[1:], weightedID, "the weighted paper must not be duplicated from the recent fill")
	assert.Greater(t, scores[weightedID], scores[recentID1])
}

func TestGetFeed_ColdStartOnlyFiresInCloudMode(t *testing.T) {
	userID := uuid.New()
	weightedID, recentID := uuid.New(), uuid.New()

	feedback := newFakeFeedbackRepository()
	feedback.topWeighted = []uuid.UUID{weightedID}
	papers := newFakePaperRepository()
	papers.byID[weightedID] = &domain.Paper{ID: weightedID}
	papers.byID[recentID] = &domain.Paper{ID: recentID}
	papers.recent = []*domain.Paper{{ID: recentID}}

	buildAssembler := func(cloudMode bool) *FeedAssembler {
		poolUsecase := NewCandidatePoolUsecase(papers, &fakeCandidatePoolRepository{})
		rankingUsecase := NewRankingUsecase(newFakeRankingRepository(), papers, &fakeEmbeddingRepository{}, feedback, nil, NewScorer(), "fake-embed")
		return NewFeedAssembler(rankingUsecase, poolUsecase, papers, feedback, nil, nil, nil, cloudMode)
	}

	cloud := buildAssembler(true)
	page, err := cloud.GetFeed(userID, "", "", 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	assert.Equal(t, weightedID, page.Items[0].Paper.ID, "cloud mode should surface the weighted cold-start pick first")

	community := buildAssembler(false)
	page, err = community.GetFeed(userID, "", "", 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	for _, item := range page.Items {
		assert.NotEqual(t, weightedID, item.Paper.ID, "community edition must not use the weighted cold-start pool")
	}
	assert.Equal(t, recentID, page.Items[0].Paper.ID, "community edition falls back to plain recency")
}
