package usecase

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paper-app/backend/internal/domain"
)

func TestScorePaper_PathSelection(t *testing.T) {
	now := time.Now()
	recent := now.Add(-24 * time.Hour)

	t.Run("embedding path wins when both vectors present", func(t *testing.T) {
		paper := &domain.Paper{SubmittedAt: &recent}
		profile := &domain.UserProfile{InterestedCategories: []string{"cs.AI"}}
		s := NewScorer()

		withEmbedding := s.ScorePaper(paper, []float32{1, 0}, []float32{1, 0}, profile, now)
		withoutEmbedding := s.ScorePaper(paper, nil, nil, profile, now)

		assert.NotEqual(t, withEmbedding, withoutEmbedding, "embedding path should score differently from profile path")
	})

	t.Run("profile path used when no embeddings but profile has signals", func(t *testing.T) {
		paper := &domain.Paper{
			SubmittedAt: &recent,
			Categories:  []string{"cs.LG"},
			Title:       "Transformers for everything",
		}
		profile := &domain.UserProfile{InterestedCategories: []string{"cs.LG"}}
		s := NewScorer()

		score := s.ScorePaper(paper, nil, nil, profile, now)
		require.Greater(t, score, 0.3, "matched category should push score above the profile-path base")
	})

	t.Run("cold start used with no embeddings and no profile signal", func(t *testing.T) {
		paper := &domain.Paper{SubmittedAt: &recent}
		s := NewScorer()

		score := s.ScorePaper(paper, nil, nil, nil, now)
		assert.GreaterOrEqual(t, score, 0.0)
	})
}

func TestRecencyBonus(t *testing.T) {
	now := time.Now()

	t.Run("nil submission time yields zero bonus", func(t *testing.T) {
		assert.Equal(t, 0.0, recencyBonus(nil, now))
	})

	t.Run("just-submitted paper gets full bonus", func(t *testing.T) {
		justNow := now
		assert.InDelta(t, 1.0, recencyBonus(&justNow, now), 0.01)
	})

	t.Run("bonus floors at zero past the 30-day window", func(t *testing.T) {
		old := now.AddDate(0, 0, -60)
		assert.Equal(t, 0.0, recencyBonus(&old, now))
	})

	t.Run("future submission time is clamped rather than going negative", func(t *testing.T) {
		future := now.Add(48 * time.Hour)
		assert.InDelta(t, 1.0, recencyBonus(&future, now), 0.01)
	})
}

func TestScoreProfilePath_KeywordAndCategoryMatching(t *testing.T) {
	paper := &domain.Paper{
		Categories: []string{"cs.CL", "cs.AI"},
		Title:      "Efficient Retrieval Augmented Generation",
		Abstract:   "We study retrieval pipelines for large language models.",
	}
	profile := &domain.UserProfile{
		InterestedCategories: []string{"cs.CL"},
		ResearchKeywords:     []string{"retrieval", "quantum computing"},
	}

	score := scoreProfilePath(paper, profile, 0)
	// one of two categories matched (0.5 weight * 0.5 match) + one of two
	// keywords matched (0.3 weight * 0.5 match) + 0.3 base.
	assert.InDelta(t, 0.3+0.5*0.5+0.3*0.5, score, 1e-9)
}

func TestDot(t *testing.T) {
	assert.Equal(t, 9.0, dot([]float32{1, 2, 3}, []float32{1, 1, 2}))
	assert.Equal(t, 0.0, dot(nil, []float32{1, 2}))
}

func TestMeanVector(t *testing.T) {
	t.Run("empty input returns nil", func(t *testing.T) {
		assert.Nil(t, meanVector(nil))
	})

	t.Run("averages and L2-normalizes", func(t *testing.T) {
		mean := meanVector([][]float32{{1, 0}, {0, 1}})
		require.Len(t, mean, 2)
		var normSq float64
		for _, x := range mean {
			normSq += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, normSq, 1e-6)
	})
}

func TestRankForUser_OrdersByScoreDescending(t *testing.T) {
	userID := uuid.New()
	olderID, newerID := uuid.New(), uuid.New()
	now := time.Now()
	old := now.AddDate(0, 0, -20)
	fresh := now.Add(-time.Hour)

	papers := map[uuid.UUID]*domain.Paper{
		olderID: {ID: olderID, SubmittedAt: &old, Categories: []string{"cs.AI"}},
		newerID: {ID: newerID, SubmittedAt: &fresh, Categories: []string{"cs.AI"}},
	}
	profile := &domain.UserProfile{InterestedCategories: []string{"cs.AI"}}

	s := NewScorer()
	results := s.RankForUser(userID, []uuid.UUID{olderID, newerID}, papers, nil, nil, profile, now)

	require.Len(t, results, 2)
	assert.Equal(t, newerID, results[0].PaperID, "identical category match should fall back to recency bonus ordering")
}

func TestRankForUser_SkipsCandidatesMissingFromPaperMap(t *testing.T) {
	userID := uuid.New()
	known := uuid.New()
	missing := uuid.New()
	now := time.Now()

	papers := map[uuid.UUID]*domain.Paper{known: {ID: known}}
	s := NewScorer()

	results := s.RankForUser(userID, []uuid.UUID{known, missing}, papers, nil, nil, nil, now)
	require.Len(t, results, 1)
	assert.Equal(t, known, results[0].PaperID)
}
