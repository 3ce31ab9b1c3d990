package usecase

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paper-app/backend/internal/domain"
)

const defaultRankingLimit = 200

// RankingUsecase implements the Ranking Store (C5): computes and persists
// per-user, per-source ordered paper lists.
type RankingUsecase struct {
	rankings   domain.RankingRepository
	papers     domain.PaperRepository
	embeddings domain.PaperEmbeddingRepository
	feedback   domain.FeedbackRepository
	profiles   domain.UserProfileRepository
	scorer     *Scorer
	embedModel string
}

func NewRankingUsecase(
	rankings domain.RankingRepository,
	papers domain.PaperRepository,
	embeddings domain.PaperEmbeddingRepository,
	feedback domain.FeedbackRepository,
	profiles domain.UserProfileRepository,
	scorer *Scorer,
	embedModel string,
) *RankingUsecase {
	return &RankingUsecase{
		rankings:   rankings,
		papers:     papers,
		embeddings: embeddings,
		feedback:   feedback,
		profiles:   profiles,
		scorer:     scorer,
		embedModel: embedModel,
	}
}

// UpsertRanking scores candidateIDs for userID under sourceKey and replaces
// the persisted ranking row. Static sources (anything but arxiv_day_*) are
// pre-filtered to drop any paper the user has ever given feedback on, before
// scoring, so a disliked or already-read paper never re-enters a conference
// feed. Dynamic sources keep the full candidate set; per-read dislike
// filtering happens at feed-assembly time instead. If force is false and a
// fresh-enough ranking already exists for this pool date, the existing row
// is left untouched.
func (u *RankingUsecase) UpsertRanking(userID uuid.UUID, sourceKey string, poolDate time.Time, candidateIDs []uuid.UUID, force bool, limit int) (*domain.UserPaperRanking, error) {
	if limit <= 0 {
		limit = defaultRankingLimit
	}

	if !force {
		if existing, err := u.rankings.Read(userID, sourceKey); err == nil && existing != nil && sameDay(existing.PoolDate, poolDate) {
			return existing, nil
		}
	}

	ids := candidateIDs
	if domain.IsStaticSourceKey(sourceKey) {
		seen, err := u.feedback.HasAnyFeedback(userID, candidateIDs)
		if err != nil {
			return nil, fmt.Errorf("load feedback overlap: %w", err)
		}
		ids = make([]uuid.UUID, 0, len(candidateIDs))
		for _, id := range candidateIDs {
			if !seen[id] {
				ids = append(ids, id)
			}
		}
	}

	papers, err := u.papers.GetByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("load candidate papers: %w", err)
	}
	paperMap := make(map[uuid.UUID]*domain.Paper, len(papers))
	for _, p := range papers {
		paperMap[p.ID] = p
	}

	embeddings, err := u.embeddings.GetByPaperIDs(ids, u.embedModel)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	liked, err := u.feedback.LikedOrBookmarkedPaperIDs(userID)
	if err != nil {
		return nil, fmt.Errorf("load liked papers: %w", err)
	}

	profile, err := u.profiles.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	scored := u.scorer.RankForUser(userID, ids, paperMap, embeddings, liked, profile, time.Now())
	if len(scored) > limit {
		scored = scored[:limit]
	}

	ranking := &domain.UserPaperRanking{
		UserID:    userID,
		SourceKey: sourceKey,
		PoolDate:  poolDate,
		PaperIDs:  make([]uuid.UUID, len(scored)),
		Scores:    make([]float64, len(scored)),
	}
	for i, s := range scored {
		ranking.PaperIDs[i] = s.PaperID
		ranking.Scores[i] = s.Score
	}

	if err := u.rankings.Upsert(ranking); err != nil {
		return nil, fmt.Errorf("persist ranking: %w", err)
	}
	return ranking, nil
}

func (u *RankingUsecase) Read(userID uuid.UUID, sourceKey string) (*domain.UserPaperRanking, error) {
	return u.rankings.Read(userID, sourceKey)
}

// CleanupDynamic drops dynamic rankings older than 7 days.
func (u *RankingUsecase) CleanupDynamic() (int, error) {
	return u.rankings.CleanupDynamic(time.Now().AddDate(0, 0, -7))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
