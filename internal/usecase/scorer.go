package usecase

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paper-app/backend/internal/domain"
)

// ScoredPaper pairs a paper id with its computed score.
type ScoredPaper struct {
	PaperID uuid.UUID
	Score   float64
}

// Scorer implements the three-strategy scorer (C4): a single function that
// inspects available inputs and branches, with three pure helpers for the
// three paths. No polymorphism machinery per Design Notes.
type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

func recencyBonus(submittedAt *time.Time, now time.Time) float64 {
	if submittedAt == nil {
		return 0
	}
	days := now.Sub(*submittedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Max(0, 1-math.Min(days/30, 1))
}

// ScorePaper produces a score for one paper given whichever signals are
// available, choosing the highest-precedence strategy: embedding path when
// both a user vector and a paper vector exist, profile path when the user
// has declared categories or keywords, cold-start otherwise.
func (s *Scorer) ScorePaper(paper *domain.Paper, userVec, paperVec []float32, profile *domain.UserProfile, now time.Time) float64 {
	bonus := recencyBonus(paper.SubmittedAt, now)

	switch {
	case len(userVec) > 0 && len(paperVec) > 0:
		return scoreEmbeddingPath(userVec, paperVec, bonus)
	case profile != nil && (len(profile.InterestedCategories) > 0 || len(profile.ResearchKeywords) > 0):
		return scoreProfilePath(paper, profile, bonus)
	default:
		return scoreColdStartPath(bonus)
	}
}

// scoreEmbeddingPath computes the dot product of the L2-normalized user
// profile vector against the paper's embedding vector.
func scoreEmbeddingPath(userVec, paperVec []float32, bonus float64) float64 {
	return 0.5 + dot(userVec, paperVec) + bonus
}

func scoreProfilePath(paper *domain.Paper, profile *domain.UserProfile, bonus float64) float64 {
	categoryMatch := 0.0
	if len(paper.Categories) > 0 {
		matched := 0
		userCats := toSet(profile.InterestedCategories)
		for _, c := range paper.Categories {
			if userCats[c] {
				matched++
			}
		}
		categoryMatch = math.Min(1, float64(matched)/float64(len(paper.Categories)))
	}

	keywordMatch := 0.0
	if len(profile.ResearchKeywords) > 0 {
		haystack := strings.ToLower(paper.Title + " " + paper.Abstract)
		matched := 0
		for _, kw := range profile.ResearchKeywords {
			if kw == "" {
				continue
			}
			if strings.Contains(haystack, strings.ToLower(kw)) {
				matched++
			}
		}
		keywordMatch = math.Min(1, float64(matched)/float64(len(profile.ResearchKeywords)))
	}

	return 0.3 + categoryMatch*0.5 + keywordMatch*0.3 + 0.5*bonus
}

func scoreColdStartPath(bonus float64) float64 {
	return rand.Float64() + 0.3*bonus
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, i := range items {
		out[i] = true
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// meanVector averages a set of equal-dimension vectors and L2-normalizes the
// result, used to derive the embedding-path user profile vector.
func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			sum[i] += float64(v[i])
		}
	}
	mean := make([]float32, dim)
	for i, s := range sum {
		mean[i] = float32(s / float64(len(vectors)))
	}
	return l2Normalize(mean)
}

// RankForUser takes candidate papers and embeddings already batch-loaded by
// the caller, scores each candidate once (choosing the embedding path when a user
// profile vector can be derived, else the profile path, else cold-start),
// and returns them sorted by score descending.
func (s *Scorer) RankForUser(
	userID uuid.UUID,
	candidateIDs []uuid.UUID,
	papers map[uuid.UUID]*domain.Paper,
	embeddings map[uuid.UUID]*domain.PaperEmbedding,
	likedOrBookmarked []uuid.UUID,
	profile *domain.UserProfile,
	now time.Time,
) []ScoredPaper {
	var likedVectors [][]float32
	for _, id := range likedOrBookmarked {
		if e, ok := embeddings[id]; ok {
			likedVectors = append(likedVectors, e.Vector)
		}
	}
	userVec := meanVector(likedVectors)

	results := make([]ScoredPaper, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		paper, ok := papers[id]
		if !ok {
			continue
		}
		bonus := recencyBonus(paper.SubmittedAt, now)

		var score float64
		switch {
		case len(userVec) > 0 && embeddings[id] != nil:
			score = scoreEmbeddingPath(userVec, embeddings[id].Vector, bonus)
		case profile != nil && (len(profile.InterestedCategories) > 0 || len(profile.ResearchKeywords) > 0):
			score = scoreProfilePath(paper, profile, bonus)
		default:
			score = scoreColdStartPath(bonus)
		}
		results = append(results, ScoredPaper{PaperID: id, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}
