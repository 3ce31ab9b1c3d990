package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paper-app/backend/internal/domain"
)

const (
	SourceArXiv     = "arxiv"
	SubToday        = "today"
	SubWeek         = "week"
	arxivLagDays    = 3 // target_date = today_NY - 3 days, matching ingestion/publication lag
	coldStartWindow = 7 * 24 * time.Hour
)

// FeedItem is one paper surfaced in a feed response, in ranking order.
type FeedItem struct {
	Paper *domain.Paper `json:"paper"`
	Score float64       `json:"score"`
}

// FeedPage is one page of a feed, with an opaque cursor for the next page.
type FeedPage struct {
	Items      []FeedItem `json:"items"`
	NextCursor int        `json:"next_cursor,omitempty"`
	HasMore    bool       `json:"has_more"`
	Total      int        `json:"total"`
}

// FeedAssembler implements the Feed Assembler (C7).
type FeedAssembler struct {
	rankings      *RankingUsecase
	pools         *CandidatePoolUsecase
	papers        domain.PaperRepository
	feedback      domain.FeedbackRepository
	settings      domain.PoolSettingsRepository
	translations  domain.TranslationRepository
	interpretations domain.InterpretationRepository
	cache         *feedCacheAdapter
	// cloudMode gates the hot/latest cold-start fallback, which depends on a
	// shared, cross-user feedback signal that only a cloud deployment has.
	cloudMode bool
}

// feedCacheAdapter narrows the cache layer to what the assembler needs,
// avoiding an import-cycle between usecase and cache.
type feedCacheAdapter struct {
	getToday func(userID uuid.UUID, out interface{}) bool
	setToday func(userID uuid.UUID, value interface{})
	getWeek  func(userID uuid.UUID, out interface{}) bool
	setWeek  func(userID uuid.UUID, value interface{})
}

func NewFeedAssembler(
	rankings *RankingUsecase,
	pools *CandidatePoolUsecase,
	papers domain.PaperRepository,
	feedback domain.FeedbackRepository,
	settings domain.PoolSettingsRepository,
	translations domain.TranslationRepository,
	interpretations domain.InterpretationRepository,
	cloudMode bool,
) *FeedAssembler {
	return &FeedAssembler{
		rankings: rankings, pools: pools, papers: papers, feedback: feedback, settings: settings,
		translations: translations, interpretations: interpretations, cloudMode: cloudMode,
	}
}

// WithCache wires best-effort caching for the today/week arxiv sources.
func (a *FeedAssembler) WithCache(
	getToday func(uuid.UUID, interface{}) bool, setToday func(uuid.UUID, interface{}),
	getWeek func(uuid.UUID, interface{}) bool, setWeek func(uuid.UUID, interface{}),
) {
	a.cache = &feedCacheAdapter{getToday: getToday, setToday: setToday, getWeek: getWeek, setWeek: setWeek}
}

func todayNY() time.Time {
	loc, err := time.LoadLocation(newYorkTZ)
	if err != nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// GetFeed resolves source/sub into one or more source keys, loads (or
// on-demand generates) rankings, applies real-time filters, paginates, and
// hydrates with the full paper records.
func (a *FeedAssembler) GetFeed(userID uuid.UUID, source, sub string, cursor, limit int) (*FeedPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var orderedIDs []uuid.UUID
	var scoreByID map[uuid.UUID]float64
	var err error

	switch {
	case source == "" || source == SourceArXiv:
		if sub == SubWeek {
			orderedIDs, scoreByID, err = a.weekArxivFeed(userID)
		} else {
			orderedIDs, scoreByID, err = a.todayArxivFeed(userID)
		}
	default:
		orderedIDs, scoreByID, err = a.staticFeed(userID, domain.NormalizeConferenceKey(source))
	}
	if err != nil {
		return nil, err
	}

	orderedIDs, err = a.applyRealtimeFilters(userID, source, sub, orderedIDs)
	if err != nil {
		return nil, err
	}

	isStatic := source != "" && source != SourceArXiv
	if isStatic {
		orderedIDs, err = a.applyFilterNoContent(userID, source, orderedIDs)
		if err != nil {
			return nil, err
		}
	}

	if len(orderedIDs) == 0 && a.cloudMode {
		orderedIDs, scoreByID, err = a.coldStartFallback(userID, limit*3)
		if err != nil {
			return nil, err
		}
	}
	if len(orderedIDs) == 0 {
		orderedIDs, scoreByID, err = a.recencyFallback(limit * 3)
		if err != nil {
			return nil, err
		}
	}

	end := cursor + limit
	hasMore := end < len(orderedIDs)
	if end > len(orderedIDs) {
		end = len(orderedIDs)
	}
	if cursor > len(orderedIDs) {
		cursor = len(orderedIDs)
	}
	pageIDs := orderedIDs[cursor:end]

	papers, err := a.papers.GetByIDs(pageIDs)
	if err != nil {
		return nil, fmt.Errorf("hydrate feed page: %w", err)
	}
	paperByID := make(map[uuid.UUID]*domain.Paper, len(papers))
	for _, p := range papers {
		paperByID[p.ID] = p
	}

	items := make([]FeedItem, 0, len(pageIDs))
	for _, id := range pageIDs {
		p, ok := paperByID[id]
		if !ok {
			continue
		}
		items = append(items, FeedItem{Paper: p, Score: scoreByID[id]})
	}

	nextCursor := 0
	if hasMore {
		nextCursor = end
	}
	return &FeedPage{Items: items, NextCursor: nextCursor, HasMore: hasMore, Total: len(orderedIDs)}, nil
}

// cachedFeed is the best-effort Redis payload for a resolved feed order.
type cachedFeed struct {
	IDs    []uuid.UUID           `json:"ids"`
	Scores map[uuid.UUID]float64 `json:"scores"`
}

func (a *FeedAssembler) todayArxivFeed(userID uuid.UUID) ([]uuid.UUID, map[uuid.UUID]float64, error) {
	if a.cache != nil {
		var cached cachedFeed
		if a.cache.getToday(userID, &cached) {
			return cached.IDs, cached.Scores, nil
		}
	}

	targetDate := todayNY().AddDate(0, 0, -arxivLagDays)
	sourceKey := domain.ArxivDaySourceKey(targetDate)
	ids, scores, err := a.loadOrGenerate(userID, sourceKey, targetDate)
	if err != nil {
		return nil, nil, err
	}
	if a.cache != nil {
		a.cache.setToday(userID, cachedFeed{IDs: ids, Scores: scores})
	}
	return ids, scores, nil
}

func (a *FeedAssembler) weekArxivFeed(userID uuid.UUID) ([]uuid.UUID, map[uuid.UUID]float64, error) {
	if a.cache != nil {
		var cached cachedFeed
		if a.cache.getWeek(userID, &cached) {
			return cached.IDs, cached.Scores, nil
		}
	}

	seen := make(map[uuid.UUID]bool)
	var ordered []uuid.UUID
	scores := make(map[uuid.UUID]float64)

	base := todayNY().AddDate(0, 0, -arxivLagDays)
	for i := 0; i < 6; i++ {
		day := base.AddDate(0, 0, -i)
		sourceKey := domain.ArxivDaySourceKey(day)
		ids, sc, err := a.loadOrGenerate(userID, sourceKey, day)
		if err != nil {
			return nil, nil, err
		}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			ordered = append(ordered, id)
			scores[id] = sc[id]
		}
	}

	if a.cache != nil {
		a.cache.setWeek(userID, cachedFeed{IDs: ordered, Scores: scores})
	}
	return ordered, scores, nil
}

func (a *FeedAssembler) staticFeed(userID uuid.UUID, sourceKey string) ([]uuid.UUID, map[uuid.UUID]float64, error) {
	ranking, err := a.rankings.Read(userID, sourceKey)
	if err != nil {
		return nil, nil, err
	}
	if ranking == nil {
		return nil, nil, nil
	}
	return ranking.PaperIDs, scoreMap(ranking), nil
}

func (a *FeedAssembler) loadOrGenerate(userID uuid.UUID, sourceKey string, poolDate time.Time) ([]uuid.UUID, map[uuid.UUID]float64, error) {
	ranking, err := a.rankings.Read(userID, sourceKey)
	if err != nil {
		return nil, nil, err
	}
	if ranking != nil {
		return ranking.PaperIDs, scoreMap(ranking), nil
	}

	candidates, err := a.pools.Read(poolDate, domain.FilterAll)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}
	ranking, err = a.rankings.UpsertRanking(userID, sourceKey, poolDate, candidates, true, defaultRankingLimit)
	if err != nil {
		return nil, nil, err
	}
	return ranking.PaperIDs, scoreMap(ranking), nil
}

func scoreMap(r *domain.UserPaperRanking) map[uuid.UUID]float64 {
	out := make(map[uuid.UUID]float64, len(r.PaperIDs))
	for i, id := range r.PaperIDs {
		out[id] = r.Scores[i]
	}
	return out
}

// applyRealtimeFilters drops current-day dislikes for dynamic (today/week)
// sources; static sources already had all historical feedback excluded at
// ranking-construction time, so only all-time dislikes need re-checking
// here (in case a dislike landed after the ranking was built).
func (a *FeedAssembler) applyRealtimeFilters(userID uuid.UUID, source, sub string, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return ids, nil
	}

	isDynamic := source == "" || source == SourceArXiv
	var disliked map[uuid.UUID]bool
	var err error
	if isDynamic {
		dayStart := todayNY().Truncate(24 * time.Hour)
		disliked, err = a.feedback.DislikedToday(userID, dayStart)
	} else {
		disliked, err = a.feedback.DislikedEver(userID)
	}
	if err != nil {
		return nil, err
	}
	if len(disliked) == 0 {
		return ids, nil
	}

	filtered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !disliked[id] {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

// applyFilterNoContent drops papers with neither a translation nor an
// interpretation, when the user's pool settings for sourceKey request it.
func (a *FeedAssembler) applyFilterNoContent(userID uuid.UUID, sourceKey string, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 || a.settings == nil {
		return ids, nil
	}
	settings, err := a.settings.Get(userID, domain.NormalizeConferenceKey(sourceKey))
	if err != nil {
		return nil, err
	}
	if settings == nil || !settings.FilterNoContent {
		return ids, nil
	}

	translated, err := a.translations.GetBulk(ids)
	if err != nil {
		return nil, err
	}
	interpreted, err := a.interpretations.GetBulk(ids)
	if err != nil {
		return nil, err
	}

	filtered := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if translated[id] != nil || interpreted[id] != nil {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

// coldStartFallback surfaces the top-N papers from the last 7 days weighted
// by like(1)/bookmark(2) feedback, filling any remaining slots with the
// most recent submissions not already included.
func (a *FeedAssembler) coldStartFallback(userID uuid.UUID, limit int) ([]uuid.UUID, map[uuid.UUID]float64, error) {
	since := time.Now().Add(-coldStartWindow)
	weighted, err := a.feedback.TopWeighted(since, limit)
	if err != nil {
		return nil, nil, err
	}

	scores := make(map[uuid.UUID]float64, limit)
	seen := make(map[uuid.UUID]bool, len(weighted))
	for i, id := range weighted {
		seen[id] = true
		scores[id] = float64(len(weighted)-i) / float64(len(weighted)+1)
	}

	if len(weighted) < limit {
		recent, err := a.papers.RecentSince(context.Background(), since, limit*2)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range recent {
			if len(weighted) >= limit {
				break
			}
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			weighted = append(weighted, p.ID)
			scores[p.ID] = 0
		}
	}

	_ = userID // cold-start is not personalized beyond the weighted/recent pool
	return weighted, scores, nil
}

// recencyFallback is the plain, ungated fallback: most recent submissions,
// no personalization and no cross-user signal. Used when cold start is
// disabled (community edition) or yielded nothing.
func (a *FeedAssembler) recencyFallback(limit int) ([]uuid.UUID, map[uuid.UUID]float64, error) {
	recent, err := a.papers.RecentSince(context.Background(), time.Time{}, limit)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uuid.UUID, len(recent))
	scores := make(map[uuid.UUID]float64, len(recent))
	for i, p := range recent {
		ids[i] = p.ID
		scores[p.ID] = 0
	}
	return ids, scores, nil
}
