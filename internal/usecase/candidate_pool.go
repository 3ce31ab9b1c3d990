package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paper-app/backend/internal/domain"
)

// PaperPredicate decides whether a paper belongs in a filtered candidate pool.
type PaperPredicate func(p *domain.Paper) bool

// aiMLCVCategories narrows Computer Science down to the subfields a
// general-audience "AI/ML/CV" feed cares about. There is no arXiv group for
// this slice, so it can't be derived from domain.ArXivGroups the way the
// group-level filters below are; each entry is still checked against
// domain.ArXivCategories so a typo'd or retired category ID can't silently
// admit everything.
var aiMLCVCategories = buildAIMLCVCategories()

func buildAIMLCVCategories() map[string]bool {
	ids := []string{"cs.AI", "cs.LG", "cs.CV", "cs.CL", "cs.RO", "cs.NE", "stat.ML"}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if domain.GetCategoryInfo(id).Group == "Other" {
			continue // not a real arXiv category; drop rather than admit blindly
		}
		set[id] = true
	}
	return set
}

// PredicateFor returns the admission predicate for a filter type. Group-level
// filters (CS, Math, Physics) look a paper's categories up in
// domain.ArXivCategories and match on CategoryInfo.Group, the same grouping
// domain.ArXivGroups uses for the OAI-PMH set prefixes. A category missing
// from that table is looked up by its archive prefix (the part before the
// first "."), so "physics.*" and "astro-ph.*"/"cond-mat.*"/"hep-*" all fall
// under the single Physics group.
func PredicateFor(filterType domain.FilterType) PaperPredicate {
	switch filterType {
	case domain.FilterCS:
		return func(p *domain.Paper) bool { return hasCategoryGroup(p, "Computer Science") }
	case domain.FilterAIMLCV:
		return func(p *domain.Paper) bool {
			for _, c := range p.Categories {
				if aiMLCVCategories[c] {
					return true
				}
			}
			return false
		}
	case domain.FilterMath:
		return func(p *domain.Paper) bool { return hasCategoryGroup(p, "Mathematics") }
	case domain.FilterPhysics:
		return func(p *domain.Paper) bool { return hasCategoryGroup(p, "Physics") }
	case domain.FilterAll:
		return func(p *domain.Paper) bool { return true }
	default:
		return func(p *domain.Paper) bool { return true }
	}
}

func hasCategoryGroup(p *domain.Paper, group string) bool {
	for _, c := range p.Categories {
		info := domain.GetCategoryInfo(c)
		if info.Group == "Other" {
			if i := strings.Index(c, "."); i > 0 {
				info = domain.GetCategoryInfo(c[:i])
			}
		}
		if info.Group == group {
			return true
		}
	}
	return false
}

// CandidatePoolUsecase builds per-day, per-filter candidate pools (C3).
type CandidatePoolUsecase struct {
	papers domain.PaperRepository
	pools  domain.CandidatePoolRepository
}

func NewCandidatePoolUsecase(papers domain.PaperRepository, pools domain.CandidatePoolRepository) *CandidatePoolUsecase {
	return &CandidatePoolUsecase{papers: papers, pools: pools}
}

// BuildPool selects papers submitted on targetDate matching filterType's
// predicate, in arrival order, and replaces the pool row for that
// (batch_id, filter_type) pair atomically.
func (u *CandidatePoolUsecase) BuildPool(targetDate time.Time, filterType domain.FilterType) (int, error) {
	papers, err := u.papers.ListByDate("arxiv", targetDate)
	if err != nil {
		return 0, fmt.Errorf("list papers by date: %w", err)
	}

	predicate := PredicateFor(filterType)
	var ids []uuid.UUID
	for _, p := range papers {
		if predicate(p) {
			ids = append(ids, p.ID)
		}
	}

	batchID := domain.PoolDateBatchID(targetDate)
	if err := u.pools.ReplaceAll(batchID, targetDate, filterType, ids); err != nil {
		return 0, fmt.Errorf("replace candidate pool: %w", err)
	}
	return len(ids), nil
}

// BuildAllPools builds the full set of filter-type pools for a given day.
func (u *CandidatePoolUsecase) BuildAllPools(targetDate time.Time) (map[domain.FilterType]int, error) {
	filterTypes := []domain.FilterType{domain.FilterCS, domain.FilterAIMLCV, domain.FilterMath, domain.FilterPhysics, domain.FilterAll}
	counts := make(map[domain.FilterType]int, len(filterTypes))
	for _, ft := range filterTypes {
		n, err := u.BuildPool(targetDate, ft)
		if err != nil {
			return counts, err
		}
		counts[ft] = n
	}
	return counts, nil
}

// Read returns the candidate pool ids for a date/filter in insertion order.
func (u *CandidatePoolUsecase) Read(targetDate time.Time, filterType domain.FilterType) ([]uuid.UUID, error) {
	batchID := domain.PoolDateBatchID(targetDate)
	return u.pools.Read(batchID, filterType)
}
