package usecase

import (
	"strings"

	"github.com/google/uuid"
	"github.com/paper-app/backend/internal/domain"
)

// PaperUsecase provides paper lookup and category-taxonomy helpers shared by
// the Feed Assembler and the admin category endpoints. PostgreSQL is the
// single source of truth (no search index — full-text search is not part of
// this system).
type PaperUsecase struct {
	paperRepo domain.PaperRepository
}

func NewPaperUsecase(paperRepo domain.PaperRepository) *PaperUsecase {
	return &PaperUsecase{paperRepo: paperRepo}
}

// GetPaper retrieves a paper by UUID.
func (u *PaperUsecase) GetPaper(id uuid.UUID) (*domain.Paper, error) {
	return u.paperRepo.GetByID(id)
}

// GetPaperByExternalID retrieves a paper by its external id (arxiv id or
// conference-import id).
func (u *PaperUsecase) GetPaperByExternalID(externalID string) (*domain.Paper, error) {
	return u.paperRepo.GetByExternalID(externalID)
}

// ResolvePaperID accepts either a UUID string or an external id and returns
// the internal paper id.
func (u *PaperUsecase) ResolvePaperID(idStr string) (uuid.UUID, error) {
	if pgID, err := uuid.Parse(idStr); err == nil {
		if paper, err := u.paperRepo.GetByID(pgID); err == nil && paper != nil {
			return paper.ID, nil
		}
	}
	paper, err := u.paperRepo.GetByExternalID(idStr)
	if err != nil {
		return uuid.Nil, err
	}
	if paper == nil {
		return uuid.Nil, ErrPaperNotFound
	}
	return paper.ID, nil
}

// GetCategories returns category info with paper counts, using the static
// arXiv taxonomy for human-readable names and groups.
func (u *PaperUsecase) GetCategories() ([]domain.CategoryInfo, error) {
	counts, err := u.paperRepo.CountByCategory()
	if err != nil {
		return nil, err
	}

	categories := make([]domain.CategoryInfo, 0, len(counts))
	for _, c := range counts {
		if c.Count < 10 {
			continue
		}
		info := domain.GetCategoryInfo(c.Category)
		info.Count = c.Count
		categories = append(categories, info)
	}

	for i := 0; i < len(categories); i++ {
		for j := i + 1; j < len(categories); j++ {
			if categories[j].Count > categories[i].Count {
				categories[i], categories[j] = categories[j], categories[i]
			}
		}
	}
	return categories, nil
}

// GetGroupedCategories returns categories organized by taxonomy group.
func (u *PaperUsecase) GetGroupedCategories() (map[string][]domain.CategoryInfo, error) {
	categories, err := u.GetCategories()
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]domain.CategoryInfo)
	for _, cat := range categories {
		group := cat.Group
		if group == "" {
			group = "Other"
		}
		grouped[group] = append(grouped[group], cat)
	}
	return grouped, nil
}

// ParseCategories extracts category IDs from a comma-separated string.
func ParseCategories(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var categories []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			categories = append(categories, p)
		}
	}
	return categories
}
