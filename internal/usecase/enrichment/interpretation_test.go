package enrichment

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paper-app/backend/internal/domain"
	"github.com/paper-app/backend/pkg/provider"
)

// fakeInterpretationRepository is an in-memory domain.InterpretationRepository.
type fakeInterpretationRepository struct {
	rows map[uuid.UUID]*domain.PaperInterpretation
}

func newFakeInterpretationRepository() *fakeInterpretationRepository {
	return &fakeInterpretationRepository{rows: map[uuid.UUID]*domain.PaperInterpretation{}}
}

func (f *fakeInterpretationRepository) Upsert(i *domain.PaperInterpretation) error {
	f.rows[i.PaperID] = i
	return nil
}
func (f *fakeInterpretationRepository) Get(paperID uuid.UUID) (*domain.PaperInterpretation, error) {
	return f.rows[paperID], nil
}
func (f *fakeInterpretationRepository) GetBulk(paperIDs []uuid.UUID) (map[uuid.UUID]*domain.PaperInterpretation, error) {
	out := map[uuid.UUID]*domain.PaperInterpretation{}
	for _, id := range paperIDs {
		if row, ok := f.rows[id]; ok {
			out[id] = row
		}
	}
	return out, nil
}
func (f *fakeInterpretationRepository) MissingFor(paperIDs []uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, id := range paperIDs {
		if _, ok := f.rows[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func wellFormedInterpretation() string {
	section := func(label, filler string) string {
		return "## " + label + "\n" + strings.Repeat(filler, 6) + "\n"
	}
	return section("背景", "本研究的动机来源于现有方法在大规模场景下的不足。") +
		section("方法与贡献", "我们提出了一种新的检索增强生成框架，显著提升了准确率。") +
		section("结果与意义", "实验结果表明该方法在多个基准上取得了最优表现，具有重要意义。")
}

func TestAcceptInterpretation(t *testing.T) {
	t.Run("accepts a well-formed three-section reply", func(t *testing.T) {
		assert.True(t, acceptInterpretation(wellFormedInterpretation()))
	})

	t.Run("rejects content shorter than the minimum length", func(t *testing.T) {
		assert.False(t, acceptInterpretation("## 背景\n太短了。\n## 方法\n也很短。\n## 结果\n还是短。"))
	})

	t.Run("rejects content with a truncation marker", func(t *testing.T) {
		truncated := wellFormedInterpretation() + "..."
		assert.False(t, acceptInterpretation(truncated))
	})

	t.Run("rejects content with fewer than three sections", func(t *testing.T) {
		twoSections := strings.Repeat("字", 250)
		assert.False(t, acceptInterpretation("## 背景\n"+twoSections))
	})

	t.Run("rejects content with fewer than two keyword markers", func(t *testing.T) {
		noKeywords := "## 一\n" + strings.Repeat("无关内容填充文字，", 30) + "\n## 二\n" + strings.Repeat("更多无关填充", 10) + "\n## 三\n填充"
		assert.False(t, acceptInterpretation(noKeywords))
	})
}

func TestInterpretationPipeline_AcceptsOnFirstTry(t *testing.T) {
	repo := newFakeInterpretationRepository()
	client := &scriptedChatClient{responses: []string{wellFormedInterpretation()}}
	pipeline := NewInterpretationPipeline(provider.NewPool([]provider.ChatClient{client}, nil), repo, "gpt-4o-mini")

	paper := &domain.Paper{ID: uuid.New(), Title: "A Paper", Abstract: "An abstract."}
	ok, failed, err := pipeline.Run(context.Background(), []*domain.Paper{paper})

	require.NoError(t, err)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, failed)
	assert.NotNil(t, repo.rows[paper.ID])
}

func TestInterpretationPipeline_NoChatClientFails(t *testing.T) {
	repo := newFakeInterpretationRepository()
	pipeline := NewInterpretationPipeline(provider.NewPool(nil, nil), repo, "gpt-4o-mini")

	paper := &domain.Paper{ID: uuid.New(), Title: "A Paper", Abstract: "An abstract."}
	ok, failed, err := pipeline.Run(context.Background(), []*domain.Paper{paper})

	require.NoError(t, err)
	assert.Equal(t, 0, ok)
	assert.Equal(t, 1, failed)
}
