package enrichment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paper-app/backend/internal/domain"
	"github.com/paper-app/backend/pkg/provider"
)

// fakeTranslationRepository is an in-memory domain.TranslationRepository.
type fakeTranslationRepository struct {
	rows map[uuid.UUID]*domain.PaperTranslation
}

func newFakeTranslationRepository() *fakeTranslationRepository {
	return &fakeTranslationRepository{rows: map[uuid.UUID]*domain.PaperTranslation{}}
}

func (f *fakeTranslationRepository) Upsert(t *domain.PaperTranslation) error {
	f.rows[t.PaperID] = t
	return nil
}
func (f *fakeTranslationRepository) Get(paperID uuid.UUID) (*domain.PaperTranslation, error) {
	return f.rows[paperID], nil
}
func (f *fakeTranslationRepository) GetBulk(paperIDs []uuid.UUID) (map[uuid.UUID]*domain.PaperTranslation, error) {
	out := map[uuid.UUID]*domain.PaperTranslation{}
	for _, id := range paperIDs {
		if row, ok := f.rows[id]; ok {
			out[id] = row
		}
	}
	return out, nil
}
func (f *fakeTranslationRepository) MissingFor(paperIDs []uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, id := range paperIDs {
		if _, ok := f.rows[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// scriptedChatClient returns one canned response per call, in order.
type scriptedChatClient struct {
	responses []string
	i         int
}

func (c *scriptedChatClient) Name() string { return "scripted" }
func (c *scriptedChatClient) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	if c.i >= len(c.responses) {
		return provider.ChatResponse{}, nil
	}
	resp := c.responses[c.i]
	c.i++
	return provider.ChatResponse{Content: resp}, nil
}

func TestTranslationPipeline_WellFormedReplyIsUpserted(t *testing.T) {
	repo := newFakeTranslationRepository()
	client := &scriptedChatClient{responses: []string{"标题: 高效检索\n摘要: 我们研究了检索增强生成。"}}
	pipeline := NewTranslationPipeline(provider.NewPool([]provider.ChatClient{client}, nil), repo, "gpt-4o-mini")

	paper := &domain.Paper{ID: uuid.New(), Title: "Efficient Retrieval", Abstract: "We study RAG."}
	ok, failed, err := pipeline.Run(context.Background(), []*domain.Paper{paper})

	require.NoError(t, err)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, failed)

	row := repo.rows[paper.ID]
	require.NotNil(t, row)
	assert.Equal(t, "高效检索", row.TitleZH)
	assert.Equal(t, "我们研究了检索增强生成。", row.SummaryZH)
}

func TestTranslationPipeline_MissingLabelCountsAsFailureNotBlock(t *testing.T) {
	repo := newFakeTranslationRepository()
	client := &scriptedChatClient{responses: []string{
		"I'm sorry, I can't help with that.",
		"标题: 第二篇论文\n摘要: 第二篇论文的摘要内容。",
	}}
	pipeline := NewTranslationPipeline(provider.NewPool([]provider.ChatClient{client}, nil), repo, "gpt-4o-mini")

	bad := &domain.Paper{ID: uuid.New(), Title: "Bad Paper", Abstract: "No usable reply."}
	good := &domain.Paper{ID: uuid.New(), Title: "Good Paper", Abstract: "Usable reply."}

	ok, failed, err := pipeline.Run(context.Background(), []*domain.Paper{bad, good})
	require.NoError(t, err)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
	assert.NotNil(t, repo.rows[good.ID])
	assert.Nil(t, repo.rows[bad.ID])
}

func TestTranslationPipeline_NoChatClientFailsEachPaper(t *testing.T) {
	repo := newFakeTranslationRepository()
	pipeline := NewTranslationPipeline(provider.NewPool(nil, nil), repo, "gpt-4o-mini")

	paper := &domain.Paper{ID: uuid.New(), Title: "No Client", Abstract: "abstract"}
	ok, failed, err := pipeline.Run(context.Background(), []*domain.Paper{paper})
	require.NoError(t, err)
	assert.Equal(t, 0, ok)
	assert.Equal(t, 1, failed)
}
