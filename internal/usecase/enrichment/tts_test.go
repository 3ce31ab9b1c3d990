package enrichment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paper-app/backend/internal/domain"
	"github.com/paper-app/backend/pkg/provider"
)

// fakeTTSRepository is an in-memory domain.TTSRepository.
type fakeTTSRepository struct {
	rows map[string]*domain.PaperTTS
}

func newFakeTTSRepository() *fakeTTSRepository {
	return &fakeTTSRepository{rows: map[string]*domain.PaperTTS{}}
}

func ttsKey(paperID uuid.UUID, voiceModel, hash string) string {
	return paperID.String() + "|" + voiceModel + "|" + hash
}

func (f *fakeTTSRepository) Upsert(t *domain.PaperTTS) error {
	f.rows[ttsKey(t.PaperID, t.VoiceModel, t.ContentHash)] = t
	return nil
}

func (f *fakeTTSRepository) Find(paperID uuid.UUID, voiceModel, contentHash string) (*domain.PaperTTS, error) {
	return f.rows[ttsKey(paperID, voiceModel, contentHash)], nil
}

func (f *fakeTTSRepository) GetLatest(paperID uuid.UUID) (*domain.PaperTTS, error) {
	for _, row := range f.rows {
		if row.PaperID == paperID {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeTTSRepository) Delete(paperID uuid.UUID, voiceModel, contentHash string) error {
	delete(f.rows, ttsKey(paperID, voiceModel, contentHash))
	return nil
}

// fakeTTSEngine returns fixed audio bytes and counts calls.
type fakeTTSEngine struct{ calls int }

func (e *fakeTTSEngine) Synthesize(ctx context.Context, req provider.TTSRequest) (provider.TTSResponse, error) {
	e.calls++
	return provider.TTSResponse{Audio: []byte("fake-audio-bytes"), ContentType: "audio/mpeg"}, nil
}

// narratablePaper seeds a translation and interpretation for paper so it
// clears the TTS composition gate.
func narratablePaper(translations *fakeTranslationRepository, interpretations *fakeInterpretationRepository, titleZH string) *domain.Paper {
	paper := &domain.Paper{ID: uuid.New(), Title: "An English Title", Abstract: "An abstract."}
	_ = translations.Upsert(&domain.PaperTranslation{PaperID: paper.ID, TitleZH: titleZH, SummaryZH: "摘要内容"})
	_ = interpretations.Upsert(&domain.PaperInterpretation{PaperID: paper.ID, Content: "## 背景\n研究背景内容。\n## 方法\n方法内容。\n## 结果\n结果内容。"})
	return paper
}

func TestTTSPipeline_SkipsAlreadyNarratedPaper(t *testing.T) {
	dir := t.TempDir()
	repo := newFakeTTSRepository()
	translations := newFakeTranslationRepository()
	interpretations := newFakeInterpretationRepository()
	engine := &fakeTTSEngine{}
	pool := provider.NewPool(nil, engine)
	pipeline := NewTTSPipeline(pool, repo, translations, interpretations, dir, "zh-CN-XiaoxiaoNeural", 2)

	paper := narratablePaper(translations, interpretations, "一篇论文")

	ok, failed, err := pipeline.Run(context.Background(), []*domain.Paper{paper})
	require.NoError(t, err)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 1, engine.calls, "first run should synthesize once")

	ok, failed, err = pipeline.Run(context.Background(), []*domain.Paper{paper})
	require.NoError(t, err)
	assert.Equal(t, 0, ok, "dedup hit should not count as a fresh synthesis")
	assert.Equal(t, 0, failed)
	assert.Equal(t, 1, engine.calls, "second run must not re-synthesize unchanged content")
}

func TestTTSPipeline_ResynthesizesWhenContentChanges(t *testing.T) {
	dir := t.TempDir()
	repo := newFakeTTSRepository()
	translations := newFakeTranslationRepository()
	interpretations := newFakeInterpretationRepository()
	engine := &fakeTTSEngine{}
	pool := provider.NewPool(nil, engine)
	pipeline := NewTTSPipeline(pool, repo, translations, interpretations, dir, "zh-CN-XiaoxiaoNeural", 2)

	paper := narratablePaper(translations, interpretations, "一篇论文")
	_, _, err := pipeline.Run(context.Background(), []*domain.Paper{paper})
	require.NoError(t, err)

	require.NoError(t, interpretations.Upsert(&domain.PaperInterpretation{PaperID: paper.ID, Content: "## 背景\n全新的研究背景内容，和之前完全不同。\n## 方法\n全新方法内容。\n## 结果\n全新结果内容。"}))
	ok, _, err := pipeline.Run(context.Background(), []*domain.Paper{paper})
	require.NoError(t, err)
	assert.Equal(t, 1, ok, "changed interpretation content should trigger a fresh synthesis")
	assert.Equal(t, 2, engine.calls)
}

func TestTTSPipeline_ResynthesizesWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	repo := newFakeTTSRepository()
	translations := newFakeTranslationRepository()
	interpretations := newFakeInterpretationRepository()
	engine := &fakeTTSEngine{}
	pool := provider.NewPool(nil, engine)
	pipeline := NewTTSPipeline(pool, repo, translations, interpretations, dir, "zh-CN-XiaoxiaoNeural", 2)

	paper := narratablePaper(translations, interpretations, "一篇论文")
	_, _, err := pipeline.Run(context.Background(), []*domain.Paper{paper})
	require.NoError(t, err)

	row, err := repo.GetLatest(paper.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	require.NoError(t, os.Remove(filepath.Join(dir, row.FilePath)))

	ok, _, err := pipeline.Run(context.Background(), []*domain.Paper{paper})
	require.NoError(t, err)
	assert.Equal(t, 1, ok, "missing file on disk should force regeneration even with a matching content hash")
	assert.Equal(t, 2, engine.calls)
}

func TestTTSPipeline_NoEngineFails(t *testing.T) {
	dir := t.TempDir()
	repo := newFakeTTSRepository()
	translations := newFakeTranslationRepository()
	interpretations := newFakeInterpretationRepository()
	pool := provider.NewPool(nil, nil)
	pipeline := NewTTSPipeline(pool, repo, translations, interpretations, dir, "zh-CN-XiaoxiaoNeural", 1)

	paper := narratablePaper(translations, interpretations, "一篇论文")
	ok, failed, err := pipeline.Run(context.Background(), []*domain.Paper{paper})
	require.NoError(t, err)
	assert.Equal(t, 0, ok)
	assert.Equal(t, 1, failed)
}

func TestTTSPipeline_SkipsPaperWithoutInterpretation(t *testing.T) {
	dir := t.TempDir()
	repo := newFakeTTSRepository()
	translations := newFakeTranslationRepository()
	interpretations := newFakeInterpretationRepository()
	engine := &fakeTTSEngine{}
	pool := provider.NewPool(nil, engine)
	pipeline := NewTTSPipeline(pool, repo, translations, interpretations, dir, "zh-CN-XiaoxiaoNeural", 1)

	paper := &domain.Paper{ID: uuid.New(), Title: "No Interpretation Yet", Abstract: "abstract"}
	_ = translations.Upsert(&domain.PaperTranslation{PaperID: paper.ID, TitleZH: "还没有解读"})

	ok, failed, err := pipeline.Run(context.Background(), []*domain.Paper{paper})
	require.NoError(t, err)
	assert.Equal(t, 0, ok, "a paper without an interpretation has no acceptable composition, so it is skipped rather than failed")
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, engine.calls)
}

func TestNarration_FallsBackToEnglishTitleWithoutTranslation(t *testing.T) {
	paper := &domain.Paper{ID: uuid.New(), Title: "English Title"}
	interpretation := &domain.PaperInterpretation{Content: "## 背景\n内容。"}

	text, ok := narration(paper, nil, interpretation)
	require.True(t, ok)
	assert.Contains(t, text, "论文标题：English Title")
	assert.Contains(t, text, "英文标题：English Title")
}

func TestNarration_RequiresInterpretation(t *testing.T) {
	paper := &domain.Paper{ID: uuid.New(), Title: "English Title"}
	_, ok := narration(paper, &domain.PaperTranslation{TitleZH: "中文标题"}, nil)
	assert.False(t, ok)
}

func TestCleanMarkdownForTTS_StripsMarkdownSyntax(t *testing.T) {
	raw := "# 标题\n这是**加粗**和*斜体*文字，含有`代码`和[链接](http://example.com)。\n- 列表项一\n1. 数字项\n\n\n\n多余空行"
	cleaned := cleanMarkdownForTTS(raw)

	assert.NotContains(t, cleaned, "#")
	assert.NotContains(t, cleaned, "**")
	assert.NotContains(t, cleaned, "`")
	assert.NotContains(t, cleaned, "[链接]")
	assert.Contains(t, cleaned, "加粗")
	assert.Contains(t, cleaned, "斜体")
	assert.Contains(t, cleaned, "代码")
	assert.Contains(t, cleaned, "链接")
	assert.NotContains(t, cleaned, "\n\n\n")
}

func TestCleanMarkdownForTTS_UnpacksJSONWrappedBilingualContent(t *testing.T) {
	raw := "```json\n[{\"en\": \"first\", \"zh\": \"第一段\"}, {\"en\": \"second\", \"zh\": \"第二段\"}]\n```"
	cleaned := cleanMarkdownForTTS(raw)
	assert.Equal(t, "第一段\n\n第二段", cleaned)
}
