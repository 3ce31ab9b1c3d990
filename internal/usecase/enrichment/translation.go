// Package enrichment implements the Enrichment Pipeline (C6): translation,
// interpretation, and text-to-speech sub-pipelines, each committing its own
// batch of work independently.
package enrichment

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/paper-app/backend/internal/domain"
	"github.com/paper-app/backend/pkg/provider"
)

var (
	titleLabelRe   = regexp.MustCompile(`(?is)标题[:：]\s*(.+?)(?:\n|$)`)
	summaryLabelRe = regexp.MustCompile(`(?is)摘要[:：]\s*(.+)`)
)

// TranslationPipeline produces a Chinese title+summary for each paper via a
// single LLM prompt per paper, with strict label parsing: an empty parsed
// field is treated as a failure for that paper and does not block the rest
// of the batch.
type TranslationPipeline struct {
	pool         *provider.Pool
	translations domain.TranslationRepository
	model        string
}

func NewTranslationPipeline(pool *provider.Pool, translations domain.TranslationRepository, model string) *TranslationPipeline {
	return &TranslationPipeline{pool: pool, translations: translations, model: model}
}

// Run translates every paper, committing each successful result immediately.
// Returns the count of papers translated and the count that failed parsing
// or upstream generation.
func (p *TranslationPipeline) Run(ctx context.Context, papers []*domain.Paper) (ok, failed int, err error) {
	for _, paper := range papers {
		if cerr := ctx.Err(); cerr != nil {
			return ok, failed, cerr
		}
		titleZH, summaryZH, terr := p.translateOne(ctx, paper)
		if terr != nil || titleZH == "" || summaryZH == "" {
			failed++
			continue
		}
		t := &domain.PaperTranslation{PaperID: paper.ID, TitleZH: titleZH, SummaryZH: summaryZH, ModelName: p.model}
		if err := p.translations.Upsert(t); err != nil {
			return ok, failed, fmt.Errorf("persist translation for %s: %w", paper.ID, err)
		}
		ok++
	}
	return ok, failed, nil
}

func (p *TranslationPipeline) translateOne(ctx context.Context, paper *domain.Paper) (string, string, error) {
	client := p.pool.Next()
	if client == nil {
		return "", "", fmt.Errorf("no chat client available")
	}

	prompt := fmt.Sprintf(
		"Translate the following paper title and abstract into Chinese. Reply with exactly two lines, each starting with the given label:\n标题: <translated title>\n摘要: <translated abstract>\n\nTitle: %s\nAbstract: %s",
		paper.Title, paper.Abstract,
	)
	resp, err := client.Chat(ctx, provider.ChatRequest{
		Model:       p.model,
		Messages:    []provider.Message{{Role: "user", Content: prompt}},
		Temperature: 0.3,
	})
	if err != nil {
		return "", "", err
	}

	titleZH := strings.TrimSpace(firstMatch(titleLabelRe, resp.Content))
	summaryZH := strings.TrimSpace(firstMatch(summaryLabelRe, resp.Content))
	return titleZH, summaryZH, nil
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
