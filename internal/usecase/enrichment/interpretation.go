package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paper-app/backend/internal/domain"
	"github.com/paper-app/backend/internal/retry"
	"github.com/paper-app/backend/pkg/provider"
)

const (
	interpretationMinChars = 200
	interpretationMaxRetries = 3
)

var interpretationKeywordMarkers = []string{"背景", "方法", "贡献", "结果", "意义", "创新", "结论"}

// InterpretationPipeline produces a three-section (##-delimited) Chinese
// interpretation per paper, 800-1200 characters, accepted only if it carries
// at least two of the expected section markers, meets the minimum length,
// and shows no truncation marker. Retries up to interpretationMaxRetries
// times on rejection.
type InterpretationPipeline struct {
	pool            *provider.Pool
	interpretations domain.InterpretationRepository
	model           string
}

func NewInterpretationPipeline(pool *provider.Pool, interpretations domain.InterpretationRepository, model string) *InterpretationPipeline {
	return &InterpretationPipeline{pool: pool, interpretations: interpretations, model: model}
}

func (p *InterpretationPipeline) Run(ctx context.Context, papers []*domain.Paper) (ok, failed int, err error) {
	for _, paper := range papers {
		if cerr := ctx.Err(); cerr != nil {
			return ok, failed, cerr
		}
		content, generr := p.interpretOneWithRetries(ctx, paper)
		if generr != nil {
			failed++
			continue
		}
		interp := &domain.PaperInterpretation{PaperID: paper.ID, Content: content, Language: "zh", ModelName: p.model}
		if err := p.interpretations.Upsert(interp); err != nil {
			return ok, failed, fmt.Errorf("persist interpretation for %s: %w", paper.ID, err)
		}
		ok++
	}
	return ok, failed, nil
}

func (p *InterpretationPipeline) interpretOneWithRetries(ctx context.Context, paper *domain.Paper) (string, error) {
	var content string
	err := retry.Do(ctx, interpretationMaxRetries+1, time.Second, 10*time.Second, func(error) bool { return true }, func(ctx context.Context) error {
		c, generr := p.interpretOnce(ctx, paper)
		if generr != nil {
			return generr
		}
		if !acceptInterpretation(c) {
			return fmt.Errorf("interpretation rejected by quality gate")
		}
		content = c
		return nil
	})
	return content, err
}

func (p *InterpretationPipeline) interpretOnce(ctx context.Context, paper *domain.Paper) (string, error) {
	client := p.pool.Next()
	if client == nil {
		return "", fmt.Errorf("no chat client available")
	}
	prompt := fmt.Sprintf(
		"Write a Chinese-language interpretation of this paper in exactly three sections, each starting with '## '. "+
			"Cover background/motivation, method/contribution, and results/significance. Total length 800-1200 characters. "+
			"Do not truncate.\n\nTitle: %s\nAbstract: %s",
		paper.Title, paper.Abstract,
	)
	resp, err := client.Chat(ctx, provider.ChatRequest{
		Model:       p.model,
		Messages:    []provider.Message{{Role: "user", Content: prompt}},
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

func acceptInterpretation(content string) bool {
	if len([]rune(content)) < interpretationMinChars {
		return false
	}
	if strings.Contains(content, "...") || strings.HasSuffix(strings.TrimSpace(content), "…") {
		return false
	}
	sections := strings.Count(content, "##")
	if sections < 3 {
		return false
	}
	markers := 0
	for _, kw := range interpretationKeywordMarkers {
		if strings.Contains(content, kw) {
			markers++
		}
	}
	return markers >= 2
}
