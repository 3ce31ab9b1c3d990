package enrichment

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/paper-app/backend/internal/domain"
	"github.com/paper-app/backend/pkg/provider"
)

// TTSPipeline synthesizes narration audio per (paper_id, voice_model),
// transcodes to Opus, and persists a PaperTTS row keyed by the narration's
// content hash so unchanged papers are never re-synthesized.
type TTSPipeline struct {
	pool            *provider.Pool
	tts             domain.TTSRepository
	translations    domain.TranslationRepository
	interpretations domain.InterpretationRepository
	directory       string
	voiceModel      string
	sem             *semaphore.Weighted
}

func NewTTSPipeline(pool *provider.Pool, tts domain.TTSRepository, translations domain.TranslationRepository, interpretations domain.InterpretationRepository, directory, voiceModel string, concurrency int) *TTSPipeline {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &TTSPipeline{
		pool:            pool,
		tts:             tts,
		translations:    translations,
		interpretations: interpretations,
		directory:       directory,
		voiceModel:      voiceModel,
		sem:             semaphore.NewWeighted(int64(concurrency)),
	}
}

// Run synthesizes narration for every paper concurrently, bounded by the
// pipeline's semaphore. A paper already narrated under the current content
// hash is skipped. Returns counts of synthesized and failed papers.
func (p *TTSPipeline) Run(ctx context.Context, papers []*domain.Paper) (ok, failed int, err error) {
	type result struct {
		done bool
		fail bool
	}
	results := make(chan result, len(papers))

	for _, paper := range papers {
		paper := paper
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return ok, failed, err
		}
		go func() {
			defer p.sem.Release(1)
			generated, rerr := p.synthesizeOne(ctx, paper)
			results <- result{done: generated && rerr == nil, fail: rerr != nil}
		}()
	}

	for range papers {
		r := <-results
		switch {
		case r.done:
			ok++
		case r.fail:
			failed++
		}
	}
	return ok, failed, nil
}

// narration builds the Chinese narration script from a paper's translated
// title and AI interpretation, the way the edge-tts content composer does:
// "论文标题：<zh title>\n\n英文标题：<en title>\n\nAI解读：<clean interpretation>".
// The translated title falls back to the English title when missing. Returns
// ok=false if no interpretation exists yet, since TTS has nothing to narrate.
func narration(paper *domain.Paper, translation *domain.PaperTranslation, interpretation *domain.PaperInterpretation) (string, bool) {
	if interpretation == nil || interpretation.Content == "" {
		return "", false
	}
	titleZH := paper.Title
	if translation != nil && translation.TitleZH != "" {
		titleZH = translation.TitleZH
	}
	content := fmt.Sprintf("论文标题：%s\n\n英文标题：%s\n\nAI解读：%s", titleZH, paper.Title, cleanMarkdownForTTS(interpretation.Content))
	return content, true
}

var (
	jsonBlockRE  = regexp.MustCompile("(?s)```json\\s*(\\[.*?\\])\\s*```")
	codeBlockRE  = regexp.MustCompile("(?s)```[^`]*```")
	inlineCodeRE = regexp.MustCompile("`([^`]+)`")
	boldRE       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRE     = regexp.MustCompile(`\*([^*]+)\*`)
	headingRE    = regexp.MustCompile(`#{1,6}\s*`)
	linkRE       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	bulletRE     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedRE   = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	blankLinesRE = regexp.MustCompile(`\n{3,}`)
)

// cleanMarkdownForTTS strips Markdown syntax and unpacks JSON-wrapped
// bilingual content (`[{"zh": "...", ...}, ...]`) into plain narratable text.
func cleanMarkdownForTTS(text string) string {
	if text == "" {
		return text
	}

	if strings.HasPrefix(strings.TrimSpace(text), "```json") {
		if m := jsonBlockRE.FindStringSubmatch(text); m != nil {
			var items []map[string]interface{}
			if err := json.Unmarshal([]byte(m[1]), &items); err == nil {
				parts := make([]string, 0, len(items))
				for _, item := range items {
					if zh, ok := item["zh"].(string); ok {
						parts = append(parts, zh)
					}
				}
				if len(parts) > 0 {
					text = strings.Join(parts, "\n\n")
				}
			}
		}
	}

	text = codeBlockRE.ReplaceAllString(text, "")
	text = inlineCodeRE.ReplaceAllString(text, "$1")
	text = boldRE.ReplaceAllString(text, "$1")
	text = italicRE.ReplaceAllString(text, "$1")
	text = headingRE.ReplaceAllString(text, "")
	text = linkRE.ReplaceAllString(text, "$1")
	text = bulletRE.ReplaceAllString(text, "")
	text = numberedRE.ReplaceAllString(text, "")
	text = blankLinesRE.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func contentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// synthesizeOne returns (true, nil) if audio was freshly generated,
// (false, nil) if skipped as a no-op dedup hit (audio already present) or a
// paper lacking an acceptable composition, and (false, err) on failure.
func (p *TTSPipeline) synthesizeOne(ctx context.Context, paper *domain.Paper) (bool, error) {
	translation, err := p.translations.Get(paper.ID)
	if err != nil {
		return false, fmt.Errorf("load translation for %s: %w", paper.ID, err)
	}
	interpretation, err := p.interpretations.Get(paper.ID)
	if err != nil {
		return false, fmt.Errorf("load interpretation for %s: %w", paper.ID, err)
	}
	text, ok := narration(paper, translation, interpretation)
	if !ok {
		return false, nil
	}
	hash := contentHash(text)

	existing, err := p.tts.Find(paper.ID, p.voiceModel, hash)
	if err != nil {
		return false, fmt.Errorf("check existing tts for %s: %w", paper.ID, err)
	}
	if existing != nil {
		if _, statErr := os.Stat(filepath.Join(p.directory, existing.FilePath)); statErr == nil {
			return false, nil
		}
	}

	jitter := time.Duration(500+rand.Intn(500)) * time.Millisecond
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		return false, ctx.Err()
	}

	engine := p.pool.TTS()
	if engine == nil {
		return false, fmt.Errorf("no tts engine available")
	}
	resp, err := engine.Synthesize(ctx, provider.TTSRequest{Text: text, VoiceModel: p.voiceModel})
	if err != nil {
		return false, fmt.Errorf("synthesize tts for %s: %w", paper.ID, err)
	}

	if err := os.MkdirAll(p.directory, 0o755); err != nil {
		return false, fmt.Errorf("create tts directory: %w", err)
	}

	filename := uuid.New().String() + ".opus"
	finalPath := filepath.Join(p.directory, filename)
	size, err := transcodeToOpus(ctx, resp.Audio, finalPath)
	if err != nil {
		filename = uuid.New().String() + ".raw"
		finalPath = filepath.Join(p.directory, filename)
		size, err = writeAtomic(finalPath, resp.Audio)
		if err != nil {
			return false, fmt.Errorf("write raw tts audio for %s: %w", paper.ID, err)
		}
	}

	row := &domain.PaperTTS{
		PaperID:     paper.ID,
		VoiceModel:  p.voiceModel,
		ContentHash: hash,
		FilePath:    filename,
		FileSize:    size,
	}
	if err := p.tts.Upsert(row); err != nil {
		return false, fmt.Errorf("persist tts row for %s: %w", paper.ID, err)
	}
	return true, nil
}

// transcodeToOpus pipes raw audio bytes through ffmpeg into a VBR Opus file
// at 24kHz, 24-48kbps, written atomically via a temp file + rename.
func transcodeToOpus(ctx context.Context, audio []byte, finalPath string) (int64, error) {
	tmpPath := finalPath + ".tmp"
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", "-i", "pipe:0",
		"-c:a", "libopus", "-b:a", "32k", "-vbr", "on", "-ar", "24000",
		tmpPath,
	)
	cmd.Stdin = bytes.NewReader(audio)
	if err := cmd.Run(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ffmpeg transcode: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return 0, fmt.Errorf("finalize transcoded file: %w", err)
	}
	info, err := os.Stat(finalPath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func writeAtomic(finalPath string, data []byte) (int64, error) {
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	return int64(len(data)), nil
}
