package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paper-app/backend/internal/domain"
	"github.com/paper-app/backend/pkg/arxiv"
)

var arxivIDPattern = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)

const newYorkTZ = "America/New_York"

// EmbeddingClient embeds paper text into vectors, batched.
type EmbeddingClient interface {
	Model() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// IngestionUsecase implements the Ingestion Engine (C2): pull one day's
// arXiv submissions, validate, upsert, then backfill embeddings.
type IngestionUsecase struct {
	arxiv      *arxiv.Client
	papers     domain.PaperRepository
	batches    domain.IngestionBatchRepository
	embeddings domain.PaperEmbeddingRepository
	embedder   EmbeddingClient

	query             string
	maxResults        int
	pageSize          int
	fallbackPageSize  int
	fallbackMaxStreak int
	fallbackMaxOffset int
	embedBatchSize    int
}

type IngestionOption func(*IngestionUsecase)

func NewIngestionUsecase(
	arxivClient *arxiv.Client,
	papers domain.PaperRepository,
	batches domain.IngestionBatchRepository,
	embeddings domain.PaperEmbeddingRepository,
	embedder EmbeddingClient,
	opts ...IngestionOption,
) *IngestionUsecase {
	u := &IngestionUsecase{
		arxiv:             arxivClient,
		papers:            papers,
		batches:           batches,
		embeddings:        embeddings,
		embedder:          embedder,
		maxResults:        30000,
		pageSize:          2000,
		fallbackPageSize:  200,
		fallbackMaxStreak: 5,
		fallbackMaxOffset: 20000,
		embedBatchSize:    64,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func WithArXivQuery(q string) IngestionOption       { return func(u *IngestionUsecase) { u.query = q } }
func WithMaxResults(n int) IngestionOption          { return func(u *IngestionUsecase) { u.maxResults = n } }
func WithPageSize(n int) IngestionOption            { return func(u *IngestionUsecase) { u.pageSize = n } }
func WithFallback(pageSize, maxStreak, maxOffset int) IngestionOption {
	return func(u *IngestionUsecase) {
		u.fallbackPageSize = pageSize
		u.fallbackMaxStreak = maxStreak
		u.fallbackMaxOffset = maxOffset
	}
}
func WithEmbedBatchSize(n int) IngestionOption { return func(u *IngestionUsecase) { u.embedBatchSize = n } }

// IngestResult summarizes one IngestForDate run.
type IngestResult struct {
	Fetched          int
	Valid            int
	Upserted         int
	EmbeddingsFailed int
	UsedFallback     bool
}

// IngestForDate builds the submittedDate range query for targetDate, pages
// the upstream search until exhausted, falls back to a descending recent-
// submissions scan if the range query returns nothing, validates every
// candidate record, persists an IngestionBatch, upserts papers by
// external id, then computes embeddings in batches. Embedding failures
// never void the upsert — papers simply keep zero embeddings until retried.
func (u *IngestionUsecase) IngestForDate(ctx context.Context, targetDate time.Time) (*IngestResult, error) {
	loc, err := time.LoadLocation(newYorkTZ)
	if err != nil {
		loc = time.UTC
	}

	result := &IngestResult{}
	var candidates []*domain.Paper

	searchResult, err := u.arxiv.SearchByDateRange(ctx, targetDate, u.query, u.pageSize, u.maxResults)
	if err != nil {
		return nil, fmt.Errorf("search by date range: %w", err)
	}
	candidates = searchResult.Papers
	result.Fetched = len(candidates)

	if len(candidates) == 0 {
		result.UsedFallback = true
		candidates, err = u.fallbackScan(ctx, targetDate, loc)
		if err != nil {
			return nil, fmt.Errorf("fallback scan: %w", err)
		}
		result.Fetched = len(candidates)
	}

	valid := make([]*domain.Paper, 0, len(candidates))
	for _, p := range candidates {
		if validatePaper(p) {
			valid = append(valid, p)
		}
	}
	result.Valid = len(valid)

	batch := &domain.IngestionBatch{
		ID:         uuid.New(),
		Source:     "arxiv",
		SourceDate: targetDate,
		Query:      u.query,
		ItemCount:  len(valid),
		FetchedAt:  time.Now(),
	}
	if err := u.batches.Create(batch); err != nil {
		return nil, fmt.Errorf("persist ingestion batch: %w", err)
	}
	for _, p := range valid {
		p.IngestionBatchID = &batch.ID
	}

	upserted, err := u.papers.BulkUpsert(valid)
	if err != nil {
		return nil, fmt.Errorf("bulk upsert papers: %w", err)
	}
	result.Upserted = upserted

	failed := u.computeEmbeddings(ctx, valid)
	result.EmbeddingsFailed = failed

	return result, nil
}

// fallbackScan walks the most recent submissions descending, converting each
// entry's submission time to America/New_York and keeping matches for
// targetDate, until a streak of empty/non-matching batches or the offset cap
// is reached.
func (u *IngestionUsecase) fallbackScan(ctx context.Context, targetDate time.Time, loc *time.Location) ([]*domain.Paper, error) {
	var matched []*domain.Paper
	emptyStreak := 0
	offset := 0
	wantDate := targetDate.Format("2006-01-02")

	err := u.arxiv.SearchRecent(ctx, 0, u.fallbackPageSize, func(papers []*domain.Paper) bool {
		foundAny := false
		for _, p := range papers {
			if p.SubmittedAt == nil {
				continue
			}
			local := p.SubmittedAt.In(loc)
			if local.Format("2006-01-02") == wantDate {
				matched = append(matched, p)
				foundAny = true
			}
		}
		offset += len(papers)
		if foundAny {
			emptyStreak = 0
		} else {
			emptyStreak++
		}
		if emptyStreak >= u.fallbackMaxStreak {
			return false
		}
		if offset >= u.fallbackMaxOffset {
			return false
		}
		return true
	})
	return matched, err
}

// computeEmbeddings embeds valid papers' title+abstract in batches, storing
// one vector per paper. Returns the count of papers whose embedding failed.
func (u *IngestionUsecase) computeEmbeddings(ctx context.Context, papers []*domain.Paper) int {
	if u.embedder == nil || len(papers) == 0 {
		return 0
	}
	failed := 0
	batchSize := u.embedBatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	for start := 0; start < len(papers); start += batchSize {
		end := start + batchSize
		if end > len(papers) {
			end = len(papers)
		}
		chunk := papers[start:end]
		texts := make([]string, len(chunk))
		for i, p := range chunk {
			texts[i] = strings.TrimSpace(p.Title + "\n" + p.Abstract)
		}
		vectors, err := u.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			log.Printf("embedding batch failed (papers %d-%d): %v", start, end, err)
			failed += len(chunk)
			continue
		}
		for i, p := range chunk {
			emb := &domain.PaperEmbedding{
				PaperID:   p.ID,
				ModelName: u.embedder.Model(),
				Vector:    vectors[i],
				CreatedAt: time.Now(),
			}
			if err := u.embeddings.Upsert(emb); err != nil {
				log.Printf("embedding persist failed for paper %s: %v", p.ID, err)
				failed++
			}
		}
	}
	return failed
}

// validatePaper enforces the minimum-quality gate for an ingested record.
func validatePaper(p *domain.Paper) bool {
	if !arxivIDPattern.MatchString(p.ExternalID) {
		return false
	}
	if len(strings.TrimSpace(p.Title)) < 10 {
		return false
	}
	if len(strings.TrimSpace(p.Abstract)) < 50 {
		return false
	}
	if len(p.Categories) == 0 {
		return false
	}
	var authors []domain.Author
	if err := json.Unmarshal(p.Authors, &authors); err != nil || len(authors) == 0 {
		return false
	}
	return true
}
