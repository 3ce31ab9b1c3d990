package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paper-app/backend/internal/domain"
)

type PaperRepository struct {
	db *pgxpool.Pool
}

func NewPaperRepository(db *pgxpool.Pool) *PaperRepository {
	return &PaperRepository{db: db}
}

const paperColumns = `id, external_id, source, title, abstract, authors, submitted_at, updated_at, pdf_url, metadata, COALESCE(citation_count, 0), primary_category, categories, doi, journal_ref, comments, license, ingestion_batch_id, created_at`

func scanPaper(row pgx.Row) (*domain.Paper, error) {
	p := &domain.Paper{}
	err := row.Scan(
		&p.ID, &p.ExternalID, &p.Source, &p.Title, &p.Abstract, &p.Authors,
		&p.SubmittedAt, &p.UpdatedAt, &p.PDFURL, &p.Metadata, &p.CitationCount,
		&p.PrimaryCategory, &p.Categories, &p.DOI, &p.JournalRef, &p.Comments,
		&p.License, &p.IngestionBatchID, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PaperRepository) Create(paper *domain.Paper) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	paper.CreatedAt = time.Now()

	query := `
		INSERT INTO papers (id, external_id, source, title, abstract, authors, submitted_at, updated_at,
			pdf_url, metadata, citation_count, primary_category, categories, doi, journal_ref, comments,
			license, ingestion_batch_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (source, external_id) DO UPDATE SET
			title = EXCLUDED.title, abstract = EXCLUDED.abstract, authors = EXCLUDED.authors,
			updated_at = EXCLUDED.updated_at, pdf_url = EXCLUDED.pdf_url, metadata = EXCLUDED.metadata,
			primary_category = EXCLUDED.primary_category, categories = EXCLUDED.categories
		RETURNING id
	`
	return r.db.QueryRow(ctx, query,
		paper.ID, paper.ExternalID, paper.Source, paper.Title, paper.Abstract, paper.Authors,
		paper.SubmittedAt, paper.UpdatedAt, paper.PDFURL, paper.Metadata, paper.CitationCount,
		paper.PrimaryCategory, paper.Categories, paper.DOI, paper.JournalRef, paper.Comments,
		paper.License, paper.IngestionBatchID, paper.CreatedAt,
	).Scan(&paper.ID)
}

// BulkUpsert upserts papers in batches of 500 via pgx.Batch, keyed on
// (source, external_id). Returns the number of rows affected.
func (r *PaperRepository) BulkUpsert(papers []*domain.Paper) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const stmt = `
		INSERT INTO papers (id, external_id, source, title, abstract, authors, submitted_at, updated_at,
			pdf_url, metadata, citation_count, primary_category, categories, doi, journal_ref, comments,
			license, ingestion_batch_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (source, external_id) DO UPDATE SET
			title = EXCLUDED.title, abstract = EXCLUDED.abstract, authors = EXCLUDED.authors,
			updated_at = EXCLUDED.updated_at, pdf_url = EXCLUDED.pdf_url, metadata = EXCLUDED.metadata,
			primary_category = EXCLUDED.primary_category, categories = EXCLUDED.categories,
			ingestion_batch_id = COALESCE(EXCLUDED.ingestion_batch_id, papers.ingestion_batch_id)
	`

	total := 0
	for start := 0; start < len(papers); start += 500 {
		end := start + 500
		if end > len(papers) {
			end = len(papers)
		}
		chunk := papers[start:end]

		batch := &pgx.Batch{}
		now := time.Now()
		for _, p := range chunk {
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			p.CreatedAt = now
			batch.Queue(stmt,
				p.ID, p.ExternalID, p.Source, p.Title, p.Abstract, p.Authors,
				p.SubmittedAt, p.UpdatedAt, p.PDFURL, p.Metadata, p.CitationCount,
				p.PrimaryCategory, p.Categories, p.DOI, p.JournalRef, p.Comments,
				p.License, p.IngestionBatchID, p.CreatedAt,
			)
		}

		br := r.db.SendBatch(ctx, batch)
		for range chunk {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return total, err
			}
			total++
		}
		if err := br.Close(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *PaperRepository) GetByID(id uuid.UUID) (*domain.Paper, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := r.db.QueryRow(ctx, "SELECT "+paperColumns+" FROM papers WHERE id = $1", id)
	return scanPaper(row)
}

func (r *PaperRepository) GetByExternalID(externalID string) (*domain.Paper, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	row := r.db.QueryRow(ctx, "SELECT "+paperColumns+" FROM papers WHERE external_id = $1", externalID)
	return scanPaper(row)
}

func (r *PaperRepository) GetByIDs(ids []uuid.UUID) ([]*domain.Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, "SELECT "+paperColumns+" FROM papers WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var papers []*domain.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

func (r *PaperRepository) ListByDate(source string, date time.Time) ([]*domain.Paper, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	query := "SELECT " + paperColumns + ` FROM papers WHERE source = $1 AND submitted_at::date = $2::date ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, source, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var papers []*domain.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// ListBySource returns every paper tagged with the given source (e.g. a
// conference key), in arrival order. Used by the conference pool/content
// factory jobs, which are not date-partitioned the way arXiv ingestion is.
func (r *PaperRepository) ListBySource(source string) ([]*domain.Paper, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	query := "SELECT " + paperColumns + ` FROM papers WHERE source = $1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var papers []*domain.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

func (r *PaperRepository) RecentSince(ctx context.Context, since time.Time, limit int) ([]*domain.Paper, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	query := "SELECT " + paperColumns + ` FROM papers WHERE submitted_at >= $1 ORDER BY submitted_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var papers []*domain.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

func (r *PaperRepository) Delete(id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.db.Exec(ctx, `DELETE FROM papers WHERE id = $1`, id)
	return err
}

func (r *PaperRepository) CountByCategory() ([]domain.CategoryCount, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	query := `SELECT unnest(categories) AS category, COUNT(*) FROM papers GROUP BY category`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var counts []domain.CategoryCount
	for rows.Next() {
		var c domain.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *PaperRepository) StreamAll(ctx context.Context, batchSize int, fn func(papers []*domain.Paper) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var lastID uuid.UUID
	for {
		qctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		query := "SELECT " + paperColumns + ` FROM papers WHERE id > $1 ORDER BY id ASC LIMIT $2`
		rows, err := r.db.Query(qctx, query, lastID, batchSize)
		if err != nil {
			cancel()
			return err
		}
		var batch []*domain.Paper
		for rows.Next() {
			p, err := scanPaper(rows)
			if err != nil {
				rows.Close()
				cancel()
				return err
			}
			batch = append(batch, p)
		}
		rows.Close()
		cancel()
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		lastID = batch[len(batch)-1].ID
		if len(batch) < batchSize {
			return nil
		}
	}
}
