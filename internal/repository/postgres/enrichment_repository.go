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

type TranslationRepository struct{ db *pgxpool.Pool }

func NewTranslationRepository(db *pgxpool.Pool) *TranslationRepository {
	return &TranslationRepository{db: db}
}

func (r *TranslationRepository) Upsert(t *domain.PaperTranslation) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.UpdatedAt = time.Now()
	query := `
		INSERT INTO paper_translations (paper_id, title_zh, summary_zh, model_name, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (paper_id) DO UPDATE SET title_zh = EXCLUDED.title_zh, summary_zh = EXCLUDED.summary_zh,
			model_name = EXCLUDED.model_name, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query, t.PaperID, t.TitleZH, t.SummaryZH, t.ModelName, t.UpdatedAt)
	return err
}

func (r *TranslationRepository) Get(paperID uuid.UUID) (*domain.PaperTranslation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t := &domain.PaperTranslation{}
	err := r.db.QueryRow(ctx, `SELECT paper_id, title_zh, summary_zh, model_name, updated_at FROM paper_translations WHERE paper_id = $1`, paperID).
		Scan(&t.PaperID, &t.TitleZH, &t.SummaryZH, &t.ModelName, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TranslationRepository) GetBulk(paperIDs []uuid.UUID) (map[uuid.UUID]*domain.PaperTranslation, error) {
	out := make(map[uuid.UUID]*domain.PaperTranslation)
	if len(paperIDs) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT paper_id, title_zh, summary_zh, model_name, updated_at FROM paper_translations WHERE paper_id = ANY($1)`, paperIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		t := &domain.PaperTranslation{}
		if err := rows.Scan(&t.PaperID, &t.TitleZH, &t.SummaryZH, &t.ModelName, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out[t.PaperID] = t
	}
	return out, rows.Err()
}

func (r *TranslationRepository) MissingFor(paperIDs []uuid.UUID) ([]uuid.UUID, error) {
	existing, err := r.GetBulk(paperIDs)
	if err != nil {
		return nil, err
	}
	var missing []uuid.UUID
	for _, id := range paperIDs {
		t, ok := existing[id]
		if !ok || t.TitleZH == "" || t.SummaryZH == "" {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type InterpretationRepository struct{ db *pgxpool.Pool }

func NewInterpretationRepository(db *pgxpool.Pool) *InterpretationRepository {
	return &InterpretationRepository{db: db}
}

func (r *InterpretationRepository) Upsert(i *domain.PaperInterpretation) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	i.UpdatedAt = time.Now()
	query := `
		INSERT INTO paper_interpretations (paper_id, content, language, model_name, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (paper_id) DO UPDATE SET content = EXCLUDED.content, language = EXCLUDED.language,
			model_name = EXCLUDED.model_name, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query, i.PaperID, i.Content, i.Language, i.ModelName, i.UpdatedAt)
	return err
}

func (r *InterpretationRepository) Get(paperID uuid.UUID) (*domain.PaperInterpretation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	i := &domain.PaperInterpretation{}
	err := r.db.QueryRow(ctx, `SELECT paper_id, content, language, model_name, updated_at FROM paper_interpretations WHERE paper_id = $1`, paperID).
		Scan(&i.PaperID, &i.Content, &i.Language, &i.ModelName, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return i, nil
}

func (r *InterpretationRepository) GetBulk(paperIDs []uuid.UUID) (map[uuid.UUID]*domain.PaperInterpretation, error) {
	out := make(map[uuid.UUID]*domain.PaperInterpretation)
	if len(paperIDs) == 0 {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT paper_id, content, language, model_name, updated_at FROM paper_interpretations WHERE paper_id = ANY($1)`, paperIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		i := &domain.PaperInterpretation{}
		if err := rows.Scan(&i.PaperID, &i.Content, &i.Language, &i.ModelName, &i.UpdatedAt); err != nil {
			return nil, err
		}
		out[i.PaperID] = i
	}
	return out, rows.Err()
}

func (r *InterpretationRepository) MissingFor(paperIDs []uuid.UUID) ([]uuid.UUID, error) {
	existing, err := r.GetBulk(paperIDs)
	if err != nil {
		return nil, err
	}
	var missing []uuid.UUID
	for _, id := range paperIDs {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

type TTSRepository struct{ db *pgxpool.Pool }

func NewTTSRepository(db *pgxpool.Pool) *TTSRepository {
	return &TTSRepository{db: db}
}

func (r *TTSRepository) Upsert(t *domain.PaperTTS) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.GeneratedAt = time.Now()
	query := `
		INSERT INTO paper_tts (paper_id, voice_model, content_hash, file_path, file_size, generated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (paper_id, voice_model, content_hash) DO UPDATE SET
			file_path = EXCLUDED.file_path, file_size = EXCLUDED.file_size, generated_at = EXCLUDED.generated_at
	`
	_, err := r.db.Exec(ctx, query, t.PaperID, t.VoiceModel, t.ContentHash, t.FilePath, t.FileSize, t.GeneratedAt)
	return err
}

func (r *TTSRepository) Find(paperID uuid.UUID, voiceModel, contentHash string) (*domain.PaperTTS, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t := &domain.PaperTTS{}
	query := `SELECT paper_id, voice_model, content_hash, file_path, file_size, generated_at FROM paper_tts WHERE paper_id = $1 AND voice_model = $2 AND content_hash = $3`
	err := r.db.QueryRow(ctx, query, paperID, voiceModel, contentHash).
		Scan(&t.PaperID, &t.VoiceModel, &t.ContentHash, &t.FilePath, &t.FileSize, &t.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TTSRepository) GetLatest(paperID uuid.UUID) (*domain.PaperTTS, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t := &domain.PaperTTS{}
	query := `SELECT paper_id, voice_model, content_hash, file_path, file_size, generated_at FROM paper_tts WHERE paper_id = $1 ORDER BY generated_at DESC LIMIT 1`
	err := r.db.QueryRow(ctx, query, paperID).
		Scan(&t.PaperID, &t.VoiceModel, &t.ContentHash, &t.FilePath, &t.FileSize, &t.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TTSRepository) Delete(paperID uuid.UUID, voiceModel, contentHash string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.db.Exec(ctx, `DELETE FROM paper_tts WHERE paper_id = $1 AND voice_model = $2 AND content_hash = $3`, paperID, voiceModel, contentHash)
	return err
}

type ArtifactRepository struct{ db *pgxpool.Pool }

func NewArtifactRepository(db *pgxpool.Pool) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

func (r *ArtifactRepository) GetInfographic(paperID uuid.UUID) (*domain.Infographic, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a := &domain.Infographic{}
	err := r.db.QueryRow(ctx, `SELECT paper_id, html_content, checksum, created_at FROM paper_infographics WHERE paper_id = $1`, paperID).
		Scan(&a.PaperID, &a.HTMLContent, &a.Checksum, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *ArtifactRepository) PutInfographic(a *domain.Infographic) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.CreatedAt = time.Now()
	query := `
		INSERT INTO paper_infographics (paper_id, html_content, checksum, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (paper_id) DO UPDATE SET html_content = EXCLUDED.html_content, checksum = EXCLUDED.checksum, created_at = EXCLUDED.created_at
	`
	_, err := r.db.Exec(ctx, query, a.PaperID, a.HTMLContent, a.Checksum, a.CreatedAt)
	return err
}

func (r *ArtifactRepository) GetVisual(paperID uuid.UUID) (*domain.Visual, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a := &domain.Visual{}
	err := r.db.QueryRow(ctx, `SELECT paper_id, image_data, checksum, created_at FROM paper_visuals WHERE paper_id = $1`, paperID).
		Scan(&a.PaperID, &a.ImageData, &a.Checksum, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *ArtifactRepository) PutVisual(a *domain.Visual) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.CreatedAt = time.Now()
	query := `
		INSERT INTO paper_visuals (paper_id, image_data, checksum, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (paper_id) DO UPDATE SET image_data = EXCLUDED.image_data, checksum = EXCLUDED.checksum, created_at = EXCLUDED.created_at
	`
	_, err := r.db.Exec(ctx, query, a.PaperID, a.ImageData, a.Checksum, a.CreatedAt)
	return err
}
