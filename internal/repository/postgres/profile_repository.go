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

type ProfileRepository struct{ db *pgxpool.Pool }

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Get(userID uuid.UUID) (*domain.UserProfile, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := &domain.UserProfile{}
	query := `SELECT user_id, interested_categories, research_keywords, preference_description, onboarding_completed FROM user_profiles WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, userID).
		Scan(&p.UserID, &p.InterestedCategories, &p.ResearchKeywords, &p.PreferenceDescription, &p.OnboardingCompleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProfileRepository) Upsert(p *domain.UserProfile) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	query := `
		INSERT INTO user_profiles (user_id, interested_categories, research_keywords, preference_description, onboarding_completed)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (user_id) DO UPDATE SET interested_categories = EXCLUDED.interested_categories,
			research_keywords = EXCLUDED.research_keywords, preference_description = EXCLUDED.preference_description,
			onboarding_completed = EXCLUDED.onboarding_completed
	`
	_, err := r.db.Exec(ctx, query, p.UserID, p.InterestedCategories, p.ResearchKeywords, p.PreferenceDescription, p.OnboardingCompleted)
	return err
}

func (r *ProfileRepository) ActiveUserIDs() ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT DISTINCT user_id FROM user_profiles
		UNION SELECT DISTINCT user_id FROM user_feedback`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type PoolSettingsRepository struct{ db *pgxpool.Pool }

func NewPoolSettingsRepository(db *pgxpool.Pool) *PoolSettingsRepository {
	return &PoolSettingsRepository{db: db}
}

func (r *PoolSettingsRepository) Get(userID uuid.UUID, sourceKey string) (*domain.DataSourcePoolSettings, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s := &domain.DataSourcePoolSettings{}
	query := `SELECT user_id, source_key, pool_ratio, max_pool_size, show_mode, filter_no_content FROM data_source_pool_settings WHERE user_id = $1 AND source_key = $2`
	err := r.db.QueryRow(ctx, query, userID, sourceKey).
		Scan(&s.UserID, &s.SourceKey, &s.PoolRatio, &s.MaxPoolSize, &s.ShowMode, &s.FilterNoContent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PoolSettingsRepository) Upsert(s *domain.DataSourcePoolSettings) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	query := `
		INSERT INTO data_source_pool_settings (user_id, source_key, pool_ratio, max_pool_size, show_mode, filter_no_content)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, source_key) DO UPDATE SET pool_ratio = EXCLUDED.pool_ratio,
			max_pool_size = EXCLUDED.max_pool_size, show_mode = EXCLUDED.show_mode, filter_no_content = EXCLUDED.filter_no_content
	`
	_, err := r.db.Exec(ctx, query, s.UserID, s.SourceKey, s.PoolRatio, s.MaxPoolSize, s.ShowMode, s.FilterNoContent)
	return err
}

func (r *PoolSettingsRepository) ListForUser(userID uuid.UUID) ([]*domain.DataSourcePoolSettings, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rows, err := r.db.Query(ctx, `SELECT user_id, source_key, pool_ratio, max_pool_size, show_mode, filter_no_content FROM data_source_pool_settings WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.DataSourcePoolSettings
	for rows.Next() {
		s := &domain.DataSourcePoolSettings{}
		if err := rows.Scan(&s.UserID, &s.SourceKey, &s.PoolRatio, &s.MaxPoolSize, &s.ShowMode, &s.FilterNoContent); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
