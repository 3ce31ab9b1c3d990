package domain

import "github.com/google/uuid"

// UserProfile holds a user's stated interests, used by the profile scorer path.
type UserProfile struct {
	UserID                 uuid.UUID `json:"user_id"`
	InterestedCategories   []string  `json:"interested_categories"`
	ResearchKeywords       []string  `json:"research_keywords"`
	PreferenceDescription  string    `json:"preference_description,omitempty"`
	OnboardingCompleted    bool      `json:"onboarding_completed"`
}

type UserProfileRepository interface {
	Get(userID uuid.UUID) (*UserProfile, error)
	Upsert(p *UserProfile) error
	ActiveUserIDs() ([]uuid.UUID, error)
}

// DataSourcePoolSettings is per (user_id, source_key) feed tuning.
type DataSourcePoolSettings struct {
	UserID        uuid.UUID `json:"user_id"`
	SourceKey     string    `json:"source_key"`
	PoolRatio     float64   `json:"pool_ratio"`     // [0,1]
	MaxPoolSize   int       `json:"max_pool_size"`  // [10, 10000]
	ShowMode      string    `json:"show_mode"`      // "pool" | "all"
	FilterNoContent bool    `json:"filter_no_content"`
}

type PoolSettingsRepository interface {
	Get(userID uuid.UUID, sourceKey string) (*DataSourcePoolSettings, error)
	Upsert(s *DataSourcePoolSettings) error
	ListForUser(userID uuid.UUID) ([]*DataSourcePoolSettings, error)
}
