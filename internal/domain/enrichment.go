package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaperTranslation holds one upserted Chinese rendering per paper.
type PaperTranslation struct {
	PaperID   uuid.UUID `json:"paper_id"`
	TitleZH   string    `json:"title_zh"`
	SummaryZH string    `json:"summary_zh"`
	ModelName string    `json:"model_name"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TranslationRepository interface {
	Upsert(t *PaperTranslation) error
	Get(paperID uuid.UUID) (*PaperTranslation, error)
	GetBulk(paperIDs []uuid.UUID) (map[uuid.UUID]*PaperTranslation, error)
	MissingFor(paperIDs []uuid.UUID) ([]uuid.UUID, error)
}

// PaperInterpretation holds one upserted structured Chinese summary per paper.
type PaperInterpretation struct {
	PaperID   uuid.UUID `json:"paper_id"`
	Content   string    `json:"content"` // three ##-prefixed sections, 800-1200 chars
	Language  string    `json:"language"`
	ModelName string    `json:"model_name"`
	UpdatedAt time.Time `json:"updated_at"`
}

type InterpretationRepository interface {
	Upsert(i *PaperInterpretation) error
	Get(paperID uuid.UUID) (*PaperInterpretation, error)
	GetBulk(paperIDs []uuid.UUID) (map[uuid.UUID]*PaperInterpretation, error)
	MissingFor(paperIDs []uuid.UUID) ([]uuid.UUID, error)
}

// PaperTTS is unique on (paper_id, voice_model, content_hash). A row exists
// only if the file exists; stale rows are cleaned when the file is absent.
type PaperTTS struct {
	PaperID     uuid.UUID `json:"paper_id"`
	VoiceModel  string    `json:"voice_model"`
	ContentHash string    `json:"content_hash"`
	FilePath    string    `json:"file_path"` // basename only
	FileSize    int64     `json:"file_size"`
	GeneratedAt time.Time `json:"generated_at"`
}

type TTSRepository interface {
	Upsert(t *PaperTTS) error
	Find(paperID uuid.UUID, voiceModel, contentHash string) (*PaperTTS, error)
	GetLatest(paperID uuid.UUID) (*PaperTTS, error)
	Delete(paperID uuid.UUID, voiceModel, contentHash string) error
}

// Infographic and Visual are additional artifacts storage-only contracts;
// generation is out of scope, only storage/retrieval.
type Infographic struct {
	PaperID     uuid.UUID `json:"paper_id"`
	HTMLContent string    `json:"html_content"`
	Checksum    string    `json:"checksum,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Visual struct {
	PaperID   uuid.UUID `json:"paper_id"`
	ImageData []byte    `json:"-"`
	Checksum  string    `json:"checksum,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ArtifactRepository interface {
	GetInfographic(paperID uuid.UUID) (*Infographic, error)
	PutInfographic(a *Infographic) error
	GetVisual(paperID uuid.UUID) (*Visual, error)
	PutVisual(a *Visual) error
}
