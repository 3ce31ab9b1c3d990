package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paper-app/backend/internal/domain"
	"github.com/paper-app/backend/internal/middleware"
	"github.com/paper-app/backend/internal/orchestrator"
	"github.com/paper-app/backend/internal/usecase"
	"github.com/paper-app/backend/internal/usecase/enrichment"
	"github.com/paper-app/backend/pkg/conference"
)

// Handler wires every HTTP endpoint to its usecase. Built with an explicit
// constructor, not a DI container — dependencies are visible at the call site.
type Handler struct {
	authUsecase    *usecase.AuthUsecase
	paperUsecase   *usecase.PaperUsecase
	libraryUsecase *usecase.LibraryUsecase

	feed            *usecase.FeedAssembler
	feedback        *usecase.FeedbackUsecase
	feedbackRepo    domain.FeedbackRepository
	ranking         *usecase.RankingUsecase
	pools           *usecase.CandidatePoolUsecase
	ingestion       *usecase.IngestionUsecase
	profiles        domain.UserProfileRepository
	poolSettings    domain.PoolSettingsRepository
	papers          domain.PaperRepository
	translations    domain.TranslationRepository
	interpretations domain.InterpretationRepository
	artifacts       domain.ArtifactRepository
	tts             domain.TTSRepository

	translationPipeline    *enrichment.TranslationPipeline
	interpretationPipeline *enrichment.InterpretationPipeline
	ttsPipeline            *enrichment.TTSPipeline

	conference   *conference.Client
	orchestrator *orchestrator.Orchestrator

	ttsDirectory string
}

func NewHandler(
	auth *usecase.AuthUsecase,
	paper *usecase.PaperUsecase,
	library *usecase.LibraryUsecase,
	feed *usecase.FeedAssembler,
	feedback *usecase.FeedbackUsecase,
	feedbackRepo domain.FeedbackRepository,
	ranking *usecase.RankingUsecase,
	pools *usecase.CandidatePoolUsecase,
	ingestion *usecase.IngestionUsecase,
	profiles domain.UserProfileRepository,
	poolSettings domain.PoolSettingsRepository,
	papers domain.PaperRepository,
	translations domain.TranslationRepository,
	interpretations domain.InterpretationRepository,
	artifacts domain.ArtifactRepository,
	tts domain.TTSRepository,
	translationPipeline *enrichment.TranslationPipeline,
	interpretationPipeline *enrichment.InterpretationPipeline,
	ttsPipeline *enrichment.TTSPipeline,
	conferenceClient *conference.Client,
	orch *orchestrator.Orchestrator,
	ttsDirectory string,
) *Handler {
	return &Handler{
		authUsecase:            auth,
		paperUsecase:           paper,
		libraryUsecase:         library,
		feed:                   feed,
		feedback:               feedback,
		feedbackRepo:           feedbackRepo,
		ranking:                ranking,
		pools:                  pools,
		ingestion:              ingestion,
		profiles:               profiles,
		poolSettings:           poolSettings,
		papers:                 papers,
		translations:           translations,
		interpretations:        interpretations,
		artifacts:              artifacts,
		tts:                    tts,
		translationPipeline:    translationPipeline,
		interpretationPipeline: interpretationPipeline,
		ttsPipeline:            ttsPipeline,
		conference:             conferenceClient,
		orchestrator:           orch,
		ttsDirectory:           ttsDirectory,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func newYorkToday() time.Time {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// Auth handlers

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	User   interface{} `json:"user"`
	Tokens interface{} `json:"tokens"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, tokens, err := h.authUsecase.Register(req.Email, req.Password, req.Name)
	if err == usecase.ErrEmailExists {
		writeError(w, http.StatusConflict, "Email already exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: user, Tokens: tokens})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, tokens, err := h.authUsecase.Login(req.Email, req.Password)
	if err == usecase.ErrInvalidCredentials {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to login")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}

type googleLoginRequest struct {
	AccessToken string `json:"access_token"`
}

func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "Access token is required")
		return
	}

	user, tokens, err := h.authUsecase.GoogleLogin(req.AccessToken)
	if err == usecase.ErrInvalidGoogleToken {
		writeError(w, http.StatusUnauthorized, "Invalid Google token")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to authenticate with Google")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tokens, err := h.authUsecase.RefreshToken(req.RefreshToken)
	if err == usecase.ErrInvalidToken || err == usecase.ErrTokenExpired {
		writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to refresh token")
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.authUsecase.Logout(req.RefreshToken)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.authUsecase.GetUserByID(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Category taxonomy handlers (ambient, outside the core recommendation pipeline)

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.paperUsecase.GetCategories()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get categories")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) GetGroupedCategories(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.paperUsecase.GetGroupedCategories()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get categories")
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}

// Library handlers

func (h *Handler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	status := r.URL.Query().Get("status")
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	result, err := h.libraryUsecase.GetLibrary(userID, status, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get library")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) SaveToLibrary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	paperID, err := uuid.Parse(chi.URLParam(r, "paperId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paper ID")
		return
	}

	userPaper, err := h.libraryUsecase.SavePaper(userID, paperID)
	if err == usecase.ErrPaperNotFound {
		writeError(w, http.StatusNotFound, "Paper not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save paper")
		return
	}

	writeJSON(w, http.StatusCreated, userPaper)
}

func (h *Handler) RemoveFromLibrary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	paperID, err := uuid.Parse(chi.URLParam(r, "paperId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paper ID")
		return
	}

	err = h.libraryUsecase.RemovePaper(userID, paperID)
	if err == usecase.ErrPaperNotInLibrary {
		writeError(w, http.StatusNotFound, "Paper not in library")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to remove paper")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateLibraryPaper(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	paperID, err := uuid.Parse(chi.URLParam(r, "paperId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paper ID")
		return
	}

	var input usecase.UpdatePaperInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userPaper, err := h.libraryUsecase.UpdatePaper(userID, paperID, &input)
	if err == usecase.ErrPaperNotInLibrary {
		writeError(w, http.StatusNotFound, "Paper not in library")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update paper")
		return
	}

	writeJSON(w, http.StatusOK, userPaper)
}

// Bookmark handlers

func (h *Handler) GetBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	result, err := h.libraryUsecase.GetBookmarks(userID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get bookmarks")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) BookmarkPaper(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	paperID, err := uuid.Parse(chi.URLParam(r, "paperId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paper ID")
		return
	}

	userPaper, err := h.libraryUsecase.BookmarkPaper(userID, paperID)
	if err == usecase.ErrPaperNotFound {
		writeError(w, http.StatusNotFound, "Paper not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to bookmark paper")
		return
	}

	writeJSON(w, http.StatusCreated, userPaper)
}

func (h *Handler) UnbookmarkPaper(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	paperID, err := uuid.Parse(chi.URLParam(r, "paperId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paper ID")
		return
	}

	err = h.libraryUsecase.UnbookmarkPaper(userID, paperID)
	if err == usecase.ErrPaperNotInLibrary {
		writeError(w, http.StatusNotFound, "Paper not in library")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to unbookmark paper")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Feed handler (C7)

type feedItemResponse struct {
	Position   int           `json:"position"`
	Score      float64       `json:"score"`
	Paper      *domain.Paper `json:"paper"`
	Liked      bool          `json:"liked"`
	Bookmarked bool          `json:"bookmarked"`
	Disliked   bool          `json:"disliked"`
}

type feedResponse struct {
	Items      []feedItemResponse `json:"items"`
	NextCursor int                `json:"next_cursor"`
	Total      int                `json:"total"`
}

func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cursor := queryInt(r, "cursor", 0)
	limit := queryInt(r, "limit", 20)
	source := r.URL.Query().Get("source")
	sub := r.URL.Query().Get("sub")

	page, err := h.feed.GetFeed(userID, source, sub, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to assemble feed")
		return
	}

	ids := make([]uuid.UUID, len(page.Items))
	for i, it := range page.Items {
		ids[i] = it.Paper.ID
	}
	flags, err := h.feedbackRepo.GetBulk(userID, ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load feedback state")
		return
	}

	items := make([]feedItemResponse, len(page.Items))
	for i, it := range page.Items {
		f := flags[it.Paper.ID]
		items[i] = feedItemResponse{
			Position:   cursor + i,
			Score:      it.Score,
			Paper:      it.Paper,
			Liked:      f[domain.FeedbackLike],
			Bookmarked: f[domain.FeedbackBookmark],
			Disliked:   f[domain.FeedbackDislike],
		}
	}

	writeJSON(w, http.StatusOK, feedResponse{Items: items, NextCursor: page.NextCursor, Total: page.Total})
}

// Feedback handler (C8)

type feedbackRequest struct {
	PaperID   uuid.UUID           `json:"paper_id"`
	Action    domain.FeedbackKind `json:"action"`
	Value     bool                `json:"value"`
	Confirmed bool                `json:"confirmed"`
}

type feedbackResponse struct {
	Liked                bool   `json:"liked"`
	Bookmarked           bool   `json:"bookmarked"`
	Disliked             bool   `json:"disliked"`
	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
	Message              string `json:"message,omitempty"`
}

func (h *Handler) currentFeedbackState(userID, paperID uuid.UUID) (feedbackResponse, error) {
	flags, err := h.feedbackRepo.Get(userID, paperID)
	if err != nil {
		return feedbackResponse{}, err
	}
	return feedbackResponse{
		Liked:      flags[domain.FeedbackLike],
		Bookmarked: flags[domain.FeedbackBookmark],
		Disliked:   flags[domain.FeedbackDislike],
	}, nil
}

func (h *Handler) PostFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.feedback.Feedback(userID, req.PaperID, req.Action, req.Value, req.Confirmed)
	switch err {
	case nil:
		state, serr := h.currentFeedbackState(userID, req.PaperID)
		if serr != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load feedback state")
			return
		}
		writeJSON(w, http.StatusOK, state)
	case usecase.ErrConfirmationRequired:
		state, serr := h.currentFeedbackState(userID, req.PaperID)
		if serr != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load feedback state")
			return
		}
		state.RequiresConfirmation = true
		state.Message = "disliking this paper removes any like or bookmark; confirm to proceed"
		writeJSON(w, http.StatusOK, state)
	case usecase.ErrFeedbackRejected:
		writeError(w, http.StatusConflict, "feedback action rejected")
	case usecase.ErrUnknownFeedbackKind:
		writeError(w, http.StatusBadRequest, "unknown feedback action")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to record feedback")
	}
}

// Paper artifact handlers

func (h *Handler) resolvePaperID(r *http.Request) (uuid.UUID, error) {
	return h.paperUsecase.ResolvePaperID(chi.URLParam(r, "id"))
}

type contentStatusResponse struct {
	Translation    bool `json:"translation"`
	Interpretation bool `json:"interpretation"`
	TTS            bool `json:"tts"`
	Infographic    bool `json:"infographic"`
	Visual         bool `json:"visual"`
}

type visualResponse struct {
	PaperID      uuid.UUID `json:"paper_id"`
	ImageDataB64 string    `json:"image_data"`
	Checksum     string    `json:"checksum,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *Handler) GetPaperArtifact(w http.ResponseWriter, r *http.Request) {
	paperID, err := h.resolvePaperID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "Paper not found")
		return
	}

	switch chi.URLParam(r, "kind") {
	case "translation":
		t, err := h.translations.Get(paperID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load translation")
			return
		}
		if t == nil {
			writeError(w, http.StatusNotFound, "Translation not available")
			return
		}
		writeJSON(w, http.StatusOK, t)

	case "interpretation":
		i, err := h.interpretations.Get(paperID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load interpretation")
			return
		}
		if i == nil {
			writeError(w, http.StatusNotFound, "Interpretation not available")
			return
		}
		writeJSON(w, http.StatusOK, i)

	case "infographic":
		inf, err := h.artifacts.GetInfographic(paperID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load infographic")
			return
		}
		if inf == nil {
			writeError(w, http.StatusNotFound, "Infographic not available")
			return
		}
		writeJSON(w, http.StatusOK, inf)

	case "visual":
		v, err := h.artifacts.GetVisual(paperID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load visual")
			return
		}
		if v == nil {
			writeError(w, http.StatusNotFound, "Visual not available")
			return
		}
		writeJSON(w, http.StatusOK, visualResponse{
			PaperID:      v.PaperID,
			ImageDataB64: base64.StdEncoding.EncodeToString(v.ImageData),
			Checksum:     v.Checksum,
			CreatedAt:    v.CreatedAt,
		})

	case "tts":
		t, err := h.tts.GetLatest(paperID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load tts")
			return
		}
		if t == nil {
			writeError(w, http.StatusNotFound, "Audio narration not available")
			return
		}
		writeJSON(w, http.StatusOK, t)

	case "content-status":
		status := contentStatusResponse{}
		if t, err := h.translations.Get(paperID); err == nil {
			status.Translation = t != nil
		}
		if i, err := h.interpretations.Get(paperID); err == nil {
			status.Interpretation = i != nil
		}
		if t, err := h.tts.GetLatest(paperID); err == nil {
			status.TTS = t != nil
		}
		if inf, err := h.artifacts.GetInfographic(paperID); err == nil {
			status.Infographic = inf != nil
		}
		if v, err := h.artifacts.GetVisual(paperID); err == nil {
			status.Visual = v != nil
		}
		writeJSON(w, http.StatusOK, status)

	default:
		writeError(w, http.StatusNotFound, "Unknown artifact kind")
	}
}

type putArtifactRequest struct {
	HTMLContent string `json:"html_content,omitempty"`
	ImageData   string `json:"image_data,omitempty"` // base64
	Checksum    string `json:"checksum,omitempty"`
}

func (h *Handler) PostPaperArtifact(w http.ResponseWriter, r *http.Request) {
	paperID, err := h.resolvePaperID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "Paper not found")
		return
	}

	var req putArtifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch chi.URLParam(r, "kind") {
	case "infographic":
		if req.HTMLContent == "" {
			writeError(w, http.StatusBadRequest, "html_content is required")
			return
		}
		a := &domain.Infographic{PaperID: paperID, HTMLContent: req.HTMLContent, Checksum: req.Checksum}
		if err := h.artifacts.PutInfographic(a); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save infographic")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": paperID.String(), "message": "infographic saved"})

	case "visual":
		if req.ImageData == "" {
			writeError(w, http.StatusBadRequest, "image_data is required")
			return
		}
		raw, err := base64.StdEncoding.DecodeString(req.ImageData)
		if err != nil {
			writeError(w, http.StatusBadRequest, "image_data must be base64-encoded")
			return
		}
		a := &domain.Visual{PaperID: paperID, ImageData: raw, Checksum: req.Checksum}
		if err := h.artifacts.PutVisual(a); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save visual")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": paperID.String(), "message": "visual saved"})

	default:
		writeError(w, http.StatusNotFound, "Unknown artifact kind")
	}
}

// Pool settings handlers

func poolSettingsDefaults(userID uuid.UUID, sourceKey string) *domain.DataSourcePoolSettings {
	return &domain.DataSourcePoolSettings{
		UserID: userID, SourceKey: sourceKey,
		PoolRatio: 1.0, MaxPoolSize: 200, ShowMode: "pool", FilterNoContent: false,
	}
}

func (h *Handler) GetPoolSettingsForSource(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sourceKey := chi.URLParam(r, "source_key")
	settings, err := h.poolSettings.Get(userID, sourceKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load pool settings")
		return
	}
	if settings == nil {
		settings = poolSettingsDefaults(userID, sourceKey)
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) PutPoolSettingsForSource(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sourceKey := chi.URLParam(r, "source_key")
	var req domain.DataSourcePoolSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.PoolRatio < 0 || req.PoolRatio > 1 {
		writeError(w, http.StatusBadRequest, "pool_ratio must be in [0,1]")
		return
	}
	if req.MaxPoolSize < 10 || req.MaxPoolSize > 10000 {
		writeError(w, http.StatusBadRequest, "max_pool_size must be in [10,10000]")
		return
	}
	if req.ShowMode != "pool" && req.ShowMode != "all" {
		writeError(w, http.StatusBadRequest, `show_mode must be "pool" or "all"`)
		return
	}

	req.UserID = userID
	req.SourceKey = sourceKey
	if err := h.poolSettings.Upsert(&req); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save pool settings")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) GetPoolSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	settings, err := h.poolSettings.ListForUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load pool settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Data source / conference catalog handlers

type dataSourceInfo struct {
	SourceKey string `json:"source_key"`
	Label     string `json:"label"`
}

func (h *Handler) GetDataSources(w http.ResponseWriter, r *http.Request) {
	sources := []dataSourceInfo{{SourceKey: usecase.SourceArXiv, Label: "arXiv"}}
	for _, c := range domain.KnownConferences {
		sources = append(sources, dataSourceInfo{
			SourceKey: domain.NormalizeConferenceKey(c.ID),
			Label:     fmt.Sprintf("%s %d", c.Name, c.Year),
		})
	}
	writeJSON(w, http.StatusOK, sources)
}

func (h *Handler) GetAvailableConferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.KnownConferences)
}

// Factory (job orchestrator) handlers (C9)

func parseFactoryDate(r *http.Request) (time.Time, error) {
	var body struct {
		Date string `json:"date"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}
	if body.Date == "" {
		return newYorkToday().AddDate(0, 0, -3), nil
	}
	return time.Parse("2006-01-02", body.Date)
}

func (h *Handler) PostFactoryJob(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "job")
	targetDate, err := parseFactoryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}

	var jobKind string
	var fn func() (int, error)

	switch kind {
	case "fetch-arxiv":
		jobKind = orchestrator.JobFetchArXiv
		fn = func() (int, error) {
			result, err := h.ingestion.IngestForDate(context.Background(), targetDate)
			if err != nil {
				return 0, err
			}
			return result.Upserted, nil
		}
	case "candidate-pool":
		jobKind = orchestrator.JobGenCandidatePool
		fn = func() (int, error) {
			counts, err := h.pools.BuildAllPools(targetDate)
			if err != nil {
				return 0, err
			}
			total := 0
			for _, c := range counts {
				total += c
			}
			return total, nil
		}
	case "recommendation":
		jobKind = orchestrator.JobGenRecommendation
		fn = func() (int, error) {
			return h.generateRecommendationsForDate(targetDate)
		}
	case "content-gen":
		jobKind = orchestrator.JobGenContent
		fn = func() (int, error) {
			return h.generateContentForDate(targetDate)
		}
	default:
		writeError(w, http.StatusNotFound, "Unknown factory job")
		return
	}

	if err := h.orchestrator.Start(jobKind, targetDate.Format("2006-01-02"), fn); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "job": jobKind})
}

func (h *Handler) generateRecommendationsForDate(targetDate time.Time) (int, error) {
	sourceKey := domain.ArxivDaySourceKey(targetDate)
	candidates, err := h.pools.Read(targetDate, domain.FilterAll)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}
	users, err := h.profiles.ActiveUserIDs()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, userID := range users {
		if _, err := h.ranking.UpsertRanking(userID, sourceKey, targetDate, candidates, true, 0); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

func (h *Handler) generateContentForDate(targetDate time.Time) (int, error) {
	papers, err := h.papers.ListByDate(usecase.SourceArXiv, targetDate)
	if err != nil {
		return 0, err
	}
	if len(papers) == 0 {
		return 0, nil
	}
	ctx := context.Background()
	tOK, _, _ := h.translationPipeline.Run(ctx, papers)
	iOK, _, _ := h.interpretationPipeline.Run(ctx, papers)
	ttsOK, _, _ := h.ttsPipeline.Run(ctx, papers)
	return tOK + iOK + ttsOK, nil
}

func (h *Handler) PostConferenceFactoryJob(w http.ResponseWriter, r *http.Request) {
	confID := chi.URLParam(r, "conf_id")
	phase := chi.URLParam(r, "phase")
	info, found := domain.ConferenceByID(confID)

	jobKind := orchestrator.ConferenceJobKind(confID, phase)
	var fn func() (int, error)

	switch phase {
	case "import":
		if !found {
			writeError(w, http.StatusNotFound, "Unknown conference id")
			return
		}
		fn = func() (int, error) {
			papers, err := h.conference.ImportProceedings(context.Background(), info.ID, info.Name, info.Year)
			if err != nil {
				return 0, err
			}
			return h.papers.BulkUpsert(papers)
		}
	case "pool":
		fn = func() (int, error) {
			sourceKey := domain.NormalizeConferenceKey(confID)
			papers, err := h.papers.ListBySource(sourceKey)
			if err != nil {
				return 0, err
			}
			ids := make([]uuid.UUID, len(papers))
			for i, p := range papers {
				ids[i] = p.ID
			}
			users, err := h.profiles.ActiveUserIDs()
			if err != nil {
				return 0, err
			}
			count := 0
			for _, userID := range users {
				if _, err := h.ranking.UpsertRanking(userID, sourceKey, time.Now(), ids, true, 0); err != nil {
					continue
				}
				count++
			}
			return count, nil
		}
	case "content":
		fn = func() (int, error) {
			papers, err := h.papers.ListBySource(domain.NormalizeConferenceKey(confID))
			if err != nil {
				return 0, err
			}
			if len(papers) == 0 {
				return 0, nil
			}
			ctx := context.Background()
			tOK, _, _ := h.translationPipeline.Run(ctx, papers)
			iOK, _, _ := h.interpretationPipeline.Run(ctx, papers)
			ttsOK, _, _ := h.ttsPipeline.Run(ctx, papers)
			return tOK + iOK + ttsOK, nil
		}
	default:
		writeError(w, http.StatusNotFound, "Unknown conference job phase")
		return
	}

	if err := h.orchestrator.Start(jobKind, confID, fn); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "job": jobKind})
}

func (h *Handler) GetFactoryStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.StatusAll())
}

// TTS serving handlers

type ttsAudioResponse struct {
	AudioURL string `json:"audio_url"`
	Filename string `json:"filename"`
	FileSize int64  `json:"file_size"`
}

func (h *Handler) GetTTSAudio(w http.ResponseWriter, r *http.Request) {
	paperID, err := uuid.Parse(chi.URLParam(r, "paper_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paper ID")
		return
	}

	row, err := h.tts.GetLatest(paperID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load narration")
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "Audio narration not available")
		return
	}

	writeJSON(w, http.StatusOK, ttsAudioResponse{
		AudioURL: "/v1/tts/file/" + row.FilePath,
		Filename: row.FilePath,
		FileSize: row.FileSize,
	})
}

var ttsAllowedExt = map[string]string{
	".opus": "audio/opus",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
}

func (h *Handler) GetTTSFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, allowed := ttsAllowedExt[ext]
	if !allowed || strings.Contains(filename, "/") || strings.Contains(filename, "..") {
		writeError(w, http.StatusBadRequest, "Unsupported audio file")
		return
	}

	path := filepath.Join(h.ttsDirectory, filename)
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Audio file not found")
		return
	}
	defer f.Close()

	if detected := mime.TypeByExtension(ext); detected != "" {
		contentType = detected
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	io.Copy(w, f)
}
