package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/trip-journal/internal/geocode"
	"github.com/zombor/trip-journal/internal/imaging"
	"github.com/zombor/trip-journal/internal/llm"
	"github.com/zombor/trip-journal/internal/news"
	"github.com/zombor/trip-journal/internal/scanning"
	"github.com/zombor/trip-journal/internal/weather"
)

// ErrEmptySession reports a narrative request for a session with no photos
// and no receipts
var ErrEmptySession = errors.New("사진이나 영수증을 먼저 추가해주세요")

// WeatherProvider looks up current weather for a place name
type WeatherProvider interface {
	Lookup(ctx context.Context, place string) (*weather.Report, error)
}

// NewsSearcher runs a recent-news search
type NewsSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]news.Result, error)
}

// Geocoder converts coordinates into a place name
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*geocode.Place, error)
}

// IDGenerator generates unique IDs for sessions and records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles journal operations
type Service struct {
	db          DB
	storage     Storage
	extractor   scanning.Extractor
	weather     WeatherProvider
	searcher    NewsSearcher
	geocoder    Geocoder
	model       llm.Client
	prompts     Prompts
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator, time source
// and prompts
func NewService(db DB, storage Storage, extractor scanning.Extractor, weatherProvider WeatherProvider, searcher NewsSearcher, geocoder Geocoder, model llm.Client) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		extractor:   extractor,
		weather:     weatherProvider,
		searcher:    searcher,
		geocoder:    geocoder,
		model:       model,
		prompts:     DefaultPrompts(),
		idGenerator: &uuidGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, extractor scanning.Extractor, weatherProvider WeatherProvider, searcher NewsSearcher, geocoder Geocoder, model llm.Client, idGen IDGenerator, timeSrc TimeSource) *Service {
	s := NewService(db, storage, extractor, weatherProvider, searcher, geocoder, model)
	s.idGenerator = idGen
	s.timeSource = timeSrc
	return s
}

// SetPrompts overrides the prompt templates. Empty fields keep the defaults.
func (s *Service) SetPrompts(p Prompts) {
	s.prompts = p.merge()
}

// sanitizeFilename cleans up an upload filename. Phone cameras produce long
// names full of characters that don't belong on a server filesystem.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`).ReplaceAllString(base, "")
	base = regexp.MustCompile(`\s+`).ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "upload"
	}

	return base + ext
}

// CreateSession starts a new journal session for a place
func (s *Service) CreateSession(place string) (*Session, error) {
	now := s.timeSource.Now()
	session := &Session{
		ID:        s.idGenerator.Generate(),
		Place:     place,
		Receipts:  []Receipt{},
		Photos:    []Photo{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.SaveSession(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// ListSessions returns every stored session
func (s *Service) ListSessions() ([]*Session, error) {
	sessions, err := s.db.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// GetSession retrieves a session by ID
func (s *Service) GetSession(id string) (*Session, error) {
	session, err := s.db.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return session, nil
}

// SetPlace updates the session's place name
func (s *Service) SetPlace(sessionID, place string) (*Session, error) {
	session, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	session.Place = place
	session.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveSession(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// ResetSession clears both collections and drops the session's stored images
func (s *Service) ResetSession(sessionID string) (*Session, error) {
	session, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	if err := s.storage.DeleteAll(sessionID); err != nil {
		slog.Warn("Failed to delete session images", "session", sessionID, "error", err)
	}

	session.Receipts = []Receipt{}
	session.Photos = []Photo{}
	session.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveSession(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session and everything it uploaded
func (s *Service) DeleteSession(sessionID string) error {
	if err := s.storage.DeleteAll(sessionID); err != nil {
		slog.Warn("Failed to delete session images", "session", sessionID, "error", err)
	}
	if err := s.db.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Weather fetches current weather for a place and renders the summary line
func (s *Service) Weather(ctx context.Context, place string) (string, error) {
	report, err := s.weather.Lookup(ctx, place)
	if err != nil {
		return "", err
	}
	return report.Summary(), nil
}

// Briefing is an AI safety assessment with the news items behind it
type Briefing struct {
	Analysis string        `json:"analysis"`
	News     []news.Result `json:"news"`
}

// SafetyBriefing searches recent news about a place and asks the model for a
// short safety assessment. A failed or empty search degrades to the no-news
// sentinel; a failed model call is fatal to the request since safety content
// must not be fabricated locally.
func (s *Service) SafetyBriefing(ctx context.Context, place string) (*Briefing, error) {
	results, err := s.searcher.Search(ctx, place+" travel safety", 5)
	if err != nil {
		slog.Warn("News search failed, continuing without results", "place", place, "error", err)
		results = nil
	}

	titles := NoNewsSentinel
	if len(results) > 0 {
		parts := make([]string, 0, len(results))
		for _, r := range results {
			if r.Title != "" {
				parts = append(parts, r.Title)
			}
		}
		if len(parts) > 0 {
			titles = strings.Join(parts, " | ")
		}
	}

	analysis, err := s.model.Complete(ctx, fmt.Sprintf(s.prompts.Briefing, place, titles), llm.Options{})
	if err != nil {
		return nil, fmt.Errorf("analyzing safety news: %w", err)
	}

	if results == nil {
		results = []news.Result{}
	}
	return &Briefing{Analysis: analysis, News: results}, nil
}

// ScanReceipt runs OCR and field extraction over a receipt upload without
// storing anything. The caller confirms (and possibly edits) the fields
// before adding the record.
func (s *Service) ScanReceipt(ctx context.Context, data []byte, contentType string) (*scanning.ReceiptFields, error) {
	fields, err := s.extractor.ExtractFields(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt", "content_type", contentType, "file_size", len(data), "error", err)
		return nil, err
	}
	return fields, nil
}

// ReceiptUpload is a confirmed receipt ready to be added to a session
type ReceiptUpload struct {
	Filename    string
	Data        []byte
	ContentType string
	Item        string
	Amount      string
	Date        string
	Time        string
}

// AddReceipt stores the receipt image and appends the record to the session
func (s *Service) AddReceipt(sessionID string, upload ReceiptUpload) (*Receipt, error) {
	if upload.Item == "" {
		return nil, fmt.Errorf("item description is required")
	}

	session, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	id := s.idGenerator.Generate()
	ref, err := s.storage.Save(sessionID, fmt.Sprintf("%s_%s", id, sanitizeFilename(upload.Filename)), upload.Data)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	receipt := Receipt{
		ID:          id,
		ImageRef:    ref,
		ContentType: upload.ContentType,
		Item:        upload.Item,
		Amount:      upload.Amount,
		Date:        upload.Date,
		Time:        upload.Time,
		AddedAt:     s.timeSource.Now(),
	}

	session.Receipts = append(session.Receipts, receipt)
	session.UpdatedAt = receipt.AddedAt
	if err := s.db.SaveSession(session); err != nil {
		s.storage.Delete(sessionID, ref)
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return &receipt, nil
}

// DeleteReceipt removes a receipt record and its image
func (s *Service) DeleteReceipt(sessionID, receiptID string) error {
	session, err := s.db.GetSession(sessionID)
	if err != nil {
		return fmt.Errorf("getting session: %w", err)
	}

	idx := -1
	for i, r := range session.Receipts {
		if r.ID == receiptID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("receipt not found: %s", receiptID)
	}

	if err := s.storage.Delete(sessionID, session.Receipts[idx].ImageRef); err != nil {
		slog.Warn("Failed to delete image", "ref", session.Receipts[idx].ImageRef, "error", err)
	}

	session.Receipts = append(session.Receipts[:idx], session.Receipts[idx+1:]...)
	session.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveSession(session); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// ReceiptImage retrieves the stored image for a receipt
func (s *Service) ReceiptImage(sessionID, receiptID string) ([]byte, string, error) {
	session, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("getting session: %w", err)
	}

	for _, r := range session.Receipts {
		if r.ID == receiptID {
			data, err := s.storage.Get(sessionID, r.ImageRef)
			if err != nil {
				return nil, "", fmt.Errorf("getting image: %w", err)
			}
			return data, r.ContentType, nil
		}
	}
	return nil, "", fmt.Errorf("receipt not found: %s", receiptID)
}

// PhotoInsight is what a photo's metadata revealed. Absent data leaves
// fields empty; geocoding failure degrades to the location sentinel.
type PhotoInsight struct {
	TakenAt   string   `json:"taken_at,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Location  string   `json:"location,omitempty"`
}

// InspectPhoto reads capture time and GPS coordinates from a photo and
// resolves the coordinates into a place name. Nothing here is an error: a
// photo without EXIF yields an empty insight, and a failed geocoder call
// yields the no-information sentinel.
func (s *Service) InspectPhoto(ctx context.Context, data []byte) *PhotoInsight {
	insight := &PhotoInsight{}

	meta := imaging.ReadMetadata(data)
	if meta.TakenAt != nil {
		insight.TakenAt = meta.TakenAt.Format("2006-01-02 15:04")
	}
	insight.Latitude = meta.Latitude
	insight.Longitude = meta.Longitude

	if meta.Latitude == nil || meta.Longitude == nil {
		return insight
	}

	place, err := s.geocoder.Reverse(ctx, *meta.Latitude, *meta.Longitude)
	if err != nil {
		slog.Warn("Reverse geocoding failed", "error", err)
		insight.Location = LocationUnknownSentinel
		return insight
	}

	insight.Location = place.Name
	if insight.Location == "" {
		insight.Location = LocationUnknownSentinel
	}
	return insight
}

// PhotoUpload is a photo ready to be added to a session
type PhotoUpload struct {
	Filename    string
	Data        []byte
	ContentType string
	Caption     string
	TakenAt     string
	Location    string
}

// AddPhoto stores the photo and appends the record to the session
func (s *Service) AddPhoto(sessionID string, upload PhotoUpload) (*Photo, error) {
	session, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	caption := upload.Caption
	if caption == "" {
		caption = DefaultPhotoCaption
	}

	id := s.idGenerator.Generate()
	ref, err := s.storage.Save(sessionID, fmt.Sprintf("%s_%s", id, sanitizeFilename(upload.Filename)), upload.Data)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	photo := Photo{
		ID:          id,
		ImageRef:    ref,
		ContentType: upload.ContentType,
		Caption:     caption,
		TakenAt:     upload.TakenAt,
		Location:    upload.Location,
		AddedAt:     s.timeSource.Now(),
	}

	session.Photos = append(session.Photos, photo)
	session.UpdatedAt = photo.AddedAt
	if err := s.db.SaveSession(session); err != nil {
		s.storage.Delete(sessionID, ref)
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return &photo, nil
}

// DeletePhoto removes a photo record and its image
func (s *Service) DeletePhoto(sessionID, photoID string) error {
	session, err := s.db.GetSession(sessionID)
	if err != nil {
		return fmt.Errorf("getting session: %w", err)
	}

	idx := -1
	for i, p := range session.Photos {
		if p.ID == photoID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("photo not found: %s", photoID)
	}

	if err := s.storage.Delete(sessionID, session.Photos[idx].ImageRef); err != nil {
		slog.Warn("Failed to delete image", "ref", session.Photos[idx].ImageRef, "error", err)
	}

	session.Photos = append(session.Photos[:idx], session.Photos[idx+1:]...)
	session.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveSession(session); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// PhotoImage retrieves the stored image for a photo
func (s *Service) PhotoImage(sessionID, photoID string) ([]byte, string, error) {
	session, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("getting session: %w", err)
	}

	for _, p := range session.Photos {
		if p.ID == photoID {
			data, err := s.storage.Get(sessionID, p.ImageRef)
			if err != nil {
				return nil, "", fmt.Errorf("getting image: %w", err)
			}
			return data, p.ContentType, nil
		}
	}
	return nil, "", fmt.Errorf("photo not found: %s", photoID)
}

// Narrative is the generated diary entry plus the spending recap rendered
// under it
type Narrative struct {
	Text     string   `json:"text"`
	Spending []string `json:"spending"`
}

// ComposeNarrative assembles the session's captions and spending lines into
// one prompt and asks the model for a short, fact-grounded diary entry
func (s *Service) ComposeNarrative(ctx context.Context, sessionID string) (*Narrative, error) {
	session, err := s.db.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	if len(session.Photos) == 0 && len(session.Receipts) == 0 {
		return nil, ErrEmptySession
	}

	photoSection := noneSection
	if len(session.Photos) > 0 {
		lines := make([]string, 0, len(session.Photos))
		for _, p := range session.Photos {
			lines = append(lines, photoLine(p))
		}
		photoSection = strings.Join(lines, "\n")
	}

	spending := make([]string, 0, len(session.Receipts))
	receiptSection := noneSection
	if len(session.Receipts) > 0 {
		lines := make([]string, 0, len(session.Receipts))
		for _, r := range session.Receipts {
			lines = append(lines, receiptLine(r))
			spending = append(spending, fmt.Sprintf("%s: %s", r.Item, r.Amount))
		}
		receiptSection = strings.Join(lines, "\n")
	}

	prompt := fmt.Sprintf(s.prompts.Narrative, session.Place, photoSection, receiptSection)
	text, err := s.model.Complete(ctx, prompt, llm.Options{
		Temperature:     llm.Temperature(0.3),
		MaxOutputTokens: llm.MaxTokens(700),
	})
	if err != nil {
		return nil, fmt.Errorf("composing narrative: %w", err)
	}

	return &Narrative{Text: text, Spending: spending}, nil
}

// photoLine renders one photo for the narrative prompt
func photoLine(p Photo) string {
	line := "- " + p.Caption
	var notes []string
	if p.TakenAt != "" {
		notes = append(notes, p.TakenAt)
	}
	if p.Location != "" && p.Location != LocationUnknownSentinel {
		notes = append(notes, p.Location)
	}
	if len(notes) > 0 {
		line += " (" + strings.Join(notes, ", ") + ")"
	}
	return line
}

// receiptLine renders one receipt for the narrative prompt
func receiptLine(r Receipt) string {
	line := fmt.Sprintf("- %s: %s", r.Item, r.Amount)
	var notes []string
	if r.Date != "" {
		notes = append(notes, r.Date)
	}
	if r.Time != "" {
		notes = append(notes, r.Time)
	}
	if len(notes) > 0 {
		line += " (" + strings.Join(notes, " ") + ")"
	}
	return line
}
