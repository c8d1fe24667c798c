package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// FileSchemaVersion is the current JSON file schema version.
const FileSchemaVersion = 1

// ErrUnsupportedVersion is returned for files written by a newer schema.
var ErrUnsupportedVersion = errors.New("unsupported file schema version")

// FileStore keeps the whole deck in a single JSON document. Every save
// rewrites the document through a temporary file and a rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type fileDocument struct {
	Version        int            `json:"version"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	Flashcards     []fileCard     `json:"flashcards"`
	StudySessions  []fileSession  `json:"studySessions"`
	OverdueHistory []fileSnapshot `json:"overdueHistory"`
}

type fileSnapshot struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type fileCard struct {
	ID             string           `json:"id"`
	Term           string           `json:"term"`
	Definition     string           `json:"definition"`
	CreatedAt      fileTime         `json:"createdAt"`
	CurrentLevel   int              `json:"currentLevel"`
	NextReviewDate fileTime         `json:"nextReviewDate"`
	IsNew          bool             `json:"isNew"`
	Status         domain.Status    `json:"status"`
	Repetitions    []fileRepetition `json:"repetitions"`
}

type fileRepetition struct {
	Level        int      `json:"level"`
	Date         fileTime `json:"date"`
	Correct      bool     `json:"correct"`
	ResponseTime int64    `json:"responseTimeNs"`
}

type fileSession struct {
	ID             string   `json:"id"`
	Date           fileTime `json:"date"`
	CardsStudied   int      `json:"cardsStudied"`
	CorrectAnswers int      `json:"correctAnswers"`
	TotalTime      float64  `json:"totalTime"`
	OverdueReviews int      `json:"overdueReviews"`
}

// OpenFile returns a store backed by the JSON document at path. The
// document does not need to exist yet.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create file store directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Close is a no-op; the file is not held open between calls.
func (s *FileStore) Close() error { return nil }

// Load reads every card and study session.
func (s *FileStore) Load(ctx context.Context) (*Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	data := &Data{
		Cards:    make([]domain.Card, 0, len(doc.Flashcards)),
		Sessions: make([]domain.StudySession, 0, len(doc.StudySessions)),
	}
	for _, fc := range doc.Flashcards {
		data.Cards = append(data.Cards, fc.toDomain())
	}
	for _, fs := range doc.StudySessions {
		data.Sessions = append(data.Sessions, domain.StudySession{
			ID:             fs.ID,
			Date:           fs.Date.Time,
			CardsStudied:   fs.CardsStudied,
			CorrectAnswers: fs.CorrectAnswers,
			TotalTime:      fs.TotalTime,
			OverdueReviews: fs.OverdueReviews,
		})
	}
	return data, nil
}

// SaveCards replaces every stored card with cards.
func (s *FileStore) SaveCards(ctx context.Context, cards []domain.Card) error {
	return s.update(ctx, func(doc *fileDocument) {
		doc.Flashcards = make([]fileCard, 0, len(cards))
		for _, c := range cards {
			doc.Flashcards = append(doc.Flashcards, newFileCard(c))
		}
	})
}

// SaveSessions replaces every stored study session with sessions.
func (s *FileStore) SaveSessions(ctx context.Context, sessions []domain.StudySession) error {
	return s.update(ctx, func(doc *fileDocument) {
		doc.StudySessions = make([]fileSession, 0, len(sessions))
		for _, ss := range sessions {
			doc.StudySessions = append(doc.StudySessions, fileSession{
				ID:             ss.ID,
				Date:           fileTime{ss.Date},
				CardsStudied:   ss.CardsStudied,
				CorrectAnswers: ss.CorrectAnswers,
				TotalTime:      ss.TotalTime,
				OverdueReviews: ss.OverdueReviews,
			})
		}
	})
}

// LoadOverdueHistory returns the stored snapshots in file order.
func (s *FileStore) LoadOverdueHistory(ctx context.Context) ([]domain.OverdueSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	history := make([]domain.OverdueSnapshot, 0, len(doc.OverdueHistory))
	for _, fs := range doc.OverdueHistory {
		history = append(history, domain.OverdueSnapshot{Date: fs.Date, Count: fs.Count})
	}
	return history, nil
}

// SaveOverdueHistory replaces the stored snapshots with history.
func (s *FileStore) SaveOverdueHistory(ctx context.Context, history []domain.OverdueSnapshot) error {
	return s.update(ctx, func(doc *fileDocument) {
		doc.OverdueHistory = make([]fileSnapshot, 0, len(history))
		for _, h := range history {
			doc.OverdueHistory = append(doc.OverdueHistory, fileSnapshot{Date: h.Date, Count: h.Count})
		}
	})
}

func (s *FileStore) update(ctx context.Context, fn func(doc *fileDocument)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	fn(doc)
	return s.write(doc)
}

func (s *FileStore) read() (*fileDocument, error) {
	doc := &fileDocument{Version: FileSchemaVersion}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file store: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("failed to parse file store %s: %w", s.path, err)
	}
	if doc.Version > FileSchemaVersion {
		return nil, fmt.Errorf("%w: file has version %d, supported up to %d", ErrUnsupportedVersion, doc.Version, FileSchemaVersion)
	}
	doc.Version = FileSchemaVersion
	return doc, nil
}

func (s *FileStore) write(doc *fileDocument) error {
	doc.UpdatedAt = time.Now()
	if doc.Flashcards == nil {
		doc.Flashcards = []fileCard{}
	}
	if doc.StudySessions == nil {
		doc.StudySessions = []fileSession{}
	}
	if doc.OverdueHistory == nil {
		doc.OverdueHistory = []fileSnapshot{}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode file store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".flashdeck-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace file store: %w", err)
	}
	return nil
}

func newFileCard(c domain.Card) fileCard {
	fc := fileCard{
		ID:             c.ID,
		Term:           c.Term,
		Definition:     c.Definition,
		CreatedAt:      fileTime{c.CreatedAt},
		CurrentLevel:   c.CurrentLevel,
		NextReviewDate: fileTime{c.NextReviewDate},
		IsNew:          c.IsNew,
		Status:         c.Status,
		Repetitions:    make([]fileRepetition, 0, len(c.Repetitions)),
	}
	for _, r := range c.Repetitions {
		fc.Repetitions = append(fc.Repetitions, fileRepetition{
			Level:        r.Level,
			Date:         fileTime{r.Date},
			Correct:      r.Correct,
			ResponseTime: int64(r.ResponseTime),
		})
	}
	return fc
}

func (fc fileCard) toDomain() domain.Card {
	c := domain.Card{
		ID:             fc.ID,
		Term:           fc.Term,
		Definition:     fc.Definition,
		CreatedAt:      fc.CreatedAt.Time,
		CurrentLevel:   fc.CurrentLevel,
		NextReviewDate: fc.NextReviewDate.Time,
		IsNew:          fc.IsNew,
		Status:         fc.Status,
		Repetitions:    make([]domain.Repetition, 0, len(fc.Repetitions)),
	}
	for _, r := range fc.Repetitions {
		c.Repetitions = append(c.Repetitions, domain.Repetition{
			Level:        r.Level,
			Date:         r.Date.Time,
			Correct:      r.Correct,
			ResponseTime: time.Duration(r.ResponseTime),
		})
	}
	return c
}

// fileTime is written as RFC 3339 and read leniently: a value that does not
// parse (or null) becomes the zero time instead of failing the whole load.
// Numbers are read as milliseconds since the Unix epoch.
type fileTime struct {
	time.Time
}

func (t fileTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *fileTime) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = parsed
		}
		return nil
	}

	var ms float64
	if err := json.Unmarshal(b, &ms); err == nil && ms != 0 {
		t.Time = time.UnixMilli(int64(ms))
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
