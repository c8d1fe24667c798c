package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/config"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/logger"
)

var t0 = time.Date(2025, 6, 15, 10, 30, 0, 123456789, time.UTC)

func sampleCards() []domain.Card {
	learned := domain.NewCard("Hund", "dog", t0.AddDate(0, 0, -40))
	learned.CurrentLevel = 5
	learned.IsNew = false
	learned.Status = domain.StatusLearned
	learned.NextReviewDate = t0.AddDate(0, 0, 3)
	learned.Repetitions = []domain.Repetition{
		{Level: 0, Date: t0.AddDate(0, 0, -40), Correct: true, ResponseTime: 1500 * time.Millisecond},
		{Level: 1, Date: t0.AddDate(0, 0, -39), Correct: false, ResponseTime: 2*time.Second + 7},
	}

	fresh := domain.NewCard("Katze", "cat", t0)

	broken := domain.NewCard("Maus", "mouse", t0)
	broken.NextReviewDate = time.Time{}

	return []domain.Card{learned, fresh, broken}
}

func sampleSessions() []domain.StudySession {
	return []domain.StudySession{
		{ID: "s1", Date: t0.Add(-time.Hour), CardsStudied: 10, CorrectAnswers: 7, TotalTime: 4.25, OverdueReviews: 2},
		{ID: "s2", Date: t0, CardsStudied: 3, CorrectAnswers: 3, TotalTime: 0.5},
	}
}

type opener func(t *testing.T) Store

func backends() map[string]opener {
	return map[string]opener{
		"sqlite": func(t *testing.T) Store {
			db, err := OpenDB(context.Background(), filepath.Join(t.TempDir(), "deck.db"))
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			return db
		},
		"file": func(t *testing.T) Store {
			fs, err := OpenFile(filepath.Join(t.TempDir(), "nested", "deck.json"))
			require.NoError(t, err)
			return fs
		},
	}
}

func assertCardsEqual(t *testing.T, want, got []domain.Card) {
	t.Helper()
	require.Len(t, got, len(want))
	byID := make(map[string]domain.Card, len(got))
	for _, c := range got {
		byID[c.ID] = c
	}
	for _, w := range want {
		g, ok := byID[w.ID]
		require.True(t, ok, "card %s missing", w.ID)
		assert.Equal(t, w.Term, g.Term)
		assert.Equal(t, w.Definition, g.Definition)
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt), "created at %v != %v", w.CreatedAt, g.CreatedAt)
		assert.True(t, w.NextReviewDate.Equal(g.NextReviewDate), "next review %v != %v", w.NextReviewDate, g.NextReviewDate)
		assert.Equal(t, w.NextReviewDate.IsZero(), g.NextReviewDate.IsZero())
		assert.Equal(t, w.CurrentLevel, g.CurrentLevel)
		assert.Equal(t, w.IsNew, g.IsNew)
		assert.Equal(t, w.Status, g.Status)
		require.Len(t, g.Repetitions, len(w.Repetitions))
		assert.NotNil(t, g.Repetitions)
		for i := range w.Repetitions {
			assert.Equal(t, w.Repetitions[i].Level, g.Repetitions[i].Level)
			assert.Equal(t, w.Repetitions[i].Correct, g.Repetitions[i].Correct)
			assert.Equal(t, w.Repetitions[i].ResponseTime, g.Repetitions[i].ResponseTime)
			assert.True(t, w.Repetitions[i].Date.Equal(g.Repetitions[i].Date))
		}
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)

			data, err := store.Load(ctx)
			require.NoError(t, err)
			assert.True(t, data.Empty())
			assert.NotNil(t, data.Cards)

			cards := sampleCards()
			sessions := sampleSessions()
			require.NoError(t, store.SaveCards(ctx, cards))
			require.NoError(t, store.SaveSessions(ctx, sessions))

			data, err = store.Load(ctx)
			require.NoError(t, err)
			assertCardsEqual(t, cards, data.Cards)

			require.Len(t, data.Sessions, 2)
			for i, s := range sessions {
				got := data.Sessions[i]
				assert.Equal(t, s.ID, got.ID)
				assert.True(t, s.Date.Equal(got.Date))
				assert.Equal(t, s.CardsStudied, got.CardsStudied)
				assert.Equal(t, s.CorrectAnswers, got.CorrectAnswers)
				assert.InDelta(t, s.TotalTime, got.TotalTime, 1e-9)
				assert.Equal(t, s.OverdueReviews, got.OverdueReviews)
			}
		})
	}
}

func TestStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			cards := sampleCards()
			require.NoError(t, store.SaveCards(ctx, cards))
			require.NoError(t, store.SaveSessions(ctx, sampleSessions()))

			require.NoError(t, store.SaveCards(ctx, cards[1:2]))

			data, err := store.Load(ctx)
			require.NoError(t, err)
			assertCardsEqual(t, cards[1:2], data.Cards)
			assert.Len(t, data.Sessions, 2, "saving cards leaves sessions alone")

			require.NoError(t, store.SaveCards(ctx, nil))
			data, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, data.Cards)
		})
	}
}

func TestStoreOverdueHistory(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)

			history, err := store.LoadOverdueHistory(ctx)
			require.NoError(t, err)
			assert.Empty(t, history)

			want := []domain.OverdueSnapshot{{Date: "2025-06-14", Count: 3}, {Date: "2025-06-15", Count: 5}}
			require.NoError(t, store.SaveOverdueHistory(ctx, want))
			require.NoError(t, store.SaveCards(ctx, sampleCards()))

			history, err = store.LoadOverdueHistory(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, history)
		})
	}
}

func TestFileStoreLenientDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.json")
	doc := `{
  "flashcards": [
    {"id": "a", "term": "eins", "definition": "one", "createdAt": 1718447400000,
     "currentLevel": 2, "nextReviewDate": "not a date", "isNew": false, "repetitions": []},
    {"id": "b", "term": "zwei", "definition": "two", "createdAt": "2025-06-15T10:30:00Z",
     "currentLevel": 0, "nextReviewDate": null, "isNew": true, "status": "learned"}
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	fs, err := OpenFile(path)
	require.NoError(t, err)
	data, err := fs.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Cards, 2)

	a, b := data.Cards[0], data.Cards[1]
	assert.True(t, a.NextReviewDate.IsZero())
	assert.Equal(t, time.UnixMilli(1718447400000).UTC(), a.CreatedAt.UTC())
	assert.Equal(t, domain.StatusActive, a.Status, "missing status reads as active")
	assert.Equal(t, domain.StatusLearned, b.Status)
	assert.True(t, b.NextReviewDate.IsZero())
	assert.NotNil(t, b.Repetitions)
	assert.Empty(t, data.Sessions)
}

func TestFileStoreRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99}`), 0o644))

	fs, err := OpenFile(path)
	require.NoError(t, err)
	_, err = fs.Load(context.Background())
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fs, err := OpenFile(filepath.Join(dir, "deck.json"))
	require.NoError(t, err)
	require.NoError(t, fs.SaveCards(context.Background(), sampleCards()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "deck.json", entries[0].Name())
}

func TestOpenAutoMigratesFileIntoSQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.StorageConfig{
		Driver: "auto",
		Path:   filepath.Join(dir, "deck.db"),
		File:   filepath.Join(dir, "deck.json"),
	}

	legacy, err := OpenFile(cfg.File)
	require.NoError(t, err)
	cards := sampleCards()
	require.NoError(t, legacy.SaveCards(ctx, cards))
	require.NoError(t, legacy.SaveSessions(ctx, sampleSessions()))
	require.NoError(t, legacy.SaveOverdueHistory(ctx, []domain.OverdueSnapshot{{Date: "2025-06-15", Count: 1}}))

	store, err := Open(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer store.Close()
	require.IsType(t, &DB{}, store)

	data, err := store.Load(ctx)
	require.NoError(t, err)
	assertCardsEqual(t, cards, data.Cards)
	assert.Len(t, data.Sessions, 2)

	history, err := store.LoadOverdueHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.OverdueSnapshot{{Date: "2025-06-15", Count: 1}}, history)
}

func TestOpenAutoDoesNotOverwriteExistingDatabase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.StorageConfig{Driver: "auto", Path: filepath.Join(dir, "deck.db"), File: filepath.Join(dir, "deck.json")}

	db, err := OpenDB(ctx, cfg.Path)
	require.NoError(t, err)
	existing := sampleCards()[1:2]
	require.NoError(t, db.SaveCards(ctx, existing))
	require.NoError(t, db.Close())

	legacy, err := OpenFile(cfg.File)
	require.NoError(t, err)
	require.NoError(t, legacy.SaveCards(ctx, sampleCards()))

	store, err := Open(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer store.Close()

	data, err := store.Load(ctx)
	require.NoError(t, err)
	assertCardsEqual(t, existing, data.Cards)
}

func TestOpenAutoMigratesFileOnlyOnce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.StorageConfig{Driver: "auto", Path: filepath.Join(dir, "deck.db"), File: filepath.Join(dir, "deck.json")}

	legacy, err := OpenFile(cfg.File)
	require.NoError(t, err)
	require.NoError(t, legacy.SaveCards(ctx, sampleCards()))

	store, err := Open(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	data, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, data.Cards, 3)

	// Deleting everything must survive the next open.
	require.NoError(t, store.SaveCards(ctx, []domain.Card{}))
	require.NoError(t, store.Close())

	store, err = Open(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer store.Close()
	data, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, data.Cards)
}

func TestOpenAutoSkipsFileForUsedDatabase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.StorageConfig{Driver: "auto", Path: filepath.Join(dir, "deck.db"), File: filepath.Join(dir, "deck.json")}

	db, err := OpenDB(ctx, cfg.Path)
	require.NoError(t, err)
	require.NoError(t, db.SaveCards(ctx, sampleCards()[1:2]))
	require.NoError(t, db.Close())

	legacy, err := OpenFile(cfg.File)
	require.NoError(t, err)
	require.NoError(t, legacy.SaveCards(ctx, sampleCards()))

	// The first open sees a non-empty database and leaves the file alone.
	store, err := Open(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, store.SaveCards(ctx, []domain.Card{}))
	require.NoError(t, store.Close())

	store, err = Open(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer store.Close()
	data, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, data.Cards)
}

func TestOpenAutoFallsBackToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.StorageConfig{
		Driver: "auto",
		// A directory cannot be opened as a database file.
		Path: dir,
		File: filepath.Join(dir, "deck.json"),
	}

	store, err := Open(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &FileStore{}, store)
}

func TestOpenExplicitDriver(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(ctx, config.StorageConfig{Driver: "file", Path: filepath.Join(dir, "x.db"), File: filepath.Join(dir, "x.json")}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(ctx, config.StorageConfig{Driver: "sqlite", Path: filepath.Join(dir, "x.db"), File: filepath.Join(dir, "x.json")}, logger.Discard())
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &DB{}, store)
}

func TestSources(t *testing.T) {
	ctx := context.Background()
	db, err := OpenDB(ctx, filepath.Join(t.TempDir(), "deck.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.FindSourceByPath(ctx, "words")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, db.TouchSource(ctx, "words", 4, t0))
	require.NoError(t, db.TouchSource(ctx, "words", 6, t0.Add(time.Hour)))
	require.NoError(t, db.TouchSource(ctx, "https://github.com/example/vocab.git", 1, t0))

	src, err := db.FindSourceByPath(ctx, "words")
	require.NoError(t, err)
	assert.Equal(t, 6, src.Cards)
	assert.True(t, src.LastScanned.Equal(t0.Add(time.Hour)))

	all, err := db.GetAllSources(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "https://github.com/example/vocab.git", all[0].Path)
}
