// Package storage persists the deck. Two interchangeable backends implement
// Store: a SQLite database and a JSON flat file used as a fallback.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/flashdeck/internal/config"
	"github.com/conorfennell/flashdeck/internal/domain"
)

// Data is everything a Store holds apart from the overdue history.
type Data struct {
	Cards    []domain.Card
	Sessions []domain.StudySession
}

// Empty reports whether there is nothing stored.
func (d *Data) Empty() bool {
	return d == nil || (len(d.Cards) == 0 && len(d.Sessions) == 0)
}

// Store reads and writes whole collections. Saves replace the previous
// contents of the collection atomically.
type Store interface {
	Load(ctx context.Context) (*Data, error)
	SaveCards(ctx context.Context, cards []domain.Card) error
	SaveSessions(ctx context.Context, sessions []domain.StudySession) error
	LoadOverdueHistory(ctx context.Context) ([]domain.OverdueSnapshot, error)
	SaveOverdueHistory(ctx context.Context, history []domain.OverdueSnapshot) error
	Close() error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*FileStore)(nil)
)

// Open selects the backend named by cfg.Driver. With "auto" it opens the
// SQLite database and falls back to the JSON file when that fails. An empty
// database is seeded once from an existing JSON file.
func Open(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "file":
		return OpenFile(cfg.File)
	case "sqlite":
		return OpenDB(ctx, cfg.Path)
	}

	db, err := OpenDB(ctx, cfg.Path)
	if err != nil {
		log.Warn("SQLite unavailable, falling back to file store", "path", cfg.Path, "file", cfg.File, "error", err)
		return OpenFile(cfg.File)
	}

	if err := migrateFromFile(ctx, db, cfg.File, log); err != nil {
		log.Warn("Failed to migrate file store into SQLite", "file", cfg.File, "error", err)
	}
	return db, nil
}

// migrateFromFile copies the JSON file store into db the first time db is
// opened next to it. Once the database holds data, or a copy has been made,
// the file is never read again; later deletions in the database stick.
func migrateFromFile(ctx context.Context, db *DB, path string, log *slog.Logger) error {
	if !fileExists(path) {
		return nil
	}
	done, err := db.fileImported(ctx)
	if err != nil || done {
		return err
	}

	current, err := db.Load(ctx)
	if err != nil {
		return err
	}
	if !current.Empty() {
		return db.importFile(ctx, path, nil, nil, time.Now())
	}

	fs, err := OpenFile(path)
	if err != nil {
		return err
	}
	defer fs.Close()

	data, err := fs.Load(ctx)
	if err != nil {
		return err
	}
	if data.Empty() {
		return db.importFile(ctx, path, nil, nil, time.Now())
	}
	history, err := fs.LoadOverdueHistory(ctx)
	if err != nil {
		return err
	}

	if err := db.importFile(ctx, path, data, history, time.Now()); err != nil {
		return fmt.Errorf("migrate file store: %w", err)
	}
	log.Info("Migrated file store into SQLite", "file", path, "cards", len(data.Cards), "sessions", len(data.Sessions))
	return nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
