package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/flashdeck/internal/domain"
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// OpenDB creates a new database connection and ensures the schema is up to date.
func OpenDB(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", withPragmas(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run the migrations to create tables if they don't exist.
	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)

	return &DB{conn: conn}, nil
}

// withPragmas turns a file path into a DSN that enables foreign keys and a
// busy timeout on every connection.
func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Load reads every card with its repetition log, and every study session.
func (db *DB) Load(ctx context.Context) (*Data, error) {
	cards, err := db.loadCards(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := db.loadSessions(ctx)
	if err != nil {
		return nil, err
	}
	return &Data{Cards: cards, Sessions: sessions}, nil
}

func (db *DB) loadCards(ctx context.Context) ([]domain.Card, error) {
	query, args, err := sq.
		Select("id", "term", "definition", "created_at", "current_level", "next_review_date", "is_new", "status").
		From("cards").
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build cards query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		var (
			c                 domain.Card
			createdAt, nextAt int64
			status            string
		)
		if err := rows.Scan(&c.ID, &c.Term, &c.Definition, &createdAt, &c.CurrentLevel, &nextAt, &c.IsNew, &status); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		c.CreatedAt = fromNanos(createdAt)
		c.NextReviewDate = fromNanos(nextAt)
		c.Status = domain.ParseStatus(status)
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cards: %w", err)
	}

	reps, err := db.loadRepetitions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].Repetitions = reps[cards[i].ID]
		if cards[i].Repetitions == nil {
			cards[i].Repetitions = []domain.Repetition{}
		}
	}
	return cards, nil
}

func (db *DB) loadRepetitions(ctx context.Context) (map[string][]domain.Repetition, error) {
	query, args, err := sq.
		Select("card_id", "level", "date", "correct", "response_time_ns").
		From("repetitions").
		OrderBy("card_id", "seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build repetitions query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get repetitions: %w", err)
	}
	defer rows.Close()

	reps := make(map[string][]domain.Repetition)
	for rows.Next() {
		var (
			cardID       string
			r            domain.Repetition
			date, rtNano int64
		)
		if err := rows.Scan(&cardID, &r.Level, &date, &r.Correct, &rtNano); err != nil {
			return nil, fmt.Errorf("failed to scan repetition row: %w", err)
		}
		r.Date = fromNanos(date)
		r.ResponseTime = time.Duration(rtNano)
		reps[cardID] = append(reps[cardID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read repetitions: %w", err)
	}
	return reps, nil
}

func (db *DB) loadSessions(ctx context.Context) ([]domain.StudySession, error) {
	query, args, err := sq.
		Select("id", "date", "cards_studied", "correct_answers", "total_time", "overdue_reviews").
		From("study_sessions").
		OrderBy("date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sessions query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get study sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.StudySession{}
	for rows.Next() {
		var (
			s    domain.StudySession
			date int64
		)
		if err := rows.Scan(&s.ID, &date, &s.CardsStudied, &s.CorrectAnswers, &s.TotalTime, &s.OverdueReviews); err != nil {
			return nil, fmt.Errorf("failed to scan study session row: %w", err)
		}
		s.Date = fromNanos(date)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read study sessions: %w", err)
	}
	return sessions, nil
}

// SaveCards replaces every stored card and repetition with cards.
func (db *DB) SaveCards(ctx context.Context, cards []domain.Card) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return writeCards(ctx, tx, cards)
	})
}

func writeCards(ctx context.Context, tx *sql.Tx, cards []domain.Card) error {
	if err := exec(ctx, tx, sq.Delete("repetitions")); err != nil {
		return fmt.Errorf("failed to clear repetitions: %w", err)
	}
	if err := exec(ctx, tx, sq.Delete("cards")); err != nil {
		return fmt.Errorf("failed to clear cards: %w", err)
	}

	for _, c := range cards {
		insert := sq.Insert("cards").
			Columns("id", "term", "definition", "created_at", "current_level", "next_review_date", "is_new", "status").
			Values(c.ID, c.Term, c.Definition, toNanos(c.CreatedAt), c.CurrentLevel, toNanos(c.NextReviewDate), c.IsNew, c.Status.String())
		if err := exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("failed to insert card %s: %w", c.ID, err)
		}

		for seq, r := range c.Repetitions {
			insert := sq.Insert("repetitions").
				Columns("card_id", "seq", "level", "date", "correct", "response_time_ns").
				Values(c.ID, seq, r.Level, toNanos(r.Date), r.Correct, int64(r.ResponseTime))
			if err := exec(ctx, tx, insert); err != nil {
				return fmt.Errorf("failed to insert repetition %d of card %s: %w", seq, c.ID, err)
			}
		}
	}
	return nil
}

// SaveSessions replaces every stored study session with sessions.
func (db *DB) SaveSessions(ctx context.Context, sessions []domain.StudySession) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return writeSessions(ctx, tx, sessions)
	})
}

func writeSessions(ctx context.Context, tx *sql.Tx, sessions []domain.StudySession) error {
	if err := exec(ctx, tx, sq.Delete("study_sessions")); err != nil {
		return fmt.Errorf("failed to clear study sessions: %w", err)
	}
	for _, s := range sessions {
		insert := sq.Insert("study_sessions").
			Columns("id", "date", "cards_studied", "correct_answers", "total_time", "overdue_reviews").
			Values(s.ID, toNanos(s.Date), s.CardsStudied, s.CorrectAnswers, s.TotalTime, s.OverdueReviews)
		if err := exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("failed to insert study session %s: %w", s.ID, err)
		}
	}
	return nil
}

// LoadOverdueHistory returns the stored snapshots, oldest day first.
func (db *DB) LoadOverdueHistory(ctx context.Context) ([]domain.OverdueSnapshot, error) {
	query, args, err := sq.Select("date", "count").From("overdue_history").OrderBy("date").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build overdue history query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get overdue history: %w", err)
	}
	defer rows.Close()

	history := []domain.OverdueSnapshot{}
	for rows.Next() {
		var s domain.OverdueSnapshot
		if err := rows.Scan(&s.Date, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan overdue snapshot row: %w", err)
		}
		history = append(history, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read overdue history: %w", err)
	}
	return history, nil
}

// SaveOverdueHistory replaces the stored snapshots with history.
func (db *DB) SaveOverdueHistory(ctx context.Context, history []domain.OverdueSnapshot) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		return writeOverdueHistory(ctx, tx, history)
	})
}

func writeOverdueHistory(ctx context.Context, tx *sql.Tx, history []domain.OverdueSnapshot) error {
	if err := exec(ctx, tx, sq.Delete("overdue_history")); err != nil {
		return fmt.Errorf("failed to clear overdue history: %w", err)
	}
	for _, s := range history {
		insert := sq.Insert("overdue_history").Columns("date", "count").Values(s.Date, s.Count)
		if err := exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("failed to insert overdue snapshot %s: %w", s.Date, err)
		}
	}
	return nil
}

// fileImported reports whether the database was ever seeded from, or
// checked against, a JSON file store.
func (db *DB) fileImported(ctx context.Context) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").From("file_imports").ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build file imports query: %w", err)
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count file imports: %w", err)
	}
	return n > 0, nil
}

// importFile writes data and history and marks path as imported, all in one
// transaction. A nil data only records the mark.
func (db *DB) importFile(ctx context.Context, path string, data *Data, history []domain.OverdueSnapshot, now time.Time) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		cards := 0
		if data != nil {
			if err := writeCards(ctx, tx, data.Cards); err != nil {
				return err
			}
			if err := writeSessions(ctx, tx, data.Sessions); err != nil {
				return err
			}
			if err := writeOverdueHistory(ctx, tx, history); err != nil {
				return err
			}
			cards = len(data.Cards)
		}

		insert := sq.Insert("file_imports").
			Columns("path", "cards", "imported_at").
			Values(path, cards, toNanos(now)).
			Suffix("ON CONFLICT(path) DO NOTHING")
		if err := exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("failed to record file import %s: %w", path, err)
		}
		return nil
	})
}

// Source represents a card source, either a local path or a Git URL.
type Source struct {
	Path        string
	Cards       int
	LastScanned time.Time
}

// TouchSource records that path was scanned at now and produced cards pairs.
func (db *DB) TouchSource(ctx context.Context, path string, cards int, now time.Time) error {
	insert := sq.Insert("sources").
		Columns("path", "cards", "last_scanned").
		Values(path, cards, toNanos(now)).
		Suffix("ON CONFLICT(path) DO UPDATE SET cards = excluded.cards, last_scanned = excluded.last_scanned")
	if err := exec(ctx, db.conn, insert); err != nil {
		return fmt.Errorf("failed to record source %s: %w", path, err)
	}
	return nil
}

// FindSourceByPath retrieves a source from the database by its path.
// It returns domain.ErrNotFound when the path was never scanned.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*Source, error) {
	query, args, err := sq.Select("path", "cards", "last_scanned").
		From("sources").
		Where(sq.Eq{"path": path}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build source query: %w", err)
	}

	var (
		s       Source
		scanned int64
	)
	err = db.conn.QueryRowContext(ctx, query, args...).Scan(&s.Path, &s.Cards, &scanned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	s.LastScanned = fromNanos(scanned)
	return &s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	query, args, err := sq.Select("path", "cards", "last_scanned").From("sources").OrderBy("path").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sources query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	sources := []Source{}
	for rows.Next() {
		var (
			s       Source
			scanned int64
		)
		if err := rows.Scan(&s.Path, &s.Cards, &scanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		s.LastScanned = fromNanos(scanned)
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sources: %w", err)
	}
	return sources, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func exec(ctx context.Context, e execer, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = e.ExecContext(ctx, query, args...)
	return err
}

func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
