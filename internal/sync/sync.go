// Package sync imports vocabulary files from the configured sources into the
// deck. Sources are local directories or git repositories. Cards are only
// ever added; a pair that disappears from a source stays in the deck.
package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/gitsource"
	"github.com/conorfennell/flashdeck/internal/parser"
)

// importer adds parsed pairs to the deck.
type importer interface {
	Import(ctx context.Context, pairs []parser.Pair) (deck.ImportResult, error)
}

// SourceTracker records when a source was last scanned. Optional.
type SourceTracker interface {
	TouchSource(ctx context.Context, path string, cards int, now time.Time) error
}

// Report totals a sync run.
type Report struct {
	Sources    int
	Files      int
	Parsed     int
	Added      int
	Duplicates int
	Rejected   int
	Errors     []error
}

// Runner syncs sources into a deck.
type Runner struct {
	log      *slog.Logger
	deck     importer
	tracker  SourceTracker
	reposDir string
	now      func() time.Time
}

// NewRunner creates a Runner. tracker may be nil.
func NewRunner(logger *slog.Logger, d importer, tracker SourceTracker, reposDir string) *Runner {
	return &Runner{
		log:      logger.With("component", "sync"),
		deck:     d,
		tracker:  tracker,
		reposDir: reposDir,
		now:      time.Now,
	}
}

// fetchConcurrency bounds how many git sources are cloned or pulled at once.
const fetchConcurrency = 4

// Run fetches every git source, then imports all sources in order. A failing
// source is reported and skipped; the remaining sources still run.
func (r *Runner) Run(ctx context.Context, sources []string) (Report, error) {
	var report Report
	if len(sources) == 0 {
		r.log.Info("No sources configured. Add paths under sources.paths in the config file")
		return report, nil
	}

	r.log.Info("Starting sync process for all sources...", "sources", len(sources))
	dirs, fetchErrs := r.fetchAll(ctx, sources)

	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if fetchErrs[i] != nil {
			report.Errors = append(report.Errors, fetchErrs[i])
			continue
		}

		r.log.Info("Syncing source", "source", source, "path", dirs[i])
		if err := r.importDir(ctx, source, dirs[i], &report); err != nil {
			report.Errors = append(report.Errors, err)
			r.log.Error("Error importing source", "source", source, "error", err)
			continue
		}
		report.Sources++
	}

	r.log.Info("Sync process complete.",
		"sources", report.Sources,
		"files", report.Files,
		"added", report.Added,
		"duplicates", report.Duplicates,
		"errors", len(report.Errors),
	)
	return report, nil
}

// fetchAll resolves each source to a local directory, cloning or pulling git
// sources concurrently. Local sources map to themselves.
func (r *Runner) fetchAll(ctx context.Context, sources []string) ([]string, []error) {
	dirs := make([]string, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, source := range sources {
		if !gitsource.IsGitURL(source) {
			dirs[i] = source
			continue
		}
		g.Go(func() error {
			dirs[i], errs[i] = r.fetch(ctx, source)
			return nil
		})
	}
	_ = g.Wait()
	return dirs, errs
}

func (r *Runner) fetch(ctx context.Context, repoURL string) (string, error) {
	localRepoPath, err := gitsource.LocalPath(r.reposDir, repoURL)
	if err != nil {
		r.log.Error("Error determining local path for git repo", "url", repoURL, "error", err)
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(localRepoPath), 0o755); err != nil {
		r.log.Error("Failed to create repos directory", "error", err)
		return "", err
	}
	if err := gitsource.Sync(ctx, r.log, repoURL, localRepoPath); err != nil {
		r.log.Error("Error syncing git repo", "url", repoURL, "error", err)
		return "", err
	}
	return localRepoPath, nil
}

func (r *Runner) importDir(ctx context.Context, source, dir string, report *Report) error {
	var pairs []parser.Pair

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !isVocabularyFile(d.Name()) {
			return nil
		}

		filePairs, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			report.Errors = append(report.Errors, parseErr)
			r.log.Warn("Failed to parse file", "path", path, "error", parseErr)
			return nil
		}
		report.Files++
		pairs = append(pairs, filePairs...)
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walk %s: %w", dir, walkErr)
	}

	report.Parsed += len(pairs)
	res, err := r.deck.Import(ctx, pairs)
	if err != nil {
		return err
	}
	report.Added += len(res.Added)
	report.Duplicates += res.Duplicates
	report.Rejected += res.Rejected

	if r.tracker != nil {
		if err := r.tracker.TouchSource(ctx, source, len(pairs), r.now()); err != nil {
			r.log.Warn("Failed to update last scanned for source", "source", source, "error", err)
		}
	}

	r.log.Info("Source imported",
		"source", source,
		"parsed_pairs", len(pairs),
		"added", len(res.Added),
		"duplicates", res.Duplicates,
	)
	return nil
}

func isVocabularyFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".txt" || ext == ".md"
}
