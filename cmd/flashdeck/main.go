package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/flashdeck/internal/cli"
	"github.com/conorfennell/flashdeck/internal/config"
	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/logger"
	"github.com/conorfennell/flashdeck/internal/storage"
	vocabsync "github.com/conorfennell/flashdeck/internal/sync"
)

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "flashdeck: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("flashdeck", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	config.RegisterFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	loc := cfg.Location()
	svc := deck.NewService(log, store, deck.Options{
		Params:       cfg.SRS.Params(),
		Now:          func() time.Time { return time.Now().In(loc) },
		HistoryLimit: cfg.SRS.HistoryLimit,
	})
	if err := svc.Open(ctx); err != nil {
		return err
	}

	app := &cli.App{
		Deck:    svc,
		Sources: cfg.Sources.Paths,
		In:      os.Stdin,
		Out:     os.Stdout,
	}
	var tracker vocabsync.SourceTracker
	if db, ok := store.(*storage.DB); ok {
		tracker = db
		app.Tracked = db
	}
	app.Sync = vocabsync.NewRunner(log, svc, tracker, cfg.Sources.ReposDir)

	return app.Run(ctx, fs.Args())
}
