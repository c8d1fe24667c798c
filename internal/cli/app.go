// Package cli implements the flashdeck command line.
//
// Commands:
//
//	import [--delimiter d] [--separator s] <file|->   Add cards from a file or stdin
//	sync [source...]                                   Import from the configured sources
//	sources                                            List sources and when they were scanned
//	study [--exclude-new-today]                        Review due cards interactively
//	queue [--exclude-new-today]                        Show what a session would study
//	stats                                              Level breakdown and urgency counts
//	summary                                            Study totals for today, month and year
//	history                                            Daily overdue counts
//	list [--learned]                                   List cards
//	edit <id> --term t --definition d                  Change a card
//	restore <id>                                       Return a learned card to the queue
//	delete <id> | --all                                Remove cards
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/storage"
	vocabsync "github.com/conorfennell/flashdeck/internal/sync"
)

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage error")

type syncer interface {
	Run(ctx context.Context, sources []string) (vocabsync.Report, error)
}

type sourceLister interface {
	GetAllSources(ctx context.Context) ([]storage.Source, error)
}

// App holds what the commands operate on.
type App struct {
	Deck    *deck.Service
	Sync    syncer
	Sources []string     // configured source paths and URLs
	Tracked sourceLister // optional; nil when the deck is not backed by SQLite
	In      io.Reader
	Out     io.Writer
}

type command struct {
	name  string
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = []command{
	{"import", "import [--delimiter d] [--separator s] <file|->", (*App).runImport},
	{"sync", "sync [source...]", (*App).runSync},
	{"sources", "sources", (*App).runSources},
	{"study", "study [--exclude-new-today]", (*App).runStudy},
	{"queue", "queue [--exclude-new-today]", (*App).runQueue},
	{"stats", "stats", (*App).runStats},
	{"summary", "summary", (*App).runSummary},
	{"history", "history", (*App).runHistory},
	{"list", "list [--learned]", (*App).runList},
	{"edit", "edit <id> --term t --definition d", (*App).runEdit},
	{"restore", "restore <id>", (*App).runRestore},
	{"delete", "delete <id> | --all", (*App).runDelete},
}

// Run dispatches args[0] to its command. No arguments prints the stats.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.runStats(ctx, nil)
	}

	name := args[0]
	switch name {
	case "help", "-h", "--help":
		a.printUsage()
		return nil
	}
	for _, c := range commands {
		if c.name == name {
			return c.run(a, ctx, args[1:])
		}
	}

	fmt.Fprintf(a.Out, "Unknown command: %s\n\n", name)
	a.printUsage()
	return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
}

func (a *App) printUsage() {
	fmt.Fprintln(a.Out, "Usage:")
	fmt.Fprintln(a.Out, "  flashdeck [flags] <command> [options]")
	fmt.Fprintln(a.Out)
	fmt.Fprintln(a.Out, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(a.Out, "  %s\n", c.usage)
	}
	fmt.Fprintln(a.Out, "  help")
}

// flagSet returns a FlagSet that reports errors instead of exiting.
func (a *App) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.Out)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

func oneArg(fs *pflag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return "", fmt.Errorf("%w: %s needs exactly one %s", ErrUsage, fs.Name(), what)
	}
	return fs.Arg(0), nil
}
