package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/parser"
	"github.com/conorfennell/flashdeck/internal/srs"
	"github.com/conorfennell/flashdeck/internal/trend"
)

const dateLayout = "2006-01-02"

func (a *App) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
}

func (a *App) runImport(ctx context.Context, args []string) error {
	fs := a.flagSet("import")
	delimiter := fs.String("delimiter", "tab", "Term/definition delimiter: tab, comma or any string")
	separator := fs.String("separator", "newline", "Card separator: newline, semicolon or any string")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	path, err := oneArg(fs, "file (or - for stdin)")
	if err != nil {
		return err
	}

	var r io.Reader = a.In
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		defer f.Close()
		r = f
	}

	var pairs []parser.Pair
	if fs.Changed("delimiter") || fs.Changed("separator") {
		res, err := parser.ParseDelimited(r, parser.Options{
			TermDelimiter: parser.ResolveDelimiter(*delimiter),
			CardSeparator: parser.ResolveSeparator(*separator),
		})
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		if len(res.Invalid) > 0 {
			fmt.Fprintf(a.Out, "Skipped %d malformed entries: %v\n", len(res.Invalid), res.Invalid)
		}
		pairs = res.Pairs
	} else {
		pairs, err = parser.Parse(r)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}

	res, err := a.Deck.Import(ctx, pairs)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Added %d cards (%d duplicates, %d rejected).\n", len(res.Added), res.Duplicates, res.Rejected)
	return nil
}

func (a *App) runSync(ctx context.Context, args []string) error {
	fs := a.flagSet("sync")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	sources := a.Sources
	if fs.NArg() > 0 {
		sources = fs.Args()
	}
	if len(sources) == 0 {
		fmt.Fprintln(a.Out, "No sources configured.")
		return nil
	}

	report, err := a.Sync.Run(ctx, sources)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Synced %d of %d sources: %d files, %d pairs, %d added, %d duplicates, %d rejected.\n",
		report.Sources, len(sources), report.Files, report.Parsed, report.Added, report.Duplicates, report.Rejected)
	for _, e := range report.Errors {
		fmt.Fprintf(a.Out, "  error: %v\n", e)
	}
	return nil
}

func (a *App) runSources(ctx context.Context, args []string) error {
	fs := a.flagSet("sources")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	scanned := map[string]string{}
	if a.Tracked != nil {
		tracked, err := a.Tracked.GetAllSources(ctx)
		if err != nil {
			return fmt.Errorf("sources: %w", err)
		}
		for _, s := range tracked {
			scanned[s.Path] = fmt.Sprintf("%s (%d pairs)", s.LastScanned.Format(time.DateTime), s.Cards)
		}
	}

	if len(a.Sources) == 0 {
		fmt.Fprintln(a.Out, "No sources configured.")
		return nil
	}
	tw := a.table()
	fmt.Fprintln(tw, "SOURCE\tLAST SCANNED")
	for _, src := range a.Sources {
		last, ok := scanned[src]
		if !ok {
			last = "never"
		}
		fmt.Fprintf(tw, "%s\t%s\n", src, last)
	}
	return tw.Flush()
}

func (a *App) runQueue(_ context.Context, args []string) error {
	fs := a.flagSet("queue")
	excludeNew := fs.Bool("exclude-new-today", false, "Leave out cards imported today")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	queue := a.Deck.Queue(srs.QueueOptions{ExcludeNewToday: *excludeNew})
	if len(queue) == 0 {
		fmt.Fprintln(a.Out, "Nothing due.")
		return nil
	}

	params, now := a.Deck.Params(), a.Deck.Now()
	tw := a.table()
	fmt.Fprintln(tw, "#\tTERM\tLEVEL\tDUE")
	for i, c := range queue {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, c.Term, c.CurrentLevel, describeDue(params.Urgency(c, now)))
	}
	return tw.Flush()
}

func describeDue(u srs.Urgency) string {
	switch {
	case u.IsLongOverdue:
		return fmt.Sprintf("%d days overdue (long)", u.OverdueDays)
	case u.IsOverdue && u.OverdueDays == 0:
		return "today"
	case u.IsOverdue:
		return fmt.Sprintf("%d days overdue", u.OverdueDays)
	case u.DaysUntilDue > 0:
		return fmt.Sprintf("in %d days", u.DaysUntilDue)
	default:
		return "now"
	}
}

func (a *App) runStats(_ context.Context, args []string) error {
	fs := a.flagSet("stats")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	o := a.Deck.Stats()
	tw := a.table()
	fmt.Fprintf(tw, "Active cards\t%d\n", o.Stats.Total)
	fmt.Fprintf(tw, "Due now\t%d\n", o.Stats.Due)
	fmt.Fprintf(tw, "New\t%d\n", o.Stats.New)
	fmt.Fprintf(tw, "New today\t%d\n", o.Stats.NewToday)
	fmt.Fprintf(tw, "Overdue\t%d\n", o.Overdue)
	fmt.Fprintf(tw, "Long overdue\t%d\n", o.LongOverdue)
	fmt.Fprintf(tw, "Due soon\t%d\n", o.DueSoon)
	fmt.Fprintf(tw, "Learned\t%d\n", o.Learned)
	for level := 0; level <= a.Deck.Params().MaxLevel(); level++ {
		fmt.Fprintf(tw, "Level %d\t%d\n", level, o.Stats.ByLevel[level])
	}
	return tw.Flush()
}

func (a *App) runSummary(_ context.Context, args []string) error {
	fs := a.flagSet("summary")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	s := a.Deck.Summary()
	tw := a.table()
	fmt.Fprintln(tw, "PERIOD\tSESSIONS\tCARDS\tCORRECT\tACCURACY\tMINUTES\tOVERDUE")
	for _, row := range []struct {
		name string
		tf   trend.Timeframe
	}{{"Today", s.Day}, {"Month", s.Month}, {"Year", s.Year}} {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d%%\t%.1f\t%d\n",
			row.name, row.tf.Sessions, row.tf.CardsStudied, row.tf.CorrectAnswers,
			row.tf.Accuracy, row.tf.Minutes, row.tf.OverdueReviews)
	}
	return tw.Flush()
}

func (a *App) runHistory(_ context.Context, args []string) error {
	fs := a.flagSet("history")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	history := a.Deck.OverdueHistory()
	if len(history) == 0 {
		fmt.Fprintln(a.Out, "No history yet.")
		return nil
	}
	tw := a.table()
	fmt.Fprintln(tw, "DATE\tOVERDUE")
	for _, h := range history {
		fmt.Fprintf(tw, "%s\t%d\n", h.Date, h.Count)
	}
	return tw.Flush()
}

func (a *App) runList(_ context.Context, args []string) error {
	fs := a.flagSet("list")
	learned := fs.Bool("learned", false, "Show only learned cards")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	tw := a.table()
	fmt.Fprintln(tw, "ID\tTERM\tDEFINITION\tLEVEL\tNEXT REVIEW\tSTATUS")
	for _, c := range a.Deck.Cards() {
		if *learned && !c.IsLearned() {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			c.ID, c.Term, c.Definition, c.CurrentLevel, formatDate(c.NextReviewDate), c.Status)
	}
	return tw.Flush()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func (a *App) runEdit(ctx context.Context, args []string) error {
	fs := a.flagSet("edit")
	term := fs.String("term", "", "New term")
	definition := fs.String("definition", "", "New definition")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := oneArg(fs, "card id")
	if err != nil {
		return err
	}

	current, err := a.Deck.Card(id)
	if err != nil {
		return err
	}
	in := deck.UpdateCardInput{ID: id, Term: current.Term, Definition: current.Definition}
	if fs.Changed("term") {
		in.Term = *term
	}
	if fs.Changed("definition") {
		in.Definition = *definition
	}

	card, err := a.Deck.Update(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Updated %s: %s - %s\n", card.ID, card.Term, card.Definition)
	return nil
}

func (a *App) runRestore(ctx context.Context, args []string) error {
	fs := a.flagSet("restore")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := oneArg(fs, "card id")
	if err != nil {
		return err
	}

	card, err := a.Deck.Restore(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Restored %q at level %d, due %s.\n", card.Term, card.CurrentLevel, formatDate(card.NextReviewDate))
	return nil
}

func (a *App) runDelete(ctx context.Context, args []string) error {
	fs := a.flagSet("delete")
	all := fs.Bool("all", false, "Delete every card")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *all {
		if fs.NArg() > 0 {
			return fmt.Errorf("%w: delete takes either an id or --all", ErrUsage)
		}
		n, err := a.Deck.DeleteAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "Deleted %d cards.\n", n)
		return nil
	}

	id, err := oneArg(fs, "card id")
	if err != nil {
		return err
	}
	if err := a.Deck.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no card with id %s: %w", id, err)
		}
		return err
	}
	fmt.Fprintf(a.Out, "Deleted %s.\n", id)
	return nil
}
