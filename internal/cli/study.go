package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/conorfennell/flashdeck/internal/srs"
	"github.com/conorfennell/flashdeck/internal/study"
)

func (a *App) runStudy(ctx context.Context, args []string) error {
	fs := a.flagSet("study")
	excludeNew := fs.Bool("exclude-new-today", false, "Leave out cards imported today")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	sess := a.Deck.StartSession(srs.QueueOptions{ExcludeNewToday: *excludeNew})
	if sess.Done() {
		fmt.Fprintln(a.Out, "Nothing to study right now.")
		return nil
	}

	sess = a.quiz(ctx, sess)

	// An interrupt ends the quiz; the answers given so far are still saved.
	res := sess.Finish(a.Deck.Now())
	record, saved, err := a.Deck.CompleteSession(context.WithoutCancel(ctx), res)
	if err != nil {
		return err
	}
	if !saved {
		fmt.Fprintln(a.Out, "\nNo answers recorded.")
		return nil
	}

	fmt.Fprintf(a.Out, "\nSession complete: %d studied, %d correct, %d incorrect (%d%%), %.1f minutes.\n",
		record.CardsStudied, res.Correct, res.Incorrect, percent(res.Correct, record.CardsStudied), record.TotalTime)
	if record.OverdueReviews > 0 {
		fmt.Fprintf(a.Out, "Reviewed %d overdue cards.\n", record.OverdueReviews)
	}
	if len(res.IncorrectCards) > 0 {
		fmt.Fprintln(a.Out, "Missed:")
		for _, c := range res.IncorrectCards {
			fmt.Fprintf(a.Out, "  %s - %s\n", c.Term, c.Definition)
		}
	}
	return nil
}

// quiz asks about each card until the queue is done, input ends, the user
// quits or ctx is cancelled, and returns the final session state.
func (a *App) quiz(ctx context.Context, sess study.Session) study.Session {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, a.In)

	for !sess.Done() {
		card, _ := sess.Current()
		i, n := sess.Position()
		fmt.Fprintf(a.Out, "\n[%d/%d] %s\n", i+1, n, card.Term)
		fmt.Fprint(a.Out, "Know it? (y)es, (n)o, (u)ndo, (q)uit: ")
		shown := a.Deck.Now()

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.Out, "\nInterrupted.")
			return sess
		case l, ok := <-lines:
			if !ok {
				return sess
			}
			line = l
		}
		now := a.Deck.Now()

		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes", "n", "no":
			correct := answer == "y" || answer == "yes"
			next, err := sess.Answer(correct, now.Sub(shown), now)
			if err != nil {
				fmt.Fprintf(a.Out, "Could not record answer: %v\n", err)
				return sess
			}
			sess = next
			if correct {
				fmt.Fprintf(a.Out, "Correct: %s\n", card.Definition)
			} else {
				fmt.Fprintf(a.Out, "Answer: %s\n", card.Definition)
			}
		case "u", "undo":
			next, err := sess.Undo()
			if errors.Is(err, study.ErrNothingToUndo) {
				fmt.Fprintln(a.Out, "Nothing to undo.")
				continue
			}
			sess = next
		case "q", "quit":
			return sess
		default:
			fmt.Fprintln(a.Out, "Please answer y, n, u or q.")
		}
	}
	return sess
}

// readLines feeds lines from r into the returned channel until r ends or ctx
// is cancelled.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		in := bufio.NewScanner(r)
		for in.Scan() {
			select {
			case lines <- in.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return (part*100 + total/2) / total
}
