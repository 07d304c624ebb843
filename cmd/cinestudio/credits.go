package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manash/cinestudio/internal/journal"
)

func newCreditsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "credits [today|week|month|total|operation]",
		Aliases: []string{"usage"},
		Short:   "Show credits spent, from the local activity journal",
		Long: `Show credits spent, from the local activity journal.

Only upscales carry a known credit cost; other operations are counted but
report zero credits.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"today", "week", "month", "total", "operation"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredits(cmd.Context(), app, args)
		},
	}
}

func runCredits(ctx context.Context, app *App, args []string) error {
	e, err := app.open()
	if err != nil {
		return err
	}
	defer e.Close()

	if e.journal == nil {
		return fmt.Errorf("activity journal is not available")
	}
	store := e.journal.Store()

	period := "total"
	if len(args) > 0 {
		period = strings.ToLower(args[0])
	}

	switch period {
	case "today":
		return printRange(ctx, app, store, 1, "today")
	case "week":
		return printRange(ctx, app, store, 7, "in the last 7 days")
	case "month":
		return printRange(ctx, app, store, 30, "in the last 30 days")
	case "total":
		summary, err := store.TotalCredits(ctx)
		if err != nil {
			return err
		}
		if summary.EntryCount == 0 {
			fmt.Fprintln(app.Out, "No operations recorded yet.")
			return nil
		}
		fmt.Fprintf(app.Out, "Total credits: %d (%d shot(s), %d operation(s))\n", summary.Credits, summary.ShotCount, summary.EntryCount)
		return nil
	case "operation", "op":
		return printByOperation(ctx, app, store)
	default:
		return fmt.Errorf("unknown period %q: use today, week, month, total or operation", args[0])
	}
}

func printRange(ctx context.Context, app *App, store *journal.Store, days int, label string) error {
	summary, err := store.CreditsForDays(ctx, days)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintf(app.Out, "No operations recorded %s.\n", label)
		return nil
	}
	fmt.Fprintf(app.Out, "Credits %s: %d (%d shot(s), %d operation(s))\n", label, summary.Credits, summary.ShotCount, summary.EntryCount)
	return nil
}

func printByOperation(ctx context.Context, app *App, store *journal.Store) error {
	summaries, err := store.CreditsByOperation(ctx)
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Fprintln(app.Out, "No operations recorded yet.")
		return nil
	}

	fmt.Fprintf(app.Out, "%-16s  %-10s  %-6s  %s\n", "Operation", "Operations", "Shots", "Credits")
	fmt.Fprintln(app.Out, strings.Repeat("-", 46))
	for _, s := range summaries {
		fmt.Fprintf(app.Out, "%-16s  %-10d  %-6d  %d\n", s.Operation, s.Entries, s.ShotCount, s.Credits)
	}
	return nil
}
