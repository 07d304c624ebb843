package repl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manash/cinestudio/internal/display"
	"github.com/manash/cinestudio/internal/multishot"
	"github.com/manash/cinestudio/internal/studio"
	"github.com/manash/cinestudio/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func allCommands() []Command {
	return []Command{
		&GenerateCommand{},
		&RecreateCommand{},
		&TabCommand{},
		&PromptCommand{},
		&ClearCommand{},
		&RefCommand{},
		&GearCommand{},
		&MovementCommand{},
		&RatioCommand{},
		&StrengthCommand{},
		&HomeCommand{},
		&GalleryCommand{},
		&OpenCommand{},
		&CloseCommand{},
		&LikeCommand{},
		&CopyCommand{},
		&DownloadCommand{},
		&ShareCommand{},
		&DeleteCommand{},
		&ConfirmCommand{},
		&CancelCommand{},
		&StoryboardCommand{},
		&MultishotCommand{},
		&SelectCommand{},
		&UpscaleCommand{},
		&ShowCommand{},
		&StatusCommand{},
		&CreditsCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}
}

func (r *REPL) registerCommands() {
	for _, cmd := range allCommands() {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// ShowCommand draws the current result or a history item
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"display", "view"} }
func (c *ShowCommand) Description() string { return "Display the current result or a shot" }
func (c *ShowCommand) Usage() string       { return "show [id]" }

func (c *ShowCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		url := r.studio.Snapshot().ResultURL
		if url == "" {
			return fmt.Errorf("no result on screen - use 'generate' or 'open <id>' first")
		}
		r.showMedia(ctx, url, r.studio.Snapshot().Tab)
		return nil
	}

	item, err := r.item(args[0])
	if err != nil {
		return err
	}
	r.printItem(&item)
	r.showMedia(ctx, item.URL, item.Type)
	return nil
}

// StatusCommand prints the dock and view state
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Aliases() []string   { return []string{"st", "dock"} }
func (c *StatusCommand) Description() string { return "Show the dock, gear and current view" }
func (c *StatusCommand) Usage() string       { return "status" }

func (c *StatusCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	snap := r.studio.Snapshot()

	fmt.Fprintf(r.out, "Tab:        %s\n", snap.Tab)
	fmt.Fprintf(r.out, "Prompt:     %s\n", orDash(snap.Prompt))
	fmt.Fprintf(r.out, "References: %d\n", len(snap.References))
	fmt.Fprintf(r.out, "Gear:       %s\n", snap.Gear)
	if snap.Tab == models.MediaVideo {
		fmt.Fprintf(r.out, "Movement:   %s\n", snap.Movement.Name)
	}
	fmt.Fprintf(r.out, "Ratio:      %s\n", snap.AspectRatio)
	if len(snap.References) > 0 {
		fmt.Fprintf(r.out, "Strength:   %s\n", strengthLabel(snap.Strength))
	}

	view := string(snap.View)
	if snap.View == studio.ViewGallery {
		view = fmt.Sprintf("gallery (%s)", snap.GalleryFilter)
	}
	fmt.Fprintf(r.out, "View:       %s\n", view)
	if snap.ResultURL != "" {
		fmt.Fprintf(r.out, "Result:     %s\n", truncate(snap.ResultURL, 80))
	}
	if snap.Generating {
		fmt.Fprintln(r.out, "Generating: yes")
	}
	if snap.Multishot.State != multishot.Idle {
		fmt.Fprintf(r.out, "Storyboard: %s\n", snap.Multishot.State)
	}
	fmt.Fprintf(r.out, "Library:    %d shot(s), %d upload(s)\n", len(snap.History), len(snap.Uploads))
	return nil
}

// CreditsCommand displays credit usage from the journal
type CreditsCommand struct{}

func (c *CreditsCommand) Name() string      { return "credits" }
func (c *CreditsCommand) Aliases() []string { return []string{"$", "usage"} }
func (c *CreditsCommand) Description() string {
	return "View credit usage (today, week, month, total, operation, session)"
}
func (c *CreditsCommand) Usage() string { return "credits <today|week|month|total|operation|session>" }

func (c *CreditsCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.journal == nil {
		return fmt.Errorf("activity journal is not available")
	}
	if len(args) == 0 {
		return c.showTotal(ctx, r)
	}

	switch strings.ToLower(args[0]) {
	case "today":
		return c.showRange(ctx, r, 1, "today")
	case "week":
		return c.showRange(ctx, r, 7, "in the last 7 days")
	case "month":
		return c.showRange(ctx, r, 30, "in the last 30 days")
	case "total":
		return c.showTotal(ctx, r)
	case "operation", "op":
		return c.showByOperation(ctx, r)
	case "session":
		return c.showSession(ctx, r)
	default:
		return fmt.Errorf("unknown credits command: %s\nUsage: %s", args[0], c.Usage())
	}
}

func (c *CreditsCommand) showRange(ctx context.Context, r *REPL, days int, label string) error {
	summary, err := r.journal.Store().CreditsForDays(ctx, days)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintf(r.out, "No operations recorded %s.\n", label)
		return nil
	}

	fmt.Fprintf(r.out, "Credits %s: %d (%d shot(s))\n", label, summary.Credits, summary.ShotCount)
	return nil
}

func (c *CreditsCommand) showTotal(ctx context.Context, r *REPL) error {
	summary, err := r.journal.Store().TotalCredits(ctx)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, "No operations recorded yet.")
		return nil
	}

	fmt.Fprintf(r.out, "Total credits: %d (%d shot(s))\n", summary.Credits, summary.ShotCount)
	return nil
}

func (c *CreditsCommand) showByOperation(ctx context.Context, r *REPL) error {
	summaries, err := r.journal.Store().CreditsByOperation(ctx)
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Fprintln(r.out, "No operations recorded yet.")
		return nil
	}

	fmt.Fprintf(r.out, "%-16s  %-6s  %s\n", "Operation", "Shots", "Credits")
	fmt.Fprintln(r.out, strings.Repeat("-", 35))

	var credits, shots int
	for _, s := range summaries {
		fmt.Fprintf(r.out, "%-16s  %-6d  %d\n", s.Operation, s.ShotCount, s.Credits)
		credits += s.Credits
		shots += s.ShotCount
	}

	fmt.Fprintln(r.out, strings.Repeat("-", 35))
	fmt.Fprintf(r.out, "%-16s  %-6d  %d\n", "Total", shots, credits)
	return nil
}

func (c *CreditsCommand) showSession(ctx context.Context, r *REPL) error {
	summary, err := r.journal.SessionCredits(ctx)
	if err != nil {
		return err
	}

	if summary.EntryCount == 0 {
		fmt.Fprintln(r.out, "No operations in this session.")
		return nil
	}

	fmt.Fprintf(r.out, "Session credits: %d (%d shot(s))\n", summary.Credits, summary.ShotCount)
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help [command]" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) > 0 {
		cmd, ok := r.commands[strings.ToLower(args[0])]
		if !ok {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(r.out, "%s - %s\n  Usage: %s\n", cmd.Name(), cmd.Description(), cmd.Usage())
		return nil
	}

	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range allCommands() {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-22s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "                        Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	if err := r.studio.SavePreferences(ctx); err != nil {
		fmt.Fprintf(r.err, "Warning: failed to save preferences: %v\n", err)
	}
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}

// item resolves a shot id argument against the loaded history.
func (r *REPL) item(arg string) (models.GenerationRecord, error) {
	id, err := parseID(arg)
	if err != nil {
		return models.GenerationRecord{}, err
	}
	item, ok := r.studio.Item(id)
	if !ok {
		return models.GenerationRecord{}, fmt.Errorf("%w: %d (run 'gallery' to list shots)", studio.ErrItemNotFound, id)
	}
	return item, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %s", arg)
	}
	return id, nil
}

// showMedia draws an image inline when the terminal allows it. Videos and
// anything that cannot be drawn are listed by URL.
func (r *REPL) showMedia(ctx context.Context, url string, kind models.MediaType) {
	if r.displayer != nil && kind == models.MediaImage {
		err := r.displayer.Show(ctx, url)
		if err == nil {
			return
		}
		if !errors.Is(err, display.ErrUndecodable) {
			fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
		}
	}
	fmt.Fprintf(r.out, "Media: %s\n", truncate(url, 120))
}

func (r *REPL) printItem(item *models.GenerationRecord) {
	fav := " "
	if item.IsFavorite {
		fav = "*"
	}
	switch r.studio.FavoriteStatus(item.ID) {
	case studio.FavoritePending:
		fav += " (syncing)"
	case studio.FavoriteFailed:
		fav += " (sync failed)"
	}
	fmt.Fprintf(r.out, "  #%-5d %-5s %s %s\n", item.ID, item.Type, fav, truncate(orDash(item.Prompt), 60))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
