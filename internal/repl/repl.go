package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manash/cinestudio/internal/contactsheet"
	"github.com/manash/cinestudio/internal/display"
	"github.com/manash/cinestudio/internal/journal"
	"github.com/manash/cinestudio/internal/multishot"
	"github.com/manash/cinestudio/internal/studio"
)

type REPL struct {
	in        io.Reader
	out       io.Writer
	err       io.Writer
	studio    *studio.Session
	journal   *journal.Journal
	displayer *display.Displayer
	loader    contactsheet.Loader
	commands  map[string]Command
	running   bool
}

// Config wires a REPL. Journal, Displayer and Loader are optional; without
// a displayer media is listed by URL.
type Config struct {
	In        io.Reader
	Out       io.Writer
	Err       io.Writer
	Studio    *studio.Session
	Journal   *journal.Journal
	Displayer *display.Displayer
	Loader    contactsheet.Loader
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:        cfg.In,
		out:       cfg.Out,
		err:       cfg.Err,
		studio:    cfg.Studio,
		journal:   cfg.Journal,
		displayer: cfg.Displayer,
		loader:    cfg.Loader,
		commands:  make(map[string]Command),
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	if err := r.studio.Refresh(ctx); err != nil {
		fmt.Fprintf(r.err, "Warning: could not load history: %v\n", err)
	}

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil && !isReported(err) {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "cinestudio interactive mode")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	snap := r.studio.Snapshot()
	switch snap.Multishot.State {
	case multishot.ConfirmPending:
		fmt.Fprintf(r.out, "cinestudio [%s] (multishot %d?)> ", snap.Tab, snap.Multishot.Source.ID)
	case multishot.Selecting:
		fmt.Fprintf(r.out, "cinestudio [%s] (storyboard %d/%d)> ", snap.Tab, len(snap.Multishot.Selected), len(snap.Multishot.Candidates))
	default:
		if snap.PendingDelete != nil {
			fmt.Fprintf(r.out, "cinestudio [%s] (delete %d?)> ", snap.Tab, snap.PendingDelete.ID)
			return
		}
		fmt.Fprintf(r.out, "cinestudio [%s|%s]> ", snap.Tab, snap.Gear.Camera.Name)
	}
}

// reportedError marks a failure the studio already surfaced as a
// notification, so the loop does not print it twice.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

func isReported(err error) bool {
	var re reportedError
	return errors.As(err, &re)
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
