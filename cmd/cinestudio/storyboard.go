package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manash/cinestudio/internal/contactsheet"
	"github.com/manash/cinestudio/internal/multishot"
	"github.com/manash/cinestudio/internal/studio"
	"github.com/manash/cinestudio/pkg/models"
)

var flagYes bool

// errDeclined is returned when the user answers no at a confirmation.
var errDeclined = errors.New("cancelled")

func newMultishotCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "multishot <id>",
		Aliases: []string{"storyboard"},
		Short:   fmt.Sprintf("Generate %d alternative angles of an image", models.MultishotCount),
		Long: fmt.Sprintf(`Generate %d alternative angles of an image as low-cost drafts.

When the image already has a storyboard it is listed instead; pass --new to
generate a fresh one. Pick drafts to finalize with 'cinestudio upscale'.`, models.MultishotCount),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMultishot(cmd, args, app)
		},
	}

	cmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation")
	cmd.Flags().Bool("new", false, "generate even when a storyboard exists")

	return cmd
}

func runMultishot(cmd *cobra.Command, args []string, app *App) error {
	ctx := cmd.Context()
	forceNew, _ := cmd.Flags().GetBool("new")

	e, err := app.open()
	if err != nil {
		return err
	}
	defer e.Close()

	s := e.session(ctx, app.Err)
	item, err := lookup(ctx, s, args[0])
	if err != nil {
		return err
	}

	if !forceNew {
		err := s.Multishot().ViewStoryboard(ctx, &item)
		if err == nil {
			return printCandidates(ctx, app, e, s)
		}
		if !errors.Is(err, multishot.ErrNoStoryboard) {
			return err
		}
	}

	if err := s.RequestMultishot(ctx, &item); err != nil {
		return err
	}
	if !flagYes {
		if !confirm(app, fmt.Sprintf("Generate %d alternative angles from shot %d?", models.MultishotCount, item.ID)) {
			s.CancelMultishot()
			return errDeclined
		}
	}

	if err := s.ConfirmMultishot(ctx); err != nil {
		return err
	}
	return printCandidates(ctx, app, e, s)
}

func printCandidates(ctx context.Context, app *App, e *env, s *studio.Session) error {
	snap := s.Snapshot().Multishot
	for _, p := range snap.Candidates {
		fmt.Fprintf(app.Out, "%d\t%s\n", p.ID, p.URL)
	}

	if e.displayer != nil {
		sheet, err := contactsheet.Build(ctx, e.saver, snap.Candidates, nil, contactsheet.DefaultCellSize)
		if err == nil {
			err = e.displayer.ShowBytes(sheet)
		}
		if err != nil {
			fmt.Fprintf(app.Err, "Warning: failed to draw contact sheet: %v\n", err)
		}
	}

	if snap.Source != nil {
		fmt.Fprintf(app.Err, "Finalize with: cinestudio upscale %d <shot-id>...\n", snap.Source.ID)
	}
	return nil
}

// confirm asks a yes/no question on the app's input.
func confirm(app *App, question string) bool {
	fmt.Fprintf(app.Err, "%s [y/N] ", question)

	line, _ := bufio.NewReader(app.In).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func newUpscaleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upscale <source-id> <shot-id>...",
		Short: "Finalize storyboard drafts into high-res shots",
		Long: `Finalize storyboard drafts into high-res shots.

Each upscaled shot costs credits; the estimate is shown before the run
unless --yes is given.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpscale(cmd, args, app)
		},
	}

	cmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation")

	return cmd
}

func runUpscale(cmd *cobra.Command, args []string, app *App) error {
	ctx := cmd.Context()

	ids := make([]int64, 0, len(args)-1)
	for _, arg := range args[1:] {
		id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid shot id: %s", arg)
		}
		// Selection toggles, so a repeated id would drop the shot again.
		if slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}

	e, err := app.open()
	if err != nil {
		return err
	}
	defer e.Close()

	s := e.session(ctx, app.Err)
	item, err := lookup(ctx, s, args[0])
	if err != nil {
		return err
	}
	if err := s.ViewStoryboard(ctx, &item); err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := s.ToggleShot(id); err != nil {
			return fmt.Errorf("shot %d: %w", id, err)
		}
	}

	n := len(s.Snapshot().Multishot.Selected)
	est := multishot.EstimateUpscale(n)
	if !flagYes {
		if !confirm(app, fmt.Sprintf("Upscale %d shot(s)? About %d seconds, %d credits.", n, est.Seconds, est.Credits)) {
			return errDeclined
		}
	}

	resp, err := s.UpscaleSelection(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Upscaled %d shot(s)\n", resp.UpscaledCount)
	return nil
}
