package repl

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/manash/cinestudio/internal/contactsheet"
	"github.com/manash/cinestudio/internal/multishot"
	"github.com/manash/cinestudio/internal/studio"
	"github.com/manash/cinestudio/pkg/models"
)

// StoryboardCommand opens existing alternative angles for a shot
type StoryboardCommand struct{}

func (c *StoryboardCommand) Name() string        { return "storyboard" }
func (c *StoryboardCommand) Aliases() []string   { return []string{"sb", "proxies"} }
func (c *StoryboardCommand) Description() string { return "Open the storyboard of a shot, or redraw the open one" }
func (c *StoryboardCommand) Usage() string       { return "storyboard [id]" }

func (c *StoryboardCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		if r.studio.Snapshot().Multishot.State != multishot.Selecting {
			return multishot.ErrNotSelecting
		}
		r.printStoryboard(ctx)
		return nil
	}

	item, err := r.item(args[0])
	if err != nil {
		return err
	}

	if err := r.studio.Dispatch(ctx, studio.ActionViewProxies, &item); err != nil {
		return reported(err)
	}

	r.printStoryboard(ctx)
	return nil
}

// MultishotCommand generates alternative angles for a shot
type MultishotCommand struct{}

func (c *MultishotCommand) Name() string      { return "multishot" }
func (c *MultishotCommand) Aliases() []string { return []string{"ms", "angles"} }
func (c *MultishotCommand) Description() string {
	return fmt.Sprintf("Generate %d alternative angles of a shot", models.MultishotCount)
}
func (c *MultishotCommand) Usage() string { return "multishot <id|confirm|cancel>" }

func (c *MultishotCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	switch strings.ToLower(args[0]) {
	case "confirm":
		return confirmMultishot(ctx, r)
	case "cancel":
		r.studio.CancelMultishot()
		fmt.Fprintln(r.out, "Cancelled.")
		return nil
	}

	item, err := r.item(args[0])
	if err != nil {
		return err
	}
	if err := r.studio.Dispatch(ctx, studio.ActionMultishot, &item); err != nil {
		return reported(err)
	}

	fmt.Fprintf(r.out, "Generate %d alternative angles from shot #%d? Type 'confirm' or 'cancel'.\n", models.MultishotCount, item.ID)
	return nil
}

func confirmMultishot(ctx context.Context, r *REPL) error {
	if err := r.studio.ConfirmMultishot(ctx); err != nil {
		if errors.Is(err, multishot.ErrNotPending) {
			return fmt.Errorf("no multishot awaiting confirmation")
		}
		return reported(err)
	}
	r.printStoryboard(ctx)
	return nil
}

// SelectCommand toggles candidates in the open storyboard
type SelectCommand struct{}

func (c *SelectCommand) Name() string        { return "select" }
func (c *SelectCommand) Aliases() []string   { return []string{"pick", "sel"} }
func (c *SelectCommand) Description() string { return "Toggle storyboard shots for upscaling" }
func (c *SelectCommand) Usage() string       { return "select <shot-id>..." }

func (c *SelectCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		on, err := r.studio.ToggleShot(id)
		if err != nil {
			return fmt.Errorf("shot %d: %w", id, err)
		}
		if on {
			fmt.Fprintf(r.out, "  + %d\n", id)
		} else {
			fmt.Fprintf(r.out, "  - %d\n", id)
		}
	}

	snap := r.studio.Snapshot().Multishot
	n := len(snap.Selected)
	est := multishot.EstimateUpscale(n)
	fmt.Fprintf(r.out, "%d of %d selected (~%ds, %d credits to upscale)\n", n, len(snap.Candidates), est.Seconds, est.Credits)
	return nil
}

// UpscaleCommand finalizes the selected storyboard shots
type UpscaleCommand struct{}

func (c *UpscaleCommand) Name() string        { return "upscale" }
func (c *UpscaleCommand) Aliases() []string   { return []string{"up", "finalize"} }
func (c *UpscaleCommand) Description() string { return "Upscale the selected storyboard shots into the library" }
func (c *UpscaleCommand) Usage() string       { return "upscale" }

func (c *UpscaleCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	n := len(r.studio.Snapshot().Multishot.Selected)
	if n > 0 {
		est := multishot.EstimateUpscale(n)
		fmt.Fprintf(r.out, "Upscaling %d shot(s): about %d seconds, %d credits.\n", n, est.Seconds, est.Credits)
	}

	if _, err := r.studio.UpscaleSelection(ctx); err != nil {
		return reported(err)
	}
	fmt.Fprintln(r.out, "Run 'gallery' to see the new shots.")
	return nil
}

// printStoryboard lists the open candidates and draws a contact sheet when
// the terminal supports it.
func (r *REPL) printStoryboard(ctx context.Context) {
	snap := r.studio.Snapshot().Multishot
	if snap.State != multishot.Selecting {
		return
	}

	if snap.Source != nil {
		fmt.Fprintf(r.out, "Storyboard for #%d (%d shots):\n", snap.Source.ID, len(snap.Candidates))
	}
	for _, p := range snap.Candidates {
		fmt.Fprintf(r.out, "  %s %-6d %s\n", marker(slices.Contains(snap.Selected, p.ID)), p.ID, truncate(p.URL, 70))
	}

	if r.displayer != nil && r.loader != nil {
		sheet, err := contactsheet.Build(ctx, r.loader, snap.Candidates, snap.Selected, contactsheet.DefaultCellSize)
		if err == nil {
			err = r.displayer.ShowBytes(sheet)
		}
		if err != nil {
			fmt.Fprintf(r.err, "Warning: failed to draw contact sheet: %v\n", err)
		}
	}

	fmt.Fprintln(r.out, "Use 'select <id>...' then 'upscale', or 'close'.")
}
