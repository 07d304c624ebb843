package repl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manash/cinestudio/internal/multishot"
	"github.com/manash/cinestudio/internal/security"
	"github.com/manash/cinestudio/internal/studio"
	"github.com/manash/cinestudio/pkg/models"
)

// HomeCommand returns to the empty studio
type HomeCommand struct{}

func (c *HomeCommand) Name() string        { return "home" }
func (c *HomeCommand) Aliases() []string   { return []string{"new"} }
func (c *HomeCommand) Description() string { return "Clear the screen and dock and start fresh" }
func (c *HomeCommand) Usage() string       { return "home" }

func (c *HomeCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.studio.GoHome()
	fmt.Fprintln(r.out, "Studio cleared.")
	return nil
}

// GalleryCommand lists the library
type GalleryCommand struct{}

func (c *GalleryCommand) Name() string        { return "gallery" }
func (c *GalleryCommand) Aliases() []string   { return []string{"history", "ls", "library"} }
func (c *GalleryCommand) Description() string { return "List generated images or videos" }
func (c *GalleryCommand) Usage() string       { return "gallery [image|video]" }

func (c *GalleryCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	filter := models.MediaImage
	if len(args) > 0 {
		var err error
		if filter, err = models.ParseMediaType(strings.ToLower(strings.TrimSuffix(args[0], "s"))); err != nil {
			return err
		}
	}

	if err := r.studio.OpenGallery(filter); err != nil {
		return err
	}
	if err := r.studio.Refresh(ctx); err != nil {
		fmt.Fprintf(r.err, "Warning: showing cached history: %v\n", err)
	}

	items := r.studio.GalleryItems()
	if len(items) == 0 {
		fmt.Fprintf(r.out, "No %ss in the library yet.\n", filter)
		return nil
	}

	fmt.Fprintf(r.out, "%s library (%d):\n", strings.ToUpper(filter.String()[:1])+filter.String()[1:], len(items))
	for i := range items {
		r.printItem(&items[i])
	}
	fmt.Fprintln(r.out, "Use 'open <id>' to focus a shot.")
	return nil
}

// OpenCommand focuses a shot from the library
type OpenCommand struct{}

func (c *OpenCommand) Name() string        { return "open" }
func (c *OpenCommand) Aliases() []string   { return []string{"o", "focus"} }
func (c *OpenCommand) Description() string { return "Focus a shot and load its prompt and gear" }
func (c *OpenCommand) Usage() string       { return "open <id>" }

func (c *OpenCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	item, err := r.item(args[0])
	if err != nil {
		return err
	}

	r.studio.SelectFromGallery(&item)
	r.printItem(&item)
	r.printResult(ctx)
	return nil
}

// CloseCommand dismisses the focused shot
type CloseCommand struct{}

func (c *CloseCommand) Name() string        { return "close" }
func (c *CloseCommand) Aliases() []string   { return []string{"x"} }
func (c *CloseCommand) Description() string { return "Close the focused shot or storyboard" }
func (c *CloseCommand) Usage() string       { return "close" }

func (c *CloseCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if r.studio.Snapshot().Multishot.State == multishot.Selecting {
		r.studio.CloseMultishot()
		fmt.Fprintln(r.out, "Storyboard closed.")
		return nil
	}
	r.studio.CloseFocus()
	return nil
}

// LikeCommand toggles a favorite
type LikeCommand struct{}

func (c *LikeCommand) Name() string        { return "like" }
func (c *LikeCommand) Aliases() []string   { return []string{"fav", "favorite"} }
func (c *LikeCommand) Description() string { return "Toggle a shot's favorite flag, or retry a failed update" }
func (c *LikeCommand) Usage() string       { return "like <id> | like retry <id>" }

func (c *LikeCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	if strings.EqualFold(args[0], "retry") {
		if len(args) < 2 {
			return fmt.Errorf("usage: like retry <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := r.studio.RetryFavorite(ctx, id); err != nil {
			return c.failure(err)
		}
		fmt.Fprintf(r.out, "Favorite for #%d synced.\n", id)
		return nil
	}

	item, err := r.item(args[0])
	if err != nil {
		return err
	}
	if err := r.studio.Dispatch(ctx, studio.ActionLike, &item); err != nil {
		return c.failure(err)
	}

	if updated, ok := r.studio.Item(item.ID); ok {
		r.printItem(&updated)
	}
	return nil
}

func (c *LikeCommand) failure(err error) error {
	if errors.Is(err, studio.ErrNoRetry) || errors.Is(err, studio.ErrItemNotFound) {
		return err
	}
	return reported(err)
}

// dispatchCommand runs one gallery action on a shot id.
func dispatchCommand(ctx context.Context, r *REPL, action, usage string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", usage)
	}
	item, err := r.item(args[0])
	if err != nil {
		return err
	}
	return reported(r.studio.Dispatch(ctx, action, &item))
}

// CopyCommand duplicates a shot in the library
type CopyCommand struct{}

func (c *CopyCommand) Name() string        { return "copy" }
func (c *CopyCommand) Aliases() []string   { return []string{"dup", "duplicate"} }
func (c *CopyCommand) Description() string { return "Duplicate a shot in the library" }
func (c *CopyCommand) Usage() string       { return "copy <id>" }

func (c *CopyCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	return dispatchCommand(ctx, r, studio.ActionCopy, c.Usage(), args)
}

// DownloadCommand saves a shot locally
type DownloadCommand struct{}

func (c *DownloadCommand) Name() string        { return "download" }
func (c *DownloadCommand) Aliases() []string   { return []string{"dl", "save"} }
func (c *DownloadCommand) Description() string { return "Save a shot to the downloads directory or a file" }
func (c *DownloadCommand) Usage() string       { return "download <id> [filename]" }

func (c *DownloadCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) < 2 {
		return dispatchCommand(ctx, r, studio.ActionDownload, c.Usage(), args)
	}

	item, err := r.item(args[0])
	if err != nil {
		return err
	}
	destPath := args[1]
	if err := security.ValidateSavePath(destPath); err != nil {
		return fmt.Errorf("invalid save path: %w", err)
	}
	if r.loader == nil {
		return studio.ErrNoSaver
	}

	data, err := r.loader.Load(ctx, item.URL)
	if err != nil {
		return fmt.Errorf("failed to download shot %d: %w", item.ID, err)
	}
	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return fmt.Errorf("failed to save shot: %w", err)
	}

	fmt.Fprintf(r.out, "Saved: %s\n", destPath)
	return nil
}

// ShareCommand copies a shot's link
type ShareCommand struct{}

func (c *ShareCommand) Name() string        { return "share" }
func (c *ShareCommand) Aliases() []string   { return []string{"link"} }
func (c *ShareCommand) Description() string { return "Copy a shot's link to the clipboard" }
func (c *ShareCommand) Usage() string       { return "share <id>" }

func (c *ShareCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	return dispatchCommand(ctx, r, studio.ActionShare, c.Usage(), args)
}

// DeleteCommand asks to delete a shot
type DeleteCommand struct{}

func (c *DeleteCommand) Name() string        { return "delete" }
func (c *DeleteCommand) Aliases() []string   { return []string{"rm", "del"} }
func (c *DeleteCommand) Description() string { return "Delete a shot (asks for confirmation)" }
func (c *DeleteCommand) Usage() string       { return "delete <id>" }

func (c *DeleteCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if err := dispatchCommand(ctx, r, studio.ActionDelete, c.Usage(), args); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Delete shot #%d permanently? Type 'confirm' or 'cancel'.\n", r.studio.Snapshot().PendingDelete.ID)
	return nil
}

// ConfirmCommand answers a pending multishot or delete gate
type ConfirmCommand struct{}

func (c *ConfirmCommand) Name() string        { return "confirm" }
func (c *ConfirmCommand) Aliases() []string   { return []string{"yes", "y"} }
func (c *ConfirmCommand) Description() string { return "Confirm the pending multishot or deletion" }
func (c *ConfirmCommand) Usage() string       { return "confirm" }

func (c *ConfirmCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	snap := r.studio.Snapshot()

	if snap.Multishot.State == multishot.ConfirmPending {
		return confirmMultishot(ctx, r)
	}

	if snap.PendingDelete == nil {
		return fmt.Errorf("nothing to confirm")
	}
	return reported(r.studio.ConfirmDelete(ctx))
}

// CancelCommand dismisses any open gate
type CancelCommand struct{}

func (c *CancelCommand) Name() string        { return "cancel" }
func (c *CancelCommand) Aliases() []string   { return []string{"no", "n"} }
func (c *CancelCommand) Description() string { return "Cancel the pending multishot or deletion" }
func (c *CancelCommand) Usage() string       { return "cancel" }

func (c *CancelCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.studio.CancelMultishot()
	r.studio.CancelDelete()
	fmt.Fprintln(r.out, "Cancelled.")
	return nil
}
