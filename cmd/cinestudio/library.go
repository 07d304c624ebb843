package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manash/cinestudio/internal/studio"
	"github.com/manash/cinestudio/pkg/models"
)

var (
	flagType      string
	flagFavorites bool
)

// lookup loads history and resolves a shot id argument.
func lookup(ctx context.Context, s *studio.Session, arg string) (models.GenerationRecord, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return models.GenerationRecord{}, fmt.Errorf("invalid id: %s", arg)
	}

	if err := s.Refresh(ctx); err != nil {
		return models.GenerationRecord{}, fmt.Errorf("failed to load history: %w", err)
	}

	item, ok := s.Item(id)
	if !ok {
		return models.GenerationRecord{}, fmt.Errorf("%w: %d", studio.ErrItemNotFound, id)
	}
	return item, nil
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"ls", "gallery"},
		Short:   "List generated shots",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, app)
		},
	}

	cmd.Flags().StringVarP(&flagType, "type", "t", "", "only list image or video")
	cmd.Flags().BoolVar(&flagFavorites, "favorites", false, "only list favorites")

	return cmd
}

func runHistory(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()

	var filter models.MediaType
	if flagType != "" {
		var err error
		if filter, err = models.ParseMediaType(strings.ToLower(flagType)); err != nil {
			return err
		}
	}

	e, err := app.open()
	if err != nil {
		return err
	}
	defer e.Close()

	records, err := e.backend.History(ctx)
	if err != nil {
		return err
	}

	var shown int
	for _, r := range records {
		if filter != "" && r.Type != filter {
			continue
		}
		if flagFavorites && !r.IsFavorite {
			continue
		}
		if shown == 0 {
			fmt.Fprintf(app.Out, "%-6s  %-5s  %-1s  %-16s  %-20s  %s\n", "ID", "Type", "", "Created", "Camera", "Prompt")
			fmt.Fprintln(app.Out, strings.Repeat("-", 80))
		}
		shown++

		fav := " "
		if r.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(app.Out, "%-6d  %-5s  %s  %-16s  %-20s  %s\n",
			r.ID, r.Type, fav, formatCreated(r.CreatedAt), truncate(orDash(r.Camera), 20), truncate(orDash(r.Prompt), 40))
	}

	if shown == 0 {
		fmt.Fprintln(app.Out, "No shots found.")
	}
	return nil
}

func formatCreated(ts float64) string {
	if ts <= 0 {
		return "-"
	}
	return time.Unix(int64(ts), 0).Format("2006-01-02 15:04")
}

func newUploadsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "uploads",
		Short: "List uploaded reference images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUploads(cmd, app)
		},
	}
}

func runUploads(cmd *cobra.Command, app *App) error {
	e, err := app.open()
	if err != nil {
		return err
	}
	defer e.Close()

	uploads, err := e.backend.Uploads(cmd.Context())
	if err != nil {
		return err
	}

	if len(uploads) == 0 {
		fmt.Fprintln(app.Out, "No uploads yet.")
		return nil
	}

	for _, u := range uploads {
		header, _, _ := strings.Cut(u.Base64Data, ",")
		fmt.Fprintf(app.Out, "%-6d  %-16s  %s (%d KB)\n", u.ID, formatCreated(u.CreatedAt), strings.TrimPrefix(header, "data:"), len(u.Base64Data)*3/4/1024)
	}
	return nil
}

func newDownloadCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "download <id>",
		Aliases: []string{"dl"},
		Short:   "Save a shot from the library",
		Long: `Save a shot from the library.

Without --output the file lands in the download directory as
cinema_studio_<id>.jpg (or .mp4 for videos).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, args, app)
		},
	}

	cmd.Flags().StringVarP(&flagSave, "output", "o", "", "destination path")

	return cmd
}

func runDownload(cmd *cobra.Command, args []string, app *App) error {
	ctx := cmd.Context()

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

	if flagSave != "" {
		if err := e.saver.SaveTo(ctx, item.URL, flagSave); err != nil {
			return err
		}
		fmt.Fprintln(app.Out, flagSave)
		return nil
	}

	path, err := s.Download(ctx, &item)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Out, path)
	return nil
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
