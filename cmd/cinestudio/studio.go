package main

import (
	"github.com/spf13/cobra"

	"github.com/manash/cinestudio/internal/display"
	"github.com/manash/cinestudio/internal/repl"
)

func newStudioCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "studio",
		Aliases: []string{"i", "interactive"},
		Short:   "Open the interactive studio",
		Long: `Open the interactive studio.

The studio keeps a dock with the prompt, reference images and gear, shows
results inline on terminals that support the kitty graphics protocol, and
gives access to the gallery, storyboards and credits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStudio(cmd, app)
		},
	}
}

func runStudio(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()

	e, err := app.open()
	if err != nil {
		return err
	}
	defer e.Close()

	if e.displayer != nil && app.Terminal != nil {
		e.displayer.SetColumns(display.Width(app.Terminal, 0) / 2)
	}

	cfg := &repl.Config{
		In:        app.In,
		Out:       app.Out,
		Err:       app.Err,
		Studio:    e.session(ctx, app.Out),
		Journal:   e.journal,
		Displayer: e.displayer,
		Loader:    e.saver,
	}

	return repl.New(cfg).Run(ctx)
}
