package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manash/cinestudio/internal/batch"
)

var (
	flagOutputDir   string
	flagParallel    int
	flagStopOnError bool
	flagDelayMs     int
)

func newBatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Develop many shots from a prompt file",
		Long: `Develop many shots from a prompt file.

Text files hold one prompt per line; blank lines and lines starting with '#'
are skipped. JSON files hold an array of objects:

  [{"prompt": "a lighthouse at dusk", "camera": "Sony Venice",
    "focal_length": "35mm", "aspect_ratio": "16:9",
    "reference_images": ["still.png"], "image_strength": 0.45}]

Gear not set per item comes from the flags, then from saved preferences.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, app)
		},
	}

	addGearFlags(cmd)
	cmd.Flags().Float64Var(&flagStrength, "strength", -1, "reference likeness between 0 and 1")
	cmd.Flags().StringVarP(&flagOutputDir, "output-dir", "d", "", "also save every result into this directory")
	cmd.Flags().IntVarP(&flagParallel, "parallel", "p", 1, "number of shots developed at once")
	cmd.Flags().BoolVar(&flagStopOnError, "stop-on-error", false, "stop at the first failure")
	cmd.Flags().IntVar(&flagDelayMs, "delay", 0, "delay between sequential shots in milliseconds")

	return cmd
}

func runBatch(cmd *cobra.Command, args []string, app *App) error {
	ctx := cmd.Context()

	items, err := batch.ParseFile(args[0])
	if err != nil {
		return err
	}
	if flagParallel < 1 {
		return fmt.Errorf("--parallel must be at least 1")
	}

	e, err := app.open()
	if err != nil {
		return err
	}
	defer e.Close()

	// The session resolves saved preferences and flag overrides into the
	// defaults every item starts from.
	s := e.session(ctx, app.Err)
	if err := applyGear(s); err != nil {
		return err
	}
	if cmd.Flags().Changed("strength") {
		if err := s.SetStrength(flagStrength); err != nil {
			return err
		}
	}
	snap := s.Snapshot()

	opts := &batch.Options{
		OutputDir:   flagOutputDir,
		Gear:        snap.Gear,
		AspectRatio: snap.AspectRatio,
		Strength:    snap.Strength,
		Parallel:    flagParallel,
		StopOnError: flagStopOnError,
		DelayMs:     flagDelayMs,
	}

	var rec batch.Recorder
	if e.journal != nil {
		rec = e.journal
	}
	p := batch.NewProcessor(e.backend, e.saver, rec, app.Out, app.Err)

	fmt.Fprintf(app.Out, "Developing %d shot(s) with %s\n\n", len(items), snap.Gear)
	results, err := p.Process(ctx, items, opts)
	p.PrintSummary(results)
	return err
}
