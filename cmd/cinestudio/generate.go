package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manash/cinestudio/internal/image"
	"github.com/manash/cinestudio/internal/security"
	"github.com/manash/cinestudio/internal/studio"
	"github.com/manash/cinestudio/pkg/models"
)

var (
	flagCamera   string
	flagLens     string
	flagFocal    string
	flagRatio    string
	flagStrength float64
	flagRefs     []string
	flagSave     string
	flagPrompt   string
	flagMovement string
)

func addGearFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagCamera, "camera", "", "camera body (see 'studio' > gear list)")
	cmd.Flags().StringVar(&flagLens, "lens", "", "lens")
	cmd.Flags().StringVar(&flagFocal, "focal", "", "focal length, e.g. 35mm")
	cmd.Flags().StringVarP(&flagRatio, "ratio", "r", "", "aspect ratio ("+strings.Join(models.AspectRatios(), ", ")+")")
}

func newGenerateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate [prompt]",
		Aliases: []string{"gen"},
		Short:   "Develop a single shot",
		Long: `Develop a single shot from a prompt, reference images, or both.

References may be local image files or URLs.`,
		Example: `  cinestudio generate "a lighthouse at dusk"
  cinestudio generate --ref still.png --strength 0.45 "same scene at night"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, app)
		},
	}

	addGearFlags(cmd)
	cmd.Flags().Float64Var(&flagStrength, "strength", -1, "reference likeness between 0 and 1")
	cmd.Flags().StringSliceVar(&flagRefs, "ref", nil, "reference image file or URL (repeatable)")
	cmd.Flags().StringVarP(&flagSave, "output", "o", "", "also save the result to this path")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string, app *App) error {
	ctx := cmd.Context()

	e, err := app.open()
	if err != nil {
		return err
	}
	defer e.Close()

	s := e.session(ctx, app.Err)
	if err := applyDock(s, args, cmd.Flags().Changed("strength")); err != nil {
		return err
	}

	if err := s.Generate(ctx); err != nil {
		return err
	}
	return finishResult(ctx, app, e, s.Snapshot().ResultURL)
}

// applyDock copies the command's prompt, gear and references onto s.
func applyDock(s *studio.Session, args []string, strengthSet bool) error {
	if len(args) > 0 {
		s.SetPrompt(args[0])
	}
	if err := applyGear(s); err != nil {
		return err
	}
	if strengthSet {
		if err := s.SetStrength(flagStrength); err != nil {
			return err
		}
	}

	for _, ref := range flagRefs {
		data, err := referenceData(ref)
		if err != nil {
			return err
		}
		if err := s.SelectReference(data); err != nil {
			return err
		}
	}
	return nil
}

func applyGear(s *studio.Session) error {
	setters := []struct {
		value string
		set   func(string) error
	}{
		{flagCamera, s.SetCamera},
		{flagLens, s.SetLens},
		{flagFocal, s.SetFocalLength},
		{flagRatio, s.SetAspectRatio},
	}
	for _, st := range setters {
		if st.value == "" {
			continue
		}
		if err := st.set(st.value); err != nil {
			return err
		}
	}
	return nil
}

// referenceData inlines local files; anything else must be a media URL.
func referenceData(ref string) (string, error) {
	if data, err := image.ReadAsDataURL(ref); err == nil {
		return data, nil
	}
	if err := security.ValidateMediaURL(ref); err != nil {
		return "", fmt.Errorf("reference %q: %w", ref, err)
	}
	return ref, nil
}

func finishResult(ctx context.Context, app *App, e *env, url string) error {
	fmt.Fprintln(app.Out, url)

	if flagSave != "" {
		if err := e.saver.SaveTo(ctx, url, flagSave); err != nil {
			return err
		}
		fmt.Fprintf(app.Err, "Saved: %s\n", flagSave)
	}

	if e.displayer != nil && !strings.HasSuffix(strings.ToLower(url), ".mp4") {
		if err := e.displayer.Show(ctx, url); err != nil {
			fmt.Fprintf(app.Err, "Warning: failed to display: %v\n", err)
		}
	}
	return nil
}

func newAnimateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "animate <id>",
		Short: "Animate an image from the library into a video",
		Example: `  cinestudio animate 42
  cinestudio animate 42 --prompt "slow dolly in" --movement dolly-in`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnimate(cmd, args, app)
		},
	}

	addGearFlags(cmd)
	cmd.Flags().StringVarP(&flagPrompt, "prompt", "p", "", "motion prompt (defaults to the image's prompt)")
	cmd.Flags().StringVar(&flagMovement, "movement", "", "camera movement")
	cmd.Flags().StringVarP(&flagSave, "output", "o", "", "also save the video to this path")

	return cmd
}

func runAnimate(cmd *cobra.Command, args []string, app *App) error {
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
	if !item.IsImage() {
		return fmt.Errorf("shot %d: %w", item.ID, models.ErrNotAnImage)
	}

	s.SelectFromGallery(&item)
	if err := s.SetTab(models.MediaVideo); err != nil {
		return err
	}
	if flagPrompt != "" {
		s.SetPrompt(flagPrompt)
	}
	if err := applyGear(s); err != nil {
		return err
	}
	if flagMovement != "" {
		if err := s.SetMovement(flagMovement); err != nil {
			return err
		}
	}

	if err := s.Generate(ctx); err != nil {
		return err
	}
	return finishResult(ctx, app, e, s.Snapshot().ResultURL)
}
