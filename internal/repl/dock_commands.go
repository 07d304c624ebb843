package repl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manash/cinestudio/internal/image"
	"github.com/manash/cinestudio/internal/security"
	"github.com/manash/cinestudio/internal/studio"
	"github.com/manash/cinestudio/pkg/models"
)

// GenerateCommand submits the dock
type GenerateCommand struct{}

func (c *GenerateCommand) Name() string      { return "generate" }
func (c *GenerateCommand) Aliases() []string { return []string{"gen", "g"} }
func (c *GenerateCommand) Description() string {
	return "Develop a shot from the dock (image tab) or animate the result (video tab)"
}
func (c *GenerateCommand) Usage() string { return "generate [prompt]" }

func (c *GenerateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) > 0 {
		r.studio.SetPrompt(strings.Join(args, " "))
	}

	if err := r.studio.Generate(ctx); err != nil {
		return reported(err)
	}
	r.printResult(ctx)
	return nil
}

// RecreateCommand re-runs the current shot with an edited prompt
type RecreateCommand struct{}

func (c *RecreateCommand) Name() string        { return "recreate" }
func (c *RecreateCommand) Aliases() []string   { return []string{"redo", "re"} }
func (c *RecreateCommand) Description() string { return "Recreate the shot with an edited prompt" }
func (c *RecreateCommand) Usage() string       { return "recreate <prompt>" }

func (c *RecreateCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	if err := r.studio.Recreate(ctx, strings.Join(args, " ")); err != nil {
		return reported(err)
	}
	r.printResult(ctx)
	return nil
}

func (r *REPL) printResult(ctx context.Context) {
	snap := r.studio.Snapshot()
	fmt.Fprintf(r.out, "Result: %s\n", truncate(snap.ResultURL, 120))
	r.showMedia(ctx, snap.ResultURL, snap.Tab)
	if snap.SidebarOpen {
		fmt.Fprintf(r.out, "Prompt: %s\n", orDash(snap.Prompt))
		fmt.Fprintf(r.out, "Gear:   %s\n", snap.Gear)
	}
}

// TabCommand switches between image and video generation
type TabCommand struct{}

func (c *TabCommand) Name() string        { return "tab" }
func (c *TabCommand) Aliases() []string   { return []string{"mode"} }
func (c *TabCommand) Description() string { return "Switch the dock between image and video" }
func (c *TabCommand) Usage() string       { return "tab <image|video>" }

func (c *TabCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Current tab: %s\n", r.studio.Snapshot().Tab)
		return nil
	}

	tab, err := models.ParseMediaType(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	if err := r.studio.SetTab(tab); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Tab set to: %s\n", tab)
	return nil
}

// PromptCommand sets or shows the dock prompt
type PromptCommand struct{}

func (c *PromptCommand) Name() string        { return "prompt" }
func (c *PromptCommand) Aliases() []string   { return []string{"p"} }
func (c *PromptCommand) Description() string { return "Set, show or clear the dock prompt" }
func (c *PromptCommand) Usage() string       { return "prompt [text|clear]" }

func (c *PromptCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Prompt: %s\n", orDash(r.studio.Snapshot().Prompt))
		return nil
	}

	if len(args) == 1 && strings.EqualFold(args[0], "clear") {
		r.studio.SetPrompt("")
		fmt.Fprintln(r.out, "Prompt cleared.")
		return nil
	}

	r.studio.SetPrompt(strings.Join(args, " "))
	return nil
}

// ClearCommand empties the dock
type ClearCommand struct{}

func (c *ClearCommand) Name() string        { return "clear" }
func (c *ClearCommand) Aliases() []string   { return []string{"reset"} }
func (c *ClearCommand) Description() string { return "Clear the prompt and reference images" }
func (c *ClearCommand) Usage() string       { return "clear" }

func (c *ClearCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.studio.ClearDock()
	fmt.Fprintln(r.out, "Dock cleared.")
	return nil
}

// RefCommand manages reference images in the dock
type RefCommand struct{}

func (c *RefCommand) Name() string        { return "ref" }
func (c *RefCommand) Aliases() []string   { return []string{"refs", "r"} }
func (c *RefCommand) Description() string { return "Manage reference images (add, pick, rm, ls)" }
func (c *RefCommand) Usage() string {
	return "ref <ls|add <file>|pick [uN|id]|rm <n>|close>"
}

func (c *RefCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return c.list(r)
	}

	switch strings.ToLower(args[0]) {
	case "ls", "list":
		return c.list(r)
	case "add", "upload":
		if len(args) < 2 {
			return fmt.Errorf("usage: ref add <file>")
		}
		return c.upload(ctx, r, strings.Join(args[1:], " "))
	case "pick":
		if len(args) < 2 {
			r.studio.OpenSourcePicker()
			return c.picker(r)
		}
		return c.pick(r, args[1])
	case "rm", "remove":
		if len(args) < 2 {
			return fmt.Errorf("usage: ref rm <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid position: %s", args[1])
		}
		if err := r.studio.RemoveReference(n - 1); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Removed reference %d.\n", n)
		return nil
	case "close":
		r.studio.CloseSourcePicker()
		return nil
	default:
		return fmt.Errorf("unknown ref command: %s\nUsage: %s", args[0], c.Usage())
	}
}

func (c *RefCommand) list(r *REPL) error {
	refs := r.studio.Snapshot().References
	if len(refs) == 0 {
		fmt.Fprintln(r.out, "No reference images. Use 'ref add <file>' or 'ref pick'.")
		return nil
	}

	fmt.Fprintf(r.out, "Reference images (%d):\n", len(refs))
	for i, ref := range refs {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, describeRef(ref))
	}
	return nil
}

func (c *RefCommand) upload(ctx context.Context, r *REPL, path string) error {
	data, err := image.ReadAsDataURL(path)
	if err != nil {
		return err
	}
	return reported(r.studio.AddUpload(ctx, data))
}

func (c *RefCommand) picker(r *REPL) error {
	snap := r.studio.Snapshot()

	fmt.Fprintln(r.out, "Uploads:")
	if len(snap.Uploads) == 0 {
		fmt.Fprintln(r.out, "  (none)")
	}
	for i, u := range snap.Uploads {
		fmt.Fprintf(r.out, "  u%-4d %s\n", i+1, describeRef(u.Base64Data))
	}

	fmt.Fprintln(r.out, "Generations:")
	var shots int
	for _, item := range snap.History {
		if item.IsImage() {
			shots++
			fmt.Fprintf(r.out, "  #%-4d %s\n", item.ID, truncate(orDash(item.Prompt), 60))
		}
	}
	if shots == 0 {
		fmt.Fprintln(r.out, "  (none)")
	}
	fmt.Fprintln(r.out, "Pick one with 'ref pick uN' or 'ref pick <id>'.")
	return nil
}

func (c *RefCommand) pick(r *REPL, arg string) error {
	var data string
	if n, ok := strings.CutPrefix(strings.ToLower(arg), "u"); ok {
		i, err := strconv.Atoi(n)
		uploads := r.studio.Snapshot().Uploads
		if err != nil || i < 1 || i > len(uploads) {
			return fmt.Errorf("no upload %s", arg)
		}
		data = uploads[i-1].Base64Data
	} else {
		item, err := r.item(arg)
		if err != nil {
			return err
		}
		if !item.IsImage() {
			return models.ErrNotAnImage
		}
		data = item.URL
	}

	err := r.studio.SelectReference(data)
	if errors.Is(err, studio.ErrDuplicateRef) {
		fmt.Fprintln(r.out, "Already in the dock.")
		return nil
	}
	return err
}

func describeRef(ref string) string {
	if security.IsDataURL(ref) {
		header, _, _ := strings.Cut(ref, ",")
		return fmt.Sprintf("%s (%d KB inline)", strings.TrimPrefix(header, "data:"), len(ref)*3/4/1024)
	}
	return truncate(ref, 80)
}

// GearCommand picks the camera, lens and focal length
type GearCommand struct{}

func (c *GearCommand) Name() string        { return "gear" }
func (c *GearCommand) Aliases() []string   { return []string{"camera", "cam"} }
func (c *GearCommand) Description() string { return "Show or change the camera, lens and focal length" }
func (c *GearCommand) Usage() string {
	return "gear [list|camera <name>|lens <name>|focal <mm>]"
}

func (c *GearCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Gear: %s\n", r.studio.Snapshot().Gear)
		return nil
	}

	sub := strings.ToLower(args[0])
	if sub == "list" {
		c.list(r)
		return nil
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	value := strings.Join(args[1:], " ")
	var err error
	switch sub {
	case "camera", "cam":
		err = r.studio.SetCamera(value)
	case "lens":
		err = r.studio.SetLens(value)
	case "focal", "focal_length", "mm":
		err = r.studio.SetFocalLength(value)
	default:
		return fmt.Errorf("unknown gear setting: %s\nUsage: %s", sub, c.Usage())
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Gear: %s\n", r.studio.Snapshot().Gear)
	return nil
}

func (c *GearCommand) list(r *REPL) {
	current := r.studio.Snapshot().Gear

	fmt.Fprintln(r.out, "Cameras:")
	for _, cam := range models.Cameras() {
		fmt.Fprintf(r.out, "  %s %-22s %s\n", marker(cam.Name == current.Camera.Name), cam.Name, cam.Type)
	}
	fmt.Fprintln(r.out, "Lenses:")
	for _, l := range models.Lenses() {
		fmt.Fprintf(r.out, "  %s %-22s %s\n", marker(l.Name == current.Lens.Name), l.Name, l.Type)
	}
	fmt.Fprintf(r.out, "Focal lengths: %s\n", strings.Join(models.FocalLengths(), ", "))
}

func marker(selected bool) string {
	if selected {
		return "*"
	}
	return " "
}

// MovementCommand picks the camera movement for videos
type MovementCommand struct{}

func (c *MovementCommand) Name() string        { return "movement" }
func (c *MovementCommand) Aliases() []string   { return []string{"move"} }
func (c *MovementCommand) Description() string { return "Show or set the camera movement for videos" }
func (c *MovementCommand) Usage() string       { return "movement [name]" }

func (c *MovementCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		current := r.studio.Snapshot().Movement
		for _, m := range models.Movements() {
			fmt.Fprintf(r.out, "  %s %-10s %s\n", marker(m.ID == current.ID), m.ID, m.Name)
		}
		return nil
	}

	if err := r.studio.SetMovement(strings.Join(args, " ")); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Movement set to: %s\n", r.studio.Snapshot().Movement.Name)
	return nil
}

// RatioCommand picks the aspect ratio
type RatioCommand struct{}

func (c *RatioCommand) Name() string        { return "ratio" }
func (c *RatioCommand) Aliases() []string   { return []string{"aspect", "ar"} }
func (c *RatioCommand) Description() string { return "Show or set the aspect ratio" }
func (c *RatioCommand) Usage() string       { return "ratio [" + strings.Join(models.AspectRatios(), "|") + "]" }

func (c *RatioCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Aspect ratio: %s (options: %s)\n", r.studio.Snapshot().AspectRatio, strings.Join(models.AspectRatios(), ", "))
		return nil
	}

	if err := r.studio.SetAspectRatio(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Aspect ratio set to: %s\n", args[0])
	return nil
}

// StrengthCommand sets how closely a shot follows its references
type StrengthCommand struct{}

func (c *StrengthCommand) Name() string        { return "strength" }
func (c *StrengthCommand) Aliases() []string   { return []string{"likeness"} }
func (c *StrengthCommand) Description() string { return "Show or set reference likeness" }
func (c *StrengthCommand) Usage() string       { return "strength [strict|balanced|creative|0-1]" }

func (c *StrengthCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		current := r.studio.Snapshot().Strength
		for _, p := range models.StrengthPresets() {
			fmt.Fprintf(r.out, "  %s %.2f  %s\n", marker(p.Value == current), p.Value, p.Label)
		}
		return nil
	}

	v, err := parseStrength(args[0])
	if err != nil {
		return err
	}
	if err := r.studio.SetStrength(v); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Strength set to: %s\n", strengthLabel(v))
	return nil
}

func parseStrength(arg string) (float64, error) {
	for _, p := range models.StrengthPresets() {
		if strings.Contains(strings.ToLower(p.Label), strings.ToLower(arg)) {
			return p.Value, nil
		}
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidStrength, arg)
	}
	return v, nil
}

func strengthLabel(v float64) string {
	for _, p := range models.StrengthPresets() {
		if p.Value == v {
			return fmt.Sprintf("%.2f (%s)", v, p.Label)
		}
	}
	return fmt.Sprintf("%.2f", v)
}
