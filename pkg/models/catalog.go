package models

import (
	"fmt"
	"slices"
	"strings"
)

type Camera struct {
	ID   string
	Name string
	Type string
}

type Lens struct {
	ID   string
	Name string
	Type string
}

type Movement struct {
	ID   string
	Name string
}

type StrengthPreset struct {
	Label string
	Value float64
}

// Gear is the simulated capture setup sent with every generation.
type Gear struct {
	Camera      Camera
	Lens        Lens
	FocalLength string
}

func (g Gear) String() string {
	return fmt.Sprintf("%s, %s, %s", g.Camera.Name, g.Lens.Name, g.FocalLength)
}

var cameras = []Camera{
	{ID: "Red V-Raptor", Name: "Red V-Raptor", Type: "DIGITAL"},
	{ID: "Sony Venice", Name: "Sony Venice", Type: "DIGITAL"},
	{ID: "IMAX Film Camera", Name: "IMAX Film Camera", Type: "ANALOG"},
	{ID: "ARRI Alexa 35", Name: "ARRI Alexa 35", Type: "DIGITAL"},
	{ID: "Arriflex 16SR", Name: "Arriflex 16SR", Type: "ANALOG"},
	{ID: "Panavision DXL2", Name: "Panavision DXL2", Type: "DIGITAL"},
	{ID: "Sony A7SIII", Name: "Sony A7SIII", Type: "MIRRORLESS"},
	{ID: "Kodak Portra 400", Name: "Kodak Portra 400", Type: "FILM STOCK"},
	{ID: "Blackmagic URSA 12K", Name: "Blackmagic URSA 12K", Type: "DIGITAL"},
}

var lenses = []Lens{
	{ID: "Lensbaby", Name: "Lensbaby", Type: "SPHERICAL"},
	{ID: "Hawk V-Lite", Name: "Hawk V-Lite", Type: "ANAMORPHIC"},
	{ID: "Laowa Macro", Name: "Laowa Macro", Type: "SPHERICAL"},
	{ID: "Canon K-35", Name: "Canon K-35", Type: "SPHERICAL"},
	{ID: "Panavision C-Series", Name: "Panavision C-Series", Type: "ANAMORPHIC"},
	{ID: "ARRI Signature", Name: "ARRI Signature", Type: "SPHERICAL"},
	{ID: "Cooke S4", Name: "Cooke S4", Type: "SPHERICAL"},
	{ID: "Petzval", Name: "Petzval", Type: "SPHERICAL"},
	{ID: "Helios", Name: "Helios", Type: "SPHERICAL"},
	{ID: "JDC Xtal Xpress", Name: "JDC Xtal Xpress", Type: "SPHERICAL"},
	{ID: "Zeiss Ultra Prime", Name: "Zeiss Ultra Prime", Type: "SPHERICAL"},
}

var focalLengths = []string{"8mm", "14mm", "24mm", "35mm", "50mm", "85mm", "135mm"}

var movements = []Movement{
	{ID: "static", Name: "Static"},
	{ID: "handheld", Name: "Handheld"},
	{ID: "zoom-out", Name: "Zoom Out"},
	{ID: "zoom-in", Name: "Zoom in"},
	{ID: "pan-left", Name: "Pan left"},
	{ID: "pan-right", Name: "Pan right"},
	{ID: "tilt-up", Name: "Tilt up"},
	{ID: "tilt-down", Name: "Tilt down"},
	{ID: "orbit", Name: "Orbit"},
	{ID: "dolly-in", Name: "Dolly in"},
	{ID: "dolly-out", Name: "Dolly out"},
}

var aspectRatios = []string{"21:9", "16:9", "4:3", "1:1", "9:16"}

var strengthPresets = []StrengthPreset{
	{Label: "High (Strict)", Value: 0.45},
	{Label: "Balanced", Value: 0.65},
	{Label: "Creative (New Scene)", Value: 0.75},
}

const (
	DefaultAspectRatio = "21:9"
	DefaultStrength    = 0.75
)

func Cameras() []Camera { return slices.Clone(cameras) }
func Lenses() []Lens { return slices.Clone(lenses) }
func FocalLengths() []string { return slices.Clone(focalLengths) }
func Movements() []Movement { return slices.Clone(movements) }
func AspectRatios() []string { return slices.Clone(aspectRatios) }
func StrengthPresets() []StrengthPreset { return slices.Clone(strengthPresets) }

// DefaultGear returns the first entry of each catalog.
func DefaultGear() Gear {
	return Gear{
		Camera:      cameras[0],
		Lens:        lenses[0],
		FocalLength: focalLengths[0],
	}
}

func DefaultMovement() Movement {
	return movements[0]
}

// FindCamera matches by name or id, case-insensitively.
func FindCamera(name string) (Camera, error) {
	for _, c := range cameras {
		if strings.EqualFold(c.Name, name) || strings.EqualFold(c.ID, name) {
			return c, nil
		}
	}
	return Camera{}, fmt.Errorf("%w: %q", ErrUnknownCamera, name)
}

func FindLens(name string) (Lens, error) {
	for _, l := range lenses {
		if strings.EqualFold(l.Name, name) || strings.EqualFold(l.ID, name) {
			return l, nil
		}
	}
	return Lens{}, fmt.Errorf("%w: %q", ErrUnknownLens, name)
}

func FindFocalLength(v string) (string, error) {
	for _, f := range focalLengths {
		if strings.EqualFold(f, v) || strings.EqualFold(strings.TrimSuffix(f, "mm"), v) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFocalLength, v)
}

func FindMovement(v string) (Movement, error) {
	for _, m := range movements {
		if strings.EqualFold(m.ID, v) || strings.EqualFold(m.Name, v) {
			return m, nil
		}
	}
	return Movement{}, fmt.Errorf("%w: %q", ErrUnknownMovement, v)
}

func FindAspectRatio(v string) (string, error) {
	if slices.Contains(aspectRatios, v) {
		return v, nil
	}
	return "", fmt.Errorf("%w: %q not in %v", ErrUnknownAspectRatio, v, aspectRatios)
}

// GearFromRecord rebuilds the gear used for a history item. Values the
// catalogs do not know fall back to the first entry.
func GearFromRecord(r *GenerationRecord) Gear {
	gear := DefaultGear()
	if c, err := FindCamera(r.Camera); err == nil {
		gear.Camera = c
	}
	if l, err := FindLens(r.Lens); err == nil {
		gear.Lens = l
	}
	if r.FocalLength != "" {
		gear.FocalLength = r.FocalLength
	}
	return gear
}
