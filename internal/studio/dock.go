package studio

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/manash/cinestudio/internal/security"
	"github.com/manash/cinestudio/pkg/models"
)

// Preference keys stored between runs.
const (
	PrefCamera      = "camera"
	PrefLens        = "lens"
	PrefFocalLength = "focal_length"
	PrefMovement    = "movement"
	PrefAspectRatio = "aspect_ratio"
	PrefStrength    = "image_strength"
)

func (s *Session) SetTab(tab models.MediaType) error {
	if !tab.IsValid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidMediaType, tab)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tab = tab
	return nil
}

func (s *Session) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = prompt
}

func (s *Session) SetCamera(name string) error {
	c, err := models.FindCamera(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gear.Camera = c
	return nil
}

func (s *Session) SetLens(name string) error {
	l, err := models.FindLens(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gear.Lens = l
	return nil
}

func (s *Session) SetFocalLength(v string) error {
	f, err := models.FindFocalLength(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gear.FocalLength = f
	return nil
}

func (s *Session) SetMovement(v string) error {
	m, err := models.FindMovement(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movement = m
	return nil
}

func (s *Session) SetAspectRatio(v string) error {
	r, err := models.FindAspectRatio(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aspectRatio = r
	return nil
}

func (s *Session) SetStrength(v float64) error {
	if err := models.ValidateStrength(v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strength = v
	return nil
}

func (s *Session) OpenSourcePicker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pickerOpen = true
}

func (s *Session) CloseSourcePicker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pickerOpen = false
}

// AddUpload shows a new reference right away, then persists it. A failed
// upload keeps the reference in the dock.
func (s *Session) AddUpload(ctx context.Context, dataURL string) error {
	if !security.IsDataURL(dataURL) {
		return fmt.Errorf("%w: reference must be an inline image", security.ErrMalformedData)
	}

	id := s.notifier.Loading("Uploading reference image...")

	s.mu.Lock()
	if !slices.Contains(s.references, dataURL) {
		s.references = append(s.references, dataURL)
	}
	s.pickerOpen = false
	s.mu.Unlock()

	if err := s.backend.Upload(ctx, dataURL); err != nil {
		s.log.Warn("upload failed", "error", err)
		s.notifier.Error(id, "Upload failed")
		return err
	}

	s.refreshQuietly(ctx)
	s.notifier.Success(id, "Upload complete")
	return nil
}

// SelectReference adds a previous upload or generation as a reference.
func (s *Session) SelectReference(data string) error {
	if err := security.ValidateMediaURL(data); err != nil {
		return err
	}

	s.mu.Lock()
	if slices.Contains(s.references, data) {
		s.mu.Unlock()
		return ErrDuplicateRef
	}
	s.references = append(s.references, data)
	s.pickerOpen = false
	s.mu.Unlock()

	s.notifier.Success(0, "Added to reference images")
	return nil
}

func (s *Session) RemoveReference(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.references) {
		return fmt.Errorf("%w: %d", ErrNoSuchReference, index)
	}
	s.references = slices.Delete(s.references, index, index+1)
	return nil
}

func (s *Session) ClearDock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearDockLocked()
}

func (s *Session) clearDockLocked() {
	s.prompt = ""
	s.references = nil
}

// supersedeLocked drops interest in any in-flight generation.
func (s *Session) supersedeLocked() {
	if s.generating {
		s.genToken++
		s.generating = false
	}
}

func (s *Session) GoHome() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.resultURL = ""
	s.view = ViewEmpty
	s.clearDockLocked()
}

func (s *Session) OpenGallery(filter models.MediaType) error {
	if !filter.IsValid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidMediaType, filter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.resultURL = ""
	s.view = ViewGallery
	s.galleryFilter = filter
	s.clearDockLocked()
	return nil
}

// SelectFromGallery focuses an item, loading its prompt and gear.
func (s *Session) SelectFromGallery(item *models.GenerationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.resultURL = item.URL
	if item.Prompt != "" {
		s.prompt = item.Prompt
	}
	s.gear = models.GearFromRecord(item)
	s.sidebarOpen = true
	s.tab = item.Type
}

func (s *Session) CloseFocus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.resultURL = ""
	s.sidebarOpen = false
	s.clearDockLocked()
}

// SavePreferences stores the current gear and dock settings.
func (s *Session) SavePreferences(ctx context.Context) error {
	if s.prefs == nil {
		return nil
	}

	s.mu.Lock()
	values := map[string]string{
		PrefCamera:      s.gear.Camera.Name,
		PrefLens:        s.gear.Lens.Name,
		PrefFocalLength: s.gear.FocalLength,
		PrefMovement:    s.movement.ID,
		PrefAspectRatio: s.aspectRatio,
		PrefStrength:    strconv.FormatFloat(s.strength, 'f', -1, 64),
	}
	s.mu.Unlock()

	for _, k := range slices.Sorted(maps.Keys(values)) {
		if err := s.prefs.SetPreference(ctx, k, values[k]); err != nil {
			return fmt.Errorf("failed to save preference %s: %w", k, err)
		}
	}
	return nil
}

// LoadPreferences applies stored settings. Values the catalogs no longer
// know are skipped.
func (s *Session) LoadPreferences(ctx context.Context) error {
	if s.prefs == nil {
		return nil
	}

	prefs, err := s.prefs.Preferences(ctx)
	if err != nil {
		return err
	}

	apply := func(key string, set func(string) error) {
		v, ok := prefs[key]
		if !ok {
			return
		}
		if err := set(v); err != nil {
			s.log.Debug("ignoring stored preference", "key", key, "error", err)
		}
	}
	apply(PrefCamera, s.SetCamera)
	apply(PrefLens, s.SetLens)
	apply(PrefFocalLength, s.SetFocalLength)
	apply(PrefMovement, s.SetMovement)
	apply(PrefAspectRatio, s.SetAspectRatio)
	apply(PrefStrength, func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		return s.SetStrength(f)
	})
	return nil
}
