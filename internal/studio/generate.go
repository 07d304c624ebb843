package studio

import (
	"context"
	"errors"
	"fmt"

	"github.com/manash/cinestudio/internal/journal"
	"github.com/manash/cinestudio/pkg/models"
)

// Generate submits the dock for the active tab: an image from the prompt and
// references, or a video animating the displayed result.
func (s *Session) Generate(ctx context.Context) error {
	return s.generate(ctx, "", false)
}

// Recreate re-runs generation with an edited prompt from the result sidebar.
func (s *Session) Recreate(ctx context.Context, prompt string) error {
	return s.generate(ctx, prompt, true)
}

type generation struct {
	tab     models.MediaType
	image   *models.GenerateImageRequest
	video   *models.GenerateVideoRequest
	token   uint64
	camera  string
	journal *journal.Entry
}

func (s *Session) generate(ctx context.Context, override string, useOverride bool) error {
	g, err := s.beginGeneration(override, useOverride)
	if err != nil {
		s.notifier.Error(0, validationMessage(err))
		return err
	}

	id := s.notifier.Loading(fmt.Sprintf("Developing your shot... (using %s)", g.camera))
	s.log.Debug("generating", "tab", g.tab, "camera", g.camera)

	url, err := s.callGenerate(ctx, g)

	g.journal.Metadata.ResultURL = url
	if err != nil {
		g.journal.Status = journal.StatusFailed
		g.journal.Detail = err.Error()
	}
	s.record(ctx, g.journal)

	s.mu.Lock()
	stale := g.token != s.genToken
	if !stale {
		s.generating = false
		if err == nil {
			s.resultURL = url
			if g.tab == models.MediaImage {
				s.sidebarOpen = true
			}
		}
	}
	s.mu.Unlock()

	if err == nil {
		s.refreshQuietly(ctx)
	}

	if stale {
		s.log.Debug("discarding superseded generation", "tab", g.tab)
		return ErrStale
	}
	if err != nil {
		s.notifier.Error(id, "Generation failed: "+err.Error())
		return err
	}
	s.notifier.Success(id, "Shot developed successfully!")
	return nil
}

// beginGeneration validates the dock and, on success, clears the result and
// closes the sidebar while the request is in flight.
func (s *Session) beginGeneration(override string, useOverride bool) (*generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompt := s.prompt
	if useOverride {
		prompt = override
	}

	switch s.tab {
	case models.MediaImage:
		if prompt == "" && len(s.references) == 0 {
			return nil, models.ErrEmptyPromptAndReferences
		}
	case models.MediaVideo:
		if s.resultURL == "" {
			return nil, models.ErrNoResultToAnimate
		}
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidMediaType, s.tab)
	}

	if useOverride {
		s.prompt = override
	}

	g := &generation{
		tab:    s.tab,
		camera: s.gear.Camera.Name,
		journal: &journal.Entry{
			Prompt: prompt,
			Metadata: journal.Metadata{
				Camera:      s.gear.Camera.Name,
				Lens:        s.gear.Lens.Name,
				FocalLength: s.gear.FocalLength,
				AspectRatio: s.aspectRatio,
			},
		},
	}

	if s.tab == models.MediaImage {
		g.image = models.NewImageRequest(prompt, s.gear, s.aspectRatio, s.references, s.strength)
		g.journal.Operation = journal.OpGenerateImage
		g.journal.Metadata.Strength = s.strength
		g.journal.Metadata.References = len(s.references)
	} else {
		g.video = models.NewVideoRequest(prompt, s.gear, s.aspectRatio, s.resultURL)
		g.journal.Operation = journal.OpGenerateVideo
	}

	s.genToken++
	g.token = s.genToken
	s.generating = true
	s.resultURL = ""
	s.sidebarOpen = false
	return g, nil
}

func (s *Session) callGenerate(ctx context.Context, g *generation) (string, error) {
	if g.image != nil {
		resp, err := s.backend.GenerateImage(ctx, g.image)
		if err != nil {
			return "", err
		}
		return resp.ImageURL, nil
	}

	resp, err := s.backend.GenerateVideo(ctx, g.video)
	if err != nil {
		return "", err
	}
	return resp.VideoURL, nil
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrEmptyPromptAndReferences):
		return "Please enter a prompt or add an image."
	case errors.Is(err, models.ErrNoResultToAnimate):
		return "Please select an image first to animate."
	default:
		return err.Error()
	}
}
