package studio

import (
	"context"
	"errors"
	"fmt"

	"github.com/manash/cinestudio/internal/journal"
	"github.com/manash/cinestudio/internal/multishot"
	"github.com/manash/cinestudio/pkg/models"
)

// RequestMultishot opens the confirmation gate for a multishot run.
func (s *Session) RequestMultishot(_ context.Context, item *models.GenerationRecord) error {
	if err := s.workflow.Request(item); err != nil {
		s.notifier.Error(0, "Multishot is only for images.")
		return err
	}
	return nil
}

func (s *Session) CancelMultishot() {
	s.workflow.Cancel()
}

// ConfirmMultishot generates the alternative angles for the pending source.
func (s *Session) ConfirmMultishot(ctx context.Context) error {
	src := s.workflow.Snapshot().Source
	if src == nil {
		return multishot.ErrNotPending
	}

	id := s.notifier.Loading(fmt.Sprintf("Generating %d alternative angles...", models.MultishotCount))
	err := s.workflow.Confirm(ctx)
	if errors.Is(err, multishot.ErrNotPending) {
		s.notifier.Error(id, "No multishot awaiting confirmation.")
		return err
	}

	// A closed storyboard only drops the candidates; the run itself still
	// happened and is journaled.
	closed := errors.Is(err, multishot.ErrStale)
	if err == multishot.ErrStale {
		err = nil
	}

	entry := &journal.Entry{
		Operation: journal.OpMultishot,
		SourceID:  src.ID,
		Prompt:    src.Prompt,
		Count:     models.MultishotCount,
	}
	if err != nil {
		entry.Status = journal.StatusFailed
		entry.Detail = err.Error()
	}
	s.record(ctx, entry)

	if err != nil {
		s.notifier.Error(id, "Multishot generation failed.")
		return err
	}
	if closed {
		s.notifier.Success(id, fmt.Sprintf("Angles generated! Run 'storyboard %d' to pick shots.", src.ID))
		return multishot.ErrStale
	}
	s.notifier.Success(id, "Angles generated!")
	return nil
}

func (s *Session) ToggleShot(proxyID int64) (bool, error) {
	return s.workflow.Toggle(proxyID)
}

// UpscaleSelection finalizes the selected shots and refreshes history.
func (s *Session) UpscaleSelection(ctx context.Context) (*models.UpscaleResponse, error) {
	snap := s.workflow.Snapshot()
	n := len(snap.Selected)
	if snap.State != multishot.Selecting {
		s.notifier.Error(0, "No storyboard is open.")
		return nil, multishot.ErrNotSelecting
	}
	if n == 0 {
		s.notifier.Error(0, "Select at least one shot to upscale.")
		return nil, models.ErrEmptySelection
	}

	est := multishot.EstimateUpscale(n)
	id := s.notifier.Loading(fmt.Sprintf("Upscaling %d shots... (~%d seconds, %d credits)", n, est.Seconds, est.Credits))

	resp, err := s.workflow.Upscale(ctx)
	if errors.Is(err, multishot.ErrNotSelecting) {
		s.notifier.Error(id, "Storyboard is no longer open.")
		return nil, err
	}
	// The backend finished the upscale even if the storyboard closed
	// meanwhile, so the credits and new shots still count.
	if errors.Is(err, multishot.ErrStale) && resp != nil {
		err = nil
	}

	entry := &journal.Entry{
		Operation: journal.OpUpscale,
		Count:     n,
		Credits:   est.Credits,
		Metadata:  journal.Metadata{ProxyIDs: snap.Selected},
	}
	if snap.Source != nil {
		entry.SourceID = snap.Source.ID
	}
	if err != nil {
		entry.Status = journal.StatusFailed
		entry.Detail = err.Error()
	}
	s.record(ctx, entry)

	if err != nil {
		s.notifier.Error(id, "Upscale process failed.")
		return nil, err
	}

	s.refreshQuietly(ctx)
	s.notifier.Success(id, fmt.Sprintf("Successfully added %d high-res shots to library!", resp.UpscaledCount))
	return resp, nil
}

func (s *Session) CloseMultishot() {
	s.workflow.Close()
}
