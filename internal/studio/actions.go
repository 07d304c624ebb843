package studio

import (
	"context"
	"errors"
	"fmt"

	"github.com/manash/cinestudio/internal/multishot"
	"github.com/manash/cinestudio/pkg/models"
)

// Gallery action tags.
const (
	ActionViewProxies = "view_proxies"
	ActionMultishot   = "multishot"
	ActionDelete      = "delete"
	ActionLike        = "like"
	ActionCopy        = "copy"
	ActionDownload    = "download"
	ActionShare       = "share"
)

type actionFunc func(s *Session, ctx context.Context, item *models.GenerationRecord) error

var actions = map[string]actionFunc{
	ActionViewProxies: (*Session).ViewStoryboard,
	ActionMultishot:   (*Session).RequestMultishot,
	ActionDelete: func(s *Session, _ context.Context, item *models.GenerationRecord) error {
		s.RequestDelete(item)
		return nil
	},
	ActionLike: func(s *Session, ctx context.Context, item *models.GenerationRecord) error {
		return s.ToggleFavorite(ctx, item.ID)
	},
	ActionCopy: (*Session).Duplicate,
	ActionDownload: func(s *Session, ctx context.Context, item *models.GenerationRecord) error {
		_, err := s.Download(ctx, item)
		return err
	},
	ActionShare: (*Session).Share,
}

// Dispatch runs a gallery action against item. Unknown tags produce a
// "coming soon" notice.
func (s *Session) Dispatch(ctx context.Context, action string, item *models.GenerationRecord) error {
	fn, ok := actions[action]
	if !ok {
		s.notifier.Info("Feature coming soon!")
		return fmt.Errorf("%w: %s", ErrUnsupportedAction, action)
	}
	if item == nil {
		return ErrItemNotFound
	}
	return fn(s, ctx, item)
}

// ActionNames lists the tags Dispatch understands.
func ActionNames() []string {
	return []string{ActionViewProxies, ActionMultishot, ActionDelete, ActionLike, ActionCopy, ActionDownload, ActionShare}
}

func (s *Session) RequestDelete(item *models.GenerationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.pendingDelete = &cp
}

func (s *Session) CancelDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingDelete = nil
}

// ConfirmDelete deletes the pending item. On failure the gate stays open.
func (s *Session) ConfirmDelete(ctx context.Context) error {
	s.mu.Lock()
	item := s.pendingDelete
	s.mu.Unlock()
	if item == nil {
		return ErrNothingToDelete
	}

	if err := s.backend.Delete(ctx, item.ID); err != nil {
		s.log.Warn("delete failed", "id", item.ID, "error", err)
		s.notifier.Error(0, "Failed to delete shot")
		return err
	}

	s.mu.Lock()
	s.history = removeRecord(s.history, item.ID)
	delete(s.favorites, item.ID)
	if s.pendingDelete != nil && s.pendingDelete.ID == item.ID {
		s.pendingDelete = nil
	}
	s.mu.Unlock()

	s.notifier.Success(0, "Shot deleted permanently")
	return nil
}

func removeRecord(history []models.GenerationRecord, id int64) []models.GenerationRecord {
	out := history[:0:0]
	for _, r := range history {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func (s *Session) Duplicate(ctx context.Context, item *models.GenerationRecord) error {
	if err := s.backend.Duplicate(ctx, item.ID); err != nil {
		s.log.Warn("duplicate failed", "id", item.ID, "error", err)
		s.notifier.Error(0, "Failed to duplicate")
		return err
	}
	s.refreshQuietly(ctx)
	s.notifier.Success(0, "Shot duplicated to library")
	return nil
}

// Download saves the item's media and returns the written path.
func (s *Session) Download(ctx context.Context, item *models.GenerationRecord) (string, error) {
	if s.saver == nil {
		s.notifier.Error(0, "Download failed")
		return "", ErrNoSaver
	}

	path, err := s.saver.Save(ctx, item)
	if err != nil {
		s.log.Warn("download failed", "id", item.ID, "error", err)
		s.notifier.Error(0, "Download failed")
		return "", err
	}
	s.notifier.Success(0, "Saved to downloads: "+path)
	return path, nil
}

// Share uses the native share hook when present, else copies the URL.
func (s *Session) Share(ctx context.Context, item *models.GenerationRecord) error {
	if s.share != nil {
		if err := s.share(ctx, item); err != nil {
			s.log.Warn("share failed", "id", item.ID, "error", err)
			return err
		}
		return nil
	}

	if s.clipboard == nil {
		s.notifier.Error(0, "Share failed")
		return ErrNoClipboard
	}
	if err := s.clipboard.Copy(item.URL); err != nil {
		s.notifier.Error(0, "Share failed")
		return err
	}
	s.notifier.Success(0, "Link copied to clipboard")
	return nil
}

// ViewStoryboard opens existing multishot candidates for item.
func (s *Session) ViewStoryboard(ctx context.Context, item *models.GenerationRecord) error {
	if !item.IsImage() {
		s.notifier.Error(0, "Storyboards are only for images.")
		return models.ErrNotAnImage
	}

	err := s.workflow.ViewStoryboard(ctx, item)
	switch {
	case err == nil:
		s.notifier.Success(0, "Opening storyboard...")
	case errors.Is(err, multishot.ErrNoStoryboard):
		s.notifier.Info(fmt.Sprintf("No storyboard found. Run 'multishot %d' to create one.", item.ID))
	case errors.Is(err, multishot.ErrStale):
	default:
		s.log.Warn("failed to load storyboard", "id", item.ID, "error", err)
		s.notifier.Error(0, "Failed to load storyboard.")
	}
	return err
}
