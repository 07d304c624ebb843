package studio

import (
	"context"
	"fmt"
)

type FavoriteStatus int

const (
	FavoriteCommitted FavoriteStatus = iota
	FavoritePending
	FavoriteFailed
)

func (f FavoriteStatus) String() string {
	switch f {
	case FavoritePending:
		return "pending"
	case FavoriteFailed:
		return "failed"
	default:
		return "committed"
	}
}

type favoriteEntry struct {
	status FavoriteStatus
	want   bool
	// committed is the last value the backend acknowledged.
	committed bool
	token     uint64
}

// FavoriteStatus reports the sync state of an item's favorite flag. Items
// never toggled in this session are committed.
func (s *Session) FavoriteStatus(id int64) FavoriteStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fav, ok := s.favorites[id]; ok {
		return fav.status
	}
	return FavoriteCommitted
}

// ToggleFavorite flips the flag locally at once, then syncs it. A backend
// failure restores the last acknowledged value and marks the item failed.
func (s *Session) ToggleFavorite(ctx context.Context, id int64) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	want := !s.history[i].IsFavorite
	s.mu.Unlock()

	return s.syncFavorite(ctx, id, want)
}

// RetryFavorite re-sends the last failed favorite change for id.
func (s *Session) RetryFavorite(ctx context.Context, id int64) error {
	s.mu.Lock()
	fav, ok := s.favorites[id]
	if !ok || fav.status != FavoriteFailed {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoRetry, id)
	}
	want := fav.want
	s.mu.Unlock()

	return s.syncFavorite(ctx, id, want)
}

func (s *Session) syncFavorite(ctx context.Context, id int64, want bool) error {
	s.mu.Lock()
	s.favToken++
	tok := s.favToken
	committed := !want
	if i := s.indexLocked(id); i >= 0 {
		committed = s.history[i].IsFavorite
	}
	if prev, ok := s.favorites[id]; ok && prev.status != FavoriteCommitted {
		committed = prev.committed
	}
	s.favorites[id] = &favoriteEntry{status: FavoritePending, want: want, committed: committed, token: tok}
	s.setFavoriteLocked(id, want)
	s.mu.Unlock()

	err := s.backend.SetFavorite(ctx, id, want)

	s.mu.Lock()
	fav := s.favorites[id]
	if fav == nil || fav.token != tok {
		// A newer toggle owns the item, but an older success still moves
		// what the backend holds.
		if fav != nil && err == nil {
			fav.committed = want
		}
		s.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		fav.status = FavoriteFailed
		s.setFavoriteLocked(id, fav.committed)
		s.mu.Unlock()

		s.log.Warn("favorite update failed", "id", id, "error", err)
		s.notifier.Error(0, fmt.Sprintf("Failed to update favorite (retry with 'like retry %d')", id))
		return err
	}
	fav.status = FavoriteCommitted
	fav.committed = want
	s.mu.Unlock()
	return nil
}

func (s *Session) setFavoriteLocked(id int64, v bool) {
	if i := s.indexLocked(id); i >= 0 {
		s.history[i].IsFavorite = v
	}
}
