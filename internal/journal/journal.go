// Package journal keeps a local record of costly studio operations and the
// user's last studio settings.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Journal stamps entries with a per-process session id.
type Journal struct {
	store     *Store
	sessionID string
	now       func() time.Time
}

func New(store *Store) *Journal {
	return &Journal{
		store:     store,
		sessionID: uuid.New().String(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (j *Journal) SessionID() string {
	return j.sessionID
}

func (j *Journal) Store() *Store {
	return j.store
}

func (j *Journal) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.SessionID = j.sessionID
	if e.Timestamp.IsZero() {
		e.Timestamp = j.now()
	}
	if e.Count == 0 {
		e.Count = 1
	}
	if e.Status == "" {
		e.Status = StatusSuccess
	}
	return j.store.Insert(ctx, e)
}

func (j *Journal) SetPreference(ctx context.Context, key, value string) error {
	return j.store.SetPreference(ctx, key, value)
}

func (j *Journal) Preferences(ctx context.Context) (map[string]string, error) {
	return j.store.Preferences(ctx)
}

func (j *Journal) SessionCredits(ctx context.Context) (*CreditSummary, error) {
	return j.store.SessionCredits(ctx, j.sessionID)
}

func (j *Journal) Close() error {
	return j.store.Close()
}
