// Package studio holds the state of one studio session and every transition
// the user can trigger on it.
//
// All mutations go through Session methods. Backend calls run without the
// session lock held, so a slow request never blocks reads; responses are
// applied only when the request that produced them is still the latest of
// its kind.
package studio

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/manash/cinestudio/internal/backend"
	"github.com/manash/cinestudio/internal/image"
	"github.com/manash/cinestudio/internal/journal"
	"github.com/manash/cinestudio/internal/logging"
	"github.com/manash/cinestudio/internal/multishot"
	"github.com/manash/cinestudio/internal/notify"
	"github.com/manash/cinestudio/pkg/models"
)

var (
	ErrStale             = errors.New("response superseded by a newer request")
	ErrItemNotFound      = errors.New("item not in history")
	ErrNothingToDelete   = errors.New("no shot awaiting deletion")
	ErrNoSuchReference   = errors.New("no reference image at that position")
	ErrDuplicateRef      = errors.New("reference image already added")
	ErrNoRetry           = errors.New("no failed favorite update to retry")
	ErrNoClipboard       = errors.New("no clipboard available")
	ErrNoSaver           = errors.New("downloads are not configured")
	ErrUnsupportedAction = errors.New("feature coming soon")
)

type ViewMode string

const (
	ViewEmpty   ViewMode = "empty"
	ViewGallery ViewMode = "gallery"
)

// Clipboard receives text for the share fallback.
type Clipboard interface {
	Copy(text string) error
}

// ShareFunc hands an item to a native share facility.
type ShareFunc func(ctx context.Context, item *models.GenerationRecord) error

// Journal records costly operations. Failures only produce warnings.
type Journal interface {
	Record(ctx context.Context, e *journal.Entry) error
}

type PreferenceStore interface {
	SetPreference(ctx context.Context, key, value string) error
	Preferences(ctx context.Context) (map[string]string, error)
}

type Options struct {
	Backend     backend.Backend
	Notifier    notify.Notifier
	Saver       *image.Saver
	Clipboard   Clipboard
	Share       ShareFunc
	Journal     Journal
	Preferences PreferenceStore
}

type Session struct {
	backend   backend.Backend
	notifier  notify.Notifier
	saver     *image.Saver
	clipboard Clipboard
	share     ShareFunc
	journal   Journal
	prefs     PreferenceStore
	workflow  *multishot.Workflow
	log       *slog.Logger

	mu            sync.Mutex
	tab           models.MediaType
	prompt        string
	references    []string
	strength      float64
	aspectRatio   string
	resultURL     string
	view          ViewMode
	galleryFilter models.MediaType
	sidebarOpen   bool
	pickerOpen    bool
	gear          models.Gear
	movement      models.Movement
	history       []models.GenerationRecord
	uploads       []models.UploadRecord
	pendingDelete *models.GenerationRecord
	generating    bool
	genToken      uint64
	favorites     map[int64]*favoriteEntry
	favToken      uint64
}

func New(opts Options) *Session {
	n := opts.Notifier
	if n == nil {
		n = notify.Discard{}
	}

	return &Session{
		backend:       opts.Backend,
		notifier:      n,
		saver:         opts.Saver,
		clipboard:     opts.Clipboard,
		share:         opts.Share,
		journal:       opts.Journal,
		prefs:         opts.Preferences,
		workflow:      multishot.New(opts.Backend),
		log:           logging.WithComponent("studio"),
		tab:           models.MediaImage,
		strength:      models.DefaultStrength,
		aspectRatio:   models.DefaultAspectRatio,
		view:          ViewEmpty,
		galleryFilter: models.MediaImage,
		gear:          models.DefaultGear(),
		movement:      models.DefaultMovement(),
		favorites:     make(map[int64]*favoriteEntry),
	}
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Tab              models.MediaType
	Prompt           string
	References       []string
	Strength         float64
	AspectRatio      string
	ResultURL        string
	View             ViewMode
	GalleryFilter    models.MediaType
	SidebarOpen      bool
	SourcePickerOpen bool
	Gear             models.Gear
	Movement         models.Movement
	History          []models.GenerationRecord
	Uploads          []models.UploadRecord
	PendingDelete    *models.GenerationRecord
	Generating       bool
	Multishot        multishot.Snapshot
}

func (s *Session) Snapshot() Snapshot {
	ms := s.workflow.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Tab:              s.tab,
		Prompt:           s.prompt,
		References:       slices.Clone(s.references),
		Strength:         s.strength,
		AspectRatio:      s.aspectRatio,
		ResultURL:        s.resultURL,
		View:             s.view,
		GalleryFilter:    s.galleryFilter,
		SidebarOpen:      s.sidebarOpen,
		SourcePickerOpen: s.pickerOpen,
		Gear:             s.gear,
		Movement:         s.movement,
		History:          slices.Clone(s.history),
		Uploads:          slices.Clone(s.uploads),
		Generating:       s.generating,
		Multishot:        ms,
	}
	if s.pendingDelete != nil {
		item := *s.pendingDelete
		snap.PendingDelete = &item
	}
	return snap
}

func (s *Session) Multishot() *multishot.Workflow {
	return s.workflow
}

// GalleryItems returns the history entries matching the gallery filter.
func (s *Session) GalleryItems() []models.GenerationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.GenerationRecord
	for _, item := range s.history {
		if item.Type == s.galleryFilter {
			items = append(items, item)
		}
	}
	return items
}

func (s *Session) Item(id int64) (models.GenerationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.history[i], true
	}
	return models.GenerationRecord{}, false
}

func (s *Session) indexLocked(id int64) int {
	return slices.IndexFunc(s.history, func(r models.GenerationRecord) bool { return r.ID == id })
}

// Refresh reloads history and uploads. A history failure is logged and
// leaves the previous list in place.
func (s *Session) Refresh(ctx context.Context) error {
	history, err := s.backend.History(ctx)
	if err != nil {
		s.log.Warn("failed to fetch history", "error", err)
		return err
	}

	uploads, uerr := s.backend.Uploads(ctx)
	if uerr != nil {
		s.log.Warn("failed to fetch uploads", "error", uerr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range history {
		if fav, ok := s.favorites[history[i].ID]; ok && fav.status == FavoritePending {
			history[i].IsFavorite = fav.want
		}
	}
	s.history = history
	if uerr == nil {
		s.uploads = uploads
	}
	return nil
}

func (s *Session) refreshQuietly(ctx context.Context) {
	_ = s.Refresh(ctx)
}

func (s *Session) record(ctx context.Context, e *journal.Entry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, e); err != nil {
		s.log.Warn("failed to record operation", "operation", e.Operation, "error", err)
	}
}
