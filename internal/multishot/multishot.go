// Package multishot drives the storyboard workflow for a single source
// image: confirm, generate candidates, select a subset, upscale.
package multishot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/manash/cinestudio/internal/logging"
	"github.com/manash/cinestudio/pkg/models"
)

var (
	ErrNoStoryboard   = errors.New("no storyboard found")
	ErrNotPending     = errors.New("no multishot awaiting confirmation")
	ErrNotSelecting   = errors.New("storyboard is not open")
	ErrUnknownProxy   = errors.New("shot is not part of this storyboard")
	ErrStale          = errors.New("multishot response discarded")
	ErrNoCandidates   = errors.New("backend returned no candidate shots")
	ErrMissingBackend = errors.New("multishot backend not configured")
)

const (
	secondsPerShot = 30
	upscaleFactor  = 0.05
	creditsPerShot = 5
)

type State int

const (
	Idle State = iota
	ConfirmPending
	Generating
	Selecting
	Upscaling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ConfirmPending:
		return "confirm_pending"
	case Generating:
		return "generating"
	case Selecting:
		return "selecting"
	case Upscaling:
		return "upscaling"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Backend is the subset of the studio backend the workflow talks to.
type Backend interface {
	Proxies(ctx context.Context, sourceID int64) ([]models.ProxyShot, error)
	GenerateMultishot(ctx context.Context, sourceID int64) (*models.MultishotResponse, error)
	UpscaleProxies(ctx context.Context, proxyIDs []int64) (*models.UpscaleResponse, error)
}

type Estimate struct {
	Seconds int
	Credits int
}

// EstimateUpscale reports the expected wait and cost for n selected shots.
func EstimateUpscale(n int) Estimate {
	if n <= 0 {
		return Estimate{}
	}
	return Estimate{
		Seconds: int(math.Ceil(float64(n) * secondsPerShot * upscaleFactor)),
		Credits: n * creditsPerShot,
	}
}

// Workflow is safe for concurrent use. Backend calls run without holding the
// lock; every call carries a token and its result is dropped when the
// workflow has moved on in the meantime. A new Request or ViewStoryboard
// supersedes whatever is in flight.
type Workflow struct {
	backend Backend

	mu         sync.Mutex
	state      State
	source     *models.GenerationRecord
	candidates []models.ProxyShot
	selected   []int64
	token      uint64
}

func New(backend Backend) *Workflow {
	return &Workflow{backend: backend}
}

type Snapshot struct {
	State      State
	Source     *models.GenerationRecord
	Candidates []models.ProxyShot
	Selected   []int64
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		State:      w.state,
		Candidates: slices.Clone(w.candidates),
		Selected:   slices.Clone(w.selected),
	}
	if w.source != nil {
		src := *w.source
		snap.Source = &src
	}
	return snap
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Request asks for confirmation before generating candidates for item.
func (w *Workflow) Request(item *models.GenerationRecord) error {
	if item == nil || !item.IsImage() {
		return models.ErrNotAnImage
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.resetLocked()
	src := *item
	w.source = &src
	w.state = ConfirmPending
	return nil
}

func (w *Workflow) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == ConfirmPending {
		w.resetLocked()
	}
}

// Confirm generates the candidate shots and opens the selection. When the
// workflow moved on during the call the result is dropped: a bare ErrStale
// means the backend succeeded, a wrapped one carries its failure.
func (w *Workflow) Confirm(ctx context.Context) error {
	if w.backend == nil {
		return ErrMissingBackend
	}

	w.mu.Lock()
	if w.state != ConfirmPending || w.source == nil {
		w.mu.Unlock()
		return ErrNotPending
	}
	sourceID := w.source.ID
	w.state = Generating
	tok := w.bumpLocked()
	w.mu.Unlock()

	log := logging.WithComponent("multishot")
	log.Debug("generating storyboard", "source_id", sourceID, "count", models.MultishotCount)

	resp, err := w.backend.GenerateMultishot(ctx, sourceID)
	if err == nil && len(resp.ProxyIDs) == 0 {
		err = ErrNoCandidates
	}

	var proxies []models.ProxyShot
	if err == nil {
		proxies, err = w.backend.Proxies(ctx, sourceID)
		if err == nil && len(proxies) == 0 {
			err = ErrNoCandidates
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if tok != w.token {
		log.Debug("discarding stale storyboard", "source_id", sourceID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStale, err)
		}
		return ErrStale
	}
	if err != nil {
		log.Warn("storyboard generation failed", "source_id", sourceID, "error", err)
		w.resetLocked()
		return err
	}

	w.candidates = proxies
	w.selected = nil
	w.state = Selecting
	return nil
}

// ViewStoryboard opens the selection for candidates that already exist.
func (w *Workflow) ViewStoryboard(ctx context.Context, item *models.GenerationRecord) error {
	if item == nil || !item.IsImage() {
		return models.ErrNotAnImage
	}
	if w.backend == nil {
		return ErrMissingBackend
	}

	w.mu.Lock()
	w.resetLocked()
	tok := w.token
	w.mu.Unlock()

	proxies, err := w.backend.Proxies(ctx, item.ID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if tok != w.token {
		return ErrStale
	}
	if err != nil {
		return err
	}
	if len(proxies) == 0 {
		return ErrNoStoryboard
	}

	src := *item
	w.source = &src
	w.candidates = proxies
	w.selected = nil
	w.state = Selecting
	return nil
}

// Toggle flips membership of a candidate in the selection.
func (w *Workflow) Toggle(proxyID int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Selecting {
		return false, ErrNotSelecting
	}
	if !slices.ContainsFunc(w.candidates, func(p models.ProxyShot) bool { return p.ID == proxyID }) {
		return false, fmt.Errorf("%w: %d", ErrUnknownProxy, proxyID)
	}

	if i := slices.Index(w.selected, proxyID); i >= 0 {
		w.selected = slices.Delete(w.selected, i, i+1)
		return false, nil
	}
	w.selected = append(w.selected, proxyID)
	return true, nil
}

// Upscale finalizes the selected candidates. On failure the selection is
// kept so the user can retry. If the storyboard was closed during the call
// the error is ErrStale, with the response still returned when the backend
// succeeded.
func (w *Workflow) Upscale(ctx context.Context) (*models.UpscaleResponse, error) {
	if w.backend == nil {
		return nil, ErrMissingBackend
	}

	w.mu.Lock()
	if w.state != Selecting {
		w.mu.Unlock()
		return nil, ErrNotSelecting
	}
	if len(w.selected) == 0 {
		w.mu.Unlock()
		return nil, models.ErrEmptySelection
	}
	ids := slices.Clone(w.selected)
	w.state = Upscaling
	tok := w.bumpLocked()
	w.mu.Unlock()

	log := logging.WithComponent("multishot")
	est := EstimateUpscale(len(ids))
	log.Debug("upscaling shots", "count", len(ids), "eta_seconds", est.Seconds, "credits", est.Credits)

	resp, err := w.backend.UpscaleProxies(ctx, ids)

	w.mu.Lock()
	defer w.mu.Unlock()
	if tok != w.token {
		log.Debug("storyboard closed during upscale", "count", len(ids))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStale, err)
		}
		return resp, ErrStale
	}
	if err != nil {
		log.Warn("upscale failed", "count", len(ids), "error", err)
		w.state = Selecting
		return nil, err
	}

	w.resetLocked()
	return resp, nil
}

// Close abandons the workflow from any state.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

func (w *Workflow) bumpLocked() uint64 {
	w.token++
	return w.token
}

// resetLocked returns to Idle and invalidates any in-flight response.
func (w *Workflow) resetLocked() {
	w.state = Idle
	w.source = nil
	w.candidates = nil
	w.selected = nil
	w.token++
}
