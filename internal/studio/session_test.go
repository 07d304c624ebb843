package studio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/manash/cinestudio/internal/image"
	"github.com/manash/cinestudio/internal/journal"
	"github.com/manash/cinestudio/internal/multishot"
	"github.com/manash/cinestudio/internal/notify"
	"github.com/manash/cinestudio/pkg/models"
)

type mockBackend struct {
	mu sync.Mutex

	history []models.GenerationRecord
	uploads []models.UploadRecord
	proxies map[int64][]models.ProxyShot
	media   map[string][]byte

	imageResp   *models.GenerateImageResponse
	videoResp   *models.GenerateVideoResponse
	generateErr error
	favoriteErr error
	deleteErr   error
	uploadErr   error
	upscaleErr  error

	// hooks run inside the call, before it returns.
	onGenerate  func()
	onMultishot func()
	onUpscale   func()
	onFavorite  func(id int64, v bool)

	imageReqs     []*models.GenerateImageRequest
	videoReqs     []*models.GenerateVideoRequest
	favoriteCalls []bool
	historyCalls  int
	uploadCalls   []string
	deleted       []int64
	duplicated    []int64
	proxyCalls    []int64
	upscaleCalls  [][]int64
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		proxies:   make(map[int64][]models.ProxyShot),
		media:     make(map[string][]byte),
		imageResp: &models.GenerateImageResponse{Status: "success", ImageURL: "u"},
		videoResp: &models.GenerateVideoResponse{Status: "success", VideoURL: "v.mp4"},
	}
}

func (m *mockBackend) History(context.Context) ([]models.GenerationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyCalls++
	return slices.Clone(m.history), nil
}

func (m *mockBackend) Uploads(context.Context) ([]models.UploadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.uploads), nil
}

func (m *mockBackend) Upload(_ context.Context, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadCalls = append(m.uploadCalls, data)
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.uploads = append(m.uploads, models.UploadRecord{ID: int64(len(m.uploads) + 1), Base64Data: data})
	return nil
}

func (m *mockBackend) GenerateImage(_ context.Context, req *models.GenerateImageRequest) (*models.GenerateImageResponse, error) {
	if m.onGenerate != nil {
		m.onGenerate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imageReqs = append(m.imageReqs, req)
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return m.imageResp, nil
}

func (m *mockBackend) GenerateVideo(_ context.Context, req *models.GenerateVideoRequest) (*models.GenerateVideoResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videoReqs = append(m.videoReqs, req)
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return m.videoResp, nil
}

func (m *mockBackend) Proxies(_ context.Context, id int64) ([]models.ProxyShot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proxyCalls = append(m.proxyCalls, id)
	return slices.Clone(m.proxies[id]), nil
}

func (m *mockBackend) GenerateMultishot(_ context.Context, id int64) (*models.MultishotResponse, error) {
	if m.onMultishot != nil {
		m.onMultishot()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	shots := make([]models.ProxyShot, models.MultishotCount)
	ids := make([]int64, len(shots))
	for i := range shots {
		shots[i] = models.ProxyShot{ID: 1000 + int64(i), URL: "http://x/p.png"}
		ids[i] = shots[i].ID
	}
	m.proxies[id] = shots
	return &models.MultishotResponse{Status: "success", ProxyIDs: ids}, nil
}

func (m *mockBackend) UpscaleProxies(_ context.Context, ids []int64) (*models.UpscaleResponse, error) {
	if m.onUpscale != nil {
		m.onUpscale()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upscaleCalls = append(m.upscaleCalls, slices.Clone(ids))
	if m.upscaleErr != nil {
		return nil, m.upscaleErr
	}
	return &models.UpscaleResponse{Status: "success", UpscaledCount: len(ids)}, nil
}

func (m *mockBackend) SetFavorite(_ context.Context, id int64, v bool) error {
	if m.onFavorite != nil {
		m.onFavorite(id, v)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favoriteCalls = append(m.favoriteCalls, v)
	return m.favoriteErr
}

func (m *mockBackend) Duplicate(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicated = append(m.duplicated, id)
	for _, r := range m.history {
		if r.ID == id {
			r.ID = 9000 + id
			m.history = append(m.history, r)
			break
		}
	}
	return nil
}

func (m *mockBackend) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockBackend) Fetch(_ context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.media[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

type fakeJournal struct {
	entries []*journal.Entry
}

func (f *fakeJournal) Record(_ context.Context, e *journal.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

type memPrefs map[string]string

func (p memPrefs) SetPreference(_ context.Context, k, v string) error {
	p[k] = v
	return nil
}

func (p memPrefs) Preferences(context.Context) (map[string]string, error) {
	return p, nil
}

type fakeClipboard struct{ text string }

func (c *fakeClipboard) Copy(text string) error {
	c.text = text
	return nil
}

type fixture struct {
	s  *Session
	b  *mockBackend
	n  *notify.Recorder
	j  *fakeJournal
	cb *fakeClipboard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := newMockBackend()
	b.history = []models.GenerationRecord{
		{ID: 42, Type: models.MediaImage, URL: "http://x/42.png", Prompt: "harbor at dawn", Camera: "Sony Venice", Lens: "Helios", FocalLength: "35mm"},
		{ID: 43, Type: models.MediaVideo, URL: "http://x/43.mp4", Prompt: "drift"},
		{ID: 44, Type: models.MediaImage, URL: "http://x/44.png", Camera: "Unknown Cam", Lens: "Unknown Lens", IsFavorite: true},
	}
	f := &fixture{b: b, n: &notify.Recorder{}, j: &fakeJournal{}, cb: &fakeClipboard{}}
	f.s = New(Options{
		Backend:   b,
		Notifier:  f.n,
		Saver:     image.NewSaver(b, t.TempDir()),
		Clipboard: f.cb,
		Journal:   f.j,
	})
	if err := f.s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return f
}

func (f *fixture) item(t *testing.T, id int64) *models.GenerationRecord {
	t.Helper()
	item, ok := f.s.Item(id)
	if !ok {
		t.Fatalf("item %d not in history", id)
	}
	return &item
}

func (f *fixture) lastText(level notify.Level) string {
	m, _ := f.n.Last(level)
	return m.Text
}

func TestNew_Defaults(t *testing.T) {
	s := New(Options{Backend: newMockBackend()})
	snap := s.Snapshot()

	if snap.Tab != models.MediaImage || snap.View != ViewEmpty {
		t.Errorf("tab/view = %s/%s", snap.Tab, snap.View)
	}
	if snap.AspectRatio != "21:9" || snap.Strength != 0.75 {
		t.Errorf("aspect/strength = %s/%v", snap.AspectRatio, snap.Strength)
	}
	if snap.Gear != models.DefaultGear() || snap.Movement != models.DefaultMovement() {
		t.Errorf("gear/movement = %v/%v", snap.Gear, snap.Movement)
	}
	if snap.Multishot.State != multishot.Idle {
		t.Errorf("multishot state = %v", snap.Multishot.State)
	}
}

func TestGenerate_EmptyImageDockIsRejected(t *testing.T) {
	f := newFixture(t)

	err := f.s.Generate(context.Background())
	if !errors.Is(err, models.ErrEmptyPromptAndReferences) {
		t.Fatalf("Generate() error = %v, want ErrEmptyPromptAndReferences", err)
	}
	if len(f.b.imageReqs) != 0 {
		t.Error("no request should be sent")
	}
	if got := f.lastText(notify.LevelError); got != "Please enter a prompt or add an image." {
		t.Errorf("notice = %q", got)
	}
}

func TestGenerate_VideoWithoutResultIsRejected(t *testing.T) {
	f := newFixture(t)
	f.s.SetPrompt("slow push in")
	_ = f.s.SetTab(models.MediaVideo)

	err := f.s.Generate(context.Background())
	if !errors.Is(err, models.ErrNoResultToAnimate) {
		t.Fatalf("Generate() error = %v, want ErrNoResultToAnimate", err)
	}
	if len(f.b.videoReqs) != 0 {
		t.Error("no request should be sent")
	}
	if got := f.lastText(notify.LevelError); got != "Please select an image first to animate." {
		t.Errorf("notice = %q", got)
	}
}

// Prompt only, no references: the request carries the prompt and current
// gear, and a success shows the returned URL with the sidebar open.
func TestGenerate_ImageSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.s.SetPrompt("neon alley, rain")
	_ = f.s.SetCamera("ARRI Alexa 35")
	callsBefore := f.b.historyCalls

	f.b.onGenerate = func() {
		snap := f.s.Snapshot()
		if snap.ResultURL != "" || snap.SidebarOpen || !snap.Generating {
			t.Errorf("in-flight state = result %q sidebar %v generating %v", snap.ResultURL, snap.SidebarOpen, snap.Generating)
		}
	}

	if err := f.s.Generate(ctx); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(f.b.imageReqs) != 1 {
		t.Fatalf("image requests = %d, want 1", len(f.b.imageReqs))
	}
	req := f.b.imageReqs[0]
	if req.Prompt != "neon alley, rain" || req.Camera != "ARRI Alexa 35" || req.Lens != "Lensbaby" || req.FocalLength != "8mm" {
		t.Errorf("request = %+v", req)
	}
	if req.AspectRatio != "21:9" || req.ImageStrength != 0.75 || len(req.ReferenceImages) != 0 {
		t.Errorf("request dock fields = %+v", req)
	}

	snap := f.s.Snapshot()
	if snap.ResultURL != "u" {
		t.Errorf("ResultURL = %q, want u", snap.ResultURL)
	}
	if !snap.SidebarOpen {
		t.Error("sidebar should open after an image generation")
	}
	if snap.Generating {
		t.Error("Generating should be false after completion")
	}
	if f.b.historyCalls != callsBefore+1 {
		t.Errorf("history fetched %d times, want one refetch", f.b.historyCalls-callsBefore)
	}
	if got := f.lastText(notify.LevelSuccess); got != "Shot developed successfully!" {
		t.Errorf("notice = %q", got)
	}
	if len(f.j.entries) != 1 || f.j.entries[0].Operation != journal.OpGenerateImage || f.j.entries[0].Status != "" {
		t.Errorf("journal entries = %+v", f.j.entries)
	}
}

func TestGenerate_Failure(t *testing.T) {
	f := newFixture(t)
	f.s.SelectFromGallery(f.item(t, 42))
	f.b.generateErr = errors.New("model offline")

	err := f.s.Generate(context.Background())
	if err == nil {
		t.Fatal("Generate() error = nil")
	}

	snap := f.s.Snapshot()
	if snap.ResultURL != "" {
		t.Errorf("ResultURL = %q, want cleared", snap.ResultURL)
	}
	if snap.SidebarOpen {
		t.Error("sidebar should stay closed after a failure")
	}
	if got := f.lastText(notify.LevelError); got != "Generation failed: model offline" {
		t.Errorf("notice = %q", got)
	}
	if len(f.j.entries) != 1 || f.j.entries[0].Status != journal.StatusFailed {
		t.Errorf("journal entries = %+v", f.j.entries)
	}
}

func TestGenerate_VideoAnimatesResult(t *testing.T) {
	f := newFixture(t)
	f.s.SelectFromGallery(f.item(t, 42))
	_ = f.s.SetTab(models.MediaVideo)

	if err := f.s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(f.b.videoReqs) != 1 {
		t.Fatalf("video requests = %d", len(f.b.videoReqs))
	}
	req := f.b.videoReqs[0]
	if req.ImageURL != "http://x/42.png" || req.Prompt != "harbor at dawn" || req.Camera != "Sony Venice" {
		t.Errorf("request = %+v", req)
	}

	snap := f.s.Snapshot()
	if snap.ResultURL != "v.mp4" {
		t.Errorf("ResultURL = %q", snap.ResultURL)
	}
	if snap.SidebarOpen {
		t.Error("sidebar should not open for videos")
	}
}

func TestGenerate_ImageWithReferencesOnly(t *testing.T) {
	f := newFixture(t)
	ref := "data:image/png;base64,QUJD"
	if err := f.s.SelectReference(ref); err != nil {
		t.Fatalf("SelectReference() error = %v", err)
	}
	_ = f.s.SetStrength(0.45)

	if err := f.s.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	req := f.b.imageReqs[0]
	if req.Prompt != "" || !slices.Equal(req.ReferenceImages, []string{ref}) || req.ImageStrength != 0.45 {
		t.Errorf("request = %+v", req)
	}
}

func TestRecreate_UsesEditedPrompt(t *testing.T) {
	f := newFixture(t)
	f.s.SetPrompt("first take")

	if err := f.s.Recreate(context.Background(), "second take"); err != nil {
		t.Fatalf("Recreate() error = %v", err)
	}
	if f.b.imageReqs[0].Prompt != "second take" {
		t.Errorf("prompt sent = %q", f.b.imageReqs[0].Prompt)
	}
	if f.s.Snapshot().Prompt != "second take" {
		t.Error("Recreate should update the dock prompt")
	}

	if err := f.s.Recreate(context.Background(), ""); !errors.Is(err, models.ErrEmptyPromptAndReferences) {
		t.Errorf("Recreate(\"\") error = %v", err)
	}
	if f.s.Snapshot().Prompt != "second take" {
		t.Error("a rejected recreate must not change the prompt")
	}
}

func TestGenerate_SupersededByNavigation(t *testing.T) {
	f := newFixture(t)
	f.s.SetPrompt("long render")

	release := make(chan struct{})
	inFlight := make(chan struct{})
	f.b.onGenerate = func() {
		close(inFlight)
		<-release
	}

	done := make(chan error, 1)
	go func() { done <- f.s.Generate(context.Background()) }()

	<-inFlight
	f.s.GoHome()
	close(release)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("Generate() error = %v, want ErrStale", err)
	}
	snap := f.s.Snapshot()
	if snap.ResultURL != "" || snap.SidebarOpen {
		t.Errorf("stale result applied: result %q sidebar %v", snap.ResultURL, snap.SidebarOpen)
	}
}

func TestGenerate_LatestRequestWins(t *testing.T) {
	f := newFixture(t)
	f.s.SetPrompt("take")

	release := make(chan struct{})
	inFlight := make(chan struct{})
	var calls atomic.Int32
	f.b.onGenerate = func() {
		if calls.Add(1) == 1 {
			close(inFlight)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() { done <- f.s.Generate(context.Background()) }()
	<-inFlight

	f.b.mu.Lock()
	f.b.imageResp = &models.GenerateImageResponse{Status: "success", ImageURL: "second"}
	f.b.mu.Unlock()
	if err := f.s.Generate(context.Background()); err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	close(release)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Errorf("first Generate() error = %v, want ErrStale", err)
	}
	if got := f.s.Snapshot().ResultURL; got != "second" {
		t.Errorf("ResultURL = %q, want the latest result", got)
	}
}

func TestToggleFavorite_Optimistic(t *testing.T) {
	f := newFixture(t)

	var seen bool
	f.b.onFavorite = func(id int64, v bool) {
		item, _ := f.s.Item(id)
		seen = item.IsFavorite
		if f.s.FavoriteStatus(id) != FavoritePending {
			t.Errorf("status during sync = %v, want pending", f.s.FavoriteStatus(id))
		}
	}

	if err := f.s.Dispatch(context.Background(), ActionLike, f.item(t, 42)); err != nil {
		t.Fatalf("Dispatch(like) error = %v", err)
	}
	if !seen {
		t.Error("flag should flip before the backend answers")
	}
	if !f.item(t, 42).IsFavorite {
		t.Error("flag should stay set after success")
	}
	if f.s.FavoriteStatus(42) != FavoriteCommitted {
		t.Errorf("status = %v, want committed", f.s.FavoriteStatus(42))
	}
	if !slices.Equal(f.b.favoriteCalls, []bool{true}) {
		t.Errorf("favorite calls = %v", f.b.favoriteCalls)
	}
}

func TestToggleFavorite_RollbackAndRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.b.favoriteErr = errors.New("db locked")

	if err := f.s.ToggleFavorite(ctx, 44); err == nil {
		t.Fatal("ToggleFavorite() error = nil")
	}
	if !f.item(t, 44).IsFavorite {
		t.Error("failed unfavorite should restore the previous value")
	}
	if f.s.FavoriteStatus(44) != FavoriteFailed {
		t.Errorf("status = %v, want failed", f.s.FavoriteStatus(44))
	}
	if _, ok := f.n.Last(notify.LevelError); !ok {
		t.Error("failure should be reported")
	}

	f.b.favoriteErr = nil
	if err := f.s.RetryFavorite(ctx, 44); err != nil {
		t.Fatalf("RetryFavorite() error = %v", err)
	}
	if f.item(t, 44).IsFavorite {
		t.Error("retry should apply the intended value")
	}
	if f.s.FavoriteStatus(44) != FavoriteCommitted {
		t.Errorf("status = %v, want committed", f.s.FavoriteStatus(44))
	}
	if !slices.Equal(f.b.favoriteCalls, []bool{false, false}) {
		t.Errorf("favorite calls = %v", f.b.favoriteCalls)
	}

	if err := f.s.RetryFavorite(ctx, 44); !errors.Is(err, ErrNoRetry) {
		t.Errorf("RetryFavorite() without failure error = %v", err)
	}
	if err := f.s.ToggleFavorite(ctx, 999); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("ToggleFavorite(unknown) error = %v", err)
	}
}

// Two toggles overlap and both fail: the item falls back to the value the
// backend last acknowledged, not to the first toggle's optimistic value.
func TestToggleFavorite_OverlappingFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.b.favoriteErr = errors.New("db locked")

	var nested bool
	f.b.onFavorite = func(id int64, _ bool) {
		if nested {
			return
		}
		nested = true
		if err := f.s.ToggleFavorite(ctx, id); err == nil {
			t.Error("nested ToggleFavorite() error = nil")
		}
	}

	if err := f.s.ToggleFavorite(ctx, 42); !errors.Is(err, ErrStale) {
		t.Errorf("outer ToggleFavorite() error = %v, want ErrStale", err)
	}
	if f.item(t, 42).IsFavorite {
		t.Error("item should return to its acknowledged value (not favorite)")
	}
	if f.s.FavoriteStatus(42) != FavoriteFailed {
		t.Errorf("status = %v, want failed", f.s.FavoriteStatus(42))
	}
	if !slices.Equal(f.b.favoriteCalls, []bool{false, true}) {
		t.Errorf("favorite calls = %v", f.b.favoriteCalls)
	}
}

func TestRefresh_KeepsPendingFavorite(t *testing.T) {
	f := newFixture(t)
	f.b.onFavorite = func(id int64, v bool) {
		if err := f.s.Refresh(context.Background()); err != nil {
			t.Errorf("Refresh() error = %v", err)
		}
		item, _ := f.s.Item(id)
		if !item.IsFavorite {
			t.Error("refresh during sync should keep the pending value")
		}
	}
	_ = f.s.ToggleFavorite(context.Background(), 42)
}

func TestReferences_Dedup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := "data:image/jpeg;base64,/9j/AAAA"

	f.s.OpenSourcePicker()
	if err := f.s.SelectReference(ref); err != nil {
		t.Fatalf("SelectReference() error = %v", err)
	}
	if f.s.Snapshot().SourcePickerOpen {
		t.Error("picker should close after selecting")
	}
	if err := f.s.SelectReference(ref); !errors.Is(err, ErrDuplicateRef) {
		t.Errorf("second SelectReference() error = %v, want ErrDuplicateRef", err)
	}
	if err := f.s.AddUpload(ctx, ref); err != nil {
		t.Fatalf("AddUpload() error = %v", err)
	}

	if refs := f.s.Snapshot().References; len(refs) != 1 {
		t.Errorf("References = %d entries, want 1", len(refs))
	}

	if err := f.s.SelectReference("http://x/42.png"); err != nil {
		t.Fatalf("SelectReference(generation) error = %v", err)
	}
	if err := f.s.RemoveReference(0); err != nil {
		t.Fatalf("RemoveReference() error = %v", err)
	}
	if refs := f.s.Snapshot().References; !slices.Equal(refs, []string{"http://x/42.png"}) {
		t.Errorf("References = %v", refs)
	}
	if err := f.s.RemoveReference(5); !errors.Is(err, ErrNoSuchReference) {
		t.Errorf("RemoveReference(5) error = %v", err)
	}
	if err := f.s.SelectReference("javascript:alert(1)"); err == nil {
		t.Error("SelectReference should refuse non-media URLs")
	}
}

func TestAddUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := "data:image/png;base64,iVBORw0KGgo="

	f.s.OpenSourcePicker()
	if err := f.s.AddUpload(ctx, ref); err != nil {
		t.Fatalf("AddUpload() error = %v", err)
	}
	snap := f.s.Snapshot()
	if snap.SourcePickerOpen {
		t.Error("picker should close after upload")
	}
	if len(snap.Uploads) != 1 || snap.Uploads[0].Base64Data != ref {
		t.Errorf("Uploads = %+v, want refreshed list", snap.Uploads)
	}
	if got := f.lastText(notify.LevelSuccess); got != "Upload complete" {
		t.Errorf("notice = %q", got)
	}

	f.b.uploadErr = errors.New("disk full")
	other := "data:image/png;base64,AAAA"
	if err := f.s.AddUpload(ctx, other); err == nil {
		t.Fatal("AddUpload() error = nil")
	}
	if refs := f.s.Snapshot().References; !slices.Contains(refs, other) {
		t.Error("reference should stay in the dock after a failed upload")
	}

	if err := f.s.AddUpload(ctx, "http://x/a.png"); err == nil {
		t.Error("AddUpload should only accept inline images")
	}
}

func TestNavigation(t *testing.T) {
	f := newFixture(t)
	_ = f.s.SelectReference("data:image/png;base64,QUJD")
	f.s.SetPrompt("draft")

	f.s.GoHome()
	snap := f.s.Snapshot()
	if snap.View != ViewEmpty || snap.Prompt != "" || len(snap.References) != 0 {
		t.Errorf("after GoHome = %+v", snap)
	}

	_ = f.s.SelectReference("data:image/png;base64,QUJD")
	if err := f.s.OpenGallery(models.MediaVideo); err != nil {
		t.Fatalf("OpenGallery() error = %v", err)
	}
	snap = f.s.Snapshot()
	if snap.View != ViewGallery || snap.GalleryFilter != models.MediaVideo || len(snap.References) != 0 {
		t.Errorf("after OpenGallery = %+v", snap)
	}
	items := f.s.GalleryItems()
	if len(items) != 1 || items[0].ID != 43 {
		t.Errorf("GalleryItems() = %+v", items)
	}
	if err := f.s.OpenGallery("gif"); !errors.Is(err, models.ErrInvalidMediaType) {
		t.Errorf("OpenGallery(gif) error = %v", err)
	}

	f.s.SelectFromGallery(f.item(t, 42))
	snap = f.s.Snapshot()
	if snap.ResultURL != "http://x/42.png" || !snap.SidebarOpen || snap.Tab != models.MediaImage {
		t.Errorf("after SelectFromGallery = %+v", snap)
	}
	if snap.Prompt != "harbor at dawn" || snap.Gear.Camera.Name != "Sony Venice" || snap.Gear.Lens.Name != "Helios" || snap.Gear.FocalLength != "35mm" {
		t.Errorf("loaded dock = %q %v", snap.Prompt, snap.Gear)
	}

	f.s.SelectFromGallery(f.item(t, 44))
	snap = f.s.Snapshot()
	if snap.Gear != models.DefaultGear() {
		t.Errorf("unknown gear should fall back to defaults, got %v", snap.Gear)
	}
	if snap.Prompt != "harbor at dawn" {
		t.Errorf("empty item prompt should keep the dock prompt, got %q", snap.Prompt)
	}

	f.s.CloseFocus()
	snap = f.s.Snapshot()
	if snap.ResultURL != "" || snap.SidebarOpen || snap.Prompt != "" {
		t.Errorf("after CloseFocus = %+v", snap)
	}
}

func TestSetters_Validate(t *testing.T) {
	s := New(Options{Backend: newMockBackend()})

	tests := []struct {
		name string
		fn   func() error
	}{
		{"camera", func() error { return s.SetCamera("Bolex") }},
		{"lens", func() error { return s.SetLens("Fisheye 3000") }},
		{"focal", func() error { return s.SetFocalLength("17mm") }},
		{"movement", func() error { return s.SetMovement("barrel roll") }},
		{"ratio", func() error { return s.SetAspectRatio("3:2") }},
		{"strength", func() error { return s.SetStrength(1.2) }},
		{"tab", func() error { return s.SetTab("audio") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err == nil {
				t.Error("want validation error")
			}
		})
	}

	if s.Snapshot().Gear != models.DefaultGear() {
		t.Error("rejected values must not change the gear")
	}
	if err := s.SetFocalLength("50"); err != nil || s.Snapshot().Gear.FocalLength != "50mm" {
		t.Errorf("SetFocalLength(50) = %v, gear %v", err, s.Snapshot().Gear)
	}
}

func TestDispatch_TypeGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vid := f.item(t, 43)

	if err := f.s.Dispatch(ctx, ActionViewProxies, vid); !errors.Is(err, models.ErrNotAnImage) {
		t.Errorf("view_proxies(video) error = %v", err)
	}
	if got := f.lastText(notify.LevelError); got != "Storyboards are only for images." {
		t.Errorf("notice = %q", got)
	}
	if err := f.s.Dispatch(ctx, ActionMultishot, vid); !errors.Is(err, models.ErrNotAnImage) {
		t.Errorf("multishot(video) error = %v", err)
	}
	if got := f.lastText(notify.LevelError); got != "Multishot is only for images." {
		t.Errorf("notice = %q", got)
	}
	if len(f.b.proxyCalls) != 0 {
		t.Errorf("proxy calls = %v, want none", f.b.proxyCalls)
	}
	if f.s.Snapshot().Multishot.State != multishot.Idle {
		t.Error("multishot should stay idle")
	}
}

func TestDispatch_Unknown(t *testing.T) {
	f := newFixture(t)
	for _, tag := range []string{"ref", "start", "end"} {
		err := f.s.Dispatch(context.Background(), tag, f.item(t, 42))
		if !errors.Is(err, ErrUnsupportedAction) {
			t.Errorf("Dispatch(%s) error = %v", tag, err)
		}
	}
	if got := f.lastText(notify.LevelInfo); got != "Feature coming soon!" {
		t.Errorf("notice = %q", got)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.s.ConfirmDelete(ctx); !errors.Is(err, ErrNothingToDelete) {
		t.Errorf("ConfirmDelete() with no pending error = %v", err)
	}

	_ = f.s.Dispatch(ctx, ActionDelete, f.item(t, 42))
	if p := f.s.Snapshot().PendingDelete; p == nil || p.ID != 42 {
		t.Fatalf("PendingDelete = %+v", p)
	}
	f.s.CancelDelete()
	if f.s.Snapshot().PendingDelete != nil {
		t.Error("CancelDelete should close the gate")
	}
	if len(f.b.deleted) != 0 {
		t.Error("cancel must not delete")
	}

	f.b.deleteErr = errors.New("locked")
	_ = f.s.Dispatch(ctx, ActionDelete, f.item(t, 42))
	if err := f.s.ConfirmDelete(ctx); err == nil {
		t.Fatal("ConfirmDelete() error = nil")
	}
	if f.s.Snapshot().PendingDelete == nil {
		t.Error("gate should stay open after a failed delete")
	}

	f.b.deleteErr = nil
	if err := f.s.ConfirmDelete(ctx); err != nil {
		t.Fatalf("ConfirmDelete() error = %v", err)
	}
	if _, ok := f.s.Item(42); ok {
		t.Error("deleted item should leave local history")
	}
	if f.s.Snapshot().PendingDelete != nil {
		t.Error("gate should close after delete")
	}
	if got := f.lastText(notify.LevelSuccess); got != "Shot deleted permanently" {
		t.Errorf("notice = %q", got)
	}
}

func TestDuplicate(t *testing.T) {
	f := newFixture(t)
	if err := f.s.Dispatch(context.Background(), ActionCopy, f.item(t, 42)); err != nil {
		t.Fatalf("Dispatch(copy) error = %v", err)
	}
	if _, ok := f.s.Item(9042); !ok {
		t.Error("duplicate should appear after the refetch")
	}
	if got := f.lastText(notify.LevelSuccess); got != "Shot duplicated to library" {
		t.Errorf("notice = %q", got)
	}
}

func TestDownload(t *testing.T) {
	f := newFixture(t)
	f.b.media["http://x/42.png"] = []byte("pixels")

	path, err := f.s.Download(context.Background(), f.item(t, 42))
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if filepath.Base(path) != "cinema_studio_42.jpg" {
		t.Errorf("path = %q", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "pixels" {
		t.Errorf("file content = %q", data)
	}

	if err := f.s.Dispatch(context.Background(), ActionDownload, f.item(t, 43)); err == nil {
		t.Error("missing media should fail")
	}
	if got := f.lastText(notify.LevelError); got != "Download failed" {
		t.Errorf("notice = %q", got)
	}
}

func TestShare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.s.Dispatch(ctx, ActionShare, f.item(t, 42)); err != nil {
		t.Fatalf("Dispatch(share) error = %v", err)
	}
	if f.cb.text != "http://x/42.png" {
		t.Errorf("clipboard = %q", f.cb.text)
	}
	if got := f.lastText(notify.LevelSuccess); got != "Link copied to clipboard" {
		t.Errorf("notice = %q", got)
	}

	var shared *models.GenerationRecord
	s := New(Options{
		Backend: f.b,
		Share: func(_ context.Context, item *models.GenerationRecord) error {
			shared = item
			return nil
		},
	})
	if err := s.Share(ctx, f.item(t, 43)); err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if shared == nil || shared.ID != 43 {
		t.Errorf("share hook got %+v", shared)
	}

	bare := New(Options{Backend: f.b})
	if err := bare.Share(ctx, f.item(t, 42)); !errors.Is(err, ErrNoClipboard) {
		t.Errorf("Share() without clipboard error = %v", err)
	}
}

// Multishot on image 42 with no candidates: confirm yields nine shots and an
// empty selection; upscaling three sends exactly those ids and refreshes.
func TestMultishot_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := f.item(t, 42)

	if err := f.s.Dispatch(ctx, ActionViewProxies, src); !errors.Is(err, multishot.ErrNoStoryboard) {
		t.Fatalf("view_proxies error = %v, want ErrNoStoryboard", err)
	}
	if err := f.s.Dispatch(ctx, ActionMultishot, src); err != nil {
		t.Fatalf("Dispatch(multishot) error = %v", err)
	}
	if f.s.Snapshot().Multishot.State != multishot.ConfirmPending {
		t.Fatal("multishot should wait for confirmation")
	}
	if err := f.s.ConfirmMultishot(ctx); err != nil {
		t.Fatalf("ConfirmMultishot() error = %v", err)
	}

	ms := f.s.Snapshot().Multishot
	if ms.State != multishot.Selecting || len(ms.Candidates) != 9 || len(ms.Selected) != 0 {
		t.Fatalf("after confirm = state %v, %d candidates, %d selected", ms.State, len(ms.Candidates), len(ms.Selected))
	}

	if _, err := f.s.UpscaleSelection(ctx); !errors.Is(err, models.ErrEmptySelection) {
		t.Errorf("UpscaleSelection() with nothing selected error = %v", err)
	}
	if len(f.b.upscaleCalls) != 0 {
		t.Error("empty selection must not reach the backend")
	}

	picked := []int64{ms.Candidates[0].ID, ms.Candidates[4].ID, ms.Candidates[8].ID}
	for _, id := range picked {
		if _, err := f.s.ToggleShot(id); err != nil {
			t.Fatalf("ToggleShot(%d) error = %v", id, err)
		}
	}

	before := f.b.historyCalls
	resp, err := f.s.UpscaleSelection(ctx)
	if err != nil {
		t.Fatalf("UpscaleSelection() error = %v", err)
	}
	if resp.UpscaledCount != 3 {
		t.Errorf("UpscaledCount = %d", resp.UpscaledCount)
	}
	if len(f.b.upscaleCalls) != 1 || !slices.Equal(f.b.upscaleCalls[0], picked) {
		t.Errorf("upscale calls = %v, want [%v]", f.b.upscaleCalls, picked)
	}
	if f.s.Snapshot().Multishot.State != multishot.Idle {
		t.Error("modal should close after upscale")
	}
	if f.b.historyCalls != before+1 {
		t.Error("history should be refetched after upscale")
	}

	var ops []journal.Operation
	for _, e := range f.j.entries {
		ops = append(ops, e.Operation)
	}
	if !slices.Equal(ops, []journal.Operation{journal.OpMultishot, journal.OpUpscale}) {
		t.Errorf("journal ops = %v", ops)
	}
	if f.j.entries[1].Credits != 15 || f.j.entries[1].SourceID != 42 {
		t.Errorf("upscale entry = %+v", f.j.entries[1])
	}
}

func TestMultishot_ViewExistingStoryboard(t *testing.T) {
	f := newFixture(t)
	f.b.proxies[42] = []models.ProxyShot{{ID: 1, URL: "a"}, {ID: 2, URL: "b"}}

	if err := f.s.Dispatch(context.Background(), ActionViewProxies, f.item(t, 42)); err != nil {
		t.Fatalf("view_proxies error = %v", err)
	}
	if got := f.lastText(notify.LevelSuccess); got != "Opening storyboard..." {
		t.Errorf("notice = %q", got)
	}
	ms := f.s.Snapshot().Multishot
	if ms.State != multishot.Selecting || len(ms.Candidates) != 2 {
		t.Errorf("storyboard = %+v", ms)
	}

	f.s.CloseMultishot()
	if f.s.Snapshot().Multishot.State != multishot.Idle {
		t.Error("CloseMultishot should return to idle")
	}
}

func TestMultishot_UpscaleFailureKeepsSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.b.proxies[42] = []models.ProxyShot{{ID: 1, URL: "a"}, {ID: 2, URL: "b"}}
	f.b.upscaleErr = errors.New("upscaler crashed")

	_ = f.s.ViewStoryboard(ctx, f.item(t, 42))
	_, _ = f.s.ToggleShot(2)

	if _, err := f.s.UpscaleSelection(ctx); err == nil {
		t.Fatal("UpscaleSelection() error = nil")
	}
	ms := f.s.Snapshot().Multishot
	if ms.State != multishot.Selecting || !slices.Equal(ms.Selected, []int64{2}) {
		t.Errorf("after failure = %+v", ms)
	}
	if got := f.lastText(notify.LevelError); got != "Upscale process failed." {
		t.Errorf("notice = %q", got)
	}
}

// Closing the storyboard while the upscale is in flight still journals the
// spend, refreshes history and reports success.
func TestMultishot_UpscaleCompletesAfterClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.b.proxies[42] = []models.ProxyShot{{ID: 1, URL: "a"}, {ID: 2, URL: "b"}, {ID: 3, URL: "c"}}

	_ = f.s.ViewStoryboard(ctx, f.item(t, 42))
	_, _ = f.s.ToggleShot(1)
	_, _ = f.s.ToggleShot(3)
	f.b.onUpscale = f.s.CloseMultishot
	f.n.Reset()

	before := f.b.historyCalls
	resp, err := f.s.UpscaleSelection(ctx)
	if err != nil {
		t.Fatalf("UpscaleSelection() error = %v", err)
	}
	if resp == nil || resp.UpscaledCount != 2 {
		t.Errorf("resp = %+v, want 2 upscaled", resp)
	}
	if f.b.historyCalls != before+1 {
		t.Error("history should be refetched after a completed upscale")
	}
	if len(f.j.entries) != 1 {
		t.Fatalf("journal entries = %d, want 1", len(f.j.entries))
	}
	e := f.j.entries[0]
	if e.Operation != journal.OpUpscale || e.Credits != 10 || e.Status == journal.StatusFailed {
		t.Errorf("upscale entry = %+v", e)
	}
	if got := f.lastText(notify.LevelSuccess); got != "Successfully added 2 high-res shots to library!" {
		t.Errorf("success notice = %q", got)
	}
	if got := f.lastText(notify.LevelError); got != "" {
		t.Errorf("unexpected error notice %q", got)
	}
}

func TestMultishot_ConfirmCompletesAfterClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.s.RequestMultishot(ctx, f.item(t, 42))
	f.b.onMultishot = f.s.CloseMultishot
	f.n.Reset()

	if err := f.s.ConfirmMultishot(ctx); !errors.Is(err, multishot.ErrStale) {
		t.Fatalf("ConfirmMultishot() error = %v, want ErrStale", err)
	}
	if len(f.j.entries) != 1 || f.j.entries[0].Status == journal.StatusFailed {
		t.Errorf("journal entries = %+v, want one successful multishot", f.j.entries)
	}
	if got := f.lastText(notify.LevelSuccess); got != "Angles generated! Run 'storyboard 42' to pick shots." {
		t.Errorf("success notice = %q", got)
	}
	if got := f.lastText(notify.LevelError); got != "" {
		t.Errorf("unexpected error notice %q", got)
	}
	if f.s.Snapshot().Multishot.State != multishot.Idle {
		t.Error("closed storyboard should stay idle")
	}
}

func TestPreferences_RoundTrip(t *testing.T) {
	prefs := memPrefs{}
	s := New(Options{Backend: newMockBackend(), Preferences: prefs})
	ctx := context.Background()

	_ = s.SetCamera("Kodak Portra 400")
	_ = s.SetLens("Canon K-35")
	_ = s.SetFocalLength("85mm")
	_ = s.SetAspectRatio("9:16")
	_ = s.SetStrength(0.65)
	if err := s.SavePreferences(ctx); err != nil {
		t.Fatalf("SavePreferences() error = %v", err)
	}
	if prefs[PrefCamera] != "Kodak Portra 400" || prefs[PrefStrength] != "0.65" {
		t.Errorf("stored prefs = %v", prefs)
	}

	prefs[PrefLens] = "Discontinued Lens"
	restored := New(Options{Backend: newMockBackend(), Preferences: prefs})
	if err := restored.LoadPreferences(ctx); err != nil {
		t.Fatalf("LoadPreferences() error = %v", err)
	}
	snap := restored.Snapshot()
	if snap.Gear.Camera.Name != "Kodak Portra 400" || snap.Gear.FocalLength != "85mm" {
		t.Errorf("restored gear = %v", snap.Gear)
	}
	if snap.Gear.Lens != models.DefaultGear().Lens {
		t.Errorf("unknown stored lens should be ignored, got %v", snap.Gear.Lens)
	}
	if snap.AspectRatio != "9:16" || snap.Strength != 0.65 {
		t.Errorf("restored dock = %s %v", snap.AspectRatio, snap.Strength)
	}
}
