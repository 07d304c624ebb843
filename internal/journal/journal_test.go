package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store)
}

func TestJournal_RecordAndGet(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	e := &Entry{
		Operation: OpGenerateImage,
		Prompt:    "neon alley, rain",
		Metadata:  Metadata{Camera: "Sony Venice", AspectRatio: "21:9", ResultURL: "u"},
	}
	if err := j.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if e.ID == "" || e.SessionID != j.SessionID() {
		t.Errorf("Record() did not stamp entry: %+v", e)
	}
	if e.Count != 1 || e.Status != StatusSuccess {
		t.Errorf("Record() defaults = count %d status %q", e.Count, e.Status)
	}

	got, err := j.Store().Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Operation != OpGenerateImage || got.Prompt != "neon alley, rain" {
		t.Errorf("Get() = %+v", got)
	}
	if got.Metadata.Camera != "Sony Venice" || got.Metadata.ResultURL != "u" {
		t.Errorf("Get() metadata = %+v", got.Metadata)
	}
	if got.SourceID != 0 {
		t.Errorf("SourceID = %d, want 0", got.SourceID)
	}
}

func TestJournal_Credits(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	entries := []*Entry{
		{Operation: OpUpscale, SourceID: 42, Count: 3, Credits: 15},
		{Operation: OpUpscale, SourceID: 42, Count: 1, Credits: 5},
		{Operation: OpMultishot, SourceID: 42, Count: 9},
		{Operation: OpUpscale, SourceID: 7, Count: 2, Credits: 10, Status: StatusFailed, Detail: "boom"},
	}
	for _, e := range entries {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	total, err := j.Store().TotalCredits(ctx)
	if err != nil {
		t.Fatalf("TotalCredits() error = %v", err)
	}
	if total.Credits != 20 || total.EntryCount != 3 || total.ShotCount != 13 {
		t.Errorf("TotalCredits() = %+v, want 20 credits over 3 entries", total)
	}

	byOp, err := j.Store().CreditsByOperation(ctx)
	if err != nil {
		t.Fatalf("CreditsByOperation() error = %v", err)
	}
	if len(byOp) != 2 {
		t.Fatalf("CreditsByOperation() len = %d, want 2", len(byOp))
	}
	if byOp[0].Operation != OpMultishot || byOp[1].Operation != OpUpscale {
		t.Errorf("CreditsByOperation() order = %v, %v", byOp[0].Operation, byOp[1].Operation)
	}
	if byOp[1].Credits != 20 || byOp[1].Entries != 2 {
		t.Errorf("upscale summary = %+v", byOp[1])
	}

	sess, err := j.SessionCredits(ctx)
	if err != nil {
		t.Fatalf("SessionCredits() error = %v", err)
	}
	if sess.Credits != 20 {
		t.Errorf("SessionCredits() = %d, want 20", sess.Credits)
	}
}

func TestStore_CreditsByDateRange(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	now := time.Now().UTC()
	old := &Entry{Operation: OpUpscale, Credits: 50, Timestamp: now.Add(-72 * time.Hour)}
	recent := &Entry{Operation: OpUpscale, Credits: 5, Timestamp: now.Add(-time.Minute)}
	for _, e := range []*Entry{old, recent} {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	summary, err := j.Store().CreditsByDateRange(ctx, now.Add(-24*time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("CreditsByDateRange() error = %v", err)
	}
	if summary.Credits != 5 || summary.EntryCount != 1 {
		t.Errorf("CreditsByDateRange() = %+v, want only the recent entry", summary)
	}
}

func TestDayRange(t *testing.T) {
	loc := time.FixedZone("studio", 2*60*60)
	now := time.Date(2026, 3, 14, 17, 45, 0, 0, loc)

	tests := []struct {
		days      int
		wantStart time.Time
	}{
		{1, time.Date(2026, 3, 14, 0, 0, 0, 0, loc)},
		{7, time.Date(2026, 3, 8, 0, 0, 0, 0, loc)},
		{30, time.Date(2026, 2, 13, 0, 0, 0, 0, loc)},
	}

	wantEnd := time.Date(2026, 3, 15, 0, 0, 0, 0, loc)
	for _, tt := range tests {
		start, end := DayRange(now, tt.days)
		if !start.Equal(tt.wantStart) || !end.Equal(wantEnd) {
			t.Errorf("DayRange(%d) = [%v, %v), want [%v, %v)", tt.days, start, end, tt.wantStart, wantEnd)
		}
	}
}

func TestStore_CreditsForDays(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	now := time.Now()
	entries := []*Entry{
		{Operation: OpUpscale, Credits: 5, Timestamp: now},
		{Operation: OpUpscale, Credits: 20, Timestamp: now.AddDate(0, 0, -3)},
		{Operation: OpUpscale, Credits: 100, Timestamp: now.AddDate(0, 0, -40)},
	}
	for _, e := range entries {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	tests := []struct {
		days int
		want int
	}{
		{1, 5},
		{7, 25},
		{30, 25},
	}
	for _, tt := range tests {
		summary, err := j.Store().CreditsForDays(ctx, tt.days)
		if err != nil {
			t.Fatalf("CreditsForDays(%d) error = %v", tt.days, err)
		}
		if summary.Credits != tt.want {
			t.Errorf("CreditsForDays(%d) = %d, want %d", tt.days, summary.Credits, tt.want)
		}
	}
}

func TestStore_Recent(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		e := &Entry{Operation: OpGenerateImage, Prompt: string(rune('a' + i)), Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := j.Store().Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Recent() len = %d, want 3", len(entries))
	}
	if entries[0].Prompt != "e" || entries[2].Prompt != "c" {
		t.Errorf("Recent() order = %q..%q, want e..c", entries[0].Prompt, entries[2].Prompt)
	}
}

func TestStore_Preferences(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()

	if _, ok, err := j.Store().Preference(ctx, "camera"); err != nil || ok {
		t.Errorf("Preference(missing) = %v, %v", ok, err)
	}

	if err := j.SetPreference(ctx, "camera", "Sony Venice"); err != nil {
		t.Fatalf("SetPreference() error = %v", err)
	}
	if err := j.SetPreference(ctx, "camera", "ARRI Alexa 35"); err != nil {
		t.Fatalf("SetPreference() overwrite error = %v", err)
	}
	if err := j.SetPreference(ctx, "aspect_ratio", "16:9"); err != nil {
		t.Fatalf("SetPreference() error = %v", err)
	}

	v, ok, err := j.Store().Preference(ctx, "camera")
	if err != nil || !ok || v != "ARRI Alexa 35" {
		t.Errorf("Preference(camera) = %q, %v, %v", v, ok, err)
	}

	prefs, err := j.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences() error = %v", err)
	}
	if len(prefs) != 2 || prefs["aspect_ratio"] != "16:9" {
		t.Errorf("Preferences() = %v", prefs)
	}
}

func TestMetadata_RoundTrip(t *testing.T) {
	m := Metadata{ProxyIDs: []int64{1, 2}, Strength: 0.65}
	got := ParseMetadata(m.ToJSON())
	if len(got.ProxyIDs) != 2 || got.Strength != 0.65 {
		t.Errorf("ParseMetadata() = %+v", got)
	}
	if empty := ParseMetadata(""); empty.Camera != "" {
		t.Errorf("ParseMetadata(\"\") = %+v", empty)
	}
}
