package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samskrta/review-image/internal/review"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Shutdown(); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	return s, path
}

func TestOpenFreshStore(t *testing.T) {
	s, _ := openTestStore(t)
	if s.Has("google:abc") {
		t.Errorf("fresh store should not have any records")
	}
	if stats := s.Stats(); stats.TotalIngested != 0 {
		t.Errorf("TotalIngested = %d, want 0", stats.TotalIngested)
	}
}

func TestAddAndGet(t *testing.T) {
	s, _ := openTestStore(t)

	r := &review.Record{ID: "google:abc", Source: "google", ReviewerName: "Jane", Rating: 5, ReviewDate: time.Now()}
	if err := s.Add(r); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !s.Has("google:abc") {
		t.Errorf("expected Has to be true after Add")
	}

	got := s.Get("google:abc")
	if got == nil {
		t.Fatalf("Get returned nil")
	}
	if got.ReviewerName != "Jane" {
		t.Errorf("ReviewerName = %q, want Jane", got.ReviewerName)
	}
}

func TestAddDuplicateConflict(t *testing.T) {
	s, _ := openTestStore(t)
	r := &review.Record{ID: "google:abc", Source: "google", Rating: 5}
	if err := s.Add(r); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := s.Add(r); err != ErrConflict {
		t.Errorf("second Add err = %v, want ErrConflict", err)
	}
}

func TestMarkProcessed(t *testing.T) {
	s, _ := openTestStore(t)
	r := &review.Record{ID: "google:abc", Source: "google", Rating: 5}
	_ = s.Add(r)

	generated := true
	s.MarkProcessed("google:abc", &generated, nil)

	got := s.Get("google:abc")
	if !got.ImageGenerated {
		t.Errorf("expected ImageGenerated true")
	}
	if got.ChatShared {
		t.Errorf("expected ChatShared unchanged (false)")
	}
	if got.ProcessedAt == nil {
		t.Errorf("expected ProcessedAt to be set")
	}
}

func TestMarkProcessedUnknownIDIsNoop(t *testing.T) {
	s, _ := openTestStore(t)
	s.MarkProcessed("nope:nope", nil, nil)
}

func TestCursorRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	if got := s.GetCursor("google"); got != "" {
		t.Errorf("GetCursor on unset = %q, want empty", got)
	}
	s.SetCursor("google", "2026-01-01T00:00:00Z")
	if got := s.GetCursor("google"); got != "2026-01-01T00:00:00Z" {
		t.Errorf("GetCursor = %q", got)
	}
}

func TestRecentSortedDescAndFiltered(t *testing.T) {
	s, _ := openTestStore(t)
	now := time.Now()
	_ = s.Add(&review.Record{ID: "google:1", Source: "google", Rating: 5, ReviewDate: now.Add(-2 * time.Hour)})
	_ = s.Add(&review.Record{ID: "google:2", Source: "google", Rating: 4, ReviewDate: now})
	_ = s.Add(&review.Record{ID: "yelp:1", Source: "yelp", Rating: 3, ReviewDate: now.Add(-1 * time.Hour)})

	all := s.Recent(10, "")
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].ID != "google:2" {
		t.Errorf("all[0].ID = %q, want google:2 (most recent first)", all[0].ID)
	}

	googleOnly := s.Recent(10, "google")
	if len(googleOnly) != 2 {
		t.Errorf("len(googleOnly) = %d, want 2", len(googleOnly))
	}
}

func TestPrune(t *testing.T) {
	s, _ := openTestStore(t)
	old := time.Now().AddDate(0, 0, -40)
	_ = s.Add(&review.Record{ID: "google:old", Source: "google", Rating: 5, ReviewDate: old})
	_ = s.Add(&review.Record{ID: "google:new", Source: "google", Rating: 5, ReviewDate: time.Now()})

	removed := s.Prune(30)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if s.Has("google:old") {
		t.Errorf("old record should have been pruned")
	}
	if !s.Has("google:new") {
		t.Errorf("new record should survive prune")
	}
}

func TestFlushWritesFileAndShutdownFlushesPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_ = s.Add(&review.Record{ID: "google:1", Source: "google", Rating: 5, ReviewDate: time.Now()})

	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected data file to exist after Shutdown: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("re-Open: %v", err)
	}
	if !reopened.Has("google:1") {
		t.Errorf("expected record to survive a reopen")
	}
}

func TestOpenDiscardsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open should recover from a corrupt file, got err: %v", err)
	}
	if s.Has("anything") {
		t.Errorf("expected a fresh empty document")
	}

	matches, _ := filepath.Glob(path + ".corrupt.*")
	if len(matches) != 1 {
		t.Errorf("expected exactly one quarantined corrupt file, found %d", len(matches))
	}
}
