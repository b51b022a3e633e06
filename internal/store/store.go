// Package store implements the persistent, deduplicating review store
// described in spec.md §4.1: a single versioned JSON document, written
// through a debounced, crash-safe tmp-file-then-rename path.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/samskrta/review-image/internal/apperr"
	"github.com/samskrta/review-image/internal/review"
)

const currentVersion = 1

// flushDelay is the debounce window: any mutation arms (or re-arms) a
// timer; the document is only written once the timer fires undisturbed.
const flushDelay = 5 * time.Second

// document is the on-disk shape, matching spec.md §3.
type document struct {
	Version int                       `json:"version"`
	Cursors map[string]string         `json:"cursors"`
	Reviews map[string]*review.Record `json:"reviews"`
	Stats   stats                     `json:"stats"`
}

type stats struct {
	TotalIngested int                  `json:"total_ingested"`
	LastPollTimes map[string]time.Time `json:"last_poll_times"`
}

func newDocument() *document {
	return &document{
		Version: currentVersion,
		Cursors: make(map[string]string),
		Reviews: make(map[string]*review.Record),
		Stats: stats{
			LastPollTimes: make(map[string]time.Time),
		},
	}
}

// Store is the single owner of reviews, cursors, and stats. All access goes
// through its methods; the debounced save observes a consistent snapshot
// because every mutation holds mu for its full duration.
type Store struct {
	path string

	mu    sync.Mutex
	doc   *document
	dirty bool
	timer *time.Timer

	// gen counts mutations. Flush captures it alongside the marshaled
	// snapshot and only clears dirty if no mutation landed during the
	// disk I/O window, so a concurrent write during Flush isn't lost.
	gen uint64
}

// Open loads path if present, or starts a fresh empty document. Parse
// errors or a version mismatch discard the file (preserved alongside as
// "<path>.corrupt.<unix-ts>" for inspection) and start fresh, marking dirty
// so the first flush writes a valid document back out.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	s := &Store{path: path}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.doc = newDocument()
		s.dirty = true
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}

	var doc document
	if jsonErr := json.Unmarshal(data, &doc); jsonErr != nil || doc.Version != currentVersion {
		quarantine := fmt.Sprintf("%s.corrupt.%d", path, time.Now().Unix())
		_ = os.WriteFile(quarantine, data, 0o644)
		s.doc = newDocument()
		s.dirty = true
		return s, nil
	}
	if doc.Cursors == nil {
		doc.Cursors = make(map[string]string)
	}
	if doc.Reviews == nil {
		doc.Reviews = make(map[string]*review.Record)
	}
	if doc.Stats.LastPollTimes == nil {
		doc.Stats.LastPollTimes = make(map[string]time.Time)
	}
	s.doc = &doc
	return s, nil
}

// Has reports whether id is already present.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.doc.Reviews[id]
	return ok
}

// Add inserts a new record, failing with ErrConflict if the id is already
// present. Conflict isn't one of spec.md §7's kinds, so
// callers (the fan-out pipeline) treat this as "already has" rather than
// surfacing it to HTTP directly.
var ErrConflict = fmt.Errorf("store: id already present")

func (s *Store) Add(r *review.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doc.Reviews[r.ID]; ok {
		return ErrConflict
	}

	cp := *r
	s.doc.Reviews[r.ID] = &cp
	s.doc.Stats.TotalIngested++
	s.markDirtyLocked()
	return nil
}

// Get returns a copy of the record for id, or nil if unknown.
func (s *Store) Get(id string) *review.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.doc.Reviews[id]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

// MarkProcessed merges the named flags into the stored record. No-op on an
// unknown id, per spec.md §4.1.
func (s *Store) MarkProcessed(id string, imageGenerated, chatShared *bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.doc.Reviews[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	r.ProcessedAt = &now
	if imageGenerated != nil {
		r.ImageGenerated = *imageGenerated
	}
	if chatShared != nil {
		r.ChatShared = *chatShared
	}
	s.markDirtyLocked()
}

// GetCursor returns the opaque cursor token for source, or "" if unset.
func (s *Store) GetCursor(source string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Cursors[source]
}

// SetCursor stores the opaque cursor token for source.
func (s *Store) SetCursor(source, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Cursors[source] = token
	s.markDirtyLocked()
}

// SetLastPollTime stamps the current wall clock as the last poll time for source.
func (s *Store) SetLastPollTime(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Stats.LastPollTimes[source] = time.Now().UTC()
	s.markDirtyLocked()
}

// Recent returns up to limit records sorted by review_date desc (falling
// back to processed_at when review_date is zero — it never is in practice,
// but this keeps the fallback spec.md §4.1 documents available), optionally
// filtered by source.
func (s *Store) Recent(limit int, source string) []review.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > 200 {
		limit = 200
	}

	out := make([]review.Record, 0, len(s.doc.Reviews))
	for _, r := range s.doc.Reviews {
		if source != "" && r.Source != source {
			continue
		}
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool {
		return sortKey(&out[i]).After(sortKey(&out[j]))
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortKey(r *review.Record) time.Time {
	if !r.ReviewDate.IsZero() {
		return r.ReviewDate
	}
	if r.ProcessedAt != nil {
		return *r.ProcessedAt
	}
	return time.Time{}
}

// Stats is the aggregate stats view returned by Stats().
type Stats struct {
	TotalIngested int
	BySource      map[string]int
	LastPollTimes map[string]time.Time
}

// Stats returns aggregate counts by source plus the last-poll map.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	bySource := make(map[string]int)
	for _, r := range s.doc.Reviews {
		bySource[r.Source]++
	}
	lastPoll := make(map[string]time.Time, len(s.doc.Stats.LastPollTimes))
	for k, v := range s.doc.Stats.LastPollTimes {
		lastPoll[k] = v
	}

	return Stats{
		TotalIngested: s.doc.Stats.TotalIngested,
		BySource:      bySource,
		LastPollTimes: lastPoll,
	}
}

// Prune deletes records whose review_date (falling back to processed_at)
// is older than now - maxAgeDays, returning the count removed.
func (s *Store) Prune(maxAgeDays int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)
	removed := 0
	for id, r := range s.doc.Reviews {
		if sortKey(r).Before(cutoff) {
			delete(s.doc.Reviews, id)
			removed++
		}
	}
	if removed > 0 {
		s.markDirtyLocked()
	}
	return removed
}

// markDirtyLocked arms (or re-arms) the debounce timer. Caller must hold mu.
func (s *Store) markDirtyLocked() {
	s.dirty = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(flushDelay, s.flushTimerFired)
}

func (s *Store) flushTimerFired() {
	if err := s.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "store: debounced flush failed: %v\n", err)
	}
}

// Flush writes the document to disk if dirty, via tmp-file + rename, first
// copying any existing file to a one-deep ".bak". Failures leave dirty true
// so a later mutation (or Shutdown) retries.
func (s *Store) Flush() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snapshotGen := s.gen
	data, err := json.MarshalIndent(s.doc, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("store: write tmp: %w", err)
	}

	if existing, err := os.ReadFile(s.path); err == nil {
		if bakErr := os.WriteFile(s.path+".bak", existing, 0o644); bakErr != nil {
			return fmt.Errorf("store: write bak: %w", bakErr)
		}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}

	s.mu.Lock()
	// Only clear dirty if no mutation landed while we were writing to
	// disk; otherwise the intervening mutation's own markDirtyLocked call
	// already re-armed the debounce timer and we must not clobber its
	// signal, or that write would never get persisted.
	if s.gen == snapshotGen {
		s.dirty = false
	}
	s.mu.Unlock()
	return nil
}

// Shutdown flushes any pending save synchronously and stops the debounce timer.
func (s *Store) Shutdown() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	return s.Flush()
}

// NotFoundError wraps ErrConflict-adjacent lookups into apperr for the web layer.
func NotFoundError(id string) *apperr.Error {
	return apperr.New(apperr.NotFound, fmt.Sprintf("review %q not found", id))
}
