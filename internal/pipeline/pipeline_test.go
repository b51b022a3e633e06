package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/samskrta/review-image/internal/review"
)

// memStore implements Store for testing.
type memStore struct {
	records   map[string]*review.Record
	processed map[string][2]bool // id -> (imageGenerated, chatShared)
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*review.Record), processed: make(map[string][2]bool)}
}

func (m *memStore) Has(id string) bool { _, ok := m.records[id]; return ok }

func (m *memStore) Add(r *review.Record) error {
	if m.Has(r.ID) {
		return errors.New("conflict")
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *memStore) MarkProcessed(id string, imageGenerated, chatShared *bool) {
	v := m.processed[id]
	if imageGenerated != nil {
		v[0] = *imageGenerated
	}
	if chatShared != nil {
		v[1] = *chatShared
	}
	m.processed[id] = v
}

// stubRenderer implements Renderer for testing.
type stubRenderer struct {
	err error
}

func (s *stubRenderer) Render(ctx context.Context, req RenderRequest) (RenderResult, error) {
	if s.err != nil {
		return RenderResult{}, s.err
	}
	return RenderResult{Image: []byte("png-bytes"), Format: "png"}, nil
}

// stubSharer implements Sharer for testing.
type stubSharer struct {
	err   error
	calls int
}

func (s *stubSharer) Share(ctx context.Context, r review.Record, image []byte, format string) error {
	s.calls++
	return s.err
}

func TestProcess_NewAndDuplicate(t *testing.T) {
	st := newMemStore()
	p := New(st, &stubRenderer{}, &stubSharer{}, Options{})

	records := []review.Record{
		{ID: "google:1", Rating: 5},
		{ID: "google:1", Rating: 5},
	}

	sum := p.Process(context.Background(), records)
	if sum.New != 1 || sum.Duplicate != 1 {
		t.Fatalf("got New=%d Duplicate=%d, want 1/1", sum.New, sum.Duplicate)
	}
}

func TestProcess_AutoGenerateAndAutoShare(t *testing.T) {
	st := newMemStore()
	sharer := &stubSharer{}
	p := New(st, &stubRenderer{}, sharer, Options{AutoGenerate: true, AutoShare: true})

	records := []review.Record{{ID: "google:1", Rating: 5}}
	sum := p.Process(context.Background(), records)

	if sum.Generated != 1 {
		t.Errorf("Generated = %d, want 1", sum.Generated)
	}
	if sum.Shared != 1 {
		t.Errorf("Shared = %d, want 1", sum.Shared)
	}
	if sharer.calls != 1 {
		t.Errorf("expected sharer to be called once, got %d", sharer.calls)
	}
	if !st.processed["google:1"][0] || !st.processed["google:1"][1] {
		t.Errorf("expected both flags marked processed")
	}
}

func TestProcess_AutoShareRespectsMinRating(t *testing.T) {
	st := newMemStore()
	sharer := &stubSharer{}
	p := New(st, &stubRenderer{}, sharer, Options{AutoGenerate: true, AutoShare: true, MinRatingForAutoShare: 4})

	records := []review.Record{{ID: "google:1", Rating: 2}}
	sum := p.Process(context.Background(), records)

	if sum.Shared != 0 || sharer.calls != 0 {
		t.Errorf("expected no share for low rating, got Shared=%d calls=%d", sum.Shared, sharer.calls)
	}
}

func TestProcess_GenerateErrorDoesNotBlockStoreAndSkipsShare(t *testing.T) {
	st := newMemStore()
	p := New(st, &stubRenderer{err: errors.New("render failed")}, &stubSharer{}, Options{AutoGenerate: true, AutoShare: true})

	records := []review.Record{{ID: "google:1", Rating: 5}}
	sum := p.Process(context.Background(), records)

	if sum.New != 1 {
		t.Errorf("New = %d, want 1 (store write must not be blocked by render failure)", sum.New)
	}
	if sum.Generated != 0 || sum.Shared != 0 {
		t.Errorf("Generated/Shared should be 0 after render failure, got %d/%d", sum.Generated, sum.Shared)
	}
	if len(sum.Errors) != 1 || sum.Errors[0].Step != "generate" {
		t.Fatalf("expected one generate error, got %+v", sum.Errors)
	}
}

func TestProcess_ShareErrorDoesNotUndoGeneratedFlag(t *testing.T) {
	st := newMemStore()
	p := New(st, &stubRenderer{}, &stubSharer{err: errors.New("share failed")}, Options{AutoGenerate: true, AutoShare: true})

	records := []review.Record{{ID: "google:1", Rating: 5}}
	sum := p.Process(context.Background(), records)

	if sum.Generated != 1 {
		t.Errorf("Generated = %d, want 1", sum.Generated)
	}
	if !st.processed["google:1"][0] {
		t.Errorf("expected image_generated flag still set despite share failure")
	}
	if len(sum.Errors) != 1 || sum.Errors[0].Step != "share" {
		t.Fatalf("expected one share error, got %+v", sum.Errors)
	}
}

func TestProcess_PreservesInputOrder(t *testing.T) {
	st := newMemStore()
	p := New(st, &stubRenderer{}, &stubSharer{}, Options{})

	records := []review.Record{
		{ID: "a:1", Rating: 5},
		{ID: "a:2", Rating: 5},
		{ID: "a:3", Rating: 5},
	}
	sum := p.Process(context.Background(), records)
	if sum.New != 3 {
		t.Fatalf("New = %d, want 3", sum.New)
	}
	for _, r := range records {
		if !st.Has(r.ID) {
			t.Errorf("expected %s to be stored", r.ID)
		}
	}
}
