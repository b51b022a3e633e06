package source

import "testing"

func TestAPIKeyFeedAdapter_ParseMarksPartial(t *testing.T) {
	a := NewAPIKeyFeedAdapter("feed", Config{})
	raw := []byte(`{"entries":[{"token":"e1","name":"Lee","rating":4,"excerpt":"Solid","review_date":"2026-03-01T00:00:00Z"}]}`)

	records, err := a.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if !records[0].Partial {
		t.Errorf("expected Partial to be true for the api-key feed source")
	}
	if records[0].ID != "feed:e1" {
		t.Errorf("ID = %q, want feed:e1", records[0].ID)
	}
}

func TestAPIKeyFeedAdapter_ParseSingleObject(t *testing.T) {
	a := NewAPIKeyFeedAdapter("feed", Config{})
	raw := []byte(`{"token":"e1","name":"Lee","rating":4,"excerpt":"Solid"}`)

	records, err := a.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
}

func TestAPIKeyFeedAdapter_InitializeRequiresKeyAndURL(t *testing.T) {
	a := NewAPIKeyFeedAdapter("feed", Config{})
	if a.Initialize() {
		t.Errorf("expected adapter with empty config to fail initialization")
	}
	a2 := NewAPIKeyFeedAdapter("feed", Config{APIKey: "k", FeedURL: "https://example.com"})
	if !a2.Initialize() {
		t.Errorf("expected adapter with full config to initialize")
	}
}
