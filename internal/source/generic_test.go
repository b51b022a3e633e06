package source

import "testing"

func TestGenericAdapter_ParseArray(t *testing.T) {
	a := NewGenericAdapter("generic", Config{})
	a.Initialize()

	raw := []byte(`[{"reviewer_name":"Jane","rating":5,"review_text":"Great work","review_date":"2026-01-01T00:00:00Z"}]`)
	records, err := a.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].ReviewerName != "Jane" {
		t.Errorf("ReviewerName = %q, want Jane", records[0].ReviewerName)
	}
	if records[0].Rating != 5 {
		t.Errorf("Rating = %d, want 5", records[0].Rating)
	}
}

func TestGenericAdapter_ParseEnvelope(t *testing.T) {
	a := NewGenericAdapter("generic", Config{})
	a.Initialize()

	raw := []byte(`{"source":"acme","reviews":[{"reviewer_name":"Bob","rating":4,"review_text":"Good"}]}`)
	records, err := a.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 || records[0].ReviewerName != "Bob" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestGenericAdapter_CustomFieldMapping(t *testing.T) {
	cfg := Config{FieldMapping: FieldMapping{
		ReviewerNameField: "name",
		RatingField:       "stars",
		ReviewTextField:   "text",
	}}
	a := NewGenericAdapter("generic", cfg)
	a.Initialize()

	raw := []byte(`[{"name":"Sam","stars":3,"text":"Ok"}]`)
	records, err := a.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].ReviewerName != "Sam" || records[0].Rating != 3 || records[0].ReviewText != "Ok" {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestGenericAdapter_FetchIsNoop(t *testing.T) {
	a := NewGenericAdapter("generic", Config{})
	records, cursor, err := a.Fetch(nil, "some-cursor")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records from Fetch")
	}
	if cursor != "some-cursor" {
		t.Errorf("cursor should be unchanged, got %q", cursor)
	}
}

func TestGenericAdapter_ParseInvalidPayload(t *testing.T) {
	a := NewGenericAdapter("generic", Config{})
	if _, err := a.Parse([]byte(`not json`)); err == nil {
		t.Errorf("expected error for invalid payload")
	}
}
