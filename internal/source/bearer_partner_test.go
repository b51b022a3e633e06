package source

import "testing"

func TestParseOffsetCursor(t *testing.T) {
	cases := map[string]int{
		"":            0,
		"offset:0":    0,
		"offset:50":   50,
		"offset:9999": 9999,
		"garbage":     0,
		"offset:-5":   0,
		"offset:abc":  0,
	}
	for in, want := range cases {
		if got := parseOffsetCursor(in); got != want {
			t.Errorf("parseOffsetCursor(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestBearerPartnerAdapter_InitializeDefaultsPageSize(t *testing.T) {
	a := NewBearerPartnerAdapter("partner", Config{BearerToken: "tok", PartnerURL: "https://example.com/reviews"})
	if !a.Initialize() {
		t.Fatalf("expected adapter to initialize with valid config")
	}
	if a.cfg.PageSize != defaultPartnerPageSize {
		t.Errorf("PageSize = %d, want default %d", a.cfg.PageSize, defaultPartnerPageSize)
	}
}

func TestBearerPartnerAdapter_ParseMapsFields(t *testing.T) {
	a := NewBearerPartnerAdapter("partner", Config{})
	raw := []byte(`{"items":[{"external_id":"p1","reviewer_name":"Amy","rating":5,"body":"Nice","submitted_at":"2026-02-01T00:00:00Z"}]}`)

	records, err := a.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].ID != "partner:p1" {
		t.Errorf("ID = %q, want partner:p1", records[0].ID)
	}
}
