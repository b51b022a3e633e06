package review

import (
	"testing"
	"time"
)

func TestClampRating(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 3: 3, 5: 5, 6: 5, 99: 5, -5: 1}
	for in, want := range cases {
		if got := ClampRating(in); got != want {
			t.Errorf("ClampRating(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestClampStars(t *testing.T) {
	cases := map[int]int{0: 0, -1: 0, 6: 5, 99: 5, 3: 3}
	for in, want := range cases {
		if got := ClampStars(in); got != want {
			t.Errorf("ClampStars(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestDeriveID_WithToken(t *testing.T) {
	id := DeriveID("google", "abc123", "Jane", "Great", 5)
	if id != "google:abc123" {
		t.Errorf("got %q, want %q", id, "google:abc123")
	}
}

func TestDeriveID_WithoutToken_Deterministic(t *testing.T) {
	id1 := DeriveID("generic", "", "Jane D.", "Excellent", 5)
	id2 := DeriveID("generic", "", "Jane D.", "Excellent", 5)
	if id1 != id2 {
		t.Fatalf("derived ids differ: %q vs %q", id1, id2)
	}
	if len(id1) != len("generic:")+16 {
		t.Errorf("unexpected id length: %q", id1)
	}

	// Any differing field must change the id.
	id3 := DeriveID("generic", "", "Jane D.", "Excellent", 4)
	if id1 == id3 {
		t.Errorf("expected different id for different rating")
	}
}

func TestNormalize_Defaults(t *testing.T) {
	r := &Record{Rating: 0}
	Normalize("generic", "", r, "Anonymous")

	if r.Rating != 1 {
		t.Errorf("rating = %d, want 1", r.Rating)
	}
	if r.ReviewerName != "Anonymous" {
		t.Errorf("reviewer_name = %q, want placeholder", r.ReviewerName)
	}
	if r.ReviewText != "" {
		t.Errorf("review_text = %q, want empty default", r.ReviewText)
	}
	if r.ReviewDate.IsZero() {
		t.Errorf("review_date should default to now")
	}
	if r.ID == "" {
		t.Errorf("expected derived id")
	}
}

func TestNormalize_TruncatesOversizeFields(t *testing.T) {
	longName := make([]byte, 500)
	for i := range longName {
		longName[i] = 'a'
	}
	longText := make([]byte, 3000)
	for i := range longText {
		longText[i] = 'b'
	}
	r := &Record{ReviewerName: string(longName), ReviewText: string(longText), Rating: 5, ReviewDate: time.Now()}
	Normalize("generic", "tok", r, "Anonymous")

	if len(r.ReviewerName) != maxReviewerNameLen {
		t.Errorf("reviewer_name len = %d, want %d", len(r.ReviewerName), maxReviewerNameLen)
	}
	if len(r.ReviewText) != maxReviewTextLen {
		t.Errorf("review_text len = %d, want %d", len(r.ReviewText), maxReviewTextLen)
	}
}
