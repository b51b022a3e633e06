package render

import (
	"strings"
	"testing"
)

func TestRenderTemplate_StarsRepeatClampedRating(t *testing.T) {
	tpl := "{{STARS}}"
	cases := map[int]int{0: 0, 1: 1, 5: 5, 6: 5, -2: 0}
	for rating, want := range cases {
		out := renderTemplate(tpl, placeholderValues{Rating: rating})
		if got := strings.Count(out, filledStarGlyph); got != want {
			t.Errorf("rating %d: %d star glyphs, want %d", rating, got, want)
		}
	}
}

func TestRenderTemplate_TechDisplayRequiresBothFields(t *testing.T) {
	tpl := "{{TECH_DISPLAY}}"

	if out := renderTemplate(tpl, placeholderValues{TechName: "Sam", TechPhotoURL: "/sam.jpg"}); out != "flex" {
		t.Errorf("both fields: got %q, want flex", out)
	}
	if out := renderTemplate(tpl, placeholderValues{TechName: "Sam"}); out != "none" {
		t.Errorf("name only: got %q, want none", out)
	}
	if out := renderTemplate(tpl, placeholderValues{TechPhotoURL: "/sam.jpg"}); out != "none" {
		t.Errorf("photo only: got %q, want none", out)
	}
}

func TestRenderTemplate_LowRatingClass(t *testing.T) {
	tpl := `class="card {{LOW_RATING_CLASS}}"`

	if out := renderTemplate(tpl, placeholderValues{Rating: 3}); !strings.Contains(out, "low-rating") {
		t.Errorf("rating 3 should set low-rating class, got %q", out)
	}
	if out := renderTemplate(tpl, placeholderValues{Rating: 4}); strings.Contains(out, "low-rating") {
		t.Errorf("rating 4 should not set low-rating class, got %q", out)
	}
}

func TestRenderTemplate_ReplacesGlobally(t *testing.T) {
	tpl := "{{BRAND_COLOR}} {{BRAND_COLOR}} {{TECH_DISPLAY}} {{TECH_DISPLAY}}"
	out := renderTemplate(tpl, placeholderValues{BrandColor: "#abc"})
	if out != "#abc #abc none none" {
		t.Errorf("got %q, want every occurrence replaced", out)
	}
}

func TestRenderTemplate_EscapesUserInput(t *testing.T) {
	tpl := "{{REVIEWER_NAME}}|{{REVIEW_TEXT}}"
	out := renderTemplate(tpl, placeholderValues{
		ReviewerName: `<b>Jane</b>`,
		ReviewText:   `He said "great" & left`,
	})
	if strings.Contains(out, "<b>") {
		t.Errorf("reviewer name was not escaped: %q", out)
	}
	if !strings.Contains(out, "&amp;") || !strings.Contains(out, "&#34;") {
		t.Errorf("review text entities missing: %q", out)
	}
}

func TestRenderTemplate_PlatformBadgePassedThroughUnescaped(t *testing.T) {
	tpl := "{{PLATFORM_BADGE}}"
	badge := platformBadges["oauth_business"]
	out := renderTemplate(tpl, placeholderValues{PlatformBadge: badge})
	if out != badge {
		t.Errorf("got %q, want the badge HTML verbatim", out)
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		raw, base, want string
	}{
		{"", "http://example.com", ""},
		{"https://cdn.example.com/logo.png", "http://example.com", "https://cdn.example.com/logo.png"},
		{"/logo.png", "http://example.com", "http://example.com/logo.png"},
		{"logo.png", "http://example.com/assets/", "http://example.com/assets/logo.png"},
	}
	for _, tc := range cases {
		if got := resolveURL(tc.raw, tc.base); got != tc.want {
			t.Errorf("resolveURL(%q, %q) = %q, want %q", tc.raw, tc.base, got, tc.want)
		}
	}
}

func TestDefaultTemplateContainsEveryPlaceholderReplacement(t *testing.T) {
	ts, err := newTemplateStore()
	if err != nil {
		t.Fatalf("newTemplateStore: %v", err)
	}
	tpl, ok := ts.lookup("")
	if !ok {
		t.Fatalf("empty name should resolve to the default template")
	}

	out := renderTemplate(tpl, placeholderValues{
		BrandColor:     "#112233",
		BrandColorDark: "#001122",
		CompanyName:    "Acme",
		CompanyPhone:   "555-0100",
		ReviewerName:   "Jane",
		ReviewText:     "Great",
		Rating:         5,
	})
	if strings.Contains(out, "{{") {
		t.Errorf("rendered document still contains unreplaced placeholders:\n%s", out)
	}
}
