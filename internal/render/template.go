package render

import (
	"embed"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/samskrta/review-image/internal/review"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultTemplateName = "default"

const filledStarGlyph = "★"

// platformBadges are precomputed HTML snippets for known source names.
// The opaque lookup mirrors the chat package's technician-mention mapping:
// an unknown source simply yields no badge.
var platformBadges = map[string]string{
	"oauth_business": `<span class="platform-badge">Google</span>`,
	"apikey_feed":    `<span class="platform-badge">Yelp</span>`,
	"bearer_partner": `<span class="platform-badge">Partner Network</span>`,
}

// templateStore holds the named templates available to Generate: the
// embedded default, loaded once at startup, plus any added through
// Coordinator.RegisterTemplate.
type templateStore struct {
	templates map[string]string
}

func newTemplateStore() (*templateStore, error) {
	data, err := templateFS.ReadFile("templates/default.html")
	if err != nil {
		return nil, fmt.Errorf("render: read default template: %w", err)
	}
	return &templateStore{templates: map[string]string{defaultTemplateName: string(data)}}, nil
}

// register adds or replaces a named template.
func (t *templateStore) register(name, content string) {
	t.templates[name] = content
}

func (t *templateStore) lookup(name string) (string, bool) {
	if name == "" {
		name = defaultTemplateName
	}
	tpl, ok := t.templates[name]
	return tpl, ok
}

// placeholderValues are the raw values renderTemplate escapes or derives
// placeholder strings from, per spec.md §4.4 step 3.
type placeholderValues struct {
	BrandColor     string
	BrandColorDark string
	CompanyName    string
	CompanyPhone   string
	LogoURL        string
	ReviewerName   string
	ReviewText     string
	Rating         int
	TechPhotoURL   string
	TechName       string
	PlatformBadge  string
	BaseURL        string
}

// escapeHTML escapes &, <, >, ", ' per spec.md §4.4 step 3. html.EscapeString
// covers exactly this set (plus nothing beyond it) for Go's stdlib.
func escapeHTML(s string) string {
	return html.EscapeString(s)
}

// resolveURL resolves a possibly-relative URL against baseURL. Absolute
// URLs (with a scheme) are returned unchanged.
func resolveURL(raw, baseURL string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() {
		return raw
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return raw
	}
	return base.ResolveReference(u).String()
}

// renderTemplate substitutes every placeholder in tpl with its escaped or
// derived value and returns the final HTML document.
func renderTemplate(tpl string, v placeholderValues) string {
	stars := strings.Repeat(filledStarGlyph, review.ClampStars(v.Rating))

	techDisplay := "none"
	if v.TechPhotoURL != "" && v.TechName != "" {
		techDisplay = "flex"
	}

	lowRatingClass := ""
	if review.ClampStars(v.Rating) <= 3 {
		lowRatingClass = "low-rating"
	}

	replacements := map[string]string{
		"{{BRAND_COLOR}}":      escapeHTML(v.BrandColor),
		"{{BRAND_COLOR_DARK}}": escapeHTML(v.BrandColorDark),
		"{{COMPANY_NAME}}":     escapeHTML(v.CompanyName),
		"{{COMPANY_PHONE}}":    escapeHTML(v.CompanyPhone),
		"{{LOGO_URL}}":         escapeHTML(resolveURL(v.LogoURL, v.BaseURL)),
		"{{REVIEWER_NAME}}":    escapeHTML(v.ReviewerName),
		"{{REVIEW_TEXT}}":      escapeHTML(v.ReviewText),
		"{{STARS}}":            stars,
		"{{TECH_PHOTO_URL}}":   escapeHTML(resolveURL(v.TechPhotoURL, v.BaseURL)),
		"{{TECH_NAME}}":        escapeHTML(v.TechName),
		"{{TECH_DISPLAY}}":     techDisplay,
		"{{LOW_RATING_CLASS}}": lowRatingClass,
		"{{PLATFORM_BADGE}}":   v.PlatformBadge,
	}

	out := tpl
	for placeholder, value := range replacements {
		out = strings.ReplaceAll(out, placeholder, value)
	}
	return out
}

