package web

// platformCatalogEntry describes one source platform's badge for GET
// /api/platforms: the key is an adapter kind (source.Config.Kind), paired
// with the label and accent colour the dashboard uses to render it. Records
// carry their configured source name in review.Record.Source, which equals
// the key only when a source is named after its kind.
type platformCatalogEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// platformCatalog mirrors the badge set baked into the render templates
// (internal/render/template.go's platformBadges), giving callers the label
// and colour metadata the HTML badge itself doesn't expose.
var platformCatalog = map[string]platformCatalogEntry{
	"oauth_business": {Label: "Google", Color: "#4285F4"},
	"apikey_feed":    {Label: "Yelp", Color: "#D32323"},
	"bearer_partner": {Label: "Partner Network", Color: "#6B4EFF"},
	"generic":        {Label: "Other", Color: "#6B7280"},
}
