// Package render implements the headless-browser render coordinator
// (spec.md §4.4): one long-lived browser handle, a bounded page lease per
// request, an LRU result cache, and chunked batch rendering.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samskrta/review-image/internal/apperr"
	"github.com/samskrta/review-image/internal/metrics"
	"github.com/samskrta/review-image/internal/pipeline"
)

const batchChunkSize = 3

// CompanyConfig carries the branding fields substituted into every
// rendered card, read once from the configuration document at startup.
type CompanyConfig struct {
	Name            string
	Phone           string
	LogoURL         string
	BrandColor      string
	BrandColorDark  string
	BaseURLOverride string
}

// Request is one render job.
type Request struct {
	ReviewerName   string
	ReviewText     string
	Rating         int
	TechName       string
	TechPhotoURL   string
	Source         string
	Template       string
	Size           string
	Format         string
	RequestBaseURL string // scheme://host of the inbound HTTP request; used when no override is configured

	// BrandColor, BrandColorDark, and LogoURL override the company-wide
	// defaults for this render only, per spec.md §3's "optional brand
	// colour and logo overrides." Empty means "use the configured default."
	BrandColor     string
	BrandColorDark string
	LogoURL        string
}

// Result is a rendered image plus the dimensions and format it was
// produced at, and whether it was served from cache.
type Result struct {
	Image    []byte
	Format   string
	Width    int
	Height   int
	CacheHit bool
}

// Coordinator owns the browser handle and the render cache.
type Coordinator struct {
	company   CompanyConfig
	templates *templateStore
	cache     *lruCache

	mu      sync.Mutex
	browser browserHandle
	launch  func() (browserHandle, error)
}

// New builds a Coordinator. The browser is launched lazily, on first use.
func New(company CompanyConfig) (*Coordinator, error) {
	templates, err := newTemplateStore()
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		company:   company,
		templates: templates,
		cache:     newLRUCache(cacheCapacity),
		launch: func() (browserHandle, error) {
			return launchPlaywrightBrowser()
		},
	}, nil
}

// RegisterTemplate adds a named template, in addition to the built-in default.
func (c *Coordinator) RegisterTemplate(name, content string) {
	c.templates.register(name, content)
}

// TemplateNames lists every registered template name, for GET /api/templates.
func (c *Coordinator) TemplateNames() []string {
	names := make([]string, 0, len(c.templates.templates))
	for name := range c.templates.templates {
		names = append(names, name)
	}
	return names
}

// PlatformBadgeKeys lists the source keys with a precomputed platform
// badge, for GET /api/platforms.
func PlatformBadgeKeys() []string {
	keys := make([]string, 0, len(platformBadges))
	for k := range platformBadges {
		keys = append(keys, k)
	}
	return keys
}

// Healthy reports whether the browser handle is connected. A coordinator
// that has never rendered anything reports healthy (nothing to reconnect).
func (c *Coordinator) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.browser == nil || c.browser.Connected()
}

// Close shuts down the browser handle, if one was launched.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.browser = nil
	return err
}

// leaseBrowser returns the current browser handle, launching it on first
// use or reconnecting it if the connection was lost.
func (c *Coordinator) leaseBrowser() (browserHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil && c.browser.Connected() {
		return c.browser, nil
	}

	b, err := c.launch()
	if err != nil {
		return nil, fmt.Errorf("render: launch browser: %w", err)
	}
	c.browser = b
	return b, nil
}

// cacheKey computes the SHA-256 hex digest of the canonical JSON of the
// fields that affect the rendered output.
func cacheKey(req Request, size Size) string {
	canonical := struct {
		ReviewerName   string `json:"reviewer_name"`
		ReviewText     string `json:"review_text"`
		Rating         int    `json:"rating"`
		TechName       string `json:"tech_name"`
		TechPhotoURL   string `json:"tech_photo_url"`
		Source         string `json:"source"`
		Template       string `json:"template"`
		Size           string `json:"size"`
		Format         string `json:"format"`
		BrandColor     string `json:"brand_color"`
		BrandColorDark string `json:"brand_color_dark"`
		LogoURL        string `json:"logo_url"`
	}{
		ReviewerName:   req.ReviewerName,
		ReviewText:     req.ReviewText,
		Rating:         req.Rating,
		TechName:       req.TechName,
		TechPhotoURL:   req.TechPhotoURL,
		Source:         req.Source,
		Template:       req.Template,
		Size:           size.Name,
		Format:         req.Format,
		BrandColor:     req.BrandColor,
		BrandColorDark: req.BrandColorDark,
		LogoURL:        req.LogoURL,
	}
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Generate renders one request, consulting and populating the cache.
func (c *Coordinator) Generate(ctx context.Context, req Request) (Result, error) {
	format := req.Format
	if format == "" {
		format = "png"
	}

	size, ok := resolveSize(req.Size)
	if !ok {
		return Result{}, apperr.Bad(fmt.Sprintf("unknown size preset %q", req.Size))
	}

	tpl, ok := c.templates.lookup(req.Template)
	if !ok {
		return Result{}, apperr.Bad(fmt.Sprintf("unknown template %q", req.Template))
	}

	start := time.Now()

	key := cacheKey(req, size)
	if entry, hit := c.cache.get(key); hit && entry.Format == format {
		metrics.RenderCacheTotal.WithLabelValues("hit").Inc()
		metrics.RenderDuration.WithLabelValues(size.Name, format).Observe(time.Since(start).Seconds())
		return Result{Image: entry.Image, Format: entry.Format, Width: entry.Width, Height: entry.Height, CacheHit: true}, nil
	}
	metrics.RenderCacheTotal.WithLabelValues("miss").Inc()

	baseURL := c.company.BaseURLOverride
	if baseURL == "" {
		baseURL = req.RequestBaseURL
	}

	brandColor := c.company.BrandColor
	if req.BrandColor != "" {
		brandColor = req.BrandColor
	}
	brandColorDark := c.company.BrandColorDark
	if req.BrandColorDark != "" {
		brandColorDark = req.BrandColorDark
	}
	logoURL := c.company.LogoURL
	if req.LogoURL != "" {
		logoURL = req.LogoURL
	}

	html := renderTemplate(tpl, placeholderValues{
		BrandColor:     brandColor,
		BrandColorDark: brandColorDark,
		CompanyName:    c.company.Name,
		CompanyPhone:   c.company.Phone,
		LogoURL:        logoURL,
		ReviewerName:   req.ReviewerName,
		ReviewText:     req.ReviewText,
		Rating:         req.Rating,
		TechPhotoURL:   req.TechPhotoURL,
		TechName:       req.TechName,
		PlatformBadge:  platformBadges[req.Source],
		BaseURL:        baseURL,
	})

	browser, err := c.leaseBrowser()
	if err != nil {
		return Result{}, apperr.Wrap(apperr.Internal, "render: browser unavailable", err)
	}

	p, err := browser.NewPage()
	if err != nil {
		return Result{}, apperr.Wrap(apperr.Internal, "render: open page", err)
	}
	defer p.Close()

	if err := p.SetViewport(size.Width, size.Height); err != nil {
		return Result{}, apperr.Wrap(apperr.Internal, "render: set viewport", err)
	}
	if err := p.Navigate(html); err != nil {
		return Result{}, apperr.Wrap(apperr.Internal, "render: load document", err)
	}
	if err := p.WaitForIdle(); err != nil {
		return Result{}, apperr.Wrap(apperr.Internal, "render: wait idle", err)
	}

	image, err := p.Screenshot(format, size.Width, size.Height)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.Internal, "render: screenshot", err)
	}

	c.cache.put(key, cacheEntry{Image: image, Format: format, Width: size.Width, Height: size.Height})
	metrics.RenderDuration.WithLabelValues(size.Name, format).Observe(time.Since(start).Seconds())

	return Result{Image: image, Format: format, Width: size.Width, Height: size.Height}, nil
}

// BatchResult is one Request's outcome. GenerateBatch returns them at the
// same slice index as their request, so callers can report per-item
// failures while preserving input order.
type BatchResult struct {
	Result Result
	Err    error
}

// GenerateBatch renders reqs in chunks of 3 concurrently, returning results
// in input order. A per-item failure does not affect other items.
func (c *Coordinator) GenerateBatch(ctx context.Context, reqs []Request) []BatchResult {
	results := make([]BatchResult, len(reqs))

	for start := 0; start < len(reqs); start += batchChunkSize {
		end := min(start+batchChunkSize, len(reqs))
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i, req := i, reqs[i]
			g.Go(func() error {
				res, err := c.Generate(gctx, req)
				results[i] = BatchResult{Result: res, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}

	return results
}

// Render adapts Generate to the pipeline.Renderer interface. Template, Size
// and Format are forwarded as given; when they are empty, Generate's
// built-in defaults apply (the "default" template, "square", "png"). The
// ingestion block's default_template/default_size settings are not
// consulted here.
func (c *Coordinator) Render(ctx context.Context, req pipeline.RenderRequest) (pipeline.RenderResult, error) {
	res, err := c.Generate(ctx, Request{
		ReviewerName: req.ReviewerName,
		ReviewText:   req.ReviewText,
		Rating:       req.Rating,
		TechName:     req.TechName,
		TechPhotoURL: req.TechPhotoURL,
		Source:       req.Source,
		Template:     req.Template,
		Size:         req.Size,
		Format:       req.Format,
	})
	if err != nil {
		return pipeline.RenderResult{}, err
	}
	return pipeline.RenderResult{Image: res.Image, Format: res.Format}, nil
}
