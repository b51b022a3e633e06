package render

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// page abstracts one browser tab. Callers must not share a page and must
// release it (Close) on every exit path.
type page interface {
	SetViewport(width, height int) error
	Navigate(htmlContent string) error
	WaitForIdle() error
	Screenshot(format string, width, height int) ([]byte, error)
	Close() error
}

// browserHandle abstracts the long-lived headless browser process so the
// coordinator's lease/health/reconnect logic can be tested without a real
// browser, mirroring how session.ProcessRunner hides CLI subprocess
// execution behind an interface.
type browserHandle interface {
	NewPage() (page, error)
	Connected() bool
	Close() error
}

// playwrightBrowser implements browserHandle using a real Chromium
// instance launched via playwright-go.
type playwrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

// launchPlaywrightBrowser starts playwright and launches headless Chromium.
func launchPlaywrightBrowser() (*playwrightBrowser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("render: start playwright: %w", err)
	}

	headless := true
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: &headless})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("render: launch chromium: %w", err)
	}

	return &playwrightBrowser{pw: pw, browser: browser}, nil
}

func (b *playwrightBrowser) Connected() bool {
	return b.browser != nil && b.browser.IsConnected()
}

func (b *playwrightBrowser) NewPage() (page, error) {
	p, err := b.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("render: new page: %w", err)
	}
	return &playwrightPage{page: p}, nil
}

func (b *playwrightBrowser) Close() error {
	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.pw != nil {
		return b.pw.Stop()
	}
	return nil
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) SetViewport(width, height int) error {
	return p.page.SetViewportSize(width, height)
}

func (p *playwrightPage) Navigate(htmlContent string) error {
	return p.page.SetContent(htmlContent, playwright.PageSetContentOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
}

func (p *playwrightPage) WaitForIdle() error {
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
}

func (p *playwrightPage) Screenshot(format string, width, height int) ([]byte, error) {
	opts := playwright.PageScreenshotOptions{
		Clip: &playwright.Rect{X: 0, Y: 0, Width: float64(width), Height: float64(height)},
	}
	switch format {
	case "jpeg", "jpg":
		quality := 90
		opts.Type = playwright.ScreenshotTypeJpeg
		opts.Quality = &quality
	default:
		opts.Type = playwright.ScreenshotTypePng
	}
	return p.page.Screenshot(opts)
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}
