// Package browser owns the headless-browser boundary: page loading with
// fallback wait strategies and raw DOM extraction. Nothing here
// normalizes; raw descriptors go to the schema package untouched.
package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/config"
	"github.com/formbridge/formbridge/internal/domain"
)

// Browser wraps a running Playwright instance and a launched Chromium.
// Pages are scoped acquisitions: every LoadPage must be paired with
// ReleasePage on all exit paths.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     config.BrowserConfig
	logger  *zap.Logger
}

// New starts Playwright and launches Chromium.
func New(cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	chromium, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Timeout:  playwright.Float(float64(cfg.NavTimeout.Milliseconds())),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: chromium,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Close shuts down the browser and the Playwright driver.
func (b *Browser) Close() error {
	if b.browser != nil {
		b.browser.Close()
	}
	if b.pw != nil {
		return b.pw.Stop()
	}
	return nil
}

// LoadPage navigates to url in a fresh browser context, trying wait
// strategies from strictest to loosest: networkidle, then load, then
// domcontentloaded. A short settle wait follows so late dynamic content
// can render. The caller owns the returned page and must release it
// with ReleasePage.
func (b *Browser) LoadPage(url string) (playwright.Page, error) {
	browserCtx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(b.cfg.UserAgent),
		Viewport: &playwright.Size{
			Width:  b.cfg.ViewportWidth,
			Height: b.cfg.ViewportHeight,
		},
	})
	if err != nil {
		return nil, domain.ErrExtractionFailed(url, fmt.Errorf("creating browser context: %w", err))
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		return nil, domain.ErrExtractionFailed(url, fmt.Errorf("creating page: %w", err))
	}

	if err := b.navigate(page, url); err != nil {
		page.Close()
		browserCtx.Close()
		return nil, domain.ErrExtractionFailed(url, err)
	}

	// Let late dynamic content render before extraction.
	page.WaitForTimeout(float64(b.cfg.SettleWait.Milliseconds()))

	return page, nil
}

// navigate runs the wait-strategy fallback chain. The page is usable as
// soon as any strategy succeeds; only exhausting all three is fatal.
func (b *Browser) navigate(page playwright.Page, url string) error {
	timeout := playwright.Float(float64(b.cfg.NavTimeout.Milliseconds()))

	strategies := []*playwright.WaitUntilState{
		playwright.WaitUntilStateNetworkidle,
		playwright.WaitUntilStateLoad,
		playwright.WaitUntilStateDomcontentloaded,
	}

	var lastErr error
	for _, state := range strategies {
		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: state,
			Timeout:   timeout,
		})
		if err == nil {
			b.logger.Debug("page loaded",
				zap.String("url", url),
				zap.String("wait_until", string(*state)))
			return nil
		}
		lastErr = err
		b.logger.Warn("navigation wait strategy failed, falling back",
			zap.String("url", url),
			zap.String("wait_until", string(*state)),
			zap.Error(err))
	}

	return fmt.Errorf("page never reached a usable load state: %w", lastErr)
}

// ReleasePage closes a page and its enclosing context. Safe to call
// with nil.
func ReleasePage(page playwright.Page) {
	if page == nil {
		return
	}
	ctx := page.Context()
	page.Close()
	if ctx != nil {
		ctx.Close()
	}
}
