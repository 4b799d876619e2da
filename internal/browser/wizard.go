package browser

import (
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/formbridge/formbridge/internal/config"
)

// nextButtonSelector matches the wizard forward-navigation convention.
const nextButtonSelector = `button:has-text("Next"), input[value="Next"]`

// PageSnapshot is one wizard page's raw extraction.
type PageSnapshot struct {
	Page   int
	URL    string
	Result *ExtractResult
}

// Wizard walks a multi-page form by repeatedly extracting the current
// page and clicking the next button, up to a page cap.
type Wizard struct {
	extractor *Extractor
	cfg       config.BrowserConfig
	logger    *zap.Logger
}

// NewWizard creates a Wizard.
func NewWizard(extractor *Extractor, cfg config.BrowserConfig, logger *zap.Logger) *Wizard {
	return &Wizard{extractor: extractor, cfg: cfg, logger: logger}
}

// Scan extracts every reachable wizard page starting from the page's
// current state. The walk ends when no clickable next button remains or
// maxPages is reached. maxPages falls back to the configured cap when
// zero or negative.
func (w *Wizard) Scan(page playwright.Page, maxPages int) ([]PageSnapshot, error) {
	if maxPages <= 0 {
		maxPages = w.cfg.MaxWizardPages
	}

	var snapshots []PageSnapshot
	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		result, err := w.extractor.Extract(page)
		if err != nil {
			// The first page must extract; later pages degrade to a
			// partial walk.
			if pageNum == 1 {
				return nil, err
			}
			w.logger.Warn("wizard page extraction failed, stopping walk",
				zap.Int("page", pageNum),
				zap.Error(err))
			break
		}

		snapshots = append(snapshots, PageSnapshot{
			Page:   pageNum,
			URL:    page.URL(),
			Result: result,
		})

		if pageNum == maxPages || !w.advance(page, pageNum) {
			break
		}
	}

	w.logger.Info("wizard walk finished", zap.Int("pages", len(snapshots)))
	return snapshots, nil
}

// advance clicks the next button and waits for the following page to
// settle. Returns false when the walk cannot continue.
func (w *Wizard) advance(page playwright.Page, pageNum int) bool {
	next := page.Locator(nextButtonSelector).First()

	visible, err := next.IsVisible()
	if err != nil || !visible {
		return false
	}
	if disabled, err := next.IsDisabled(); err != nil || disabled {
		return false
	}

	if err := next.Click(); err != nil {
		w.logger.Warn("next button click failed",
			zap.Int("page", pageNum),
			zap.Error(err))
		return false
	}

	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(float64(w.cfg.NavTimeout.Milliseconds())),
	}); err != nil {
		w.logger.Warn("wait after next click failed",
			zap.Int("page", pageNum),
			zap.Error(err))
		return false
	}
	page.WaitForTimeout(float64(w.cfg.SettleWait.Milliseconds()))

	return true
}
