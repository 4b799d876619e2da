package browser

import (
	"context"

	"go.uber.org/zap"
)

// Scanner is the one-call extraction surface: load a page, extract it,
// release it. Page handles never escape; acquisition and release happen
// inside each call on every exit path.
type Scanner struct {
	browser   *Browser
	extractor *Extractor
	wizard    *Wizard
	logger    *zap.Logger
}

// NewScanner wires a Scanner over a running browser.
func NewScanner(b *Browser, logger *zap.Logger) *Scanner {
	extractor := NewExtractor(logger)
	return &Scanner{
		browser:   b,
		extractor: extractor,
		wizard:    NewWizard(extractor, b.cfg, logger),
		logger:    logger,
	}
}

// ScanPage loads url and extracts its raw DOM snapshot.
func (s *Scanner) ScanPage(ctx context.Context, url string) (*ExtractResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := s.browser.LoadPage(url)
	if err != nil {
		return nil, err
	}
	defer ReleasePage(page)

	return s.extractor.Extract(page)
}

// ScanWizard loads url and walks the multi-page form, returning one
// snapshot per reachable page.
func (s *Scanner) ScanWizard(ctx context.Context, url string, maxPages int) ([]PageSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := s.browser.LoadPage(url)
	if err != nil {
		return nil, err
	}
	defer ReleasePage(page)

	return s.wizard.Scan(page, maxPages)
}
