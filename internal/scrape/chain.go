package scrape

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// skipExtensions are file downloads no scraper should spend a request on.
var skipExtensions = []string{".pdf", ".zip", ".doc", ".docx", ".xls", ".xlsx", ".png", ".jpg", ".jpeg"}

// Chain tries scrapers in order and returns the first page.
type Chain struct {
	scrapers []Scraper
}

// NewChain creates a Chain. The local scraper normally goes first.
func NewChain(scrapers ...Scraper) *Chain {
	return &Chain{scrapers: scrapers}
}

// Names lists the scrapers in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.scrapers))
	for i, s := range c.scrapers {
		names[i] = s.Name()
	}
	return names
}

// Scrape implements Scraper over the whole chain.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	if skipped(targetURL) {
		return nil, eris.Errorf("scrape: skipping non-html url %s", targetURL)
	}

	var lastErr error
	for _, s := range c.scrapers {
		page, err := s.Scrape(ctx, targetURL)
		if err == nil && page != nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr == nil {
		return nil, eris.Errorf("scrape: no scrapers configured for %s", targetURL)
	}
	return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
}

// Name implements Scraper.
func (c *Chain) Name() string { return "chain" }

func skipped(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return true
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, s := range skipExtensions {
		if ext == s {
			return true
		}
	}
	return false
}
