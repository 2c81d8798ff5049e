package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/firecrawl"
)

// FirecrawlAdapter scrapes through Firecrawl, which returns both markdown
// and the page's links.
type FirecrawlAdapter struct {
	client  firecrawl.Client
	breaker *resilience.Breaker
	calc    *cost.Calculator
	ledger  *cost.Ledger
}

// NewFirecrawlAdapter wraps a Firecrawl client. calc and ledger may be nil.
func NewFirecrawlAdapter(client firecrawl.Client, breaker *resilience.Breaker, calc *cost.Calculator, ledger *cost.Ledger) *FirecrawlAdapter {
	if breaker == nil {
		breaker = resilience.NewBreaker("firecrawl", resilience.DefaultBreakerConfig())
	}
	return &FirecrawlAdapter{client: client, breaker: breaker, calc: calc, ledger: ledger}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Scrape implements Scraper.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	resp, err := resilience.Call(ctx, f.breaker, func(ctx context.Context) (*firecrawl.ScrapeResponse, error) {
		return f.client.Scrape(ctx, firecrawl.ScrapeRequest{URL: targetURL})
	})
	if err != nil {
		return nil, err
	}
	if f.calc != nil {
		f.ledger.Add("firecrawl", f.calc.FirecrawlScrape())
	}
	if !resp.Success {
		return nil, eris.Errorf("firecrawl: scrape of %s not successful", targetURL)
	}
	if code := resp.Data.Metadata.StatusCode; code != 0 && code != 200 {
		return nil, &StatusError{URL: targetURL, StatusCode: code}
	}
	return &Page{
		URL:        targetURL,
		Title:      resp.Data.Metadata.Title,
		Text:       resp.Data.Markdown,
		Links:      resp.Data.Links,
		StatusCode: 200,
		Source:     f.Name(),
	}, nil
}
