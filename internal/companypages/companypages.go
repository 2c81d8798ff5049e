// Package companypages crawls each resolved company website for links to its
// LinkedIn company page and reads the employee count from that page.
package companypages

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/htmltext"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/scrape"
)

// Target is one distinct company and website pair to crawl.
type Target struct {
	Company string
	Website string
}

// Crawler fetches company sites and LinkedIn pages.
type Crawler struct {
	sites         scrape.Scraper
	profiles      scrape.Scraper
	limiter       *rate.Limiter
	maxConcurrent int
	failures      *resilience.Failures
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithProfileScraper fetches LinkedIn company pages with s instead of the
// site scraper.
func WithProfileScraper(s scrape.Scraper) Option {
	return func(c *Crawler) { c.profiles = s }
}

// WithRateLimit caps fetches per second across all workers. Zero disables.
func WithRateLimit(rps float64) Option {
	return func(c *Crawler) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithMaxConcurrent bounds parallel crawls.
func WithMaxConcurrent(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// NewCrawler creates a Crawler that fetches company sites with sites.
func NewCrawler(sites scrape.Scraper, opts ...Option) *Crawler {
	c := &Crawler{
		sites:         sites,
		profiles:      sites,
		limiter:       rate.NewLimiter(1, 1),
		maxConcurrent: 4,
		failures:      resilience.NewFailures("companies pages"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Targets returns the distinct company/website pairs from rows in first-seen
// order, dropping rows where either is empty and websites that are
// resolution sentinels. Websites without a scheme get https://.
func Targets(rows []model.JobWithWebsite) []Target {
	seen := make(map[Target]bool)
	var out []Target
	for _, r := range rows {
		company := strings.TrimSpace(r.Company)
		website := strings.TrimSpace(r.Website)
		if company == "" || website == "" {
			continue
		}
		key := Target{Company: company, Website: website}
		if seen[key] {
			continue
		}
		seen[key] = true
		if model.IsWebsiteSentinel(website) {
			continue
		}
		if !strings.HasPrefix(website, "http") {
			website = "https://" + website
		}
		out = append(out, Target{Company: company, Website: website})
	}
	return out
}

// LinkedInCompanyLinks returns hrefs pointing at LinkedIn company pages with
// the query string removed, deduplicated in page order.
func LinkedInCompanyLinks(links []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, href := range links {
		if !strings.Contains(href, "linkedin.com/company") {
			continue
		}
		href, _, _ = strings.Cut(href, "?")
		if seen[href] {
			continue
		}
		seen[href] = true
		out = append(out, href)
	}
	return out
}

// Crawl visits one target. Fetch failures are logged and produce an empty
// link list or no size; only context cancellation is returned.
func (c *Crawler) Crawl(ctx context.Context, t Target) (model.CompanyPage, error) {
	page := model.CompanyPage{
		CompanyName:  t.Company,
		Website:      t.Website,
		LinkedInURLs: []string{},
		SourceURL:    t.Website,
	}

	site, err := c.fetch(ctx, c.sites, t.Website)
	if err != nil {
		if ctx.Err() != nil {
			return page, ctx.Err()
		}
		zap.L().Warn("companypages: crawl failed", zap.String("url", t.Website), zap.Error(err))
		c.failures.Add(t.Website, err)
		return page, nil
	}
	if links := LinkedInCompanyLinks(site.Links); len(links) > 0 {
		page.LinkedInURLs = links
	}
	if len(page.LinkedInURLs) == 0 {
		return page, nil
	}

	profile, err := c.fetch(ctx, c.profiles, page.LinkedInURLs[0])
	if err != nil {
		if ctx.Err() != nil {
			return page, ctx.Err()
		}
		zap.L().Debug("companypages: size fetch failed", zap.String("url", page.LinkedInURLs[0]), zap.Error(err))
		return page, nil
	}
	if n, ok := htmltext.EmployeeCount(profile.Text); ok {
		page.CompanySize = model.SizeFromInt(n)
	}
	return page, nil
}

func (c *Crawler) fetch(ctx context.Context, s scrape.Scraper, url string) (*scrape.Page, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "companypages: rate limit")
		}
	}
	return s.Scrape(ctx, url)
}

// CrawlAll crawls targets concurrently. Results keep target order.
func (c *Crawler) CrawlAll(ctx context.Context, targets []Target) ([]model.CompanyPage, error) {
	pages := make([]model.CompanyPage, len(targets))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrent)
	for i, t := range targets {
		g.Go(func() error {
			page, err := c.Crawl(gCtx, t)
			if err != nil {
				return err
			}
			pages[i] = page
			zap.L().Info("companypages: crawled",
				zap.Int("index", i+1),
				zap.Int("total", len(targets)),
				zap.String("url", t.Website),
				zap.Int("linkedin_urls", len(page.LinkedInURLs)),
				zap.String("company_size", string(page.CompanySize)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "companypages: crawl")
	}
	return pages, nil
}

// Run reads listings with websites from in and writes company pages to out.
func (c *Crawler) Run(ctx context.Context, in, out string) (model.RunStats, error) {
	var stats model.RunStats

	rows, header, err := artifact.ReadCSV[model.JobWithWebsite](in)
	if err != nil {
		return stats, err
	}
	if err := artifact.RequireColumns(header, "company", "website"); err != nil {
		return stats, err
	}

	targets := Targets(rows)
	pages, err := c.CrawlAll(ctx, targets)
	if err != nil {
		return stats, err
	}

	stats.Total = len(pages)
	stats.Failed = c.failures.Len()
	for _, p := range pages {
		if len(p.LinkedInURLs) > 0 {
			stats.Succeeded++
		}
	}
	stats.Skipped = stats.Total - stats.Succeeded - stats.Failed
	if err := artifact.WriteJSON(out, pages); err != nil {
		return stats, err
	}
	return stats, c.failures.WriteSidecar(out)
}
