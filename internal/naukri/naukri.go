// Package naukri scrapes job listings from naukri.com search results and
// cleans the scraped company and location columns.
package naukri

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/clean"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// Defaults for a listing scrape.
const (
	DefaultQuery    = "Lead Generation"
	DefaultLocation = "India"
	DefaultMaxPages = 50
)

// CSS selectors for the search results and job detail pages.
const (
	CardSelector     = ".jobTuple, .cust-job-tuple"
	TitleSelector    = "a.title"
	LocationSelector = ".locWdth, .location"
	CompanySelector  = ".company a, .company span, .subTitle, .jd-header-comp-name"
)

// AboutSelectors are tried in order on a job detail page; the first with
// text wins.
var AboutSelectors = []string{
	"section.about-company",
	".job-desc-about-company",
	".jd-header-comp-name",
	"div.aboutCompany div:nth-child(1)",
}

// Card is the raw content of one job card on a results page.
type Card struct {
	Title    string
	Link     string
	Location string
	Company  string
}

// Browser loads naukri pages. RodBrowser drives a real Chrome.
type Browser interface {
	// Cards loads a results page, scrolls it to the bottom and returns its
	// job cards in page order.
	Cards(ctx context.Context, pageURL string) ([]Card, error)
	// About loads a job detail page and returns the text of the first
	// AboutSelectors match with content, or "".
	About(ctx context.Context, link string) (string, error)
	Close() error
}

// PageURL builds the results URL for page n (1-based).
func PageURL(query, location string, n int) string {
	slug := strings.ReplaceAll(strings.ToLower(query), " ", "-")
	return fmt.Sprintf("https://www.naukri.com/%s-jobs-in-%s-%d", slug, strings.ToLower(location), n)
}

// Scraper walks the result pages of one search.
type Scraper struct {
	browser  Browser
	cleaner  *clean.Cleaner
	query    string
	location string
	maxPages int
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithSearch sets the search query and location.
func WithSearch(query, location string) Option {
	return func(s *Scraper) {
		if query != "" {
			s.query = query
		}
		if location != "" {
			s.location = location
		}
	}
}

// WithMaxPages limits how many result pages are visited.
func WithMaxPages(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// NewScraper creates a Scraper. A nil cleaner uses the built-in rules.
func NewScraper(browser Browser, cleaner *clean.Cleaner, opts ...Option) *Scraper {
	if cleaner == nil {
		cleaner = clean.Default()
	}
	s := &Scraper{
		browser:  browser,
		cleaner:  cleaner,
		query:    DefaultQuery,
		location: DefaultLocation,
		maxPages: DefaultMaxPages,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Company resolves the company for a card: the detail page's about section,
// then the card's company line, then the link slug. The result is always a
// cleaned name or model.Unknown.
func (s *Scraper) Company(ctx context.Context, card Card) string {
	var company string
	if card.Link != "" {
		about, err := s.browser.About(ctx, card.Link)
		if err != nil {
			zap.L().Warn("naukri: could not load detail page", zap.String("link", card.Link), zap.Error(err))
		} else {
			company = firstLine(about)
		}
	}

	if s.cleaner.IsJunkCompany(company) {
		company = clean.StripExperience(card.Company)
		if s.cleaner.IsJunkCompany(company) {
			company = s.cleaner.CompanyFromLink(card.Link)
		}
	}
	return s.cleaner.CompanyName(company)
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(line)
}

// Scrape visits every results page and returns the listings, one per
// distinct link. A page that fails to load or has no cards is skipped.
func (s *Scraper) Scrape(ctx context.Context) ([]model.JobListing, model.RunStats, error) {
	var stats model.RunStats
	seen := make(map[string]bool)
	var jobs []model.JobListing

	for n := 1; n <= s.maxPages; n++ {
		if err := ctx.Err(); err != nil {
			return jobs, stats, eris.Wrap(err, "naukri: scrape")
		}
		pageURL := PageURL(s.query, s.location, n)
		zap.L().Info("naukri: scraping page", zap.Int("page", n), zap.String("url", pageURL))

		cards, err := s.browser.Cards(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return jobs, stats, eris.Wrap(ctx.Err(), "naukri: scrape")
			}
			zap.L().Warn("naukri: page failed", zap.Int("page", n), zap.Error(err))
			continue
		}
		if len(cards) == 0 {
			zap.L().Warn("naukri: no jobs found", zap.Int("page", n))
			continue
		}

		for _, card := range cards {
			stats.Total++
			if seen[card.Link] {
				stats.Skipped++
				continue
			}
			seen[card.Link] = true

			company := s.Company(ctx, card)
			if company == model.Unknown {
				stats.Failed++
			} else {
				stats.Succeeded++
			}
			jobs = append(jobs, model.JobListing{
				Title:    strings.TrimSpace(card.Title),
				Company:  strings.TrimSpace(company),
				Location: strings.TrimSpace(card.Location),
				Link:     card.Link,
			})
		}
	}
	return jobs, stats, nil
}

// Run scrapes and writes the listings CSV to out.
func (s *Scraper) Run(ctx context.Context, out string) (model.RunStats, error) {
	jobs, stats, err := s.Scrape(ctx)
	if err != nil {
		// Keep whatever was scraped before the interruption.
		if len(jobs) > 0 {
			if werr := artifact.WriteCSV(out, jobs); werr != nil {
				zap.L().Warn("naukri: save partial listings", zap.String("path", out), zap.Error(werr))
			} else {
				zap.L().Info("naukri: saved partial listings", zap.Int("count", len(jobs)), zap.String("path", out))
			}
		}
		return stats, err
	}
	if err := artifact.WriteCSV(out, jobs); err != nil {
		return stats, err
	}
	zap.L().Info("naukri: saved jobs", zap.Int("count", len(jobs)), zap.String("path", out))
	return stats, nil
}
