// Package websites resolves each job listing's company to its official
// website through a web search.
package websites

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/rules"
	"github.com/sells-group/leadgen-cli/pkg/serper"
)

// Searcher runs a web search. *search.Searcher and serper.Client satisfy it.
type Searcher interface {
	Search(ctx context.Context, req serper.SearchRequest) (*serper.SearchResponse, error)
}

// Resolver maps company names to websites. Results are memoized per name for
// the lifetime of the Resolver.
type Resolver struct {
	search Searcher
	rules  *rules.Rules
	memo   map[string]string
}

// NewResolver creates a Resolver. A nil rules uses the defaults.
func NewResolver(search Searcher, r *rules.Rules) *Resolver {
	if r == nil {
		r = rules.Default()
	}
	return &Resolver{search: search, rules: r, memo: make(map[string]string)}
}

// IsCompanyWebsite reports whether rawURL looks like a company's own site:
// not a job board or social network, and on one of the allowed TLDs.
func IsCompanyWebsite(rawURL string, r *rules.Rules) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	for _, blocked := range r.BlockedDomains {
		if strings.Contains(host, strings.ToLower(blocked)) {
			return false
		}
	}
	for _, tld := range r.AllowedTLDs {
		if strings.HasSuffix(host, strings.ToLower(tld)) {
			return true
		}
	}
	return false
}

// Resolve returns the website for company or one of the website sentinels.
// The error is the search failure behind model.WebsiteError, for reporting.
func (r *Resolver) Resolve(ctx context.Context, company string) (string, error) {
	company = strings.TrimSpace(company)
	if model.IsUnknown(company) {
		return model.WebsiteNotApplicable, nil
	}
	if site, ok := r.memo[company]; ok {
		return site, nil
	}

	resp, err := r.search.Search(ctx, serper.SearchRequest{Query: company + " official website", Num: 3})
	if err != nil {
		// Not memoized: a later row for the same company gets another try.
		return model.WebsiteError, err
	}

	site := model.WebsiteNotFound
	if resp.HasOrganic() {
		site = model.WebsiteOnlyJobLinks
		for _, res := range resp.Organic {
			if IsCompanyWebsite(res.Link, r.rules) {
				site = res.Link
				break
			}
		}
	}
	r.memo[company] = site
	return site, nil
}

// Run reads cleaned job listings from in, resolves every company and writes
// them to out with a website column. Input columns are kept in their order;
// an existing website column is overwritten, otherwise one is appended.
func (r *Resolver) Run(ctx context.Context, in, out string) (model.RunStats, error) {
	var stats model.RunStats

	sheet, err := artifact.ReadSheet(in)
	if err != nil {
		return stats, err
	}
	if err := artifact.RequireColumns(sheet.Header, "company"); err != nil {
		return stats, err
	}
	companyCol := sheet.Col("company")
	siteCol := sheet.EnsureCol("website")

	failures := resilience.NewFailures("companies websites")
	for i, row := range sheet.Rows {
		if err := ctx.Err(); err != nil {
			return stats, eris.Wrap(err, "websites: run")
		}
		company := row[companyCol]
		site, err := r.Resolve(ctx, company)
		stats.Total++
		switch {
		case err != nil:
			stats.Failed++
			failures.Add(company, err)
			zap.L().Warn("websites: search failed", zap.String("company", company), zap.Error(err))
		case site == model.WebsiteNotApplicable:
			stats.Skipped++
		default:
			stats.Succeeded++
		}
		zap.L().Info("websites: resolved",
			zap.Int("index", i+1),
			zap.Int("total", len(sheet.Rows)),
			zap.String("company", company),
			zap.String("website", site),
		)
		row[siteCol] = site
	}

	if err := artifact.WriteSheet(out, sheet); err != nil {
		return stats, err
	}
	return stats, failures.WriteSidecar(out)
}
