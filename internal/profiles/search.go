// Package profiles finds LinkedIn profiles of decision makers at each company
// and joins them with what the pipeline knows about the company.
package profiles

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/serper"
)

// Searcher runs a web search. *search.Searcher and serper.Client satisfy it.
type Searcher interface {
	Search(ctx context.Context, req serper.SearchRequest) (*serper.SearchResponse, error)
}

// DefaultMaxQueries caps the queries run in one session.
const DefaultMaxQueries = 1000

// SearchPaths names the files a profile search reads and checkpoints to.
type SearchPaths struct {
	CompaniesCSV string // listings with a company column
	CompanyPages string // company pages JSON, optional
	Results      string // profile hits, read for resume and rewritten per query
	NoResults    string // queries that found nothing, same treatment
}

// ProfileSearch runs role-at-company searches restricted to linkedin.com/in.
type ProfileSearch struct {
	search     Searcher
	roles      []string
	maxQueries int
	num        int
}

// SearchOption configures a ProfileSearch.
type SearchOption func(*ProfileSearch)

// WithMaxQueries caps the queries run per session.
func WithMaxQueries(n int) SearchOption {
	return func(s *ProfileSearch) {
		if n > 0 {
			s.maxQueries = n
		}
	}
}

// WithResultsPerQuery sets the result count requested per search.
func WithResultsPerQuery(n int) SearchOption {
	return func(s *ProfileSearch) {
		if n > 0 {
			s.num = n
		}
	}
}

// NewProfileSearch creates a ProfileSearch for the given roles.
func NewProfileSearch(search Searcher, roles []string, opts ...SearchOption) *ProfileSearch {
	s := &ProfileSearch{search: search, roles: roles, maxQueries: DefaultMaxQueries, num: 5}
	for _, o := range opts {
		o(s)
	}
	return s
}

// pageCompany reads the "company" key of a company pages entry. Entries
// keyed only by company_name contribute nothing.
type pageCompany struct {
	Company string `json:"company"`
}

// LoadCompanies returns the companies to search: the CSV's company column in
// row order without Unknown values, then names from the company pages file
// not already listed. Missing files and columns contribute nothing.
func LoadCompanies(csvPath, pagesPath string) ([]string, error) {
	var companies []string
	listed := make(map[string]bool)

	if csvPath != "" && artifact.Exists(csvPath) {
		rows, header, err := artifact.ReadCSV[model.JobListing](csvPath)
		if err != nil {
			return nil, err
		}
		if artifact.RequireColumns(header, "company") == nil {
			for _, r := range rows {
				if r.Company == "" || strings.EqualFold(r.Company, model.Unknown) {
					continue
				}
				companies = append(companies, r.Company)
				listed[r.Company] = true
			}
		}
	}

	if pagesPath != "" {
		pages, err := artifact.ReadJSONIfExists[pageCompany](pagesPath)
		if err != nil {
			return nil, err
		}
		for _, p := range pages {
			name := p.Company
			if name == "" || listed[name] {
				continue
			}
			companies = append(companies, name)
			listed[name] = true
		}
	}

	out := companies[:0]
	for _, c := range companies {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// BuildQueries pairs every company with every role.
func BuildQueries(companies, roles []string) []model.SearchQuery {
	queries := make([]model.SearchQuery, 0, len(companies)*len(roles))
	for _, company := range companies {
		for _, role := range roles {
			queries = append(queries, model.SearchQuery{
				Query:   fmt.Sprintf("%s at %s", role, company),
				Company: company,
				Role:    role,
			})
		}
	}
	return queries
}

// Patterns returns the search strings tried for q, most specific first.
func Patterns(q model.SearchQuery) []string {
	return []string{
		fmt.Sprintf(`site:linkedin.com/in "%s at %s"`, q.Role, q.Company),
		fmt.Sprintf(`site:linkedin.com/in %s %s`, q.Role, q.Company),
		fmt.Sprintf(`site:linkedin.com/in %s %s LinkedIn`, q.Company, q.Role),
	}
}

// Find tries each pattern until one returns LinkedIn profile links. Search
// errors move on to the next pattern; the last one is returned alongside an
// empty result.
func (s *ProfileSearch) Find(ctx context.Context, q model.SearchQuery) ([]model.ProfileHit, error) {
	var lastErr error
	for _, pattern := range Patterns(q) {
		resp, err := s.search.Search(ctx, serper.SearchRequest{Query: pattern, Num: s.num})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			zap.L().Warn("profiles: search failed", zap.String("pattern", pattern), zap.Error(err))
			lastErr = err
			continue
		}

		var hits []model.ProfileHit
		for _, r := range resp.Organic {
			if !strings.Contains(r.Link, "linkedin.com/in/") {
				continue
			}
			hits = append(hits, model.ProfileHit{
				Query:   q.Query,
				Role:    q.Role,
				Company: q.Company,
				Title:   r.Title,
				URL:     r.Link,
			})
		}
		if len(hits) > 0 {
			return hits, nil
		}
	}
	return nil, lastErr
}

// Pending drops queries already recorded in either checkpoint file and caps
// the rest at limit.
func Pending(queries []model.SearchQuery, done map[string]bool, limit int) []model.SearchQuery {
	var out []model.SearchQuery
	for _, q := range queries {
		if done[q.Query] {
			continue
		}
		out = append(out, q)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Run searches every pending query, rewriting both checkpoint files after
// each one so an interrupted run resumes where it stopped.
func (s *ProfileSearch) Run(ctx context.Context, paths SearchPaths) (model.RunStats, error) {
	var stats model.RunStats

	companies, err := LoadCompanies(paths.CompaniesCSV, paths.CompanyPages)
	if err != nil {
		return stats, err
	}
	results, err := artifact.ReadJSONIfExists[model.ProfileHit](paths.Results)
	if err != nil {
		return stats, err
	}
	noResults, err := artifact.ReadJSONIfExists[model.SearchQuery](paths.NoResults)
	if err != nil {
		return stats, err
	}
	if results == nil {
		results = []model.ProfileHit{}
	}
	if noResults == nil {
		noResults = []model.SearchQuery{}
	}

	done := make(map[string]bool, len(results)+len(noResults))
	for _, r := range results {
		done[r.Query] = true
	}
	for _, q := range noResults {
		done[q.Query] = true
	}

	pending := Pending(BuildQueries(companies, s.roles), done, s.maxQueries)
	zap.L().Info("profiles: queries to run",
		zap.Int("companies", len(companies)),
		zap.Int("pending", len(pending)),
		zap.Int("already_done", len(done)),
	)

	failures := resilience.NewFailures("profiles search")
	for i, q := range pending {
		hits, err := s.Find(ctx, q)
		if ctx.Err() != nil {
			return stats, eris.Wrap(ctx.Err(), "profiles: search")
		}
		stats.Total++
		if len(hits) > 0 {
			results = append(results, hits...)
			stats.Succeeded++
		} else {
			noResults = append(noResults, q)
			if err != nil {
				failures.Add(q.Query, err)
				stats.Failed++
			}
		}
		zap.L().Info("profiles: searched",
			zap.Int("index", i+1),
			zap.Int("total", len(pending)),
			zap.String("query", q.Query),
			zap.Int("profiles", len(hits)),
		)

		if err := artifact.WriteJSON(paths.Results, results); err != nil {
			return stats, err
		}
		if err := artifact.WriteJSON(paths.NoResults, noResults); err != nil {
			return stats, err
		}
	}

	zap.L().Info("profiles: search complete",
		zap.Int("results", len(results)),
		zap.Int("no_results", len(noResults)),
	)
	return stats, failures.WriteSidecar(paths.Results)
}
