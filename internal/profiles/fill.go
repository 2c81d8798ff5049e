package profiles

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/serper"
)

// FillFromPages fills lead company data from company pages matched on the
// lowercased company name. Websites only replace empty or Unknown values;
// a known company size always overwrites. It returns the leads changed.
func FillFromPages(leads []model.Lead, pages []model.CompanyPage) int {
	lookup := make(map[string]companyInfo, len(pages))
	for _, p := range pages {
		name := strings.ToLower(strings.TrimSpace(p.CompanyName))
		if name == "" {
			continue
		}
		lookup[name] = companyInfo{website: p.Website, size: p.CompanySize}
	}

	changed := 0
	for i := range leads {
		l := &leads[i]
		info, ok := lookup[strings.ToLower(strings.TrimSpace(l.Company))]
		if !ok {
			continue
		}
		touched := false
		if model.IsUnknown(l.Website()) && info.website != "" {
			l.CompanyWebsite = model.StringPtr(info.website)
			touched = true
			zap.L().Info("profiles: filled website from company pages",
				zap.String("company", l.Company),
				zap.String("website", info.website),
			)
		}
		if !info.size.IsZero() {
			l.CompanySize = info.size
			touched = true
		}
		if touched {
			changed++
		}
	}
	return changed
}

// Filler looks up websites for leads whose company is unknown.
type Filler struct {
	search   Searcher
	failures *resilience.Failures
}

// NewFiller creates a Filler.
func NewFiller(search Searcher) *Filler {
	return &Filler{search: search, failures: resilience.NewFailures("profiles fill")}
}

// FindWebsite searches for the company site of the person in the lead's
// title and returns the first organic link, or "".
func (f *Filler) FindWebsite(ctx context.Context, l model.Lead) (string, error) {
	resp, err := f.search.Search(ctx, serper.SearchRequest{
		Query:    l.PersonName() + " " + l.Roles + " official company website",
		Num:      5,
		Country:  "us",
		Language: "en",
	})
	if err != nil {
		return "", err
	}
	for _, r := range resp.Organic {
		if r.Link != "" {
			return r.Link, nil
		}
	}
	return "", nil
}

// FillUnknown sets company_website on leads whose company is "unknown".
// Search failures leave the lead unchanged.
func (f *Filler) FillUnknown(ctx context.Context, leads []model.Lead) (model.RunStats, error) {
	var stats model.RunStats
	for i := range leads {
		l := &leads[i]
		if !strings.EqualFold(strings.TrimSpace(l.Company), model.Unknown) {
			continue
		}
		stats.Total++
		site, err := f.FindWebsite(ctx, *l)
		switch {
		case ctx.Err() != nil:
			return stats, eris.Wrap(ctx.Err(), "profiles: fill")
		case err != nil:
			stats.Failed++
			f.failures.Add(l.URL, err)
			zap.L().Warn("profiles: website search failed", zap.String("title", l.Title), zap.Error(err))
		case site == "":
			stats.Skipped++
			zap.L().Info("profiles: company still unknown", zap.String("title", l.Title))
		default:
			stats.Succeeded++
			l.CompanyWebsite = model.StringPtr(site)
			zap.L().Info("profiles: found website via search", zap.String("title", l.Title), zap.String("website", site))
		}
	}
	return stats, nil
}

// Run fills the leads in leadsPath from the company pages, then searches for
// unknown companies, and writes every lead to out.
func (f *Filler) Run(ctx context.Context, leadsPath, pagesPath string, out LeadOutputs) (model.RunStats, error) {
	leads, err := artifact.ReadJSON[model.Lead](leadsPath)
	if err != nil {
		return model.RunStats{}, err
	}
	pages, err := artifact.ReadJSONIfExists[model.CompanyPage](pagesPath)
	if err != nil {
		return model.RunStats{}, err
	}

	filled := FillFromPages(leads, pages)
	stats, err := f.FillUnknown(ctx, leads)
	if err != nil {
		return stats, err
	}
	stats.Succeeded += filled
	stats.Total = len(leads)
	stats.Skipped = max(0, stats.Total-stats.Succeeded-stats.Failed)

	if err := WriteLeads(leads, out); err != nil {
		return stats, err
	}
	return stats, f.failures.WriteSidecar(out.JSON)
}
