package profiles

import (
	"strings"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/model"
)

type companyInfo struct {
	website  string
	size     model.CompanySize
	linkedIn string
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return model.StringPtr(s)
}

// Merge joins each profile with its company page, matched on the trimmed
// company name. Later pages win when a name repeats. Unmatched profiles get
// null company fields.
func Merge(profiles []model.Profile, pages []model.CompanyPage) []model.Lead {
	byName := make(map[string]companyInfo, len(pages))
	for _, p := range pages {
		byName[strings.TrimSpace(p.CompanyName)] = companyInfo{
			website:  p.Website,
			size:     p.CompanySize,
			linkedIn: p.PrimaryLinkedIn(),
		}
	}

	leads := make([]model.Lead, 0, len(profiles))
	for _, p := range profiles {
		company := strings.TrimSpace(p.Company)
		info := byName[company]
		leads = append(leads, model.Lead{
			Query:              p.Query,
			Title:              p.Title,
			URL:                p.URL,
			Roles:              p.Roles,
			Company:            company,
			CompanyWebsite:     optional(info.website),
			CompanySize:        info.size,
			CompanyLinkedInURL: optional(info.linkedIn),
		})
	}
	return leads
}

// LeadOutputs names the files leads are written to. Empty paths are skipped.
type LeadOutputs struct {
	JSON string
	CSV  string
	XLSX string
}

// WriteLeads writes leads to every configured output.
func WriteLeads(leads []model.Lead, out LeadOutputs) error {
	if out.JSON != "" {
		if err := artifact.WriteJSON(out.JSON, leads); err != nil {
			return err
		}
	}
	if out.CSV != "" {
		if err := artifact.WriteCSV(out.CSV, leads); err != nil {
			return err
		}
	}
	if out.XLSX != "" {
		if err := artifact.WriteXLSX(out.XLSX, "Leads", leads); err != nil {
			return err
		}
	}
	return nil
}

// RunMerge merges the cleaned profiles with company pages and writes leads.
func RunMerge(profilesPath, pagesPath string, out LeadOutputs) (model.RunStats, error) {
	var stats model.RunStats
	profiles, err := artifact.ReadJSON[model.Profile](profilesPath)
	if err != nil {
		return stats, err
	}
	pages, err := artifact.ReadJSON[model.CompanyPage](pagesPath)
	if err != nil {
		return stats, err
	}

	leads := Merge(profiles, pages)
	stats.Total = len(leads)
	for _, l := range leads {
		if l.Website() != "" {
			stats.Succeeded++
		} else {
			stats.Skipped++
		}
	}
	return stats, WriteLeads(leads, out)
}
