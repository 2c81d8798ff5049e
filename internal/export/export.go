// Package export pushes finished leads to a CRM: a Notion database or
// Salesforce Lead records.
package export

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/notion"
	"github.com/sells-group/leadgen-cli/pkg/salesforce"
)

// LeadSource is written on every Salesforce lead.
const LeadSource = "LinkedIn"

// ToNotion maps a lead to a Notion row.
func ToNotion(l model.Lead) notion.LeadPage {
	p := notion.LeadPage{
		Name:            l.PersonName(),
		URL:             strings.TrimSpace(l.URL),
		Company:         l.Company,
		Roles:           l.Roles,
		CompanyLinkedIn: l.LinkedIn(),
		CompanySize:     string(l.CompanySize),
		Industry:        l.Industry,
		Summary:         l.CompanySummary,
		Technologies:    l.TechnologiesUsed,
		ITServices:      l.IsITServices,
	}
	if p.Name == "" {
		p.Name = l.Title
	}
	if w := l.Website(); !model.IsWebsiteSentinel(w) {
		p.Website = w
	}
	return p
}

// ToSalesforce maps a lead to a Salesforce Lead. LastName and Company are
// required by Salesforce, so both fall back to model.Unknown.
func ToSalesforce(l model.Lead) salesforce.Lead {
	first, last := splitName(l.PersonName())
	if last == "" {
		last = model.Unknown
	}
	company := strings.TrimSpace(l.Company)
	if company == "" {
		company = model.Unknown
	}
	sf := salesforce.Lead{
		FirstName:   first,
		LastName:    last,
		Company:     company,
		Title:       l.Roles,
		Industry:    l.Industry,
		Description: l.CompanySummary,
		LeadSource:  LeadSource,
		ProfileURL:  strings.TrimSpace(l.URL),
	}
	if w := l.Website(); !model.IsWebsiteSentinel(w) {
		sf.Website = w
	}
	if n, ok := l.CompanySize.Int(); ok {
		sf.NumberOfEmployees = n
	}
	return sf
}

// splitName puts the last word in last and the rest in first.
func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return "", fields[0]
	}
	return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
}

// PushNotion reads the leads JSON at in and writes one Notion page per
// distinct profile URL.
func PushNotion(ctx context.Context, c notion.Client, dbID, in string) (model.RunStats, error) {
	var stats model.RunStats

	leads, err := artifact.ReadJSON[model.Lead](in)
	if err != nil {
		return stats, err
	}
	pages := make([]notion.LeadPage, len(leads))
	for i, l := range leads {
		pages[i] = ToNotion(l)
	}

	res, err := notion.PushLeads(ctx, c, dbID, pages)
	stats.Total = len(leads)
	stats.Succeeded = res.Created + res.Updated
	stats.Skipped = res.Skipped
	if err != nil {
		stats.Failed = stats.Total - stats.Succeeded - stats.Skipped
		return stats, err
	}
	return stats, nil
}

// PushSalesforce reads the leads JSON at in and upserts them as Salesforce
// leads keyed by profileField. Fields the org does not let us write are
// dropped; when profileField itself is not writable every lead is inserted.
// Rejected records go to a failures sidecar next to in.
func PushSalesforce(ctx context.Context, c salesforce.Client, profileField, in string) (model.RunStats, error) {
	var stats model.RunStats

	leads, err := artifact.ReadJSON[model.Lead](in)
	if err != nil {
		return stats, err
	}

	allowed, err := salesforce.WritableLeadFields(ctx, c)
	if err != nil {
		return stats, err
	}
	if profileField != "" && !allowed[profileField] {
		zap.L().Warn("export: profile field not writable, leads will not be deduplicated",
			zap.String("field", profileField))
		profileField = ""
	}

	records := dedupe(leads, &stats)
	urls := make([]string, 0, len(records))
	for _, r := range records {
		if r.ProfileURL != "" {
			urls = append(urls, r.ProfileURL)
		}
	}
	existing, err := salesforce.FindLeadsByProfile(ctx, c, profileField, urls)
	if err != nil {
		return stats, err
	}

	var (
		inserts    []map[string]any
		insertKeys []string
		updates    []salesforce.CollectionRecord
		updateKeys []string
	)
	for _, r := range records {
		fields := r.Fields(profileField, allowed)
		if id, ok := existing[r.ProfileURL]; ok && r.ProfileURL != "" {
			updates = append(updates, salesforce.CollectionRecord{ID: id, Fields: fields})
			updateKeys = append(updateKeys, r.ProfileURL)
			continue
		}
		inserts = append(inserts, fields)
		insertKeys = append(insertKeys, r.ProfileURL)
	}

	failures := resilience.NewFailures("leads push salesforce")
	sidecar := artifact.SidecarPath(in, "salesforce")

	inserted, err := salesforce.BulkInsertLeads(ctx, c, inserts)
	tally(&stats, failures, insertKeys, inserted)
	if err != nil {
		_ = failures.WriteSidecar(sidecar)
		return stats, err
	}
	updated, err := salesforce.BulkUpdateLeads(ctx, c, updates)
	tally(&stats, failures, updateKeys, updated)
	if err != nil {
		_ = failures.WriteSidecar(sidecar)
		return stats, err
	}

	zap.L().Info("export: pushed leads to salesforce",
		zap.Int("inserted", len(inserted)),
		zap.Int("updated", len(updated)),
		zap.Int("failed", stats.Failed),
	)
	return stats, failures.WriteSidecar(sidecar)
}

// dedupe maps leads to Salesforce records, keeping the first lead per
// profile URL.
func dedupe(leads []model.Lead, stats *model.RunStats) []salesforce.Lead {
	seen := make(map[string]bool, len(leads))
	out := make([]salesforce.Lead, 0, len(leads))
	for _, l := range leads {
		stats.Total++
		r := ToSalesforce(l)
		if r.ProfileURL != "" {
			if seen[r.ProfileURL] {
				stats.Skipped++
				continue
			}
			seen[r.ProfileURL] = true
		}
		out = append(out, r)
	}
	return out
}

func tally(stats *model.RunStats, failures *resilience.Failures, keys []string, results []salesforce.CollectionResult) {
	for i, r := range results {
		if r.Success {
			stats.Succeeded++
			continue
		}
		stats.Failed++
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		failures.Add(key, &RejectedError{Errors: r.Errors})
	}
}

// RejectedError is a record Salesforce refused.
type RejectedError struct {
	Errors []string
}

func (e *RejectedError) Error() string {
	if len(e.Errors) == 0 {
		return "salesforce: record rejected"
	}
	return "salesforce: " + strings.Join(e.Errors, "; ")
}
