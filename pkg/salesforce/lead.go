package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// LeadObject is the SObject leads are written to.
const LeadObject = "Lead"

// maxBatchSize is the Salesforce Collections API limit per request.
const maxBatchSize = 200

// maxInClause bounds how many values go into one SOQL IN list.
const maxInClause = 100

// Lead is a Salesforce Lead record. ProfileURL is written to a custom field
// whose API name depends on the org.
type Lead struct {
	FirstName         string
	LastName          string
	Company           string
	Title             string
	Website           string
	Industry          string
	Description       string
	LeadSource        string
	NumberOfEmployees int
	ProfileURL        string
}

// Fields returns the record as a field map. Empty values are omitted, as is
// any field not in allowed when allowed is non-nil. profileField names the
// custom field for ProfileURL; empty skips it.
func (l Lead) Fields(profileField string, allowed map[string]bool) map[string]any {
	m := make(map[string]any)
	set := func(name string, v any) {
		if allowed != nil && !allowed[name] {
			return
		}
		m[name] = v
	}
	for name, v := range map[string]string{
		"FirstName":   l.FirstName,
		"LastName":    l.LastName,
		"Company":     l.Company,
		"Title":       l.Title,
		"Website":     l.Website,
		"Industry":    l.Industry,
		"Description": l.Description,
		"LeadSource":  l.LeadSource,
	} {
		if v != "" {
			set(name, v)
		}
	}
	if l.NumberOfEmployees > 0 {
		set("NumberOfEmployees", l.NumberOfEmployees)
	}
	if profileField != "" && l.ProfileURL != "" {
		set(profileField, l.ProfileURL)
	}
	return m
}

// WritableLeadFields describes the Lead object and returns the names of
// fields that can be both created and updated.
func WritableLeadFields(ctx context.Context, c Client) (map[string]bool, error) {
	desc, err := c.DescribeSObject(ctx, LeadObject)
	if err != nil {
		return nil, eris.Wrap(err, "sf: describe lead")
	}
	out := make(map[string]bool, len(desc.Fields))
	for _, f := range desc.Fields {
		if f.Createable && f.Updateable {
			out[f.Name] = true
		}
	}
	return out, nil
}

// FindLeadsByProfile returns the Id of every existing Lead whose
// profileField matches one of urls, keyed by URL.
func FindLeadsByProfile(ctx context.Context, c Client, profileField string, urls []string) (map[string]string, error) {
	found := make(map[string]string)
	if profileField == "" {
		return found, nil
	}
	for start := 0; start < len(urls); start += maxInClause {
		end := min(start+maxInClause, len(urls))
		quoted := make([]string, 0, end-start)
		for _, u := range urls[start:end] {
			quoted = append(quoted, "'"+escapeSoql(u)+"'")
		}
		soql := fmt.Sprintf("SELECT Id, %s FROM %s WHERE %s IN (%s)",
			profileField, LeadObject, profileField, strings.Join(quoted, ", "))

		var records []map[string]any
		if err := c.Query(ctx, soql, &records); err != nil {
			return found, eris.Wrap(err, "sf: find leads by profile")
		}
		for _, r := range records {
			id, _ := r["Id"].(string)
			u, _ := r[profileField].(string)
			if id != "" && u != "" {
				found[u] = id
			}
		}
	}
	return found, nil
}

// BulkInsertLeads creates leads in batches of 200.
func BulkInsertLeads(ctx context.Context, c Client, records []map[string]any) ([]CollectionResult, error) {
	var all []CollectionResult
	for start := 0; start < len(records); start += maxBatchSize {
		end := min(start+maxBatchSize, len(records))
		results, err := c.InsertCollection(ctx, LeadObject, records[start:end])
		if err != nil {
			return all, eris.Wrap(err, fmt.Sprintf("sf: bulk insert leads batch %d-%d", start, end))
		}
		all = append(all, results...)
	}
	return all, nil
}

// BulkUpdateLeads updates existing leads in batches of 200.
func BulkUpdateLeads(ctx context.Context, c Client, records []CollectionRecord) ([]CollectionResult, error) {
	var all []CollectionResult
	for start := 0; start < len(records); start += maxBatchSize {
		end := min(start+maxBatchSize, len(records))
		results, err := c.UpdateCollection(ctx, LeadObject, records[start:end])
		if err != nil {
			return all, eris.Wrap(err, fmt.Sprintf("sf: bulk update leads batch %d-%d", start, end))
		}
		all = append(all, results...)
	}
	return all, nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
