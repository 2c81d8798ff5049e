package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Property names of the lead database.
const (
	PropName            = "Name"
	PropURL             = "URL"
	PropCompany         = "Company"
	PropRoles           = "Roles"
	PropWebsite         = "Website"
	PropCompanyLinkedIn = "Company LinkedIn"
	PropCompanySize     = "Company Size"
	PropIndustry        = "Industry"
	PropSummary         = "Summary"
	PropTechnologies    = "Technologies"
	PropITServices      = "IT Services"
)

// LeadPage is one row of the lead database. URL, the LinkedIn profile, is
// the row's identity.
type LeadPage struct {
	Name            string
	URL             string
	Company         string
	Roles           string
	Website         string
	CompanyLinkedIn string
	CompanySize     string
	Industry        string
	Summary         string
	Technologies    []string
	ITServices      *bool
}

// Properties converts the row to Notion page properties. Empty values are
// left out so an update never blanks a column.
func (l LeadPage) Properties() notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(l.Name),
		},
		PropURL: notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: l.URL},
	}
	for name, v := range map[string]string{
		PropCompany:     l.Company,
		PropRoles:       l.Roles,
		PropCompanySize: l.CompanySize,
		PropIndustry:    l.Industry,
		PropSummary:     l.Summary,
	} {
		if v != "" {
			props[name] = notionapi.RichTextProperty{Type: notionapi.PropertyTypeRichText, RichText: richText(v)}
		}
	}
	for name, v := range map[string]string{
		PropWebsite:         l.Website,
		PropCompanyLinkedIn: l.CompanyLinkedIn,
	} {
		if v != "" {
			props[name] = notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: v}
		}
	}
	if len(l.Technologies) > 0 {
		opts := make([]notionapi.Option, 0, len(l.Technologies))
		for _, t := range l.Technologies {
			// Commas are not allowed in select option names.
			if t = strings.TrimSpace(strings.ReplaceAll(t, ",", " ")); t != "" {
				opts = append(opts, notionapi.Option{Name: t})
			}
		}
		props[PropTechnologies] = notionapi.MultiSelectProperty{Type: notionapi.PropertyTypeMultiSelect, MultiSelect: opts}
	}
	if l.ITServices != nil {
		props[PropITServices] = notionapi.CheckboxProperty{Type: notionapi.PropertyTypeCheckbox, Checkbox: *l.ITServices}
	}
	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}}}
}

// PushResult counts what PushLeads did.
type PushResult struct {
	Created int
	Updated int
	Skipped int
}

// PushLeads writes one page per distinct URL. Rows already in the database
// are updated in place; rows without a URL are skipped. Rate limiting is
// left to the Client.
func PushLeads(ctx context.Context, c Client, dbID string, leads []LeadPage) (PushResult, error) {
	var res PushResult

	existing, err := PagesByURL(ctx, c, dbID, PropURL)
	if err != nil {
		return res, err
	}

	seen := make(map[string]bool, len(leads))
	for _, l := range leads {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "notion: push leads cancelled")
		}
		u := strings.TrimSpace(l.URL)
		if u == "" || seen[u] {
			res.Skipped++
			continue
		}
		seen[u] = true
		l.URL = u

		if pageID, ok := existing[u]; ok {
			if _, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: l.Properties()}); err != nil {
				return res, eris.Wrap(err, "notion: update lead page")
			}
			res.Updated++
			continue
		}

		_, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(dbID),
			},
			Properties: l.Properties(),
		})
		if err != nil {
			return res, eris.Wrap(err, "notion: create lead page")
		}
		res.Created++
	}

	zap.L().Info("notion: pushed leads",
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
