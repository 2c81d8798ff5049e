package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Enrichment is the company classification returned by the LLM.
type Enrichment struct {
	IsITServices       *bool       `json:"is_it_services"`
	IndustrySummary    *string     `json:"industry_summary"`
	CompanySummary     *string     `json:"company_summary"`
	TechnologiesUsed   StringList  `json:"technologies_used"`
	CompanySize        CompanySize `json:"company_size"`
	CompanyLinkedInURL *string     `json:"company_linkedin_url"`
}

// FallbackEnrichment is used when the LLM call fails: only values the lead
// already carries survive.
func FallbackEnrichment(l Lead) Enrichment {
	return Enrichment{
		TechnologiesUsed:   l.TechnologiesUsed,
		CompanySize:        l.CompanySize,
		CompanyLinkedInURL: l.CompanyLinkedInURL,
	}
}

// Apply merges e into l. Classification fields overwrite when present; size
// and LinkedIn URL only fill gaps.
func (e Enrichment) Apply(l *Lead) {
	if e.IsITServices != nil {
		v := *e.IsITServices
		l.IsITServices = &v
	}
	if e.IndustrySummary != nil && *e.IndustrySummary != "" {
		l.Industry = *e.IndustrySummary
	}
	if e.CompanySummary != nil && *e.CompanySummary != "" {
		l.CompanySummary = *e.CompanySummary
	}
	if len(e.TechnologiesUsed) > 0 {
		l.TechnologiesUsed = append(StringList(nil), e.TechnologiesUsed...)
	}
	if l.CompanySize.IsZero() && !e.CompanySize.IsZero() {
		l.CompanySize = e.CompanySize
	}
	if l.LinkedIn() == "" && e.CompanyLinkedInURL != nil && *e.CompanyLinkedInURL != "" {
		l.CompanyLinkedInURL = StringPtr(*e.CompanyLinkedInURL)
	}
}

// UnmarshalJSON tolerates loosely typed LLM output: is_it_services as a
// "true"/"false" string and technologies_used as a comma separated string.
func (e *Enrichment) UnmarshalJSON(data []byte) error {
	type plain Enrichment
	var raw struct {
		plain
		IsITServices json.RawMessage `json:"is_it_services"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Enrichment(raw.plain)
	e.IsITServices = parseLooseBool(raw.IsITServices)
	return nil
}

func parseLooseBool(data json.RawMessage) *bool {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		return &b
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes":
		b = true
		return &b
	case "false", "no":
		return &b
	}
	return nil
}
