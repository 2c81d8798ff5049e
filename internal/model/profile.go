package model

import (
	"encoding/json"
	"strings"
)

// SearchQuery is one role-at-company LinkedIn profile search.
type SearchQuery struct {
	Query   string `json:"query"`
	Company string `json:"company"`
	Role    string `json:"role"`
}

// ProfileHit is a raw LinkedIn profile search result.
type ProfileHit struct {
	Query   string `json:"query"`
	Role    string `json:"role"`
	Company string `json:"company"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

// Profile is a deduplicated LinkedIn profile. Roles is a sorted, comma
// separated list of every role the profile matched.
type Profile struct {
	Query   string `json:"query"`
	Company string `json:"company"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Roles   string `json:"roles"`
}

// Lead is a profile joined with what is known about its company.
type Lead struct {
	Query              string      `json:"query" csv:"query"`
	Title              string      `json:"title" csv:"title"`
	URL                string      `json:"url" csv:"url"`
	Roles              string      `json:"roles" csv:"roles"`
	Company            string      `json:"company" csv:"company"`
	CompanyWebsite     *string     `json:"company_website" csv:"company_website"`
	CompanySize        CompanySize `json:"company_size" csv:"company_size"`
	CompanyLinkedInURL *string     `json:"company_linkedin_url" csv:"company_linkedin_url"`

	IsITServices     *bool      `json:"is_it_services,omitempty" csv:"is_it_services,omitempty"`
	Industry         string     `json:"industry,omitempty" csv:"industry,omitempty"`
	CompanySummary   string     `json:"company_summary,omitempty" csv:"company_summary,omitempty"`
	TechnologiesUsed StringList `json:"technologies_used,omitempty" csv:"technologies_used,omitempty"`
}

// Website returns the company website or "".
func (l Lead) Website() string {
	if l.CompanyWebsite == nil {
		return ""
	}
	return strings.TrimSpace(*l.CompanyWebsite)
}

// LinkedIn returns the company LinkedIn URL or "".
func (l Lead) LinkedIn() string {
	if l.CompanyLinkedInURL == nil {
		return ""
	}
	return *l.CompanyLinkedInURL
}

// PersonName returns the part of the profile title before the first "-",
// which is where search engines put the person's name.
func (l Lead) PersonName() string {
	name, _, _ := strings.Cut(l.Title, "-")
	return strings.TrimSpace(name)
}

// StringList is a list of strings that encodes as a JSON array and as a
// comma separated CSV cell.
type StringList []string

// MarshalJSON keeps the JSON form an array.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// UnmarshalJSON accepts an array, a single string or null.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return l.UnmarshalText([]byte(s))
}

// MarshalText implements encoding.TextMarshaler for CSV cells.
func (l StringList) MarshalText() ([]byte, error) {
	return []byte(strings.Join(l, ", ")), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for CSV cells.
func (l *StringList) UnmarshalText(text []byte) error {
	*l = nil
	for _, part := range strings.Split(string(text), ",") {
		if p := strings.TrimSpace(part); p != "" {
			*l = append(*l, p)
		}
	}
	return nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
