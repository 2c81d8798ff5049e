package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// CompanyPage is a company website with the LinkedIn company pages found on it.
type CompanyPage struct {
	CompanyName  string      `json:"company_name"`
	Website      string      `json:"website"`
	LinkedInURLs []string    `json:"linkedin_urls"`
	LinkedInURL  string      `json:"linkedin_url,omitempty"`
	CompanySize  CompanySize `json:"company_size"`
	SourceURL    string      `json:"source_url"`
}

// PrimaryLinkedIn returns the explicit LinkedIn URL, or the first discovered one.
func (c CompanyPage) PrimaryLinkedIn() string {
	if c.LinkedInURL != "" {
		return c.LinkedInURL
	}
	if len(c.LinkedInURLs) > 0 {
		return c.LinkedInURLs[0]
	}
	return ""
}

// CompanySize is an employee count or range ("51-200"). Numeric values round
// trip as JSON numbers, ranges as strings and the empty value as null.
type CompanySize string

// SizeFromInt formats an exact employee count.
func SizeFromInt(n int) CompanySize {
	return CompanySize(strconv.Itoa(n))
}

// Int returns the size as an integer when it is an exact count.
func (s CompanySize) Int() (int, bool) {
	n, err := strconv.Atoi(string(s))
	return n, err == nil
}

// IsZero reports whether no size is known.
func (s CompanySize) IsZero() bool {
	return strings.TrimSpace(string(s)) == ""
}

// MarshalJSON implements json.Marshaler.
func (s CompanySize) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return []byte("null"), nil
	}
	if n, ok := s.Int(); ok {
		return []byte(strconv.Itoa(n)), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON implements json.Unmarshaler. Accepts numbers, strings and null.
func (s *CompanySize) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = CompanySize(strings.TrimSpace(str))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	if n, err := num.Int64(); err == nil {
		*s = CompanySize(strconv.FormatInt(n, 10))
		return nil
	}
	if f, err := num.Float64(); err == nil {
		*s = CompanySize(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*s = CompanySize(num.String())
	return nil
}
