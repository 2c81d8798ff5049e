// Package rules holds the keyword lists that drive company-name cleaning,
// website validation and profile search. Built-in defaults can be overridden
// per list from a YAML file.
package rules

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules is the full set of keyword lists.
type Rules struct {
	// CompanySuffixes are stripped from scraped company names.
	CompanySuffixes []string `yaml:"company_suffixes"`
	// JunkCompanyKeywords mark a scraped company name as unusable.
	JunkCompanyKeywords []string `yaml:"junk_company_keywords"`
	// CityPatterns, JunkKeywords and LeftoverFragments are removed from
	// listing company names during the cleaning stage.
	CityPatterns      []string `yaml:"city_patterns"`
	JunkKeywords      []string `yaml:"junk_keywords"`
	LeftoverFragments []string `yaml:"leftover_fragments"`
	// BlockedDomains are job boards and social sites that never count as a
	// company website.
	BlockedDomains []string `yaml:"blocked_domains"`
	// AllowedTLDs are the suffixes a company website host must end with.
	AllowedTLDs []string `yaml:"allowed_tlds"`
	// Roles are the job titles searched at each company.
	Roles []string `yaml:"roles"`
}

// Default returns the built-in rules.
func Default() *Rules {
	return &Rules{
		CompanySuffixes: []string{
			"Pvt Ltd", "Ltd", "Limited", "Services", "Solutions",
			"Technologies", "Group", "Enterprises", "India",
		},
		JunkCompanyKeywords: []string{"Years", "Confidential", "Unknown"},
		CityPatterns: []string{
			"Mumbai", "Navi Mumbai", "Thane", "Pune", "Delhi", "Noida", "Gurgaon",
			"Gurugram", "Hyderabad", "Bangalore", "Bengaluru", "Chennai", "Kolkata",
			"Lucknow", "Bhubaneswar", "Ahmedabad", "Indore", "Jaipur", "Nagpur", "Surat",
			"Chandigarh", "Ambala", "Vadodara", "Coimbatore", "Ranchi", "Gandhinagar",
			"Turbhe", "Delhi Ncr", "Delhi / Ncr",
		},
		JunkKeywords: []string{
			"Hiring", "Urgent", "Executive", "Specialist", "Associate", "Manager",
			"Lead Generation", "Process", "Sales", "Voice", "Business Development",
			"Telesales", "Internship", "Freshers", "Software Inside",
		},
		LeftoverFragments: []string{"Navi", "Ncr", "All Areas", "Hybrid", "Remote"},
		BlockedDomains: []string{
			"naukri.com", "linkedin.com", "glassdoor.com", "indeed.com",
			"monster.com", "shine.com", "timesjobs.com", "instahyre.com",
			"ambitionbox.com", "zippia.com",
		},
		AllowedTLDs: []string{".com", ".in", ".org", ".net", ".co", ".io"},
		Roles: []string{
			"Founder", "Co-Founder", "CEO", "Marketing Head",
			"Head of Marketing", "Business Development Head",
		},
	}
}

// Load returns the default rules with any list present in the YAML file at
// path replacing its default. An empty path returns the defaults.
func Load(path string) (*Rules, error) {
	r := Default()
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}

	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrapf(err, "rules: parse %s", path)
	}

	r.merge(override)
	return r, nil
}

func (r *Rules) merge(o Rules) {
	replace := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	replace(&r.CompanySuffixes, o.CompanySuffixes)
	replace(&r.JunkCompanyKeywords, o.JunkCompanyKeywords)
	replace(&r.CityPatterns, o.CityPatterns)
	replace(&r.JunkKeywords, o.JunkKeywords)
	replace(&r.LeftoverFragments, o.LeftoverFragments)
	replace(&r.BlockedDomains, o.BlockedDomains)
	replace(&r.AllowedTLDs, o.AllowedTLDs)
	replace(&r.Roles, o.Roles)
}
