package clean

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/rules"
)

func TestCompanyName(t *testing.T) {
	t.Parallel()

	c := Default()
	tests := []struct {
		in   string
		want string
	}{
		{"  Acme Technologies Pvt Ltd ", "Acme"},
		{"Infosys Limited", "Infosys"},
		{"Blue   Ocean   Media", "Blue Ocean Media"},
		{"Indiana Traders", "Indiana Traders"},
		{"pvt ltd", model.Unknown},
		{"India", model.Unknown},
		{"Confidential", model.Unknown},
		{"3-5 Years Acme", model.Unknown},
		{"", model.Unknown},
		{"Acme  Media", "Acme Media"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, c.CompanyName(tt.in))
		})
	}
}

func TestCompanyFromLink(t *testing.T) {
	t.Parallel()

	c := Default()
	assert.Equal(t, "Acme Soft", c.CompanyFromLink("https://www.naukri.com/a-b-acme-soft-x-y-z"))
	assert.Equal(t, "Acme", c.CompanyFromLink("https://www.naukri.com/a-b-ACME-x-y-z"))
	assert.Equal(t, "O'Neil Media", c.CompanyFromLink("https://www.naukri.com/a-b-o'neil-media-x-y-z"))
	assert.Equal(t, model.Unknown, c.CompanyFromLink("https://www.naukri.com/a-b-c"))
	assert.Equal(t, model.Unknown, c.CompanyFromLink(""))
	assert.Equal(t, model.Unknown, c.CompanyFromLink("://bad url"))
}

func TestTitleWords(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "O'Neil", titleWords("o'neil"))
	assert.Equal(t, "Mcdonald'S", titleWords("mcdonald's"))
	assert.Equal(t, "Acme Soft", titleWords("ACME soft"))
	assert.Equal(t, "'", titleWords("'"))
}

func TestStripExperience(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Bright Star", StripExperience("Bright Star 5 years"))
	assert.Equal(t, "Acme", StripExperience("Acme 10 Yrs"))
	assert.Equal(t, "", StripExperience("2 Years"))
}

func TestListingCompany(t *testing.T) {
	t.Parallel()

	c := Default()
	tests := []struct {
		name  string
		raw   string
		title string
		want  string
	}{
		{"title and city removed", "Bright Star Media Lead Generation Executive Mumbai", "Lead Generation Executive", "Bright Star Media"},
		{"leftovers and dash tail", "Acme Sales (Remote) - Navi Mumbai", "", "Acme"},
		{"all junk", "Hiring Urgent Telesales", "", model.Unknown},
		{"experience range", "Zen Tech 2 To 5", "", "Zen Tech"},
		{"regex chars in title", "Acme C++ Developer", "C++ Developer", "Acme"},
		{"empty", "", "Anything", model.Unknown},
		{"delhi ncr", "Orbit Delhi / Ncr", "", "Orbit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, c.ListingCompany(tt.raw, tt.title))
		})
	}
}

func TestLocation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Mumbai", Location("Mumbai (All Areas)"))
	assert.Equal(t, "Pune, Delhi", Location("Pune,  , Delhi"))
	assert.Equal(t, model.Unknown, Location(""))
	assert.Equal(t, model.Unknown, Location(" (Remote) "))
}

func TestNew_CustomRules(t *testing.T) {
	t.Parallel()

	r := rules.Default()
	r.CompanySuffixes = []string{"Inc"}
	r.JunkCompanyKeywords = []string{"Stealth"}
	c := New(r)

	assert.Equal(t, "Acme Technologies", c.CompanyName("Acme Technologies Inc"))
	assert.Equal(t, model.Unknown, c.CompanyName("Stealth Startup"))
	assert.True(t, c.IsJunkCompany("  "))
	assert.False(t, c.IsJunkCompany("Acme"))
}
