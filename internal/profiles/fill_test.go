package profiles

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/serper"
	serpermocks "github.com/sells-group/leadgen-cli/pkg/serper/mocks"
)

func TestFillFromPages(t *testing.T) {
	leads := []model.Lead{
		{Company: "acme", CompanyWebsite: model.StringPtr("Unknown"), CompanySize: "10"},
		{Company: "Orbit", CompanyWebsite: model.StringPtr("https://orbit.dev")},
		{Company: "Ghost"},
	}
	pages := []model.CompanyPage{
		{CompanyName: " ACME ", Website: "https://acme.com", CompanySize: "250"},
		{CompanyName: "Orbit", Website: "https://other.orbit.dev"},
		{CompanyName: ""},
	}

	changed := FillFromPages(leads, pages)
	assert.Equal(t, 1, changed)
	assert.Equal(t, "https://acme.com", leads[0].Website())
	assert.Equal(t, model.CompanySize("250"), leads[0].CompanySize)
	assert.Equal(t, "https://orbit.dev", leads[1].Website(), "known website is kept")
	assert.Nil(t, leads[2].CompanyWebsite)
}

func TestFillUnknown(t *testing.T) {
	client := serpermocks.NewMockClient(t)
	client.On("Search", mock.Anything, serper.SearchRequest{
		Query: "Jane Doe CEO, Founder official company website", Num: 5, Country: "us", Language: "en",
	}).Return(&serper.SearchResponse{Organic: []serper.Result{{Link: ""}, {Link: "https://janeco.com"}}}, nil).Once()
	client.On("Search", mock.Anything, mock.MatchedBy(func(r serper.SearchRequest) bool {
		return r.Query == "Raj CEO official company website"
	})).Return(nil, errors.New("serper: status 500")).Once()

	leads := []model.Lead{
		{Company: "Unknown", Title: "Jane Doe - CEO at Stealth", Roles: "CEO, Founder", URL: "u1"},
		{Company: "unknown", Title: "Raj - Founder", Roles: "CEO", URL: "u2"},
		{Company: "Acme", Title: "Someone - CEO", Roles: "CEO", URL: "u3"},
	}

	stats, err := NewFiller(client).FillUnknown(context.Background(), leads)
	require.NoError(t, err)
	assert.Equal(t, model.RunStats{Total: 2, Succeeded: 1, Failed: 1}, stats)
	assert.Equal(t, "https://janeco.com", leads[0].Website())
	assert.Nil(t, leads[1].CompanyWebsite)
}

func TestFillerRun(t *testing.T) {
	dir := t.TempDir()
	leadsPath := filepath.Join(dir, "linkedin_profiles_final.json")
	pagesPath := filepath.Join(dir, "company_linkedin_pages.json")
	writeFile(t, leadsPath, `[
		{"query":"q","title":"Jane - CEO","url":"u1","roles":"CEO","company":"Acme","company_website":null,"company_size":null,"company_linkedin_url":null}
	]`)
	writeFile(t, pagesPath, `[{"company_name":"acme","website":"https://acme.com","linkedin_urls":[],"company_size":"51-200","source_url":"https://acme.com"}]`)

	out := LeadOutputs{
		JSON: filepath.Join(dir, "linkedin_profiles_enriched.json"),
		CSV:  filepath.Join(dir, "linkedin_profiles_enriched.csv"),
	}
	stats, err := NewFiller(serpermocks.NewMockClient(t)).Run(context.Background(), leadsPath, pagesPath, out)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)

	leads, err := artifact.ReadJSON[model.Lead](out.JSON)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "https://acme.com", leads[0].Website())
	assert.Equal(t, model.CompanySize("51-200"), leads[0].CompanySize)
	assert.FileExists(t, out.CSV)
}
