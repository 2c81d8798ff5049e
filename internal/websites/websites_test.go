package websites

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/rules"
	"github.com/sells-group/leadgen-cli/pkg/serper"
	serpermocks "github.com/sells-group/leadgen-cli/pkg/serper/mocks"
)

func TestIsCompanyWebsite(t *testing.T) {
	r := rules.Default()
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.acme.com/about", true},
		{"https://acme.in", true},
		{"https://orbit.io", true},
		{"https://example.co", true},
		{"https://www.naukri.com/acme-jobs", false},
		{"https://in.linkedin.com/company/acme", false},
		{"https://www.ambitionbox.com/overview/acme", false},
		{"https://acme.de", false},
		{"", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCompanyWebsite(tt.url, r))
		})
	}
}

func organic(links ...string) *serper.SearchResponse {
	resp := &serper.SearchResponse{Organic: []serper.Result{}}
	for _, l := range links {
		resp.Organic = append(resp.Organic, serper.Result{Link: l})
	}
	return resp
}

func query(company string) serper.SearchRequest {
	return serper.SearchRequest{Query: company + " official website", Num: 3}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	client := serpermocks.NewMockClient(t)
	client.On("Search", mock.Anything, query("Acme")).
		Return(organic("https://www.naukri.com/acme", "https://acme.com"), nil).Once()
	client.On("Search", mock.Anything, query("Orbit")).
		Return(organic("https://linkedin.com/company/orbit"), nil).Once()
	client.On("Search", mock.Anything, query("Ghost")).
		Return(&serper.SearchResponse{}, nil).Once()
	client.On("Search", mock.Anything, query("Flaky")).
		Return(nil, errors.New("serper: status 500")).Once()

	r := NewResolver(client, nil)

	site, err := r.Resolve(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.com", site)

	site, err = r.Resolve(ctx, "Orbit")
	require.NoError(t, err)
	assert.Equal(t, model.WebsiteOnlyJobLinks, site)

	site, err = r.Resolve(ctx, "Ghost")
	require.NoError(t, err)
	assert.Equal(t, model.WebsiteNotFound, site)

	site, err = r.Resolve(ctx, "Flaky")
	require.Error(t, err)
	assert.Equal(t, model.WebsiteError, site)

	for _, name := range []string{"", "Unknown", "unknown "} {
		site, err = r.Resolve(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, model.WebsiteNotApplicable, site)
	}

	// Memoized: the mock would fail on a second call.
	site, err = r.Resolve(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.com", site)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "naukri_jobs_clean.csv")
	out := filepath.Join(dir, "naukri_with_websites.csv")
	require.NoError(t, os.WriteFile(in, []byte(
		"title,company,location,link\n"+
			"SDR,Acme,Pune,https://naukri.com/1\n"+
			"BDE,Unknown,Delhi,https://naukri.com/2\n"+
			"SDR,Acme,Mumbai,https://naukri.com/3\n"+
			"AE,Flaky,Noida,https://naukri.com/4\n"), 0o644))

	client := serpermocks.NewMockClient(t)
	client.On("Search", mock.Anything, query("Acme")).Return(organic("https://acme.com"), nil).Once()
	client.On("Search", mock.Anything, query("Flaky")).Return(nil, errors.New("timeout")).Once()

	stats, err := NewResolver(client, nil).Run(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, model.RunStats{Total: 4, Succeeded: 2, Failed: 1, Skipped: 1}, stats)

	rows, header, err := artifact.ReadCSV[model.JobWithWebsite](out)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "company", "location", "link", "website"}, header)
	require.Len(t, rows, 4)
	assert.Equal(t, "https://acme.com", rows[0].Website)
	assert.Equal(t, model.WebsiteNotApplicable, rows[1].Website)
	assert.Equal(t, "https://acme.com", rows[2].Website)
	assert.Equal(t, model.WebsiteError, rows[3].Website)
	assert.FileExists(t, filepath.Join(dir, "naukri_with_websites_failures.json"))
}

func TestRun_MissingCompanyColumn(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "jobs.csv")
	require.NoError(t, os.WriteFile(in, []byte("title,Company\nSDR,Acme\n"), 0o644))

	_, err := NewResolver(serpermocks.NewMockClient(t), nil).Run(context.Background(), in, filepath.Join(dir, "out.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"company"`)
}

func TestRun_KeepsColumnsAndOrder(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "jobs.csv")
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(in, []byte(
		"company,link,posted\n"+
			"Acme,https://naukri.com/1,today\n"), 0o644))

	client := serpermocks.NewMockClient(t)
	client.On("Search", mock.Anything, query("Acme")).Return(organic("https://acme.com"), nil).Once()

	_, err := NewResolver(client, nil).Run(context.Background(), in, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "company,link,posted,website\nAcme,https://naukri.com/1,today,https://acme.com\n", string(data))
}

func TestRun_OverwritesWebsiteColumn(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "jobs.csv")
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(in, []byte("website,company\nstale,Unknown\n"), 0o644))

	_, err := NewResolver(serpermocks.NewMockClient(t), nil).Run(context.Background(), in, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "website,company\nN/A,Unknown\n", string(data))
}
