package companypages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/scrape"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreAnyFunction("internal/poll.runtime_pollWait"),
	)
}

type fakeScraper struct {
	mu    sync.Mutex
	pages map[string]*scrape.Page
	calls []string
}

func (f *fakeScraper) Name() string { return "fake" }

func (f *fakeScraper) Scrape(_ context.Context, url string) (*scrape.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return nil, errors.New("fake: not found")
}

func TestTargets(t *testing.T) {
	rows := []model.JobWithWebsite{
		{JobListing: model.JobListing{Company: "Acme"}, Website: "acme.com"},
		{JobListing: model.JobListing{Company: "Acme"}, Website: "acme.com"},
		{JobListing: model.JobListing{Company: "Orbit"}, Website: "N/A"},
		{JobListing: model.JobListing{Company: "Zen"}, Website: "Not Found (Only job/social links)"},
		{JobListing: model.JobListing{Company: "Err"}, Website: "error"},
		{JobListing: model.JobListing{Company: "Ghost"}, Website: "Not Found"},
		{JobListing: model.JobListing{Company: ""}, Website: "https://blank.io"},
		{JobListing: model.JobListing{Company: "Beta "}, Website: "https://beta.io"},
	}
	assert.Equal(t, []Target{
		{Company: "Acme", Website: "https://acme.com"},
		{Company: "Beta", Website: "https://beta.io"},
	}, Targets(rows))
}

func TestLinkedInCompanyLinks(t *testing.T) {
	links := []string{
		"/about",
		"https://www.linkedin.com/company/acme?trk=footer",
		"https://twitter.com/acme",
		"https://www.linkedin.com/company/acme",
		"https://www.linkedin.com/in/founder",
		"https://www.linkedin.com/company/acme-labs/",
	}
	assert.Equal(t, []string{
		"https://www.linkedin.com/company/acme",
		"https://www.linkedin.com/company/acme-labs/",
	}, LinkedInCompanyLinks(links))
	assert.Nil(t, LinkedInCompanyLinks(nil))
}

func TestCrawl_FakeScraper(t *testing.T) {
	f := &fakeScraper{pages: map[string]*scrape.Page{
		"https://acme.com": {Links: []string{"https://linkedin.com/company/acme?x=1"}},
		"https://linkedin.com/company/acme": {Text: "Acme | 1,250 employees on LinkedIn"},
		"https://beta.io": {Links: []string{"https://beta.io/contact"}},
	}}
	c := NewCrawler(f, WithRateLimit(0))

	page, err := c.Crawl(context.Background(), Target{Company: "Acme", Website: "https://acme.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://linkedin.com/company/acme"}, page.LinkedInURLs)
	assert.Equal(t, model.CompanySize("1250"), page.CompanySize)
	assert.Equal(t, "https://acme.com", page.SourceURL)

	page, err = c.Crawl(context.Background(), Target{Company: "Beta", Website: "https://beta.io"})
	require.NoError(t, err)
	assert.Empty(t, page.LinkedInURLs)
	assert.True(t, page.CompanySize.IsZero())

	page, err = c.Crawl(context.Background(), Target{Company: "Down", Website: "https://down.io"})
	require.NoError(t, err)
	assert.Empty(t, page.LinkedInURLs)
	assert.Equal(t, 1, c.failures.Len())
}

func TestCrawl_ProfileScraper(t *testing.T) {
	sites := &fakeScraper{pages: map[string]*scrape.Page{
		"https://acme.com": {Links: []string{"https://linkedin.com/company/acme"}},
	}}
	profiles := &fakeScraper{pages: map[string]*scrape.Page{
		"https://linkedin.com/company/acme": {Text: "42 employees"},
	}}
	c := NewCrawler(sites, WithProfileScraper(profiles), WithRateLimit(0))

	page, err := c.Crawl(context.Background(), Target{Company: "Acme", Website: "https://acme.com"})
	require.NoError(t, err)
	assert.Equal(t, model.CompanySize("42"), page.CompanySize)
	assert.Equal(t, []string{"https://linkedin.com/company/acme"}, profiles.calls)
}

func TestCrawl_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewCrawler(&fakeScraper{}, WithRateLimit(10))
	_, err := c.Crawl(ctx, Target{Company: "Acme", Website: "https://acme.com"})
	assert.Error(t, err)
}

func TestCrawlAll_PreservesOrder(t *testing.T) {
	f := &fakeScraper{pages: map[string]*scrape.Page{}}
	var targets []Target
	for i := range 20 {
		site := fmt.Sprintf("https://c%d.com", i)
		f.pages[site] = &scrape.Page{Links: []string{fmt.Sprintf("https://linkedin.com/company/c%d", i)}}
		targets = append(targets, Target{Company: fmt.Sprintf("C%d", i), Website: site})
	}
	c := NewCrawler(f, WithRateLimit(0), WithMaxConcurrent(8))

	pages, err := c.CrawlAll(context.Background(), targets)
	require.NoError(t, err)
	require.Len(t, pages, 20)
	for i, p := range pages {
		assert.Equal(t, fmt.Sprintf("C%d", i), p.CompanyName)
	}
}

func TestRun_LocalScraper(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Mozilla/5.0", r.UserAgent())
		fmt.Fprintf(w, `<html><body><a href="%s/linkedin.com/company/acme?trk=ft">LinkedIn</a></body></html>`, srv.URL)
	})
	mux.HandleFunc("/linkedin.com/company/acme", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><p>Acme</p><span>2,300 employees</span></body></html>`)
	})
	mux.HandleFunc("/gone/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	dir := t.TempDir()
	in := filepath.Join(dir, "naukri_with_websites.csv")
	out := filepath.Join(dir, "company_linkedin_pages.json")
	csv := "title,company,location,link,website\n" +
		"SDR,Acme,Pune,l1," + srv.URL + "\n" +
		"SDR,Acme,Pune,l2," + srv.URL + "\n" +
		"BDE,Gone,Pune,l3," + srv.URL + "/gone/\n" +
		"BDE,Nope,Pune,l4,N/A\n"
	require.NoError(t, os.WriteFile(in, []byte(csv), 0o644))

	c := NewCrawler(scrape.NewLocalScraper(), WithRateLimit(0))
	stats, err := c.Run(context.Background(), in, out)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)

	pages, err := artifact.ReadJSON[model.CompanyPage](out)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Acme", pages[0].CompanyName)
	assert.Equal(t, []string{srv.URL + "/linkedin.com/company/acme"}, pages[0].LinkedInURLs)
	assert.Equal(t, model.CompanySize("2300"), pages[0].CompanySize)
	assert.Equal(t, "Gone", pages[1].CompanyName)
	assert.Empty(t, pages[1].LinkedInURLs)
}
