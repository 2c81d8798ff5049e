package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/scrape"
	"github.com/sells-group/leadgen-cli/internal/store"
)

type call struct {
	company string
	text    string
}

type fakeClassifier struct {
	mu     sync.Mutex
	calls  []call
	result func(company string) (model.Enrichment, error)
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) Classify(_ context.Context, company, text string, _ model.Lead) (model.Enrichment, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{company, text})
	f.mu.Unlock()
	return f.result(company)
}

func itServices(company string) (model.Enrichment, error) {
	yes := true
	return model.Enrichment{
		IsITServices:     &yes,
		IndustrySummary:  model.StringPtr("IT Services"),
		CompanySummary:   model.StringPtr(company + " builds software"),
		TechnologiesUsed: model.StringList{"Go"},
		CompanySize:      "11-50",
	}, nil
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "https://acme.com", CacheKey(model.Lead{Company: "Acme", CompanyWebsite: model.StringPtr("https://acme.com")}))
	assert.Equal(t, "Acme", CacheKey(model.Lead{Company: "Acme", CompanyWebsite: model.StringPtr("")}))
	assert.Equal(t, "Acme", CacheKey(model.Lead{Company: "Acme"}))
}

func TestIsUsable(t *testing.T) {
	assert.True(t, IsUsable("https://acme.com"))
	for _, w := range []string{"", " ", "N/A", "Error", "Not Found", "unknown"} {
		assert.False(t, IsUsable(w), w)
	}
}

func TestWebsiteText_Truncates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>" + strings.Repeat("a", 50) + "</p><script>x()</script></body></html>"))
	}))
	defer srv.Close()

	e := New(&fakeClassifier{}, scrape.NewLocalScraper(), WithMaxTextChars(10))
	assert.Equal(t, strings.Repeat("a", 10), e.WebsiteText(context.Background(), srv.URL))
	assert.Empty(t, e.WebsiteText(context.Background(), "N/A"))
}

func TestWebsiteText_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := New(&fakeClassifier{}, scrape.NewLocalScraper())
	assert.Empty(t, e.WebsiteText(context.Background(), srv.URL))
}

type pageScraper struct{ page *scrape.Page }

func (p pageScraper) Name() string { return "page" }

func (p pageScraper) Scrape(context.Context, string) (*scrape.Page, error) { return p.page, nil }

func TestWebsiteText_FallsBackToTitle(t *testing.T) {
	e := New(&fakeClassifier{}, pageScraper{&scrape.Page{Title: " Acme Tools ", Text: "  "}})
	assert.Equal(t, "Acme Tools", e.WebsiteText(context.Background(), "https://acme.com"))

	e = New(&fakeClassifier{}, pageScraper{&scrape.Page{Title: "Acme Tools", Text: "We build tools"}})
	assert.Equal(t, "We build tools", e.WebsiteText(context.Background(), "https://acme.com"))
}

func TestEnrich_MemoizesByKey(t *testing.T) {
	f := &fakeClassifier{result: itServices}
	e := New(f, nil, WithRateLimit(0))
	lead := model.Lead{Company: "Acme", CompanyWebsite: model.StringPtr("https://acme.com")}

	_, cached, err := e.Enrich(context.Background(), lead)
	require.NoError(t, err)
	assert.False(t, cached)
	_, cached, err = e.Enrich(context.Background(), model.Lead{Company: "Acme Corp", CompanyWebsite: model.StringPtr("https://acme.com")})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, f.calls, 1)
	assert.Equal(t, "", f.calls[0].text, "no scraper configured")
}

func TestEnrich_FallbackOnError(t *testing.T) {
	f := &fakeClassifier{result: func(string) (model.Enrichment, error) {
		return model.Enrichment{}, errors.New("llm: invalid json")
	}}
	e := New(f, nil, WithRateLimit(0))
	lead := model.Lead{
		Company:            "Acme",
		CompanySize:        "20",
		CompanyLinkedInURL: model.StringPtr("https://linkedin.com/company/acme"),
		TechnologiesUsed:   model.StringList{"PHP"},
	}

	got, _, err := e.Enrich(context.Background(), lead)
	require.NoError(t, err)
	assert.Nil(t, got.IsITServices)
	assert.Nil(t, got.IndustrySummary)
	assert.Equal(t, model.StringList{"PHP"}, got.TechnologiesUsed)
	assert.Equal(t, model.CompanySize("20"), got.CompanySize)
	assert.Equal(t, 1, e.failures.Len())
}

func TestEnrich_StoreCache(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	lead := model.Lead{Company: "Acme"}
	first := &fakeClassifier{result: itServices}
	_, _, err = New(first, nil, WithStore(st, time.Hour), WithRateLimit(0)).Enrich(ctx, lead)
	require.NoError(t, err)

	second := &fakeClassifier{result: itServices}
	got, cached, err := New(second, nil, WithStore(st, time.Hour), WithRateLimit(0)).Enrich(ctx, lead)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Empty(t, second.calls)
	assert.Equal(t, "IT Services", *got.IndustrySummary)
}

func TestEnrich_FallbackNotPersisted(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	failing := &fakeClassifier{result: func(string) (model.Enrichment, error) {
		return model.Enrichment{}, errors.New("boom")
	}}
	_, _, err = New(failing, nil, WithStore(st, time.Hour), WithRateLimit(0)).Enrich(ctx, model.Lead{Company: "Acme"})
	require.NoError(t, err)

	data, err := st.GetCached(ctx, store.NamespaceEnrichment, "Acme")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestEnrich_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeClassifier{result: func(string) (model.Enrichment, error) {
		return model.Enrichment{}, context.Canceled
	}}
	_, _, err := New(f, nil, WithRateLimit(0)).Enrich(ctx, model.Lead{Company: "Acme"})
	assert.Error(t, err)
}

func writeLeads(t *testing.T, path string, n int) {
	t.Helper()
	leads := make([]model.Lead, n)
	for i := range leads {
		leads[i] = model.Lead{
			Company:     string(rune('A'+i)) + "co",
			URL:         "u" + string(rune('a'+i)),
			CompanySize: "5",
		}
	}
	require.NoError(t, artifact.WriteJSON(path, leads))
}

func TestRun_PartialSavesAndMerge(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		In:      filepath.Join(dir, "linkedin_profiles_enriched.json"),
		Out:     filepath.Join(dir, "companies_classified.json"),
		Partial: filepath.Join(dir, "companies_classified_partial.json"),
	}
	writeLeads(t, paths.In, 7)

	f := &fakeClassifier{result: itServices}
	stats, err := New(f, nil, WithRateLimit(0), WithSaveEvery(3)).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, model.RunStats{Total: 7, Succeeded: 7}, stats)

	partial, err := artifact.ReadJSON[model.Lead](paths.Partial)
	require.NoError(t, err)
	assert.Len(t, partial, 6)

	out, err := artifact.ReadJSON[model.Lead](paths.Out)
	require.NoError(t, err)
	require.Len(t, out, 7)
	require.NotNil(t, out[0].IsITServices)
	assert.True(t, *out[0].IsITServices)
	assert.Equal(t, "IT Services", out[0].Industry)
	assert.Equal(t, "Aco builds software", out[0].CompanySummary)
	assert.Equal(t, model.StringList{"Go"}, out[0].TechnologiesUsed)
	assert.Equal(t, model.CompanySize("5"), out[0].CompanySize, "existing size is kept")
	assert.NoFileExists(t, filepath.Join(dir, "companies_classified_failures.json"))
}

func TestRun_Limit(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{In: filepath.Join(dir, "in.json"), Out: filepath.Join(dir, "out.json")}
	writeLeads(t, paths.In, 5)

	f := &fakeClassifier{result: itServices}
	stats, err := New(f, nil, WithRateLimit(0), WithLimit(2)).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)

	out, err := artifact.ReadJSON[model.Lead](paths.Out)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestRun_FailuresSidecar(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{In: filepath.Join(dir, "in.json"), Out: filepath.Join(dir, "out.json")}
	require.NoError(t, os.WriteFile(paths.In, []byte(`[{"company":"Acme","url":"u1"},{"company":"Acme","url":"u2"}]`), 0o644))

	f := &fakeClassifier{result: func(string) (model.Enrichment, error) {
		return model.Enrichment{}, errors.New("boom")
	}}
	stats, err := New(f, nil, WithRateLimit(0)).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, model.RunStats{Total: 2, Failed: 1, Skipped: 1}, stats)
	assert.FileExists(t, filepath.Join(dir, "out_failures.json"))
	assert.Len(t, f.calls, 1)
}
